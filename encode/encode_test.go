package encode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"shortreel/config"
	"shortreel/engine"
	"shortreel/types"
)

var testVideo = config.VideoConfig{Width: 1080, Height: 1920, FPS: 30, Preset: "ultrafast", CRF: 28}

// fakeEngine records every store operation and command.
type fakeEngine struct {
	files   map[string][]byte
	cmds    [][]string
	execErr error
	// concatOutput becomes output.mp4 when the concat command runs
	concatOutput []byte
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{files: make(map[string][]byte), concatOutput: []byte("fake-mp4-payload")}
}

func (f *fakeEngine) Load(context.Context) error { return nil }

func (f *fakeEngine) WriteFile(name string, data []byte) error {
	f.files[name] = data
	return nil
}

func (f *fakeEngine) ReadFile(name string) ([]byte, error) {
	data, ok := f.files[name]
	if !ok {
		return nil, fmt.Errorf("no such file %q", name)
	}
	return data, nil
}

func (f *fakeEngine) ListFiles(string) ([]string, error) {
	names := make([]string, 0, len(f.files))
	for n := range f.files {
		names = append(names, n)
	}
	return names, nil
}

func (f *fakeEngine) Execute(_ context.Context, args []string) error {
	f.cmds = append(f.cmds, args)
	if f.execErr != nil {
		return f.execErr
	}
	if len(args) > 0 && args[len(args)-1] == engine.OutputFile {
		f.files[engine.OutputFile] = f.concatOutput
	}
	return nil
}

func (f *fakeEngine) Release() {}

func hasPair(args []string, flag, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func TestClipArgsDurationDrivenByAudio(t *testing.T) {
	args := ClipArgs(testVideo, 3, 5.0)

	if !hasPair(args, "-t", "5.000") {
		t.Errorf("missing -t 5.000 in %v", args)
	}
	if args[len(args)-1] != "temp3.mp4" {
		t.Errorf("output = %q, want temp3.mp4", args[len(args)-1])
	}
	if !hasPair(args, "-i", "image3.jpg") || !hasPair(args, "-i", "audio3.mp3") {
		t.Errorf("inputs not derived from segment index: %v", args)
	}
}

func TestClipArgsConcatCompatibleFormat(t *testing.T) {
	// Every clip must share codec, pixel format and frame so the stream-copy
	// concat is valid.
	a := ClipArgs(testVideo, 0, 1.25)
	b := ClipArgs(testVideo, 1, 9.876)

	for _, args := range [][]string{a, b} {
		if !hasPair(args, "-pix_fmt", "yuv420p") {
			t.Errorf("missing -pix_fmt yuv420p in %v", args)
		}
		if !hasPair(args, "-c:v", "libx264") {
			t.Errorf("missing -c:v libx264 in %v", args)
		}
		if !hasPair(args, "-c:a", "copy") {
			t.Errorf("audio must be passthrough copy in %v", args)
		}
		joined := strings.Join(args, " ")
		if !strings.Contains(joined, "scale=1080:1920") {
			t.Errorf("missing vertical scale in %v", args)
		}
	}
	if !hasPair(a, "-t", "1.250") || !hasPair(b, "-t", "9.876") {
		t.Errorf("durations not carried with millisecond precision: %v / %v", a, b)
	}
}

func TestManifestOrderedNoGaps(t *testing.T) {
	got := string(Manifest(3))
	want := "file temp0.mp4\nfile temp1.mp4\nfile temp2.mp4\n"
	if got != want {
		t.Fatalf("Manifest(3) = %q, want %q", got, want)
	}
}

func TestConcatArgsStreamCopyOnly(t *testing.T) {
	args := ConcatArgs()
	if !hasPair(args, "-c", "copy") {
		t.Fatalf("concat must be stream copy: %v", args)
	}
	joined := strings.Join(args, " ")
	if strings.Contains(joined, "libx264") || strings.Contains(joined, "-crf") {
		t.Fatalf("concat must not re-encode: %v", args)
	}
	if !hasPair(args, "-f", "concat") || !hasPair(args, "-i", engine.ManifestFile) {
		t.Fatalf("concat must read the manifest: %v", args)
	}
}

func TestEncodeSegmentWritesAssetsAndRuns(t *testing.T) {
	eng := newFakeEngine()
	enc := NewEncoder(eng, testVideo)

	seg := types.Segment{
		Index:           0,
		Text:            "Cats are great.",
		ImageData:       []byte("jpeg-bytes"),
		Audio:           []byte("mp3-bytes"),
		DurationSeconds: 5.0,
	}
	if err := enc.EncodeSegment(context.Background(), seg); err != nil {
		t.Fatal(err)
	}

	if string(eng.files["image0.jpg"]) != "jpeg-bytes" {
		t.Error("image not written to store")
	}
	if string(eng.files["audio0.mp3"]) != "mp3-bytes" {
		t.Error("audio not written to store")
	}
	if len(eng.cmds) != 1 {
		t.Fatalf("got %d commands, want 1", len(eng.cmds))
	}
}

func TestEncodeSegmentRejectsUnresolved(t *testing.T) {
	eng := newFakeEngine()
	enc := NewEncoder(eng, testVideo)

	seg := types.Segment{Index: 2, Text: "text", Audio: []byte("a"), DurationSeconds: 0}
	err := enc.EncodeSegment(context.Background(), seg)

	var clipErr *ClipError
	if !errors.As(err, &clipErr) || clipErr.Index != 2 {
		t.Fatalf("err = %v, want ClipError for segment 2", err)
	}
	if len(eng.cmds) != 0 {
		t.Fatal("engine must not run for an invalid segment")
	}
}

func TestEncodeSegmentEngineFailureIsFatal(t *testing.T) {
	eng := newFakeEngine()
	eng.execErr = errors.New("encode blew up")
	enc := NewEncoder(eng, testVideo)

	seg := types.Segment{Index: 1, Text: "text", ImageData: []byte("i"), Audio: []byte("a"), DurationSeconds: 2}
	err := enc.EncodeSegment(context.Background(), seg)

	var clipErr *ClipError
	if !errors.As(err, &clipErr) || clipErr.Index != 1 {
		t.Fatalf("err = %v, want ClipError for segment 1", err)
	}
}

func TestConcatenatorRun(t *testing.T) {
	eng := newFakeEngine()
	data, err := NewConcatenator(eng).Run(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "fake-mp4-payload" {
		t.Fatalf("unexpected artifact %q", data)
	}
	if string(eng.files[engine.ManifestFile]) != "file temp0.mp4\nfile temp1.mp4\n" {
		t.Fatalf("manifest = %q", eng.files[engine.ManifestFile])
	}
}

func TestConcatenatorEngineFailure(t *testing.T) {
	eng := newFakeEngine()
	eng.execErr = errors.New("incompatible streams")
	if _, err := NewConcatenator(eng).Run(context.Background(), 2); err == nil {
		t.Fatal("expected error")
	}

	if _, err := NewConcatenator(newFakeEngine()).Run(context.Background(), 0); err == nil {
		t.Fatal("expected error for zero segments")
	}
}
