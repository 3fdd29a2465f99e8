package encode

import (
	"context"
	"fmt"
	"log"
	"strings"

	"shortreel/engine"
)

// Concatenator joins the per-segment clips into one output file by stream
// copy. This is only valid because every clip was encoded with identical
// codec, pixel format and container flags; if they diverge the engine fails
// here and the run is aborted; there is no re-encode fallback.
type Concatenator struct {
	eng engine.Engine
}

func NewConcatenator(eng engine.Engine) *Concatenator {
	return &Concatenator{eng: eng}
}

// Run writes the manifest, concatenates temp0..temp{n-1} and reads back the
// final artifact. Validating that the artifact is non-empty is the
// controller's job.
func (c *Concatenator) Run(ctx context.Context, segmentCount int) ([]byte, error) {
	if segmentCount <= 0 {
		return nil, fmt.Errorf("nothing to concatenate")
	}

	if err := c.eng.WriteFile(engine.ManifestFile, Manifest(segmentCount)); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	log.Printf("[encode] concatenating %d clips...", segmentCount)
	if err := c.eng.Execute(ctx, ConcatArgs()); err != nil {
		return nil, err
	}

	data, err := c.eng.ReadFile(engine.OutputFile)
	if err != nil {
		return nil, fmt.Errorf("read output artifact: %w", err)
	}
	return data, nil
}

// Manifest lists the clips one per line in segment order, no reordering, no
// deduplication.
func Manifest(segmentCount int) []byte {
	var sb strings.Builder
	for i := 0; i < segmentCount; i++ {
		fmt.Fprintf(&sb, "file %s\n", engine.ClipFile(i))
	}
	return []byte(sb.String())
}

// ConcatArgs builds the stream-copy concatenation command.
func ConcatArgs() []string {
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", engine.ManifestFile,
		"-c", "copy",
		engine.OutputFile,
	}
}
