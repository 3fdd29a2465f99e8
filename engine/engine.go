// Package engine abstracts the external media-encoding engine and its
// private per-run scratch store. The pipeline only ever issues file names
// and command argv through this interface; it never touches real OS paths.
package engine

import (
	"context"
	"fmt"
	"strings"
)

// Engine is one encoding engine instance bound to one run's working store.
// An instance is created at run start, used by exactly one run, and released
// at run end or failure. It is never reused across runs.
type Engine interface {
	// Load prepares the engine and its working store for use.
	Load(ctx context.Context) error
	// WriteFile stores data under name inside the working store.
	WriteFile(name string, data []byte) error
	// ReadFile returns the full contents of a stored file.
	ReadFile(name string) ([]byte, error)
	// ListFiles returns the file names under dir ("" for the store root).
	ListFiles(dir string) ([]string, error)
	// Execute runs one encode command against the working store.
	Execute(ctx context.Context, args []string) error
	// Release discards the working store. Safe to call more than once.
	Release()
}

// Factory produces a fresh engine instance for a new run.
type Factory func() Engine

// Working-store file names are derived solely from the segment index, so a
// re-run with the same segment count overwrites prior artifacts in place.
const (
	ManifestFile = "videolist.txt"
	OutputFile   = "output.mp4"
)

func ImageFile(i int) string { return fmt.Sprintf("image%d.jpg", i) }
func AudioFile(i int) string { return fmt.Sprintf("audio%d.mp3", i) }
func ClipFile(i int) string  { return fmt.Sprintf("temp%d.mp4", i) }

// CheckName rejects names that would escape the working store.
func CheckName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("invalid working file name %q", name)
	}
	return nil
}
