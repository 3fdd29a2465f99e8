package engine

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Local runs a system ffmpeg binary against a private temp directory. All
// file operations are confined to that directory and Release removes it.
type Local struct {
	bin string
	dir string
}

// NewLocal returns an unloaded local engine. Load must succeed before any
// other call.
func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Load(_ context.Context) error {
	bin, err := exec.LookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	dir, err := os.MkdirTemp("", "shortreel")
	if err != nil {
		return fmt.Errorf("create working store: %w", err)
	}
	l.bin = bin
	l.dir = dir
	log.Printf("[engine] loaded, working store: %s", dir)
	return nil
}

func (l *Local) WriteFile(name string, data []byte) error {
	if err := l.check(name); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(l.dir, name), data, 0644)
}

func (l *Local) ReadFile(name string) ([]byte, error) {
	if err := l.check(name); err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(l.dir, name))
}

func (l *Local) ListFiles(dir string) ([]string, error) {
	if l.dir == "" {
		return nil, fmt.Errorf("engine not loaded")
	}
	entries, err := os.ReadDir(filepath.Join(l.dir, dir))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

func (l *Local) Execute(ctx context.Context, args []string) error {
	if l.dir == "" {
		return fmt.Errorf("engine not loaded")
	}
	cmd := exec.CommandContext(ctx, l.bin, args...)
	cmd.Dir = l.dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	log.Printf("[engine] ffmpeg %s", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, lastLines(stderr.String(), 5))
	}
	return nil
}

func (l *Local) Release() {
	if l.dir != "" {
		os.RemoveAll(l.dir)
		l.dir = ""
	}
}

func (l *Local) check(name string) error {
	if l.dir == "" {
		return fmt.Errorf("engine not loaded")
	}
	return CheckName(name)
}

// lastLines keeps error messages readable: ffmpeg writes its whole banner to
// stderr, the useful part is at the end.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
