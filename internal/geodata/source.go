package geodata

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// Level selects a boundary resolution.
type Level int

const (
	Low Level = iota
	High
)

func (l Level) String() string {
	switch l {
	case Low:
		return "low"
	case High:
		return "high"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel accepts "low" or "high".
func ParseLevel(s string) (Level, error) {
	switch s {
	case "low", "110m":
		return Low, nil
	case "high", "50m":
		return High, nil
	}
	return Low, fmt.Errorf("unknown detail level %q", s)
}

// Source opens the raw boundary document for a level.
type Source interface {
	Open(ctx context.Context, level Level) (io.ReadCloser, error)
}

// FileSource reads per-level documents from the local filesystem.
type FileSource struct {
	LowPath  string
	HighPath string
}

func (s FileSource) Open(ctx context.Context, level Level) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := pick(level, s.LowPath, s.HighPath)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// FSSource reads per-level documents from any fs.FS, e.g. an embed.FS.
type FSSource struct {
	FS       fs.FS
	LowPath  string
	HighPath string
}

func (s FSSource) Open(ctx context.Context, level Level) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := pick(level, s.LowPath, s.HighPath)
	if err != nil {
		return nil, err
	}
	return s.FS.Open(path)
}

func pick(level Level, low, high string) (string, error) {
	var p string
	switch level {
	case Low:
		p = low
	case High:
		p = high
	}
	if p == "" {
		return "", fmt.Errorf("no %s detail source configured", level)
	}
	return p, nil
}
