package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/lab-interpreter/constants"
	"github.com/joseph-ayodele/lab-interpreter/internal/extract"
)

// DefaultMaxBytes caps a single document read from disk.
const DefaultMaxBytes int64 = 32 << 20

var (
	ErrUnsupportedExt = errors.New("unsupported or missing extension")
	ErrTooLarge       = errors.New("document too large")
)

// FileResult is the per-file outcome of a directory walk.
type FileResult struct {
	Path         string
	HashHex      string
	Deduplicated bool
	Err          string
}

// DirStats summarizes a directory walk.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Handler receives each matched document. An error marks the file failed but
// does not stop the walk.
type Handler func(ctx context.Context, path string, doc extract.Document) error

// Ingestor reads lab documents from the local filesystem.
type Ingestor struct {
	AllowedExts map[string]struct{} // lowercased sans '.'; nil -> constants.AllowedExtensions
	MaxBytes    int64
	logger      *slog.Logger
}

func NewIngestor(logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{MaxBytes: DefaultMaxBytes, logger: logger}
}

// Allowed reports whether path has an extension the ingestor accepts.
func (i *Ingestor) Allowed(path string) bool {
	exts := i.AllowedExts
	if exts == nil {
		exts = constants.AllowedExtensions
	}
	_, ok := exts[constants.NormalizeExt(filepath.Ext(path))]
	return ok
}

// ReadPath loads one document. The document name is the file's base name.
func (i *Ingestor) ReadPath(path string) (extract.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return extract.Document{}, err
	}
	if !i.Allowed(abs) {
		i.logger.Warn("ingest.unsupported", "path", abs)
		return extract.Document{}, fmt.Errorf("%s: %w", filepath.Base(abs), ErrUnsupportedExt)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return extract.Document{}, err
	}
	if info.IsDir() {
		return extract.Document{}, fmt.Errorf("%s is a directory", abs)
	}
	if i.MaxBytes > 0 && info.Size() > i.MaxBytes {
		return extract.Document{}, fmt.Errorf("%s: %d bytes: %w", filepath.Base(abs), info.Size(), ErrTooLarge)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		i.logger.Error("ingest.read.failed", "path", abs, "error", err)
		return extract.Document{}, err
	}
	return extract.Document{Name: filepath.Base(abs), Data: data}, nil
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
