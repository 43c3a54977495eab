package converter

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/james-see/circuitpatch/pkg/patch"
)

// DirSink writes artifacts into a directory. Existing files are never
// overwritten; a clashing name gets a " (n)" suffix.
type DirSink struct {
	dir string

	mu      sync.Mutex
	written []string
}

// NewDirSink creates dir if needed
func NewDirSink(dir string) (*DirSink, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &DirSink{dir: dir}, nil
}

// Emit writes data under a free variant of fileName.
func (s *DirSink) Emit(ctx context.Context, data []byte, fileName, mimeType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for n := 0; ; n++ {
		path := filepath.Join(s.dir, numbered(fileName, n))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}

		s.mu.Lock()
		s.written = append(s.written, path)
		s.mu.Unlock()
		return nil
	}
}

// Written returns the paths written so far
func (s *DirSink) Written() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.written))
	copy(out, s.written)
	return out
}

// ZipSink streams artifacts into a zip archive.
type ZipSink struct {
	zw    *zip.Writer
	names map[string]bool
	count int
}

// NewZipSink writes an archive to w. Close must be called to finish it.
func NewZipSink(w io.Writer) *ZipSink {
	return &ZipSink{zw: zip.NewWriter(w), names: make(map[string]bool)}
}

func (s *ZipSink) Emit(ctx context.Context, data []byte, fileName, mimeType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := fileName
	for n := 1; s.names[name]; n++ {
		name = numbered(fileName, n)
	}
	s.names[name] = true

	w, err := s.zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", name, err)
	}
	s.count++
	return nil
}

// Count returns the number of archived artifacts.
func (s *ZipSink) Count() int { return s.count }

// Close finishes the archive.
func (s *ZipSink) Close() error {
	return s.zw.Close()
}

// numbered inserts " (n)" before the .SinglePatch.syx suffix, or before
// the extension for other names.
func numbered(name string, n int) string {
	if n == 0 {
		return name
	}
	suffix := filepath.Ext(name)
	if strings.HasSuffix(name, patch.OutputSuffix) {
		suffix = patch.OutputSuffix
	}
	return fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, suffix), n, suffix)
}
