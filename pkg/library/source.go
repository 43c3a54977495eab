package library

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Source is a user supplied file. Size is the declared length, used to
// classify before any read happens.
type Source interface {
	Name() string
	Size() int64
	ReadAll(ctx context.Context) ([]byte, error)
}

// FileSource reads a file from disk
type FileSource struct {
	path string
	size int64
}

// OpenFile stats path and returns a source for it.
func OpenFile(path string) (*FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat input file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &FileSource{path: path, size: info.Size()}, nil
}

func (f *FileSource) Name() string { return filepath.Base(f.path) }
func (f *FileSource) Path() string { return f.path }
func (f *FileSource) Size() int64  { return f.size }

func (f *FileSource) ReadAll(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(f.path)
}

// BytesSource serves an in-memory buffer
type BytesSource struct {
	name string
	data []byte
}

// NewBytesSource wraps data under the given name.
func NewBytesSource(name string, data []byte) *BytesSource {
	return &BytesSource{name: name, data: data}
}

func (b *BytesSource) Name() string { return b.name }
func (b *BytesSource) Size() int64  { return int64(len(b.data)) }

func (b *BytesSource) ReadAll(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.ReadAll(bytes.NewReader(b.data))
}
