// Package library owns the ordered list of files a user is working on and
// classifies them.
//
// The list is the only shared mutable state in the program. Every change
// goes through a *Library method: Add, Remove, Clear, and the metadata and
// converted flag updates performed by Process and MarkConverted.
package library

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/james-see/circuitpatch/pkg/patch"
	"golang.org/x/sync/errgroup"
)

// Metadata is the outcome of processing one file. Exactly one of File and
// Err is set.
type Metadata struct {
	File *patch.File
	// Err wraps patch.ErrUnsupportedFileType or patch.ErrIO.
	Err error
}

// Entry pairs a source with its metadata once processing has finished.
type Entry struct {
	source Source

	claimed   bool
	meta      *Metadata
	converted bool
}

// Source returns the file this entry was created for.
func (e *Entry) Source() Source { return e.source }

// Library is the owning context for the file list.
type Library struct {
	mu      sync.Mutex
	entries []*Entry
	logger  *slog.Logger
	limit   int
}

// Option configures a Library.
type Option func(*Library)

// WithLogger sets the logger used for processing reports and warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithConcurrency bounds how many files are read at once. Zero or less
// means no limit.
func WithConcurrency(n int) Option {
	return func(l *Library) { l.limit = n }
}

// New creates an empty library.
func New(opts ...Option) *Library {
	l := &Library{logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Add appends sources to the end of the list in the given order.
func (l *Library) Add(sources ...Source) ([]*Entry, error) {
	for i, src := range sources {
		if src == nil {
			return nil, fmt.Errorf("source %d is nil", i)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	added := make([]*Entry, 0, len(sources))
	for _, src := range sources {
		e := &Entry{source: src}
		l.entries = append(l.entries, e)
		added = append(added, e)
	}
	return added, nil
}

// Remove deletes count entries starting at index start.
func (l *Library) Remove(start, count int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if start < 0 || count < 0 || start+count > len(l.entries) {
		return fmt.Errorf("invalid range start=%d count=%d for %d files", start, count, len(l.entries))
	}
	l.entries = append(l.entries[:start], l.entries[start+count:]...)
	return nil
}

// Clear removes every entry.
func (l *Library) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// Len returns the number of entries
func (l *Library) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Entries returns a snapshot of the list in insertion order.
func (l *Library) Entries() []*Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Metadata returns the entry's metadata and whether processing finished.
func (l *Library) Metadata(e *Entry) (*Metadata, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return e.meta, e.meta != nil
}

// Converted reports whether a conversion pass already handled e.
func (l *Library) Converted(e *Entry) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return e.converted
}

// MarkConverted makes e permanently ineligible for conversion.
func (l *Library) MarkConverted(e *Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.converted = true
}

// claim marks every unclaimed entry as requested and returns them. An
// entry is handed out once, however many times Process runs concurrently.
func (l *Library) claim() []*Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var pending []*Entry
	for _, e := range l.entries {
		if e.claimed {
			continue
		}
		e.claimed = true
		pending = append(pending, e)
	}
	return pending
}

func (l *Library) attach(e *Entry, meta *Metadata) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.meta = meta
}

// Process classifies every entry that has not been requested yet. Files
// are read in parallel and each result is attached as soon as it is
// ready, so completion order is not insertion order. Per file failures
// are recorded in the entry's Metadata; the returned error is only set
// when ctx ends before every file was attached.
func (l *Library) Process(ctx context.Context) error {
	pending := l.claim()
	if len(pending) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	if l.limit > 0 {
		g.SetLimit(l.limit)
	}

	for _, e := range pending {
		g.Go(func() error {
			meta := l.load(ctx, e.source)
			l.attach(e, meta)
			l.report(e.source, meta)
			return ctx.Err()
		})
	}
	return g.Wait()
}

// load checks the declared size before reading, so unsupported files are
// never read.
func (l *Library) load(ctx context.Context, src Source) *Metadata {
	if _, err := patch.FileTypeForSize(src.Size()); err != nil {
		return &Metadata{Err: err}
	}

	data, err := src.ReadAll(ctx)
	if err != nil {
		return &Metadata{Err: fmt.Errorf("%w: %w", patch.ErrIO, err)}
	}

	f, err := patch.Classify(data)
	if err != nil {
		return &Metadata{Err: err}
	}
	return &Metadata{File: f}
}

func (l *Library) report(src Source, meta *Metadata) {
	if meta.Err != nil {
		l.logger.Warn("file not processed", "file", src.Name(), "error", meta.Err)
		return
	}

	f := meta.File
	for _, r := range f.Records {
		p, ok := r.(*patch.Patch)
		if !ok {
			continue
		}
		if !p.HasCategory() {
			l.logger.Warn("category is not found", "file", src.Name(), "offset", p.Offset(), "index", p.CategoryIndex)
		}
		if !p.HasGenre() {
			l.logger.Warn("genre is not found", "file", src.Name(), "offset", p.Offset(), "index", p.GenreIndex)
		}
	}

	l.logger.Info("file processed",
		"file", src.Name(),
		"type", f.Type.String(),
		"product", f.Product.DisplayName(),
		"patches", len(f.Patches()),
		"records", len(f.Records),
	)
}
