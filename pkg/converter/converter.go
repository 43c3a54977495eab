package converter

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/james-see/circuitpatch/pkg/library"
	"github.com/james-see/circuitpatch/pkg/patch"
)

// Converter runs conversion passes over a library
type Converter struct {
	sink      Sink
	logger    *slog.Logger
	batchSize int
	pause     time.Duration
	sleep     Sleeper

	busy atomic.Bool
}

// New creates a new Converter emitting to sink
func New(sink Sink, logger *slog.Logger, opts ...Option) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Converter{
		sink:      sink,
		logger:    logger,
		batchSize: DefaultBatchSize,
		pause:     DefaultPause,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Busy reports whether a pass is running.
func (c *Converter) Busy() bool {
	return c.busy.Load()
}

// Run converts every eligible patch of lib in list and slot order. Files
// that failed processing, have not been processed yet, or were already
// converted are skipped, as are invalid slots. Each handled file is marked
// converted. At most one Run executes at a time; others get ErrBusy.
func (c *Converter) Run(ctx context.Context, lib *library.Library) (*Summary, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer c.busy.Store(false)

	sum := &Summary{}
	sinceLastPause := 0

	for _, entry := range lib.Entries() {
		meta, ok := lib.Metadata(entry)
		if !ok || meta.Err != nil || lib.Converted(entry) {
			continue
		}
		if err := meta.File.Err(); err != nil {
			c.logger.Debug("skipping file", "file", entry.Source().Name(), "error", err)
			continue
		}

		for _, rec := range meta.File.Records {
			p, ok := rec.(*patch.Patch)
			if !ok {
				sum.Skipped++
				continue
			}

			conv, err := patch.Convert(p)
			if err != nil {
				sum.Skipped++
				continue
			}

			if err := c.sink.Emit(ctx, conv.Data, conv.Filename, patch.MIMEType); err != nil {
				return sum, fmt.Errorf("failed to emit %s: %w", conv.Filename, err)
			}
			sum.Emitted++
			sum.Artifacts = append(sum.Artifacts, Artifact{
				Source:   entry.Source().Name(),
				Slot:     p.Offset()/patch.SinglePatchSize + 1,
				Name:     p.Name,
				Product:  conv.Product.DisplayName(),
				Filename: conv.Filename,
			})
			c.logger.Debug("patch converted", "file", entry.Source().Name(), "patch", p.Name, "output", conv.Filename)

			sinceLastPause++
			if sinceLastPause == c.batchSize {
				sinceLastPause = 0
				sum.Pauses++
				if err := c.sleep(ctx, c.pause); err != nil {
					return sum, err
				}
			}
		}

		lib.MarkConverted(entry)
		sum.Files++
	}

	c.logger.Info("conversion finished", "files", sum.Files, "emitted", sum.Emitted, "skipped", sum.Skipped)
	return sum, nil
}
