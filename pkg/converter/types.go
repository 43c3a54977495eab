// Package converter retargets every valid patch in a library to the other
// Circuit product and hands the results to a save sink.
package converter

import (
	"context"
	"errors"
	"time"
)

// Default throttle: pause for one second after every ten artifacts.
const (
	DefaultBatchSize = 10
	DefaultPause     = 1000 * time.Millisecond
)

// ErrBusy is returned when a conversion pass is already running.
var ErrBusy = errors.New("conversion already in progress")

// Sink persists or delivers one converted artifact
type Sink interface {
	Emit(ctx context.Context, data []byte, fileName, mimeType string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, data []byte, fileName, mimeType string) error

func (f SinkFunc) Emit(ctx context.Context, data []byte, fileName, mimeType string) error {
	return f(ctx, data, fileName, mimeType)
}

// Sleeper suspends the pipeline between batches. It must return early
// with ctx.Err() when ctx ends.
type Sleeper func(ctx context.Context, d time.Duration) error

// Artifact describes one emitted file
type Artifact struct {
	Source   string
	Slot     int
	Name     string
	Product  string
	Filename string
}

// Summary holds the result of a conversion pass
type Summary struct {
	Files     int
	Emitted   int
	Skipped   int
	Pauses    int
	Artifacts []Artifact
}

// Option configures a Converter.
type Option func(*Converter)

// WithThrottle sets how many artifacts are emitted between pauses and how
// long each pause lasts.
func WithThrottle(batchSize int, pause time.Duration) Option {
	return func(c *Converter) {
		if batchSize > 0 {
			c.batchSize = batchSize
		}
		if pause >= 0 {
			c.pause = pause
		}
	}
}

// WithSleeper replaces the timer based pause, mostly for tests.
func WithSleeper(s Sleeper) Option {
	return func(c *Converter) {
		if s != nil {
			c.sleep = s
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
