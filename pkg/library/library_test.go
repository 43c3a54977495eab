package library

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/james-see/circuitpatch/pkg/patch"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func singlePatch(model byte, name string) []byte {
	data := make([]byte, patch.SinglePatchSize)
	data[0] = patch.SysExStart
	copy(data[1:], []byte{0x00, 0x20, 0x29, patch.ProductFamily, model})
	copy(data[9:25], bytes.Repeat([]byte{' '}, 16))
	copy(data[9:], name)
	data[25] = 2
	data[26] = 8
	data[len(data)-1] = patch.SysExEnd
	return data
}

// countingSource counts reads and can be made to fail.
type countingSource struct {
	name  string
	data  []byte
	size  int64
	err   error
	reads atomic.Int32
}

func (c *countingSource) Name() string { return c.name }

func (c *countingSource) Size() int64 {
	if c.size != 0 {
		return c.size
	}
	return int64(len(c.data))
}

func (c *countingSource) ReadAll(ctx context.Context) ([]byte, error) {
	c.reads.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.data, nil
}

func TestAddRemoveClear(t *testing.T) {
	lib := New(WithLogger(discardLogger()))

	added, err := lib.Add(
		NewBytesSource("a.syx", nil),
		NewBytesSource("b.syx", nil),
		NewBytesSource("c.syx", nil),
		NewBytesSource("d.syx", nil),
	)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if len(added) != 4 || lib.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", lib.Len())
	}

	if err := lib.Remove(1, 2); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	entries := lib.Entries()
	if len(entries) != 2 || entries[0].Source().Name() != "a.syx" || entries[1].Source().Name() != "d.syx" {
		t.Errorf("after Remove(1, 2) got %d entries", len(entries))
	}

	for _, r := range [][2]int{{-1, 1}, {0, -1}, {1, 2}, {3, 0}} {
		if err := lib.Remove(r[0], r[1]); err == nil {
			t.Errorf("Remove(%d, %d) should fail", r[0], r[1])
		}
	}

	lib.Clear()
	if lib.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", lib.Len())
	}
}

func TestAddNil(t *testing.T) {
	lib := New()
	if _, err := lib.Add(NewBytesSource("a.syx", nil), nil); err == nil {
		t.Error("Add(nil) should fail")
	}
	if lib.Len() != 0 {
		t.Error("a failed Add must not add anything")
	}
}

func TestProcess(t *testing.T) {
	lib := New(WithLogger(discardLogger()))

	var pack []byte
	for i := 0; i < patch.PatchesPerPack; i++ {
		pack = append(pack, singlePatch(patch.CircuitTracksModel, "Pad")...)
	}
	broken := singlePatch(patch.CircuitModel, "Broken")
	broken[1] = 0x41

	readErr := errors.New("permission denied")
	entries, _ := lib.Add(
		NewBytesSource("bass.syx", singlePatch(patch.CircuitModel, "Bass")),
		NewBytesSource("pack.syx", pack),
		NewBytesSource("notes.txt", []byte("hello")),
		&countingSource{name: "locked.syx", size: patch.SinglePatchSize, err: readErr},
		NewBytesSource("broken.syx", broken),
	)

	if err := lib.Process(context.Background()); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	meta, ok := lib.Metadata(entries[0])
	if !ok || meta.Err != nil {
		t.Fatalf("bass.syx metadata = %+v, %v", meta, ok)
	}
	if meta.File.Type != patch.SinglePatch || meta.File.Product != patch.Circuit {
		t.Errorf("bass.syx = %v %v", meta.File.Type, meta.File.Product)
	}

	meta, _ = lib.Metadata(entries[1])
	if meta.File == nil || meta.File.Type != patch.PatchPack || len(meta.File.Records) != patch.PatchesPerPack {
		t.Errorf("pack.syx metadata = %+v", meta)
	}

	meta, _ = lib.Metadata(entries[2])
	if !errors.Is(meta.Err, patch.ErrUnsupportedFileType) {
		t.Errorf("notes.txt error = %v, want %v", meta.Err, patch.ErrUnsupportedFileType)
	}

	meta, _ = lib.Metadata(entries[3])
	if !errors.Is(meta.Err, patch.ErrIO) || !errors.Is(meta.Err, readErr) {
		t.Errorf("locked.syx error = %v, want %v wrapping %v", meta.Err, patch.ErrIO, readErr)
	}

	meta, _ = lib.Metadata(entries[4])
	if meta.File == nil || !errors.Is(meta.File.Err(), patch.ErrNotNovation) {
		t.Errorf("broken.syx metadata = %+v", meta)
	}
}

func TestProcessSkipsReadForUnsupportedSize(t *testing.T) {
	lib := New(WithLogger(discardLogger()))
	src := &countingSource{name: "big.bin", data: make([]byte, 1000)}
	_, _ = lib.Add(src)

	if err := lib.Process(context.Background()); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if n := src.reads.Load(); n != 0 {
		t.Errorf("ReadAll called %d times, want 0", n)
	}
}

func TestProcessRunsOncePerEntry(t *testing.T) {
	lib := New(WithLogger(discardLogger()), WithConcurrency(2))
	var sources []*countingSource
	for i := 0; i < 8; i++ {
		src := &countingSource{name: "p.syx", data: singlePatch(patch.CircuitModel, "P")}
		sources = append(sources, src)
		_, _ = lib.Add(src)
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = lib.Process(context.Background())
		}()
	}
	wg.Wait()

	for i, src := range sources {
		if n := src.reads.Load(); n != 1 {
			t.Errorf("source %d read %d times, want 1", i, n)
		}
	}

	// Entries added later are picked up by the next pass only.
	late := &countingSource{name: "late.syx", data: singlePatch(patch.CircuitModel, "L")}
	entries, _ := lib.Add(late)
	if err := lib.Process(context.Background()); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if _, ok := lib.Metadata(entries[0]); !ok || late.reads.Load() != 1 {
		t.Error("late entry should be processed exactly once")
	}
	if sources[0].reads.Load() != 1 {
		t.Error("earlier entries must not be processed again")
	}
}

func TestProcessCanceled(t *testing.T) {
	lib := New(WithLogger(discardLogger()))
	entries, _ := lib.Add(NewBytesSource("a.syx", singlePatch(patch.CircuitModel, "A")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := lib.Process(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Process() error = %v, want %v", err, context.Canceled)
	}
	meta, ok := lib.Metadata(entries[0])
	if !ok || !errors.Is(meta.Err, patch.ErrIO) {
		t.Errorf("metadata = %+v, want an IO error", meta)
	}
}

func TestMarkConverted(t *testing.T) {
	lib := New()
	entries, _ := lib.Add(NewBytesSource("a.syx", nil))
	if lib.Converted(entries[0]) {
		t.Error("new entry should not be converted")
	}
	lib.MarkConverted(entries[0])
	if !lib.Converted(entries[0]) {
		t.Error("MarkConverted() had no effect")
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bass.syx")
	data := singlePatch(patch.CircuitModel, "Bass")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	src, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	if src.Name() != "bass.syx" || src.Size() != patch.SinglePatchSize {
		t.Errorf("source = %q %d", src.Name(), src.Size())
	}
	got, err := src.ReadAll(context.Background())
	if err != nil || !bytes.Equal(got, data) {
		t.Errorf("ReadAll() = %d bytes, %v", len(got), err)
	}

	if _, err := OpenFile(dir); err == nil {
		t.Error("OpenFile(dir) should fail")
	}
	if _, err := OpenFile(filepath.Join(dir, "missing.syx")); err == nil {
		t.Error("OpenFile(missing) should fail")
	}
}

func TestReport(t *testing.T) {
	lib := New(WithLogger(discardLogger()))
	entries, _ := lib.Add(
		NewBytesSource("bass.syx", singlePatch(patch.CircuitModel, "Bass")),
		NewBytesSource("notes.txt", []byte("hi")),
	)

	pending := lib.Report(entries[0])
	if pending.Processed || pending.Summary() != "processing" {
		t.Errorf("unprocessed report = %+v", pending)
	}

	_ = lib.Process(context.Background())

	r := lib.Report(entries[0])
	if r.FileType != "Single Patch" || r.Product != "Circuit" || len(r.Patches) != 1 {
		t.Fatalf("report = %+v", r)
	}
	p := r.Patches[0]
	if p.Name != "Bass" || p.Category != "Bass" || p.Genre != "Techno" || p.Slot != 1 {
		t.Errorf("patch report = %+v", p)
	}
	if r.Summary() != `Single Patch · Circuit · "Bass"` {
		t.Errorf("Summary() = %q", r.Summary())
	}

	bad := lib.Report(entries[1])
	if bad.Error == "" || bad.Patches != nil {
		t.Errorf("unsupported report = %+v", bad)
	}

	if n := len(lib.Reports()); n != 2 {
		t.Errorf("Reports() = %d, want 2", n)
	}
}
