package tui

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/james-see/circuitpatch/pkg/config"
	"github.com/james-see/circuitpatch/pkg/patch"
)

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func writePatch(t *testing.T, dir, name string) string {
	t.Helper()
	data := make([]byte, patch.SinglePatchSize)
	data[0] = patch.SysExStart
	copy(data[1:], []byte{0x00, 0x20, 0x29, patch.ProductFamily, patch.CircuitModel})
	copy(data[9:25], bytes.Repeat([]byte{' '}, 16))
	copy(data[9:], name)
	data[len(data)-1] = patch.SysExEnd

	path := filepath.Join(dir, name+".syx")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newModel(t *testing.T) (Model, string) {
	t.Helper()
	cfg := config.Default()
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.Throttle.PauseMillis = 0
	m, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	return m, cfg.OutputDir
}

func TestConvertFlow(t *testing.T) {
	m, out := newModel(t)
	path := writePatch(t, t.TempDir(), "Bass")

	if err := m.addFile(path); err != nil {
		t.Fatal(err)
	}
	if msg, ok := m.process()().(processedMsg); !ok || msg.err != nil {
		t.Fatalf("process() = %+v", msg)
	}
	if !strings.Contains(m.View(), "Bass") {
		t.Error("list view should show the added file")
	}

	updated, cmd := m.Update(key('c'))
	m = updated.(Model)
	if m.state != StateConverting || cmd == nil {
		t.Fatalf("state = %v after c, want converting", m.state)
	}

	done := m.performConversion()()
	updated, _ = m.Update(done)
	m = updated.(Model)
	if m.state != StateList || m.err != nil {
		t.Fatalf("state = %v err = %v after conversion", m.state, m.err)
	}
	if !strings.Contains(m.status, "Converted 1 patches") {
		t.Errorf("status = %q", m.status)
	}
	if _, err := os.Stat(filepath.Join(out, "Bass.CircuitTracks.SinglePatch.syx")); err != nil {
		t.Errorf("converted file missing: %v", err)
	}
}

func TestRemoveAndClear(t *testing.T) {
	m, _ := newModel(t)
	dir := t.TempDir()
	for _, name := range []string{"A", "B", "C"} {
		if err := m.addFile(writePatch(t, dir, name)); err != nil {
			t.Fatal(err)
		}
	}

	updated, _ := m.Update(key('j'))
	m = updated.(Model)
	updated, _ = m.Update(key('d'))
	m = updated.(Model)
	if m.lib.Len() != 2 || m.lib.Entries()[1].Source().Name() != "C.syx" {
		t.Errorf("after removing the second file: %d entries", m.lib.Len())
	}

	updated, _ = m.Update(key('x'))
	m = updated.(Model)
	if m.lib.Len() != 0 || m.cursor != 0 {
		t.Errorf("after clear: %d entries, cursor %d", m.lib.Len(), m.cursor)
	}
}

func TestAddFileMissing(t *testing.T) {
	m, _ := newModel(t)
	if err := m.addFile(filepath.Join(t.TempDir(), "missing.syx")); err == nil {
		t.Error("addFile() should fail for a missing file")
	}
}
