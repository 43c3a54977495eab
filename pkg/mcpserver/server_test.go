package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/james-see/circuitpatch/pkg/config"
	"github.com/james-see/circuitpatch/pkg/patch"
	"github.com/mark3labs/mcp-go/mcp"
)

func newHandlers(t *testing.T) *Handlers {
	t.Helper()
	cfg := config.Default()
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.Throttle.PauseMillis = 0
	return NewHandlers(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writePatch(t *testing.T, name string) string {
	t.Helper()
	data := make([]byte, patch.SinglePatchSize)
	data[0] = patch.SysExStart
	copy(data[1:], []byte{0x00, 0x20, 0x29, patch.ProductFamily, patch.CircuitTracksModel})
	copy(data[9:25], bytes.Repeat([]byte{' '}, 16))
	copy(data[9:], name)
	data[25] = 7
	data[len(data)-1] = patch.SysExEnd

	path := filepath.Join(t.TempDir(), name+".syx")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultJSON(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestInspect(t *testing.T) {
	h := newHandlers(t)
	res, err := h.Inspect(context.Background(), call(map[string]any{"path": writePatch(t, "Lead")}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("Inspect() returned a tool error: %s", resultJSON(t, res))
	}
	out := resultJSON(t, res)
	for _, want := range []string{"Circuit Tracks", "Lead", "Single Patch"} {
		if !strings.Contains(out, want) {
			t.Errorf("result %s does not mention %q", out, want)
		}
	}
}

func TestInspectMissingPath(t *testing.T) {
	h := newHandlers(t)
	res, err := h.Inspect(context.Background(), call(map[string]any{}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("Inspect() without path should return a tool error")
	}
}

func TestConvert(t *testing.T) {
	h := newHandlers(t)
	out := filepath.Join(t.TempDir(), "converted")

	res, err := h.Convert(context.Background(), call(map[string]any{
		"path":       writePatch(t, "Lead"),
		"output_dir": out,
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("Convert() returned a tool error: %s", resultJSON(t, res))
	}
	if _, err := os.Stat(filepath.Join(out, "Lead.Circuit.SinglePatch.syx")); err != nil {
		t.Errorf("converted file missing: %v", err)
	}
}

func TestConvertUnsupported(t *testing.T) {
	h := newHandlers(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := h.Convert(context.Background(), call(map[string]any{"path": path}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("Convert() of an unsupported file should return a tool error")
	}
}
