// Package mcpserver exposes patch inspection and conversion as MCP tools
// over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/james-see/circuitpatch/pkg/config"
	"github.com/james-see/circuitpatch/pkg/converter"
	"github.com/james-see/circuitpatch/pkg/library"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Handlers holds the tool implementations
type Handlers struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewHandlers creates tool handlers using cfg for throttling and the
// default output directory.
func NewHandlers(cfg *config.Config, logger *slog.Logger) *Handlers {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{cfg: cfg, logger: logger}
}

// NewServer registers every tool on a new MCP server.
func NewServer(h *Handlers, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"Circuit Patch Converter",
		version,
		server.WithToolCapabilities(false),
	)

	inspectTool := mcp.NewTool("circuit_inspect-file",
		mcp.WithDescription("Reads a Novation Circuit or Circuit Tracks .syx file and returns its product, file type and patch list."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the .syx file.")),
	)
	s.AddTool(inspectTool, h.Inspect)

	convertTool := mcp.NewTool("circuit_convert-file",
		mcp.WithDescription("Converts every valid patch in a .syx file to the other Circuit product and writes one single patch file per patch."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the .syx file.")),
		mcp.WithString("output_dir", mcp.Description("Directory receiving the converted files. Defaults to the configured output directory.")),
	)
	s.AddTool(convertTool, h.Convert)

	return s
}

// Serve runs the MCP server on stdio until the client disconnects.
func Serve(cfg *config.Config, logger *slog.Logger, version string) error {
	h := NewHandlers(cfg, logger)
	h.logger.Info("starting MCP server")
	return server.ServeStdio(NewServer(h, version))
}

// Inspect handles circuit_inspect-file.
func (h *Handlers) Inspect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	lib, entry, err := h.load(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	asJSON, err := json.MarshalIndent(lib.Report(entry), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report to JSON: %w", err)
	}
	return mcp.NewToolResultText(string(asJSON)), nil
}

// Convert handles circuit_convert-file.
func (h *Handlers) Convert(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	outputDir := request.GetString("output_dir", h.cfg.OutputDir)

	lib, entry, err := h.load(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if meta, _ := lib.Metadata(entry); meta.Err != nil {
		return mcp.NewToolResultError(meta.Err.Error()), nil
	}

	sink, err := converter.NewDirSink(outputDir)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	conv := converter.New(sink, h.logger,
		converter.WithThrottle(h.cfg.Throttle.BatchSize, h.cfg.Throttle.Pause()))

	sum, err := conv.Run(ctx, lib)
	if err != nil {
		return nil, fmt.Errorf("conversion failed: %w", err)
	}

	asJSON, err := json.MarshalIndent(map[string]any{
		"emitted": sum.Emitted,
		"skipped": sum.Skipped,
		"written": sink.Written(),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result to JSON: %w", err)
	}
	return mcp.NewToolResultText(string(asJSON)), nil
}

func (h *Handlers) load(ctx context.Context, path string) (*library.Library, *library.Entry, error) {
	src, err := library.OpenFile(path)
	if err != nil {
		return nil, nil, err
	}
	lib := library.New(library.WithLogger(h.logger))
	entries, err := lib.Add(src)
	if err != nil {
		return nil, nil, err
	}
	if err := lib.Process(ctx); err != nil {
		return nil, nil, err
	}
	return lib, entries[0], nil
}
