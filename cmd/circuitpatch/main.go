// Package main is the entry point for circuitpatch CLI
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/james-see/circuitpatch/pkg/api"
	"github.com/james-see/circuitpatch/pkg/config"
	"github.com/james-see/circuitpatch/pkg/converter"
	"github.com/james-see/circuitpatch/pkg/library"
	"github.com/james-see/circuitpatch/pkg/mcpserver"
	"github.com/james-see/circuitpatch/pkg/tui"
	"github.com/spf13/cobra"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configFile string
	logLevel   string
	outputDir  string
	midiPort   string
	listPorts  bool
	jsonOutput bool
	serverPort int
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "circuitpatch",
	Short: "Convert Novation Circuit patches between Circuit and Circuit Tracks",
	Long: `circuitpatch reads Novation Circuit and Circuit Tracks patch files
(.syx single patches and 64 patch packs), shows their names, categories
and genres, and converts every valid patch to the other product.

Examples:
  circuitpatch inspect Bass.syx Pack.syx
  circuitpatch convert Pack.syx -o converted/
  circuitpatch send Bass.syx --port "Circuit Tracks"
  circuitpatch tui
  circuitpatch serve --port 8080
  circuitpatch mcp`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.syx>...",
	Short: "Show the product, type and patches of each file",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInspect,
}

var convertCmd = &cobra.Command{
	Use:   "convert <file.syx>...",
	Short: "Convert every valid patch to the other product",
	Long: `Converts every valid patch to the other product and writes one
<name>.<product>.SinglePatch.syx file per patch into the output directory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

var sendCmd = &cobra.Command{
	Use:   "send <file.syx>...",
	Short: "Convert patches and send them to a MIDI output port",
	Args: func(cmd *cobra.Command, args []string) error {
		if listPorts {
			return nil
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: runSend,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve inspect and convert tools over MCP stdio",
	RunE:  runMCP,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default $"+config.EnvVar+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	// inspect command
	inspectCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON reports")

	// convert command
	convertCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory")

	// send command
	sendCmd.Flags().StringVarP(&midiPort, "port", "p", "", "MIDI output port name (substring)")
	sendCmd.Flags().BoolVar(&listPorts, "list", false, "List MIDI output ports and exit")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port")

	// Add commands
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
}

// loadConfig reads the config file and applies flag overrides
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if midiPort != "" {
		cfg.MIDI.Port = midiPort
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, cfg.Log.NewLogger(os.Stderr), nil
}

// loadLibrary adds every path and classifies them
func loadLibrary(ctx context.Context, logger *slog.Logger, paths []string) (*library.Library, error) {
	lib := library.New(library.WithLogger(logger))
	for _, path := range paths {
		src, err := library.OpenFile(path)
		if err != nil {
			return nil, err
		}
		if _, err := lib.Add(src); err != nil {
			return nil, err
		}
	}
	if err := lib.Process(ctx); err != nil {
		return nil, err
	}
	return lib, nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	_, logger, err := loadConfig()
	if err != nil {
		return err
	}
	lib, err := loadLibrary(cmd.Context(), logger, args)
	if err != nil {
		return err
	}

	reports := lib.Reports()
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%s\n", r.Name, r.Summary())
		if len(r.Patches) <= 1 {
			continue
		}
		for _, p := range r.Patches {
			if p.Error != "" {
				fmt.Fprintf(w, "  %2d\t%s\n", p.Slot, p.Error)
				continue
			}
			fmt.Fprintf(w, "  %2d\t%s\t%s\t%s\t%s\n", p.Slot, p.Name, p.Product, p.Category, p.Genre)
		}
	}
	return w.Flush()
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	lib, err := loadLibrary(cmd.Context(), logger, args)
	if err != nil {
		return err
	}

	sink, err := converter.NewDirSink(cfg.OutputDir)
	if err != nil {
		return err
	}
	conv := converter.New(sink, logger,
		converter.WithThrottle(cfg.Throttle.BatchSize, cfg.Throttle.Pause()))

	sum, err := conv.Run(cmd.Context(), lib)
	for _, path := range sink.Written() {
		fmt.Printf("Wrote %s\n", path)
	}
	if err != nil {
		return err
	}

	printSkipped(lib)
	fmt.Printf("Converted %d patches from %d files (%d skipped)\n", sum.Emitted, sum.Files, sum.Skipped)
	return nil
}

func runSend(cmd *cobra.Command, args []string) error {
	if listPorts {
		fmt.Print(converter.OutPorts())
		return nil
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	lib, err := loadLibrary(cmd.Context(), logger, args)
	if err != nil {
		return err
	}

	sink, closer, err := converter.OpenMIDISink(cfg.MIDI.Port)
	if err != nil {
		return fmt.Errorf("could not open MIDI output: %w", err)
	}
	defer closer()

	conv := converter.New(sink, logger,
		converter.WithThrottle(cfg.Throttle.BatchSize, cfg.Throttle.Pause()))
	sum, err := conv.Run(cmd.Context(), lib)
	if err != nil {
		return err
	}

	printSkipped(lib)
	fmt.Printf("Sent %d patches to %q\n", sum.Emitted, cfg.MIDI.Port)
	return nil
}

// printSkipped lists files that were left out of a conversion
func printSkipped(lib *library.Library) {
	for _, r := range lib.Reports() {
		if r.Converted {
			continue
		}
		reason := r.Error
		if reason == "" {
			reason = "not converted"
		}
		fmt.Printf("Skipped %s: %s\n", r.Name, strings.TrimSpace(reason))
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	// The alternate screen owns the terminal, so the TUI logs nowhere.
	return tui.Run(cfg, nil)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	fmt.Printf("Starting API server on port %d...\n", cfg.Server.Port)
	return api.StartServer(cfg, logger)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	return mcpserver.Serve(cfg, logger, version)
}
