// Tubescribe extracts YouTube video transcripts and generates AI
// summaries.
//
// It exposes an HTTP API with a websocket progress stream, and a CLI
// for one-shot transcriptions. Configuration is loaded from a single
// YAML file discovered automatically (see [config.DefaultSearchPaths]);
// the transcribe and channel subcommands also work with no config file
// at all.
//
// Usage:
//
//	tubescribe serve                     Start the API server
//	tubescribe transcribe <url-or-id>    Transcribe a single video
//	tubescribe channel <channel-id>      List recent channel uploads
//	tubescribe version                   Print version and build information
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"tubescribe/internal/api"
	"tubescribe/internal/buildinfo"
	"tubescribe/internal/config"
	"tubescribe/internal/feed"
	"tubescribe/internal/pipeline"
	"tubescribe/internal/report"
	"tubescribe/internal/store"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for database/sql
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so that
// the full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// transcribeOptions collects the flags consumed by the transcribe
// subcommand.
type transcribeOptions struct {
	noSummary    bool
	noTimestamps bool
	jsonOut      bool
	verbose      bool
	outputDir    string
}

// run is the real entry point for the tubescribe command. All OS-level
// dependencies are injected as parameters:
//
//   - ctx controls the lifetime of the process. Cancelling it triggers
//     graceful shutdown of the server.
//   - stdout and stderr receive all program output. Reports and JSON go
//     to stdout; logs and progress go to stderr for one-shot commands.
//   - args is os.Args[1:] — the command-line arguments after the
//     program name. We parse these manually rather than using the flag
//     package to avoid global state that interferes with parallel tests.
//
// run returns nil on clean shutdown and a non-nil error for any
// failure. The caller (main) is responsible for printing the error and
// exiting.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	// Parse arguments by hand. The flag package relies on package-level
	// globals (flag.CommandLine), which makes it impossible to call
	// run() concurrently from tests. Our argument surface is small
	// enough that manual parsing is clearer than bringing in a CLI
	// framework.
	var configPath string
	var opts transcribeOptions
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-output" && i+1 < len(args):
			opts.outputDir = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-output="):
			opts.outputDir = strings.TrimPrefix(args[i], "-output=")
		case args[i] == "-no-summary":
			opts.noSummary = true
		case args[i] == "-no-timestamps":
			opts.noTimestamps = true
		case args[i] == "-json":
			opts.jsonOut = true
		case args[i] == "-verbose":
			opts.verbose = true
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				// Collect remaining args as subcommand arguments.
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, stderr, configPath)
	case "transcribe":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: tubescribe transcribe [flags] <url-or-id>")
		}
		return runTranscribe(ctx, stdout, stderr, configPath, opts, cmdArgs[0])
	case "channel":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: tubescribe channel <channel-id>")
		}
		return runChannel(ctx, stdout, opts.jsonOut, cmdArgs[0])
	case "version":
		return runVersion(stdout, opts.jsonOut)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runServe boots the full service: store, pipeline, and the HTTP API
// server, with signal-driven graceful shutdown.
func runServe(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string) error {
	cfg, cfgPath, err := loadConfigOrDefault(configPath)
	if err != nil {
		return err
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel) // validated at load
	logger := newLogger(stdout, level, "text")
	if cfgPath != "" {
		logger.Info("config loaded", "path", cfgPath)
	} else {
		logger.Info("no config file found, using defaults")
	}
	logger.Info(buildinfo.String())

	fillEnvKeys(cfg)

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if st != nil {
		defer st.Close()
		logger.Info("store opened", "driver", cfg.Store.Driver)
	} else {
		logger.Info("persistence disabled")
	}

	pipe, err := pipeline.New(cfg, st, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, pipe, st, feed.NewClient(""), logger)

	// NotifyContext wraps the parent context so that SIGINT/SIGTERM
	// cancellation flows through the same ctx used by all components.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		_ = server.Shutdown(context.Background())
	}()

	// Start the API server. This blocks until the server is shut down
	// (via context cancellation or fatal error).
	if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		if ctx.Err() == nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("tubescribe stopped")
	return nil
}

// runTranscribe handles one-shot transcription. Reports and JSON go to
// stdout; everything else (logs, progress) goes to stderr so the
// output stays pipeable.
func runTranscribe(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string, opts transcribeOptions, input string) error {
	cfg, _, err := loadConfigOrDefault(configPath)
	if err != nil {
		return err
	}
	fillEnvKeys(cfg)

	// Warnings only. Pipeline progress has its own channel below.
	logger := newLogger(stderr, slog.LevelWarn, "text")

	pipe, err := pipeline.New(cfg, nil, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	req := pipeline.Request{
		Input:       input,
		WantSummary: !opts.noSummary,
	}
	if opts.verbose {
		req.Progress = func(ev pipeline.Event) {
			if ev.Detail != "" {
				fmt.Fprintf(stderr, "%6dms %-9s %-6s %s\n", ev.ElapsedMs, ev.Stage, ev.Status, ev.Detail)
			} else {
				fmt.Fprintf(stderr, "%6dms %-9s %s\n", ev.ElapsedMs, ev.Stage, ev.Status)
			}
		}
	}

	res, err := pipe.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}

	if opts.jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	md := report.Build(res, report.Options{Timestamps: !opts.noTimestamps})

	if opts.outputDir != "" {
		return writeOutputFiles(stdout, opts.outputDir, md, res)
	}

	fmt.Fprintln(stdout, md)
	return nil
}

// writeOutputFiles saves the report, the bare transcript, and the full
// result under dir, keyed by video id.
func writeOutputFiles(stdout io.Writer, dir, md string, res *pipeline.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	base := filepath.Join(dir, res.VideoID)

	if err := os.WriteFile(base+".md", []byte(md), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(stdout, "report:     %s.md\n", base)

	if err := os.WriteFile(base+".txt", []byte(res.PlainText+"\n"), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	fmt.Fprintf(stdout, "transcript: %s.txt\n", base)

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.WriteFile(base+".json", append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	fmt.Fprintf(stdout, "data:       %s.json\n", base)
	return nil
}

// runChannel lists a channel's recent uploads from its public feed.
func runChannel(ctx context.Context, stdout io.Writer, jsonOut bool, channelID string) error {
	entries, err := feed.NewClient("").RecentVideos(ctx, channelID)
	if err != nil {
		return fmt.Errorf("channel: %w", err)
	}

	if jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(stdout, "no recent uploads")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(stdout, "%s  %s  %s\n", e.ID, e.Published.Format("2006-01-02"), e.Title)
	}
	return nil
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, jsonOut bool) error {
	info := buildinfo.Info()
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	// Print fields in a stable order for human readability.
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w. It is called when
// tubescribe is invoked with no arguments, or with -h / --help.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Tubescribe - YouTube Transcript & Summary Service")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: tubescribe [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve                   Start the API server")
	fmt.Fprintln(w, "  transcribe <url-or-id>  Transcribe a single video")
	fmt.Fprintln(w, "  channel <channel-id>    List a channel's recent uploads")
	fmt.Fprintln(w, "  version                 Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>   Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -json            Output machine-readable JSON")
	fmt.Fprintln(w, "  -no-summary      Skip summary generation (transcribe)")
	fmt.Fprintln(w, "  -no-timestamps   Omit timestamps from the report (transcribe)")
	fmt.Fprintln(w, "  -output <dir>    Write report files under dir (transcribe)")
	fmt.Fprintln(w, "  -verbose         Print stage progress to stderr (transcribe)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./tubescribe.yaml, ~/.config/tubescribe/config.yaml, /etc/tubescribe/config.yaml")
	return nil
}

// newLogger creates a structured logger that writes to w at the given
// level and format. Format must be "text" or "json"; any other value
// defaults to text. All log output goes through slog; this helper
// standardizes the handler configuration across subcommands.
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// loadConfigOrDefault locates and parses the configuration file. An
// explicit path must exist; when auto-discovery finds nothing the
// built-in defaults apply, which is enough for keyless one-shot use.
func loadConfigOrDefault(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		if explicit != "" {
			return nil, "", err
		}
		return config.Default(), "", nil
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	return cfg, cfgPath, nil
}

// fillEnvKeys lets provider keys come from the environment when the
// config file does not carry them.
func fillEnvKeys(cfg *config.Config) {
	if cfg.Summary.Anthropic.APIKey == "" {
		cfg.Summary.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.Summary.OpenAI.APIKey == "" {
		cfg.Summary.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}
