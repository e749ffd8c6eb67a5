// Command speakscore analyses a batch of spoken transcripts for grammar and
// coherence and writes the results as JSON.
//
// Input is a JSON array of {"topic", "paragraph"} objects read from -input or
// stdin. Output is {"results": [...]} written to -output or stdout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/speakscore/internal/analysis"
	"github.com/MrWong99/speakscore/internal/app"
	"github.com/MrWong99/speakscore/internal/config"
	"github.com/MrWong99/speakscore/internal/health"
	"github.com/MrWong99/speakscore/internal/observe"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	configPath string
	input      string
	output     string
	pretty     bool
	metricsOut string
	listen     string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("speakscore", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "speakscore.yaml", "path to the YAML configuration file (defaults apply when missing)")
	fs.StringVar(&o.input, "input", "", "input JSON file with transcripts (stdin when empty)")
	fs.StringVar(&o.output, "output", "", "output JSON file for results (stdout when empty)")
	fs.BoolVar(&o.pretty, "pretty", false, "indent the JSON output")
	fs.StringVar(&o.metricsOut, "metrics-out", "", "write collected metrics in Prometheus text format to this file")
	fs.StringVar(&o.listen, "listen", "", "serve /healthz, /readyz and /metrics on this address while the batch runs")
	err := fs.Parse(args)
	return o, err
}

type output struct {
	Results []analysis.Result `json:"results"`
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	// ── Configuration ─────────────────────────────────────────────────────────
	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "speakscore: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	var level slog.LevelVar
	level.Set(slogLevel(cfg.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: &level})))

	slog.Info("speakscore starting",
		"version", version,
		"config", opts.configPath,
		"grammar", cfg.Grammar.Source,
		"coherence", cfg.Coherence.Judge,
	)

	if w := watchConfig(opts.configPath, &level); w != nil {
		defer w.Stop()
	}

	// ── Telemetry ─────────────────────────────────────────────────────────────
	tel, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Providers + pipeline ──────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := app.BuildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}
	application, err := app.New(cfg, providers, app.WithMetrics(tel.Metrics))
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	if opts.listen != "" {
		stopServer, err := serveOps(opts.listen, tel, application)
		if err != nil {
			slog.Error("failed to start ops listener", "addr", opts.listen, "err", err)
			return 1
		}
		defer stopServer()
	}

	// ── Batch ─────────────────────────────────────────────────────────────────
	transcripts, err := readTranscripts(opts.input, stdin)
	if err != nil {
		slog.Error("failed to read transcripts", "err", err)
		return 1
	}

	results, err := application.Run(ctx, transcripts)
	if err != nil {
		slog.Error("analysis aborted", "err", err)
		return 1
	}

	if err := writeResults(opts.output, stdout, results, opts.pretty); err != nil {
		slog.Error("failed to write results", "err", err)
		return 1
	}
	if opts.output != "" {
		fmt.Fprintf(stderr, "Results written to %s\n", opts.output)
	}

	if opts.metricsOut != "" {
		if err := dumpMetrics(opts.metricsOut, tel); err != nil {
			slog.Error("failed to write metrics", "err", err)
			return 1
		}
	}
	return 0
}

// watchConfig starts a watcher when the config file exists. Log level
// changes apply immediately; anything else is reported as needing a restart.
func watchConfig(path string, level *slog.LevelVar) *config.Watcher {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	w, err := config.NewWatcher(path, func(_, _ *config.Config, diff config.ConfigDiff) {
		if diff.LogLevelChanged {
			level.Set(slogLevel(diff.NewLogLevel))
			slog.Info("log level changed", "level", diff.NewLogLevel)
		}
		if len(diff.RestartRequired) > 0 {
			slog.Warn("config changes take effect on the next run", "sections", diff.RestartRequired)
		}
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
		return nil
	}
	return w
}

func serveOps(addr string, tel *observe.Telemetry, application *app.App) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	health.New(health.WithCheckers(application.HealthCheckers()...)).Register(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(tel.Registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ops listener error", "err", err)
		}
	}()
	slog.Info("ops listener ready", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func readTranscripts(path string, stdin io.Reader) ([]analysis.Transcript, error) {
	r := stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	} else {
		slog.Info("reading transcripts from stdin")
	}

	var ts []analysis.Transcript
	if err := json.NewDecoder(r).Decode(&ts); err != nil {
		return nil, fmt.Errorf("decode transcripts: %w", err)
	}
	return ts, nil
}

func writeResults(path string, stdout io.Writer, results []analysis.Result, pretty bool) error {
	if results == nil {
		results = []analysis.Result{}
	}
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(output{Results: results}, "", "  ")
	} else {
		data, err = json.Marshal(output{Results: results})
	}
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if path == "" {
		_, err = stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func dumpMetrics(path string, tel *observe.Telemetry) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return observe.WriteMetrics(f, tel.Registry)
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
