// backfill downloads intraday bars for an index one calendar day at a time
// and writes one unit per day to Parquet, CSV or TimescaleDB.
//
// Usage: backfill [SYMBOL_SEARCH] [START_DATE] --config configs/nifty.example.yaml
//
// Credentials come from SHOONYA_* environment variables, optionally seeded
// from the dotenv file named by api.secrets_path.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/rickgao/nifty-data/internal/backfill"
	"github.com/rickgao/nifty-data/internal/cli"
	"github.com/rickgao/nifty-data/internal/config"
	"github.com/rickgao/nifty-data/internal/database"
	"github.com/rickgao/nifty-data/internal/metrics"
	"github.com/rickgao/nifty-data/internal/model"
	"github.com/rickgao/nifty-data/internal/sink"
	"github.com/rickgao/nifty-data/internal/version"
	"github.com/rickgao/nifty-data/internal/writer"
)

type options struct {
	configPath   string
	outDir       string
	format       string
	interval     int
	serveMetrics bool
}

func main() {
	os.Exit(cli.ExitCode(newCommand().Execute()))
}

func newCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "backfill [SYMBOL_SEARCH] [START_DATE]",
		Short: "Download intraday bars from START_DATE through today, one file per day",
		Long: "backfill resolves SYMBOL_SEARCH (default \"NIFTY INDEX\") on the broker and\n" +
			"fetches bars for every calendar day from START_DATE (YYYY-MM-DD) through today.",
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.String(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "path to config file")
	f.StringVar(&opts.outDir, "out", "", "output directory (overrides sink.dir)")
	f.StringVar(&opts.format, "format", "", "parquet, csv or timescale (overrides sink.format)")
	f.IntVar(&opts.interval, "interval", 0, "bar interval in minutes (overrides backfill.interval)")
	f.BoolVar(&opts.serveMetrics, "serve-metrics", false, "serve /health and /metrics while running")

	return cmd
}

// loadConfig applies positional arguments and flags on top of the file and
// rejects a start date after today.
func loadConfig(opts options, args []string, now time.Time) (*config.Config, error) {
	cfg, err := config.LoadWithDefaults(opts.configPath)
	if err != nil {
		return nil, err
	}

	if len(args) > 0 {
		cfg.Backfill.Symbol = args[0]
	}
	if len(args) > 1 {
		cfg.Backfill.StartDate = args[1]
	}
	if opts.outDir != "" {
		cfg.Sink.Dir = opts.outDir
	}
	if opts.format != "" {
		cfg.Sink.Format = opts.format
	}
	if opts.interval != 0 {
		cfg.Backfill.Interval = opts.interval
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	start, _ := cfg.StartDate()
	if _, err := model.NewDateRange(start, now); err != nil {
		return nil, fmt.Errorf("backfill.start_date: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, opts options, args []string) error {
	cfg, err := loadConfig(opts, args, time.Now().UTC())
	if err != nil {
		fmt.Fprintf(os.Stderr, "backfill: %v\n", err)
		return cli.ConfigError(err)
	}

	logger, runID := cli.NewLogger(os.Stdout, cfg.Instance.LogLevel, "backfill")
	slog.SetDefault(logger)

	logger.Info("starting backfill",
		"version", version.Version,
		"commit", version.Commit,
		"config", opts.configPath,
		"run_id", runID,
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Parsed values were checked by Validate.
	start, _ := cfg.StartDate()
	windowClose, _ := model.ParseWindowClose(cfg.Backfill.WindowClose)

	creds, err := config.LoadCredentials(cfg.API.SecretsPath)
	if err != nil {
		logger.Error("failed to load credentials", "error", err)
		return cli.ConfigError(err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	if opts.serveMetrics {
		srvCtx, srvCancel := context.WithCancel(ctx)
		defer srvCancel()
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: cli.HealthHandler(nil, reg, cfg.Metrics.Path),
		}
		go func() {
			if err := cli.Serve(srvCtx, srv, logger); err != nil {
				logger.Warn("health server stopped", "error", err)
			}
		}()
	}

	out, closeSink, err := openSink(ctx, cfg, m, logger)
	if err != nil {
		logger.Error("failed to open sink", "format", cfg.Sink.Format, "error", err)
		return err
	}
	defer closeSink()

	sess := cli.NewSession(cfg, creds, logger)

	if err := sess.Authenticate(ctx); err != nil {
		logger.Error("login failed", "error", err)
		return err
	}
	defer func() {
		logoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := sess.Logout(logoutCtx); err != nil {
			logger.Warn("logout failed", "error", err)
		}
	}()

	inst, err := sess.Resolve(ctx, cfg.Backfill.Exchange, cfg.Backfill.Symbol)
	if err != nil {
		logger.Error("symbol resolution failed", "search", cfg.Backfill.Symbol, "error", err)
		return err
	}

	b := backfill.New(backfill.Config{
		WindowClose:         windowClose,
		MaxConsecutiveSkips: cfg.Backfill.MaxConsecutiveSkips,
		Pause:               cfg.Backfill.Pause,
	}, sess, out, m, logger.With("component", "backfill"))

	report, err := b.Run(ctx, inst, start, cfg.Backfill.Interval)
	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("backfill interrupted", "days", report.Days, "bars", report.Bars)
		} else {
			logger.Error("backfill failed", "days", report.Days, "error", err)
		}
		return err
	}

	logger.Info("backfill finished",
		"days", report.Days,
		"written", report.Written,
		"skipped", report.Skipped,
		"dir", cfg.Sink.Dir,
	)
	return nil
}

// openSink builds the configured Sink and its cleanup.
func openSink(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (backfill.Sink, func(), error) {
	switch cfg.Sink.Format {
	case config.SinkCSV:
		return sink.NewCSV(cfg.Sink.Dir, logger), func() {}, nil
	case config.SinkTimescale:
		logger.Info("connecting to database",
			"host", cfg.Database.Timescale.Host,
			"port", cfg.Database.Timescale.Port,
			"database", cfg.Database.Timescale.Name,
		)
		pool, err := database.Connect(ctx, cfg.Database.Timescale)
		if err != nil {
			return nil, nil, err
		}
		if err := database.EnsureSchema(ctx, pool, true); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return writer.NewBarWriter(pool, m, logger.With("component", "bar_writer")), pool.Close, nil
	default:
		return sink.NewParquet(cfg.Sink.Dir, logger), func() {}, nil
	}
}
