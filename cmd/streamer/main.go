// streamer subscribes to the live index feed and delivers every normalized
// tick to the configured consumers until interrupted.
//
// Usage: streamer --config configs/nifty.example.yaml [--stop-on-enter]
//
// Credentials come from SHOONYA_* environment variables, optionally seeded
// from the dotenv file named by api.secrets_path.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/nifty-data/internal/cli"
	"github.com/rickgao/nifty-data/internal/config"
	"github.com/rickgao/nifty-data/internal/consumer"
	"github.com/rickgao/nifty-data/internal/database"
	"github.com/rickgao/nifty-data/internal/feed"
	"github.com/rickgao/nifty-data/internal/metrics"
	"github.com/rickgao/nifty-data/internal/model"
	"github.com/rickgao/nifty-data/internal/session"
	"github.com/rickgao/nifty-data/internal/version"
	"github.com/rickgao/nifty-data/internal/writer"
)

type options struct {
	configPath  string
	stopOnEnter bool
}

func main() {
	os.Exit(cli.ExitCode(newCommand().Execute()))
}

func newCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "streamer",
		Short:         "Stream live index ticks to stdout, the log, Redis or TimescaleDB",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.String(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "path to config file")
	f.BoolVar(&opts.stopOnEnter, "stop-on-enter", false, "stop when Enter is pressed on stdin")

	return cmd
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.LoadAndValidate(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "streamer: %v\n", err)
		return cli.ConfigError(err)
	}

	// Ticks go to stdout, so logs go to stderr.
	logger, runID := cli.NewLogger(os.Stderr, cfg.Instance.LogLevel, "streamer")
	slog.SetDefault(logger)

	logger.Info("starting streamer",
		"version", version.Version,
		"commit", version.Commit,
		"config", opts.configPath,
		"run_id", runID,
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if opts.stopOnEnter {
		go waitForEnter(os.Stdin, cancel, logger)
	}

	creds, err := config.LoadCredentials(cfg.API.SecretsPath)
	if err != nil {
		logger.Error("failed to load credentials", "error", err)
		return cli.ConfigError(err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	sess := cli.NewSession(cfg, creds, logger)

	// Resolve the instrument once; each feed attempt logs in again.
	if err := sess.Authenticate(ctx); err != nil {
		logger.Error("login failed", "error", err)
		return err
	}
	inst, err := sess.Resolve(ctx, cfg.Stream.Exchange, cfg.Stream.Symbol)
	if err != nil {
		logger.Error("symbol resolution failed", "search", cfg.Stream.Symbol, "error", err)
		logoutQuietly(ctx, sess, logger)
		return err
	}

	p, err := newPipeline(ctx, cfg, m, logger)
	if err != nil {
		logger.Error("failed to start consumers", "error", err)
		logoutQuietly(ctx, sess, logger)
		return err
	}
	defer p.Close(context.WithoutCancel(ctx))

	var current atomic.Pointer[feed.Controller]
	checks := map[string]cli.HealthFunc{
		"feed": func(context.Context) (string, error) {
			c := current.Load()
			if c == nil {
				return "starting", nil
			}
			state := c.State()
			if state == feed.StateDisconnected {
				return state.String(), errors.New("feed not connected")
			}
			return state.String(), nil
		},
	}
	if p.pool != nil {
		checks["timescaledb"] = func(ctx context.Context) (string, error) {
			if err := p.pool.Ping(ctx); err != nil {
				return "disconnected", err
			}
			return "connected", nil
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: cli.HealthHandler(checks, reg, cfg.Metrics.Path),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cli.Serve(gctx, srv, logger)
	})
	g.Go(func() error {
		// The health server stops with the feed.
		defer cancel()
		return streamLoop(gctx, cfg, []string{inst.Key()}, sess, p.fanout, m, &current, logger)
	})

	logger.Info("streamer running",
		"instance_id", cfg.Instance.ID,
		"symbol", inst.DisplayName,
		"key", inst.Key(),
		"mode", cfg.Stream.Mode,
		"consumers", cfg.Stream.Consumers,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	if err := g.Wait(); err != nil {
		logger.Error("streamer failed", "error", err)
		return err
	}
	logger.Info("streamer stopped")
	return nil
}

// streamLoop runs one feed.Controller per attempt and reconnects with
// exponential backoff until ctx is done. A rejected login is final; transport
// failures, including those during login, are retried.
func streamLoop(ctx context.Context, cfg *config.Config, keys []string, broker feed.Broker, c feed.Consumer, m *metrics.Metrics, current *atomic.Pointer[feed.Controller], logger *slog.Logger) error {
	feedCfg := feed.DefaultConfig()
	feedCfg.Keys = keys
	feedCfg.Mode = model.FeedMode(cfg.Stream.Mode)
	feedCfg.OpenTimeout = cfg.Stream.OpenTimeout
	feedCfg.OrderUpdates = cfg.Stream.OrderUpdates

	delays := newBackoff(cfg.Stream.ReconnectBaseDelay, cfg.Stream.ReconnectMaxDelay)
	failures := 0
	for attempt := 1; ; attempt++ {
		ctrl := feed.NewController(feedCfg, broker, c, m, logger.With("component", "feed", "attempt", attempt))
		current.Store(ctrl)

		started := time.Now()
		err := ctrl.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			return nil
		}
		if errors.Is(err, feed.ErrAuthentication) {
			return err
		}

		// A session that stayed up resets the backoff.
		if time.Since(started) > cfg.Stream.ReconnectMaxDelay {
			delays.Reset()
			failures = 0
		}
		failures++
		if cfg.Stream.MaxReconnects > 0 && failures > cfg.Stream.MaxReconnects {
			return fmt.Errorf("giving up after %d reconnects: %w", cfg.Stream.MaxReconnects, err)
		}

		delay := delays.Next()
		logger.Warn("feed ended, reconnecting", "error", err, "delay", delay, "failures", failures)
		m.RecordReconnect()

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// backoff doubles a delay from base up to max.
type backoff struct {
	base, max, next time.Duration
}

func newBackoff(base, maxDelay time.Duration) *backoff {
	return &backoff{base: base, max: maxDelay, next: base}
}

// Next returns the current delay and doubles the one after it.
func (b *backoff) Next() time.Duration {
	d := b.next
	b.next = min(b.next*2, b.max)
	return d
}

// Reset starts over from base.
func (b *backoff) Reset() { b.next = b.base }

// pipeline holds the configured consumers and what must be closed after them.
type pipeline struct {
	fanout  consumer.Fanout
	pool    *pgxpool.Pool
	closers []func(ctx context.Context)
}

func newPipeline(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*pipeline, error) {
	p := &pipeline{}

	for _, name := range cfg.Stream.Consumers {
		switch name {
		case config.ConsumerJSON:
			p.fanout = append(p.fanout, consumer.NewJSON(os.Stdout))

		case config.ConsumerLog:
			p.fanout = append(p.fanout, consumer.NewLog(logger.With("component", "ticks")))

		case config.ConsumerRedis:
			rc, client, err := consumer.DialRedis(ctx, consumer.RedisConfig{
				Addr:      cfg.Redis.Addr,
				Password:  cfg.Redis.Password,
				DB:        cfg.Redis.DB,
				StreamKey: cfg.Redis.StreamKey,
				MaxLen:    cfg.Redis.MaxLen,
			})
			if err != nil {
				p.Close(ctx)
				return nil, err
			}
			logger.Info("redis consumer ready", "addr", cfg.Redis.Addr, "stream", cfg.Redis.StreamKey)
			p.fanout = append(p.fanout, rc)
			p.closers = append(p.closers, func(context.Context) { client.Close() })

		case config.ConsumerTimescale:
			if err := p.openDatabase(ctx, cfg, logger); err != nil {
				p.Close(ctx)
				return nil, err
			}
			tw := writer.NewTickWriter(writer.WriterConfig{
				BatchSize:     cfg.Writers.BatchSize,
				FlushInterval: cfg.Writers.FlushInterval,
				BufferSize:    cfg.Writers.BufferSize,
			}, p.pool, m, logger.With("component", "tick_writer"))
			if err := tw.Start(context.WithoutCancel(ctx)); err != nil {
				p.Close(ctx)
				return nil, err
			}
			p.fanout = append(p.fanout, tw)
			p.closers = append(p.closers, func(ctx context.Context) {
				stopCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
				defer cancel()
				if err := tw.Stop(stopCtx); err != nil {
					logger.Warn("tick writer stop failed", "error", err)
				}
				stats := tw.Stats()
				logger.Info("tick writer stopped", "inserts", stats.Inserts, "errors", stats.Errors)
			})
		}
	}

	return p, nil
}

func (p *pipeline) openDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("connecting to database",
		"host", cfg.Database.Timescale.Host,
		"port", cfg.Database.Timescale.Port,
		"database", cfg.Database.Timescale.Name,
	)
	pool, err := database.Connect(ctx, cfg.Database.Timescale)
	if err != nil {
		return err
	}
	p.closers = append(p.closers, func(context.Context) { pool.Close() })
	if err := database.EnsureSchema(ctx, pool, true); err != nil {
		return err
	}
	p.pool = pool
	logger.Info("database connected")
	return nil
}

// Close releases resources in reverse order of creation.
func (p *pipeline) Close(ctx context.Context) {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i](ctx)
	}
	p.closers = nil
}

func waitForEnter(r io.Reader, cancel context.CancelFunc, logger *slog.Logger) {
	if _, err := bufio.NewReader(r).ReadString('\n'); err != nil {
		// No terminal attached; rely on signals.
		return
	}
	logger.Info("enter pressed, stopping")
	cancel()
}

func logoutQuietly(ctx context.Context, sess *session.Session, logger *slog.Logger) {
	logoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := sess.Logout(logoutCtx); err != nil {
		logger.Warn("logout failed", "error", err)
	}
}
