package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/rickgao/nifty-data/internal/model"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}
	switch c.Instance.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("instance.log_level must be one of debug, info, warn, error, got %q", c.Instance.LogLevel)
	}

	if c.API.RestURL == "" {
		return errors.New("api.rest_url is required")
	}
	if c.API.WSURL == "" {
		return errors.New("api.ws_url is required")
	}
	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries must be >= 0")
	}

	if c.Backfill.Symbol == "" {
		return errors.New("backfill.symbol is required")
	}
	if _, err := time.Parse(time.DateOnly, c.Backfill.StartDate); err != nil {
		return fmt.Errorf("backfill.start_date must be YYYY-MM-DD, got %q", c.Backfill.StartDate)
	}
	if c.Backfill.Interval < 1 {
		return errors.New("backfill.interval must be >= 1")
	}
	if _, err := model.ParseWindowClose(c.Backfill.WindowClose); err != nil {
		return fmt.Errorf("backfill.window_close must be HH:MM, got %q", c.Backfill.WindowClose)
	}
	if c.Backfill.MaxConsecutiveSkips < 0 {
		return errors.New("backfill.max_consecutive_skips must be >= 0")
	}

	switch c.Sink.Format {
	case SinkParquet, SinkCSV, SinkTimescale:
	default:
		return fmt.Errorf("sink.format must be one of parquet, csv, timescale, got %q", c.Sink.Format)
	}

	switch model.FeedMode(c.Stream.Mode) {
	case model.FeedTouchline, model.FeedDepth:
	default:
		return fmt.Errorf("stream.mode must be touchline or depth, got %q", c.Stream.Mode)
	}
	if c.Stream.OpenTimeout <= 0 {
		return errors.New("stream.open_timeout must be > 0")
	}
	for _, name := range c.Stream.Consumers {
		switch name {
		case ConsumerJSON, ConsumerLog, ConsumerRedis, ConsumerTimescale:
		default:
			return fmt.Errorf("stream.consumers: unknown consumer %q", name)
		}
	}
	if c.Stream.BufferSize < 1 {
		return errors.New("stream.buffer_size must be >= 1")
	}
	if c.Stream.ReconnectBaseDelay > c.Stream.ReconnectMaxDelay {
		return fmt.Errorf("stream.reconnect_base_delay (%s) cannot exceed reconnect_max_delay (%s)",
			c.Stream.ReconnectBaseDelay, c.Stream.ReconnectMaxDelay)
	}

	if c.Stream.UsesConsumer(ConsumerRedis) {
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required")
		}
		if c.Redis.StreamKey == "" {
			return errors.New("redis.stream_key is required")
		}
	}

	if c.NeedsDatabase() {
		if err := c.Database.Timescale.validate("database.timescale"); err != nil {
			return err
		}
	}

	if c.Writers.BatchSize < 1 {
		return errors.New("writers.batch_size must be >= 1")
	}
	if c.Writers.BufferSize < 1 {
		return errors.New("writers.buffer_size must be >= 1")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

// StartDate parses backfill.start_date.
func (c *Config) StartDate() (time.Time, error) {
	return time.Parse(time.DateOnly, c.Backfill.StartDate)
}
