package config

import "time"

// Config is the root configuration shared by the backfill and streamer commands.
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	API      APIConfig      `yaml:"api"`
	Backfill BackfillConfig `yaml:"backfill"`
	Sink     SinkConfig     `yaml:"sink"`
	Stream   StreamConfig   `yaml:"stream"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
	Writers  WritersConfig  `yaml:"writers"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// InstanceConfig identifies this process.
type InstanceConfig struct {
	ID       string `yaml:"id"`
	LogLevel string `yaml:"log_level"` // debug|info|warn|error
}

// APIConfig holds Noren API settings.
type APIConfig struct {
	RestURL      string        `yaml:"rest_url"`
	WSURL        string        `yaml:"ws_url"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	SecretsPath  string        `yaml:"secrets_path"` // Optional dotenv file with SHOONYA_* variables
}

// BackfillConfig holds historical backfill settings.
type BackfillConfig struct {
	Symbol              string        `yaml:"symbol"`     // Search text, e.g. "NIFTY INDEX"
	Exchange            string        `yaml:"exchange"`   // Exchange segment searched
	StartDate           string        `yaml:"start_date"` // YYYY-MM-DD
	Interval            int           `yaml:"interval"`   // Bar interval in minutes
	WindowClose         string        `yaml:"window_close"`
	Pause               time.Duration `yaml:"pause"`
	MaxConsecutiveSkips int           `yaml:"max_consecutive_skips"` // 0 disables
}

// SinkConfig selects where backfilled bars go.
type SinkConfig struct {
	Format string `yaml:"format"` // parquet|csv|timescale
	Dir    string `yaml:"dir"`
}

// StreamConfig holds live feed settings.
type StreamConfig struct {
	Symbol             string        `yaml:"symbol"`
	Exchange           string        `yaml:"exchange"`
	Mode               string        `yaml:"mode"` // touchline|depth
	OpenTimeout        time.Duration `yaml:"open_timeout"`
	OrderUpdates       bool          `yaml:"order_updates"`
	Consumers          []string      `yaml:"consumers"` // json|log|redis|timescale
	BufferSize         int           `yaml:"buffer_size"`
	HeartbeatInterval  time.Duration `yaml:"heartbeat_interval"`
	PingTimeout        time.Duration `yaml:"ping_timeout"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	MaxReconnects      int           `yaml:"max_reconnects"` // 0 retries forever
}

// RedisConfig holds the Redis stream consumer settings.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	StreamKey string `yaml:"stream_key"`
	MaxLen    int64  `yaml:"max_len"`
}

// DatabaseConfig holds the TimescaleDB connection for bars and ticks.
type DatabaseConfig struct {
	Timescale DBConfig `yaml:"timescale"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// WritersConfig holds batch writer settings.
type WritersConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// UsesConsumer reports whether the stream fans out to the named consumer.
func (s StreamConfig) UsesConsumer(name string) bool {
	for _, c := range s.Consumers {
		if c == name {
			return true
		}
	}
	return false
}

// NeedsDatabase reports whether any configured component writes to TimescaleDB.
func (c *Config) NeedsDatabase() bool {
	return c.Sink.Format == SinkTimescale || c.Stream.UsesConsumer(ConsumerTimescale)
}
