package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultInstanceID         = "nifty-data"
	DefaultLogLevel           = "info"
	DefaultRestURL            = "https://api.shoonya.com/NorenWClientTP"
	DefaultWSURL              = "wss://api.shoonya.com/NorenWSTP/"
	DefaultAPITimeout         = 30 * time.Second
	DefaultMaxRetries         = 3
	DefaultRetryBackoff       = 1 * time.Second
	DefaultSymbol             = "NIFTY INDEX"
	DefaultExchange           = "NSE"
	DefaultStartDate          = "2025-09-01"
	DefaultInterval           = 1
	DefaultWindowClose        = "15:31"
	DefaultSinkDir            = "."
	DefaultStreamMode         = "depth"
	DefaultOpenTimeout        = 30 * time.Second
	DefaultFeedBufferSize     = 10000
	DefaultHeartbeatInterval  = 3 * time.Second
	DefaultPingTimeout        = 30 * time.Second
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultRedisAddr          = "localhost:6379"
	DefaultRedisStreamKey     = "nifty:ticks"
	DefaultRedisMaxLen        = 100000
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultBatchSize          = 1000
	DefaultFlushInterval      = 1 * time.Second
	DefaultBufferSize         = 10000
	DefaultMetricsPort        = 9090
	DefaultMetricsPath        = "/metrics"
)

// Sink formats.
const (
	SinkParquet   = "parquet"
	SinkCSV       = "csv"
	SinkTimescale = "timescale"
)

// Stream consumers.
const (
	ConsumerJSON      = "json"
	ConsumerLog       = "log"
	ConsumerRedis     = "redis"
	ConsumerTimescale = "timescale"
)

func (c *Config) applyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = DefaultInstanceID
	}
	if c.Instance.LogLevel == "" {
		c.Instance.LogLevel = DefaultLogLevel
	}

	// API defaults
	if c.API.RestURL == "" {
		c.API.RestURL = DefaultRestURL
	}
	if c.API.WSURL == "" {
		c.API.WSURL = DefaultWSURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.RetryBackoff == 0 {
		c.API.RetryBackoff = DefaultRetryBackoff
	}

	// Backfill defaults
	if c.Backfill.Symbol == "" {
		c.Backfill.Symbol = DefaultSymbol
	}
	if c.Backfill.Exchange == "" {
		c.Backfill.Exchange = DefaultExchange
	}
	if c.Backfill.StartDate == "" {
		c.Backfill.StartDate = DefaultStartDate
	}
	if c.Backfill.Interval == 0 {
		c.Backfill.Interval = DefaultInterval
	}
	if c.Backfill.WindowClose == "" {
		c.Backfill.WindowClose = DefaultWindowClose
	}

	// Sink defaults
	if c.Sink.Format == "" {
		c.Sink.Format = SinkParquet
	}
	if c.Sink.Dir == "" {
		c.Sink.Dir = DefaultSinkDir
	}

	// Stream defaults
	if c.Stream.Symbol == "" {
		c.Stream.Symbol = DefaultSymbol
	}
	if c.Stream.Exchange == "" {
		c.Stream.Exchange = DefaultExchange
	}
	if c.Stream.Mode == "" {
		c.Stream.Mode = DefaultStreamMode
	}
	if c.Stream.OpenTimeout == 0 {
		c.Stream.OpenTimeout = DefaultOpenTimeout
	}
	if len(c.Stream.Consumers) == 0 {
		c.Stream.Consumers = []string{ConsumerJSON}
	}
	if c.Stream.BufferSize == 0 {
		c.Stream.BufferSize = DefaultFeedBufferSize
	}
	if c.Stream.HeartbeatInterval == 0 {
		c.Stream.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Stream.PingTimeout == 0 {
		c.Stream.PingTimeout = DefaultPingTimeout
	}
	if c.Stream.ReconnectBaseDelay == 0 {
		c.Stream.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Stream.ReconnectMaxDelay == 0 {
		c.Stream.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}

	// Redis defaults
	if c.Redis.Addr == "" {
		c.Redis.Addr = DefaultRedisAddr
	}
	if c.Redis.StreamKey == "" {
		c.Redis.StreamKey = DefaultRedisStreamKey
	}
	if c.Redis.MaxLen == 0 {
		c.Redis.MaxLen = DefaultRedisMaxLen
	}

	// Database defaults
	applyDBDefaults(&c.Database.Timescale)

	// Writers defaults
	if c.Writers.BatchSize == 0 {
		c.Writers.BatchSize = DefaultBatchSize
	}
	if c.Writers.FlushInterval == 0 {
		c.Writers.FlushInterval = DefaultFlushInterval
	}
	if c.Writers.BufferSize == 0 {
		c.Writers.BufferSize = DefaultBufferSize
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
