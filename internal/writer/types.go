package writer

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// WriterConfig contains configuration for batch writers.
type WriterConfig struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration

	// BufferSize is the initial capacity of the input queue.
	BufferSize int

	// MaxBufferSize caps queue growth. 0 means unbounded.
	MaxBufferSize int
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     1000,
		FlushInterval: time.Second,
		BufferSize:    10000,
		MaxBufferSize: 160000,
	}
}

// tickRow represents a row for the ticks table.
type tickRow struct {
	CapturedAt       time.Time
	Symbol           *string
	Exchange         *string
	Token            *string
	LastPrice        pgtype.Numeric
	LastQty          *int64
	LastTradeTime    *string
	Volume           *int64
	AvgPrice         pgtype.Numeric
	Open             pgtype.Numeric
	High             pgtype.Numeric
	Low              pgtype.Numeric
	Close            pgtype.Numeric
	TotalBuyQty      *int64
	TotalSellQty     *int64
	PercentChange    pgtype.Numeric
	OpenInterest     *int64
	PrevOpenInterest *int64
	FeedTime         *string
	Depth            []byte // JSONB: {"buy":[...5],"sell":[...5]}
}

// WriterMetrics holds metrics for a writer.
type WriterMetrics struct {
	Inserts int64
	Dropped int64
	Errors  int64
	Flushes int64
}
