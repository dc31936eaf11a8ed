package writer

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/nifty-data/internal/database"
	"github.com/rickgao/nifty-data/internal/metrics"
	"github.com/rickgao/nifty-data/internal/model"
	"github.com/rickgao/nifty-data/internal/router"
)

// BatchSender sends a pgx batch. *pgxpool.Pool satisfies it.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// TickWriter consumes canonical ticks and batch-inserts them into the ticks
// table. OnTick only enqueues, so the feed dispatcher never waits on the
// database.
type TickWriter struct {
	cfg     WriterConfig
	logger  *slog.Logger
	metrics *metrics.Metrics

	// Input from the feed controller
	input *router.Queue[model.CanonicalTick]

	// Database
	db BatchSender

	// Batching
	batch       []tickRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	consumerDone chan struct{}

	stats WriterMetrics
}

// NewTickWriter creates a new TickWriter.
func NewTickWriter(cfg WriterConfig, db BatchSender, m *metrics.Metrics, logger *slog.Logger) *TickWriter {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultWriterConfig()
	if cfg.BatchSize < 1 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = def.BufferSize
	}
	return &TickWriter{
		cfg:     cfg,
		input:   router.NewQueue[model.CanonicalTick](cfg.BufferSize, cfg.MaxBufferSize),
		db:      db,
		logger:  logger,
		metrics: m,
		batch:   make([]tickRow, 0, cfg.BatchSize),

		consumerDone: make(chan struct{}),
	}
}

// Start begins consuming ticks and writing to the database.
func (w *TickWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	// Consumer goroutine
	go w.consumeLoop()

	// Flush ticker goroutine
	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("tick writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop closes the input, drains what is queued and flushes.
func (w *TickWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping tick writer")

	w.input.Close()

	if w.cancel == nil {
		// Never started
		w.flushWith(ctx)
		return nil
	}

	// Wait for the consumer to drain the queue
	select {
	case <-w.consumerDone:
	case <-ctx.Done():
		w.logger.Warn("tick writer stop timed out", "queued", w.input.Len())
	}

	w.cancel()
	w.flushTicker.Stop()
	w.wg.Wait()

	// Final flush outside the cancelled writer context
	w.flushWith(context.WithoutCancel(ctx))
	w.logger.Info("tick writer stopped", "inserts", w.Stats().Inserts)
	return nil
}

// OnTick enqueues a tick. A full queue drops the tick and counts it.
func (w *TickWriter) OnTick(t model.CanonicalTick) error {
	if !w.input.Push(t) {
		w.batchMu.Lock()
		w.stats.Dropped++
		w.batchMu.Unlock()
		w.metrics.RecordWriteError(database.TableTicks)
		w.logger.Warn("tick queue full, tick dropped", "queued", w.input.Len())
	}
	return nil
}

// OnOrderEvent is a no-op; order events are not stored.
func (w *TickWriter) OnOrderEvent(map[string]any) error {
	return nil
}

// Stats returns current metrics.
func (w *TickWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.stats
}

// consumeLoop pops ticks until the queue is closed and empty.
func (w *TickWriter) consumeLoop() {
	defer close(w.consumerDone)

	for {
		t, ok := w.input.Pop()
		if !ok {
			return
		}
		w.handleTick(t)
	}
}

// flushLoop periodically flushes the batch.
func (w *TickWriter) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush()
		}
	}
}

// handleTick transforms and adds a tick to the batch.
func (w *TickWriter) handleTick(t model.CanonicalTick) {
	row := transformTick(t)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

// transformTick converts a canonical tick to a tickRow.
func transformTick(t model.CanonicalTick) tickRow {
	depth, _ := json.Marshal(t.MarketDepth)
	return tickRow{
		CapturedAt:       t.CapturedAt,
		Symbol:           t.Symbol,
		Exchange:         t.Exchange,
		Token:            t.Token,
		LastPrice:        nullDecimal(t.LastTradedPrice),
		LastQty:          nullInt(t.LastTradeQty),
		LastTradeTime:    t.LastTradeTime,
		Volume:           nullInt(t.Volume),
		AvgPrice:         nullDecimal(t.AvgTradePrice),
		Open:             nullDecimal(t.Open),
		High:             nullDecimal(t.High),
		Low:              nullDecimal(t.Low),
		Close:            nullDecimal(t.Close),
		TotalBuyQty:      nullInt(t.TotalBuyQty),
		TotalSellQty:     nullInt(t.TotalSellQty),
		PercentChange:    nullDecimal(t.PercentChange),
		OpenInterest:     nullInt(t.OpenInterest),
		PrevOpenInterest: nullInt(t.PreviousDayOpenInterest),
		FeedTime:         t.FeedTime,
		Depth:            depth,
	}
}

func (w *TickWriter) flush() {
	ctx := w.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	w.flushWith(ctx)
}

// flushWith writes the current batch to the database.
func (w *TickWriter) flushWith(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]tickRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	if err := w.batchInsert(ctx, batch); err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.stats.Errors++
		w.batchMu.Unlock()
		w.metrics.RecordWriteError(database.TableTicks)
		return
	}

	w.batchMu.Lock()
	w.stats.Inserts += int64(len(batch))
	w.stats.Flushes++
	w.batchMu.Unlock()
	w.metrics.RecordRows(database.TableTicks, len(batch))

	w.logger.Debug("flushed ticks",
		"count", len(batch),
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch.
func (w *TickWriter) batchInsert(ctx context.Context, rows []tickRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO ticks (captured_at, symbol, exchange, token, last_price, last_qty, last_trade_time, volume, avg_price, open, high, low, close, total_buy_qty, total_sell_qty, percent_change, open_interest, prev_open_interest, feed_time, depth)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		`, r.CapturedAt, r.Symbol, r.Exchange, r.Token, r.LastPrice, r.LastQty, r.LastTradeTime, r.Volume, r.AvgPrice,
			r.Open, r.High, r.Low, r.Close, r.TotalBuyQty, r.TotalSellQty, r.PercentChange, r.OpenInterest,
			r.PrevOpenInterest, r.FeedTime, r.Depth)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}
