// Package backfill walks a date range one calendar day at a time, fetching
// intraday bars for each day and handing the deduplicated result to a Sink.
//
// Days are processed strictly in order. A day whose fetch returns a broker
// envelope instead of a bar list is skipped; a day returning an empty list is
// still written. Fetch and sink errors stop the run.
package backfill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/nifty-data/internal/metrics"
	"github.com/rickgao/nifty-data/internal/model"
)

// ErrTooManySkips is returned when MaxConsecutiveSkips days in a row were skipped.
var ErrTooManySkips = errors.New("too many consecutive skipped days")

// BarSource fetches one window of bars for an instrument.
type BarSource interface {
	FetchBars(ctx context.Context, inst model.Instrument, start, end time.Time, intervalMinutes int) (model.BarSeries, error)
}

// Sink persists one day of bars. Writing the same (symbol, date) again must
// replace the previous unit.
type Sink interface {
	WriteDay(ctx context.Context, symbol string, date time.Time, bars []model.Bar) error
}

// Config configures a Backfiller.
type Config struct {
	WindowClose         time.Duration    // Offset of the window end from midnight UTC
	MaxConsecutiveSkips int              // 0 disables the abort
	Pause               time.Duration    // Wait between day requests
	Now                 func() time.Time // Clock for "today"
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		WindowClose: model.DefaultWindowClose,
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

// Report summarizes a run.
type Report struct {
	Days       int // Days attempted
	Written    int // Days persisted with at least one bar
	Empty      int // Days persisted with zero bars
	Skipped    int // Days skipped on a broker envelope
	Bars       int // Bars persisted
	Duplicates int // Bars removed by deduplication
}

// Backfiller drives a BarSource across a date range.
type Backfiller struct {
	cfg     Config
	source  BarSource
	sink    Sink
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a Backfiller.
func New(cfg Config, source BarSource, sink Sink, m *metrics.Metrics, logger *slog.Logger) *Backfiller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = DefaultConfig().Now
	}
	if cfg.WindowClose == 0 {
		cfg.WindowClose = model.DefaultWindowClose
	}
	return &Backfiller{
		cfg:     cfg,
		source:  source,
		sink:    sink,
		logger:  logger,
		metrics: m,
	}
}

// Run fetches and persists every day from start through today inclusive.
func (b *Backfiller) Run(ctx context.Context, inst model.Instrument, start time.Time, intervalMinutes int) (Report, error) {
	var report Report

	r, err := model.NewDateRange(start, b.cfg.Now())
	if err != nil {
		return report, err
	}

	b.logger.Info("backfill starting",
		"symbol", inst.DisplayName,
		"token", inst.Token,
		"start", r.Start.Format(time.DateOnly),
		"today", r.Today.Format(time.DateOnly),
		"days", r.NumDays(),
		"interval", intervalMinutes,
	)

	consecutiveSkips := 0
	for i, day := range r.Days(b.cfg.WindowClose) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if i > 0 && b.cfg.Pause > 0 {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			case <-time.After(b.cfg.Pause):
			}
		}

		report.Days++
		skipped, err := b.runDay(ctx, inst, day, intervalMinutes, &report)
		if err != nil {
			return report, err
		}

		if !skipped {
			consecutiveSkips = 0
			continue
		}
		consecutiveSkips++
		if b.cfg.MaxConsecutiveSkips > 0 && consecutiveSkips >= b.cfg.MaxConsecutiveSkips {
			return report, fmt.Errorf("%w: %d ending %s", ErrTooManySkips, consecutiveSkips, day.Date.Format(time.DateOnly))
		}
	}

	b.logger.Info("backfill complete",
		"symbol", inst.DisplayName,
		"days", report.Days,
		"written", report.Written,
		"empty", report.Empty,
		"skipped", report.Skipped,
		"bars", report.Bars,
		"duplicates", report.Duplicates,
	)

	return report, nil
}

// runDay processes one day. skipped is true when the broker did not return a list.
func (b *Backfiller) runDay(ctx context.Context, inst model.Instrument, day model.TradingDay, intervalMinutes int, report *Report) (skipped bool, err error) {
	date := day.Date.Format(time.DateOnly)
	b.logger.Info("fetching bars", "symbol", inst.DisplayName, "day", date)

	series, err := b.source.FetchBars(ctx, inst, day.WindowStart, day.WindowEnd, intervalMinutes)
	if err != nil {
		return false, fmt.Errorf("fetch bars for %s: %w", date, err)
	}

	if !series.IsList() {
		b.logger.Warn("no bar data, skipping day",
			"day", date,
			"stat", series.Envelope.Stat,
			"message", series.Envelope.Message,
		)
		report.Skipped++
		b.metrics.RecordDay(metrics.DaySkipped, 0, 0)
		return true, nil
	}

	bars := Dedup(series.Bars)
	dropped := len(series.Bars) - len(bars)
	if dropped > 0 {
		b.logger.Debug("dropped duplicate bars", "day", date, "count", dropped)
	}

	start := time.Now()
	if err := b.sink.WriteDay(ctx, inst.DisplayName, day.Date, bars); err != nil {
		return false, fmt.Errorf("write day %s: %w", date, err)
	}

	outcome := metrics.DayWritten
	if len(bars) == 0 {
		outcome = metrics.DayEmpty
		report.Empty++
	} else {
		report.Written++
	}
	report.Bars += len(bars)
	report.Duplicates += dropped
	b.metrics.RecordDay(outcome, len(bars), dropped)

	b.logger.Info("saved bars",
		"day", date,
		"rows", len(bars),
		"duplicates", dropped,
		"duration", time.Since(start),
	)
	return false, nil
}

// Dedup removes bars whose Timestamp was already seen, keeping the first
// occurrence and preserving input order.
func Dedup(bars []model.Bar) []model.Bar {
	if bars == nil {
		return nil
	}
	seen := make(map[int64]struct{}, len(bars))
	out := make([]model.Bar, 0, len(bars))
	for _, bar := range bars {
		if _, ok := seen[bar.Timestamp]; ok {
			continue
		}
		seen[bar.Timestamp] = struct{}{}
		out = append(out, bar)
	}
	return out
}
