package writer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/nifty-data/internal/database"
	"github.com/rickgao/nifty-data/internal/metrics"
	"github.com/rickgao/nifty-data/internal/model"
)

// TxBeginner opens a transaction. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

var barColumns = []string{
	"symbol", "trade_date", "ts", "time_text",
	"open", "high", "low", "close", "vwap", "volume", "open_interest",
}

// BarWriter stores one day of bars per call in ohlc_bars. The day's previous
// rows are deleted and the new ones copied in the same transaction, so a
// rerun replaces the day. Each stored day, empty or not, also gets a row in
// ohlc_days; a skipped day has none.
type BarWriter struct {
	db      TxBeginner
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewBarWriter creates a BarWriter.
func NewBarWriter(db TxBeginner, m *metrics.Metrics, logger *slog.Logger) *BarWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &BarWriter{db: db, metrics: m, logger: logger}
}

// WriteDay replaces the rows for (symbol, date) with bars.
func (w *BarWriter) WriteDay(ctx context.Context, symbol string, date time.Time, bars []model.Bar) (err error) {
	defer func() {
		if err != nil {
			w.metrics.RecordWriteError(database.TableBars)
		}
	}()

	tx, err := w.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	day := model.CalendarDate(date)
	tag, err := tx.Exec(ctx, `DELETE FROM ohlc_bars WHERE symbol = $1 AND trade_date = $2`, symbol, day)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", symbol, day.Format(time.DateOnly), err)
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{database.TableBars}, barColumns, pgx.CopyFromRows(barRows(symbol, day, bars)))
	if err != nil {
		return fmt.Errorf("copy bars: %w", err)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO ohlc_days (symbol, trade_date, rows, written_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (symbol, trade_date) DO UPDATE SET rows = EXCLUDED.rows, written_at = EXCLUDED.written_at`,
		symbol, day, n); err != nil {
		return fmt.Errorf("mark day %s: %w", day.Format(time.DateOnly), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	w.metrics.RecordRows(database.TableBars, int(n))
	w.logger.Debug("bars stored",
		"symbol", symbol,
		"day", day.Format(time.DateOnly),
		"rows", n,
		"replaced", tag.RowsAffected(),
	)
	return nil
}

// barRows converts bars to CopyFrom rows in column order.
func barRows(symbol string, day time.Time, bars []model.Bar) [][]any {
	rows := make([][]any, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, []any{
			symbol, day, b.Timestamp, b.Time,
			numeric(b.Open), numeric(b.High), numeric(b.Low), numeric(b.Close), numeric(b.VWAP),
			b.Volume, b.OpenInterest,
		})
	}
	return rows
}
