package sink

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/rickgao/nifty-data/internal/model"
)

// parquetBar is the on-disk row. Prices are doubles, as analysis tools expect.
type parquetBar struct {
	Timestamp    int64   `parquet:"timestamp"`
	Time         string  `parquet:"time"`
	Open         float64 `parquet:"open"`
	High         float64 `parquet:"high"`
	Low          float64 `parquet:"low"`
	Close        float64 `parquet:"close"`
	VWAP         float64 `parquet:"vwap"`
	Volume       int64   `parquet:"volume"`
	OpenInterest int64   `parquet:"open_interest"`
}

// Parquet writes each day to a Parquet file under Dir.
type Parquet struct {
	Dir    string
	Logger *slog.Logger
}

// NewParquet creates a Parquet sink.
func NewParquet(dir string, logger *slog.Logger) *Parquet {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parquet{Dir: dir, Logger: logger}
}

// Path returns the file a day is written to.
func (p *Parquet) Path(symbol string, date time.Time) string {
	return filepath.Join(p.Dir, FileName(symbol, date, "parquet"))
}

// WriteDay writes bars, replacing any previous file for the day.
func (p *Parquet) WriteDay(ctx context.Context, symbol string, date time.Time, bars []model.Bar) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rows := make([]parquetBar, len(bars))
	for i, b := range bars {
		rows[i] = parquetBar{
			Timestamp:    b.Timestamp,
			Time:         b.Time,
			Open:         b.Open.InexactFloat64(),
			High:         b.High.InexactFloat64(),
			Low:          b.Low.InexactFloat64(),
			Close:        b.Close.InexactFloat64(),
			VWAP:         b.VWAP.InexactFloat64(),
			Volume:       b.Volume,
			OpenInterest: b.OpenInterest,
		}
	}

	name := FileName(symbol, date, "parquet")
	err := writeAtomic(p.Dir, name, func(w io.Writer) error {
		pw := parquet.NewGenericWriter[parquetBar](w)
		if _, err := pw.Write(rows); err != nil {
			return fmt.Errorf("write parquet rows: %w", err)
		}
		if err := pw.Close(); err != nil {
			return fmt.Errorf("close parquet writer: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	p.Logger.Debug("wrote parquet file", "path", filepath.Join(p.Dir, name), "rows", len(rows))
	return nil
}
