package sink

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/rickgao/nifty-data/internal/model"
)

// csvBar is the on-disk row. Prices are exact decimal text.
type csvBar struct {
	Timestamp    int64  `csv:"timestamp"`
	Time         string `csv:"time"`
	Open         string `csv:"open"`
	High         string `csv:"high"`
	Low          string `csv:"low"`
	Close        string `csv:"close"`
	VWAP         string `csv:"vwap"`
	Volume       int64  `csv:"volume"`
	OpenInterest int64  `csv:"open_interest"`
}

// CSV writes each day to a CSV file under Dir.
type CSV struct {
	Dir    string
	Logger *slog.Logger
}

// NewCSV creates a CSV sink.
func NewCSV(dir string, logger *slog.Logger) *CSV {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSV{Dir: dir, Logger: logger}
}

// Path returns the file a day is written to.
func (c *CSV) Path(symbol string, date time.Time) string {
	return filepath.Join(c.Dir, FileName(symbol, date, "csv"))
}

// WriteDay writes bars with a header row, replacing any previous file for the day.
func (c *CSV) WriteDay(ctx context.Context, symbol string, date time.Time, bars []model.Bar) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rows := make([]*csvBar, len(bars))
	for i, b := range bars {
		rows[i] = &csvBar{
			Timestamp:    b.Timestamp,
			Time:         b.Time,
			Open:         b.Open.String(),
			High:         b.High.String(),
			Low:          b.Low.String(),
			Close:        b.Close.String(),
			VWAP:         b.VWAP.String(),
			Volume:       b.Volume,
			OpenInterest: b.OpenInterest,
		}
	}

	name := FileName(symbol, date, "csv")
	err := writeAtomic(c.Dir, name, func(w io.Writer) error {
		if err := gocsv.Marshal(&rows, w); err != nil {
			return fmt.Errorf("marshal csv: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.Logger.Debug("wrote csv file", "path", filepath.Join(c.Dir, name), "rows", len(rows))
	return nil
}
