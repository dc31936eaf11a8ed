package api

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/nifty-data/internal/model"
)

// BarTimeLayout is the layout of the /TPSeries "time" field.
const BarTimeLayout = "02-01-2006 15:04:05"

// IST is the exchange's wall clock, used to read bar times.
var IST = time.FixedZone("IST", 5*3600+30*60)

var errNoTimestamp = errors.New("no usable time or ssboe")

// BarTimestamp returns epoch seconds for a bar. The "time" text is read in
// IST; ssboe is used when time is missing or unparseable.
func BarTimestamp(timeText, ssboe string) (int64, error) {
	if timeText != "" {
		if t, err := time.ParseInLocation(BarTimeLayout, timeText, IST); err == nil {
			return t.Unix(), nil
		}
	}
	if ssboe != "" {
		if n, err := strconv.ParseInt(ssboe, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errNoTimestamp
}

// convertRow turns broker text into a Bar. OHLC are required; VWAP, volume
// and open interest default to zero when absent.
func convertRow(row tpRow) (model.Bar, error) {
	ts, err := BarTimestamp(row.Time, row.SSBOE.String())
	if err != nil {
		return model.Bar{}, err
	}

	bar := model.Bar{Timestamp: ts, Time: row.Time}

	required := []struct {
		name string
		in   Text
		out  *decimal.Decimal
	}{
		{"into", row.Open, &bar.Open},
		{"inth", row.High, &bar.High},
		{"intl", row.Low, &bar.Low},
		{"intc", row.Close, &bar.Close},
	}
	for _, f := range required {
		d, err := decimal.NewFromString(f.in.String())
		if err != nil {
			return model.Bar{}, fmt.Errorf("parse %s %q: %w", f.name, f.in, err)
		}
		*f.out = d
	}

	if s := row.VWAP.String(); s != "" {
		if bar.VWAP, err = decimal.NewFromString(s); err != nil {
			return model.Bar{}, fmt.Errorf("parse intvwap %q: %w", s, err)
		}
	}
	if bar.Volume, err = parseOptionalInt(row.Volume); err != nil {
		return model.Bar{}, fmt.Errorf("parse intv: %w", err)
	}
	if bar.OpenInterest, err = parseOptionalInt(row.OI); err != nil {
		return model.Bar{}, fmt.Errorf("parse intoi: %w", err)
	}
	return bar, nil
}

// parseOptionalInt parses an integer count, tolerating "" and a ".00" suffix.
func parseOptionalInt(t Text) (int64, error) {
	s := t.String()
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.IntPart(), nil
}
