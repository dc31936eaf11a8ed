package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rickgao/nifty-data/internal/model"
)

// TimePriceSeries fetches bars via /TPSeries. A JSON array becomes a bar list
// (possibly empty); anything else becomes an Envelope. Rows that cannot be
// converted are dropped with a warning.
func (c *Client) TimePriceSeries(ctx context.Context, req TimePriceSeriesRequest) (model.BarSeries, error) {
	interval := req.IntervalMinutes
	if interval <= 0 {
		interval = 1
	}
	payload := tpSeriesPayload{
		UID:      c.Session().UserID,
		Exch:     req.Exchange,
		Token:    req.Token,
		Start:    strconv.FormatInt(req.Start.Unix(), 10),
		End:      strconv.FormatInt(req.End.Unix(), 10),
		Interval: strconv.Itoa(interval),
	}

	body, err := c.postRaw(ctx, "/TPSeries", payload, true)
	if err != nil {
		return model.BarSeries{}, fmt.Errorf("time price series %s|%s: %w", req.Exchange, req.Token, err)
	}

	return c.decodeSeries(body)
}

func (c *Client) decodeSeries(body []byte) (model.BarSeries, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return model.BarSeries{Envelope: decodeEnvelope(trimmed)}, nil
	}

	var rows []tpRow
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return model.BarSeries{}, fmt.Errorf("unmarshal time price series: %w", err)
	}

	bars := make([]model.Bar, 0, len(rows))
	for i, row := range rows {
		if row.Stat != "" && row.Stat != StatOK {
			c.logger.Warn("dropping bar with non-ok status", "index", i, "stat", row.Stat, "time", row.Time)
			continue
		}
		bar, err := convertRow(row)
		if err != nil {
			c.logger.Warn("dropping unconvertible bar", "index", i, "time", row.Time, "error", err)
			continue
		}
		bars = append(bars, bar)
	}
	return model.BarSeries{Bars: bars}, nil
}

// decodeEnvelope extracts stat/emsg from a non-list body; the raw text is
// kept for logging.
func decodeEnvelope(body []byte) *model.Envelope {
	env := &model.Envelope{Raw: string(body)}
	var status statusResponse
	if err := json.Unmarshal(body, &status); err == nil {
		env.Stat = status.Stat
		env.Message = status.Message
	}
	if env.Message == "" && len(body) == 0 {
		env.Message = "empty response"
	}
	return env
}
