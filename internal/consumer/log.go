package consumer

import (
	"log/slog"

	"github.com/rickgao/nifty-data/internal/model"
)

// Log writes one structured line per tick.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a Log consumer.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) OnTick(t model.CanonicalTick) error {
	l.logger.Info("tick",
		"symbol", text(t.Symbol),
		"token", text(t.Token),
		"ltp", text(t.LastTradedPrice),
		"volume", text(t.Volume),
		"bid", text(t.MarketDepth.Buy[0].Price),
		"ask", text(t.MarketDepth.Sell[0].Price),
		"feed_time", text(t.FeedTime),
	)
	return nil
}

func (l *Log) OnOrderEvent(e map[string]any) error {
	l.logger.Info("order event",
		"order", e["norenordno"],
		"status", e["status"],
		"symbol", e["tsym"],
	)
	return nil
}

// text renders an optional field, empty when absent.
func text(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
