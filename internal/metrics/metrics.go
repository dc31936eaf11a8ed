package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Day outcomes recorded by the backfill.
const (
	DayWritten = "written"
	DayEmpty   = "empty"
	DaySkipped = "skipped"
)

// Metrics contains the Prometheus collectors for both ingestion paths.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Backfill
	Days        *prometheus.CounterVec
	BarsWritten prometheus.Counter
	BarsDropped prometheus.Counter

	// Live feed
	FeedState      prometheus.Gauge
	Ticks          prometheus.Counter
	TicksMalformed prometheus.Counter
	OrderEvents    prometheus.Counter
	ConsumerErrors prometheus.Counter
	Reconnects     prometheus.Counter

	// Writers
	RowsWritten *prometheus.CounterVec
	WriteErrors *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Days: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nifty_backfill_days_total",
			Help: "Trading days attempted by the backfill, by outcome",
		}, []string{"outcome"}),
		BarsWritten: f.NewCounter(prometheus.CounterOpts{
			Name: "nifty_backfill_bars_written_total",
			Help: "Bars handed to the sink after deduplication",
		}),
		BarsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "nifty_backfill_bars_duplicate_total",
			Help: "Bars removed by timestamp deduplication",
		}),
		FeedState: f.NewGauge(prometheus.GaugeOpts{
			Name: "nifty_feed_state",
			Help: "Live feed state (0 disconnected, 1 connecting, 2 connected, 3 subscribed)",
		}),
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Name: "nifty_feed_ticks_total",
			Help: "Ticks normalized and delivered to the consumer",
		}),
		TicksMalformed: f.NewCounter(prometheus.CounterOpts{
			Name: "nifty_feed_ticks_malformed_total",
			Help: "Feed frames skipped because they could not be decoded",
		}),
		OrderEvents: f.NewCounter(prometheus.CounterOpts{
			Name: "nifty_feed_order_events_total",
			Help: "Order update events received",
		}),
		ConsumerErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "nifty_feed_consumer_errors_total",
			Help: "Consumer delivery failures",
		}),
		Reconnects: f.NewCounter(prometheus.CounterOpts{
			Name: "nifty_feed_reconnects_total",
			Help: "Feed reconnect attempts",
		}),
		RowsWritten: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nifty_writer_rows_total",
			Help: "Rows persisted by writer and table",
		}, []string{"table"}),
		WriteErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nifty_writer_errors_total",
			Help: "Failed writes by table",
		}, []string{"table"}),
	}
}

// Handler serves the collectors registered with g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordDay counts one backfill day with the given outcome.
func (m *Metrics) RecordDay(outcome string, bars, dropped int) {
	if m == nil {
		return
	}
	m.Days.WithLabelValues(outcome).Inc()
	m.BarsWritten.Add(float64(bars))
	m.BarsDropped.Add(float64(dropped))
}

// SetFeedState records the controller state ordinal.
func (m *Metrics) SetFeedState(state int) {
	if m == nil {
		return
	}
	m.FeedState.Set(float64(state))
}

// RecordTick counts a delivered tick.
func (m *Metrics) RecordTick() {
	if m == nil {
		return
	}
	m.Ticks.Inc()
}

// RecordMalformedTick counts a feed frame that could not be decoded.
func (m *Metrics) RecordMalformedTick() {
	if m == nil {
		return
	}
	m.TicksMalformed.Inc()
}

// RecordOrderEvent counts an order update.
func (m *Metrics) RecordOrderEvent() {
	if m == nil {
		return
	}
	m.OrderEvents.Inc()
}

// RecordConsumerError counts a failed delivery.
func (m *Metrics) RecordConsumerError() {
	if m == nil {
		return
	}
	m.ConsumerErrors.Inc()
}

// RecordReconnect counts a reconnect attempt.
func (m *Metrics) RecordReconnect() {
	if m == nil {
		return
	}
	m.Reconnects.Inc()
}

// RecordRows counts persisted rows for table.
func (m *Metrics) RecordRows(table string, n int) {
	if m == nil {
		return
	}
	m.RowsWritten.WithLabelValues(table).Add(float64(n))
}

// RecordWriteError counts a failed write for table.
func (m *Metrics) RecordWriteError(table string) {
	if m == nil {
		return
	}
	m.WriteErrors.WithLabelValues(table).Inc()
}
