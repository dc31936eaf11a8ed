package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Reference Types
// -----------------------------------------------------------------------------

// Instrument is the single canonical instrument of a run, resolved once from a
// human search string.
type Instrument struct {
	SearchText  string // Operator input (e.g., "NIFTY INDEX")
	Exchange    string // Exchange segment (e.g., "NSE")
	Token       string // Broker instrument token (e.g., "26000")
	DisplayName string // Broker trading symbol (e.g., "Nifty 50")
}

// Key returns the feed subscription key in EXCHANGE|TOKEN form.
func (i Instrument) Key() string {
	return i.Exchange + "|" + i.Token
}

// FeedMode selects how much of the book a feed subscription carries.
type FeedMode string

const (
	FeedTouchline FeedMode = "touchline"
	FeedDepth     FeedMode = "depth"
)

// -----------------------------------------------------------------------------
// Historical Types
// -----------------------------------------------------------------------------

// Bar is one OHLC candle. Timestamp is unique within a persisted day.
type Bar struct {
	Timestamp    int64           // Candle open (seconds since epoch)
	Time         string          // Broker wall-clock text (e.g., "02-06-2025 09:15:00")
	Open         decimal.Decimal // Open price
	High         decimal.Decimal // High price
	Low          decimal.Decimal // Low price
	Close        decimal.Decimal // Close price
	VWAP         decimal.Decimal // Interval VWAP (zero when not sent)
	Volume       int64           // Interval volume
	OpenInterest int64           // Interval open interest
}

// Envelope is a broker status object returned in place of data.
type Envelope struct {
	Stat    string // e.g. "Not_Ok"
	Message string // Broker "emsg"
	Raw     string // Response body as received
}

// BarSeries is the result of a historical bar query: either a list of bars
// (possibly empty) or an envelope when the broker did not answer with a list.
type BarSeries struct {
	Bars     []Bar
	Envelope *Envelope
}

// IsList reports whether the broker answered with a bar list.
func (s BarSeries) IsList() bool {
	return s.Envelope == nil
}

// -----------------------------------------------------------------------------
// Live Types
// -----------------------------------------------------------------------------

// DepthLevels is the number of ranked price levels on each side of the book.
const DepthLevels = 5

// DepthLevel is one ranked price level. Fields are nil when the broker omitted them.
type DepthLevel struct {
	Price    *string `json:"price"`
	Quantity *string `json:"quantity"`
	Orders   *string `json:"orders"`
}

// MarketDepth holds the best five bid and ask levels, best price first.
type MarketDepth struct {
	Buy  [DepthLevels]DepthLevel `json:"buy"`
	Sell [DepthLevels]DepthLevel `json:"sell"`
}

// CanonicalTick is the broker-independent form of a live tick. Every scalar is
// nullable; values are passed through as text without numeric validation.
type CanonicalTick struct {
	CapturedAt              time.Time   `json:"captured_at"` // Local wall clock at normalization
	Symbol                  *string     `json:"symbol"`
	Exchange                *string     `json:"exchange"`
	Token                   *string     `json:"token"`
	LastTradedPrice         *string     `json:"last_traded_price"`
	LastTradeQty            *string     `json:"last_trade_qty"`
	LastTradeTime           *string     `json:"last_trade_time"`
	Volume                  *string     `json:"volume"`
	AvgTradePrice           *string     `json:"avg_trade_price"`
	Open                    *string     `json:"open"`
	High                    *string     `json:"high"`
	Low                     *string     `json:"low"`
	Close                   *string     `json:"close"`
	TotalBuyQty             *string     `json:"total_buy_qty"`
	TotalSellQty            *string     `json:"total_sell_qty"`
	MarketDepth             MarketDepth `json:"market_depth"`
	PercentChange           *string     `json:"percent_change"`
	OpenInterest            *string     `json:"open_interest"`
	PreviousDayOpenInterest *string     `json:"previous_day_oi"`
	FeedTime                *string     `json:"feed_time"`
}
