// Package tick normalizes broker tick payloads into model.CanonicalTick.
//
// Normalization is total: a missing key yields a nil field and never an error.
// Only a payload that is not a key/value mapping at all is rejected.
package tick

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rickgao/nifty-data/internal/model"
)

// ErrMalformedTick is returned for payloads that are not key/value mappings.
var ErrMalformedTick = errors.New("malformed tick: not a mapping")

// RawTick is a broker tick readable by key. ok is false when the key is absent.
type RawTick interface {
	Get(key string) (value string, ok bool)
}

// Map adapts a decoded JSON object to RawTick.
type Map map[string]any

// Get returns the value for key rendered as text. JSON null counts as absent.
func (m Map) Get(key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return fmt.Sprint(x), true
	}
}

// StringMap adapts a map of text values to RawTick.
type StringMap map[string]string

// Get returns the value for key.
func (m StringMap) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Parse wraps a decoded payload as a RawTick.
func Parse(v any) (RawTick, error) {
	switch x := v.(type) {
	case RawTick:
		return x, nil
	case map[string]any:
		return Map(x), nil
	case map[string]string:
		return StringMap(x), nil
	default:
		return nil, fmt.Errorf("%w (got %T)", ErrMalformedTick, v)
	}
}

// Normalize maps raw into a canonical tick captured at capturedAt.
func Normalize(raw RawTick, capturedAt time.Time) model.CanonicalTick {
	get := func(key string) *string {
		v, ok := raw.Get(key)
		if !ok {
			return nil
		}
		return &v
	}

	t := model.CanonicalTick{
		CapturedAt:              capturedAt,
		Symbol:                  get("ts"),
		Exchange:                get("e"),
		Token:                   get("tk"),
		LastTradedPrice:         get("lp"),
		LastTradeQty:            get("ltq"),
		LastTradeTime:           get("ltt"),
		Volume:                  get("v"),
		AvgTradePrice:           get("ap"),
		Open:                    get("o"),
		High:                    get("h"),
		Low:                     get("l"),
		Close:                   get("c"),
		TotalBuyQty:             get("tbq"),
		TotalSellQty:            get("tsq"),
		PercentChange:           get("pc"),
		OpenInterest:            get("oi"),
		PreviousDayOpenInterest: get("poi"),
		FeedTime:                get("ft"),
	}

	for i := 0; i < model.DepthLevels; i++ {
		n := strconv.Itoa(i + 1)
		t.MarketDepth.Buy[i] = model.DepthLevel{
			Price:    get("bp" + n),
			Quantity: get("bq" + n),
			Orders:   get("bo" + n),
		}
		t.MarketDepth.Sell[i] = model.DepthLevel{
			Price:    get("sp" + n),
			Quantity: get("sq" + n),
			Orders:   get("so" + n),
		}
	}

	return t
}
