package tick

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/nifty-data/internal/model"
)

var capturedAt = time.Date(2025, 10, 6, 9, 15, 0, 0, time.Local)

func str(s string) *string { return &s }

func assertEmptyLevel(t *testing.T, lvl model.DepthLevel) {
	t.Helper()
	assert.Nil(t, lvl.Price)
	assert.Nil(t, lvl.Quantity)
	assert.Nil(t, lvl.Orders)
}

func TestNormalize_Scenario(t *testing.T) {
	raw := Map{"ts": "NIFTY", "e": "NSE", "lp": "100.5", "bp1": "100.0", "bq1": "10"}

	got := Normalize(raw, capturedAt)

	assert.Equal(t, capturedAt, got.CapturedAt)
	assert.Equal(t, str("NIFTY"), got.Symbol)
	assert.Equal(t, str("NSE"), got.Exchange)
	assert.Equal(t, str("100.5"), got.LastTradedPrice)
	assert.Equal(t, model.DepthLevel{Price: str("100.0"), Quantity: str("10")}, got.MarketDepth.Buy[0])
	for i := 1; i < model.DepthLevels; i++ {
		assertEmptyLevel(t, got.MarketDepth.Buy[i])
	}
	for i := 0; i < model.DepthLevels; i++ {
		assertEmptyLevel(t, got.MarketDepth.Sell[i])
	}
	assert.Nil(t, got.Volume)
	assert.Nil(t, got.FeedTime)
}

func TestNormalize_EmptyMapping(t *testing.T) {
	got := Normalize(Map{}, capturedAt)

	assert.Equal(t, model.CanonicalTick{CapturedAt: capturedAt}, got)
	assert.Len(t, got.MarketDepth.Buy, 5)
	assert.Len(t, got.MarketDepth.Sell, 5)
}

func TestNormalize_FullDepth(t *testing.T) {
	raw := StringMap{}
	for i := 1; i <= 5; i++ {
		n := string(rune('0' + i))
		raw["bp"+n] = "10" + n
		raw["bq"+n] = "1" + n
		raw["bo"+n] = n
		raw["sp"+n] = "20" + n
		raw["sq"+n] = "2" + n
		raw["so"+n] = n
	}
	// Levels past the fifth are ignored.
	raw["bp6"] = "999"

	got := Normalize(raw, capturedAt)

	for i := 0; i < 5; i++ {
		n := string(rune('1' + i))
		assert.Equal(t, "10"+n, *got.MarketDepth.Buy[i].Price)
		assert.Equal(t, "1"+n, *got.MarketDepth.Buy[i].Quantity)
		assert.Equal(t, n, *got.MarketDepth.Buy[i].Orders)
		assert.Equal(t, "20"+n, *got.MarketDepth.Sell[i].Price)
		assert.Equal(t, "2"+n, *got.MarketDepth.Sell[i].Quantity)
	}
}

func TestNormalize_SparseDepthKeepsPositions(t *testing.T) {
	got := Normalize(StringMap{"sp3": "101.5", "bo5": "7"}, capturedAt)

	assertEmptyLevel(t, got.MarketDepth.Sell[0])
	assertEmptyLevel(t, got.MarketDepth.Sell[1])
	assert.Equal(t, str("101.5"), got.MarketDepth.Sell[2].Price)
	assert.Nil(t, got.MarketDepth.Sell[2].Quantity)
	assert.Equal(t, str("7"), got.MarketDepth.Buy[4].Orders)
}

func TestNormalize_KeyTable(t *testing.T) {
	raw := StringMap{
		"ts": "Nifty 50", "e": "NSE", "tk": "26000", "lp": "24850.10", "ltq": "75",
		"ltt": "09:15:03", "v": "1200", "ap": "24840.00", "o": "24800.00", "h": "24900.00",
		"l": "24790.00", "c": "24780.00", "tbq": "5000", "tsq": "6000", "pc": "0.28",
		"oi": "100", "poi": "90", "ft": "1759722303",
	}

	got := Normalize(raw, capturedAt)

	want := map[string]*string{
		"ts": got.Symbol, "e": got.Exchange, "tk": got.Token, "lp": got.LastTradedPrice,
		"ltq": got.LastTradeQty, "ltt": got.LastTradeTime, "v": got.Volume, "ap": got.AvgTradePrice,
		"o": got.Open, "h": got.High, "l": got.Low, "c": got.Close, "tbq": got.TotalBuyQty,
		"tsq": got.TotalSellQty, "pc": got.PercentChange, "oi": got.OpenInterest,
		"poi": got.PreviousDayOpenInterest, "ft": got.FeedTime,
	}
	for key, field := range want {
		require.NotNil(t, field, key)
		assert.Equal(t, raw[key], *field, key)
	}
}

func TestMap_Get(t *testing.T) {
	var decoded map[string]any
	dec := json.NewDecoder(strings.NewReader(`{"lp":"1.5","v":1200,"ap":24840.25,"x":true,"oi":null}`))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&decoded))
	m := Map(decoded)

	v, ok := m.Get("lp")
	assert.True(t, ok)
	assert.Equal(t, "1.5", v)

	v, ok = m.Get("v")
	assert.True(t, ok)
	assert.Equal(t, "1200", v)

	v, ok = m.Get("ap")
	assert.True(t, ok)
	assert.Equal(t, "24840.25", v)

	v, _ = m.Get("x")
	assert.Equal(t, "true", v)

	_, ok = m.Get("oi")
	assert.False(t, ok, "null is absent")

	_, ok = m.Get("missing")
	assert.False(t, ok)

	v, _ = Map{"f": 12.5}.Get("f")
	assert.Equal(t, "12.5", v)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		wantErr bool
	}{
		{"json object", map[string]any{"lp": "1"}, false},
		{"string map", map[string]string{"lp": "1"}, false},
		{"raw tick", StringMap{}, false},
		{"nil", nil, true},
		{"array", []any{"lp", "1"}, true},
		{"string", "lp=1", true},
		{"number", 42.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Parse(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedTick)
				assert.Nil(t, raw)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, raw)
		})
	}
}

func TestCanonicalTick_JSONNulls(t *testing.T) {
	data, err := json.Marshal(Normalize(Map{"lp": "100.5"}, capturedAt))
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "100.5", out["last_traded_price"])
	assert.Contains(t, out, "volume")
	assert.Nil(t, out["volume"])

	depth := out["market_depth"].(map[string]any)
	assert.Len(t, depth["buy"], 5)
	assert.Len(t, depth["sell"], 5)
}
