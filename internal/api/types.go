package api

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Broker status values.
const (
	StatOK    = "Ok"
	StatNotOK = "Not_Ok"
)

// Text is a broker field that may arrive as a JSON string or number. It
// keeps the original text either way.
type Text string

// UnmarshalJSON accepts strings, numbers and null.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = Text(n)
	return nil
}

func (t Text) String() string { return strings.TrimSpace(string(t)) }

// statusResponse is the envelope every Noren response carries.
type statusResponse struct {
	Stat        string `json:"stat"`
	Message     string `json:"emsg"`
	RequestTime string `json:"request_time"`
}

// StatusResult is the outcome of a call that only reports a status.
type StatusResult struct {
	OK          bool
	Stat        string
	Message     string
	RequestTime string
}

func (s statusResponse) result() StatusResult {
	return StatusResult{
		OK:          s.Stat == StatOK,
		Stat:        s.Stat,
		Message:     s.Message,
		RequestTime: s.RequestTime,
	}
}

// LoginRequest carries plain-text login material. Login hashes the password
// and derives the app key itself.
type LoginRequest struct {
	UserID     string
	Password   string
	Factor2    string // TOTP code
	VendorCode string
	APISecret  string
	IMEI       string
}

type quickAuthPayload struct {
	Source     string `json:"source"`
	APKVersion string `json:"apkversion"`
	UID        string `json:"uid"`
	Pwd        string `json:"pwd"`
	Factor2    string `json:"factor2"`
	VC         string `json:"vc"`
	AppKey     string `json:"appkey"`
	IMEI       string `json:"imei"`
}

type quickAuthResponse struct {
	statusResponse
	SUserToken string `json:"susertoken"`
	ActID      string `json:"actid"`
	UName      string `json:"uname"`
}

// LoginResult is the outcome of Login. A rejected login is a result with
// OK == false, not an error.
type LoginResult struct {
	OK        bool
	Stat      string
	Message   string
	Token     string
	AccountID string
	UserName  string
}

type searchScripPayload struct {
	UID   string `json:"uid"`
	Exch  string `json:"exch"`
	SText string `json:"stext"`
}

// Scrip is one search match.
type Scrip struct {
	Exchange      string `json:"exch"`
	Token         string `json:"token"`
	TradingSymbol string `json:"tsym"`
	Symbol        string `json:"symname"`
	CompanyName   string `json:"cname"`
	Instrument    string `json:"instname"`
	LotSize       Text   `json:"ls"`
	TickSize      Text   `json:"ti"`
}

// DisplayName returns the trading symbol, falling back to the symbol name.
func (s Scrip) DisplayName() string {
	if s.TradingSymbol != "" {
		return s.TradingSymbol
	}
	return s.Symbol
}

type searchScripResponse struct {
	statusResponse
	Values []Scrip `json:"values"`
}

// SearchResult is the outcome of SearchScrip.
type SearchResult struct {
	OK      bool
	Stat    string
	Message string
	Values  []Scrip
}

type logoutPayload struct {
	OrderSource string `json:"ordersource"`
	UID         string `json:"uid"`
}

// TimePriceSeriesRequest asks for bars of one instrument between Start and End.
type TimePriceSeriesRequest struct {
	Exchange        string
	Token           string
	Start           time.Time
	End             time.Time
	IntervalMinutes int
}

type tpSeriesPayload struct {
	UID      string `json:"uid"`
	Exch     string `json:"exch"`
	Token    string `json:"token"`
	Start    string `json:"st"`
	End      string `json:"et"`
	Interval string `json:"intrv"`
}

// tpRow is one /TPSeries element. All values are broker text.
type tpRow struct {
	Stat   string `json:"stat"`
	Time   string `json:"time"`
	SSBOE  Text   `json:"ssboe"`
	Open   Text   `json:"into"`
	High   Text   `json:"inth"`
	Low    Text   `json:"intl"`
	Close  Text   `json:"intc"`
	VWAP   Text   `json:"intvwap"`
	Volume Text   `json:"intv"`
	OI     Text   `json:"intoi"`
}
