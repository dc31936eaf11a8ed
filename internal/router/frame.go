package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Frame types sent by the Noren websocket feed.
const (
	TypeConnectAck     = "ck"  // login acknowledgement, s=OK on success
	TypeTouchlineAck   = "tk"  // touchline subscribe ack, carries a full snapshot
	TypeTouchline      = "tf"  // touchline update
	TypeDepthAck       = "dk"  // depth subscribe ack, carries a full snapshot
	TypeDepth          = "df"  // depth update
	TypeOrderUpdate    = "om"  // order update
	TypeOrderAck       = "ok"  // order subscription ack
	TypeUnsubTouchAck  = "uk"  // touchline unsubscribe ack
	TypeUnsubDepthAck  = "udk" // depth unsubscribe ack
	TypeHeartbeatReply = "h"
)

// Kind groups frame types by how the stream handles them.
type Kind int

const (
	KindUnknown Kind = iota
	KindOpen
	KindTick
	KindOrder
	KindAck
)

func (k Kind) String() string {
	switch k {
	case KindOpen:
		return "open"
	case KindTick:
		return "tick"
	case KindOrder:
		return "order"
	case KindAck:
		return "ack"
	default:
		return "unknown"
	}
}

// ErrMalformedFrame is returned for frames that are not a JSON object.
var ErrMalformedFrame = errors.New("malformed frame")

// Frame is one decoded websocket message.
type Frame struct {
	Type       string
	Kind       Kind
	Payload    map[string]any
	ReceivedAt time.Time
}

// Status returns the "s" field, used by acks.
func (f Frame) Status() string {
	s, _ := f.Payload["s"].(string)
	return s
}

// ConnectOK reports whether a connect ack accepted the session.
func (f Frame) ConnectOK() bool {
	return f.Type == TypeConnectAck && strings.EqualFold(f.Status(), "OK")
}

// Classify decodes a frame and assigns its Kind. Numbers are kept as
// json.Number so broker text like "100.50" round-trips untouched.
func Classify(data []byte) (Frame, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if payload == nil {
		return Frame{}, fmt.Errorf("%w: not an object", ErrMalformedFrame)
	}

	typ, _ := payload["t"].(string)
	return Frame{Type: typ, Kind: kindOf(typ), Payload: payload}, nil
}

func kindOf(typ string) Kind {
	switch typ {
	case TypeConnectAck:
		return KindOpen
	case TypeTouchlineAck, TypeTouchline, TypeDepthAck, TypeDepth:
		return KindTick
	case TypeOrderUpdate:
		return KindOrder
	case TypeOrderAck, TypeUnsubTouchAck, TypeUnsubDepthAck, TypeHeartbeatReply:
		return KindAck
	default:
		return KindUnknown
	}
}
