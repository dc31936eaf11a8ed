package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no heartbeat reply)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// HeartbeatPayload is the body of the ping control frames the Noren feed expects.
const HeartbeatPayload = `{"t":"h"}`

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// Frame type codes sent by the client.
const (
	TypeConnect            = "c"
	TypeSubscribeTouchline = "t"
	TypeSubscribeDepth     = "d"
	TypeUnsubTouchline     = "u"
	TypeUnsubDepth         = "ud"
	TypeSubscribeOrders    = "o"
)

// ConnectMessage logs a websocket session in with a REST session token.
type ConnectMessage struct {
	T          string `json:"t"`
	UID        string `json:"uid"`
	ActID      string `json:"actid"`
	SUserToken string `json:"susertoken"`
	Source     string `json:"source"`
}

// SubscriptionMessage subscribes or unsubscribes a "#"-joined list of EXCH|TOKEN keys.
type SubscriptionMessage struct {
	T string `json:"t"`
	K string `json:"k"`
}

// OrderSubscriptionMessage subscribes to order updates for an account.
type OrderSubscriptionMessage struct {
	T     string `json:"t"`
	ActID string `json:"actid"`
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL               string        // WebSocket URL (e.g., wss://api.shoonya.com/NorenWSTP/)
	HeartbeatInterval time.Duration // How often to send a heartbeat ping
	PingTimeout       time.Duration // Max time without any frame before considering connection stale
	WriteTimeout      time.Duration // Write deadline for sends
	HandshakeTimeout  time.Duration // Dial handshake deadline
	BufferSize        int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HeartbeatInterval: 3 * time.Second,
		PingTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		BufferSize:        10000,
	}
}
