// Package feed drives the live tick stream: it authenticates, opens the
// broker stream, waits for the open signal, subscribes, and hands each
// normalized tick to a Consumer. Cleanup is best-effort and always runs.
package feed

import (
	"context"
	"errors"
	"time"

	"github.com/rickgao/nifty-data/internal/model"
)

// State is the controller's connection state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateSubscribed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateSubscribed:
		return "subscribed"
	default:
		return "unknown"
	}
}

var (
	// ErrAuthentication marks a login the broker rejected. Retrying will not help.
	ErrAuthentication = errors.New("authentication failed")
	ErrOpenTimeout    = errors.New("timed out waiting for feed open")
	ErrFeedClosed     = errors.New("feed closed")
	ErrNotConnected   = errors.New("feed not connected")
	ErrAlreadyUsed    = errors.New("controller already used")
)

// Handler receives stream lifecycle and data callbacks. Callbacks arrive
// from one goroutine, in order.
type Handler interface {
	OnOpen()
	OnTick(payload map[string]any)
	OnOrderUpdate(payload map[string]any)
	OnClose(err error)
}

// Stream is an open broker stream.
type Stream interface {
	Subscribe(keys []string, mode model.FeedMode) error
	Unsubscribe(keys []string, mode model.FeedMode) error
	SubscribeOrders() error
	Close() error
}

// Broker is the slice of the broker session the controller needs.
// Authenticate wraps ErrAuthentication when the broker rejects the login;
// any other error is treated as transient.
type Broker interface {
	Authenticate(ctx context.Context) error
	OpenStream(ctx context.Context, h Handler) (Stream, error)
	Logout(ctx context.Context) error
}

// Consumer receives normalized ticks and raw order events.
type Consumer interface {
	OnTick(tick model.CanonicalTick) error
	OnOrderEvent(event map[string]any) error
}

// Config configures a Controller.
type Config struct {
	Keys           []string       // Subscription keys, "EXCH|TOKEN"
	Mode           model.FeedMode // Touchline or depth
	OpenTimeout    time.Duration  // Bound on the wait for the open signal
	OrderUpdates   bool           // Also subscribe to order updates
	CleanupTimeout time.Duration  // Bound on Shutdown's broker calls when run from Run
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Mode:           model.FeedDepth,
		OpenTimeout:    30 * time.Second,
		CleanupTimeout: 10 * time.Second,
	}
}
