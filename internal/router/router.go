package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rickgao/nifty-data/internal/connection"
)

var (
	// ErrConnectRejected is passed to OnClose when the feed refuses the login frame.
	ErrConnectRejected = errors.New("feed connect rejected")

	// ErrInputClosed is passed to OnClose when the connection stopped without an error.
	ErrInputClosed = errors.New("feed input closed")
)

// Handler receives classified frames. Calls are made from a single goroutine,
// in arrival order, and OnClose is called at most once.
type Handler interface {
	OnOpen()
	OnTick(payload map[string]any)
	OnOrderUpdate(payload map[string]any)
	OnClose(err error)
}

// MalformedHandler is an optional Handler extension told about frames that
// could not be decoded. Routing continues after the call.
type MalformedHandler interface {
	OnMalformed(err error)
}

// Router reads raw websocket messages, classifies them and invokes a Handler.
type Router interface {
	// Start begins routing messages to the handler.
	Start(ctx context.Context) error

	// Stop halts routing and waits for the routing goroutine to exit.
	Stop(ctx context.Context) error

	// Stats returns current router statistics.
	Stats() RouterStats
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	MessagesReceived int64
	Ticks            int64
	OrderUpdates     int64
	Acks             int64
	ParseErrors      int64
	UnknownMessages  int64
}

type router struct {
	logger  *slog.Logger
	handler Handler

	input <-chan connection.TimestampedMessage
	errs  <-chan error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.RWMutex
	stats RouterStats
}

// NewRouter creates a Router over a connection's message and error channels.
func NewRouter(input <-chan connection.TimestampedMessage, errs <-chan error, handler Handler, logger *slog.Logger) Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &router{
		logger:  logger,
		handler: handler,
		input:   input,
		errs:    errs,
	}
}

// Start begins routing messages.
func (r *router) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.routeLoop()

	r.logger.Debug("feed router started")
	return nil
}

// Stop halts routing. The handler's OnClose is not called for a local stop
// unless the input closed first.
func (r *router) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Debug("feed router stopped")
		return nil
	case <-ctx.Done():
		r.logger.Warn("feed router stop timed out")
		return ctx.Err()
	}
}

// Stats returns current statistics.
func (r *router) Stats() RouterStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

func (r *router) routeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case err := <-r.errs:
			r.logger.Warn("feed connection error", "error", err)
			r.handler.OnClose(err)
			return
		case msg, ok := <-r.input:
			if !ok {
				// The reader reports its error before closing the channel.
				select {
				case err := <-r.errs:
					r.handler.OnClose(err)
				default:
					r.handler.OnClose(ErrInputClosed)
				}
				return
			}
			if !r.route(msg) {
				return
			}
		}
	}
}

// route handles one message and reports whether routing should continue.
func (r *router) route(msg connection.TimestampedMessage) bool {
	r.count(func(s *RouterStats) { s.MessagesReceived++ })

	frame, err := Classify(msg.Data)
	if err != nil {
		r.logger.Warn("failed to decode feed frame", "error", err)
		r.count(func(s *RouterStats) { s.ParseErrors++ })
		if mh, ok := r.handler.(MalformedHandler); ok {
			mh.OnMalformed(err)
		}
		return true
	}
	frame.ReceivedAt = msg.ReceivedAt

	switch frame.Kind {
	case KindOpen:
		if !frame.ConnectOK() {
			r.handler.OnClose(fmt.Errorf("%w: status %q", ErrConnectRejected, frame.Status()))
			return false
		}
		r.handler.OnOpen()

	case KindTick:
		r.count(func(s *RouterStats) { s.Ticks++ })
		r.handler.OnTick(frame.Payload)

	case KindOrder:
		r.count(func(s *RouterStats) { s.OrderUpdates++ })
		r.handler.OnOrderUpdate(frame.Payload)

	case KindAck:
		r.count(func(s *RouterStats) { s.Acks++ })
		r.logger.Debug("feed ack", "type", frame.Type, "status", frame.Status())

	default:
		r.count(func(s *RouterStats) { s.UnknownMessages++ })
		r.logger.Debug("skipping frame type", "type", frame.Type)
	}
	return true
}

func (r *router) count(f func(*RouterStats)) {
	r.mu.Lock()
	f(&r.stats)
	r.mu.Unlock()
}
