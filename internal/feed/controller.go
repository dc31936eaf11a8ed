package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/nifty-data/internal/metrics"
	"github.com/rickgao/nifty-data/internal/tick"
)

// Controller is a single-use live feed session. It implements Handler so a
// Broker can deliver stream callbacks to it.
type Controller struct {
	cfg        Config
	broker     Broker
	consumer   Consumer
	now        func() time.Time
	metrics    *metrics.Metrics
	logger     *slog.Logger

	opened   chan struct{}
	openOnce sync.Once

	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error

	mu            sync.Mutex
	state         State
	stream        Stream
	used          bool
	authenticated bool
	shutdown      bool
}

// NewController creates a Controller.
func NewController(cfg Config, broker Broker, consumer Consumer, m *metrics.Metrics, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Mode == "" {
		cfg.Mode = def.Mode
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	if cfg.CleanupTimeout <= 0 {
		cfg.CleanupTimeout = def.CleanupTimeout
	}
	return &Controller{
		cfg:        cfg,
		broker:     broker,
		consumer:   consumer,
		now:        time.Now,
		metrics:    m,
		logger:     logger,
		opened:     make(chan struct{}),
		closed:     make(chan struct{}),
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Closed is closed once the stream reports OnClose.
func (c *Controller) Closed() <-chan struct{} {
	return c.closed
}

// Run connects and then blocks until ctx is cancelled (returns nil) or the
// feed closes (returns ErrFeedClosed). Shutdown always runs before Run returns.
func (c *Controller) Run(ctx context.Context) error {
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.CleanupTimeout)
		defer cancel()
		c.Shutdown(cleanupCtx)
	}()

	if err := c.Connect(ctx); err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			c.logger.Info("stopped while connecting")
			return nil
		}
		return err
	}

	select {
	case <-ctx.Done():
		c.logger.Info("stop requested, shutting down feed")
		return nil
	case <-c.closed:
		return c.closedError()
	}
}

// Connect authenticates, opens the stream, waits for the open signal and
// subscribes. A subscribe failure is logged and leaves the controller
// Connected with a nil error; call Subscribe to retry. On error the caller
// should still call Shutdown.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.used {
		c.mu.Unlock()
		return ErrAlreadyUsed
	}
	c.used = true
	c.mu.Unlock()

	if err := c.broker.Authenticate(ctx); err != nil {
		if errors.Is(err, ErrAuthentication) {
			c.logger.Error("login rejected", "error", err)
			return err
		}
		c.logger.Warn("login failed", "error", err)
		return fmt.Errorf("login: %w", err)
	}
	c.mu.Lock()
	c.authenticated = true
	c.mu.Unlock()

	c.setState(StateConnecting)

	stream, err := c.broker.OpenStream(ctx, c)
	if err != nil {
		c.setState(StateDisconnected)
		return fmt.Errorf("open stream: %w", err)
	}
	c.mu.Lock()
	c.stream = stream
	c.mu.Unlock()

	timer := time.NewTimer(c.cfg.OpenTimeout)
	defer timer.Stop()

	select {
	case <-c.opened:
	case <-c.closed:
		return c.closedError()
	case <-timer.C:
		c.logger.Error("feed did not open in time", "timeout", c.cfg.OpenTimeout)
		return fmt.Errorf("%w after %s", ErrOpenTimeout, c.cfg.OpenTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.Lock()
	if c.state != StateConnecting {
		// OnClose raced the open signal.
		c.mu.Unlock()
		return c.closedError()
	}
	c.mu.Unlock()
	c.setState(StateConnected)
	c.logger.Info("feed open")

	if c.cfg.OrderUpdates {
		if err := stream.SubscribeOrders(); err != nil {
			c.logger.Warn("order update subscription failed", "error", err)
		} else {
			c.logger.Info("subscribed to order updates")
		}
	}

	if err := c.Subscribe(); err != nil {
		c.logger.Warn("subscribe failed, feed stays connected", "keys", c.cfg.Keys, "error", err)
	}
	return nil
}

// Subscribe subscribes the configured keys. It is valid in Connected; in
// Subscribed it is a no-op.
func (c *Controller) Subscribe() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateSubscribed:
		return nil
	case StateConnected:
	default:
		return fmt.Errorf("%w: state %s", ErrNotConnected, c.state)
	}

	if err := c.stream.Subscribe(c.cfg.Keys, c.cfg.Mode); err != nil {
		return err
	}
	c.setStateLocked(StateSubscribed)
	c.logger.Info("subscribed", "keys", c.cfg.Keys, "mode", c.cfg.Mode)
	return nil
}

// Shutdown unsubscribes, closes the stream and logs out. Every failure is
// logged and swallowed. Calling it again is a no-op.
func (c *Controller) Shutdown(ctx context.Context) {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return
	}
	c.shutdown = true
	stream := c.stream
	subscribed := c.state == StateSubscribed
	authenticated := c.authenticated
	c.mu.Unlock()

	if stream != nil {
		if subscribed {
			if err := stream.Unsubscribe(c.cfg.Keys, c.cfg.Mode); err != nil {
				c.logger.Warn("unsubscribe failed", "error", err)
			}
		}
		if err := stream.Close(); err != nil {
			c.logger.Warn("close stream failed", "error", err)
		}
	}

	if authenticated {
		if err := c.broker.Logout(ctx); err != nil {
			c.logger.Warn("logout failed", "error", err)
		} else {
			c.logger.Info("logged out")
		}
	}

	c.setState(StateDisconnected)
}

// OnOpen is called by the stream once the feed accepted the session.
func (c *Controller) OnOpen() {
	c.openOnce.Do(func() { close(c.opened) })
}

// OnTick normalizes a tick payload and hands it to the consumer. Ticks
// outside Subscribed and consumer errors are logged and do not stop the stream.
func (c *Controller) OnTick(payload map[string]any) {
	if st := c.State(); st != StateSubscribed {
		c.logger.Debug("tick outside subscribed state dropped", "state", st)
		return
	}

	t := tick.Normalize(tick.Map(payload), c.now())
	c.metrics.RecordTick()

	if err := c.consumer.OnTick(t); err != nil {
		c.metrics.RecordConsumerError()
		c.logger.Error("consumer failed on tick", "error", err)
	}
}

// OnMalformed counts a frame the stream could not decode. It is skipped.
func (c *Controller) OnMalformed(err error) {
	c.metrics.RecordMalformedTick()
	c.logger.Debug("malformed frame skipped", "error", err)
}

// OnOrderUpdate logs an order update and forwards it to the consumer.
func (c *Controller) OnOrderUpdate(payload map[string]any) {
	c.metrics.RecordOrderEvent()
	c.logger.Info("order update",
		"order", payload["norenordno"],
		"status", payload["status"],
		"report", payload["reporttype"],
	)
	if err := c.consumer.OnOrderEvent(payload); err != nil {
		c.metrics.RecordConsumerError()
		c.logger.Error("consumer failed on order event", "error", err)
	}
}

// OnClose records the close from any state.
func (c *Controller) OnClose(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closeErr = err
		c.setStateLocked(StateDisconnected)
		c.mu.Unlock()

		if err != nil {
			c.logger.Warn("feed closed", "error", err)
		} else {
			c.logger.Info("feed closed")
		}
		close(c.closed)
	})
}

func (c *Controller) closedError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeErr != nil {
		return fmt.Errorf("%w: %w", ErrFeedClosed, c.closeErr)
	}
	return ErrFeedClosed
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.setStateLocked(s)
	c.mu.Unlock()
}

func (c *Controller) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.logger.Debug("feed state", "from", c.state, "to", s)
	c.state = s
	c.metrics.SetFeedState(int(s))
}
