// Package session binds one broker login to the REST client, the instrument
// registry and the websocket feed. A Session is the feed.Broker for live
// streaming and the backfill.BarSource for historical runs.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/nifty-data/internal/api"
	"github.com/rickgao/nifty-data/internal/auth"
	"github.com/rickgao/nifty-data/internal/connection"
	"github.com/rickgao/nifty-data/internal/feed"
	"github.com/rickgao/nifty-data/internal/market"
	"github.com/rickgao/nifty-data/internal/model"
	"github.com/rickgao/nifty-data/internal/router"
)

// DefaultFeedURL is the Shoonya production websocket endpoint.
const DefaultFeedURL = "wss://api.shoonya.com/NorenWSTP/"

// ErrLoginFailed is returned when the broker answers the login with a non-Ok status.
var ErrLoginFailed = fmt.Errorf("login rejected: %w", feed.ErrAuthentication)

// Config configures a Session.
type Config struct {
	FeedURL     string                  // Websocket endpoint
	Feed        connection.ClientConfig // Websocket tuning; URL is taken from FeedURL
	StopTimeout time.Duration           // Bound on stopping the router when a stream closes
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		FeedURL:     DefaultFeedURL,
		Feed:        connection.DefaultClientConfig(),
		StopTimeout: 5 * time.Second,
	}
}

// Session is one authenticated broker session.
type Session struct {
	cfg      Config
	client   *api.Client
	creds    auth.Credentials
	registry *market.Registry
	logger   *slog.Logger

	// Now is the clock used for the TOTP second factor.
	Now func() time.Time
}

var (
	_ feed.Broker = (*Session)(nil)
)

// New creates a Session over a REST client.
func New(cfg Config, client *api.Client, creds auth.Credentials, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FeedURL == "" {
		cfg.FeedURL = DefaultFeedURL
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultConfig().StopTimeout
	}
	return &Session{
		cfg:      cfg,
		client:   client,
		creds:    creds,
		registry: market.NewRegistry(client, logger),
		logger:   logger,
		Now:      time.Now,
	}
}

// Authenticate logs in with a fresh TOTP code.
func (s *Session) Authenticate(ctx context.Context) error {
	if err := s.creds.Validate(); err != nil {
		return fmt.Errorf("%w: %w", feed.ErrAuthentication, err)
	}
	factor2, err := s.creds.SecondFactor(s.Now())
	if err != nil {
		return fmt.Errorf("%w: second factor: %w", feed.ErrAuthentication, err)
	}

	result, err := s.client.Login(ctx, api.LoginRequest{
		UserID:     s.creds.UserID,
		Password:   s.creds.Password,
		Factor2:    factor2,
		VendorCode: s.creds.VendorCode,
		APISecret:  s.creds.APISecret,
		IMEI:       s.creds.IMEI,
	})
	if err != nil {
		return err
	}
	if !result.OK {
		return fmt.Errorf("%w: stat=%s: %s", ErrLoginFailed, result.Stat, result.Message)
	}

	s.logger.Info("logged in", "user", s.creds.UserID, "account", result.AccountID, "name", result.UserName)
	return nil
}

// Logout ends the broker session.
func (s *Session) Logout(ctx context.Context) error {
	result, err := s.client.Logout(ctx)
	if err != nil {
		return err
	}
	if !result.OK {
		return fmt.Errorf("logout: stat=%s: %s", result.Stat, result.Message)
	}
	return nil
}

// Resolve turns a search string into an instrument. Results are cached for
// the life of the Session.
func (s *Session) Resolve(ctx context.Context, exchange, text string) (model.Instrument, error) {
	return s.registry.Resolve(ctx, exchange, text)
}

// FetchBars fetches one window of bars for inst.
func (s *Session) FetchBars(ctx context.Context, inst model.Instrument, start, end time.Time, intervalMinutes int) (model.BarSeries, error) {
	return s.client.TimePriceSeries(ctx, api.TimePriceSeriesRequest{
		Exchange:        inst.Exchange,
		Token:           inst.Token,
		Start:           start,
		End:             end,
		IntervalMinutes: intervalMinutes,
	})
}

// OpenStream dials the feed, starts routing frames to h and sends the connect
// frame. h.OnOpen fires once the feed acknowledges the login.
func (s *Session) OpenStream(ctx context.Context, h feed.Handler) (feed.Stream, error) {
	sess := s.client.Session()
	if sess.Token == "" {
		return nil, api.ErrNotLoggedIn
	}

	ccfg := s.cfg.Feed
	ccfg.URL = s.cfg.FeedURL
	conn := connection.NewClient(ccfg, s.logger)
	if err := conn.Connect(ctx); err != nil {
		return nil, err
	}

	r := router.NewRouter(conn.Messages(), conn.Errors(), h, s.logger)
	// The stream outlives the dial context; only Close ends it.
	if err := r.Start(context.WithoutCancel(ctx)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("start router: %w", err)
	}

	st := &stream{
		feed:        connection.NewFeed(conn, s.logger),
		router:      r,
		accountID:   sess.AccountID,
		stopTimeout: s.cfg.StopTimeout,
	}
	if err := st.feed.Login(sess.UserID, sess.AccountID, sess.Token); err != nil {
		st.Close()
		return nil, fmt.Errorf("send feed login: %w", err)
	}
	s.logger.Debug("feed login sent", "url", s.cfg.FeedURL)
	return st, nil
}
