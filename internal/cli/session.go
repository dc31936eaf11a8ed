package cli

import (
	"log/slog"

	"github.com/rickgao/nifty-data/internal/api"
	"github.com/rickgao/nifty-data/internal/auth"
	"github.com/rickgao/nifty-data/internal/config"
	"github.com/rickgao/nifty-data/internal/connection"
	"github.com/rickgao/nifty-data/internal/session"
)

// NewSession wires a broker session from configuration.
func NewSession(cfg *config.Config, creds auth.Credentials, logger *slog.Logger) *session.Session {
	client := api.NewClient(
		cfg.API.RestURL,
		api.WithLogger(logger.With("component", "api")),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, cfg.API.RetryBackoff),
	)

	feedCfg := connection.DefaultClientConfig()
	feedCfg.HeartbeatInterval = cfg.Stream.HeartbeatInterval
	feedCfg.PingTimeout = cfg.Stream.PingTimeout
	feedCfg.BufferSize = cfg.Stream.BufferSize

	return session.New(session.Config{
		FeedURL: cfg.API.WSURL,
		Feed:    feedCfg,
	}, client, creds, logger.With("component", "session"))
}
