package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/nifty-data/internal/auth"
	"github.com/rickgao/nifty-data/internal/feed"
	"github.com/rickgao/nifty-data/internal/market"
	"github.com/rickgao/nifty-data/internal/metrics"
	"github.com/rickgao/nifty-data/internal/model"
	"github.com/rickgao/nifty-data/internal/session"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"config", ConfigError(errors.New("bad yaml")), ExitConfig},
		{"missing credential", fmt.Errorf("load: %w", auth.ErrMissingCredential), ExitConfig},
		{"login rejected", fmt.Errorf("%w: Invalid OTP", session.ErrLoginFailed), ExitAuthentication},
		{"feed auth", fmt.Errorf("%w: %w", feed.ErrAuthentication, errors.New("bad totp")), ExitAuthentication},
		{"login transport", fmt.Errorf("login: %w", errors.New("dial tcp: i/o timeout")), ExitRun},
		{"start after today", fmt.Errorf("backfill: %w", model.ErrStartAfterToday), ExitConfig},
		{"symbol", fmt.Errorf("resolve: %w", market.ErrSymbolNotFound), ExitSymbol},
		{"other", errors.New("disk full"), ExitRun},
		{"explicit", &ExitError{Code: 7, Err: errors.New("x")}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestConfigError_Nil(t *testing.T) {
	assert.NoError(t, ConfigError(nil))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, runID := NewLogger(&buf, "warn", "backfill")

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "cmd=backfill")
	assert.Contains(t, out, "run_id="+runID)
	assert.Len(t, runID, 36)
}

func TestHealthHandler(t *testing.T) {
	healthy := map[string]HealthFunc{
		"feed": func(context.Context) (string, error) { return "subscribed", nil },
	}
	srv := httptest.NewServer(HealthHandler(healthy, nil, "/metrics"))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status     string         `json:"status"`
		Components map[string]any `json:"components"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "subscribed", body.Components["feed"])
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	checks := map[string]HealthFunc{
		"feed": func(context.Context) (string, error) { return "disconnected", errors.New("feed closed") },
	}
	rec := httptest.NewRecorder()
	HealthHandler(checks, nil, "/metrics").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "feed closed")
}

func TestHealthHandler_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.RecordTick()

	rec := httptest.NewRecorder()
	HealthHandler(nil, reg, "/metrics").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "nifty_feed_ticks_total 1"))
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	done := make(chan error, 1)
	go func() { done <- Serve(ctx, srv, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))) }()
	cancel()

	assert.NoError(t, <-done)
}
