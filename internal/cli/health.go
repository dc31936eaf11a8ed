package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/nifty-data/internal/metrics"
)

// HealthFunc reports a component's status. A non-nil error marks it unhealthy.
type HealthFunc func(ctx context.Context) (status string, err error)

// HealthHandler serves /health from the given checks and the Prometheus
// collectors of g on metricsPath.
func HealthHandler(checks map[string]HealthFunc, g prometheus.Gatherer, metricsPath string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any, len(checks)),
		}

		for name, check := range checks {
			status, err := check(ctx)
			if err != nil {
				health.Status = "unhealthy"
				health.Components[name] = map[string]string{
					"status": status,
					"error":  err.Error(),
				}
				continue
			}
			health.Components[name] = status
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	if g != nil {
		mux.Handle(metricsPath, metrics.Handler(g))
	}

	return mux
}

// Serve runs srv until ctx is done, then shuts it down.
func Serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting health server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("health server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
