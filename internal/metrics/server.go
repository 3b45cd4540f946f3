package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readTimeout     = 5 * time.Second
	writeTimeout    = 10 * time.Second
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 5 * time.Second
)

// ReadyFunc reports whether a dependency can currently serve requests.
type ReadyFunc func() bool

type healthResponse struct {
	Status string `json:"status"`
}

// NewHandler returns the mux behind the metrics server:
//
//   - GET /metrics: Prometheus scrape endpoint
//   - GET /health: liveness, always 200
//   - GET /ready: 503 while ready reports false (summarizer breaker open)
func NewHandler(ready ReadyFunc) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, _ *http.Request) {
		if ready != nil && !ready() {
			writeHealth(w, http.StatusServiceUnavailable, "degraded")
			return
		}
		writeHealth(w, http.StatusOK, "ready")
	})

	return mux
}

// Serve listens on addr until ctx is done, then shuts the server down
// gracefully.
func Serve(ctx context.Context, addr string, ready ReadyFunc, log *slog.Logger) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      NewHandler(ready),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.InfoContext(ctx, "Metrics server is starting",
			"addr", addr)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen and serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}
	log.InfoContext(ctx, "Metrics server is stopped",
		"addr", addr)

	return nil
}

func writeHealth(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(healthResponse{Status: text})
}
