package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/middleware"
)

// NewMux builds the metrics and health routes.
func NewMux(m *Metrics, checker *health.Checker) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	if checker != nil {
		mux.HandleFunc("/health/live", checker.LiveHandler())
		mux.HandleFunc("/health/ready", checker.ReadyHandler())
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body><h1>Inverted Index Metrics</h1><p><a href="/metrics">/metrics</a></p></body></html>`)
	})
	return mux
}

// routes are the paths NewMux serves; anything else is counted as "other".
var routes = []string{"/", "/metrics", "/health/live", "/health/ready"}

// Handler wraps NewMux with request accounting and a per-request timeout.
func Handler(m *Metrics, checker *health.Checker) http.Handler {
	var h http.Handler = NewMux(m, checker)
	h = middleware.Timeout(8 * time.Second)(h)
	h = middleware.Instrument(m.HTTPRequestsTotal, m.HTTPRequestDuration, routes...)(h)
	return h
}

// StartServer serves Handler on port in the background and returns the
// server's Shutdown method.
func StartServer(port int, m *Metrics, checker *health.Checker) (shutdown func(context.Context) error) {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      Handler(m, checker),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("metrics server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()

	return server.Shutdown
}
