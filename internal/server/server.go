// Package server exposes the core to the presentation layer over a local
// HTTP/JSON API, plus health and Prometheus metrics endpoints. Screens
// and wizards live outside the core and call in through these routes.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/pickit-labs/pickit/internal/metrics"
	"github.com/pickit-labs/pickit/internal/session"
	"github.com/pickit-labs/pickit/internal/store"
)

// Server is the local API endpoint of one device.
type Server struct {
	store    *store.Store
	sessions *session.Manager
	registry *prom.Registry
	httpSrv  *http.Server
}

// New creates a server on the given listen address. registry may be nil
// to disable the metrics endpoint.
func New(listen string, st *store.Store, sm *session.Manager, registry *prom.Registry) *Server {
	s := &Server{store: st, sessions: sm, registry: registry}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if registry != nil {
		mux.Handle("GET /metrics", metrics.HTTPHandler(registry))
	}

	mux.HandleFunc("GET /api/v1/job", s.handleGetJob)
	mux.HandleFunc("POST /api/v1/job", s.handleCreateJob)
	mux.HandleFunc("POST /api/v1/job/{id}/status", s.handleApplyStatus)
	mux.HandleFunc("GET /api/v1/history", s.handleHistory)
	mux.HandleFunc("POST /api/v1/quote", s.handleQuote)

	mux.HandleFunc("GET /api/v1/shop", s.handleGetShop)
	mux.HandleFunc("PUT /api/v1/shop", s.handleSetShop)
	mux.HandleFunc("POST /api/v1/shop/link", s.handleLinkShop)
	mux.HandleFunc("POST /api/v1/shop/unlink", s.handleUnlinkShop)

	mux.HandleFunc("GET /api/v1/session", s.handleSession)
	mux.HandleFunc("POST /api/v1/role", s.handleSetRole)
	mux.HandleFunc("GET /api/v1/theme", s.handleGetTheme)
	mux.HandleFunc("PUT /api/v1/theme", s.handleSetTheme)

	s.httpSrv = &http.Server{
		Addr:              listen,
		Handler:           chain(slog.Default(), mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Stop is called.
func (s *Server) Start() error {
	slog.Info("API server listening", "addr", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
