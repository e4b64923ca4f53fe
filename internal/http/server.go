// README: API server; owns the gin engine and its lifecycle.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"maroonline/internal/metrics"
	"maroonline/internal/modules/auth"
	"maroonline/internal/modules/icebreaker"
	"maroonline/internal/modules/matching"
	"maroonline/internal/modules/profile"
	"maroonline/internal/modules/transit"
	"maroonline/internal/modules/trip"
)

type ServerDeps struct {
	Auth       *auth.Service
	Profile    *profile.Service
	Trip       *trip.Service
	Matching   *matching.Service
	Icebreaker *icebreaker.Service
	Estimator  transit.Estimator
	Route      *matching.Route
	Metrics    *metrics.Metrics
	Logger     *slog.Logger

	// Window is the width of a planned travel window.
	Window   time.Duration
	Location *time.Location
}

type Server struct {
	deps ServerDeps
	srv  *http.Server
}

func NewServer(addr string, deps ServerDeps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &Server{deps: deps}
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      NewRouter(deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to shutdownTimeout.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("server starting", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.deps.Logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
