package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/freshcart/grocery-backend/pkg/config"
	"github.com/freshcart/grocery-backend/pkg/logger"
)

// Server owns the listening HTTP server for cmd/api.
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
	logg            *logger.Logger
}

// NewServer applies the configured timeouts so that no request can hold a
// connection past a single request/response cycle.
func NewServer(addr string, cfg config.HTTPConfig, handler http.Handler, logg *logger.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		logg:            logg,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
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

	if s.logg != nil {
		s.logg.Info(ctx, "shutting down api server")
	}
	timeout := s.shutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
