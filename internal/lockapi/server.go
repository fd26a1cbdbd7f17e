package lockapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/condlock/condlock/internal/logger"
	"github.com/condlock/condlock/pkg/lockconfig"
	"github.com/condlock/condlock/pkg/lockcoordinator"
	"github.com/condlock/condlock/pkg/lockstore"
)

// Server is the condlockd HTTP front end: a thin wrapper around
// http.Server whose handler is the router built in router.go. Created in
// a stopped state; call Start to begin serving.
type Server struct {
	httpServer      *http.Server
	port            int
	shutdownTimeout time.Duration
	shutdownOnce    sync.Once
}

// NewServer builds a Server bound to coordinator/backend. registry, if
// non-nil, backs /metrics; NewServer registers no collectors on it
// (cmd/condlockd registers the lockcoordinator.Metrics collector there).
func NewServer(cfg lockconfig.ServerConfig, coordinator *lockcoordinator.Coordinator, backend lockstore.Backend, registry *prometheus.Registry) *Server {
	var registerer prometheus.Registerer
	if registry != nil {
		registerer = registry
	}

	handler := NewRouter(coordinator, backend, cfg.JWTSigningKey, registerer)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		port:            cfg.Port,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully
// within the configured ShutdownTimeout. Returns nil on a clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("condlockd listening", "port", s.port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("condlockd: listen: %w", err)
	}
}

// Stop gracefully shuts down the HTTP server. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		logger.Info("condlockd shutting down")
		err = s.httpServer.Shutdown(ctx)
	})
	return err
}
