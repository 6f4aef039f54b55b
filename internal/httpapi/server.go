// Package httpapi is the HTTP surface of the intake service: batch uploads,
// bulk order templates and records, health probes and metrics.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gobeaver/intake"
)

// ShutdownTimeout bounds the graceful shutdown of the server.
const ShutdownTimeout = 15 * time.Second

// NewRouter builds the routes over svc.
func NewRouter(svc *intake.Service, log *slog.Logger) http.Handler {
	h := NewHandler(svc)
	health := NewHealthHandler(svc.Readiness()...)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(Metrics())
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/health/live", health.HealthLive)
	r.Get("/health/ready", health.HealthReady)
	r.Get("/metrics", health.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/uploads/{ownerKind}/{ownerID}/{category}", h.Upload)

		r.Get("/templates", h.ListTemplates)
		r.Get("/templates/{templateID}", h.GetTemplate)
		r.Get("/templates/{templateID}/sample", h.TemplateSample)

		// {id} is the owner id when creating and the upload id otherwise.
		r.Get("/bulk-orders", h.ListBulkOrders)
		r.Post("/bulk-orders/{id}/{templateID}", h.CreateBulkOrder)
		r.Get("/bulk-orders/{id}", h.GetBulkOrder)
		r.Patch("/bulk-orders/{id}/status", h.UpdateBulkStatus)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFound(w, "no route for "+r.URL.Path)
	})
	return r
}

// Server is the HTTP server of the intake service.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a server listening on cfg.HTTPAddr().
func New(cfg *intake.Config, svc *intake.Service, log *slog.Logger) *Server {
	log = log.With("component", "http")
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.HTTPAddr(),
			Handler:      NewRouter(svc, log),
			ReadTimeout:  time.Duration(cfg.HTTPReadTimeoutSeconds) * time.Second,
			WriteTimeout: time.Duration(cfg.HTTPWriteTimeoutSeconds) * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: log,
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Run serves until ctx is done and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server started", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down http server")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}
