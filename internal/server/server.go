package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Adda-Baaj/ainews/internal/controller"
	"github.com/Adda-Baaj/ainews/internal/logger"
)

const shutdownGrace = 10 * time.Second

// Controller is the query surface exposed over HTTP.
type Controller interface {
	View() controller.View
	SetQuery(query string)
	SetSelectedSource(source string)
	SetFilterText(text string)
	Retry()
}

// Options tune the HTTP server.
type Options struct {
	Addr    string
	Timeout time.Duration
}

// Server serves the news API.
type Server struct {
	srv *http.Server
	log logger.Logger
}

// New builds the server around ctrl.
func New(ctrl Controller, opts Options, log logger.Logger) *Server {
	log = logger.Ensure(log)
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Server{
		srv: &http.Server{
			Addr:              opts.Addr,
			Handler:           NewRouter(ctrl, opts.Timeout, log),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// NewRouter wires middleware and routes.
func NewRouter(ctrl Controller, timeout time.Duration, log logger.Logger) http.Handler {
	h := &handlers{ctrl: ctrl}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		accessLog(logger.Ensure(log)),
		middleware.Timeout(timeout),
	)

	r.Get("/healthz", h.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/news", h.news)
		r.Put("/query", h.setQuery)
		r.Put("/source", h.setSource)
		r.Put("/filter", h.setFilter)
		r.Post("/retry", h.retry)
	})
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.InfoObj("http server listening", "http_listen", map[string]any{"addr": s.srv.Addr})
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.log.InfoObj("http server stopped", "http_stopped", nil)
	return nil
}

func accessLog(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			log.InfoObj("http request", "http_request", map[string]any{
				"request_id":  middleware.GetReqID(r.Context()),
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
			})
		})
	}
}
