// Package server exposes the catalog and record operations as a JSON API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/koustreak/mngr/internal/catalog"
	"github.com/koustreak/mngr/internal/config"
	"github.com/koustreak/mngr/internal/logger"
	"github.com/koustreak/mngr/internal/records"
)

// Reloader replaces the current catalog snapshot. *catalog.Store
// implements it.
type Reloader interface {
	Reload(ctx context.Context) (*catalog.Catalog, error)
}

// Server routes HTTP requests to the record service.
type Server struct {
	svc      *records.Service
	reloader Reloader
	log      *logger.Logger
	router   chi.Router
}

// New builds the router.
func New(svc *records.Service, reloader Reloader, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{svc: svc, reloader: reloader, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/schemas", s.handleSchemas)
	r.Post("/catalog/reload", s.handleReload)

	r.Route("/tables/{oid}", func(r chi.Router) {
		r.Get("/", s.handleTable)
		r.Get("/records", s.handleList)
		r.Get("/records/new", s.handleNewForm)
		r.Post("/records/new", s.handleCreate)
		r.Get("/records/{key}/edit", s.handleEditForm)
		r.Post("/records/{key}/edit", s.handleUpdate)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no such route"})
	})

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, cfg config.ServerConfig) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoWith("http server listening", map[string]interface{}{"addr": cfg.Addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

// accessLog logs one line per request and puts a request-scoped logger in
// the context.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		reqID := middleware.GetReqID(r.Context())

		reqLog := s.log.With().Str("request_id", reqID).Logger()
		next.ServeHTTP(ww, r.WithContext(reqLog.WithContext(r.Context())))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.log.Request(r.Method, r.URL.Path, status, time.Since(start), reqID)
	})
}
