package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/yurifrl/coa/pkg/batch"
	"github.com/yurifrl/coa/pkg/remote"
)

// Server exposes one chart-of-accounts view over JSON for a browser front end.
type Server struct {
	logger *log.Logger
	ctrl   *batch.Controller
	router *chi.Mux
	server *http.Server
}

// New creates a new HTTP server
func New(ctrl *batch.Controller, logger *log.Logger, addr string, allowedOrigins []string) *Server {
	s := &Server{
		logger: logger,
		ctrl:   ctrl,
		router: chi.NewRouter(),
	}
	s.setupMiddleware(allowedOrigins)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupMiddleware(allowedOrigins []string) {
	s.router.Use(middleware.RequestID)
	s.router.Use(s.withLogging)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-TOKEN"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/view", s.handleLoad)
		r.Delete("/view", s.handleLeave)

		r.Get("/accounts", s.handleAccounts)
		r.Get("/accounts.csv", s.handleAccountsCSV)
		r.Put("/accounts/{number}/selected", s.handleToggleAccount)

		r.Get("/ledger", s.handleLedger)
		r.Get("/ledger.csv", s.handleLedgerCSV)
		r.Put("/ledger/{number}", s.handleOpen)
		r.Delete("/ledger", s.handleClose)
		r.Put("/ledger/transactions/{id}/selected", s.handleToggleTransaction)

		r.Get("/actions/{action}", s.handleActionState)
		r.Post("/actions/{action}", s.handleSubmit)
	})
}

// --- helpers ---

// writeJSON encodes v as JSON with the given status and writes headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// respondError logs the error and returns a minimal JSON error body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil {
		s.logger.Warn("request error", "status", status, "msg", message, "err", err, "method", r.Method, "path", r.URL.Path)
	} else {
		s.logger.Warn("request error", "status", status, "msg", message, "method", r.Method, "path", r.URL.Path)
	}
	_ = s.writeJSON(w, status, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// respondLoadError answers a failed fetch with the status matching its cause.
func (s *Server) respondLoadError(w http.ResponseWriter, r *http.Request, err error) {
	s.respondError(w, r, statusFor(err), batch.LoadMessage(err), err)
}

func statusFor(err error) int {
	var pre *batch.PreconditionError
	var svcErr *remote.ServiceError
	switch {
	case errors.As(err, &pre):
		if pre.Reason == batch.ReasonInFlight {
			return http.StatusConflict
		}
		return http.StatusUnprocessableEntity
	case errors.Is(err, batch.ErrNotVisible):
		return http.StatusNotFound
	case errors.Is(err, batch.ErrNoLedger):
		return http.StatusConflict
	case errors.Is(err, remote.ErrForbidden):
		return http.StatusForbidden
	case errors.As(err, &svcErr):
		if svcErr.StatusCode >= 400 && svcErr.StatusCode < 500 {
			return svcErr.StatusCode
		}
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}

// withLogging logs each request and recovers panics.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", "panic", rec, "method", r.Method, "path", r.URL.Path)
				s.respondError(ww, r, http.StatusInternalServerError, "internal server error", fmt.Errorf("panic: %v", rec))
			}
			s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(),
				"bytes", ww.BytesWritten(), "elapsed", time.Since(start), "request_id", middleware.GetReqID(r.Context()))
		}()
		next.ServeHTTP(ww, r)
	})
}
