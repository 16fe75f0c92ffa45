// Package api exposes the photoshoot pipeline and portfolios over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"ai-dslr-studio/internal/photoshoot"
	"ai-dslr-studio/internal/portfolio"
)

const maxBodyBytes = 60 << 20

type Generator interface {
	Generate(ctx context.Context, in photoshoot.Input, mode photoshoot.Mode, opts ...photoshoot.GenerateOption) ([]photoshoot.Shot, error)
}

type BackendChecker interface {
	Check(backend photoshoot.Backend) error
}

type Options struct {
	Generator Generator
	Backends  BackendChecker
	Portfolio portfolio.Store
	Logger    *slog.Logger

	// RequestTimeout bounds one photoshoot; zero means no extra deadline.
	RequestTimeout time.Duration
}

type Server struct {
	gen       Generator
	backends  BackendChecker
	portfolio portfolio.Store
	logger    *slog.Logger
	timeout   time.Duration
}

type apiError struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func New(opts Options) (*Server, error) {
	switch {
	case opts.Generator == nil:
		return nil, errors.New("generator is required")
	case opts.Portfolio == nil:
		return nil, errors.New("portfolio store is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Server{
		gen:       opts.Generator,
		backends:  opts.Backends,
		portfolio: opts.Portfolio,
		logger:    logger,
		timeout:   opts.RequestTimeout,
	}, nil
}

// Handler returns the routed API wrapped in request logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	s.RegisterRoutes(r)
	return withLogging(r, s.logger)
}

func (s *Server) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/catalog", s.handleCatalog).Methods(http.MethodGet)
	r.HandleFunc("/api/photoshoots", s.handlePhotoshoot).Methods(http.MethodPost)
	r.HandleFunc("/api/portfolios/{owner}", s.handleListPortfolio).Methods(http.MethodGet)
	r.HandleFunc("/api/portfolios/{owner}", s.handleSaveShot).Methods(http.MethodPost)
	r.HandleFunc("/api/portfolios/{owner}/shots/{id}", s.handleRemoveShot).Methods(http.MethodDelete)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// statusResponseWriter remembers the status code for the access log.
type statusResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logger.Info("http", "method", r.Method, "path", r.URL.Path, "status", sw.status, "dur_ms", time.Since(start).Milliseconds())
	})
}
