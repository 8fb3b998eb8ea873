// Package httpserver provides the HTTP REST API for publication search and
// draft generation.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/helixir/research-assistant/internal/observability"
	"github.com/helixir/research-assistant/internal/papersources"
	"github.com/helixir/research-assistant/internal/search"
)

// Searcher runs publication searches. It is implemented by *search.Service.
type Searcher interface {
	Run(ctx context.Context, req search.Request) *search.Outcome
	DomainSuggestions() []string
	SourceHealth() []papersources.SourceHealth
}

// DraftGenerator writes academic drafts. It is implemented by *draft.Generator.
type DraftGenerator interface {
	Generate(ctx context.Context, topic string, maxTokens int) (string, error)
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	searcher   Searcher
	drafts     DraftGenerator
	metrics    *observability.Metrics
	validate   *validator.Validate
	cfg        Config
	logger     zerolog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// DefaultLimit is used when a search request has no limit parameter.
	DefaultLimit int
	// MaxLimit is the largest accepted limit parameter.
	MaxLimit int
}

// NewServer creates a new HTTP server. drafts may be nil, in which case the
// draft endpoint answers 503. metrics may be nil.
func NewServer(
	cfg Config,
	searcher Searcher,
	drafts DraftGenerator,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Server {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = search.DefaultLimit
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		cfg.MaxLimit = cfg.DefaultLimit
	}

	s := &Server{
		searcher: searcher,
		drafts:   drafts,
		metrics:  metrics,
		validate: newValidator(),
		cfg:      cfg,
		logger:   logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(correlationIDMiddleware)
	r.Use(requestLoggerMiddleware(s.logger, s.metrics))
	r.Use(middleware.Recoverer)
	r.Use(jsonContentTypeMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/domains", s.listDomains)
		r.Get("/publications", s.searchPublications)
		r.Post("/drafts", s.createDraft)
	})

	return r
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports each source's circuit state. The service is not
// ready when no enabled source can currently be queried.
func (s *Server) readinessHandler(w http.ResponseWriter, _ *http.Request) {
	health := s.searcher.SourceHealth()

	resp := readinessResponse{Sources: make([]sourceHealthResponse, 0, len(health))}
	available := 0
	for _, h := range health {
		resp.Sources = append(resp.Sources, sourceHealthResponse{
			Source:       string(h.Source),
			Name:         h.Name,
			Enabled:      h.Enabled,
			CircuitState: h.CircuitState,
		})
		if h.Enabled && h.CircuitState != papersources.CircuitOpen {
			available++
		}
	}

	if available == 0 {
		resp.Status = "not_ready"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.Status = "ready"
	writeJSON(w, http.StatusOK, resp)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort log; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
