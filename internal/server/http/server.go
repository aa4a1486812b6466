// Package httpserver provides the HTTP REST API of the ResearchHub service.
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
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/MakazhanAlpamys/ResearchHubV2/internal/auth"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/domain"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/papersources"
)

// PaperSearcher runs an aggregated paper search.
type PaperSearcher interface {
	Aggregate(ctx context.Context, req papersources.AggregateRequest) (*domain.SearchResult, error)
}

// AIService summarizes papers and analyzes documents.
type AIService interface {
	Summarize(ctx context.Context, title, abstract string, language domain.Language) (string, error)
	AnalyzeDocument(ctx context.Context, documentURL string, language domain.Language) (string, error)
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	searcher   PaperSearcher
	ai         AIService
	verifier   *auth.Verifier
	validate   *validator.Validate
	logger     zerolog.Logger

	allowedOrigins []string
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(cfg Config, searcher PaperSearcher, ai AIService, verifier *auth.Verifier, logger zerolog.Logger) *Server {
	s := &Server{
		searcher:       searcher,
		ai:             ai,
		verifier:       verifier,
		validate:       newValidator(),
		logger:         logger.With().Str("component", "http-server").Logger(),
		allowedOrigins: cfg.AllowedOrigins,
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

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(requestLogger(s.logger))
	if len(s.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.allowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			ExposedHeaders:   []string{correlationIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(jsonContentTypeMiddleware)

		r.Get("/papers/search", s.searchPapers)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.verifier, s.logger, writeAuthError))
			r.Post("/ai/summarize", s.summarize)
			r.Post("/ai/analyze-pdf", s.analyzePDF)
		})
	})

	return r
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
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports whether the search and AI dependencies are wired.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if s.searcher == nil || s.ai == nil || s.verifier == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
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
	writeJSON(w, statusCode, errorResponse{Detail: message})
}
