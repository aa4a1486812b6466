// Package main provides the entry point for the ResearchHub API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"github.com/MakazhanAlpamys/ResearchHubV2/internal/aiproxy"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/auth"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/config"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/llm"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/observability"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/papersources"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/papersources/arxiv"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/papersources/openalex"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/papersources/semanticscholar"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/pdf"
	httpserver "github.com/MakazhanAlpamys/ResearchHubV2/internal/server/http"
)

// healthService is the name reported by the gRPC health endpoint.
const healthService = "researchhub.v1.API"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
		Service:    "researchhub-api",
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("researchhub-api server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace)
	}

	// Paper search.
	registry := buildRegistry(cfg, metrics)
	aggregator := papersources.NewAggregator(registry, logger, metrics)
	for _, s := range registry.Sources() {
		logger.Info().Str("source", string(s.SourceType())).Msg("paper source enabled")
	}

	// Token verification.
	if cfg.Auth.JWTSecret == "" && cfg.Auth.SupabaseURL == "" {
		logger.Warn().Msg("no JWT secret or Supabase URL configured; AI endpoints will reject all requests")
	}
	verifier := auth.NewVerifier(auth.Config{
		Secret:        cfg.Auth.JWTSecret,
		BaseURL:       cfg.Auth.SupabaseURL,
		Audience:      cfg.Auth.Audience,
		KeySetTimeout: cfg.Auth.JWKSTimeout,
		Metrics:       metrics,
	}, logger)

	// AI proxy.
	generator, err := llm.NewGenerator(ctx, llm.FactoryConfig{
		Provider:   cfg.LLM.Provider,
		Timeout:    cfg.LLM.Timeout,
		MaxRetries: cfg.LLM.MaxRetries,
		Gemini: llm.GeminiConfig{
			APIKey:  cfg.LLM.Gemini.APIKey,
			Model:   cfg.LLM.Gemini.Model,
			BaseURL: cfg.LLM.Gemini.BaseURL,
		},
		Metrics: metrics,
	})
	if err != nil {
		return fmt.Errorf("create LLM generator: %w", err)
	}
	if cfg.LLM.Gemini.APIKey == "" {
		logger.Warn().Msg("Gemini API key not set; AI endpoints will return 502")
	}
	downloader := pdf.NewDownloader(pdf.Config{
		Timeout:   cfg.PDF.Timeout,
		MaxSize:   cfg.PDF.MaxSize,
		UserAgent: cfg.PDF.UserAgent,
		Metrics:   metrics,
	})
	aiService := aiproxy.NewService(generator, downloader, logger)

	// Create gRPC server carrying the health service.
	grpcServer := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle: 15 * time.Minute,
			Time:              5 * time.Minute,
			Timeout:           1 * time.Minute,
		}),
	)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(healthService, healthpb.HealthCheckResponse_SERVING)

	// Enable reflection for debugging.
	reflection.Register(grpcServer)

	grpcAddr := cfg.Server.GRPCAddress()
	grpcListener, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listen on gRPC port: %w", err)
	}

	// Create HTTP REST API server.
	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
	}
	httpSrv := httpserver.NewServer(httpCfg, aggregator, aiService, verifier, logger)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.ReadTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 3)

	go func() {
		logger.Info().Str("address", grpcAddr).Msg("gRPC health server starting")
		if err := grpcServer.Serve(grpcListener); err != nil {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().
		Str("grpc_address", grpcAddr).
		Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("researchhub-api is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down researchhub-api")
	healthServer.SetServingStatus(healthService, healthpb.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	// Gracefully stop gRPC server with timeout.
	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		logger.Info().Msg("gRPC server stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Warn().Msg("gRPC server forced shutdown due to timeout")
		grpcServer.Stop()
	}

	logger.Info().Msg("researchhub-api shutdown complete")
	return nil
}

// buildRegistry registers the enabled paper sources in declaration order.
func buildRegistry(cfg *config.Config, metrics *observability.Metrics) *papersources.Registry {
	registry := papersources.NewRegistry()
	src := cfg.PaperSources

	if src.ArXiv.Enabled {
		registry.Register(arxiv.New(arxiv.Config{
			BaseURL:   src.ArXiv.BaseURL,
			Timeout:   src.ArXiv.Timeout,
			RateLimit: src.ArXiv.RateLimit,
			Metrics:   metrics,
		}))
	}
	if src.OpenAlex.Enabled {
		registry.Register(openalex.New(openalex.Config{
			BaseURL:    src.OpenAlex.BaseURL,
			Email:      src.OpenAlex.Email,
			SendMailto: src.OpenAlex.SendMailto,
			Timeout:    src.OpenAlex.Timeout,
			RateLimit:  src.OpenAlex.RateLimit,
			Metrics:    metrics,
		}))
	}
	if src.SemanticScholar.Enabled {
		registry.Register(semanticscholar.NewClient(semanticscholar.Config{
			BaseURL:   src.SemanticScholar.BaseURL,
			APIKey:    src.SemanticScholar.APIKey,
			Timeout:   src.SemanticScholar.Timeout,
			RateLimit: src.SemanticScholar.RateLimit,
			Metrics:   metrics,
		}, nil))
	}

	return registry
}
