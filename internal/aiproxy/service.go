// Package aiproxy turns paper summarization and document analysis requests
// into calls against the generative text backend.
package aiproxy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/MakazhanAlpamys/ResearchHubV2/internal/domain"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/llm"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/observability"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/pdf"
)

const (
	opSummarize = "summarize"
	opAnalyze   = "analyze_document"

	pdfMIMEType = "application/pdf"
)

// DocumentFetcher downloads the document sent for analysis.
type DocumentFetcher interface {
	Download(ctx context.Context, rawURL string) (*pdf.DownloadResult, error)
	MaxSize() int64
}

// Service proxies AI requests to a Generator.
type Service struct {
	generator llm.Generator
	fetcher   DocumentFetcher
	logger    zerolog.Logger
}

// NewService creates a Service.
func NewService(generator llm.Generator, fetcher DocumentFetcher, logger zerolog.Logger) *Service {
	return &Service{
		generator: generator,
		fetcher:   fetcher,
		logger:    logger.With().Str("component", "aiproxy").Logger(),
	}
}

// Summarize writes a summary of the paper in the requested language.
func (s *Service) Summarize(ctx context.Context, title, abstract string, language domain.Language) (string, error) {
	name, ok := language.DisplayName()
	if !ok {
		return "", unsupportedLanguage()
	}

	logger := observability.WithAIContext(observability.FromContext(ctx, s.logger), opSummarize, string(language))

	return s.generate(ctx, logger, llm.GenerateRequest{
		Operation: opSummarize,
		Prompt:    summarizePrompt(name, title, abstract),
	})
}

// AnalyzeDocument downloads the PDF at documentURL and writes an analysis of
// it in the requested language.
func (s *Service) AnalyzeDocument(ctx context.Context, documentURL string, language domain.Language) (string, error) {
	name, ok := language.DisplayName()
	if !ok {
		return "", unsupportedLanguage()
	}

	logger := observability.WithAIContext(observability.FromContext(ctx, s.logger), opAnalyze, string(language))

	doc, err := s.fetcher.Download(ctx, documentURL)
	if err != nil {
		return "", s.fetchError(logger, documentURL, err)
	}

	logger.Debug().
		Str("url", documentURL).
		Int64("size_bytes", doc.SizeBytes).
		Msg("document downloaded")

	return s.generate(ctx, logger, llm.GenerateRequest{
		Operation: opAnalyze,
		Prompt:    analyzePrompt(name),
		Document:  &llm.Document{Data: doc.Content, MIMEType: pdfMIMEType},
	})
}

func (s *Service) generate(ctx context.Context, logger zerolog.Logger, req llm.GenerateRequest) (string, error) {
	start := time.Now()

	result, err := s.generator.Generate(ctx, req)
	if err != nil {
		logger.Error().
			Err(err).
			Str("provider", s.generator.Provider()).
			Str("model", s.generator.Model()).
			Dur("duration", time.Since(start)).
			Msg("generation failed")
		return "", fmt.Errorf("%w: %w", domain.ErrUpstreamAI, err)
	}

	logger.Info().
		Str("model", s.generator.Model()).
		Int("input_tokens", result.InputTokens).
		Int("output_tokens", result.OutputTokens).
		Dur("duration", time.Since(start)).
		Msg("generation completed")

	return result.Text, nil
}

// fetchError maps download failures onto client-facing errors.
func (s *Service) fetchError(logger zerolog.Logger, documentURL string, err error) error {
	logger.Warn().Err(err).Str("url", documentURL).Msg("document download failed")

	switch {
	case errors.Is(err, pdf.ErrNotPDF):
		return domain.NewValidationError("pdf_url", "URL does not point to a PDF file")
	case errors.Is(err, pdf.ErrTooLarge):
		mb := s.fetcher.MaxSize() / (1024 * 1024)
		return domain.NewValidationError("pdf_url", fmt.Sprintf("PDF exceeds maximum size of %d MB", mb))
	case errors.Is(err, pdf.ErrSSRF):
		return domain.NewValidationError("pdf_url", "URL is not allowed")
	default:
		return fmt.Errorf("%w: %w", domain.ErrUpstreamAI, err)
	}
}

func unsupportedLanguage() error {
	return domain.NewValidationError("language", "Unsupported language")
}
