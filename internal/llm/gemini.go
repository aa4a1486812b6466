package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/MakazhanAlpamys/ResearchHubV2/internal/observability"
)

const (
	// DefaultGeminiModel is the model used when none is configured.
	DefaultGeminiModel = "gemini-2.5-flash"

	// DefaultTimeout bounds a single generation call.
	DefaultTimeout = 60 * time.Second

	geminiProvider   = "gemini"
	geminiAPIVersion = "v1beta"
)

// GeminiConfig holds the parameters needed to create a Gemini provider.
// This is defined in the llm package to avoid importing the config package.
type GeminiConfig struct {
	// APIKey is the Gemini API key. Empty leaves the provider unconfigured.
	APIKey string
	// Model is the model identifier (e.g., "gemini-2.5-flash").
	Model string
	// BaseURL overrides the API endpoint. Empty uses the SDK default.
	BaseURL string
}

// GeminiProvider implements Generator using the Gemini API.
type GeminiProvider struct {
	client     *genai.Client
	model      string
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	metrics    *observability.Metrics
}

// NewGeminiProvider creates a GeminiProvider. With an empty API key the
// provider is created but every Generate call returns ErrNotConfigured.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig, timeout time.Duration, maxRetries int, metrics *observability.Metrics) (*GeminiProvider, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	p := &GeminiProvider{
		model:      cfg.Model,
		timeout:    timeout,
		maxRetries: maxRetries,
		retryDelay: time.Second,
		metrics:    metrics,
	}

	if cfg.APIKey == "" {
		return p, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.BaseURL,
			APIVersion: geminiAPIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}
	p.client = client

	return p, nil
}

// Generate sends the prompt, followed by the optional document, as one
// user turn. Transient errors are retried up to maxRetries times with
// exponential backoff.
func (p *GeminiProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if p.client == nil {
		p.recordFailure(req.Operation, ErrNotConfigured)
		return nil, ErrNotConfigured
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.Document != nil {
		parts = append(parts, genai.NewPartFromBytes(req.Document.Data, req.Document.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	start := time.Now()

	var resp *genai.GenerateContentResponse
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			delay := p.retryDelay * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				lastErr = fmt.Errorf("gemini: context cancelled during retry: %w", ctx.Err())
				p.recordFailure(req.Operation, lastErr)
				return nil, lastErr
			case <-time.After(delay):
			}
		}

		resp, lastErr = p.send(ctx, contents)
		if lastErr == nil {
			break
		}
		if !isTransientError(lastErr) {
			break
		}
	}

	if lastErr != nil {
		p.recordFailure(req.Operation, lastErr)
		return nil, lastErr
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		p.recordFailure(req.Operation, ErrEmptyResponse)
		return nil, ErrEmptyResponse
	}

	result := &GenerateResult{Text: text}
	if u := resp.UsageMetadata; u != nil {
		result.InputTokens = int(u.PromptTokenCount)
		result.OutputTokens = int(u.CandidatesTokenCount)
	}

	if p.metrics != nil {
		p.metrics.RecordLLMRequest(req.Operation, p.model, time.Since(start).Seconds(), result.InputTokens, result.OutputTokens)
	}

	return result, nil
}

func (p *GeminiProvider) send(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.Models.GenerateContent(callCtx, p.model, contents, nil)
	if err != nil {
		return nil, fromGenAIError(geminiProvider, err)
	}
	return resp, nil
}

func (p *GeminiProvider) recordFailure(operation string, err error) {
	if p.metrics != nil {
		p.metrics.RecordLLMRequestFailed(operation, p.model, errorType(err))
	}
}

// Provider returns the provider name.
func (p *GeminiProvider) Provider() string {
	return geminiProvider
}

// Model returns the model identifier being used.
func (p *GeminiProvider) Model() string {
	return p.model
}
