package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/MakazhanAlpamys/ResearchHubV2/internal/observability"
)

// FactoryConfig holds the parameters needed to create a Generator.
// This is defined in the llm package to avoid importing the config package,
// keeping the llm package free of infrastructure dependencies.
type FactoryConfig struct {
	// Provider is the LLM provider name. Only "gemini" is supported; empty
	// selects it.
	Provider string
	// Timeout is the timeout for a single LLM API call.
	Timeout time.Duration
	// MaxRetries is the maximum number of retries for transient failures.
	MaxRetries int
	// Gemini contains Gemini-specific settings.
	Gemini GeminiConfig
	// Metrics receives request metrics. May be nil.
	Metrics *observability.Metrics
}

// NewGenerator creates a Generator based on the configuration. Returns an
// error for unsupported provider values.
func NewGenerator(ctx context.Context, cfg FactoryConfig) (Generator, error) {
	switch cfg.Provider {
	case "", geminiProvider:
		p, err := NewGeminiProvider(ctx, cfg.Gemini, cfg.Timeout, cfg.MaxRetries, cfg.Metrics)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
}
