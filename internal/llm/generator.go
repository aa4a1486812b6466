// Package llm wraps the generative text backend used for paper summaries
// and document analysis.
package llm

import "context"

// Document is binary content sent alongside the prompt.
type Document struct {
	Data     []byte
	MIMEType string
}

// GenerateRequest is a single-turn generation call.
type GenerateRequest struct {
	// Operation labels the call in logs and metrics (e.g., "summarize").
	Operation string
	// Prompt is the user instruction.
	Prompt string
	// Document is optional inline content sent after the prompt.
	Document *Document
}

// GenerateResult holds the model output and token usage.
type GenerateResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Generator produces text from a prompt.
type Generator interface {
	// Generate sends the request and returns the generated text.
	// Implementations return ErrNotConfigured when they lack credentials.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)

	// Provider returns the provider name.
	Provider() string

	// Model returns the model identifier being used.
	Model() string
}
