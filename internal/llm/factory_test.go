package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenerator_Gemini(t *testing.T) {
	t.Parallel()

	cfg := FactoryConfig{
		Provider:   "gemini",
		Timeout:    30 * time.Second,
		MaxRetries: 1,
		Gemini: GeminiConfig{
			APIKey: "test-key",
			Model:  "gemini-2.5-pro",
		},
	}

	gen, err := NewGenerator(context.Background(), cfg)

	require.NoError(t, err)
	require.NotNil(t, gen)
	assert.Equal(t, "gemini", gen.Provider())
	assert.Equal(t, "gemini-2.5-pro", gen.Model())
}

func TestNewGenerator_DefaultProvider(t *testing.T) {
	t.Parallel()

	gen, err := NewGenerator(context.Background(), FactoryConfig{})

	require.NoError(t, err)
	assert.Equal(t, "gemini", gen.Provider())
	assert.Equal(t, DefaultGeminiModel, gen.Model())
}

func TestNewGenerator_UnsupportedProvider(t *testing.T) {
	t.Parallel()

	gen, err := NewGenerator(context.Background(), FactoryConfig{Provider: "openai"})

	assert.Error(t, err)
	assert.Nil(t, gen)
	assert.Contains(t, err.Error(), `unsupported LLM provider: "openai"`)
}
