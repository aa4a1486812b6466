package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.HTTPPort)
	assert.Equal(t, 9090, cfg.Server.GRPCPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, 120*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

	// Logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Metrics defaults
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "researchhub", cfg.Metrics.Namespace)

	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:8080", "http://localhost:5000"}, cfg.CORS.AllowedOrigins)

	// Auth defaults
	assert.Empty(t, cfg.Auth.SupabaseURL)
	assert.Empty(t, cfg.Auth.JWTSecret)
	assert.Equal(t, "authenticated", cfg.Auth.Audience)
	assert.Equal(t, 10*time.Second, cfg.Auth.JWKSTimeout)

	// Paper sources defaults
	assert.True(t, cfg.PaperSources.ArXiv.Enabled)
	assert.Equal(t, "https://export.arxiv.org/api", cfg.PaperSources.ArXiv.BaseURL)
	assert.Equal(t, 20*time.Second, cfg.PaperSources.ArXiv.Timeout)
	assert.True(t, cfg.PaperSources.OpenAlex.Enabled)
	assert.Equal(t, "https://api.openalex.org", cfg.PaperSources.OpenAlex.BaseURL)
	assert.Equal(t, "dev@researchhub.local", cfg.PaperSources.OpenAlex.Email)
	assert.False(t, cfg.PaperSources.OpenAlex.SendMailto)
	assert.True(t, cfg.PaperSources.SemanticScholar.Enabled)
	assert.Equal(t, "https://api.semanticscholar.org/graph/v1", cfg.PaperSources.SemanticScholar.BaseURL)

	// LLM defaults
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 0, cfg.LLM.MaxRetries)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Gemini.Model)
	assert.Empty(t, cfg.LLM.Gemini.APIKey)

	// PDF defaults
	assert.Equal(t, 30*time.Second, cfg.PDF.Timeout)
	assert.Equal(t, int64(20*1024*1024), cfg.PDF.MaxSize)
	assert.Equal(t, "ResearchHubV2/1.0", cfg.PDF.UserAgent)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("RESEARCHHUB_SERVER_HTTP_PORT", "9000")
	t.Setenv("RESEARCHHUB_LOGGING_LEVEL", "debug")
	t.Setenv("RESEARCHHUB_PAPER_SOURCES_ARXIV_ENABLED", "false")
	t.Setenv("RESEARCHHUB_PAPER_SOURCES_OPENALEX_EMAIL", "ops@researchhub.kz")
	t.Setenv("RESEARCHHUB_LLM_GEMINI_MODEL", "gemini-2.5-pro")
	t.Setenv("RESEARCHHUB_PDF_MAX_SIZE", "1048576")
	t.Setenv("RESEARCHHUB_CORS_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.PaperSources.ArXiv.Enabled)
	assert.Equal(t, "ops@researchhub.kz", cfg.PaperSources.OpenAlex.Email)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Gemini.Model)
	assert.Equal(t, int64(1048576), cfg.PDF.MaxSize)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_SecretsFromEnvOnly(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("RESEARCHHUB_AUTH_JWT_SECRET", "jwt-secret")
	t.Setenv("RESEARCHHUB_LLM_GEMINI_API_KEY", "gemini-key")
	t.Setenv("RESEARCHHUB_PAPER_SOURCES_SEMANTIC_SCHOLAR_API_KEY", "s2-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "jwt-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "gemini-key", cfg.LLM.Gemini.APIKey)
	assert.Equal(t, "s2-key", cfg.PaperSources.SemanticScholar.APIKey)
	assert.Empty(t, cfg.PaperSources.ArXiv.APIKey)
}

func TestLoad_LegacyVariableNames(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("SUPABASE_URL", "https://abc.supabase.co")
	t.Setenv("SUPABASE_JWT_SECRET", "legacy-secret")
	t.Setenv("GEMINI_API_KEY", "legacy-gemini")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://abc.supabase.co", cfg.Auth.SupabaseURL)
	assert.Equal(t, "legacy-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "legacy-gemini", cfg.LLM.Gemini.APIKey)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_PrefixedNamesWin(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("SUPABASE_URL", "https://legacy.supabase.co")
	t.Setenv("RESEARCHHUB_AUTH_SUPABASE_URL", "https://new.supabase.co")
	t.Setenv("SUPABASE_JWT_SECRET", "legacy-secret")
	t.Setenv("RESEARCHHUB_AUTH_JWT_SECRET", "new-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://new.supabase.co", cfg.Auth.SupabaseURL)
	assert.Equal(t, "new-secret", cfg.Auth.JWTSecret)
}

func TestLoad_InvalidConfig(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("RESEARCHHUB_LOGGING_LEVEL", "verbose")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestValidate_InvalidPort(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"http port zero", func(c *Config) { c.Server.HTTPPort = 0 }, "invalid HTTP port"},
		{"http port too high", func(c *Config) { c.Server.HTTPPort = 70000 }, "invalid HTTP port"},
		{"grpc port negative", func(c *Config) { c.Server.GRPCPort = -1 }, "invalid gRPC port"},
		{"metrics port too high", func(c *Config) { c.Server.MetricsPort = 65536 }, "invalid metrics port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidate_LogLevel(t *testing.T) {
	for _, level := range []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "INFO"} {
		cfg := validConfig()
		cfg.Logging.Level = level
		assert.NoError(t, cfg.Validate(), level)
	}

	cfg := validConfig()
	cfg.Logging.Level = "loud"
	assert.Error(t, cfg.Validate())
}

func TestValidate_SupabaseURL(t *testing.T) {
	tests := []struct {
		url   string
		valid bool
	}{
		{"", true},
		{"https://abc.supabase.co", true},
		{"http://localhost:54321", true},
		{"abc.supabase.co", false},
		{"ftp://abc.supabase.co", false},
		{"https://", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			cfg := validConfig()
			cfg.Auth.SupabaseURL = tt.url
			if tt.valid {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestValidate_PaperSources(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"missing base url", func(c *Config) { c.PaperSources.ArXiv.BaseURL = "" }, "paper source arxiv: base_url is required"},
		{"zero timeout", func(c *Config) { c.PaperSources.OpenAlex.Timeout = 0 }, "paper source openalex: timeout must be positive"},
		{"zero rate limit", func(c *Config) { c.PaperSources.SemanticScholar.RateLimit = 0 }, "paper source semantic_scholar: rate_limit must be positive"},
		{"all disabled", func(c *Config) {
			c.PaperSources.ArXiv.Enabled = false
			c.PaperSources.OpenAlex.Enabled = false
			c.PaperSources.SemanticScholar.Enabled = false
		}, "at least one paper source must be enabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	t.Run("disabled source is not checked", func(t *testing.T) {
		cfg := validConfig()
		cfg.PaperSources.ArXiv = PaperSourceConfig{Enabled: false}
		assert.NoError(t, cfg.Validate())
	})
}

func TestValidate_LLMConfig(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.Provider = "openai"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported LLM provider")

	cfg = validConfig()
	cfg.LLM.MaxRetries = -1
	assert.Error(t, cfg.Validate())

	// A missing API key is not a startup error; AI calls fail instead.
	cfg = validConfig()
	cfg.LLM.Gemini.APIKey = ""
	assert.NoError(t, cfg.Validate())
}

func TestValidate_PDFConfig(t *testing.T) {
	cfg := validConfig()
	cfg.PDF.MaxSize = 0
	assert.Error(t, cfg.Validate())
}

func TestServerConfig_Addresses(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", HTTPPort: 8000, GRPCPort: 9090, MetricsPort: 9091}
	assert.Equal(t, "127.0.0.1:8000", cfg.HTTPAddress())
	assert.Equal(t, "127.0.0.1:9090", cfg.GRPCAddress())
	assert.Equal(t, "127.0.0.1:9091", cfg.MetricsAddress())
}

func TestNormalizeOrigins(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, normalizeOrigins([]string{" a , b", "", "c "}))
	assert.Empty(t, normalizeOrigins(nil))
}

// clearEnvVars removes every variable Load reads, restoring them after the test.
func clearEnvVars(t *testing.T) {
	t.Helper()
	legacy := map[string]bool{
		"SUPABASE_URL": true, "SUPABASE_JWT_SECRET": true, "GEMINI_API_KEY": true,
		"ALLOWED_ORIGINS": true, "SEMANTIC_SCHOLAR_API_KEY": true,
	}
	for _, env := range os.Environ() {
		key, _, _ := strings.Cut(env, "=")
		if strings.HasPrefix(key, EnvPrefix+"_") || legacy[key] {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

// validConfig returns a valid configuration for testing
func validConfig() *Config {
	source := func(baseURL string) PaperSourceConfig {
		return PaperSourceConfig{Enabled: true, BaseURL: baseURL, Timeout: 20 * time.Second, RateLimit: 5}
	}
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			HTTPPort:    8000,
			GRPCPort:    9090,
			MetricsPort: 9091,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Auth: AuthConfig{Audience: "authenticated"},
		PaperSources: PaperSourcesConfig{
			ArXiv:           source("https://export.arxiv.org/api"),
			OpenAlex:        OpenAlexConfig{PaperSourceConfig: source("https://api.openalex.org")},
			SemanticScholar: source("https://api.semanticscholar.org/graph/v1"),
		},
		LLM: LLMConfig{
			Provider: "gemini",
			Gemini:   GeminiConfig{APIKey: "key", Model: "gemini-2.5-flash"},
		},
		PDF: PDFConfig{MaxSize: 20 * 1024 * 1024},
	}
}
