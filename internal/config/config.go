// Package config provides configuration management for the ResearchHub API.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "RESEARCHHUB"

// Config holds all configuration for the ResearchHub API.
type Config struct {
	// Server contains HTTP/gRPC server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// CORS contains cross-origin settings for browser clients.
	CORS CORSConfig `mapstructure:"cors"`
	// Auth contains bearer token verification settings.
	Auth AuthConfig `mapstructure:"auth"`
	// PaperSources contains paper source API configurations.
	PaperSources PaperSourcesConfig `mapstructure:"paper_sources"`
	// LLM contains generative backend settings.
	LLM LLMConfig `mapstructure:"llm"`
	// PDF contains document download settings.
	PDF PDFConfig `mapstructure:"pdf"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8000).
	HTTPPort int `mapstructure:"http_port"`
	// GRPCPort is the gRPC health server port (default: 9090).
	GRPCPort int `mapstructure:"grpc_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response. It must
	// cover a document download plus a generation call.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// IdleTimeout is the keep-alive idle timeout.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`
}

// CORSConfig holds cross-origin settings.
type CORSConfig struct {
	// AllowedOrigins lists origins allowed to call the API. A comma-separated
	// string is accepted from the environment.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// AuthConfig holds token verification settings.
type AuthConfig struct {
	// SupabaseURL is the identity provider base URL; the public key set is
	// fetched from it for asymmetrically signed tokens.
	SupabaseURL string `mapstructure:"supabase_url"`
	// Audience is the required aud claim.
	Audience string `mapstructure:"audience"`
	// JWKSTimeout bounds the public key set download.
	JWKSTimeout time.Duration `mapstructure:"jwks_timeout"`
	// JWTSecret is the shared HMAC secret (loaded from RESEARCHHUB_AUTH_JWT_SECRET
	// or SUPABASE_JWT_SECRET).
	JWTSecret string `mapstructure:"-"`
}

// PaperSourcesConfig holds configuration for all paper source APIs.
type PaperSourcesConfig struct {
	// ArXiv contains arXiv API settings.
	ArXiv PaperSourceConfig `mapstructure:"arxiv"`
	// OpenAlex contains OpenAlex API settings.
	OpenAlex OpenAlexConfig `mapstructure:"openalex"`
	// SemanticScholar contains Semantic Scholar API settings.
	SemanticScholar PaperSourceConfig `mapstructure:"semantic_scholar"`
}

// PaperSourceConfig holds configuration for a single paper source API.
type PaperSourceConfig struct {
	// Enabled controls whether this source is used.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key (loaded from environment variable, e.g.
	// RESEARCHHUB_PAPER_SOURCES_SEMANTIC_SCHOLAR_API_KEY).
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
}

// OpenAlexConfig adds the polite pool contact to the common source settings.
type OpenAlexConfig struct {
	PaperSourceConfig `mapstructure:",squash"`
	// Email is the contact address sent in the User-Agent.
	Email string `mapstructure:"email"`
	// SendMailto also passes Email as the mailto query parameter.
	SendMailto bool `mapstructure:"send_mailto"`
}

// LLMConfig holds generative backend configuration.
type LLMConfig struct {
	// Provider is the LLM provider. Only "gemini" is supported.
	Provider string `mapstructure:"provider"`
	// Timeout is the timeout for one generation call.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRetries is the maximum number of retries for transient failures.
	MaxRetries int `mapstructure:"max_retries"`
	// Gemini contains Google Gemini settings.
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig holds Google Gemini settings.
type GeminiConfig struct {
	// APIKey is the Gemini API key (loaded from RESEARCHHUB_LLM_GEMINI_API_KEY
	// or GEMINI_API_KEY).
	APIKey string `mapstructure:"-"`
	// Model is the Gemini model name.
	Model string `mapstructure:"model"`
	// BaseURL overrides the API endpoint.
	BaseURL string `mapstructure:"base_url"`
}

// PDFConfig holds document download settings.
type PDFConfig struct {
	// Timeout bounds the whole download, redirects included.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxSize is the largest accepted document in bytes.
	MaxSize int64 `mapstructure:"max_size"`
	// UserAgent is sent with every download.
	UserAgent string `mapstructure:"user_agent"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// GRPCAddress returns the gRPC server address.
func (c *ServerConfig) GRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GRPCPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from a .env file, environment variables and
// config files, in increasing order of precedence for the environment.
func Load() (*Config, error) {
	// Variables already present in the environment win over .env entries.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/researchhub")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)
	cfg.CORS.AllowedOrigins = normalizeOrigins(cfg.CORS.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// bindLegacyEnv accepts the unprefixed variable names used by existing
// deployments. Prefixed names take precedence.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"auth.supabase_url":    "SUPABASE_URL",
		"cors.allowed_origins": "ALLOWED_ORIGINS",
	}
	for key, legacy := range bindings {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// loadSecrets populates secret fields exclusively from environment variables.
// These fields are tagged with mapstructure:"-" to prevent loading from config files.
func loadSecrets(cfg *Config) {
	cfg.Auth.JWTSecret = firstEnv(EnvPrefix+"_AUTH_JWT_SECRET", "SUPABASE_JWT_SECRET")
	cfg.LLM.Gemini.APIKey = firstEnv(EnvPrefix+"_LLM_GEMINI_API_KEY", "GEMINI_API_KEY")
	cfg.PaperSources.SemanticScholar.APIKey = firstEnv(EnvPrefix+"_PAPER_SOURCES_SEMANTIC_SCHOLAR_API_KEY", "SEMANTIC_SCHOLAR_API_KEY")
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// normalizeOrigins trims entries and drops empty ones. A single entry holding
// a comma-separated list is split.
func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		for _, part := range strings.Split(o, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8000)
	v.SetDefault("server.grpc_port", 9090)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "2m")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "researchhub")

	v.SetDefault("cors.allowed_origins", []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5000",
	})

	// Auth defaults
	v.SetDefault("auth.supabase_url", "")
	v.SetDefault("auth.audience", "authenticated")
	v.SetDefault("auth.jwks_timeout", "10s")

	// Paper sources defaults - arXiv
	v.SetDefault("paper_sources.arxiv.enabled", true)
	v.SetDefault("paper_sources.arxiv.base_url", "https://export.arxiv.org/api")
	v.SetDefault("paper_sources.arxiv.timeout", "20s")
	v.SetDefault("paper_sources.arxiv.rate_limit", 3.0) // arXiv recommends max 3 req/sec

	// Paper sources defaults - OpenAlex
	v.SetDefault("paper_sources.openalex.enabled", true)
	v.SetDefault("paper_sources.openalex.base_url", "https://api.openalex.org")
	v.SetDefault("paper_sources.openalex.timeout", "20s")
	v.SetDefault("paper_sources.openalex.rate_limit", 10.0)
	v.SetDefault("paper_sources.openalex.email", "dev@researchhub.local")
	v.SetDefault("paper_sources.openalex.send_mailto", false)

	// Paper sources defaults - Semantic Scholar
	// API keys are loaded exclusively from environment variables (see loadSecrets).
	v.SetDefault("paper_sources.semantic_scholar.enabled", true)
	v.SetDefault("paper_sources.semantic_scholar.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("paper_sources.semantic_scholar.timeout", "20s")
	v.SetDefault("paper_sources.semantic_scholar.rate_limit", 10.0)

	// LLM defaults
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_retries", 0)
	v.SetDefault("llm.gemini.model", "gemini-2.5-flash")
	v.SetDefault("llm.gemini.base_url", "")

	// PDF download defaults
	v.SetDefault("pdf.timeout", "30s")
	v.SetDefault("pdf.max_size", 20*1024*1024)
	v.SetDefault("pdf.user_agent", "ResearchHubV2/1.0")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.GRPCPort <= 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.Server.GRPCPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Auth.SupabaseURL != "" {
		u, err := url.Parse(c.Auth.SupabaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("auth supabase_url must be an absolute http(s) URL: %q", c.Auth.SupabaseURL)
		}
	}

	sources := map[string]PaperSourceConfig{
		"arxiv":            c.PaperSources.ArXiv,
		"openalex":         c.PaperSources.OpenAlex.PaperSourceConfig,
		"semantic_scholar": c.PaperSources.SemanticScholar,
	}
	enabled := 0
	for name, s := range sources {
		if !s.Enabled {
			continue
		}
		enabled++
		if s.BaseURL == "" {
			return fmt.Errorf("paper source %s: base_url is required", name)
		}
		if s.Timeout <= 0 {
			return fmt.Errorf("paper source %s: timeout must be positive", name)
		}
		if s.RateLimit <= 0 {
			return fmt.Errorf("paper source %s: rate_limit must be positive", name)
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one paper source must be enabled")
	}

	if p := strings.ToLower(c.LLM.Provider); p != "" && p != "gemini" {
		return fmt.Errorf("unsupported LLM provider: %q", c.LLM.Provider)
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("LLM max_retries must not be negative")
	}

	if c.PDF.MaxSize <= 0 {
		return fmt.Errorf("pdf max_size must be positive")
	}

	return nil
}
