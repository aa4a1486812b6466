package observability

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoggingConfig contains logger configuration options.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	// Unknown values fall back to info.
	Level string

	// Format is json (default) or console/pretty.
	Format string

	// Output is stdout (default) or stderr. Ignored when Writer is set.
	Output string

	// Writer overrides Output.
	Writer io.Writer

	// AddSource adds caller file and line.
	AddSource bool

	// TimeFormat for timestamps. Defaults to RFC3339.
	TimeFormat string

	// Service, when set, is attached to every entry.
	Service string
}

// NewLogger builds the process logger.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	out := cfg.Writer
	if out == nil {
		out = os.Stdout
		if strings.EqualFold(cfg.Output, "stderr") {
			out = os.Stderr
		}
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	zerolog.TimeFieldFormat = timeFormat

	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat}
	}

	lc := zerolog.New(out).With().Timestamp()
	if cfg.Service != "" {
		lc = lc.Str("service", cfg.Service)
	}
	if cfg.AddSource {
		lc = lc.Caller()
	}

	return lc.Logger().Level(parseLevel(cfg.Level))
}

func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// WithRequestContext adds the request and user identifiers to a logger.
// Empty values are omitted.
func WithRequestContext(logger zerolog.Logger, requestID, userID string) zerolog.Logger {
	lc := logger.With()
	if requestID != "" {
		lc = lc.Str("request_id", requestID)
	}
	if userID != "" {
		lc = lc.Str("user_id", userID)
	}
	return lc.Logger()
}

// WithSearchContext tags a logger with the search query and provider.
func WithSearchContext(logger zerolog.Logger, query, source string) zerolog.Logger {
	return logger.With().Str("query", query).Str("source", source).Logger()
}

// WithAIContext tags a logger with the AI operation and target language.
func WithAIContext(logger zerolog.Logger, operation, language string) zerolog.Logger {
	return logger.With().Str("operation", operation).Str("language", language).Logger()
}

// FromContext returns logger enriched with whatever request context ctx carries.
func FromContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	return WithRequestContext(logger, RequestIDFromContext(ctx), UserIDFromContext(ctx))
}
