// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Component names used for the "component" field.
const (
	ComponentClient    = "tmdb-client"
	ComponentCache     = "response-cache"
	ComponentMetadata  = "metadata-fetcher"
	ComponentAssembler = "film-assembler"
	ComponentBatch     = "batch-assembler"
	ComponentServer    = "tmdb-proxy"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns JSON logging at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// ParseLevel maps a configured level name to a zerolog level. Names are
// case-insensitive, "warning" is accepted for warn and an empty name is info.
func ParseLevel(level string) (zerolog.Level, error) {
	name := strings.ToLower(strings.TrimSpace(level))
	switch name {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		name = string(LevelWarn)
	}
	l, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
	return l, nil
}

// Setup installs the global logger described by cfg and returns it.
// An unknown level falls back to info and is reported once.
func Setup(cfg Config) zerolog.Logger {
	level, levelErr := ParseLevel(string(cfg.Level))
	zerolog.SetGlobalLevel(level)

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	if levelErr != nil {
		log.Warn().Err(levelErr).Msg("Falling back to info logging")
	}
	return log.Logger
}

// NewLogger returns a child of the global logger tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// FromContext returns the request-scoped logger stored in ctx, or the global
// logger when ctx carries none.
func FromContext(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}

// Log Level Guidelines:
//
// Debug: cache hit/miss with region and key, upstream path, coalesced loads
// Info:  server startup/shutdown, served API requests, batch summaries
// Warn:  cache store errors (request continues uncached), upstream non-2xx
// Error: startup failures, assembly failures surfaced to API callers
//
// Context Fields:
//   - region: cache region (tmdb_searches, tmdb_movies)
//   - key: cache key
//   - path: upstream path (never the full URL, it carries the API key)
//   - status: HTTP status code
//   - error_class: client, server, rate_limit, network
//   - movie_id: TMDB movie id
//   - request_id: X-Request-ID of an inbound API request
