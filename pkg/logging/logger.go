// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above, including one event per HubSpot request.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"

	// LevelDisabled turns logging off.
	LevelDisabled LogLevel = "disabled"
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

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	level := ParseLevel(string(cfg.Level))
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel converts a level name to a zerolog.Level. Unknown names map to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off", "none":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// MaskCredential shortens a HubSpot token to its last four characters so it
// can be logged. Tokens of eight characters or less are masked entirely.
func MaskCredential(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}

// Nop returns a logger that discards everything. Library code falls back to
// it when the caller does not inject a logger.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// Log Level Guidelines:
//
// Debug: request construction and transport internals
//   - Resolved URL, list id, count and vidOffset of every fetch
//   - Batch size and verb of every add/remove
//   - Cache revalidation (ETag sent, 304 received)
//
// Info: normal operation events
//   - Rate limit state updates (healthy)
//   - Request succeeded after retry
//   - Proxy startup/shutdown
//
// Warn: conditions that don't prevent operation
//   - Non-2xx responses from HubSpot
//   - Retry attempts, rate limit throttling
//   - Cache errors (fallback to plain request)
//
// Error: conditions requiring attention
//   - Network failures after retries
//   - Requests blocked by the rate limiter
//   - Configuration errors
//
// Context Fields:
//   - component: hubspot-lists, hubspot-client, page-store, proxy
//   - credential: masked token (MaskCredential), never the raw value
//   - list_id: HubSpot contact list id
//   - action: fetch_page, add_batch, remove_batch
//   - endpoint: request path
//   - status: HTTP status code
//   - error_class: client, server, rate_limit, network
//   - requests_remaining: HubSpot burst limit remaining
