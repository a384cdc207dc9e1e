package secretscope

import (
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/blueberrycongee/secretscope/pkg/errors"
)

// SessionConfig holds all configuration for a Session.
type SessionConfig struct {
	// ScratchDir is where artifact directories are created. Empty means the
	// system temp directory. It should never point inside a caller-visible
	// working tree.
	ScratchDir string

	// EnvKey is the environment variable name the binding is exported under.
	EnvKey string

	// Separator joins artifact paths into the binding value.
	Separator string

	// Logger receives structured session logs. Payloads are redacted before
	// they can reach it.
	Logger *slog.Logger

	// CleanupObserver, if set, receives the cleanup report of every session
	// teardown that produced warnings.
	CleanupObserver func(*errors.CleanupReport)

	// Tracer, if set, produces a span per session run.
	Tracer trace.Tracer
}

// Option is a function that configures the Session.
type Option func(*SessionConfig)

// defaultConfig returns sensible defaults.
func defaultConfig() *SessionConfig {
	return &SessionConfig{
		EnvKey:    "SECRET_FILES",
		Separator: ",",
	}
}

// WithScratchDir sets the directory under which per-session artifact
// directories are created.
func WithScratchDir(dir string) Option {
	return func(c *SessionConfig) {
		c.ScratchDir = dir
	}
}

// WithEnvKey sets the environment variable name used by Binding.Environ.
func WithEnvKey(key string) Option {
	return func(c *SessionConfig) {
		if strings.TrimSpace(key) != "" {
			c.EnvKey = key
		}
	}
}

// WithSeparator sets the string joining artifact paths in the binding value.
func WithSeparator(sep string) Option {
	return func(c *SessionConfig) {
		if sep != "" {
			c.Separator = sep
		}
	}
}

// WithLogger sets the structured logger for session lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *SessionConfig) {
		c.Logger = logger
	}
}

// WithCleanupObserver registers a callback invoked with the cleanup report
// of any teardown that failed to delete one or more artifacts. The report
// never changes the session outcome.
func WithCleanupObserver(fn func(*errors.CleanupReport)) Option {
	return func(c *SessionConfig) {
		c.CleanupObserver = fn
	}
}

// WithTracer sets the OpenTelemetry tracer used for session spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *SessionConfig) {
		c.Tracer = tracer
	}
}
