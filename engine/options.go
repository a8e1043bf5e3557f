package engine

import (
	"io"
	"log/slog"
)

// ============================================================================
// ENGINE OPTIONS — Functional options for NormalizePlan / Execute
// ============================================================================

// DefaultYear is the year given to "MM-DD" dates that carry no year.
const DefaultYear = 2024

// Option configures engine behavior via functional options pattern.
type Option func(*config)

type config struct {
	Logger            *slog.Logger
	DefaultYear       int
	SubstringFallback bool
}

// WithLogger sets the logger used for pipeline step logging.
// Without it the engine stays silent.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithDefaultYear sets the year for dates given as "MM-DD".
func WithDefaultYear(year int) Option {
	return func(c *config) {
		if year > 0 {
			c.DefaultYear = year
		}
	}
}

// WithSubstringFallback makes an exact predicate that matches nothing retry
// as a case-insensitive substring match on the same column.
func WithSubstringFallback() Option {
	return func(c *config) {
		c.SubstringFallback = true
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		DefaultYear: DefaultYear,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
