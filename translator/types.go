package translator

import (
	"context"
	"time"

	"github.com/spektr-org/spektr-retail/dataset"
	"github.com/spektr-org/spektr-retail/engine"
)

// ============================================================================
// TRANSLATOR — AI boundary for natural language → Plan
// ============================================================================
// The Translator is the only component that calls an external model.
// It receives the dataset summary and the user question, returns a Plan.
// It never sees raw rows.
// ============================================================================

// Translator turns a natural language question into a normalized Plan.
type Translator interface {
	Translate(ctx context.Context, query string, summary dataset.Summary) (engine.Plan, error)
}

// Func adapts a function to Translator.
type Func func(ctx context.Context, query string, summary dataset.Summary) (engine.Plan, error)

func (f Func) Translate(ctx context.Context, query string, summary dataset.Summary) (engine.Plan, error) {
	return f(ctx, query, summary)
}

// Config holds translator configuration.
type Config struct {
	APIKey   string        // AI provider API key
	Model    string        // Model name (e.g., "gemini-2.5-flash-lite")
	Endpoint string        // API endpoint override (empty = default)
	Timeout  time.Duration // Per-request bound (0 = 30s)
}

const (
	defaultModel    = "gemini-2.5-flash-lite"
	defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultTimeout  = 30 * time.Second
)

// DefaultGeminiConfig returns a Config with Gemini defaults.
func DefaultGeminiConfig(apiKey string) Config {
	return Config{
		APIKey:   apiKey,
		Model:    defaultModel,
		Endpoint: defaultEndpoint,
		Timeout:  defaultTimeout,
	}
}
