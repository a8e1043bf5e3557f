package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spektr-org/spektr-retail/dataset"
	"github.com/spektr-org/spektr-retail/engine"
)

// ============================================================================
// GEMINI TRANSLATOR — Calls Google Gemini for NL → Plan
// ============================================================================
// This is the only file that calls the model API. There are no retries:
// every failure surfaces to the caller as a typed error.
// ============================================================================

const serviceName = "gemini"

// GeminiTranslator implements Translator using the Google Gemini API.
type GeminiTranslator struct {
	config Config
	client *http.Client
	logger *slog.Logger
	opts   []engine.Option
	now    func() time.Time
}

// Compile-time check.
var _ Translator = (*GeminiTranslator)(nil)

// GeminiOption configures a GeminiTranslator.
type GeminiOption func(*GeminiTranslator)

// WithHTTPClient replaces the HTTP client. The client's timeout is kept.
func WithHTTPClient(c *http.Client) GeminiOption {
	return func(g *GeminiTranslator) {
		if c != nil {
			g.client = c
		}
	}
}

// WithLogger sets the logger for request logging.
func WithLogger(l *slog.Logger) GeminiOption {
	return func(g *GeminiTranslator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithPlanOptions passes engine options to plan normalization.
func WithPlanOptions(opts ...engine.Option) GeminiOption {
	return func(g *GeminiTranslator) {
		g.opts = append(g.opts, opts...)
	}
}

// NewGemini creates a new Gemini translator.
func NewGemini(cfg Config, opts ...GeminiOption) *GeminiTranslator {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	g := &GeminiTranslator{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Translate builds the prompt, calls Gemini and normalizes the reply.
func (g *GeminiTranslator) Translate(ctx context.Context, query string, summary dataset.Summary) (engine.Plan, error) {
	prompt := BuildPrompt(query, summary, g.now())

	g.logger.Info("translating query", "query", truncate(query, 80), "model", g.config.Model)
	started := time.Now()

	text, err := g.callGemini(ctx, prompt)
	if err != nil {
		g.logger.Warn("translator call failed", "error", err, "elapsed", time.Since(started))
		return engine.Plan{}, err
	}

	plan, err := parseResponse(text, g.opts...)
	if err != nil {
		g.logger.Warn("translator reply rejected", "error", err)
		return engine.Plan{}, err
	}

	g.logger.Info("query translated",
		"chart", plan.Chart,
		"axis", plan.Axis,
		"comparison", plan.Comparison,
		"predicates", len(plan.Predicates()),
		"elapsed", time.Since(started),
	)
	return plan, nil
}

// ============================================================================
// GEMINI API CALL
// ============================================================================

// geminiRequest is the Gemini API request body.
type geminiRequest struct {
	Contents         []geminiContent   `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

// geminiResponse is the Gemini API response body.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// callGemini sends a prompt to the Gemini API and returns the text response.
func (g *GeminiTranslator) callGemini(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/%s:generateContent?key=%s",
		g.config.Endpoint, g.config.Model, g.config.APIKey)

	reqBody := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{{Text: prompt}},
		}},
		GenerationConfig: &generationConfig{Temperature: 0, ResponseMIMEType: "application/json"},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", &engine.UpstreamServiceError{Service: serviceName, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &engine.UpstreamServiceError{Service: serviceName, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &engine.UpstreamServiceError{Service: serviceName, Status: resp.StatusCode, Message: "read response", Err: err}
	}

	var geminiResp geminiResponse
	decodeErr := json.Unmarshal(body, &geminiResp)

	if resp.StatusCode != http.StatusOK {
		msg := truncate(string(body), 200)
		if decodeErr == nil && geminiResp.Error != nil {
			msg = geminiResp.Error.Message
		}
		return "", &engine.UpstreamServiceError{Service: serviceName, Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return "", &engine.UpstreamServiceError{Service: serviceName, Status: resp.StatusCode, Message: "malformed response", Err: decodeErr}
	}
	if geminiResp.Error != nil {
		return "", &engine.UpstreamServiceError{Service: serviceName, Status: geminiResp.Error.Code, Message: geminiResp.Error.Message}
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", &engine.UpstreamServiceError{Service: serviceName, Status: resp.StatusCode, Message: "empty response"}
	}

	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}

// ============================================================================
// HELPERS
// ============================================================================

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
