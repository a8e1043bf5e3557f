package translator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/spektr-retail/dataset"
	"github.com/spektr-org/spektr-retail/engine"
)

// ============================================================================
// GEMINI TRANSLATOR TESTS
// ============================================================================

func geminiReply(t *testing.T, text string) []byte {
	t.Helper()
	body := map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	}
	out, err := json.Marshal(body)
	require.NoError(t, err)
	return out
}

func newTestGemini(url string) *GeminiTranslator {
	return NewGemini(Config{APIKey: "k", Model: "m", Endpoint: url, Timeout: 2 * time.Second})
}

func TestTranslate_ParsesFencedPlan(t *testing.T) {
	var gotPath, gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var req geminiRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotPrompt = req.Contents[0].Parts[0].Text
		w.Write(geminiReply(t, "```json\n{\"chart_type\":\"pie\",\"x_axis\":\"Item_Service_Description\",\"branch_filters\":[\"B1\"],\"limit\":5}\n```"))
	}))
	defer srv.Close()

	summary := dataset.Summary{TotalRecords: 3, Branches: []string{"B1", "B2"}}
	plan, err := newTestGemini(srv.URL).Translate(context.Background(), "top 5 items in B1", summary)
	require.NoError(t, err)

	assert.Equal(t, "/m:generateContent", gotPath)
	assert.Contains(t, gotPrompt, "USER QUERY: top 5 items in B1")
	assert.Contains(t, gotPrompt, `"B2"`)
	assert.Equal(t, engine.ChartPie, plan.Chart)
	assert.Equal(t, engine.ColItem, plan.Axis)
	assert.Equal(t, 5, plan.Limit)
	require.Len(t, plan.Predicates(), 1)
	assert.Equal(t, engine.Exact(engine.ColBranch, "B1"), plan.Predicates()[0])
}

func TestTranslate_Non200IsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"quota exhausted"}}`))
	}))
	defer srv.Close()

	_, err := newTestGemini(srv.URL).Translate(context.Background(), "q", dataset.Summary{})
	var up *engine.UpstreamServiceError
	require.True(t, errors.As(err, &up))
	assert.Equal(t, http.StatusTooManyRequests, up.Status)
	assert.Equal(t, "quota exhausted", up.Message)
}

func TestTranslate_ErrorBodyIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"code":400,"message":"bad key"}}`))
	}))
	defer srv.Close()

	_, err := newTestGemini(srv.URL).Translate(context.Background(), "q", dataset.Summary{})
	var up *engine.UpstreamServiceError
	require.True(t, errors.As(err, &up))
	assert.Equal(t, 400, up.Status)
}

func TestTranslate_EmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	_, err := newTestGemini(srv.URL).Translate(context.Background(), "q", dataset.Summary{})
	var up *engine.UpstreamServiceError
	require.True(t, errors.As(err, &up))
	assert.Equal(t, "empty response", up.Message)
}

func TestTranslate_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestGemini(url).Translate(context.Background(), "q", dataset.Summary{})
	var up *engine.UpstreamServiceError
	require.True(t, errors.As(err, &up))
	assert.Zero(t, up.Status)
	assert.Equal(t, "gemini", up.Service)
}

func TestTranslate_NonJSONTextIsInvalidPlan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(geminiReply(t, "Sorry, I cannot help with that."))
	}))
	defer srv.Close()

	_, err := newTestGemini(srv.URL).Translate(context.Background(), "q", dataset.Summary{})
	var inv *engine.InvalidPlanError
	require.True(t, errors.As(err, &inv))
}

func TestTranslate_RespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := newTestGemini(srv.URL).Translate(ctx, "q", dataset.Summary{})
	var up *engine.UpstreamServiceError
	require.True(t, errors.As(err, &up))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

// ============================================================================
// PROMPT / PARSER
// ============================================================================

func TestBuildPrompt_Sections(t *testing.T) {
	items := make([]string, 40)
	for i := range items {
		items[i] = "item-" + strings.Repeat("x", i%3) + string(rune('a'+i%26))
	}
	summary := dataset.Summary{TotalRecords: 10, Items: items, SalesGroups: []string{"Retail", "Wholesale"}}
	p := BuildPrompt("compare retail and wholesale", summary, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC))

	assert.Contains(t, p, "CURRENT DATE: 2024-09-01")
	assert.Contains(t, p, "DATA SUMMARY")
	assert.Contains(t, p, `"total_records": 10`)
	assert.Contains(t, p, `"Sales Group Name" (Sales Group)`)
	assert.Contains(t, p, `"Wholesale"`)
	assert.Contains(t, p, "comparison_mode")
	assert.NotContains(t, p, `"`+items[35]+`"`, "samples are capped")
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("  {\"a\":1} "))
}

func TestFuncAdapter(t *testing.T) {
	var tr Translator = Func(func(ctx context.Context, q string, s dataset.Summary) (engine.Plan, error) {
		return engine.ParsePlan([]byte(`{"x_axis":"Month"}`))
	})
	plan, err := tr.Translate(context.Background(), "q", dataset.Summary{})
	require.NoError(t, err)
	assert.Equal(t, engine.AxisMonth, plan.Axis)
}
