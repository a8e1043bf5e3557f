package translator

import (
	"strings"

	"github.com/spektr-org/spektr-retail/engine"
)

// ============================================================================
// RESPONSE PARSER — Extracts a Plan from model text
// ============================================================================

// parseResponse strips markdown fences and hands the text to the plan
// normalizer. Anything that is not a JSON object is an InvalidPlanError.
func parseResponse(response string, opts ...engine.Option) (engine.Plan, error) {
	return engine.ParsePlan([]byte(stripFences(response)), opts...)
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
