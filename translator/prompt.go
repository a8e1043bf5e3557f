package translator

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spektr-org/spektr-retail/dataset"
	"github.com/spektr-org/spektr-retail/engine"
	"github.com/spektr-org/spektr-retail/schema"
)

// ============================================================================
// PROMPT BUILDER — Schema-driven plan prompt
// ============================================================================
// The prompt carries the fixed sales schema, sample values from the current
// dataset summary, the plan JSON format and the interpretation rules.
// Only metadata is sent, never rows.
// ============================================================================

// maxSamples caps the sample values listed per dimension.
const maxSamples = 30

// BuildPrompt generates the complete prompt for one question.
func BuildPrompt(query string, summary dataset.Summary, now time.Time) string {
	sch := schema.Sales().WithSamples(samplesFrom(summary))

	var b strings.Builder

	// ── Header ────────────────────────────────────────────────────────────
	fmt.Fprintf(&b, `You are a query planner for "%s", a retail sales analytics application.

CURRENT DATE: %s

YOUR ROLE:
Translate the user's question into a JSON chart plan that a computation engine will execute.
You are a PLANNER ONLY. Do NOT compute any values.

`, sch.Name, now.Format("2006-01-02"))

	// ── Data Summary ──────────────────────────────────────────────────────
	b.WriteString("DATA SUMMARY (what data is available, NOT actual values):\n")
	b.WriteString(summaryJSON(summary))
	b.WriteString("\n\n")

	// ── Schema Description ────────────────────────────────────────────────
	b.WriteString("DATA MODEL:\n")
	b.WriteString(buildDimensionDescription(sch))
	b.WriteString(buildMeasureDescription(sch))
	b.WriteString("\n")

	b.WriteString(responseFormat)
	b.WriteString(planRules)
	b.WriteString(exampleTranslations)

	fmt.Fprintf(&b, "\nUSER QUERY: %s\n\nRespond with valid JSON only:", query)
	return b.String()
}

// ============================================================================
// SECTION BUILDERS
// ============================================================================

func samplesFrom(s dataset.Summary) map[string][]string {
	return map[string][]string{
		engine.ColBranch:     capSamples(s.Branches),
		engine.ColSection:    capSamples(s.Sections),
		engine.ColItem:       capSamples(s.Items),
		engine.ColItemGroup:  capSamples(s.ItemGroups),
		engine.ColSalesGroup: capSamples(s.SalesGroups),
	}
}

func capSamples(vals []string) []string {
	if len(vals) > maxSamples {
		return vals[:maxSamples]
	}
	return vals
}

func summaryJSON(s dataset.Summary) string {
	compact := struct {
		TotalRecords int                  `json:"total_records"`
		DateRange    *dataset.DateRange   `json:"date_range,omitempty"`
		Revenue      dataset.RevenueStats `json:"revenue_stats"`
	}{s.TotalRecords, s.DateRange, s.RevenueStats}
	out, _ := json.MarshalIndent(compact, "", "  ")
	return string(out)
}

func buildDimensionDescription(sch schema.Config) string {
	var b strings.Builder
	b.WriteString("DIMENSIONS (x_axis candidates):\n")
	for _, d := range sch.Dimensions {
		fmt.Fprintf(&b, "- \"%s\" (%s)", d.Key, d.DisplayName)
		if d.Description != "" {
			fmt.Fprintf(&b, ": %s", d.Description)
		}
		if d.FilterField != "" {
			fmt.Fprintf(&b, " [filter: %s]", d.FilterField)
		}
		if len(d.SampleValues) > 0 {
			fmt.Fprintf(&b, " values: [%s]", strings.Join(quotedValues(d.SampleValues), ", "))
		}
		if d.IsTemporal {
			b.WriteString(" [TEMPORAL]")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func buildMeasureDescription(sch schema.Config) string {
	var b strings.Builder
	b.WriteString("\nMEASURES (y_axis candidates):\n")
	for _, m := range sch.Measures {
		fmt.Fprintf(&b, "- \"%s\" (%s)", m.Key, m.DisplayName)
		if m.Description != "" {
			fmt.Fprintf(&b, ": %s", m.Description)
		}
		if m.Unit != "" {
			fmt.Fprintf(&b, " [unit: %s]", m.Unit)
		}
		fmt.Fprintf(&b, " aggregations: [%s]\n", strings.Join(m.Aggregations, ", "))
	}
	return b.String()
}

const responseFormat = `RESPONSE FORMAT (ALWAYS valid JSON, no markdown):
{
  "chart_type": "bar|pie|line|dual_bar",
  "x_axis": "Branch_Name|SK_Section|Item_Service_Description|Item Group Name|Sales Group Name|Month|Date",
  "y_axis": "Row_Total|Quantity|count|dual",
  "aggregation": "sum|mean|count",
  "branch_filters": [],
  "section_filters": [],
  "item_filters": [],
  "item_group_filters": [],
  "sales_group_filters": [],
  "month_filter": null,
  "date_filter": null,
  "year_filter": null,
  "limit": 10,
  "title": "Chart title",
  "dual_metrics": false,
  "comparison_mode": "metrics|month|year|sales_group|branch|section|item_group"
}

`

const planRules = `PLAN RULES:

1. Filters:
   - Use values from the DATA SUMMARY where possible.
   - One value in a list filters exactly; several values keep rows matching any of them.
   - item_filters match by substring, so "paneer" matches every paneer variant.
   - month_filter is a month number 1-12 or a list of them.
   - date_filter is "YYYY-MM-DD", "MM-DD", or a two-element [start, end] range.
   - year_filter is a year or a list of years.

2. Metrics:
   - "Row_Total" for revenue or sales value (default).
   - "Quantity" for units sold.
   - "count" for number of transactions.
   - "dual" or dual_metrics=true with chart_type "dual_bar" shows revenue and quantity together.

3. Comparisons:
   - Comparing two months, two years, two branches, two sections, two item groups
     or two sales groups sets dual_metrics=true and comparison_mode to the compared field.
     Put exactly the two compared values in the matching filter.
   - comparison_mode "metrics" compares revenue with quantity.

4. Charts:
   - "pie" for shares of a whole, "line" for trends over Month or Date, "bar" otherwise.
   - limit is the number of groups to keep (top N by value).

`

const exampleTranslations = `EXAMPLE QUERY TRANSLATIONS:
- "top 5 items in B1" → x_axis:"Item_Service_Description", branch_filters:["B1"], limit:5
- "revenue by branch" → x_axis:"Branch_Name", y_axis:"Row_Total", aggregation:"sum"
- "monthly sales trend" → chart_type:"line", x_axis:"Month"
- "paneer sales by branch" → x_axis:"Branch_Name", item_filters:["paneer"]
- "July vs August items" → x_axis:"Item_Service_Description", month_filter:[7,8], dual_metrics:true, comparison_mode:"month"
- "revenue and quantity by section" → chart_type:"dual_bar", x_axis:"SK_Section", y_axis:"dual"
- "how many bills per branch" → y_axis:"count", aggregation:"count"
`

// ============================================================================
// HELPERS
// ============================================================================

func quotedValues(vals []string) []string {
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return quoted
}
