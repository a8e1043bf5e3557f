package engine

import (
	"fmt"
	"strings"
	"time"
)

// ============================================================================
// TEXT BUILDER — one-line summary and period label
// ============================================================================

var chartDescriptions = map[ChartType]string{
	ChartBar:  "comparison chart",
	ChartPie:  "distribution chart",
	ChartLine: "trend chart",
}

// BuildSummary describes what was computed:
// "Created a comparison chart showing Row_Total by Branch_Name."
func BuildSummary(plan Plan) string {
	desc, ok := chartDescriptions[plan.Chart]
	if !ok {
		desc = "chart"
	}
	return fmt.Sprintf("Created a %s showing %s by %s.", desc, plan.Primary.Label(), plan.Axis)
}

// BuildComparisonNote describes the two sides of a dual result, or "" for
// single-metric results.
func BuildComparisonNote(agg *Aggregation) string {
	if agg == nil || agg.Secondary == nil {
		return ""
	}
	return fmt.Sprintf("%s vs %s across %d group(s).", agg.LabelA, agg.LabelB, len(agg.Primary))
}

// DerivePeriod returns the month span covered by view's dates:
// "August 2024", "July 2024 – August 2024", or "" when no row has a date.
func DerivePeriod(view RecordView) string {
	var first, last time.Time
	found := false
	for i := 0; i < view.Len(); i++ {
		d, ok := view.Date(i)
		if !ok {
			continue
		}
		if !found || d.Before(first) {
			first = d
		}
		if !found || d.After(last) {
			last = d
		}
		found = true
	}
	if !found {
		return ""
	}

	from, to := first.Format("January 2006"), last.Format("January 2006")
	if from == to {
		return from
	}
	return strings.Join([]string{from, to}, " – ")
}
