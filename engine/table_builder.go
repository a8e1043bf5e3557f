package engine

import (
	"fmt"
)

// ============================================================================
// TABLE BUILDER — Produces TableData from Plan + Aggregation
// ============================================================================
// Values are display-formatted by the metric's own formatter. unit is the
// quantity unit-of-measure label (see DominantUoM).
// ============================================================================

// BuildTable produces a display table for an aggregation.
func BuildTable(plan Plan, agg *Aggregation, unit string) *TableData {
	td := &TableData{
		Title:   plan.Title,
		Columns: []Column{{Key: "group", Label: plan.Axis, Type: "text", Align: "left"}},
		Rows:    [][]string{},
	}
	if agg == nil {
		return td
	}

	metricA := plan.Primary
	metricB := plan.Primary
	if sec, ok := plan.Secondary(); ok {
		metricB = sec
	}

	td.Columns = append(td.Columns, Column{Key: "a", Label: agg.LabelA, Type: columnType(metricA), Align: "right"})
	if agg.Secondary != nil {
		td.Columns = append(td.Columns, Column{Key: "b", Label: agg.LabelB, Type: columnType(metricB), Align: "right"})
	}
	if agg.Share != nil {
		td.Columns = append(td.Columns,
			Column{Key: "share_a", Label: agg.LabelA + " %", Type: "percent", Align: "right"},
			Column{Key: "share_b", Label: agg.LabelB + " %", Type: "percent", Align: "right"},
		)
	}

	for i, p := range agg.Primary {
		row := []string{p.Label, metricA.Format(p.Value, unit)}
		if agg.Secondary != nil {
			row = append(row, metricB.Format(agg.Secondary[i].Value, unit))
		}
		if agg.Share != nil {
			row = append(row,
				fmt.Sprintf("%.1f%%", agg.Share.A[i]),
				fmt.Sprintf("%.1f%%", agg.Share.B[i]),
			)
		}
		td.Rows = append(td.Rows, row)
	}

	// Means have no total.
	values := map[string]string{"a": metricA.Format(agg.Primary.Total(), unit)}
	if agg.Secondary != nil && metricB.Agg != AggMean {
		values["b"] = metricB.Format(agg.Secondary.Total(), unit)
	}
	if metricA.Agg != AggMean {
		td.Summary = &Summary{Label: "Total", Values: values}
	}
	return td
}

func columnType(m Metric) string {
	if m.Kind == MetricCurrency {
		return "currency"
	}
	return "number"
}
