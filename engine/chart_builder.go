package engine

// ============================================================================
// CHART BUILDER — Produces ChartConfig from Plan + Aggregation
// ============================================================================
// Render-agnostic: one ChartSeries per metric (or per comparison side).
// Renderers decide layout; this only fixes series, labels, and colors.
// ============================================================================

// Default color palette for chart series.
var defaultColors = []string{
	"#1e40af", "#059669", "#d97706", "#dc2626",
	"#7c3aed", "#0891b2", "#65a30d", "#ea580c",
}

// BuildChart produces a ChartConfig from a plan and its aggregation.
// Returns nil when there is nothing to plot.
func BuildChart(plan Plan, agg *Aggregation) *ChartConfig {
	if agg == nil || len(agg.Primary) == 0 {
		return nil
	}

	config := &ChartConfig{
		ChartType:  string(plan.Chart),
		Title:      plan.Title,
		XAxis:      plan.Axis,
		YAxis:      axisTitle(plan.Primary),
		ShowLegend: plan.Dual || plan.Chart == ChartPie,
		ShowGrid:   plan.Chart != ChartPie,
	}

	config.Series = append(config.Series, buildSeries(agg.LabelA, agg.Primary))
	if agg.Secondary != nil {
		config.Series = append(config.Series, buildSeries(agg.LabelB, agg.Secondary))
	}

	config.Colors = assignColors(len(config.Series))
	for i := range config.Series {
		config.Series[i].Color = config.Colors[i]
	}
	return config
}

// ============================================================================
// SERIES BUILDERS
// ============================================================================

func buildSeries(name string, s Series) ChartSeries {
	if name == "" {
		name = "Value"
	}
	points := make([]ChartPoint, 0, len(s))
	for _, p := range s {
		points = append(points, ChartPoint{
			Label: p.Label,
			Value: RoundTo2(p.Value),
		})
	}
	return ChartSeries{Name: name, Data: points}
}

// axisTitle labels the value axis: "Row_Total (sum)", "count".
func axisTitle(m Metric) string {
	if m.Column == CountSentinel {
		return m.Label()
	}
	return m.Label() + " (" + string(m.Agg) + ")"
}

func assignColors(count int) []string {
	colors := make([]string, count)
	for i := 0; i < count; i++ {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}
