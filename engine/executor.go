package engine

import (
	"time"
)

// ============================================================================
// EXECUTOR — filter → aggregate → format
// ============================================================================
// Entry point: Execute(plan, view, opts...)
//
// Pipeline:
//   1. Apply the plan's predicates in order → SubView
//   2. Group and aggregate on the plan's axis
//   3. Format into a render-ready Result
//
// This function never calls an external service and never recovers its own
// errors: *EmptyResultError and *UnknownAxisError reach the caller as-is.
// ============================================================================

// Execute runs a normalized Plan against a RecordView.
//
// Options:
//   - WithLogger(l): step logging
//   - WithSubstringFallback(): retry empty exact matches as substring
func Execute(plan Plan, view RecordView, opts ...Option) (*Result, error) {
	cfg := applyOptions(opts)
	started := time.Now()
	log := cfg.Logger.With("title", plan.Title)

	log.Info("executing plan",
		"rows", view.Len(), "chart", plan.Chart, "axis", plan.Axis,
		"metric", plan.Primary.Label(), "agg", plan.Primary.Agg,
		"predicates", len(plan.predicates), "limit", plan.Limit,
		"dual", plan.Dual, "comparison", plan.Comparison)

	// 1. Filter → SubView (zero-copy)
	filtered, err := ApplyPredicates(view, plan.predicates, opts...)
	if err != nil {
		log.Warn("no rows matched predicates", "error", err)
		return nil, err
	}
	log.Debug("filtered", "from", view.Len(), "to", filtered.Len())

	// 2. Group and aggregate
	agg, err := Aggregate(filtered, plan)
	if err != nil {
		log.Warn("aggregation failed", "error", err)
		return nil, err
	}

	// 3. Format
	unit := ""
	sec, dual := plan.Secondary()
	if plan.Primary.Kind == MetricQuantity || dual && sec.Kind == MetricQuantity {
		unit = DominantUoM(filtered)
	}
	result := Format(agg, plan, unit)
	result.Period = DerivePeriod(filtered)
	result.RowCount = filtered.Len()

	log.Info("plan executed", "groups", len(agg.Primary), "rows", filtered.Len(), "elapsed", time.Since(started))
	return result, nil
}

// Format converts an aggregation into a Result. Pure; preserves the
// aggregation's order.
func Format(agg *Aggregation, plan Plan, unit string) *Result {
	r := &Result{
		ChartType:  string(plan.Chart),
		Title:      plan.Title,
		XAxis:      plan.Axis,
		YAxis:      plan.Primary.Label(),
		Dual:       plan.Dual,
		Comparison: plan.Comparison,
		Summary:    BuildSummary(plan),
		Unit:       unit,
	}
	if agg == nil {
		return r
	}

	if agg.Secondary == nil {
		r.Data = make([]DataPoint, len(agg.Primary))
		for i, p := range agg.Primary {
			r.Data[i] = DataPoint{Name: p.Label, Value: p.Value}
		}
	} else {
		r.SeriesA, r.SeriesB = agg.LabelA, agg.LabelB
		r.Note = BuildComparisonNote(agg)
		r.Pairs = make([]PairPoint, len(agg.Primary))
		for i, p := range agg.Primary {
			r.Pairs[i] = PairPoint{Name: p.Label, MetricA: p.Value, MetricB: agg.Secondary[i].Value}
		}
		if agg.Share != nil {
			r.Share = make([]PairPoint, len(agg.Share.Keys))
			for i := range agg.Share.Keys {
				r.Share[i] = PairPoint{Name: agg.Share.Labels[i], MetricA: agg.Share.A[i], MetricB: agg.Share.B[i]}
			}
		}
	}

	r.ChartConfig = BuildChart(plan, agg)
	r.TableData = BuildTable(plan, agg, unit)
	return r
}
