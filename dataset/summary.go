package dataset

import (
	"time"

	"github.com/spektr-org/spektr-retail/engine"
)

// maxSummaryItems caps the item list handed to the translator prompt.
const maxSummaryItems = 50

// Summary is the structural overview of a loaded dataset. It feeds the
// translator prompt and the dashboard endpoint.
type Summary struct {
	TotalRecords int          `json:"total_records"`
	Branches     []string     `json:"branches"`
	Items        []string     `json:"items"`
	Sections     []string     `json:"sections,omitempty"`
	ItemGroups   []string     `json:"item_groups,omitempty"`
	SalesGroups  []string     `json:"sales_groups,omitempty"`
	DateRange    *DateRange   `json:"date_range,omitempty"`
	RevenueStats RevenueStats `json:"revenue_stats"`
}

// DateRange is the earliest and latest transaction date.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// RevenueStats are computed over rows with a parsed total.
type RevenueStats struct {
	Total float64 `json:"total"`
	Avg   float64 `json:"avg"`
	Max   float64 `json:"max"`
	Min   float64 `json:"min"`
}

// Summarize computes a Summary over view.
func Summarize(view engine.RecordView) Summary {
	s := Summary{
		TotalRecords: view.Len(),
		Branches:     nonNil(engine.UniqueValues(view, engine.ColBranch)),
		Items:        nonNil(engine.UniqueValues(view, engine.ColItem)),
	}
	if len(s.Items) > maxSummaryItems {
		s.Items = s.Items[:maxSummaryItems]
	}
	if view.HasColumn(engine.ColSection) {
		s.Sections = engine.UniqueValues(view, engine.ColSection)
	}
	if view.HasColumn(engine.ColItemGroup) {
		s.ItemGroups = engine.UniqueValues(view, engine.ColItemGroup)
	}
	if view.HasColumn(engine.ColSalesGroup) {
		s.SalesGroups = engine.UniqueValues(view, engine.ColSalesGroup)
	}

	for i := 0; i < view.Len(); i++ {
		d, ok := view.Date(i)
		if !ok {
			continue
		}
		if s.DateRange == nil {
			s.DateRange = &DateRange{Start: d, End: d}
			continue
		}
		if d.Before(s.DateRange.Start) {
			s.DateRange.Start = d
		}
		if d.After(s.DateRange.End) {
			s.DateRange.End = d
		}
	}

	s.RevenueStats.Total = engine.SumMeasure(view, engine.ColTotal)
	if n := engine.CountMeasure(view, engine.ColTotal); n > 0 {
		s.RevenueStats.Avg = s.RevenueStats.Total / float64(n)
	}
	s.RevenueStats.Max = engine.MaxMeasure(view, engine.ColTotal)
	s.RevenueStats.Min = engine.MinMeasure(view, engine.ColTotal)
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
