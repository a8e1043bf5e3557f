package engine

import (
	"strings"
	"time"
)

// ============================================================================
// FILTERS — Ordered predicate chain via RecordView
// ============================================================================
// Predicates are AND-combined and applied strictly in list order: each one
// narrows the view produced by the previous one. Every step returns a
// SubView (index list into parent), zero data copy.
//
// A predicate on a column the view does not carry is skipped.
// ============================================================================

// ApplyPredicates narrows view by each predicate in order.
// Returns *EmptyResultError when the chain leaves no rows.
func ApplyPredicates(view RecordView, preds []Predicate, opts ...Option) (RecordView, error) {
	cfg := applyOptions(opts)
	original := view.Len()

	out := view
	for _, p := range preds {
		if !out.HasColumn(p.Column) {
			cfg.Logger.Debug("predicate skipped, column absent", "predicate", p.String())
			continue
		}
		before := out.Len()
		next := applyPredicate(out, p)
		if next.Len() == 0 && p.Kind == PredExact && cfg.SubstringFallback {
			next = applyPredicate(out, Substring(p.Column, p.Value))
			cfg.Logger.Debug("exact match empty, retried as substring", "column", p.Column, "value", p.Value)
		}
		out = next
		cfg.Logger.Debug("predicate applied", "predicate", p.String(), "before", before, "after", out.Len())
	}

	if out.Len() == 0 {
		return nil, &EmptyResultError{Predicates: append([]Predicate(nil), preds...), OriginalRows: original}
	}
	return out, nil
}

func applyPredicate(view RecordView, p Predicate) RecordView {
	match := matcher(view, p)
	if match == nil {
		return view
	}
	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if match(i) {
			indices = append(indices, i)
		}
	}
	return newSubView(view, indices)
}

// matcher compiles a predicate into a row test. nil means "keep everything".
func matcher(view RecordView, p Predicate) func(int) bool {
	col := p.Column
	switch p.Kind {
	case PredExact:
		want := normalize(p.Value)
		return func(i int) bool { return normalize(view.Value(i, col)) == want }

	case PredMembership:
		set := make(map[string]bool, len(p.Values))
		for _, v := range p.Values {
			set[v] = true
		}
		return func(i int) bool {
			v := view.Value(i, col)
			return v != "" && set[v]
		}

	case PredSubstring:
		term := strings.ToLower(p.Value)
		return func(i int) bool { return strings.Contains(strings.ToLower(view.Value(i, col)), term) }

	case PredSubstringUnion:
		terms := lowerTerms(p.Values)
		if len(terms) == 0 {
			return nil
		}
		// One pass over the rows: each row is kept at most once, in original
		// order, however many terms it matches.
		return func(i int) bool {
			v := strings.ToLower(view.Value(i, col))
			for _, t := range terms {
				if strings.Contains(v, t) {
					return true
				}
			}
			return false
		}

	case PredDateEquals:
		want := dayOf(p.Date)
		return func(i int) bool {
			d, ok := view.Date(i)
			return ok && dayOf(d).Equal(want)
		}

	case PredDateRange:
		start, end := dayOf(p.Start), dayOf(p.End)
		return func(i int) bool {
			d, ok := view.Date(i)
			if !ok {
				return false
			}
			day := dayOf(d)
			return !day.Before(start) && !day.After(end)
		}

	case PredMonthEquals:
		return dateComponent(view, []int{p.Number}, func(t time.Time) int { return int(t.Month()) })
	case PredMonthIn:
		return dateComponent(view, p.Numbers, func(t time.Time) int { return int(t.Month()) })
	case PredYearEquals:
		return dateComponent(view, []int{p.Number}, time.Time.Year)
	case PredYearIn:
		return dateComponent(view, p.Numbers, time.Time.Year)
	}
	return nil
}

func dateComponent(view RecordView, allowed []int, part func(time.Time) int) func(int) bool {
	set := make(map[int]bool, len(allowed))
	for _, n := range allowed {
		set[n] = true
	}
	return func(i int) bool {
		d, ok := view.Date(i)
		return ok && set[part(d)]
	}
}

// ============================================================================
// HELPERS
// ============================================================================

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func lowerTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = normalize(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
