package engine

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// AGGREGATORS — Grouping, Aggregation, and Ordering via RecordView
// ============================================================================
// Pipeline: group → aggregate → order → top-N.
//
// Ordering: temporal axes (Month, Date) read chronologically, categorical
// axes descending by value with first-seen order on ties. Top-N is always
// taken after ordering.
//
// Dual plans either align a secondary metric onto the primary keys
// (CompareMetrics) or split rows into two sides and align both sides onto
// the union of their keys (every other ComparisonMode).
// ============================================================================

// Aggregate groups view by the plan's axis and reduces each group.
func Aggregate(view RecordView, plan Plan) (*Aggregation, error) {
	if err := checkAxis(view, plan.Axis); err != nil {
		return nil, err
	}

	switch {
	case plan.Dual && plan.Comparison.IsSplit():
		return aggregateSplit(view, plan), nil
	case plan.Dual && plan.secondary != nil:
		return aggregateMetrics(view, plan), nil
	default:
		g := groupBy(view, plan.Axis)
		primary := topN(order(g.series(view, plan.Primary), plan.IsTemporalAxis()), plan.Limit)
		return &Aggregation{Primary: primary, LabelA: plan.Primary.Label()}, nil
	}
}

func checkAxis(view RecordView, axis string) error {
	col := axis
	if isTemporal(axis) {
		col = ColDate
	}
	if axis == "" || !view.HasColumn(col) {
		return &UnknownAxisError{Axis: axis, Available: view.Columns()}
	}
	return nil
}

// ============================================================================
// GROUPING
// ============================================================================

// groups holds row indices per axis key, in first-seen key order.
type groups struct {
	keys    []string
	labels  map[string]string
	members map[string][]int
}

func groupBy(view RecordView, axis string) *groups {
	g := &groups{labels: make(map[string]string), members: make(map[string][]int)}
	for i := 0; i < view.Len(); i++ {
		key, label, ok := axisKey(view, i, axis)
		if !ok {
			continue
		}
		if _, exists := g.members[key]; !exists {
			g.keys = append(g.keys, key)
			g.labels[key] = label
		}
		g.members[key] = append(g.members[key], i)
	}
	return g
}

// axisKey returns the sortable group key and display label of row i.
// Rows with no value for the axis are not grouped.
func axisKey(view RecordView, i int, axis string) (key, label string, ok bool) {
	switch axis {
	case AxisMonth:
		d, ok := view.Date(i)
		if !ok {
			return "", "", false
		}
		return d.Format("2006-01"), d.Format("January 2006"), true
	case ColDate:
		d, ok := view.Date(i)
		if !ok {
			return "", "", false
		}
		s := d.Format("2006-01-02")
		return s, s, true
	default:
		v := view.Value(i, axis)
		if strings.TrimSpace(v) == "" {
			return "", "", false
		}
		return v, v, true
	}
}

// series reduces every group with m, in first-seen order.
func (g *groups) series(view RecordView, m Metric) Series {
	out := make(Series, 0, len(g.keys))
	for _, k := range g.keys {
		idx := g.members[k]
		out = append(out, Point{Key: k, Label: g.labels[k], Value: m.Reduce(view, idx), Count: len(idx)})
	}
	return out
}

// ============================================================================
// ORDERING
// ============================================================================

func order(s Series, temporal bool) Series {
	if temporal {
		// "2006-01" and "2006-01-02" keys sort chronologically as strings.
		sort.SliceStable(s, func(i, j int) bool { return s[i].Key < s[j].Key })
	} else {
		sort.SliceStable(s, func(i, j int) bool { return s[i].Value > s[j].Value })
	}
	return s
}

func topN(s Series, limit int) Series {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}

// ============================================================================
// DUAL — two metrics over one axis
// ============================================================================

// aggregateMetrics computes the primary series (ordering and top-N decide
// the key set), then reindexes the secondary metric onto those keys.
func aggregateMetrics(view RecordView, plan Plan) *Aggregation {
	g := groupBy(view, plan.Axis)
	primary := topN(order(g.series(view, plan.Primary), plan.IsTemporalAxis()), plan.Limit)

	sec, _ := plan.Secondary()
	secondary := make(Series, len(primary))
	for i, p := range primary {
		idx := g.members[p.Key]
		pt := Point{Key: p.Key, Label: p.Label, Count: len(idx)}
		if len(idx) > 0 {
			pt.Value = sec.Reduce(view, idx)
		}
		secondary[i] = pt
	}

	return &Aggregation{
		Primary:   primary,
		Secondary: secondary,
		LabelA:    plan.Primary.Label(),
		LabelB:    sec.Label(),
	}
}

// ============================================================================
// DUAL — one metric split across two comparison groups
// ============================================================================

// aggregateSplit partitions rows into the two sides of the comparison,
// groups each side on the shared axis, and aligns both onto the union of
// keys with zero fill.
func aggregateSplit(view RecordView, plan Plan) *Aggregation {
	side := sideFunc(view, plan.Comparison, plan.CompareValues)

	var a, b []int
	for i := 0; i < view.Len(); i++ {
		switch side(i) {
		case 0:
			a = append(a, i)
		case 1:
			b = append(b, i)
		}
	}
	va, vb := newSubView(view, a), newSubView(view, b)
	sa := groupBy(va, plan.Axis).series(va, plan.Primary)
	sb := groupBy(vb, plan.Axis).series(vb, plan.Primary)

	// Union of keys, first-seen order: side A then side B.
	type entry struct {
		key, label string
		a, b       Point
	}
	var union []*entry
	byKey := make(map[string]*entry)
	add := func(p Point, isA bool) {
		e, ok := byKey[p.Key]
		if !ok {
			e = &entry{key: p.Key, label: p.Label}
			byKey[p.Key] = e
			union = append(union, e)
		}
		if isA {
			e.a = p
		} else {
			e.b = p
		}
	}
	for _, p := range sa {
		add(p, true)
	}
	for _, p := range sb {
		add(p, false)
	}

	if plan.IsTemporalAxis() {
		sort.SliceStable(union, func(i, j int) bool { return union[i].key < union[j].key })
	} else {
		sort.SliceStable(union, func(i, j int) bool {
			return union[i].a.Value+union[i].b.Value > union[j].a.Value+union[j].b.Value
		})
	}
	if plan.Limit > 0 && len(union) > plan.Limit {
		union = union[:plan.Limit]
	}

	primary := make(Series, len(union))
	secondary := make(Series, len(union))
	for i, e := range union {
		primary[i] = Point{Key: e.key, Label: e.label, Value: e.a.Value, Count: e.a.Count}
		secondary[i] = Point{Key: e.key, Label: e.label, Value: e.b.Value, Count: e.b.Count}
	}

	labelA, labelB := sideLabels(plan.Comparison, plan.CompareValues)
	return &Aggregation{
		Primary:   primary,
		Secondary: secondary,
		Share:     ShareOf(primary, secondary),
		LabelA:    labelA,
		LabelB:    labelB,
	}
}

// sideFunc returns 0 or 1 for rows on either side of the comparison, -1 otherwise.
func sideFunc(view RecordView, mode ComparisonMode, vals [2]string) func(int) int {
	switch mode {
	case CompareMonth, CompareYear:
		na, _ := strconv.Atoi(vals[0])
		nb, _ := strconv.Atoi(vals[1])
		part := func(t time.Time) int { return int(t.Month()) }
		if mode == CompareYear {
			part = time.Time.Year
		}
		return func(i int) int {
			d, ok := view.Date(i)
			if !ok {
				return -1
			}
			switch part(d) {
			case na:
				return 0
			case nb:
				return 1
			}
			return -1
		}
	default:
		col := mode.Column()
		va, vb := normalize(vals[0]), normalize(vals[1])
		return func(i int) int {
			switch normalize(view.Value(i, col)) {
			case va:
				return 0
			case vb:
				return 1
			}
			return -1
		}
	}
}

func sideLabels(mode ComparisonMode, vals [2]string) (string, string) {
	if mode == CompareMonth {
		return monthLabel(vals[0]), monthLabel(vals[1])
	}
	return vals[0], vals[1]
}

func monthLabel(s string) string {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 12 {
		return s
	}
	return time.Month(n).String()
}

// ShareOf derives the percentage split of each key between two aligned
// series: a/(a+b)*100 and b/(a+b)*100, both 0 when a+b is 0.
func ShareOf(a, b Series) *ShareView {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sv := &ShareView{
		Keys:   make([]string, n),
		Labels: make([]string, n),
		A:      make([]float64, n),
		B:      make([]float64, n),
	}
	for i := 0; i < n; i++ {
		sv.Keys[i] = a[i].Key
		sv.Labels[i] = a[i].Label
		total := a[i].Value + b[i].Value
		if total > 0 {
			sv.A[i] = a[i].Value / total * 100
			sv.B[i] = b[i].Value / total * 100
		}
	}
	return sv
}

// ============================================================================
// MEASURE HELPERS — missing values are skipped
// ============================================================================

// SumMeasure sums a named measure across a view.
func SumMeasure(view RecordView, measure string) float64 {
	var total float64
	for i := 0; i < view.Len(); i++ {
		if v := view.Measure(i, measure); !math.IsNaN(v) {
			total += v
		}
	}
	return total
}

// CountMeasure counts rows with a numeric value for measure.
func CountMeasure(view RecordView, measure string) int {
	n := 0
	for i := 0; i < view.Len(); i++ {
		if !math.IsNaN(view.Measure(i, measure)) {
			n++
		}
	}
	return n
}

// MaxMeasure returns the largest value of a named measure (0 when none).
func MaxMeasure(view RecordView, measure string) float64 {
	return extremeMeasure(view, measure, func(a, b float64) bool { return a > b })
}

// MinMeasure returns the smallest value of a named measure (0 when none).
func MinMeasure(view RecordView, measure string) float64 {
	return extremeMeasure(view, measure, func(a, b float64) bool { return a < b })
}

func extremeMeasure(view RecordView, measure string, better func(a, b float64) bool) float64 {
	var m float64
	found := false
	for i := 0; i < view.Len(); i++ {
		v := view.Measure(i, measure)
		if math.IsNaN(v) {
			continue
		}
		if !found || better(v, m) {
			m = v
			found = true
		}
	}
	return m
}

// UniqueValues returns distinct non-empty values of a column, first-seen order.
func UniqueValues(view RecordView, column string) []string {
	seen := make(map[string]bool)
	var result []string
	for i := 0; i < view.Len(); i++ {
		val := view.Value(i, column)
		if val != "" && !seen[val] {
			seen[val] = true
			result = append(result, val)
		}
	}
	return result
}

// DominantUoM returns the most frequent unit-of-measure label in view
// (alphabetically first on ties), or "Units" when none is recorded.
func DominantUoM(view RecordView) string {
	counts := make(map[string]int)
	for i := 0; i < view.Len(); i++ {
		if u := strings.TrimSpace(view.Value(i, ColUoM)); u != "" {
			counts[u]++
		}
	}
	best, bestN := "", 0
	for u, n := range counts {
		if n > bestN || n == bestN && u < best {
			best, bestN = u, n
		}
	}
	if best == "" {
		return "Units"
	}
	return best
}

// ============================================================================
// FORMATTING UTILITIES
// ============================================================================

// FormatRupees formats an amount as whole rupees with comma separators.
func FormatRupees(amount float64) string {
	n := int(math.Round(amount))
	if n < 0 {
		return "-₹" + FormatInt(-n)
	}
	return "₹" + FormatInt(n)
}

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", FormatInt(n/1000), n%1000)
}

// RoundTo2 rounds to 2 decimal places.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
