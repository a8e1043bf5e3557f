package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// PLAN NORMALIZER — raw translator output → immutable Plan
// ============================================================================
// Only a non-mapping input is an error. Every other problem (missing field,
// wrong value type, unparseable date) falls back to a default or drops the
// offending filter.
//
// Filter intents become predicates in a fixed order:
//   branch, section, item, item group, sales group, month, date, year
// ============================================================================

const (
	defaultTitle        = "Sales Analysis"
	defaultAxis         = ColBranch
	defaultMetricColumn = ColTotal
	defaultSecondary    = ColQuantity
)

// columnAliases resolves friendly names to column keys.
var columnAliases = map[string]string{
	"branch":      ColBranch,
	"section":     ColSection,
	"item":        ColItem,
	"item_group":  ColItemGroup,
	"sales_group": ColSalesGroup,
	"total":       ColTotal,
	"revenue":     ColTotal,
	"quantity":    ColQuantity,
	"month":       AxisMonth,
	"date":        ColDate,
}

// categoricalFilters lists the categorical filter intents in application order.
var categoricalFilters = []struct {
	field  string
	column string
	mode   ComparisonMode
}{
	{"branch_filters", ColBranch, CompareBranch},
	{"section_filters", ColSection, CompareSection},
	{"item_filters", ColItem, ""},
	{"item_group_filters", ColItemGroup, CompareItemGroup},
	{"sales_group_filters", ColSalesGroup, CompareSalesGroup},
}

// ParsePlan extracts the JSON object embedded in translator text and
// normalizes it. Code fences and surrounding prose are tolerated.
func ParsePlan(data []byte, opts ...Option) (Plan, error) {
	text := string(data)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Plan{}, &InvalidPlanError{Reason: "no JSON object in translator output", Raw: truncate(text, 200)}
	}

	var raw any
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return Plan{}, &InvalidPlanError{Reason: "translator output is not valid JSON", Raw: truncate(text, 200), Err: err}
	}
	return NormalizePlan(raw, opts...)
}

// NormalizePlan builds a fully-populated Plan from a raw plan mapping.
func NormalizePlan(raw any, opts ...Option) (Plan, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return Plan{}, &InvalidPlanError{Reason: fmt.Sprintf("plan must be a mapping, got %T", raw)}
	}
	cfg := applyOptions(opts)

	p := Plan{
		Chart: ChartBar,
		Axis:  defaultAxis,
		Title: defaultTitle,
	}

	// ── Chart ─────────────────────────────────────────────────────────────
	switch strings.ToLower(stringField(m, "chart_type")) {
	case "pie":
		p.Chart = ChartPie
	case "line":
		p.Chart = ChartLine
	case "dual_bar":
		p.Dual = true
	}

	// ── Axis ──────────────────────────────────────────────────────────────
	if axis := stringField(m, "x_axis"); axis != "" {
		p.Axis = resolveColumn(axis)
	}

	// ── Metrics ───────────────────────────────────────────────────────────
	metricCol := defaultMetricColumn
	if y := stringField(m, "y_axis"); y != "" {
		switch strings.ToLower(y) {
		case CountSentinel:
			metricCol = CountSentinel
		case "dual":
			p.Dual = true
		default:
			metricCol = resolveColumn(y)
			if !IsMetricColumn(metricCol) {
				cfg.Logger.Warn("unknown metric column, using default", "column", metricCol, "default", defaultMetricColumn)
				metricCol = defaultMetricColumn
			}
		}
	}
	p.Primary = NewMetric(metricCol, parseAgg(stringField(m, "aggregation")))

	if b, ok := m["dual_metrics"].(bool); ok && b {
		p.Dual = true
	}

	if t := stringField(m, "title"); t != "" {
		p.Title = t
	}
	p.Limit = parseLimit(m["limit"])

	// ── Predicates ────────────────────────────────────────────────────────
	filters := extractFilters(m, cfg)
	p.predicates = filters.preds

	// ── Comparison ────────────────────────────────────────────────────────
	if p.Dual {
		p.Comparison, p.CompareValues = resolveComparison(m, p, filters)
		if !p.Comparison.IsSplit() {
			secCol := defaultSecondary
			if s := stringField(m, "y_axis_secondary"); s != "" {
				secCol = resolveColumn(s)
				if strings.EqualFold(s, CountSentinel) {
					secCol = CountSentinel
				}
			}
			if !IsMetricColumn(secCol) {
				cfg.Logger.Warn("unknown secondary metric column, using default", "column", secCol, "default", defaultSecondary)
				secCol = defaultSecondary
			}
			sec := NewMetric(secCol, parseAgg(stringField(m, "aggregation_secondary")))
			p.secondary = &sec
		}
	}

	cfg.Logger.Debug("plan normalized",
		"chart", p.Chart, "axis", p.Axis, "metric", p.Primary.Label(), "agg", p.Primary.Agg,
		"predicates", len(p.predicates), "limit", p.Limit, "dual", p.Dual, "comparison", p.Comparison)
	return p, nil
}

// ============================================================================
// FILTER EXTRACTION
// ============================================================================

type extracted struct {
	preds  []Predicate
	months []int
	years  []int
	// lists holds the raw values of each categorical filter, by column.
	lists map[string][]string
}

func extractFilters(m map[string]any, cfg *config) extracted {
	out := extracted{lists: make(map[string][]string)}

	for _, f := range categoricalFilters {
		vals := stringsOf(m[f.field])
		if len(vals) == 0 {
			continue
		}
		out.lists[f.column] = vals
		switch {
		case f.column == ColItem:
			out.preds = append(out.preds, SubstringUnion(f.column, vals...))
		case len(vals) == 1:
			out.preds = append(out.preds, Exact(f.column, vals[0]))
		default:
			out.preds = append(out.preds, Membership(f.column, vals...))
		}
	}

	if months, isList := intsOf(m["month_filter"]); len(months) > 0 {
		months = keepRange(months, 1, 12)
		out.months = months
		switch {
		case len(months) == 0:
		case isList:
			out.preds = append(out.preds, MonthIn(months...))
		default:
			out.preds = append(out.preds, MonthEquals(months[0]))
		}
	}

	if pred, ok := datePredicate(m["date_filter"], cfg.DefaultYear); ok {
		out.preds = append(out.preds, pred)
	}

	if years, isList := intsOf(m["year_filter"]); len(years) > 0 {
		years = keepRange(years, 1, 9999)
		out.years = years
		switch {
		case len(years) == 0:
		case isList:
			out.preds = append(out.preds, YearIn(years...))
		default:
			out.preds = append(out.preds, YearEquals(years[0]))
		}
	}

	return out
}

// datePredicate accepts "YYYY-MM-DD" / "MM-DD" scalars and one- or
// two-element lists. Any other shape or an unparseable date is ignored.
func datePredicate(v any, defaultYear int) (Predicate, bool) {
	switch t := v.(type) {
	case string:
		d, ok := parsePlanDate(t, defaultYear)
		if !ok {
			return Predicate{}, false
		}
		return DateEquals(d), true
	case []any:
		dates := make([]time.Time, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return Predicate{}, false
			}
			d, ok := parsePlanDate(s, defaultYear)
			if !ok {
				return Predicate{}, false
			}
			dates = append(dates, d)
		}
		switch len(dates) {
		case 1:
			return DateEquals(dates[0]), true
		case 2:
			start, end := dates[0], dates[1]
			if end.Before(start) {
				start, end = end, start
			}
			return DateRange(start, end), true
		}
	}
	return Predicate{}, false
}

func parsePlanDate(s string, defaultYear int) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse("2006-01-02", s); err == nil {
		return d, true
	}
	if d, err := time.Parse("01-02", s); err == nil {
		return time.Date(defaultYear, d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// ============================================================================
// COMPARISON MODE
// ============================================================================

var validModes = map[ComparisonMode]bool{
	CompareMetrics: true, CompareMonth: true, CompareYear: true,
	CompareSalesGroup: true, CompareBranch: true, CompareSection: true, CompareItemGroup: true,
}

// resolveComparison picks the comparison mode for a dual plan. An explicit
// field wins; otherwise the filter structure decides, and the title is only
// consulted when the filters say nothing.
func resolveComparison(m map[string]any, p Plan, f extracted) (ComparisonMode, [2]string) {
	mode := ComparisonMode(strings.ToLower(stringField(m, "comparison_mode")))
	if !validModes[mode] {
		switch strings.ToLower(stringField(m, "comparison_type")) {
		case "monthly":
			mode = CompareMonth
		case "metric":
			mode = CompareMetrics
		default:
			mode = ""
		}
	}

	if mode == "" {
		mode = deriveComparison(p, f)
	}

	var vals []string
	switch mode {
	case CompareMetrics:
		return CompareMetrics, [2]string{}
	case CompareMonth:
		months := f.months
		if len(months) != 2 {
			if tm := titleMonths(p.Title); len(tm) == 2 {
				months = tm
			}
		}
		vals = itoaAll(months)
	case CompareYear:
		vals = itoaAll(f.years)
	default:
		vals = f.lists[mode.Column()]
	}

	if len(vals) != 2 {
		return CompareMetrics, [2]string{}
	}
	return mode, [2]string{vals[0], vals[1]}
}

func deriveComparison(p Plan, f extracted) ComparisonMode {
	if len(f.months) == 2 {
		return CompareMonth
	}
	for _, cf := range categoricalFilters {
		if cf.mode == "" || cf.column == p.Axis {
			continue
		}
		if len(f.lists[cf.column]) == 2 {
			return cf.mode
		}
	}
	if len(f.years) == 2 {
		return CompareYear
	}
	if len(titleMonths(p.Title)) == 2 {
		return CompareMonth
	}
	return CompareMetrics
}

var monthWord = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|apr|jun|jul|aug|sept|sep|oct|nov|dec)\b`)

// titleMonths returns the distinct month numbers named in a title, in order.
func titleMonths(title string) []int {
	var out []int
	seen := make(map[int]bool)
	for _, w := range monthWord.FindAllString(title, -1) {
		n := monthNumber(w)
		if n > 0 && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func monthNumber(word string) int {
	w := strings.ToLower(word)
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		if w == name || strings.HasPrefix(name, w) && len(w) >= 3 {
			return int(m)
		}
	}
	return 0
}

// ============================================================================
// VALUE COERCION — wrongly typed values are treated as absent
// ============================================================================

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func resolveColumn(name string) string {
	if col, ok := columnAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return col
	}
	return strings.TrimSpace(name)
}

func parseAgg(s string) AggFunc {
	switch strings.ToLower(s) {
	case "mean", "avg", "average":
		return AggMean
	case "count":
		return AggCount
	default:
		return AggSum
	}
}

func parseLimit(v any) int {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0
		}
		f = n
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		f = float64(n)
	default:
		return 0
	}
	if f <= 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

// stringsOf accepts a string or a list of strings/numbers.
func stringsOf(v any) []string {
	var out []string
	add := func(e any) {
		switch t := e.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				out = append(out, s)
			}
		case float64:
			out = append(out, strconv.FormatFloat(t, 'f', -1, 64))
		}
	}
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			add(e)
		}
	case []string:
		for _, e := range t {
			add(e)
		}
	default:
		add(v)
	}
	return out
}

// intsOf accepts a number, a numeric string, or a list of either.
// isList reports whether the input was a list.
func intsOf(v any) (vals []int, isList bool) {
	one := func(e any) (int, bool) {
		switch t := e.(type) {
		case float64:
			if t == math.Trunc(t) {
				return int(t), true
			}
		case int:
			return t, true
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
				return n, true
			}
		}
		return 0, false
	}
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if n, ok := one(e); ok {
				vals = append(vals, n)
			}
		}
		return vals, true
	case []int:
		return append([]int(nil), t...), true
	default:
		if n, ok := one(v); ok {
			return []int{n}, false
		}
	}
	return nil, false
}

func keepRange(ns []int, lo, hi int) []int {
	out := ns[:0:0]
	for _, n := range ns {
		if n >= lo && n <= hi {
			out = append(out, n)
		}
	}
	return out
}

func itoaAll(ns []int) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = strconv.Itoa(n)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
