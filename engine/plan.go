package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// PLAN — Normalized, immutable analysis plan
// ============================================================================
// Built once by NormalizePlan and read-only afterwards. Slice accessors
// return copies so callers cannot reach into the plan.
// ============================================================================

// ChartType is the requested chart kind.
type ChartType string

const (
	ChartBar  ChartType = "bar"
	ChartPie  ChartType = "pie"
	ChartLine ChartType = "line"
)

// AggFunc is the per-group reduction applied to a metric column.
type AggFunc string

const (
	AggSum   AggFunc = "sum"
	AggMean  AggFunc = "mean"
	AggCount AggFunc = "count"
)

// ComparisonMode decides how a dual plan produces its two series.
type ComparisonMode string

const (
	// CompareMetrics: two metrics over one axis (secondary reindexed onto primary keys).
	CompareMetrics    ComparisonMode = "metrics"
	CompareMonth      ComparisonMode = "month"
	CompareYear       ComparisonMode = "year"
	CompareSalesGroup ComparisonMode = "sales_group"
	CompareBranch     ComparisonMode = "branch"
	CompareSection    ComparisonMode = "section"
	CompareItemGroup  ComparisonMode = "item_group"
)

// IsSplit reports whether the mode partitions rows into two sides.
func (m ComparisonMode) IsSplit() bool {
	return m != "" && m != CompareMetrics
}

// Column returns the dimension a categorical split partitions on.
// Month and year splits read the date instead and return "".
func (m ComparisonMode) Column() string {
	switch m {
	case CompareSalesGroup:
		return ColSalesGroup
	case CompareBranch:
		return ColBranch
	case CompareSection:
		return ColSection
	case CompareItemGroup:
		return ColItemGroup
	}
	return ""
}

// Plan is a fully-populated analysis plan.
type Plan struct {
	Chart      ChartType
	Axis       string
	Primary    Metric
	secondary  *Metric
	predicates []Predicate
	Limit      int
	Title      string
	Dual       bool
	Comparison ComparisonMode
	// CompareValues holds the two sides of a split comparison, in order.
	CompareValues [2]string
}

// Predicates returns a copy of the ordered predicate list.
func (p Plan) Predicates() []Predicate {
	out := make([]Predicate, len(p.predicates))
	copy(out, p.predicates)
	return out
}

// Secondary returns a copy of the secondary metric of a metrics comparison.
func (p Plan) Secondary() (Metric, bool) {
	if p.secondary == nil {
		return Metric{}, false
	}
	return *p.secondary, true
}

// WithSecondary returns a copy of the plan comparing against m.
func (p Plan) WithSecondary(m Metric) Plan {
	p.secondary = &m
	return p
}

// WithPredicates returns a copy of the plan filtered by preds instead.
func (p Plan) WithPredicates(preds ...Predicate) Plan {
	p.predicates = append([]Predicate(nil), preds...)
	return p
}

// IsTemporalAxis reports whether the axis reads in time order.
func (p Plan) IsTemporalAxis() bool { return isTemporal(p.Axis) }

func isTemporal(axis string) bool { return axis == AxisMonth || axis == ColDate }

// ============================================================================
// METRIC — closed variant over metric kinds
// ============================================================================

// MetricKind selects both the aggregator and the value formatter.
type MetricKind int

const (
	MetricCount MetricKind = iota
	MetricCurrency
	MetricQuantity
	MetricNumeric
)

func (k MetricKind) String() string {
	switch k {
	case MetricCount:
		return "count"
	case MetricCurrency:
		return "currency"
	case MetricQuantity:
		return "quantity"
	default:
		return "numeric"
	}
}

// Metric is a resolved metric: what to read, how to reduce it, how to print it.
type Metric struct {
	Kind   MetricKind
	Column string
	Agg    AggFunc
}

// NewMetric resolves a column key and aggregation into a Metric.
// A sales dimension can only be counted: any aggregation over it counts the
// rows where it is non-blank.
func NewMetric(column string, agg AggFunc) Metric {
	switch {
	case column == CountSentinel || column == "":
		return Metric{Kind: MetricCount, Column: CountSentinel, Agg: AggCount}
	case isDimension(column):
		return Metric{Kind: MetricCount, Column: column, Agg: AggCount}
	case column == ColTotal:
		return Metric{Kind: MetricCurrency, Column: column, Agg: agg}
	case column == ColQuantity:
		return Metric{Kind: MetricQuantity, Column: column, Agg: agg}
	default:
		return Metric{Kind: MetricNumeric, Column: column, Agg: agg}
	}
}

// IsMetricColumn reports whether column can be read as a sales metric.
func IsMetricColumn(column string) bool {
	return column == CountSentinel || column == ColTotal || column == ColQuantity || isDimension(column)
}

func isDimension(column string) bool {
	switch column {
	case ColDate, ColBranch, ColSection, ColItem, ColItemGroup, ColSalesGroup, ColUoM:
		return true
	}
	return false
}

// Label is the display name used in summaries and axis titles.
func (m Metric) Label() string {
	if m.Kind == MetricCount && m.Column == "" {
		return CountSentinel
	}
	return m.Column
}

// Reduce aggregates the metric over the rows of view at indices.
// Missing values are skipped; a group with no numeric value reduces to 0.
func (m Metric) Reduce(view RecordView, indices []int) float64 {
	if m.Kind == MetricCount {
		if m.Column == CountSentinel || m.Column == "" {
			return float64(len(indices))
		}
		var n int
		for _, i := range indices {
			if view.Value(i, m.Column) != "" {
				n++
			}
		}
		return float64(n)
	}
	var sum float64
	var n int
	for _, i := range indices {
		v := view.Measure(i, m.Column)
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	switch m.Agg {
	case AggCount:
		return float64(n)
	case AggMean:
		if n == 0 {
			return 0
		}
		return sum / float64(n)
	default:
		return sum
	}
}

// Format renders a value the way this metric kind is displayed.
// unit is the quantity unit-of-measure label, ignored by other kinds.
func (m Metric) Format(v float64, unit string) string {
	switch m.Kind {
	case MetricCount:
		return FormatInt(int(math.Round(v)))
	case MetricCurrency:
		return FormatRupees(v)
	case MetricQuantity:
		s := strconv.FormatFloat(RoundTo2(v), 'f', -1, 64)
		if unit == "" {
			return s
		}
		return s + " " + unit
	default:
		return strconv.FormatFloat(RoundTo2(v), 'f', -1, 64)
	}
}

// ============================================================================
// PREDICATES
// ============================================================================

// PredicateKind tags a Predicate.
type PredicateKind string

const (
	PredExact          PredicateKind = "exact"
	PredMembership     PredicateKind = "membership"
	PredSubstring      PredicateKind = "substring"
	PredSubstringUnion PredicateKind = "substring_union"
	PredDateEquals     PredicateKind = "date_equals"
	PredDateRange      PredicateKind = "date_range"
	PredMonthEquals    PredicateKind = "month_equals"
	PredMonthIn        PredicateKind = "month_in"
	PredYearEquals     PredicateKind = "year_equals"
	PredYearIn         PredicateKind = "year_in"
)

// Predicate is one filter step. Which fields are set depends on Kind.
type Predicate struct {
	Kind    PredicateKind
	Column  string
	Value   string    // exact, substring
	Values  []string  // membership, substring_union
	Date    time.Time // date_equals
	Start   time.Time // date_range (inclusive)
	End     time.Time
	Number  int   // month_equals, year_equals
	Numbers []int // month_in, year_in
}

func Exact(column, value string) Predicate {
	return Predicate{Kind: PredExact, Column: column, Value: value}
}

func Membership(column string, values ...string) Predicate {
	return Predicate{Kind: PredMembership, Column: column, Values: values}
}

func Substring(column, term string) Predicate {
	return Predicate{Kind: PredSubstring, Column: column, Value: term}
}

func SubstringUnion(column string, terms ...string) Predicate {
	return Predicate{Kind: PredSubstringUnion, Column: column, Values: terms}
}

func DateEquals(d time.Time) Predicate {
	return Predicate{Kind: PredDateEquals, Column: ColDate, Date: d}
}

func DateRange(start, end time.Time) Predicate {
	return Predicate{Kind: PredDateRange, Column: ColDate, Start: start, End: end}
}

func MonthEquals(n int) Predicate {
	return Predicate{Kind: PredMonthEquals, Column: ColDate, Number: n}
}

func MonthIn(ns ...int) Predicate {
	return Predicate{Kind: PredMonthIn, Column: ColDate, Numbers: ns}
}

func YearEquals(n int) Predicate {
	return Predicate{Kind: PredYearEquals, Column: ColDate, Number: n}
}

func YearIn(ns ...int) Predicate {
	return Predicate{Kind: PredYearIn, Column: ColDate, Numbers: ns}
}

// String renders the predicate for diagnostics.
func (p Predicate) String() string {
	switch p.Kind {
	case PredExact, PredSubstring:
		return fmt.Sprintf("%s(%s, %q)", p.Kind, p.Column, p.Value)
	case PredMembership, PredSubstringUnion:
		return fmt.Sprintf("%s(%s, [%s])", p.Kind, p.Column, strings.Join(p.Values, ", "))
	case PredDateEquals:
		return fmt.Sprintf("%s(%s)", p.Kind, p.Date.Format("2006-01-02"))
	case PredDateRange:
		return fmt.Sprintf("%s(%s, %s)", p.Kind, p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
	case PredMonthEquals, PredYearEquals:
		return fmt.Sprintf("%s(%d)", p.Kind, p.Number)
	case PredMonthIn, PredYearIn:
		parts := make([]string, len(p.Numbers))
		for i, n := range p.Numbers {
			parts[i] = strconv.Itoa(n)
		}
		return fmt.Sprintf("%s([%s])", p.Kind, strings.Join(parts, ", "))
	}
	return string(p.Kind)
}
