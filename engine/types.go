package engine

import (
	"math"
	"time"
)

// ============================================================================
// SPEKTR RETAIL ENGINE TYPES
// ============================================================================
// Record     : one sales-transaction line (typed, read-only after load)
// Plan       : normalized analysis plan (see plan.go)
// Series     : ordered (key, value) points produced by the aggregation engine
// Result     : render-ready output handed to renderers and the API layer
//
// Dependency: engine imports only the standard library.
// ============================================================================

// ============================================================================
// COLUMN KEYS — names used by the translator and the source data
// ============================================================================

const (
	ColDate       = "Date"
	ColBranch     = "Branch_Name"
	ColSection    = "SK_Section"
	ColItem       = "Item_Service_Description"
	ColItemGroup  = "Item Group Name"
	ColSalesGroup = "Sales Group Name"
	ColTotal      = "Row_Total"
	ColQuantity   = "Quantity_Inventory_UoM"
	ColUoM        = "Inventory_UoM"

	// AxisMonth is a virtual column: the calendar month of Date.
	AxisMonth = "Month"

	// CountSentinel in the metric position means "count rows".
	CountSentinel = "count"
)

// ============================================================================
// RECORD
// ============================================================================

// Record is a single sales line. Total is NaN when the source value was
// missing or unparseable; Quantity defaults to 1.
type Record struct {
	Date       time.Time `json:"date"`
	HasDate    bool      `json:"hasDate"`
	Branch     string    `json:"branch"`
	Section    string    `json:"section"`
	Item       string    `json:"item"`
	ItemGroup  string    `json:"itemGroup"`
	SalesGroup string    `json:"salesGroup"`
	Total      float64   `json:"total"`
	Quantity   float64   `json:"quantity"`
	UoM        string    `json:"uom"`
}

// HasTotal reports whether the monetary total was parsed.
func (r Record) HasTotal() bool { return !math.IsNaN(r.Total) }

// ============================================================================
// SERIES — Aggregation output
// ============================================================================

// Point is one aggregated group.
type Point struct {
	Key   string  `json:"key"`   // sortable group key ("2024-08" for month buckets)
	Label string  `json:"label"` // display label ("August 2024")
	Value float64 `json:"value"`
	Count int     `json:"count"` // rows in the group
}

// Series is an ordered list of points with unique keys.
type Series []Point

// Keys returns the series keys in order.
func (s Series) Keys() []string {
	keys := make([]string, len(s))
	for i, p := range s {
		keys[i] = p.Key
	}
	return keys
}

// Lookup returns the value for key, or 0 when absent.
func (s Series) Lookup(key string) float64 {
	for _, p := range s {
		if p.Key == key {
			return p.Value
		}
	}
	return 0
}

// Total sums the series values.
func (s Series) Total() float64 {
	var t float64
	for _, p := range s {
		t += p.Value
	}
	return t
}

// Aggregation is the grouped output for a plan.
// Secondary and Share are populated only for dual plans.
type Aggregation struct {
	Primary   Series
	Secondary Series
	Share     *ShareView
	LabelA    string
	LabelB    string
}

// ShareView is the percentage split of each key between the two sides of a
// comparison. A[i] + B[i] == 100 unless both sides are zero.
type ShareView struct {
	Keys   []string
	Labels []string
	A      []float64
	B      []float64
}

// ============================================================================
// RESULT — Render-ready output
// ============================================================================

// Result is the engine's render-ready output.
type Result struct {
	ChartType  string         `json:"chartType"`
	Title      string         `json:"title"`
	XAxis      string         `json:"xAxis"`
	YAxis      string         `json:"yAxis"`
	Dual       bool           `json:"dualMetrics"`
	Comparison ComparisonMode `json:"comparisonMode,omitempty"`
	Summary    string         `json:"summary"`
	Note       string         `json:"note,omitempty"`
	Period     string         `json:"period,omitempty"`
	RowCount   int            `json:"rowCount"`
	Unit       string         `json:"unit,omitempty"`

	// Exactly one of Data / Pairs is populated.
	Data    []DataPoint `json:"data,omitempty"`
	Pairs   []PairPoint `json:"pairs,omitempty"`
	SeriesA string      `json:"seriesA,omitempty"`
	SeriesB string      `json:"seriesB,omitempty"`
	Share   []PairPoint `json:"share,omitempty"`

	ChartConfig *ChartConfig `json:"chartConfig,omitempty"`
	TableData   *TableData   `json:"tableData,omitempty"`
}

// DataPoint is a single-series output row.
type DataPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// PairPoint is a dual-series output row.
type PairPoint struct {
	Name    string  `json:"name"`
	MetricA float64 `json:"metric_a"`
	MetricB float64 `json:"metric_b"`
}

// ============================================================================
// CHART TYPES
// ============================================================================

// ChartConfig defines how to render a chart.
type ChartConfig struct {
	ChartType  string        `json:"chartType"`
	Title      string        `json:"title"`
	XAxis      string        `json:"xAxis,omitempty"`
	YAxis      string        `json:"yAxis,omitempty"`
	Series     []ChartSeries `json:"series"`
	Colors     []string      `json:"colors,omitempty"`
	ShowLegend bool          `json:"showLegend"`
	ShowGrid   bool          `json:"showGrid"`
}

// ChartSeries represents a data series in a chart.
type ChartSeries struct {
	Name  string       `json:"name"`
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
}

// ChartPoint represents a single data point.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ============================================================================
// TABLE TYPES
// ============================================================================

// TableData is a display-formatted view of the result.
type TableData struct {
	Title   string     `json:"title"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Summary *Summary   `json:"summary,omitempty"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number", "currency", "percent"
	Align string `json:"align"` // "left", "right"
}

// Summary provides totals for a table.
type Summary struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}
