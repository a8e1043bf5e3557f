package engine

import (
	"math"
	"strconv"
	"time"
)

// ============================================================================
// RECORD VIEW — Zero-Copy Data Access Interface
// ============================================================================
// The engine never owns or mutates the loaded dataset. It reads through this
// interface, and every filter/group step produces a new view.
//
// Implementations:
//   DomainView[T]  : reads typed structs via accessor functions (zero-copy)
//   SubView        : filtered subset (indices into parent, zero-copy)
//
// NewSliceView binds []Record through the sales adapter declared below.
// ============================================================================

// RecordView provides indexed access to a dataset.
// The engine calls Value/Measure in tight loops; keep implementations fast.
type RecordView interface {
	Len() int
	// Value returns the raw string representation of a column ("" when missing).
	Value(index int, column string) string
	// Measure returns the numeric value of a column (NaN when missing).
	Measure(index int, column string) float64
	// Date returns the parsed transaction date.
	Date(index int) (time.Time, bool)
	HasColumn(column string) bool
	Columns() []string
}

// ============================================================================
// DOMAIN ADAPTER — Zero-copy typed struct access
// ============================================================================
//
// Usage:
//
//	adapter := engine.NewDomainAdapter[Sale]().
//	    Dimension("Branch_Name", func(s Sale) string { return s.Branch }).
//	    Measure("Row_Total", func(s Sale) float64 { return s.Total })
//
//	view := adapter.Bind(sales)
//
// ============================================================================

// DomainAdapter builds a RecordView from typed structs.
// Declare once, bind many times.
type DomainAdapter[T any] struct {
	order []string
	dims  map[string]func(T) string
	meas  map[string]func(T) float64
	date  func(T) (time.Time, bool)
}

// NewDomainAdapter creates a new adapter for type T.
func NewDomainAdapter[T any]() *DomainAdapter[T] {
	return &DomainAdapter[T]{
		dims: make(map[string]func(T) string),
		meas: make(map[string]func(T) float64),
	}
}

// Dimension registers a string column accessor.
func (a *DomainAdapter[T]) Dimension(key string, fn func(T) string) *DomainAdapter[T] {
	a.register(key)
	a.dims[key] = fn
	return a
}

// Measure registers a numeric column accessor.
func (a *DomainAdapter[T]) Measure(key string, fn func(T) float64) *DomainAdapter[T] {
	a.register(key)
	a.meas[key] = fn
	return a
}

// Date registers the transaction date accessor under ColDate.
func (a *DomainAdapter[T]) Date(fn func(T) (time.Time, bool)) *DomainAdapter[T] {
	a.register(ColDate)
	a.date = fn
	return a
}

func (a *DomainAdapter[T]) register(key string) {
	for _, k := range a.order {
		if k == key {
			return
		}
	}
	a.order = append(a.order, key)
}

// Bind creates a RecordView exposing every registered column.
// Zero-copy: holds a reference to data.
func (a *DomainAdapter[T]) Bind(data []T) RecordView {
	return a.BindColumns(data, a.order)
}

// BindColumns creates a RecordView that only reports the given columns as
// present. Used when a source table lacks optional columns.
func (a *DomainAdapter[T]) BindColumns(data []T, present []string) RecordView {
	set := make(map[string]bool, len(present))
	cols := make([]string, 0, len(present))
	for _, k := range a.order {
		for _, p := range present {
			if p == k {
				set[k] = true
				cols = append(cols, k)
				break
			}
		}
	}
	return &DomainView[T]{adapter: a, data: data, present: set, columns: cols}
}

// DomainView reads typed struct fields via registered accessor functions.
type DomainView[T any] struct {
	adapter *DomainAdapter[T]
	data    []T
	present map[string]bool
	columns []string
}

func (v *DomainView[T]) Len() int { return len(v.data) }

func (v *DomainView[T]) Value(i int, key string) string {
	if i < 0 || i >= len(v.data) || !v.present[key] {
		return ""
	}
	if fn, ok := v.adapter.dims[key]; ok {
		return fn(v.data[i])
	}
	if fn, ok := v.adapter.meas[key]; ok {
		f := fn(v.data[i])
		if math.IsNaN(f) {
			return ""
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	if key == ColDate {
		if d, ok := v.Date(i); ok {
			return d.Format("2006-01-02")
		}
	}
	return ""
}

func (v *DomainView[T]) Measure(i int, key string) float64 {
	if i < 0 || i >= len(v.data) || !v.present[key] {
		return math.NaN()
	}
	if fn, ok := v.adapter.meas[key]; ok {
		return fn(v.data[i])
	}
	return math.NaN()
}

func (v *DomainView[T]) Date(i int) (time.Time, bool) {
	if i < 0 || i >= len(v.data) || v.adapter.date == nil || !v.present[ColDate] {
		return time.Time{}, false
	}
	return v.adapter.date(v.data[i])
}

func (v *DomainView[T]) HasColumn(key string) bool { return v.present[key] }
func (v *DomainView[T]) Columns() []string         { return v.columns }

// ============================================================================
// SALES ADAPTER — []Record as a RecordView
// ============================================================================

var salesAdapter = NewDomainAdapter[Record]().
	Date(func(r Record) (time.Time, bool) { return r.Date, r.HasDate }).
	Dimension(ColBranch, func(r Record) string { return r.Branch }).
	Dimension(ColSection, func(r Record) string { return r.Section }).
	Dimension(ColItem, func(r Record) string { return r.Item }).
	Dimension(ColItemGroup, func(r Record) string { return r.ItemGroup }).
	Dimension(ColSalesGroup, func(r Record) string { return r.SalesGroup }).
	Measure(ColTotal, func(r Record) float64 { return r.Total }).
	Measure(ColQuantity, func(r Record) float64 { return r.Quantity }).
	Dimension(ColUoM, func(r Record) string { return r.UoM })

// RecordColumns lists every column a Record can carry.
func RecordColumns() []string {
	cols := make([]string, len(salesAdapter.order))
	copy(cols, salesAdapter.order)
	return cols
}

// NewSliceView creates a RecordView over records with every column present.
func NewSliceView(records []Record) RecordView {
	return salesAdapter.Bind(records)
}

// NewSliceViewWithColumns creates a RecordView over records that reports only
// the given columns as present.
func NewSliceViewWithColumns(records []Record, present []string) RecordView {
	return salesAdapter.BindColumns(records, present)
}

// ============================================================================
// SUB VIEW — filtered subset (zero-copy)
// ============================================================================

// SubView is a filtered subset of a parent RecordView.
// Holds indices into the parent, no data copy.
type SubView struct {
	parent  RecordView
	indices []int
}

func newSubView(parent RecordView, indices []int) RecordView {
	return &SubView{parent: parent, indices: indices}
}

func (v *SubView) Len() int { return len(v.indices) }

func (v *SubView) Value(i int, key string) string {
	if i < 0 || i >= len(v.indices) {
		return ""
	}
	return v.parent.Value(v.indices[i], key)
}

func (v *SubView) Measure(i int, key string) float64 {
	if i < 0 || i >= len(v.indices) {
		return math.NaN()
	}
	return v.parent.Measure(v.indices[i], key)
}

func (v *SubView) Date(i int) (time.Time, bool) {
	if i < 0 || i >= len(v.indices) {
		return time.Time{}, false
	}
	return v.parent.Date(v.indices[i])
}

func (v *SubView) HasColumn(key string) bool { return v.parent.HasColumn(key) }
func (v *SubView) Columns() []string         { return v.parent.Columns() }
