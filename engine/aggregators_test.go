package engine

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// AGGREGATION ENGINE TESTS
// ============================================================================

func TestAggregate_SumByBranch(t *testing.T) {
	agg, err := Aggregate(NewSliceView(branchSales()), mustPlan(map[string]any{"x_axis": "branch", "y_axis": "total", "aggregation": "sum"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"VV", "SK"}, labels(agg.Primary))
	assert.Equal(t, []float64{600, 100}, values(agg.Primary))
	assert.Nil(t, agg.Secondary)
	assert.Nil(t, agg.Share)
}

func TestAggregate_CountRows(t *testing.T) {
	agg, err := Aggregate(NewSliceView(branchSales()), mustPlan(map[string]any{"y_axis": "count"}))
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 2}, values(agg.Primary))
}

func TestAggregate_CountDimensionSkipsBlanks(t *testing.T) {
	recs := append(branchSales(), sale("2024-08-09", "SK", "", 25))
	agg, err := Aggregate(NewSliceView(recs), mustPlan(map[string]any{
		"x_axis": "branch", "y_axis": "Item_Service_Description", "aggregation": "count",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"VV", "SK"}, labels(agg.Primary))
	assert.Equal(t, []float64{3, 2}, values(agg.Primary))
}

func TestAggregate_UnknownMetricUsesRevenue(t *testing.T) {
	agg, err := Aggregate(NewSliceView(branchSales()), mustPlan(map[string]any{"y_axis": "Revenue_Bogus"}))
	require.NoError(t, err)
	assert.Equal(t, []float64{600, 100}, values(agg.Primary))
}

func TestAggregate_MeanSkipsMissing(t *testing.T) {
	recs := []Record{
		sale("2024-08-01", "VV", "A", 100),
		sale("2024-08-02", "VV", "B", nan()),
		sale("2024-08-03", "VV", "C", 200),
		sale("2024-08-04", "SK", "D", nan()),
	}
	agg, err := Aggregate(NewSliceView(recs), mustPlan(map[string]any{"aggregation": "mean"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"VV", "SK"}, labels(agg.Primary))
	assert.Equal(t, []float64{150, 0}, values(agg.Primary))
	assert.Equal(t, 3, agg.Primary[0].Count)
}

func TestAggregate_SumSkipsMissingButCountKeepsRow(t *testing.T) {
	recs := []Record{
		sale("2024-08-01", "VV", "A", 100),
		sale("2024-08-02", "VV", "B", nan()),
	}
	view := NewSliceView(recs)
	sum, err := Aggregate(view, mustPlan(map[string]any{}))
	require.NoError(t, err)
	assert.Equal(t, []float64{100}, values(sum.Primary))

	count, err := Aggregate(view, mustPlan(map[string]any{"y_axis": "count"}))
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, values(count.Primary))
}

func TestAggregate_TopNAfterOrdering(t *testing.T) {
	var recs []Record
	totals := []float64{5, 90, 40, 70, 10, 60, 30, 80}
	for i, v := range totals {
		recs = append(recs, sale("2024-08-01", string(rune('A'+i)), "X", v))
	}
	view := NewSliceView(recs)

	full, err := Aggregate(view, mustPlan(map[string]any{}))
	require.NoError(t, err)
	require.True(t, sort.SliceIsSorted(full.Primary, func(i, j int) bool {
		return full.Primary[i].Value > full.Primary[j].Value
	}))

	top, err := Aggregate(view, mustPlan(map[string]any{"limit": 5.0}))
	require.NoError(t, err)
	assert.Equal(t, full.Primary[:5], top.Primary)
	assert.Equal(t, []float64{90, 80, 70, 60, 40}, values(top.Primary))
}

func TestAggregate_TiesKeepFirstSeenOrder(t *testing.T) {
	recs := []Record{
		sale("2024-08-01", "SK", "X", 50),
		sale("2024-08-01", "VV", "X", 50),
		sale("2024-08-01", "MG", "X", 50),
	}
	agg, err := Aggregate(NewSliceView(recs), mustPlan(map[string]any{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"SK", "VV", "MG"}, labels(agg.Primary))
}

func TestAggregate_MonthAxisIsChronological(t *testing.T) {
	recs := []Record{
		sale("2024-09-01", "VV", "X", 1),
		sale("2023-12-31", "VV", "X", 900),
		sale("2024-08-01", "VV", "X", 500),
		sale("2024-08-20", "VV", "X", 500),
		sale("", "VV", "X", 10000),
	}
	agg, err := Aggregate(NewSliceView(recs), mustPlan(map[string]any{"x_axis": "month", "limit": 2.0}))
	require.NoError(t, err)
	assert.Equal(t, []string{"December 2023", "August 2024"}, labels(agg.Primary))
	assert.Equal(t, []string{"2023-12", "2024-08"}, agg.Primary.Keys())
	assert.Equal(t, []float64{900, 1000}, values(agg.Primary))
}

func TestAggregate_DateAxisIsChronological(t *testing.T) {
	agg, err := Aggregate(NewSliceView(branchSales()), mustPlan(map[string]any{"x_axis": "date"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-07-10", "2024-07-21", "2024-08-02", "2024-08-05", "2024-08-30"}, labels(agg.Primary))
}

func TestAggregate_BlankAxisValuesAreNotGrouped(t *testing.T) {
	recs := append(branchSales(), sale("2024-08-01", "  ", "X", 999))
	agg, err := Aggregate(NewSliceView(recs), mustPlan(map[string]any{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"VV", "SK"}, labels(agg.Primary))
}

func TestAggregate_UnknownAxis(t *testing.T) {
	view := NewSliceViewWithColumns(branchSales(), []string{ColDate, ColBranch, ColTotal})
	for _, axis := range []string{"section", "Region"} {
		_, err := Aggregate(view, mustPlan(map[string]any{"x_axis": axis}))
		var uae *UnknownAxisError
		require.True(t, errors.As(err, &uae), axis)
		assert.Contains(t, uae.Available, ColBranch)
	}

	undated := NewSliceViewWithColumns(branchSales(), []string{ColBranch, ColTotal})
	_, err := Aggregate(undated, mustPlan(map[string]any{"x_axis": "month"}))
	var uae *UnknownAxisError
	assert.True(t, errors.As(err, &uae))
}

// ============================================================================
// DUAL — two metrics
// ============================================================================

func TestAggregate_DualMetricsReindexOntoPrimary(t *testing.T) {
	recs := branchSales()
	recs = append(recs, sale("2024-08-01", "MG", "X", 5))
	for i := range recs {
		recs[i].Quantity = float64(i + 1)
	}
	recs[1].Quantity = nan()
	recs[3].Quantity = nan()

	plan := mustPlan(map[string]any{"dual_metrics": true, "limit": 2.0})
	require.Equal(t, CompareMetrics, plan.Comparison)

	agg, err := Aggregate(NewSliceView(recs), plan)
	require.NoError(t, err)
	assert.Equal(t, agg.Primary.Keys(), agg.Secondary.Keys())
	assert.Equal(t, []float64{600, 100}, values(agg.Primary))
	// VV quantities 1+3+5; SK has none → 0.
	assert.Equal(t, []float64{9, 0}, values(agg.Secondary))
	assert.Equal(t, ColTotal, agg.LabelA)
	assert.Equal(t, ColQuantity, agg.LabelB)
	assert.Nil(t, agg.Share)
}

// ============================================================================
// DUAL — split comparison
// ============================================================================

func TestAggregate_SplitByMonthUnionWithZeroFill(t *testing.T) {
	plan := mustPlan(map[string]any{"dual_metrics": true, "month_filter": []any{7.0, 8.0}})
	require.Equal(t, CompareMonth, plan.Comparison)

	agg, err := Aggregate(NewSliceView(channelSales()), plan)
	require.NoError(t, err)

	// July: VV 100, SK 40. August: VV 300, SK 60, MG 10.
	assert.Equal(t, []string{"VV", "SK", "MG"}, labels(agg.Primary))
	assert.Equal(t, []float64{100, 40, 0}, values(agg.Primary))
	assert.Equal(t, []float64{300, 60, 10}, values(agg.Secondary))
	assert.Equal(t, "July", agg.LabelA)
	assert.Equal(t, "August", agg.LabelB)

	require.NotNil(t, agg.Share)
	assert.InDelta(t, 25.0, agg.Share.A[0], 1e-9)
	assert.InDelta(t, 75.0, agg.Share.B[0], 1e-9)
	assert.InDelta(t, 0.0, agg.Share.A[2], 1e-9)
	assert.InDelta(t, 100.0, agg.Share.B[2], 1e-9)
}

func TestAggregate_SplitBySalesGroupOverMonths(t *testing.T) {
	plan := mustPlan(map[string]any{
		"dual_metrics":        true,
		"x_axis":              "month",
		"sales_group_filters": []any{"online", "IN-STORE"},
	})
	require.Equal(t, CompareSalesGroup, plan.Comparison)

	agg, err := Aggregate(NewSliceView(channelSales()), plan)
	require.NoError(t, err)
	assert.Equal(t, []string{"July 2024", "August 2024"}, labels(agg.Primary))
	assert.Equal(t, []float64{100, 300}, values(agg.Primary))
	assert.Equal(t, []float64{40, 70}, values(agg.Secondary))
	assert.Equal(t, "online", agg.LabelA)
}

func TestAggregate_SplitTopNOnCombinedValue(t *testing.T) {
	plan := mustPlan(map[string]any{"dual_metrics": true, "month_filter": []any{7.0, 8.0}, "limit": 1.0})
	agg, err := Aggregate(NewSliceView(channelSales()), plan)
	require.NoError(t, err)
	assert.Equal(t, []string{"VV"}, labels(agg.Primary))
	assert.Len(t, agg.Secondary, 1)
}

func TestShareOf_ZeroTotals(t *testing.T) {
	a := Series{{Key: "x", Label: "x", Value: 0}}
	b := Series{{Key: "x", Label: "x", Value: 0}}
	sv := ShareOf(a, b)
	assert.Equal(t, []float64{0}, sv.A)
	assert.Equal(t, []float64{0}, sv.B)
}

// ============================================================================
// HELPERS
// ============================================================================

func TestMeasureHelpers(t *testing.T) {
	recs := branchSales()
	recs = append(recs, sale("2024-08-01", "VV", "X", nan()))
	view := NewSliceView(recs)

	assert.Equal(t, 700.0, SumMeasure(view, ColTotal))
	assert.Equal(t, 5, CountMeasure(view, ColTotal))
	assert.Equal(t, 300.0, MaxMeasure(view, ColTotal))
	assert.Equal(t, 50.0, MinMeasure(view, ColTotal))
	assert.Equal(t, []string{"VV", "SK"}, UniqueValues(view, ColBranch))
}

func TestDominantUoM(t *testing.T) {
	recs := branchSales()
	recs[0].UoM, recs[1].UoM = "KG", "KG"
	assert.Equal(t, "PCS", DominantUoM(NewSliceView(recs)))

	recs[2].UoM = "KG"
	assert.Equal(t, "KG", DominantUoM(NewSliceView(recs)))

	for i := range recs {
		recs[i].UoM = ""
	}
	assert.Equal(t, "Units", DominantUoM(NewSliceView(recs)))
}

func TestFormatRupees(t *testing.T) {
	assert.Equal(t, "₹0", FormatRupees(0))
	assert.Equal(t, "₹999", FormatRupees(999.4))
	assert.Equal(t, "₹1,000", FormatRupees(999.5))
	assert.Equal(t, "₹1,234,567", FormatRupees(1234567))
	assert.Equal(t, "-₹2,500", FormatRupees(-2500))
}
