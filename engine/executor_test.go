package engine

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// EXECUTOR TESTS — end to end: normalize → filter → aggregate → format
// ============================================================================

func TestExecute_RevenueByBranch(t *testing.T) {
	plan := mustPlan(map[string]any{"x_axis": "branch", "y_axis": "total", "aggregation": "sum"})
	r, err := Execute(plan, NewSliceView(branchSales()))
	require.NoError(t, err)

	assert.Equal(t, []DataPoint{{Name: "VV", Value: 600}, {Name: "SK", Value: 100}}, r.Data)
	assert.Empty(t, r.Pairs)
	assert.Equal(t, "bar", r.ChartType)
	assert.Equal(t, "Created a comparison chart showing Row_Total by Branch_Name.", r.Summary)
	assert.Equal(t, "July 2024 – August 2024", r.Period)
	assert.Equal(t, 5, r.RowCount)
	assert.Empty(t, r.Note)
}

func TestExecute_LimitOne(t *testing.T) {
	plan := mustPlan(map[string]any{"x_axis": "branch", "y_axis": "total", "aggregation": "sum", "limit": 1.0})
	r, err := Execute(plan, NewSliceView(branchSales()))
	require.NoError(t, err)
	assert.Equal(t, []DataPoint{{Name: "VV", Value: 600}}, r.Data)
}

func TestExecute_ExactBranchMismatchedCase(t *testing.T) {
	plan := mustPlan(map[string]any{"branch_filters": "vv"})
	r, err := Execute(plan, NewSliceView(branchSales()))
	require.NoError(t, err)
	assert.Equal(t, []DataPoint{{Name: "VV", Value: 600}}, r.Data)
	assert.Equal(t, 3, r.RowCount)
}

func TestExecute_MembershipAndMonth(t *testing.T) {
	view := NewSliceView(branchSales())
	plan := Plan{Chart: ChartBar, Axis: ColBranch, Primary: NewMetric(ColTotal, AggSum), Title: "August"}.
		WithPredicates(Membership(ColBranch, "VV", "SK"), MonthEquals(8))

	r, err := Execute(plan, view)
	require.NoError(t, err)
	assert.Equal(t, []DataPoint{{Name: "VV", Value: 500}, {Name: "SK", Value: 50}}, r.Data)
	assert.Equal(t, "August 2024", r.Period)

	julyOnly := []Record{sale("2024-07-01", "VV", "X", 1), sale("2024-07-02", "SK", "X", 2)}
	_, err = Execute(plan, NewSliceView(julyOnly))
	var empty *EmptyResultError
	require.True(t, errors.As(err, &empty))
	assert.Len(t, empty.Predicates, 2)
	assert.Equal(t, 2, empty.OriginalRows)
}

func TestExecute_UnknownAxisPropagates(t *testing.T) {
	plan := mustPlan(map[string]any{"x_axis": "Region"})
	_, err := Execute(plan, NewSliceView(branchSales()))
	var uae *UnknownAxisError
	assert.True(t, errors.As(err, &uae))
}

func TestExecute_DualMetricsPairs(t *testing.T) {
	plan := mustPlan(map[string]any{"chart_type": "dual_bar", "y_axis_secondary": "count"})
	r, err := Execute(plan, NewSliceView(branchSales()))
	require.NoError(t, err)

	assert.Empty(t, r.Data)
	assert.Equal(t, []PairPoint{
		{Name: "VV", MetricA: 600, MetricB: 3},
		{Name: "SK", MetricA: 100, MetricB: 2},
	}, r.Pairs)
	assert.Equal(t, ColTotal, r.SeriesA)
	assert.Equal(t, "count", r.SeriesB)
	assert.Equal(t, "Row_Total vs count across 2 group(s).", r.Note)
	assert.Empty(t, r.Share)
	require.NotNil(t, r.ChartConfig)
	assert.Len(t, r.ChartConfig.Series, 2)
	assert.True(t, r.ChartConfig.ShowLegend)
}

func TestExecute_SplitShareView(t *testing.T) {
	plan := mustPlan(map[string]any{"dual_metrics": true, "title": "July vs August revenue"})
	r, err := Execute(plan, NewSliceView(channelSales()))
	require.NoError(t, err)

	assert.Equal(t, CompareMonth, r.Comparison)
	assert.Equal(t, "July", r.SeriesA)
	assert.Equal(t, "August", r.SeriesB)
	require.Len(t, r.Share, 3)
	for _, s := range r.Share {
		assert.InDelta(t, 100, s.MetricA+s.MetricB, 1e-9)
	}

	require.NotNil(t, r.TableData)
	assert.Len(t, r.TableData.Columns, 5)
	assert.Equal(t, []string{"VV", "₹100", "₹300", "25.0%", "75.0%"}, r.TableData.Rows[0])
}

func TestExecute_QuantityUsesDominantUoM(t *testing.T) {
	recs := branchSales()
	for i := range recs {
		recs[i].Quantity = 2.5
		recs[i].UoM = "KG"
	}
	plan := mustPlan(map[string]any{"y_axis": "quantity"})
	r, err := Execute(plan, NewSliceView(recs))
	require.NoError(t, err)
	assert.Equal(t, "KG", r.Unit)
	assert.Equal(t, "7.5 KG", r.TableData.Rows[0][1])
	assert.Equal(t, "12.5 KG", r.TableData.Summary.Values["a"])
}

func TestExecute_MeanHasNoTotalsRow(t *testing.T) {
	plan := mustPlan(map[string]any{"aggregation": "mean"})
	r, err := Execute(plan, NewSliceView(branchSales()))
	require.NoError(t, err)
	assert.Nil(t, r.TableData.Summary)
	assert.Equal(t, "Row_Total (mean)", r.ChartConfig.YAxis)
}

func TestExecute_SecondaryMeanHasNoTotal(t *testing.T) {
	plan := mustPlan(map[string]any{"dual_metrics": true, "y_axis_secondary": "total", "aggregation_secondary": "mean"})
	r, err := Execute(plan, NewSliceView(branchSales()))
	require.NoError(t, err)
	require.NotNil(t, r.TableData.Summary)
	assert.Equal(t, "₹700", r.TableData.Summary.Values["a"])
	assert.NotContains(t, r.TableData.Summary.Values, "b")
}

func TestExecute_LogsSteps(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, err := Execute(mustPlan(map[string]any{}), NewSliceView(branchSales()), WithLogger(logger))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "executing plan")
	assert.Contains(t, buf.String(), "plan executed")
}

// ============================================================================
// FORMAT
// ============================================================================

func TestFormat_PreservesOrder(t *testing.T) {
	agg := &Aggregation{
		Primary: Series{{Key: "b", Label: "B", Value: 1}, {Key: "a", Label: "A", Value: 9}},
		LabelA:  ColTotal,
	}
	r := Format(agg, mustPlan(map[string]any{"chart_type": "pie"}), "")
	assert.Equal(t, []DataPoint{{Name: "B", Value: 1}, {Name: "A", Value: 9}}, r.Data)
	assert.Equal(t, "Created a distribution chart showing Row_Total by Branch_Name.", r.Summary)
	assert.False(t, r.ChartConfig.ShowGrid)
}

func TestFormat_NilAggregation(t *testing.T) {
	r := Format(nil, mustPlan(map[string]any{"chart_type": "line", "x_axis": "month"}), "")
	assert.Equal(t, "Created a trend chart showing Row_Total by Month.", r.Summary)
	assert.Nil(t, r.ChartConfig)
	assert.Nil(t, r.TableData)
}

func TestDerivePeriod(t *testing.T) {
	assert.Equal(t, "", DerivePeriod(NewSliceView([]Record{sale("", "VV", "X", 1)})))
	assert.Equal(t, "August 2024", DerivePeriod(NewSliceView([]Record{sale("2024-08-01", "VV", "X", 1), sale("2024-08-31", "VV", "X", 1)})))
}
