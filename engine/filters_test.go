package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// PREDICATE ENGINE TESTS
// ============================================================================

func branchesOf(v RecordView) []string {
	out := make([]string, v.Len())
	for i := range out {
		out[i] = v.Value(i, ColBranch)
	}
	return out
}

func itemsOf(v RecordView) []string {
	out := make([]string, v.Len())
	for i := range out {
		out[i] = v.Value(i, ColItem)
	}
	return out
}

func TestApplyPredicates_ExactIsCaseInsensitive(t *testing.T) {
	view := NewSliceView(branchSales())
	out, err := ApplyPredicates(view, []Predicate{Exact(ColBranch, "  vv ")})
	require.NoError(t, err)
	assert.Equal(t, []string{"VV", "VV", "VV"}, branchesOf(out))
}

func TestApplyPredicates_MembershipIsRaw(t *testing.T) {
	view := NewSliceView(branchSales())

	out, err := ApplyPredicates(view, []Predicate{Membership(ColBranch, "VV", "SK")})
	require.NoError(t, err)
	assert.Equal(t, 5, out.Len())

	_, err = ApplyPredicates(view, []Predicate{Membership(ColBranch, "vv", "sk")})
	var empty *EmptyResultError
	assert.True(t, errors.As(err, &empty))
}

func TestApplyPredicates_SubstringUnionMatchesVariants(t *testing.T) {
	view := NewSliceView(branchSales())
	out, err := ApplyPredicates(view, []Predicate{SubstringUnion(ColItem, "mysore pak")})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mysore Pak Special", "mysore pak (500g)"}, itemsOf(out))
	assert.NotContains(t, itemsOf(out), "Bombay Mixture")
}

func TestApplyPredicates_SubstringUnionKeepsRowOnce(t *testing.T) {
	view := NewSliceView(branchSales())
	out, err := ApplyPredicates(view, []Predicate{SubstringUnion(ColItem, "mysore", "pak", "katli")})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mysore Pak Special", "mysore pak (500g)", "Kaju Katli", "Kaju Katli"}, itemsOf(out))
}

func TestApplyPredicates_EmptySubstringUnionKeepsAll(t *testing.T) {
	view := NewSliceView(branchSales())
	out, err := ApplyPredicates(view, []Predicate{SubstringUnion(ColItem, " ", "")})
	require.NoError(t, err)
	assert.Equal(t, view.Len(), out.Len())
}

func TestApplyPredicates_Substring(t *testing.T) {
	view := NewSliceView(branchSales())
	out, err := ApplyPredicates(view, []Predicate{Substring(ColItem, "KATLI")})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
}

func TestApplyPredicates_DateKinds(t *testing.T) {
	view := NewSliceView(branchSales())
	cases := map[string]struct {
		pred Predicate
		want int
	}{
		"date equals":  {DateEquals(day("2024-08-05")), 1},
		"range":        {DateRange(day("2024-08-01"), day("2024-08-05")), 2},
		"month equals": {MonthEquals(7), 2},
		"month in":     {MonthIn(7, 8), 5},
		"year equals":  {YearEquals(2024), 5},
		"year in":      {YearIn(2022, 2023), 0},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			out, err := ApplyPredicates(view, []Predicate{tc.pred})
			if tc.want == 0 {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, out.Len())
		})
	}
}

func TestApplyPredicates_UndatedRowsFailDatePredicates(t *testing.T) {
	recs := append(branchSales(), sale("", "VV", "Kaju Katli", 10))
	out, err := ApplyPredicates(NewSliceView(recs), []Predicate{YearEquals(2024)})
	require.NoError(t, err)
	assert.Equal(t, 5, out.Len())
}

func TestApplyPredicates_MissingColumnIsNoOp(t *testing.T) {
	view := NewSliceViewWithColumns(branchSales(), []string{ColDate, ColBranch, ColItem, ColTotal})
	out, err := ApplyPredicates(view, []Predicate{Exact(ColSalesGroup, "Online"), Exact(ColBranch, "SK")})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
}

// Each predicate sees only the rows left by the one before it.
func TestApplyPredicates_SequentialNarrowing(t *testing.T) {
	view := NewSliceView(branchSales())
	preds := []Predicate{Exact(ColBranch, "VV"), MonthEquals(8), Substring(ColItem, "katli")}

	chained, err := ApplyPredicates(view, preds)
	require.NoError(t, err)

	step := view
	for _, p := range preds {
		step, err = ApplyPredicates(step, []Predicate{p})
		require.NoError(t, err)
	}
	require.Equal(t, step.Len(), chained.Len())
	for i := 0; i < chained.Len(); i++ {
		assert.Equal(t, step.Measure(i, ColTotal), chained.Measure(i, ColTotal))
	}
	assert.Equal(t, 1, chained.Len())
	assert.Equal(t, 300.0, chained.Measure(0, ColTotal))
}

func TestApplyPredicates_MembershipThenMonth(t *testing.T) {
	view := NewSliceView(branchSales())
	out, err := ApplyPredicates(view, []Predicate{Membership(ColBranch, "VV", "SK"), MonthEquals(8)})
	require.NoError(t, err)
	assert.Equal(t, []string{"SK", "VV", "VV"}, branchesOf(out))
	for i := 0; i < out.Len(); i++ {
		d, ok := out.Date(i)
		require.True(t, ok)
		assert.Equal(t, 8, int(d.Month()))
	}
}

func TestApplyPredicates_EmptyResultCarriesDiagnostics(t *testing.T) {
	view := NewSliceView(branchSales())
	preds := []Predicate{Membership(ColBranch, "VV", "SK"), MonthEquals(9)}
	_, err := ApplyPredicates(view, preds)

	var empty *EmptyResultError
	require.True(t, errors.As(err, &empty))
	assert.Len(t, empty.Predicates, 2)
	assert.Equal(t, 5, empty.OriginalRows)
	assert.Contains(t, err.Error(), "no data matched your filters")
}

func TestApplyPredicates_SubstringFallback(t *testing.T) {
	view := NewSliceView(branchSales())
	preds := []Predicate{Exact(ColItem, "kaju")}

	_, err := ApplyPredicates(view, preds)
	assert.Error(t, err)

	out, err := ApplyPredicates(view, preds, WithSubstringFallback())
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
}

func TestApplyPredicates_DoesNotMutateSource(t *testing.T) {
	recs := branchSales()
	view := NewSliceView(recs)
	_, err := ApplyPredicates(view, []Predicate{Exact(ColBranch, "SK")})
	require.NoError(t, err)
	assert.Equal(t, 5, view.Len())
	assert.Equal(t, branchSales(), recs)
}
