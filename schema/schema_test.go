package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spektr-org/spektr-retail/engine"
)

func TestSales_Keys(t *testing.T) {
	sch := Sales()
	assert.Equal(t, []string{
		engine.ColBranch, engine.ColSection, engine.ColItem, engine.ColItemGroup,
		engine.ColSalesGroup, engine.AxisMonth, engine.ColDate,
	}, sch.DimensionKeys())
	assert.Equal(t, []string{engine.ColTotal, engine.ColQuantity, engine.CountSentinel}, sch.MeasureKeys())
}

func TestWithSamples_DoesNotMutateOriginal(t *testing.T) {
	base := Sales()
	withSamples := base.WithSamples(map[string][]string{engine.ColBranch: {"B1", "B2"}})

	assert.Equal(t, []string{"B1", "B2"}, withSamples.Dimensions[0].SampleValues)
	assert.Empty(t, base.Dimensions[0].SampleValues)
	assert.Empty(t, withSamples.Dimensions[1].SampleValues)
}
