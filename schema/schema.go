package schema

import (
	"github.com/spektr-org/spektr-retail/engine"
)

// ============================================================================
// SCHEMA — Describes the sales dataset for the translator prompt
// ============================================================================
// The column set is fixed; only the sample values change per load.
// The translator never sees raw rows, only this metadata.
// ============================================================================

// Config describes the complete shape of a dataset.
type Config struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	Dimensions []DimensionMeta `json:"dimensions"`
	Measures   []MeasureMeta   `json:"measures"`
}

// DimensionMeta describes a string field used for grouping/filtering.
type DimensionMeta struct {
	Key          string   `json:"key"`
	DisplayName  string   `json:"displayName"`
	Description  string   `json:"description,omitempty"`
	SampleValues []string `json:"sampleValues"`
	FilterField  string   `json:"filterField,omitempty"` // plan field that filters on this column
	Groupable    bool     `json:"groupable"`
	IsTemporal   bool     `json:"isTemporal,omitempty"`
}

// MeasureMeta describes a numeric field used for aggregation.
type MeasureMeta struct {
	Key          string   `json:"key"`
	DisplayName  string   `json:"displayName"`
	Description  string   `json:"description,omitempty"`
	Unit         string   `json:"unit,omitempty"`
	Aggregations []string `json:"aggregations,omitempty"`
}

// Sales returns the sales dataset schema without sample values.
func Sales() Config {
	return Config{
		Name:        "Retail Sales",
		Description: "One row per sales-transaction line across branches and sales channels.",
		Dimensions: []DimensionMeta{
			{Key: engine.ColBranch, DisplayName: "Branch", Description: "store branch code", FilterField: "branch_filters", Groupable: true},
			{Key: engine.ColSection, DisplayName: "Section", Description: "store section", FilterField: "section_filters", Groupable: true},
			{Key: engine.ColItem, DisplayName: "Item", Description: "item description, many spelling variants per product", FilterField: "item_filters", Groupable: true},
			{Key: engine.ColItemGroup, DisplayName: "Item Group", Description: "product family", FilterField: "item_group_filters", Groupable: true},
			{Key: engine.ColSalesGroup, DisplayName: "Sales Group", Description: "sales channel", FilterField: "sales_group_filters", Groupable: true},
			{Key: engine.AxisMonth, DisplayName: "Month", Description: "calendar month of the transaction", FilterField: "month_filter", Groupable: true, IsTemporal: true},
			{Key: engine.ColDate, DisplayName: "Date", Description: "transaction date", FilterField: "date_filter", Groupable: true, IsTemporal: true},
		},
		Measures: []MeasureMeta{
			{Key: engine.ColTotal, DisplayName: "Revenue", Description: "line total", Unit: "INR", Aggregations: []string{"sum", "mean", "count"}},
			{Key: engine.ColQuantity, DisplayName: "Quantity", Description: "quantity in the inventory unit of measure", Unit: "uom", Aggregations: []string{"sum", "mean"}},
			{Key: engine.CountSentinel, DisplayName: "Transactions", Description: "number of rows", Aggregations: []string{"count"}},
		},
	}
}

// WithSamples returns a copy of c with sample values set per dimension key.
func (c Config) WithSamples(samples map[string][]string) Config {
	dims := make([]DimensionMeta, len(c.Dimensions))
	copy(dims, c.Dimensions)
	for i := range dims {
		if s, ok := samples[dims[i].Key]; ok {
			dims[i].SampleValues = s
		}
	}
	c.Dimensions = dims
	return c
}

// DimensionKeys returns all dimension keys.
func (c Config) DimensionKeys() []string {
	keys := make([]string, len(c.Dimensions))
	for i, d := range c.Dimensions {
		keys[i] = d.Key
	}
	return keys
}

// MeasureKeys returns all measure keys.
func (c Config) MeasureKeys() []string {
	keys := make([]string, len(c.Measures))
	for i, m := range c.Measures {
		keys[i] = m.Key
	}
	return keys
}
