// Package dataset loads sales tables into engine records and holds the
// process-wide, read-only snapshot the engine queries.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spektr-org/spektr-retail/engine"
)

// ============================================================================
// TABLE — the ingestion boundary
// ============================================================================
// Readers (CSV, Parquet) produce a Table; Decode turns it into records.
// Decode never drops a row for a bad field: unparseable dates become
// "no date", unparseable totals become NaN, unparseable quantities become 1.
// ============================================================================

// Table is a materialized tabular view: a header and string cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ErrMissingColumn is returned when a required column is absent.
var ErrMissingColumn = errors.New("missing required column")

// RequiredColumns must be present in every source table.
var RequiredColumns = []string{engine.ColDate, engine.ColTotal}

// LoadReport counts coercion failures for audit.
type LoadReport struct {
	Rows           int      `json:"rows"`
	UnparsedDates  int      `json:"unparsedDates"`
	MissingTotals  int      `json:"missingTotals"`
	DefaultedQty   int      `json:"defaultedQuantities"`
	IgnoredColumns []string `json:"ignoredColumns,omitempty"`
	MissingColumns []string `json:"missingColumns,omitempty"`
}

// Append merges another report into r.
func (r *LoadReport) Append(o LoadReport) {
	r.Rows += o.Rows
	r.UnparsedDates += o.UnparsedDates
	r.MissingTotals += o.MissingTotals
	r.DefaultedQty += o.DefaultedQty
}

// Slash dates are month-first, dash dates day-first. Single-digit day and
// month forms parse with the same layouts.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2-1-2006",
	"1/2/2006",
	"2-1-2006 15:04:05",
	"1/2/2006 15:04:05",
}

// Decode converts a table into records. Columns beyond the known set are
// ignored; known optional columns may be missing and are reported in
// LoadReport.MissingColumns.
func Decode(t Table) ([]engine.Record, LoadReport, error) {
	index := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		index[strings.TrimSpace(c)] = i
	}

	var report LoadReport
	for _, req := range RequiredColumns {
		if _, ok := index[req]; !ok {
			return nil, report, fmt.Errorf("%w: %q", ErrMissingColumn, req)
		}
	}

	known := make(map[string]bool)
	for _, c := range engine.RecordColumns() {
		known[c] = true
		if _, ok := index[c]; !ok {
			report.MissingColumns = append(report.MissingColumns, c)
		}
	}
	for _, c := range t.Columns {
		if !known[strings.TrimSpace(c)] {
			report.IgnoredColumns = append(report.IgnoredColumns, c)
		}
	}

	cell := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := make([]engine.Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := engine.Record{
			Branch:     cell(row, engine.ColBranch),
			Section:    cell(row, engine.ColSection),
			Item:       cell(row, engine.ColItem),
			ItemGroup:  cell(row, engine.ColItemGroup),
			SalesGroup: cell(row, engine.ColSalesGroup),
			UoM:        cell(row, engine.ColUoM),
		}

		if d, ok := ParseDate(cell(row, engine.ColDate)); ok {
			rec.Date, rec.HasDate = d, true
		} else {
			report.UnparsedDates++
		}

		if v, ok := parseNumber(cell(row, engine.ColTotal)); ok {
			rec.Total = v
		} else {
			rec.Total = math.NaN()
			report.MissingTotals++
		}

		if v, ok := parseNumber(cell(row, engine.ColQuantity)); ok {
			rec.Quantity = v
		} else {
			rec.Quantity = 1
			report.DefaultedQty++
		}

		records = append(records, rec)
	}
	report.Rows = len(records)
	return records, report, nil
}

// PresentColumns returns the record columns the table carries.
func PresentColumns(columns []string) []string {
	have := make(map[string]bool, len(columns))
	for _, c := range columns {
		have[strings.TrimSpace(c)] = true
	}
	var out []string
	for _, c := range engine.RecordColumns() {
		if have[c] {
			out = append(out, c)
		}
	}
	return out
}

// ParseDate accepts the date layouts seen in exported sales sheets.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

func parseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Concat stacks tables with possibly different column sets into one,
// filling absent cells with "". Column order is first-seen.
func Concat(tables ...Table) Table {
	var out Table
	pos := make(map[string]int)
	for _, t := range tables {
		for _, c := range t.Columns {
			if _, ok := pos[c]; !ok {
				pos[c] = len(out.Columns)
				out.Columns = append(out.Columns, c)
			}
		}
	}
	for _, t := range tables {
		for _, row := range t.Rows {
			wide := make([]string, len(out.Columns))
			for i, c := range t.Columns {
				if i < len(row) {
					wide[pos[c]] = row[i]
				}
			}
			out.Rows = append(out.Rows, wide)
		}
	}
	return out
}
