package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	spektr "github.com/spektr-org/spektr-retail"
	"github.com/spektr-org/spektr-retail/engine"
)

var outputFormats = []string{"json", "pretty", "csv", "table", "text"}

func validFormat(f string) bool {
	for _, o := range outputFormats {
		if o == f {
			return true
		}
	}
	return false
}

// cliOutput is the JSON shape printed by the query command.
type cliOutput struct {
	Query  string         `json:"query"`
	Plan   planView       `json:"plan"`
	Result *engine.Result `json:"result"`
}

// planView is the printable form of a normalized plan.
type planView struct {
	Chart      engine.ChartType      `json:"chart_type"`
	Axis       string                `json:"x_axis"`
	Primary    string                `json:"primary"`
	Secondary  string                `json:"secondary,omitempty"`
	Filters    []string              `json:"filters"`
	Limit      int                   `json:"limit,omitempty"`
	Comparison engine.ComparisonMode `json:"comparison_mode,omitempty"`
}

func newPlanView(p engine.Plan) planView {
	v := planView{
		Chart:      p.Chart,
		Axis:       p.Axis,
		Primary:    string(p.Primary.Agg) + "(" + p.Primary.Label() + ")",
		Filters:    []string{},
		Limit:      p.Limit,
		Comparison: p.Comparison,
	}
	if sec, ok := p.Secondary(); ok {
		v.Secondary = string(sec.Agg) + "(" + sec.Label() + ")"
	}
	for _, pred := range p.Predicates() {
		v.Filters = append(v.Filters, pred.String())
	}
	return v
}

func writeAnswer(w io.Writer, a *spektr.Answer, format string) error {
	switch format {
	case "csv":
		return writeCSV(w, a.Result)
	case "table":
		return writeTable(w, a.Result)
	case "text":
		return writeText(w, a.Result)
	default:
		return writeJSON(w, cliOutput{Query: a.Query, Plan: newPlanView(a.Plan), Result: a.Result}, format == "pretty")
	}
}

// ============================================================================
// CSV OUTPUT — Sheets-ready rows
// ============================================================================

func writeCSV(w io.Writer, result *engine.Result) error {
	cw := csv.NewWriter(w)
	for _, row := range resultRows(result) {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// resultRows flattens a result into a header row plus data rows. Chart
// data is preferred; the table view and then the summary are fallbacks.
func resultRows(result *engine.Result) [][]string {
	if result == nil {
		return [][]string{{"Result", "No data"}}
	}
	if rows := chartRows(result.ChartConfig); rows != nil {
		return rows
	}
	if rows := tableRows(result.TableData); rows != nil {
		return rows
	}
	summary := result.Summary
	if summary == "" {
		summary = "No data"
	}
	return [][]string{{"Summary", "Unit"}, {summary, result.Unit}}
}

func chartRows(chart *engine.ChartConfig) [][]string {
	if chart == nil || len(chart.Series) == 0 {
		return nil
	}
	xLabel, yLabel := chart.XAxis, chart.YAxis
	if xLabel == "" {
		xLabel = "Label"
	}
	if yLabel == "" {
		yLabel = "Value"
	}

	// Single series → two columns
	if len(chart.Series) == 1 {
		rows := [][]string{{xLabel, yLabel}}
		for _, d := range chart.Series[0].Data {
			rows = append(rows, []string{d.Label, fmtNum(d.Value)})
		}
		return rows
	}

	// Multi-series → label + one column per series
	header := []string{xLabel}
	for _, s := range chart.Series {
		header = append(header, s.Name)
	}
	rows := [][]string{header}
	for i, d := range chart.Series[0].Data {
		row := []string{d.Label}
		for _, s := range chart.Series {
			if i < len(s.Data) {
				row = append(row, fmtNum(s.Data[i].Value))
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func tableRows(table *engine.TableData) [][]string {
	if table == nil || len(table.Columns) == 0 {
		return nil
	}
	header := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		header[i] = c.Label
	}
	rows := [][]string{header}
	rows = append(rows, table.Rows...)
	return rows
}

// ============================================================================
// TABLE OUTPUT — markdown, using the display-formatted table view
// ============================================================================

func writeTable(w io.Writer, result *engine.Result) error {
	if result == nil || result.TableData == nil {
		return writeCSV(w, result)
	}
	td := result.TableData

	alignment := make([]tw.Align, len(td.Columns))
	header := make([]string, len(td.Columns))
	for i, c := range td.Columns {
		header[i] = c.Label
		alignment[i] = tw.AlignLeft
		if c.Align == "right" {
			alignment[i] = tw.AlignRight
		}
	}

	if td.Title != "" {
		fmt.Fprintf(w, "### %s\n\n", td.Title)
	}
	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(header)
	for _, row := range td.Rows {
		table.Append(row)
	}
	if td.Summary != nil {
		row := make([]string, len(td.Columns))
		row[0] = td.Summary.Label
		for i, c := range td.Columns {
			if v, ok := td.Summary.Values[c.Key]; ok {
				row[i] = v
			}
		}
		table.Append(row)
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n_%d matching rows_\n", result.RowCount)
	return err
}

// ============================================================================
// TEXT OUTPUT — summary sentence plus an indented listing
// ============================================================================

func writeText(w io.Writer, result *engine.Result) error {
	if result == nil {
		_, err := fmt.Fprintln(w, "No data")
		return err
	}
	var b strings.Builder
	b.WriteString(color.New(color.Bold).Sprint(result.Title))
	b.WriteString("\n")
	if result.Period != "" {
		b.WriteString(color.CyanString(result.Period))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(result.Summary)
	b.WriteString("\n")
	if result.Note != "" {
		b.WriteString(color.YellowString(result.Note))
		b.WriteString("\n")
	}

	rows := chartRows(result.ChartConfig)
	if len(rows) > 1 {
		b.WriteString("\n")
		width := 0
		for _, r := range rows[1:] {
			width = max(width, len(r[0]))
		}
		for _, r := range rows[1:] {
			b.WriteString("  ")
			b.WriteString(r[0])
			b.WriteString(strings.Repeat(" ", width-len(r[0])+2))
			b.WriteString(color.GreenString(strings.Join(r[1:], "  ")))
			b.WriteString("\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// ============================================================================
// JSON OUTPUT
// ============================================================================

func writeJSON(w io.Writer, v any, pretty bool) error {
	var (
		out []byte
		err error
	)
	if pretty {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// fmtNum prints whole numbers without decimals, others with two.
func fmtNum(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
