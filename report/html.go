package report

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/spektr-org/spektr-retail/engine"
)

// ============================================================================
// HTML REPORT — engine.Result → self-contained HTML document
// ============================================================================
// Layout: header (title, summary, period) → bar chart → data table.
// Bars are plain CSS widths so the report needs no script.
// ============================================================================

// ContentType is the MIME type of a rendered report.
const ContentType = "text/html; charset=utf-8"

const stylesheet = `
body{font-family:system-ui,sans-serif;margin:2rem;color:#222}
h1{margin-bottom:.25rem}
.muted{color:#666}
.chart{margin:1.5rem 0}
.row{display:flex;align-items:center;margin:.2rem 0}
.label{width:14rem;overflow:hidden;text-overflow:ellipsis;white-space:nowrap}
.bar{height:.9rem;margin:.05rem 0}
table{border-collapse:collapse;margin-top:1rem}
th,td{border:1px solid #ddd;padding:.3rem .6rem}
td.right,th.right{text-align:right}
tfoot td{font-weight:bold}
`

// RenderHTML renders result as an HTML document.
func RenderHTML(result *engine.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("render report: nil result")
	}
	var buf bytes.Buffer
	if err := Page(result).Render(&buf); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename is the download name for a rendered report.
func Filename(result *engine.Result) string {
	return slug(result.Title) + ".html"
}

// Page builds the document node.
func Page(result *engine.Result) g.Node {
	return h.Doctype(
		h.HTML(
			h.Lang("en"),
			h.Head(
				h.Meta(h.Charset("utf-8")),
				h.TitleEl(g.Text(result.Title)),
				h.StyleEl(g.Raw(stylesheet)),
			),
			h.Body(
				h.H1(g.Text(result.Title)),
				h.P(h.Class("muted"), g.Text(result.Summary)),
				g.If(result.Note != "", h.P(h.Class("muted"), g.Text(result.Note))),
				g.If(result.Period != "", h.P(h.Class("muted"), g.Text("Period: "+result.Period))),
				h.P(h.Class("muted"), g.Textf("%d matching row(s)", result.RowCount)),
				chart(result.ChartConfig),
				table(result.TableData),
			),
		),
	)
}

func chart(cfg *engine.ChartConfig) g.Node {
	if cfg == nil || len(cfg.Series) == 0 {
		return nil
	}

	var peak float64
	for _, s := range cfg.Series {
		for _, p := range s.Data {
			peak = math.Max(peak, p.Value)
		}
	}

	rows := make([]g.Node, 0, len(cfg.Series[0].Data))
	for i, p := range cfg.Series[0].Data {
		bars := make([]g.Node, 0, len(cfg.Series))
		for _, s := range cfg.Series {
			if i >= len(s.Data) {
				continue
			}
			bars = append(bars, h.Div(
				h.Class("bar"),
				h.Title(s.Name),
				h.Style(fmt.Sprintf("width:%s%%;background:%s", strconv.FormatFloat(barWidth(s.Data[i].Value, peak), 'f', 1, 64), s.Color)),
			))
		}
		rows = append(rows, h.Div(
			h.Class("row"),
			h.Span(h.Class("label"), g.Text(p.Label)),
			h.Div(h.Style("flex:1"), g.Group(bars)),
		))
	}

	legend := make([]g.Node, 0, len(cfg.Series))
	for _, s := range cfg.Series {
		legend = append(legend, h.Span(h.Style("margin-right:1rem;color:"+s.Color), g.Text("■ "+s.Name)))
	}

	return h.Div(
		h.Class("chart"),
		g.If(len(cfg.Series) > 1, h.P(g.Group(legend))),
		g.Group(rows),
	)
}

func barWidth(v, peak float64) float64 {
	if peak <= 0 || v <= 0 {
		return 0
	}
	return v / peak * 100
}

func table(td *engine.TableData) g.Node {
	if td == nil {
		return nil
	}

	head := make([]g.Node, len(td.Columns))
	for i, c := range td.Columns {
		head[i] = h.Th(alignClass(c), g.Text(c.Label))
	}

	body := make([]g.Node, len(td.Rows))
	for i, row := range td.Rows {
		cells := make([]g.Node, len(row))
		for j, cell := range row {
			var col engine.Column
			if j < len(td.Columns) {
				col = td.Columns[j]
			}
			cells[j] = h.Td(alignClass(col), g.Text(cell))
		}
		body[i] = h.Tr(g.Group(cells))
	}

	var foot g.Node
	if td.Summary != nil {
		cells := make([]g.Node, len(td.Columns))
		for i, c := range td.Columns {
			text := td.Summary.Values[c.Key]
			if i == 0 && text == "" {
				text = td.Summary.Label
			}
			cells[i] = h.Td(alignClass(c), g.Text(text))
		}
		foot = h.TFoot(h.Tr(g.Group(cells)))
	}

	return h.Table(
		h.THead(h.Tr(g.Group(head))),
		h.TBody(g.Group(body)),
		foot,
	)
}

func alignClass(c engine.Column) g.Node {
	if c.Align == "right" {
		return h.Class("right")
	}
	return nil
}

func slug(title string) string {
	out := make([]rune, 0, len(title))
	dash := false
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
			dash = false
		case r >= 'A' && r <= 'Z':
			out = append(out, r+'a'-'A')
			dash = false
		case !dash && len(out) > 0:
			out = append(out, '_')
			dash = true
		}
	}
	if dash {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return "sales_report"
	}
	return string(out)
}
