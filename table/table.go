// Package table lays out tabular field data as a positioned cell grid.
//
// Columns come from the sorted key set of the first row, widths from the
// column configuration (or an even share of the field width) and every cell
// is styled with its column's resolved title or body style. The result is a
// single draw.Grid anchored at the top-left corner of the field rectangle.
package table

import (
	"sort"

	"github.com/lvillar/pdfexport/config"
	"github.com/lvillar/pdfexport/draw"
	"github.com/lvillar/pdfexport/pdferr"
	"github.com/lvillar/pdfexport/render"
)

// Spec is the input of one table: its resolved columns, left to right, and
// the data rows.
type Spec struct {
	Columns []config.Column
	Rows    []map[string]any
}

// ColumnIDs returns the column identifiers of rows: the keys of the first
// row in lexicographic order.
func ColumnIDs(rows []map[string]any) []string {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		ids = append(ids, k)
	}
	sort.Strings(ids)
	return ids
}

// NewSpec resolves the columns of the table field name from the snapshot.
func NewSpec(snap *config.Snapshot, name string, rows []map[string]any) Spec {
	spec := Spec{Rows: rows}
	for _, id := range ColumnIDs(rows) {
		spec.Columns = append(spec.Columns, snap.Column(name, id))
	}
	return spec
}

// Table is a table builder bound to one field.
type Table struct {
	renderer *render.Renderer
	field    draw.Field
	columns  []config.Column
	rows     []map[string]any
}

// New creates a table drawn into field f. Cell text is laid out by r.
func New(r *render.Renderer, f draw.Field) *Table {
	return &Table{renderer: r, field: f}
}

// SetColumns sets the column definitions of the table.
func (t *Table) SetColumns(cols ...config.Column) *Table {
	t.columns = cols
	return t
}

// AddRow appends a data row.
func (t *Table) AddRow(row map[string]any) *Table {
	t.rows = append(t.rows, row)
	return t
}

// SetSpec replaces columns and rows with those of s.
func (t *Table) SetSpec(s Spec) *Table {
	t.columns = s.Columns
	t.rows = s.Rows
	return t
}

// Layout builds the grid: a title row followed by one row per data row.
// ok is false when the table has no columns, in which case nothing is drawn.
func (t *Table) Layout() (grid draw.Grid, ok bool, err error) {
	const op = "table.Layout"
	if len(t.columns) == 0 {
		return draw.Grid{}, false, nil
	}
	for _, row := range t.rows {
		for _, col := range t.columns {
			if _, ok := render.Scalar(row[col.ID]); !ok {
				return draw.Grid{}, false, pdferr.Newf(pdferr.TypeMismatch, op,
					"column %q: got %T, want a scalar", col.ID, row[col.ID]).WithField(t.field.Name)
			}
		}
	}

	rect := t.field.Rect
	grid = draw.Grid{Page: t.field.Page, Field: t.field.Name, Columns: t.calculateWidths()}

	top := rect.Top
	addRow := func(text func(config.Column) any, style func(config.Column) config.Style) error {
		h := t.calculateRowHeight(style)
		x := rect.Left
		for i, col := range t.columns {
			st := style(col)
			cell := draw.Rect{Left: x, Bottom: top - h, Right: x + grid.Columns[i], Top: top}
			c, err := t.renderCell(cell, text(col), st)
			if err != nil {
				return err
			}
			grid.Cells = append(grid.Cells, c)
			x += grid.Columns[i]
		}
		grid.RowHeights = append(grid.RowHeights, h)
		top -= h
		return nil
	}

	titleText := func(c config.Column) any { return c.Title }
	titleStyle := func(c config.Column) config.Style { return c.TitleStyle }
	bodyStyle := func(c config.Column) config.Style { return c.BodyStyle }
	if err := addRow(titleText, titleStyle); err != nil {
		return draw.Grid{}, false, err
	}
	for _, row := range t.rows {
		if err := addRow(func(c config.Column) any { return row[c.ID] }, bodyStyle); err != nil {
			return draw.Grid{}, false, err
		}
	}
	grid.Bounds = draw.Rect{Left: rect.Left, Bottom: top, Right: rect.Right, Top: rect.Top}
	return grid, true, nil
}

// calculateWidths computes column widths from the configured widths, or an
// even share of the field width for unconfigured columns, scaled so that the
// table spans exactly the field width.
func (t *Table) calculateWidths() []float64 {
	total := t.field.Rect.Width()
	share := total / float64(len(t.columns))
	widths := make([]float64, len(t.columns))
	sum := 0.0
	for i, col := range t.columns {
		widths[i] = share
		if col.Width > 0 {
			widths[i] = col.Width
		}
		sum += widths[i]
	}
	if sum > 0 && sum != total {
		for i := range widths {
			widths[i] *= total / sum
		}
	}
	return widths
}

// calculateRowHeight returns the height of a single-line row: the largest
// font size of its cells plus leading and padding.
func (t *Table) calculateRowHeight(style func(config.Column) config.Style) float64 {
	h := 0.0
	for _, col := range t.columns {
		h = max(h, style(col).FontSize*1.2+4)
	}
	return h
}

func (t *Table) renderCell(rect draw.Rect, value any, st config.Style) (draw.Cell, error) {
	bg := st.BackgroundColor
	c := draw.Cell{
		Rect:        rect,
		Background:  &bg,
		Border:      st.Border,
		BorderWidth: st.BorderWidth,
		BorderColor: st.BorderColor,
	}
	txt, err := t.renderer.Text(draw.Field{Name: t.field.Name, Page: t.field.Page, Rect: rect}, value, st)
	if err != nil {
		return draw.Cell{}, err
	}
	c.Spans = txt.Spans
	return c, nil
}
