package table_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/pdfexport/config"
	"github.com/lvillar/pdfexport/draw"
	"github.com/lvillar/pdfexport/pdferr"
	"github.com/lvillar/pdfexport/render"
	"github.com/lvillar/pdfexport/table"
)

// halfEm measures every rune as half the font size.
type halfEm struct{}

func (halfEm) HasGlyph(string, rune) (bool, error) { return true, nil }

func (halfEm) StringWidth(_ string, _ draw.FontStyle, size float64, s string) (float64, error) {
	return float64(len([]rune(s))) * size / 2, nil
}

var itemsField = draw.Field{
	Name: "items",
	Page: 1,
	Rect: draw.Rect{Left: 50, Bottom: 400, Right: 350, Top: 700},
}

func layout(t *testing.T, snap *config.Snapshot, rows []map[string]any) (draw.Grid, bool, error) {
	t.Helper()
	r := render.New(halfEm{}, zerolog.Nop())
	return table.New(r, itemsField).SetSpec(table.NewSpec(snap, "items", rows)).Layout()
}

func defaults(t *testing.T) *config.Snapshot {
	t.Helper()
	s, err := config.NewSnapshot(nil)
	require.NoError(t, err)
	return s
}

func TestColumnsAreSortedKeysOfFirstRow(t *testing.T) {
	rows := []map[string]any{
		{"zeta": 1, "alpha": 2, "mid": 3},
		{"other": 4},
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, table.ColumnIDs(rows))
	assert.Nil(t, table.ColumnIDs(nil))
}

func TestEvenColumnWidths(t *testing.T) {
	rows := []map[string]any{
		{"c": "3", "a": "1", "b": "2"},
		{"c": "6", "a": "4", "b": "5"},
	}
	grid, ok, err := layout(t, defaults(t), rows)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []float64{100, 100, 100}, grid.Columns)
	require.Len(t, grid.RowHeights, 3)
	require.Len(t, grid.Cells, 9)
	assert.Equal(t, itemsField.Rect.Top, grid.Bounds.Top)
	assert.Equal(t, itemsField.Rect.Left, grid.Bounds.Left)
	assert.Equal(t, itemsField.Rect.Right, grid.Bounds.Right)
	assert.Equal(t, 1, grid.Page)

	// Body cells follow sorted column order.
	assert.Equal(t, "1", grid.Cells[3].Spans[0].Text)
	assert.Equal(t, "2", grid.Cells[4].Spans[0].Text)
	assert.Equal(t, "6", grid.Cells[8].Spans[0].Text)
	assert.Equal(t, draw.Rect{Left: 150, Bottom: grid.Cells[4].Rect.Bottom, Right: 250, Top: grid.Cells[4].Rect.Top},
		grid.Cells[4].Rect)
}

func TestConfiguredColumns(t *testing.T) {
	snap, err := config.Load([]byte(`<configuration>
		<FontSize>9</FontSize>
		<TableFields>
			<items>
				<Border>TOP|BOTTOM</Border>
				<col id="qty">
					<ColTitle>Qty</ColTitle>
					<ColWidths>50</ColWidths>
					<TitleFonts><FontSize>14</FontSize></TitleFonts>
					<ColStyles><HAlign>RIGHT</HAlign><BackgroundColor>LIGHT_GRAY</BackgroundColor></ColStyles>
				</col>
				<col id="name"><ColTitle>Name</ColTitle></col>
			</items>
		</TableFields>
	</configuration>`))
	require.NoError(t, err)

	rows := []map[string]any{{"qty": 3, "name": "Widget", "price": 1.5}}
	grid, ok, err := layout(t, snap, rows)
	require.NoError(t, err)
	require.True(t, ok)

	// name, price, qty: 100 + 100 + 50 scaled up to 300.
	assert.Equal(t, []float64{120, 120, 60}, grid.Columns)
	assert.InDelta(t, 14*1.2+4, grid.RowHeights[0], 1e-9)
	assert.InDelta(t, 9*1.2+4, grid.RowHeights[1], 1e-9)

	title := grid.Cells[:3]
	assert.Equal(t, "Name", title[0].Spans[0].Text)
	assert.Empty(t, title[1].Spans)
	assert.Equal(t, "Qty", title[2].Spans[0].Text)
	assert.Equal(t, 14.0, title[2].Spans[0].Size)
	assert.Equal(t, draw.BorderTop|draw.BorderBottom, title[2].Border)

	qty := grid.Cells[5]
	require.Len(t, qty.Spans, 1)
	assert.Equal(t, "3", qty.Spans[0].Text)
	assert.InDelta(t, qty.Rect.Right-2-4.5, qty.Spans[0].X, 1e-9)
	require.NotNil(t, qty.Background)
	assert.NotEqual(t, draw.White, *qty.Background)
	assert.Equal(t, draw.White, *grid.Cells[4].Background)
	assert.Equal(t, "1.5", grid.Cells[4].Spans[0].Text)

	assert.InDelta(t, itemsField.Rect.Top-grid.RowHeights[0], qty.Rect.Top, 1e-9)
	assert.InDelta(t, itemsField.Rect.Top-grid.RowHeights[0]-grid.RowHeights[1], grid.Bounds.Bottom, 1e-9)
}

func TestNilCellRendersEmpty(t *testing.T) {
	rows := []map[string]any{{"a": "x", "b": nil}, {"a": nil, "b": "y"}}
	grid, ok, err := layout(t, defaults(t), rows)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, grid.Cells[3].Spans)
	assert.Empty(t, grid.Cells[4].Spans)
	assert.Equal(t, "y", grid.Cells[5].Spans[0].Text)
}

func TestMissingKeyInLaterRow(t *testing.T) {
	rows := []map[string]any{{"a": "x", "b": "z"}, {"a": "only"}}
	grid, _, err := layout(t, defaults(t), rows)
	require.NoError(t, err)
	assert.Empty(t, grid.Cells[5].Spans)
}

func TestNonScalarCellIsTypeMismatch(t *testing.T) {
	rows := []map[string]any{{"a": []int{1, 2}}}
	_, _, err := layout(t, defaults(t), rows)
	assert.ErrorIs(t, err, pdferr.ErrTypeMismatch)
	assert.Contains(t, err.Error(), `column "a"`)
}

func TestEmptyTableDrawsNothing(t *testing.T) {
	_, ok, err := layout(t, defaults(t), nil)
	require.NoError(t, err)
	assert.False(t, ok)
}
