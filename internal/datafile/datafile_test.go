package datafile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/lvillar/pdfexport"
	"github.com/lvillar/pdfexport/internal/datafile"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "data.json", `{
		"textFields": {"name": "Alice", "age": 42},
		"checkboxFields": {"agree": true},
		"tableFields": {"items": {"rows": [{"qty": 1, "desc": "Pen"}]}}
	}`)

	d, err := datafile.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Alice", d.Text["name"])
	assert.Equal(t, float64(42), d.Text["age"])
	assert.Equal(t, true, d.Checkbox["agree"])
	require.Contains(t, d.Table, "items")
	assert.Equal(t, "Pen", d.Table["items"].Rows[0]["desc"])
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "data.yml", "textFields:\n  name: Bob\ngroupFields:\n  color: R\n")

	d, err := datafile.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Bob", d.Text["name"])
	assert.Equal(t, "R", d.Group["color"])
	assert.Empty(t, d.Barcode)
}

func TestLoadErrors(t *testing.T) {
	_, err := datafile.Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, pdfexport.ErrResourceNotFound)

	_, err = datafile.Load(writeFile(t, "data.txt", "name=Alice"))
	assert.ErrorIs(t, err, pdfexport.ErrValidation)

	_, err = datafile.Load(writeFile(t, "data.json", "{"))
	assert.ErrorIs(t, err, pdfexport.ErrValidation)
}

func writeSheet(t *testing.T, rows ...[]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "items.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadSheet(t *testing.T) {
	path := writeSheet(t,
		[]any{"qty", "desc", "price"},
		[]any{2, "Pencil", "1.50"},
		[]any{nil, nil, nil},
		[]any{1, "Notebook"},
	)

	rows, err := datafile.ReadSheet(path, "")
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{
		{"qty": "2", "desc": "Pencil", "price": "1.50"},
		{"qty": "1", "desc": "Notebook", "price": ""},
	}, rows)

	_, err = datafile.ReadSheet(path, "Missing")
	assert.ErrorIs(t, err, pdfexport.ErrValidation)
}

func TestReadSheetEmptyHeader(t *testing.T) {
	path := writeSheet(t, []any{"qty", "", "price"}, []any{1, "x", 2})
	_, err := datafile.ReadSheet(path, "Sheet1")
	assert.ErrorIs(t, err, pdfexport.ErrValidation)
}

func TestAddSheet(t *testing.T) {
	path := writeSheet(t, []any{"sku"}, []any{"A-1"})

	var d pdfexport.Data
	require.NoError(t, datafile.AddSheet(&d, "items", path, ""))
	require.Contains(t, d.Table, "items")
	assert.Equal(t, "A-1", d.Table["items"].Rows[0]["sku"])
}

func TestParseTableArg(t *testing.T) {
	field, path, sheet, err := datafile.ParseTableArg("items=data/items.xlsx:Orders")
	require.NoError(t, err)
	assert.Equal(t, "items", field)
	assert.Equal(t, "data/items.xlsx", path)
	assert.Equal(t, "Orders", sheet)

	_, path, sheet, err = datafile.ParseTableArg("items=items.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "items.xlsx", path)
	assert.Empty(t, sheet)

	_, _, _, err = datafile.ParseTableArg("items")
	assert.Error(t, err)
}
