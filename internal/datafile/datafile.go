// Package datafile loads export data from JSON, YAML and spreadsheet files.
package datafile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/lvillar/pdfexport"
	"github.com/lvillar/pdfexport/pdferr"
)

// Load reads export data from a .json, .yaml or .yml file.
func Load(path string) (pdfexport.Data, error) {
	const op = "datafile.Load"
	var d pdfexport.Data

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return d, pdferr.New(pdferr.ResourceNotFound, op, err)
	} else if err != nil {
		return d, pdferr.New(pdferr.IO, op, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(raw, &d)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &d)
	default:
		return d, pdferr.Newf(pdferr.Validation, op, "unsupported data file type %q", ext)
	}
	if err != nil {
		return d, pdferr.New(pdferr.Validation, op, fmt.Errorf("%s: %w", path, err))
	}
	return d, nil
}

// ReadSheet reads table rows from a spreadsheet. The first row holds the
// column ids; each following row becomes one data row. Blank rows are
// skipped and short rows leave their trailing columns empty. An empty sheet
// name selects the first sheet.
func ReadSheet(path, sheet string) ([]map[string]any, error) {
	const op = "datafile.ReadSheet"
	f, err := excelize.OpenFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, pdferr.New(pdferr.ResourceNotFound, op, err)
	} else if err != nil {
		return nil, pdferr.New(pdferr.IO, op, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, pdferr.New(pdferr.Validation, op, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	for i, h := range header {
		if h = strings.TrimSpace(h); h == "" {
			col, _ := excelize.ColumnNumberToName(i + 1)
			return nil, pdferr.Newf(pdferr.Validation, op, "sheet %q: empty header in column %s", sheet, col)
		}
		header[i] = h
	}

	var out []map[string]any
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		m := make(map[string]any, len(header))
		for i, id := range header {
			if i < len(row) {
				m[id] = row[i]
			} else {
				m[id] = ""
			}
		}
		out = append(out, m)
	}
	return out, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ParseTableArg parses a "field=file.xlsx[:Sheet]" argument.
func ParseTableArg(arg string) (field, path, sheet string, err error) {
	field, rest, ok := strings.Cut(arg, "=")
	if !ok || field == "" || rest == "" {
		return "", "", "", fmt.Errorf("table %s: want field=file.xlsx[:sheet]", strconv.Quote(arg))
	}
	path, sheet = rest, ""
	if i := strings.LastIndexByte(rest, ':'); i > 0 && !strings.HasSuffix(rest, ".xlsx") {
		path, sheet = rest[:i], rest[i+1:]
	}
	return field, path, sheet, nil
}

// AddSheet loads the rows of a spreadsheet into the table field of d.
func AddSheet(d *pdfexport.Data, field, path, sheet string) error {
	rows, err := ReadSheet(path, sheet)
	if err != nil {
		return err
	}
	if d.Table == nil {
		d.Table = map[string]*pdfexport.TableData{}
	}
	d.Table[field] = &pdfexport.TableData{Rows: rows}
	return nil
}
