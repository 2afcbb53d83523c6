package pdfexport

// Data is the run-time input of an export: one map per field category,
// keyed by template field name. Names missing from the template are
// ignored.
type Data struct {
	Text     map[string]any        `json:"textFields,omitempty" yaml:"textFields,omitempty"`
	Barcode  map[string]any        `json:"barcodeFields,omitempty" yaml:"barcodeFields,omitempty"`
	QRCode   map[string]any        `json:"qrcodeFields,omitempty" yaml:"qrcodeFields,omitempty"`
	Image    map[string]any        `json:"imageFields,omitempty" yaml:"imageFields,omitempty"`
	Checkbox map[string]any        `json:"checkboxFields,omitempty" yaml:"checkboxFields,omitempty"`
	Group    map[string]any        `json:"groupFields,omitempty" yaml:"groupFields,omitempty"`
	Table    map[string]*TableData `json:"tableFields,omitempty" yaml:"tableFields,omitempty"`
}

// TableData holds the rows of a table field. The keys of the first row,
// sorted, are the table's columns.
type TableData struct {
	Rows []map[string]any `json:"rows" yaml:"rows"`
}

// Empty reports whether d carries no field data.
func (d Data) Empty() bool {
	return len(d.Text) == 0 && len(d.Barcode) == 0 && len(d.QRCode) == 0 && len(d.Image) == 0 &&
		len(d.Checkbox) == 0 && len(d.Group) == 0 && len(d.Table) == 0
}
