package pdfexport_test

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/lvillar/pdfexport"
	"github.com/lvillar/pdfexport/internal/formpdf"
)

func ExampleExporter_ExportBytes() {
	tpl := formpdf.Build(formpdf.Template{Fields: []formpdf.Field{
		{Name: "name", Kind: formpdf.Text, Rect: formpdf.Rect{50, 700, 250, 720}},
		{Name: "agree", Kind: formpdf.Checkbox, Rect: formpdf.Rect{50, 660, 62, 672}},
	}})

	exp, err := pdfexport.New(pdfexport.WithTemplate(tpl))
	if err != nil {
		panic(err)
	}
	config := []byte("configuration:\n  TextFields:\n    FontSize: 11\n")

	out, err := exp.ExportBytes(config, pdfexport.Data{
		Text:     map[string]any{"name": "Alice"},
		Checkbox: map[string]any{"agree": true},
	})
	fmt.Println(err, bytes.HasPrefix(out, []byte("%PDF-")))

	_, err = exp.ExportBytes(config, pdfexport.Data{Text: map[string]any{"name": []int{1}}})
	fmt.Println(errors.Is(err, pdfexport.ErrTypeMismatch))
	// Output:
	// <nil> true
	// true
}
