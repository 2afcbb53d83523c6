package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/lvillar/pdfexport/reader"
)

// RegisterDefaultResources adds the built-in resources. Each reads the file
// named by the path query parameter, as in pdf://pages?path=/tmp/a.pdf.
func RegisterDefaultResources(s *Server) {
	for _, r := range []Resource{
		{"pdf://text", "Page text", "Plain text of every page", "text/plain", handleTextResource},
		{"pdf://metadata", "Document metadata", "PDF version, page count and the information dictionary", "application/json", handleMetadataResource},
		{"pdf://pages", "Page geometry", "Media box size and rotation of every page", "application/json", handlePagesResource},
		{"pdf://form-fields", "Form fields", "Name, type, page, rectangle and value of every template field", "application/json", handleFormFieldsResource},
	} {
		r.Description += ". Query: ?path=/file.pdf"
		s.AddResource(r)
	}
}

// resourceBase strips the query from a resource URI.
func resourceBase(uri string) string {
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		return uri[:i]
	}
	return uri
}

// queryPath returns the path query parameter of uri.
func queryPath(uri string) string {
	i := strings.IndexByte(uri, '?')
	if i < 0 {
		return ""
	}
	q, err := url.ParseQuery(uri[i+1:])
	if err != nil {
		return ""
	}
	return q.Get("path")
}

func readResource(uri string) ([]byte, error) {
	path := queryPath(uri)
	if path == "" {
		return nil, fmt.Errorf("missing 'path' parameter in URI")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func jsonContent(uri string, v any) ([]ResourceContent, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []ResourceContent{{URI: uri, MIMEType: "application/json", Text: string(out)}}, nil
}

func handleTextResource(uri string) ([]ResourceContent, error) {
	data, err := readResource(uri)
	if err != nil {
		return nil, err
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}

	var result strings.Builder
	for n := 1; n <= r.NumPage(); n++ {
		p := r.Page(n)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			fmt.Fprintf(&result, "--- Page %d (error: %v) ---\n", n, err)
			continue
		}
		fmt.Fprintf(&result, "--- Page %d ---\n%s\n\n", n, text)
	}
	return []ResourceContent{{URI: uri, MIMEType: "text/plain", Text: result.String()}}, nil
}

func handleMetadataResource(uri string) ([]ResourceContent, error) {
	data, err := readResource(uri)
	if err != nil {
		return nil, err
	}
	doc, err := reader.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	return jsonContent(uri, map[string]any{
		"version": doc.Version,
		"pages":   doc.NumPages(),
		"info":    doc.Info(),
	})
}

type pageDetail struct {
	Number int     `json:"number"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Rotate int     `json:"rotate,omitempty"`
}

// pageInfo describes the page tree of data.
func pageInfo(data []byte) (map[string]any, error) {
	doc, err := reader.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	var pages []pageDetail
	for n, p := range doc.Pages() {
		pages = append(pages, pageDetail{
			Number: n,
			Width:  p.MediaBox.Width(),
			Height: p.MediaBox.Height(),
			Rotate: p.Rotate,
		})
	}
	return map[string]any{"pageCount": doc.NumPages(), "pages": pages}, nil
}

func handlePagesResource(uri string) ([]ResourceContent, error) {
	data, err := readResource(uri)
	if err != nil {
		return nil, err
	}
	info, err := pageInfo(data)
	if err != nil {
		return nil, err
	}
	return jsonContent(uri, info)
}

func handleFormFieldsResource(uri string) ([]ResourceContent, error) {
	data, err := readResource(uri)
	if err != nil {
		return nil, err
	}
	fields, err := templateFields(data)
	if err != nil {
		return nil, err
	}
	return jsonContent(uri, map[string]any{"fieldCount": len(fields), "fields": fields})
}
