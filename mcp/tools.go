package mcp

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lvillar/pdfexport"
	"github.com/lvillar/pdfexport/draw"
	"github.com/lvillar/pdfexport/engine"
	"github.com/lvillar/pdfexport/pageops"
	"github.com/lvillar/pdfexport/sign"
)

// RegisterDefaultTools adds the built-in tools to the server. opts configure
// the exporter behind export_pdf and flatten_pdf.
func RegisterDefaultTools(s *Server, opts ...pdfexport.Option) {
	t := &toolset{opts: append([]pdfexport.Option{pdfexport.WithLogger(s.log)}, opts...)}
	s.AddTool(t.exportPDFTool())
	s.AddTool(t.flattenPDFTool())
	s.AddTool(listFieldsTool())
	s.AddTool(addWatermarkTool())
	s.AddTool(mergePDFsTool())
	s.AddTool(rotatePDFTool())
	s.AddTool(signaturesTool())
	s.AddTool(pdfInfoTool())
}

type toolset struct {
	opts []pdfexport.Option
}

func schema(required []string, props map[string]any) map[string]any {
	return map[string]any{"type": "object", "properties": props, "required": required}
}

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}

func stringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("missing '%s' argument", name)
	}
	return v, nil
}

func readArg(args map[string]any, name string) ([]byte, error) {
	path, err := stringArg(args, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func intList(args map[string]any, name string) []int {
	raw, _ := args[name].([]any)
	var out []int
	for _, v := range raw {
		if f, ok := v.(float64); ok {
			out = append(out, int(f))
		}
	}
	return out
}

// output saves pdf to args["outputPath"] when given, and returns it base64
// encoded otherwise.
func output(args map[string]any, what string, pdf []byte) (ToolResult, error) {
	if path, ok := args["outputPath"].(string); ok && path != "" {
		if err := os.WriteFile(path, pdf, 0o644); err != nil {
			return ToolResult{}, fmt.Errorf("writing file: %w", err)
		}
		return textResult("%s: %s (%d bytes)", what, path, len(pdf)), nil
	}
	res := textResult("%s (%d bytes)", what, len(pdf))
	res.Content = append(res.Content, ContentBlock{
		Type:     "resource",
		MIMEType: "application/pdf",
		Data:     base64.StdEncoding.EncodeToString(pdf),
	})
	return res, nil
}

func jsonResult(v any) (ToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ToolResult{}, err
	}
	return ToolResult{Content: []ContentBlock{{Type: "text", Text: string(out)}}}, nil
}

func (t *toolset) exporter(args map[string]any) (*pdfexport.Exporter, error) {
	opts := t.opts
	if path, ok := args["templatePath"].(string); ok && path != "" {
		opts = append(opts[:len(opts):len(opts)], pdfexport.WithTemplateFile(path))
	}
	return pdfexport.New(opts...)
}

func (t *toolset) exportPDFTool() Tool {
	return Tool{
		Name: "export_pdf",
		Description: "Fill a PDF form template with text, barcode, QR code, image, checkbox, group and table data, " +
			"styled by an XML or YAML configuration, and flatten it. Returns the PDF as base64 unless outputPath is set.",
		InputSchema: schema(nil, map[string]any{
			"templatePath": prop("string", "Path of the template PDF; a Template entry in the configuration takes precedence"),
			"config":       prop("string", "Configuration markup (XML or YAML); built-in defaults when omitted"),
			"data":         prop("object", "Field data by category: textFields, barcodeFields, qrcodeFields, imageFields, checkboxFields, groupFields, tableFields"),
			"outputPath":   prop("string", "Optional file path to save the PDF"),
		}),
		Handler: func(args map[string]any) (ToolResult, error) {
			var data pdfexport.Data
			if raw, ok := args["data"]; ok {
				b, err := json.Marshal(raw)
				if err != nil {
					return ToolResult{}, fmt.Errorf("encoding data: %w", err)
				}
				if err := json.Unmarshal(b, &data); err != nil {
					return ToolResult{}, fmt.Errorf("decoding data: %w", err)
				}
			}
			config, _ := args["config"].(string)

			exp, err := t.exporter(args)
			if err != nil {
				return ToolResult{}, err
			}
			pdf, err := exp.ExportBytes([]byte(config), data)
			if err != nil {
				return ToolResult{}, err
			}
			return output(args, "PDF exported", pdf)
		},
	}
}

func (t *toolset) flattenPDFTool() Tool {
	return Tool{
		Name:        "flatten_pdf",
		Description: "Flatten a PDF form: bake current field values into the page content and remove the form.",
		InputSchema: schema([]string{"templatePath"}, map[string]any{
			"templatePath": prop("string", "Path of the PDF form"),
			"outputPath":   prop("string", "Optional file path to save the PDF"),
		}),
		Handler: func(args map[string]any) (ToolResult, error) {
			if _, err := stringArg(args, "templatePath"); err != nil {
				return ToolResult{}, err
			}
			exp, err := t.exporter(args)
			if err != nil {
				return ToolResult{}, err
			}
			pdf, err := exp.ExportBytes(nil, pdfexport.Data{})
			if err != nil {
				return ToolResult{}, err
			}
			return output(args, "PDF flattened", pdf)
		},
	}
}

// fieldInfo is the JSON shape of a template field.
type fieldInfo struct {
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Page      int        `json:"page"`
	Rect      [4]float64 `json:"rect"`
	Value     string     `json:"value,omitempty"`
	Multiline bool       `json:"multiline,omitempty"`
	Options   []string   `json:"options,omitempty"`
	OnStates  []string   `json:"onStates,omitempty"`
}

func templateFields(data []byte) ([]fieldInfo, error) {
	doc, err := engine.Open(data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	var out []fieldInfo
	for _, f := range doc.Fields() {
		fi := fieldInfo{
			Name:      f.Name,
			Type:      f.Type.String(),
			Page:      f.Page,
			Rect:      [4]float64{f.Rect.Left, f.Rect.Bottom, f.Rect.Right, f.Rect.Top},
			Value:     f.Value,
			Multiline: f.Multiline,
			Options:   f.Options,
		}
		if f.Type == draw.FieldCheckbox || f.Type == draw.FieldRadio {
			for _, w := range f.Widgets {
				fi.OnStates = append(fi.OnStates, w.OnState)
			}
		}
		out = append(out, fi)
	}
	return out, nil
}

func listFieldsTool() Tool {
	return Tool{
		Name:        "list_fields",
		Description: "List the form fields of a template: name, type, page, rectangle and current value.",
		InputSchema: schema([]string{"path"}, map[string]any{
			"path": prop("string", "Path to the PDF file"),
		}),
		Handler: func(args map[string]any) (ToolResult, error) {
			data, err := readArg(args, "path")
			if err != nil {
				return ToolResult{}, err
			}
			fields, err := templateFields(data)
			if err != nil {
				return ToolResult{}, err
			}
			return jsonResult(map[string]any{"fieldCount": len(fields), "fields": fields})
		},
	}
}

func addWatermarkTool() Tool {
	return Tool{
		Name:        "add_watermark",
		Description: "Add a text watermark to the pages of a PDF.",
		InputSchema: schema([]string{"inputPath", "outputPath", "text"}, map[string]any{
			"inputPath":  prop("string", "Path to the input PDF"),
			"outputPath": prop("string", "Path for the output PDF"),
			"text":       prop("string", "Watermark text"),
			"fontSize":   prop("number", "Font size in points (default: 64)"),
			"opacity":    prop("number", "Opacity from 0.0 to 1.0 (default: 0.7)"),
			"rotation":   prop("number", "Counter-clockwise rotation in degrees"),
			"position":   prop("string", "center, top-left, top-center, top-right, bottom-left, bottom-center or bottom-right"),
			"under":      prop("boolean", "Paint below the page content"),
			"pages":      map[string]any{"type": "array", "items": map[string]any{"type": "integer"}, "description": "1-based pages, all when omitted"},
		}),
		Handler: func(args map[string]any) (ToolResult, error) {
			in, err := readArg(args, "inputPath")
			if err != nil {
				return ToolResult{}, err
			}
			if _, err := stringArg(args, "outputPath"); err != nil {
				return ToolResult{}, err
			}
			style := pageops.WatermarkStyle{Pages: intList(args, "pages")}
			style.Text, _ = args["text"].(string)
			style.FontSize, _ = args["fontSize"].(float64)
			style.Opacity, _ = args["opacity"].(float64)
			style.Rotation, _ = args["rotation"].(float64)
			if name, ok := args["position"].(string); ok {
				pos, known := pageops.ParsePosition(name)
				if !known {
					return ToolResult{}, fmt.Errorf("unknown position %q", name)
				}
				style.Position = pos
			}
			if under, _ := args["under"].(bool); under {
				style.Layer = draw.Under
			}

			var buf bytes.Buffer
			if err := pageops.Watermark(&buf, in, style); err != nil {
				return ToolResult{}, err
			}
			return output(args, "Watermark added", buf.Bytes())
		},
	}
}

func mergePDFsTool() Tool {
	return Tool{
		Name:        "merge_pdfs",
		Description: "Merge PDF files into one, in order.",
		InputSchema: schema([]string{"inputPaths", "outputPath"}, map[string]any{
			"inputPaths":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Paths of the PDFs to merge"},
			"outputPath":     prop("string", "Path for the merged PDF"),
			"honourRotation": prop("boolean", "Lay out rotated pages as a viewer shows them"),
		}),
		Handler: func(args map[string]any) (ToolResult, error) {
			raw, _ := args["inputPaths"].([]any)
			if len(raw) == 0 {
				return ToolResult{}, fmt.Errorf("missing 'inputPaths' argument")
			}
			if _, err := stringArg(args, "outputPath"); err != nil {
				return ToolResult{}, err
			}
			docs := make([][]byte, 0, len(raw))
			for _, p := range raw {
				path, ok := p.(string)
				if !ok {
					return ToolResult{}, fmt.Errorf("inputPaths must hold strings")
				}
				data, err := os.ReadFile(path)
				if err != nil {
					return ToolResult{}, fmt.Errorf("reading %s: %w", path, err)
				}
				docs = append(docs, data)
			}
			honour, _ := args["honourRotation"].(bool)

			var buf bytes.Buffer
			if err := pageops.Merge(&buf, honour, docs...); err != nil {
				return ToolResult{}, err
			}
			return output(args, fmt.Sprintf("Merged %d files", len(docs)), buf.Bytes())
		},
	}
}

func rotatePDFTool() Tool {
	return Tool{
		Name:        "rotate_pdf",
		Description: "Rotate pages of a PDF clockwise by a multiple of 90 degrees.",
		InputSchema: schema([]string{"inputPath", "outputPath", "angle"}, map[string]any{
			"inputPath":  prop("string", "Path to the input PDF"),
			"outputPath": prop("string", "Path for the output PDF"),
			"angle":      prop("integer", "Clockwise rotation: 90, 180 or 270"),
			"pages":      map[string]any{"type": "array", "items": map[string]any{"type": "integer"}, "description": "1-based pages, all when omitted"},
		}),
		Handler: func(args map[string]any) (ToolResult, error) {
			in, err := readArg(args, "inputPath")
			if err != nil {
				return ToolResult{}, err
			}
			if _, err := stringArg(args, "outputPath"); err != nil {
				return ToolResult{}, err
			}
			angle, _ := args["angle"].(float64)

			var buf bytes.Buffer
			if err := pageops.Rotate(&buf, in, int(angle), intList(args, "pages")...); err != nil {
				return ToolResult{}, err
			}
			return output(args, "Pages rotated", buf.Bytes())
		},
	}
}

func signaturesTool() Tool {
	return Tool{
		Name:        "signatures",
		Description: "List the digital signatures of a PDF and whether each covers the whole document.",
		InputSchema: schema([]string{"path"}, map[string]any{
			"path": prop("string", "Path to the PDF file"),
		}),
		Handler: func(args map[string]any) (ToolResult, error) {
			data, err := readArg(args, "path")
			if err != nil {
				return ToolResult{}, err
			}
			sigs, err := sign.Inspect(data)
			if err != nil {
				return ToolResult{}, err
			}
			out := make([]map[string]any, 0, len(sigs))
			for _, s := range sigs {
				out = append(out, map[string]any{
					"field":               s.Field,
					"reason":              s.Reason,
					"location":            s.Location,
					"signedAt":            s.SignedAt,
					"byteRange":           s.ByteRange,
					"coversWholeDocument": s.CoversWholeDocument,
				})
			}
			return jsonResult(map[string]any{"signatureCount": len(out), "signatures": out})
		},
	}
}

func pdfInfoTool() Tool {
	return Tool{
		Name:        "pdf_info",
		Description: "Get the page count, page sizes and structural validity of a PDF.",
		InputSchema: schema([]string{"path"}, map[string]any{
			"path": prop("string", "Path to the PDF file"),
		}),
		Handler: func(args map[string]any) (ToolResult, error) {
			data, err := readArg(args, "path")
			if err != nil {
				return ToolResult{}, err
			}
			info, err := pageInfo(data)
			if err != nil {
				return ToolResult{}, err
			}
			info["valid"] = true
			if err := pageops.Validate(data); err != nil {
				info["valid"] = false
				info["validationError"] = err.Error()
			}
			return jsonResult(info)
		},
	}
}
