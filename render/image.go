package render

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"os"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/lvillar/pdfexport/config"
	"github.com/lvillar/pdfexport/draw"
	"github.com/lvillar/pdfexport/pdferr"
)

// svgScale is the rasterisation density of vector images relative to their
// placed size.
const svgScale = 2

// Image places the image in value, a file path, raw bytes or a reader, into
// the field rectangle. The image keeps its aspect ratio, is scaled to fit
// and is anchored at the bottom-left corner. JPEG, PNG and GIF data is
// embedded as is; BMP, TIFF, WebP and SVG are decoded first.
func (r *Renderer) Image(f draw.Field, value any, st config.Style) (draw.Bitmap, error) {
	const op = "render.Image"
	data, err := imageBytes(op, f.Name, value)
	if err != nil {
		return draw.Bitmap{}, err
	}
	bm := draw.Bitmap{Page: f.Page, Layer: draw.Over, Field: f.Name, Opacity: opacity(st.Opacity)}

	if isSVG(data) {
		icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.IgnoreErrorMode)
		if err != nil {
			return draw.Bitmap{}, renderErr(op, f.Name, err)
		}
		bm.Rect = fit(f.Rect, icon.ViewBox.W, icon.ViewBox.H)
		if bm.Rect.Width() <= 0 || bm.Rect.Height() <= 0 {
			return draw.Bitmap{}, pdferr.Newf(pdferr.Render, op, "svg has an empty view box").WithField(f.Name)
		}
		w, h := int(bm.Rect.Width()*svgScale+0.5), int(bm.Rect.Height()*svgScale+0.5)
		img := image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
		icon.SetTarget(0, 0, float64(img.Bounds().Dx()), float64(img.Bounds().Dy()))
		scanner := rasterx.NewScannerGV(img.Bounds().Dx(), img.Bounds().Dy(), img, img.Bounds())
		icon.Draw(rasterx.NewDasher(img.Bounds().Dx(), img.Bounds().Dy(), scanner), 1)
		bm.Image = img
		r.log.Debug().Str("field", f.Name).Int("width", w).Int("height", h).Msg("rasterised svg image")
		return bm, nil
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return draw.Bitmap{}, renderErr(op, f.Name, err)
	}
	bm.Rect = fit(f.Rect, float64(cfg.Width), float64(cfg.Height))
	switch format {
	case "jpeg":
		bm.Data, bm.Format = data, "jpg"
	case "png", "gif":
		bm.Data, bm.Format = data, format
	default:
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return draw.Bitmap{}, renderErr(op, f.Name, err)
		}
		bm.Image = img
	}
	return bm, nil
}

func imageBytes(op, field string, value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		data, err := os.ReadFile(v)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, pdferr.New(pdferr.ResourceNotFound, op, err).WithField(field)
		}
		if err != nil {
			return nil, pdferr.New(pdferr.IO, op, err).WithField(field)
		}
		return data, nil
	case io.Reader:
		data, err := io.ReadAll(v)
		if err != nil {
			return nil, pdferr.New(pdferr.IO, op, err).WithField(field)
		}
		return data, nil
	}
	return nil, typeMismatch(op, field, value, "a file path or image bytes")
}

// isSVG sniffs for an svg root element near the start of data.
func isSVG(data []byte) bool {
	head := data[:min(len(data), 1024)]
	return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}

// fit scales a w x h image into rect, anchored at its bottom-left corner.
func fit(rect draw.Rect, w, h float64) draw.Rect {
	if w <= 0 || h <= 0 {
		return draw.Rect{Left: rect.Left, Bottom: rect.Bottom, Right: rect.Left, Top: rect.Bottom}
	}
	scale := min(rect.Width()/w, rect.Height()/h)
	return draw.Rect{
		Left:   rect.Left,
		Bottom: rect.Bottom,
		Right:  rect.Left + w*scale,
		Top:    rect.Bottom + h*scale,
	}
}
