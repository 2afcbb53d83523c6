package reader_test

import (
	"bytes"
	"compress/zlib"
	"regexp"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/pdfexport/internal/formpdf"
	"github.com/lvillar/pdfexport/reader"
)

func sampleTemplate(objectStreams bool) formpdf.Template {
	return formpdf.Template{
		Pages:         2,
		ObjectStreams: objectStreams,
		Fields: []formpdf.Field{
			{Name: "name", Kind: formpdf.Text, Rect: formpdf.Rect{50, 700, 250, 720}, Value: `a(b)c\d`, FontSize: 11},
			{Name: "notes", Kind: formpdf.Text, Page: 2, Rect: formpdf.Rect{50, 500, 300, 600}, Multiline: true},
			{Name: "agree", Kind: formpdf.Checkbox, Rect: formpdf.Rect{50, 650, 62, 662}, OnState: "Si", Value: "Si"},
			{Name: "color", Kind: formpdf.Radio, Value: "G", Buttons: []formpdf.RadioButton{
				{OnState: "R", Rect: formpdf.Rect{50, 600, 60, 610}},
				{OnState: "G", Rect: formpdf.Rect{70, 600, 80, 610}},
				{OnState: "B", Page: 2, Rect: formpdf.Rect{90, 600, 100, 610}},
			}},
			{Name: "country", Kind: formpdf.Choice, Rect: formpdf.Rect{300, 700, 400, 715}, Options: []string{"ES", "FR"}, Value: "FR"},
		},
	}
}

func parse(t *testing.T, data []byte) *reader.Document {
	t.Helper()
	doc, err := reader.Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestFormFields(t *testing.T) {
	for _, packed := range []bool{false, true} {
		doc := parse(t, formpdf.Build(sampleTemplate(packed)))
		require.Equal(t, 2, doc.NumPages())
		assert.Equal(t, "1.7", doc.Version)

		fields, err := doc.Fields()
		require.NoError(t, err)
		require.Len(t, fields, 5)
		byName := map[string]*reader.Field{}
		for _, f := range fields {
			byName[f.Name] = f
			t.Logf("packed=%v field %s type=%s flags=%d widgets=%d", packed, f.Name, f.Type, f.Flags, len(f.Widgets))
		}

		name := byName["name"]
		require.NotNil(t, name)
		assert.Equal(t, reader.Name("Tx"), name.Type)
		assert.Equal(t, `a(b)c\d`, name.Value)
		assert.Equal(t, 11.0, name.FontSize())
		require.Len(t, name.Widgets, 1)
		assert.Equal(t, 1, name.Widgets[0].Page)
		assert.Equal(t, reader.Rectangle{LLX: 50, LLY: 700, URX: 250, URY: 720}, name.Widgets[0].Rect)

		notes := byName["notes"]
		assert.True(t, notes.Has(reader.FlagMultiline))
		assert.Equal(t, 2, notes.Widgets[0].Page)
		assert.Zero(t, notes.FontSize())

		agree := byName["agree"]
		assert.Equal(t, reader.Name("Btn"), agree.Type)
		assert.Equal(t, "Si", agree.Value)
		assert.Equal(t, "Si", agree.Widgets[0].OnState)

		color := byName["color"]
		assert.True(t, color.Has(reader.FlagRadio))
		assert.Equal(t, "G", color.Value)
		require.Len(t, color.Widgets, 3)
		assert.Equal(t, []int{1, 1, 2}, []int{color.Widgets[0].Page, color.Widgets[1].Page, color.Widgets[2].Page})
		assert.Equal(t, "B", color.Widgets[2].OnState)
		assert.Equal(t, "G", color.Widgets[1].State)

		country := byName["country"]
		assert.Equal(t, []string{"ES", "FR"}, country.Options)
		assert.True(t, country.Has(reader.FlagCombo))

		_, ok := doc.Field("missing")
		assert.False(t, ok)
	}
}

func TestGeneratedDocument(t *testing.T) {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	for _, s := range []string{"Hello", "World", "Again"} {
		pdf.AddPage()
		pdf.Text(72, 72, s)
	}
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))

	doc := parse(t, buf.Bytes())
	assert.Equal(t, 3, doc.NumPages())
	fields, err := doc.Fields()
	require.NoError(t, err)
	assert.Empty(t, fields)

	p, err := doc.Page(2)
	require.NoError(t, err)
	assert.InDelta(t, 595.28, p.MediaBox.Width(), 0.01)
	assert.InDelta(t, 841.89, p.MediaBox.Height(), 0.01)
	content, err := p.Content()
	require.NoError(t, err)
	assert.Contains(t, string(content), "(World) Tj")

	_, err = doc.Page(4)
	assert.Error(t, err)

	n := 0
	for i, pg := range doc.Pages() {
		assert.Equal(t, i, pg.Number)
		n++
	}
	assert.Equal(t, 3, n)
}

func TestEncryptedDocumentRejected(t *testing.T) {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetProtection(gofpdf.CnProtectPrint, "user", "owner")
	pdf.AddPage()
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))

	_, err := reader.Parse(buf.Bytes())
	assert.ErrorIs(t, err, reader.ErrEncrypted)
}

func TestDamagedCrossReference(t *testing.T) {
	data := formpdf.Build(sampleTemplate(false))
	broken := regexp.MustCompile(`startxref\s+\d+`).ReplaceAll(data, []byte("startxref\n9"))

	doc := parse(t, broken)
	assert.Equal(t, 2, doc.NumPages())
	f, ok := doc.Field("country")
	require.True(t, ok)
	assert.Equal(t, "FR", f.Value)
}

func TestNotAPDF(t *testing.T) {
	_, err := reader.Parse([]byte("hello"))
	assert.Error(t, err)
}

func TestPNGPredictor(t *testing.T) {
	rows := []byte{
		2, 1, 2, 3, // up
		2, 1, 1, 1, // up
		1, 5, 1, 1, // sub
	}
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	_, _ = zw.Write(rows)
	require.NoError(t, zw.Close())

	doc := parse(t, formpdf.Build(formpdf.Template{}))
	out, err := doc.Decode(reader.Stream{
		Dict: reader.Dict{
			"Filter":      reader.Name("FlateDecode"),
			"DecodeParms": reader.Dict{"Predictor": reader.Integer(12), "Columns": reader.Integer(3)},
		},
		Data: z.Bytes(),
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 2, 3, 4, 5, 6, 7}, out)

	hex, err := doc.Decode(reader.Stream{
		Dict: reader.Dict{"Filter": reader.Array{reader.Name("ASCIIHexDecode")}},
		Data: []byte("48 65 6c6c 6f>"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello", string(hex))
}
