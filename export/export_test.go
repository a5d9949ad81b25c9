package export

import (
	"archive/zip"
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/lvillar/docmerge/template"
)

func testInstance() *template.Template {
	return &template.Template{
		Name:   "Card",
		Width:  400,
		Height: 200,
		Elements: []template.Element{
			&template.TextElement{
				ElementBase: template.ElementBase{Frame: template.Rect{X: 20, Y: 20, W: 360, H: 40}},
				Content:     "Hello Ada",
				Font:        template.Font{Size: 20, Bold: true},
				Align:       "center",
			},
			&template.ShapeElement{
				ElementBase: template.ElementBase{Frame: template.Rect{X: 0, Y: 180, W: 400, H: 4}},
				Shape:       "line",
				Stroke:      "#808080",
			},
		},
	}
}

func TestNewExporter(t *testing.T) {
	for _, name := range []string{"png", "jpeg", "jpg", "pdf", "docx"} {
		if _, err := New(name); err != nil {
			t.Fatalf("New(%q) failed: %v", name, err)
		}
	}
	if _, err := New("svg"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestExporterExtensions(t *testing.T) {
	cases := map[string]string{"png": "png", "jpeg": "jpg", "pdf": "pdf", "docx": "docx"}
	for name, ext := range cases {
		e, err := New(name)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", name, err)
		}
		if e.Ext() != ext {
			t.Fatalf("New(%q).Ext() = %q; want %q", name, e.Ext(), ext)
		}
	}
}

func TestRasterExportPNG(t *testing.T) {
	e, _ := New("png")
	data, err := e.Export(testInstance(), Settings{})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 200 {
		t.Fatalf("raster size = %dx%d; want 400x200 at reference DPI", b.Dx(), b.Dy())
	}
}

func TestRasterExportScalesWithDPI(t *testing.T) {
	e, _ := New("png")
	data, err := e.Export(testInstance(), Settings{DPI: 192})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 800 || b.Dy() != 400 {
		t.Fatalf("raster size = %dx%d; want 800x400 at 192 DPI", b.Dx(), b.Dy())
	}
}

func TestJPEGExport(t *testing.T) {
	e, _ := New("jpeg")
	data, err := e.Export(testInstance(), Settings{})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	// JPEG SOI marker.
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Fatal("output does not start with a JPEG marker")
	}
}

func TestPDFExport(t *testing.T) {
	e, _ := New("pdf")
	data, err := e.Export(testInstance(), Settings{PageSize: "A4", Orientation: "landscape"})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("output does not start with %PDF header")
	}
}

func TestDocxExport(t *testing.T) {
	e, _ := New("docx")
	data, err := e.Export(testInstance(), Settings{})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	doc := readPart(t, data, "word/document.xml")
	if !strings.Contains(doc, "Hello Ada") {
		t.Fatal("document.xml missing text content")
	}
	if !strings.Contains(doc, "<w:b/>") {
		t.Fatal("bold run property not preserved")
	}
	if !strings.Contains(doc, `<w:jc w:val="center"/>`) {
		t.Fatal("alignment not preserved")
	}
}

func TestDocxExportEmptyInstance(t *testing.T) {
	e, _ := New("docx")
	inst := &template.Template{Width: 100, Height: 100}
	data, err := e.Export(inst, Settings{})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	doc := readPart(t, data, "word/document.xml")
	if !strings.Contains(doc, "<w:p>") {
		t.Fatal("empty instance must still emit a placeholder paragraph")
	}
}

func TestDocxExportEmbedsImages(t *testing.T) {
	qrData := encodeTestPNG(t)
	inst := &template.Template{
		Width: 300, Height: 300,
		Elements: []template.Element{
			&template.QRCodeElement{
				ElementBase: template.ElementBase{Frame: template.Rect{X: 10, Y: 10, W: 100, H: 100}},
				Data:        qrData,
			},
		},
	}
	e, _ := New("docx")
	data, err := e.Export(inst, Settings{})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if got := readPart(t, data, "word/media/image1.png"); got == "" {
		t.Fatal("embedded image part is empty")
	}
	rels := readPart(t, data, "word/_rels/document.xml.rels")
	if !strings.Contains(rels, `Id="rId1"`) || !strings.Contains(rels, "media/image1.png") {
		t.Fatalf("image relationship missing or misnumbered: %s", rels)
	}
	doc := readPart(t, data, "word/document.xml")
	if !strings.Contains(doc, `r:embed="rId1"`) {
		t.Fatal("drawing does not reference the image relationship")
	}
}

func TestDocxLineGrouping(t *testing.T) {
	inst := &template.Template{
		Width: 400, Height: 200,
		Elements: []template.Element{
			// Same visual line: within 20 layout units vertically,
			// out of order horizontally.
			&template.TextElement{
				ElementBase: template.ElementBase{Frame: template.Rect{X: 200, Y: 52, W: 100, H: 20}},
				Content:     "right",
			},
			&template.TextElement{
				ElementBase: template.ElementBase{Frame: template.Rect{X: 10, Y: 50, W: 100, H: 20}},
				Content:     "left",
			},
			// A separate line further down.
			&template.TextElement{
				ElementBase: template.ElementBase{Frame: template.Rect{X: 10, Y: 120, W: 100, H: 20}},
				Content:     "below",
			},
		},
	}
	lines := layoutLines(inst)
	if len(lines) != 2 {
		t.Fatalf("grouped into %d lines; want 2", len(lines))
	}
	if got := lines[0][0].(*template.TextElement).Content; got != "left" {
		t.Fatalf("first element of line 1 = %q; want left-to-right order", got)
	}
	if got := lines[1][0].(*template.TextElement).Content; got != "below" {
		t.Fatalf("line 2 = %q", got)
	}
}

func TestPageSizeMM(t *testing.T) {
	w, h := PageSizeMM("A4", "portrait")
	if w != 210 || h != 297 {
		t.Fatalf("A4 portrait = %gx%g", w, h)
	}
	w, h = PageSizeMM("Letter", "landscape")
	if w != 279.4 || h != 215.9 {
		t.Fatalf("Letter landscape = %gx%g", w, h)
	}
	w, h = PageSizeMM("unknown", "portrait")
	if w != 210 || h != 297 {
		t.Fatalf("unknown size must default to A4, got %gx%g", w, h)
	}
}

func readPart(t *testing.T, data []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("artifact is not a zip: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening %s: %v", name, err)
		}
		defer rc.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		return buf.String()
	}
	t.Fatalf("%s missing from package", name)
	return ""
}
