package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/lvillar/docmerge/template"
)

// lineTolerance groups elements whose vertical distance is within this
// many layout units onto the same output line.
const lineTolerance = 20

// emuPerPixel converts 96 DPI pixels to English Metric Units.
const emuPerPixel = 9525

// maxImageWidthEMU caps embedded images at roughly the content width of a
// page with one-inch margins.
const maxImageWidthEMU = 5943600

// docxExporter emits an editable WordprocessingML document. Elements are
// walked top-to-bottom, left-to-right; text becomes styled runs and
// images become embedded, proportionally downscaled pictures.
type docxExporter struct{}

func (docxExporter) Ext() string { return "docx" }

// docxMedia is one embedded image part.
type docxMedia struct {
	name        string // part name under word/media/
	relID       string
	contentType string
	data        []byte
}

func (docxExporter) Export(inst *template.Template, _ Settings) ([]byte, error) {
	lines := layoutLines(inst)

	var body strings.Builder
	var media []docxMedia

	for _, line := range lines {
		writeParagraph(&body, line, &media)
	}
	if len(lines) == 0 {
		// Never emit an empty document.
		body.WriteString(`<w:p><w:r><w:t xml:space="preserve">(empty document)</w:t></w:r></w:p>`)
	}

	return packDocx(body.String(), media)
}

// layoutLines orders the instance's emittable elements into visual lines:
// sorted by vertical position, elements within lineTolerance of a line's
// anchor share that line, and each line is ordered left-to-right.
// Elements that contribute no visible content are skipped.
func layoutLines(inst *template.Template) [][]template.Element {
	var emittable []template.Element
	for _, el := range inst.Elements {
		switch e := el.(type) {
		case *template.TextElement:
			if strings.TrimSpace(e.Content) != "" {
				emittable = append(emittable, e)
			}
		case *template.ImageElement:
			if len(e.Data) > 0 {
				emittable = append(emittable, e)
			}
		case *template.QRCodeElement:
			if len(e.Data) > 0 {
				emittable = append(emittable, e)
			}
		case *template.BarcodeElement:
			if len(e.Data) > 0 {
				emittable = append(emittable, e)
			}
		}
	}
	sort.SliceStable(emittable, func(i, j int) bool {
		return emittable[i].Base().Frame.Y < emittable[j].Base().Frame.Y
	})

	var lines [][]template.Element
	for _, el := range emittable {
		y := el.Base().Frame.Y
		if n := len(lines); n > 0 && y-lines[n-1][0].Base().Frame.Y <= lineTolerance {
			lines[n-1] = append(lines[n-1], el)
			continue
		}
		lines = append(lines, []template.Element{el})
	}
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool {
			return line[i].Base().Frame.X < line[j].Base().Frame.X
		})
	}
	return lines
}

func writeParagraph(body *strings.Builder, line []template.Element, media *[]docxMedia) {
	align := ""
	for _, el := range line {
		if t, ok := el.(*template.TextElement); ok {
			switch t.Align {
			case "center", "right":
				align = t.Align
			}
			break
		}
	}

	body.WriteString("<w:p>")
	if align != "" {
		fmt.Fprintf(body, `<w:pPr><w:jc w:val="%s"/></w:pPr>`, align)
	}
	for _, el := range line {
		switch e := el.(type) {
		case *template.TextElement:
			writeTextRun(body, e)
		case *template.ImageElement:
			writeImageRun(body, e.Data, e.Frame, media)
		case *template.QRCodeElement:
			writeImageRun(body, e.Data, e.Frame, media)
		case *template.BarcodeElement:
			writeImageRun(body, e.Data, e.Frame, media)
		}
	}
	body.WriteString("</w:p>")
}

func writeTextRun(body *strings.Builder, e *template.TextElement) {
	var props strings.Builder
	if e.Font.Bold {
		props.WriteString("<w:b/>")
	}
	if e.Font.Italic {
		props.WriteString("<w:i/>")
	}
	if e.Font.Underline {
		props.WriteString(`<w:u w:val="single"/>`)
	}
	if c := strings.TrimPrefix(e.Color, "#"); c != "" && c != e.Color {
		fmt.Fprintf(&props, `<w:color w:val="%s"/>`, strings.ToUpper(escapeXML(c)))
	}
	if e.Font.Size > 0 {
		// Half-points; layout units are 96 DPI pixels (1px = 0.75pt).
		fmt.Fprintf(&props, `<w:sz w:val="%d"/>`, int(e.Font.Size*1.5+0.5))
	}

	for i, segment := range strings.Split(e.Content, "\n") {
		if i > 0 {
			body.WriteString("<w:r><w:br/></w:r>")
		}
		body.WriteString("<w:r>")
		if props.Len() > 0 {
			body.WriteString("<w:rPr>" + props.String() + "</w:rPr>")
		}
		fmt.Fprintf(body, `<w:t xml:space="preserve">%s</w:t>`, escapeXML(segment))
		body.WriteString("</w:r>")
	}
}

func writeImageRun(body *strings.Builder, data []byte, frame template.Rect, media *[]docxMedia) {
	cfg, kind, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return
	}
	contentType := "image/png"
	ext := "png"
	if kind == "jpeg" {
		contentType = "image/jpeg"
		ext = "jpeg"
	}

	n := len(*media) + 1
	m := docxMedia{
		name:        fmt.Sprintf("image%d.%s", n, ext),
		relID:       fmt.Sprintf("rId%d", n), // scoped to document.xml.rels
		contentType: contentType,
		data:        data,
	}
	*media = append(*media, m)

	// Prefer the element's frame dimensions; fall back to the image's
	// natural size. Downscale proportionally to the content width.
	wPx, hPx := frame.W, frame.H
	if wPx <= 0 || hPx <= 0 {
		wPx, hPx = float64(cfg.Width), float64(cfg.Height)
	}
	cx := int64(wPx * emuPerPixel)
	cy := int64(hPx * emuPerPixel)
	if cx > maxImageWidthEMU {
		cy = cy * maxImageWidthEMU / cx
		cx = maxImageWidthEMU
	}

	fmt.Fprintf(body,
		`<w:r><w:drawing><wp:inline distT="0" distB="0" distL="0" distR="0">`+
			`<wp:extent cx="%d" cy="%d"/>`+
			`<wp:docPr id="%d" name="%s"/>`+
			`<a:graphic xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">`+
			`<a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
			`<pic:pic xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
			`<pic:nvPicPr><pic:cNvPr id="%d" name="%s"/><pic:cNvPicPr/></pic:nvPicPr>`+
			`<pic:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
			`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm>`+
			`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`+
			`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r>`,
		cx, cy, n, m.name, n, m.name, m.relID, cx, cy)
}

// packDocx assembles the minimal OOXML package around the document body.
func packDocx(body string, media []docxMedia) ([]byte, error) {
	documentXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"` +
		` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"` +
		` xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing">` +
		`<w:body>` + body + `<w:sectPr/></w:body></w:document>`

	var rels strings.Builder
	rels.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for _, m := range media {
		fmt.Fprintf(&rels,
			`<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/%s"/>`,
			m.relID, m.name)
	}
	rels.WriteString(`</Relationships>`)

	contentTypes := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Default Extension="png" ContentType="image/png"/>` +
		`<Default Extension="jpeg" ContentType="image/jpeg"/>` +
		`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
		`</Types>`

	rootRels := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
		`</Relationships>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(contentTypes)},
		{"_rels/.rels", []byte(rootRels)},
		{"word/document.xml", []byte(documentXML)},
		{"word/_rels/document.xml.rels", []byte(rels.String())},
	}
	for _, m := range media {
		parts = append(parts, struct {
			name string
			data []byte
		}{"word/media/" + m.name, m.data})
	}
	for _, p := range parts {
		f, err := zw.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("export: creating %s: %w", p.name, err)
		}
		if _, err := f.Write(p.data); err != nil {
			return nil, fmt.Errorf("export: writing %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("export: closing docx package: %w", err)
	}
	return buf.Bytes(), nil
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}
