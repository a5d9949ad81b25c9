package export

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/jung-kurt/gofpdf"

	"github.com/lvillar/docmerge/template"
)

// pdfExporter rasterizes the instance once, then places the raster as a
// single full-bleed image on one page of the requested named size and
// orientation. One artifact is one row is one page.
type pdfExporter struct{}

func (pdfExporter) Ext() string { return "pdf" }

func (pdfExporter) Export(inst *template.Template, s Settings) ([]byte, error) {
	img, err := Rasterize(inst, s.Scale())
	if err != nil {
		return nil, err
	}
	var raster bytes.Buffer
	if err := png.Encode(&raster, img); err != nil {
		return nil, fmt.Errorf("export: encoding page raster: %w", err)
	}

	pageW, pageH := PageSizeMM(s.PageSize, s.Orientation)
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "mm",
		Size:    gofpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	pdf.SetTitle(inst.Name, true)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("page", opts, &raster)
	pdf.ImageOptions("page", 0, 0, pageW, pageH, false, opts, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("export: writing PDF: %w", err)
	}
	return out.Bytes(), nil
}
