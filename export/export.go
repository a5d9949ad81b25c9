// Package export serializes a resolved template instance to a deliverable
// artifact: a raster image (PNG or JPEG), a single-page PDF, or an
// editable DOCX document.
package export

import (
	"fmt"

	"github.com/lvillar/docmerge/template"
)

// ReferenceDPI is the resolution at which one layout unit equals one
// pixel. Raster output is scaled by DPI/ReferenceDPI.
const ReferenceDPI = 96

// Settings carries the per-run page and quality configuration.
type Settings struct {
	PageSize    string  // A4 (default), Letter, Legal, A3, A5
	Orientation string  // portrait (default), landscape
	DPI         float64 // raster density; 0 means ReferenceDPI
}

// Scale returns the raster multiplier implied by the configured DPI.
func (s Settings) Scale() float64 {
	if s.DPI <= 0 {
		return 1
	}
	return s.DPI / ReferenceDPI
}

// pageSizeMM maps the supported named page sizes to their portrait
// dimensions in millimeters.
var pageSizeMM = map[string][2]float64{
	"A4":     {210, 297},
	"Letter": {215.9, 279.4},
	"Legal":  {215.9, 355.6},
	"A3":     {297, 420},
	"A5":     {148, 210},
}

// PageSizeMM returns the page dimensions in millimeters for the given
// named size and orientation. Unknown names default to A4.
func PageSizeMM(name, orientation string) (w, h float64) {
	dims, ok := pageSizeMM[name]
	if !ok {
		dims = pageSizeMM["A4"]
	}
	w, h = dims[0], dims[1]
	if orientation == "landscape" {
		w, h = h, w
	}
	return w, h
}

// Exporter serializes resolved instances into one artifact format.
// Implementations are stateless and safe for reuse across rows.
type Exporter interface {
	// Export renders inst into the format's binary artifact.
	Export(inst *template.Template, s Settings) ([]byte, error)

	// Ext is the artifact's file extension without the dot.
	Ext() string
}

// New returns the exporter for the named output format: "png", "jpeg"
// (or "jpg"), "pdf", or "docx".
func New(formatName string) (Exporter, error) {
	switch formatName {
	case "png":
		return rasterExporter{ext: "png"}, nil
	case "jpeg", "jpg":
		return rasterExporter{ext: "jpg"}, nil
	case "pdf":
		return pdfExporter{}, nil
	case "docx":
		return docxExporter{}, nil
	default:
		return nil, fmt.Errorf("export: unknown output format %q", formatName)
	}
}
