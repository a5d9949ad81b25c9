// Package template defines the visual document template model used by the
// mail-merge pipeline: an ordered list of positioned elements, a subset of
// which are placeholders to be filled from tabular data.
//
// Templates are plain data. They can be decoded from a JSON document that is
// easy for both humans and design tools to produce:
//
//	{
//	  "name": "Certificate",
//	  "width": 1123, "height": 794,
//	  "elements": [
//	    {"kind": "text", "content": "Awarded to {{Name}}", "frame": {"x": 100, "y": 300, "w": 900, "h": 60}},
//	    {"kind": "qrcode", "placeholder": true, "placeholderName": "VerifyURL", "frame": {"x": 980, "y": 640, "w": 120, "h": 120}}
//	  ]
//	}
package template

import (
	"encoding/json"
	"fmt"
	"io"
)

// Kind identifies the closed set of visual element variants.
type Kind string

const (
	KindText    Kind = "text"
	KindImage   Kind = "image"
	KindQRCode  Kind = "qrcode"
	KindBarcode Kind = "barcode"
	KindShape   Kind = "shape"
)

// Rect is an element's position and size in layout units.
// Layout units are pixels at the 96 DPI reference resolution.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// ElementBase carries the fields common to every element variant.
type ElementBase struct {
	ID       string  `json:"id,omitempty"`
	Frame    Rect    `json:"frame"`
	Rotation float64 `json:"rotation,omitempty"`
}

// Element is a visual element of a template. The concrete type is one of
// *TextElement, *ImageElement, *QRCodeElement, *BarcodeElement or
// *ShapeElement; callers dispatch with a type switch.
type Element interface {
	Kind() Kind
	Base() *ElementBase

	// CloneElement returns a deep copy sharing no mutable state
	// with the receiver.
	CloneElement() Element
}

// Font specifies a font face for text elements.
type Font struct {
	Family    string  `json:"family,omitempty"` // informational; rendering uses the bundled Go fonts
	Size      float64 `json:"size,omitempty"`   // in layout units (default 16)
	Bold      bool    `json:"bold,omitempty"`
	Italic    bool    `json:"italic,omitempty"`
	Underline bool    `json:"underline,omitempty"`
}

// TextElement is a block of text. Its content may contain {{name}}
// placeholder tokens that are substituted per data row.
type TextElement struct {
	ElementBase
	Content string `json:"content"`
	Font    Font   `json:"font,omitempty"`
	Color   string `json:"color,omitempty"` // "#rrggbb" (default black)
	Align   string `json:"align,omitempty"` // left, center, right (default left)
	Format  string `json:"format,omitempty"`
}

// ImageElement is a raster image. When Placeholder is set, the mapped cell
// value is treated as an image URL fetched per row; otherwise Src is the
// static image source.
type ImageElement struct {
	ElementBase
	Src             string `json:"src,omitempty"`
	Placeholder     bool   `json:"placeholder,omitempty"`
	PlaceholderName string `json:"placeholderName,omitempty"`

	// Data holds the fetched or decoded image bytes of a resolved
	// instance. It is never populated on a stored template.
	Data []byte `json:"-"`
}

// QRCodeElement renders its payload (static or mapped per row) as a QR code
// raster filling the element frame.
type QRCodeElement struct {
	ElementBase
	Payload         string `json:"payload,omitempty"`
	Margin          int    `json:"margin,omitempty"` // quiet zone in layout units
	Placeholder     bool   `json:"placeholder,omitempty"`
	PlaceholderName string `json:"placeholderName,omitempty"`

	Data []byte `json:"-"`
}

// BarcodeElement renders its payload as a 1D (or PDF417) barcode.
type BarcodeElement struct {
	ElementBase
	Payload         string `json:"payload,omitempty"`
	Symbology       string `json:"symbology,omitempty"` // code128 (default), ean13, code39, pdf417
	ShowText        bool   `json:"showText,omitempty"`
	Placeholder     bool   `json:"placeholder,omitempty"`
	PlaceholderName string `json:"placeholderName,omitempty"`

	Data []byte `json:"-"`
}

// ShapeElement is decorative geometry (rectangle or line). Shapes never
// carry placeholders and pass through instantiation unchanged.
type ShapeElement struct {
	ElementBase
	Shape       string  `json:"shape,omitempty"` // rect (default), line
	Fill        string  `json:"fill,omitempty"`  // "#rrggbb"; empty means no fill
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
}

func (e *TextElement) Kind() Kind    { return KindText }
func (e *ImageElement) Kind() Kind   { return KindImage }
func (e *QRCodeElement) Kind() Kind  { return KindQRCode }
func (e *BarcodeElement) Kind() Kind { return KindBarcode }
func (e *ShapeElement) Kind() Kind   { return KindShape }

func (e *TextElement) Base() *ElementBase    { return &e.ElementBase }
func (e *ImageElement) Base() *ElementBase   { return &e.ElementBase }
func (e *QRCodeElement) Base() *ElementBase  { return &e.ElementBase }
func (e *BarcodeElement) Base() *ElementBase { return &e.ElementBase }
func (e *ShapeElement) Base() *ElementBase   { return &e.ElementBase }

// Template is an ordered list of visual elements on a fixed-size canvas.
// Width and Height are in layout units.
type Template struct {
	Name       string    `json:"name,omitempty"`
	Width      float64   `json:"width"`
	Height     float64   `json:"height"`
	Background string    `json:"background,omitempty"` // "#rrggbb" (default white)
	Elements   []Element `json:"elements"`
}

// elementEnvelope is the JSON wire form: the concrete variant's fields plus
// a "kind" discriminator.
type elementEnvelope struct {
	Kind Kind `json:"kind"`
}

// UnmarshalJSON decodes the element list, dispatching each entry on its
// "kind" field. Unknown kinds are rejected.
func (t *Template) UnmarshalJSON(data []byte) error {
	type alias struct {
		Name       string            `json:"name"`
		Width      float64           `json:"width"`
		Height     float64           `json:"height"`
		Background string            `json:"background"`
		Elements   []json.RawMessage `json:"elements"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	t.Name = a.Name
	t.Width = a.Width
	t.Height = a.Height
	t.Background = a.Background
	t.Elements = make([]Element, 0, len(a.Elements))
	for i, raw := range a.Elements {
		el, err := unmarshalElement(raw)
		if err != nil {
			return fmt.Errorf("template: element %d: %w", i, err)
		}
		t.Elements = append(t.Elements, el)
	}
	return nil
}

func unmarshalElement(raw json.RawMessage) (Element, error) {
	var env elementEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	var el Element
	switch env.Kind {
	case KindText:
		el = &TextElement{}
	case KindImage:
		el = &ImageElement{}
	case KindQRCode:
		el = &QRCodeElement{}
	case KindBarcode:
		el = &BarcodeElement{}
	case KindShape:
		el = &ShapeElement{}
	default:
		return nil, fmt.Errorf("unknown element kind %q", env.Kind)
	}
	if err := json.Unmarshal(raw, el); err != nil {
		return nil, err
	}
	return el, nil
}

// MarshalJSON encodes the template with a "kind" discriminator on each
// element, so Decode(Encode(t)) round-trips.
func (t *Template) MarshalJSON() ([]byte, error) {
	elems := make([]json.RawMessage, 0, len(t.Elements))
	for _, el := range t.Elements {
		body, err := json.Marshal(el)
		if err != nil {
			return nil, err
		}
		// Splice the kind field into the variant's own object.
		tagged := append([]byte(`{"kind":"`+string(el.Kind())+`",`), body[1:]...)
		elems = append(elems, tagged)
	}
	type alias struct {
		Name       string            `json:"name,omitempty"`
		Width      float64           `json:"width"`
		Height     float64           `json:"height"`
		Background string            `json:"background,omitempty"`
		Elements   []json.RawMessage `json:"elements"`
	}
	return json.Marshal(alias{
		Name:       t.Name,
		Width:      t.Width,
		Height:     t.Height,
		Background: t.Background,
		Elements:   elems,
	})
}

// Decode reads a JSON template from r.
func Decode(r io.Reader) (*Template, error) {
	var t Template
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("template: decoding: %w", err)
	}
	return &t, nil
}
