package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/code39"
	"github.com/boombuler/barcode/ean"
	"github.com/boombuler/barcode/qr"
	"github.com/ruudk/golang-pdf417"
)

// EncodeQR encodes payload as a QR code raster of the given pixel size,
// returned as PNG bytes. Margin is the quiet zone in pixels, drawn white.
func EncodeQR(payload string, size, margin int) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("render: empty QR payload")
	}
	if size < 21 {
		size = 21
	}
	code, err := qr.Encode(payload, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("render: encoding QR: %w", err)
	}
	inner := size - 2*margin
	if inner < 21 {
		inner = size
		margin = 0
	}
	scaled, err := barcode.Scale(code, inner, inner)
	if err != nil {
		return nil, fmt.Errorf("render: scaling QR: %w", err)
	}
	return encodePNG(scaled, margin)
}

// EncodeBarcode encodes payload using the named symbology at the given
// pixel dimensions, returned as PNG bytes. Unknown symbologies fall back
// to CODE128, the default.
func EncodeBarcode(payload, symbology string, width, height int) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("render: empty barcode payload")
	}
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("render: barcode size %dx%d", width, height)
	}

	var code barcode.Barcode
	var err error
	switch symbology {
	case "ean13", "ean":
		code, err = ean.Encode(payload)
	case "code39":
		code, err = code39.Encode(payload, true, true)
	case "pdf417":
		code = pdf417.Encode(payload, 4, 2)
	case "code128", "":
		code, err = code128.Encode(payload)
	default:
		code, err = code128.Encode(payload)
	}
	if err != nil {
		return nil, fmt.Errorf("render: encoding %s barcode: %w", symbologyName(symbology), err)
	}
	scaled, err := barcode.Scale(code, width, height)
	if err != nil {
		return nil, fmt.Errorf("render: scaling barcode: %w", err)
	}
	return encodePNG(scaled, 0)
}

func symbologyName(s string) string {
	if s == "" {
		return "code128"
	}
	return s
}

// encodePNG renders img to PNG bytes, optionally surrounded by a white
// quiet zone of the given width.
func encodePNG(img image.Image, margin int) ([]byte, error) {
	out := img
	if margin > 0 {
		b := img.Bounds()
		padded := image.NewRGBA(image.Rect(0, 0, b.Dx()+2*margin, b.Dy()+2*margin))
		for i := range padded.Pix {
			padded.Pix[i] = 0xff
		}
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				padded.Set(x-b.Min.X+margin, y-b.Min.Y+margin, img.At(x, y))
			}
		}
		out = padded
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("render: encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
