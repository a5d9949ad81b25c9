package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/lvillar/docmerge/template"

	_ "image/gif"
)

// jpegQuality is fixed; PNG output is lossless.
const jpegQuality = 90

const defaultFontSize = 16

var (
	fontsOnce sync.Once
	fontsErr  error
	fontSet   struct {
		regular, bold, italic, boldItalic *sfnt.Font
	}
)

func loadFonts() error {
	fontsOnce.Do(func() {
		parse := func(ttf []byte) *sfnt.Font {
			if fontsErr != nil {
				return nil
			}
			f, err := opentype.Parse(ttf)
			if err != nil {
				fontsErr = fmt.Errorf("export: parsing bundled font: %w", err)
				return nil
			}
			return f
		}
		fontSet.regular = parse(goregular.TTF)
		fontSet.bold = parse(gobold.TTF)
		fontSet.italic = parse(goitalic.TTF)
		fontSet.boldItalic = parse(gobolditalic.TTF)
	})
	return fontsErr
}

func faceFor(f template.Font, sizePx float64) (font.Face, error) {
	if err := loadFonts(); err != nil {
		return nil, err
	}
	src := fontSet.regular
	switch {
	case f.Bold && f.Italic:
		src = fontSet.boldItalic
	case f.Bold:
		src = fontSet.bold
	case f.Italic:
		src = fontSet.italic
	}
	// DPI 72 makes the face size a pixel size on our canvas.
	return opentype.NewFace(src, &opentype.FaceOptions{
		Size:    sizePx,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

type rasterExporter struct {
	ext string
}

func (r rasterExporter) Ext() string { return r.ext }

func (r rasterExporter) Export(inst *template.Template, s Settings) ([]byte, error) {
	img, err := Rasterize(inst, s.Scale())
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if r.ext == "jpg" {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality})
	} else {
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, fmt.Errorf("export: encoding %s: %w", r.ext, err)
	}
	return buf.Bytes(), nil
}

// Rasterize draws a resolved instance onto a pixel canvas at the given
// scale (1.0 = one layout unit per pixel). Elements are painted in
// template order, so later elements overlap earlier ones.
func Rasterize(inst *template.Template, scale float64) (*image.RGBA, error) {
	if scale <= 0 {
		scale = 1
	}
	w := int(inst.Width*scale + 0.5)
	h := int(inst.Height*scale + 0.5)
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("export: template canvas %gx%g is empty", inst.Width, inst.Height)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	fillRect(canvas, canvas.Bounds(), parseHexColor(inst.Background, color.RGBA{255, 255, 255, 255}))

	for _, el := range inst.Elements {
		frame := scaleRect(el.Base().Frame, scale)
		switch e := el.(type) {
		case *template.ShapeElement:
			drawShape(canvas, e, frame, scale)
		case *template.TextElement:
			if err := drawText(canvas, e, frame, scale); err != nil {
				return nil, err
			}
		case *template.ImageElement:
			drawRasterData(canvas, e.Data, frame, true)
		case *template.QRCodeElement:
			drawRasterData(canvas, e.Data, frame, false)
		case *template.BarcodeElement:
			if err := drawBarcode(canvas, e, frame, scale); err != nil {
				return nil, err
			}
		}
	}
	return canvas, nil
}

func scaleRect(r template.Rect, scale float64) image.Rectangle {
	return image.Rect(
		int(r.X*scale+0.5),
		int(r.Y*scale+0.5),
		int((r.X+r.W)*scale+0.5),
		int((r.Y+r.H)*scale+0.5),
	)
}

func drawShape(canvas *image.RGBA, e *template.ShapeElement, frame image.Rectangle, scale float64) {
	stroke := int(e.StrokeWidth*scale + 0.5)
	if stroke < 1 && e.Stroke != "" {
		stroke = 1
	}
	if e.Shape == "line" {
		// A line spans its frame horizontally at the vertical midpoint.
		y := (frame.Min.Y + frame.Max.Y) / 2
		if stroke < 1 {
			stroke = 1
		}
		fillRect(canvas, image.Rect(frame.Min.X, y-stroke/2, frame.Max.X, y-stroke/2+stroke),
			parseHexColor(e.Stroke, color.RGBA{0, 0, 0, 255}))
		return
	}
	if e.Fill != "" {
		fillRect(canvas, frame, parseHexColor(e.Fill, color.RGBA{0, 0, 0, 255}))
	}
	if e.Stroke != "" {
		strokeRect(canvas, frame, stroke, parseHexColor(e.Stroke, color.RGBA{0, 0, 0, 255}))
	}
}

func drawText(canvas *image.RGBA, e *template.TextElement, frame image.Rectangle, scale float64) error {
	size := e.Font.Size
	if size <= 0 {
		size = defaultFontSize
	}
	sizePx := size * scale
	face, err := faceFor(e.Font, sizePx)
	if err != nil {
		return err
	}
	defer face.Close()

	col := parseHexColor(e.Color, color.RGBA{0, 0, 0, 255})
	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(col),
		Face: face,
	}
	metrics := face.Metrics()
	lineHeight := int(sizePx*1.3 + 0.5)
	y := frame.Min.Y + metrics.Ascent.Ceil()

	for _, line := range strings.Split(e.Content, "\n") {
		width := drawer.MeasureString(line).Ceil()
		x := frame.Min.X
		switch e.Align {
		case "center":
			x += (frame.Dx() - width) / 2
		case "right":
			x += frame.Dx() - width
		}
		drawer.Dot = fixed.P(x, y)
		drawer.DrawString(line)
		if e.Font.Underline && line != "" {
			thickness := int(sizePx/14 + 0.5)
			if thickness < 1 {
				thickness = 1
			}
			underY := y + metrics.Descent.Ceil()/2
			fillRect(canvas, image.Rect(x, underY, x+width, underY+thickness), col)
		}
		y += lineHeight
	}
	return nil
}

func drawBarcode(canvas *image.RGBA, e *template.BarcodeElement, frame image.Rectangle, scale float64) error {
	if e.Data == nil {
		drawMissing(canvas, frame)
		return nil
	}
	barFrame := frame
	if e.ShowText {
		textH := frame.Dy() / 5
		barFrame.Max.Y = frame.Max.Y - textH
		textEl := &template.TextElement{
			Content: e.Payload,
			Align:   "center",
			Font:    template.Font{Size: float64(textH) * 0.7 / scale},
		}
		textFrame := image.Rect(frame.Min.X, barFrame.Max.Y, frame.Max.X, frame.Max.Y)
		if err := drawText(canvas, textEl, textFrame, scale); err != nil {
			return err
		}
	}
	drawRasterData(canvas, e.Data, barFrame, false)
	return nil
}

// drawRasterData decodes image bytes and paints them into frame. When
// aspectFit is set the image is scaled proportionally and centered;
// otherwise it is stretched to fill. Missing or undecodable data paints a
// neutral placeholder box so the element stays visible.
func drawRasterData(canvas *image.RGBA, data []byte, frame image.Rectangle, aspectFit bool) {
	if len(data) == 0 {
		drawMissing(canvas, frame)
		return
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		drawMissing(canvas, frame)
		return
	}
	target := frame
	if aspectFit {
		target = fitRect(src.Bounds(), frame)
	}
	draw.CatmullRom.Scale(canvas, target, src, src.Bounds(), draw.Over, nil)
}

// fitRect returns the largest rectangle with src's aspect ratio that fits
// inside frame, centered.
func fitRect(src, frame image.Rectangle) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	fw, fh := frame.Dx(), frame.Dy()
	if sw == 0 || sh == 0 || fw == 0 || fh == 0 {
		return frame
	}
	w, h := fw, sh*fw/sw
	if h > fh {
		w, h = sw*fh/sh, fh
	}
	x := frame.Min.X + (fw-w)/2
	y := frame.Min.Y + (fh-h)/2
	return image.Rect(x, y, x+w, y+h)
}

func drawMissing(canvas *image.RGBA, frame image.Rectangle) {
	fillRect(canvas, frame, color.RGBA{235, 235, 235, 255})
	strokeRect(canvas, frame, 1, color.RGBA{180, 180, 180, 255})
}

func fillRect(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(dst, r.Intersect(dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}

func strokeRect(dst *image.RGBA, r image.Rectangle, width int, c color.RGBA) {
	if width < 1 {
		width = 1
	}
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width), c)
	fillRect(dst, image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y), c)
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y), c)
	fillRect(dst, image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y), c)
}

// parseHexColor parses "#rrggbb" (or "#rgb"), returning def on anything
// else.
func parseHexColor(s string, def color.RGBA) color.RGBA {
	if len(s) == 0 || s[0] != '#' {
		return def
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return def
	}
	var rgb [3]uint8
	for i := 0; i < 3; i++ {
		var v int
		for _, ch := range []byte(hex[i*2 : i*2+2]) {
			v *= 16
			switch {
			case ch >= '0' && ch <= '9':
				v += int(ch - '0')
			case ch >= 'a' && ch <= 'f':
				v += int(ch-'a') + 10
			case ch >= 'A' && ch <= 'F':
				v += int(ch-'A') + 10
			default:
				return def
			}
		}
		rgb[i] = uint8(v)
	}
	return color.RGBA{rgb[0], rgb[1], rgb[2], 255}
}
