package render

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lvillar/docmerge/template"
)

func textTemplate(content string) *template.Template {
	return &template.Template{
		Width:  400,
		Height: 200,
		Elements: []template.Element{
			&template.TextElement{
				ElementBase: template.ElementBase{Frame: template.Rect{X: 10, Y: 10, W: 380, H: 50}},
				Content:     content,
			},
		},
	}
}

func TestInstantiateSubstitutesText(t *testing.T) {
	tpl := textTemplate("Hello {{Name}}, welcome to {{Place}}")
	row := map[string]any{"full_name": "Ada", "city": "London"}
	mapping := map[string]string{"Name": "full_name", "Place": "city"}

	inst, err := New(nil).Instantiate(context.Background(), tpl, row, mapping)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	got := inst.Elements[0].(*template.TextElement).Content
	if got != "Hello Ada, welcome to London" {
		t.Fatalf("content = %q", got)
	}
}

func TestInstantiateLeavesUnmappedTokensVerbatim(t *testing.T) {
	tpl := textTemplate("Hello {{Name}} ({{Missing}})")
	row := map[string]any{"n": "Ada"}
	mapping := map[string]string{"Name": "n"}

	inst, err := New(nil).Instantiate(context.Background(), tpl, row, mapping)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	got := inst.Elements[0].(*template.TextElement).Content
	if got != "Hello Ada ({{Missing}})" {
		t.Fatalf("content = %q; unmapped tokens must stay verbatim", got)
	}
}

func TestInstantiateSubstitutesSpacedTokens(t *testing.T) {
	// {{  Name  }} enters the registry as "Name" and must resolve like
	// the tight form.
	tpl := textTemplate("Hi {{  Name  }} and {{ Name }}")
	row := map[string]any{"n": "Ada"}

	inst, err := New(nil).Instantiate(context.Background(), tpl, row, map[string]string{"Name": "n"})
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	got := inst.Elements[0].(*template.TextElement).Content
	if got != "Hi Ada and Ada" {
		t.Fatalf("content = %q; want %q", got, "Hi Ada and Ada")
	}
}

func TestInstantiateAppliesFormat(t *testing.T) {
	tpl := textTemplate("{{Name}}")
	tpl.Elements[0].(*template.TextElement).Format = "uppercase"
	row := map[string]any{"n": "ada"}

	inst, err := New(nil).Instantiate(context.Background(), tpl, row, map[string]string{"Name": "n"})
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	if got := inst.Elements[0].(*template.TextElement).Content; got != "ADA" {
		t.Fatalf("content = %q; want %q", got, "ADA")
	}
}

func TestInstantiateDoesNotMutateOriginal(t *testing.T) {
	tpl := textTemplate("Hello {{Name}}")
	row := map[string]any{"n": "Ada"}

	if _, err := New(nil).Instantiate(context.Background(), tpl, row, map[string]string{"Name": "n"}); err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	if got := tpl.Elements[0].(*template.TextElement).Content; got != "Hello {{Name}}" {
		t.Fatalf("original template mutated to %q", got)
	}
}

func TestInstantiateGeneratesQR(t *testing.T) {
	tpl := &template.Template{
		Width: 200, Height: 200,
		Elements: []template.Element{
			&template.QRCodeElement{
				ElementBase:     template.ElementBase{Frame: template.Rect{X: 0, Y: 0, W: 100, H: 100}},
				Placeholder:     true,
				PlaceholderName: "URL",
			},
		},
	}
	row := map[string]any{"url": "https://example.com/verify/42"}

	inst, err := New(nil).Instantiate(context.Background(), tpl, row, map[string]string{"URL": "url"})
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	qr := inst.Elements[0].(*template.QRCodeElement)
	if len(qr.Data) == 0 {
		t.Fatal("QR data not generated")
	}
	if qr.Payload != "https://example.com/verify/42" {
		t.Fatalf("QR payload = %q", qr.Payload)
	}
	if _, err := png.Decode(bytes.NewReader(qr.Data)); err != nil {
		t.Fatalf("QR data is not a PNG: %v", err)
	}
}

func TestInstantiateBadBarcodeFailsRow(t *testing.T) {
	tpl := &template.Template{
		Width: 300, Height: 100,
		Elements: []template.Element{
			&template.BarcodeElement{
				ElementBase:     template.ElementBase{Frame: template.Rect{X: 0, Y: 0, W: 200, H: 60}},
				Symbology:       "ean13",
				Placeholder:     true,
				PlaceholderName: "Code",
			},
		},
	}
	row := map[string]any{"c": "not-an-ean"}

	if _, err := New(nil).Instantiate(context.Background(), tpl, row, map[string]string{"Code": "c"}); err == nil {
		t.Fatal("expected error for invalid EAN payload")
	}
}

func TestInstantiateFetchesImage(t *testing.T) {
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBuf.Bytes())
	}))
	defer srv.Close()

	tpl := &template.Template{
		Width: 200, Height: 200,
		Elements: []template.Element{
			&template.ImageElement{
				ElementBase:     template.ElementBase{Frame: template.Rect{X: 0, Y: 0, W: 100, H: 100}},
				Placeholder:     true,
				PlaceholderName: "Photo",
			},
		},
	}
	row := map[string]any{"photo": srv.URL + "/p.png"}

	inst, err := New(srv.Client()).Instantiate(context.Background(), tpl, row, map[string]string{"Photo": "photo"})
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	img := inst.Elements[0].(*template.ImageElement)
	if !bytes.Equal(img.Data, pngBuf.Bytes()) {
		t.Fatal("fetched image data does not match served bytes")
	}
}

func TestInstantiateImageFetchFailureKeepsRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	tpl := &template.Template{
		Width: 200, Height: 200,
		Elements: []template.Element{
			&template.ImageElement{
				ElementBase:     template.ElementBase{Frame: template.Rect{X: 0, Y: 0, W: 100, H: 100}},
				Src:             "original.png",
				Placeholder:     true,
				PlaceholderName: "Photo",
			},
		},
	}
	row := map[string]any{"photo": srv.URL + "/missing.png"}

	inst, err := New(srv.Client()).Instantiate(context.Background(), tpl, row, map[string]string{"Photo": "photo"})
	if err != nil {
		t.Fatalf("a failed image fetch must not fail the row: %v", err)
	}
	img := inst.Elements[0].(*template.ImageElement)
	if img.Data != nil {
		t.Fatal("expected no image data after failed fetch")
	}
	if img.Src != "original.png" {
		t.Fatalf("original visual source lost: %q", img.Src)
	}
}

func TestEncodeBarcodeSymbologies(t *testing.T) {
	cases := map[string]string{
		"code128": "DOC-0042",
		"":        "default-to-code128",
		"code39":  "ABC123",
		"ean13":   "4006381333931",
		"pdf417":  "hello pdf417",
	}
	for symbology, payload := range cases {
		data, err := EncodeBarcode(payload, symbology, 200, 60)
		if err != nil {
			t.Fatalf("EncodeBarcode(%q, %q) failed: %v", payload, symbology, err)
		}
		if _, err := png.Decode(bytes.NewReader(data)); err != nil {
			t.Fatalf("%s output is not a PNG: %v", symbology, err)
		}
	}
}

func TestEncodeQREmptyPayload(t *testing.T) {
	if _, err := EncodeQR("", 100, 0); err == nil {
		t.Fatal("expected error for empty payload")
	}
	if _, err := EncodeBarcode("", "code128", 100, 40); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestSubstituteWhitespaceTokens(t *testing.T) {
	got := substitute("Hi {{ Name }}", "", map[string]any{"n": "Ada"}, map[string]string{"Name": "n"})
	if !strings.Contains(got, "Ada") {
		t.Fatalf("substitute = %q; want Ada substituted", got)
	}
}
