package template

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeTemplate(t *testing.T) {
	src := `{
		"name": "ID Card",
		"width": 400, "height": 250,
		"background": "#f8f8f8",
		"elements": [
			{"kind": "text", "content": "{{Name}}", "frame": {"x": 20, "y": 30, "w": 200, "h": 24},
			 "font": {"size": 18, "bold": true}, "align": "left", "color": "#202020"},
			{"kind": "image", "placeholder": true, "placeholderName": "Photo",
			 "frame": {"x": 280, "y": 20, "w": 100, "h": 120}},
			{"kind": "barcode", "placeholder": true, "placeholderName": "ID",
			 "symbology": "code128", "showText": true,
			 "frame": {"x": 20, "y": 180, "w": 200, "h": 50}},
			{"kind": "shape", "shape": "rect", "stroke": "#000000", "strokeWidth": 2,
			 "frame": {"x": 0, "y": 0, "w": 400, "h": 250}}
		]
	}`

	tpl, err := Decode(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(tpl.Elements) != 4 {
		t.Fatalf("decoded %d elements; want 4", len(tpl.Elements))
	}

	text, ok := tpl.Elements[0].(*TextElement)
	if !ok {
		t.Fatalf("element 0 is %T; want *TextElement", tpl.Elements[0])
	}
	if !text.Font.Bold || text.Font.Size != 18 {
		t.Fatalf("text font = %+v; want bold size 18", text.Font)
	}

	bc, ok := tpl.Elements[2].(*BarcodeElement)
	if !ok {
		t.Fatalf("element 2 is %T; want *BarcodeElement", tpl.Elements[2])
	}
	if !bc.ShowText || bc.Symbology != "code128" {
		t.Fatalf("barcode = %+v", bc)
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	src := `{"width": 10, "height": 10, "elements": [{"kind": "video"}]}`
	if _, err := Decode(strings.NewReader(src)); err == nil {
		t.Fatal("expected error for unknown element kind")
	}
}

func TestTemplateJSONRoundTrip(t *testing.T) {
	orig := sampleTemplate()
	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	decoded, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(decoded.Elements) != len(orig.Elements) {
		t.Fatalf("round-trip kept %d elements; want %d", len(decoded.Elements), len(orig.Elements))
	}
	for i := range decoded.Elements {
		if decoded.Elements[i].Kind() != orig.Elements[i].Kind() {
			t.Fatalf("element %d kind = %q; want %q", i, decoded.Elements[i].Kind(), orig.Elements[i].Kind())
		}
	}
	if got := decoded.Elements[0].(*TextElement).Content; got != "Awarded to {{Name}} on {{Date}}" {
		t.Fatalf("round-trip content = %q", got)
	}
}
