package template

import (
	"regexp"
	"strings"
)

// PlaceholderKind classifies how a placeholder's mapped value is applied.
type PlaceholderKind string

const (
	PlaceholderText    PlaceholderKind = "text"
	PlaceholderImage   PlaceholderKind = "image"
	PlaceholderQRCode  PlaceholderKind = "qrcode"
	PlaceholderBarcode PlaceholderKind = "barcode"
)

// Placeholder is one named substitution point discovered in a template.
type Placeholder struct {
	Name   string          `json:"name"`
	Kind   PlaceholderKind `json:"kind"`
	Format string          `json:"format,omitempty"`
}

// tokenPattern matches {{name}} tokens. Non-greedy, no nesting; a token
// may not contain a closing brace.
var tokenPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Tokens returns the placeholder names referenced by s, in order of first
// appearance, without deduplication.
func Tokens(s string) []string {
	matches := tokenPattern.FindAllStringSubmatch(s, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// Expand replaces every {{token}} occurrence in s with the value fn
// returns for the trimmed token name. Occurrences for which fn reports
// !ok are kept verbatim, whitespace and all. Replacement works on the
// match spans, so "{{name}}" and "{{  name  }}" resolve identically.
func Expand(s string, fn func(token string) (string, bool)) string {
	return tokenPattern.ReplaceAllStringFunc(s, func(m string) string {
		token := strings.TrimSpace(m[2 : len(m)-2])
		if v, ok := fn(token); ok {
			return v
		}
		return m
	})
}

// BuildRegistry scans the template and returns its placeholders,
// deduplicated by name in first-seen order. Text elements contribute every
// {{name}} token in their content; image, QR and barcode elements
// contribute their placeholder name when flagged as placeholders.
//
// The registry is a pure function of the template. It is recomputed on
// every use rather than stored, so it can never go stale across edits.
func BuildRegistry(t *Template) []Placeholder {
	var out []Placeholder
	seen := make(map[string]bool)
	add := func(p Placeholder) {
		if p.Name == "" || seen[p.Name] {
			return
		}
		seen[p.Name] = true
		out = append(out, p)
	}

	for _, el := range t.Elements {
		switch e := el.(type) {
		case *TextElement:
			for _, name := range Tokens(e.Content) {
				add(Placeholder{Name: name, Kind: PlaceholderText, Format: e.Format})
			}
		case *ImageElement:
			if e.Placeholder {
				add(Placeholder{Name: e.PlaceholderName, Kind: PlaceholderImage})
			}
		case *QRCodeElement:
			if e.Placeholder {
				add(Placeholder{Name: e.PlaceholderName, Kind: PlaceholderQRCode})
			}
		case *BarcodeElement:
			if e.Placeholder {
				add(Placeholder{Name: e.PlaceholderName, Kind: PlaceholderBarcode})
			}
		case *ShapeElement:
			// shapes carry no placeholders
		}
	}
	return out
}
