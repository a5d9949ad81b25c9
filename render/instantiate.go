// Package render turns a template plus one data row into a resolved,
// render-ready instance: text tokens substituted, placeholder images
// fetched, QR and barcode rasters generated.
package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lvillar/docmerge/format"
	"github.com/lvillar/docmerge/template"
)

// maxImageBytes bounds a single fetched image.
const maxImageBytes = 32 << 20

// Instantiator resolves templates against data rows. The zero value is not
// usable; construct with New.
type Instantiator struct {
	client *http.Client
}

// New returns an Instantiator that fetches placeholder images with client.
// A nil client gets a default with a 15 second timeout, which also bounds
// how long a row can hang on an unreachable image URL.
func New(client *http.Client) *Instantiator {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Instantiator{client: client}
}

// Instantiate deep-clones tpl and substitutes every placeholder with the
// row's mapped value. The returned instance shares no mutable state with
// tpl or with instances for other rows.
//
// Text tokens with no mapping are left verbatim so that an incomplete
// mapping is visibly wrong rather than silently blank. A failed image
// fetch keeps the element's original visual. A QR or barcode payload that
// cannot be encoded fails the whole row.
func (in *Instantiator) Instantiate(ctx context.Context, tpl *template.Template, row map[string]any, mapping map[string]string) (*template.Template, error) {
	inst := tpl.Clone()
	for _, el := range inst.Elements {
		switch e := el.(type) {
		case *template.TextElement:
			e.Content = substitute(e.Content, e.Format, row, mapping)
		case *template.ImageElement:
			in.resolveImage(ctx, e, row, mapping)
		case *template.QRCodeElement:
			if err := resolveQR(e, row, mapping); err != nil {
				return nil, err
			}
		case *template.BarcodeElement:
			if err := resolveBarcode(e, row, mapping); err != nil {
				return nil, err
			}
		case *template.ShapeElement:
			// nothing to resolve
		}
	}
	return inst, nil
}

// substitute replaces every {{name}} token in s with the formatted mapped
// cell value, however the name is spaced inside the braces. Unmapped
// tokens stay verbatim.
func substitute(s, formatCode string, row map[string]any, mapping map[string]string) string {
	return template.Expand(s, func(name string) (string, bool) {
		col := mapping[name]
		if col == "" {
			return "", false
		}
		return format.Format(row[col], formatCode), true
	})
}

// mappedValue returns the raw cell behind a placeholder name, or nil when
// the name is unmapped.
func mappedValue(name string, row map[string]any, mapping map[string]string) any {
	col := mapping[name]
	if col == "" {
		return nil
	}
	return row[col]
}

func (in *Instantiator) resolveImage(ctx context.Context, e *template.ImageElement, row map[string]any, mapping map[string]string) {
	src := e.Src
	if e.Placeholder {
		if v := mappedValue(e.PlaceholderName, row, mapping); v != nil {
			src = format.Stringify(v)
		}
	}
	if !isURL(src) {
		return
	}
	data, err := in.fetch(ctx, src)
	if err != nil {
		// Keep the original visual; a broken image link must not
		// abort the row.
		return
	}
	e.Data = data
}

func resolveQR(e *template.QRCodeElement, row map[string]any, mapping map[string]string) error {
	payload := e.Payload
	if e.Placeholder {
		if v := mappedValue(e.PlaceholderName, row, mapping); v != nil {
			payload = format.Stringify(v)
		}
	}
	if payload == "" {
		return nil
	}
	size := int(e.Frame.W)
	if int(e.Frame.H) > size {
		size = int(e.Frame.H)
	}
	data, err := EncodeQR(payload, size, e.Margin)
	if err != nil {
		return fmt.Errorf("render: element %s: %w", elementID(e.ID, "qrcode"), err)
	}
	e.Payload = payload
	e.Data = data
	return nil
}

func resolveBarcode(e *template.BarcodeElement, row map[string]any, mapping map[string]string) error {
	payload := e.Payload
	if e.Placeholder {
		if v := mappedValue(e.PlaceholderName, row, mapping); v != nil {
			payload = format.Stringify(v)
		}
	}
	if payload == "" {
		return nil
	}
	height := int(e.Frame.H)
	if e.ShowText {
		// Reserve the bottom strip for the human-readable payload.
		height = height * 4 / 5
	}
	if height < 1 {
		height = 1
	}
	data, err := EncodeBarcode(payload, e.Symbology, int(e.Frame.W), height)
	if err != nil {
		return fmt.Errorf("render: element %s: %w", elementID(e.ID, "barcode"), err)
	}
	e.Payload = payload
	e.Data = data
	return nil
}

func elementID(id, kind string) string {
	if id == "" {
		return kind
	}
	return id
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func (in *Instantiator) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("render: building request: %w", err)
	}
	resp, err := in.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render: fetching %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("render: fetching %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("render: reading %s: %w", url, err)
	}
	return data, nil
}
