package template

// Clone returns a deep copy of the template. Every element is copied,
// including any resolved raster data, so a clone can be mutated freely
// without affecting the original or any sibling clone. The batch pipeline
// relies on this for cross-row isolation.
func (t *Template) Clone() *Template {
	c := &Template{
		Name:       t.Name,
		Width:      t.Width,
		Height:     t.Height,
		Background: t.Background,
		Elements:   make([]Element, len(t.Elements)),
	}
	for i, el := range t.Elements {
		c.Elements[i] = el.CloneElement()
	}
	return c
}

func (e *TextElement) CloneElement() Element {
	c := *e
	return &c
}

func (e *ImageElement) CloneElement() Element {
	c := *e
	c.Data = cloneBytes(e.Data)
	return &c
}

func (e *QRCodeElement) CloneElement() Element {
	c := *e
	c.Data = cloneBytes(e.Data)
	return &c
}

func (e *BarcodeElement) CloneElement() Element {
	c := *e
	c.Data = cloneBytes(e.Data)
	return &c
}

func (e *ShapeElement) CloneElement() Element {
	c := *e
	return &c
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
