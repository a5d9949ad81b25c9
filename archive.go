package docmerge

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// Package bundles a run's generated files into the deliverable artifact.
// A single file is returned directly, bypassing compression; multiple
// files are zipped into one archive named after batchName, each entry
// keeping its resolved file name exactly. Zero files is an error.
func Package(batchName string, files []GeneratedFile) (GeneratedFile, error) {
	switch len(files) {
	case 0:
		return GeneratedFile{}, newBatchError("Package", 0, ErrNoFiles)
	case 1:
		return files[0], nil
	}

	name := sanitize(batchName)
	if name == "" {
		name = "documents"
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.Name)
		if err != nil {
			return GeneratedFile{}, newBatchError("Package", 0, fmt.Errorf("creating entry %s: %w", f.Name, err))
		}
		if _, err := w.Write(f.Content); err != nil {
			return GeneratedFile{}, newBatchError("Package", 0, fmt.Errorf("writing entry %s: %w", f.Name, err))
		}
	}
	if err := zw.Close(); err != nil {
		return GeneratedFile{}, newBatchError("Package", 0, err)
	}
	return GeneratedFile{Name: name + ".zip", Content: buf.Bytes()}, nil
}
