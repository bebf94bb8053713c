// Package extract converts downloaded documents to plain text.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extractor extracts plain text from document files.
type Extractor struct{}

// New returns a new Extractor.
func New() *Extractor {
	return &Extractor{}
}

// ExtractFile reads the file at path and returns its text content.
func (e *Extractor) ExtractFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".html", ".htm":
		return extractHTML(content)
	default:
		return extractPlain(content)
	}
}
