// Package extractor converts raw document bytes into plain text.
package extractor

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"docqa/internal/domain"
)

// Auto dispatches on the document's magic bytes: PDF documents go through
// page-wise PDF extraction, everything else is treated as UTF-8 plain text.
type Auto struct{}

// NewAuto creates the default extractor.
func NewAuto() *Auto { return &Auto{} }

// Extract returns the plain text of data. A zero-length result means the
// document had no extractable content and is not an error.
func (e *Auto) Extract(data []byte, source string) (string, error) {
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return extractPDF(data, source)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s: not a PDF and not valid UTF-8", domain.ErrExtract, source)
	}
	return strings.TrimSpace(string(data)), nil
}
