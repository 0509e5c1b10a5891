package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// PlainText extracts UTF-8 encoded text files.
type PlainText struct{}

// NewPlainText creates a plain text extractor.
func NewPlainText() *PlainText {
	return &PlainText{}
}

var _ Extractor = (*PlainText)(nil)

// Extract reads the file verbatim. Content that is not valid UTF-8 is rejected.
func (p *PlainText) Extract(_ context.Context, path, _ string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text file: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", ErrMalformed)
	}
	return &Result{Text: string(data), ContentType: TypePlainText}, nil
}
