package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"strings"
)

// sniffLen is the number of leading bytes inspected to detect a format.
const sniffLen = 512

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")
)

// Registry detects the format of a file from its content and delegates to
// the matching extractor. The declared client type is never trusted.
type Registry struct {
	plain Extractor
	docx  Extractor
	pdf   Extractor
}

// NewRegistry returns a Registry using the bundled extractors.
func NewRegistry() *Registry {
	return NewRegistryWith(NewPlainText(), NewDOCX(), NewPDF())
}

// NewRegistryWith returns a Registry using the given per-format extractors.
func NewRegistryWith(plain, docx, pdf Extractor) *Registry {
	return &Registry{plain: plain, docx: docx, pdf: pdf}
}

var _ Extractor = (*Registry)(nil)

// Extract sniffs the file and runs the extractor for its format. Any text
// flavour (xml, html, csv...) is read as plain text and reported under its
// sniffed media type.
func (r *Registry) Extract(ctx context.Context, path, filename string) (*Result, error) {
	ex, textType, err := r.detect(path)
	if err != nil {
		return nil, err
	}
	res, err := ex.Extract(ctx, path, filename)
	if err != nil {
		return nil, err
	}
	if textType != "" {
		res.ContentType = textType
	}
	return res, nil
}

// detect picks the extractor for the staged file. textType is set only for
// text content.
func (r *Registry) detect(path string) (ex Extractor, textType string, err error) {
	head, err := readHead(path)
	if err != nil {
		return nil, "", err
	}

	switch {
	case bytes.HasPrefix(head, pdfMagic):
		return r.pdf, "", nil
	case bytes.HasPrefix(head, zipMagic):
		if isDOCX(path) {
			return r.docx, "", nil
		}
		return nil, "", fmt.Errorf("%w: zip archive is not a word document", ErrUnsupportedFormat)
	}

	sniffed := http.DetectContentType(head)
	mediaType, _, perr := mime.ParseMediaType(sniffed)
	if perr == nil && strings.HasPrefix(mediaType, "text/") {
		return r.plain, mediaType, nil
	}
	return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, sniffed)
}

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read staged file: %w", err)
	}
	return buf[:n], nil
}
