package extractor

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	docxBodyPart = "word/document.xml"
	docxCorePart = "docProps/core.xml"
)

// DOCX extracts Office Open XML word processing documents.
type DOCX struct{}

// NewDOCX creates a DOCX extractor.
func NewDOCX() *DOCX {
	return &DOCX{}
}

var _ Extractor = (*DOCX)(nil)

// Extract reads paragraph text from word/document.xml and the title from
// docProps/core.xml when present.
func (d *DOCX) Extract(_ context.Context, path, _ string) (*Result, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open docx archive: %v", ErrMalformed, err)
	}
	defer zr.Close()

	body := findPart(&zr.Reader, docxBodyPart)
	if body == nil {
		return nil, fmt.Errorf("%w: %s not found", ErrMalformed, docxBodyPart)
	}
	text, err := readPart(body, parseDocumentText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var title string
	if core := findPart(&zr.Reader, docxCorePart); core != nil {
		// A broken core.xml only costs the title.
		title, _ = readPart(core, parseCoreTitle)
	}

	return &Result{Text: text, Title: title, ContentType: TypeDOCX}, nil
}

// isDOCX reports whether the zip archive at path contains a word body part.
func isDOCX(path string) bool {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return false
	}
	defer zr.Close()
	return findPart(&zr.Reader, docxBodyPart) != nil
}

func findPart(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func readPart(f *zip.File, parse func(io.Reader) (string, error)) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return parse(rc)
}

// parseDocumentText walks the WordprocessingML token stream so that text in
// tables and text boxes is kept along with body paragraphs.
func parseDocumentText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		sb     strings.Builder
		inRun  bool
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", docxBodyPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "r":
				inRun = true
			case "t":
				inText = true
			case "tab":
				// Tab stop definitions in paragraph properties are not content.
				if inRun {
					sb.WriteByte('\t')
				}
			case "br", "cr":
				if inRun {
					sb.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "r":
				inRun = false
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

type coreProperties struct {
	Title string `xml:"title"`
}

func parseCoreTitle(r io.Reader) (string, error) {
	var core coreProperties
	if err := xml.NewDecoder(r).Decode(&core); err != nil {
		return "", err
	}
	return strings.TrimSpace(core.Title), nil
}
