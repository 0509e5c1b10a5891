package extractor

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const (
	pdfToTextBin = "pdftotext"
	pdfInfoBin   = "pdfinfo"
)

// PDF extracts text from PDF files using poppler's pdftotext and pdfinfo.
type PDF struct {
	runner CommandRunner
}

// NewPDF creates a PDF extractor that executes the poppler binaries from PATH.
func NewPDF() *PDF {
	return NewPDFWithRunner(execRunner{})
}

// NewPDFWithRunner creates a PDF extractor with a custom command runner.
func NewPDFWithRunner(runner CommandRunner) *PDF {
	return &PDF{runner: runner}
}

var _ Extractor = (*PDF)(nil)

// Extract runs pdftotext for the body text and pdfinfo for the title.
func (p *PDF) Extract(ctx context.Context, path, _ string) (*Result, error) {
	out, err := p.runner.Run(ctx, pdfToTextBin, "-enc", "UTF-8", "-q", path, "-")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, p.classify(pdfToTextBin, err)
	}

	return &Result{
		Text:        strings.TrimSpace(string(out)),
		Title:       p.title(ctx, path),
		ContentType: TypePDF,
	}, nil
}

// title returns the document info title, or "" when pdfinfo fails.
func (p *PDF) title(ctx context.Context, path string) string {
	out, err := p.runner.Run(ctx, pdfInfoBin, "-enc", "UTF-8", path)
	if err != nil {
		return ""
	}
	return parsePDFInfoTitle(out)
}

func (p *PDF) classify(bin string, err error) error {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %s not found in PATH", ErrToolUnavailable, bin)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return fmt.Errorf("%w: %s failed: %s", ErrMalformed, bin, strings.TrimSpace(string(exitErr.Stderr)))
	}
	return fmt.Errorf("%w: %s failed: %v", ErrMalformed, bin, err)
}

func parsePDFInfoTitle(out []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if v, ok := strings.CutPrefix(line, "Title:"); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
