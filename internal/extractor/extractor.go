// Package extractor turns staged upload files into plain text and metadata.
package extractor

import (
	"context"
	"errors"
	"os/exec"
)

// Canonical media types produced by the bundled extractors.
const (
	TypePlainText = "text/plain"
	TypePDF       = "application/pdf"
	TypeDOCX      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	// ErrUnsupportedFormat is returned when no extractor recognizes the file.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrMalformed is returned when the file claims a format but cannot be parsed.
	ErrMalformed = errors.New("malformed document")
	// ErrToolUnavailable is returned when an external helper binary is missing.
	ErrToolUnavailable = errors.New("extraction tool unavailable")
)

// Result is the text and metadata extracted from a file.
type Result struct {
	Text string
	// Title is empty when the format carries no usable title.
	Title       string
	ContentType string
}

// Extractor extracts content from a file on local disk. filename is the
// original client-side name and serves only as a hint.
type Extractor interface {
	Extract(ctx context.Context, path, filename string) (*Result, error)
}

// CommandRunner executes external commands.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

// Run executes the command and returns its standard output.
func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}
