package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"docmanager/internal/domain"
	"docmanager/internal/extractor"
)

var safeExt = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// Extraction is the normalized output of the extraction capability.
type Extraction struct {
	Text        string
	Title       string
	ContentType string
}

// StagedFile is an upload copied to local disk for the duration of a
// WithExtraction callback.
type StagedFile struct {
	path string
	size int64
}

// Open opens the staged bytes for reading. The caller closes the file.
func (s *StagedFile) Open() (*os.File, error) { return os.Open(s.path) }

// Size returns the number of staged bytes.
func (s *StagedFile) Size() int64 { return s.size }

// ExtractionGateway stages uploads to a temporary file and runs the
// extraction capability over them.
type ExtractionGateway struct {
	extractor extractor.Extractor
	tempDir   string
	logger    *zap.Logger
}

// NewExtractionGateway creates a gateway staging files under tempDir, or the
// system temporary directory when tempDir is empty.
func NewExtractionGateway(ex extractor.Extractor, tempDir string, logger *zap.Logger) *ExtractionGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExtractionGateway{extractor: ex, tempDir: tempDir, logger: logger}
}

// Extract stages f, extracts it and removes the staged copy.
func (g *ExtractionGateway) Extract(ctx context.Context, f *FileUpload) (*Extraction, error) {
	var out *Extraction
	err := g.WithExtraction(ctx, f, func(_ context.Context, ex *Extraction, _ *StagedFile) error {
		out = ex
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WithExtraction stages f, extracts it and calls fn while the staged copy
// still exists. The staged copy is removed before WithExtraction returns on
// every path, including a panic in fn.
func (g *ExtractionGateway) WithExtraction(ctx context.Context, f *FileUpload, fn func(ctx context.Context, ex *Extraction, staged *StagedFile) error) error {
	staged, err := g.stage(f)
	if staged != nil {
		defer g.remove(staged.path)
	}
	if err != nil {
		return domain.NewIOError("failed to stage uploaded file", err)
	}

	res, err := g.extractor.Extract(ctx, staged.path, f.Filename)
	if err != nil {
		return g.mapExtractError(ctx, err)
	}

	return fn(ctx, g.normalize(f, res), staged)
}

// stage copies the upload to a temp file. A non-nil StagedFile is returned
// whenever a file was created, even if copying failed.
func (g *ExtractionGateway) stage(f *FileUpload) (*StagedFile, error) {
	tmp, err := os.CreateTemp(g.tempDir, "upload-*"+stagingExt(f.Filename))
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	staged := &StagedFile{path: tmp.Name()}

	n, copyErr := io.Copy(tmp, f.Reader)
	closeErr := tmp.Close()
	if copyErr != nil {
		return staged, fmt.Errorf("copy upload: %w", copyErr)
	}
	if closeErr != nil {
		return staged, fmt.Errorf("close temp file: %w", closeErr)
	}
	staged.size = n
	return staged, nil
}

func (g *ExtractionGateway) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		g.logger.Warn("failed to remove staged upload",
			zap.String("path", path),
			zap.Error(err),
		)
	}
}

func (g *ExtractionGateway) mapExtractError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, extractor.ErrToolUnavailable):
		return domain.NewInfrastructureError("content extraction is unavailable", err)
	case ctx.Err() != nil:
		// Keep the context error in the chain so callers can match it.
		if !errors.Is(err, ctx.Err()) {
			err = fmt.Errorf("%w: %v", ctx.Err(), err)
		}
		return domain.NewInfrastructureError("content extraction interrupted", err)
	default:
		return domain.NewParsingError("failed to parse file", err)
	}
}

func (g *ExtractionGateway) normalize(f *FileUpload, res *extractor.Result) *Extraction {
	title := strings.TrimSpace(res.Title)
	if title == "" {
		title = strings.TrimSpace(f.Filename)
	}
	contentType := normalizeMediaType(res.ContentType)
	if contentType == "" {
		contentType = normalizeMediaType(f.ContentType)
	}
	return &Extraction{Text: res.Text, Title: title, ContentType: contentType}
}

// stagingExt keeps a short alphanumeric extension so helper tools that look
// at file names see the expected suffix.
func stagingExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if safeExt.MatchString(ext) {
		return ext
	}
	return ""
}
