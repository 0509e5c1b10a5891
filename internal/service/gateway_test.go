package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docmanager/internal/domain"
	"docmanager/internal/extractor"
	exMocks "docmanager/internal/extractor/mocks"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("client went away") }

func TestExtractionGateway_Extract(t *testing.T) {
	dir := t.TempDir()
	ex := new(exMocks.MockExtractor)
	var seenPath string
	ex.On("Extract", mock.Anything, mock.Anything, "Report.PDF").
		Return(func(_ context.Context, path, _ string) *extractor.Result {
			seenPath = path
			b, _ := os.ReadFile(path)
			return &extractor.Result{Text: string(b), ContentType: extractor.TypePDF}
		}, nil)

	g := NewExtractionGateway(ex, dir, nil)
	out, err := g.Extract(context.Background(), &FileUpload{
		Filename: "Report.PDF", ContentType: "application/pdf", Size: 3, Reader: strings.NewReader("abc"),
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", out.Text)
	assert.Equal(t, "Report.PDF", out.Title)
	assert.Equal(t, extractor.TypePDF, out.ContentType)
	assert.Equal(t, ".pdf", filepath.Ext(seenPath))
	assert.Equal(t, dir, filepath.Dir(seenPath))
	assertStagingEmpty(t, dir)
}

func TestExtractionGateway_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantIs  error
		cancel  bool
		wantMsg string
	}{
		{"malformed", fmt.Errorf("%w: truncated", extractor.ErrMalformed), domain.ErrParsing, false, "failed to parse file"},
		{"unsupported", extractor.ErrUnsupportedFormat, domain.ErrParsing, false, "failed to parse file"},
		{"tool missing", extractor.ErrToolUnavailable, domain.ErrInfrastructure, false, "content extraction is unavailable"},
		{"cancelled", context.Canceled, domain.ErrInfrastructure, true, "content extraction interrupted"},
		{"cancelled with tool error", errors.New("signal: killed"), domain.ErrInfrastructure, true, "content extraction interrupted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			ex := new(exMocks.MockExtractor)
			ex.On("Extract", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)
			g := NewExtractionGateway(ex, dir, nil)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancel {
				cancel()
			}
			_, err := g.Extract(ctx, &FileUpload{Filename: "a.txt", Size: 1, Reader: strings.NewReader("a")})
			assert.ErrorIs(t, err, tt.wantIs)
			assert.Contains(t, err.Error(), tt.wantMsg)
			if tt.cancel {
				assert.ErrorIs(t, err, context.Canceled)
			}
			assertStagingEmpty(t, dir)
		})
	}
}

func TestExtractionGateway_StagingFailure(t *testing.T) {
	dir := t.TempDir()
	ex := new(exMocks.MockExtractor)
	g := NewExtractionGateway(ex, dir, nil)

	_, err := g.Extract(context.Background(), &FileUpload{Filename: "a.txt", Size: 1, Reader: io.MultiReader(failingReader{})})
	assert.ErrorIs(t, err, domain.ErrIO)
	ex.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything)
	assertStagingEmpty(t, dir)

	g = NewExtractionGateway(ex, filepath.Join(dir, "missing"), nil)
	_, err = g.Extract(context.Background(), &FileUpload{Filename: "a.txt", Size: 1, Reader: strings.NewReader("a")})
	assert.ErrorIs(t, err, domain.ErrIO)
}

func TestExtractionGateway_WithExtraction(t *testing.T) {
	dir := t.TempDir()
	ex := new(exMocks.MockExtractor)
	ex.On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Return(&extractor.Result{Text: "t", Title: "  Quarterly  ", ContentType: ""}, nil)
	g := NewExtractionGateway(ex, dir, nil)

	t.Run("staged copy readable inside callback", func(t *testing.T) {
		err := g.WithExtraction(context.Background(),
			&FileUpload{Filename: "q.txt", ContentType: "Text/Plain", Size: 5, Reader: strings.NewReader("hello")},
			func(_ context.Context, e *Extraction, staged *StagedFile) error {
				assert.Equal(t, "Quarterly", e.Title)
				assert.Equal(t, "text/plain", e.ContentType)
				assert.EqualValues(t, 5, staged.Size())
				fh, err := staged.Open()
				require.NoError(t, err)
				defer fh.Close()
				b, err := io.ReadAll(fh)
				require.NoError(t, err)
				assert.Equal(t, "hello", string(b))
				return nil
			})
		require.NoError(t, err)
		assertStagingEmpty(t, dir)
	})

	t.Run("callback error passes through", func(t *testing.T) {
		want := domain.NewNotFoundError("user not found: x")
		err := g.WithExtraction(context.Background(),
			&FileUpload{Filename: "q.txt", Size: 1, Reader: strings.NewReader("h")},
			func(context.Context, *Extraction, *StagedFile) error { return want })
		assert.Equal(t, want, err)
		assertStagingEmpty(t, dir)
	})

	t.Run("removed after panic", func(t *testing.T) {
		assert.Panics(t, func() {
			_ = g.WithExtraction(context.Background(),
				&FileUpload{Filename: "q.txt", Size: 1, Reader: strings.NewReader("h")},
				func(context.Context, *Extraction, *StagedFile) error { panic("boom") })
		})
		assertStagingEmpty(t, dir)
	})
}

func TestStagingExt(t *testing.T) {
	assert.Equal(t, ".docx", stagingExt("Report.DOCX"))
	assert.Equal(t, ".txt", stagingExt("../../etc/notes.txt"))
	assert.Equal(t, "", stagingExt("noext"))
	assert.Equal(t, "", stagingExt("bad.ex t"))
	assert.Equal(t, "", stagingExt("long.abcdefghijk"))
}
