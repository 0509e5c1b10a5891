package service

import (
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/dustin/go-humanize"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"docmanager/internal/domain"
)

// FileUpload is an uploaded file as received from the client.
type FileUpload struct {
	Filename string
	// ContentType is the client-declared media type, possibly with parameters.
	ContentType string
	Size        int64
	Reader      io.Reader
}

// AdmissionPolicy is the size ceiling and media type allow-list applied to
// uploads. Build it with NewAdmissionPolicy; the zero value admits nothing.
type AdmissionPolicy struct {
	maxFileSize int64
	allowed     []interface{}
}

// NewAdmissionPolicy copies allowed so later changes to the slice have no effect.
func NewAdmissionPolicy(maxFileSize int64, allowed []string) AdmissionPolicy {
	types := make([]interface{}, 0, len(allowed))
	for _, t := range allowed {
		if t = normalizeMediaType(t); t != "" {
			types = append(types, t)
		}
	}
	return AdmissionPolicy{maxFileSize: maxFileSize, allowed: types}
}

// MaxFileSize returns the size ceiling in bytes.
func (p AdmissionPolicy) MaxFileSize() int64 { return p.maxFileSize }

// FileAdmission validates uploads against an AdmissionPolicy before any
// content is read.
type FileAdmission struct {
	policy AdmissionPolicy
}

// NewFileAdmission creates a FileAdmission for policy.
func NewFileAdmission(policy AdmissionPolicy) *FileAdmission {
	return &FileAdmission{policy: policy}
}

// Validate checks, in order, that the file is present and non-empty, within
// the size ceiling, and of an allowed declared type.
func (a *FileAdmission) Validate(f *FileUpload) error {
	if f == nil || f.Reader == nil {
		return domain.NewValidationError("file is empty or not provided")
	}
	if err := validation.Validate(f.Size, validation.Required, validation.Min(int64(1))); err != nil {
		return domain.NewValidationError("file is empty or not provided")
	}

	if err := validation.Validate(f.Size, validation.Max(a.policy.maxFileSize)); err != nil {
		return domain.NewValidationError(fmt.Sprintf("file size exceeds the %s limit",
			humanize.IBytes(uint64(a.policy.maxFileSize))))
	}

	mediaType := normalizeMediaType(f.ContentType)
	if err := validation.Validate(mediaType, validation.Required, validation.In(a.policy.allowed...)); err != nil {
		declared := strings.TrimSpace(f.ContentType)
		if declared == "" {
			declared = "unknown"
		}
		return domain.NewValidationError("unsupported file type: " + declared)
	}
	return nil
}

// normalizeMediaType lowercases a media type and strips its parameters.
func normalizeMediaType(ct string) string {
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	mt, _, _ := strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}
