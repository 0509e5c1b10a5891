// Package storage archives original uploads in an S3-compatible object store.
package storage

import (
	"context"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known, or -1 to let the
// backend stream in parts.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key         string
	Size        int64
	ETag        string
	ContentType string
	Metadata    map[string]string
}

// Storage is the subset of an object store used for archiving uploads.
type Storage interface {
	// Put uploads an object under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited URL that can be used to download the object without credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

var keyExt = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// ObjectKey returns the archive key for a document, keeping a short
// alphanumeric extension of the original file name so downloads open with
// the right application.
func ObjectKey(documentID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if !keyExt.MatchString(ext) {
		ext = ""
	}
	return path.Join("documents", documentID+ext)
}
