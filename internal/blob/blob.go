// Package blob is the document and image store used by the analysis pipeline.
package blob

import (
	"context"
	"fmt"
	"io"
	"strings"

	"resumind/internal/artifact"
	"resumind/internal/shared/storage/object"
)


// Uploaded describes a stored file.
type Uploaded struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

// Store uploads files and opens them by path.
type Store interface {
	Upload(ctx context.Context, owner string, file artifact.File) (Uploaded, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// ObjectStore adapts an object.ObjectStore backend.
type ObjectStore struct {
	Backend object.ObjectStore
}

// New wraps backend.
func New(backend object.ObjectStore) *ObjectStore {
	return &ObjectStore{Backend: backend}
}

// Upload stores file under owner's namespace and returns its path.
func (s *ObjectStore) Upload(ctx context.Context, owner string, file artifact.File) (Uploaded, error) {
	name := strings.TrimSpace(file.Name)
	if name == "" {
		name = "upload"
	}
	key, size, mimeType, err := s.Backend.Save(ctx, owner, name, file.Reader())
	if err != nil {
		return Uploaded{}, fmt.Errorf("save %s: %w", name, err)
	}
	if file.ContentType != "" && (mimeType == "application/octet-stream" || file.Empty()) {
		mimeType = file.ContentType
	}
	return Uploaded{Path: key, Size: size, MimeType: mimeType}, nil
}

// Open returns a reader for a previously uploaded path.
func (s *ObjectStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	rc, err := s.Backend.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return rc, nil
}

// ReadAll opens path and reads it fully.
func ReadAll(ctx context.Context, store Store, path string) ([]byte, error) {
	rc, err := store.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

var _ Store = (*ObjectStore)(nil)
