package resumes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"resumind/internal/blob"
	"resumind/internal/kv"
	"resumind/internal/shared/telemetry"
)

// Artifact selects one of a record's stored files.
type Artifact string

const (
	ArtifactResume Artifact = "file"
	ArtifactImage  Artifact = "image"
)

// Service reads analysis records and their artifacts.
type Service struct {
	KV    kv.Store
	Blobs blob.Store
}

// Get returns a record by id regardless of owner.
func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	if strings.TrimSpace(id) == "" {
		return Record{}, ErrNotFound
	}
	value, err := s.KV.Get(ctx, Key(id))
	if errors.Is(err, kv.ErrNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return Decode(value)
}

// GetForUser returns a record only if userID owns it.
func (s *Service) GetForUser(ctx context.Context, userID, id string) (Record, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if rec.UserID == "" || rec.UserID != userID {
		return Record{}, ErrForbidden
	}
	return rec, nil
}

// List returns every record, newest first. Undecodable values are skipped.
func (s *Service) List(ctx context.Context) ([]Record, error) {
	entries, err := s.KV.List(ctx, KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		rec, err := Decode(e.Value)
		if err != nil {
			telemetry.Warn("resumes.decode_failed", map[string]any{"key": e.Key, "error": err})
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt == out[j].CreatedAt {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out, nil
}

// ListForUser returns the user's records, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Record, error) {
	if userID == "" {
		return nil, ErrForbidden
	}
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(all))
	for _, rec := range all {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// OpenArtifact opens the résumé or its page image for the owner.
func (s *Service) OpenArtifact(ctx context.Context, userID, id string, which Artifact) (io.ReadCloser, Record, error) {
	rec, err := s.GetForUser(ctx, userID, id)
	if err != nil {
		return nil, Record{}, err
	}
	var path string
	switch which {
	case ArtifactResume:
		path = rec.ResumePath
	case ArtifactImage:
		path = rec.ImagePath
	}
	if path == "" {
		return nil, Record{}, ErrNoArtifact
	}
	rc, err := s.Blobs.Open(ctx, path)
	if err != nil {
		return nil, Record{}, err
	}
	return rc, rec, nil
}
