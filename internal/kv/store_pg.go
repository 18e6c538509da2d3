package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PGStore implements Store on the kv_entries table.
type PGStore struct {
	DB  *sql.DB
	Now func() time.Time
}

// NewPGStore constructs a PGStore.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{DB: db, Now: time.Now}
}

// Set upserts the value for key.
func (s *PGStore) Set(ctx context.Context, key, value string) error {
	const query = `
INSERT INTO kv_entries (key, value, created_at, updated_at)
VALUES ($1, $2, $3, $3)
ON CONFLICT (key) DO UPDATE
SET value = EXCLUDED.value,
    updated_at = EXCLUDED.updated_at`

	if _, err := s.DB.ExecContext(ctx, query, key, value, s.now()); err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

// Get returns the value for key or ErrNotFound.
func (s *PGStore) Get(ctx context.Context, key string) (string, error) {
	const query = `SELECT value FROM kv_entries WHERE key = $1`

	var value string
	err := s.DB.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("kv get %s: %w", key, err)
	}
	return value, nil
}

// List returns every entry whose key starts with prefix, ordered by key.
func (s *PGStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	const query = `
SELECT key, value
FROM kv_entries
WHERE key LIKE $1 ESCAPE '\'
ORDER BY key`

	rows, err := s.DB.QueryContext(ctx, query, likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("kv list %s: %w", prefix, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("kv list scan: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("kv list rows: %w", err)
	}
	return out, nil
}

func (s *PGStore) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

var _ Store = (*PGStore)(nil)
