// Package kv is the key-value persistence used for analysis records.
// Values are opaque strings; a Set on an existing key replaces the value.
package kv

import (
	"context"
	"errors"
	"sort"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("kv: not found")

// Entry is a key with its stored value.
type Entry struct {
	Key   string
	Value string
}

// Store persists string values under string keys.
type Store interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	List(ctx context.Context, prefix string) ([]Entry, error)
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
}
