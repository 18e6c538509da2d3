package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of *redis.Client used by RedisStore.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

// RedisStore implements Store on Redis strings.
type RedisStore struct {
	Client    RedisClient
	ScanCount int64
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(client RedisClient) *RedisStore {
	return &RedisStore{Client: client, ScanCount: 100}
}

// NewRedisClient opens a client and verifies it with PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.Client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("kv get %s: %w", key, err)
	}
	return val, nil
}

// List scans for prefix* and fetches the values in one MGET per page.
func (s *RedisStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	match := globEscape(prefix) + "*"
	count := s.ScanCount
	if count <= 0 {
		count = 100
	}

	seen := make(map[string]struct{})
	var out []Entry
	var cursor uint64
	for {
		keys, next, err := s.Client.Scan(ctx, cursor, match, count).Result()
		if err != nil {
			return nil, fmt.Errorf("kv scan %s: %w", prefix, err)
		}
		var fresh []string
		for _, k := range keys {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			fresh = append(fresh, k)
		}
		if len(fresh) > 0 {
			vals, err := s.Client.MGet(ctx, fresh...).Result()
			if err != nil {
				return nil, fmt.Errorf("kv mget: %w", err)
			}
			for i, v := range vals {
				str, ok := v.(string)
				if !ok {
					continue
				}
				out = append(out, Entry{Key: fresh[i], Value: str})
			}
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	sortEntries(out)
	return out, nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func globEscape(s string) string {
	return globEscaper.Replace(s)
}

var _ Store = (*RedisStore)(nil)
