package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backend persists encoded sessions keyed by token.
type Backend = scs.CtxStore

var (
	_ Backend = (*MemoryBackend)(nil)
	_ Backend = (*RedisBackend)(nil)
)

type memoryEntry struct {
	data   []byte
	expiry time.Time
}

// MemoryBackend keeps sessions in a bounded in-process LRU. An entry is
// dropped at its scs expiry or after maxAge, whichever comes first.
type MemoryBackend struct {
	cache *expirable.LRU[string, memoryEntry]
}

// NewMemoryBackend creates a MemoryBackend holding at most size sessions.
func NewMemoryBackend(size int, maxAge time.Duration) *MemoryBackend {
	if size <= 0 {
		size = 10000
	}
	return &MemoryBackend{
		cache: expirable.NewLRU[string, memoryEntry](size, nil, maxAge),
	}
}

func (m *MemoryBackend) FindCtx(_ context.Context, token string) ([]byte, bool, error) {
	e, ok := m.cache.Get(token)
	if !ok {
		return nil, false, nil
	}
	if !time.Now().Before(e.expiry) {
		m.cache.Remove(token)
		return nil, false, nil
	}
	return append([]byte(nil), e.data...), true, nil
}

func (m *MemoryBackend) CommitCtx(_ context.Context, token string, b []byte, expiry time.Time) error {
	m.cache.Add(token, memoryEntry{data: append([]byte(nil), b...), expiry: expiry})
	return nil
}

func (m *MemoryBackend) DeleteCtx(_ context.Context, token string) error {
	m.cache.Remove(token)
	return nil
}

func (m *MemoryBackend) Find(token string) ([]byte, bool, error) {
	return m.FindCtx(context.Background(), token)
}

func (m *MemoryBackend) Commit(token string, b []byte, expiry time.Time) error {
	return m.CommitCtx(context.Background(), token, b, expiry)
}

func (m *MemoryBackend) Delete(token string) error {
	return m.DeleteCtx(context.Background(), token)
}

// Len returns the number of stored sessions, expired ones included until
// they are looked up or evicted.
func (m *MemoryBackend) Len() int {
	return m.cache.Len()
}

// RedisBackend stores each session as one Redis string expiring with it.
type RedisBackend struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisBackend wraps an existing client. A nil logger is replaced by a no-op one.
func NewRedisBackend(client *redis.Client, logger *zap.Logger) *RedisBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBackend{
		client: client,
		prefix: "session:",
		logger: logger,
	}
}

// Ping tests the Redis connection.
func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisBackend) key(token string) string {
	return r.prefix + token
}

func (r *RedisBackend) FindCtx(ctx context.Context, token string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, r.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		r.logger.Error("redis get session failed", zap.Error(err))
		return nil, false, fmt.Errorf("redis get session: %w", err)
	}
	return b, true, nil
}

func (r *RedisBackend) CommitCtx(ctx context.Context, token string, b []byte, expiry time.Time) error {
	ttl := time.Until(expiry)
	if ttl <= 0 {
		return r.DeleteCtx(ctx, token)
	}
	if err := r.client.Set(ctx, r.key(token), b, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (r *RedisBackend) DeleteCtx(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, r.key(token)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

func (r *RedisBackend) Find(token string) ([]byte, bool, error) {
	return r.FindCtx(context.Background(), token)
}

func (r *RedisBackend) Commit(token string, b []byte, expiry time.Time) error {
	return r.CommitCtx(context.Background(), token, b, expiry)
}

func (r *RedisBackend) Delete(token string) error {
	return r.DeleteCtx(context.Background(), token)
}
