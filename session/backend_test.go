package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRedisBackend(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisBackend(client, zaptest.NewLogger(t)), mr
}

func TestMemoryBackend_CommitFindDelete(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(10, time.Hour)

	_, found, err := b.FindCtx(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, found)

	in := []byte("abc")
	require.NoError(t, b.CommitCtx(ctx, "tok", in, time.Now().Add(time.Hour)))
	in[0] = 'X'

	out, found, err := b.Find("tok")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("abc"), out)
	assert.Equal(t, 1, b.Len())

	require.NoError(t, b.Delete("tok"))
	_, found, _ = b.FindCtx(ctx, "tok")
	assert.False(t, found)
}

func TestMemoryBackend_HonoursExpiry(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(10, time.Hour)
	require.NoError(t, b.CommitCtx(ctx, "tok", []byte("v"), time.Now().Add(-time.Second)))

	_, found, err := b.FindCtx(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, b.Len())
}

func TestMemoryBackend_MaxAge(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(10, 20*time.Millisecond)
	require.NoError(t, b.CommitCtx(ctx, "tok", []byte("v"), time.Now().Add(time.Hour)))

	time.Sleep(50 * time.Millisecond)

	_, found, _ := b.FindCtx(ctx, "tok")
	assert.False(t, found)
}

func TestRedisBackend_CommitFindDelete(t *testing.T) {
	ctx := context.Background()
	b, mr := newTestRedisBackend(t)
	require.NoError(t, b.Ping(ctx))

	_, found, err := b.FindCtx(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, b.Commit("tok", []byte("abc"), time.Now().Add(time.Minute)))
	assert.True(t, mr.Exists("session:tok"))
	assert.InDelta(t, time.Minute.Seconds(), mr.TTL("session:tok").Seconds(), 1)

	out, found, err := b.Find("tok")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("abc"), out)

	require.NoError(t, b.Delete("tok"))
	assert.False(t, mr.Exists("session:tok"))
}

func TestRedisBackend_ExpiredSessionIsNotFound(t *testing.T) {
	ctx := context.Background()
	b, mr := newTestRedisBackend(t)

	require.NoError(t, b.CommitCtx(ctx, "tok", []byte("v"), time.Now().Add(time.Second)))
	mr.FastForward(2 * time.Second)

	_, found, err := b.FindCtx(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisBackend_PastExpiryDeletes(t *testing.T) {
	ctx := context.Background()
	b, mr := newTestRedisBackend(t)
	require.NoError(t, mr.Set("session:tok", "old"))

	require.NoError(t, b.CommitCtx(ctx, "tok", []byte("v"), time.Now().Add(-time.Second)))
	assert.False(t, mr.Exists("session:tok"))
}

func TestRedisBackend_ConnectionError(t *testing.T) {
	ctx := context.Background()
	b, mr := newTestRedisBackend(t)
	mr.Close()

	_, found, err := b.FindCtx(ctx, "tok")
	require.Error(t, err)
	assert.False(t, found)
}
