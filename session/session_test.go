package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_SetGetHas(t *testing.T) {
	s := New()
	assert.True(t, s.IsNew())
	assert.False(t, s.Has("_token"))

	require.NoError(t, s.Set("_token", []byte("value")))
	assert.True(t, s.Has("_token"))
	assert.True(t, s.Modified())

	v, ok := s.Get("_token")
	require.True(t, ok)
	assert.Equal(t, []byte("value"), v)

	// returned slices are copies
	v[0] = 'X'
	again, _ := s.Get("_token")
	assert.Equal(t, []byte("value"), again)
}

func TestSession_IndependentSessions(t *testing.T) {
	a, b := New(), New()
	require.NoError(t, a.Set("k", []byte("a")))
	assert.False(t, b.Has("k"))
}

func TestSession_Delete(t *testing.T) {
	s := New()
	require.NoError(t, s.Set("k", []byte("v")))

	s.Delete("k")
	assert.False(t, s.Has("k"))
	_, ok := s.Get("k")
	assert.False(t, ok)
}

func TestSession_DestroyRejectsWrites(t *testing.T) {
	s := New()
	require.NoError(t, s.Set("k", []byte("v")))
	require.NoError(t, s.Destroy())

	assert.False(t, s.Has("k"))
	assert.True(t, s.Destroyed())
	assert.ErrorIs(t, s.Set("k", []byte("v")), ErrDestroyed)
}

func TestSession_RenewKeepsData(t *testing.T) {
	s := New()
	require.NoError(t, s.Set("k", []byte("v")))
	require.NoError(t, s.Renew())

	assert.NotEmpty(t, s.ID())
	assert.True(t, s.Has("k"))
}

func TestContext_RoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	s := New()
	got, ok := FromContext(NewContext(context.Background(), s))
	require.True(t, ok)
	assert.Same(t, s, got)
}
