package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerSetGet(t *testing.T) {
	m, err := NewManager(8, nil, nil)
	require.NoError(t, err)

	ctx := context.Background()
	_, ok := m.Get(ctx, "missing")
	assert.False(t, ok)

	m.Set(ctx, "k", []byte("body"), time.Minute)
	got, ok := m.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "body", string(got))

	stats := m.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.False(t, stats.Redis)
}

func TestManagerSkipsNonPositiveTTL(t *testing.T) {
	m, err := NewManager(8, nil, nil)
	require.NoError(t, err)

	m.Set(context.Background(), "k", []byte("body"), 0)
	_, ok := m.Get(context.Background(), "k")
	assert.False(t, ok)
}

func TestManagerExpiresEntries(t *testing.T) {
	m, err := NewManager(8, nil, nil)
	require.NoError(t, err)

	ctx := context.Background()
	m.Set(ctx, "short", []byte("a"), time.Millisecond)
	m.Set(ctx, "long", []byte("b"), time.Hour)
	time.Sleep(5 * time.Millisecond)

	assert.Equal(t, 1, m.Cleanup())
	_, ok := m.Get(ctx, "short")
	assert.False(t, ok)
	_, ok = m.Get(ctx, "long")
	assert.True(t, ok)
}

func TestKeyIsStable(t *testing.T) {
	assert.Equal(t, Key("/movie/popular", "page=1"), Key("/movie/popular", "page=1"))
	assert.NotEqual(t, Key("/movie/popular", "page=1"), Key("/movie/popular", "page=2"))
}
