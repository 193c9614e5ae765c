package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteCache {
	t.Helper()
	c, err := NewSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	require.NoError(t, c.Migrate(context.Background()))
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSQLiteRoundTrip(t *testing.T) {
	c := newTestSQLite(t)
	ctx := context.Background()

	key := Key("pack", "1세대 1주택 비과세 요건")
	require.NoError(t, c.Set(ctx, key, []byte(`{"evidence":[]}`), time.Hour))

	value, found, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"evidence":[]}`, string(value))
}

func TestSQLiteMiss(t *testing.T) {
	c := newTestSQLite(t)

	_, found, err := c.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLiteExpiryWithSimulatedClock(t *testing.T) {
	c := newTestSQLite(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 6*time.Hour))

	// still fresh just before the deadline
	now = now.Add(6*time.Hour - time.Second)
	_, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)

	// expired at the deadline
	now = now.Add(time.Second)
	_, found, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLiteOverwrite(t *testing.T) {
	c := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("old"), time.Hour))
	require.NoError(t, c.Set(ctx, "k", []byte("new"), time.Hour))

	value, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "new", string(value))
}

func TestSQLiteDelete(t *testing.T) {
	c := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Hour))
	require.NoError(t, c.Delete(ctx, "k"))

	_, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	// deleting again is fine
	require.NoError(t, c.Delete(ctx, "k"))
}

func TestSQLitePurge(t *testing.T) {
	c := newTestSQLite(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })

	require.NoError(t, c.Set(ctx, "stale", []byte("v"), time.Minute))
	require.NoError(t, c.Set(ctx, "fresh", []byte("v"), time.Hour))

	now = now.Add(30 * time.Minute)
	require.NoError(t, c.Purge(ctx))

	_, found, err := c.Get(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = c.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestKeyDeterministic(t *testing.T) {
	k1 := Key("search", "양도소득세 비과세", "hometax.go.kr")
	k2 := Key("search", " 양도소득세 비과세 ", "HOMETAX.GO.KR")
	assert.Equal(t, k1, k2)
	assert.Contains(t, k1, "search:")

	k3 := Key("search", "다른 검색어", "hometax.go.kr")
	assert.NotEqual(t, k1, k3)

	// parts must not collapse across boundaries
	assert.NotEqual(t, Key("c", "ab", "c"), Key("c", "a", "bc"))
}
