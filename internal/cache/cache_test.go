package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyDeterministic(t *testing.T) {
	k1 := Key(NamespaceCampaignRevenue, "SELECT 1", int64(42), "2018-01-01")
	k2 := Key(NamespaceCampaignRevenue, "SELECT 1", int64(42), "2018-01-01")
	assert.Equal(t, k1, k2)
}

func TestKeySensitiveToInputs(t *testing.T) {
	base := Key(NamespaceCampaignRevenue, "SELECT 1", int64(42))

	assert.NotEqual(t, base, Key(NamespaceCampaignRevenue, "SELECT 2", int64(42)))
	assert.NotEqual(t, base, Key(NamespaceCampaignRevenue, "SELECT 1", int64(43)))
	assert.NotEqual(t, base, Key(NamespaceDashboardRevenue, "SELECT 1", int64(42)))
}

func TestKeyCarriesNamespacePrefix(t *testing.T) {
	k := Key(NamespaceDashboardRevenue, "SELECT 1")
	assert.Contains(t, k, NamespaceDashboardRevenue+":")
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	val, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), val)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), -time.Second))
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFilesystemCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFilesystemCache(t.TempDir())
	require.NoError(t, err)

	key := Key(NamespaceCampaignRevenue, "SELECT cost FROM contact_ledger", int64(1))

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, key, []byte(`[{"label":"2018-01-01"}]`), time.Minute))
	val, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`[{"label":"2018-01-01"}]`), val)
}

func TestFilesystemCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFilesystemCache(t.TempDir())
	require.NoError(t, err)

	key := Key(NamespaceDashboardRevenue, "SELECT 1")
	require.NoError(t, c.Set(ctx, key, []byte("stale"), -time.Second))

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFilesystemCacheOverwrite(t *testing.T) {
	ctx := context.Background()
	c, err := NewFilesystemCache(t.TempDir())
	require.NoError(t, err)

	key := Key(NamespaceCampaignRevenue, "SELECT 1")
	require.NoError(t, c.Set(ctx, key, []byte("first"), time.Minute))
	require.NoError(t, c.Set(ctx, key, []byte("second"), time.Minute))

	val, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("second"), val)
}
