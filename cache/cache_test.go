package cache

import (
	"context"
	"testing"
	"time"

	"urst/models"
	"urst/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLink(code string, expires *time.Time) *models.ShortLink {
	return &models.ShortLink{
		Code:        code,
		OriginalURL: "https://example.org/" + code,
		CreatedAt:   time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		ExpiresAt:   expires,
	}
}

// exercise runs the behaviour every LinkCache must share.
func exercise(t *testing.T, c LinkCache, clock *testutils.Clock) {
	ctx := context.Background()

	_, ok := c.Get(ctx, "missing00")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, sampleLink("AAAAAAAAA", nil)))
	got, ok := c.Get(ctx, "AAAAAAAAA")
	require.True(t, ok)
	assert.Equal(t, "https://example.org/AAAAAAAAA", got.OriginalURL)

	require.NoError(t, c.Delete(ctx, "AAAAAAAAA"))
	_, ok = c.Get(ctx, "AAAAAAAAA")
	assert.False(t, ok)
	assert.NoError(t, c.Delete(ctx, "AAAAAAAAA"))

	soon := clock.Now().Add(time.Hour)
	require.NoError(t, c.Set(ctx, sampleLink("BBBBBBBBB", &soon)))
	_, ok = c.Get(ctx, "BBBBBBBBB")
	assert.True(t, ok)

	clock.Advance(2 * time.Hour)
	_, ok = c.Get(ctx, "BBBBBBBBB")
	assert.False(t, ok, "expired links must not be served from cache")

	require.NoError(t, c.Set(ctx, sampleLink("CCCCCCCCC", nil)))
	require.NoError(t, c.Set(ctx, sampleLink("DDDDDDDDD", nil)))
	require.NoError(t, c.Flush(ctx))
	_, ok = c.Get(ctx, "CCCCCCCCC")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "DDDDDDDDD")
	assert.False(t, ok)
}

func TestBigCacheStore(t *testing.T) {
	clock := testutils.NewClock(time.Now())
	c, err := NewBigCacheStore(time.Minute)
	require.NoError(t, err)
	c.now = clock.Now
	defer c.Close()

	exercise(t, c, clock)
}

func TestRedisStore(t *testing.T) {
	client := testutils.StartRedis(t)
	clock := testutils.NewClock(time.Now())
	c := NewRedisStore(client, time.Hour)
	c.now = clock.Now

	exercise(t, c, clock)

	require.NoError(t, c.Close())
	assert.NoError(t, client.Ping(context.Background()).Err(), "the shared client stays open")
}

func TestRedisStoreSkipsAlreadyExpired(t *testing.T) {
	client := testutils.StartRedis(t)
	c := NewRedisStore(client, time.Hour)
	ctx := context.Background()

	past := time.Now().Add(-time.Second)
	require.NoError(t, c.Set(ctx, sampleLink("EEEEEEEEE", &past)))

	n, err := client.Exists(ctx, keyPrefix+"EEEEEEEEE").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTieredFillsLocalFromShared(t *testing.T) {
	ctx := context.Background()
	local, err := NewBigCacheStore(time.Minute)
	require.NoError(t, err)
	shared, err := NewBigCacheStore(time.Minute)
	require.NoError(t, err)
	tiered := NewTiered(local, shared)

	require.NoError(t, shared.Set(ctx, sampleLink("AAAAAAAAA", nil)))
	_, ok := local.Get(ctx, "AAAAAAAAA")
	require.False(t, ok)

	got, ok := tiered.Get(ctx, "AAAAAAAAA")
	require.True(t, ok)
	assert.Equal(t, "AAAAAAAAA", got.Code)
	_, ok = local.Get(ctx, "AAAAAAAAA")
	assert.True(t, ok, "shared hit is copied into the local tier")

	require.NoError(t, tiered.Delete(ctx, "AAAAAAAAA"))
	_, ok = local.Get(ctx, "AAAAAAAAA")
	assert.False(t, ok)
	_, ok = shared.Get(ctx, "AAAAAAAAA")
	assert.False(t, ok)

	require.NoError(t, tiered.Set(ctx, sampleLink("BBBBBBBBB", nil)))
	require.NoError(t, tiered.Flush(ctx))
	_, ok = tiered.Get(ctx, "BBBBBBBBB")
	assert.False(t, ok)
	assert.Same(t, local, tiered.Local())
}
