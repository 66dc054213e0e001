//go:build integration

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhil/chapterhub/internal/testhelpers"
)

func TestRedisFixedWindow(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: testhelpers.StartRedis(t)})
	t.Cleanup(func() { client.Close() })
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 12, 0, 10, 0, time.UTC)
	r := NewRedis(client, 2, time.Minute)
	r.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		d, err := r.Allow(ctx, "tm-1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	d, err := r.Allow(ctx, "tm-1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 1, 0, 0, time.UTC), d.ResetAt.UTC())

	// a second limiter sharing the server sees the same window
	other := NewRedis(client, 2, time.Minute)
	other.now = r.now
	d, err = other.Allow(ctx, "tm-1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	d, err = other.Allow(ctx, "tm-2")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	ttl, err := client.TTL(ctx, "chapterhub:ratelimit:tm-2:"+slotOf(now, time.Minute)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	now = now.Add(time.Minute)
	d, err = r.Allow(ctx, "tm-1")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "next window")
}
