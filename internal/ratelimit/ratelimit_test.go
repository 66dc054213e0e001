package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFixedWindow(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory(2, time.Minute)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	d, err := m.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	d, _ = m.Allow(ctx, "a")
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, _ = m.Allow(ctx, "a")
	assert.False(t, d.Allowed)
	assert.Equal(t, now.Add(time.Minute), d.ResetAt)

	// other keys have their own window
	d, _ = m.Allow(ctx, "b")
	assert.True(t, d.Allowed)

	now = now.Add(time.Minute)
	d, _ = m.Allow(ctx, "a")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
}

func TestMemorySweepDropsExpiredWindows(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory(5, time.Second)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		_, err := m.Allow(ctx, k)
		require.NoError(t, err)
	}
	require.Len(t, m.windows, 3)

	now = now.Add(2 * time.Second)
	_, err := m.Allow(ctx, "d")
	require.NoError(t, err)
	assert.Len(t, m.windows, 1)
}
