package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attest-ml/go-attest/internal/domain"
)

func testSnapshot(records int) domain.MetricsSnapshot {
	return domain.MetricsSnapshot{
		TotalRecords: records,
		ComputedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewMemory()

	_, ok, err := c.GetSnapshot(ctx, "window:1:2")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetSnapshot(ctx, "window:1:2", testSnapshot(7), 0))

	got, ok, err := c.GetSnapshot(ctx, "window:1:2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 7, got.TotalRecords)
}

func TestMemoryExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewMemory()

	require.NoError(t, c.SetSnapshot(ctx, "window:1:2", testSnapshot(1), time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, ok, err := c.GetSnapshot(ctx, "window:1:2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryInvalidatePrefix(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewMemory()

	require.NoError(t, c.SetSnapshot(ctx, "window:1:2", testSnapshot(1), 0))
	require.NoError(t, c.SetSnapshot(ctx, "window:3:4", testSnapshot(2), 0))
	require.NoError(t, c.SetSnapshot(ctx, "other:1", testSnapshot(3), 0))

	require.NoError(t, c.Invalidate(ctx, "window:"))

	_, ok, err := c.GetSnapshot(ctx, "window:1:2")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = c.GetSnapshot(ctx, "window:3:4")
	require.NoError(t, err)
	assert.False(t, ok)

	// Keys outside the prefix survive.
	_, ok, err = c.GetSnapshot(ctx, "other:1")
	require.NoError(t, err)
	assert.True(t, ok)
}
