package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControllerMemoryLimit(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(context.Background(), 50))
	assert.Equal(t, int64(50), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(context.Background(), 40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	// Over the limit: blocks until the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireMemory(ctx, 20), context.DeadlineExceeded)

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(context.Background(), 20))
	assert.Equal(t, int64(60), c.MemoryUsage())
}

func TestControllerMemoryTrackingOnly(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.AcquireMemory(context.Background(), 1000))
	assert.Equal(t, int64(1000), c.MemoryUsage())

	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())
}

func TestControllerRebuildSlots(t *testing.T) {
	c := NewController(Config{MaxBackgroundRebuilds: 2})

	require.NoError(t, c.AcquireRebuild(context.Background()))
	require.NoError(t, c.AcquireRebuild(context.Background()))

	assert.False(t, c.TryAcquireRebuild())

	c.ReleaseRebuild()
	assert.True(t, c.TryAcquireRebuild())
}

func TestControllerIngestRate(t *testing.T) {
	c := NewController(Config{IngestRatePerSec: 1000})

	// The first burst is admitted immediately.
	start := time.Now()
	require.NoError(t, c.WaitIngest(context.Background(), 10))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestControllerNilIsUnlimited(t *testing.T) {
	var c *Controller

	require.NoError(t, c.AcquireMemory(context.Background(), 100))
	c.ReleaseMemory(100)
	assert.Equal(t, int64(0), c.MemoryUsage())

	assert.True(t, c.TryAcquireRebuild())
	c.ReleaseRebuild()

	require.NoError(t, c.WaitIngest(context.Background(), 1000))
}
