// Package resource enforces limits on memory, background work and ingest
// throughput. A nil *Controller disables all limits, so callers never need
// to branch on whether limits are configured.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits. Zero values disable the respective limit.
type Config struct {
	// MemoryLimitBytes bounds the vector memory the database may hold. If 0,
	// usage is tracked but not limited.
	MemoryLimitBytes int64

	// MaxBackgroundRebuilds bounds concurrent background index rebuilds.
	// Defaults to 1.
	MaxBackgroundRebuilds int64

	// IngestRatePerSec bounds record inserts per second. If 0, inserts are
	// not throttled.
	IngestRatePerSec int64
}

// Controller applies the limits in Config.
type Controller struct {
	memSem  *semaphore.Weighted // nil when only tracking
	memUsed atomic.Int64

	rebuildSem *semaphore.Weighted

	ingestLimiter *rate.Limiter
}

// NewController creates a controller for the given limits.
func NewController(cfg Config) *Controller {
	if cfg.MaxBackgroundRebuilds <= 0 {
		cfg.MaxBackgroundRebuilds = 1
	}

	c := &Controller{
		rebuildSem: semaphore.NewWeighted(cfg.MaxBackgroundRebuilds),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}
	if cfg.IngestRatePerSec > 0 {
		c.ingestLimiter = rate.NewLimiter(rate.Limit(cfg.IngestRatePerSec), int(cfg.IngestRatePerSec))
	}

	return c
}

// AcquireMemory reserves bytes of managed memory. When a hard limit is
// configured this blocks until memory frees up or ctx is cancelled.
func (c *Controller) AcquireMemory(ctx context.Context, bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if err := c.memSem.Acquire(ctx, bytes); err != nil {
			return err
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory returns previously reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the currently reserved memory in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// TryAcquireRebuild reserves a background rebuild slot without blocking.
func (c *Controller) TryAcquireRebuild() bool {
	if c == nil {
		return true
	}
	return c.rebuildSem.TryAcquire(1)
}

// AcquireRebuild reserves a background rebuild slot, blocking until one is
// free or ctx is cancelled.
func (c *Controller) AcquireRebuild(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.rebuildSem.Acquire(ctx, 1)
}

// ReleaseRebuild returns a background rebuild slot.
func (c *Controller) ReleaseRebuild() {
	if c == nil {
		return
	}
	c.rebuildSem.Release(1)
}

// WaitIngest blocks until the ingest limiter admits n records or ctx is
// cancelled.
func (c *Controller) WaitIngest(ctx context.Context, n int) error {
	if c == nil || c.ingestLimiter == nil {
		return nil
	}
	return c.ingestLimiter.WaitN(ctx, n)
}
