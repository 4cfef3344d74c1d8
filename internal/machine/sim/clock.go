package sim

import (
	"sync/atomic"
	"time"
)

// WallClock is the host monotonic clock.
type WallClock struct{}

// NowNanos returns the current time in nanoseconds.
func (WallClock) NowNanos() int64 {
	return time.Now().UnixNano()
}

// ManualClock is a deterministic clock advanced explicitly, used by tests and
// by the deterministic replay mode of the daemon.
type ManualClock struct {
	now atomic.Int64
}

// NowNanos returns the current manual time.
func (c *ManualClock) NowNanos() int64 {
	return c.now.Load()
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.now.Add(int64(d))
}
