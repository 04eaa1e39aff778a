package testutil

import (
	"sync"
	"time"

	"github.com/hupe1980/vramcache/frametimer"
)

// Clock is a manually advanced clock for frametimer.WithClock.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

// NewClock creates a clock at a fixed instant.
func NewClock() *Clock {
	return &Clock{t: time.Unix(1_700_000_000, 0)}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// CountingTimer reports the budget exceeded once it has been asked
// ExceededAfter times. A zero ExceededAfter never expires.
type CountingTimer struct {
	ExceededAfter int
	Checks        int
	Sections      []frametimer.Section
}

// IsTimeBudgetExceededForSection implements scheduler.FrameTimer.
func (t *CountingTimer) IsTimeBudgetExceededForSection(s frametimer.Section) bool {
	t.Checks++
	t.Sections = append(t.Sections, s)
	return t.ExceededAfter > 0 && t.Checks >= t.ExceededAfter
}
