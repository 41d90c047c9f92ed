package onboarding

import (
	"sync"
	"time"
)

// Cooldown throttles repeatable actions, one window per key.
type Cooldown struct {
	period time.Duration
	now    func() time.Time

	mu    sync.Mutex
	until map[string]time.Time
}

// NewCooldown constructs a cooldown with the given window.
func NewCooldown(period time.Duration) *Cooldown {
	return &Cooldown{period: period, now: time.Now, until: map[string]time.Time{}}
}

// Start opens a new window for key.
func (c *Cooldown) Start(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.until[key] = c.now().Add(c.period)
}

// Remaining reports how long key stays throttled; zero means ready.
func (c *Cooldown) Remaining(key string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	deadline, ok := c.until[key]
	if !ok {
		return 0
	}
	rem := deadline.Sub(c.now())
	if rem < 0 {
		return 0
	}
	return rem
}
