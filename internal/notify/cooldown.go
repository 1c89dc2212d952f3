package notify

import (
	"sync"
	"time"
)

// Cooldown suppresses repeat alerts for the same key within a TTL window. A
// pool that stays executable across many scan cycles would otherwise alert on
// every cycle. It is safe for concurrent use.
type Cooldown struct {
	seen map[string]time.Time // key -> last sent
	ttl  time.Duration
	now  func() time.Time
	mu   sync.Mutex
}

// NewCooldown creates a Cooldown. A non-positive ttl disables suppression.
func NewCooldown(ttl time.Duration) *Cooldown {
	return &Cooldown{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Suppress reports whether key was let through within the TTL. If not, the key
// is recorded and false is returned. Expired keys are pruned on the way.
func (c *Cooldown) Suppress(key string) bool {
	if c.ttl <= 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if last, ok := c.seen[key]; ok && now.Sub(last) < c.ttl {
		return true
	}
	for k, ts := range c.seen {
		if now.Sub(ts) >= c.ttl {
			delete(c.seen, k)
		}
	}
	c.seen[key] = now
	return false
}

// Len returns the number of keys currently held.
func (c *Cooldown) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
