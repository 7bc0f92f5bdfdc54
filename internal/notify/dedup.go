package notify

import (
	"sync"
	"time"
)

// DedupCache suppresses repeat alerts for the same (instrument, metric) key
// inside a time window. It is safe for concurrent use and bounded in size;
// when full, the oldest entry is evicted.
type DedupCache struct {
	mu      sync.Mutex
	window  time.Duration
	maxSize int
	entries map[string]time.Time
	now     func() time.Time
}

func NewDedupCache(window time.Duration, maxSize int) *DedupCache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &DedupCache{
		window:  window,
		maxSize: maxSize,
		entries: make(map[string]time.Time, maxSize),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (c *DedupCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if now != nil {
		c.now = now
	}
}

// ShouldSend records the key and reports whether an alert for it may go out.
// A key seen within the window is suppressed without refreshing its slot, so
// a steady stream of repeats still expires on schedule.
func (c *DedupCache) ShouldSend(instrumentID, metric string) bool {
	key := instrumentID + "|" + metric
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if sent, ok := c.entries[key]; ok && now.Sub(sent) < c.window {
		return false
	}
	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = now
	return true
}

func (c *DedupCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	first := true
	for key, t := range c.entries {
		if first || t.Before(oldest) {
			oldestKey, oldest = key, t
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Len reports current occupancy.
func (c *DedupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
