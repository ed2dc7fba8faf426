// Package cache holds the single-slot hand-off between the sampler and the
// aggregator.
package cache

import (
	"sync"

	"github.com/Dicklesworthstone/sysmoni/internal/model"
)

// Latest keeps only the most recent snapshot. A slow reader silently misses
// intermediate samples.
type Latest struct {
	mu     sync.Mutex
	val    model.Snapshot
	ok     bool
	unread bool
}

func New() *Latest { return &Latest{} }

// Store overwrites the slot and reports whether it replaced a value that was
// never read.
func (c *Latest) Store(s model.Snapshot) (dropped bool) {
	c.mu.Lock()
	dropped = c.unread
	c.val, c.ok, c.unread = s, true, true
	c.mu.Unlock()
	return dropped
}

// Load returns the latest value without clearing it.
func (c *Latest) Load() (model.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unread = false
	return c.val, c.ok
}

// Take returns the latest value and empties the slot.
func (c *Latest) Take() (model.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.val, c.ok
	c.val, c.ok, c.unread = model.Snapshot{}, false, false
	return s, ok
}
