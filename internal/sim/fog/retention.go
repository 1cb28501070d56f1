package fog

import "time"

// RetentionTracker delays eviction of cells that left the view window so a
// reference point oscillating near a window edge does not thrash the cache.
// A tracked key always has a cache entry; Sweep removes both together.
type RetentionTracker struct {
	leftAt map[CellKey]time.Time
}

func NewRetentionTracker() *RetentionTracker {
	return &RetentionTracker{leftAt: make(map[CellKey]time.Time)}
}

// OnLeaveView marks the key for deferred eviction. Idempotent: an existing
// mark keeps its original timestamp.
func (t *RetentionTracker) OnLeaveView(k CellKey, now time.Time) {
	if _, ok := t.leftAt[k]; ok {
		return
	}
	t.leftAt[k] = now
}

// OnEnterView cancels any pending eviction for the key.
func (t *RetentionTracker) OnEnterView(k CellKey) {
	delete(t.leftAt, k)
}

func (t *RetentionTracker) Marked(k CellKey) bool {
	_, ok := t.leftAt[k]
	return ok
}

func (t *RetentionTracker) Len() int { return len(t.leftAt) }

// Sweep evicts every key whose mark has aged past cooldown, removing the
// cache record and the mark atomically. Returns the number evicted.
func (t *RetentionTracker) Sweep(now time.Time, cooldown time.Duration, cache *CellCache) int {
	evicted := 0
	for k, left := range t.leftAt {
		if now.Sub(left) >= cooldown {
			cache.Delete(k)
			delete(t.leftAt, k)
			evicted++
		}
	}
	return evicted
}
