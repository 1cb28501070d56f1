package fog

import (
	"testing"
	"time"
)

func TestRetentionHysteresis(t *testing.T) {
	base := time.Unix(1000, 0)
	cache := NewCellCache()
	tr := NewRetentionTracker()
	k := CellKey{IX: 1, IZ: 1}
	cache.Set(k, &CellRecord{BuiltAt: base})

	tr.OnLeaveView(k, base)
	if n := tr.Sweep(base.Add(1500*time.Millisecond), 2*time.Second, cache); n != 0 {
		t.Fatalf("swept %d keys before cooldown", n)
	}
	if !cache.Has(k) {
		t.Fatalf("key evicted before cooldown elapsed")
	}

	// Re-entry cancels the mark; a much later sweep must not evict.
	tr.OnEnterView(k)
	if n := tr.Sweep(base.Add(time.Hour), 2*time.Second, cache); n != 0 {
		t.Fatalf("swept %d keys after mark was cancelled", n)
	}
	if !cache.Has(k) {
		t.Fatalf("key evicted despite re-entering the view")
	}
}

func TestEvictionAfterCooldown(t *testing.T) {
	base := time.Unix(1000, 0)
	cache := NewCellCache()
	tr := NewRetentionTracker()
	k := CellKey{IX: -3, IZ: 7}
	cache.Set(k, &CellRecord{BuiltAt: base})

	tr.OnLeaveView(k, base)
	if n := tr.Sweep(base.Add(time.Second), time.Second, cache); n != 1 {
		t.Fatalf("swept %d keys, want 1", n)
	}
	if cache.Has(k) {
		t.Fatalf("cache entry survived eviction")
	}
	if tr.Marked(k) {
		t.Fatalf("retention mark survived eviction")
	}
}

func TestLeaveViewKeepsOriginalMark(t *testing.T) {
	base := time.Unix(1000, 0)
	cache := NewCellCache()
	tr := NewRetentionTracker()
	k := CellKey{}
	cache.Set(k, &CellRecord{BuiltAt: base})

	tr.OnLeaveView(k, base)
	tr.OnLeaveView(k, base.Add(10*time.Second)) // must not reset the clock
	if n := tr.Sweep(base.Add(time.Second), time.Second, cache); n != 1 {
		t.Fatalf("re-marking reset the eviction clock")
	}
}
