package fog

import (
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		CellSize:          4,
		VisibleRadius:     0,
		PrefetchRadius:    0,
		RaysPerFrame:      16,
		RetentionCooldown: time.Second,
		SamplesPerCell:    5,
	}
}

func TestDuplicateJobsBuildOnce(t *testing.T) {
	surf := &probeSurface{ready: true}
	s := NewScheduler(testConfig(), surf)
	now := time.Unix(1000, 0)
	k := CellKey{IX: 2, IZ: 2}

	// Two jobs for the same key in one tick, budget 3 against a 5-point
	// pattern: the first build is partial, the second job must be a free
	// no-op rather than a completion attempt.
	s.queue.Enqueue(k, now)
	s.queue.Enqueue(k, now)

	var stats TickStats
	s.drain(now, 3, nil, &stats)

	if stats.BuildsCompleted+stats.BuildsPartial != 1 {
		t.Fatalf("built %d times, want exactly 1", stats.BuildsCompleted+stats.BuildsPartial)
	}
	if stats.BuildsPartial != 1 {
		t.Fatalf("expected the single build to be partial")
	}
	if surf.casts != 3 {
		t.Fatalf("cast %d probes, want 3", surf.casts)
	}
	if s.queue.Len() != 0 {
		t.Fatalf("%d residual jobs after drain", s.queue.Len())
	}
	if !s.cache.Has(k) {
		t.Fatalf("key not cached after drain")
	}
}

func TestBudgetConservation(t *testing.T) {
	cfg := testConfig()
	cfg.VisibleRadius = 1
	cfg.PrefetchRadius = 1
	cfg.RaysPerFrame = 7
	surf := &probeSurface{ready: true}
	s := NewScheduler(cfg, surf)

	_, stats := s.Tick(time.Unix(1000, 0), 0, 0, nil)
	if stats.ProbesUsed > 7 {
		t.Fatalf("tick spent %d probes, budget was 7", stats.ProbesUsed)
	}
	// Queue was nonempty and the budget positive: at least one job advanced.
	if stats.BuildsCompleted+stats.BuildsPartial == 0 {
		t.Fatalf("no job advanced despite pending work")
	}
	// 25 view cells spread across ticks; population is progressive, never
	// more than the per-tick budget. Cells that hit the budget mid-build
	// stay partial, so the grand total is at most 25*5.
	total := stats.ProbesUsed
	built := stats.BuildsCompleted + stats.BuildsPartial
	for i := 0; i < 30 && s.QueueLen() > 0; i++ {
		_, st := s.Tick(time.Unix(1001+int64(i), 0), 0, 0, nil)
		if st.ProbesUsed > 7 {
			t.Fatalf("tick %d spent %d probes", i, st.ProbesUsed)
		}
		total += st.ProbesUsed
		built += st.BuildsCompleted + st.BuildsPartial
	}
	if s.QueueLen() != 0 {
		t.Fatalf("queue never drained")
	}
	if built != 25 {
		t.Fatalf("built %d cells, want 25", built)
	}
	if total > 25*5 {
		t.Fatalf("total probes %d exceeds pattern work", total)
	}
}

func TestSurfaceNotReadyIsNoOp(t *testing.T) {
	surf := &probeSurface{ready: false}
	s := NewScheduler(testConfig(), surf)

	points, stats := s.Tick(time.Unix(1000, 0), 0, 0, nil)
	if !stats.SkippedNotReady {
		t.Fatalf("tick against unready surface not reported as skipped")
	}
	if len(points) != 0 || s.CacheLen() != 0 || s.QueueLen() != 0 {
		t.Fatalf("unready tick mutated state")
	}

	// Retried next tick once the surface appears.
	surf.ready = true
	points, stats = s.Tick(time.Unix(1001, 0), 0, 0, nil)
	if stats.SkippedNotReady || len(points) != 5 {
		t.Fatalf("recovery tick: skipped=%v points=%d", stats.SkippedNotReady, len(points))
	}
}

func TestForcedRebuildOnMutation(t *testing.T) {
	surf := &probeSurface{ready: true, rev: 1}
	s := NewScheduler(testConfig(), surf)
	base := time.Unix(1000, 0)

	s.Tick(base, 0, 0, nil)
	if surf.casts != 5 {
		t.Fatalf("initial build cast %d probes, want 5", surf.casts)
	}

	// Stable surface, stable reference: nothing to do.
	_, stats := s.Tick(base.Add(time.Second), 0, 0, nil)
	if stats.ProbesUsed != 0 || stats.ForcedRebuilds != 0 {
		t.Fatalf("idle tick did work: %+v", stats)
	}

	// Revision bump forces evict + re-enqueue of the visible cell even
	// though it was cached.
	surf.rev = 2
	_, stats = s.Tick(base.Add(2*time.Second), 0, 0, nil)
	if stats.ForcedRebuilds != 1 {
		t.Fatalf("forced rebuilds: got %d, want 1", stats.ForcedRebuilds)
	}
	if stats.ProbesUsed != 5 {
		t.Fatalf("rebuild cast %d probes, want 5", stats.ProbesUsed)
	}
}

func TestPartialBuildNotRetried(t *testing.T) {
	cfg := testConfig()
	cfg.RaysPerFrame = 3
	surf := &probeSurface{ready: true}
	s := NewScheduler(cfg, surf)
	base := time.Unix(1000, 0)

	points, stats := s.Tick(base, 0, 0, nil)
	if stats.BuildsPartial != 1 || len(points) != 3 {
		t.Fatalf("first tick: partial=%d points=%d, want 1/3", stats.BuildsPartial, len(points))
	}

	// The partially sampled cell counts as built; no follow-up work.
	points, stats = s.Tick(base.Add(time.Second), 0, 0, nil)
	if stats.ProbesUsed != 0 {
		t.Fatalf("partial cell was retried (%d probes)", stats.ProbesUsed)
	}
	if len(points) != 3 {
		t.Fatalf("aggregate changed on idle tick: %d points", len(points))
	}
}

func TestWindowMoveEnqueuesAndRetains(t *testing.T) {
	cfg := testConfig()
	cfg.RetentionCooldown = 2 * time.Second
	surf := &probeSurface{ready: true}
	s := NewScheduler(cfg, surf)
	base := time.Unix(1000, 0)

	s.Tick(base, 0, 0, nil)
	origin := CellKey{}
	if !s.cache.Has(origin) {
		t.Fatalf("origin cell not built")
	}

	// Move two cells away: origin leaves the 1-cell view, gets marked, but
	// survives until the cooldown elapses.
	s.Tick(base.Add(time.Second), 9, 9, nil)
	if !s.retention.Marked(origin) {
		t.Fatalf("origin not marked after leaving view")
	}
	if !s.cache.Has(origin) {
		t.Fatalf("origin evicted before cooldown")
	}

	// Coming back cancels the mark.
	s.Tick(base.Add(1500*time.Millisecond), 0, 0, nil)
	if s.retention.Marked(origin) {
		t.Fatalf("mark not cancelled on re-entry")
	}
	if !s.cache.Has(origin) {
		t.Fatalf("origin missing after re-entry")
	}

	// Leave again and stay away past the cooldown.
	s.Tick(base.Add(2*time.Second), 9, 9, nil)
	_, stats := s.Tick(base.Add(5*time.Second), 9, 9, nil)
	if s.cache.Has(origin) {
		t.Fatalf("origin survived past retention cooldown")
	}
	if stats.Evicted == 0 {
		t.Fatalf("sweep reported no evictions")
	}
}

func TestDegenerateConfigClamped(t *testing.T) {
	cfg := Config{CellSize: -3, VisibleRadius: -1, PrefetchRadius: -2, RaysPerFrame: 0, RetentionCooldown: -time.Second}
	s := NewScheduler(cfg, &probeSurface{ready: true})
	got := s.Config()
	if got.CellSize != 1 || got.VisibleRadius != 0 || got.PrefetchRadius != 0 || got.RaysPerFrame != 1 || got.RetentionCooldown != 0 {
		t.Fatalf("clamped config: %+v", got)
	}
	// Must still tick without panicking.
	if _, stats := s.Tick(time.Unix(1000, 0), 0, 0, nil); stats.ProbesUsed > 1 {
		t.Fatalf("budget clamp ignored: %d probes", stats.ProbesUsed)
	}
}
