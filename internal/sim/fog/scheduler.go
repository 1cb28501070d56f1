package fog

import (
	"math"
	"sort"
	"time"
)

// Config is the construction-time surface of the scheduler. Degenerate
// values are clamped, never rejected.
type Config struct {
	CellSize          float64
	VisibleRadius     int
	PrefetchRadius    int
	RaysPerFrame      int
	RetentionCooldown time.Duration
	SamplesPerCell    int
}

func (c Config) clamped() Config {
	if c.CellSize <= 0 || math.IsNaN(c.CellSize) {
		c.CellSize = 1
	}
	if c.VisibleRadius < 0 {
		c.VisibleRadius = 0
	}
	if c.PrefetchRadius < 0 {
		c.PrefetchRadius = 0
	}
	if c.RaysPerFrame < 1 {
		c.RaysPerFrame = 1
	}
	if c.RetentionCooldown < 0 {
		c.RetentionCooldown = 0
	}
	return c
}

// TickStats summarizes one scheduler tick for the stats sinks.
type TickStats struct {
	Tick            uint64 `json:"tick"`
	CachedCells     int    `json:"cached_cells"`
	QueueLen        int    `json:"queue_len"`
	ProbesUsed      int    `json:"probes_used"`
	BuildsCompleted int    `json:"builds_completed"`
	BuildsPartial   int    `json:"builds_partial"`
	Evicted         int    `json:"evicted"`
	ForcedRebuilds  int    `json:"forced_rebuilds"`
	VisiblePoints   int    `json:"visible_points"`
	SkippedNotReady bool   `json:"skipped_not_ready,omitempty"`
}

// Scheduler owns the cache, queue, retention tracker and current window, and
// advances them once per tick. All state is confined to the tick loop.
type Scheduler struct {
	cfg     Config
	surf    Surface
	builder CellBuilder
	pattern SamplePattern

	cache     *CellCache
	queue     *BuildQueue
	retention *RetentionTracker
	window    Window

	haveWindow   bool
	refCell      CellKey
	lastRevision uint64
	haveRevision bool

	tick       uint64
	version    uint64
	aggVersion uint64
	aggregate  []Vec3
}

func NewScheduler(cfg Config, surf Surface) *Scheduler {
	cfg = cfg.clamped()
	return &Scheduler{
		cfg:       cfg,
		surf:      surf,
		builder:   CellBuilder{CellSize: cfg.CellSize},
		pattern:   DefaultPattern(cfg.SamplesPerCell),
		cache:     NewCellCache(),
		queue:     NewBuildQueue(),
		retention: NewRetentionTracker(),
	}
}

func (s *Scheduler) Config() Config { return s.cfg }

// Tick runs the three scheduler phases and returns the flattened visible
// sample points for the consumer. If the surface is not ready the tick is a
// no-op and is retried next tick.
func (s *Scheduler) Tick(now time.Time, refX, refZ float64, excl *ExclusionZone) ([]Vec3, TickStats) {
	s.tick++
	stats := TickStats{Tick: s.tick}

	if s.surf == nil || !s.surf.Ready() {
		stats.SkippedNotReady = true
		return nil, stats
	}

	ref := KeyAt(refX, refZ, s.cfg.CellSize)

	rev := s.surf.Revision()
	mutated := s.haveRevision && rev != s.lastRevision
	s.lastRevision = rev
	s.haveRevision = true

	// Phase A: window maintenance.
	if !s.haveWindow || ref != s.refCell || mutated {
		s.window = ComputeWindows(ref, s.cfg.VisibleRadius, s.cfg.PrefetchRadius)
		s.refCell = ref
		s.haveWindow = true

		missing := make([]CellKey, 0, len(s.window.View))
		for k := range s.window.View {
			s.retention.OnEnterView(k)
			if !s.cache.Has(k) {
				missing = append(missing, k)
			}
		}
		// Nearest cells first, then coordinate order: keeps population
		// deterministic and fills the visible core before the prefetch ring.
		sortByDist(missing, ref)
		for _, k := range missing {
			s.queue.Enqueue(k, now)
		}
		s.cache.ForEachKey(func(k CellKey) {
			if !s.window.InView(k) {
				s.retention.OnLeaveView(k, now)
			}
		})
		if mutated {
			// Stale samples from before the mutation must not linger in the
			// visible core; evict and rebuild them this tick. Duplicate jobs
			// are resolved at drain time.
			stale := make([]CellKey, 0, len(s.window.Visible))
			for k := range s.window.Visible {
				stale = append(stale, k)
			}
			sortByDist(stale, ref)
			for _, k := range stale {
				s.cache.Delete(k)
				s.queue.Enqueue(k, now)
				stats.ForcedRebuilds++
			}
		}
		s.version++
	}

	// Phase B: retention sweep.
	stats.Evicted = s.retention.Sweep(now, s.cfg.RetentionCooldown, s.cache)

	// Phase C: budgeted population.
	s.drain(now, s.cfg.RaysPerFrame, excl, &stats)

	points := s.VisiblePoints()
	stats.CachedCells = s.cache.Len()
	stats.QueueLen = s.queue.Len()
	stats.VisiblePoints = len(points)
	return points, stats
}

func sortByDist(keys []CellKey, ref CellKey) {
	sort.Slice(keys, func(i, j int) bool {
		di, dj := keys[i].Dist(ref), keys[j].Dist(ref)
		if di != dj {
			return di < dj
		}
		if keys[i].IX != keys[j].IX {
			return keys[i].IX < keys[j].IX
		}
		return keys[i].IZ < keys[j].IZ
	})
}

// drain pops jobs FIFO until the probe budget is spent or the queue empties.
// A job for an already-cached key is a free no-op; unused budget rolls over
// to the next job within the same call.
func (s *Scheduler) drain(now time.Time, budget int, excl *ExclusionZone, stats *TickStats) {
	for budget > 0 {
		job, ok := s.queue.Pop()
		if !ok {
			return
		}
		if s.cache.Has(job.Key) {
			continue
		}
		res := s.builder.Build(job.Key, budget, s.surf, excl, s.pattern)
		budget -= res.ProbesUsed
		s.cache.Set(job.Key, &CellRecord{Points: res.Points, BuiltAt: now})
		stats.ProbesUsed += res.ProbesUsed
		if res.Complete {
			stats.BuildsCompleted++
		} else {
			stats.BuildsPartial++
		}
		s.version++
	}
}

// VisiblePoints flattens the records of every cached visible cell. The
// aggregate is recomputed only when the version counter advanced, in sorted
// key order so runs are reproducible.
func (s *Scheduler) VisiblePoints() []Vec3 {
	if s.version == s.aggVersion {
		return s.aggregate
	}
	keys := make([]CellKey, 0, len(s.window.Visible))
	for k := range s.window.Visible {
		if s.cache.Has(k) {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].IX != keys[j].IX {
			return keys[i].IX < keys[j].IX
		}
		return keys[i].IZ < keys[j].IZ
	})
	s.aggregate = s.aggregate[:0]
	for _, k := range keys {
		rec, _ := s.cache.Get(k)
		s.aggregate = append(s.aggregate, rec.Points...)
	}
	s.aggVersion = s.version
	return s.aggregate
}

// CacheLen and QueueLen expose sizes for tests and stats.
func (s *Scheduler) CacheLen() int { return s.cache.Len() }
func (s *Scheduler) QueueLen() int { return s.queue.Len() }
