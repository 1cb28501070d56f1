package fog

// Surface is the read-only host surface the builder probes. Implementations
// live outside this package (see internal/sim/surface); tests use stubs.
type Surface interface {
	// Ready reports whether the surface can answer queries yet. While false
	// the whole scheduler tick is a no-op.
	Ready() bool
	// TopY is the top of the surface's current bounding volume; probes are
	// cast downward from above it.
	TopY() float64
	// RaycastDown returns the nearest downward hit under (x, z), if any.
	RaycastDown(x, z float64) (Vec3, bool)
	// Revision changes whenever the surface mutates. Providers that can only
	// expose a tile count can wrap it with PollingRevision.
	Revision() uint64
}

// PollingRevision derives a change signal from a bare tile/child count.
// Degraded mode: a mutation that preserves the count goes undetected.
func PollingRevision(tileCount func() int) func() uint64 {
	return func() uint64 { return uint64(uint(tileCount())) }
}

// ExclusionZone is an axis-aligned world-space rectangle whose sample
// targets are skipped at zero budget cost.
type ExclusionZone struct {
	CenterX float64
	CenterZ float64
	Width   float64
	Depth   float64
}

func (e *ExclusionZone) Contains(x, z float64) bool {
	if e == nil || e.Width <= 0 || e.Depth <= 0 {
		return false
	}
	dx := x - e.CenterX
	dz := z - e.CenterZ
	if dx < 0 {
		dx = -dx
	}
	if dz < 0 {
		dz = -dz
	}
	return dx*2 <= e.Width && dz*2 <= e.Depth
}

// SamplePattern is a list of in-cell target offsets in [0,1]^2, probed in
// order up to Active entries.
type SamplePattern struct {
	Offsets [][2]float64
	Active  int
}

// DefaultPattern is the cell center plus the four edge midpoints.
func DefaultPattern(active int) SamplePattern {
	offs := [][2]float64{
		{0.5, 0.5},
		{0.5, 0.0},
		{1.0, 0.5},
		{0.5, 1.0},
		{0.0, 0.5},
	}
	if active < 1 {
		active = 1
	}
	if active > len(offs) {
		active = len(offs)
	}
	return SamplePattern{Offsets: offs, Active: active}
}

func (p SamplePattern) targets() int {
	n := p.Active
	if n < 1 {
		n = 1
	}
	if n > len(p.Offsets) {
		n = len(p.Offsets)
	}
	return n
}

// BuildResult is the outcome of one build call. Complete is false when the
// probe budget ran out before all pattern targets were attempted; the cell
// is still considered built (partial cells are not re-queued).
type BuildResult struct {
	Points     []Vec3
	ProbesUsed int
	Complete   bool
}

// CellBuilder populates one cell by casting downward probes at its pattern
// targets. Excluded targets are skipped for free; every cast probe, hit or
// miss, costs one unit of budget.
type CellBuilder struct {
	CellSize float64
}

func (b *CellBuilder) Build(key CellKey, rayBudget int, surf Surface, excl *ExclusionZone, pattern SamplePattern) BuildResult {
	res := BuildResult{Complete: true}
	if rayBudget <= 0 {
		res.Complete = false
		return res
	}
	size := b.CellSize
	if size <= 0 {
		size = 1
	}
	baseX := float64(key.IX) * size
	baseZ := float64(key.IZ) * size

	n := pattern.targets()
	for i := 0; i < n; i++ {
		wx := baseX + pattern.Offsets[i][0]*size
		wz := baseZ + pattern.Offsets[i][1]*size
		if excl.Contains(wx, wz) {
			continue
		}
		if res.ProbesUsed == rayBudget {
			res.Complete = false
			break
		}
		res.ProbesUsed++
		if p, ok := surf.RaycastDown(wx, wz); ok {
			res.Points = append(res.Points, p)
		}
	}
	return res
}
