package fog

// Window is the pair of concentric cell sets maintained around the reference
// cell. Visible is always a subset of View; the difference is the prefetch
// ring.
type Window struct {
	Visible map[CellKey]struct{}
	View    map[CellKey]struct{}
}

// ComputeWindows sweeps the square of cells within Chebyshev distance
// visibleRadius+prefetchRadius of ref and splits it into the visible core and
// the full view. Negative radii are clamped to zero.
func ComputeWindows(ref CellKey, visibleRadius, prefetchRadius int) Window {
	if visibleRadius < 0 {
		visibleRadius = 0
	}
	if prefetchRadius < 0 {
		prefetchRadius = 0
	}
	viewRadius := visibleRadius + prefetchRadius

	side := 2*viewRadius + 1
	w := Window{
		Visible: make(map[CellKey]struct{}, (2*visibleRadius+1)*(2*visibleRadius+1)),
		View:    make(map[CellKey]struct{}, side*side),
	}
	for dz := -viewRadius; dz <= viewRadius; dz++ {
		for dx := -viewRadius; dx <= viewRadius; dx++ {
			k := CellKey{IX: ref.IX + dx, IZ: ref.IZ + dz}
			w.View[k] = struct{}{}
			if k.Dist(ref) <= visibleRadius {
				w.Visible[k] = struct{}{}
			}
		}
	}
	return w
}

// InView reports membership without requiring a recompute.
func (w Window) InView(k CellKey) bool {
	_, ok := w.View[k]
	return ok
}

func (w Window) InVisible(k CellKey) bool {
	_, ok := w.Visible[k]
	return ok
}
