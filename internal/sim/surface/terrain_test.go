package surface

import "testing"

func TestHeightDeterministic(t *testing.T) {
	a := NewTerrain(1337, 32)
	b := NewTerrain(1337, 32)
	c := NewTerrain(99, 32)

	same := 0
	for i := 0; i < 16; i++ {
		x := float64(i*13) - 80
		z := float64(i*7) - 40
		if a.HeightAt(x, z) != b.HeightAt(x, z) {
			t.Fatalf("same seed disagrees at (%v,%v)", x, z)
		}
		if a.HeightAt(x, z) == c.HeightAt(x, z) {
			same++
		}
	}
	if same == 16 {
		t.Fatalf("different seeds produced an identical field")
	}
}

func TestStreamingRevision(t *testing.T) {
	tr := NewTerrain(1, 32)
	if tr.Ready() {
		t.Fatalf("terrain ready before any tile loaded")
	}
	if _, ok := tr.RaycastDown(0, 0); ok {
		t.Fatalf("probe answered with no resident tiles")
	}

	loaded := tr.EnsureAround(0, 0, 64)
	if loaded == 0 || !tr.Ready() {
		t.Fatalf("EnsureAround loaded nothing")
	}
	rev := tr.Revision()
	if rev == 0 {
		t.Fatalf("load did not bump revision")
	}

	// Idempotent: nothing new in the same area, revision stable.
	if n := tr.EnsureAround(0, 0, 64); n != 0 {
		t.Fatalf("second EnsureAround loaded %d tiles", n)
	}
	if tr.Revision() != rev {
		t.Fatalf("no-op load bumped revision")
	}

	hit, ok := tr.RaycastDown(5, -5)
	if !ok {
		t.Fatalf("probe missed over a resident tile")
	}
	if hit.X != 5 || hit.Z != -5 {
		t.Fatalf("hit at wrong column: %+v", hit)
	}
	if hit.Y != tr.HeightAt(5, -5) {
		t.Fatalf("hit height diverges from field")
	}

	// Far probe is a miss, not an error.
	if _, ok := tr.RaycastDown(10000, 10000); ok {
		t.Fatalf("probe hit an unloaded tile")
	}
}

func TestReleaseBeyond(t *testing.T) {
	tr := NewTerrain(1, 32)
	tr.EnsureAround(0, 0, 64)
	before := tr.TileCount()
	rev := tr.Revision()

	// Move far away, keep only the new neighbourhood.
	tr.EnsureAround(1000, 1000, 64)
	released := tr.ReleaseBeyond(1000, 1000, 64)
	if released == 0 {
		t.Fatalf("nothing released after relocating")
	}
	if tr.Revision() <= rev {
		t.Fatalf("release did not bump revision")
	}
	if tr.TileCount() >= before+released {
		t.Fatalf("tile count did not shrink: %d", tr.TileCount())
	}
	for _, k := range tr.ResidentTileKeys() {
		if k.TX < 20 {
			t.Fatalf("stale tile %+v survived release", k)
		}
	}
}

func TestTopYCoversResidentTiles(t *testing.T) {
	tr := NewTerrain(7, 32)
	tr.EnsureAround(0, 0, 96)
	top := tr.TopY()
	for i := 0; i < 32; i++ {
		x := float64(i*9) - 96
		z := float64(i*5) - 64
		if h, ok := tr.RaycastDown(x, z); ok && h.Y > top+1e-6 {
			t.Fatalf("surface height %v above reported top %v", h.Y, top)
		}
	}
}
