package surface

import (
	"sort"

	"fogbank/internal/sim/fog"
	"fogbank/internal/sim/mathx"
)

// TileKey addresses one streamed surface tile.
type TileKey struct {
	TX int
	TZ int
}

// Tile is one resident square of the ground surface. Heights are answered
// analytically from the noise field; the tile caches its vertical extent for
// the bounding-volume query.
type Tile struct {
	TX, TZ int
	MinY   float64
	MaxY   float64
}

// Terrain is a procedurally generated heightfield streamed in fixed-size
// tiles around the observer. It implements fog.Surface: probes only answer
// over resident tiles, and the revision counter bumps on every tile load and
// release. Accessed only from the tick loop.
type Terrain struct {
	seed     int64
	tileSize float64

	tiles    map[TileKey]*Tile
	revision uint64

	topY     float64
	topDirty bool
}

func NewTerrain(seed int64, tileSize float64) *Terrain {
	if tileSize <= 0 {
		tileSize = 32
	}
	return &Terrain{
		seed:     seed,
		tileSize: tileSize,
		tiles:    make(map[TileKey]*Tile),
	}
}

func (t *Terrain) Ready() bool      { return len(t.tiles) > 0 }
func (t *Terrain) TileCount() int   { return len(t.tiles) }
func (t *Terrain) Revision() uint64 { return t.revision }
func (t *Terrain) TileSize() float64 { return t.tileSize }

func (t *Terrain) TopY() float64 {
	if t.topDirty {
		top := 0.0
		first := true
		for _, ti := range t.tiles {
			if first || ti.MaxY > top {
				top = ti.MaxY
				first = false
			}
		}
		t.topY = top
		t.topDirty = false
	}
	return t.topY
}

// RaycastDown reports the surface hit under (x, z), or a miss when the
// covering tile is not resident.
func (t *Terrain) RaycastDown(x, z float64) (fog.Vec3, bool) {
	k := t.keyAt(x, z)
	if _, ok := t.tiles[k]; !ok {
		return fog.Vec3{}, false
	}
	return fog.Vec3{X: x, Y: t.HeightAt(x, z), Z: z}, true
}

func (t *Terrain) keyAt(x, z float64) TileKey {
	return TileKey{TX: floorToInt(x / t.tileSize), TZ: floorToInt(z / t.tileSize)}
}

// EnsureAround loads every missing tile whose square is within radius of
// (x, z). Returns the number of tiles loaded.
func (t *Terrain) EnsureAround(x, z, radius float64) int {
	if radius < 0 {
		radius = 0
	}
	c := t.keyAt(x, z)
	r := int(radius/t.tileSize) + 1
	loaded := 0
	for dz := -r; dz <= r; dz++ {
		for dx := -r; dx <= r; dx++ {
			k := TileKey{TX: c.TX + dx, TZ: c.TZ + dz}
			if _, ok := t.tiles[k]; ok {
				continue
			}
			t.tiles[k] = t.generateTile(k)
			loaded++
		}
	}
	if loaded > 0 {
		t.revision++
		t.topDirty = true
	}
	return loaded
}

// ReleaseBeyond drops tiles farther than radius (tile Chebyshev distance)
// from (x, z). Returns the number released.
func (t *Terrain) ReleaseBeyond(x, z, radius float64) int {
	c := t.keyAt(x, z)
	r := int(radius/t.tileSize) + 1
	released := 0
	for k := range t.tiles {
		if mathx.Chebyshev(k.TX, k.TZ, c.TX, c.TZ) > r {
			delete(t.tiles, k)
			released++
		}
	}
	if released > 0 {
		t.revision++
		t.topDirty = true
	}
	return released
}

// ResidentTileKeys returns the loaded tiles in deterministic order.
func (t *Terrain) ResidentTileKeys() []TileKey {
	keys := make([]TileKey, 0, len(t.tiles))
	for k := range t.tiles {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].TX != keys[j].TX {
			return keys[i].TX < keys[j].TX
		}
		return keys[i].TZ < keys[j].TZ
	})
	return keys
}

// heightSlack pads the coarse tile extent so the exact field between sample
// columns stays inside the reported bounding volume.
const heightSlack = 4.0

func (t *Terrain) generateTile(k TileKey) *Tile {
	ti := &Tile{TX: k.TX, TZ: k.TZ}
	// Coarse 5x5 sweep plus slack is enough for a bounding extent; probes
	// answer from the exact field.
	baseX := float64(k.TX) * t.tileSize
	baseZ := float64(k.TZ) * t.tileSize
	first := true
	for iz := 0; iz <= 4; iz++ {
		for ix := 0; ix <= 4; ix++ {
			h := t.HeightAt(baseX+float64(ix)*t.tileSize/4, baseZ+float64(iz)*t.tileSize/4)
			if first {
				ti.MinY, ti.MaxY = h, h
				first = false
				continue
			}
			if h < ti.MinY {
				ti.MinY = h
			}
			if h > ti.MaxY {
				ti.MaxY = h
			}
		}
	}
	ti.MinY -= heightSlack
	ti.MaxY += heightSlack
	return ti
}

func floorToInt(v float64) int {
	i := int(v)
	if v < 0 && float64(i) != v {
		i--
	}
	return i
}
