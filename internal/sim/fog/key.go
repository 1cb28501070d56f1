package fog

import "fogbank/internal/sim/mathx"

// CellKey addresses one square ground cell of side cellSize, anchored at the
// world origin.
type CellKey struct {
	IX int
	IZ int
}

// KeyAt returns the cell containing the world position (x, z).
func KeyAt(x, z, cellSize float64) CellKey {
	if cellSize <= 0 {
		cellSize = 1
	}
	return CellKey{
		IX: floorToInt(x / cellSize),
		IZ: floorToInt(z / cellSize),
	}
}

// Center returns the world-space center of the cell.
func (k CellKey) Center(cellSize float64) (x, z float64) {
	return (float64(k.IX) + 0.5) * cellSize, (float64(k.IZ) + 0.5) * cellSize
}

// Dist is the Chebyshev distance to another cell.
func (k CellKey) Dist(o CellKey) int {
	return mathx.Chebyshev(k.IX, k.IZ, o.IX, o.IZ)
}

func floorToInt(v float64) int {
	i := int(v)
	if v < 0 && float64(i) != v {
		i--
	}
	return i
}

// Vec3 is a world-space sample point.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}
