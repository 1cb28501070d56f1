package surface

import "fogbank/internal/sim/mathx"

// HeightAt is the ground height of the procedural field at (x, z). Pure and
// deterministic for a given seed; tiles only gate where probes may ask.
func (t *Terrain) HeightAt(x, z float64) float64 {
	// Long swell plus two octaves of lattice value noise.
	h := t.valueNoise(x/96, z/96, 0) * 14
	h += t.valueNoise(x/24, z/24, 1) * 5
	h += t.valueNoise(x/6, z/6, 2) * 1.2
	return h
}

func (t *Terrain) valueNoise(u, v float64, octave int64) float64 {
	iu := floorToInt(u)
	iv := floorToInt(v)
	fu := u - float64(iu)
	fv := v - float64(iv)

	seed := t.seed + octave*0x51ed2701

	c00 := mathx.Unit01(mathx.Hash2(seed, iu, iv))
	c10 := mathx.Unit01(mathx.Hash2(seed, iu+1, iv))
	c01 := mathx.Unit01(mathx.Hash2(seed, iu, iv+1))
	c11 := mathx.Unit01(mathx.Hash2(seed, iu+1, iv+1))

	su := smooth(fu)
	sv := smooth(fv)
	top := c00 + (c10-c00)*su
	bot := c01 + (c11-c01)*su
	return top + (bot-top)*sv
}

func smooth(f float64) float64 {
	return f * f * (3 - 2*f)
}
