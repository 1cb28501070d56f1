package main

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"flag"
	"fmt"
	"hash"
	"log"
	"math"
	"os"
	"time"

	"fogbank/internal/sim/fog"
	"fogbank/internal/sim/surface"
	"fogbank/internal/sim/tuning"
)

// fogsim drives the sampling cache headlessly on a synthetic clock and
// prints a digest of every tick's visible points. Two runs with the same
// seed and tuning must print the same digest.
func main() {
	var (
		ticks       = flag.Int("ticks", 600, "ticks to simulate")
		seed        = flag.Int64("seed", 0, "surface seed override (0: use tuning)")
		tuningPath  = flag.String("tuning", "", "path to tuning.yaml (empty: defaults)")
		orbitRadius = flag.Float64("orbit_radius", 40, "observer orbit radius")
		orbitPeriod = flag.Float64("orbit_period", 90, "observer orbit period, seconds")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[fogsim] ", 0)

	tune := tuning.Defaults()
	if *tuningPath != "" {
		var err error
		tune, err = tuning.Load(*tuningPath)
		if err != nil {
			logger.Fatalf("load tuning: %v", err)
		}
	}
	if *seed != 0 {
		tune.Seed = *seed
	}

	terrain := surface.NewTerrain(tune.Seed, tune.TileSize)
	sched := fog.NewScheduler(tune.Scheduler(), terrain)
	excl := tune.ExclusionZone()

	dt := 1.0 / float64(tune.TickRateHz)
	clock := time.Unix(0, 0)
	h := sha256.New()

	var totalProbes, totalBuilds, totalEvicted, maxCells, maxPoints int
	for i := 0; i < *ticks; i++ {
		t := float64(i) * dt
		a := 2 * math.Pi * t / *orbitPeriod
		x := *orbitRadius * math.Cos(a)
		z := *orbitRadius * math.Sin(a)

		terrain.EnsureAround(x, z, tune.StreamRadius)
		terrain.ReleaseBeyond(x, z, tune.StreamRadius*1.5)

		clock = clock.Add(time.Duration(dt * float64(time.Second)))
		points, stats := sched.Tick(clock, x, z, excl)

		digestTick(h, stats.Tick, points)
		totalProbes += stats.ProbesUsed
		totalBuilds += stats.BuildsCompleted + stats.BuildsPartial
		totalEvicted += stats.Evicted
		if stats.CachedCells > maxCells {
			maxCells = stats.CachedCells
		}
		if stats.VisiblePoints > maxPoints {
			maxPoints = stats.VisiblePoints
		}
	}

	logger.Printf("ticks=%d probes=%d builds=%d evicted=%d max_cells=%d max_points=%d",
		*ticks, totalProbes, totalBuilds, totalEvicted, maxCells, maxPoints)
	fmt.Printf("digest %s\n", hex.EncodeToString(h.Sum(nil)))
}

func digestTick(h hash.Hash, tick uint64, points []fog.Vec3) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], tick)
	_, _ = h.Write(buf[:])
	for _, p := range points {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(p.X))
		_, _ = h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(p.Y))
		_, _ = h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(p.Z))
		_, _ = h.Write(buf[:])
	}
}
