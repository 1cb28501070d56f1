package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"fogbank/internal/persistence/indexdb"
	persistlog "fogbank/internal/persistence/log"
	"fogbank/internal/protocol"
	"fogbank/internal/sim/fog"
	"fogbank/internal/sim/surface"
	"fogbank/internal/sim/tuning"
	"fogbank/internal/transport/observer"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "http listen address")
		configDir   = flag.String("configs", "./configs", "config directory")
		tuningPath  = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir     = flag.String("data", "./data", "runtime data directory")
		seed        = flag.Int64("seed", 0, "surface seed override (0: use tuning)")
		disableDB   = flag.Bool("disable_db", false, "disable the sqlite tick-stats index")
		orbitRadius = flag.Float64("orbit_radius", 40, "observer orbit radius")
		orbitPeriod = flag.Float64("orbit_period", 90, "observer orbit period, seconds")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[fogd] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}
	if *seed != 0 {
		tune.Seed = *seed
	}

	_ = os.MkdirAll(*dataDir, 0o755)

	terrain := surface.NewTerrain(tune.Seed, tune.TileSize)
	sched := fog.NewScheduler(tune.Scheduler(), terrain)
	excl := tune.ExclusionZone()

	statsWriter, err := persistlog.NewStatsWriter(*dataDir)
	if err != nil {
		logger.Fatalf("open stats writer: %v", err)
	}
	defer statsWriter.Close()

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.SetMeta("seed", fmt.Sprintf("%d", tune.Seed)); err != nil {
			logger.Printf("index meta: %v", err)
		}
	}

	welcome, err := protocol.EncodeWelcome(tune.TickRateHz, tune.CellSize, tune.VisibleRadius, tune.PrefetchRadius, tune.Seed)
	if err != nil {
		logger.Fatalf("encode welcome: %v", err)
	}
	obs := observer.NewServer(logger, welcome)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/observe", obs.WSHandler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		logger.Printf("listening on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dt := 1.0 / float64(tune.TickRateHz)
	interval := time.Second / time.Duration(tune.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Printf("seed=%d cell=%v window=%d+%d rays/frame=%d", tune.Seed, tune.CellSize, tune.VisibleRadius, tune.PrefetchRadius, tune.RaysPerFrame)

	var tickN uint64
	for {
		select {
		case <-ctx.Done():
			logger.Printf("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			_ = srv.Shutdown(shutdownCtx)
			cancel()
			return
		case <-ticker.C:
			x, z := orbitAt(float64(tickN)*dt, *orbitRadius, *orbitPeriod)
			tickN++

			// Stream the host surface around the observer; the scheduler
			// notices the resulting revision bumps on its own.
			terrain.EnsureAround(x, z, tune.StreamRadius)
			terrain.ReleaseBeyond(x, z, tune.StreamRadius*1.5)

			points, stats := sched.Tick(time.Now(), x, z, excl)

			frame, err := protocol.EncodeFrame(points, stats)
			if err != nil {
				logger.Printf("encode frame: %v", err)
				continue
			}
			obs.Broadcast(frame)
			if err := statsWriter.WriteTick(stats); err != nil {
				logger.Printf("stats: %v", err)
			}
			idx.IndexTick(stats)

			if stats.Tick%uint64(tune.TickRateHz*10) == 0 {
				logger.Printf("tick=%d cells=%d queue=%d points=%d observers=%d",
					stats.Tick, stats.CachedCells, stats.QueueLen, stats.VisiblePoints, obs.SessionCount())
			}
		}
	}
}

func orbitAt(t, radius, period float64) (x, z float64) {
	if period <= 0 {
		period = 90
	}
	a := 2 * math.Pi * t / period
	return radius * math.Cos(a), radius * math.Sin(a)
}
