package indexdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"fogbank/internal/sim/fog"
)

// SQLiteIndex is a read-model of per-tick scheduler stats for offline
// inspection. It never holds cache contents; a fresh run starts from an
// empty (or new) database without affecting the sim.
type SQLiteIndex struct {
	db *sql.DB

	ch     chan fog.TickStats
	wg     sync.WaitGroup
	closed atomic.Bool
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Buffered so a slow disk never stalls the tick loop.
		ch: make(chan fog.TickStats, 8192),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads; NORMAL is a decent
	// durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			cached_cells INTEGER NOT NULL,
			queue_len INTEGER NOT NULL,
			probes_used INTEGER NOT NULL,
			builds_completed INTEGER NOT NULL,
			builds_partial INTEGER NOT NULL,
			evicted INTEGER NOT NULL,
			forced_rebuilds INTEGER NOT NULL,
			visible_points INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
	}
	for _, q := range stmts {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) loop() {
	for st := range s.ch {
		raw, _ := json.Marshal(st)
		_, err := s.db.Exec(
			`INSERT OR REPLACE INTO ticks
			 (tick, cached_cells, queue_len, probes_used, builds_completed, builds_partial, evicted, forced_rebuilds, visible_points, raw_json)
			 VALUES (?,?,?,?,?,?,?,?,?,?)`,
			st.Tick, st.CachedCells, st.QueueLen, st.ProbesUsed,
			st.BuildsCompleted, st.BuildsPartial, st.Evicted, st.ForcedRebuilds,
			st.VisiblePoints, string(raw),
		)
		if err != nil {
			// Index writes are best-effort; the sim never depends on them.
			continue
		}
	}
}

// IndexTick queues a stats row; drops it if the index is closing or the
// buffer is full.
func (s *SQLiteIndex) IndexTick(st fog.TickStats) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- st:
	default:
	}
}

// SetMeta records a run parameter (seed, tuning digest, ...).
func (s *SQLiteIndex) SetMeta(key, value string) error {
	if s == nil {
		return nil
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?,?)`, key, value)
	return err
}

// TickRow reads one indexed row back; mainly for tests and tooling.
func (s *SQLiteIndex) TickRow(tick uint64) (fog.TickStats, bool, error) {
	var raw string
	err := s.db.QueryRow(`SELECT raw_json FROM ticks WHERE tick = ?`, tick).Scan(&raw)
	if err == sql.ErrNoRows {
		return fog.TickStats{}, false, nil
	}
	if err != nil {
		return fog.TickStats{}, false, err
	}
	var st fog.TickStats
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return fog.TickStats{}, false, err
	}
	return st, true, nil
}

func (s *SQLiteIndex) Close() error {
	if s == nil {
		return nil
	}
	if s.closed.Swap(true) {
		return nil
	}
	close(s.ch)
	s.wg.Wait()
	return s.db.Close()
}
