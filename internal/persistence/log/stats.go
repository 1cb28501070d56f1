package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"fogbank/internal/sim/fog"
)

// StatsWriter appends one compressed JSONL entry per tick to a per-run file
// under <dataDir>/stats. Safe for use from the tick loop; the mutex only
// guards against a concurrent Close on shutdown.
type StatsWriter struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

func NewStatsWriter(dataDir string) (*StatsWriter, error) {
	dir := filepath.Join(dataDir, "stats")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, fmt.Sprintf("ticks-%s.jsonl.zst", time.Now().UTC().Format("2006-01-02-150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &StatsWriter{
		f:   f,
		enc: enc,
		w:   bufio.NewWriterSize(enc, 64*1024),
	}, nil
}

func (s *StatsWriter) WriteTick(v fog.TickStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return fmt.Errorf("stats writer closed")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	return s.w.WriteByte('\n')
}

func (s *StatsWriter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return nil
	}
	_ = s.w.Flush()
	err := s.enc.Close()
	_ = s.f.Close()
	s.w = nil
	s.enc = nil
	s.f = nil
	return err
}
