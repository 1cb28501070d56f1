package tuning

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"fogbank/internal/sim/fog"
)

type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`

	CellSize            float64 `yaml:"cell_size"`
	VisibleRadius       int     `yaml:"visible_radius"`
	PrefetchRadius      int     `yaml:"prefetch_radius"`
	RaysPerFrame        int     `yaml:"rays_per_frame"`
	RetentionCooldownMs int     `yaml:"retention_cooldown_ms"`
	SamplesPerCell      int     `yaml:"samples_per_cell"`

	TileSize     float64 `yaml:"tile_size"`
	StreamRadius float64 `yaml:"stream_radius"`

	Seed int64 `yaml:"seed"`

	Exclusion *Exclusion `yaml:"exclusion"`
}

type Exclusion struct {
	CenterX float64 `yaml:"center_x"`
	CenterZ float64 `yaml:"center_z"`
	Width   float64 `yaml:"width"`
	Depth   float64 `yaml:"depth"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:          20,
		CellSize:            6,
		VisibleRadius:       5,
		PrefetchRadius:      2,
		RaysPerFrame:        24,
		RetentionCooldownMs: 2000,
		SamplesPerCell:      5,
		TileSize:            32,
		StreamRadius:        96,
		Seed:                1337,
	}
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t.Clamped(), nil
}

// Clamped applies the degenerate-configuration policy: non-positive sizes,
// radii and budgets fall back to safe minimums, NaN to defaults. Never an
// error.
func (t Tuning) Clamped() Tuning {
	def := Defaults()
	if t.TickRateHz <= 0 {
		t.TickRateHz = def.TickRateHz
	}
	if t.CellSize <= 0 || math.IsNaN(t.CellSize) {
		t.CellSize = def.CellSize
	}
	if t.VisibleRadius < 0 {
		t.VisibleRadius = 0
	}
	if t.PrefetchRadius < 0 {
		t.PrefetchRadius = 0
	}
	if t.RaysPerFrame < 1 {
		t.RaysPerFrame = 1
	}
	if t.RetentionCooldownMs < 0 {
		t.RetentionCooldownMs = 0
	}
	if t.SamplesPerCell < 1 {
		t.SamplesPerCell = 1
	}
	if t.TileSize <= 0 || math.IsNaN(t.TileSize) {
		t.TileSize = def.TileSize
	}
	if t.StreamRadius <= 0 || math.IsNaN(t.StreamRadius) {
		t.StreamRadius = def.StreamRadius
	}
	return t
}

// Scheduler maps the tuning surface onto the cache core's config.
func (t Tuning) Scheduler() fog.Config {
	return fog.Config{
		CellSize:          t.CellSize,
		VisibleRadius:     t.VisibleRadius,
		PrefetchRadius:    t.PrefetchRadius,
		RaysPerFrame:      t.RaysPerFrame,
		RetentionCooldown: time.Duration(t.RetentionCooldownMs) * time.Millisecond,
		SamplesPerCell:    t.SamplesPerCell,
	}
}

// ExclusionZone returns the optional exclusion rect, nil when unset or
// degenerate.
func (t Tuning) ExclusionZone() *fog.ExclusionZone {
	e := t.Exclusion
	if e == nil || e.Width <= 0 || e.Depth <= 0 {
		return nil
	}
	return &fog.ExclusionZone{CenterX: e.CenterX, CenterZ: e.CenterZ, Width: e.Width, Depth: e.Depth}
}
