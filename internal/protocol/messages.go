package protocol

import (
	"encoding/json"

	"fogbank/internal/sim/fog"
)

// SubscribeMsg is the observer handshake. Observers must send it first.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}

// WelcomeMsg answers a successful subscribe with the run parameters an
// observer needs to interpret frames.
type WelcomeMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	TickRateHz      int     `json:"tick_rate_hz"`
	CellSize        float64 `json:"cell_size"`
	VisibleRadius   int     `json:"visible_radius"`
	PrefetchRadius  int     `json:"prefetch_radius"`
	Seed            int64   `json:"seed"`
}

// FrameMsg carries one tick's flattened visible anchor points.
type FrameMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	Tick            uint64        `json:"tick"`
	Count           int           `json:"count"`
	Points          [][3]float64  `json:"points"`
	Stats           fog.TickStats `json:"stats"`
}

func EncodeFrame(points []fog.Vec3, stats fog.TickStats) ([]byte, error) {
	m := FrameMsg{
		Type:            TypeFrame,
		ProtocolVersion: Version,
		Tick:            stats.Tick,
		Count:           len(points),
		Points:          make([][3]float64, len(points)),
		Stats:           stats,
	}
	for i, p := range points {
		m.Points[i] = [3]float64{p.X, p.Y, p.Z}
	}
	return json.Marshal(m)
}

func EncodeWelcome(tickRateHz int, cellSize float64, visibleRadius, prefetchRadius int, seed int64) ([]byte, error) {
	return json.Marshal(WelcomeMsg{
		Type:            TypeWelcome,
		ProtocolVersion: Version,
		TickRateHz:      tickRateHz,
		CellSize:        cellSize,
		VisibleRadius:   visibleRadius,
		PrefetchRadius:  prefetchRadius,
		Seed:            seed,
	})
}
