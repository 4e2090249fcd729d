// Package rfchannel implements the ChannelMatrix RF link model:
// log-distance path loss, Gaussian-approximated Rice/Nakagami fading,
// RSSI, link quality, packet loss, and latency for every ordered drone
// pair. It replaces a binary alive/dead probe with an explicit physical
// link model: distance and fading jointly drive a continuous loss
// probability and latency estimate instead of a timeout-based decision.
package rfchannel

import (
	"math"
	"math/rand"
)

// Config is the subset of config.CoreConfig the channel model needs.
type Config struct {
	ReferenceDistanceM   float64
	PathLossExponent     float64
	ReferenceRSSIDBm     float64
	MaxRSSIDBm           float64
	KFactor              float64
	FadingStdDB          float64
	SensitivityDBm       float64
	BaseLatencyMs        float64
	LatencyRSSIScale     float64
	BasePacketLoss       float64
	LossRSSIThresholdDBm float64
	Seed                 int64
}

// LinkState is the computed RF state of one ordered drone pair for the
// current tick.
type LinkState struct {
	DistanceM    float64
	RSSIDBm      float64
	LinkQuality  float64 // 0..1
	PacketLoss   float64 // 0..1 probability
	LatencyMs    float64
	Connected    bool
}

// Matrix computes link states for drone pairs; it keeps no per-pair
// state (the scheduler stores each tick's results). It holds no drone
// identity of its own — callers pass positions in by
// value each tick, keeping this package free of a dependency on
// internal/domain.
type Matrix struct {
	cfg Config
	rng *rand.Rand
}

// New builds a Matrix seeded from cfg.Seed, offset so the channel's
// fading draws never collide with the fire grid's spread draws when both
// are seeded from the same run seed.
func New(cfg Config) *Matrix {
	return &Matrix{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed + 1))}
}

// Evaluate computes the link state between two positions, distanceM
// apart, for the current tick. Distance is passed explicitly by the
// caller (the scheduler, which owns drone poses) rather than recomputed
// here from stored state.
func (m *Matrix) Evaluate(distanceM float64) LinkState {
	if distanceM < m.cfg.ReferenceDistanceM {
		distanceM = m.cfg.ReferenceDistanceM
	}

	pathLossDB := 10 * m.cfg.PathLossExponent * math.Log10(distanceM/m.cfg.ReferenceDistanceM)
	fadingDB := m.riceFadingDB()

	rssi := m.cfg.ReferenceRSSIDBm - pathLossDB + fadingDB
	if rssi > m.cfg.MaxRSSIDBm {
		rssi = m.cfg.MaxRSSIDBm
	}

	quality := m.linkQuality(rssi)
	loss := m.packetLoss(rssi)
	latency := m.latencyMs(rssi)
	connected := rssi >= m.cfg.SensitivityDBm

	return LinkState{
		DistanceM:   distanceM,
		RSSIDBm:     rssi,
		LinkQuality: quality,
		PacketLoss:  loss,
		LatencyMs:   latency,
		Connected:   connected,
	}
}

// riceFadingDB approximates Rice/Nakagami small-scale fading as a
// zero-mean Gaussian in the dB domain with the configured standard
// deviation. KFactor is stored on Config but is not part of LinkState
// and does not reshape this draw — the configured FadingStdDB is the
// only dial for fading variance.
func (m *Matrix) riceFadingDB() float64 {
	return m.rng.NormFloat64() * m.cfg.FadingStdDB
}

// linkQuality maps RSSI linearly between the sensitivity floor (0) and
// the reference RSSI (1), clamped to [0, 1].
func (m *Matrix) linkQuality(rssi float64) float64 {
	span := m.cfg.ReferenceRSSIDBm - m.cfg.SensitivityDBm
	if span <= 0 {
		return 0
	}
	q := (rssi - m.cfg.SensitivityDBm) / span
	if q < 0 {
		return 0
	}
	if q > 1 {
		return 1
	}
	return q
}

// packetLoss rises from BasePacketLoss towards 1 as RSSI falls below the
// configured threshold, and floors at BasePacketLoss above it.
func (m *Matrix) packetLoss(rssi float64) float64 {
	if rssi >= m.cfg.LossRSSIThresholdDBm {
		return m.cfg.BasePacketLoss
	}
	deficitDB := m.cfg.LossRSSIThresholdDBm - rssi
	loss := m.cfg.BasePacketLoss + (1-m.cfg.BasePacketLoss)*(1-math.Exp(-deficitDB/10))
	if loss > 1 {
		loss = 1
	}
	return loss
}

// latencyMs grows as RSSI degrades (more retransmissions/backoff), with
// a fixed base latency floor.
func (m *Matrix) latencyMs(rssi float64) float64 {
	deficitDB := m.cfg.ReferenceRSSIDBm - rssi
	if deficitDB < 0 {
		deficitDB = 0
	}
	return m.cfg.BaseLatencyMs + deficitDB*m.cfg.LatencyRSSIScale
}

// Distance3 is a small helper shared by every caller that needs Euclidean
// distance between two 3-vectors (drone poses).
func Distance3(a, b [3]float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
