// Package telemetry defines the gated, dot-stamped records the gossip
// relay disseminates: one TelemetryDeltaEntry per DETM-accepted
// transmission, journaled into a TelemetryDelta for anti-entropy
// exchange. Each entry journals one per-drone state update.
package telemetry

import "github.com/aerosyn-sim/swarmcore/internal/telemetry/crdt"

// DronePoint is the position/velocity snapshot a gated transmission
// carries — the wire-shape twin of domain.DronePose, kept separate so
// this package never imports internal/domain and stays usable standalone
// by the relay tier.
type DronePoint struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
	Vx float64 `json:"vx"`
	Vy float64 `json:"vy"`
	Vz float64 `json:"vz"`
}

// TelemetryMeta carries the bookkeeping and drone-state fields a relay
// replica needs beyond raw position: when the update was gated through,
// the DETM deviation norm that triggered it, and a snapshot of the sending
// drone's mission state at send time.
type TelemetryMeta struct {
	TimeUs         int64   `json:"time_us"`
	Tick           uint64  `json:"tick"`
	DetmErrNorm    float64 `json:"detm_err_norm"`
	BatteryPercent float64 `json:"battery_percent"`
	PayloadUnits   float64 `json:"payload_units"`
	State          string  `json:"state"`
	FireDetected   bool    `json:"fire_detected"`
	FireIntensity  float64 `json:"fire_intensity"`
	AvgRSSIDbm     float64 `json:"avg_rssi_dbm"`
}

// TelemetryDeltaEntry is one dot-stamped, gated transmission.
type TelemetryDeltaEntry struct {
	Dot    crdt.Dot      `json:"dot"`
	Drone  string        `json:"drone"`
	Point  DronePoint    `json:"point"`
	Meta   TelemetryMeta `json:"meta"`
}

// TelemetryDelta is the journaled, causally-contextualized slice of
// TelemetryDeltaEntry values a gossip push carries to one peer.
type TelemetryDelta struct {
	Context crdt.DotContext       `json:"context"`
	Entries []TelemetryDeltaEntry `json:"entries"`
}

// Sink is what the core publishes gated transmissions into; the gossip
// relay and the websocket hub are its two implementations, kept
// interchangeable so cmd/swarmsimd can wire either, both, or neither.
type Sink interface {
	Publish(entry TelemetryDeltaEntry)
}

// FanoutSink publishes one entry to every wrapped Sink, so the scheduler
// can feed both the websocket hub and the CRDT-backed gossip Store from
// a single SetTelemetrySink call.
type FanoutSink struct {
	Sinks []Sink
}

func (f FanoutSink) Publish(entry TelemetryDeltaEntry) {
	for _, sink := range f.Sinks {
		sink.Publish(entry)
	}
}
