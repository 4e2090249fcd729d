// Package config defines the immutable CoreConfig value the scheduler is
// built from once at construction: a flat struct of primitive fields with
// one DefaultConfig constructor. There is deliberately no global mutable
// configuration singleton anywhere in this tree; every component that
// needs configuration receives its own CoreConfig (or a narrowed view of
// it) explicitly.
package config

import (
	"fmt"
	"strings"
	"time"
)

// NormType selects the vector norm the DETM gate uses to measure state
// deviation.
type NormType string

const (
	NormL2   NormType = "l2"
	NormLInf NormType = "linf"
)

// FirePosition seeds an initial ignition applied at scheduler construction.
type FirePosition struct {
	X, Y      int
	Intensity float64
}

// CoreConfig is the full set of simulation knobs. It is constructed once
// (CoreConfig.Validate must pass), then never mutated;
// runtime overrides (wind, ignitions, docking) go through the scheduler's
// command queue instead.
type CoreConfig struct {
	// Clock
	TickRateHz float64
	RandomSeed int64

	// Fleet
	NumLeaders     int
	NumFollowers   int
	HomeX          float64
	HomeY          float64
	HomeZ          float64
	SensorRangeM   float64
	MinSeparationM float64

	// Grid
	GridWidth  int
	GridHeight int
	CellSizeM  float64

	// Fire
	BaseSpreadMPM            float64
	WindScale                float64
	WindReferenceMS          float64
	IntensityDecay           float64
	SuppressionEffectiveness float64
	IgnitionMinIntensity     float64
	DetectableThreshold      float64
	InitialFirePositions     []FirePosition
	InitialWindSpeedMS       float64
	InitialWindDirectionDeg  float64

	// Channel
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

	// Energy
	BatteryCapacityMAh    float64
	BatteryVoltageV       float64
	DrainPerM             float64
	DrainPerSHover        float64
	BatteryMinPercent     float64
	MaxPayloadUnits       float64
	PayloadPerSuppression float64

	// DETM
	Eta0   float64
	Lambda float64
	Norm   NormType
	MinEta float64

	// Observer
	ObserverAgeHorizonTicks              int
	ObserverMaxLatencyMs                 float64
	ObserverConstantVelocityTimeoutMs    float64
	ObserverAutoRegisterUnknownNeighbors bool

	// Peripheral telemetry relay (not read by the core; consumed by
	// cmd/swarmsimd and internal/telemetry/gossip). Kept alongside the
	// core knobs in one flat struct rather than a second config type.
	GossipFanout              int
	GossipTTL                 int
	DeltaPushInterval         time.Duration
	AntiEntropyInterval       time.Duration
	PeerTimeout               time.Duration
}

// DefaultConfig gives every field a concrete, documented default so a
// zero-config run is still a valid one.
func DefaultConfig() CoreConfig {
	return CoreConfig{
		TickRateHz: 100,
		RandomSeed: 42,

		NumLeaders:     1,
		NumFollowers:   4,
		HomeX:          0,
		HomeY:          0,
		HomeZ:          0,
		SensorRangeM:   30,
		MinSeparationM: 10,

		GridWidth:  100,
		GridHeight: 100,
		CellSizeM:  10,

		BaseSpreadMPM:            10.7,
		WindScale:                0.5,
		WindReferenceMS:          10,
		IntensityDecay:           0.98,
		SuppressionEffectiveness: 0.6,
		IgnitionMinIntensity:     0.3,
		DetectableThreshold:      0.1,
		InitialWindSpeedMS:       0,
		InitialWindDirectionDeg:  0,

		ReferenceDistanceM:   1,
		PathLossExponent:     3.0,
		ReferenceRSSIDBm:     -30,
		MaxRSSIDBm:           0,
		KFactor:              6,
		FadingStdDB:          4,
		SensitivityDBm:       -90,
		BaseLatencyMs:        10,
		LatencyRSSIScale:     5,
		BasePacketLoss:       0.01,
		LossRSSIThresholdDBm: -80,

		BatteryCapacityMAh:    5000,
		BatteryVoltageV:       14.8,
		DrainPerM:             0.02,
		DrainPerSHover:        0.5,
		BatteryMinPercent:     20,
		MaxPayloadUnits:       10,
		PayloadPerSuppression: 1,

		Eta0:   0.5,
		Lambda: 0.1,
		Norm:   NormL2,
		MinEta: 0.05,

		ObserverAgeHorizonTicks:              100,
		ObserverMaxLatencyMs:                 300,
		ObserverConstantVelocityTimeoutMs:    1000,
		ObserverAutoRegisterUnknownNeighbors: true,

		GossipFanout:        3,
		GossipTTL:           4,
		DeltaPushInterval:   1 * time.Second,
		AntiEntropyInterval: 60 * time.Second,
		PeerTimeout:         9 * time.Second,
	}
}

// TickPeriod returns the simulated duration of one tick.
func (c CoreConfig) TickPeriod() time.Duration {
	return time.Duration(float64(time.Second) / c.TickRateHz)
}

// TickPeriodS returns the tick period in floating-point seconds.
func (c CoreConfig) TickPeriodS() float64 {
	return 1.0 / c.TickRateHz
}

// Validate aggregates every fatal configuration-time error: non-positive
// grid dimensions, zero tick rate, an unusable norm.
func (c CoreConfig) Validate() error {
	var problems []string

	if c.TickRateHz <= 0 {
		problems = append(problems, "tick_rate_hz must be > 0")
	}
	if c.GridWidth <= 0 || c.GridHeight <= 0 {
		problems = append(problems, "grid width/height must be > 0")
	}
	if c.CellSizeM <= 0 {
		problems = append(problems, "cell_size_m must be > 0")
	}
	if c.NumLeaders < 0 || c.NumFollowers < 0 {
		problems = append(problems, "num_leaders/num_followers must be >= 0")
	}
	if c.NumLeaders+c.NumFollowers <= 0 {
		problems = append(problems, "at least one drone (leader or follower) is required")
	}
	if c.Norm != NormL2 && c.Norm != NormLInf {
		problems = append(problems, fmt.Sprintf("norm must be %q or %q, got %q", NormL2, NormLInf, c.Norm))
	}
	if c.MaxPayloadUnits <= 0 {
		problems = append(problems, "max_payload_units must be > 0")
	}
	if c.BatteryCapacityMAh <= 0 || c.BatteryVoltageV <= 0 {
		problems = append(problems, "battery_capacity_mah and battery_voltage_v must be > 0")
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("invalid core configuration: %s", strings.Join(problems, "; "))
}

// DroneCount is the total fleet size.
func (c CoreConfig) DroneCount() int {
	return c.NumLeaders + c.NumFollowers
}
