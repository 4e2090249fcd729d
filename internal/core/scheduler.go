// Package core implements the Scheduler: the single owner of every
// table (fire grid, channel matrix, per-drone energy/DETM/observer
// state) and the one place that advances simulated time. No other
// package holds a pointer into another subsystem's internals —
// everything is looked up by handle through the Scheduler, to avoid
// cyclic package references. One process owns every subsystem and
// drives it from a single deterministic step function rather than a
// goroutine-per-subsystem model.
package core

import (
	"math"

	"github.com/aerosyn-sim/swarmcore/internal/agent"
	"github.com/aerosyn-sim/swarmcore/internal/config"
	"github.com/aerosyn-sim/swarmcore/internal/corelog"
	"github.com/aerosyn-sim/swarmcore/internal/deploy"
	"github.com/aerosyn-sim/swarmcore/internal/detm"
	"github.com/aerosyn-sim/swarmcore/internal/domain"
	"github.com/aerosyn-sim/swarmcore/internal/energy"
	"github.com/aerosyn-sim/swarmcore/internal/fire"
	"github.com/aerosyn-sim/swarmcore/internal/observer"
	"github.com/aerosyn-sim/swarmcore/internal/rfchannel"
	"github.com/aerosyn-sim/swarmcore/internal/simclock"
	"github.com/aerosyn-sim/swarmcore/internal/stigmergy"
	"github.com/aerosyn-sim/swarmcore/internal/telemetry"
	"github.com/aerosyn-sim/swarmcore/internal/telemetry/crdt"
)

// droneRecord is the Scheduler's private per-drone table row. Nothing
// outside this package ever sees a *droneRecord; agent.Step only ever
// sees the value types it declares (domain.DronePose, domain.AgentState)
// through Context and WorldView.
type droneRecord struct {
	id              domain.DroneId
	kind            domain.DroneKind
	pose            domain.DronePose
	state           domain.AgentState
	bank            *energy.Bank
	gate            *detm.Gate
	obs             *observer.Observer
	walker          *agent.LevyWalker
	formationOffset [3]float64

	pendingDistanceM float64
}

// Scheduler owns every simulation table and is the sole mutator of
// simulated time.
type Scheduler struct {
	cfg       config.CoreConfig
	clock     *simclock.Clock
	fireGrid  *fire.Grid
	channel   *rfchannel.Matrix
	pheromone *stigmergy.Grid
	logger    corelog.Logger

	drones   []*droneRecord
	byID     map[domain.DroneId]*droneRecord
	leaderID domain.DroneId
	hasLeader bool

	commandQueue []Command
	running      bool
	paused       bool

	sink         telemetry.Sink
	telemetryCtx *crdt.DotContext

	linkMatrix []LinkRecord
}

// SetTelemetrySink wires a downstream telemetry consumer (the websocket
// hub, the gossip dissemination layer, or both via a small fan-out
// Sink) to receive every DETM-gated transmission. Optional: a nil sink
// (the default) means gated transmissions are computed but not
// published anywhere, which is enough for tests that only care about
// the physical simulation.
func (s *Scheduler) SetTelemetrySink(sink telemetry.Sink) {
	s.sink = sink
}

// NewScheduler validates cfg and builds a fully-wired Scheduler: fire
// grid with any configured initial ignitions, a channel matrix, a
// pheromone grid, and one droneRecord per configured drone, placed via
// internal/deploy's seeded k-means scatter.
func NewScheduler(cfg config.CoreConfig, logger corelog.Logger) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = corelog.Nop{}
	}

	s := &Scheduler{
		cfg:    cfg,
		clock:  simclock.New(cfg.TickPeriod()),
		logger: logger,
		byID:   make(map[domain.DroneId]*droneRecord),
		telemetryCtx: crdt.NewDotContext(),
	}

	s.fireGrid = fire.New(fire.Config{
		Width:                    cfg.GridWidth,
		Height:                   cfg.GridHeight,
		CellSizeM:                cfg.CellSizeM,
		BaseSpreadMPM:            cfg.BaseSpreadMPM,
		WindScale:                cfg.WindScale,
		WindReferenceMS:          cfg.WindReferenceMS,
		IntensityDecay:           cfg.IntensityDecay,
		SuppressionEffectiveness: cfg.SuppressionEffectiveness,
		IgnitionMinIntensity:     cfg.IgnitionMinIntensity,
		DetectableThreshold:      cfg.DetectableThreshold,
		TickPeriodS:              cfg.TickPeriodS(),
		Seed:                     cfg.RandomSeed,
	})
	s.fireGrid.SetWind(cfg.InitialWindSpeedMS, cfg.InitialWindDirectionDeg)
	for _, fp := range cfg.InitialFirePositions {
		s.fireGrid.Ignite(fp.X, fp.Y, fp.Intensity, 0)
	}

	s.channel = rfchannel.New(rfchannel.Config{
		ReferenceDistanceM:   cfg.ReferenceDistanceM,
		PathLossExponent:     cfg.PathLossExponent,
		ReferenceRSSIDBm:     cfg.ReferenceRSSIDBm,
		MaxRSSIDBm:           cfg.MaxRSSIDBm,
		KFactor:              cfg.KFactor,
		FadingStdDB:          cfg.FadingStdDB,
		SensitivityDBm:       cfg.SensitivityDBm,
		BaseLatencyMs:        cfg.BaseLatencyMs,
		LatencyRSSIScale:     cfg.LatencyRSSIScale,
		BasePacketLoss:       cfg.BasePacketLoss,
		LossRSSIThresholdDBm: cfg.LossRSSIThresholdDBm,
		Seed:                 cfg.RandomSeed,
	})

	s.pheromone = stigmergy.New(cfg.GridWidth, cfg.GridHeight, 0.97)

	s.spawnFleet()
	s.wireObserverNeighbors()

	return s, nil
}

// wireObserverNeighbors explicitly registers every drone's observer with
// every other drone's ID, so Predict/CollisionRisks have a table entry
// to age in (at zero confidence) even before the first DETM-gated
// transmission ever reaches a given pair.
func (s *Scheduler) wireObserverNeighbors() {
	for _, rec := range s.drones {
		for _, other := range s.drones {
			if other.id == rec.id {
				continue
			}
			rec.obs.Register(int(other.id))
		}
	}
}

func (s *Scheduler) spawnFleet() {
	positions := deploy.InitialPositions(deploy.Config{
		GridWidth:    s.cfg.GridWidth,
		GridHeight:   s.cfg.GridHeight,
		CellSizeM:    s.cfg.CellSizeM,
		HomeX:        s.cfg.HomeX,
		HomeY:        s.cfg.HomeY,
		HomeZ:        s.cfg.HomeZ,
		NumLeaders:   s.cfg.NumLeaders,
		NumFollowers: s.cfg.NumFollowers,
		Seed:         s.cfg.RandomSeed,
	})

	id := domain.DroneId(0)
	followerIndex := 0
	for i := 0; i < s.cfg.NumLeaders; i++ {
		s.addDrone(id, domain.Leader, positions[int(id)], [3]float64{})
		if !s.hasLeader {
			s.leaderID = id
			s.hasLeader = true
		}
		id++
	}
	for i := 0; i < s.cfg.NumFollowers; i++ {
		offset := formationOffsetFor(followerIndex, s.cfg.MinSeparationM)
		s.addDrone(id, domain.Follower, positions[int(id)], offset)
		id++
		followerIndex++
	}
}

// formationOffsetFor lays followers out on a ring around the leader,
// spaced MinSeparationM apart so Formation holding never violates the
// minimum-separation invariant on its own.
func formationOffsetFor(index int, minSeparationM float64) [3]float64 {
	const ring = 6
	angle := float64(index%ring) / float64(ring) * 2 * math.Pi
	radius := minSeparationM * (1 + float64(index/ring)*0.5)
	return [3]float64{radius * math.Cos(angle), radius * math.Sin(angle), 0}
}

func (s *Scheduler) addDrone(id domain.DroneId, kind domain.DroneKind, pos domain.DronePose, formationOffset [3]float64) {
	rec := &droneRecord{
		id:   id,
		kind: kind,
		pose: pos,
		state: func() domain.AgentState {
			if kind == domain.Leader {
				return domain.Search
			}
			return domain.Formation
		}(),
		bank: energy.New(energy.Config{
			BatteryCapacityMAh:    s.cfg.BatteryCapacityMAh,
			BatteryVoltageV:       s.cfg.BatteryVoltageV,
			DrainPerM:             s.cfg.DrainPerM,
			DrainPerSHover:        s.cfg.DrainPerSHover,
			BatteryMinPercent:     s.cfg.BatteryMinPercent,
			MaxPayloadUnits:       s.cfg.MaxPayloadUnits,
			PayloadPerSuppression: s.cfg.PayloadPerSuppression,
		}),
		gate: detm.New(detm.Config{
			Eta0:   s.cfg.Eta0,
			Lambda: s.cfg.Lambda,
			Norm:   detm.Norm(s.cfg.Norm),
			MinEta: s.cfg.MinEta,
		}),
		obs: observer.New(observer.Config{
			AgeHorizonTicks:              s.cfg.ObserverAgeHorizonTicks,
			MaxLatencyMs:                 s.cfg.ObserverMaxLatencyMs,
			ConstantVelocityTimeoutMs:    s.cfg.ObserverConstantVelocityTimeoutMs,
			AutoRegisterUnknownNeighbors: s.cfg.ObserverAutoRegisterUnknownNeighbors,
		}),
		walker:          agent.NewLevyWalker(s.cfg.RandomSeed+int64(id)+11, 1.5, s.cfg.CellSizeM, s.cfg.SensorRangeM*3),
		formationOffset: formationOffset,
	}
	s.drones = append(s.drones, rec)
	s.byID[id] = rec
}

// DroneCount returns the number of drones in the fleet.
func (s *Scheduler) DroneCount() int {
	return len(s.drones)
}

// Start marks the scheduler as running. While not running, Step only
// drains the command queue.
func (s *Scheduler) Start() {
	s.running = true
	s.paused = false
}

// Stop halts the scheduler and resets simulated time to zero: a clean
// restart rather than a resume.
func (s *Scheduler) Stop() {
	s.running = false
	s.clock.Reset()
}

// Pause halts stepping without resetting time; Start resumes it.
func (s *Scheduler) Pause() {
	s.paused = true
}

// Running reports whether Step will currently advance the simulation.
func (s *Scheduler) Running() bool {
	return s.running && !s.paused
}

// Validate re-checks the live configuration, used by health endpoints in
// the peripheral facade layer.
func (s *Scheduler) Validate() error {
	return s.cfg.Validate()
}
