package core

import (
	"github.com/aerosyn-sim/swarmcore/internal/domain"
	"github.com/aerosyn-sim/swarmcore/internal/fire"
	"github.com/aerosyn-sim/swarmcore/internal/rfchannel"
)

// LinkRecord is one ordered drone pair's RF link state for the current
// tick, computed every tick for every pair regardless of whether either
// side's DETM gate fired.
type LinkRecord struct {
	SenderID   domain.DroneId
	ReceiverID domain.DroneId
	Link       rfchannel.LinkState
}

// DroneSnapshot is the externally-visible, read-only view of one drone,
// the shape the REST/WS facade serializes — never the live droneRecord
// itself, so the facade can never mutate scheduler state by accident.
type DroneSnapshot struct {
	ID               domain.DroneId
	Kind             domain.DroneKind
	Pose             domain.DronePose
	State            domain.AgentState
	BatteryPercent   float64
	PayloadRemaining float64
	Docked           bool
	DetmThreshold    float64
}

// Snapshot is the full externally-visible simulation state for one tick.
type Snapshot struct {
	Tick        uint64
	TimeUs      int64
	Drones      []DroneSnapshot
	FireSummary fire.Summary
	Wind        fire.Wind
	LinkMatrix  []LinkRecord
	Running     bool
}

// Snapshot captures the scheduler's current state. Safe to call between
// Step calls; never called concurrently with Step in this package's
// single-threaded design — locking, if a caller needs concurrent access,
// is the peripheral layer's responsibility.
func (s *Scheduler) Snapshot() Snapshot {
	drones := make([]DroneSnapshot, 0, len(s.drones))
	for _, rec := range s.drones {
		drones = append(drones, DroneSnapshot{
			ID:               rec.id,
			Kind:             rec.kind,
			Pose:             rec.pose,
			State:            rec.state,
			BatteryPercent:   rec.bank.PercentRemaining(),
			PayloadRemaining: rec.bank.PayloadRemaining(),
			Docked:           rec.bank.IsDocked(),
			DetmThreshold:    rec.gate.Threshold(),
		})
	}

	return Snapshot{
		Tick:        s.clock.Tick(),
		TimeUs:      s.clock.TimeUs(),
		Drones:      drones,
		FireSummary: s.fireGrid.Summarize(),
		Wind:        s.fireGrid.GetWind(),
		LinkMatrix:  s.linkMatrix,
		Running:     s.Running(),
	}
}

// FireCell exposes one cell's state for the GET /api/fire facade
// endpoint, without handing out the mutable *fire.Grid itself.
func (s *Scheduler) FireCell(x, y int) (fire.Cell, bool) {
	return s.fireGrid.Cell(x, y)
}

// FireDimensions returns the fire grid's width and height in cells.
func (s *Scheduler) FireDimensions() (int, int) {
	return s.fireGrid.Dimensions()
}
