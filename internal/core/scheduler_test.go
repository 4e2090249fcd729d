package core

import (
	"testing"

	"github.com/aerosyn-sim/swarmcore/internal/config"
	"github.com/aerosyn-sim/swarmcore/internal/corelog"
	"github.com/aerosyn-sim/swarmcore/internal/domain"
	"github.com/aerosyn-sim/swarmcore/internal/fire"
	"github.com/aerosyn-sim/swarmcore/internal/telemetry"
)

func testConfig() config.CoreConfig {
	cfg := config.DefaultConfig()
	cfg.NumLeaders = 1
	cfg.NumFollowers = 2
	cfg.GridWidth = 10
	cfg.GridHeight = 10
	cfg.CellSizeM = 5
	cfg.TickRateHz = 10
	cfg.RandomSeed = 7
	return cfg
}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := NewScheduler(testConfig(), corelog.Nop{})
	if err != nil {
		t.Fatalf("unexpected error building scheduler: %v", err)
	}
	return s
}

func TestNewSchedulerBuildsFullFleet(t *testing.T) {
	s := newTestScheduler(t)
	if s.DroneCount() != 3 {
		t.Fatalf("expected 3 drones (1 leader + 2 followers), got %d", s.DroneCount())
	}
}

func TestNewSchedulerRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.GridWidth = 0
	if _, err := NewScheduler(cfg, corelog.Nop{}); err == nil {
		t.Fatalf("expected invalid grid width to fail construction")
	}
}

func TestStepIsNoOpUntilStarted(t *testing.T) {
	s := newTestScheduler(t)
	report := s.Step()
	if report.Tick != 0 {
		t.Fatalf("expected no tick advancement before Start, got tick=%d", report.Tick)
	}
}

func TestStartAllowsStepToAdvance(t *testing.T) {
	s := newTestScheduler(t)
	s.Start()
	report := s.Step()
	if report.Tick != 1 {
		t.Fatalf("expected first Step after Start to reach tick 1, got %d", report.Tick)
	}
}

func TestPauseHaltsSteppingWithoutResettingClock(t *testing.T) {
	s := newTestScheduler(t)
	s.Start()
	s.Step()
	s.Pause()
	report := s.Step()
	if report.Tick != 0 {
		t.Fatalf("expected Step to no-op while paused")
	}
	if s.Running() {
		t.Fatalf("expected Running() false while paused")
	}
	if tick := s.Snapshot().Tick; tick != 1 {
		t.Fatalf("expected Pause to keep the clock at tick 1, got %d", tick)
	}
}

func TestStopResetsClock(t *testing.T) {
	s := newTestScheduler(t)
	s.Start()
	s.Step()
	s.Step()
	s.Stop()
	if s.Running() {
		t.Fatalf("expected Running() false after Stop")
	}
	snap := s.Snapshot()
	if snap.Tick != 0 {
		t.Fatalf("expected Stop to reset the clock to tick 0, got %d", snap.Tick)
	}
}

func TestEnqueueIgniteAppliesOnNextStep(t *testing.T) {
	s := newTestScheduler(t)
	s.Start()
	s.Enqueue(Command{Kind: CmdIgniteWorld, CellX: 5, CellY: 5, Intensity: 0.9})
	s.Step()

	cell, ok := s.FireCell(5, 5)
	if !ok {
		t.Fatalf("expected cell (5,5) to be in bounds")
	}
	if cell.State != fire.Burning {
		t.Fatalf("expected cell to be burning after ignite command, got state=%v", cell.State)
	}
}

func TestEnqueueDockKnownDrone(t *testing.T) {
	s := newTestScheduler(t)
	s.Start()
	var firstID domain.DroneId
	for id := range s.byID {
		firstID = id
		break
	}
	s.Enqueue(Command{Kind: CmdDock, DroneID: firstID})
	s.Step()

	snap := s.Snapshot()
	found := false
	for _, d := range snap.Drones {
		if d.ID == firstID {
			found = true
			if !d.Docked {
				t.Fatalf("expected drone %v to be docked after dock command", firstID)
			}
		}
	}
	if !found {
		t.Fatalf("expected to find drone %v in the snapshot", firstID)
	}
}

func TestEnqueueDockUnknownDroneDoesNotPanic(t *testing.T) {
	s := newTestScheduler(t)
	s.Start()
	s.Enqueue(Command{Kind: CmdDock, DroneID: domain.DroneId(9999)})
	s.Step() // must not panic
}

func TestEnqueueSetWindUpdatesGrid(t *testing.T) {
	s := newTestScheduler(t)
	s.Start()
	s.Enqueue(Command{Kind: CmdSetWind, WindSpeedMS: 15, WindDirectionDeg: 90})
	s.Step()

	snap := s.Snapshot()
	if snap.FireSummary.WindSpeedMS != 15 {
		t.Fatalf("expected wind speed to be applied, got %v", snap.FireSummary.WindSpeedMS)
	}
}

func TestSnapshotReflectsDroneCount(t *testing.T) {
	s := newTestScheduler(t)
	snap := s.Snapshot()
	if len(snap.Drones) != s.DroneCount() {
		t.Fatalf("expected snapshot to list every drone, got %d of %d", len(snap.Drones), s.DroneCount())
	}
}

func TestMultiTickRunProducesMonotonicClock(t *testing.T) {
	s := newTestScheduler(t)
	s.Start()
	var lastTick uint64
	for i := 0; i < 20; i++ {
		report := s.Step()
		if report.Tick <= lastTick {
			t.Fatalf("expected strictly increasing tick, got %d after %d", report.Tick, lastTick)
		}
		lastTick = report.Tick
	}
}

func TestSetTelemetrySinkReceivesGatedTransmissions(t *testing.T) {
	s := newTestScheduler(t)
	sink := &recordingSink{}
	s.SetTelemetrySink(sink)
	s.Start()

	for i := 0; i < 5; i++ {
		s.Step()
	}

	if len(sink.entries) == 0 {
		t.Fatalf("expected at least one DETM-gated transmission across 5 ticks (cold-start always fires)")
	}
}

func TestStepPopulatesLinkMatrixForEveryOrderedPair(t *testing.T) {
	s := newTestScheduler(t)
	s.Start()
	s.Step()

	n := s.DroneCount()
	if len(s.linkMatrix) != n*(n-1) {
		t.Fatalf("expected %d ordered pairs in the link matrix, got %d", n*(n-1), len(s.linkMatrix))
	}

	snap := s.Snapshot()
	if len(snap.LinkMatrix) != len(s.linkMatrix) {
		t.Fatalf("expected Snapshot to expose the full link matrix")
	}
}

func TestSnapshotIncludesWind(t *testing.T) {
	s := newTestScheduler(t)
	s.Start()
	s.Enqueue(Command{Kind: CmdSetWind, WindSpeedMS: 12, WindDirectionDeg: 45})
	s.Step()

	snap := s.Snapshot()
	if snap.Wind.SpeedMS != 12 {
		t.Fatalf("expected Snapshot.Wind to reflect the applied wind speed, got %v", snap.Wind.SpeedMS)
	}
}

func TestPublishedTransmissionCarriesDroneState(t *testing.T) {
	s := newTestScheduler(t)
	sink := &recordingSink{}
	s.SetTelemetrySink(sink)
	s.Start()
	s.Step() // cold-start: every drone's gate fires on tick 1

	if len(sink.entries) == 0 {
		t.Fatalf("expected at least one gated transmission on the cold-start tick")
	}
	entry := sink.entries[0]
	if entry.Meta.State == "" {
		t.Fatalf("expected telemetry entry to carry the sender's state")
	}
	if entry.Meta.BatteryPercent <= 0 {
		t.Fatalf("expected telemetry entry to carry a positive battery percent, got %v", entry.Meta.BatteryPercent)
	}
}

func TestObserverNeighborsAreWiredAtConstruction(t *testing.T) {
	s := newTestScheduler(t)
	for _, rec := range s.drones {
		if len(rec.obs.KnownNeighbors()) != s.DroneCount()-1 {
			t.Fatalf("expected drone %v's observer to know every other drone, got %d neighbors", rec.id, len(rec.obs.KnownNeighbors()))
		}
	}
}

type recordingSink struct {
	entries []telemetry.TelemetryDeltaEntry
}

func (r *recordingSink) Publish(entry telemetry.TelemetryDeltaEntry) {
	r.entries = append(r.entries, entry)
}
