package agent

import (
	"testing"

	"github.com/aerosyn-sim/swarmcore/internal/domain"
)

type fakeWorld struct {
	fireCX, fireCY     int
	fireWX, fireWY     float64
	fireIntensity      float64
	fireOK             bool
	stigmergy          float64
	neighborPos        [3]float64
	neighborConfidence float64
	neighborStale      bool
	neighborOK         bool
	collisionRisks     []CollisionWarning
	home               [3]float64
}

func (f fakeWorld) DetectFire(pos [3]float64, rangeM float64) (int, int, float64, float64, float64, bool) {
	return f.fireCX, f.fireCY, f.fireWX, f.fireWY, f.fireIntensity, f.fireOK
}
func (f fakeWorld) StigmergyScore(cellX, cellY int) float64 { return f.stigmergy }
func (f fakeWorld) NeighborEstimate(id domain.DroneId) ([3]float64, float64, bool, bool) {
	return f.neighborPos, f.neighborConfidence, f.neighborStale, f.neighborOK
}
func (f fakeWorld) CollisionRisks(selfPos [3]float64, minSeparationM float64) []CollisionWarning {
	return f.collisionRisks
}
func (f fakeWorld) HomePosition() [3]float64 { return f.home }

func baseContext() Context {
	return Context{
		ID:             1,
		Kind:           domain.Leader,
		Pose:           domain.DronePose{X: 0, Y: 0, Z: 10},
		State:          domain.Search,
		BatteryPercent: 100,
		HasPayload:     true,
		SensorRangeM:   50,
		MinSeparationM: 5,
		DtSeconds:      1,
		MaxSpeedMS:     10,
		CellSizeM:      10,
	}
}

func TestIdleLeaderTransitionsToSearch(t *testing.T) {
	ctx := baseContext()
	ctx.State = domain.Idle
	result := Step(ctx, fakeWorld{}, nil)
	if result.State != domain.Search {
		t.Fatalf("expected leader to move Idle->Search, got %v", result.State)
	}
}

func TestIdleFollowerTransitionsToFormation(t *testing.T) {
	ctx := baseContext()
	ctx.State = domain.Idle
	ctx.Kind = domain.Follower
	result := Step(ctx, fakeWorld{}, nil)
	if result.State != domain.Formation {
		t.Fatalf("expected follower to move Idle->Formation, got %v", result.State)
	}
}

func TestRTLOverridesSearch(t *testing.T) {
	ctx := baseContext()
	ctx.ShouldRTL = true
	world := fakeWorld{home: [3]float64{100, 100, 0}}
	result := Step(ctx, world, nil)
	if result.State != domain.ReturnToLaunch {
		t.Fatalf("expected ShouldRTL to override Search, got %v", result.State)
	}
}

func TestRTLDoesNotReapplyOnceInReturnToLaunch(t *testing.T) {
	ctx := baseContext()
	ctx.ShouldRTL = true
	ctx.State = domain.ReturnToLaunch
	ctx.Pose = domain.DronePose{X: 0, Y: 0, Z: 0}
	world := fakeWorld{home: [3]float64{0.1, 0.1, 0}}
	result := Step(ctx, world, nil)
	if result.State != domain.Idle {
		t.Fatalf("expected arrival at home to dock, got %v", result.State)
	}
	if !result.Actions.Dock {
		t.Fatalf("expected Dock action once within arrival radius")
	}
}

func TestSearchDetectsFireAndTransitionsToSuppress(t *testing.T) {
	ctx := baseContext()
	world := fakeWorld{fireCX: 3, fireCY: 4, fireWX: 5, fireWY: 5, fireIntensity: 0.8, fireOK: true}
	result := Step(ctx, world, nil)
	if result.State != domain.Suppress {
		t.Fatalf("expected Search to transition to Suppress on fire detection, got %v", result.State)
	}
	if !result.Actions.MarkVisited {
		t.Fatalf("expected MarkVisited action while moving toward the fire")
	}
}

func TestSearchWithNoFireUsesLevyWalker(t *testing.T) {
	ctx := baseContext()
	walker := NewLevyWalker(1, 1.5, 5, 50)
	world := fakeWorld{fireOK: false}
	result := Step(ctx, world, walker)
	if result.State != domain.Search {
		t.Fatalf("expected to stay in Search with no fire detected, got %v", result.State)
	}
	if result.Pose == ctx.Pose {
		t.Fatalf("expected the Levy walker to move the drone")
	}
}

func TestSearchAvoidsHighStigmergyByReversingHeading(t *testing.T) {
	ctx := baseContext()
	walker := NewLevyWalker(1, 1.5, 5, 50)
	world := fakeWorld{fireOK: false, stigmergy: 0.9}
	resultHigh := Step(ctx, world, walker)

	walker2 := NewLevyWalker(1, 1.5, 5, 50)
	world2 := fakeWorld{fireOK: false, stigmergy: 0.1}
	resultLow := Step(ctx, world2, walker2)

	if resultHigh.Pose == resultLow.Pose {
		t.Fatalf("expected high stigmergy score to alter the chosen heading")
	}
}

func TestSuppressWithoutPayloadReturnsToLaunch(t *testing.T) {
	ctx := baseContext()
	ctx.State = domain.Suppress
	ctx.HasPayload = false
	world := fakeWorld{home: [3]float64{100, 100, 0}}
	result := Step(ctx, world, nil)
	if result.State != domain.ReturnToLaunch {
		t.Fatalf("expected Suppress with empty payload to transition to ReturnToLaunch, got %v", result.State)
	}
}

func TestSuppressStrengthMatchesDetectedIntensity(t *testing.T) {
	ctx := baseContext()
	ctx.State = domain.Suppress
	ctx.Pose = domain.DronePose{X: 5, Y: 5, Z: 0}
	world := fakeWorld{fireCX: 0, fireCY: 0, fireWX: 5, fireWY: 5, fireIntensity: 0.5, fireOK: true}
	result := Step(ctx, world, nil)
	if result.Actions.SuppressStrength != 0.5 {
		t.Fatalf("expected suppress strength to match detected intensity 0.5, got %v", result.Actions.SuppressStrength)
	}
}

func TestSuppressStrengthClampsToOne(t *testing.T) {
	ctx := baseContext()
	ctx.State = domain.Suppress
	ctx.Pose = domain.DronePose{X: 5, Y: 5, Z: 0}
	world := fakeWorld{fireCX: 0, fireCY: 0, fireWX: 5, fireWY: 5, fireIntensity: 3.0, fireOK: true}
	result := Step(ctx, world, nil)
	if result.Actions.SuppressStrength != 1.0 {
		t.Fatalf("expected suppress strength to clamp to 1, got %v", result.Actions.SuppressStrength)
	}
}

func TestSuppressAppliesOnceWithinRange(t *testing.T) {
	ctx := baseContext()
	ctx.State = domain.Suppress
	ctx.Pose = domain.DronePose{X: 5, Y: 5, Z: 0}
	world := fakeWorld{fireCX: 0, fireCY: 0, fireWX: 5, fireWY: 5, fireIntensity: 0.5, fireOK: true}
	result := Step(ctx, world, nil)
	if !result.Actions.Suppress {
		t.Fatalf("expected suppression action once already at the fire cell")
	}
}

func TestFormationTracksLeaderOffset(t *testing.T) {
	ctx := baseContext()
	ctx.Kind = domain.Follower
	ctx.State = domain.Formation
	ctx.HasLeader = true
	ctx.LeaderID = 1
	ctx.FormationOffset = [3]float64{5, 0, 0}
	world := fakeWorld{neighborOK: true, neighborConfidence: 0.9, neighborPos: [3]float64{10, 10, 10}}
	result := Step(ctx, world, nil)
	if result.State != domain.Formation {
		t.Fatalf("expected to remain in Formation, got %v", result.State)
	}
	if result.Pose == ctx.Pose {
		t.Fatalf("expected follower to move toward the leader-relative target")
	}
}

func TestFormationHoldsPositionWithoutLeader(t *testing.T) {
	ctx := baseContext()
	ctx.Kind = domain.Follower
	ctx.State = domain.Formation
	world := fakeWorld{neighborOK: false}
	result := Step(ctx, world, nil)
	if result.Pose != ctx.Pose {
		t.Fatalf("expected no movement without a known leader estimate")
	}
}

func TestFormationHoldsPositionWhenLeaderEstimateHasZeroConfidence(t *testing.T) {
	ctx := baseContext()
	ctx.Kind = domain.Follower
	ctx.State = domain.Formation
	ctx.HasLeader = true
	ctx.LeaderID = 1
	world := fakeWorld{neighborOK: true, neighborConfidence: 0, neighborPos: [3]float64{10, 10, 10}}
	result := Step(ctx, world, nil)
	if result.Pose != ctx.Pose {
		t.Fatalf("expected no movement when the leader estimate has zero confidence")
	}
}

func TestLevyWalkerStepLengthWithinBounds(t *testing.T) {
	w := NewLevyWalker(42, 1.5, 5, 50)
	for i := 0; i < 200; i++ {
		_, step := w.NextWaypoint()
		if step < 5 || step > 50 {
			t.Fatalf("step length %v out of configured bounds [5, 50]", step)
		}
	}
}

func TestLevyWalkerIsDeterministicForASeed(t *testing.T) {
	w1 := NewLevyWalker(7, 1.5, 5, 50)
	w2 := NewLevyWalker(7, 1.5, 5, 50)
	h1, s1 := w1.NextWaypoint()
	h2, s2 := w2.NextWaypoint()
	if h1 != h2 || s1 != s2 {
		t.Fatalf("expected identical seeds to produce identical waypoints")
	}
}
