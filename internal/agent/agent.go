// agent.go implements the DroneAgent state machine:
// Idle -> Search -> Suppress -> ReturnToLaunch, with Followers holding in
// Formation relative to their leader. State is drone-owned and mutated
// only by explicit methods, with leader/follower role carried as a
// first-class split rather than inferred from other fields.
//
// Step is a pure function: it reads the world only through WorldView and
// returns the next pose/state plus any actions for the scheduler to
// apply, so internal/agent never holds a pointer into internal/core,
// avoiding a cyclic package dependency between the two.
package agent

import (
	"math"

	"github.com/aerosyn-sim/swarmcore/internal/domain"
)

// WorldView is the read-only window the scheduler exposes to an agent's
// Step call. The scheduler is the only implementer; tests can supply a
// fake.
type WorldView interface {
	// DetectFire reports the nearest burning cell within rangeM of pos,
	// in world coordinates, or ok=false if none is within range.
	DetectFire(pos [3]float64, rangeM float64) (cellX, cellY int, worldX, worldY, intensity float64, ok bool)
	// StigmergyScore returns the pheromone level at a grid cell (higher
	// means more recently visited/suppressed, so Search avoids it).
	StigmergyScore(cellX, cellY int) float64
	// NeighborEstimate returns the observer's predicted position,
	// confidence, and velocity-staleness for another drone, or ok=false
	// if unknown. Formation holding reads the leader through this, not a
	// raw ground-truth pose, so it reasons under the same sparse,
	// gated updates the rest of the fleet does.
	NeighborEstimate(id domain.DroneId) (pos [3]float64, confidence float64, velocityStale bool, ok bool)
	// CollisionRisks reports every known neighbor whose predicted
	// position currently falls within minSeparationM of selfPos. The
	// core surfaces this list; what (if anything) to do about it is this
	// package's call.
	CollisionRisks(selfPos [3]float64, minSeparationM float64) []CollisionWarning
	HomePosition() [3]float64
}

// CollisionWarning flags a known neighbor whose predicted position is
// currently too close for comfort.
type CollisionWarning struct {
	NeighborID domain.DroneId
	DistanceM  float64
}

// Actions is what Step asks the scheduler to apply this tick, separate
// from the returned pose/state so side effects (payload consumption,
// stigmergy writes, suppression) stay explicit and auditable.
type Actions struct {
	MarkVisited   bool
	VisitCellX    int
	VisitCellY    int
	Suppress      bool
	SuppressCellX int
	SuppressCellY int
	SuppressStrength float64
	Dock          bool
}

// Context is everything Step needs about one drone for one tick, beyond
// the WorldView.
type Context struct {
	ID               domain.DroneId
	Kind             domain.DroneKind
	Pose             domain.DronePose
	State            domain.AgentState
	BatteryPercent   float64
	HasPayload       bool
	ShouldRTL        bool
	SensorRangeM     float64
	MinSeparationM   float64
	LeaderID         domain.DroneId // valid only when HasLeader
	HasLeader        bool
	FormationOffset  [3]float64 // follower's desired offset from the leader
	DtSeconds        float64
	MaxSpeedMS       float64
	CellSizeM        float64
}

// Result is Step's output: the drone's next pose and state, plus any
// scheduler-side actions.
type Result struct {
	Pose            domain.DronePose
	State           domain.AgentState
	Actions         Actions
	CollisionRisks  []CollisionWarning
}

// Step advances one drone's state machine by one tick. walker supplies
// Search waypoints; pass nil to disable Lévy sampling (Formation-only
// followers never need it).
func Step(ctx Context, world WorldView, walker *LevyWalker) Result {
	result := dispatch(ctx, world, walker)
	result.CollisionRisks = world.CollisionRisks(ctx.Pose.Position3(), ctx.MinSeparationM)
	return result
}

func dispatch(ctx Context, world WorldView, walker *LevyWalker) Result {
	if ctx.ShouldRTL && ctx.State != domain.ReturnToLaunch {
		return Result{
			Pose:  moveToward(ctx.Pose, world.HomePosition(), ctx.MaxSpeedMS, ctx.DtSeconds),
			State: domain.ReturnToLaunch,
		}
	}

	switch ctx.State {
	case domain.Idle:
		return stepIdle(ctx)
	case domain.Search:
		return stepSearch(ctx, world, walker)
	case domain.Suppress:
		return stepSuppress(ctx, world)
	case domain.ReturnToLaunch:
		return stepReturnToLaunch(ctx, world)
	case domain.Formation:
		return stepFormation(ctx, world)
	default:
		return Result{Pose: ctx.Pose, State: domain.Idle}
	}
}

func stepIdle(ctx Context) Result {
	if ctx.Kind == domain.Follower {
		return Result{Pose: ctx.Pose, State: domain.Formation}
	}
	return Result{Pose: ctx.Pose, State: domain.Search}
}

func stepSearch(ctx Context, world WorldView, walker *LevyWalker) Result {
	cx, cy, wx, wy, intensity, ok := world.DetectFire(ctx.Pose.Position3(), ctx.SensorRangeM)
	if ok && intensity > 0 {
		pose := moveToward(ctx.Pose, [3]float64{wx, wy, ctx.Pose.Z}, ctx.MaxSpeedMS, ctx.DtSeconds)
		return Result{
			Pose:  pose,
			State: domain.Suppress,
			Actions: Actions{
				MarkVisited: true,
				VisitCellX:  cx,
				VisitCellY:  cy,
			},
		}
	}

	if walker == nil {
		return Result{Pose: ctx.Pose, State: domain.Search}
	}

	headingDeg, stepM := walker.NextWaypoint()
	if gx, gy := worldToCell(ctx.Pose.X, ctx.Pose.Y, ctx.CellSizeM); world.StigmergyScore(gx, gy) > 0.5 {
		headingDeg = math.Mod(headingDeg+180, 360)
	}
	target := projectHeading(ctx.Pose, headingDeg, stepM)
	pose := moveToward(ctx.Pose, target, ctx.MaxSpeedMS, ctx.DtSeconds)
	cx2, cy2 := worldToCell(pose.X, pose.Y, ctx.CellSizeM)
	return Result{
		Pose:  pose,
		State: domain.Search,
		Actions: Actions{
			MarkVisited: true,
			VisitCellX:  cx2,
			VisitCellY:  cy2,
		},
	}
}

func stepSuppress(ctx Context, world WorldView) Result {
	if !ctx.HasPayload {
		return Result{
			Pose:  moveToward(ctx.Pose, world.HomePosition(), ctx.MaxSpeedMS, ctx.DtSeconds),
			State: domain.ReturnToLaunch,
		}
	}

	cx, cy, wx, wy, intensity, ok := world.DetectFire(ctx.Pose.Position3(), ctx.SensorRangeM)
	if !ok || intensity <= 0 {
		return Result{Pose: ctx.Pose, State: domain.Search}
	}

	pose := moveToward(ctx.Pose, [3]float64{wx, wy, ctx.Pose.Z}, ctx.MaxSpeedMS, ctx.DtSeconds)
	distance := math.Hypot(pose.X-wx, pose.Y-wy)
	if distance > ctx.SensorRangeM/4 {
		return Result{Pose: pose, State: domain.Suppress}
	}

	return Result{
		Pose:  pose,
		State: domain.Suppress,
		Actions: Actions{
			Suppress:         true,
			SuppressCellX:    cx,
			SuppressCellY:    cy,
			SuppressStrength: math.Min(1, intensity),
			MarkVisited:      true,
			VisitCellX:       cx,
			VisitCellY:       cy,
		},
	}
}

func stepReturnToLaunch(ctx Context, world WorldView) Result {
	home := world.HomePosition()
	pose := moveToward(ctx.Pose, home, ctx.MaxSpeedMS, ctx.DtSeconds)
	if math.Hypot(pose.X-home[0], pose.Y-home[1]) < 1.0 {
		return Result{Pose: pose, State: domain.Idle, Actions: Actions{Dock: true}}
	}
	return Result{Pose: pose, State: domain.ReturnToLaunch}
}

func stepFormation(ctx Context, world WorldView) Result {
	if !ctx.HasLeader {
		return Result{Pose: ctx.Pose, State: domain.Formation}
	}
	leaderPos, confidence, _, ok := world.NeighborEstimate(ctx.LeaderID)
	if !ok || confidence <= 0 {
		return Result{Pose: ctx.Pose, State: domain.Formation}
	}
	target := [3]float64{
		leaderPos[0] + ctx.FormationOffset[0],
		leaderPos[1] + ctx.FormationOffset[1],
		leaderPos[2] + ctx.FormationOffset[2],
	}
	pose := moveToward(ctx.Pose, target, ctx.MaxSpeedMS, ctx.DtSeconds)
	return Result{Pose: pose, State: domain.Formation}
}

func moveToward(pose domain.DronePose, target [3]float64, maxSpeedMS, dtSeconds float64) domain.DronePose {
	dx, dy, dz := target[0]-pose.X, target[1]-pose.Y, target[2]-pose.Z
	dist := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if dist < 1e-9 {
		pose.Vx, pose.Vy, pose.Vz = 0, 0, 0
		return pose
	}

	maxStep := maxSpeedMS * dtSeconds
	travel := dist
	if travel > maxStep {
		travel = maxStep
	}
	ratio := travel / dist

	pose.X += dx * ratio
	pose.Y += dy * ratio
	pose.Z += dz * ratio
	if dtSeconds > 0 {
		pose.Vx = dx * ratio / dtSeconds
		pose.Vy = dy * ratio / dtSeconds
		pose.Vz = dz * ratio / dtSeconds
	}
	pose.HeadingDeg = math.Mod(math.Atan2(dx, dy)*180/math.Pi+360, 360)
	return pose
}

func projectHeading(pose domain.DronePose, headingDeg, stepM float64) [3]float64 {
	rad := headingDeg * math.Pi / 180
	return [3]float64{
		pose.X + stepM*math.Sin(rad),
		pose.Y + stepM*math.Cos(rad),
		pose.Z,
	}
}

func worldToCell(x, y, cellSizeM float64) (int, int) {
	if cellSizeM <= 0 {
		cellSizeM = 1
	}
	return int(x / cellSizeM), int(y / cellSizeM)
}
