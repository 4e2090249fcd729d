package core

import (
	"math"

	"github.com/aerosyn-sim/swarmcore/internal/agent"
	"github.com/aerosyn-sim/swarmcore/internal/domain"
	"github.com/aerosyn-sim/swarmcore/internal/rfchannel"
	"github.com/aerosyn-sim/swarmcore/internal/telemetry"
)

// Step advances the simulation by exactly one tick, in a fixed order so
// a given seed always reproduces the same run:
//
//  1. drain the external command queue (ignite/suppress/wind/dock/run-state)
//  2. advance the clock
//  3. step the fire grid (propagation, burnout)
//  4. decay the pheromone field
//  5. recompute the RF channel matrix for every ordered drone pair from
//     the previous tick's positions, before any drone moves
//  6. step every drone's agent state machine and apply its actions
//     (movement, payload consumption, stigmergy marks, docking)
//  7. drain each drone's energy for the movement/hover it just did (the
//     RTL override is evaluated inside the agent step, not here)
//  8. decay and evaluate each drone's DETM gate against the freshly
//     computed channel matrix, feeding accepted transmissions into the
//     receiving drone's observer
//
// While the scheduler is not running, Step still drains the command queue
// (step 1) and then returns a zero-value TickReport without doing
// anything else.
func (s *Scheduler) Step() TickReport {
	s.drainCommands()

	if !s.Running() {
		return TickReport{}
	}

	tick, timeUs, dt := s.clock.Advance()
	dtSeconds := dt.Seconds()
	dtUs := dt.Microseconds()
	s.logger.LogTick(tick, timeUs, dt)

	newlyIgnited, suppressedCount := s.fireGrid.Step()
	s.pheromone.Step()

	s.computeLinkMatrix()
	s.stepAgents(dtSeconds)
	s.stepEnergy(dtSeconds)
	transmissions := s.stepChannelAndDetm(dtUs)

	return TickReport{
		Tick:            tick,
		TimeUs:          timeUs,
		NewlyIgnited:    newlyIgnited,
		SuppressedCells: suppressedCount,
		Transmissions:   transmissions,
	}
}

// computeLinkMatrix evaluates the RF channel for every ordered
// (sender, receiver) drone pair using current positions and caches the
// result for the rest of the tick, so it reflects every pair that
// exists regardless of whether either side's DETM gate ever fires.
func (s *Scheduler) computeLinkMatrix() {
	s.linkMatrix = s.linkMatrix[:0]
	for _, sender := range s.drones {
		for _, receiver := range s.drones {
			if receiver.id == sender.id {
				continue
			}
			distance := rfchannel.Distance3(sender.pose.Position3(), receiver.pose.Position3())
			link := s.channel.Evaluate(distance)
			s.linkMatrix = append(s.linkMatrix, LinkRecord{SenderID: sender.id, ReceiverID: receiver.id, Link: link})
		}
	}
}

func (s *Scheduler) linkState(senderID, receiverID domain.DroneId) (rfchannel.LinkState, bool) {
	for _, rec := range s.linkMatrix {
		if rec.SenderID == senderID && rec.ReceiverID == receiverID {
			return rec.Link, true
		}
	}
	return rfchannel.LinkState{}, false
}

// avgRSSIForSender averages RSSI across every link evaluated from
// senderID's side this tick, connected or not: the full ambient picture
// of how the channel looks from that drone, not just the links that
// happened to carry traffic.
func (s *Scheduler) avgRSSIForSender(senderID domain.DroneId) float64 {
	var sum float64
	var n int
	for _, rec := range s.linkMatrix {
		if rec.SenderID != senderID {
			continue
		}
		sum += rec.Link.RSSIDBm
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// TickReport summarizes what happened during one Step call, returned to
// the caller (cmd/swarmsimd's loop or tests) without requiring a full
// Snapshot for routine polling.
type TickReport struct {
	Tick            uint64
	TimeUs          int64
	NewlyIgnited    int
	SuppressedCells int
	Transmissions   int
}

func (s *Scheduler) stepAgents(dtSeconds float64) {
	maxSpeedMS := s.cfg.SensorRangeM / 4 // bounded by sensor range so agents don't overshoot detections in one tick
	if maxSpeedMS <= 0 {
		maxSpeedMS = 5
	}

	for _, rec := range s.drones {
		if rec.bank.IsDocked() {
			continue
		}
		view := schedulerView{s: s, self: rec}
		shouldRTL, rtlReason := rec.bank.ShouldReturnToLaunch()
		ctx := agent.Context{
			ID:              rec.id,
			Kind:            rec.kind,
			Pose:            rec.pose,
			State:           rec.state,
			BatteryPercent:  rec.bank.PercentRemaining(),
			HasPayload:      rec.bank.HasPayload(),
			ShouldRTL:       shouldRTL,
			SensorRangeM:    s.cfg.SensorRangeM,
			MinSeparationM:  s.cfg.MinSeparationM,
			LeaderID:        s.leaderID,
			HasLeader:       s.hasLeader && s.leaderID != rec.id,
			FormationOffset: rec.formationOffset,
			DtSeconds:       dtSeconds,
			MaxSpeedMS:      maxSpeedMS,
			CellSizeM:       s.cfg.CellSizeM,
		}

		var walker *agent.LevyWalker
		if rec.kind == domain.Leader {
			walker = rec.walker
		}

		result := agent.Step(ctx, view, walker)

		prevPose := rec.pose
		rec.pose = result.Pose
		if result.State != rec.state {
			s.logger.LogStateTransition(rec.id, rec.state.String(), result.State.String(), "agent_step")
		}
		rec.state = result.State

		distanceMoved := math.Sqrt(
			math.Pow(result.Pose.X-prevPose.X, 2) +
				math.Pow(result.Pose.Y-prevPose.Y, 2) +
				math.Pow(result.Pose.Z-prevPose.Z, 2),
		)
		rec.pendingDistanceM = distanceMoved

		if result.Actions.MarkVisited {
			s.pheromone.Mark(result.Actions.VisitCellX, result.Actions.VisitCellY)
		}
		if result.Actions.Suppress {
			if rec.bank.ConsumeSuppression() {
				reduction := s.fireGrid.Suppress(result.Actions.SuppressCellX, result.Actions.SuppressCellY, result.Actions.SuppressStrength)
				s.logger.LogSuppress(result.Actions.SuppressCellX, result.Actions.SuppressCellY, result.Actions.SuppressStrength, reduction)
			}
		}
		if result.Actions.Dock {
			rec.bank.Dock()
			s.logger.LogDock(rec.id)
		}

		if ctx.ShouldRTL && result.State == domain.ReturnToLaunch {
			s.logger.LogRTL(rec.id, rtlReason)
		}

		for _, warning := range result.CollisionRisks {
			s.logger.LogCollisionRisk(rec.id, warning.NeighborID, warning.DistanceM)
		}
	}
}

func (s *Scheduler) stepEnergy(dtSeconds float64) {
	for _, rec := range s.drones {
		if rec.bank.IsDocked() {
			continue
		}
		if rec.pendingDistanceM > 0 {
			rec.bank.DrainFlight(rec.pendingDistanceM)
		} else {
			rec.bank.DrainHover(dtSeconds)
		}
		rec.pendingDistanceM = 0
	}
}

func (s *Scheduler) stepChannelAndDetm(dtUs int64) int {
	transmissions := 0
	for _, rec := range s.drones {
		rec.gate.Decay(dtUs)
	}

	for _, sender := range s.drones {
		fired, errNorm := sender.gate.ShouldTransmit(sender.pose.Vector6())
		s.logger.LogDetmTrigger(sender.id, fired, sender.gate.Threshold(), errNorm)
		if !fired {
			continue
		}

		delivered := false
		for _, receiver := range s.drones {
			if receiver.id == sender.id {
				continue
			}
			link, ok := s.linkState(sender.id, receiver.id)
			if !ok || !link.Connected {
				continue
			}
			receiver.obs.Ingest(int(sender.id), sender.pose.Position3(), sender.pose.Velocity3(), s.clock.TimeUs(), s.clock.Tick())
			delivered = true
		}
		if delivered {
			sender.gate.RecordTransmission(sender.pose.Vector6())
			transmissions++
			s.publishTransmission(sender, errNorm)
		}
	}
	return transmissions
}

func (s *Scheduler) publishTransmission(sender *droneRecord, errNorm float64) {
	if s.sink == nil {
		return
	}
	fireDetected, fireIntensity := s.fireGrid.Detect(sender.pose.X, sender.pose.Y, s.cfg.SensorRangeM)
	dot := s.telemetryCtx.NextDot(sender.id.String())
	s.sink.Publish(telemetry.TelemetryDeltaEntry{
		Dot:   dot,
		Drone: sender.id.String(),
		Point: telemetry.DronePoint{
			X: sender.pose.X, Y: sender.pose.Y, Z: sender.pose.Z,
			Vx: sender.pose.Vx, Vy: sender.pose.Vy, Vz: sender.pose.Vz,
		},
		Meta: telemetry.TelemetryMeta{
			TimeUs:         s.clock.TimeUs(),
			Tick:           s.clock.Tick(),
			DetmErrNorm:    errNorm,
			BatteryPercent: sender.bank.PercentRemaining(),
			PayloadUnits:   sender.bank.PayloadRemaining(),
			State:          sender.state.String(),
			FireDetected:   fireDetected,
			FireIntensity:  fireIntensity,
			AvgRSSIDbm:     s.avgRSSIForSender(sender.id),
		},
	})
}
