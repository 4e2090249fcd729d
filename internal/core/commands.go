package core

import "github.com/aerosyn-sim/swarmcore/internal/domain"

// CommandKind enumerates the external control surface: ignite_world,
// suppress_world, set_wind, dock, start, stop, pause.
type CommandKind string

const (
	CmdIgniteWorld   CommandKind = "ignite_world"
	CmdSuppressWorld CommandKind = "suppress_world"
	CmdSetWind       CommandKind = "set_wind"
	CmdDock          CommandKind = "dock"
	CmdStart         CommandKind = "start"
	CmdStop          CommandKind = "stop"
	CmdPause         CommandKind = "pause"
)

// Command is one external instruction queued for application at the
// start of the next Step call. Fields not relevant to Kind are ignored.
type Command struct {
	Kind                 CommandKind
	CellX, CellY         int
	Intensity            float64
	Strength             float64
	WindSpeedMS          float64
	WindDirectionDeg     float64
	DroneID              domain.DroneId
}

// Enqueue appends a command to be applied at the start of the next Step.
// Invalid commands (unknown drone ID, out-of-bounds cell) are silently
// dropped at apply time with a logged warning; expected runtime
// conditions never panic.
func (s *Scheduler) Enqueue(cmd Command) {
	s.commandQueue = append(s.commandQueue, cmd)
}

func (s *Scheduler) drainCommands() {
	queue := s.commandQueue
	s.commandQueue = nil

	for _, cmd := range queue {
		switch cmd.Kind {
		case CmdIgniteWorld:
			if !s.fireGrid.Ignite(cmd.CellX, cmd.CellY, cmd.Intensity, s.clock.TimeUs()) {
				s.logger.LogCommandDropped(string(cmd.Kind), "cell out of bounds")
				continue
			}
			s.logger.LogIgnite(cmd.CellX, cmd.CellY, cmd.Intensity, true)
		case CmdSuppressWorld:
			reduction := s.fireGrid.Suppress(cmd.CellX, cmd.CellY, cmd.Strength)
			s.logger.LogSuppress(cmd.CellX, cmd.CellY, cmd.Strength, reduction)
		case CmdSetWind:
			s.fireGrid.SetWind(cmd.WindSpeedMS, cmd.WindDirectionDeg)
		case CmdDock:
			rec, ok := s.byID[cmd.DroneID]
			if !ok {
				s.logger.LogCommandDropped(string(cmd.Kind), "unknown drone id")
				continue
			}
			rec.bank.Dock()
			rec.state = domain.Idle
			s.logger.LogDock(rec.id)
		case CmdStart:
			s.Start()
		case CmdStop:
			s.Stop()
		case CmdPause:
			s.Pause()
		default:
			s.logger.LogCommandDropped(string(cmd.Kind), "unknown command kind")
		}
	}
}
