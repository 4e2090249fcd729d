// Package corelog provides the structured, line-oriented logger the
// scheduler and its subsystems write to: a thin wrapper over log.Logger
// with one Log<Event> method per simulation event category, printing
// KEY=value pairs.
package corelog

import (
	"fmt"
	"io"
	"log"
	"time"
)

// Logger is the interface the core depends on, so it never hard-codes a
// concrete sink (tests can supply a silent one; cmd/swarmsimd wires stdout).
type Logger interface {
	LogTick(tick uint64, timeUs int64, dt time.Duration)
	LogIgnite(gx, gy int, intensity float64, ok bool)
	LogSuppress(gx, gy int, strength, reduction float64)
	LogFireTransition(gx, gy int, from, to string)
	LogStateTransition(droneID fmt.Stringer, from, to string, reason string)
	LogRTL(droneID fmt.Stringer, reason string)
	LogDetmTrigger(droneID fmt.Stringer, fired bool, eta, errNorm float64)
	LogDock(droneID fmt.Stringer)
	LogCollisionRisk(droneID fmt.Stringer, neighborID fmt.Stringer, distanceM float64)
	LogCommandDropped(kind string, reason string)
	LogWarn(operation string, err error)
}

// SchedulerLogger is the default Logger, grounded 1:1 on DroneLogger's
// shape: one *log.Logger, one prefix, one Printf-based method per event.
type SchedulerLogger struct {
	logger *log.Logger
}

// New builds a SchedulerLogger writing to w with the given prefix (usually
// the run or scheduler identifier).
func New(w io.Writer, prefix string) *SchedulerLogger {
	return &SchedulerLogger{
		logger: log.New(w, fmt.Sprintf("[%s] ", prefix), log.LstdFlags|log.Lmicroseconds),
	}
}

func (l *SchedulerLogger) LogTick(tick uint64, timeUs int64, dt time.Duration) {
	l.logger.Printf("TICK: tick=%d time_us=%d dt=%s", tick, timeUs, dt)
}

func (l *SchedulerLogger) LogIgnite(gx, gy int, intensity float64, ok bool) {
	l.logger.Printf("IGNITE: x=%d y=%d intensity=%.3f ok=%t", gx, gy, intensity, ok)
}

func (l *SchedulerLogger) LogSuppress(gx, gy int, strength, reduction float64) {
	l.logger.Printf("SUPPRESS: x=%d y=%d strength=%.3f reduction=%.4f", gx, gy, strength, reduction)
}

func (l *SchedulerLogger) LogFireTransition(gx, gy int, from, to string) {
	l.logger.Printf("FIRE_TRANSITION: x=%d y=%d from=%s to=%s", gx, gy, from, to)
}

func (l *SchedulerLogger) LogStateTransition(droneID fmt.Stringer, from, to string, reason string) {
	l.logger.Printf("STATE_TRANSITION: drone=%s from=%s to=%s reason=%s", droneID, from, to, reason)
}

func (l *SchedulerLogger) LogRTL(droneID fmt.Stringer, reason string) {
	l.logger.Printf("RTL_OVERRIDE: drone=%s reason=%s", droneID, reason)
}

func (l *SchedulerLogger) LogDetmTrigger(droneID fmt.Stringer, fired bool, eta, errNorm float64) {
	l.logger.Printf("DETM: drone=%s fired=%t eta=%.4f error=%.4f", droneID, fired, eta, errNorm)
}

func (l *SchedulerLogger) LogDock(droneID fmt.Stringer) {
	l.logger.Printf("DOCK: drone=%s", droneID)
}

func (l *SchedulerLogger) LogCollisionRisk(droneID fmt.Stringer, neighborID fmt.Stringer, distanceM float64) {
	l.logger.Printf("COLLISION_RISK: drone=%s neighbor=%s distance=%.3f", droneID, neighborID, distanceM)
}

func (l *SchedulerLogger) LogCommandDropped(kind string, reason string) {
	l.logger.Printf("COMMAND_DROPPED: kind=%s reason=%s", kind, reason)
}

func (l *SchedulerLogger) LogWarn(operation string, err error) {
	l.logger.Printf("WARN: operation=%s error=%s", operation, err)
}

// Nop is a Logger that discards everything, used by default in tests
// that construct a Scheduler without caring about its log output.
type Nop struct{}

func (Nop) LogTick(uint64, int64, time.Duration)                  {}
func (Nop) LogIgnite(int, int, float64, bool)                     {}
func (Nop) LogSuppress(int, int, float64, float64)                {}
func (Nop) LogFireTransition(int, int, string, string)            {}
func (Nop) LogStateTransition(fmt.Stringer, string, string, string) {}
func (Nop) LogRTL(fmt.Stringer, string)                           {}
func (Nop) LogDetmTrigger(fmt.Stringer, bool, float64, float64)   {}
func (Nop) LogDock(fmt.Stringer)                                  {}
func (Nop) LogCollisionRisk(fmt.Stringer, fmt.Stringer, float64)  {}
func (Nop) LogCommandDropped(string, string)                      {}
func (Nop) LogWarn(string, error)                                 {}
