// Package energy implements the EnergyBank battery and payload model:
// flight/hover drain, suppression payload consumption, dock recharge,
// and the ShouldReturnToLaunch override policy. State is owned, ticked
// physics mutated only by explicit methods and read by the agent state
// machine, rather than a field some other component pokes directly.
package energy

// Config is the subset of config.CoreConfig the energy model needs.
type Config struct {
	BatteryCapacityMAh    float64
	BatteryVoltageV       float64
	DrainPerM             float64
	DrainPerSHover        float64
	BatteryMinPercent     float64
	MaxPayloadUnits       float64
	PayloadPerSuppression float64
}

// Bank is one drone's energy and payload state, owned by the scheduler
// and mutated only through its methods.
type Bank struct {
	cfg            Config
	capacityMAh    float64 // remaining
	payloadUnits   float64 // remaining
	docked         bool
	rtlLatched     bool
	rtlReason      string
}

// New returns a fully charged, fully loaded Bank.
func New(cfg Config) *Bank {
	return &Bank{
		cfg:          cfg,
		capacityMAh:  cfg.BatteryCapacityMAh,
		payloadUnits: cfg.MaxPayloadUnits,
	}
}

// PercentRemaining is the battery's state of charge as a percentage.
func (b *Bank) PercentRemaining() float64 {
	if b.cfg.BatteryCapacityMAh <= 0 {
		return 0
	}
	return 100 * b.capacityMAh / b.cfg.BatteryCapacityMAh
}

// PayloadRemaining is the number of suppression actions still available.
func (b *Bank) PayloadRemaining() float64 {
	return b.payloadUnits
}

// IsDocked reports whether the drone is currently docked (recharging,
// not draining).
func (b *Bank) IsDocked() bool {
	return b.docked
}

// DrainFlight consumes battery for moving distanceM meters this tick.
// No-op while docked.
func (b *Bank) DrainFlight(distanceM float64) {
	if b.docked {
		return
	}
	b.consumeMAh(distanceM * b.cfg.DrainPerM)
}

// DrainHover consumes battery for hovering for dtSeconds this tick.
// No-op while docked.
func (b *Bank) DrainHover(dtSeconds float64) {
	if b.docked {
		return
	}
	b.consumeMAh(dtSeconds * b.cfg.DrainPerSHover)
}

func (b *Bank) consumeMAh(mAh float64) {
	b.capacityMAh -= mAh
	if b.capacityMAh < 0 {
		b.capacityMAh = 0
	}
}

// ConsumeSuppression spends PayloadPerSuppression units of payload for a
// suppression action. Returns false (and spends nothing) if fewer than
// that many units remain.
func (b *Bank) ConsumeSuppression() bool {
	if b.payloadUnits < b.cfg.PayloadPerSuppression {
		return false
	}
	b.payloadUnits -= b.cfg.PayloadPerSuppression
	return true
}

// HasPayload reports whether at least one suppression action remains.
func (b *Bank) HasPayload() bool {
	return b.payloadUnits >= b.cfg.PayloadPerSuppression
}

// Dock fully recharges the battery and refills payload, and marks the
// drone as docked (no further drain) until Launch is called.
func (b *Bank) Dock() {
	b.capacityMAh = b.cfg.BatteryCapacityMAh
	b.payloadUnits = b.cfg.MaxPayloadUnits
	b.docked = true
	b.rtlLatched = false
	b.rtlReason = ""
}

// Launch clears the docked flag, allowing drain to resume.
func (b *Bank) Launch() {
	b.docked = false
}

// ShouldReturnToLaunch implements the RTL override policy: battery
// critical takes precedence, then an empty payload also forces RTL
// (nothing left to suppress with, so continuing the mission wastes
// flight time). Either condition latches RTL true and it stays true
// (even if, implausibly, the triggering condition were to clear) until
// the next Dock call resets it. Latching avoids a drone oscillating in
// and out of RTL near a threshold.
func (b *Bank) ShouldReturnToLaunch() (bool, string) {
	if b.PercentRemaining() <= b.cfg.BatteryMinPercent {
		b.rtlLatched = true
		b.rtlReason = "battery_critical"
		return true, b.rtlReason
	}
	if !b.HasPayload() {
		b.rtlLatched = true
		if b.rtlReason != "battery_critical" {
			b.rtlReason = "payload_empty"
		}
		return true, b.rtlReason
	}
	if b.rtlLatched {
		return true, b.rtlReason
	}
	return false, "none"
}
