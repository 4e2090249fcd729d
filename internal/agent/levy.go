// Package agent implements the DroneAgent state machine. levy.go
// supplies the Search state's waypoint generator: a seeded Lévy-flight
// step-length sampler drawing from a power-law step-length distribution,
// a pluggable behavior the core only requires to advertise a heading.
package agent

import (
	"math"
	"math/rand"
)

// LevyWalker samples heading-and-distance waypoints for the Search
// state: a uniformly random heading paired with a power-law distributed
// step length (heavy-tailed, so most steps are short local scans with
// occasional long relocations).
type LevyWalker struct {
	rng   *rand.Rand
	alpha float64 // power-law exponent, typically in (1, 3]
	minM  float64
	maxM  float64
}

// NewLevyWalker returns a walker seeded from seed, stepping between minM
// and maxM meters with exponent alpha.
func NewLevyWalker(seed int64, alpha, minM, maxM float64) *LevyWalker {
	return &LevyWalker{
		rng:   rand.New(rand.NewSource(seed)),
		alpha: alpha,
		minM:  minM,
		maxM:  maxM,
	}
}

// NextWaypoint returns a heading in degrees and a step length in meters
// for the next Search leg. The heading is an absolute compass heading
// (0 = +y), drawn uniformly from [0, 360).
func (w *LevyWalker) NextWaypoint() (headingDeg, stepM float64) {
	headingDeg = w.rng.Float64() * 360
	stepM = w.sampleStepLength()
	return headingDeg, stepM
}

// sampleStepLength draws from a bounded power-law distribution via
// inverse transform sampling: for exponent alpha > 1, step ~ min *
// (1-u)^(-1/(alpha-1)), clamped to maxM.
func (w *LevyWalker) sampleStepLength() float64 {
	u := w.rng.Float64()
	if u >= 1 {
		u = 0.999999
	}
	step := w.minM * math.Pow(1-u, -1/(w.alpha-1))
	if step > w.maxM {
		step = w.maxM
	}
	if step < w.minM {
		step = w.minM
	}
	return step
}
