package detm

import (
	"math"
	"testing"
)

func testConfig(norm Norm) Config {
	return Config{Eta0: 1.0, Lambda: 0.1, Norm: norm, MinEta: 0.05}
}

func TestColdStartAlwaysFires(t *testing.T) {
	g := New(testConfig(NormL2))
	fire, errNorm := g.ShouldTransmit([6]float64{1, 2, 3, 0, 0, 0})
	if !fire {
		t.Fatalf("expected cold-start transmission to always fire")
	}
	if !math.IsInf(errNorm, 1) {
		t.Fatalf("expected cold-start errNorm to be +Inf, got %v", errNorm)
	}
}

func TestShouldTransmitDoesNotMutateState(t *testing.T) {
	g := New(testConfig(NormL2))
	g.ShouldTransmit([6]float64{1, 0, 0, 0, 0, 0})
	fire, _ := g.ShouldTransmit([6]float64{1, 0, 0, 0, 0, 0})
	if !fire {
		t.Fatalf("expected ShouldTransmit to remain side-effect free (still cold-start on second call)")
	}
}

func TestRecordTransmissionResetsThresholdAndBaseline(t *testing.T) {
	g := New(testConfig(NormL2))
	g.RecordTransmission([6]float64{1, 1, 1, 0, 0, 0})
	if g.Threshold() != g.cfg.Eta0 {
		t.Fatalf("expected threshold reset to Eta0, got %v", g.Threshold())
	}

	fire, errNorm := g.ShouldTransmit([6]float64{1, 1, 1, 0, 0, 0})
	if fire {
		t.Fatalf("expected identical state to not exceed threshold, errNorm=%v", errNorm)
	}
}

func TestDecayApproachesMinEta(t *testing.T) {
	g := New(testConfig(NormL2))
	g.RecordTransmission([6]float64{0, 0, 0, 0, 0, 0})
	for i := 0; i < 1000; i++ {
		g.Decay(100_000) // 100ms per step, 100s total
	}
	if g.Threshold() != g.cfg.MinEta {
		t.Fatalf("expected threshold to floor at MinEta after many decays, got %v", g.Threshold())
	}
}

func TestDecayTightensThresholdOverTime(t *testing.T) {
	g := New(testConfig(NormL2))
	g.RecordTransmission([6]float64{0, 0, 0, 0, 0, 0})
	first := g.Threshold()
	g.Decay(10_000)
	second := g.Threshold()
	if second >= first {
		t.Fatalf("expected threshold to shrink after one decay: first=%v second=%v", first, second)
	}
}

func TestDecayRateIndependentOfTickRate(t *testing.T) {
	// Decaying by 10ms in one call must match decaying by 1ms ten times:
	// the decay depends on elapsed simulated time, not call (tick) count.
	gCoarse := New(testConfig(NormL2))
	gCoarse.RecordTransmission([6]float64{0, 0, 0, 0, 0, 0})
	gCoarse.Decay(10_000)

	gFine := New(testConfig(NormL2))
	gFine.RecordTransmission([6]float64{0, 0, 0, 0, 0, 0})
	for i := 0; i < 10; i++ {
		gFine.Decay(1_000)
	}

	if math.Abs(gCoarse.Threshold()-gFine.Threshold()) > 1e-9 {
		t.Fatalf("expected decay to depend only on elapsed time, got coarse=%v fine=%v", gCoarse.Threshold(), gFine.Threshold())
	}
}

func TestNormLInfUsesMaxComponentDeviation(t *testing.T) {
	g := New(testConfig(NormLInf))
	g.RecordTransmission([6]float64{0, 0, 0, 0, 0, 0})
	_, errNorm := g.ShouldTransmit([6]float64{1, 5, 2, 0, 0, 0})
	if errNorm != 5 {
		t.Fatalf("expected L-infinity deviation to be the max absolute component delta (5), got %v", errNorm)
	}
}

func TestNormL2UsesEuclideanDeviation(t *testing.T) {
	g := New(testConfig(NormL2))
	g.RecordTransmission([6]float64{0, 0, 0, 0, 0, 0})
	_, errNorm := g.ShouldTransmit([6]float64{3, 4, 0, 0, 0, 0})
	if errNorm != 5 {
		t.Fatalf("expected L2 deviation of (3,4,0,...) to be 5, got %v", errNorm)
	}
}

func TestLargeDeviationExceedsFreshThreshold(t *testing.T) {
	g := New(testConfig(NormL2))
	g.RecordTransmission([6]float64{0, 0, 0, 0, 0, 0})
	fire, _ := g.ShouldTransmit([6]float64{100, 100, 100, 0, 0, 0})
	if !fire {
		t.Fatalf("expected a large deviation to exceed even a freshly reset threshold")
	}
}
