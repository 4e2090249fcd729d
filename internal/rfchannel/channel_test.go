package rfchannel

import (
	"math"
	"testing"
)

func testConfig() Config {
	return Config{
		ReferenceDistanceM:   1,
		PathLossExponent:     2.5,
		ReferenceRSSIDBm:     -30,
		MaxRSSIDBm:           -20,
		KFactor:              4,
		FadingStdDB:          2,
		SensitivityDBm:       -90,
		BaseLatencyMs:        5,
		LatencyRSSIScale:     0.5,
		BasePacketLoss:       0.01,
		LossRSSIThresholdDBm: -80,
		Seed:                 7,
	}
}

func TestEvaluateCloserIsStrongerOnAverage(t *testing.T) {
	m := New(testConfig())

	var nearSum, farSum float64
	const trials = 500
	for i := 0; i < trials; i++ {
		nearSum += m.Evaluate(10).RSSIDBm
		farSum += m.Evaluate(1000).RSSIDBm
	}
	near := nearSum / trials
	far := farSum / trials
	if near <= far {
		t.Fatalf("expected closer distance to average a stronger RSSI: near=%v far=%v", near, far)
	}
}

func TestEvaluateClampsBelowReferenceDistance(t *testing.T) {
	m := New(testConfig())
	atRef := m.Evaluate(1)
	belowRef := m.Evaluate(0.1)
	if belowRef.DistanceM != atRef.DistanceM {
		t.Fatalf("expected sub-reference distance to clamp to reference distance")
	}
}

func TestEvaluateRSSINeverExceedsMax(t *testing.T) {
	m := New(testConfig())
	for i := 0; i < 200; i++ {
		link := m.Evaluate(1)
		if link.RSSIDBm > m.cfg.MaxRSSIDBm {
			t.Fatalf("RSSI %v exceeded configured max %v", link.RSSIDBm, m.cfg.MaxRSSIDBm)
		}
	}
}

func TestEvaluateFarDistanceDisconnects(t *testing.T) {
	m := New(testConfig())
	link := m.Evaluate(1_000_000)
	if link.Connected {
		t.Fatalf("expected a very distant link to be disconnected")
	}
	if link.LinkQuality != 0 {
		t.Fatalf("expected zero link quality at extreme distance, got %v", link.LinkQuality)
	}
}

func TestEvaluateLatencyGrowsWithDistance(t *testing.T) {
	m := New(testConfig())
	near := m.Evaluate(10)
	far := m.Evaluate(5000)
	if far.LatencyMs <= near.LatencyMs {
		t.Fatalf("expected latency to grow with distance: near=%v far=%v", near.LatencyMs, far.LatencyMs)
	}
}

func TestRiceFadingDBMatchesConfiguredStdDev(t *testing.T) {
	m := New(testConfig())

	const trials = 20000
	var sum, sumSq float64
	for i := 0; i < trials; i++ {
		v := m.riceFadingDB()
		sum += v
		sumSq += v * v
	}
	mean := sum / trials
	variance := sumSq/trials - mean*mean
	stddev := math.Sqrt(variance)

	want := m.cfg.FadingStdDB
	if math.Abs(stddev-want)/want > 0.25 {
		t.Fatalf("expected fading draw stddev within 25%% of configured %.3f dB, got %.3f dB (KFactor=%v must not reshape this draw)", want, stddev, m.cfg.KFactor)
	}
}

func TestDistance3(t *testing.T) {
	d := Distance3([3]float64{0, 0, 0}, [3]float64{3, 4, 0})
	if d != 5 {
		t.Fatalf("expected 3-4-5 triangle distance of 5, got %v", d)
	}
}
