// Package deploy computes the fleet's initial positions once at
// scheduler construction: a seeded k-means clustering over a random
// scatter of expected fire-risk points, so drones start spread across the
// areas most likely to need coverage instead of stacked at the home
// position. Determinism follows the rand.New(rand.NewSource(seed))
// pattern used throughout this tree, rather than the global rand source.
package deploy

import (
	"math"
	"math/rand"

	"github.com/aerosyn-sim/swarmcore/internal/domain"
)

// Config is the subset of config.CoreConfig the placement step needs.
type Config struct {
	GridWidth    int
	GridHeight   int
	CellSizeM    float64
	HomeX        float64
	HomeY        float64
	HomeZ        float64
	NumLeaders   int
	NumFollowers int
	Seed         int64
}

// InitialPositions returns one pose per drone (leaders first, then
// followers), clustered via k-means over a seeded scatter of synthetic
// fire-risk points across the grid. Deterministic for a fixed cfg.
func InitialPositions(cfg Config) []domain.DronePose {
	count := cfg.NumLeaders + cfg.NumFollowers
	if count <= 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(cfg.Seed + 7))
	riskPoints := scatterRiskPoints(cfg, rng, 200)
	centers := kmeans(riskPoints, count, rng, 25)

	poses := make([]domain.DronePose, count)
	for i, c := range centers {
		poses[i] = domain.DronePose{X: c[0], Y: c[1], Z: cfg.HomeZ}
	}
	return poses
}

func scatterRiskPoints(cfg Config, rng *rand.Rand, n int) [][2]float64 {
	widthM := float64(cfg.GridWidth) * cfg.CellSizeM
	heightM := float64(cfg.GridHeight) * cfg.CellSizeM
	points := make([][2]float64, n)
	for i := range points {
		points[i] = [2]float64{rng.Float64() * widthM, rng.Float64() * heightM}
	}
	return points
}

// kmeans runs Lloyd's algorithm for a fixed number of iterations
// (simplicity over early-stopping, since determinism matters more than
// shaving iterations here). Centers are seeded from a random subset of
// points.
func kmeans(points [][2]float64, k int, rng *rand.Rand, iterations int) [][2]float64 {
	if len(points) == 0 || k <= 0 {
		return make([][2]float64, k)
	}
	wantK := k
	if k > len(points) {
		k = len(points)
	}

	centers := make([][2]float64, k)
	perm := rng.Perm(len(points))
	for i := 0; i < k; i++ {
		centers[i] = points[perm[i]]
	}

	assignments := make([]int, len(points))
	for iter := 0; iter < iterations; iter++ {
		for pi, p := range points {
			best, bestDist := 0, math.Inf(1)
			for ci, c := range centers {
				d := sqDist(p, c)
				if d < bestDist {
					best, bestDist = ci, d
				}
			}
			assignments[pi] = best
		}

		sums := make([][2]float64, k)
		counts := make([]int, k)
		for pi, p := range points {
			c := assignments[pi]
			sums[c][0] += p[0]
			sums[c][1] += p[1]
			counts[c]++
		}
		for ci := range centers {
			if counts[ci] == 0 {
				continue
			}
			centers[ci] = [2]float64{sums[ci][0] / float64(counts[ci]), sums[ci][1] / float64(counts[ci])}
		}
	}

	// Pad back up to the requested count if there were fewer points than
	// drones to place.
	for len(centers) < wantK {
		centers = append(centers, centers[len(centers)-1])
	}
	return centers
}

func sqDist(a, b [2]float64) float64 {
	dx, dy := a[0]-b[0], a[1]-b[1]
	return dx*dx + dy*dy
}
