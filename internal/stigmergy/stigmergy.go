// Package stigmergy implements a decaying pheromone grid used for
// indirect drone-to-drone coordination: agents in Search/Suppress mark
// cells they've visited, and Search's waypoint scorer prefers unmarked
// cells over recently visited ones. It is a first-class part of the
// agent decision loop, wired into the scheduler's per-tick DroneAgents
// step, structurally similar to internal/fire's grid (same
// width/height/decay-per-tick shape, much simpler per-cell state).
package stigmergy

// Grid is a scalar pheromone field over the same dimensions as the fire
// grid.
type Grid struct {
	width, height int
	decay         float64
	cells         [][]float64
}

// New allocates a zeroed pheromone grid. decayPerTick is the multiplier
// applied to every cell once per tick (e.g. 0.95 means 5% decay/tick).
func New(width, height int, decayPerTick float64) *Grid {
	cells := make([][]float64, width)
	for x := range cells {
		cells[x] = make([]float64, height)
	}
	return &Grid{width: width, height: height, decay: decayPerTick, cells: cells}
}

func (g *Grid) inBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// Mark deposits one unit of pheromone at (x, y), clamped to 1.0. A no-op
// out of bounds.
func (g *Grid) Mark(x, y int) {
	if !g.inBounds(x, y) {
		return
	}
	g.cells[x][y] += 1.0
	if g.cells[x][y] > 1.0 {
		g.cells[x][y] = 1.0
	}
}

// Score returns the pheromone level at (x, y), or 0 out of bounds.
func (g *Grid) Score(x, y int) float64 {
	if !g.inBounds(x, y) {
		return 0
	}
	return g.cells[x][y]
}

// Step decays every cell by one tick.
func (g *Grid) Step() {
	for x := 0; x < g.width; x++ {
		for y := 0; y < g.height; y++ {
			g.cells[x][y] *= g.decay
		}
	}
}
