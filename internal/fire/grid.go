// Package fire implements the FireGrid cellular-automaton wildfire model:
// a grid of cells that ignite, spread probabilistically to their
// neighbors under wind and fuel influence, burn out, and can be
// suppressed. A cell is identified by its grid coordinates and carries a
// small per-cell state record.
package fire

import (
	"math"
	"math/rand"
)

// CellState is the monotonic (except Burning->Suppressed) lifecycle of a
// FireCell.
type CellState int

const (
	NoFire CellState = iota
	Burning
	Burned
	Suppressed
)

func (s CellState) String() string {
	switch s {
	case NoFire:
		return "no_fire"
	case Burning:
		return "burning"
	case Burned:
		return "burned"
	case Suppressed:
		return "suppressed"
	default:
		return "unknown"
	}
}

// Cell is one grid cell's full physical state.
type Cell struct {
	X, Y            int
	State           CellState
	Intensity       float64
	Fuel            float64
	TemperatureK    float64
	IgnitionTimeUs  int64
	SuppressionAge  int
}

// Wind is owned by the grid. direction_deg=0 is +y (North);
// vx = speed*cos(90-dir), vy = speed*sin(90-dir).
type Wind struct {
	SpeedMS      float64
	DirectionDeg float64
}

func (w Wind) Components() (vx, vy float64) {
	rad := (90 - w.DirectionDeg) * math.Pi / 180
	return w.SpeedMS * math.Cos(rad), w.SpeedMS * math.Sin(rad)
}

// Config is the subset of config.CoreConfig the grid needs, passed in at
// construction so this package has no dependency on internal/config.
type Config struct {
	Width, Height            int
	CellSizeM                float64
	BaseSpreadMPM            float64
	WindScale                float64
	WindReferenceMS          float64
	IntensityDecay           float64
	SuppressionEffectiveness float64
	IgnitionMinIntensity     float64
	DetectableThreshold      float64
	TickPeriodS              float64
	Seed                     int64
}

// Grid is the authoritative fire state for the whole simulation.
type Grid struct {
	cfg          Config
	cells        [][]Cell
	rng          *rand.Rand
	wind         Wind
	burnedTotal  int
	burningTotal int
}

// New allocates an empty grid: every cell NoFire, fuel=1.
func New(cfg Config) *Grid {
	g := &Grid{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
	g.cells = make([][]Cell, cfg.Width)
	for x := range g.cells {
		g.cells[x] = make([]Cell, cfg.Height)
		for y := range g.cells[x] {
			g.cells[x][y] = Cell{X: x, Y: y, State: NoFire, Fuel: 1.0, TemperatureK: 300}
		}
	}
	return g
}

func (g *Grid) inBounds(x, y int) bool {
	return x >= 0 && x < g.cfg.Width && y >= 0 && y < g.cfg.Height
}

// SetWind overwrites the grid's wind (queued command target).
func (g *Grid) SetWind(speedMS, directionDeg float64) {
	g.wind = Wind{SpeedMS: speedMS, DirectionDeg: directionDeg}
}

// Wind returns the current wind.
func (g *Grid) GetWind() Wind {
	return g.wind
}

// Ignite forces a cell to Burning. Out-of-bounds returns false.
func (g *Grid) Ignite(gx, gy int, intensity float64, nowUs int64) bool {
	if !g.inBounds(gx, gy) {
		return false
	}
	c := &g.cells[gx][gy]
	wasBurning := c.State == Burning
	c.State = Burning
	if intensity < g.cfg.IgnitionMinIntensity {
		intensity = g.cfg.IgnitionMinIntensity
	}
	c.Intensity = intensity
	c.IgnitionTimeUs = nowUs
	c.TemperatureK = 500
	if !wasBurning {
		g.burningTotal++
	}
	return true
}

// Suppress reduces a cell's intensity, returning the applied reduction.
// Out-of-bounds returns 0.
func (g *Grid) Suppress(gx, gy int, strength float64) float64 {
	if !g.inBounds(gx, gy) {
		return 0
	}
	c := &g.cells[gx][gy]
	reduction := c.Intensity * strength * g.cfg.SuppressionEffectiveness
	c.Intensity -= reduction
	if c.Intensity < 0 {
		c.Intensity = 0
	}
	if c.Intensity == 0 && c.State == Burning {
		c.State = Suppressed
		c.TemperatureK = 300
		c.SuppressionAge = 0
		g.burningTotal--
	}
	return reduction
}

type queuedIgnition struct {
	x, y      int
	intensity float64
}

// Step advances the cellular automaton one tick. Returns the number of
// cells newly ignited this tick and the number of cells currently in the
// Suppressed state (their suppression-age counters are ticked here too).
func (g *Grid) Step() (newlyIgnited, suppressedCount int) {
	var queue []queuedIgnition

	for x := 0; x < g.cfg.Width; x++ {
		for y := 0; y < g.cfg.Height; y++ {
			c := &g.cells[x][y]
			switch c.State {
			case Suppressed:
				c.SuppressionAge++
				suppressedCount++
				continue
			case Burning:
				// fallthrough to propagation logic below
			default:
				continue
			}

			c.Intensity *= g.cfg.IntensityDecay
			c.TemperatureK = 300 + c.Intensity*700
			c.Fuel -= c.Intensity * 0.01
			if c.Fuel < 0 {
				c.Fuel = 0
			}
			if c.Fuel <= 0 || c.Intensity <= 0.001 {
				c.State = Burned
				c.Intensity = 0
				g.burnedTotal++
				g.burningTotal--
				continue
			}

			radiusCells := g.spreadRadiusCells(c.Fuel)
			g.queueSpread(x, y, c.Intensity, radiusCells, &queue)
		}
	}

	for _, q := range queue {
		if !g.inBounds(q.x, q.y) {
			continue
		}
		c := &g.cells[q.x][q.y]
		if c.State != NoFire {
			continue
		}
		g.Ignite(q.x, q.y, q.intensity, 0)
		newlyIgnited++
	}

	return newlyIgnited, suppressedCount
}

func (g *Grid) spreadRadiusCells(fuel float64) float64 {
	windSpeed := g.wind.SpeedMS
	spreadMpm := g.cfg.BaseSpreadMPM * fuel * (1 + (windSpeed/g.cfg.WindReferenceMS)*g.cfg.WindScale)
	cellsPerTick := (spreadMpm / 60.0) * g.cfg.TickPeriodS / g.cfg.CellSizeM
	if cellsPerTick < 1 {
		cellsPerTick = 1
	}
	return cellsPerTick
}

func (g *Grid) queueSpread(x, y int, intensity, radius float64, queue *[]queuedIgnition) {
	r := int(math.Ceil(radius))
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if !g.inBounds(nx, ny) {
				continue
			}
			d := math.Hypot(float64(dx), float64(dy))
			if d > radius {
				continue
			}
			neighbor := &g.cells[nx][ny]
			if neighbor.State != NoFire || neighbor.Fuel <= 0 {
				continue
			}
			distanceFactor := 0.2 + 0.8*(1-d/(radius+0.1))
			prob := intensity * distanceFactor * neighbor.Fuel * 0.5
			if prob > 1 {
				prob = 1
			}
			if g.rng.Float64() < prob {
				*queue = append(*queue, queuedIgnition{x: nx, y: ny, intensity: intensity * distanceFactor * 0.5})
			}
		}
	}
}

// Detect maps a world position to a grid cell and reports whether its
// intensity meets the detectable threshold.
func (g *Grid) Detect(worldX, worldY, rangeM float64) (detected bool, intensity float64) {
	gx := int(worldX / g.cfg.CellSizeM)
	gy := int(worldY / g.cfg.CellSizeM)
	if !g.inBounds(gx, gy) {
		return false, 0
	}
	intensity = g.cells[gx][gy].Intensity
	return intensity >= g.cfg.DetectableThreshold, intensity
}

// Cell returns a copy of the cell at (gx, gy) and whether it was in bounds.
func (g *Grid) Cell(gx, gy int) (Cell, bool) {
	if !g.inBounds(gx, gy) {
		return Cell{}, false
	}
	return g.cells[gx][gy], true
}

// Summary is the per-tick aggregate published in the Snapshot.
type Summary struct {
	BurningCells     int
	BurnedCells      int
	MaxIntensity     float64
	CoveragePercent  float64
	PerimeterCells   int
	FuelRemaining    float64
	WindSpeedMS      float64
	WindDirectionDeg float64
}

// Summarize computes the fire_summary fields for the Snapshot.
func (g *Grid) Summarize() Summary {
	s := Summary{WindSpeedMS: g.wind.SpeedMS, WindDirectionDeg: g.wind.DirectionDeg}
	total := g.cfg.Width * g.cfg.Height
	for x := 0; x < g.cfg.Width; x++ {
		for y := 0; y < g.cfg.Height; y++ {
			c := g.cells[x][y]
			switch c.State {
			case Burning:
				s.BurningCells++
				if c.Intensity > s.MaxIntensity {
					s.MaxIntensity = c.Intensity
				}
				if g.isPerimeter(x, y) {
					s.PerimeterCells++
				}
			case Burned:
				s.BurnedCells++
			}
			s.FuelRemaining += c.Fuel
		}
	}
	if total > 0 {
		s.CoveragePercent = 100 * float64(s.BurningCells+s.BurnedCells) / float64(total)
	}
	return s
}

func (g *Grid) isPerimeter(x, y int) bool {
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if !g.inBounds(nx, ny) {
				return true
			}
			if g.cells[nx][ny].State == NoFire {
				return true
			}
		}
	}
	return false
}

// Dimensions returns the grid's width and height in cells.
func (g *Grid) Dimensions() (int, int) {
	return g.cfg.Width, g.cfg.Height
}
