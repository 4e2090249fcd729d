package core

import (
	"github.com/aerosyn-sim/swarmcore/internal/agent"
	"github.com/aerosyn-sim/swarmcore/internal/domain"
)

// schedulerView is the only implementer of agent.WorldView; it exists so
// agent.Step can read the Scheduler's tables without ever holding a
// pointer back into *Scheduler itself.
type schedulerView struct {
	s    *Scheduler
	self *droneRecord
}

func (v schedulerView) DetectFire(pos [3]float64, rangeM float64) (cellX, cellY int, worldX, worldY, intensity float64, ok bool) {
	cellSize := v.s.cfg.CellSizeM
	if cellSize <= 0 {
		cellSize = 1
	}
	selfGX, selfGY := int(pos[0]/cellSize), int(pos[1]/cellSize)
	radiusCells := int(rangeM/cellSize) + 1

	bestDistSq := (rangeM + 1) * (rangeM + 1)
	found := false
	for dx := -radiusCells; dx <= radiusCells; dx++ {
		for dy := -radiusCells; dy <= radiusCells; dy++ {
			gx, gy := selfGX+dx, selfGY+dy
			cell, inBounds := v.s.fireGrid.Cell(gx, gy)
			if !inBounds || cell.Intensity < v.s.cfg.DetectableThreshold {
				continue
			}
			cwx, cwy := float64(gx)*cellSize+cellSize/2, float64(gy)*cellSize+cellSize/2
			dxw, dyw := cwx-pos[0], cwy-pos[1]
			dist := dxw*dxw + dyw*dyw
			if dist > rangeM*rangeM {
				continue
			}
			if dist < bestDistSq {
				bestDistSq = dist
				cellX, cellY, worldX, worldY, intensity = gx, gy, cwx, cwy, cell.Intensity
				found = true
			}
		}
	}
	return cellX, cellY, worldX, worldY, intensity, found
}

func (v schedulerView) StigmergyScore(cellX, cellY int) float64 {
	return v.s.pheromone.Score(cellX, cellY)
}

func (v schedulerView) NeighborEstimate(id domain.DroneId) (pos [3]float64, confidence float64, velocityStale bool, ok bool) {
	return v.self.obs.Predict(int(id), v.s.clock.TimeUs(), v.s.clock.Tick())
}

func (v schedulerView) CollisionRisks(selfPos [3]float64, minSeparationM float64) []agent.CollisionWarning {
	risks := v.self.obs.CollisionRisks(v.s.clock.TimeUs(), v.s.clock.Tick(), selfPos, minSeparationM)
	if len(risks) == 0 {
		return nil
	}
	warnings := make([]agent.CollisionWarning, len(risks))
	for i, r := range risks {
		warnings[i] = agent.CollisionWarning{NeighborID: domain.DroneId(r.NeighborID), DistanceM: r.DistanceM}
	}
	return warnings
}

func (v schedulerView) HomePosition() [3]float64 {
	return [3]float64{v.s.cfg.HomeX, v.s.cfg.HomeY, v.s.cfg.HomeZ}
}
