package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/ersanchez/laguna/components"
	"github.com/ersanchez/laguna/config"
)

// GrowAlga advances an alga's biomass by the regeneration-scaled growth
// rate. Energy tracks growth so feeding reads a consistent value.
func GrowAlga(org *components.Organism, vit *components.Vitals, cfg *config.AlgaConfig, regen, dt float32) {
	if !vit.Alive || org.Growth >= 100 {
		return
	}
	org.Growth += float32(cfg.GrowthRate) * regen * dt
	if org.Growth > 100 {
		org.Growth = 100
	}
	vit.Energy = float32(cfg.EnergyValue) * org.Growth / 100
}

// CanSeed reports whether an alga may drop a sprout here: the parent must
// be fully grown and the patch below the local density cap.
func CanSeed(grid *SpatialGrid, posMap *ecs.Map1[components.Position], orgMap *ecs.Map1[components.Organism], vitMap *ecs.Map1[components.Vitals],
	parent ecs.Entity, org *components.Organism, x, y float32, cfg *config.AlgaConfig, scratch *[]Neighbor) bool {
	if org.Growth < 100 {
		return false
	}
	*scratch = grid.QueryRadiusInto((*scratch)[:0], x, y, float32(cfg.SpawnRadius), parent, posMap)
	count := 0
	for _, n := range *scratch {
		no := orgMap.Get(n.E)
		nv := vitMap.Get(n.E)
		if no == nil || nv == nil || !nv.Alive || no.Species != components.SpeciesAlga {
			continue
		}
		count++
		if count >= cfg.LocalDensityCap {
			return false
		}
	}
	return true
}
