package systems

import (
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/ersanchez/laguna/components"
	"github.com/ersanchez/laguna/config"
)

func TestGrowAlga_ScalesWithRegen(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}

	org := components.Organism{Species: components.SpeciesAlga, Growth: 50}
	vit := components.Vitals{Energy: 10, MaxEnergy: 20, Alive: true}

	GrowAlga(&org, &vit, &cfg.Alga, 0.5, 1.0)

	want := float32(50) + float32(cfg.Alga.GrowthRate)*0.5
	if org.Growth != want {
		t.Errorf("expected growth %g, got %g", want, org.Growth)
	}
	wantEnergy := float32(cfg.Alga.EnergyValue) * want / 100
	if vit.Energy != wantEnergy {
		t.Errorf("expected energy %g, got %g", wantEnergy, vit.Energy)
	}
}

func TestGrowAlga_CapsAtFullGrowth(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}

	org := components.Organism{Species: components.SpeciesAlga, Growth: 97}
	vit := components.Vitals{Energy: 19, MaxEnergy: 20, Alive: true}

	GrowAlga(&org, &vit, &cfg.Alga, 2.0, 1.0)

	if org.Growth != 100 {
		t.Errorf("growth should cap at 100, got %g", org.Growth)
	}
	if vit.Energy != float32(cfg.Alga.EnergyValue) {
		t.Errorf("full alga should hold the full energy value, got %g", vit.Energy)
	}
}

func TestCanSeed_RespectsDensityCap(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}

	w := ecs.NewWorld()
	mapper := ecs.NewMap4[components.Position, components.Velocity, components.Vitals, components.Organism](w)
	posMap := ecs.NewMap1[components.Position](w)
	orgMap := ecs.NewMap1[components.Organism](w)
	vitMap := ecs.NewMap1[components.Vitals](w)
	grid := NewSpatialGrid(1024, 768, 64)

	spawnAlga := func(x, y float32) ecs.Entity {
		pos := components.Position{X: x, Y: y}
		vel := components.Velocity{}
		vit := components.Vitals{Energy: 20, MaxEnergy: 20, Alive: true}
		org := components.Organism{Species: components.SpeciesAlga, Growth: 100}
		e := mapper.NewEntity(&pos, &vel, &vit, &org)
		grid.Insert(e, x, y)
		return e
	}

	parent := spawnAlga(500, 400)
	parentOrg := orgMap.Get(parent)

	scratch := make([]Neighbor, 0, 16)
	if !CanSeed(grid, posMap, orgMap, vitMap, parent, parentOrg, 500, 400, &cfg.Alga, &scratch) {
		t.Fatal("a lone fully grown alga should be able to seed")
	}

	// Crowd the patch past the density cap.
	for i := 0; i < cfg.Alga.LocalDensityCap; i++ {
		spawnAlga(500+float32(i+1)*4, 400)
	}
	if CanSeed(grid, posMap, orgMap, vitMap, parent, parentOrg, 500, 400, &cfg.Alga, &scratch) {
		t.Error("seeding should stop once the local density cap is reached")
	}
}

func TestCanSeed_RequiresFullGrowth(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}

	w := ecs.NewWorld()
	posMap := ecs.NewMap1[components.Position](w)
	orgMap := ecs.NewMap1[components.Organism](w)
	vitMap := ecs.NewMap1[components.Vitals](w)
	grid := NewSpatialGrid(1024, 768, 64)

	org := components.Organism{Species: components.SpeciesAlga, Growth: 60}
	scratch := make([]Neighbor, 0, 16)
	if CanSeed(grid, posMap, orgMap, vitMap, ecs.Entity{}, &org, 500, 400, &cfg.Alga, &scratch) {
		t.Error("an alga below full growth must not seed")
	}
}
