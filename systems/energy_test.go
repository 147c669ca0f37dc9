package systems

import (
	"math"
	"testing"

	"github.com/ersanchez/laguna/components"
)

func TestMetabolize_DeadEntityNoOp(t *testing.T) {
	vit := components.Vitals{Energy: 50, MaxEnergy: 100, Age: 10, Lifespan: 120, Alive: false}
	Metabolize(&vit, 1.0, 1.0)
	if vit.Energy != 50 || vit.Age != 10 {
		t.Errorf("dead entity changed: energy %g age %g", vit.Energy, vit.Age)
	}
}

func TestMetabolize_DrainAndAge(t *testing.T) {
	vit := components.Vitals{Energy: 50, MaxEnergy: 100, Lifespan: 120, Alive: true}
	Metabolize(&vit, 1.5, 2.0)
	if math.Abs(float64(vit.Energy-47)) > 1e-5 {
		t.Errorf("expected energy 47, got %g", vit.Energy)
	}
	if vit.Age != 2 {
		t.Errorf("expected age 2, got %g", vit.Age)
	}
	if !vit.Alive {
		t.Error("entity should survive the drain")
	}
}

func TestMetabolize_StarvationDeath(t *testing.T) {
	vit := components.Vitals{Energy: 0.5, MaxEnergy: 100, Lifespan: 120, Alive: true}
	Metabolize(&vit, 1.0, 1.0)
	if vit.Alive {
		t.Error("entity should have starved")
	}
	if vit.Energy != 0 {
		t.Errorf("energy should clamp at 0, got %g", vit.Energy)
	}
}

func TestMetabolize_OldAgeDeath(t *testing.T) {
	vit := components.Vitals{Energy: 80, MaxEnergy: 100, Age: 119.5, Lifespan: 120, Alive: true}
	Metabolize(&vit, 0.1, 1.0)
	if vit.Alive {
		t.Error("entity should have died of old age")
	}
}

func TestMetabolize_ZeroLifespanNeverAgesOut(t *testing.T) {
	vit := components.Vitals{Energy: 10, MaxEnergy: 20, Age: 100000, Lifespan: 0, Alive: true}
	Metabolize(&vit, 0, 1.0)
	if !vit.Alive {
		t.Error("zero lifespan must mean no age limit")
	}
}

func TestConsume_TransferCappedByGain(t *testing.T) {
	eater := components.Vitals{Energy: 100, MaxEnergy: 300, Alive: true}
	prey := components.Vitals{Energy: 160, MaxEnergy: 180, Alive: true}

	gain := Consume(&eater, &prey, 85, 0.7)

	// 160 * 0.7 = 112, capped at 85.
	if gain != 85 {
		t.Errorf("expected gain 85, got %g", gain)
	}
	if eater.Energy != 185 {
		t.Errorf("expected eater energy 185, got %g", eater.Energy)
	}
	if prey.Alive || prey.Energy != 0 {
		t.Errorf("prey should be dead and drained, alive=%v energy=%g", prey.Alive, prey.Energy)
	}
}

func TestConsume_CappedByFreeCapacity(t *testing.T) {
	eater := components.Vitals{Energy: 95, MaxEnergy: 100, Alive: true}
	prey := components.Vitals{Energy: 80, MaxEnergy: 100, Alive: true}

	gain := Consume(&eater, &prey, 35, 0.5)

	if gain != 5 {
		t.Errorf("expected gain limited to free capacity 5, got %g", gain)
	}
	if eater.Energy != 100 {
		t.Errorf("eater should be full, got %g", eater.Energy)
	}
}

func TestConsume_NeverCreatesEnergy(t *testing.T) {
	eater := components.Vitals{Energy: 50, MaxEnergy: 300, Alive: true}
	prey := components.Vitals{Energy: 40, MaxEnergy: 180, Alive: true}

	before := eater.Energy + prey.Energy
	Consume(&eater, &prey, 85, 0.7)
	after := eater.Energy + prey.Energy

	if after > before {
		t.Errorf("meal created energy: %g -> %g", before, after)
	}
}

func TestConsume_DeadPreyYieldsNothing(t *testing.T) {
	eater := components.Vitals{Energy: 50, MaxEnergy: 100, Alive: true}
	prey := components.Vitals{Energy: 40, MaxEnergy: 100, Alive: false}

	if gain := Consume(&eater, &prey, 35, 0.5); gain != 0 {
		t.Errorf("expected 0 gain from dead prey, got %g", gain)
	}
	if eater.Energy != 50 {
		t.Errorf("eater energy changed: %g", eater.Energy)
	}
}

func TestGraze_YieldScalesWithGrowth(t *testing.T) {
	eater := components.Vitals{Energy: 10, MaxEnergy: 100, Alive: true}
	alga := components.Vitals{Energy: 10, MaxEnergy: 20, Alive: true}

	gain := Graze(&eater, &alga, 20, 50)

	// 20 * 50/100 = 10.
	if gain != 10 {
		t.Errorf("expected gain 10, got %g", gain)
	}
	if alga.Alive {
		t.Error("grazed alga should be dead")
	}
}

func TestGraze_FullyGrownYieldsFullValue(t *testing.T) {
	eater := components.Vitals{Energy: 0, MaxEnergy: 100, Alive: true}
	alga := components.Vitals{Energy: 20, MaxEnergy: 20, Alive: true}

	if gain := Graze(&eater, &alga, 20, 100); gain != 20 {
		t.Errorf("expected gain 20, got %g", gain)
	}
}
