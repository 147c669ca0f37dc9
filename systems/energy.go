package systems

import "github.com/ersanchez/laguna/components"

// Metabolize applies one tick of metabolic drain and aging, then checks
// for death. drain is the species base drain already multiplied by the
// season and day-phase factors. Energy never goes below zero.
func Metabolize(vit *components.Vitals, drain, dt float32) {
	if !vit.Alive {
		return
	}

	vit.Age += dt

	vit.Energy -= drain * dt
	if vit.Energy < 0 {
		vit.Energy = 0
	}

	if vit.Energy <= 0 {
		vit.Alive = false
		return
	}
	if vit.Lifespan > 0 && vit.Age > vit.Lifespan {
		vit.Alive = false
	}
}

// Consume transfers energy from prey to eater. The gain is frac of the
// prey's remaining energy, capped at gainCap and at the eater's free
// capacity. The prey is killed and its energy zeroed so the total energy
// in the system never increases on a meal. Returns the energy gained.
func Consume(eater, prey *components.Vitals, gainCap, frac float32) float32 {
	if !eater.Alive || !prey.Alive {
		return 0
	}

	gain := prey.Energy * frac
	if gain > gainCap {
		gain = gainCap
	}
	if free := eater.MaxEnergy - eater.Energy; gain > free {
		gain = free
	}
	if gain < 0 {
		gain = 0
	}

	eater.Energy += gain
	prey.Energy = 0
	prey.Alive = false

	return gain
}

// Graze is Consume for the fish/algae link: the yield scales with the
// alga's growth, so a freshly sprouted alga is worth almost nothing.
func Graze(eater, alga *components.Vitals, energyValue, growth float32) float32 {
	if !eater.Alive || !alga.Alive {
		return 0
	}

	gain := energyValue * growth / 100
	if free := eater.MaxEnergy - eater.Energy; gain > free {
		gain = free
	}
	if gain < 0 {
		gain = 0
	}

	eater.Energy += gain
	alga.Energy = 0
	alga.Alive = false

	return gain
}
