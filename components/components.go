// Package components defines ECS components for the ecosystem simulation.
package components

// Species identifies one of the four kinds in the food chain.
// The set is closed: entities never change species at runtime.
type Species uint8

const (
	SpeciesAlga Species = iota
	SpeciesPez
	SpeciesTrucha
	SpeciesTiburon

	NumSpecies = 4
)

// String returns the species name used in snapshots and save records.
func (s Species) String() string {
	switch s {
	case SpeciesAlga:
		return "alga"
	case SpeciesPez:
		return "pez"
	case SpeciesTrucha:
		return "trucha"
	case SpeciesTiburon:
		return "tiburon"
	}
	return "unknown"
}

// ParseSpecies converts a save-record species name back to a Species.
func ParseSpecies(name string) (Species, bool) {
	switch name {
	case "alga":
		return SpeciesAlga, true
	case "pez":
		return SpeciesPez, true
	case "trucha":
		return SpeciesTrucha, true
	case "tiburon":
		return SpeciesTiburon, true
	}
	return 0, false
}

// IsAnimal reports whether the species moves and metabolizes.
func (s Species) IsAnimal() bool {
	return s != SpeciesAlga
}

// Prey returns the species s feeds on. Algae feed on nothing.
func (s Species) Prey() (Species, bool) {
	switch s {
	case SpeciesPez:
		return SpeciesAlga, true
	case SpeciesTrucha:
		return SpeciesPez, true
	case SpeciesTiburon:
		return SpeciesTrucha, true
	}
	return 0, false
}

// Threats returns the species that hunt s, in priority order.
func (s Species) Threats() []Species {
	switch s {
	case SpeciesPez:
		return []Species{SpeciesTrucha, SpeciesTiburon}
	case SpeciesTrucha:
		return []Species{SpeciesTiburon}
	}
	return nil
}

// State describes what an animal decided to do this tick.
// Purely informational: rendering and telemetry read it, nothing branches on it.
type State uint8

const (
	StateIdle State = iota
	StateWandering
	StateSchooling
	StateGrazing
	StateHunting
	StateFleeing
	StatePatrolling
)

func (st State) String() string {
	switch st {
	case StateIdle:
		return "idle"
	case StateWandering:
		return "wandering"
	case StateSchooling:
		return "schooling"
	case StateGrazing:
		return "grazing"
	case StateHunting:
		return "hunting"
	case StateFleeing:
		return "fleeing"
	case StatePatrolling:
		return "patrolling"
	}
	return "unknown"
}

// Position is an entity's world position, always inside [0,W)x[0,H).
type Position struct {
	X, Y float32
}

// Velocity in world units per second. Zero for algae.
type Velocity struct {
	X, Y float32
}

// Vitals holds the life-cycle state shared by every entity.
// Energy never goes negative; an entity with Alive=false is purged
// from all live structures at the end of the tick it died in.
type Vitals struct {
	Energy    float32
	MaxEnergy float32
	Age       float32
	Lifespan  float32 // 0 = no age limit (algae)
	Alive     bool
}

// Organism holds per-entity identity and behavior state.
type Organism struct {
	ID      uint32
	Species Species

	// BaseSpeed is the intrinsic cruise speed in units/s, drawn once at
	// spawn from the species range. Season and phase multipliers scale it.
	BaseSpeed float32

	// NoiseOffset selects this entity's channel in the shared noise field.
	// It stays fixed for the entity's lifetime so evasion jitter and wander
	// headings are persistent rather than re-randomized every tick.
	NoiseOffset float32

	// TargetID is the locked prey id for predators (0 = none). Persisted
	// across ticks so sharks keep chasing the same trout.
	TargetID uint32

	// Growth is algae biomass, 0-100. Unused for animals.
	Growth float32

	State State
}
