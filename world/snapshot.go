package world

import (
	"fmt"
	"slices"

	"github.com/ersanchez/laguna/components"
	"github.com/ersanchez/laguna/environment"
)

// EntitySnapshot is a read-only copy of one entity's public state.
type EntitySnapshot struct {
	ID        uint32
	Species   components.Species
	X, Y      float32
	VelX      float32
	VelY      float32
	Energy    float32
	MaxEnergy float32
	Age       float32
	Growth    float32
	State     components.State
	TargetID  uint32
}

// Snapshot is a deep copy of the observable world state at one instant.
// Mutating it never affects the live world; readers can hold it across
// ticks.
type Snapshot struct {
	Tick   int64
	Day    int
	Season environment.Season
	Phase  environment.Phase
	Light  float32
	Counts [components.NumSpecies]int

	Entities []EntitySnapshot
}

// Snapshot copies the current world state. Entities are ordered by id so
// output is stable across runs with the same seed.
func (w *World) Snapshot() *Snapshot {
	s := &Snapshot{
		Tick:     w.tick,
		Day:      w.clock.Day(),
		Season:   w.clock.Season(),
		Phase:    w.clock.Phase(),
		Light:    w.clock.LightFactor(),
		Counts:   w.counts,
		Entities: make([]EntitySnapshot, 0, len(w.byID)),
	}

	query := w.filter.Query()
	for query.Next() {
		pos, vel, vit, org := query.Get()
		if !vit.Alive {
			continue
		}
		s.Entities = append(s.Entities, EntitySnapshot{
			ID:        org.ID,
			Species:   org.Species,
			X:         pos.X,
			Y:         pos.Y,
			VelX:      vel.X,
			VelY:      vel.Y,
			Energy:    vit.Energy,
			MaxEnergy: vit.MaxEnergy,
			Age:       vit.Age,
			Growth:    org.Growth,
			State:     org.State,
			TargetID:  org.TargetID,
		})
	}

	slices.SortFunc(s.Entities, func(a, b EntitySnapshot) int {
		return int(a.ID) - int(b.ID)
	})

	return s
}

// EntityByID returns a copy of one live entity's state.
func (w *World) EntityByID(id uint32) (EntitySnapshot, error) {
	e, ok := w.byID[id]
	if !ok {
		return EntitySnapshot{}, fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	pos := w.posMap.Get(e)
	vel := w.velMap.Get(e)
	vit := w.vitMap.Get(e)
	org := w.orgMap.Get(e)
	if pos == nil || vel == nil || vit == nil || org == nil {
		return EntitySnapshot{}, fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	return EntitySnapshot{
		ID:        org.ID,
		Species:   org.Species,
		X:         pos.X,
		Y:         pos.Y,
		VelX:      vel.X,
		VelY:      vel.Y,
		Energy:    vit.Energy,
		MaxEnergy: vit.MaxEnergy,
		Age:       vit.Age,
		Growth:    org.Growth,
		State:     org.State,
		TargetID:  org.TargetID,
	}, nil
}
