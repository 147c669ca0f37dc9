package world

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/mlange-42/ark/ecs"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ersanchez/laguna/components"
	"github.com/ersanchez/laguna/systems"
)

// saveVersion is bumped whenever the record layout changes.
const saveVersion = 1

//go:embed save_schema.json
var saveSchemaJSON string

// saveSchema rejects structurally broken records before any field is
// interpreted.
var saveSchema = jsonschema.MustCompileString("laguna://save_schema.json", saveSchemaJSON)

// SavedEntity is one entity in a save record.
type SavedEntity struct {
	ID          uint32  `json:"id"`
	Species     string  `json:"species"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	VX          float64 `json:"vx"`
	VY          float64 `json:"vy"`
	Energy      float64 `json:"energy"`
	MaxEnergy   float64 `json:"max_energy"`
	Age         float64 `json:"age"`
	Lifespan    float64 `json:"lifespan"`
	BaseSpeed   float64 `json:"base_speed"`
	NoiseOffset float64 `json:"noise_offset"`
	TargetID    uint32  `json:"target_id,omitempty"`
	Growth      float64 `json:"growth,omitempty"`
}

// SaveWorldSize pins the world dimensions a record was taken in.
type SaveWorldSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SaveRecord is the full serialized world state. Restoring it and the
// original run from the same point produce identical trajectories: the
// RNG state rides along with the entities.
type SaveRecord struct {
	Version  int           `json:"version"`
	SavedAt  time.Time     `json:"saved_at"`
	Seed     string        `json:"seed"`
	Tick     int64         `json:"tick"`
	Turn     int64         `json:"turn"`
	NextID   uint32        `json:"next_id"`
	RNG      string        `json:"rng"`
	World    SaveWorldSize `json:"world"`
	Entities []SavedEntity `json:"entities"`
}

// Serialize captures the full world state as a JSON record.
func (w *World) Serialize() ([]byte, error) {
	rngState, err := w.pcg.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("serializing rng state: %w", err)
	}

	snap := w.Snapshot()
	rec := SaveRecord{
		Version: saveVersion,
		SavedAt: time.Now().UTC(),
		Seed:    strconv.FormatUint(w.seed, 10),
		Tick:    w.tick,
		Turn:    w.clock.Turn,
		NextID:  w.nextID,
		RNG:     base64.StdEncoding.EncodeToString(rngState),
		World: SaveWorldSize{
			Width:  w.cfg.World.Width,
			Height: w.cfg.World.Height,
		},
		Entities: make([]SavedEntity, 0, len(snap.Entities)),
	}

	for _, e := range snap.Entities {
		org := w.orgMap.Get(w.byID[e.ID])
		vit := w.vitMap.Get(w.byID[e.ID])
		if org == nil || vit == nil {
			continue
		}
		rec.Entities = append(rec.Entities, SavedEntity{
			ID:          e.ID,
			Species:     e.Species.String(),
			X:           float64(e.X),
			Y:           float64(e.Y),
			VX:          float64(e.VelX),
			VY:          float64(e.VelY),
			Energy:      float64(e.Energy),
			MaxEnergy:   float64(e.MaxEnergy),
			Age:         float64(e.Age),
			Lifespan:    float64(vit.Lifespan),
			BaseSpeed:   float64(org.BaseSpeed),
			NoiseOffset: float64(org.NoiseOffset),
			TargetID:    e.TargetID,
			Growth:      float64(e.Growth),
		})
	}

	return json.MarshalIndent(rec, "", "  ")
}

// restoredEntity is a fully validated entity ready to apply.
type restoredEntity struct {
	saved   SavedEntity
	species components.Species
}

// Deserialize replaces the world state with a previously serialized
// record. All-or-nothing: every check runs before the first mutation, so
// a corrupt record leaves the current state intact.
func (w *World) Deserialize(data []byte) error {
	// Structural validation against the schema first.
	var decoded any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if err := saveSchema.Validate(decoded); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptState, err)
	}

	var rec SaveRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptState, err)
	}

	// Semantic validation.
	if rec.Version != saveVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrCorruptState, rec.Version)
	}
	seed, err := strconv.ParseUint(rec.Seed, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad seed %q", ErrCorruptState, rec.Seed)
	}
	if rec.World.Width != w.cfg.World.Width || rec.World.Height != w.cfg.World.Height {
		return fmt.Errorf("%w: world size %dx%d does not match configured %dx%d",
			ErrCorruptState, rec.World.Width, rec.World.Height, w.cfg.World.Width, w.cfg.World.Height)
	}
	rngState, err := base64.StdEncoding.DecodeString(rec.RNG)
	if err != nil {
		return fmt.Errorf("%w: bad rng state: %v", ErrCorruptState, err)
	}
	// Unmarshal into a scratch generator so malformed state bytes are
	// caught here, before the world is touched.
	var restoredPCG rand.PCG
	if err := restoredPCG.UnmarshalBinary(rngState); err != nil {
		return fmt.Errorf("%w: rng state rejected: %v", ErrCorruptState, err)
	}

	restored := make([]restoredEntity, 0, len(rec.Entities))
	seen := make(map[uint32]bool, len(rec.Entities))
	var counts [components.NumSpecies]int
	for i, se := range rec.Entities {
		species, ok := components.ParseSpecies(se.Species)
		if !ok {
			return fmt.Errorf("%w: entity %d has unknown species %q", ErrCorruptState, i, se.Species)
		}
		if seen[se.ID] {
			return fmt.Errorf("%w: duplicate entity id %d", ErrCorruptState, se.ID)
		}
		if se.ID >= rec.NextID {
			return fmt.Errorf("%w: entity id %d not below next_id %d", ErrCorruptState, se.ID, rec.NextID)
		}
		if se.X >= float64(w.cfg.World.Width) || se.Y >= float64(w.cfg.World.Height) {
			return fmt.Errorf("%w: entity %d position (%g,%g) outside world", ErrCorruptState, se.ID, se.X, se.Y)
		}
		if se.Energy > se.MaxEnergy {
			return fmt.Errorf("%w: entity %d energy %g above max %g", ErrCorruptState, se.ID, se.Energy, se.MaxEnergy)
		}
		seen[se.ID] = true
		counts[species]++
		restored = append(restored, restoredEntity{saved: se, species: species})
	}
	for s := components.Species(0); s < components.NumSpecies; s++ {
		if counts[s] > w.cfg.Population.Max.Get(s) {
			return fmt.Errorf("%w: %d %s exceeds population limit %d",
				ErrCorruptState, counts[s], s, w.cfg.Population.Max.Get(s))
		}
	}

	// Validation done, apply.
	w.clearEntities()

	*w.pcg = restoredPCG
	w.seed = seed
	w.tick = rec.Tick
	w.clock.Turn = rec.Turn
	w.nextID = rec.NextID

	// The behavior noise field is keyed by seed; rebuild it so a restored
	// run reproduces the original trajectories.
	w.behavior = systems.NewBehavior(w.ecsWorld, w.grid, w.cfg, int64(seed), func(id uint32) (ecs.Entity, bool) {
		e, ok := w.byID[id]
		return e, ok
	})

	for _, re := range restored {
		w.restoreEntity(re)
	}
	if w.state == RunCreated {
		w.state = RunPaused
	}

	w.log.Info("state restored", "tick", w.tick, "entities", len(restored))
	return nil
}

// clearEntities removes every entity from the world.
func (w *World) clearEntities() {
	var all []ecs.Entity
	query := w.filter.Query()
	for query.Next() {
		all = append(all, query.Entity())
	}
	for _, e := range all {
		w.mapper.Remove(e)
	}
	w.grid.Clear()
	clear(w.byID)
	w.counts = [components.NumSpecies]int{}
	w.births = w.births[:0]
	w.pending = [components.NumSpecies]int{}
}

// restoreEntity recreates one validated entity with its exact state.
func (w *World) restoreEntity(re restoredEntity) {
	se := re.saved

	pos := components.Position{X: float32(se.X), Y: float32(se.Y)}
	vel := components.Velocity{X: float32(se.VX), Y: float32(se.VY)}
	vit := components.Vitals{
		Energy:    float32(se.Energy),
		MaxEnergy: float32(se.MaxEnergy),
		Age:       float32(se.Age),
		Lifespan:  float32(se.Lifespan),
		Alive:     true,
	}
	org := components.Organism{
		ID:          se.ID,
		Species:     re.species,
		BaseSpeed:   float32(se.BaseSpeed),
		NoiseOffset: float32(se.NoiseOffset),
		TargetID:    se.TargetID,
		Growth:      float32(se.Growth),
	}

	e := w.mapper.NewEntity(&pos, &vel, &vit, &org)
	w.byID[se.ID] = e
	w.counts[re.species]++
	w.grid.Insert(e, pos.X, pos.Y)
}
