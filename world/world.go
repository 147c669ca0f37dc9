// Package world assembles the ecosystem engine: entity lifecycle, the
// tick pipeline, persistence and the command surface the viewer drives.
package world

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/mlange-42/ark/ecs"

	"github.com/ersanchez/laguna/components"
	"github.com/ersanchez/laguna/config"
	"github.com/ersanchez/laguna/environment"
	"github.com/ersanchez/laguna/systems"
	"github.com/ersanchez/laguna/telemetry"
)

// RunState tracks where the engine is in its command lifecycle.
type RunState uint8

const (
	RunCreated RunState = iota
	RunRunning
	RunPaused
	RunStopped
)

func (s RunState) String() string {
	switch s {
	case RunCreated:
		return "created"
	case RunRunning:
		return "running"
	case RunPaused:
		return "paused"
	case RunStopped:
		return "stopped"
	}
	return "unknown"
}

// Options configures a new World.
type Options struct {
	Config    *config.Config // nil uses the global config
	Seed      uint64
	Logger    *slog.Logger // nil uses slog.Default
	Collector *telemetry.Collector
}

// World is the complete simulation state. All mutation happens on the
// goroutine calling Tick and the command methods; concurrent readers go
// through Snapshot.
type World struct {
	cfg *config.Config
	log *slog.Logger

	ecsWorld *ecs.World
	mapper   *ecs.Map4[components.Position, components.Velocity, components.Vitals, components.Organism]
	filter   *ecs.Filter4[components.Position, components.Velocity, components.Vitals, components.Organism]

	posMap *ecs.Map1[components.Position]
	velMap *ecs.Map1[components.Velocity]
	vitMap *ecs.Map1[components.Vitals]
	orgMap *ecs.Map1[components.Organism]

	grid     *systems.SpatialGrid
	behavior *systems.Behavior
	clock    *environment.Clock

	// pcg is kept alongside rng so its state can be serialized.
	pcg *rand.PCG
	rng *rand.Rand

	seed   uint64
	nextID uint32
	tick   int64
	state  RunState

	byID   map[uint32]ecs.Entity
	counts [components.NumSpecies]int

	par       *parallelState
	collector *telemetry.Collector

	births  []birthRequest
	pending [components.NumSpecies]int
}

// birthRequest queues a spawn decided during iteration; spawning while a
// query is open would invalidate it.
type birthRequest struct {
	species components.Species
	x, y    float32
	energy  float32
	growth  float32
}

// New creates an empty world. Call SeedPopulation (or Start) to populate it.
func New(opts Options) *World {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	ew := ecs.NewWorld()
	pcg := rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)

	w := &World{
		cfg:      cfg,
		log:      log,
		ecsWorld: ew,
		mapper: ecs.NewMap4[
			components.Position,
			components.Velocity,
			components.Vitals,
			components.Organism,
		](ew),
		filter: ecs.NewFilter4[
			components.Position,
			components.Velocity,
			components.Vitals,
			components.Organism,
		](ew),
		posMap: ecs.NewMap1[components.Position](ew),
		velMap: ecs.NewMap1[components.Velocity](ew),
		vitMap: ecs.NewMap1[components.Vitals](ew),
		orgMap: ecs.NewMap1[components.Organism](ew),

		pcg:       pcg,
		seed:      opts.Seed,
		nextID:    1,
		byID:      make(map[uint32]ecs.Entity, 256),
		collector: opts.Collector,
	}
	w.rng = rand.New(w.pcg)

	w.grid = systems.NewSpatialGrid(cfg.Derived.WorldW32, cfg.Derived.WorldH32, float32(cfg.Physics.GridCellSize))
	w.clock = environment.NewClock(cfg.Time.DayLengthTurns, cfg.Time.DaysPerSeason)
	w.behavior = systems.NewBehavior(ew, w.grid, cfg, int64(opts.Seed), func(id uint32) (ecs.Entity, bool) {
		e, ok := w.byID[id]
		return e, ok
	})
	w.par = newParallelState()

	return w
}

// Seed returns the seed the world was created with.
func (w *World) Seed() uint64 { return w.seed }

// TickCount returns the number of completed ticks.
func (w *World) TickCount() int64 { return w.tick }

// Count returns the live population of one species.
func (w *World) Count(s components.Species) int { return w.counts[s] }

// Counts returns the live population per species.
func (w *World) Counts() [components.NumSpecies]int { return w.counts }

// State returns the engine's run state.
func (w *World) State() RunState { return w.state }

// Config returns the active configuration.
func (w *World) Config() *config.Config { return w.cfg }

// SetInitialCounts overrides the configured starting populations. Only
// valid before the world has been started.
func (w *World) SetInitialCounts(c config.SpeciesCounts) error {
	if w.state != RunCreated {
		return fmt.Errorf("%w: %s", ErrBadRunState, w.state)
	}
	for s := components.Species(0); s < components.NumSpecies; s++ {
		n := c.Get(s)
		if n < 0 || n > w.cfg.Population.Max.Get(s) {
			return fmt.Errorf("initial %s count %d outside [0,%d]", s, n, w.cfg.Population.Max.Get(s))
		}
	}
	w.cfg.Population.Initial = c
	return nil
}

// Start seeds the initial population and begins the run.
func (w *World) Start() error {
	if w.state != RunCreated {
		return fmt.Errorf("%w: %s", ErrBadRunState, w.state)
	}
	w.SeedPopulation(w.cfg.Population.Initial)
	w.state = RunRunning
	w.log.Info("simulation started",
		"seed", w.seed,
		"algas", w.counts[components.SpeciesAlga],
		"peces", w.counts[components.SpeciesPez],
		"truchas", w.counts[components.SpeciesTrucha],
		"tiburones", w.counts[components.SpeciesTiburon],
	)
	return nil
}

// Pause suspends ticking. Snapshot remains available.
func (w *World) Pause() error {
	if w.state != RunRunning {
		return fmt.Errorf("%w: %s", ErrBadRunState, w.state)
	}
	w.state = RunPaused
	return nil
}

// Resume continues a paused run.
func (w *World) Resume() error {
	if w.state != RunPaused {
		return fmt.Errorf("%w: %s", ErrBadRunState, w.state)
	}
	w.state = RunRunning
	return nil
}

// Stop ends the run permanently and shuts down the worker pool.
func (w *World) Stop() {
	w.state = RunStopped
	w.par.stopWorkers()
}

// SeedPopulation spawns entities at random positions. Used for the
// initial population and by tests.
func (w *World) SeedPopulation(c config.SpeciesCounts) {
	for i := 0; i < c.Get(components.SpeciesAlga); i++ {
		x, y := w.randomPosition()
		w.spawnAlga(x, y, 30+w.rng.Float32()*70)
	}
	for s := components.SpeciesPez; s < components.NumSpecies; s++ {
		sc := w.cfg.Animal(s)
		for i := 0; i < c.Get(s); i++ {
			x, y := w.randomPosition()
			w.spawnAnimal(s, x, y, float32(sc.Energy))
		}
	}
}

// Spawn places a new entity of the given species at (x,y) with its
// species defaults. The position must be finite and inside the world.
func (w *World) Spawn(s components.Species, x, y float32) (uint32, error) {
	if err := w.validatePosition(x, y); err != nil {
		return 0, err
	}
	if w.counts[s] >= w.cfg.Population.Max.Get(s) {
		return 0, fmt.Errorf("%w: %s at %d", ErrPopulationLimit, s, w.counts[s])
	}
	if s == components.SpeciesAlga {
		_, id := w.spawnAlga(x, y, 30)
		return id, nil
	}
	_, id := w.spawnAnimal(s, x, y, float32(w.cfg.Animal(s).Energy))
	return id, nil
}

// Despawn removes a live entity by id.
func (w *World) Despawn(id uint32) error {
	e, ok := w.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	org := w.orgMap.Get(e)
	pos := w.posMap.Get(e)
	if org != nil {
		w.counts[org.Species]--
	}
	if pos != nil {
		w.grid.Remove(e, pos.X, pos.Y)
	}
	delete(w.byID, id)
	w.mapper.Remove(e)
	return nil
}

func (w *World) validatePosition(x, y float32) error {
	fx, fy := float64(x), float64(y)
	if math.IsNaN(fx) || math.IsInf(fx, 0) || math.IsNaN(fy) || math.IsInf(fy, 0) ||
		x < 0 || x >= w.cfg.Derived.WorldW32 || y < 0 || y >= w.cfg.Derived.WorldH32 {
		return fmt.Errorf("%w: (%g,%g)", ErrInvalidSpawnPosition, x, y)
	}
	return nil
}

func (w *World) randomPosition() (float32, float32) {
	return w.rng.Float32() * (w.cfg.Derived.WorldW32 - 1), w.rng.Float32() * (w.cfg.Derived.WorldH32 - 1)
}

// spawnAnimal creates an animal with the given starting energy. The base
// speed is drawn once from the species range; the noise offset fixes the
// entity's channel in the shared noise field for life.
func (w *World) spawnAnimal(s components.Species, x, y, energy float32) (ecs.Entity, uint32) {
	sc := w.cfg.Animal(s)

	id := w.nextID
	w.nextID++

	speed := float32(sc.SpeedMin) + w.rng.Float32()*float32(sc.SpeedMax-sc.SpeedMin)
	heading := w.rng.Float64() * 2 * math.Pi

	pos := components.Position{X: x, Y: y}
	vel := components.Velocity{
		X: float32(math.Cos(heading)) * speed,
		Y: float32(math.Sin(heading)) * speed,
	}
	vit := components.Vitals{
		Energy:    energy,
		MaxEnergy: float32(sc.MaxEnergy),
		Lifespan:  float32(sc.Lifespan),
		Alive:     true,
	}
	org := components.Organism{
		ID:          id,
		Species:     s,
		BaseSpeed:   speed,
		NoiseOffset: w.rng.Float32() * 1024,
		State:       components.StateIdle,
	}

	e := w.mapper.NewEntity(&pos, &vel, &vit, &org)
	w.byID[id] = e
	w.counts[s]++
	w.grid.Insert(e, x, y)
	return e, id
}

// spawnAlga creates an alga at the given growth stage. Its energy tracks
// growth so feeding yield scales with maturity.
func (w *World) spawnAlga(x, y, growth float32) (ecs.Entity, uint32) {
	id := w.nextID
	w.nextID++

	pos := components.Position{X: x, Y: y}
	vel := components.Velocity{}
	vit := components.Vitals{
		Energy:    float32(w.cfg.Alga.EnergyValue) * growth / 100,
		MaxEnergy: float32(w.cfg.Alga.EnergyValue),
		Alive:     true,
	}
	org := components.Organism{
		ID:          id,
		Species:     components.SpeciesAlga,
		NoiseOffset: w.rng.Float32() * 1024,
		Growth:      growth,
	}

	e := w.mapper.NewEntity(&pos, &vel, &vit, &org)
	w.byID[id] = e
	w.counts[components.SpeciesAlga]++
	w.grid.Insert(e, x, y)
	return e, id
}
