package world

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ersanchez/laguna/components"
	"github.com/ersanchez/laguna/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWorld(t *testing.T, seed uint64) *World {
	t.Helper()
	w := New(Options{Config: testConfig(t), Seed: seed, Logger: quietLogger()})
	t.Cleanup(w.Stop)
	return w
}

func startedWorld(t *testing.T, seed uint64) *World {
	t.Helper()
	w := testWorld(t, seed)
	if err := w.Start(); err != nil {
		t.Fatalf("starting world: %v", err)
	}
	return w
}

func TestStart_SeedsConfiguredPopulation(t *testing.T) {
	w := startedWorld(t, 1)

	init := w.Config().Population.Initial
	for s := components.Species(0); s < components.NumSpecies; s++ {
		if got := w.Count(s); got != init.Get(s) {
			t.Errorf("expected %d %v, got %d", init.Get(s), s, got)
		}
	}
	if len(w.Snapshot().Entities) != init.Algas+init.Peces+init.Truchas+init.Tiburones {
		t.Error("snapshot entity count does not match populations")
	}
}

func TestSpawn_RejectsInvalidPositions(t *testing.T) {
	w := startedWorld(t, 1)

	bad := []struct {
		name string
		x, y float32
	}{
		{"negative x", -1, 100},
		{"beyond width", 1024, 100},
		{"beyond height", 100, 768},
		{"nan", float32(nan()), 100},
	}
	for _, tc := range bad {
		if _, err := w.Spawn(components.SpeciesPez, tc.x, tc.y); !errors.Is(err, ErrInvalidSpawnPosition) {
			t.Errorf("%s: expected ErrInvalidSpawnPosition, got %v", tc.name, err)
		}
	}

	if _, err := w.Spawn(components.SpeciesPez, 100, 100); err != nil {
		t.Errorf("valid spawn failed: %v", err)
	}
}

func TestSpawn_EnforcesPopulationLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Population.Initial = config.SpeciesCounts{}
	w := New(Options{Config: cfg, Seed: 1, Logger: quietLogger()})
	t.Cleanup(w.Stop)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < cfg.Population.Max.Tiburones; i++ {
		if _, err := w.Spawn(components.SpeciesTiburon, float32(10+i*20), 100); err != nil {
			t.Fatalf("spawn %d failed: %v", i, err)
		}
	}
	if _, err := w.Spawn(components.SpeciesTiburon, 500, 500); !errors.Is(err, ErrPopulationLimit) {
		t.Errorf("expected ErrPopulationLimit, got %v", err)
	}
}

func TestDespawn_UnknownID(t *testing.T) {
	w := startedWorld(t, 1)

	if err := w.Despawn(999999); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("expected ErrUnknownEntity, got %v", err)
	}

	id, err := w.Spawn(components.SpeciesPez, 200, 200)
	if err != nil {
		t.Fatal(err)
	}
	before := w.Count(components.SpeciesPez)
	if err := w.Despawn(id); err != nil {
		t.Fatalf("despawn failed: %v", err)
	}
	if w.Count(components.SpeciesPez) != before-1 {
		t.Error("despawn did not decrement the population")
	}
	if _, err := w.EntityByID(id); !errors.Is(err, ErrUnknownEntity) {
		t.Error("despawned entity still resolvable")
	}
}

func TestCommands_StateMachine(t *testing.T) {
	w := testWorld(t, 1)

	if err := w.Pause(); !errors.Is(err, ErrBadRunState) {
		t.Errorf("pause before start should fail, got %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); !errors.Is(err, ErrBadRunState) {
		t.Errorf("double start should fail, got %v", err)
	}

	if err := w.Pause(); err != nil {
		t.Fatal(err)
	}
	tick := w.TickCount()
	w.Tick()
	if w.TickCount() != tick {
		t.Error("paused world must not advance")
	}

	if err := w.Resume(); err != nil {
		t.Fatal(err)
	}
	w.Tick()
	if w.TickCount() != tick+1 {
		t.Error("resumed world should advance")
	}

	w.Stop()
	if w.State() != RunStopped {
		t.Errorf("expected stopped, got %v", w.State())
	}
}

func TestSetInitialCounts_OnlyBeforeStart(t *testing.T) {
	w := testWorld(t, 1)

	want := config.SpeciesCounts{Algas: 10, Peces: 5, Truchas: 2, Tiburones: 1}
	if err := w.SetInitialCounts(want); err != nil {
		t.Fatal(err)
	}
	if err := w.SetInitialCounts(config.SpeciesCounts{Algas: 10000}); err == nil {
		t.Error("counts above the population limit should be rejected")
	}

	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if w.Count(components.SpeciesPez) != 5 {
		t.Errorf("expected 5 fish, got %d", w.Count(components.SpeciesPez))
	}
	if err := w.SetInitialCounts(want); !errors.Is(err, ErrBadRunState) {
		t.Errorf("setting counts after start should fail, got %v", err)
	}
}

func TestTick_PositionsStayInBounds(t *testing.T) {
	w := startedWorld(t, 3)
	cfg := w.Config()

	for i := 0; i < 100; i++ {
		w.Tick()
		for _, e := range w.Snapshot().Entities {
			if e.X < 0 || e.X >= cfg.Derived.WorldW32 || e.Y < 0 || e.Y >= cfg.Derived.WorldH32 {
				t.Fatalf("tick %d: entity %d at (%g,%g) escaped the world", i, e.ID, e.X, e.Y)
			}
		}
	}
}

func TestTick_DeterministicTrajectories(t *testing.T) {
	a := startedWorld(t, 42)
	b := startedWorld(t, 42)

	for i := 0; i < 120; i++ {
		a.Tick()
		b.Tick()
	}

	sa := a.Snapshot()
	sb := b.Snapshot()
	if len(sa.Entities) != len(sb.Entities) {
		t.Fatalf("entity counts diverged: %d vs %d", len(sa.Entities), len(sb.Entities))
	}
	for i := range sa.Entities {
		ea, eb := sa.Entities[i], sb.Entities[i]
		if ea != eb {
			t.Fatalf("entity %d diverged: %+v vs %+v", ea.ID, ea, eb)
		}
	}
}

func TestTick_DifferentSeedsDiverge(t *testing.T) {
	a := startedWorld(t, 1)
	b := startedWorld(t, 2)

	for i := 0; i < 20; i++ {
		a.Tick()
		b.Tick()
	}

	sa, sb := a.Snapshot(), b.Snapshot()
	if len(sa.Entities) == len(sb.Entities) {
		same := true
		for i := range sa.Entities {
			if sa.Entities[i] != sb.Entities[i] {
				same = false
				break
			}
		}
		if same {
			t.Error("different seeds produced identical trajectories")
		}
	}
}

func TestTick_EnergyNeverNegativeOrAboveMax(t *testing.T) {
	w := startedWorld(t, 5)

	for i := 0; i < 200; i++ {
		w.Tick()
		for _, e := range w.Snapshot().Entities {
			if e.Energy < 0 {
				t.Fatalf("tick %d: entity %d has negative energy %g", i, e.ID, e.Energy)
			}
			if e.Energy > e.MaxEnergy {
				t.Fatalf("tick %d: entity %d energy %g above max %g", i, e.ID, e.Energy, e.MaxEnergy)
			}
		}
	}
}

// TestScenario_ClosedWorldStaysBounded runs the reference scenario: a
// 1024x768 world seeded with 20 algae, 10 fish, 2 trout and 1 shark on
// seed 42 for 500 ticks. Populations must stay within their hard limits,
// the algae floor must hold, and the animal food web must not fully
// collapse.
func TestScenario_ClosedWorldStaysBounded(t *testing.T) {
	cfg := testConfig(t)
	cfg.Population.Initial = config.SpeciesCounts{Algas: 20, Peces: 10, Truchas: 2, Tiburones: 1}
	w := New(Options{Config: cfg, Seed: 42, Logger: quietLogger()})
	t.Cleanup(w.Stop)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 500; i++ {
		w.Tick()

		for s := components.Species(0); s < components.NumSpecies; s++ {
			if w.Count(s) > cfg.Population.Max.Get(s) {
				t.Fatalf("tick %d: %v population %d exceeds limit %d", i, s, w.Count(s), cfg.Population.Max.Get(s))
			}
			if w.Count(s) < 0 {
				t.Fatalf("tick %d: %v population went negative", i, s)
			}
		}
		if w.Count(components.SpeciesAlga) < cfg.Population.Min.Algas {
			t.Fatalf("tick %d: algae %d below floor %d", i, w.Count(components.SpeciesAlga), cfg.Population.Min.Algas)
		}
	}

	animals := w.Count(components.SpeciesPez) + w.Count(components.SpeciesTrucha) + w.Count(components.SpeciesTiburon)
	if animals == 0 {
		t.Error("every animal species went extinct within 500 ticks")
	}
}

func TestTick_EnergyStrictlyDecreasesWithoutFeeding(t *testing.T) {
	cfg := testConfig(t)
	// Fish only, nothing to graze on and no births: every surviving
	// animal must lose energy every single tick.
	cfg.Population.Initial = config.SpeciesCounts{Peces: 12}
	cfg.Population.Min.Algas = 0
	cfg.Pez.Reproduction.Chance = 0

	w := New(Options{Config: cfg, Seed: 3, Logger: quietLogger()})
	t.Cleanup(w.Stop)
	if err := w.Start(); err != nil {
		t.Fatalf("starting world: %v", err)
	}

	prev := make(map[uint32]float32)
	for _, e := range w.Snapshot().Entities {
		prev[e.ID] = e.Energy
	}

	for i := 0; i < 40; i++ {
		w.Tick()
		next := make(map[uint32]float32)
		for _, e := range w.Snapshot().Entities {
			next[e.ID] = e.Energy
			was, ok := prev[e.ID]
			if !ok {
				t.Fatalf("tick %d: entity %d appeared from nowhere", i, e.ID)
			}
			if e.Energy >= was {
				t.Fatalf("tick %d: entity %d energy went %v -> %v without feeding", i, e.ID, was, e.Energy)
			}
		}
		prev = next
	}
}

func TestReproduction_ChildEnergyEqualsCost(t *testing.T) {
	cfg := testConfig(t)
	cfg.Population.Initial = config.SpeciesCounts{Peces: 10}
	cfg.Population.Min.Algas = 0
	cfg.Pez.Reproduction.Chance = 1.0
	cfg.Pez.Reproduction.EnergyMinFrac = 0

	w := New(Options{Config: cfg, Seed: 7, Logger: quietLogger()})
	t.Cleanup(w.Stop)
	if err := w.Start(); err != nil {
		t.Fatalf("starting world: %v", err)
	}

	cost := float32(cfg.Pez.Reproduction.Cost)
	seen := make(map[uint32]bool)
	for _, e := range w.Snapshot().Entities {
		seen[e.ID] = true
	}

	births := 0
	for i := 0; i < 30; i++ {
		before := float64(0)
		for _, e := range w.Snapshot().Entities {
			before += float64(e.Energy)
		}

		w.Tick()

		after := float64(0)
		for _, e := range w.Snapshot().Entities {
			after += float64(e.Energy)
			if !seen[e.ID] {
				seen[e.ID] = true
				births++
				if e.Energy != cost {
					t.Errorf("tick %d: newborn %d has energy %v, want %v", i, e.ID, e.Energy, cost)
				}
			}
		}

		// Births move energy from parent to child and drain only
		// removes it, so the total can never grow without feeding.
		if after > before {
			t.Fatalf("tick %d: total energy grew from %v to %v", i, before, after)
		}
	}
	if births == 0 {
		t.Fatal("no births in 30 ticks despite forced reproduction chance")
	}
}

func nan() float64 {
	var zero float64
	return zero / zero
}
