package telemetry

import (
	"math"
	"testing"

	"github.com/ersanchez/laguna/components"
	"github.com/ersanchez/laguna/environment"
)

func TestSummarize_EmptySample(t *testing.T) {
	mean, std, p10, p50, p90 := Summarize(nil)
	if mean != 0 || std != 0 || p10 != 0 || p50 != 0 || p90 != 0 {
		t.Error("empty sample should summarize to zeroes")
	}
}

func TestSummarize_KnownValues(t *testing.T) {
	values := []float64{40, 10, 30, 20, 50}

	mean, std, p10, p50, p90 := Summarize(values)
	if mean != 30 {
		t.Errorf("expected mean 30, got %g", mean)
	}
	if math.Abs(std-15.811388) > 1e-5 {
		t.Errorf("expected std ~15.811, got %g", std)
	}
	if p10 != 10 {
		t.Errorf("expected p10 10, got %g", p10)
	}
	if p50 != 30 {
		t.Errorf("expected p50 30, got %g", p50)
	}
	if p90 != 50 {
		t.Errorf("expected p90 50, got %g", p90)
	}
}

func TestSummarize_DoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Summarize(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Error("input sample was reordered")
	}
}

func TestCollector_WindowBoundaries(t *testing.T) {
	c := NewCollector(64)

	if c.ShouldFlush(63) {
		t.Error("window should still be open at tick 63")
	}
	if !c.ShouldFlush(64) {
		t.Error("window should close at tick 64")
	}

	c.Flush(64, 1.0, [components.NumSpecies][]float64{})
	if c.ShouldFlush(100) {
		t.Error("window should reopen after a flush")
	}
	if !c.ShouldFlush(128) {
		t.Error("second window should close at tick 128")
	}
}

func TestCollector_AggregatesEvents(t *testing.T) {
	c := NewCollector(10)

	c.RecordBirth(components.SpeciesPez)
	c.RecordBirth(components.SpeciesPez)
	c.RecordBirth(components.SpeciesAlga)
	c.RecordDeath(components.SpeciesTrucha)
	c.RecordMeal(components.SpeciesPez, 10)
	c.RecordMeal(components.SpeciesTiburon, 85)
	c.ObserveTick(10, [components.NumSpecies]int{50, 20, 5, 2}, environment.Summer, environment.Night)

	var energies [components.NumSpecies][]float64
	energies[components.SpeciesPez] = []float64{60, 80}

	s := c.Flush(10, 1.0, energies)

	if s.PezBirths != 2 || s.AlgaBirths != 1 {
		t.Errorf("birth counts wrong: %+v", s)
	}
	if s.TruchaDeaths != 1 {
		t.Errorf("expected 1 trout death, got %d", s.TruchaDeaths)
	}
	if s.Grazings != 1 || s.TiburonKills != 1 {
		t.Errorf("meal counts wrong: grazings %d, shark kills %d", s.Grazings, s.TiburonKills)
	}
	if s.EnergyEaten != 95 {
		t.Errorf("expected energy eaten 95, got %g", s.EnergyEaten)
	}
	if s.Algas != 50 || s.Peces != 20 || s.Truchas != 5 || s.Tiburones != 2 {
		t.Errorf("population counts wrong: %+v", s)
	}
	if s.Season != "verano" || s.Phase != "noche" {
		t.Errorf("clock labels wrong: %s / %s", s.Season, s.Phase)
	}
	if s.PezEnergyMean != 70 {
		t.Errorf("expected pez mean 70, got %g", s.PezEnergyMean)
	}

	// Counters reset after the flush.
	s2 := c.Flush(20, 1.0, [components.NumSpecies][]float64{})
	if s2.PezBirths != 0 || s2.EnergyEaten != 0 {
		t.Error("counters did not reset between windows")
	}
}
