package telemetry

import (
	"github.com/ersanchez/laguna/components"
	"github.com/ersanchez/laguna/environment"
)

// Collector accumulates events within tick windows and produces
// WindowStats. The engine calls the Record methods during a tick and
// ObserveTick at the end of it; the run loop drains finished windows
// with ShouldFlush and Flush.
type Collector struct {
	windowTicks int64
	windowStart int64

	births [components.NumSpecies]int
	deaths [components.NumSpecies]int
	meals  [components.NumSpecies]int

	energyEaten float64

	lastCounts [components.NumSpecies]int
	lastSeason environment.Season
	lastPhase  environment.Phase
}

// NewCollector creates a collector with the given window length in ticks.
func NewCollector(windowTicks int) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowTicks: int64(windowTicks)}
}

// RecordBirth records a birth event.
func (c *Collector) RecordBirth(s components.Species) {
	c.births[s]++
}

// RecordDeath records a death event.
func (c *Collector) RecordDeath(s components.Species) {
	c.deaths[s]++
}

// RecordMeal records a completed meal and the energy transferred.
func (c *Collector) RecordMeal(eater components.Species, gain float32) {
	c.meals[eater]++
	c.energyEaten += float64(gain)
}

// ObserveTick stores end-of-tick population and clock state.
func (c *Collector) ObserveTick(tick int64, counts [components.NumSpecies]int, season environment.Season, phase environment.Phase) {
	c.lastCounts = counts
	c.lastSeason = season
	c.lastPhase = phase
}

// ShouldFlush reports whether the current window ends at this tick.
func (c *Collector) ShouldFlush(tick int64) bool {
	return tick-c.windowStart >= c.windowTicks
}

// Flush closes the current window and returns its stats. energies holds
// the live per-species energy samples at window end; the collector does
// not reach into the world itself.
func (c *Collector) Flush(tick int64, dt float64, energies [components.NumSpecies][]float64) WindowStats {
	s := WindowStats{
		WindowStartTick: c.windowStart,
		WindowEndTick:   tick,
		SimTimeSec:      float64(tick) * dt,
		Season:          c.lastSeason.String(),
		Phase:           c.lastPhase.String(),

		Algas:     c.lastCounts[components.SpeciesAlga],
		Peces:     c.lastCounts[components.SpeciesPez],
		Truchas:   c.lastCounts[components.SpeciesTrucha],
		Tiburones: c.lastCounts[components.SpeciesTiburon],

		PezBirths:     c.births[components.SpeciesPez],
		TruchaBirths:  c.births[components.SpeciesTrucha],
		TiburonBirths: c.births[components.SpeciesTiburon],
		AlgaBirths:    c.births[components.SpeciesAlga],

		PezDeaths:     c.deaths[components.SpeciesPez],
		TruchaDeaths:  c.deaths[components.SpeciesTrucha],
		TiburonDeaths: c.deaths[components.SpeciesTiburon],
		AlgaDeaths:    c.deaths[components.SpeciesAlga],

		Grazings:     c.meals[components.SpeciesPez],
		TruchaKills:  c.meals[components.SpeciesTrucha],
		TiburonKills: c.meals[components.SpeciesTiburon],
		EnergyEaten:  c.energyEaten,
	}

	s.PezEnergyMean, s.PezEnergyStd, s.PezEnergyP10, s.PezEnergyP50, s.PezEnergyP90 =
		Summarize(energies[components.SpeciesPez])
	s.TruchaEnergyMean, _, _, s.TruchaEnergyP50, _ = Summarize(energies[components.SpeciesTrucha])
	s.TiburonEnergyMean, _, _, s.TiburonEnergyP50, _ = Summarize(energies[components.SpeciesTiburon])

	c.windowStart = tick
	c.births = [components.NumSpecies]int{}
	c.deaths = [components.NumSpecies]int{}
	c.meals = [components.NumSpecies]int{}
	c.energyEaten = 0

	return s
}
