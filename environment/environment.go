// Package environment models the simulation's two clocks: the day/night
// cycle and the four seasons. Every speed, energy-drain and fertility
// computation in the engine reads the multiplier tables exposed here;
// nothing else hardcodes seasonal effects.
package environment

import "github.com/ersanchez/laguna/components"

// Season of the simulated year. Seasons advance every DaysPerSeason days.
type Season uint8

const (
	Spring Season = iota
	Summer
	Autumn
	Winter

	NumSeasons = 4
)

func (s Season) String() string {
	switch s {
	case Spring:
		return "primavera"
	case Summer:
		return "verano"
	case Autumn:
		return "otoño"
	case Winter:
		return "invierno"
	}
	return "unknown"
}

// ParseSeason converts a save-record season name back to a Season.
func ParseSeason(name string) (Season, bool) {
	switch name {
	case "primavera":
		return Spring, true
	case "verano":
		return Summer, true
	case "otoño":
		return Autumn, true
	case "invierno":
		return Winter, true
	}
	return 0, false
}

// Phase of the day/night cycle.
type Phase uint8

const (
	Dawn Phase = iota
	Day
	Dusk
	Night
)

func (p Phase) String() string {
	switch p {
	case Dawn:
		return "amanecer"
	case Day:
		return "dia"
	case Dusk:
		return "atardecer"
	case Night:
		return "noche"
	}
	return "unknown"
}

// Day-phase boundaries as fractions of a day.
const (
	dawnFraction = 0.18
	duskFraction = 0.68
)

// SeasonModifiers scales entity behavior for the active season.
type SeasonModifiers struct {
	Movement    float32 // speed multiplier
	EnergyDrain float32 // metabolic-drain multiplier
	PlantRegen  float32 // algae growth multiplier
	// Fertility multiplies the per-species reproduction chance.
	// Indexed by components.Species; algae slot unused.
	Fertility [components.NumSpecies]float32
}

// PhaseModifiers scales entity behavior for the active day phase.
type PhaseModifiers struct {
	Movement            float32
	EnergyDrain         float32
	ReproductionAllowed bool
}

var seasonTable = [NumSeasons]SeasonModifiers{
	Spring: {
		Movement:    1.05,
		EnergyDrain: 0.92,
		PlantRegen:  1.2,
		Fertility:   [components.NumSpecies]float32{0, 1.3, 1.15, 1.05},
	},
	Summer: {
		Movement:    1.08,
		EnergyDrain: 1.05,
		PlantRegen:  1.05,
		Fertility:   [components.NumSpecies]float32{0, 1.05, 1.0, 1.15},
	},
	Autumn: {
		Movement:    0.95,
		EnergyDrain: 0.98,
		PlantRegen:  0.85,
		Fertility:   [components.NumSpecies]float32{0, 0.9, 0.95, 1.0},
	},
	Winter: {
		Movement:    0.82,
		EnergyDrain: 1.2,
		PlantRegen:  0.55,
		Fertility:   [components.NumSpecies]float32{0, 0.7, 0.8, 0.9},
	},
}

var phaseTable = [4]PhaseModifiers{
	Dawn:  {Movement: 1.0, EnergyDrain: 1.0, ReproductionAllowed: true},
	Day:   {Movement: 1.0, EnergyDrain: 1.0, ReproductionAllowed: true},
	Dusk:  {Movement: 1.0, EnergyDrain: 1.0, ReproductionAllowed: true},
	Night: {Movement: 0.85, EnergyDrain: 0.9, ReproductionAllowed: false},
}

// Modifiers returns the multiplier table for a season.
func (s Season) Modifiers() SeasonModifiers {
	return seasonTable[s]
}

// Modifiers returns the multiplier table for a day phase.
func (p Phase) Modifiers() PhaseModifiers {
	return phaseTable[p]
}

// Clock tracks simulated time. The day/night clock advances one turn per
// tick and wraps every DayLength turns; the season clock advances every
// DaysPerSeason days. Both wrap cyclically.
type Clock struct {
	Turn          int64
	DayLength     int // turns per simulated day
	DaysPerSeason int
}

// NewClock creates a clock at turn zero.
func NewClock(dayLength, daysPerSeason int) *Clock {
	if dayLength < 1 {
		dayLength = 1
	}
	if daysPerSeason < 1 {
		daysPerSeason = 1
	}
	return &Clock{DayLength: dayLength, DaysPerSeason: daysPerSeason}
}

// Advance moves the clock forward one turn.
func (c *Clock) Advance() {
	c.Turn++
}

// DayProgress returns the position within the current day in [0,1).
func (c *Clock) DayProgress() float32 {
	return float32(c.Turn%int64(c.DayLength)) / float32(c.DayLength)
}

// Day returns the 1-based day counter.
func (c *Clock) Day() int {
	return int(c.Turn/int64(c.DayLength)) + 1
}

// Season returns the active season.
func (c *Clock) Season() Season {
	return Season(((c.Day() - 1) / c.DaysPerSeason) % NumSeasons)
}

// SeasonProgress returns the position within the current season in [0,1).
func (c *Clock) SeasonProgress() float32 {
	dayInSeason := (c.Day() - 1) % c.DaysPerSeason
	return (float32(dayInSeason) + c.DayProgress()) / float32(c.DaysPerSeason)
}

// Phase returns the active day phase.
func (c *Clock) Phase() Phase {
	p := c.DayProgress()
	switch {
	case p < dawnFraction:
		return Dawn
	case p < 0.5:
		return Day
	case p < duskFraction:
		return Dusk
	default:
		return Night
	}
}

// IsNight reports whether the active phase is night.
func (c *Clock) IsNight() bool {
	return c.Phase() == Night
}

// LightFactor returns ambient light in [0.1, 1.0] for rendering.
func (c *Clock) LightFactor() float32 {
	p := c.DayProgress()
	switch {
	case c.IsNight():
		return 0.1
	case p < dawnFraction:
		return 0.1 + 0.9*(p/dawnFraction)
	case p < 0.5:
		return 1.0
	default:
		return 1.0 - 0.9*((p-0.5)/(duskFraction-0.5))
	}
}
