package environment

import (
	"testing"

	"github.com/ersanchez/laguna/components"
)

func advance(c *Clock, turns int) {
	for i := 0; i < turns; i++ {
		c.Advance()
	}
}

func TestClock_DayWraps(t *testing.T) {
	c := NewClock(32, 6)

	if c.Day() != 1 {
		t.Errorf("expected day 1 at turn 0, got %d", c.Day())
	}
	advance(c, 32)
	if c.Day() != 2 {
		t.Errorf("expected day 2 after one full cycle, got %d", c.Day())
	}
	if c.DayProgress() != 0 {
		t.Errorf("day progress should wrap to 0, got %g", c.DayProgress())
	}
}

func TestClock_PhaseBoundaries(t *testing.T) {
	c := NewClock(100, 6) // day length 100 makes turn == percent

	cases := []struct {
		turn int64
		want Phase
	}{
		{0, Dawn},
		{17, Dawn},
		{18, Day},
		{49, Day},
		{50, Dusk},
		{67, Dusk},
		{68, Night},
		{99, Night},
	}
	for _, tc := range cases {
		c.Turn = tc.turn
		if got := c.Phase(); got != tc.want {
			t.Errorf("turn %d: expected %v, got %v", tc.turn, tc.want, got)
		}
	}
}

func TestClock_SeasonAdvancesAndWraps(t *testing.T) {
	c := NewClock(32, 6)

	if c.Season() != Spring {
		t.Errorf("expected spring at start, got %v", c.Season())
	}

	advance(c, 6*32)
	if c.Season() != Summer {
		t.Errorf("expected summer after 6 days, got %v", c.Season())
	}

	advance(c, 18*32)
	if c.Season() != Spring {
		t.Errorf("expected wrap to spring after a full year, got %v", c.Season())
	}
}

func TestClock_SeasonProgress(t *testing.T) {
	c := NewClock(32, 6)

	advance(c, 3*32) // half a season
	got := c.SeasonProgress()
	if got < 0.49 || got > 0.51 {
		t.Errorf("expected season progress ~0.5, got %g", got)
	}
}

func TestSeasonModifiers_WinterIsHarsh(t *testing.T) {
	winter := Winter.Modifiers()
	spring := Spring.Modifiers()

	if winter.Movement >= spring.Movement {
		t.Error("winter movement should be slower than spring")
	}
	if winter.EnergyDrain <= spring.EnergyDrain {
		t.Error("winter drain should exceed spring")
	}
	if winter.PlantRegen >= spring.PlantRegen {
		t.Error("winter plant regeneration should trail spring")
	}
	for s := components.SpeciesPez; s < components.NumSpecies; s++ {
		if winter.Fertility[s] >= spring.Fertility[s] {
			t.Errorf("winter fertility for %v should trail spring", s)
		}
	}
}

func TestPhaseModifiers_NightSuppressesReproduction(t *testing.T) {
	for _, p := range []Phase{Dawn, Day, Dusk} {
		if !p.Modifiers().ReproductionAllowed {
			t.Errorf("%v should allow reproduction", p)
		}
	}
	night := Night.Modifiers()
	if night.ReproductionAllowed {
		t.Error("night should disallow reproduction")
	}
	if night.Movement >= 1 || night.EnergyDrain >= 1 {
		t.Error("night should slow movement and drain")
	}
}

func TestLightFactor_Range(t *testing.T) {
	c := NewClock(32, 6)
	for i := 0; i < 64; i++ {
		l := c.LightFactor()
		if l < 0.1 || l > 1.0 {
			t.Errorf("turn %d: light %g outside [0.1,1.0]", c.Turn, l)
		}
		c.Advance()
	}
}

func TestSeason_ParseRoundTrip(t *testing.T) {
	for s := Spring; s < NumSeasons; s++ {
		got, ok := ParseSeason(s.String())
		if !ok || got != s {
			t.Errorf("season %v did not round-trip through %q", s, s.String())
		}
	}
	if _, ok := ParseSeason("pleistoceno"); ok {
		t.Error("unknown season name should not parse")
	}
}
