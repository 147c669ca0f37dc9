// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ersanchez/laguna/components"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	World      WorldConfig      `yaml:"world"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Time       TimeConfig       `yaml:"time"`
	Population PopulationConfig `yaml:"population"`
	Alga       AlgaConfig       `yaml:"alga"`
	Pez        AnimalConfig     `yaml:"pez"`
	Trucha     AnimalConfig     `yaml:"trucha"`
	Tiburon    AnimalConfig     `yaml:"tiburon"`
	Behavior   BehaviorConfig   `yaml:"behavior"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings for the viewer.
type ScreenConfig struct {
	Width      int `yaml:"width"`
	Height     int `yaml:"height"`
	PanelWidth int `yaml:"panel_width"`
	TargetFPS  int `yaml:"target_fps"`
}

// WorldConfig holds simulation world dimensions in logical units.
// The world is independent of the screen; the viewer scales the viewport.
type WorldConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// PhysicsConfig holds simulation physics parameters.
type PhysicsConfig struct {
	DT           float64 `yaml:"dt"`             // seconds per tick
	GridCellSize float64 `yaml:"grid_cell_size"` // spatial grid cell size
	SpeedScale   float64 `yaml:"speed_scale"`    // world units/s per point of base speed
}

// TimeConfig holds the day/night and season clock parameters.
type TimeConfig struct {
	DayLengthTurns int `yaml:"day_length_turns"`
	DaysPerSeason  int `yaml:"days_per_season"`
}

// SpeciesCounts holds one count per species.
type SpeciesCounts struct {
	Algas     int `yaml:"algas" json:"algas"`
	Peces     int `yaml:"peces" json:"peces"`
	Truchas   int `yaml:"truchas" json:"truchas"`
	Tiburones int `yaml:"tiburones" json:"tiburones"`
}

// Get returns the count for a species.
func (c SpeciesCounts) Get(s components.Species) int {
	switch s {
	case components.SpeciesAlga:
		return c.Algas
	case components.SpeciesPez:
		return c.Peces
	case components.SpeciesTrucha:
		return c.Truchas
	case components.SpeciesTiburon:
		return c.Tiburones
	}
	return 0
}

// PopulationConfig holds initial populations and hard per-species limits.
type PopulationConfig struct {
	Initial SpeciesCounts `yaml:"initial"`
	Min     SpeciesCounts `yaml:"min"`
	Max     SpeciesCounts `yaml:"max"`
}

// AlgaConfig holds algae growth and spawning parameters.
type AlgaConfig struct {
	EnergyValue     float64 `yaml:"energy_value"`      // energy a fully grown alga yields
	GrowthRate      float64 `yaml:"growth_rate"`       // growth points per second
	MinEdibleGrowth float64 `yaml:"min_edible_growth"` // below this a fish ignores the alga
	SpawnRadius     float64 `yaml:"spawn_radius"`      // local-density query radius
	SpawnOffset     float64 `yaml:"spawn_offset"`      // child placement distance
	LocalDensityCap int     `yaml:"local_density_cap"` // max algae within spawn radius
	RegrowthReserve float64 `yaml:"regrowth_reserve"`  // parent growth kept after spawning
	SpawnChance     float64 `yaml:"spawn_chance"`      // per-tick seeding probability when fully grown
	SproutGrowth    float64 `yaml:"sprout_growth"`     // starting growth of a seeded alga
}

// ReproductionConfig holds reproduction gates for one animal species.
type ReproductionConfig struct {
	EnergyMinFrac float64 `yaml:"energy_min_frac"` // energy threshold as fraction of max
	AgeMin        float64 `yaml:"age_min"`
	AgeMax        float64 `yaml:"age_max"`
	Chance        float64 `yaml:"chance"` // per-tick probability before fertility scaling
	Cost          float64 `yaml:"cost"`   // deducted from parent; equals child starting energy
}

// AnimalConfig holds the parameter table for one animal species.
type AnimalConfig struct {
	Energy        float64 `yaml:"energy"`     // starting energy
	MaxEnergy     float64 `yaml:"max_energy"` //
	Lifespan      float64 `yaml:"lifespan"`   // seconds
	SpeedMin      float64 `yaml:"speed_min"`  // base speed drawn from [min,max]
	SpeedMax      float64 `yaml:"speed_max"`
	Drain         float64 `yaml:"drain"`          // metabolic drain per second
	VisionRadius  float64 `yaml:"vision_radius"`  // perception distance for food/flock
	ThreatRadius  float64 `yaml:"threat_radius"`  // predator detection distance
	FleeDistance  float64 `yaml:"flee_distance"`  // how far an escape target is projected
	EscapeSpeed   float64 `yaml:"escape_speed"`   // speed multiplier while fleeing
	CaptureRadius float64 `yaml:"capture_radius"` // feeding contact distance
	FeedingGain   float64 `yaml:"feeding_gain"`   // energy-gain cap per meal
	FeedingFrac   float64 `yaml:"feeding_frac"`   // fraction of prey energy absorbed

	Hunger float64 `yaml:"hunger"` // hunt/graze below this fraction of max energy

	Reproduction ReproductionConfig `yaml:"reproduction"`
}

// BehaviorConfig holds steering weights and radii shared by the policies.
type BehaviorConfig struct {
	// Schooling (pez)
	SchoolMinNeighbors int     `yaml:"school_min_neighbors"`
	SeparationDistance float64 `yaml:"separation_distance"`
	CohesionWeight     float64 `yaml:"cohesion_weight"`
	AlignmentWeight    float64 `yaml:"alignment_weight"`
	SeparationWeight   float64 `yaml:"separation_weight"`

	// Pursuit
	Lookahead float64 `yaml:"lookahead"` // prey-velocity extrapolation horizon, seconds

	// Trucha pack hunting
	PackRadius  float64 `yaml:"pack_radius"`
	MaxPackSize int     `yaml:"max_pack_size"`

	// Tiburon hunting. The radius widens once fullness drops below the
	// species hunger fraction.
	SharkHuntRelaxed  float64 `yaml:"shark_hunt_relaxed"`
	SharkHuntHungry   float64 `yaml:"shark_hunt_hungry"`
	TargetPersistence float64 `yaml:"target_persistence"`

	// Wander/patrol noise
	EvasionNoise    float64 `yaml:"evasion_noise"`    // max flee-heading perturbation, radians
	WanderDistance  float64 `yaml:"wander_distance"`  // wander target projection distance
	WanderFrequency float64 `yaml:"wander_frequency"` // noise time frequency
	PatrolSpeed     float64 `yaml:"patrol_speed"`     // speed multiplier while patrolling
	PatrolSpread    float64 `yaml:"patrol_spread"`    // patrol amplitude around world center
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindowTicks int `yaml:"stats_window_ticks"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32     float32
	WorldW32 float32
	WorldH32 float32
}

// Animal returns the parameter table for an animal species.
func (c *Config) Animal(s components.Species) *AnimalConfig {
	switch s {
	case components.SpeciesPez:
		return &c.Pez
	case components.SpeciesTrucha:
		return &c.Trucha
	case components.SpeciesTiburon:
		return &c.Tiburon
	}
	return nil
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if
// path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()

	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Physics.DT)
	c.Derived.WorldW32 = float32(c.World.Width)
	c.Derived.WorldH32 = float32(c.World.Height)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
