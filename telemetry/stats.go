// Package telemetry aggregates per-tick simulation events into windowed
// statistics and writes them as CSV experiment output.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for one stats window.
type WindowStats struct {
	WindowStartTick int64   `csv:"-"`
	WindowEndTick   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`
	Season          string  `csv:"season"`
	Phase           string  `csv:"phase"`

	// Population counts at window end
	Algas     int `csv:"algas"`
	Peces     int `csv:"peces"`
	Truchas   int `csv:"truchas"`
	Tiburones int `csv:"tiburones"`

	// Events during window
	PezBirths     int `csv:"pez_births"`
	TruchaBirths  int `csv:"trucha_births"`
	TiburonBirths int `csv:"tiburon_births"`
	AlgaBirths    int `csv:"alga_births"`

	PezDeaths     int `csv:"pez_deaths"`
	TruchaDeaths  int `csv:"trucha_deaths"`
	TiburonDeaths int `csv:"tiburon_deaths"`
	AlgaDeaths    int `csv:"alga_deaths"`

	Grazings     int     `csv:"grazings"`
	TruchaKills  int     `csv:"trucha_kills"`
	TiburonKills int     `csv:"tiburon_kills"`
	EnergyEaten  float64 `csv:"energy_eaten"`

	// Energy distribution per animal species, sampled at window end
	PezEnergyMean float64 `csv:"pez_energy_mean"`
	PezEnergyStd  float64 `csv:"pez_energy_std"`
	PezEnergyP10  float64 `csv:"pez_energy_p10"`
	PezEnergyP50  float64 `csv:"pez_energy_p50"`
	PezEnergyP90  float64 `csv:"pez_energy_p90"`

	TruchaEnergyMean float64 `csv:"trucha_energy_mean"`
	TruchaEnergyP50  float64 `csv:"trucha_energy_p50"`

	TiburonEnergyMean float64 `csv:"tiburon_energy_mean"`
	TiburonEnergyP50  float64 `csv:"tiburon_energy_p50"`
}

// Summarize computes mean, standard deviation and the 10/50/90
// percentiles of a sample. Zeroes for an empty sample.
func Summarize(values []float64) (mean, std, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	if len(sorted) > 1 {
		std = stat.StdDev(sorted, nil)
	}
	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return mean, std, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("tick", s.WindowEndTick),
		slog.String("season", s.Season),
		slog.String("phase", s.Phase),
		slog.Int("algas", s.Algas),
		slog.Int("peces", s.Peces),
		slog.Int("truchas", s.Truchas),
		slog.Int("tiburones", s.Tiburones),
		slog.Int("grazings", s.Grazings),
		slog.Int("trucha_kills", s.TruchaKills),
		slog.Int("tiburon_kills", s.TiburonKills),
		slog.Float64("pez_energy_mean", s.PezEnergyMean),
	)
}
