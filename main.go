package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/ersanchez/laguna/components"
	"github.com/ersanchez/laguna/config"
	"github.com/ersanchez/laguna/telemetry"
	"github.com/ersanchez/laguna/ui"
	"github.com/ersanchez/laguna/world"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output window stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	saveDir := flag.String("save-dir", "", "Directory for save slots (empty = saves disabled)")
	loadSlot := flag.String("load", "", "Save slot to restore before running")
	seed := flag.Uint64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int64("max-ticks", 0, "Stop after N ticks (0 = unlimited)")

	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = uint64(time.Now().UnixNano())
	}

	collector := telemetry.NewCollector(cfg.Telemetry.StatsWindowTicks)
	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output manager", "error", err)
		os.Exit(1)
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
		os.Exit(1)
	}

	w := world.New(world.Options{
		Config:    cfg,
		Seed:      rngSeed,
		Logger:    logger,
		Collector: collector,
	})
	defer w.Stop()

	var saves *world.SaveManager
	if *saveDir != "" {
		saves, err = world.NewSaveManager(*saveDir, logger)
		if err != nil {
			slog.Error("failed to open save directory", "error", err)
			os.Exit(1)
		}
	}

	if *loadSlot != "" {
		if saves == nil {
			slog.Error("-load requires -save-dir")
			os.Exit(1)
		}
		if err := saves.Load(*loadSlot, w); err != nil {
			slog.Error("failed to load slot", "slot", *loadSlot, "error", err)
			os.Exit(1)
		}
		if err := w.Resume(); err != nil {
			slog.Error("failed to resume loaded run", "error", err)
			os.Exit(1)
		}
	}

	if *headless {
		runHeadless(w, collector, output, saves, *logStats, *maxTicks)
		return
	}
	runViewer(w, collector, output, saves, *logStats, *maxTicks)
}

func runHeadless(w *world.World, collector *telemetry.Collector, output *telemetry.OutputManager, saves *world.SaveManager, logStats bool, maxTicks int64) {
	if w.State() == world.RunCreated {
		if err := w.Start(); err != nil {
			slog.Error("failed to start simulation", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("starting headless simulation", "seed", w.Seed(), "max_ticks", maxTicks)

	for w.State() == world.RunRunning {
		w.Tick()
		flushStats(w, collector, output, logStats)

		if maxTicks > 0 && w.TickCount() >= maxTicks {
			slog.Info("max ticks reached", "tick", w.TickCount())
			break
		}
		if extinct(w) {
			slog.Warn("all animals extinct", "tick", w.TickCount())
			break
		}
	}

	if saves != nil {
		if err := saves.Save("final", w); err != nil {
			slog.Error("failed to write final save", "error", err)
		}
	}
}

func runViewer(w *world.World, collector *telemetry.Collector, output *telemetry.OutputManager, saves *world.SaveManager, logStats bool, maxTicks int64) {
	cfg := w.Config()

	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Laguna")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	viewer := ui.NewViewer(cfg)

	for !rl.WindowShouldClose() {
		if w.State() == world.RunRunning {
			w.Tick()
			flushStats(w, collector, output, logStats)
		}

		snap := w.Snapshot()
		cmds := viewer.Draw(snap, w.State())
		applyCommands(w, saves, cmds)

		if maxTicks > 0 && w.TickCount() >= maxTicks {
			break
		}
		if w.State() == world.RunStopped {
			break
		}
	}
}

func applyCommands(w *world.World, saves *world.SaveManager, cmds ui.Commands) {
	if cmds.SetInitial != nil {
		if err := w.SetInitialCounts(*cmds.SetInitial); err != nil {
			slog.Warn("rejected initial counts", "error", err)
		}
	}
	if cmds.Start {
		if err := w.Start(); err != nil {
			slog.Warn("start rejected", "error", err)
		}
	}
	if cmds.Pause {
		if err := w.Pause(); err != nil {
			slog.Warn("pause rejected", "error", err)
		}
	}
	if cmds.Resume {
		if err := w.Resume(); err != nil {
			slog.Warn("resume rejected", "error", err)
		}
	}
	if cmds.Stop {
		w.Stop()
	}
	if cmds.Save {
		if saves == nil {
			slog.Warn("save requested but -save-dir not set")
		} else {
			slot := time.Now().Format("20060102-150405")
			if err := saves.Save(slot, w); err != nil {
				slog.Error("failed to save slot", "slot", slot, "error", err)
			} else {
				slog.Info("saved", "slot", slot)
			}
		}
	}
}

// flushStats emits a telemetry window if one just closed.
func flushStats(w *world.World, collector *telemetry.Collector, output *telemetry.OutputManager, logStats bool) {
	if !collector.ShouldFlush(w.TickCount()) {
		return
	}

	var energies [components.NumSpecies][]float64
	for _, e := range w.Snapshot().Entities {
		energies[e.Species] = append(energies[e.Species], float64(e.Energy))
	}

	stats := collector.Flush(w.TickCount(), w.Config().Physics.DT, energies)
	if err := output.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if logStats {
		slog.Info("window stats", "stats", stats)
	}
}

// extinct reports whether every animal species has died out.
func extinct(w *world.World) bool {
	return w.Count(components.SpeciesPez) == 0 &&
		w.Count(components.SpeciesTrucha) == 0 &&
		w.Count(components.SpeciesTiburon) == 0
}
