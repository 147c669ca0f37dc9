// Package ui renders world snapshots with raylib and hosts the control
// panel. The viewer never touches live simulation state: it draws the
// snapshot it is given and reports the commands the user clicked.
package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/ersanchez/laguna/components"
	"github.com/ersanchez/laguna/config"
	"github.com/ersanchez/laguna/world"
)

// Commands collects the panel interactions from one frame.
type Commands struct {
	Start  bool
	Pause  bool
	Resume bool
	Stop   bool
	Save   bool

	// SetInitial is non-nil when the initial-count sliders changed.
	SetInitial *config.SpeciesCounts
}

// Viewer draws the simulation viewport and control panel.
type Viewer struct {
	cfg *config.Config

	viewW, viewH   float32
	scaleX, scaleY float32

	initial config.SpeciesCounts
}

// NewViewer creates a viewer for the configured screen layout.
func NewViewer(cfg *config.Config) *Viewer {
	viewW := float32(cfg.Screen.Width - cfg.Screen.PanelWidth)
	viewH := float32(cfg.Screen.Height)
	return &Viewer{
		cfg:     cfg,
		viewW:   viewW,
		viewH:   viewH,
		scaleX:  viewW / cfg.Derived.WorldW32,
		scaleY:  viewH / cfg.Derived.WorldH32,
		initial: cfg.Population.Initial,
	}
}

// Draw renders one frame and returns the commands clicked this frame.
func (v *Viewer) Draw(snap *world.Snapshot, state world.RunState) Commands {
	rl.BeginDrawing()
	defer rl.EndDrawing()

	rl.ClearBackground(rl.NewColor(8, 24, 44, 255))

	v.drawEntities(snap)
	v.drawNightTint(snap)
	cmds := v.drawPanel(snap, state)

	return cmds
}

func (v *Viewer) drawEntities(snap *world.Snapshot) {
	for _, e := range snap.Entities {
		p := rl.Vector2{X: e.X * v.scaleX, Y: e.Y * v.scaleY}

		switch e.Species {
		case components.SpeciesAlga:
			// Radius tracks growth so mature algae read as food.
			r := 1.5 + e.Growth/100*3.5
			rl.DrawCircleV(p, r, rl.NewColor(60, 170, 80, 255))
		case components.SpeciesPez:
			rl.DrawCircleV(p, 3, rl.NewColor(120, 190, 255, 255))
		case components.SpeciesTrucha:
			rl.DrawCircleV(p, 4.5, rl.NewColor(240, 150, 60, 255))
		case components.SpeciesTiburon:
			rl.DrawCircleV(p, 7, rl.NewColor(200, 200, 210, 255))
			if e.State == components.StateHunting {
				rl.DrawCircleLines(int32(p.X), int32(p.Y), 10, rl.NewColor(255, 80, 80, 180))
			}
		}
	}
}

// drawNightTint darkens the viewport as ambient light falls.
func (v *Viewer) drawNightTint(snap *world.Snapshot) {
	alpha := (1 - snap.Light) * 0.55
	if alpha <= 0 {
		return
	}
	rl.DrawRectangle(0, 0, int32(v.viewW), int32(v.viewH), rl.Fade(rl.NewColor(2, 6, 20, 255), alpha))
}

func (v *Viewer) drawPanel(snap *world.Snapshot, state world.RunState) Commands {
	var cmds Commands

	panelX := v.viewW
	rl.DrawRectangle(int32(panelX), 0, int32(v.cfg.Screen.PanelWidth), int32(v.cfg.Screen.Height), rl.NewColor(24, 28, 36, 255))

	x := panelX + 12
	y := float32(12)

	rl.DrawText("Laguna", int32(x), int32(y), 22, rl.RayWhite)
	y += 32

	rl.DrawText(fmt.Sprintf("tick %d  dia %d", snap.Tick, snap.Day), int32(x), int32(y), 16, rl.LightGray)
	y += 20
	rl.DrawText(fmt.Sprintf("%s / %s", snap.Season, snap.Phase), int32(x), int32(y), 16, rl.LightGray)
	y += 28

	rl.DrawText(fmt.Sprintf("algas     %d", snap.Counts[components.SpeciesAlga]), int32(x), int32(y), 16, rl.NewColor(60, 170, 80, 255))
	y += 20
	rl.DrawText(fmt.Sprintf("peces     %d", snap.Counts[components.SpeciesPez]), int32(x), int32(y), 16, rl.NewColor(120, 190, 255, 255))
	y += 20
	rl.DrawText(fmt.Sprintf("truchas   %d", snap.Counts[components.SpeciesTrucha]), int32(x), int32(y), 16, rl.NewColor(240, 150, 60, 255))
	y += 20
	rl.DrawText(fmt.Sprintf("tiburones %d", snap.Counts[components.SpeciesTiburon]), int32(x), int32(y), 16, rl.NewColor(200, 200, 210, 255))
	y += 32

	btnW := float32(v.cfg.Screen.PanelWidth) - 24

	switch state {
	case world.RunCreated:
		y = v.drawInitialSliders(x, y, btnW, &cmds)
		if gui.Button(rl.Rectangle{X: x, Y: y, Width: btnW, Height: 30}, "Iniciar") {
			cmds.Start = true
		}
		y += 40
	case world.RunRunning:
		if gui.Button(rl.Rectangle{X: x, Y: y, Width: btnW, Height: 30}, "Pausar") {
			cmds.Pause = true
		}
		y += 40
	case world.RunPaused:
		if gui.Button(rl.Rectangle{X: x, Y: y, Width: btnW, Height: 30}, "Reanudar") {
			cmds.Resume = true
		}
		y += 40
	}

	if state == world.RunRunning || state == world.RunPaused {
		if gui.Button(rl.Rectangle{X: x, Y: y, Width: btnW, Height: 30}, "Detener") {
			cmds.Stop = true
		}
		y += 40
		if gui.Button(rl.Rectangle{X: x, Y: y, Width: btnW, Height: 30}, "Guardar (F5)") || rl.IsKeyPressed(rl.KeyF5) {
			cmds.Save = true
		}
		y += 40
	}

	if state == world.RunStopped {
		rl.DrawText("simulacion detenida", int32(x), int32(y), 16, rl.Gray)
	}

	return cmds
}

// drawInitialSliders edits the starting populations before the run begins.
func (v *Viewer) drawInitialSliders(x, y, w float32, cmds *Commands) float32 {
	prev := v.initial

	v.initial.Algas = v.countSlider(x, &y, w, "algas", v.initial.Algas, v.cfg.Population.Max.Algas)
	v.initial.Peces = v.countSlider(x, &y, w, "peces", v.initial.Peces, v.cfg.Population.Max.Peces)
	v.initial.Truchas = v.countSlider(x, &y, w, "truchas", v.initial.Truchas, v.cfg.Population.Max.Truchas)
	v.initial.Tiburones = v.countSlider(x, &y, w, "tiburones", v.initial.Tiburones, v.cfg.Population.Max.Tiburones)

	if v.initial != prev {
		c := v.initial
		cmds.SetInitial = &c
	}
	return y + 8
}

func (v *Viewer) countSlider(x float32, y *float32, w float32, label string, value, maxValue int) int {
	rl.DrawText(fmt.Sprintf("%s: %d", label, value), int32(x), int32(*y), 14, rl.Gray)
	*y += 18
	out := gui.SliderBar(
		rl.Rectangle{X: x, Y: *y, Width: w, Height: 18},
		"0", fmt.Sprintf("%d", maxValue),
		float32(value), 0, float32(maxValue),
	)
	*y += 26
	return int(out)
}
