package main

import (
	"context"
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/lao-tseu-is-alive/go-flock3d/internal/config"
	"github.com/lao-tseu-is-alive/go-flock3d/internal/view"
	"github.com/lao-tseu-is-alive/go-flock3d/internal/world"
	"github.com/lao-tseu-is-alive/go-flock3d/pkg/flock"
	"github.com/lao-tseu-is-alive/go-flock3d/pkg/ui"
	"github.com/tochemey/goakt/v3/actor"
)

const panelWidth = 260.0

var whiteImage = ebiten.NewImage(3, 3)

func init() {
	whiteImage.Fill(color.White)
}

type Game struct {
	ctx        context.Context
	system     actor.ActorSystem
	cfg        *config.Config
	worldPID   *actor.PID
	generation int
	snapshotCh chan *world.Snapshot
	lastState  *world.Snapshot
	inFlight   bool
	paused     bool
	stepOnce   bool
	plane      view.Plane

	panel          *ui.UIPanel
	useCohesion    *ui.Checkbox
	useSeparation  *ui.Checkbox
	useAlignment   *ui.Checkbox
	nearOnly       *ui.Checkbox
	snapshotMode   *ui.Checkbox
	nearDistance   *ui.Slider
	cohesionSpeed  *ui.Slider
	alignmentSpeed *ui.Slider
	r1, r2, r3     *ui.Slider

	updateAvg float64 // ms, exponential moving average
}

// NewGame spawns the first world and builds the control panel.
func NewGame(ctx context.Context, system actor.ActorSystem, cfg *config.Config) (*Game, error) {
	g := &Game{
		ctx:        ctx,
		system:     system,
		cfg:        cfg,
		snapshotCh: make(chan *world.Snapshot, 1),
	}

	rules := cfg.Rules
	panel := ui.NewUIPanel(10, 10, panelWidth, screenHeight-20)
	panel.Title = "Flock rules"

	panel.AddSection("Rules")
	g.useCohesion = panel.AddCheckbox("Cohesion", rules.UseCohesion)
	g.useSeparation = panel.AddCheckbox("Separation", rules.UseSeparation)
	g.useAlignment = panel.AddCheckbox("Alignment", rules.UseAlignment)
	g.nearOnly = panel.AddCheckbox("Near neighbours only", rules.NearNeighboursOnly)
	g.snapshotMode = panel.AddCheckbox("Snapshot update", rules.Mode == flock.Snapshot)

	panel.AddSection("Weights")
	g.nearDistance = panel.AddSlider("Near distance", 0, 40, rules.NearDistance)
	g.cohesionSpeed = panel.AddSlider("Cohesion speed", 0, 3, rules.CohesionSpeed)
	g.alignmentSpeed = panel.AddSlider("Alignment speed", 0, 3, rules.AlignmentSpeed)
	g.r1 = panel.AddSlider("Cohesion divisor r1", 1, 200, rules.R1)
	g.r2 = panel.AddSlider("Separation radius r2", 0.1, 200, rules.R2)
	g.r3 = panel.AddSlider("Alignment divisor r3", 1, 50, rules.R3)

	panel.AddSection("Simulation")
	panel.AddButtons(
		[]string{"Pause", "Step", "View", "Reset"},
		[]func(){
			func() { g.paused = !g.paused },
			func() { g.paused, g.stepOnce = true, true },
			func() { g.plane = 1 - g.plane },
			func() {
				if err := g.reset(); err != nil {
					g.system.Logger().Errorf("reset: %v", err)
				}
			},
		})
	g.panel = panel

	if err := g.reset(); err != nil {
		return nil, err
	}
	return g, nil
}

// reset replaces the running world with a fresh flock under the current rules.
func (g *Game) reset() error {
	rules := g.rules()
	g.generation++
	agents := flock.RandomAgents(flock.NewSeededRand(g.cfg.Seed+uint64(g.generation)), g.cfg.BoidAmount, g.cfg.Field)
	sim, err := flock.NewSimulator(agents, g.cfg.Field, rules)
	if err != nil {
		return err
	}

	if g.worldPID != nil {
		_ = g.worldPID.Shutdown(g.ctx)
	}
	// drop a snapshot of the old world
	select {
	case <-g.snapshotCh:
	default:
	}

	pid, err := g.system.Spawn(g.ctx, fmt.Sprintf("world-%d", g.generation), world.NewWorldActor(sim, g.snapshotCh))
	if err != nil {
		return fmt.Errorf("spawn world: %w", err)
	}
	g.worldPID = pid
	g.lastState = &world.Snapshot{Agents: sim.Agents(), Stats: sim.Stats(), Config: rules}
	g.inFlight = false
	return nil
}

// rules reads the panel into a flock config.
func (g *Game) rules() flock.Config {
	mode := flock.Sequential
	if g.snapshotMode.Value {
		mode = flock.Snapshot
	}
	return flock.Config{
		UseCohesion:        g.useCohesion.Value,
		UseSeparation:      g.useSeparation.Value,
		UseAlignment:       g.useAlignment.Value,
		NearNeighboursOnly: g.nearOnly.Value,
		NearDistance:       g.nearDistance.Value,
		R1:                 g.r1.Value,
		R2:                 g.r2.Value,
		R3:                 g.r3.Value,
		CohesionSpeed:      g.cohesionSpeed.Value,
		AlignmentSpeed:     g.alignmentSpeed.Value,
		Mode:               mode,
	}
}

func (g *Game) Update() error {
	start := time.Now()
	defer func() {
		g.updateAvg = g.updateAvg*0.95 + float64(time.Since(start).Microseconds())/1000.0*0.05
	}()

	g.panel.Update()
	if g.panel.Changed() {
		if err := world.SendRules(g.ctx, g.worldPID, g.rules()); err != nil {
			g.system.Logger().Errorf("rule update: %v", err)
		}
	}

	select {
	case snap := <-g.snapshotCh:
		g.lastState = snap
		g.inFlight = false
	default:
	}

	// one tick in flight at a time so the mailbox never backs up
	if !g.inFlight && (!g.paused || g.stepOnce) {
		if err := actor.Tell(g.ctx, g.worldPID, world.Tick(1)); err == nil {
			g.inFlight = true
		}
		g.stepOnce = false
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 10, G: 10, B: 30, A: 255})

	left := panelWidth + 30
	proj := view.NewProjector(g.cfg.Field, g.plane, left, 40, screenWidth-left-20, screenHeight-60)
	x, y, w, h := proj.Rect()
	vector.StrokeRect(screen, float32(x), float32(y), float32(w), float32(h), 1, color.RGBA{R: 90, G: 90, B: 120, A: 255}, true)

	size := max(proj.Scale()*0.35, 4)
	vertices := make([]ebiten.Vertex, 0, 3*len(g.lastState.Agents))
	indices := make([]uint16, 0, 3*len(g.lastState.Agents))
	for _, a := range g.lastState.Agents {
		sx, sy := proj.Project(a.Position)
		shade := float32(view.Shade(proj.Depth(a.Position)))
		for _, c := range view.Triangle(sx, sy, proj.Heading(a.Velocity), size) {
			vertices = append(vertices, ebiten.Vertex{
				DstX: float32(c[0]), DstY: float32(c[1]),
				SrcX: 1, SrcY: 1,
				ColorR: 0.4 * shade, ColorG: 0.8 * shade, ColorB: shade, ColorA: 1,
			})
		}
		base := uint16(len(vertices) - 3)
		indices = append(indices, base, base+1, base+2)
		// DrawTriangles takes at most 65536 vertices per call
		if len(vertices) >= 65535-3 {
			screen.DrawTriangles(vertices, indices, whiteImage, &ebiten.DrawTrianglesOptions{})
			vertices, indices = vertices[:0], indices[:0]
		}
	}
	if len(vertices) > 0 {
		screen.DrawTriangles(vertices, indices, whiteImage, &ebiten.DrawTrianglesOptions{})
	}

	g.panel.Draw(screen)

	st := g.lastState.Stats
	state := "running"
	if g.paused {
		state = "paused"
	}
	msg := fmt.Sprintf("tick %d  %s  view %s  agents %d  centroid %s  mean speed %.3f  update %.2fms  FPS %.0f",
		g.lastState.Tick, state, g.plane, st.Agents, st.Centroid, st.MeanSpeed, g.updateAvg, ebiten.ActualFPS())
	ebitenutil.DebugPrintAt(screen, msg, int(left), 12)
}

func (g *Game) Layout(w, h int) (int, int) { return screenWidth, screenHeight }
