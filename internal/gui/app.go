package gui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/san-kum/clifford/internal/sim"
)

// Theme Colors (Monochrome)
var (
	ColBg      = rl.NewColor(10, 10, 10, 255)    // Deep Black
	ColAccent  = rl.NewColor(180, 180, 180, 255) // Soft White
	ColSelect  = rl.NewColor(255, 255, 255, 255) // Bright White
	ColText    = rl.NewColor(140, 140, 140, 255) // Neutral Gray
	ColTextDim = rl.NewColor(60, 60, 60, 255)    // Dark Gray
	ColWarn    = rl.NewColor(255, 170, 0, 255)
)

const (
	windowWidth  = 1280
	windowHeight = 720
	maxTelemetry = 200
	hudWidth     = 300
)

// App hosts a session in a raylib window. The canvas buffer is uploaded
// to a texture after every frame.
type App struct {
	Session   *sim.Session
	Title     string
	Running   bool
	Last      sim.FrameStats
	Telemetry []float64 // touched pixels per frame
	Err       error

	tex rl.Texture2D
}

func initWindow(title string) {
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(windowWidth, windowHeight, title)
	rl.SetTargetFPS(60)
	rl.SetExitKey(0)
}

func NewApp(session *sim.Session, title string) *App {
	return &App{
		Session:   session,
		Title:     title,
		Running:   true,
		Telemetry: make([]float64, 0, maxTelemetry),
	}
}

// Run opens the window, calibrates, and renders until the window closes
// or Q is pressed.
func Run(session *sim.Session, title string) error {
	initWindow(title)
	defer rl.CloseWindow()

	a := NewApp(session, title)
	if !session.Started() {
		if err := session.Start(); err != nil {
			return err
		}
	}

	c := session.Canvas()
	img := rl.GenImageColor(c.Width(), c.Height(), rl.White)
	a.tex = rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	defer rl.UnloadTexture(a.tex)

	a.RunLoop()
	return a.Err
}

func (a *App) RunLoop() {
	for !rl.WindowShouldClose() {
		if rl.IsKeyPressed(rl.KeyQ) {
			return
		}
		a.Update()
		a.Draw()
	}
}

func (a *App) Update() {
	switch {
	case rl.IsKeyPressed(rl.KeySpace):
		a.Running = !a.Running
	case rl.IsKeyPressed(rl.KeyR):
		if err := a.Session.Recalibrate(a.Session.Config().CalibrationSamples); err != nil {
			a.Err = err
		}
	case rl.IsKeyPressed(rl.KeyEqual):
		a.scaleBudget(2)
	case rl.IsKeyPressed(rl.KeyMinus):
		a.scaleBudget(0.5)
	}

	if !a.Running || a.Err != nil {
		return
	}

	stats, err := a.Session.Frame()
	if err != nil {
		a.Err = err
		return
	}
	a.Last = stats
	a.Telemetry = append(a.Telemetry, float64(stats.Touched))
	if len(a.Telemetry) > maxTelemetry {
		a.Telemetry = a.Telemetry[1:]
	}

	// Frame and upload strictly alternate; the buffer is not touched
	// while UpdateTexture reads it.
	rl.UpdateTexture(a.tex, a.Session.Canvas().Pixels())
}

func (a *App) scaleBudget(f float64) {
	d := time.Duration(float64(a.Session.Config().FrameBudget) * f)
	a.Session.SetFrameBudget(min(max(d, time.Millisecond), time.Second))
}

func (a *App) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(ColBg)

	a.drawCanvas()
	a.DrawHUD()

	rl.EndDrawing()
}

// drawCanvas scales the texture to fit the area left of the HUD,
// preserving aspect ratio.
func (a *App) drawCanvas() {
	c := a.Session.Canvas()
	areaW := float32(rl.GetScreenWidth() - hudWidth)
	areaH := float32(rl.GetScreenHeight())
	w, h := float32(c.Width()), float32(c.Height())

	scale := min(areaW/w, areaH/h)
	dw, dh := w*scale, h*scale
	dst := rl.NewRectangle((areaW-dw)/2, (areaH-dh)/2, dw, dh)
	src := rl.NewRectangle(0, 0, w, h)
	rl.DrawTexturePro(a.tex, src, dst, rl.NewVector2(0, 0), 0, rl.White)
}

func (a *App) DrawHUD() {
	x := int32(rl.GetScreenWidth() - hudWidth + 20)
	c := a.Session.Canvas()
	p := c.Params()

	rl.DrawText(a.Title, x, 30, 24, ColSelect)

	status, col := "RENDERING", ColSelect
	if a.Err != nil {
		status, col = "ERROR", ColWarn
	} else if !a.Running {
		status, col = "PAUSED", ColTextDim
	}
	rl.DrawText(status, x, 64, 16, col)

	lines := []string{
		fmt.Sprintf("frame    %d", a.Last.Frame),
		fmt.Sprintf("iters    %d", c.Iters()),
		fmt.Sprintf("batch    +%d", a.Last.Iterations),
		fmt.Sprintf("budget   %v", a.Session.Config().FrameBudget),
		fmt.Sprintf("touched  %d", c.Touched()),
		fmt.Sprintf("maxed    %d", c.Maxed()),
		fmt.Sprintf("clamped  %d", c.Clamped()),
		"",
		fmt.Sprintf("a %+.6f", p.A),
		fmt.Sprintf("b %+.6f", p.B),
		fmt.Sprintf("c %+.6f", p.C),
		fmt.Sprintf("d %+.6f", p.D),
	}
	for i, line := range lines {
		rl.DrawText(line, x, 100+int32(i)*20, 16, ColText)
	}

	if a.Err != nil {
		rl.DrawText(a.Err.Error(), 20, int32(rl.GetScreenHeight()-60), 14, ColWarn)
	}

	a.DrawTelemetry(x, 380)

	rl.DrawText("[SPACE] PAUSE  [R] RECAL  [+/-] BUDGET  [Q] QUIT", 20, int32(rl.GetScreenHeight()-30), 14, ColTextDim)
	rl.DrawText(fmt.Sprintf("%d FPS", rl.GetFPS()), x, int32(rl.GetScreenHeight()-30), 14, ColTextDim)
}

// DrawTelemetry plots touched pixels per frame as a line strip.
func (a *App) DrawTelemetry(rectX, rectY int32) {
	if len(a.Telemetry) < 2 {
		return
	}

	const width, height = 240, 60

	minVal, maxVal := a.Telemetry[0], a.Telemetry[0]
	for _, v := range a.Telemetry {
		minVal = min(minVal, v)
		maxVal = max(maxVal, v)
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	points := make([]rl.Vector2, len(a.Telemetry))
	for i, val := range a.Telemetry {
		px := float32(rectX) + float32(i)/float32(len(a.Telemetry))*width
		norm := (val - minVal) / (maxVal - minVal)
		py := float32(rectY+height) - float32(norm)*height
		points[i] = rl.NewVector2(px, py)
	}

	rl.DrawLineStrip(points, ColAccent)
	rl.DrawText("touched", rectX, rectY+height+6, 14, ColTextDim)
}
