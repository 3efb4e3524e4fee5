package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/clifford/internal/sim"
)

const (
	defaultCols      = 80
	defaultRows      = 24
	panelWidth       = 46
	historyCapacity  = 600
	defaultThreshold = 200
	minBudget        = time.Millisecond
	maxBudget        = time.Second
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model drives a session from the Bubble Tea event loop.
type Model struct {
	session      *sim.Session
	title        string
	canvas       *Canvas
	threshold    uint8
	running      bool
	showHelp     bool
	last         sim.FrameStats
	touchedHist  []float64
	itersHist    []float64
	err          error
	calibrations int
}

func NewModel(session *sim.Session, title string) Model {
	return Model{
		session:     session,
		title:       title,
		canvas:      NewCanvas(defaultCols, defaultRows),
		threshold:   defaultThreshold,
		running:     true,
		touchedHist: make([]float64, 0, historyCapacity),
		itersHist:   make([]float64, 0, historyCapacity),
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and advances the session.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.recalibrate()
		case "t":
			NextTheme()
		case "+", "=":
			m.scaleBudget(2)
		case "-", "_":
			m.scaleBudget(0.5)
		case "up", "k":
			m.threshold = uint8(min(int(m.threshold)+5, 255))
		case "down", "j":
			m.threshold = uint8(max(int(m.threshold)-5, 5))
		case "?":
			m.showHelp = !m.showHelp
		}
	case tea.WindowSizeMsg:
		cols := max(msg.Width-panelWidth-6, 10)
		rows := max(msg.Height-4, 4)
		m.canvas = NewCanvas(cols, rows)
	case TickMsg:
		if m.running && m.err == nil {
			m.step()
		}
		m.draw()
		return m, tick()
	}
	return m, nil
}

// step runs calibration on the first call and one frame afterwards.
func (m *Model) step() {
	if !m.session.Started() {
		if err := m.session.Start(); err != nil {
			m.err = err
			return
		}
		m.calibrations++
		return
	}

	stats, err := m.session.Frame()
	if err != nil {
		m.err = err
		return
	}
	m.last = stats
	m.touchedHist = appendCapped(m.touchedHist, float64(stats.Touched))
	m.itersHist = appendCapped(m.itersHist, float64(stats.Iterations))
}

func (m *Model) recalibrate() {
	if err := m.session.Recalibrate(m.session.Config().CalibrationSamples); err != nil {
		m.err = err
		return
	}
	m.calibrations++
}

func (m *Model) scaleBudget(f float64) {
	d := time.Duration(float64(m.session.Config().FrameBudget) * f)
	m.session.SetFrameBudget(min(max(d, minBudget), maxBudget))
}

func (m *Model) draw() {
	c := m.session.Canvas()
	m.canvas.Downsample(c.Pixels(), c.Width(), c.Height(), m.threshold)
}

func appendCapped(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyCapacity {
		h = h[1:]
	}
	return h
}

func (m Model) View() string {
	st := newStyles(CurrentTheme)
	c := m.session.Canvas()
	p := c.Params()
	b := c.Bounds()

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(m.title)) + "\n")

	switch {
	case m.err != nil:
		s.WriteString(st.warning.Render("ERROR: "+m.err.Error()) + "\n\n")
	case !m.session.Started():
		s.WriteString(st.status.Render("CALIBRATING") + "\n\n")
	case !m.running:
		s.WriteString(st.paused.Render("PAUSED") + "\n\n")
	default:
		s.WriteString(st.status.Render("RENDERING") + "\n\n")
	}

	if len(m.touchedHist) > 1 {
		chart := asciigraph.Plot(m.touchedHist, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Touched"))
		s.WriteString(st.graph.Render(chart) + "\n\n")
	}

	area := c.Width() * c.Height()
	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Frame", fmt.Sprintf("%d", m.last.Frame))
	row("Iters", fmt.Sprintf("%d (+%d)", c.Iters(), m.last.Iterations))
	row("Budget", m.session.Config().FrameBudget.String())
	row("Touched", fmt.Sprintf("%d", c.Touched()))
	row("Maxed", fmt.Sprintf("%d", c.Maxed()))
	row("Coverage", ProgressBar(float64(c.Touched())/float64(area), 20))
	if c.Clamped() > 0 {
		s.WriteString(st.label.Render("Clamped") + st.warning.Render(fmt.Sprintf("%d", c.Clamped())) + "\n")
	}
	row("Threshold", fmt.Sprintf("%d", m.threshold))
	row("Rate", Sparkline(m.itersHist, 20))

	s.WriteString("\nPARAMETERS\n")
	row("a", fmt.Sprintf("%+.6f", p.A))
	row("b", fmt.Sprintf("%+.6f", p.B))
	row("c", fmt.Sprintf("%+.6f", p.C))
	row("d", fmt.Sprintf("%+.6f", p.D))
	s.WriteString("\nBOUNDS\n")
	row("x", fmt.Sprintf("[%.3f, %.3f]", b.XMin, b.XMax))
	row("y", fmt.Sprintf("[%.3f, %.3f]", b.YMin, b.YMax))

	s.WriteString(st.help.Render("─────────────────────\nSP:Pause R:Recal Q:Quit\nT:Theme +/-:Budget ?:Help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top,
		st.canvas.Render(m.canvas.String()),
		st.panel.Render(s.String()))
	if m.showHelp {
		return helpText + "\n\n" + mainView
	}
	return mainView
}

const helpText = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume rendering   ║
║  R        - Recalibrate bounds       ║
║  T        - Cycle themes             ║
║  + / -    - Double/halve budget      ║
║  Up/K     - Raise dot threshold      ║
║  Down/J   - Lower dot threshold      ║
║  ?        - Toggle this help         ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝`

// Run starts the Bubble Tea program on the alternate screen.
func Run(session *sim.Session, title string) error {
	_, err := tea.NewProgram(NewModel(session, title), tea.WithAltScreen()).Run()
	return err
}
