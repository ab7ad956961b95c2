package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/bodysim/internal/body"
	"github.com/san-kum/bodysim/internal/item"
	"github.com/san-kum/bodysim/internal/sim"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const (
	historyLen = 60
	maxJoints  = 6
	tickPeriod = 33 * time.Millisecond
)

type tickMsg time.Time

type eventMsg sim.Event

// Options tune the monitor view.
type Options struct {
	Scale float64 // canvas cells per meter
}

// Monitor is a terminal view of a running simulator. It only reads the body
// item states, so it never touches the simulated clones.
type Monitor struct {
	sim      *sim.Simulator
	world    *item.World
	events   chan sim.Event
	observer int
}

// NewMonitor registers an observer on s. Call Close when the program exits.
func NewMonitor(s *sim.Simulator, w *item.World) *Monitor {
	m := &Monitor{
		sim:    s,
		world:  w,
		events: make(chan sim.Event, 64),
	}
	m.observer = s.AddObserver(sim.ObserverFunc(func(ev sim.Event) {
		select {
		case m.events <- ev:
		default:
		}
	}))
	return m
}

func (m *Monitor) Close() { m.sim.RemoveObserver(m.observer) }

// Model returns the bubbletea model of the view.
func (m *Monitor) Model(opts Options) tea.Model {
	if opts.Scale <= 0 {
		opts.Scale = 8
	}
	return model{
		mon:     m,
		canvas:  newCanvas(opts.Scale),
		state:   m.sim.State(),
		history: make([]float64, 0, historyLen),
	}
}

// Run shows the monitor until the run finishes and the user quits, or ctx
// is done.
func (m *Monitor) Run(ctx context.Context, opts Options) (sim.FinishInfo, error) {
	p := tea.NewProgram(m.Model(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if mm, ok := final.(model); ok && mm.finished {
		return mm.finish, err
	}
	return m.sim.Wait(), err
}

type model struct {
	mon    *Monitor
	canvas *canvas

	state    sim.State
	frame    int
	simTime  float64
	active   int
	finished bool
	finish   sim.FinishInfo
	quitting bool
	message  string

	history []float64
	lastErr error
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tick(), m.waitEvent())
}

func tick() tea.Cmd {
	return tea.Tick(tickPeriod, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) waitEvent() tea.Cmd {
	events := m.mon.events
	return func() tea.Msg { return eventMsg(<-events) }
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tickMsg:
		m.sample()
		if m.finished && m.quitting {
			return m, tea.Quit
		}
		return m, tick()
	case eventMsg:
		return m.handleEvent(sim.Event(msg))
	}
	return m, nil
}

func (m model) handleEvent(ev sim.Event) (model, tea.Cmd) {
	switch ev.Kind {
	case sim.EventStarted, sim.EventResumed:
		m.state = sim.StateRunning
		m.message = ""
	case sim.EventPaused:
		m.state = sim.StatePaused
		m.message = "paused"
	case sim.EventBodyListUpdated:
		m.active = len(ev.Active)
	case sim.EventFinished:
		m.state = sim.StateIdle
		m.finished = true
		m.finish = ev.Finish
		m.sample()
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil
	}
	return m, m.waitEvent()
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		m.quitting = true
		if m.finished || !m.mon.sim.IsRunning() {
			return m, tea.Quit
		}
		m.mon.sim.RequestStop()
		m.message = "stopping"
	case " ", "p":
		var err error
		if m.mon.sim.IsPausing() {
			err = m.mon.sim.RestartSimulation()
		} else {
			err = m.mon.sim.PauseSimulation()
		}
		m.lastErr = err
	case "c":
		m.canvas.trail = m.canvas.trail[:0]
		m.history = m.history[:0]
	case "+", "=":
		m.canvas.scale *= 2
	case "-", "_":
		m.canvas.scale /= 2
	}
	return m, nil
}

// sample pulls the published state of every body.
func (m *model) sample() {
	m.frame = m.mon.sim.SimulationFrame()
	m.simTime = m.mon.sim.SimulationTime()
	if !m.finished {
		m.state = m.mon.sim.State()
	}
	m.canvas.clear()
	for i, bi := range m.mon.world.Bodies() {
		s, ok := bi.State()
		if !ok {
			continue
		}
		if i == 0 && len(s.Q) > 0 {
			m.history = append(m.history, s.Q[0])
			if len(m.history) > historyLen {
				m.history = m.history[1:]
			}
		}
		m.canvas.drawBody(s, i == 0)
	}
	m.canvas.drawTrail()
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(cyan.Render(m.mon.world.Name()))
	b.WriteString("  ")
	b.WriteString(m.stateLabel())
	b.WriteString(dim.Render(fmt.Sprintf("  frame %d  t=%.3fs", m.frame, m.simTime)))
	if m.active > 0 {
		b.WriteString(dim.Render(fmt.Sprintf("  active %d", m.active)))
	}
	b.WriteString("\n")
	b.WriteString(dim.Render(strings.Repeat("─", canvasWidth)) + "\n")
	b.WriteString(m.canvas.String())
	b.WriteString(dim.Render(strings.Repeat("─", canvasWidth)) + "\n")

	for _, bi := range m.mon.world.Bodies() {
		s, ok := bi.State()
		if !ok || len(s.Q) == 0 {
			continue
		}
		b.WriteString(jointLine(bi.Name(), s))
	}

	if len(m.history) > 1 {
		b.WriteString("\n")
		b.WriteString(asciigraph.Plot(m.history,
			asciigraph.Height(5), asciigraph.Width(historyLen), asciigraph.Precision(2)))
		b.WriteString("\n")
	}

	if m.finished {
		b.WriteString("\n")
		if m.finish.Abnormal {
			b.WriteString(red.Render(fmt.Sprintf("finished abnormally at frame %d: %v", m.finish.Frame, m.finish.Err)))
		} else {
			b.WriteString(green.Render(fmt.Sprintf("finished at frame %d (%.3fs)", m.finish.Frame, m.finish.Time)))
		}
		b.WriteString("\n")
	} else if m.message != "" {
		b.WriteString("\n" + yellow.Render(m.message) + "\n")
	}
	if m.lastErr != nil {
		b.WriteString(red.Render(m.lastErr.Error()) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("space pause  +/- zoom  c clear  q quit"))
	b.WriteString("\n")
	return b.String()
}

func (m model) stateLabel() string {
	switch m.state {
	case sim.StateRunning:
		return green.Render("● running")
	case sim.StatePaused:
		return yellow.Render("‖ paused")
	}
	return dim.Render("○ idle")
}

func jointLine(name string, s body.Snapshot) string {
	var b strings.Builder
	b.WriteString(white.Render(fmt.Sprintf("%-12s", name)))
	for i, q := range s.Q {
		if i >= maxJoints {
			b.WriteString(dim.Render(" …"))
			break
		}
		b.WriteString(magenta.Render(fmt.Sprintf(" q%d=%7.3f", i, q)))
		if i < len(s.DQ) {
			b.WriteString(dim.Render(fmt.Sprintf(" dq=%7.3f", s.DQ[i])))
		}
	}
	b.WriteString("\n")
	return b.String()
}
