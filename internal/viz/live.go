// Package viz renders a running loop in the terminal. The TUI owns the
// schedule: every frame message drives one engine tick, and pausing just
// stops driving. The engine itself knows nothing about frames.
package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/Harro4135/pidlab/internal/analyze"
	"github.com/Harro4135/pidlab/internal/loop"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	statStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	selStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

type TickMsg time.Time

// Model drives one Loop against a setpoint/disturbance pair that the
// user can nudge live between ticks.
type Model struct {
	lp          *loop.Loop
	setpoint    float64
	disturbance float64
	duration    float64
	fps         int

	params   []string
	selected int

	width   int
	tickErr error
}

func NewLive(lp *loop.Loop, setpoint, disturbance, duration float64, fps int) Model {
	if fps <= 0 {
		fps = 30
	}
	return Model{
		lp:          lp,
		setpoint:    setpoint,
		disturbance: disturbance,
		duration:    duration,
		fps:         fps,
		params:      []string{"setpoint", "disturbance"},
		width:       80,
	}
}

func (m Model) frame() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return m.frame() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			if m.lp.Running() {
				m.lp.Pause()
			} else {
				m.lp.Resume()
			}
		case "r":
			m.lp.Reset()
			m.tickErr = nil
		case "tab":
			m.selected = (m.selected + 1) % len(m.params)
		case "up", "k":
			m.adjust(0.1)
		case "down", "j":
			m.adjust(-0.1)
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case TickMsg:
		// inputs are read once per tick; a mid-frame edit applies
		// from the next tick on
		if m.lp.Running() && m.lp.Time() < m.duration {
			if _, err := m.lp.Tick(m.setpoint, m.disturbance); err != nil {
				m.tickErr = err
				m.lp.Pause()
			}
		}
		return m, m.frame()
	}
	return m, nil
}

func (m *Model) adjust(delta float64) {
	switch m.params[m.selected] {
	case "setpoint":
		m.setpoint += delta
	case "disturbance":
		m.disturbance += delta
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("pidlab live"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  t=%.1f / %.1f", m.lp.Time(), m.duration)))
	if !m.lp.Running() {
		b.WriteString("  " + pausedStyle.Render("PAUSED"))
	}
	b.WriteString("\n\n")

	chartWidth := m.width - 14
	if chartWidth < 30 {
		chartWidth = 30
	}

	for _, name := range m.lp.Names() {
		h, ok := m.lp.History(name)
		if !ok || h.Len() < 2 {
			continue
		}

		samples := h.Samples()
		pv := make([]float64, len(samples))
		for i, s := range samples {
			pv[i] = s.ProcessVariable
		}

		chart := asciigraph.Plot(pv,
			asciigraph.Height(7),
			asciigraph.Width(chartWidth),
			asciigraph.Caption(fmt.Sprintf("%s: process variable", name)),
		)
		b.WriteString(chart)
		b.WriteString("\n")

		r := analyze.Analyze(samples, m.setpoint, m.lp.Dt())
		b.WriteString(statStyle.Render(fmt.Sprintf("  overshoot %+.3f   %s   %s",
			r.Overshoot, fmtTri("sse", r.SteadyStateError, r.SteadyStateDefined),
			fmtTri("settle", r.SettlingTime, r.Settled))))
		b.WriteString("\n\n")
	}

	for i, p := range m.params {
		val := m.setpoint
		if p == "disturbance" {
			val = m.disturbance
		}
		line := fmt.Sprintf("%s = %.2f", p, val)
		if i == m.selected {
			line = selStyle.Render("> " + line)
		} else {
			line = dimStyle.Render("  " + line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if m.tickErr != nil {
		b.WriteString("\n" + pausedStyle.Render(m.tickErr.Error()) + "\n")
	}

	b.WriteString(dimStyle.Render("\nspace pause/resume · tab select · up/down adjust · r reset · q quit\n"))
	return b.String()
}

func fmtTri(label string, v float64, ok bool) string {
	if !ok {
		return label + " n/a"
	}
	return fmt.Sprintf("%s %.3f", label, v)
}

// RunLive blocks until the user quits.
func RunLive(lp *loop.Loop, setpoint, disturbance, duration float64, fps int) error {
	p := tea.NewProgram(NewLive(lp, setpoint, disturbance, duration, fps))
	_, err := p.Run()
	return err
}
