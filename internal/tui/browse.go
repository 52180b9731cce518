// Package tui implements the interactive basis browser: pick a preset,
// inspect the basis layout, and scan the radial channels as terminal plots.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/ace/internal/config"
	"github.com/san-kum/ace/internal/radial"
	"github.com/san-kum/ace/internal/rpibasis"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type state int

const (
	statePresets state = iota
	stateBrowse
)

type model struct {
	state   state
	cursor  int
	presets []string

	selected string
	basis    *rpibasis.Basis
	rad      *radial.Basis
	buildErr error

	channel int // radial channel under the cursor

	width  int
	height int
}

func NewBrowser() *model {
	return &model{
		state:   statePresets,
		presets: config.ListPresets(),
		width:   80,
		height:  24,
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch m.state {
	case statePresets:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.presets)-1 {
				m.cursor++
			}
		case "enter", " ":
			m.selected = m.presets[m.cursor]
			m.build()
			m.state = stateBrowse
			m.channel = 0
			return m, tea.ClearScreen
		}
	case stateBrowse:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc", "backspace":
			m.state = statePresets
			m.basis = nil
			m.rad = nil
			m.buildErr = nil
			return m, tea.ClearScreen
		case "up", "k":
			if m.channel > 0 {
				m.channel--
			}
		case "down", "j":
			if m.rad != nil && m.channel < m.rad.NMax {
				m.channel++
			}
		}
	}
	return m, nil
}

func (m *model) build() {
	cfg := config.GetPreset(m.selected)
	if cfg == nil {
		m.buildErr = fmt.Errorf("unknown preset %q", m.selected)
		return
	}

	b, err := rpibasis.New(cfg)
	if err != nil {
		m.buildErr = err
		return
	}
	m.basis = b

	tr, _, err := cfg.BuildTransform()
	if err != nil {
		m.buildErr = err
		return
	}
	m.rad, m.buildErr = radial.New(cfg.Radial.NMax, cfg.Radial.RIn, cfg.Radial.RCut, tr)
}

func (m model) View() string {
	switch m.state {
	case statePresets:
		return m.viewPresets()
	case stateBrowse:
		return m.viewBrowse()
	}
	return ""
}

func (m model) viewPresets() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("          " + cyan.Render("a c e") + "\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("\n")

	for i, name := range m.presets {
		p := config.GetPreset(name)
		desc := fmt.Sprintf("order %d, degree %g", p.MaxOrder, p.MaxDegree[0])
		if i == m.cursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-10s", name)) + dim.Render(desc) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-10s", name)) + dimmer.Render(desc) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ select   enter browse   q quit") + "\n")

	return b.String()
}

func (m model) viewBrowse() string {
	var b strings.Builder

	b.WriteString("\n      " + cyan.Render(m.selected) + "\n")
	b.WriteString(dimmer.Render("      "+strings.Repeat("─", 40)) + "\n\n")

	if m.buildErr != nil {
		b.WriteString("      " + red.Render(m.buildErr.Error()) + "\n\n")
		b.WriteString(dim.Render("      esc back   q quit") + "\n")
		return b.String()
	}

	perOrder := make(map[int]int)
	for k := 0; k < m.basis.Len(); k++ {
		perOrder[m.basis.Order(k)]++
	}
	b.WriteString(fmt.Sprintf("      %s %s    %s %s    %s %s\n",
		dim.Render("functions"), white.Render(fmt.Sprintf("%d", m.basis.Len())),
		dim.Render("one-particle"), white.Render(fmt.Sprintf("%d", m.basis.NumOneParticle())),
		dim.Render("product nodes"), white.Render(fmt.Sprintf("%d", m.basis.NumNodes()))))

	b.WriteString("      ")
	for o := 0; o <= m.basis.MaxOrder(); o++ {
		b.WriteString(dim.Render(fmt.Sprintf("ν=%d ", o)) + green.Render(fmt.Sprintf("%-6d", perOrder[o])))
	}
	b.WriteString("\n\n")

	b.WriteString("      " + dim.Render("radial channels") + "\n")
	for n := 0; n <= m.rad.NMax; n++ {
		spark := m.radialSparkline(n, 48)
		if n == m.channel {
			b.WriteString("      " + cyan.Render(fmt.Sprintf("▸ R%-2d ", n)) + cyan.Render(spark) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("R%-2d ", n)) + dimmer.Render(spark) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ channel   esc back   q quit") + "\n")

	return b.String()
}

func (m model) radialSparkline(n, width int) string {
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	data := make([]float64, width)
	lo := m.rad.RIn
	if lo == 0 {
		lo = 1e-3
	}
	for i := range data {
		r := lo + (m.rad.RCut-lo)*float64(i)/float64(width-1)
		v, err := m.rad.EvalScalar(n, r)
		if err != nil {
			continue
		}
		data[i] = v
	}

	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	rang := maxVal - minVal
	if rang == 0 {
		rang = 1
	}

	var sb strings.Builder
	for _, v := range data {
		idx := int((v - minVal) / rang * 7)
		if idx > 7 {
			idx = 7
		}
		if idx < 0 {
			idx = 0
		}
		sb.WriteRune(chars[idx])
	}
	return sb.String()
}

// RunBrowser starts the interactive browser in the alternate screen.
func RunBrowser() error {
	p := tea.NewProgram(NewBrowser(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
