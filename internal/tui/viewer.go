// Package tui is the interactive session viewer: a statistics table over
// the plotted series with a threshold filter and window editor.
package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"tlmscope/internal/series"
	"tlmscope/internal/telemetry"
)

type inputMode int

const (
	modeBrowse inputMode = iota
	modeFilter
	modeWindow
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Model is the bubbletea model of one plot session.
type Model struct {
	sessionID string
	project   string
	session   *series.Session
	lo, hi    time.Time

	table  table.Model
	input  textinput.Model
	mode   inputMode
	status string
	failed bool
	width  int
}

// New builds a viewer over groups. The statistics window starts at the
// full time range of tlm.
func New(sessionID, project string, tlm telemetry.Tlm, groups []telemetry.PlotGroup) Model {
	lo, hi, _ := series.TimeRange(tlm)
	cols := []table.Column{
		{Title: "Plot", Width: 4},
		{Title: "TLM", Width: 18},
		{Title: "Max", Width: 10},
		{Title: "Min", Width: 10},
		{Title: "Ave", Width: 10},
		{Title: "Med", Width: 10},
		{Title: "Std", Width: 10},
		{Title: "N", Width: 7},
	}
	t := table.New(table.WithColumns(cols), table.WithFocused(true), table.WithHeight(10))
	in := textinput.New()
	in.CharLimit = 128

	m := Model{
		sessionID: sessionID,
		project:   project,
		session:   series.NewSession(groups),
		lo:        lo,
		hi:        hi,
		table:     t,
		input:     in,
		width:     80,
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetWidth(msg.Width)
		if h := msg.Height - 8; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil
	case tea.KeyMsg:
		if m.mode != modeBrowse {
			return m.updateInput(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "f", "/":
			return m.startInput(modeFilter, "filter: FIELD OP VALUE", ""), textinput.Blink
		case "w":
			cur := m.lo.Format(series.WindowLayout) + ", " + m.hi.Format(series.WindowLayout)
			return m.startInput(modeWindow, "window: from, to", cur), textinput.Blink
		case "r":
			m.session.Deactivate()
			m.setStatus(fmt.Sprintf("filter cleared, %d rows", rowCount(m.session.Base())), false)
			m.refresh()
			return m, nil
		case "z":
			m.session.Options.KeepZero = !m.session.Options.KeepZero
			m.setStatus(fmt.Sprintf("keep zero reference values: %v", m.session.Options.KeepZero), false)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) startInput(mode inputMode, placeholder, value string) Model {
	m.mode = mode
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.Focus()
	m.table.Blur()
	return m
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.endInput()
		return m, nil
	case tea.KeyEnter:
		val := m.input.Value()
		mode := m.mode
		m.endInput()
		switch mode {
		case modeFilter:
			m.applyFilter(val)
		case modeWindow:
			m.applyWindow(val)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) endInput() {
	m.mode = modeBrowse
	m.input.Blur()
	m.input.Reset()
	m.table.Focus()
}

func (m *Model) applyFilter(expr string) {
	p, err := series.ParsePredicate(expr)
	if err == nil {
		err = m.session.Apply(p)
	}
	if err != nil {
		m.setStatus("error: "+err.Error(), true)
		return
	}
	m.setStatus("filter: "+p.String(), false)
	m.refresh()
}

func (m *Model) applyWindow(val string) {
	from, to, ok := strings.Cut(val, ",")
	if !ok {
		m.setStatus("error: "+series.ErrWindowFormat.Error(), true)
		return
	}
	lo, hi, err := series.ParseWindow(from, to)
	if err != nil {
		m.setStatus("error: "+err.Error(), true)
		return
	}
	m.lo, m.hi = lo, hi
	m.setStatus("window updated", false)
	m.refresh()
}

func (m *Model) setStatus(s string, failed bool) {
	m.status = s
	m.failed = failed
}

// refresh recomputes the statistics rows from the current view.
func (m *Model) refresh() {
	var rows []table.Row
	for _, g := range m.session.Current() {
		for _, s := range series.SummarizeGroup(g, m.lo, m.hi) {
			rows = append(rows, table.Row{
				strconv.Itoa(g.PlotID), s.SeriesID,
				cell(s.Max), cell(s.Min), cell(s.Average), cell(s.Median), cell(s.StandardDeviation),
				strconv.Itoa(s.Samples),
			})
		}
	}
	m.table.SetRows(rows)
}

func rowCount(groups []telemetry.PlotGroup) int {
	for _, g := range groups {
		if len(g.Series) > 0 {
			return len(g.Series[0].X)
		}
	}
	return 0
}

func cell(v telemetry.Value) string {
	if !v.Valid {
		return "-"
	}
	return strconv.FormatFloat(v.V, 'g', 6, 64)
}

// Err reports the last failed interaction, if any.
func (m Model) Err() error {
	if !m.failed {
		return nil
	}
	return errors.New(strings.TrimPrefix(m.status, "error: "))
}

func (m Model) View() string {
	var b strings.Builder
	title := fmt.Sprintf("%s  session %s", m.project, m.sessionID)
	b.WriteString(titleStyle.Render(title) + "\n")
	window := fmt.Sprintf("window %s → %s", m.lo.Format(series.WindowLayout), m.hi.Format(series.WindowLayout))
	if p, ok := m.session.Active(); ok {
		window += "  filter " + p.String()
	}
	b.WriteString(dimStyle.Render(window) + "\n")
	b.WriteString(m.table.View() + "\n")
	if m.mode != modeBrowse {
		b.WriteString(m.input.View() + "\n")
	}
	if m.status != "" {
		style := okStyle
		if m.failed {
			style = errStyle
		}
		b.WriteString(style.Render(wordwrap.String(m.status, m.width)) + "\n")
	}
	b.WriteString(dimStyle.Render("f filter  r reset  z zero  w window  q quit"))
	return b.String()
}
