package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"tlmscope/internal/series"
	"tlmscope/internal/telemetry"
)

func at(sec int) time.Time { return time.Date(2024, 3, 1, 0, 0, sec, 0, time.UTC) }

func fixture() Model {
	tlm := telemetry.Tlm{
		Time:   []time.Time{at(0), at(1), at(2), at(3)},
		Fields: []string{"V", "I"},
		Data: map[string][]any{
			"V": {5.0, 12.0, 20.0, nil},
			"I": {1.0, 2.0, 3.0, 4.0},
		},
	}
	sel := []telemetry.Selection{
		{PlotID: 1, Sources: []telemetry.Source{{ID: 12, Fields: []string{"V"}}}},
		{PlotID: 2, Sources: []telemetry.Source{{ID: 13, Fields: []string{"I"}}}},
	}
	return New("sess-1", "DSX0201", tlm, series.Reshape(tlm, sel))
}

func keys(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func send(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestInitialStatistics(t *testing.T) {
	m := fixture()
	rows := m.table.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	// window covers all data; the upper index is exclusive so at(3) drops
	if rows[0][1] != "V" || rows[0][2] != "20" || rows[0][7] != "3" {
		t.Errorf("V row: %v", rows[0])
	}
	if rows[1][4] != "2" {
		t.Errorf("I average: %v", rows[1])
	}
}

func TestFilterAndReset(t *testing.T) {
	m := fixture()
	m = send(m, keys("f"))
	if m.mode != modeFilter {
		t.Fatalf("expected filter mode")
	}
	m.input.SetValue("V >= 10")
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	if err := m.Err(); err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	if p, ok := m.session.Active(); !ok || p.Field != "V" {
		t.Fatalf("filter not active")
	}
	if n := len(m.session.Current()[0].Series[0].Y); n != 2 {
		t.Errorf("filtered rows = %d", n)
	}

	m = send(m, keys("r"))
	if _, ok := m.session.Active(); ok {
		t.Errorf("filter still active after reset")
	}
	if n := len(m.session.Current()[0].Series[0].Y); n != 4 {
		t.Errorf("reset rows = %d", n)
	}
	if m.status != "filter cleared, 4 rows" {
		t.Errorf("status = %q", m.status)
	}
}

func TestFilterFailureKeepsView(t *testing.T) {
	m := fixture()
	m = send(m, keys("f"))
	m.input.SetValue("V > 100")
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	if err := m.Err(); err == nil || err.Error() != "Filter result: Empty" {
		t.Errorf("expected empty filter error, got %v", err)
	}
	if n := len(m.session.Current()[0].Series[0].Y); n != 4 {
		t.Errorf("view changed: %d rows", n)
	}
	if !strings.Contains(m.View(), "Filter result: Empty") {
		t.Errorf("status not rendered")
	}
}

func TestWindowEdit(t *testing.T) {
	m := fixture()
	m = send(m, keys("w"))
	m.input.SetValue("2024-03-01 00:00:01, 2024-03-01 00:00:02")
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	if err := m.Err(); err != nil {
		t.Fatalf("window: %v", err)
	}
	if got := m.table.Rows()[0][7]; got != "1" {
		t.Errorf("samples in window = %s", got)
	}

	m = send(m, keys("w"))
	m.input.SetValue("yesterday, today")
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.Err() == nil {
		t.Errorf("expected window format error")
	}
}

func TestEscapeAndQuit(t *testing.T) {
	m := send(fixture(), keys("f"), tea.KeyMsg{Type: tea.KeyEsc})
	if m.mode != modeBrowse {
		t.Errorf("escape did not leave input mode")
	}
	m = send(m, keys("z"))
	if !m.session.Options.KeepZero {
		t.Errorf("z should toggle KeepZero")
	}
	if _, cmd := m.Update(keys("q")); cmd == nil {
		t.Errorf("expected quit command")
	}
}

func TestRenderStats(t *testing.T) {
	out := RenderStats([]PlotSummary{{PlotID: 1, Summaries: []series.Summary{
		{SeriesID: "V", Max: telemetry.Float(5), Min: telemetry.Float(1), Samples: 5},
	}}})
	for _, want := range []string{"TLM", "V", "5", "-"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
