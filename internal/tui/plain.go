package tui

import (
	"strconv"

	ltable "github.com/charmbracelet/lipgloss/table"

	"tlmscope/internal/series"
)

// PlotSummary pairs a plot id with the statistics of its series.
type PlotSummary struct {
	PlotID    int
	Summaries []series.Summary
}

// RenderStats renders statistics as a bordered text table for terminals
// without interactive support.
func RenderStats(plots []PlotSummary) string {
	t := ltable.New().Headers("Plot", "TLM", "Max", "Min", "Ave", "Med", "Std", "N")
	for _, p := range plots {
		for _, s := range p.Summaries {
			t.Row(
				strconv.Itoa(p.PlotID), s.SeriesID,
				cell(s.Max), cell(s.Min), cell(s.Average), cell(s.Median), cell(s.StandardDeviation),
				strconv.Itoa(s.Samples),
			)
		}
	}
	return t.Render()
}
