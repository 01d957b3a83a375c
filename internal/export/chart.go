package export

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"tlmscope/internal/series"
	"tlmscope/internal/telemetry"
)

// ChartOptions sizes a rendered plot group. Labels maps a field to value
// labels used as y ticks.
type ChartOptions struct {
	Width, Height int
	Title         string
	Labels        map[string]map[string]string
}

func pointStyle(i int) chart.Style {
	return chart.Style{
		StrokeWidth: 1,
		StrokeColor: chart.GetDefaultColor(i),
		DotWidth:    2,
		DotColor:    chart.GetDefaultColor(i),
	}
}

// RenderPNG draws one plot group as a PNG. Null samples are left out.
func RenderPNG(w io.Writer, g telemetry.PlotGroup, opts ChartOptions) error {
	var list []chart.Series
	for i, s := range g.Series {
		var xs []time.Time
		var ys []float64
		for j, v := range s.Y {
			if v.Valid && j < len(s.X) {
				xs = append(xs, s.X[j])
				ys = append(ys, v.V)
			}
		}
		if len(xs) == 0 {
			continue
		}
		if len(xs) == 1 {
			// go-chart needs two x values to build a range
			xs = append(xs, xs[0].Add(time.Second))
			ys = append(ys, ys[0])
		}
		list = append(list, chart.TimeSeries{Name: s.ID, XValues: xs, YValues: ys, Style: pointStyle(i)})
	}
	if len(list) == 0 {
		return fmt.Errorf("plot %d has no numeric samples", g.PlotID)
	}

	width, height := opts.Width, opts.Height
	if width == 0 {
		width = 1024
	}
	if height == 0 {
		height = 400
	}
	yAxis := chart.YAxis{Ticks: labelTicks(g, opts.Labels)}
	if lo, hi, ok := series.ValueRange(g); ok && hi > lo {
		yAxis.Range = &chart.ContinuousRange{Min: lo, Max: hi}
	}
	title := opts.Title
	if title == "" {
		title = fmt.Sprintf("plot %d", g.PlotID)
	}
	ch := chart.Chart{
		Title:      title,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 12, Bottom: 28}},
		XAxis:      chart.XAxis{ValueFormatter: chart.TimeValueFormatterWithFormat("01-02 15:04:05")},
		YAxis:      yAxis,
		Series:     list,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch.Render(chart.PNG, w)
}

// labelTicks returns y ticks from the labels of the group's first labelled
// field, or nil to let the chart pick ticks.
func labelTicks(g telemetry.PlotGroup, labels map[string]map[string]string) []chart.Tick {
	for _, s := range g.Series {
		m, ok := labels[s.ID]
		if !ok {
			continue
		}
		var ticks []chart.Tick
		for k, label := range m {
			v, err := strconv.ParseFloat(k, 64)
			if err != nil {
				continue
			}
			ticks = append(ticks, chart.Tick{Value: v, Label: label})
		}
		if len(ticks) < 2 {
			return nil
		}
		sort.Slice(ticks, func(i, j int) bool { return ticks[i].Value < ticks[j].Value })
		return ticks
	}
	return nil
}
