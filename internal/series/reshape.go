// Package series turns fetched telemetry into plot series and derives
// filtered views and statistics from them. Every function returns new
// slices; inputs are never modified.
package series

import (
	"time"

	"tlmscope/internal/telemetry"
)

// ToValues converts raw cells to samples. Strings and other non-numeric
// cells become null.
func ToValues(cells []any) []telemetry.Value {
	out := make([]telemetry.Value, len(cells))
	for i, c := range cells {
		if f, ok := c.(float64); ok {
			out[i] = telemetry.Float(f)
		}
	}
	return out
}

// Reshape builds one plot group per selection. Fields absent from tlm are
// skipped.
func Reshape(tlm telemetry.Tlm, selections []telemetry.Selection) []telemetry.PlotGroup {
	groups := make([]telemetry.PlotGroup, 0, len(selections))
	for _, sel := range selections {
		g := telemetry.PlotGroup{PlotID: sel.PlotID, Series: []telemetry.Series{}}
		for _, name := range sel.FieldNames() {
			cells, ok := tlm.Data[name]
			if !ok {
				continue
			}
			x := make([]time.Time, len(tlm.Time))
			copy(x, tlm.Time)
			g.Series = append(g.Series, telemetry.Series{ID: name, X: x, Y: ToValues(cells)})
		}
		groups = append(groups, g)
	}
	return groups
}

// Clone deep-copies groups.
func Clone(groups []telemetry.PlotGroup) []telemetry.PlotGroup {
	out := make([]telemetry.PlotGroup, len(groups))
	for i, g := range groups {
		out[i] = telemetry.PlotGroup{PlotID: g.PlotID, Series: make([]telemetry.Series, len(g.Series))}
		for j, s := range g.Series {
			x := make([]time.Time, len(s.X))
			copy(x, s.X)
			y := make([]telemetry.Value, len(s.Y))
			copy(y, s.Y)
			out[i].Series[j] = telemetry.Series{ID: s.ID, X: x, Y: y}
		}
	}
	return out
}
