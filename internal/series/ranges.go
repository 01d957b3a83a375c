package series

import (
	"time"

	"tlmscope/internal/telemetry"
)

// TimeRange returns the earliest and latest timestamp of tlm.
func TimeRange(tlm telemetry.Tlm) (time.Time, time.Time, bool) {
	if len(tlm.Time) == 0 {
		return time.Time{}, time.Time{}, false
	}
	lo, hi := tlm.Time[0], tlm.Time[0]
	for _, t := range tlm.Time[1:] {
		if t.Before(lo) {
			lo = t
		}
		if t.After(hi) {
			hi = t
		}
	}
	return lo, hi, true
}

// ValueRange returns the y extent of a group widened by a small margin on
// both sides so markers do not sit on the frame.
func ValueRange(g telemetry.PlotGroup) (float64, float64, bool) {
	var all []float64
	for _, s := range g.Series {
		for _, v := range s.Y {
			if v.Valid {
				all = append(all, v.V)
			}
		}
	}
	hi, lo := Max(all), Min(all)
	if !hi.Valid || !lo.Valid {
		return 0, 0, false
	}
	margin := (hi.V - lo.V) / 4 * 0.2
	return lo.V - margin, hi.V + margin, true
}
