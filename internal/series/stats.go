package series

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"tlmscope/internal/telemetry"
)

// WindowLayout is the accepted statistics window format.
const WindowLayout = "2006-01-02 15:04:05"

var ErrWindowFormat = errors.New("X-axis Format (yyyy-MM-dd HH:mm:ss) error")

// ParseWindow parses the statistics window bounds.
func ParseWindow(minStr, maxStr string) (time.Time, time.Time, error) {
	lo, err := time.Parse(WindowLayout, strings.TrimSpace(minStr))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrWindowFormat, minStr)
	}
	hi, err := time.Parse(WindowLayout, strings.TrimSpace(maxStr))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrWindowFormat, maxStr)
	}
	return lo, hi, nil
}

// Summary holds the statistics of one series. Fields are null when the
// window held no numeric sample.
type Summary struct {
	SeriesID          string          `json:"tlmName"`
	Max               telemetry.Value `json:"max"`
	Min               telemetry.Value `json:"min"`
	Average           telemetry.Value `json:"ave"`
	Median            telemetry.Value `json:"med"`
	StandardDeviation telemetry.Value `json:"std"`
	Samples           int             `json:"samples"`
}

// lowerIndex is the last index whose time is <= lo, scanning from the end,
// or 0 when the window starts before the data.
func lowerIndex(x []time.Time, lo time.Time) int {
	for i := len(x) - 1; i >= 0; i-- {
		if !x[i].After(lo) {
			return i
		}
	}
	return 0
}

// upperIndex is the first index whose time is >= hi, or the last index
// when the window ends after the data.
func upperIndex(x []time.Time, hi time.Time) int {
	for i, t := range x {
		if !t.Before(hi) {
			return i
		}
	}
	return len(x) - 1
}

// Window returns the non-null samples of s between the boundary indices
// of [lo, hi]; the upper index itself is excluded. A window covering the
// whole series therefore still leaves out its last sample, so statistics
// over TimeRange differ from the unwindowed ones whenever that sample is
// non-null.
func Window(s telemetry.Series, lo, hi time.Time) []float64 {
	if len(s.X) == 0 {
		return nil
	}
	from, to := lowerIndex(s.X, lo), upperIndex(s.X, hi)
	if to > len(s.Y) {
		to = len(s.Y)
	}
	var out []float64
	for i := from; i < to; i++ {
		if s.Y[i].Valid {
			out = append(out, s.Y[i].V)
		}
	}
	return out
}

// Summarize computes the statistics of s over [lo, hi].
func Summarize(s telemetry.Series, lo, hi time.Time) Summary {
	vals := Window(s, lo, hi)
	return Summary{
		SeriesID:          s.ID,
		Max:               Max(vals),
		Min:               Min(vals),
		Average:           Average(vals),
		Median:            Median(vals),
		StandardDeviation: StandardDeviation(vals),
		Samples:           len(vals),
	}
}

// SummarizeGroup computes per-series statistics for one plot group.
func SummarizeGroup(g telemetry.PlotGroup, lo, hi time.Time) []Summary {
	out := make([]Summary, len(g.Series))
	for i, s := range g.Series {
		out[i] = Summarize(s, lo, hi)
	}
	return out
}

func Max(vals []float64) telemetry.Value {
	if len(vals) == 0 {
		return telemetry.Null
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return telemetry.Float(m)
}

func Min(vals []float64) telemetry.Value {
	if len(vals) == 0 {
		return telemetry.Null
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return telemetry.Float(m)
}

func Average(vals []float64) telemetry.Value {
	if len(vals) == 0 {
		return telemetry.Null
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return telemetry.Float(sum / float64(len(vals)))
}

// Median sorts a copy of vals.
func Median(vals []float64) telemetry.Value {
	if len(vals) == 0 {
		return telemetry.Null
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	half := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return telemetry.Float(sorted[half])
	}
	return telemetry.Float((sorted[half-1] + sorted[half]) / 2)
}

// StandardDeviation is the population standard deviation.
func StandardDeviation(vals []float64) telemetry.Value {
	avg := Average(vals)
	if !avg.Valid {
		return telemetry.Null
	}
	var sq float64
	for _, v := range vals {
		d := v - avg.V
		sq += d * d
	}
	return telemetry.Float(math.Sqrt(sq / float64(len(vals))))
}
