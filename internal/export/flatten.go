// Package export turns fetched telemetry into files and external sinks.
package export

import (
	"sort"
	"strconv"
	"time"

	"tlmscope/internal/telemetry"
)

// TimeLayout formats the Time column of flattened rows.
const TimeLayout = "2006-01-02 15:04:05.000"

// Table is telemetry flattened to one row per time index. Values[i][0] is
// the row time; the remaining cells follow Header[1:].
type Table struct {
	Header []string
	Rows   [][]any
}

// Flatten builds a Table from tlm, sorted by time with zero times last.
func Flatten(tlm telemetry.Tlm) Table {
	fields := tlm.Fields
	if len(fields) == 0 {
		for f := range tlm.Data {
			fields = append(fields, f)
		}
		sort.Strings(fields)
	}
	t := Table{Header: append([]string{"Time"}, fields...)}
	for i, ts := range tlm.Time {
		row := make([]any, 0, len(fields)+1)
		row = append(row, ts)
		for _, f := range fields {
			var v any
			if col := tlm.Data[f]; i < len(col) {
				v = col[i]
			}
			row = append(row, v)
		}
		t.Rows = append(t.Rows, row)
	}
	sort.SliceStable(t.Rows, func(a, b int) bool {
		ta, tb := t.Rows[a][0].(time.Time), t.Rows[b][0].(time.Time)
		if ta.IsZero() != tb.IsZero() {
			return tb.IsZero()
		}
		return ta.Before(tb)
	})
	return t
}

// Strings renders a row for text formats. Nulls become empty cells.
func Strings(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		switch x := v.(type) {
		case nil:
		case time.Time:
			if !x.IsZero() {
				out[i] = x.UTC().Format(TimeLayout)
			}
		case float64:
			out[i] = strconv.FormatFloat(x, 'g', -1, 64)
		case string:
			out[i] = x
		default:
			out[i] = ""
		}
	}
	return out
}
