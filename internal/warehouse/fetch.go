// Package warehouse executes telemetry queries and converts the row
// results into column-oriented data.
package warehouse

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tlmscope/internal/telemetry"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Warehouse executes a query and returns all rows.
type Warehouse interface {
	Query(ctx context.Context, query string) ([]Row, error)
	Close() error
}

// Kind classifies a fetch failure.
type Kind string

const (
	KindTransport Kind = "transport"
	KindShape     Kind = "shape"
)

// FetchError is returned when a fetch fails. Msg is suitable for display.
type FetchError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *FetchError) Error() string { return e.Msg }

func (e *FetchError) Unwrap() error { return e.Err }

// Fetch runs query on wh and returns the columnar result. It either
// succeeds with every row converted or fails with a single FetchError.
func Fetch(ctx context.Context, wh Warehouse, query string) (*telemetry.Columnar, error) {
	rows, err := wh.Query(ctx, query)
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "Unknown Error"
		}
		return nil, &FetchError{Kind: KindTransport, Msg: msg, Err: err}
	}
	return ToColumnar(rows)
}

// ToColumnar validates rows and pivots them into columns. Every key seen on
// any row becomes a column; missing cells are nil.
func ToColumnar(rows []Row) (*telemetry.Columnar, error) {
	out := &telemetry.Columnar{
		Time:           make([]time.Time, 0, len(rows)),
		CalibratedTime: make([]time.Time, 0, len(rows)),
		Columns:        make(map[string][]any),
	}

	for i, row := range rows {
		raw, err := rowTime(row, telemetry.TimeField)
		if err != nil {
			return nil, &FetchError{Kind: KindShape, Msg: fmt.Sprintf("row %d: %v", i, err), Err: err}
		}
		cal, err := rowTime(row, telemetry.CalibratedTimeField)
		if err != nil {
			return nil, &FetchError{Kind: KindShape, Msg: fmt.Sprintf("row %d: %v", i, err), Err: err}
		}
		out.Time = append(out.Time, raw)
		out.CalibratedTime = append(out.CalibratedTime, cal)

		keys := make([]string, 0, len(row))
		for k := range row {
			if k == telemetry.TimeField || k == telemetry.CalibratedTimeField {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, ok := out.Columns[k]; !ok {
				// backfill rows seen before this column appeared
				out.Columns[k] = make([]any, i, len(rows))
				out.Order = append(out.Order, k)
			}
		}
		for _, k := range out.Order {
			out.Columns[k] = append(out.Columns[k], normalizeCell(row[k]))
		}
	}
	return out, nil
}
