// Package ground reads telemetry recorded during ground tests. Each test
// case is a directory of CSV files whose first column is the timestamp.
package ground

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"tlmscope/internal/query"
	"tlmscope/internal/telemetry"
	"tlmscope/internal/warehouse"
)

// ErrNoTestCases is returned when a request names no readable test case.
var ErrNoTestCases = errors.New("no ground test cases found")

// Reader loads ground test telemetry from Root.
type Reader struct {
	Root string
	Log  *slog.Logger
}

// TestCases lists the test case directories under groundTestPath.
func (r *Reader) TestCases(groundTestPath string) ([]string, error) {
	dirs, err := filepath.Glob(filepath.Join(r.Root, groundTestPath, "*"))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, d := range dirs {
		if fi, err := os.Stat(d); err == nil && fi.IsDir() {
			out = append(out, filepath.Base(d))
		}
	}
	sort.Strings(out)
	return out, nil
}

type sample struct {
	t     time.Time
	cells map[string]any
}

// Get implements the ground half of the fetch contract. When the request
// does not choose test cases, every test case is read and rows are limited
// to the request's day window.
func (r *Reader) Get(ctx context.Context, req telemetry.Request) (telemetry.Response, error) {
	cases := req.TestCases
	if !req.IsChosen {
		all, err := r.TestCases(req.GroundTestPath)
		if err != nil {
			return telemetry.Response{}, err
		}
		cases = all
	}
	if len(cases) == 0 {
		return telemetry.Response{}, ErrNoTestCases
	}

	fields := req.Fields()
	wanted := make(map[string]bool, len(fields))
	for _, f := range fields {
		wanted[f] = true
	}
	start, end := query.Window(req.Dates)

	var samples []sample
	for _, tc := range cases {
		if err := ctx.Err(); err != nil {
			return telemetry.Response{}, err
		}
		files, err := filepath.Glob(filepath.Join(r.Root, req.GroundTestPath, tc, "*.csv"))
		if err != nil {
			return telemetry.Response{}, err
		}
		sort.Strings(files)
		for _, path := range files {
			got, err := readFile(path, wanted)
			if err != nil {
				return telemetry.Response{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			samples = append(samples, got...)
		}
	}

	kept := samples[:0]
	for _, s := range samples {
		if req.IsChosen || (!s.t.Before(start) && !s.t.After(end)) {
			kept = append(kept, s)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].t.Before(kept[j].t) })
	kept = mergeByTime(kept)

	tlm := telemetry.EmptyTlm()
	for _, s := range kept {
		tlm.Time = append(tlm.Time, s.t)
	}
	for _, f := range fields {
		col := make([]any, len(kept))
		seen := false
		for i, s := range kept {
			if v, ok := s.cells[f]; ok {
				col[i] = v
				seen = true
			}
		}
		if seen {
			tlm.Fields = append(tlm.Fields, f)
			tlm.Data[f] = col
		} else if r.Log != nil {
			r.Log.Warn("field not found in ground test files", "field", f, "project", req.Project)
		}
	}
	return telemetry.Response{Success: true, Tlm: tlm, ErrorMessages: []string{}}, nil
}

// mergeByTime collapses time-sorted samples sharing a timestamp into one
// row. A non-empty cell from a later file wins over an earlier one.
func mergeByTime(samples []sample) []sample {
	out := samples[:0]
	for _, s := range samples {
		if n := len(out); n > 0 && out[n-1].t.Equal(s.t) {
			merged := out[n-1].cells
			for k, v := range s.cells {
				if _, ok := merged[k]; ok && v == nil {
					continue
				}
				merged[k] = v
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

func readFile(path string, wanted map[string]bool) ([]sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var out []sample
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		ts, err := warehouse.ParseTime(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, err
		}
		s := sample{t: ts, cells: make(map[string]any)}
		for i := 1; i < len(rec) && i < len(header); i++ {
			if wanted[header[i]] {
				s.cells[header[i]] = parseCell(rec[i])
			}
		}
		out = append(out, s)
	}
}

func parseCell(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	}
	return s
}
