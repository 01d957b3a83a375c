package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tlmscope/internal/telemetry"
)

func TestParsePlot(t *testing.T) {
	p, err := parsePlot("2: BAT_V, BAT_I ,")
	if err != nil {
		t.Fatalf("parsePlot: %v", err)
	}
	if p.PlotID != 2 || len(p.Fields) != 2 || p.Fields[0] != "BAT_V" || p.Fields[1] != "BAT_I" {
		t.Errorf("unexpected plot %+v", p)
	}
	for _, bad := range []string{"BAT_V", "x:BAT_V"} {
		if _, err := parsePlot(bad); err == nil {
			t.Errorf("parsePlot(%q) should fail", bad)
		}
	}
}

func TestPlanDates(t *testing.T) {
	f := planFlags{from: "2024-03-01"}
	d, err := f.dates()
	if err != nil {
		t.Fatalf("dates: %v", err)
	}
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !d.StartDate.Equal(want) || !d.EndDate.Equal(want) {
		t.Errorf("single day window: %+v", d)
	}
	f.to = "03/02/2024"
	if _, err := f.dates(); err == nil || !strings.Contains(err.Error(), "--to") {
		t.Errorf("expected --to error, got %v", err)
	}
}

func TestWriteResponse(t *testing.T) {
	resp := telemetry.Response{
		Success: true,
		Tlm: telemetry.Tlm{
			Time:   []time.Time{time.Date(2024, 3, 1, 0, 0, 1, 0, time.UTC)},
			Fields: []string{"BAT_V"},
			Data:   map[string][]any{"BAT_V": {7.5}},
		},
	}

	var buf bytes.Buffer
	if err := writeResponse(&buf, "", resp); err != nil {
		t.Fatalf("stdout: %v", err)
	}
	if !strings.Contains(buf.String(), `"success": true`) {
		t.Errorf("unexpected JSON:\n%s", buf.String())
	}

	dir := t.TempDir()
	out := filepath.Join(dir, "tlm.csv")
	if err := writeResponse(&buf, out, resp); err != nil {
		t.Fatalf("csv: %v", err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[1][1] != "7.5" {
		t.Errorf("unexpected records %v", records)
	}

	if err := writeResponse(&buf, filepath.Join(dir, "tlm.txt"), resp); err == nil {
		t.Errorf("expected unsupported format error")
	}
}
