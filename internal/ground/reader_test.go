package ground

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tlmscope/internal/telemetry"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestReaderChosenTestCase(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "gt", "TC01", "power.csv"),
		"Time,BAT_V,BAT_I\n2023-05-01 10:00:02,7.1,0.2\n2023-05-01 10:00:00,7.0,\n")
	writeFile(t, filepath.Join(root, "gt", "TC01", "mode.csv"),
		"Time,MODE\n2023-05-01 10:00:01,SAFE\n")
	writeFile(t, filepath.Join(root, "gt", "TC02", "power.csv"),
		"Time,BAT_V\n2023-05-01 11:00:00,9.9\n")

	r := &Reader{Root: root}
	req := telemetry.Request{
		GroundTestPath: "gt",
		IsChosen:       true,
		TestCases:      []string{"TC01"},
		Sources:        []telemetry.Source{{ID: 1, Fields: []string{"BAT_V", "BAT_I", "MODE", "MISSING"}}},
	}
	resp, err := r.Get(context.Background(), req)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !resp.Success || len(resp.Tlm.Time) != 3 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !resp.Tlm.Time[0].Before(resp.Tlm.Time[1]) || !resp.Tlm.Time[1].Before(resp.Tlm.Time[2]) {
		t.Fatalf("time not sorted: %v", resp.Tlm.Time)
	}
	if v := resp.Tlm.Data["BAT_V"]; v[0] != 7.0 || v[1] != nil || v[2] != 7.1 {
		t.Errorf("BAT_V = %v", v)
	}
	if v := resp.Tlm.Data["MODE"]; v[1] != "SAFE" {
		t.Errorf("MODE = %v", v)
	}
	if _, ok := resp.Tlm.Data["MISSING"]; ok {
		t.Errorf("missing field should not produce a column")
	}
	if len(resp.Tlm.Fields) != 3 {
		t.Errorf("fields = %v", resp.Tlm.Fields)
	}
}

func TestReaderWindowWhenNotChosen(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "gt", "A", "x.csv"), "Time,V\n2023-05-01 00:00:00,1\n2023-05-03 00:00:00,2\n")
	writeFile(t, filepath.Join(root, "gt", "B", "x.csv"), "Time,V\n2023-05-02 12:00:00,3\n")

	r := &Reader{Root: root}
	req := telemetry.Request{
		GroundTestPath: "gt",
		Dates: telemetry.DateSetting{
			StartDate: time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2023, 5, 2, 0, 0, 0, 0, time.UTC),
		},
		Sources: []telemetry.Source{{ID: 1, Fields: []string{"V"}}},
	}
	resp, err := r.Get(context.Background(), req)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v := resp.Tlm.Data["V"]; len(v) != 2 || v[0] != 1.0 || v[1] != 3.0 {
		t.Fatalf("V = %v", v)
	}

	cases, err := r.TestCases("gt")
	if err != nil || len(cases) != 2 || cases[0] != "A" {
		t.Fatalf("TestCases = %v, %v", cases, err)
	}
}

func TestReaderNoTestCases(t *testing.T) {
	r := &Reader{Root: t.TempDir()}
	_, err := r.Get(context.Background(), telemetry.Request{GroundTestPath: "none"})
	if !errors.Is(err, ErrNoTestCases) {
		t.Fatalf("err = %v, want ErrNoTestCases", err)
	}
}

func TestReaderMergesRowsSharingTimestamp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "gt", "TC01", "power.csv"),
		"Time,BAT_V\n2023-05-01 10:00:00,7.0\n2023-05-01 10:00:01,7.1\n")
	writeFile(t, filepath.Join(root, "gt", "TC01", "mode.csv"),
		"Time,MODE,BAT_V\n2023-05-01 10:00:00,1,\n2023-05-01 10:00:01,2,6.9\n")

	r := &Reader{Root: root}
	req := telemetry.Request{
		GroundTestPath: "gt",
		IsChosen:       true,
		TestCases:      []string{"TC01"},
		Sources:        []telemetry.Source{{ID: 1, Fields: []string{"BAT_V", "MODE"}}},
	}
	resp, err := r.Get(context.Background(), req)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(resp.Tlm.Time) != 2 {
		t.Fatalf("rows = %d, want 2: %v", len(resp.Tlm.Time), resp.Tlm.Time)
	}
	if v := resp.Tlm.Data["MODE"]; v[0] != 1.0 || v[1] != 2.0 {
		t.Errorf("MODE = %v", v)
	}
	// mode.csv sorts before power.csv, so power.csv wins on conflict.
	if v := resp.Tlm.Data["BAT_V"]; v[0] != 7.0 || v[1] != 7.1 {
		t.Errorf("BAT_V = %v", v)
	}
}

func TestReaderDropsNonFiniteCells(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "gt", "TC01", "x.csv"),
		"Time,V\n2023-05-01 10:00:00,NaN\n2023-05-01 10:00:01,+Inf\n2023-05-01 10:00:02,3\n")

	r := &Reader{Root: root}
	req := telemetry.Request{
		GroundTestPath: "gt",
		IsChosen:       true,
		TestCases:      []string{"TC01"},
		Sources:        []telemetry.Source{{ID: 1, Fields: []string{"V"}}},
	}
	resp, err := r.Get(context.Background(), req)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v := resp.Tlm.Data["V"]; len(v) != 3 || v[0] != nil || v[1] != nil || v[2] != 3.0 {
		t.Fatalf("V = %v", v)
	}
	if _, err := json.Marshal(resp); err != nil {
		t.Fatalf("response not encodable: %v", err)
	}
}
