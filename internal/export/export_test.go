package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"image/png"
	"reflect"
	"testing"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/xuri/excelize/v2"

	"tlmscope/internal/logging"
	"tlmscope/internal/telemetry"
)

func at(sec int) time.Time { return time.Date(2024, 3, 1, 0, 0, sec, 0, time.UTC) }

func sample() telemetry.Tlm {
	return telemetry.Tlm{
		Time:   []time.Time{at(2), at(0), {}, at(1)},
		Fields: []string{"BAT_V", "MODE"},
		Data: map[string][]any{
			"BAT_V": {7.3, 7.1, 9.9, nil},
			"MODE":  {"NOMINAL", 0.0, nil, 1.0},
		},
	}
}

func TestFlattenSortsByTimeZeroLast(t *testing.T) {
	tab := Flatten(sample())
	if !reflect.DeepEqual(tab.Header, []string{"Time", "BAT_V", "MODE"}) {
		t.Fatalf("header: %v", tab.Header)
	}
	if len(tab.Rows) != 4 {
		t.Fatalf("rows: %d", len(tab.Rows))
	}
	if !tab.Rows[0][0].(time.Time).Equal(at(0)) || tab.Rows[0][1] != 7.1 {
		t.Errorf("first row: %v", tab.Rows[0])
	}
	if !tab.Rows[3][0].(time.Time).IsZero() || tab.Rows[3][1] != 9.9 {
		t.Errorf("zero time should sort last: %v", tab.Rows[3])
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sample()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	recs, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := [][]string{
		{"Time", "BAT_V", "MODE"},
		{"2024-03-01 00:00:00.000", "7.1", "0"},
		{"2024-03-01 00:00:01.000", "", "1"},
		{"2024-03-01 00:00:02.000", "7.3", "NOMINAL"},
		{"", "9.9", ""},
	}
	if !reflect.DeepEqual(recs, want) {
		t.Errorf("csv:\n got %v\nwant %v", recs, want)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, sample()); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 5 || rows[0][1] != "BAT_V" || rows[1][0] != "2024-03-01 00:00:00.000" || rows[1][1] != "7.1" {
		t.Errorf("sheet: %v", rows)
	}
}

func TestRenderPNG(t *testing.T) {
	g := telemetry.PlotGroup{PlotID: 1, Series: []telemetry.Series{
		{ID: "MODE", X: []time.Time{at(0), at(1), at(2)}, Y: []telemetry.Value{telemetry.Float(0), telemetry.Null, telemetry.Float(1)}},
		{ID: "ONE", X: []time.Time{at(0)}, Y: []telemetry.Value{telemetry.Float(0.5)}},
	}}
	var buf bytes.Buffer
	opts := ChartOptions{Width: 320, Height: 200, Labels: map[string]map[string]string{"MODE": {"0": "SAFE", "1": "NOMINAL"}}}
	if err := RenderPNG(&buf, g, opts); err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 200 {
		t.Errorf("size: %v", b)
	}

	empty := telemetry.PlotGroup{PlotID: 2, Series: []telemetry.Series{{ID: "X", X: []time.Time{at(0)}, Y: []telemetry.Value{telemetry.Null}}}}
	if err := RenderPNG(&buf, empty, ChartOptions{}); err == nil {
		t.Errorf("expected error for group without samples")
	}
}

func TestLabelTicks(t *testing.T) {
	g := telemetry.PlotGroup{Series: []telemetry.Series{{ID: "A"}, {ID: "MODE"}}}
	ticks := labelTicks(g, map[string]map[string]string{"MODE": {"2": "B", "0": "A", "x": "bad"}})
	if len(ticks) != 2 || ticks[0].Label != "A" || ticks[1].Value != 2 {
		t.Errorf("ticks: %+v", ticks)
	}
	if labelTicks(g, nil) != nil {
		t.Errorf("expected nil ticks without labels")
	}
}

type mockGreptimeClient struct {
	tables []*table.Table
	err    error
}

func (m *mockGreptimeClient) Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.tables = append(m.tables, tables...)
	return &gpb.GreptimeResponse{}, nil
}

func TestGreptimeMirror(t *testing.T) {
	m := &mockGreptimeClient{}
	g := &GreptimeMirror{client: m, batchSize: 2, log: logging.Discard()}

	n, err := g.Mirror(context.Background(), "DSX0201", sample())
	if err != nil {
		t.Fatalf("Mirror: %v", err)
	}
	// BAT_V has 3 numeric samples, MODE has 2
	if n != 5 {
		t.Errorf("rows written = %d", n)
	}
	if len(m.tables) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(m.tables))
	}
	rows := m.tables[0].GetRows()
	if len(rows.Schema) != 3 || rows.Schema[0].ColumnName != "field" || rows.Schema[2].Datatype != gpb.ColumnDataType_TIMESTAMP_MILLISECOND {
		t.Errorf("schema: %+v", rows.Schema)
	}
	if got := rows.Rows[0].Values[0].GetStringValue(); got != "BAT_V" {
		t.Errorf("field tag = %q", got)
	}
	if got := rows.Rows[0].Values[1].GetF64Value(); got != 7.3 {
		t.Errorf("value = %v", got)
	}
}

func TestGreptimeMirrorWriteError(t *testing.T) {
	g := &GreptimeMirror{client: &mockGreptimeClient{err: errors.New("unavailable")}, batchSize: 10, log: logging.Discard()}
	if _, err := g.Mirror(context.Background(), "DSX0201", sample()); err == nil {
		t.Errorf("expected write error")
	}
	if TableName("DSX0201") != "dsx0201_tlm" {
		t.Errorf("table name %q", TableName("DSX0201"))
	}
}
