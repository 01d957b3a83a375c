package warehouse

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"tlmscope/internal/telemetry"
)

type fakeWarehouse struct {
	rows    []Row
	err     error
	queries []string
}

func (f *fakeWarehouse) Query(ctx context.Context, q string) ([]Row, error) {
	f.queries = append(f.queries, q)
	return f.rows, f.err
}

func (f *fakeWarehouse) Close() error { return nil }

var t0 = time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)

func TestFetchPivotsRows(t *testing.T) {
	wh := &fakeWarehouse{rows: []Row{
		{telemetry.TimeField: t0, telemetry.CalibratedTimeField: t0, "BAT_V": 7.2, "MODE": int64(3)},
		{telemetry.TimeField: t0.Add(time.Second), telemetry.CalibratedTimeField: t0.Add(time.Second), "BAT_V": nil},
		{telemetry.TimeField: "2023-05-01 12:00:02", telemetry.CalibratedTimeField: "2023-05-01T12:00:02Z", "TEMP": "n/a"},
	}}

	got, err := Fetch(context.Background(), wh, "SELECT 1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(wh.queries) != 1 || wh.queries[0] != "SELECT 1" {
		t.Fatalf("queries = %v", wh.queries)
	}
	if got.Len() != 3 {
		t.Fatalf("rows = %d, want 3", got.Len())
	}
	if !got.Time[2].Equal(t0.Add(2 * time.Second)) {
		t.Errorf("string time parsed as %v", got.Time[2])
	}
	for name, col := range got.Columns {
		if len(col) != 3 {
			t.Errorf("column %s length = %d, want 3", name, len(col))
		}
	}
	if v := got.Columns["BAT_V"]; v[0] != 7.2 || v[1] != nil || v[2] != nil {
		t.Errorf("BAT_V = %v", v)
	}
	if v := got.Columns["MODE"]; v[0] != 3.0 || v[1] != nil {
		t.Errorf("MODE = %v", v)
	}
	if v := got.Columns["TEMP"]; v[0] != nil || v[2] != "n/a" {
		t.Errorf("TEMP = %v", v)
	}
	want := []string{"BAT_V", "MODE", "TEMP"}
	for i, name := range want {
		if got.Order[i] != name {
			t.Fatalf("order = %v, want %v", got.Order, want)
		}
	}
}

func TestFetchTransportError(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	_, err := Fetch(context.Background(), &fakeWarehouse{err: cause}, "q")
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindTransport {
		t.Fatalf("err = %v, want transport FetchError", err)
	}
	if !errors.Is(err, cause) || fe.Msg != cause.Error() {
		t.Fatalf("fetch error lost cause: %v", err)
	}
}

func TestFetchShapeErrorNamesFirstIssue(t *testing.T) {
	wh := &fakeWarehouse{rows: []Row{
		{telemetry.TimeField: t0, telemetry.CalibratedTimeField: t0},
		{telemetry.CalibratedTimeField: t0},
		{telemetry.TimeField: "garbage", telemetry.CalibratedTimeField: t0},
	}}
	got, err := Fetch(context.Background(), wh, "q")
	if got != nil {
		t.Fatalf("partial result returned: %+v", got)
	}
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindShape {
		t.Fatalf("err = %v, want shape FetchError", err)
	}
	if !errors.Is(err, ErrMissingTime) {
		t.Fatalf("first issue should be the missing time on row 1, got %v", err)
	}
	if fe.Msg != "row 1: missing time field OBCTimeUTC" {
		t.Fatalf("msg = %q", fe.Msg)
	}
}

func TestFetchEmpty(t *testing.T) {
	got, err := Fetch(context.Background(), &fakeWarehouse{}, "q")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.Len() != 0 || len(got.Columns) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestNormalizeCell(t *testing.T) {
	cases := []struct {
		in   any
		want any
	}{
		{nil, nil},
		{int32(4), 4.0},
		{true, 1.0},
		{false, 0.0},
		{[]byte("2.5"), 2.5},
		{[]byte("ok"), "ok"},
		{float32(0.5), 0.5},
		{math.NaN(), nil},
		{math.Inf(1), nil},
		{float32(math.Inf(-1)), nil},
		{[]byte("NaN"), nil},
	}
	for _, tc := range cases {
		if got := normalizeCell(tc.in); got != tc.want {
			t.Errorf("normalizeCell(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
