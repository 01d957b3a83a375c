// Package query assembles the common-table-expression query that joins
// several telemetry tables on raw onboard time.
package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tlmscope/internal/telemetry"
)

// TimeLayout is the literal layout used for window bounds.
const TimeLayout = "2006-01-02 15:04:05"

// DefaultEpoch is the calibration validity floor.
var DefaultEpoch = time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)

// DefaultMaxDays bounds the request window when no limit is configured.
const DefaultMaxDays = 31

var (
	ErrNoSources       = errors.New("no telemetry sources requested")
	ErrEmptyFields     = errors.New("telemetry source has no fields")
	ErrDuplicateSource = errors.New("duplicate telemetry source")
	ErrInvalidWindow   = errors.New("start date is after end date")
	ErrSpanTooLarge    = errors.New("Data too big")
	ErrNoDataset       = errors.New("orbit dataset path not set")
)

// Builder turns a request into a warehouse query. Every dependency is
// passed in explicitly.
type Builder struct {
	Dialect Dialect
	Epoch   time.Time
	MaxDays int
}

// NewBuilder returns a Builder with the default epoch and span limit.
func NewBuilder(d Dialect) *Builder {
	return &Builder{Dialect: d, Epoch: DefaultEpoch, MaxDays: DefaultMaxDays}
}

// Window expands a day window to its first and last second.
func Window(d telemetry.DateSetting) (time.Time, time.Time) {
	s, e := d.StartDate.UTC(), d.EndDate.UTC()
	start := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(e.Year(), e.Month(), e.Day(), 23, 59, 59, 0, time.UTC)
	return start, end
}

// CheckWindow rejects reversed windows and windows longer than maxDays
// calendar days.
func CheckWindow(d telemetry.DateSetting, maxDays int) error {
	start, end := Window(d)
	if start.After(end) {
		return ErrInvalidWindow
	}
	if maxDays <= 0 {
		return nil
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if days > maxDays {
		return fmt.Errorf("%w (more than %d days)", ErrSpanTooLarge, maxDays)
	}
	return nil
}

func validateSources(sources []telemetry.Source) error {
	if len(sources) == 0 {
		return ErrNoSources
	}
	seen := make(map[int]struct{}, len(sources))
	for _, s := range sources {
		if len(s.Fields) == 0 {
			return fmt.Errorf("%w: source %d", ErrEmptyFields, s.ID)
		}
		if _, ok := seen[s.ID]; ok {
			return fmt.Errorf("%w: %d", ErrDuplicateSource, s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

// TableName maps a source id to its table. Source 0 is the header table.
func TableName(sourceID int) string {
	if sourceID == telemetry.HeaderSourceID {
		return "tlm_header"
	}
	return "tlm_id_" + strconv.Itoa(sourceID)
}

func alias(sourceID int) string { return "id" + strconv.Itoa(sourceID) }

// Build returns the query for req against dataset. The same request always
// yields the same text.
func (b *Builder) Build(dataset string, req telemetry.Request) (string, error) {
	if err := CheckWindow(req.Dates, b.MaxDays); err != nil {
		return "", err
	}
	if err := validateSources(req.Sources); err != nil {
		return "", err
	}
	if dataset == "" {
		return "", ErrNoDataset
	}

	d := b.Dialect
	if d == nil {
		d = BigQuery{}
	}
	start, end := Window(req.Dates)
	rawTime := d.Ident(telemetry.TimeField)
	calTime := d.Ident(telemetry.CalibratedTimeField)

	var q strings.Builder
	q.WriteString("WITH\n")
	for i, src := range req.Sources {
		q.WriteString("\t" + d.Ident(alias(src.ID)) + " AS (\n")
		q.WriteString("\t\tSELECT DISTINCT\n")
		cols := append([]string{rawTime, calTime}, identList(d, src.Fields)...)
		q.WriteString("\t\t\t" + strings.Join(cols, ",\n\t\t\t") + "\n")
		q.WriteString("\t\tFROM " + d.Table(dataset, TableName(src.ID)) + "\n")
		q.WriteString("\t\tWHERE\n")
		q.WriteString("\t\t\t" + calTime + " > " + d.String(b.Epoch.UTC().Format(TimeLayout)+" UTC") + "\n")
		q.WriteString("\t\t\tAND " + rawTime + " BETWEEN " + d.String(start.Format(TimeLayout)) + " AND " + d.String(end.Format(TimeLayout)) + "\n")
		q.WriteString("\t\t\tAND " + d.Ident(telemetry.StoredField) + " = " + d.Bool(req.IsStored) + "\n")
		q.WriteString("\t\tORDER BY " + rawTime + "\n")
		if i == len(req.Sources)-1 {
			q.WriteString("\t)\n")
		} else {
			q.WriteString("\t),\n")
		}
	}

	q.WriteString("SELECT\n")
	q.WriteString("\t" + coalesce(d, req.Sources, rawTime) + " AS " + rawTime + ",\n")
	q.WriteString("\t" + coalesce(d, req.Sources, calTime) + " AS " + calTime)
	for _, f := range req.Fields() {
		q.WriteString(",\n\t" + d.Ident(f))
	}
	q.WriteString("\n")

	base := d.Ident(alias(req.Sources[0].ID))
	q.WriteString("FROM " + base + "\n")
	for _, src := range req.Sources[1:] {
		other := d.Ident(alias(src.ID))
		q.WriteString("FULL OUTER JOIN " + other + "\n")
		q.WriteString("\tON " + base + "." + rawTime + " = " + other + "." + rawTime + "\n")
	}
	q.WriteString("ORDER BY " + rawTime)
	return q.String(), nil
}

func identList(d Dialect, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = d.Ident(n)
	}
	return out
}

func coalesce(d Dialect, sources []telemetry.Source, column string) string {
	parts := make([]string, len(sources))
	for i, src := range sources {
		parts[i] = d.Ident(alias(src.ID)) + "." + column
	}
	return "COALESCE(" + strings.Join(parts, ", ") + ")"
}
