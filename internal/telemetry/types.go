// Telemetry request, result and plot shapes shared across the fetch pipeline
package telemetry

import (
	"encoding/json"
	"strconv"
	"time"
)

// Reserved column names present in every warehouse telemetry table.
const (
	TimeField           = "OBCTimeUTC"
	CalibratedTimeField = "CalibratedOBCTimeUTC"
	StoredField         = "Stored"
)

// HeaderSourceID is the source id of the shared header table.
const HeaderSourceID = 0

// Source is one telemetry table and the fields requested from it.
type Source struct {
	ID     int      `json:"tlmId"`
	Fields []string `json:"tlmList"`
}

// DateSetting is the inclusive day window of a request.
type DateSetting struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// Request describes one plot action.
type Request struct {
	Project          string      `json:"pjName"`
	IsOrbit          bool        `json:"isOrbit"`
	IsStored         bool        `json:"isStored"`
	IsChosen         bool        `json:"isChosen"`
	Dates            DateSetting `json:"dateSetting"`
	TestCases        []string    `json:"testCase,omitempty"`
	Sources          []Source    `json:"tlm"`
	OrbitDatasetPath string      `json:"orbitDatasetPath,omitempty"`
	GroundTestPath   string      `json:"groundTestPath,omitempty"`
}

// Fields returns every requested field in source order.
func (r Request) Fields() []string {
	var out []string
	for _, s := range r.Sources {
		out = append(out, s.Fields...)
	}
	return out
}

// Columnar is a column-oriented warehouse result. Every column is aligned
// with Time by row index. Cells are float64, string or nil.
type Columnar struct {
	Time           []time.Time
	CalibratedTime []time.Time
	Order          []string
	Columns        map[string][]any
}

// Len returns the number of rows.
func (c *Columnar) Len() int { return len(c.Time) }

// Tlm is the payload of a Response.
type Tlm struct {
	Time   []time.Time      `json:"time"`
	Fields []string         `json:"fields"`
	Data   map[string][]any `json:"data"`
}

// Response is the envelope handed to the presentation layer.
type Response struct {
	Success       bool     `json:"success"`
	Tlm           Tlm      `json:"tlm"`
	ErrorMessages []string `json:"errorMessages"`
}

// EmptyTlm returns a payload with no rows.
func EmptyTlm() Tlm {
	return Tlm{Time: []time.Time{}, Fields: []string{}, Data: map[string][]any{}}
}

// Failure builds an unsuccessful response carrying msgs.
func Failure(msgs ...string) Response {
	return Response{Success: false, Tlm: EmptyTlm(), ErrorMessages: msgs}
}

// Value is a nullable numeric sample.
type Value struct {
	V     float64
	Valid bool
}

// Null is the absent sample.
var Null = Value{}

// Float wraps v as a present sample.
func Float(v float64) Value { return Value{V: v, Valid: true} }

// Truthy reports whether the sample is present and non-zero.
func (v Value) Truthy() bool { return v.Valid && v.V != 0 }

func (v Value) String() string {
	if !v.Valid {
		return "null"
	}
	return strconv.FormatFloat(v.V, 'g', -1, 64)
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.V)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = Null
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = Float(f)
	return nil
}

// Series is one plotted field.
type Series struct {
	ID string      `json:"tlmName"`
	X  []time.Time `json:"x"`
	Y  []Value     `json:"y"`
}

// PlotGroup is the set of series drawn on one chart.
type PlotGroup struct {
	PlotID int      `json:"plotId"`
	Series []Series `json:"tlm"`
}

// Selection names the fields a caller wants on one chart.
type Selection struct {
	PlotID  int      `json:"plotId"`
	Sources []Source `json:"tlm"`
}

// FieldNames returns the selection's fields in order.
func (s Selection) FieldNames() []string {
	var out []string
	for _, src := range s.Sources {
		out = append(out, src.Fields...)
	}
	return out
}
