package series

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"tlmscope/internal/telemetry"
)

// Operator is a threshold comparison.
type Operator string

const (
	OpEq Operator = "=="
	OpNe Operator = "!="
	OpGt Operator = ">"
	OpGe Operator = ">="
	OpLt Operator = "<"
	OpLe Operator = "<="
)

var operators = []Operator{OpEq, OpNe, OpGe, OpLe, OpGt, OpLt}

var (
	ErrOperatorMissing  = errors.New("Sign not selected")
	ErrOperatorUnknown  = errors.New("Sign not supported")
	ErrFieldMissing     = errors.New("TLM Name not selected")
	ErrFieldUnknown     = errors.New("TLM Name not correct")
	ErrThresholdMissing = errors.New("Threshold value not input")
	ErrFilterEmpty      = errors.New("Filter result: Empty")
)

// Predicate keeps rows where Field Operator Threshold holds. A NaN
// threshold counts as missing.
type Predicate struct {
	Field     string
	Operator  Operator
	Threshold float64
}

func (p Predicate) String() string {
	return fmt.Sprintf("%s %s %s", p.Field, p.Operator, strconv.FormatFloat(p.Threshold, 'g', -1, 64))
}

// ParsePredicate parses "FIELD OP VALUE", e.g. "BAT_V >= 7.2".
func ParsePredicate(s string) (Predicate, error) {
	s = strings.TrimSpace(s)
	for _, op := range operators {
		i := strings.Index(s, string(op))
		if i < 0 {
			continue
		}
		p := Predicate{Field: strings.TrimSpace(s[:i]), Operator: op, Threshold: math.NaN()}
		if rest := strings.TrimSpace(s[i+len(op):]); rest != "" {
			v, err := strconv.ParseFloat(rest, 64)
			if err != nil {
				return Predicate{}, fmt.Errorf("threshold %q: %w", rest, err)
			}
			p.Threshold = v
		}
		return p, nil
	}
	return Predicate{}, fmt.Errorf("%w in %q", ErrOperatorMissing, s)
}

// FilterOptions tunes row exclusion. By default a reference value that is
// null or zero excludes the row whatever the operator.
type FilterOptions struct {
	KeepZero bool
}

func (o FilterOptions) admits(v telemetry.Value) bool {
	if o.KeepZero {
		return v.Valid
	}
	return v.Truthy()
}

func (op Operator) compare(v, threshold float64) (bool, error) {
	switch op {
	case OpEq:
		return v == threshold, nil
	case OpNe:
		return v != threshold, nil
	case OpGt:
		return v > threshold, nil
	case OpGe:
		return v >= threshold, nil
	case OpLt:
		return v < threshold, nil
	case OpLe:
		return v <= threshold, nil
	case "":
		return false, ErrOperatorMissing
	default:
		return false, fmt.Errorf("%w: %q", ErrOperatorUnknown, string(op))
	}
}

func (p Predicate) validate(groups []telemetry.PlotGroup) error {
	if p.Operator == "" {
		return ErrOperatorMissing
	}
	if _, err := p.Operator.compare(0, 0); err != nil {
		return err
	}
	if p.Field == "" {
		return ErrFieldMissing
	}
	if _, ok := find(groups, p.Field); !ok {
		return ErrFieldUnknown
	}
	if math.IsNaN(p.Threshold) {
		return ErrThresholdMissing
	}
	return nil
}

func find(groups []telemetry.PlotGroup, id string) (telemetry.Series, bool) {
	for _, g := range groups {
		for _, s := range g.Series {
			if s.ID == id {
				return s, true
			}
		}
	}
	return telemetry.Series{}, false
}

// Filter keeps the time rows where the predicate holds on the reference
// series and rebuilds every series from those rows. All series share the
// x axis of the first series.
func Filter(groups []telemetry.PlotGroup, p Predicate, opts FilterOptions) ([]telemetry.PlotGroup, error) {
	if err := p.validate(groups); err != nil {
		return nil, err
	}
	var axis []time.Time
	for _, g := range groups {
		if len(g.Series) > 0 {
			axis = g.Series[0].X
			break
		}
	}
	ref, _ := find(groups, p.Field)

	var rows []int
	for i := range axis {
		if i >= len(ref.Y) {
			break
		}
		v := ref.Y[i]
		if !opts.admits(v) {
			continue
		}
		if ok, _ := p.Operator.compare(v.V, p.Threshold); ok {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return nil, ErrFilterEmpty
	}

	x := make([]time.Time, len(rows))
	for j, i := range rows {
		x[j] = axis[i]
	}
	out := make([]telemetry.PlotGroup, len(groups))
	for gi, g := range groups {
		out[gi] = telemetry.PlotGroup{PlotID: g.PlotID, Series: make([]telemetry.Series, len(g.Series))}
		for si, s := range g.Series {
			y := make([]telemetry.Value, len(rows))
			for j, i := range rows {
				if i < len(s.Y) {
					y[j] = s.Y[i]
				}
			}
			xs := make([]time.Time, len(x))
			copy(xs, x)
			out[gi].Series[si] = telemetry.Series{ID: s.ID, X: xs, Y: y}
		}
	}
	return out, nil
}

// Session keeps the reshaped series of one plot and the currently
// displayed, possibly filtered, view of them.
type Session struct {
	base    []telemetry.PlotGroup
	current []telemetry.PlotGroup
	active  *Predicate
	Options FilterOptions
}

// NewSession starts a session over freshly reshaped groups.
func NewSession(groups []telemetry.PlotGroup) *Session {
	return &Session{base: Clone(groups), current: Clone(groups)}
}

// Current returns a copy of the displayed groups.
func (s *Session) Current() []telemetry.PlotGroup { return Clone(s.current) }

// Base returns a copy of the unfiltered groups.
func (s *Session) Base() []telemetry.PlotGroup { return Clone(s.base) }

// Active returns the applied predicate, if any.
func (s *Session) Active() (Predicate, bool) {
	if s.active == nil {
		return Predicate{}, false
	}
	return *s.active, true
}

// Apply filters the unfiltered groups with p. On error the displayed
// groups are left as they were.
func (s *Session) Apply(p Predicate) error {
	out, err := Filter(s.base, p, s.Options)
	if err != nil {
		return err
	}
	s.current = out
	s.active = &p
	return nil
}

// Deactivate restores the unfiltered groups.
func (s *Session) Deactivate() {
	s.current = Clone(s.base)
	s.active = nil
}
