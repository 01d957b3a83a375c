package warehouse

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"
)

var (
	ErrMissingTime = errors.New("missing time field")
	ErrBadTime     = errors.New("unparseable time field")
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// ParseTime accepts the timestamp encodings produced by the supported
// warehouses and ground files.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTime, s)
}

func rowTime(row Row, field string) (time.Time, error) {
	v, ok := row[field]
	if !ok || v == nil {
		return time.Time{}, fmt.Errorf("%w %s", ErrMissingTime, field)
	}
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return ParseTime(t)
	case []byte:
		return ParseTime(string(t))
	default:
		return time.Time{}, fmt.Errorf("%w %s: %T", ErrBadTime, field, v)
	}
}

// normalizeCell reduces driver values to float64, string or nil. NaN and
// infinities are not plottable and become nil.
func normalizeCell(v any) any {
	c := cellValue(v)
	if f, ok := c.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil
	}
	return c
}

func cellValue(v any) any {
	switch c := v.(type) {
	case nil:
		return nil
	case float64:
		return c
	case float32:
		return float64(c)
	case int:
		return float64(c)
	case int8:
		return float64(c)
	case int16:
		return float64(c)
	case int32:
		return float64(c)
	case int64:
		return float64(c)
	case uint8:
		return float64(c)
	case uint16:
		return float64(c)
	case uint32:
		return float64(c)
	case uint64:
		return float64(c)
	case bool:
		if c {
			return 1.0
		}
		return 0.0
	case *big.Rat:
		f, _ := c.Float64()
		return f
	case []byte:
		if f, err := strconv.ParseFloat(string(c), 64); err == nil {
			return f
		}
		return string(c)
	case string:
		return c
	case time.Time:
		return c.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(c)
	}
}
