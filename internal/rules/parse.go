// internal/rules/parse.go
package rules

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/solatis/linewarden/internal/types"
)

/*
 * Typed parsing of raw field text.
 *
 * Implements the 9-type system (text, int, long, float, double, decimal,
 * date, local_date, local_date_time). Every parse returns (value, ok) and
 * never panics: a failed parse is a signal, not an error. Rule gates rely on
 * this to resolve "does not parse" into "precondition not met".
 *
 * Parsed representations:
 *   - int, long: int64 (int is range checked to 32 bits)
 *   - float, double: float64 (float is parsed with 32-bit precision)
 *   - decimal: decimal.Decimal
 *   - date: time.Time instant in the configured location
 *   - local_date: time.Time at UTC midnight of the calendar date
 *   - local_date_time: time.Time whose UTC fields are the wall clock
 *   - text: the trimmed string
 *
 * Local types are normalized to a UTC face so that comparisons between two
 * local values, or a local value and "now", compare wall clocks and never
 * instants.
 *
 * Whitespace around the raw value is trimmed before parsing. An empty value
 * never parses; emptiness is the presence rule's concern.
 */

// ValueType is the declared type of a column.
type ValueType int

const (
	TypeText ValueType = iota
	TypeInt
	TypeLong
	TypeFloat
	TypeDouble
	TypeDecimal
	TypeDate
	TypeLocalDate
	TypeLocalDateTime
)

var valueTypeNames = map[ValueType]string{
	TypeText:          types.TypeText,
	TypeInt:           types.TypeInt,
	TypeLong:          types.TypeLong,
	TypeFloat:         types.TypeFloat,
	TypeDouble:        types.TypeDouble,
	TypeDecimal:       types.TypeDecimal,
	TypeDate:          types.TypeDate,
	TypeLocalDate:     types.TypeLocalDate,
	TypeLocalDateTime: types.TypeLocalDateTime,
}

func (t ValueType) String() string {
	if name, ok := valueTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// ParseValueType maps a declared type name to a ValueType. Empty means text.
func ParseValueType(name string) (ValueType, error) {
	if name == "" {
		return TypeText, nil
	}
	for t, n := range valueTypeNames {
		if n == name {
			return t, nil
		}
	}
	return TypeText, fmt.Errorf("%w: %q", types.ErrUnsupportedType, name)
}

// Temporal reports whether values of t are time.Time.
func (t ValueType) Temporal() bool {
	return t == TypeDate || t == TypeLocalDate || t == TypeLocalDateTime
}

// Numeric reports whether values of t are numbers (including decimal).
func (t ValueType) Numeric() bool {
	switch t {
	case TypeInt, TypeLong, TypeFloat, TypeDouble, TypeDecimal:
		return true
	default:
		return false
	}
}

// Ordered reports whether values of t support min/max/after/before.
func (t ValueType) Ordered() bool {
	return t.Numeric() || t.Temporal()
}

// Formats holds the parse services shared by a rule set.
type Formats struct {
	Date              string
	LocalDate         string
	LocalDateTime     string
	Location          *time.Location
	DecimalSeparator  string
	GroupingSeparator string
}

// DefaultFormats returns ISO layouts in the local time zone.
func DefaultFormats() Formats {
	return Formats{
		Date:             time.RFC3339,
		LocalDate:        "2006-01-02",
		LocalDateTime:    "2006-01-02T15:04:05",
		Location:         time.Local,
		DecimalSeparator: ".",
	}
}

// Layout returns the default layout for a temporal type, "" otherwise.
func (f Formats) Layout(t ValueType) string {
	switch t {
	case TypeDate:
		return f.Date
	case TypeLocalDate:
		return f.LocalDate
	case TypeLocalDateTime:
		return f.LocalDateTime
	default:
		return ""
	}
}

func (f Formats) location() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}

// Parse converts raw field text into the representation of t.
// layout overrides the Formats default for temporal types.
func Parse(raw string, t ValueType, layout string, f Formats) (any, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, false
	}
	if layout == "" {
		layout = f.Layout(t)
	}

	switch t {
	case TypeText:
		return s, true
	case TypeInt:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, false
		}
		return n, true
	case TypeLong:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, false
		}
		return n, true
	case TypeFloat:
		n, err := strconv.ParseFloat(s, 32)
		if err != nil || math.IsNaN(n) {
			return nil, false
		}
		return n, true
	case TypeDouble:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(n) {
			return nil, false
		}
		return n, true
	case TypeDecimal:
		return parseDecimal(s, f)
	case TypeDate:
		d, err := time.ParseInLocation(layout, s, f.location())
		if err != nil {
			return nil, false
		}
		return d, true
	case TypeLocalDate:
		d, err := time.Parse(layout, s)
		if err != nil {
			return nil, false
		}
		return localDate(d), true
	case TypeLocalDateTime:
		d, err := time.Parse(layout, s)
		if err != nil {
			return nil, false
		}
		return wallClock(d), true
	default:
		return nil, false
	}
}

// parseDecimal strips grouping separators and normalizes the decimal separator.
func parseDecimal(s string, f Formats) (any, bool) {
	if f.GroupingSeparator != "" {
		s = strings.ReplaceAll(s, f.GroupingSeparator, "")
	}
	if f.DecimalSeparator != "" && f.DecimalSeparator != "." {
		// A literal '.' in a comma-decimal format is malformed input, not a separator.
		if strings.Contains(s, ".") {
			return nil, false
		}
		s = strings.ReplaceAll(s, f.DecimalSeparator, ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, false
	}
	return d, true
}

// localDate drops the clock and zone, keeping the calendar date as a UTC midnight.
func localDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// wallClock keeps the wall clock fields of t on a UTC face.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// nowFor converts the run's clock snapshot to the representation of t.
func nowFor(t ValueType, now time.Time, f Formats) time.Time {
	switch t {
	case TypeLocalDate:
		return localDate(now.In(f.location()))
	case TypeLocalDateTime:
		return wallClock(now.In(f.location()))
	default:
		return now
	}
}

// normalizeBound converts a Go value supplied to the builder into the
// representation Parse produces for t, so literal bounds and parsed field
// values compare without further conversion.
func normalizeBound(t ValueType, v any) (any, error) {
	switch t {
	case TypeText:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case TypeInt, TypeLong:
		var n int64
		switch x := v.(type) {
		case int:
			n = int64(x)
		case int32:
			n = int64(x)
		case int64:
			n = x
		default:
			return nil, fmt.Errorf("%w: %v (%T) is not an integer", types.ErrInvalidBound, v, v)
		}
		if t == TypeInt && (n < -1<<31 || n > 1<<31-1) {
			return nil, fmt.Errorf("%w: %d overflows int", types.ErrInvalidBound, n)
		}
		return n, nil
	case TypeFloat, TypeDouble:
		switch x := v.(type) {
		case float32:
			if math.IsNaN(float64(x)) {
				return nil, fmt.Errorf("%w: NaN is not comparable", types.ErrInvalidBound)
			}
			return float64(x), nil
		case float64:
			if math.IsNaN(x) {
				return nil, fmt.Errorf("%w: NaN is not comparable", types.ErrInvalidBound)
			}
			return x, nil
		case int:
			return float64(x), nil
		case int64:
			return float64(x), nil
		}
	case TypeDecimal:
		switch x := v.(type) {
		case decimal.Decimal:
			return x, nil
		case int:
			return decimal.NewFromInt(int64(x)), nil
		case int64:
			return decimal.NewFromInt(x), nil
		case float64:
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, fmt.Errorf("%w: %v is not a decimal", types.ErrInvalidBound, x)
			}
			return decimal.NewFromFloat(x), nil
		case string:
			d, err := decimal.NewFromString(x)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not a decimal", types.ErrInvalidBound, x)
			}
			return d, nil
		}
	case TypeDate:
		if d, ok := v.(time.Time); ok {
			return d, nil
		}
	case TypeLocalDate:
		if d, ok := v.(time.Time); ok {
			return localDate(d), nil
		}
	case TypeLocalDateTime:
		if d, ok := v.(time.Time); ok {
			return wallClock(d), nil
		}
	}
	return nil, fmt.Errorf("%w: %v (%T) is not a %s", types.ErrInvalidBound, v, v, t)
}

// formatValue renders a parsed value or bound for violation messages.
func formatValue(v any, layout string) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case decimal.Decimal:
		return x.String()
	case time.Time:
		if layout == "" {
			layout = time.RFC3339
		}
		return x.Format(layout)
	default:
		return fmt.Sprintf("%v", x)
	}
}
