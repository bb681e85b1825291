// internal/rules/value.go
package rules

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

/*
 * Line and column addressing.
 *
 * LineContext owns the fields of one physical line. ColumnValue is a view of
 * one field: a pointer to its line plus a 1-based index. The line owns the
 * field slice; a ColumnValue only knows how to ask its line for a sibling,
 * which is how cross-column references resolve.
 *
 * Column indexes are 1-based. Indexes outside 1..Len() resolve to
 * (ColumnValue{}, false) so a rule referencing a column that is missing on a
 * short line degrades to "precondition not met" instead of panicking.
 *
 * Both types are immutable after construction and are discarded once the
 * line's rules have run.
 */

// LineContext holds the split fields of one line.
type LineContext struct {
	number int
	text   string
	fields []string
}

// NewLineContext builds the context for line number (1-based) with its split fields.
func NewLineContext(number int, text string, fields []string) *LineContext {
	return &LineContext{number: number, text: text, fields: fields}
}

// Number returns the 1-based line number.
func (l *LineContext) Number() int { return l.number }

// Text returns the line as read, without the line terminator.
func (l *LineContext) Text() string { return l.text }

// Len returns the number of fields on this line.
func (l *LineContext) Len() int { return len(l.fields) }

// Column returns the field at 1-based index i.
func (l *LineContext) Column(i int) (ColumnValue, bool) {
	if l == nil || i < 1 || i > len(l.fields) {
		return ColumnValue{}, false
	}
	return ColumnValue{line: l, index: i}, true
}

// ColumnValue is a typed accessor over one field of one line.
type ColumnValue struct {
	line  *LineContext
	index int
}

// Index returns the 1-based column index, 0 for the zero value.
func (c ColumnValue) Index() int { return c.index }

// Raw returns the field text exactly as split from the line.
func (c ColumnValue) Raw() string {
	if c.line == nil {
		return ""
	}
	return c.line.fields[c.index-1]
}

// IsEmpty reports whether the field is empty or whitespace only.
func (c ColumnValue) IsEmpty() bool {
	return strings.TrimSpace(c.Raw()) == ""
}

// Line returns the owning line's number.
func (c ColumnValue) Line() int {
	if c.line == nil {
		return 0
	}
	return c.line.number
}

// Sibling returns another column of the same line.
func (c ColumnValue) Sibling(i int) (ColumnValue, bool) {
	return c.line.Column(i)
}

// Parse parses the field as t. See Parse for the representations.
func (c ColumnValue) Parse(t ValueType, layout string, f Formats) (any, bool) {
	if c.line == nil {
		return nil, false
	}
	return Parse(c.Raw(), t, layout, f)
}

// Int parses the field as a 32-bit integer.
func (c ColumnValue) Int() (int32, bool) {
	v, ok := c.Parse(TypeInt, "", Formats{})
	if !ok {
		return 0, false
	}
	return int32(v.(int64)), true
}

// Long parses the field as a 64-bit integer.
func (c ColumnValue) Long() (int64, bool) {
	v, ok := c.Parse(TypeLong, "", Formats{})
	if !ok {
		return 0, false
	}
	return v.(int64), true
}

// Float parses the field as a 32-bit float.
func (c ColumnValue) Float() (float32, bool) {
	v, ok := c.Parse(TypeFloat, "", Formats{})
	if !ok {
		return 0, false
	}
	return float32(v.(float64)), true
}

// Double parses the field as a 64-bit float.
func (c ColumnValue) Double() (float64, bool) {
	v, ok := c.Parse(TypeDouble, "", Formats{})
	if !ok {
		return 0, false
	}
	return v.(float64), true
}

// Decimal parses the field as an arbitrary precision decimal.
func (c ColumnValue) Decimal(f Formats) (decimal.Decimal, bool) {
	v, ok := c.Parse(TypeDecimal, "", f)
	if !ok {
		return decimal.Decimal{}, false
	}
	return v.(decimal.Decimal), true
}

// Date parses the field as an instant in loc (nil means time.Local).
// An empty layout uses the DefaultFormats layout.
func (c ColumnValue) Date(layout string, loc *time.Location) (time.Time, bool) {
	f := DefaultFormats()
	f.Location = loc
	v, ok := c.Parse(TypeDate, layout, f)
	if !ok {
		return time.Time{}, false
	}
	return v.(time.Time), true
}

// LocalDate parses the field as a calendar date. An empty layout uses the
// DefaultFormats layout.
func (c ColumnValue) LocalDate(layout string) (time.Time, bool) {
	v, ok := c.Parse(TypeLocalDate, layout, DefaultFormats())
	if !ok {
		return time.Time{}, false
	}
	return v.(time.Time), true
}

// LocalDateTime parses the field as a wall-clock date time. An empty layout
// uses the DefaultFormats layout.
func (c ColumnValue) LocalDateTime(layout string) (time.Time, bool) {
	v, ok := c.Parse(TypeLocalDateTime, layout, DefaultFormats())
	if !ok {
		return time.Time{}, false
	}
	return v.(time.Time), true
}
