// internal/rules/parse_test.go
package rules

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/solatis/linewarden/internal/types"
)

func TestParse_Numbers(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		vtype ValueType
		want  any
		ok    bool
	}{
		{"int", "42", TypeInt, int64(42), true},
		{"int trimmed", "  42 ", TypeInt, int64(42), true},
		{"int negative", "-7", TypeInt, int64(-7), true},
		{"int overflow", "2147483648", TypeInt, nil, false},
		{"long accepts int overflow", "2147483648", TypeLong, int64(2147483648), true},
		{"int rejects fraction", "1.5", TypeInt, nil, false},
		{"int rejects text", "a", TypeInt, nil, false},
		{"empty never parses", "", TypeInt, nil, false},
		{"blank never parses", "   ", TypeLong, nil, false},
		{"double", "1.25", TypeDouble, 1.25, true},
		{"float", "0.5", TypeFloat, 0.5, true},
		{"double rejects text", "x1", TypeDouble, nil, false},
		{"double rejects NaN", "NaN", TypeDouble, nil, false},
		{"float rejects nan", " nan ", TypeFloat, nil, false},
		{"double accepts infinity", "-Inf", TypeDouble, math.Inf(-1), true},
		{"text", " abc ", TypeText, "abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.raw, tt.vtype, "", DefaultFormats())
			if ok != tt.ok {
				t.Fatalf("Parse(%q, %s) ok = %v, want %v", tt.raw, tt.vtype, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("Parse(%q, %s) = %v (%T), want %v (%T)", tt.raw, tt.vtype, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestParse_Decimal(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		formats Formats
		want    string
		ok      bool
	}{
		{"plain", "1234.50", DefaultFormats(), "1234.5", true},
		{"comma rejected by default", "1,5", DefaultFormats(), "", false},
		{"comma separator", "1234,50", Formats{DecimalSeparator: ","}, "1234.5", true},
		{"grouping stripped", "1.234,50", Formats{DecimalSeparator: ",", GroupingSeparator: "."}, "1234.5", true},
		{"dot in comma format", "1234.50", Formats{DecimalSeparator: ","}, "", false},
		{"garbage", "12a", DefaultFormats(), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.raw, TypeDecimal, "", tt.formats)
			if ok != tt.ok {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			}
			if !ok {
				return
			}
			want := decimal.RequireFromString(tt.want)
			if !got.(decimal.Decimal).Equal(want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.raw, got, want)
			}
		})
	}
}

func TestParse_Temporal(t *testing.T) {
	f := DefaultFormats()
	f.Location = time.UTC

	got, ok := Parse("02/01/2020", TypeDate, "02/01/2006", f)
	if !ok {
		t.Fatal("Parse(date) ok = false, want true")
	}
	if want := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC); !got.(time.Time).Equal(want) {
		t.Errorf("Parse(date) = %v, want %v", got, want)
	}

	got, ok = Parse("2020-01-02", TypeLocalDate, "", f)
	if !ok {
		t.Fatal("Parse(local_date) ok = false, want true")
	}
	if want := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC); !got.(time.Time).Equal(want) {
		t.Errorf("Parse(local_date) = %v, want %v", got, want)
	}

	got, ok = Parse("2020-01-02T10:30:00", TypeLocalDateTime, "", f)
	if !ok {
		t.Fatal("Parse(local_date_time) ok = false, want true")
	}
	if want := time.Date(2020, 1, 2, 10, 30, 0, 0, time.UTC); !got.(time.Time).Equal(want) {
		t.Errorf("Parse(local_date_time) = %v, want %v", got, want)
	}

	if _, ok := Parse("2020-13-01", TypeLocalDate, "", f); ok {
		t.Error("Parse(month 13) ok = true, want false")
	}
	if _, ok := Parse("02/01/2020", TypeLocalDate, "", f); ok {
		t.Error("Parse(wrong layout) ok = true, want false")
	}
}

func TestParse_DateUsesLocation(t *testing.T) {
	loc := time.FixedZone("plus2", 2*60*60)
	f := DefaultFormats()
	f.Location = loc

	got, ok := Parse("2020-01-02 00:00", TypeDate, "2006-01-02 15:04", f)
	if !ok {
		t.Fatal("Parse ok = false, want true")
	}
	want := time.Date(2020, 1, 1, 22, 0, 0, 0, time.UTC)
	if !got.(time.Time).Equal(want) {
		t.Errorf("Parse = %v, want instant %v", got, want)
	}
}

func TestParseValueType(t *testing.T) {
	for name, want := range map[string]ValueType{
		"":                TypeText,
		"text":            TypeText,
		"int":             TypeInt,
		"decimal":         TypeDecimal,
		"local_date_time": TypeLocalDateTime,
	} {
		got, err := ParseValueType(name)
		if err != nil {
			t.Fatalf("ParseValueType(%q) error = %v", name, err)
		}
		if got != want {
			t.Errorf("ParseValueType(%q) = %v, want %v", name, got, want)
		}
	}

	if _, err := ParseValueType("timestamp"); !errors.Is(err, types.ErrUnsupportedType) {
		t.Errorf("ParseValueType(timestamp) error = %v, want ErrUnsupportedType", err)
	}
}

func TestNormalizeBound(t *testing.T) {
	if _, err := normalizeBound(TypeInt, int64(1)<<40); !errors.Is(err, types.ErrInvalidBound) {
		t.Errorf("int overflow error = %v, want ErrInvalidBound", err)
	}
	if _, err := normalizeBound(TypeInt, "1"); !errors.Is(err, types.ErrInvalidBound) {
		t.Errorf("string for int error = %v, want ErrInvalidBound", err)
	}
	if _, err := normalizeBound(TypeDouble, math.NaN()); !errors.Is(err, types.ErrInvalidBound) {
		t.Errorf("NaN double bound error = %v, want ErrInvalidBound", err)
	}
	if _, err := normalizeBound(TypeDecimal, math.Inf(1)); !errors.Is(err, types.ErrInvalidBound) {
		t.Errorf("+Inf decimal bound error = %v, want ErrInvalidBound", err)
	}
	if v, err := normalizeBound(TypeDouble, 3); err != nil || v != 3.0 {
		t.Errorf("normalizeBound(double, 3) = %v, %v, want 3.0, nil", v, err)
	}
	in := time.Date(2020, 1, 2, 15, 4, 5, 0, time.UTC)
	v, err := normalizeBound(TypeLocalDate, in)
	if err != nil {
		t.Fatalf("normalizeBound(local_date) error = %v", err)
	}
	if want := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC); !v.(time.Time).Equal(want) {
		t.Errorf("normalizeBound(local_date) = %v, want %v", v, want)
	}
}

func TestParse_PropertyNeverPanics(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	allTypes := []ValueType{TypeText, TypeInt, TypeLong, TypeFloat, TypeDouble, TypeDecimal, TypeDate, TypeLocalDate, TypeLocalDateTime}

	properties.Property("parse returns a signal, never panics, and is idempotent", prop.ForAll(
		func(raw string, idx int) bool {
			vt := allTypes[idx]
			a, okA := Parse(raw, vt, "", DefaultFormats())
			b, okB := Parse(raw, vt, "", DefaultFormats())
			if okA != okB {
				return false
			}
			if !okA {
				return a == nil && b == nil
			}
			return formatValue(a, "") == formatValue(b, "")
		},
		gen.AnyString(),
		gen.IntRange(0, len(allTypes)-1),
	))

	properties.TestingRun(t)
}
