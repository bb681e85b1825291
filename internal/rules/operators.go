// internal/rules/operators.go
package rules

import (
	"time"

	"github.com/shopspring/decimal"
)

/*
 * Comparison of parsed values.
 *
 * Values reaching these functions come out of Parse (or normalizeBound), so
 * each side is one of int64, float64, decimal.Decimal, time.Time or string.
 * Both sides of a comparison are always produced for the same ValueType, so
 * mixing only happens between int64 and float64 when a numeric literal was
 * normalized for a float column.
 *
 * compareValues returns ok=false for incomparable pairs. Callers treat that
 * as "precondition not met", never as a violation.
 *
 * Why function-based: the set of representations is closed, a type switch is
 * shorter than an interface per representation.
 */

// compareValues performs a three-way comparison (-1/0/1) of a against b.
func compareValues(a, b any) (int, bool) {
	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return cmpOrdered(x, y), true
		case float64:
			return cmpOrdered(float64(x), y), true
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return cmpOrdered(x, y), true
		case int64:
			return cmpOrdered(x, float64(y)), true
		}
	case decimal.Decimal:
		if y, ok := b.(decimal.Decimal); ok {
			return x.Cmp(y), true
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), true
		}
	case string:
		if y, ok := b.(string); ok {
			return cmpOrdered(x, y), true
		}
	}
	return 0, false
}

func cmpOrdered[T int64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// equalValues reports value equality. decimal.Decimal compares numerically
// ("1.0" equals "1") and time.Time compares instants.
func equalValues(a, b any) bool {
	c, ok := compareValues(a, b)
	return ok && c == 0
}

// inDomain checks membership using equalValues.
func inDomain(v any, set []any) bool {
	for _, elem := range set {
		if equalValues(v, elem) {
			return true
		}
	}
	return false
}
