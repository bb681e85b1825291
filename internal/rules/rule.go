// internal/rules/rule.go
package rules

import (
	"fmt"
	"regexp"
)

/*
 * Rule model.
 *
 * A Rule is a closed tagged variant: Op selects the predicate, the remaining
 * fields carry the payload that Op needs. There is one evaluation contract for
 * every kind (see evaluate.go), so adding a kind means adding an Op constant,
 * its name, its family and its two cases in canValidate/isValid.
 *
 * Payload by family:
 *   - Type, Presence: none
 *   - Range (min, max): bound
 *   - Domain: values
 *   - TemporalRelative (past, future, *_or_present): none, compares to now
 *   - TemporalCompare (after, before): bound XOR ref
 *   - Length (min_length, max_length): limit
 *   - Pattern: pattern
 *   - Structure (line/file counts): limit
 *
 * Rules are values. They are built by Builder, frozen inside a Tree and read
 * concurrently by any number of scans. Nothing in a Rule is mutated after
 * Build returns.
 */

// Scope is the level a rule applies to.
type Scope int

const (
	ScopeFile Scope = iota
	ScopeLine
	ScopeColumn
)

func (s Scope) String() string {
	switch s {
	case ScopeFile:
		return "file"
	case ScopeLine:
		return "line"
	case ScopeColumn:
		return "column"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// Family groups rule kinds that share a gate and payload shape.
type Family int

const (
	FamilyType Family = iota
	FamilyPresence
	FamilyRange
	FamilyDomain
	FamilyTemporalRelative
	FamilyTemporalCompare
	FamilyLength
	FamilyPattern
	FamilyStructure
)

// Op identifies a rule kind.
type Op int

const (
	OpUnspecified Op = iota
	OpType
	OpNotNull
	OpMin
	OpMax
	OpDomain
	OpPast
	OpPastOrPresent
	OpFuture
	OpFutureOrPresent
	OpAfter
	OpBefore
	OpMinLength
	OpMaxLength
	OpPattern
	OpColumnCount
	OpMinColumns
	OpNotEmpty
	OpMinLines
	OpMaxLines
)

var opNames = map[Op]string{
	OpType:            "type",
	OpNotNull:         "not_null",
	OpMin:             "min",
	OpMax:             "max",
	OpDomain:          "domain",
	OpPast:            "past",
	OpPastOrPresent:   "past_or_present",
	OpFuture:          "future",
	OpFutureOrPresent: "future_or_present",
	OpAfter:           "after",
	OpBefore:          "before",
	OpMinLength:       "min_length",
	OpMaxLength:       "max_length",
	OpPattern:         "pattern",
	OpColumnCount:     "column_count",
	OpMinColumns:      "min_columns",
	OpNotEmpty:        "not_empty",
	OpMinLines:        "min_lines",
	OpMaxLines:        "max_lines",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// ParseOp maps a rule name as written in a rule set to an Op.
func ParseOp(name string) (Op, bool) {
	for op, n := range opNames {
		if n == name {
			return op, true
		}
	}
	return OpUnspecified, false
}

// Family returns the family of the op.
func (o Op) Family() Family {
	switch o {
	case OpType:
		return FamilyType
	case OpNotNull:
		return FamilyPresence
	case OpMin, OpMax:
		return FamilyRange
	case OpDomain:
		return FamilyDomain
	case OpPast, OpPastOrPresent, OpFuture, OpFutureOrPresent:
		return FamilyTemporalRelative
	case OpAfter, OpBefore:
		return FamilyTemporalCompare
	case OpMinLength, OpMaxLength:
		return FamilyLength
	case OpPattern:
		return FamilyPattern
	default:
		return FamilyStructure
	}
}

// supports reports whether a column rule with op is defined for values of t.
func (o Op) supports(t ValueType) bool {
	switch o.Family() {
	case FamilyType:
		return t != TypeText
	case FamilyPresence:
		return true
	case FamilyRange, FamilyTemporalCompare:
		return t.Ordered()
	case FamilyDomain:
		return !t.Temporal()
	case FamilyTemporalRelative:
		return t.Temporal()
	case FamilyLength, FamilyPattern:
		return t == TypeText
	default:
		return false
	}
}

// Rule is one configured predicate with its gate. Construct with Builder.
type Rule struct {
	scope   Scope
	op      Op
	vtype   ValueType
	column  int
	layout  string
	bound   any
	ref     int
	values  []any
	pattern *regexp.Regexp
	limit   int
}

// Name is the stable identity reported in violations.
func (r Rule) Name() string {
	switch {
	case r.scope == ScopeFile:
		return "file." + r.op.String()
	case r.scope == ScopeLine:
		return "line." + r.op.String()
	case r.op == OpNotNull:
		return r.op.String()
	default:
		return r.vtype.String() + "." + r.op.String()
	}
}

func (r Rule) Scope() Scope { return r.scope }
func (r Rule) Op() Op { return r.op }
func (r Rule) Family() Family { return r.op.Family() }
func (r Rule) ValueType() ValueType { return r.vtype }
func (r Rule) Column() int { return r.column }
func (r Rule) Layout() string { return r.layout }
func (r Rule) Bound() any { return r.bound }
func (r Rule) RefColumn() int { return r.ref }
func (r Rule) Limit() int { return r.limit }
func (r Rule) Pattern() *regexp.Regexp { return r.pattern }

// Values returns a copy of the domain set.
func (r Rule) Values() []any {
	return append([]any(nil), r.values...)
}

func (r Rule) String() string {
	if r.scope == ScopeColumn {
		return fmt.Sprintf("%s@%d", r.Name(), r.column)
	}
	return r.Name()
}
