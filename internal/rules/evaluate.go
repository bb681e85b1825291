// internal/rules/evaluate.go
package rules

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/solatis/linewarden/internal/types"
)

/*
 * Rule evaluation contract.
 *
 * Every rule, of every scope and family, is evaluated the same way:
 *
 *   1. canValidate(rule, input): precondition gate
 *   2. isValid(rule, input): predicate, only when the gate passed
 *   3. isValid == false produces exactly one Violation for (scope, rule)
 *
 * Gates:
 *   - Presence: always true
 *   - Type: value is not blank (a blank value is the presence rule's concern)
 *   - Other column rules: value is not blank and parses as the column type.
 *     Compare rules with a reference column additionally require the
 *     referenced column to exist on this line, be non-blank and parse as the
 *     same type.
 *   - Line and file rules: always true
 *
 * Gates recompute the parse instead of trusting an earlier type rule, so the
 * result never depends on registration order. A value that does not parse
 * yields one type violation (if a type rule is registered) and silence from
 * every dependent rule.
 *
 * Panics: evaluateRule recovers at the rule boundary and turns the panic into
 * a violation for that rule so one malformed field never aborts a scan.
 *
 * "now" is supplied by the caller once per run; relative temporal rules
 * convert it to the column type's representation (see nowFor).
 */

// input is the evaluation slice handed to one rule.
type input struct {
	line    *LineContext
	lines   int
	now     time.Time
	formats Formats
}

// evaluateRule runs gate then predicate. Returns nil when the rule passed or
// its precondition was not met.
func evaluateRule(r Rule, in input) (v *types.Violation) {
	defer func() {
		if p := recover(); p != nil {
			v = violationFor(r, in, fmt.Sprintf("rule panicked: %v", p))
		}
	}()

	if !canValidate(r, in) {
		return nil
	}
	if isValid(r, in) {
		return nil
	}
	return violationFor(r, in, message(r, in))
}

func canValidate(r Rule, in input) bool {
	if r.scope != ScopeColumn {
		return true
	}
	switch r.op.Family() {
	case FamilyPresence:
		return true
	case FamilyType:
		cv, ok := in.line.Column(r.column)
		return ok && !cv.IsEmpty()
	default:
		_, _, ok := operands(r, in)
		return ok
	}
}

func isValid(r Rule, in input) bool {
	switch r.scope {
	case ScopeFile:
		return isValidFile(r, in.lines)
	case ScopeLine:
		return isValidLine(r, in.line)
	}

	switch r.op {
	case OpNotNull:
		cv, ok := in.line.Column(r.column)
		return ok && !cv.IsEmpty()
	case OpType:
		cv, _ := in.line.Column(r.column)
		_, ok := cv.Parse(r.vtype, r.layout, in.formats)
		return ok
	}

	v, target, ok := operands(r, in)
	if !ok {
		return true
	}

	switch r.op {
	case OpMin:
		c, ok := compareValues(v, target)
		return ok && c >= 0
	case OpMax:
		c, ok := compareValues(v, target)
		return ok && c <= 0
	case OpDomain:
		return inDomain(v, r.values)
	case OpPast, OpBefore:
		c, ok := compareValues(v, target)
		return ok && c < 0
	case OpPastOrPresent:
		c, ok := compareValues(v, target)
		return ok && c <= 0
	case OpFuture, OpAfter:
		c, ok := compareValues(v, target)
		return ok && c > 0
	case OpFutureOrPresent:
		c, ok := compareValues(v, target)
		return ok && c >= 0
	case OpMinLength:
		return utf8.RuneCountInString(v.(string)) >= r.limit
	case OpMaxLength:
		return utf8.RuneCountInString(v.(string)) <= r.limit
	case OpPattern:
		return r.pattern.MatchString(v.(string))
	default:
		return false
	}
}

// operands parses the column value and resolves the comparison target.
// ok is false whenever the rule's precondition does not hold.
func operands(r Rule, in input) (v, target any, ok bool) {
	cv, ok := in.line.Column(r.column)
	if !ok || cv.IsEmpty() {
		return nil, nil, false
	}
	v, ok = cv.Parse(r.vtype, r.layout, in.formats)
	if !ok {
		return nil, nil, false
	}

	switch r.op.Family() {
	case FamilyRange:
		target = r.bound
	case FamilyTemporalRelative:
		target = nowFor(r.vtype, in.now, in.formats)
	case FamilyTemporalCompare:
		if r.ref == 0 {
			target = r.bound
			break
		}
		ref, ok := cv.Sibling(r.ref)
		if !ok || ref.IsEmpty() {
			return nil, nil, false
		}
		target, ok = ref.Parse(r.vtype, r.layout, in.formats)
		if !ok {
			return nil, nil, false
		}
	}
	return v, target, true
}

func isValidLine(r Rule, line *LineContext) bool {
	switch r.op {
	case OpColumnCount:
		return line.Len() == r.limit
	case OpMinColumns:
		return line.Len() >= r.limit
	case OpMaxLength:
		return utf8.RuneCountInString(line.Text()) <= r.limit
	case OpPattern:
		return r.pattern.MatchString(line.Text())
	default:
		return false
	}
}

func isValidFile(r Rule, lines int) bool {
	switch r.op {
	case OpNotEmpty:
		return lines > 0
	case OpMinLines:
		return lines >= r.limit
	case OpMaxLines:
		return lines <= r.limit
	default:
		return false
	}
}

func violationFor(r Rule, in input, msg string) *types.Violation {
	v := &types.Violation{Rule: r.Name(), Message: msg}
	if in.line != nil {
		v.Line = in.line.Number()
	}
	if r.scope == ScopeColumn {
		v.Column = r.column
		if cv, ok := in.line.Column(r.column); ok {
			v.Value = cv.Raw()
		}
	}
	return v
}

// message describes a failed predicate. Only called after the gate passed.
func message(r Rule, in input) string {
	switch r.scope {
	case ScopeFile:
		switch r.op {
		case OpNotEmpty:
			return "file is empty"
		case OpMinLines:
			return fmt.Sprintf("file has %d lines, want at least %d", in.lines, r.limit)
		default:
			return fmt.Sprintf("file has %d lines, want at most %d", in.lines, r.limit)
		}
	case ScopeLine:
		switch r.op {
		case OpColumnCount:
			return fmt.Sprintf("line has %d columns, want %d", in.line.Len(), r.limit)
		case OpMinColumns:
			return fmt.Sprintf("line has %d columns, want at least %d", in.line.Len(), r.limit)
		case OpMaxLength:
			return fmt.Sprintf("line has %d characters, want at most %d", utf8.RuneCountInString(in.line.Text()), r.limit)
		default:
			return fmt.Sprintf("line does not match %s", r.pattern)
		}
	}

	switch r.op {
	case OpNotNull:
		return "value is empty"
	case OpType:
		return fmt.Sprintf("value does not parse as %s", r.vtype)
	}

	v, target, _ := operands(r, in)
	layout := r.layout
	if layout == "" {
		layout = in.formats.Layout(r.vtype)
	}
	value, bound := formatValue(v, layout), formatValue(target, layout)
	if r.ref != 0 {
		bound = fmt.Sprintf("column %d (%s)", r.ref, bound)
	}

	switch r.op {
	case OpMin:
		return fmt.Sprintf("%s is less than minimum %s", value, bound)
	case OpMax:
		return fmt.Sprintf("%s is greater than maximum %s", value, bound)
	case OpDomain:
		vals := make([]string, len(r.values))
		for i, d := range r.values {
			vals[i] = formatValue(d, layout)
		}
		return fmt.Sprintf("%s is not one of [%s]", value, strings.Join(vals, ", "))
	case OpPast:
		return fmt.Sprintf("%s is not in the past", value)
	case OpPastOrPresent:
		return fmt.Sprintf("%s is in the future", value)
	case OpFuture:
		return fmt.Sprintf("%s is not in the future", value)
	case OpFutureOrPresent:
		return fmt.Sprintf("%s is in the past", value)
	case OpAfter:
		return fmt.Sprintf("%s is not after %s", value, bound)
	case OpBefore:
		return fmt.Sprintf("%s is not before %s", value, bound)
	case OpMinLength:
		return fmt.Sprintf("length %d is less than %d", utf8.RuneCountInString(value), r.limit)
	case OpMaxLength:
		return fmt.Sprintf("length %d is greater than %d", utf8.RuneCountInString(value), r.limit)
	case OpPattern:
		return fmt.Sprintf("%q does not match %s", value, r.pattern)
	default:
		return "rule failed"
	}
}
