// internal/rules/compile.go
package rules

import (
	"errors"
	"fmt"
	"time"

	"github.com/solatis/linewarden/internal/types"
)

/*
 * Rule set compilation.
 *
 * Compiles a declarative types.RuleSet into a frozen Tree plus the ScanConfig
 * (splitter, charset, caps, formats) needed to scan files with it.
 *
 * Compilation workflow:
 *   1. Resolve formats (layouts, location, decimal separators)
 *   2. Compile the separator regexp and resolve the charset
 *   3. Append file, line and column rules to a Builder in document order;
 *      a typed column gets its type rule first
 *   4. Parse literal bounds and domain values with the column's type
 *   5. Build: resource limits, references and type support are validated
 *
 * Why compile-time parsing of literals: an unparsable bound is a broken
 * configuration. Failing here keeps the scan free of configuration errors.
 *
 * Every problem found is reported, joined with errors.Join, so one pass over
 * a rule set file surfaces all of its mistakes.
 */

// CompiledRuleSet is a rule set ready for scanning. Immutable and safe for
// concurrent use.
type CompiledRuleSet struct {
	Name   string
	Tree   *Tree
	Config ScanConfig
	Source *types.RuleSet
}

// WithMaxViolations returns a copy using cap n instead of the rule set's cap.
func (c *CompiledRuleSet) WithMaxViolations(n int) *CompiledRuleSet {
	out := *c
	out.Config.MaxViolations = n
	return &out
}

// Compile validates rs and turns it into a CompiledRuleSet.
func Compile(rs *types.RuleSet) (*CompiledRuleSet, error) {
	if rs == nil {
		return nil, fmt.Errorf("%w: nil rule set", types.ErrInvalidRuleSet)
	}
	if rs.Name == "" {
		return nil, fmt.Errorf("%w: name is required", types.ErrInvalidRuleSet)
	}

	var errs []error

	formats, err := compileFormats(rs.Formats)
	if err != nil {
		errs = append(errs, err)
	}

	cfg := ScanConfig{
		MaxViolations: types.UnboundedViolations,
		MaxLineSize:   types.DefaultMaxLineSize,
		Formats:       formats,
	}
	if rs.MaxViolations != nil {
		cfg.MaxViolations = *rs.MaxViolations
	}
	switch {
	case rs.MaxLineSize < 0:
		errs = append(errs, fmt.Errorf("%w: max_line_size %d is negative", types.ErrInvalidRuleSet, rs.MaxLineSize))
	case rs.MaxLineSize > 0:
		cfg.MaxLineSize = rs.MaxLineSize
	}
	if cfg.Splitter, err = NewSplitter(rs.Separator); err != nil {
		errs = append(errs, err)
	}
	if cfg.Charset, err = LookupCharset(rs.Charset); err != nil {
		errs = append(errs, err)
	}

	b := NewBuilder()
	for _, spec := range rs.File {
		compileFileRule(b, spec)
	}
	for _, spec := range rs.Line {
		compileLineRule(b, spec)
	}

	seen := make(map[int]bool, len(rs.Columns))
	for _, col := range rs.Columns {
		if seen[col.Column] {
			errs = append(errs, fmt.Errorf("%w: column %d declared twice", types.ErrInvalidRuleSet, col.Column))
			continue
		}
		seen[col.Column] = true
		compileColumn(b, col, formats)
	}

	tree, err := b.Build()
	if err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("rule set %q: %w", rs.Name, err)
	}

	return &CompiledRuleSet{Name: rs.Name, Tree: tree, Config: cfg, Source: rs}, nil
}

// compileFormats overlays the declared formats on DefaultFormats.
func compileFormats(f types.Formats) (Formats, error) {
	out := DefaultFormats()
	if f.Date != "" {
		out.Date = f.Date
	}
	if f.LocalDate != "" {
		out.LocalDate = f.LocalDate
	}
	if f.LocalDateTime != "" {
		out.LocalDateTime = f.LocalDateTime
	}
	if f.DecimalSeparator != "" {
		out.DecimalSeparator = f.DecimalSeparator
	}
	out.GroupingSeparator = f.GroupingSeparator
	if out.GroupingSeparator != "" && out.GroupingSeparator == out.DecimalSeparator {
		return out, fmt.Errorf("%w: grouping and decimal separator are both %q", types.ErrInvalidRuleSet, out.GroupingSeparator)
	}
	if f.Location != "" {
		loc, err := time.LoadLocation(f.Location)
		if err != nil {
			return out, fmt.Errorf("%w: %q: %v", types.ErrUnknownLocation, f.Location, err)
		}
		out.Location = loc
	}
	return out, nil
}

func compileFileRule(b *Builder, spec types.RuleSpec) {
	op, _ := ParseOp(spec.Rule)
	fb := b.File()
	switch op {
	case OpNotEmpty:
		fb.NotEmpty()
	case OpMinLines:
		fb.MinLines(spec.Limit)
	case OpMaxLines:
		fb.MaxLines(spec.Limit)
	default:
		b.fail(fmt.Errorf("file: %w: %q", types.ErrUnsupportedRule, spec.Rule))
	}
}

func compileLineRule(b *Builder, spec types.RuleSpec) {
	op, _ := ParseOp(spec.Rule)
	lb := b.Line()
	switch op {
	case OpColumnCount:
		lb.ColumnCount(spec.Limit)
	case OpMinColumns:
		lb.MinColumns(spec.Limit)
	case OpMaxLength:
		lb.MaxLength(spec.Limit)
	case OpPattern:
		lb.Pattern(spec.Pattern)
	default:
		b.fail(fmt.Errorf("line: %w: %q", types.ErrUnsupportedRule, spec.Rule))
	}
}

func compileColumn(b *Builder, col types.ColumnSpec, f Formats) {
	vt, err := ParseValueType(col.Type)
	if err != nil {
		b.fail(fmt.Errorf("column %d: %w", col.Column, err))
		return
	}
	cb := b.Column(col.Column).Type(vt, col.Layout)

	literal := func(name, raw string) (any, bool) {
		v, ok := Parse(raw, vt, col.Layout, f)
		if !ok {
			b.fail(fmt.Errorf("column %d: %s: %w: %q is not a valid %s", col.Column, name, types.ErrInvalidBound, raw, vt))
		}
		return v, ok
	}

	for _, spec := range col.Rules {
		op, ok := ParseOp(spec.Rule)
		if !ok || op == OpType || op.Family() == FamilyStructure {
			b.fail(fmt.Errorf("column %d: %w: %q", col.Column, types.ErrUnsupportedRule, spec.Rule))
			continue
		}

		switch op {
		case OpNotNull:
			cb.NotNull()
		case OpMin, OpMax:
			v, ok := literal(spec.Rule, spec.Value)
			if !ok {
				continue
			}
			if op == OpMin {
				cb.Min(v)
			} else {
				cb.Max(v)
			}
		case OpDomain:
			values := make([]any, 0, len(spec.Values))
			valid := true
			for _, raw := range spec.Values {
				v, ok := literal(spec.Rule, raw)
				valid = valid && ok
				values = append(values, v)
			}
			if valid {
				cb.Domain(values...)
			}
		case OpPast:
			cb.Past()
		case OpPastOrPresent:
			cb.PastOrPresent()
		case OpFuture:
			cb.Future()
		case OpFutureOrPresent:
			cb.FutureOrPresent()
		case OpAfter, OpBefore:
			compileCompare(cb, op, spec, literal)
		case OpMinLength:
			cb.MinLength(spec.Limit)
		case OpMaxLength:
			cb.MaxLength(spec.Limit)
		case OpPattern:
			cb.Pattern(spec.Pattern)
		}
	}
}

func compileCompare(cb *ColumnBuilder, op Op, spec types.RuleSpec, literal func(string, string) (any, bool)) {
	if spec.Column != 0 && spec.Value != "" {
		cb.b.fail(fmt.Errorf("column %d: %s: %w: value and column are mutually exclusive", cb.column, spec.Rule, types.ErrInvalidReference))
		return
	}
	if spec.Column != 0 {
		if op == OpAfter {
			cb.AfterColumn(spec.Column)
		} else {
			cb.BeforeColumn(spec.Column)
		}
		return
	}
	v, ok := literal(spec.Rule, spec.Value)
	if !ok {
		return
	}
	if op == OpAfter {
		cb.After(v)
	} else {
		cb.Before(v)
	}
}
