// internal/rules/tree.go
package rules

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/solatis/linewarden/internal/types"
)

/*
 * Rule tree and its builder.
 *
 * Two phases. A Builder appends rules per scope in registration order and
 * accumulates configuration errors instead of failing on the first one. Build
 * validates everything at once, normalizes literal bounds to the column type
 * and returns a frozen Tree. The Tree is never modified afterwards, so any
 * number of scans may read it concurrently without locking.
 *
 * Scope keys:
 *   - file: one node, rules run once per scan
 *   - line: one node, rules run once per line
 *   - column i (1-based): one node per configured column, iterated in
 *     ascending column order
 *
 * A column's type is a property of the column, not of a rule: every typed rule
 * registered on a column is stamped with the column's type at Build time. Type
 * may therefore be declared before or after the other rules of that column.
 *
 * Build-time checks:
 *   - column and reference indexes in 1..MaxColumnIndex, reference != self
 *   - compare rules carry exactly one of literal bound or reference column
 *   - every rule is defined for the column type (e.g. past needs a temporal type)
 *   - literal bounds and domain values convert to the column type
 *   - at most MaxRulesPerScope rules per scope, MaxDomainValues per domain
 */

// Node is the ordered rule list of one scope.
type Node struct {
	Scope  Scope
	Column int
	Rules  []Rule
}

// Tree is the frozen, scope-indexed rule collection.
type Tree struct {
	file    []Rule
	line    []Rule
	columns []Node
	index   map[int]int
}

// File returns the file scoped rules in registration order.
func (t *Tree) File() []Rule { return append([]Rule(nil), t.file...) }

// Line returns the line scoped rules in registration order.
func (t *Tree) Line() []Rule { return append([]Rule(nil), t.line...) }

// Column returns the rules of column i in registration order, nil if none.
func (t *Tree) Column(i int) []Rule {
	n, ok := t.index[i]
	if !ok {
		return nil
	}
	return append([]Rule(nil), t.columns[n].Rules...)
}

// Columns returns the configured column indexes in ascending order.
func (t *Tree) Columns() []int {
	out := make([]int, len(t.columns))
	for i, n := range t.columns {
		out[i] = n.Column
	}
	return out
}

// Nodes returns every non-empty scope: file, line, then columns ascending.
func (t *Tree) Nodes() []Node {
	var out []Node
	if len(t.file) > 0 {
		out = append(out, Node{Scope: ScopeFile, Rules: t.File()})
	}
	if len(t.line) > 0 {
		out = append(out, Node{Scope: ScopeLine, Rules: t.Line()})
	}
	for _, n := range t.columns {
		out = append(out, Node{Scope: ScopeColumn, Column: n.Column, Rules: t.Column(n.Column)})
	}
	return out
}

// Len returns the total number of rules.
func (t *Tree) Len() int {
	n := len(t.file) + len(t.line)
	for _, c := range t.columns {
		n += len(c.Rules)
	}
	return n
}

// Builder assembles a Tree. The zero value is not usable; call NewBuilder.
type Builder struct {
	file    []Rule
	line    []Rule
	columns map[int]*ColumnBuilder
	errs    []error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{columns: make(map[int]*ColumnBuilder)}
}

// File returns the builder for file scoped rules.
func (b *Builder) File() *FileBuilder { return &FileBuilder{b: b} }

// Line returns the builder for line scoped rules.
func (b *Builder) Line() *LineBuilder { return &LineBuilder{b: b} }

// Column returns the builder for column i (1-based). Repeated calls with the
// same index return the same builder.
func (b *Builder) Column(i int) *ColumnBuilder {
	if c, ok := b.columns[i]; ok {
		return c
	}
	c := &ColumnBuilder{b: b, column: i}
	b.columns[i] = c
	return c
}

func (b *Builder) fail(err error) {
	b.errs = append(b.errs, err)
}

// Build validates the accumulated rules and freezes them into a Tree.
// All configuration errors are reported together.
func (b *Builder) Build() (*Tree, error) {
	errs := append([]error(nil), b.errs...)

	checkScope := func(name string, n int) {
		if n > types.MaxRulesPerScope {
			errs = append(errs, fmt.Errorf("%s: %w: %d rules (max %d)", name, types.ErrTooManyRules, n, types.MaxRulesPerScope))
		}
	}
	checkScope("file", len(b.file))
	checkScope("line", len(b.line))

	tree := &Tree{
		file:  append([]Rule(nil), b.file...),
		line:  append([]Rule(nil), b.line...),
		index: make(map[int]int, len(b.columns)),
	}

	indexes := make([]int, 0, len(b.columns))
	for i := range b.columns {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	for _, i := range indexes {
		c := b.columns[i]
		if i < 1 || i > types.MaxColumnIndex {
			errs = append(errs, fmt.Errorf("%w: %d (must be 1..%d)", types.ErrInvalidColumn, i, types.MaxColumnIndex))
			continue
		}
		if len(c.rules) == 0 {
			continue
		}
		checkScope(fmt.Sprintf("column %d", i), len(c.rules))

		rules := make([]Rule, 0, len(c.rules))
		for _, r := range c.rules {
			frozen, err := c.freeze(r)
			if err != nil {
				errs = append(errs, fmt.Errorf("column %d: %s: %w", i, frozen.Name(), err))
				continue
			}
			rules = append(rules, frozen)
		}
		tree.index[i] = len(tree.columns)
		tree.columns = append(tree.columns, Node{Scope: ScopeColumn, Column: i, Rules: rules})
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return tree, nil
}

// FileBuilder appends file scoped rules.
type FileBuilder struct{ b *Builder }

func (f *FileBuilder) add(op Op, limit int) *FileBuilder {
	if limit < 0 {
		f.b.fail(fmt.Errorf("file.%s: %w: limit %d is negative", op, types.ErrInvalidBound, limit))
		return f
	}
	f.b.file = append(f.b.file, Rule{scope: ScopeFile, op: op, limit: limit})
	return f
}

// NotEmpty requires at least one line.
func (f *FileBuilder) NotEmpty() *FileBuilder { return f.add(OpNotEmpty, 0) }

// MinLines requires at least n lines.
func (f *FileBuilder) MinLines(n int) *FileBuilder { return f.add(OpMinLines, n) }

// MaxLines allows at most n lines.
func (f *FileBuilder) MaxLines(n int) *FileBuilder { return f.add(OpMaxLines, n) }

// LineBuilder appends line scoped rules.
type LineBuilder struct{ b *Builder }

func (l *LineBuilder) add(r Rule) *LineBuilder {
	r.scope = ScopeLine
	if r.limit < 0 {
		l.b.fail(fmt.Errorf("line.%s: %w: limit %d is negative", r.op, types.ErrInvalidBound, r.limit))
		return l
	}
	l.b.line = append(l.b.line, r)
	return l
}

// ColumnCount requires exactly n fields on every line.
func (l *LineBuilder) ColumnCount(n int) *LineBuilder {
	return l.add(Rule{op: OpColumnCount, limit: n})
}

// MinColumns requires at least n fields on every line.
func (l *LineBuilder) MinColumns(n int) *LineBuilder {
	return l.add(Rule{op: OpMinColumns, limit: n})
}

// MaxLength allows at most n runes per line.
func (l *LineBuilder) MaxLength(n int) *LineBuilder {
	return l.add(Rule{op: OpMaxLength, limit: n})
}

// Pattern requires every line to match expr.
func (l *LineBuilder) Pattern(expr string) *LineBuilder {
	re, err := regexp.Compile(expr)
	if err != nil {
		l.b.fail(fmt.Errorf("line.pattern: %w: %v", types.ErrInvalidPattern, err))
		return l
	}
	return l.add(Rule{op: OpPattern, pattern: re})
}

// ColumnBuilder appends rules for one column.
type ColumnBuilder struct {
	b      *Builder
	column int
	vtype  ValueType
	layout string
	typed  bool
	rules  []Rule
}

func (c *ColumnBuilder) add(r Rule) *ColumnBuilder {
	r.scope = ScopeColumn
	r.column = c.column
	c.rules = append(c.rules, r)
	return c
}

// Type declares the column type and, for anything but text, registers the
// type rule. An empty layout selects the rule set default for temporal types.
func (c *ColumnBuilder) Type(t ValueType, layout string) *ColumnBuilder {
	if c.typed && (c.vtype != t || c.layout != layout) {
		c.b.fail(fmt.Errorf("column %d: %w: type declared twice (%s, %s)", c.column, types.ErrInvalidRuleSet, c.vtype, t))
		return c
	}
	if c.typed {
		return c
	}
	c.vtype, c.layout, c.typed = t, layout, true
	if t == TypeText {
		return c
	}
	return c.add(Rule{op: OpType})
}

// NotNull requires a non-blank value.
func (c *ColumnBuilder) NotNull() *ColumnBuilder { return c.add(Rule{op: OpNotNull}) }

// Min requires value >= v.
func (c *ColumnBuilder) Min(v any) *ColumnBuilder { return c.add(Rule{op: OpMin, bound: v}) }

// Max requires value <= v.
func (c *ColumnBuilder) Max(v any) *ColumnBuilder { return c.add(Rule{op: OpMax, bound: v}) }

// Domain requires the value to equal one of values.
func (c *ColumnBuilder) Domain(values ...any) *ColumnBuilder {
	return c.add(Rule{op: OpDomain, values: append([]any(nil), values...)})
}

// Past requires value < now.
func (c *ColumnBuilder) Past() *ColumnBuilder { return c.add(Rule{op: OpPast}) }

// PastOrPresent requires value <= now.
func (c *ColumnBuilder) PastOrPresent() *ColumnBuilder { return c.add(Rule{op: OpPastOrPresent}) }

// Future requires value > now.
func (c *ColumnBuilder) Future() *ColumnBuilder { return c.add(Rule{op: OpFuture}) }

// FutureOrPresent requires value >= now.
func (c *ColumnBuilder) FutureOrPresent() *ColumnBuilder { return c.add(Rule{op: OpFutureOrPresent}) }

// After requires value > v.
func (c *ColumnBuilder) After(v any) *ColumnBuilder { return c.add(Rule{op: OpAfter, bound: v}) }

// AfterColumn requires value > the value of column ref on the same line.
func (c *ColumnBuilder) AfterColumn(ref int) *ColumnBuilder {
	return c.add(Rule{op: OpAfter, ref: ref})
}

// Before requires value < v.
func (c *ColumnBuilder) Before(v any) *ColumnBuilder { return c.add(Rule{op: OpBefore, bound: v}) }

// BeforeColumn requires value < the value of column ref on the same line.
func (c *ColumnBuilder) BeforeColumn(ref int) *ColumnBuilder {
	return c.add(Rule{op: OpBefore, ref: ref})
}

// MinLength requires at least n runes.
func (c *ColumnBuilder) MinLength(n int) *ColumnBuilder {
	return c.add(Rule{op: OpMinLength, limit: n})
}

// MaxLength allows at most n runes.
func (c *ColumnBuilder) MaxLength(n int) *ColumnBuilder {
	return c.add(Rule{op: OpMaxLength, limit: n})
}

// Pattern requires the trimmed value to match expr.
func (c *ColumnBuilder) Pattern(expr string) *ColumnBuilder {
	re, err := regexp.Compile(expr)
	if err != nil {
		c.b.fail(fmt.Errorf("column %d: pattern: %w: %v", c.column, types.ErrInvalidPattern, err))
		return c
	}
	return c.add(Rule{op: OpPattern, pattern: re})
}

// freeze stamps r with the column type and converts its payload. The
// returned rule is valid for naming even when err is non-nil.
func (c *ColumnBuilder) freeze(r Rule) (Rule, error) {
	r.vtype = c.vtype
	r.layout = c.layout

	if !r.op.supports(r.vtype) {
		return r, fmt.Errorf("%w: %s is not defined for %s columns", types.ErrUnsupportedRule, r.op, r.vtype)
	}

	switch r.op.Family() {
	case FamilyRange:
		bound, err := normalizeBound(r.vtype, r.bound)
		if err != nil {
			return r, err
		}
		r.bound = bound

	case FamilyTemporalCompare:
		hasBound, hasRef := r.bound != nil, r.ref != 0
		switch {
		case hasBound == hasRef:
			return r, fmt.Errorf("%w: exactly one of bound or column is required", types.ErrInvalidReference)
		case hasRef && (r.ref < 1 || r.ref > types.MaxColumnIndex):
			return r, fmt.Errorf("%w: column %d (must be 1..%d)", types.ErrInvalidReference, r.ref, types.MaxColumnIndex)
		case hasRef && r.ref == c.column:
			return r, fmt.Errorf("%w: column %d references itself", types.ErrInvalidReference, r.ref)
		case hasBound:
			bound, err := normalizeBound(r.vtype, r.bound)
			if err != nil {
				return r, err
			}
			r.bound = bound
		}

	case FamilyDomain:
		if len(r.values) == 0 {
			return r, fmt.Errorf("%w: domain is empty", types.ErrInvalidBound)
		}
		if len(r.values) > types.MaxDomainValues {
			return r, fmt.Errorf("%w: %d values (max %d)", types.ErrTooManyDomainValues, len(r.values), types.MaxDomainValues)
		}
		values := make([]any, len(r.values))
		for i, v := range r.values {
			nv, err := normalizeBound(r.vtype, v)
			if err != nil {
				return r, err
			}
			values[i] = nv
		}
		r.values = values

	case FamilyLength:
		if r.limit < 0 {
			return r, fmt.Errorf("%w: limit %d is negative", types.ErrInvalidBound, r.limit)
		}
	}
	return r, nil
}
