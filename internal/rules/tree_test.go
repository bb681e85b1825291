// internal/rules/tree_test.go
package rules

import (
	"errors"
	"reflect"
	"testing"

	"github.com/solatis/linewarden/internal/types"
)

func ruleNames(rules []Rule) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.Name()
	}
	return out
}

func TestBuilder_RegistrationOrder(t *testing.T) {
	b := NewBuilder()
	b.Column(3).Type(TypeInt, "").NotNull().Min(1).Max(9)
	b.Column(1).NotNull().MinLength(2).Pattern(`^[a-z]+$`)
	b.Line().ColumnCount(3)
	b.File().NotEmpty().MaxLines(10)

	tree, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v, want nil", err)
	}

	if got, want := tree.Columns(), []int{1, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("Columns() = %v, want %v", got, want)
	}
	if got, want := ruleNames(tree.Column(3)), []string{"int.type", "not_null", "int.min", "int.max"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Column(3) = %v, want %v", got, want)
	}
	if got, want := ruleNames(tree.Column(1)), []string{"not_null", "text.min_length", "text.pattern"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Column(1) = %v, want %v", got, want)
	}
	if got, want := ruleNames(tree.Line()), []string{"line.column_count"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Line() = %v, want %v", got, want)
	}
	if got, want := ruleNames(tree.File()), []string{"file.not_empty", "file.max_lines"}; !reflect.DeepEqual(got, want) {
		t.Errorf("File() = %v, want %v", got, want)
	}
	if tree.Len() != 10 {
		t.Errorf("Len() = %d, want 10", tree.Len())
	}
	if tree.Column(2) != nil {
		t.Errorf("Column(2) = %v, want nil", tree.Column(2))
	}

	nodes := tree.Nodes()
	if len(nodes) != 4 || nodes[0].Scope != ScopeFile || nodes[1].Scope != ScopeLine || nodes[2].Column != 1 || nodes[3].Column != 3 {
		t.Errorf("Nodes() = %+v, want file, line, column 1, column 3", nodes)
	}
}

func TestBuilder_TypeStampedOnEarlierRules(t *testing.T) {
	b := NewBuilder()
	b.Column(1).NotNull().Min(1).Type(TypeLong, "")

	tree, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v, want nil", err)
	}
	if got, want := ruleNames(tree.Column(1)), []string{"not_null", "long.min", "long.type"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Column(1) = %v, want %v", got, want)
	}
	if tree.Column(1)[1].Bound() != int64(1) {
		t.Errorf("Bound() = %v (%T), want int64(1)", tree.Column(1)[1].Bound(), tree.Column(1)[1].Bound())
	}
}

func TestBuilder_FrozenTreeIsIsolated(t *testing.T) {
	b := NewBuilder()
	b.Column(1).NotNull()
	tree, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	b.Column(1).MaxLength(3)
	b.Column(2).NotNull()

	if tree.Len() != 1 {
		t.Errorf("Len() after further building = %d, want 1", tree.Len())
	}

	rules := tree.Column(1)
	rules[0] = Rule{}
	if tree.Column(1)[0].Op() != OpNotNull {
		t.Error("mutating Column() result changed the tree")
	}
}

func TestBuilder_Errors(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *Builder)
		want  error
	}{
		{"column zero", func(b *Builder) { b.Column(0).NotNull() }, types.ErrInvalidColumn},
		{"column too large", func(b *Builder) { b.Column(types.MaxColumnIndex + 1).NotNull() }, types.ErrInvalidColumn},
		{"self reference", func(b *Builder) { b.Column(1).Type(TypeDate, "").AfterColumn(1) }, types.ErrInvalidReference},
		{"negative reference", func(b *Builder) { b.Column(1).Type(TypeDate, "").BeforeColumn(-2) }, types.ErrInvalidReference},
		{"compare without bound", func(b *Builder) { b.Column(1).Type(TypeInt, "").After(nil) }, types.ErrInvalidReference},
		{"past on text", func(b *Builder) { b.Column(1).Past() }, types.ErrUnsupportedRule},
		{"pattern on int", func(b *Builder) { b.Column(1).Type(TypeInt, "").Pattern("x") }, types.ErrUnsupportedRule},
		{"min on text", func(b *Builder) { b.Column(1).Min("a") }, types.ErrUnsupportedRule},
		{"bound of wrong type", func(b *Builder) { b.Column(1).Type(TypeInt, "").Min("x") }, types.ErrInvalidBound},
		{"bound overflows int", func(b *Builder) { b.Column(1).Type(TypeInt, "").Max(int64(1) << 40) }, types.ErrInvalidBound},
		{"empty domain", func(b *Builder) { b.Column(1).Domain() }, types.ErrInvalidBound},
		{"negative length", func(b *Builder) { b.Column(1).MaxLength(-1) }, types.ErrInvalidBound},
		{"negative line count", func(b *Builder) { b.File().MaxLines(-1) }, types.ErrInvalidBound},
		{"bad column pattern", func(b *Builder) { b.Column(1).Pattern("(") }, types.ErrInvalidPattern},
		{"bad line pattern", func(b *Builder) { b.Line().Pattern("[") }, types.ErrInvalidPattern},
		{"conflicting types", func(b *Builder) { b.Column(1).Type(TypeInt, "").Type(TypeLong, "") }, types.ErrInvalidRuleSet},
		{"too many rules", func(b *Builder) {
			c := b.Column(1)
			for i := 0; i <= types.MaxRulesPerScope; i++ {
				c.NotNull()
			}
		}, types.ErrTooManyRules},
		{"too many domain values", func(b *Builder) {
			values := make([]any, types.MaxDomainValues+1)
			for i := range values {
				values[i] = i
			}
			b.Column(1).Type(TypeInt, "").Domain(values...)
		}, types.ErrTooManyDomainValues},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			tt.build(b)
			tree, err := b.Build()
			if !errors.Is(err, tt.want) {
				t.Fatalf("Build() error = %v, want %v", err, tt.want)
			}
			if tree != nil {
				t.Errorf("Build() tree = %v, want nil on error", tree)
			}
		})
	}
}

func TestBuilder_ReportsAllErrors(t *testing.T) {
	b := NewBuilder()
	b.Column(0).NotNull()
	b.Column(1).Type(TypeDate, "").AfterColumn(1)
	b.Column(2).Pattern("(")

	_, err := b.Build()
	for _, want := range []error{types.ErrInvalidColumn, types.ErrInvalidReference, types.ErrInvalidPattern} {
		if !errors.Is(err, want) {
			t.Errorf("Build() error = %v, want it to wrap %v", err, want)
		}
	}
}

func TestBuilder_TextTypeAddsNoRule(t *testing.T) {
	b := NewBuilder()
	b.Column(1).Type(TypeText, "").NotNull()

	tree, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got, want := ruleNames(tree.Column(1)), []string{"not_null"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Column(1) = %v, want %v", got, want)
	}
}
