// internal/rules/compile_test.go
package rules

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/solatis/linewarden/internal/types"
)

func intPtr(n int) *int { return &n }

func ordersRuleSet() *types.RuleSet {
	return &types.RuleSet{
		Name:          "orders",
		Separator:     `\|`,
		MaxViolations: intPtr(100),
		Formats: types.Formats{
			Date:     "02/01/2006",
			Location: "UTC",
		},
		File: []types.RuleSpec{{Rule: "not_empty"}, {Rule: "max_lines", Limit: 10}},
		Line: []types.RuleSpec{{Rule: "column_count", Limit: 3}},
		Columns: []types.ColumnSpec{
			{
				Column: 1,
				Type:   types.TypeDate,
				Rules: []types.RuleSpec{
					{Rule: "not_null"},
					{Rule: "before", Column: 2},
				},
			},
			{
				Column: 2,
				Type:   types.TypeDate,
				Rules:  []types.RuleSpec{{Rule: "after", Value: "01/01/2000"}},
			},
			{
				Column: 3,
				Type:   types.TypeInt,
				Rules: []types.RuleSpec{
					{Rule: "domain", Values: []string{"1", "2", "3"}},
				},
			},
		},
	}
}

func TestCompile_RuleSet(t *testing.T) {
	compiled, err := Compile(ordersRuleSet())
	if err != nil {
		t.Fatalf("Compile() error = %v, want nil", err)
	}

	if compiled.Name != "orders" {
		t.Errorf("Name = %v, want orders", compiled.Name)
	}
	if compiled.Config.MaxViolations != 100 {
		t.Errorf("MaxViolations = %d, want 100", compiled.Config.MaxViolations)
	}
	if compiled.Config.MaxLineSize != types.DefaultMaxLineSize {
		t.Errorf("MaxLineSize = %d, want default", compiled.Config.MaxLineSize)
	}
	if compiled.Config.Formats.Location != time.UTC {
		t.Errorf("Location = %v, want UTC", compiled.Config.Formats.Location)
	}
	if got, want := compiled.Tree.Columns(), []int{1, 2, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("Columns() = %v, want %v", got, want)
	}
	if got, want := ruleNames(compiled.Tree.Column(1)), []string{"date.type", "not_null", "date.before"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Column(1) = %v, want %v", got, want)
	}
	if got := compiled.Tree.Column(1)[2].RefColumn(); got != 2 {
		t.Errorf("RefColumn() = %d, want 2", got)
	}
	if got := compiled.Tree.Column(3)[1].Values(); !reflect.DeepEqual(got, []any{int64(1), int64(2), int64(3)}) {
		t.Errorf("domain values = %v, want [1 2 3] as int64", got)
	}
	if got, want := compiled.Tree.Column(2)[1].Bound(), time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC); !got.(time.Time).Equal(want) {
		t.Errorf("Bound() = %v, want %v", got, want)
	}
}

func TestCompile_Defaults(t *testing.T) {
	compiled, err := Compile(&types.RuleSet{Name: "bare"})
	if err != nil {
		t.Fatalf("Compile() error = %v, want nil", err)
	}
	if compiled.Config.MaxViolations != types.UnboundedViolations {
		t.Errorf("MaxViolations = %d, want unbounded", compiled.Config.MaxViolations)
	}
	if compiled.Config.Splitter.String() != types.DefaultSeparator {
		t.Errorf("separator = %q, want %q", compiled.Config.Splitter.String(), types.DefaultSeparator)
	}
	if compiled.Config.Formats.LocalDate != "2006-01-02" {
		t.Errorf("LocalDate layout = %q, want ISO", compiled.Config.Formats.LocalDate)
	}
	if compiled.Tree.Len() != 0 {
		t.Errorf("Tree.Len() = %d, want 0", compiled.Tree.Len())
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(rs *types.RuleSet)
		want   error
	}{
		{"missing name", func(rs *types.RuleSet) { rs.Name = "" }, types.ErrInvalidRuleSet},
		{"unknown column rule", func(rs *types.RuleSet) {
			rs.Columns[0].Rules = append(rs.Columns[0].Rules, types.RuleSpec{Rule: "sometimes"})
		}, types.ErrUnsupportedRule},
		{"explicit type rule", func(rs *types.RuleSet) {
			rs.Columns[0].Rules = append(rs.Columns[0].Rules, types.RuleSpec{Rule: "type"})
		}, types.ErrUnsupportedRule},
		{"file rule in column", func(rs *types.RuleSet) {
			rs.Columns[0].Rules = append(rs.Columns[0].Rules, types.RuleSpec{Rule: "max_lines"})
		}, types.ErrUnsupportedRule},
		{"unknown file rule", func(rs *types.RuleSet) { rs.File = append(rs.File, types.RuleSpec{Rule: "pattern"}) }, types.ErrUnsupportedRule},
		{"unknown line rule", func(rs *types.RuleSet) { rs.Line = append(rs.Line, types.RuleSpec{Rule: "not_empty"}) }, types.ErrUnsupportedRule},
		{"unknown type", func(rs *types.RuleSet) { rs.Columns[2].Type = "bigint" }, types.ErrUnsupportedType},
		{"unparsable bound", func(rs *types.RuleSet) { rs.Columns[1].Rules[0].Value = "2000-01-01" }, types.ErrInvalidBound},
		{"unparsable domain value", func(rs *types.RuleSet) { rs.Columns[2].Rules[0].Values[1] = "two" }, types.ErrInvalidBound},
		{"value and column", func(rs *types.RuleSet) { rs.Columns[0].Rules[1].Value = "01/01/2000" }, types.ErrInvalidReference},
		{"self reference", func(rs *types.RuleSet) { rs.Columns[0].Rules[1].Column = 1 }, types.ErrInvalidReference},
		{"duplicate column", func(rs *types.RuleSet) { rs.Columns = append(rs.Columns, types.ColumnSpec{Column: 1}) }, types.ErrInvalidRuleSet},
		{"column zero", func(rs *types.RuleSet) { rs.Columns[2].Column = 0 }, types.ErrInvalidColumn},
		{"bad separator", func(rs *types.RuleSet) { rs.Separator = "[" }, types.ErrInvalidPattern},
		{"unknown charset", func(rs *types.RuleSet) { rs.Charset = "ebcdic-klingon" }, types.ErrUnknownCharset},
		{"unknown location", func(rs *types.RuleSet) { rs.Formats.Location = "Mars/Olympus" }, types.ErrUnknownLocation},
		{"negative line size", func(rs *types.RuleSet) { rs.MaxLineSize = -1 }, types.ErrInvalidRuleSet},
		{"same separators", func(rs *types.RuleSet) {
			rs.Formats.DecimalSeparator = ","
			rs.Formats.GroupingSeparator = ","
		}, types.ErrInvalidRuleSet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := ordersRuleSet()
			tt.mutate(rs)
			compiled, err := Compile(rs)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Compile() error = %v, want %v", err, tt.want)
			}
			if compiled != nil {
				t.Error("Compile() returned a rule set alongside an error")
			}
		})
	}
}

func TestCompile_Nil(t *testing.T) {
	if _, err := Compile(nil); !errors.Is(err, types.ErrInvalidRuleSet) {
		t.Errorf("Compile(nil) error = %v, want ErrInvalidRuleSet", err)
	}
}

func TestCompile_ReportsEveryError(t *testing.T) {
	rs := ordersRuleSet()
	rs.Separator = "("
	rs.Columns[1].Rules[0].Value = "yesterday"
	rs.Columns[2].Type = "bigint"

	_, err := Compile(rs)
	for _, want := range []error{types.ErrInvalidPattern, types.ErrInvalidBound, types.ErrUnsupportedType} {
		if !errors.Is(err, want) {
			t.Errorf("Compile() error = %v, want it to wrap %v", err, want)
		}
	}
}

func TestCompile_DecimalFormats(t *testing.T) {
	rs := &types.RuleSet{
		Name:    "amounts",
		Formats: types.Formats{DecimalSeparator: ",", GroupingSeparator: "."},
		Columns: []types.ColumnSpec{{
			Column: 1,
			Type:   types.TypeDecimal,
			Rules:  []types.RuleSpec{{Rule: "max", Value: "1.000,00"}},
		}},
	}
	compiled, err := Compile(rs)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	report := scanString(t, compiled.Tree, compiled.Config, "999,99\n1.000,01")
	if got, want := violationRules(report), []string{"decimal.max"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("violations = %v, want %v", got, want)
	}
	if report.Violations[0].Line != 2 {
		t.Errorf("violation on line %d, want 2", report.Violations[0].Line)
	}
}

func TestCompiledRuleSet_WithMaxViolations(t *testing.T) {
	compiled, err := Compile(ordersRuleSet())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	capped := compiled.WithMaxViolations(1)
	if capped.Config.MaxViolations != 1 {
		t.Errorf("capped MaxViolations = %d, want 1", capped.Config.MaxViolations)
	}
	if compiled.Config.MaxViolations != 100 {
		t.Errorf("original MaxViolations = %d, want 100", compiled.Config.MaxViolations)
	}
	if capped.Tree != compiled.Tree {
		t.Error("WithMaxViolations copied the tree, want it shared")
	}
}
