// internal/types/rules.go
package types

/*
 * Declarative rule set definitions.
 *
 * Provides RuleSet, ColumnSpec, RuleSpec and Formats structures used by
 * internal/rules for compilation into a frozen rule tree. These types are
 * format agnostic: internal/ruleset decodes them from YAML or JSON documents
 * and from the rule_sets table, the gRPC layer refers to them by name only.
 *
 * Key types:
 *   - RuleSet: Complete validation definition for one file layout
 *   - ColumnSpec: Declared type plus ordered rules for one column
 *   - RuleSpec: One rule with its literal bound, reference or payload
 *   - Formats: Parse layouts shared by every temporal and decimal column
 *
 * Literal values stay strings here. They are parsed with the column's type
 * during compilation so that an unparsable bound fails the configuration,
 * not the scan.
 */

// Value type names accepted in ColumnSpec.Type.
const (
	TypeText          = "text"
	TypeInt           = "int"
	TypeLong          = "long"
	TypeFloat         = "float"
	TypeDouble        = "double"
	TypeDecimal       = "decimal"
	TypeDate          = "date"
	TypeLocalDate     = "local_date"
	TypeLocalDateTime = "local_date_time"
)

// RuleSet is the declarative definition of how one kind of file is validated.
type RuleSet struct {
	Name          string       `yaml:"name" json:"name"`
	Description   string       `yaml:"description,omitempty" json:"description,omitempty"`
	Separator     string       `yaml:"separator,omitempty" json:"separator,omitempty"` // regular expression
	Charset       string       `yaml:"charset,omitempty" json:"charset,omitempty"`
	MaxViolations *int         `yaml:"max_violations,omitempty" json:"max_violations,omitempty"` // nil or negative = unbounded
	MaxLineSize   int          `yaml:"max_line_size,omitempty" json:"max_line_size,omitempty"`
	Formats       Formats      `yaml:"formats,omitempty" json:"formats,omitempty"`
	File          []RuleSpec   `yaml:"file,omitempty" json:"file,omitempty"`
	Line          []RuleSpec   `yaml:"line,omitempty" json:"line,omitempty"`
	Columns       []ColumnSpec `yaml:"columns,omitempty" json:"columns,omitempty"`
}

// Formats carries the parse layouts used when a column does not declare its own.
// Layouts use Go reference-time notation ("02/01/2006").
type Formats struct {
	Date              string `yaml:"date,omitempty" json:"date,omitempty"`
	LocalDate         string `yaml:"local_date,omitempty" json:"local_date,omitempty"`
	LocalDateTime     string `yaml:"local_date_time,omitempty" json:"local_date_time,omitempty"`
	Location          string `yaml:"location,omitempty" json:"location,omitempty"` // IANA zone name, "Local" or "UTC"
	DecimalSeparator  string `yaml:"decimal_separator,omitempty" json:"decimal_separator,omitempty"`
	GroupingSeparator string `yaml:"grouping_separator,omitempty" json:"grouping_separator,omitempty"`
}

// ColumnSpec declares the type of one column and the rules registered for it.
type ColumnSpec struct {
	Column int        `yaml:"column" json:"column"` // 1-based
	Type   string     `yaml:"type,omitempty" json:"type,omitempty"`
	Layout string     `yaml:"layout,omitempty" json:"layout,omitempty"` // overrides Formats for temporal types
	Rules  []RuleSpec `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// RuleSpec is one rule in a file, line or column scope.
type RuleSpec struct {
	Rule    string   `yaml:"rule" json:"rule"`
	Value   string   `yaml:"value,omitempty" json:"value,omitempty"`   // literal bound (mutually exclusive with Column)
	Column  int      `yaml:"column,omitempty" json:"column,omitempty"` // referenced column (mutually exclusive with Value)
	Values  []string `yaml:"values,omitempty" json:"values,omitempty"` // domain members
	Pattern string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Limit   int      `yaml:"limit,omitempty" json:"limit,omitempty"` // lengths and counts
}
