// Package types provides domain models shared across linewarden components.
//
// Dependency-light design: rules.go, types.go and errors.go use only the
// standard library so rule set definitions can be decoded anywhere (CLI, store,
// server) without pulling in the engine. ID utilities in ids.go import uuid.
//
// The gRPC layer converts these values to and from structpb at the API
// boundary; nothing here knows about the wire format.
package types

import "fmt"

// RunID identifies one validation run (UUIDv7).
type RunID string

// RuleSetID identifies a stored rule set definition (UUIDv7).
type RuleSetID string

// Violation records one failed rule for one scope of the file.
// Column is 0 for file and line scoped rules; Line is 0 for file scoped rules.
type Violation struct {
	Rule    string `json:"rule" yaml:"rule"`
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
	Column  int    `json:"column,omitempty" yaml:"column,omitempty"`
	Value   string `json:"value,omitempty" yaml:"value,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// String renders the violation for text output.
func (v Violation) String() string {
	switch {
	case v.Line == 0:
		return fmt.Sprintf("file: %s: %s", v.Rule, v.Message)
	case v.Column == 0:
		return fmt.Sprintf("line %d: %s: %s", v.Line, v.Rule, v.Message)
	default:
		return fmt.Sprintf("line %d, column %d: %s: %s (value %q)", v.Line, v.Column, v.Rule, v.Message, v.Value)
	}
}

// Resource limits enforced at compile time to keep a single rule set bounded.
const (
	// MaxColumnIndex caps column numbers; wider files are almost certainly a
	// wrong separator rather than real data.
	MaxColumnIndex = 4096

	// MaxRulesPerScope limits the rule list for any single file, line or column scope.
	MaxRulesPerScope = 64

	// MaxDomainValues limits domain set size.
	MaxDomainValues = 1024

	// DefaultMaxLineSize bounds one physical line (1MB).
	DefaultMaxLineSize = 1024 * 1024

	// DefaultSeparator splits on a literal pipe.
	DefaultSeparator = `\|`

	// DefaultCharset is applied when a rule set does not name one.
	DefaultCharset = "utf-8"

	// UnboundedViolations disables the violation cap.
	UnboundedViolations = -1
)
