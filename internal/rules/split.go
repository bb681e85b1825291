// internal/rules/split.go
package rules

import (
	"fmt"
	"regexp"

	"github.com/solatis/linewarden/internal/types"
)

// Splitter splits a line into fields on a regular expression. Consecutive
// separators produce empty fields and trailing empty fields are kept, so
// "a||c" is three fields and "a|" is two.
type Splitter struct {
	re *regexp.Regexp
}

// NewSplitter compiles expr once. An empty expr selects DefaultSeparator.
func NewSplitter(expr string) (*Splitter, error) {
	if expr == "" {
		expr = types.DefaultSeparator
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("separator %q: %w: %v", expr, types.ErrInvalidPattern, err)
	}
	return &Splitter{re: re}, nil
}

// Split returns the fields of line. An empty line is one empty field.
func (s *Splitter) Split(line string) []string {
	return s.re.Split(line, -1)
}

func (s *Splitter) String() string { return s.re.String() }
