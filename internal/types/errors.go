package types

import "errors"

// Sentinel errors for linewarden operations.
// All of them are infrastructural: data problems are Violations, not errors.
var (
	// ErrInvalidRuleSet indicates a rule set definition is structurally wrong.
	ErrInvalidRuleSet = errors.New("invalid rule set")

	// ErrUnsupportedRule indicates an unknown rule name or a rule not defined for the column type.
	ErrUnsupportedRule = errors.New("unsupported rule")

	// ErrUnsupportedType indicates an unknown column type.
	ErrUnsupportedType = errors.New("unsupported column type")

	// ErrInvalidColumn indicates a column index outside 1..MaxColumnIndex.
	ErrInvalidColumn = errors.New("invalid column index")

	// ErrInvalidReference indicates a cross-column reference that is missing, self-referencing or combined with a literal.
	ErrInvalidReference = errors.New("invalid column reference")

	// ErrInvalidBound indicates a literal bound that does not parse as the column type.
	ErrInvalidBound = errors.New("invalid rule bound")

	// ErrInvalidPattern indicates a separator or rule pattern that does not compile.
	ErrInvalidPattern = errors.New("invalid regular expression")

	// ErrUnknownCharset indicates a charset name unknown to the decoder.
	ErrUnknownCharset = errors.New("unknown charset")

	// ErrUnknownLocation indicates an unknown time zone name.
	ErrUnknownLocation = errors.New("unknown location")

	// ErrTooManyRules indicates a scope exceeds MaxRulesPerScope.
	ErrTooManyRules = errors.New("too many rules in scope")

	// ErrTooManyDomainValues indicates a domain exceeds MaxDomainValues.
	ErrTooManyDomainValues = errors.New("domain has too many values")

	// ErrLineTooLong indicates a physical line exceeds the configured maximum.
	ErrLineTooLong = errors.New("line exceeds maximum size")

	// ErrNilSource indicates a nil reader or rule tree was passed to the scanner.
	ErrNilSource = errors.New("source is required")

	// ErrScannerReused indicates Run was called on a scanner that already ran.
	ErrScannerReused = errors.New("scanner already used")

	// ErrRuleSetNotFound indicates a rule set name is not registered or stored.
	ErrRuleSetNotFound = errors.New("rule set not found")
)
