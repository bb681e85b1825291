package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersRules = `name: orders
description: order export
formats:
  date: "02/01/2006"
  location: UTC
columns:
  - column: 1
    type: date
    rules:
      - rule: before
        column: 2
  - column: 2
    type: date
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader("02/01/2020|01/01/2020\n"))
	err := root.Execute()
	return out.String(), err
}

func fixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestValidate_Text(t *testing.T) {
	dir := t.TempDir()
	rules := fixture(t, dir, "orders.yaml", ordersRules)
	good := fixture(t, dir, "good.txt", "01/01/2020|02/01/2020\n")
	bad := fixture(t, dir, "bad.txt", "01/01/2020|02/01/2020\n02/01/2020|01/01/2020\n")

	out, err := run(t, "validate", "--rules", rules, good, bad)
	assert.True(t, errors.Is(err, ErrViolations), "err = %v", err)

	assert.Contains(t, out, good+": ok (1 lines)")
	assert.Contains(t, out, bad+": line 2, column 1: date.before:")
	assert.Contains(t, out, bad+": 1 violations (2 lines)")
}

func TestValidate_NoViolations(t *testing.T) {
	dir := t.TempDir()
	rules := fixture(t, dir, "orders.yaml", ordersRules)
	good := fixture(t, dir, "good.txt", "01/01/2020|02/01/2020\n")

	_, err := run(t, "validate", "--rules", rules, good)
	assert.NoError(t, err)
}

func TestValidate_JSONAndStdin(t *testing.T) {
	dir := t.TempDir()
	rules := fixture(t, dir, "orders.yaml", ordersRules)

	out, err := run(t, "validate", "--rules", rules, "--output", "json", "-")
	assert.True(t, errors.Is(err, ErrViolations), "err = %v", err)

	var results []fileResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "-", results[0].Path)
	assert.Equal(t, "completed", results[0].State)
	require.Len(t, results[0].Violations, 1)
	assert.Equal(t, "date.before", results[0].Violations[0].Rule)
}

func TestValidate_MaxViolationsFlag(t *testing.T) {
	dir := t.TempDir()
	rules := fixture(t, dir, "orders.yaml", ordersRules)
	bad := fixture(t, dir, "bad.txt", strings.Repeat("02/01/2020|01/01/2020\n", 5))

	out, err := run(t, "validate", "--rules", rules, "--max-violations", "2", bad)
	assert.True(t, errors.Is(err, ErrViolations))
	assert.Contains(t, out, "2 violations (2 lines, stopped early)")
}

func TestValidate_Errors(t *testing.T) {
	dir := t.TempDir()
	rules := fixture(t, dir, "orders.yaml", ordersRules)
	good := fixture(t, dir, "good.txt", "01/01/2020|02/01/2020\n")

	tests := []struct {
		name string
		args []string
	}{
		{"no rule source", []string{"validate", good}},
		{"both rule sources", []string{"validate", "--rules", rules, "--ruleset", "orders", good}},
		{"bad output", []string{"validate", "--rules", rules, "--output", "xml", good}},
		{"missing file", []string{"validate", "--rules", rules, filepath.Join(dir, "none.txt")}},
		{"unknown charset", []string{"validate", "--rules", rules, "--charset", "klingon", good}},
		{"ruleset without db", []string{"validate", "--ruleset", "orders", good}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.False(t, errors.Is(err, ErrViolations), "err = %v", err)
		})
	}
}

func TestRuleSetLifecycle(t *testing.T) {
	dir := t.TempDir()
	dbURL := "sqlite://" + filepath.Join(dir, "rules.db")
	rules := fixture(t, dir, "orders.yaml", ordersRules)
	bad := fixture(t, dir, "bad.txt", "02/01/2020|01/01/2020\n")

	_, err := run(t, "ruleset", "list", "--db-url", dbURL)
	require.Error(t, err, "store requires migrations")
	assert.Contains(t, err.Error(), "migrate up")

	_, err = run(t, "migrate", "up", "--db-url", dbURL)
	require.NoError(t, err)

	out, err := run(t, "migrate", "status", "--db-url", dbURL)
	require.NoError(t, err)
	assert.Contains(t, out, "001_rule_sets.sql")
	assert.Contains(t, out, "applied")

	out, err = run(t, "ruleset", "import", "--db-url", dbURL, rules)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "orders\t"), "out = %q", out)

	out, err = run(t, "ruleset", "list", "--db-url", dbURL)
	require.NoError(t, err)
	assert.Contains(t, out, "orders")
	assert.Contains(t, out, "order export")

	out, err = run(t, "ruleset", "show", "--db-url", dbURL, "orders")
	require.NoError(t, err)
	assert.Contains(t, out, "name: orders")
	assert.Contains(t, out, "rule: before")

	_, err = run(t, "validate", "--db-url", dbURL, "--ruleset", "orders", bad)
	assert.True(t, errors.Is(err, ErrViolations), "err = %v", err)

	_, err = run(t, "ruleset", "delete", "--db-url", dbURL, "orders")
	require.NoError(t, err)
	_, err = run(t, "ruleset", "delete", "--db-url", dbURL, "orders")
	assert.Error(t, err)
}
