// internal/ruleset/load.go
package ruleset

/*
 * Rule set document loading.
 *
 * Rule sets are YAML or JSON documents decoding into types.RuleSet. Decoding
 * is strict: unknown keys are an error so that a misspelled rule field does
 * not silently drop a constraint.
 *
 * LoadDir reads every .yaml, .yml and .json file directly under a directory
 * (no recursion, hidden files skipped) and rejects duplicate names.
 */

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/solatis/linewarden/internal/types"
	"gopkg.in/yaml.v3"
)

// Format identifies the encoding of a rule set document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor returns the document format for a file name, or false if the
// extension is not a rule set extension.
func FormatFor(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".json":
		return FormatJSON, true
	default:
		return "", false
	}
}

// Parse decodes one rule set document.
func Parse(data []byte, format Format) (*types.RuleSet, error) {
	var rs types.RuleSet

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&rs); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: empty document", types.ErrInvalidRuleSet)
			}
			return nil, fmt.Errorf("%w: %v", types.ErrInvalidRuleSet, err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&rs); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: empty document", types.ErrInvalidRuleSet)
			}
			return nil, fmt.Errorf("%w: %v", types.ErrInvalidRuleSet, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown document format %q", types.ErrInvalidRuleSet, format)
	}

	if rs.Name == "" {
		return nil, fmt.Errorf("%w: name is required", types.ErrInvalidRuleSet)
	}
	return &rs, nil
}

// LoadFile reads and decodes one rule set file, picking the format from the extension.
func LoadFile(path string) (*types.RuleSet, error) {
	format, ok := FormatFor(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s: unsupported extension", types.ErrInvalidRuleSet, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule set: %w", err)
	}

	rs, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// LoadDir loads every rule set file in dir, sorted by name.
func LoadDir(dir string) ([]*types.RuleSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules directory: %w", err)
	}

	var (
		sets []*types.RuleSet
		errs []error
		seen = make(map[string]string)
	)
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if _, ok := FormatFor(e.Name()); !ok {
			continue
		}

		path := filepath.Join(dir, e.Name())
		rs, err := LoadFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if prev, dup := seen[rs.Name]; dup {
			errs = append(errs, fmt.Errorf("%w: rule set %q defined in both %s and %s",
				types.ErrInvalidRuleSet, rs.Name, prev, path))
			continue
		}
		seen[rs.Name] = path
		sets = append(sets, rs)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	sort.Slice(sets, func(i, j int) bool { return sets[i].Name < sets[j].Name })
	return sets, nil
}
