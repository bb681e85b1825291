// internal/ruleset/registry.go
package ruleset

import (
	"fmt"
	"sort"
	"sync"

	"github.com/solatis/linewarden/internal/logger"
	"github.com/solatis/linewarden/internal/rules"
	"github.com/solatis/linewarden/internal/types"
)

// Registry holds the current generation of compiled rule sets by name.
//
// A generation is replaced as a whole. Readers holding a *CompiledRuleSet
// keep using it after a reload; compiled rule sets are immutable.
type Registry struct {
	mu         sync.RWMutex
	sets       map[string]*rules.CompiledRuleSet
	generation int
	log        *logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		sets: make(map[string]*rules.CompiledRuleSet),
		log:  log.Component("registry"),
	}
}

// Get returns the compiled rule set registered under name.
func (r *Registry) Get(name string) (*rules.CompiledRuleSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rs, ok := r.sets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrRuleSetNotFound, name)
	}
	return rs, nil
}

// Names returns the registered rule set names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sets))
	for name := range r.sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Generation counts successful Replace calls.
func (r *Registry) Generation() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Replace compiles every definition and swaps them in as the new generation.
// Nothing changes if any definition fails to compile.
func (r *Registry) Replace(defs []*types.RuleSet) error {
	next := make(map[string]*rules.CompiledRuleSet, len(defs))
	for _, def := range defs {
		compiled, err := rules.Compile(def)
		if err != nil {
			return err
		}
		if _, dup := next[compiled.Name]; dup {
			return fmt.Errorf("%w: duplicate rule set %q", types.ErrInvalidRuleSet, compiled.Name)
		}
		next[compiled.Name] = compiled
	}

	r.mu.Lock()
	r.sets = next
	r.generation++
	gen := r.generation
	r.mu.Unlock()

	r.log.Info().Int("generation", gen).Int("rulesets", len(next)).Msg("rule sets loaded")
	return nil
}

// Reload loads dir and replaces the current generation. On error the
// previous generation stays active.
func (r *Registry) Reload(dir string) error {
	defs, err := LoadDir(dir)
	if err == nil {
		err = r.Replace(defs)
	}
	if err != nil {
		r.log.Error().Err(err).Str("dir", dir).Msg("rule set reload failed, keeping previous generation")
		return err
	}
	return nil
}
