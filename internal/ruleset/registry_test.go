package ruleset

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/solatis/linewarden/internal/rules"
	"github.com/solatis/linewarden/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ReloadAndGet(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Reload("testdata"))

	assert.Equal(t, []string{"orders", "prices"}, r.Names())
	assert.Equal(t, 1, r.Generation())

	orders, err := r.Get("orders")
	require.NoError(t, err)
	assert.Equal(t, 100, orders.Config.MaxViolations)

	_, err = r.Get("missing")
	assert.True(t, errors.Is(err, types.ErrRuleSetNotFound), "err = %v", err)
}

func TestRegistry_CompiledSetValidates(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Reload("testdata"))
	prices, err := r.Get("prices")
	require.NoError(t, err)

	e := rules.NewEngine(rules.WithClock(func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) }))
	report, err := e.Validate(context.Background(), strings.NewReader("apples;1.234,50\npears;-0,01\n;3,00\n"), prices)
	require.NoError(t, err)

	var got []string
	for _, v := range report.Violations {
		got = append(got, v.Rule)
	}
	assert.Equal(t, []string{"decimal.min", "not_null"}, got)
}

func TestRegistry_ReloadKeepsPreviousGenerationOnError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "name: a\n")

	r := NewRegistry(nil)
	require.NoError(t, r.Reload(dir))
	before, err := r.Get("a")
	require.NoError(t, err)

	// Compiles to an error: min on a text column.
	writeFile(t, dir, "b.yaml", "name: b\ncolumns:\n  - column: 1\n    rules:\n      - rule: min\n        value: \"1\"\n")
	err = r.Reload(dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrUnsupportedRule), "err = %v", err)

	assert.Equal(t, []string{"a"}, r.Names())
	assert.Equal(t, 1, r.Generation())
	after, err := r.Get("a")
	require.NoError(t, err)
	assert.Same(t, before, after)
}

func TestRegistry_ReplaceRejectsDuplicates(t *testing.T) {
	r := NewRegistry(nil)
	err := r.Replace([]*types.RuleSet{{Name: "x"}, {Name: "x"}})
	assert.True(t, errors.Is(err, types.ErrInvalidRuleSet), "err = %v", err)
	assert.Empty(t, r.Names())
}

func TestRegistry_ConcurrentReadsDuringReload(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Reload("testdata"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := r.Get("orders"); err != nil {
					t.Errorf("Get() error = %v", err)
					return
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, r.Reload("testdata"))
	}
	wg.Wait()

	assert.Equal(t, 6, r.Generation())
}
