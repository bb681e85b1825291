// internal/rules/engine.go
package rules

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/solatis/linewarden/internal/logger"
	"github.com/solatis/linewarden/internal/types"
)

/*
 * Engine: public entry point for validation runs.
 *
 * An Engine is stateless apart from its clock and logger and is safe for
 * concurrent use. Each Validate call is one run: it snapshots "now" from the
 * clock, builds a Scanner with a fresh Collector and records metrics for the
 * outcome.
 *
 * ValidateFile owns the file it opens and closes it on every exit path,
 * including early stop and read failures.
 */

// Clock returns the current time. Injected for deterministic tests.
type Clock func() time.Time

// Engine runs compiled rule sets against input streams.
type Engine struct {
	clock Clock
	log   *logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides time.Now.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the engine logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates a new rules engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{clock: time.Now, log: logger.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate scans r with rs.
func (e *Engine) Validate(ctx context.Context, r io.Reader, rs *CompiledRuleSet) (*Report, error) {
	if rs == nil || rs.Tree == nil {
		return nil, fmt.Errorf("%w: nil rule set", types.ErrNilSource)
	}

	now := e.clock()
	log := e.log.With().Str("ruleset", rs.Name).Logger()
	log.Debug().Int("rules", rs.Tree.Len()).Int("max_violations", rs.Config.MaxViolations).Msg("run started")

	report, err := NewScanner(rs.Tree, rs.Config, now).Run(ctx, r)
	if err != nil {
		runsTotal.WithLabelValues(StateFailed.String()).Inc()
		log.Debug().Err(err).Msg("run failed")
		return nil, err
	}
	observeReport(report)

	ev := log.Debug().
		Str("run_id", string(report.RunID)).
		Str("state", report.State.String()).
		Int("lines", report.Lines).
		Int("violations", len(report.Violations)).
		Dur("duration", report.Duration)
	if report.State == StateStoppedEarly {
		ev.Msg("run stopped early, violation cap reached")
	} else {
		ev.Msg("run completed")
	}
	return report, nil
}

// ValidateFile opens path, scans it with rs and closes it.
func (e *Engine) ValidateFile(ctx context.Context, path string, rs *CompiledRuleSet) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	report, err := e.Validate(ctx, f, rs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return report, nil
}
