// internal/rules/collector.go
package rules

import (
	"sync"

	"github.com/solatis/linewarden/internal/types"
)

/*
 * Bounded violation collection.
 *
 * A Collector holds at most max violations (exact; a negative max means
 * unbounded). Record and Full share one mutex so that the append and the
 * fullness decision are a single atomic step: concurrent callers can never
 * push the count past the cap, and every caller observes the same moment the
 * collector became full.
 *
 * The scanner stops issuing work as soon as Record returns false. Violations
 * offered after that point are dropped.
 */

// Collector accumulates violations up to a cap.
type Collector struct {
	mu         sync.Mutex
	max        int
	violations []types.Violation
}

// NewCollector returns a collector capped at max violations; negative max is unbounded.
func NewCollector(max int) *Collector {
	return &Collector{max: max}
}

// Record appends v if capacity remains and reports whether capacity remains
// after the append.
func (c *Collector) Record(v types.Violation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fullLocked() {
		return false
	}
	c.violations = append(c.violations, v)
	return !c.fullLocked()
}

// Full reports whether the cap has been reached.
func (c *Collector) Full() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fullLocked()
}

func (c *Collector) fullLocked() bool {
	return c.max >= 0 && len(c.violations) >= c.max
}

// Len returns the number of recorded violations.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.violations)
}

// Violations returns a copy of the recorded violations in record order.
func (c *Collector) Violations() []types.Violation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.Violation(nil), c.violations...)
}
