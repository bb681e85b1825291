// internal/rules/scanner.go
package rules

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/solatis/linewarden/internal/types"
	"golang.org/x/text/encoding"
)

/*
 * Scanner: the per-file evaluation state machine.
 *
 *   NotStarted -> Scanning -> Completed
 *                          -> StoppedEarly   (collector reached its cap)
 *                          -> Failed         (read error, oversized line, ctx)
 *
 * For each physical line:
 *   1. decode (charset), strip the line terminator ("\n" or "\r\n")
 *   2. split into fields, build a LineContext
 *   3. line rules in registration order
 *   4. for each configured column present on the line, ascending, its rules
 *      in registration order
 *
 * File rules run once, after the last line, against the line count. They do
 * not run when the scan stopped early.
 *
 * Early stop is a normal terminal state: the moment Record reports the
 * collector full, no further rule is evaluated and no further line is read.
 * A cap of 0 stops before the first line.
 *
 * Context cancellation is checked between lines. A cancelled scan returns
 * ctx.Err() and no report, like any other infrastructural failure.
 *
 * A Scanner is single use. The Tree it reads is shared and never modified.
 */

// ScanState is the state of a Scanner.
type ScanState int32

const (
	StateNotStarted ScanState = iota
	StateScanning
	StateCompleted
	StateStoppedEarly
	StateFailed
)

func (s ScanState) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateScanning:
		return "scanning"
	case StateCompleted:
		return "completed"
	case StateStoppedEarly:
		return "stopped_early"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ScanConfig holds the stream level settings of a scan.
type ScanConfig struct {
	Splitter      *Splitter
	Charset       encoding.Encoding
	MaxViolations int
	MaxLineSize   int
	Formats       Formats
}

// DefaultScanConfig splits on '|', decodes UTF-8, collects every violation
// and parses temporal values with ISO layouts.
func DefaultScanConfig() ScanConfig {
	split, _ := NewSplitter(types.DefaultSeparator)
	return ScanConfig{
		Splitter:      split,
		MaxViolations: types.UnboundedViolations,
		MaxLineSize:   types.DefaultMaxLineSize,
		Formats:       DefaultFormats(),
	}
}

// Report is the outcome of one scan.
type Report struct {
	RunID      types.RunID
	State      ScanState
	Lines      int
	Violations []types.Violation
	Duration   time.Duration
}

// Valid reports whether the scan found no violations.
func (r *Report) Valid() bool { return len(r.Violations) == 0 }

// Scanner evaluates one source against a Tree.
type Scanner struct {
	tree      *Tree
	cfg       ScanConfig
	now       time.Time
	state     atomic.Int32
	collector *Collector
	lines     int
}

// NewScanner prepares a scan. now is the clock snapshot used by every
// relative temporal rule of the run.
func NewScanner(tree *Tree, cfg ScanConfig, now time.Time) *Scanner {
	if cfg.Splitter == nil {
		cfg.Splitter = DefaultScanConfig().Splitter
	}
	if cfg.MaxLineSize <= 0 {
		cfg.MaxLineSize = types.DefaultMaxLineSize
	}
	return &Scanner{
		tree:      tree,
		cfg:       cfg,
		now:       now,
		collector: NewCollector(cfg.MaxViolations),
	}
}

// State returns the current state. Safe to call from another goroutine.
func (s *Scanner) State() ScanState {
	return ScanState(s.state.Load())
}

// Run scans r to completion, early stop or failure.
func (s *Scanner) Run(ctx context.Context, r io.Reader) (*Report, error) {
	if r == nil || s.tree == nil {
		return nil, types.ErrNilSource
	}
	if !s.state.CompareAndSwap(int32(StateNotStarted), int32(StateScanning)) {
		return nil, types.ErrScannerReused
	}

	start := time.Now()
	state, err := s.scan(ctx, r)
	s.state.Store(int32(state))
	if err != nil {
		return nil, err
	}

	return &Report{
		RunID:      types.NewRunID(),
		State:      state,
		Lines:      s.lines,
		Violations: s.collector.Violations(),
		Duration:   time.Since(start),
	}, nil
}

func (s *Scanner) scan(ctx context.Context, r io.Reader) (ScanState, error) {
	if s.collector.Full() {
		return StateStoppedEarly, nil
	}

	sc := bufio.NewScanner(decodingReader(r, s.cfg.Charset))
	// +2 leaves room for the "\r\n" terminator of a maximum size line.
	sc.Buffer(make([]byte, 0, min(64*1024, s.cfg.MaxLineSize+2)), s.cfg.MaxLineSize+2)

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return StateFailed, err
		}
		text := sc.Text()
		s.lines++
		if len(text) > s.cfg.MaxLineSize {
			return StateFailed, fmt.Errorf("line %d: %w (%d bytes, max %d)", s.lines, types.ErrLineTooLong, len(text), s.cfg.MaxLineSize)
		}
		if !s.evaluateLine(NewLineContext(s.lines, text, s.cfg.Splitter.Split(text))) {
			return StateStoppedEarly, nil
		}
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return StateFailed, fmt.Errorf("line %d: %w (max %d bytes)", s.lines+1, types.ErrLineTooLong, s.cfg.MaxLineSize)
		}
		return StateFailed, fmt.Errorf("read line %d: %w", s.lines+1, err)
	}

	in := input{lines: s.lines, now: s.now, formats: s.cfg.Formats}
	for _, rule := range s.tree.file {
		if !s.apply(rule, in) {
			return StateStoppedEarly, nil
		}
	}
	return StateCompleted, nil
}

// evaluateLine runs line then column rules. Returns false on early stop.
func (s *Scanner) evaluateLine(line *LineContext) bool {
	in := input{line: line, lines: s.lines, now: s.now, formats: s.cfg.Formats}

	for _, rule := range s.tree.line {
		if !s.apply(rule, in) {
			return false
		}
	}
	for _, node := range s.tree.columns {
		if node.Column > line.Len() {
			break
		}
		for _, rule := range node.Rules {
			if !s.apply(rule, in) {
				return false
			}
		}
	}
	return true
}

func (s *Scanner) apply(rule Rule, in input) bool {
	v := evaluateRule(rule, in)
	if v == nil {
		return true
	}
	return s.collector.Record(*v)
}

// Scan runs a single scan of r against tree.
func Scan(ctx context.Context, r io.Reader, tree *Tree, cfg ScanConfig, now time.Time) (*Report, error) {
	return NewScanner(tree, cfg, now).Run(ctx, r)
}
