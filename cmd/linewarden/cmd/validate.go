package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/solatis/linewarden/internal/core/config"
	"github.com/solatis/linewarden/internal/logger"
	"github.com/solatis/linewarden/internal/rules"
	"github.com/solatis/linewarden/internal/ruleset"
	"github.com/solatis/linewarden/internal/types"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// fileResult is the outcome for one input file. Err is set for
// infrastructural failures, Report otherwise.
type fileResult struct {
	Path       string            `json:"path"`
	RunID      string            `json:"run_id,omitempty"`
	State      string            `json:"state"`
	Lines      int               `json:"lines"`
	Violations []types.Violation `json:"violations"`
	Error      string            `json:"error,omitempty"`
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [flags] FILE...",
		Short: "Validate files against a rule set",
		Long: `Validate scans each FILE ("-" for stdin) with one rule set, loaded from a
YAML/JSON file (--rules) or from the database (--ruleset with --db-url).

Exit status is 0 when no file has violations, 2 when any file has
violations and 1 on errors.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runValidate,
	}

	cmd.Flags().String("rules", "", "rule set file (.yaml, .yml, .json)")
	cmd.Flags().String("ruleset", "", "name of a rule set stored in the database")
	cmd.Flags().Int("max-violations", -1, "violation cap per file (-1 keeps the rule set's cap)")
	cmd.Flags().String("separator", "", "override the rule set's separator expression")
	cmd.Flags().String("charset", "", "override the rule set's charset")
	cmd.Flags().Int("parallel", 4, "files validated concurrently")
	cmd.Flags().StringP("output", "o", "text", "output format (text, json)")
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output != "text" && output != "json" {
		return fmt.Errorf("invalid --output %q (want text or json)", output)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	def, err := loadDefinition(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	compiled, err := compileWithOverrides(def, cfg.Validate)
	if err != nil {
		return err
	}

	engine := rules.NewEngine(rules.WithLogger(log.Component("engine")))
	results := validateFiles(ctx, engine, compiled, args, cmd.InOrStdin(), cfg.Validate.Parallel, log)

	if err := writeResults(cmd.OutOrStdout(), output, results); err != nil {
		return err
	}
	return exitError(results)
}

// loadDefinition reads the rule set named by --rules or --ruleset.
func loadDefinition(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (*types.RuleSet, error) {
	path, _ := cmd.Flags().GetString("rules")
	name, _ := cmd.Flags().GetString("ruleset")

	switch {
	case path != "" && name != "":
		return nil, fmt.Errorf("--rules and --ruleset are mutually exclusive")
	case path != "":
		return ruleset.LoadFile(path)
	case name != "":
		database, store, err := openStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		defer database.Close()

		rec, err := store.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		return rec.Definition, nil
	default:
		return nil, fmt.Errorf("one of --rules or --ruleset is required")
	}
}

// compileWithOverrides applies the validate.* settings to def and compiles it.
func compileWithOverrides(def *types.RuleSet, v config.ValidateConfig) (*rules.CompiledRuleSet, error) {
	rs := *def
	if v.Separator != "" {
		rs.Separator = v.Separator
	}
	if v.Charset != "" {
		rs.Charset = v.Charset
	}

	compiled, err := rules.Compile(&rs)
	if err != nil {
		return nil, err
	}
	if v.MaxViolations >= 0 {
		compiled = compiled.WithMaxViolations(v.MaxViolations)
	}
	return compiled, nil
}

// validateFiles runs up to parallel scans at once. Results keep argument
// order; one failing file does not cancel the others.
func validateFiles(ctx context.Context, engine *rules.Engine, rs *rules.CompiledRuleSet, paths []string, stdin io.Reader, parallel int, log *logger.Logger) []fileResult {
	results := make([]fileResult, len(paths))

	var g errgroup.Group
	g.SetLimit(parallel)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			var (
				report *rules.Report
				err    error
			)
			if path == "-" {
				report, err = engine.Validate(ctx, stdin, rs)
			} else {
				report, err = engine.ValidateFile(ctx, path, rs)
			}

			res := fileResult{Path: path, Violations: []types.Violation{}}
			if err != nil {
				log.Error().Err(err).Str("path", path).Msg("validation failed")
				res.State = rules.StateFailed.String()
				res.Error = err.Error()
			} else {
				res.RunID = string(report.RunID)
				res.State = report.State.String()
				res.Lines = report.Lines
				res.Violations = report.Violations
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func writeResults(w io.Writer, format string, results []fileResult) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	for _, r := range results {
		switch {
		case r.Error != "":
			fmt.Fprintf(w, "%s: error: %s\n", r.Path, r.Error)
		case len(r.Violations) == 0:
			fmt.Fprintf(w, "%s: ok (%d lines)\n", r.Path, r.Lines)
		default:
			for _, v := range r.Violations {
				fmt.Fprintf(w, "%s: %s\n", r.Path, v)
			}
			suffix := ""
			if r.State == rules.StateStoppedEarly.String() {
				suffix = ", stopped early"
			}
			fmt.Fprintf(w, "%s: %d violations (%d lines%s)\n", r.Path, len(r.Violations), r.Lines, suffix)
		}
	}
	return nil
}

// exitError picks the command result: errors win over violations.
func exitError(results []fileResult) error {
	failed, violated := 0, 0
	for _, r := range results {
		switch {
		case r.Error != "":
			failed++
		case len(r.Violations) > 0:
			violated++
		}
	}
	switch {
	case failed > 0:
		return fmt.Errorf("%d of %d files could not be validated", failed, len(results))
	case violated > 0:
		return ErrViolations
	default:
		return nil
	}
}
