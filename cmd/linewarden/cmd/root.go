package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/linewarden/internal/core/config"
	"github.com/solatis/linewarden/internal/core/db"
	"github.com/solatis/linewarden/internal/logger"
	"github.com/solatis/linewarden/internal/ruleset"
	"github.com/spf13/cobra"
)

// Version is the linewarden release.
const Version = "0.1.0"

// ErrViolations is returned by validate when any file has violations.
// Execute maps it to exit status 2.
var ErrViolations = errors.New("violations found")

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "linewarden",
		Short:         "Validate delimited text files against declarative rule sets",
		Long:          `linewarden checks every line and column of delimited text files against typed rules and reports each violation with its position.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("db-url", "", "database connection URL (sqlite://path or postgres://...)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "text", "log format (json, text)")

	root.AddCommand(newValidateCmd(), newServeCmd(), newMigrateCmd(), newRuleSetCmd())
	return root
}

// Execute runs the CLI and returns the process exit status:
// 0 no violations, 2 violations found, 1 any other error.
func Execute() int {
	err := NewRootCmd().Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrViolations):
		return 2
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
}

// setup resolves configuration for cmd and builds the logger.
func setup(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// openStore opens the database, verifies migrations are applied and
// returns the rule set store. The caller closes the returned DB.
func openStore(ctx context.Context, cfg *config.Config) (*sqlx.DB, *ruleset.Store, error) {
	if cfg.DBURL == "" {
		return nil, nil, fmt.Errorf("--db-url required")
	}
	database, err := db.Open(ctx, cfg.DBURL)
	if err != nil {
		return nil, nil, err
	}

	statuses, err := db.MigrateStatus(ctx, database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			database.Close()
			return nil, nil, fmt.Errorf("migration %s not applied - run 'linewarden migrate up' first", s.ID)
		}
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return database, ruleset.NewStore(queries), nil
}
