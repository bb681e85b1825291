package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/solatis/linewarden/internal/core/db"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the rule set database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE:  runMigrateUp,
	}, &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE:  runMigrateStatus,
	})
	return cmd
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	if cfg.DBURL == "" {
		return fmt.Errorf("--db-url required")
	}

	database, err := db.Open(cmd.Context(), cfg.DBURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.MigrateUp(cmd.Context(), database); err != nil {
		return err
	}
	log.Info().Str("driver", database.DriverName()).Msg("migrations applied")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	if cfg.DBURL == "" {
		return fmt.Errorf("--db-url required")
	}

	database, err := db.Open(cmd.Context(), cfg.DBURL)
	if err != nil {
		return err
	}
	defer database.Close()

	statuses, err := db.MigrateStatus(cmd.Context(), database)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MIGRATION\tSTATUS\tAPPLIED AT")
	for _, s := range statuses {
		state, at := "pending", "-"
		if s.Applied {
			state, at = "applied", s.AppliedAt
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, state, at)
	}
	return w.Flush()
}
