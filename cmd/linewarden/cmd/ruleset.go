package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/solatis/linewarden/internal/ruleset"
	"github.com/solatis/linewarden/internal/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newRuleSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ruleset",
		Aliases: []string{"rulesets"},
		Short:   "Manage rule sets stored in the database",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import FILE...",
		Short: "Store rule set files, replacing rule sets with the same name",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRuleSetImport,
	}, &cobra.Command{
		Use:   "list",
		Short: "List stored rule sets",
		Args:  cobra.NoArgs,
		RunE:  runRuleSetList,
	}, &cobra.Command{
		Use:   "show NAME",
		Short: "Print a stored rule set as YAML",
		Args:  cobra.ExactArgs(1),
		RunE:  runRuleSetShow,
	}, &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a stored rule set",
		Args:  cobra.ExactArgs(1),
		RunE:  runRuleSetDelete,
	})
	return cmd
}

func runRuleSetImport(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	database, store, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	// Parse everything first so a broken file imports nothing.
	defs := make([]*types.RuleSet, len(args))
	for i, path := range args {
		if defs[i], err = ruleset.LoadFile(path); err != nil {
			return err
		}
	}
	for i, def := range defs {
		id, err := store.Save(cmd.Context(), def)
		if err != nil {
			return fmt.Errorf("%s: %w", args[i], err)
		}
		log.Info().Str("ruleset", def.Name).Str("id", string(id)).Msg("rule set imported")
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", def.Name, id)
	}
	return nil
}

func runRuleSetList(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	database, store, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	records, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tUPDATED\tDESCRIPTION")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.UpdatedAt.Format(time.RFC3339), r.Description)
	}
	return w.Flush()
}

func runRuleSetShow(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	database, store, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	rec, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(rec.Definition); err != nil {
		return err
	}
	return enc.Close()
}

func runRuleSetDelete(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	database, store, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := store.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	log.Info().Str("ruleset", args[0]).Msg("rule set deleted")
	return nil
}
