package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gnolang/sqlrender/internal/report"
)

func newRulesCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect rule tables",
	}
	cmd.AddCommand(newRulesListCmd(root))
	cmd.AddCommand(newRulesCheckCmd(root))
	return cmd
}

func newRulesListCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the rules of a table, optionally only those for one dialect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root, cmd)
			if err != nil {
				return err
			}
			table, err := loadTable(cfg.Rules)
			if err != nil {
				return err
			}
			report.Rules(cmd.OutOrStdout(), table, cfg.Dialect)
			return nil
		},
	}
	cmd.Flags().String("rules", "", "Rule table (.yaml or .csv); the built-in table is used when empty")
	cmd.Flags().StringP("dialect", "d", "", "Only list rules applied for this dialect")
	return cmd
}

func newRulesCheckCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compile every pattern of a rule table and report the invalid ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root, cmd)
			if err != nil {
				return err
			}
			table, err := loadTable(cfg.Rules)
			if err != nil {
				return err
			}
			if err := table.Validate(); err != nil {
				return fmt.Errorf("%s: %w", table.Source, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rules OK (dialects: %v)\n", table.Source, len(table.Entries), table.Dialects())
			return nil
		},
	}
	cmd.Flags().String("rules", "", "Rule table (.yaml or .csv); the built-in table is used when empty")
	return cmd
}
