package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iammytoo/policy-sql-dataset/pkg/dataset"
	"github.com/iammytoo/policy-sql-dataset/pkg/logger"
	"github.com/iammytoo/policy-sql-dataset/pkg/policy"
)

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "Assign and write per-database column policies",
	Long: `Policies assigns an access policy to every column of every database
using the naming heuristics, applies manual overrides, writes one policy
file per database, and prints the resulting distribution.`,
	RunE: runPolicies,
}

func init() {
	rootCmd.AddCommand(policiesCmd)

	policiesCmd.Flags().String("tables", "spider_data/tables.json", "path to the schema metadata file")
	policiesCmd.Flags().String("output", "data/policies", "output directory for policy files")
	policiesCmd.Flags().String("overrides", "", "path to a policy overrides file (JSON)")
}

func runPolicies(cmd *cobra.Command, _ []string) error {
	logger.Init(logLevel())

	tablesPath, _ := cmd.Flags().GetString("tables")
	outputDir, _ := cmd.Flags().GetString("output")
	overridesPath, _ := cmd.Flags().GetString("overrides")

	schemas, err := dataset.LoadSchemas(tablesPath)
	if err != nil {
		return err
	}
	slog.Info("loaded schemas", "databases", len(schemas))

	all, err := policy.GenerateAll(schemas, outputDir, overridesPath)
	if err != nil {
		return err
	}
	slog.Info("wrote policy files", "databases", len(all), "dir", filepath.Clean(outputDir))

	fmt.Print(policy.Summarize(all))
	return nil
}
