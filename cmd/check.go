package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/iammytoo/policy-sql-dataset/pkg/analyzer"
	"github.com/iammytoo/policy-sql-dataset/pkg/dataset"
	"github.com/iammytoo/policy-sql-dataset/pkg/logger"
	"github.com/iammytoo/policy-sql-dataset/pkg/policy"
	"github.com/iammytoo/policy-sql-dataset/pkg/types"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <example-file>",
	Short: "Analyze a single example against column policies",
	Long: `Check runs one example (a JSON file with db_id, query, and the parsed
sql field) through role extraction, violation checking, and the rewrite
attempt, then prints the outcome.

Policies come from a policy file when --policies is given, otherwise they
are assigned from the schema's column names.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().String("tables", "spider_data/tables.json", "path to the schema metadata file")
	checkCmd.Flags().String("policies", "", "path to a per-database policy file (JSON)")
	checkCmd.Flags().StringP("output", "o", "text", "output format (text, json, yaml)")
	checkCmd.Flags().Bool("fail-on-violation", false, "exit with non-zero code if violations are found")
}

// checkOutput is the serializable result of one check run.
type checkOutput struct {
	DBID       string               `json:"db_id" yaml:"db_id"`
	Query      string               `json:"query" yaml:"query"`
	Violations []types.Violation    `json:"violations" yaml:"violations"`
	Rewrite    *types.RewriteResult `json:"rewrite,omitempty" yaml:"rewrite,omitempty"`
	GoldLabel  types.GoldLabel      `json:"gold_label" yaml:"gold_label"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger.Init(logLevel())

	tablesPath, _ := cmd.Flags().GetString("tables")
	policiesPath, _ := cmd.Flags().GetString("policies")
	outputFormat, _ := cmd.Flags().GetString("output")

	exampleFile := args[0]
	data, err := os.ReadFile(exampleFile)
	if err != nil {
		return errors.Wrapf(err, "failed to read example file: %s", exampleFile)
	}
	var ex dataset.Example
	if err := json.Unmarshal(data, &ex); err != nil {
		return errors.Wrapf(err, "failed to parse example file: %s", exampleFile)
	}

	schemas, err := dataset.LoadSchemas(tablesPath)
	if err != nil {
		return err
	}
	s, ok := schemas[ex.DBID]
	if !ok {
		return errors.Errorf("unknown database id: %s", ex.DBID)
	}

	var policies policy.Map
	if policiesPath != "" {
		dbID, loaded, err := policy.LoadFile(policiesPath)
		if err != nil {
			return err
		}
		if dbID != ex.DBID {
			return errors.Errorf("policy file is for database %s, example is for %s", dbID, ex.DBID)
		}
		policies = loaded
	} else {
		policies = policy.AssignForDatabase(s)
	}

	analysis := analyzer.New(s, policies).Analyze(ex.Query, ex.SQL)
	out := checkOutput{
		DBID:       ex.DBID,
		Query:      ex.Query,
		Violations: analysis.Violations,
		Rewrite:    analysis.Rewrite,
		GoldLabel:  dataset.GoldLabelFor(ex, analysis),
	}
	if out.Violations == nil {
		out.Violations = []types.Violation{}
	}

	if err := outputResult(out, outputFormat); err != nil {
		return err
	}

	if failOn, _ := cmd.Flags().GetBool("fail-on-violation"); failOn && len(out.Violations) > 0 {
		os.Exit(1)
	}
	return nil
}

func outputResult(out checkOutput, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	case "yaml":
		encoder := yaml.NewEncoder(os.Stdout)
		defer encoder.Close()
		return encoder.Encode(out)
	case "text":
		return outputText(out)
	default:
		return errors.Errorf("unsupported output format: %s", format)
	}
}

func outputText(out checkOutput) error {
	if len(out.Violations) == 0 {
		fmt.Println("No violations found.")
	}
	for _, v := range out.Violations {
		fmt.Printf("[VIOLATION] %s (%s in %s", v.Column, v.Policy, v.Role)
		if v.Agg != types.AggNone {
			fmt.Printf(", %s", v.Agg)
		}
		fmt.Println(")")
	}
	if out.Rewrite != nil {
		if out.Rewrite.OK {
			fmt.Printf("Rewrite: %s\n", out.Rewrite.SQL)
		} else {
			fmt.Printf("Refused: %s\n", out.Rewrite.Reason)
		}
	}
	if out.GoldLabel.Type == types.GoldTypeSQL {
		fmt.Printf("Gold label: SQL (%s)\n", *out.GoldLabel.SQL)
	} else {
		fmt.Println("Gold label: REFUSE")
	}
	return nil
}
