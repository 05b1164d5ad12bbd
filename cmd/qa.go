package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iammytoo/policy-sql-dataset/pkg/dataset"
	"github.com/iammytoo/policy-sql-dataset/pkg/logger"
)

var qaCmd = &cobra.Command{
	Use:   "qa [flags] <split>...",
	Short: "Run quality checks over generated dataset splits",
	Long: `QA reads previously generated split files from the data directory and
reports violation rate, refusal rate, negative coverage, and role and
policy distributions, with warnings when a rate falls outside its
expected band.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQA,
}

func init() {
	rootCmd.AddCommand(qaCmd)

	qaCmd.Flags().String("data", "data", "directory containing generated split files")
	qaCmd.Flags().Bool("save", false, "write the combined report to qa_report.json")
}

func runQA(cmd *cobra.Command, args []string) error {
	logger.Init(logLevel())

	dataPath, _ := cmd.Flags().GetString("data")
	save, _ := cmd.Flags().GetBool("save")

	var reports []*dataset.QAReport
	for _, split := range args {
		report, err := dataset.RunQACheck(dataPath, split)
		if err != nil {
			return err
		}
		fmt.Println(report)
		reports = append(reports, report)
	}

	if save {
		if err := dataset.SaveReports(reports, dataPath); err != nil {
			return err
		}
		fmt.Printf("Report written to %s/qa_report.json\n", dataPath)
	}
	return nil
}
