package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iammytoo/policy-sql-dataset/pkg/config"
	"github.com/iammytoo/policy-sql-dataset/pkg/dataset"
	"github.com/iammytoo/policy-sql-dataset/pkg/logger"
	"github.com/iammytoo/policy-sql-dataset/pkg/policy"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the full policy SQL dataset",
	Long: `Generate runs the whole pipeline: load schemas, assign per-column
policies, process every split (extract roles, check violations, attempt
rewrites, derive gold labels and negative examples), write the dataset
files, and run QA checks over the result.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().String("generator-config", "", "path to a generator config file (YAML or JSON)")
	generateCmd.Flags().String("spider", "", "directory holding tables.json and the split files")
	generateCmd.Flags().String("output", "", "output directory for dataset and policy files")
	generateCmd.Flags().String("overrides", "", "path to a policy overrides file (JSON)")
	generateCmd.Flags().IntP("workers", "w", 0, "worker pool size (0 = one per CPU)")

	_ = viper.BindPFlag("generator-config", generateCmd.Flags().Lookup("generator-config"))
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	logger.Init(logLevel())

	cfg, err := loadGeneratorConfig(cmd)
	if err != nil {
		return err
	}

	// Step 1: schemas
	schemas, err := dataset.LoadSchemas(filepath.Join(cfg.SpiderPath, "tables.json"))
	if err != nil {
		return err
	}
	slog.Info("loaded schemas", "databases", len(schemas))

	// Step 2: policies
	allPolicies, err := policy.GenerateAll(schemas, filepath.Join(cfg.OutputPath, "policies"), cfg.OverridesPath)
	if err != nil {
		return err
	}
	fmt.Print(policy.Summarize(allPolicies))

	// Steps 3-5: process and write each split
	pipeline := &dataset.Pipeline{
		Schemas:  schemas,
		Policies: allPolicies,
		Workers:  cfg.WorkerCount(),
	}

	ctx := context.Background()
	var reports []*dataset.QAReport
	for _, split := range cfg.Splits {
		examples, err := dataset.LoadExamples(filepath.Join(cfg.SpiderPath, split.File))
		if err != nil {
			return err
		}

		records, err := pipeline.ProcessSplit(ctx, split.Name, examples)
		if err != nil {
			return err
		}

		if err := dataset.WriteDataset(records, cfg.OutputPath, split.Name); err != nil {
			return err
		}
		fmt.Print(dataset.Statistics(split.Name, records))

		// Step 6: QA per split
		report := dataset.CheckRecords(split.Name, records)
		fmt.Print(report)
		reports = append(reports, report)
	}

	return dataset.SaveReports(reports, cfg.OutputPath)
}

// loadGeneratorConfig resolves the generator config: the config file first,
// then any explicitly set flags on top.
func loadGeneratorConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if path := viper.GetString("generator-config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("spider") {
		cfg.SpiderPath, _ = cmd.Flags().GetString("spider")
	}
	if cmd.Flags().Changed("output") {
		cfg.OutputPath, _ = cmd.Flags().GetString("output")
	}
	if cmd.Flags().Changed("overrides") {
		cfg.OverridesPath, _ = cmd.Flags().GetString("overrides")
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers, _ = cmd.Flags().GetInt("workers")
	}
	return cfg, nil
}

func logLevel() slog.Level {
	if viper.GetBool("debug") {
		return slog.LevelDebug
	}
	if viper.GetBool("verbose") {
		return slog.LevelInfo
	}
	return slog.LevelWarn
}
