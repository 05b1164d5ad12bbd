// Package config loads generator settings from YAML or JSON files.
package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"runtime"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Split names one dataset split and the corpus file it is built from.
type Split struct {
	Name string `yaml:"name" json:"name"`
	File string `yaml:"file" json:"file"`
}

// Config holds the settings for one dataset generation run.
type Config struct {
	// SpiderPath is the directory holding tables.json and the split files.
	SpiderPath string `yaml:"spiderPath" json:"spiderPath"`
	// OutputPath is the directory dataset files and policies are written to.
	OutputPath string `yaml:"outputPath" json:"outputPath"`
	// OverridesPath optionally points at a manual policy override file.
	OverridesPath string `yaml:"overridesPath" json:"overridesPath"`
	// Splits lists the splits to process, in order.
	Splits []Split `yaml:"splits" json:"splits"`
	// Workers bounds the pipeline worker pool; 0 means one per CPU.
	Workers int `yaml:"workers" json:"workers"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		SpiderPath: "spider_data",
		OutputPath: "data",
		Splits: []Split{
			{Name: "train", File: "train_spider.json"},
			{Name: "dev", File: "dev.json"},
		},
	}
}

// LoadFromFile loads configuration from a YAML or JSON file. Fields left
// unset fall back to the defaults.
func LoadFromFile(filename string) (*Config, error) {
	slog.Debug("Loading config from file", "filename", filename)
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file: %s", filename)
	}

	cfg := Default()

	// Try YAML first, then JSON
	if yamlErr := yaml.Unmarshal(data, cfg); yamlErr != nil {
		slog.Debug("YAML unmarshal failed, trying JSON", "error", yamlErr)
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, errors.Wrapf(jsonErr, "failed to parse config file: %s", filename)
		}
	}

	cfg.applyDefaults()
	slog.Debug("Loaded config", "splits", len(cfg.Splits), "workers", cfg.Workers)
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.SpiderPath == "" {
		c.SpiderPath = def.SpiderPath
	}
	if c.OutputPath == "" {
		c.OutputPath = def.OutputPath
	}
	if len(c.Splits) == 0 {
		c.Splits = def.Splits
	}
}

// WorkerCount resolves the effective worker pool size.
func (c *Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}
