package dataset

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/iammytoo/policy-sql-dataset/pkg/types"
)

// WriteDataset writes the records of one split as <split>.json under
// outputPath.
func WriteDataset(records []types.Record, outputPath, split string) error {
	if err := os.MkdirAll(outputPath, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create output dir: %s", outputPath)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to encode records for split %s", split)
	}

	path := filepath.Join(outputPath, split+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write dataset file: %s", path)
	}

	slog.Info("wrote dataset", "split", split, "records", len(records), "path", path)
	return nil
}

// SplitStats summarizes the records of one split.
type SplitStats struct {
	Split          string
	Total          int
	WithViolations int
	GoldSQL        int
	GoldRefuse     int
	WithNegative   int
}

// Statistics computes the output statistics for a split.
func Statistics(split string, records []types.Record) SplitStats {
	stats := SplitStats{Split: split, Total: len(records)}
	for _, r := range records {
		if len(r.Violations) > 0 {
			stats.WithViolations++
		}
		if r.GoldLabel.Type == types.GoldTypeSQL {
			stats.GoldSQL++
		} else {
			stats.GoldRefuse++
		}
		if len(r.NegativeExamples) > 0 {
			stats.WithNegative++
		}
	}
	return stats
}

func (s SplitStats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Output Statistics (%s) ===\n", s.Split)
	if s.Total == 0 {
		b.WriteString("  No records to report.\n")
		return b.String()
	}
	pct := func(n int) float64 { return float64(n) / float64(s.Total) * 100 }
	fmt.Fprintf(&b, "  Total records: %d\n", s.Total)
	fmt.Fprintf(&b, "  With violations: %d (%.1f%%)\n", s.WithViolations, pct(s.WithViolations))
	fmt.Fprintf(&b, "  Gold SQL: %d (%.1f%%)\n", s.GoldSQL, pct(s.GoldSQL))
	fmt.Fprintf(&b, "  Gold REFUSE: %d (%.1f%%)\n", s.GoldRefuse, pct(s.GoldRefuse))
	fmt.Fprintf(&b, "  With negative: %d (%.1f%%)\n", s.WithNegative, pct(s.WithNegative))
	return b.String()
}
