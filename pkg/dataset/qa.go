package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/iammytoo/policy-sql-dataset/pkg/types"
)

// QA thresholds. Rates outside these bands usually mean the policy
// heuristics drifted or a split is skewed toward a few databases.
const (
	qaMinViolationRate = 0.10
	qaMaxViolationRate = 0.30
	qaMinRefuseRate    = 0.05
	qaMaxRefuseRate    = 0.15
	qaMaxRefuseStdev   = 0.30
	qaMinJoinCondShare = 0.05
)

// QAReport aggregates quality checks over one generated split.
type QAReport struct {
	Split              string             `json:"split"`
	TotalRecords       int                `json:"total_records"`
	ViolationRate      float64            `json:"violation_rate"`
	RefuseRate         float64            `json:"refuse_rate"`
	NegativeRate       float64            `json:"negative_rate"`
	RoleDistribution   map[string]int     `json:"role_distribution"`
	PolicyDistribution map[string]int     `json:"policy_distribution"`
	DBRefuseRates      map[string]float64 `json:"-"`
	Warnings           []string           `json:"warnings"`
}

// RunQACheck loads a written split and computes its QA report.
func RunQACheck(dataPath, split string) (*QAReport, error) {
	path := filepath.Join(dataPath, split+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read dataset file: %s", path)
	}
	var records []types.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrapf(err, "failed to parse dataset file: %s", path)
	}
	return CheckRecords(split, records), nil
}

// CheckRecords computes the QA report for a split's records.
func CheckRecords(split string, records []types.Record) *QAReport {
	report := &QAReport{
		Split:              split,
		TotalRecords:       len(records),
		RoleDistribution:   make(map[string]int),
		PolicyDistribution: make(map[string]int),
		DBRefuseRates:      make(map[string]float64),
	}
	if len(records) == 0 {
		report.Warnings = append(report.Warnings, "No data found")
		return report
	}
	total := float64(len(records))

	withViolations := 0
	refused := 0
	withNegative := 0
	invalidNegatives := 0
	dbTotals := make(map[string]int)
	dbRefused := make(map[string]int)

	for _, r := range records {
		if len(r.Violations) > 0 {
			withViolations++
		}
		if r.GoldLabel.Type == types.GoldTypeRefuse {
			refused++
			dbRefused[r.DBID]++
		}
		if len(r.NegativeExamples) > 0 {
			withNegative++
		}
		dbTotals[r.DBID]++

		for _, neg := range r.NegativeExamples {
			if len(neg.Violations) != 1 {
				invalidNegatives++
			}
		}
		for _, v := range r.Violations {
			report.RoleDistribution[v.Role.String()]++
			report.PolicyDistribution[v.Policy.String()]++
		}
	}

	report.ViolationRate = float64(withViolations) / total
	report.RefuseRate = float64(refused) / total
	report.NegativeRate = float64(withNegative) / total

	if report.ViolationRate < qaMinViolationRate {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("Q1: Violation rate too low: %.1f%% (expected >%.0f%%)",
				report.ViolationRate*100, qaMinViolationRate*100))
	} else if report.ViolationRate > qaMaxViolationRate {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("Q1: Violation rate too high: %.1f%% (expected <%.0f%%)",
				report.ViolationRate*100, qaMaxViolationRate*100))
	}

	if report.RefuseRate < qaMinRefuseRate {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("Q2: REFUSE rate too low: %.1f%% (expected >%.0f%%)",
				report.RefuseRate*100, qaMinRefuseRate*100))
	} else if report.RefuseRate > qaMaxRefuseRate {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("Q2: REFUSE rate too high: %.1f%% (expected <%.0f%%)",
				report.RefuseRate*100, qaMaxRefuseRate*100))
	}

	var rates []float64
	for db, n := range dbTotals {
		rate := float64(dbRefused[db]) / float64(n)
		report.DBRefuseRates[db] = rate
		rates = append(rates, rate)
	}
	if stdev := sampleStdev(rates); stdev > qaMaxRefuseStdev {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("Q3: High DB REFUSE rate variance: stdev=%.2f (expected <%.1f)",
				stdev, qaMaxRefuseStdev))
	}

	if invalidNegatives > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("Q4: %d negative examples with edit distance != 1", invalidNegatives))
	}

	totalViolations := 0
	for _, n := range report.RoleDistribution {
		totalViolations += n
	}
	if totalViolations > 0 {
		joinCondShare := float64(report.RoleDistribution[types.RoleJoinCond.String()]) / float64(totalViolations)
		if joinCondShare < qaMinJoinCondShare {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("Q5: JoinCond violations very rare: %.1f%% (expected >%.0f%%)",
					joinCondShare*100, qaMinJoinCondShare*100))
		}
	}

	return report
}

// sampleStdev is the sample standard deviation; zero for fewer than two
// observations.
func sampleStdev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	variance := 0.0
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	variance /= float64(len(xs) - 1)
	return math.Sqrt(variance)
}

func (r *QAReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "QA Report: %s\n", r.Split)
	fmt.Fprintf(&b, "  Total records: %d\n", r.TotalRecords)
	fmt.Fprintf(&b, "  Violation rate: %.1f%%\n", r.ViolationRate*100)
	fmt.Fprintf(&b, "  REFUSE rate: %.1f%%\n", r.RefuseRate*100)
	fmt.Fprintf(&b, "  Negative rate: %.1f%%\n", r.NegativeRate*100)

	if len(r.RoleDistribution) > 0 {
		b.WriteString("  Role distribution:\n")
		for _, k := range sortedKeys(r.RoleDistribution) {
			fmt.Fprintf(&b, "    %s: %d\n", k, r.RoleDistribution[k])
		}
	}
	if len(r.PolicyDistribution) > 0 {
		b.WriteString("  Policy distribution:\n")
		for _, k := range sortedKeys(r.PolicyDistribution) {
			fmt.Fprintf(&b, "    %s: %d\n", k, r.PolicyDistribution[k])
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("  WARNINGS:\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "    ! %s\n", w)
		}
	} else {
		b.WriteString("  No warnings.\n")
	}
	return b.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SaveReports writes all QA reports to qa_report.json under outputPath.
func SaveReports(reports []*QAReport, outputPath string) error {
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode QA reports")
	}
	path := filepath.Join(outputPath, "qa_report.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write QA report: %s", path)
	}
	return nil
}
