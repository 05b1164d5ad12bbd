package policy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"

	"github.com/iammytoo/policy-sql-dataset/pkg/schema"
	"github.com/iammytoo/policy-sql-dataset/pkg/types"
)

// assignRule maps a column-name pattern to the policy it implies. Rules are
// evaluated in order; the first match wins.
type assignRule struct {
	pattern *regexp.Regexp
	policy  types.Policy
}

// idPatterns are the identifier-naming conventions for reference columns.
// They drive both initial JoinOnly assignment and the Hidden-column
// replacement search in the rewriter.
var idPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^id$`),
	regexp.MustCompile(`(?i)_id$`),
	regexp.MustCompile(`(?i)^id_`),
	regexp.MustCompile(`(?i)_code$`),
	regexp.MustCompile(`(?i)^stuid$`),
}

var assignRules = buildAssignRules()

func buildAssignRules() []assignRule {
	var rules []assignRule
	for _, p := range idPatterns {
		rules = append(rules, assignRule{p, types.PolicyJoinOnly})
	}
	for _, expr := range []string{
		`(?i)email`, `(?i)phone`, `(?i)address`, `(?i)gender`,
		`(?i)nationality`, `(?i)birth`, `(?i)ssn`, `(?i)password`,
		`(?i)^sex$`, `(?i)^weight$`, `(?i)^height$`, `(?i)^age$`,
	} {
		rules = append(rules, assignRule{regexp.MustCompile(expr), types.PolicyHidden})
	}
	for _, expr := range []string{
		`(?i)salary`, `(?i)income`, `(?i)price`, `(?i)amount`, `(?i)cost`,
		`(?i)budget`, `(?i)balance`, `(?i)revenue`, `(?i)profit`,
		`(?i)score`, `(?i)rating`, `(?i)^total$`,
	} {
		rules = append(rules, assignRule{regexp.MustCompile(expr), types.PolicyAggOnly})
	}
	return rules
}

// IsReferenceName reports whether a column name matches the identifier
// naming conventions (id, *_id, id_*, *_code, stuid).
func IsReferenceName(name string) bool {
	for _, p := range idPatterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

// Assign determines the policy for a column from its name alone.
func Assign(columnName string) types.Policy {
	for _, rule := range assignRules {
		if rule.pattern.MatchString(columnName) {
			return rule.policy
		}
	}
	return types.PolicyPublic
}

// AssignForDatabase assigns a policy to every owned column in the schema.
func AssignForDatabase(s *schema.Schema) Map {
	policies := make(Map)
	for colID := 1; colID < len(s.Columns); colID++ {
		key := s.ColumnKey(colID)
		if key == "" {
			continue
		}
		policies[key] = Assign(s.Columns[colID].Name)
	}
	return policies
}

// Override is one manual policy correction from an overrides file.
type Override struct {
	DBID        string       `json:"db_id"`
	Table       string       `json:"table"`
	Column      string       `json:"column"`
	FinalPolicy types.Policy `json:"final_policy"`
}

// LoadOverrides reads an overrides file. A missing file is not an error;
// it simply yields no overrides.
func LoadOverrides(path string) ([]Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read overrides file: %s", path)
	}
	var overrides []Override
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, errors.Wrapf(err, "failed to parse overrides file: %s", path)
	}
	return overrides, nil
}

// ApplyOverrides patches assigned policies with manual corrections for the
// given database. Overrides for columns the schema does not know are ignored.
func ApplyOverrides(policies Map, overrides []Override, dbID string) Map {
	for _, ov := range overrides {
		if ov.DBID != dbID {
			continue
		}
		key := ov.Table + "." + ov.Column
		if _, ok := policies[key]; ok {
			policies[key] = ov.FinalPolicy
		}
	}
	return policies
}

// policyFile is the per-database JSON document written for each policy map.
type policyFile struct {
	DBID     string `json:"db_id"`
	Policies Map    `json:"policies"`
}

// LoadFile reads a per-database policy file previously written by
// GenerateAll and returns the database id with its policy map.
func LoadFile(path string) (string, Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, errors.Wrapf(err, "failed to read policy file: %s", path)
	}
	var doc policyFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", nil, errors.Wrapf(err, "failed to parse policy file: %s", path)
	}
	return doc.DBID, doc.Policies, nil
}

// GenerateAll assigns policies for every database, applies overrides, and
// writes one policy JSON file per database under outputDir.
func GenerateAll(schemas map[string]*schema.Schema, outputDir, overridesPath string) (map[string]Map, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create policy output dir: %s", outputDir)
	}

	var overrides []Override
	if overridesPath != "" {
		var err error
		overrides, err = LoadOverrides(overridesPath)
		if err != nil {
			return nil, err
		}
	}

	all := make(map[string]Map, len(schemas))
	for dbID, s := range schemas {
		policies := ApplyOverrides(AssignForDatabase(s), overrides, dbID)
		all[dbID] = policies

		data, err := json.MarshalIndent(policyFile{DBID: dbID, Policies: policies}, "", "  ")
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode policies for %s", dbID)
		}
		path := filepath.Join(outputDir, dbID+".json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, errors.Wrapf(err, "failed to write policy file: %s", path)
		}
	}
	return all, nil
}
