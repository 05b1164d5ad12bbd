package policy

import (
	"fmt"
	"strings"

	"github.com/iammytoo/policy-sql-dataset/pkg/types"
)

// Distribution summarizes assigned policies across all databases.
type Distribution struct {
	Counts            map[types.Policy]int
	TotalColumns      int
	TotalTables       int
	TablesWithHidden  int
	TablesWithAggOnly int
	DBsWithSensitive  int
	TotalDBs          int
}

// Summarize computes the policy distribution and per-table coverage over a
// set of per-database policy maps.
func Summarize(all map[string]Map) Distribution {
	d := Distribution{
		Counts:   make(map[types.Policy]int),
		TotalDBs: len(all),
	}

	for _, policies := range all {
		tablePolicies := make(map[string]map[types.Policy]bool)
		hasSensitive := false

		for key, p := range policies {
			d.Counts[p]++
			d.TotalColumns++

			table, _, _ := strings.Cut(key, ".")
			if tablePolicies[table] == nil {
				tablePolicies[table] = make(map[types.Policy]bool)
			}
			tablePolicies[table][p] = true

			if p == types.PolicyHidden || p == types.PolicyAggOnly {
				hasSensitive = true
			}
		}

		for _, pols := range tablePolicies {
			d.TotalTables++
			if pols[types.PolicyHidden] {
				d.TablesWithHidden++
			}
			if pols[types.PolicyAggOnly] {
				d.TablesWithAggOnly++
			}
		}

		if hasSensitive {
			d.DBsWithSensitive++
		}
	}
	return d
}

func (d Distribution) String() string {
	var b strings.Builder
	b.WriteString("Policy Distribution:\n")
	for _, p := range []types.Policy{
		types.PolicyPublic, types.PolicyJoinOnly, types.PolicyAggOnly, types.PolicyHidden,
	} {
		pct := 0.0
		if d.TotalColumns > 0 {
			pct = float64(d.Counts[p]) / float64(d.TotalColumns) * 100
		}
		fmt.Fprintf(&b, "  %-10s: %4d (%5.1f%%)\n", p, d.Counts[p], pct)
	}
	if d.TotalTables > 0 {
		fmt.Fprintf(&b, "Tables with Hidden:  %.1f%%\n",
			float64(d.TablesWithHidden)/float64(d.TotalTables)*100)
		fmt.Fprintf(&b, "Tables with AggOnly: %.1f%%\n",
			float64(d.TablesWithAggOnly)/float64(d.TotalTables)*100)
	}
	if d.TotalDBs > 0 {
		fmt.Fprintf(&b, "DBs with Hidden or AggOnly: %.1f%%\n",
			float64(d.DBsWithSensitive)/float64(d.TotalDBs)*100)
	}
	return b.String()
}
