// Package policy holds the per-column access model: the permission matrix
// over (policy, role, aggregate), violation detection, and the naming
// heuristics that assign initial policies to schema columns.
package policy

import (
	"github.com/iammytoo/policy-sql-dataset/pkg/types"
)

// permissionTable is the base policy × role decision, before the AggOnly
// aggregate restriction.
var permissionTable = map[types.Policy]map[types.Role]bool{
	types.PolicyPublic: {
		types.RoleSelectExpr: true,
		types.RoleJoinCond:   true,
		types.RoleWherePred:  true,
		types.RoleAggArg:     true,
	},
	types.PolicyJoinOnly: {
		types.RoleSelectExpr: false,
		types.RoleJoinCond:   true,
		types.RoleWherePred:  true,
		types.RoleAggArg:     false,
	},
	types.PolicyAggOnly: {
		types.RoleSelectExpr: false,
		types.RoleJoinCond:   false,
		types.RoleWherePred:  false,
		types.RoleAggArg:     true,
	},
	types.PolicyHidden: {
		types.RoleSelectExpr: false,
		types.RoleJoinCond:   false,
		types.RoleWherePred:  false,
		types.RoleAggArg:     false,
	},
}

// aggOnlyAllowed lists the aggregate functions an AggOnly column may appear
// under when used as an AggArg.
var aggOnlyAllowed = map[types.AggFunc]bool{
	types.AggCount: true,
	types.AggAvg:   true,
}

// IsAllowed reports whether a column with the given policy may occupy the
// given role under the given aggregate. It is total over the enumerations.
func IsAllowed(policy types.Policy, role types.Role, agg types.AggFunc) bool {
	if !permissionTable[policy][role] {
		return false
	}
	if policy == types.PolicyAggOnly && role == types.RoleAggArg && !aggOnlyAllowed[agg] {
		return false
	}
	return true
}

// Map is a per-database column policy lookup keyed by "table.column".
// It is externally assigned and read-only during processing.
type Map map[string]types.Policy

// Get resolves the policy for a column key, defaulting to Public when no
// explicit entry exists.
func (m Map) Get(key string) types.Policy {
	if p, ok := m[key]; ok {
		return p
	}
	return types.PolicyPublic
}

// CheckViolations classifies every reference against the policy map and
// returns the disallowed ones in extraction order. Repeated occurrences of
// the same disallowed column produce repeated violations; multiplicity is
// preserved for downstream reasoning.
func CheckViolations(refs []types.ColumnRef, policies Map) []types.Violation {
	var violations []types.Violation
	for _, ref := range refs {
		p := policies.Get(ref.Key())
		if IsAllowed(p, ref.Role, ref.Agg) {
			continue
		}
		violations = append(violations, types.Violation{
			Column: ref.Key(),
			Role:   ref.Role,
			Policy: p,
			Agg:    ref.Agg,
		})
	}
	return violations
}
