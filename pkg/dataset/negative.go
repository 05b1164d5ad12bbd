package dataset

import (
	"regexp"
	"strings"

	"github.com/iammytoo/policy-sql-dataset/pkg/ast"
	"github.com/iammytoo/policy-sql-dataset/pkg/policy"
	"github.com/iammytoo/policy-sql-dataset/pkg/schema"
	"github.com/iammytoo/policy-sql-dataset/pkg/types"
)

var selectKeywordRe = regexp.MustCompile(`(?i)\bSELECT\s+`)

// GenerateNegatives produces at most one near-miss variant of the query,
// carrying exactly the single violation that was injected. Strategies are
// tried in priority order: add a Hidden column to SELECT, strip the
// aggregate from an AggOnly column, add a JoinOnly column to SELECT.
// Candidate columns are scanned in schema order so output is deterministic.
func GenerateNegatives(query string, q *ast.Query, policies policy.Map, s *schema.Schema) []types.NegativeExample {
	if neg := tryAddColumn(query, q, policies, s, types.PolicyHidden); neg != nil {
		return []types.NegativeExample{*neg}
	}
	if neg := tryUnwrapAgg(query, policies, s); neg != nil {
		return []types.NegativeExample{*neg}
	}
	if neg := tryAddColumn(query, q, policies, s, types.PolicyJoinOnly); neg != nil {
		return []types.NegativeExample{*neg}
	}
	return nil
}

// tryAddColumn injects a column with the target policy into the SELECT
// clause, choosing the first candidate from the query's own tables that
// does not already occur in the text.
func tryAddColumn(query string, q *ast.Query, policies policy.Map, s *schema.Schema, target types.Policy) *types.NegativeExample {
	lowerQuery := strings.ToLower(query)

	for _, table := range queryTables(q, s) {
		for _, colID := range s.ColumnsForTable(table) {
			key := s.ColumnKey(colID)
			if policies.Get(key) != target {
				continue
			}
			name := s.Columns[colID].Name
			if strings.Contains(lowerQuery, strings.ToLower(name)) {
				continue
			}
			return &types.NegativeExample{
				SQL: addToSelect(query, name),
				Violations: []types.Violation{{
					Column: key,
					Role:   types.RoleSelectExpr,
					Policy: target,
					Agg:    types.AggNone,
				}},
			}
		}
	}
	return nil
}

// tryUnwrapAgg strips the first AVG/COUNT wrapper from an AggOnly column,
// leaving a bare projection of it.
func tryUnwrapAgg(query string, policies policy.Map, s *schema.Schema) *types.NegativeExample {
	for colID := 1; colID < len(s.Columns); colID++ {
		key := s.ColumnKey(colID)
		if key == "" || policies.Get(key) != types.PolicyAggOnly {
			continue
		}
		name := s.Columns[colID].Name

		pattern := regexp.MustCompile(`(?i)\b(AVG|COUNT)\s*\(\s*` + regexp.QuoteMeta(name) + `\s*\)`)
		loc := pattern.FindStringIndex(query)
		if loc == nil {
			continue
		}
		return &types.NegativeExample{
			SQL: query[:loc[0]] + name + query[loc[1]:],
			Violations: []types.Violation{{
				Column: key,
				Role:   types.RoleSelectExpr,
				Policy: types.PolicyAggOnly,
				Agg:    types.AggNone,
			}},
		}
	}
	return nil
}

// addToSelect prepends a column to the SELECT clause.
func addToSelect(query, colName string) string {
	loc := selectKeywordRe.FindStringIndex(query)
	if loc == nil {
		return query
	}
	return query[:loc[0]] + "SELECT " + colName + ", " + query[loc[1]:]
}

// queryTables lists the base tables referenced by the FROM clause, recursing
// into subqueries, in clause order.
func queryTables(q *ast.Query, s *schema.Schema) []string {
	if q == nil {
		return nil
	}
	var tables []string
	for _, unit := range q.From.TableUnits {
		if unit.Sub != nil {
			tables = append(tables, queryTables(unit.Sub, s)...)
			continue
		}
		if unit.TableIndex >= 0 && unit.TableIndex < len(s.TableNames) {
			tables = append(tables, s.TableNames[unit.TableIndex])
		}
	}
	return tables
}
