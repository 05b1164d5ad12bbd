// Package extractor walks a parsed query and produces the ordered stream of
// column references with the syntactic role each occurrence plays.
package extractor

import (
	"github.com/iammytoo/policy-sql-dataset/pkg/ast"
	"github.com/iammytoo/policy-sql-dataset/pkg/schema"
	"github.com/iammytoo/policy-sql-dataset/pkg/types"
)

// Extract returns every column reference reachable from the query, in
// extraction order: SELECT items, JOIN conditions, WHERE predicates, FROM
// subqueries, then set-operation branches. Nested queries are walked with
// full recursion under the same rules. Column id 0 ("*") carries no column
// identity and never appears in the stream; unresolvable ids are dropped.
func Extract(q *ast.Query, s *schema.Schema) []types.ColumnRef {
	if q == nil {
		return nil
	}

	var refs []types.ColumnRef
	refs = append(refs, fromSelect(q.Select, s)...)
	refs = append(refs, fromConds(q.From.Conds, s, types.RoleJoinCond)...)
	refs = append(refs, fromConds(q.Where, s, types.RoleWherePred)...)

	for _, unit := range q.From.TableUnits {
		if unit.Sub != nil {
			refs = append(refs, Extract(unit.Sub, s)...)
		}
	}

	for _, branch := range []*ast.Query{q.Intersect, q.Union, q.Except} {
		if branch != nil {
			refs = append(refs, Extract(branch, s)...)
		}
	}

	return refs
}

// fromSelect extracts references from the projection list. The effective
// aggregate of a column unit is its own aggregate when non-zero, otherwise
// the item's outer aggregate; a non-zero effective aggregate makes the
// occurrence an AggArg, otherwise a SelectExpr.
func fromSelect(clause ast.SelectClause, s *schema.Schema) []types.ColumnRef {
	var refs []types.ColumnRef
	for _, item := range clause.Items {
		for _, unit := range item.Value.ColUnits() {
			if unit.ColID == 0 {
				continue
			}

			effective := unit.Agg
			if effective == types.AggNone {
				effective = item.Agg
			}

			role := types.RoleSelectExpr
			if effective != types.AggNone {
				role = types.RoleAggArg
			}

			table, column := s.ResolveColumn(unit.ColID)
			if table == "" {
				continue
			}
			refs = append(refs, types.ColumnRef{
				Table:  table,
				Column: column,
				Role:   role,
				Agg:    effective,
			})
		}
	}
	return refs
}

// fromConds extracts references from a condition list, tagging every column
// unit with the caller's role. Aggregates inside predicates do not promote
// the role to AggArg. A right-hand operand that is itself a query is walked
// with full recursion; a bare column operand takes the same role as the
// left-hand side.
func fromConds(conds ast.CondExpr, s *schema.Schema, role types.Role) []types.ColumnRef {
	var refs []types.ColumnRef
	for _, cond := range conds {
		refs = append(refs, condValueRefs(cond.Value, s, role)...)

		for _, operand := range []*ast.CondOperand{cond.Right1, cond.Right2} {
			if operand == nil {
				continue
			}
			if operand.Sub != nil {
				refs = append(refs, Extract(operand.Sub, s)...)
				continue
			}
			if operand.Col != nil && operand.Col.ColID != 0 {
				table, column := s.ResolveColumn(operand.Col.ColID)
				if table == "" {
					continue
				}
				refs = append(refs, types.ColumnRef{
					Table:  table,
					Column: column,
					Role:   role,
					Agg:    operand.Col.Agg,
				})
			}
		}
	}
	return refs
}

func condValueRefs(value ast.ValueExpr, s *schema.Schema, role types.Role) []types.ColumnRef {
	var refs []types.ColumnRef
	for _, unit := range value.ColUnits() {
		if unit.ColID == 0 {
			continue
		}
		table, column := s.ResolveColumn(unit.ColID)
		if table == "" {
			continue
		}
		refs = append(refs, types.ColumnRef{
			Table:  table,
			Column: column,
			Role:   role,
			Agg:    unit.Agg,
		})
	}
	return refs
}

// HasSelectStar reports whether the query, any FROM subquery, or any
// set-operation branch projects an unaggregated "*". Aggregated wildcard
// usages such as COUNT(*) do not count.
func HasSelectStar(q *ast.Query) bool {
	if q == nil {
		return false
	}

	for _, item := range q.Select.Items {
		unit := item.Value.Left
		if unit != nil && unit.ColID == 0 && unit.Agg == types.AggNone && item.Agg == types.AggNone {
			return true
		}
	}

	for _, unit := range q.From.TableUnits {
		if unit.Sub != nil && HasSelectStar(unit.Sub) {
			return true
		}
	}

	for _, branch := range []*ast.Query{q.Intersect, q.Union, q.Except} {
		if branch != nil && HasSelectStar(branch) {
			return true
		}
	}

	return false
}
