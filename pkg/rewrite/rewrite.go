// Package rewrite attempts a bounded, deterministic rewrite that brings a
// violating query into compliance, or certifies that no compliant rewrite
// exists. It edits the query text with whole-token substitutions guided by
// the structural violation list; it never re-parses the result.
package rewrite

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/iammytoo/policy-sql-dataset/pkg/policy"
	"github.com/iammytoo/policy-sql-dataset/pkg/schema"
	"github.com/iammytoo/policy-sql-dataset/pkg/types"
)

// maxPasses caps the iterative rewrite loop.
const maxPasses = 2

// refusalReasonLimit is the fixed reason for violations still unresolved
// after the final pass.
const refusalReasonLimit = "Rewrite limit exceeded"

// refusalRule is one tier of the pre-rewrite decision procedure. Tiers are
// evaluated in order against the whole violation list; the first violation
// matched by any tier refuses the whole call.
type refusalRule struct {
	match  func(types.Violation) bool
	reason func(types.Violation) string
}

var refusalRules = []refusalRule{
	// Predicate positions cannot shed their semantic dependency on a
	// forbidden column.
	{
		match: func(v types.Violation) bool {
			return (v.Role == types.RoleWherePred || v.Role == types.RoleJoinCond) &&
				(v.Policy == types.PolicyHidden || v.Policy == types.PolicyAggOnly)
		},
		reason: func(v types.Violation) string {
			return fmt.Sprintf("%s column in %s: %s", v.Policy, v.Role, v.Column)
		},
	},
	// AggOnly columns only tolerate COUNT and AVG.
	{
		match: func(v types.Violation) bool {
			return v.Role == types.RoleAggArg && v.Policy == types.PolicyAggOnly &&
				v.Agg != types.AggCount && v.Agg != types.AggAvg
		},
		reason: func(v types.Violation) string {
			return fmt.Sprintf("AggOnly column with non-AVG/COUNT aggregate: %s", v.Column)
		},
	},
	// Hidden and JoinOnly forbid aggregate use entirely.
	{
		match: func(v types.Violation) bool {
			return v.Role == types.RoleAggArg &&
				(v.Policy == types.PolicyHidden || v.Policy == types.PolicyJoinOnly)
		},
		reason: func(v types.Violation) string {
			return fmt.Sprintf("%s column in AggArg: %s", v.Policy, v.Column)
		},
	},
	// A JoinOnly column has no compliant projection substitute that
	// preserves its identity as authored.
	{
		match: func(v types.Violation) bool {
			return v.Role == types.RoleSelectExpr && v.Policy == types.PolicyJoinOnly
		},
		reason: func(v types.Violation) string {
			return fmt.Sprintf("JoinOnly column in SelectExpr: %s", v.Column)
		},
	},
}

// Rewrite attempts to bring the query into compliance. With no violations
// the original text is returned unchanged. Otherwise the tiered refusal
// rules run first; surviving SelectExpr violations (Hidden or AggOnly by
// elimination) go through up to two rewrite passes.
func Rewrite(query string, violations []types.Violation, s *schema.Schema, policies policy.Map) types.RewriteResult {
	if len(violations) == 0 {
		return types.RewriteSuccess(query)
	}

	for _, rule := range refusalRules {
		for _, v := range violations {
			if rule.match(v) {
				return types.RewriteRefused(rule.reason(v))
			}
		}
	}

	var pending []types.Violation
	for _, v := range violations {
		if v.Role == types.RoleSelectExpr {
			pending = append(pending, v)
		}
	}
	if len(pending) == 0 {
		// Everything else was resolved as non-fatal by the tiers above.
		return types.RewriteSuccess(query)
	}

	current := query
	for pass := 0; pass < maxPasses; pass++ {
		current, pending = applyPass(current, pending, s, policies)
		if len(pending) == 0 {
			return types.RewriteSuccess(current)
		}
	}
	return types.RewriteRefused(refusalReasonLimit)
}

// applyPass runs one rewrite pass over the pending SelectExpr violations and
// returns the mutated text plus the violations that carried over unresolved.
func applyPass(query string, pending []types.Violation, s *schema.Schema, policies policy.Map) (string, []types.Violation) {
	var remaining []types.Violation

	for _, v := range pending {
		switch v.Policy {
		case types.PolicyHidden:
			replacement := findReferenceColumn(v.Column, s, policies)
			if replacement == "" {
				remaining = append(remaining, v)
				continue
			}
			query = replaceColumn(query, v.Column, replacement)

		case types.PolicyAggOnly:
			rewritten, resolved := wrapWithAvg(query, bareName(v.Column))
			if !resolved {
				remaining = append(remaining, v)
				continue
			}
			query = rewritten

		default:
			remaining = append(remaining, v)
		}
	}

	return query, remaining
}

// findReferenceColumn searches the violating column's table for a Public
// column matching the reference-column naming conventions. Primary keys win
// ties; remaining ties break by ascending column id. Returns the replacement
// column key, or "" when no candidate exists.
func findReferenceColumn(columnKey string, s *schema.Schema, policies policy.Map) string {
	table, _, _ := strings.Cut(columnKey, ".")

	type candidate struct {
		pk    bool
		colID int
		key   string
	}
	var candidates []candidate

	for _, colID := range s.ColumnsForTable(table) {
		name := s.Columns[colID].Name
		if !policy.IsReferenceName(name) {
			continue
		}
		key := s.ColumnKey(colID)
		if policies.Get(key) != types.PolicyPublic {
			continue
		}
		candidates = append(candidates, candidate{
			pk:    s.IsPrimaryKey(colID),
			colID: colID,
			key:   key,
		})
	}
	if len(candidates) == 0 {
		return ""
	}

	slices.SortFunc(candidates, func(a, b candidate) int {
		if a.pk != b.pk {
			if a.pk {
				return -1
			}
			return 1
		}
		return a.colID - b.colID
	})
	return candidates[0].key
}

// replaceColumn substitutes every whole-word occurrence of the old column's
// bare name with the replacement's bare name, case-insensitively.
func replaceColumn(query, oldKey, newKey string) string {
	pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(bareName(oldKey)) + `\b`)
	return pattern.ReplaceAllLiteralString(query, bareName(newKey))
}

var selectPartRe = regexp.MustCompile(`(?is)\bSELECT\b(.+?)\bFROM\b`)

// wrapWithAvg wraps bare occurrences of the column inside the SELECT clause
// with AVG(...), preserving a table-alias qualifier. A column that already
// appears inside an aggregate call is reported resolved without any edit;
// a column with no textual occurrence to wrap is reported unresolved.
func wrapWithAvg(query, colName string) (string, bool) {
	loc := selectPartRe.FindStringSubmatchIndex(query)
	if loc == nil {
		return query, false
	}
	selectPart := query[loc[2]:loc[3]]

	quoted := regexp.QuoteMeta(colName)
	aggregated := regexp.MustCompile(`(?i)\b(AVG|COUNT|SUM|MAX|MIN)\s*\([^)]*\b` + quoted + `\b[^)]*\)`)
	if aggregated.MatchString(selectPart) {
		return query, true
	}

	bare := regexp.MustCompile(`(?i)\b((?:\w+\.)?)(` + quoted + `)\b`)
	wrapped := bare.ReplaceAllStringFunc(selectPart, func(match string) string {
		sub := bare.FindStringSubmatch(match)
		return "AVG(" + sub[1] + colName + ")"
	})
	if wrapped == selectPart {
		return query, false
	}
	return query[:loc[2]] + wrapped + query[loc[3]:], true
}

func bareName(columnKey string) string {
	if i := strings.LastIndexByte(columnKey, '.'); i >= 0 {
		return columnKey[i+1:]
	}
	return columnKey
}
