// Package analyzer provides a high-level API tying one database's schema
// and column policies to the core analysis sequence: role extraction,
// violation checking, and the rewrite attempt.
//
// # Quick Start
//
//	a := analyzer.New(dbSchema, policies)
//	analysis := a.Analyze(example.Query, example.SQL)
//	if !analysis.Compliant() {
//	    fmt.Println(analysis.Rewrite.Reason)
//	}
package analyzer

import (
	"github.com/iammytoo/policy-sql-dataset/pkg/ast"
	"github.com/iammytoo/policy-sql-dataset/pkg/extractor"
	"github.com/iammytoo/policy-sql-dataset/pkg/policy"
	"github.com/iammytoo/policy-sql-dataset/pkg/rewrite"
	"github.com/iammytoo/policy-sql-dataset/pkg/schema"
	"github.com/iammytoo/policy-sql-dataset/pkg/types"
)

// Analyzer runs the per-query analysis sequence against a fixed schema and
// policy map.
//
// Analyzer is safe for concurrent use by multiple goroutines: it holds only
// read-only state and every Analyze call is pure.
type Analyzer struct {
	schema   *schema.Schema
	policies policy.Map
}

// New creates an Analyzer for one database.
func New(s *schema.Schema, policies policy.Map) *Analyzer {
	return &Analyzer{schema: s, policies: policies}
}

// Analysis is the outcome of analyzing one query.
type Analysis struct {
	// Refs is the full reference stream in extraction order.
	Refs []types.ColumnRef

	// Violations lists the disallowed references, in extraction order.
	Violations []types.Violation

	// Rewrite is the rewrite outcome. Nil when there was nothing to fix.
	Rewrite *types.RewriteResult

	// HasStar reports an unaggregated SELECT * anywhere in the query.
	HasStar bool
}

// Compliant reports whether the query may be answered as-is or after the
// rewrite: no unaggregated SELECT *, and either no violations or a
// successful rewrite.
func (a Analysis) Compliant() bool {
	if a.HasStar {
		return false
	}
	if len(a.Violations) == 0 {
		return true
	}
	return a.Rewrite != nil && a.Rewrite.OK
}

// Analyze runs extraction, checking, and (when violations exist) the
// rewrite attempt for one query. queryText is the authored SQL; q is its
// parsed form.
func (a *Analyzer) Analyze(queryText string, q *ast.Query) Analysis {
	refs := extractor.Extract(q, a.schema)
	violations := policy.CheckViolations(refs, a.policies)

	var result *types.RewriteResult
	if len(violations) > 0 {
		r := rewrite.Rewrite(queryText, violations, a.schema, a.policies)
		result = &r
	}

	return Analysis{
		Refs:       refs,
		Violations: violations,
		Rewrite:    result,
		HasStar:    extractor.HasSelectStar(q),
	}
}
