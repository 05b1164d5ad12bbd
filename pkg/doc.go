// Package pkg provides policy-aware SQL analysis and dataset generation for Go applications.
//
// The library classifies every column reference in a parsed SQL query by
// syntactic role, checks those references against per-column access
// policies, and attempts a bounded deterministic rewrite when a query can
// be repaired instead of refused. On top of the analysis core sits a
// dataset pipeline that turns a text-to-SQL corpus into labeled training
// records with gold answers and controlled negative examples.
//
// # Package Structure
//
// The pkg directory contains several specialized packages:
//
//   - analyzer: High-level API combining extraction, checking, and rewriting
//   - extractor: Column reference extraction with syntactic role classification
//   - policy: Access policy model, permission matrix, and name-based assignment
//   - rewrite: Tiered refusal rules and the bounded text rewriter
//   - ast: Decoder for the positional query AST format
//   - schema: Database schema metadata and column resolution
//   - dataset: Corpus loading, gold labeling, negatives, output, and QA checks
//   - types: Core type definitions shared across packages
//   - config: Generator configuration loading
//   - logger: Logging setup
//
// # Getting Started
//
// For a single query, start with the analyzer package:
//
//	import (
//	    "github.com/iammytoo/policy-sql-dataset/pkg/analyzer"
//	    "github.com/iammytoo/policy-sql-dataset/pkg/policy"
//	)
//
//	func main() {
//	    policies := policy.AssignForDatabase(schema)
//	    analysis := analyzer.New(schema, policies).Analyze(queryText, parsedQuery)
//	    // Inspect analysis.Violations and analysis.Rewrite...
//	}
//
// # Policies and Roles
//
// Each column carries one of four policies:
//
//   - Public: usable anywhere
//   - JoinOnly: join conditions only
//   - AggOnly: aggregate-argument use only, restricted to COUNT and AVG
//   - Hidden: never usable
//
// Each reference is classified into one of four roles: select expression,
// join condition, where predicate, or aggregate argument. The permission
// matrix over policy and role decides whether a reference is a violation.
//
// # Rewriting
//
// Violations that can only be repaired by changing query semantics cause a
// refusal. The remaining select-clause violations are repaired in at most
// two passes: Hidden columns are substituted with a public reference
// column from the same table, and bare AggOnly columns are wrapped in
// AVG. Rewrites are plain text edits; the output is a SQL string, not a
// re-serialized tree.
//
// # Dataset Generation
//
// The dataset package drives the full corpus pipeline: load schemas and
// examples, assign policies, analyze every example concurrently, attach
// gold labels and negative examples, write one JSON file per split, and
// run distribution checks over the result. The generate command in cmd
// wires these steps together.
//
// # Thread Safety
//
// Analyzer instances are safe for concurrent use by multiple goroutines
// once constructed. The dataset pipeline fans out across a bounded worker
// pool internally.
package pkg
