package dataset

import (
	"github.com/iammytoo/policy-sql-dataset/pkg/analyzer"
	"github.com/iammytoo/policy-sql-dataset/pkg/types"
)

// GoldLabelFor derives the evaluation label for one example. An unaggregated
// SELECT * anywhere in the query is refused outright; otherwise the label is
// the original SQL when nothing was violated, the rewritten SQL when the
// rewrite succeeded, and a refusal when it did not.
func GoldLabelFor(ex Example, a analyzer.Analysis) types.GoldLabel {
	if a.HasStar {
		return types.GoldRefuse()
	}
	if len(a.Violations) == 0 {
		return types.GoldSQL(ex.Query)
	}
	if a.Rewrite != nil && a.Rewrite.OK {
		return types.GoldSQL(a.Rewrite.SQL)
	}
	return types.GoldRefuse()
}
