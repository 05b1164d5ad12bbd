package dataset

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/iammytoo/policy-sql-dataset/pkg/analyzer"
	"github.com/iammytoo/policy-sql-dataset/pkg/policy"
	"github.com/iammytoo/policy-sql-dataset/pkg/schema"
	"github.com/iammytoo/policy-sql-dataset/pkg/types"
)

// Pipeline runs the full per-example analysis over a split. Per-example
// processing is pure and independent, so examples are fanned out to a
// bounded worker pool; record order follows input order regardless of
// completion order.
type Pipeline struct {
	Schemas  map[string]*schema.Schema
	Policies map[string]policy.Map
	Workers  int
}

// ProcessSplit analyzes every example of one split and assembles the dataset
// records. The context cancels outstanding work.
func (p *Pipeline) ProcessSplit(ctx context.Context, split string, examples []Example) ([]types.Record, error) {
	slog.Info("processing split", "split", split, "examples", len(examples), "workers", p.workerCount())

	records := make([]types.Record, len(examples))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workerCount())
	for i, ex := range examples {
		i, ex := i, ex
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			records[i] = p.process(split, i, ex)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Info("split processed", "split", split, "records", len(records))
	return records, nil
}

func (p *Pipeline) workerCount() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return 1
}

// process builds one record. Each worker reads only its own example plus the
// shared read-only schema and policy lookups.
func (p *Pipeline) process(split string, idx int, ex Example) types.Record {
	s := p.Schemas[ex.DBID]
	if s == nil {
		slog.Warn("unknown database id, treating all references as unresolvable", "db_id", ex.DBID)
		s = &schema.Schema{DBID: ex.DBID}
	}
	policies := p.Policies[ex.DBID]

	analysis := analyzer.New(s, policies).Analyze(ex.Query, ex.SQL)
	negatives := GenerateNegatives(ex.Query, ex.SQL, policies, s)

	violations := analysis.Violations
	if violations == nil {
		violations = []types.Violation{}
	}
	if negatives == nil {
		negatives = []types.NegativeExample{}
	}

	return types.Record{
		ID:               fmt.Sprintf("%s_%05d", split, idx),
		DBID:             ex.DBID,
		Question:         ex.Question,
		OriginalSQL:      ex.Query,
		ColumnPolicies:   map[string]types.Policy(policies),
		Violations:       violations,
		GoldLabel:        GoldLabelFor(ex, analysis),
		NegativeExamples: negatives,
	}
}
