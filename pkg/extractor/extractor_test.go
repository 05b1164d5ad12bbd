package extractor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iammytoo/policy-sql-dataset/pkg/ast"
	"github.com/iammytoo/policy-sql-dataset/pkg/schema"
	"github.com/iammytoo/policy-sql-dataset/pkg/types"
)

// Column ids: 1 StuID, 2 name, 3 email, 4 salary, 5 dept_id (Student),
// 6 dept_id, 7 budget (Department).
func testSchema() *schema.Schema {
	return &schema.Schema{
		DBID:       "college",
		TableNames: []string{"Student", "Department"},
		Columns: []schema.Column{
			{TableIndex: -1, Name: "*"},
			{TableIndex: 0, Name: "StuID"},
			{TableIndex: 0, Name: "name"},
			{TableIndex: 0, Name: "email"},
			{TableIndex: 0, Name: "salary"},
			{TableIndex: 0, Name: "dept_id"},
			{TableIndex: 1, Name: "dept_id"},
			{TableIndex: 1, Name: "budget"},
		},
		PrimaryKeys: []int{1, 6},
	}
}

func col(id int) *ast.ColUnit {
	return &ast.ColUnit{ColID: id}
}

func aggCol(agg types.AggFunc, id int) *ast.ColUnit {
	return &ast.ColUnit{Agg: agg, ColID: id}
}

func selectItems(items ...ast.SelectItem) ast.SelectClause {
	return ast.SelectClause{Items: items}
}

func TestExtractSelectRoles(t *testing.T) {
	// SELECT name, MAX(salary), COUNT(email)
	q := &ast.Query{
		Select: selectItems(
			ast.SelectItem{Value: ast.ValueExpr{Left: col(2)}},
			ast.SelectItem{Agg: types.AggMax, Value: ast.ValueExpr{Left: col(4)}},
			ast.SelectItem{Value: ast.ValueExpr{Left: aggCol(types.AggCount, 3)}},
		),
		From: ast.FromClause{TableUnits: []ast.TableUnit{{TableIndex: 0}}},
	}

	refs := Extract(q, testSchema())
	require.Equal(t, []types.ColumnRef{
		{Table: "Student", Column: "name", Role: types.RoleSelectExpr, Agg: types.AggNone},
		{Table: "Student", Column: "salary", Role: types.RoleAggArg, Agg: types.AggMax},
		{Table: "Student", Column: "email", Role: types.RoleAggArg, Agg: types.AggCount},
	}, refs)
}

func TestExtractInnerAggregateWins(t *testing.T) {
	// The unit's own aggregate takes precedence over the item's outer one.
	q := &ast.Query{
		Select: selectItems(
			ast.SelectItem{Agg: types.AggMax, Value: ast.ValueExpr{Left: aggCol(types.AggSum, 4)}},
		),
	}

	refs := Extract(q, testSchema())
	require.Len(t, refs, 1)
	require.Equal(t, types.AggSum, refs[0].Agg)
	require.Equal(t, types.RoleAggArg, refs[0].Role)
}

func TestExtractWildcardExcluded(t *testing.T) {
	// SELECT *, COUNT(*): neither occurrence yields a reference.
	q := &ast.Query{
		Select: selectItems(
			ast.SelectItem{Value: ast.ValueExpr{Left: col(0)}},
			ast.SelectItem{Agg: types.AggCount, Value: ast.ValueExpr{Left: col(0)}},
		),
	}

	require.Empty(t, Extract(q, testSchema()))
}

func TestExtractCondRoles(t *testing.T) {
	// JOIN ON Student.dept_id = Department.dept_id WHERE email = ?
	q := &ast.Query{
		Select: selectItems(ast.SelectItem{Value: ast.ValueExpr{Left: col(2)}}),
		From: ast.FromClause{
			TableUnits: []ast.TableUnit{{TableIndex: 0}, {TableIndex: 1}},
			Conds: ast.CondExpr{{
				Op:     2,
				Value:  ast.ValueExpr{Left: col(5)},
				Right1: &ast.CondOperand{Col: col(6)},
			}},
		},
		Where: ast.CondExpr{{
			Op:    2,
			Value: ast.ValueExpr{Left: col(3)},
		}},
	}

	refs := Extract(q, testSchema())
	require.Equal(t, []types.ColumnRef{
		{Table: "Student", Column: "name", Role: types.RoleSelectExpr},
		{Table: "Student", Column: "dept_id", Role: types.RoleJoinCond},
		{Table: "Department", Column: "dept_id", Role: types.RoleJoinCond},
		{Table: "Student", Column: "email", Role: types.RoleWherePred},
	}, refs)
}

func TestExtractAggregateInWhereKeepsRole(t *testing.T) {
	// An aggregate inside a predicate does not promote the role to AggArg.
	q := &ast.Query{
		Where: ast.CondExpr{{
			Op:    3,
			Value: ast.ValueExpr{Left: aggCol(types.AggAvg, 4)},
		}},
	}

	refs := Extract(q, testSchema())
	require.Len(t, refs, 1)
	require.Equal(t, types.RoleWherePred, refs[0].Role)
	require.Equal(t, types.AggAvg, refs[0].Agg)
}

func TestExtractSubqueryOperand(t *testing.T) {
	// WHERE salary > (SELECT AVG(salary) FROM Student)
	q := &ast.Query{
		Where: ast.CondExpr{{
			Op:    3,
			Value: ast.ValueExpr{Left: col(4)},
			Right1: &ast.CondOperand{Sub: &ast.Query{
				Select: selectItems(
					ast.SelectItem{Agg: types.AggAvg, Value: ast.ValueExpr{Left: col(4)}},
				),
			}},
		}},
	}

	refs := Extract(q, testSchema())
	require.Equal(t, []types.ColumnRef{
		{Table: "Student", Column: "salary", Role: types.RoleWherePred},
		{Table: "Student", Column: "salary", Role: types.RoleAggArg, Agg: types.AggAvg},
	}, refs)
}

func TestExtractFromSubqueryAndSetOps(t *testing.T) {
	sub := &ast.Query{
		Select: selectItems(ast.SelectItem{Value: ast.ValueExpr{Left: col(3)}}),
	}
	branch := &ast.Query{
		Select: selectItems(ast.SelectItem{Value: ast.ValueExpr{Left: col(7)}}),
	}
	q := &ast.Query{
		Select: selectItems(ast.SelectItem{Value: ast.ValueExpr{Left: col(2)}}),
		From:   ast.FromClause{TableUnits: []ast.TableUnit{{Sub: sub}}},
		Union:  branch,
	}

	refs := Extract(q, testSchema())
	require.Equal(t, []types.ColumnRef{
		{Table: "Student", Column: "name", Role: types.RoleSelectExpr},
		{Table: "Student", Column: "email", Role: types.RoleSelectExpr},
		{Table: "Department", Column: "budget", Role: types.RoleSelectExpr},
	}, refs)
}

func TestExtractUnresolvableDropped(t *testing.T) {
	q := &ast.Query{
		Select: selectItems(ast.SelectItem{Value: ast.ValueExpr{Left: col(42)}}),
	}
	require.Empty(t, Extract(q, testSchema()))
}

func TestExtractNil(t *testing.T) {
	require.Nil(t, Extract(nil, testSchema()))
}

func TestHasSelectStar(t *testing.T) {
	tests := []struct {
		name     string
		query    *ast.Query
		expected bool
	}{
		{
			name: "bare star",
			query: &ast.Query{
				Select: selectItems(ast.SelectItem{Value: ast.ValueExpr{Left: col(0)}}),
			},
			expected: true,
		},
		{
			name: "count star",
			query: &ast.Query{
				Select: selectItems(ast.SelectItem{Agg: types.AggCount, Value: ast.ValueExpr{Left: col(0)}}),
			},
			expected: false,
		},
		{
			name: "star in subquery",
			query: &ast.Query{
				Select: selectItems(ast.SelectItem{Value: ast.ValueExpr{Left: col(2)}}),
				From: ast.FromClause{TableUnits: []ast.TableUnit{{Sub: &ast.Query{
					Select: selectItems(ast.SelectItem{Value: ast.ValueExpr{Left: col(0)}}),
				}}}},
			},
			expected: true,
		},
		{
			name: "star in union branch",
			query: &ast.Query{
				Select: selectItems(ast.SelectItem{Value: ast.ValueExpr{Left: col(2)}}),
				Union: &ast.Query{
					Select: selectItems(ast.SelectItem{Value: ast.ValueExpr{Left: col(0)}}),
				},
			},
			expected: true,
		},
		{
			name: "plain column",
			query: &ast.Query{
				Select: selectItems(ast.SelectItem{Value: ast.ValueExpr{Left: col(2)}}),
			},
			expected: false,
		},
		{name: "nil query", query: nil, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasSelectStar(tt.query); got != tt.expected {
				t.Errorf("HasSelectStar() = %v, want %v", got, tt.expected)
			}
		})
	}
}
