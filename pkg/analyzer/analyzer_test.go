package analyzer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iammytoo/policy-sql-dataset/pkg/ast"
	"github.com/iammytoo/policy-sql-dataset/pkg/policy"
	"github.com/iammytoo/policy-sql-dataset/pkg/schema"
	"github.com/iammytoo/policy-sql-dataset/pkg/types"
)

// Column ids: 1 StuID (pk), 2 name, 3 email, 4 salary.
func testSchema() *schema.Schema {
	return &schema.Schema{
		DBID:       "college",
		TableNames: []string{"Student"},
		Columns: []schema.Column{
			{TableIndex: -1, Name: "*"},
			{TableIndex: 0, Name: "StuID"},
			{TableIndex: 0, Name: "name"},
			{TableIndex: 0, Name: "email"},
			{TableIndex: 0, Name: "salary"},
		},
		PrimaryKeys: []int{1},
	}
}

func testPolicies() policy.Map {
	return policy.Map{
		"Student.email":  types.PolicyHidden,
		"Student.salary": types.PolicyAggOnly,
	}
}

func selectQuery(items ...ast.SelectItem) *ast.Query {
	return &ast.Query{
		Select: ast.SelectClause{Items: items},
		From:   ast.FromClause{TableUnits: []ast.TableUnit{{TableIndex: 0}}},
	}
}

func TestAnalyzeCompliant(t *testing.T) {
	a := New(testSchema(), testPolicies())
	q := selectQuery(ast.SelectItem{Value: ast.ValueExpr{Left: &ast.ColUnit{ColID: 2}}})

	analysis := a.Analyze("SELECT name FROM Student", q)

	require.Empty(t, analysis.Violations)
	require.Nil(t, analysis.Rewrite)
	require.False(t, analysis.HasStar)
	require.True(t, analysis.Compliant())
}

func TestAnalyzeViolationRewritten(t *testing.T) {
	a := New(testSchema(), testPolicies())
	q := selectQuery(ast.SelectItem{Value: ast.ValueExpr{Left: &ast.ColUnit{ColID: 3}}})

	analysis := a.Analyze("SELECT email FROM Student", q)

	require.Len(t, analysis.Violations, 1)
	require.Equal(t, "Student.email", analysis.Violations[0].Column)
	require.NotNil(t, analysis.Rewrite)
	require.True(t, analysis.Rewrite.OK)
	require.Equal(t, "SELECT StuID FROM Student", analysis.Rewrite.SQL)
	require.True(t, analysis.Compliant())
}

func TestAnalyzeViolationRefused(t *testing.T) {
	a := New(testSchema(), testPolicies())
	q := selectQuery(ast.SelectItem{Value: ast.ValueExpr{Left: &ast.ColUnit{ColID: 2}}})
	q.Where = ast.CondExpr{{Op: 2, Value: ast.ValueExpr{Left: &ast.ColUnit{ColID: 3}}}}

	analysis := a.Analyze("SELECT name FROM Student WHERE email = 'x'", q)

	require.Len(t, analysis.Violations, 1)
	require.NotNil(t, analysis.Rewrite)
	require.False(t, analysis.Rewrite.OK)
	require.False(t, analysis.Compliant())
}

func TestAnalyzeSelectStar(t *testing.T) {
	a := New(testSchema(), testPolicies())
	q := selectQuery(ast.SelectItem{Value: ast.ValueExpr{Left: &ast.ColUnit{ColID: 0}}})

	analysis := a.Analyze("SELECT * FROM Student", q)

	require.True(t, analysis.HasStar)
	require.Empty(t, analysis.Violations)
	require.False(t, analysis.Compliant())
}
