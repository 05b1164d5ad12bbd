package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iammytoo/policy-sql-dataset/pkg/types"
)

const tablesJSON = `[
  {
    "db_id": "college",
    "table_names_original": ["Student", "Department"],
    "column_names_original": [
      [-1, "*"],
      [0, "StuID"],
      [0, "name"],
      [0, "email"],
      [1, "dept_id"],
      [1, "budget"]
    ],
    "column_types": ["text", "number", "text", "text", "number", "number"],
    "primary_keys": [1, 4],
    "foreign_keys": [[4, 1]]
  }
]`

const examplesJSON = `[
  {
    "db_id": "college",
    "question": "What are the names of all students?",
    "query": "SELECT name FROM Student",
    "sql": {
      "select": [false, [[0, [0, [0, 2, false], null]]]],
      "from": {"table_units": [["table_unit", 0]], "conds": []},
      "where": []
    }
  }
]`

func TestLoadSchemas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.json")
	require.NoError(t, os.WriteFile(path, []byte(tablesJSON), 0o644))

	schemas, err := LoadSchemas(path)
	require.NoError(t, err)
	require.Len(t, schemas, 1)

	s := schemas["college"]
	require.NotNil(t, s)
	require.Equal(t, []string{"Student", "Department"}, s.TableNames)
	require.Len(t, s.Columns, 6)
	require.Equal(t, -1, s.Columns[0].TableIndex)
	require.Equal(t, "email", s.Columns[3].Name)
	require.Equal(t, 1, s.Columns[4].TableIndex)
	require.Equal(t, []int{1, 4}, s.PrimaryKeys)
	require.Len(t, s.ForeignKeys, 1)
	require.Equal(t, 4, s.ForeignKeys[0].FromColumn)
	require.Equal(t, 1, s.ForeignKeys[0].ToColumn)
}

func TestLoadSchemasMissingFile(t *testing.T) {
	_, err := LoadSchemas(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestLoadExamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev.json")
	require.NoError(t, os.WriteFile(path, []byte(examplesJSON), 0o644))

	examples, err := LoadExamples(path)
	require.NoError(t, err)
	require.Len(t, examples, 1)

	ex := examples[0]
	require.Equal(t, "college", ex.DBID)
	require.Equal(t, "SELECT name FROM Student", ex.Query)
	require.NotNil(t, ex.SQL)
	require.Len(t, ex.SQL.Select.Items, 1)
	require.Equal(t, 2, ex.SQL.Select.Items[0].Value.Left.ColID)
}

func TestLoadExamplesMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not": "a list"}`), 0o644))

	_, err := LoadExamples(path)
	require.Error(t, err)
}

func TestWriteDatasetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	records := []types.Record{
		{
			ID:               "dev_00000",
			DBID:             "college",
			Question:         "q",
			OriginalSQL:      "SELECT name FROM Student",
			ColumnPolicies:   map[string]types.Policy{"Student.name": types.PolicyPublic},
			Violations:       []types.Violation{},
			GoldLabel:        types.GoldSQL("SELECT name FROM Student"),
			NegativeExamples: []types.NegativeExample{},
		},
	}

	require.NoError(t, WriteDataset(records, dir, "dev"))

	report, err := RunQACheck(dir, "dev")
	require.NoError(t, err)
	require.Equal(t, 1, report.TotalRecords)
}

func TestStatistics(t *testing.T) {
	records := []types.Record{
		{GoldLabel: types.GoldSQL("a")},
		{
			Violations: []types.Violation{{Column: "Student.email"}},
			GoldLabel:  types.GoldRefuse(),
			NegativeExamples: []types.NegativeExample{
				{SQL: "b", Violations: []types.Violation{{Column: "Student.email"}}},
			},
		},
	}

	stats := Statistics("dev", records)
	require.Equal(t, 2, stats.Total)
	require.Equal(t, 1, stats.WithViolations)
	require.Equal(t, 1, stats.GoldSQL)
	require.Equal(t, 1, stats.GoldRefuse)
	require.Equal(t, 1, stats.WithNegative)
}
