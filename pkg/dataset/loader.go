// Package dataset builds the policy-SQL dataset: it loads the source corpus,
// runs every example through the analyzer, and assembles, writes, and
// quality-checks the final records.
package dataset

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/iammytoo/policy-sql-dataset/pkg/ast"
	"github.com/iammytoo/policy-sql-dataset/pkg/schema"
)

// Example is one corpus entry: a natural-language question with its SQL in
// both textual and parsed form.
type Example struct {
	DBID     string     `json:"db_id"`
	Question string     `json:"question"`
	Query    string     `json:"query"`
	SQL      *ast.Query `json:"sql"`
}

// LoadExamples reads a split file (train/dev) into examples.
func LoadExamples(path string) ([]Example, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read examples file: %s", path)
	}
	var examples []Example
	if err := json.Unmarshal(data, &examples); err != nil {
		return nil, errors.Wrapf(err, "failed to parse examples file: %s", path)
	}
	return examples, nil
}

// columnPair decodes the wire format's [tableIndex, columnName] pairs.
type columnPair struct {
	TableIndex int
	Name       string
}

func (c *columnPair) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return errors.Wrap(err, "malformed column entry")
	}
	if len(parts) != 2 {
		return errors.Errorf("column entry: expected 2 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &c.TableIndex); err != nil {
		return errors.Wrap(err, "column entry table index")
	}
	return json.Unmarshal(parts[1], &c.Name)
}

type rawSchema struct {
	DBID        string       `json:"db_id"`
	TableNames  []string     `json:"table_names_original"`
	ColumnNames []columnPair `json:"column_names_original"`
	ColumnTypes []string     `json:"column_types"`
	PrimaryKeys []int        `json:"primary_keys"`
	ForeignKeys [][2]int     `json:"foreign_keys"`
}

// LoadSchemas reads tables.json and returns schemas keyed by database id.
func LoadSchemas(path string) (map[string]*schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read schema file: %s", path)
	}
	var raws []rawSchema
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, errors.Wrapf(err, "failed to parse schema file: %s", path)
	}

	schemas := make(map[string]*schema.Schema, len(raws))
	for _, raw := range raws {
		columns := make([]schema.Column, len(raw.ColumnNames))
		for i, pair := range raw.ColumnNames {
			columns[i] = schema.Column{TableIndex: pair.TableIndex, Name: pair.Name}
		}
		fks := make([]schema.ForeignKey, len(raw.ForeignKeys))
		for i, fk := range raw.ForeignKeys {
			fks[i] = schema.ForeignKey{FromColumn: fk[0], ToColumn: fk[1]}
		}
		schemas[raw.DBID] = &schema.Schema{
			DBID:        raw.DBID,
			TableNames:  raw.TableNames,
			Columns:     columns,
			ColumnTypes: raw.ColumnTypes,
			PrimaryKeys: raw.PrimaryKeys,
			ForeignKeys: fks,
		}
	}
	return schemas, nil
}
