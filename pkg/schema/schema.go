// Package schema models the immutable description of one database: its
// tables, columns, primary keys, and foreign keys, together with the
// global-column-id resolution used by the extractor and rewriter.
package schema

import "strings"

// Column is one entry in the database-wide column list. TableIndex is the
// position of the owning table in Schema.TableNames, or -1 for columns that
// belong to no table. Column id 0 is reserved for "*".
type Column struct {
	TableIndex int
	Name       string
}

// ForeignKey links a referencing column id to the referenced column id.
type ForeignKey struct {
	FromColumn int
	ToColumn   int
}

// Schema describes a single database. It is built once by the loader and
// read-only afterwards, so it is safe to share across goroutines.
type Schema struct {
	DBID        string
	TableNames  []string
	Columns     []Column
	ColumnTypes []string
	PrimaryKeys []int
	ForeignKeys []ForeignKey
}

// ResolveColumn maps a global column id to its (table, column) names with
// schema casing preserved. Column id 0 resolves to ("", "*"). Out-of-range
// ids and columns without an owning table resolve with an empty table name;
// callers treat those as unresolvable and drop them.
func (s *Schema) ResolveColumn(colID int) (table, column string) {
	if colID == 0 {
		return "", "*"
	}
	if colID < 0 || colID >= len(s.Columns) {
		return "", ""
	}
	col := s.Columns[colID]
	if col.TableIndex < 0 || col.TableIndex >= len(s.TableNames) {
		return "", col.Name
	}
	return s.TableNames[col.TableIndex], col.Name
}

// ColumnKey returns the "table.column" key for a column id, or an empty
// string when the id does not resolve to an owned column.
func (s *Schema) ColumnKey(colID int) string {
	table, column := s.ResolveColumn(colID)
	if table == "" {
		return ""
	}
	return table + "." + column
}

// IsPrimaryKey reports whether the column id is part of a primary key.
func (s *Schema) IsPrimaryKey(colID int) bool {
	for _, pk := range s.PrimaryKeys {
		if pk == colID {
			return true
		}
	}
	return false
}

// ColumnsForTable returns the global column ids owned by the named table,
// in schema order. Table name matching is case-insensitive.
func (s *Schema) ColumnsForTable(table string) []int {
	var ids []int
	for colID := 1; colID < len(s.Columns); colID++ {
		idx := s.Columns[colID].TableIndex
		if idx < 0 || idx >= len(s.TableNames) {
			continue
		}
		if strings.EqualFold(s.TableNames[idx], table) {
			ids = append(ids, colID)
		}
	}
	return ids
}

// TablesWithColumn returns the tables owning a column with the given name,
// matched case-insensitively, in schema order.
func (s *Schema) TablesWithColumn(column string) []string {
	var tables []string
	for colID := 1; colID < len(s.Columns); colID++ {
		col := s.Columns[colID]
		if col.TableIndex < 0 || col.TableIndex >= len(s.TableNames) {
			continue
		}
		if strings.EqualFold(col.Name, column) {
			tables = append(tables, s.TableNames[col.TableIndex])
		}
	}
	return tables
}
