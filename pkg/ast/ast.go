// Package ast defines the tagged representation of a parsed query consumed by the role
// extractor. The upstream corpus encodes queries as positional nested lists;
// the unmarshallers here decode that wire format into explicit variant types
// so the recursive traversal can match on named fields instead of positions.
package ast

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/iammytoo/policy-sql-dataset/pkg/types"
)

// Query is one SELECT statement. Intersect, Union, and Except carry the
// other branch of a set operation and are recursively the same shape.
type Query struct {
	Select    SelectClause
	From      FromClause
	Where     CondExpr
	Intersect *Query
	Union     *Query
	Except    *Query
}

// SelectClause is the projection list with its DISTINCT flag.
type SelectClause struct {
	Distinct bool
	Items    []SelectItem
}

// SelectItem is one projection: an outer aggregate id applied to a value
// expression, which may itself carry aggregates on its column units.
type SelectItem struct {
	Agg   types.AggFunc
	Value ValueExpr
}

// ValueExpr combines one or two column units with an arithmetic operator.
// Op is zero when there is no combining operator; Right is nil for a single
// column unit.
type ValueExpr struct {
	Op    int
	Left  *ColUnit
	Right *ColUnit
}

// ColUnits returns the non-nil column units of the expression in order.
func (v ValueExpr) ColUnits() []*ColUnit {
	var units []*ColUnit
	if v.Left != nil {
		units = append(units, v.Left)
	}
	if v.Right != nil {
		units = append(units, v.Right)
	}
	return units
}

// ColUnit is a single column occurrence: an optional aggregate, the global
// column id (0 denotes "*"), and a DISTINCT flag.
type ColUnit struct {
	Agg      types.AggFunc
	ColID    int
	Distinct bool
}

// FromClause lists the table units joined by the query and the join
// conditions between them.
type FromClause struct {
	TableUnits []TableUnit
	Conds      CondExpr
}

// TableUnit is either a base table (by index into the schema's table list)
// or a derived subquery appearing as a pseudo-table.
type TableUnit struct {
	TableIndex int
	Sub        *Query
}

// CondExpr is a flat condition list. Boolean connectors between conditions
// are dropped at decode time; nothing downstream inspects them.
type CondExpr []Condition

// Condition is one comparison: a value expression on the left and up to two
// right-hand operands (the second is only present for BETWEEN).
type Condition struct {
	Not    bool
	Op     int
	Value  ValueExpr
	Right1 *CondOperand
	Right2 *CondOperand
}

// CondOperand is a comparison's right-hand side: a bare column unit or a
// nested query. Literal operands carry no column reference and decode to a
// nil operand.
type CondOperand struct {
	Col *ColUnit
	Sub *Query
}

// UnmarshalJSON decodes the positional query object:
//
//	{"select": ..., "from": ..., "where": ..., "intersect": ..., ...}
func (q *Query) UnmarshalJSON(data []byte) error {
	var raw struct {
		Select    json.RawMessage `json:"select"`
		From      json.RawMessage `json:"from"`
		Where     json.RawMessage `json:"where"`
		Intersect *Query          `json:"intersect"`
		Union     *Query          `json:"union"`
		Except    *Query          `json:"except"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "malformed query node")
	}
	if len(raw.Select) > 0 {
		if err := json.Unmarshal(raw.Select, &q.Select); err != nil {
			return err
		}
	}
	if len(raw.From) > 0 {
		if err := json.Unmarshal(raw.From, &q.From); err != nil {
			return err
		}
	}
	if len(raw.Where) > 0 && string(raw.Where) != "null" {
		if err := json.Unmarshal(raw.Where, &q.Where); err != nil {
			return err
		}
	}
	q.Intersect = raw.Intersect
	q.Union = raw.Union
	q.Except = raw.Except
	return nil
}

// UnmarshalJSON decodes [isDistinct, [[agg, valUnit], ...]].
func (c *SelectClause) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return errors.Wrap(err, "malformed select clause")
	}
	if len(parts) != 2 {
		return errors.Errorf("select clause: expected 2 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &c.Distinct); err != nil {
		return errors.Wrap(err, "select clause distinct flag")
	}
	return json.Unmarshal(parts[1], &c.Items)
}

// UnmarshalJSON decodes [agg, valUnit].
func (i *SelectItem) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return errors.Wrap(err, "malformed select item")
	}
	if len(parts) != 2 {
		return errors.Errorf("select item: expected 2 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &i.Agg); err != nil {
		return errors.Wrap(err, "select item aggregate")
	}
	return json.Unmarshal(parts[1], &i.Value)
}

// UnmarshalJSON decodes [unitOp, colUnit1, colUnit2].
func (v *ValueExpr) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return errors.Wrap(err, "malformed value expression")
	}
	if len(parts) != 3 {
		return errors.Errorf("value expression: expected 3 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &v.Op); err != nil {
		return errors.Wrap(err, "value expression operator")
	}
	if err := unmarshalOptionalColUnit(parts[1], &v.Left); err != nil {
		return err
	}
	return unmarshalOptionalColUnit(parts[2], &v.Right)
}

// UnmarshalJSON decodes [agg, colID, isDistinct].
func (u *ColUnit) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return errors.Wrap(err, "malformed column unit")
	}
	if len(parts) != 3 {
		return errors.Errorf("column unit: expected 3 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &u.Agg); err != nil {
		return errors.Wrap(err, "column unit aggregate")
	}
	if err := json.Unmarshal(parts[1], &u.ColID); err != nil {
		return errors.Wrap(err, "column unit id")
	}
	return json.Unmarshal(parts[2], &u.Distinct)
}

// UnmarshalJSON decodes {"table_units": [...], "conds": [...]}.
func (f *FromClause) UnmarshalJSON(data []byte) error {
	var raw struct {
		TableUnits []TableUnit     `json:"table_units"`
		Conds      json.RawMessage `json:"conds"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "malformed from clause")
	}
	f.TableUnits = raw.TableUnits
	if len(raw.Conds) > 0 && string(raw.Conds) != "null" {
		return json.Unmarshal(raw.Conds, &f.Conds)
	}
	return nil
}

// UnmarshalJSON decodes ["table_unit", index] or ["sql", query].
func (t *TableUnit) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return errors.Wrap(err, "malformed table unit")
	}
	if len(parts) != 2 {
		return errors.Errorf("table unit: expected 2 elements, got %d", len(parts))
	}
	var kind string
	if err := json.Unmarshal(parts[0], &kind); err != nil {
		return errors.Wrap(err, "table unit kind")
	}
	switch kind {
	case "table_unit":
		return json.Unmarshal(parts[1], &t.TableIndex)
	case "sql":
		t.Sub = &Query{}
		return json.Unmarshal(parts[1], t.Sub)
	default:
		return errors.Errorf("table unit: unknown kind %q", kind)
	}
}

// UnmarshalJSON decodes the alternating [cond, "and", cond, ...] sequence,
// dropping the connectors.
func (c *CondExpr) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return errors.Wrap(err, "malformed condition list")
	}
	conds := make(CondExpr, 0, len(items))
	for _, item := range items {
		if len(item) > 0 && item[0] == '"' {
			continue
		}
		var cond Condition
		if err := json.Unmarshal(item, &cond); err != nil {
			return err
		}
		conds = append(conds, cond)
	}
	*c = conds
	return nil
}

// UnmarshalJSON decodes [notOp, opID, valUnit, val1, val2].
func (cd *Condition) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return errors.Wrap(err, "malformed condition")
	}
	if len(parts) != 5 {
		return errors.Errorf("condition: expected 5 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &cd.Not); err != nil {
		return errors.Wrap(err, "condition negation flag")
	}
	if err := json.Unmarshal(parts[1], &cd.Op); err != nil {
		return errors.Wrap(err, "condition operator")
	}
	if err := json.Unmarshal(parts[2], &cd.Value); err != nil {
		return err
	}
	if err := unmarshalOperand(parts[3], &cd.Right1); err != nil {
		return err
	}
	return unmarshalOperand(parts[4], &cd.Right2)
}

func unmarshalOptionalColUnit(data json.RawMessage, out **ColUnit) error {
	if len(data) == 0 || string(data) == "null" {
		*out = nil
		return nil
	}
	unit := &ColUnit{}
	if err := json.Unmarshal(data, unit); err != nil {
		return err
	}
	*out = unit
	return nil
}

// unmarshalOperand decodes a condition's right-hand side: an object is a
// nested query, a 3-element array is a column unit, and anything else is a
// literal with no column identity.
func unmarshalOperand(data json.RawMessage, out **CondOperand) error {
	*out = nil
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	switch data[0] {
	case '{':
		sub := &Query{}
		if err := json.Unmarshal(data, sub); err != nil {
			return err
		}
		*out = &CondOperand{Sub: sub}
		return nil
	case '[':
		unit := &ColUnit{}
		if err := json.Unmarshal(data, unit); err != nil {
			// Not column-unit shaped; treat as a literal.
			return nil
		}
		*out = &CondOperand{Col: unit}
		return nil
	default:
		return nil
	}
}
