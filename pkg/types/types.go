package types

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Policy is the access policy attached to a single column.
// A column without an explicit policy entry is treated as Public.
type Policy int32

const (
	PolicyPublic   Policy = 0
	PolicyJoinOnly Policy = 1
	PolicyAggOnly  Policy = 2
	PolicyHidden   Policy = 3
)

func (p Policy) String() string {
	switch p {
	case PolicyPublic:
		return "Public"
	case PolicyJoinOnly:
		return "JoinOnly"
	case PolicyAggOnly:
		return "AggOnly"
	case PolicyHidden:
		return "Hidden"
	default:
		return "UNKNOWN"
	}
}

// ParsePolicy converts a policy name into a Policy value.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "Public":
		return PolicyPublic, nil
	case "JoinOnly":
		return PolicyJoinOnly, nil
	case "AggOnly":
		return PolicyAggOnly, nil
	case "Hidden":
		return PolicyHidden, nil
	default:
		return PolicyPublic, errors.Errorf("unknown policy: %q", s)
	}
}

// MarshalJSON encodes the policy as its name, matching the dataset wire format.
func (p Policy) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON implements json.Unmarshaler for Policy
func (p *Policy) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePolicy(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler for Policy
func (p Policy) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler for Policy
func (p *Policy) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParsePolicy(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Role describes the syntactic position a column occupies within one query.
// The same column may appear under several roles in a single query; every
// occurrence is a distinct reference.
type Role int32

const (
	RoleSelectExpr Role = 0
	RoleJoinCond   Role = 1
	RoleWherePred  Role = 2
	RoleAggArg     Role = 3
)

func (r Role) String() string {
	switch r {
	case RoleSelectExpr:
		return "SelectExpr"
	case RoleJoinCond:
		return "JoinCond"
	case RoleWherePred:
		return "WherePred"
	case RoleAggArg:
		return "AggArg"
	default:
		return "UNKNOWN"
	}
}

// ParseRole converts a role name into a Role value.
func ParseRole(s string) (Role, error) {
	switch s {
	case "SelectExpr":
		return RoleSelectExpr, nil
	case "JoinCond":
		return RoleJoinCond, nil
	case "WherePred":
		return RoleWherePred, nil
	case "AggArg":
		return RoleAggArg, nil
	default:
		return RoleSelectExpr, errors.Errorf("unknown role: %q", s)
	}
}

// MarshalJSON encodes the role as its name, matching the dataset wire format.
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON implements json.Unmarshaler for Role
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler for Role
func (r Role) MarshalYAML() (interface{}, error) {
	return r.String(), nil
}

// AggFunc identifies the aggregate function wrapping a column reference.
// The numeric values are the aggregate ids used by the parsed-query wire
// format and are carried through to the dataset output unchanged.
type AggFunc int32

const (
	AggNone  AggFunc = 0
	AggMax   AggFunc = 1
	AggMin   AggFunc = 2
	AggCount AggFunc = 3
	AggSum   AggFunc = 4
	AggAvg   AggFunc = 5
)

func (a AggFunc) String() string {
	switch a {
	case AggNone:
		return "none"
	case AggMax:
		return "MAX"
	case AggMin:
		return "MIN"
	case AggCount:
		return "COUNT"
	case AggSum:
		return "SUM"
	case AggAvg:
		return "AVG"
	default:
		return "UNKNOWN"
	}
}

// ColumnRef is one extracted occurrence of a column within a query.
type ColumnRef struct {
	Table  string
	Column string
	Role   Role
	Agg    AggFunc
}

// Key returns the "table.column" key used by policy maps.
func (r ColumnRef) Key() string {
	return r.Table + "." + r.Column
}

// Violation is a column reference found disallowed under the active policy.
// The field set and JSON shape are the contract downstream label generators
// depend on.
type Violation struct {
	Column string  `json:"column"`
	Role   Role    `json:"role"`
	Policy Policy  `json:"policy"`
	Agg    AggFunc `json:"agg_id"`
}

// RewriteResult is the outcome of a rewrite attempt: either a compliant
// rewritten query or a refusal with a diagnosable reason. Refusal is a
// first-class value, not an error.
type RewriteResult struct {
	OK     bool   `json:"ok"`
	SQL    string `json:"sql,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// RewriteSuccess wraps a compliant query text.
func RewriteSuccess(sql string) RewriteResult {
	return RewriteResult{OK: true, SQL: sql}
}

// RewriteRefused records that no compliant rewrite exists.
func RewriteRefused(reason string) RewriteResult {
	return RewriteResult{OK: false, Reason: reason}
}

// Gold label kinds.
const (
	GoldTypeSQL    = "SQL"
	GoldTypeRefuse = "REFUSE"
)

// GoldLabel is the expected model output for one example: either a compliant
// SQL string or a refusal.
type GoldLabel struct {
	Type string  `json:"type"`
	SQL  *string `json:"sql"`
}

// GoldSQL builds an answerable gold label.
func GoldSQL(sql string) GoldLabel {
	return GoldLabel{Type: GoldTypeSQL, SQL: &sql}
}

// GoldRefuse builds a refusal gold label.
func GoldRefuse() GoldLabel {
	return GoldLabel{Type: GoldTypeRefuse}
}

// NegativeExample is a synthetic near-miss query carrying exactly the
// violations that were injected into it.
type NegativeExample struct {
	SQL        string      `json:"sql"`
	Violations []Violation `json:"violations"`
}

// Record is one fully processed dataset record.
type Record struct {
	ID               string            `json:"id"`
	DBID             string            `json:"db_id"`
	Question         string            `json:"question"`
	OriginalSQL      string            `json:"original_sql"`
	ColumnPolicies   map[string]Policy `json:"column_policies"`
	Violations       []Violation       `json:"violations_original"`
	GoldLabel        GoldLabel         `json:"gold_label"`
	NegativeExamples []NegativeExample `json:"negative_examples"`
}
