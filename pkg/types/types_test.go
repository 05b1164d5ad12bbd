package types

import (
	"encoding/json"
	"testing"
)

func TestPolicyString(t *testing.T) {
	tests := []struct {
		policy   Policy
		expected string
	}{
		{PolicyPublic, "Public"},
		{PolicyJoinOnly, "JoinOnly"},
		{PolicyAggOnly, "AggOnly"},
		{PolicyHidden, "Hidden"},
		{Policy(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.policy.String(); got != tt.expected {
				t.Errorf("String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	for _, p := range []Policy{PolicyPublic, PolicyJoinOnly, PolicyAggOnly, PolicyHidden} {
		parsed, err := ParsePolicy(p.String())
		if err != nil {
			t.Fatalf("ParsePolicy(%q) returned error: %v", p.String(), err)
		}
		if parsed != p {
			t.Errorf("ParsePolicy(%q) = %v, want %v", p.String(), parsed, p)
		}
	}

	if _, err := ParsePolicy("Secret"); err == nil {
		t.Error("ParsePolicy should reject unknown names")
	}
}

func TestParseRole(t *testing.T) {
	for _, r := range []Role{RoleSelectExpr, RoleJoinCond, RoleWherePred, RoleAggArg} {
		parsed, err := ParseRole(r.String())
		if err != nil {
			t.Fatalf("ParseRole(%q) returned error: %v", r.String(), err)
		}
		if parsed != r {
			t.Errorf("ParseRole(%q) = %v, want %v", r.String(), parsed, r)
		}
	}

	if _, err := ParseRole("GroupBy"); err == nil {
		t.Error("ParseRole should reject unknown names")
	}
}

func TestPolicyJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(PolicyAggOnly)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if string(data) != `"AggOnly"` {
		t.Errorf("Marshal = %s, want %q", data, `"AggOnly"`)
	}

	var p Policy
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if p != PolicyAggOnly {
		t.Errorf("round trip = %v, want %v", p, PolicyAggOnly)
	}
}

func TestViolationJSONShape(t *testing.T) {
	v := Violation{
		Column: "Student.email",
		Role:   RoleSelectExpr,
		Policy: PolicyHidden,
		Agg:    AggNone,
	}
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}

	expected := `{"column":"Student.email","role":"SelectExpr","policy":"Hidden","agg_id":0}`
	if string(data) != expected {
		t.Errorf("Marshal = %s, want %s", data, expected)
	}

	var parsed Violation
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if parsed != v {
		t.Errorf("round trip = %+v, want %+v", parsed, v)
	}
}

func TestAggFuncString(t *testing.T) {
	tests := []struct {
		agg      AggFunc
		expected string
	}{
		{AggNone, "none"},
		{AggMax, "MAX"},
		{AggMin, "MIN"},
		{AggCount, "COUNT"},
		{AggSum, "SUM"},
		{AggAvg, "AVG"},
	}
	for _, tt := range tests {
		if got := tt.agg.String(); got != tt.expected {
			t.Errorf("String(%d) = %v, want %v", tt.agg, got, tt.expected)
		}
	}
}

func TestGoldLabels(t *testing.T) {
	sql := GoldSQL("SELECT 1")
	if sql.Type != GoldTypeSQL || sql.SQL == nil || *sql.SQL != "SELECT 1" {
		t.Errorf("GoldSQL built %+v", sql)
	}

	refuse := GoldRefuse()
	if refuse.Type != GoldTypeRefuse || refuse.SQL != nil {
		t.Errorf("GoldRefuse built %+v", refuse)
	}

	data, err := json.Marshal(refuse)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if string(data) != `{"type":"REFUSE","sql":null}` {
		t.Errorf("refusal JSON = %s", data)
	}
}

func TestRewriteResultConstructors(t *testing.T) {
	ok := RewriteSuccess("SELECT name FROM Student")
	if !ok.OK || ok.SQL != "SELECT name FROM Student" || ok.Reason != "" {
		t.Errorf("RewriteSuccess built %+v", ok)
	}

	refused := RewriteRefused("Hidden column in WherePred: Student.email")
	if refused.OK || refused.SQL != "" || refused.Reason == "" {
		t.Errorf("RewriteRefused built %+v", refused)
	}
}

func TestColumnRefKey(t *testing.T) {
	ref := ColumnRef{Table: "Student", Column: "email"}
	if ref.Key() != "Student.email" {
		t.Errorf("Key() = %v, want Student.email", ref.Key())
	}
}
