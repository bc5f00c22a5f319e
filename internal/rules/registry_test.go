package rules

import (
	"strings"
	"testing"
	"time"

	"SignalFlow/internal/domain/models"
)

func validRule(name, table string) models.Rule {
	return models.Rule{
		Name:        name,
		SourceTable: table,
		Category:    "test",
		Direction:   models.DirectionBuy,
		Strength:    50,
		Priority:    models.PriorityLow,
		Cooldown:    time.Minute,
		Condition: models.Condition{
			Type:      models.CondThresholdCrossUp,
			Threshold: &models.ThresholdCond{Field: "x", Threshold: 1},
		},
		MessageTemplate: "test",
	}
}

func TestLoadCatalog(t *testing.T) {
	reg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if reg.Len() == 0 {
		t.Fatalf("catalog is empty")
	}
	for _, table := range []string{TableRSI, TableMACD, TableFutures, TableBasics, TableStructure, TableLevels} {
		if len(reg.RulesFor(table)) == 0 {
			t.Fatalf("no rules for table %s", table)
		}
	}
}

func TestDuplicateNameFailsLoad(t *testing.T) {
	_, err := NewRegistry([]models.Rule{
		validRule("dup", "t1"),
		validRule("dup", "t2"),
	})
	if err == nil {
		t.Fatalf("expected duplicate-name error")
	}
	if !strings.Contains(err.Error(), "dup") {
		t.Fatalf("error should name the duplicate rule, got %v", err)
	}
}

func TestInvalidConditionFailsLoad(t *testing.T) {
	bad := validRule("bad_cond", "t1")
	bad.Condition = models.Condition{Type: models.CondCrossUp}
	_, err := NewRegistry([]models.Rule{bad})
	if err == nil {
		t.Fatalf("expected condition validation error")
	}
	if !strings.Contains(err.Error(), "bad_cond") {
		t.Fatalf("error should name the offending rule, got %v", err)
	}
}

func TestRulesForIsolation(t *testing.T) {
	reg, err := NewRegistry([]models.Rule{
		validRule("a", "t1"),
		validRule("b", "t1"),
		validRule("c", "t2"),
	})
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	if got := len(reg.RulesFor("t1")); got != 2 {
		t.Fatalf("RulesFor(t1) = %d rules, want 2", got)
	}
	if got := len(reg.RulesFor("t2")); got != 1 {
		t.Fatalf("RulesFor(t2) = %d rules, want 1", got)
	}
	if got := reg.RulesFor("missing"); got != nil {
		t.Fatalf("RulesFor(missing) = %v, want nil", got)
	}
	tables := reg.Tables()
	if len(tables) != 2 || tables[0] != "t1" || tables[1] != "t2" {
		t.Fatalf("Tables() = %v, want [t1 t2]", tables)
	}
}

func TestExtraRulesMergeWithCatalog(t *testing.T) {
	base, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	reg, err := Load(validRule("custom_extra", "t_extra"))
	if err != nil {
		t.Fatalf("Load(extra) failed: %v", err)
	}
	if reg.Len() != base.Len()+1 {
		t.Fatalf("Len() = %d, want %d", reg.Len(), base.Len()+1)
	}
	if _, ok := reg.Get("custom_extra"); !ok {
		t.Fatalf("extra rule not registered")
	}
}

func TestAllowsTimeframe(t *testing.T) {
	r := validRule("tf_rule", "t1")
	if !r.AllowsTimeframe("5m") {
		t.Fatalf("empty timeframe list should allow everything")
	}
	r.Timeframes = []string{"1h", "4h"}
	if r.AllowsTimeframe("5m") {
		t.Fatalf("5m should be rejected")
	}
	if !r.AllowsTimeframe("4h") {
		t.Fatalf("4h should be allowed")
	}
}
