package engine

import (
	"testing"
	"time"

	"SignalFlow/internal/domain/models"
)

func snap(fields map[string]any) models.Snapshot {
	return models.Snapshot{
		Table:     "t",
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		At:        time.Now(),
		Price:     50000,
		Fields:    fields,
	}
}

func TestStateChange(t *testing.T) {
	rule := models.Rule{
		Condition: models.Condition{
			Type: models.CondStateChange,
			StateChange: &models.StateChangeCond{
				Field:      "zone",
				FromValues: []string{"neutral"},
				ToValues:   []string{"oversold"},
				Default:    "neutral",
			},
		},
	}
	prev := snap(map[string]any{"zone": "neutral"})
	cur := snap(map[string]any{"zone": "oversold"})
	if !Evaluate(rule, &prev, cur) {
		t.Fatalf("neutral -> oversold should fire")
	}
	if Evaluate(rule, &cur, cur) {
		t.Fatalf("oversold is outside the from set, should not fire")
	}
	if Evaluate(rule, nil, cur) {
		t.Fatalf("first sighting should not fire")
	}
	wrongFrom := snap(map[string]any{"zone": "overbought"})
	if Evaluate(rule, &wrongFrom, cur) {
		t.Fatalf("overbought -> oversold is outside the from set")
	}
}

func TestStateChangeOverlappingSets(t *testing.T) {
	rule := models.Rule{
		Condition: models.Condition{
			Type: models.CondStateChange,
			StateChange: &models.StateChangeCond{
				Field:      "zone",
				FromValues: []string{"neutral", "oversold"},
				ToValues:   []string{"oversold"},
				Default:    "neutral",
			},
		},
	}
	// Membership on each side is checked independently, so a value inside
	// both sets holds without changing.
	held := snap(map[string]any{"zone": "oversold"})
	if !Evaluate(rule, &held, held) {
		t.Fatalf("value inside both sets should hold")
	}
}

func TestStateChangeMissingFieldUsesDefault(t *testing.T) {
	rule := models.Rule{
		Condition: models.Condition{
			Type: models.CondStateChange,
			StateChange: &models.StateChangeCond{
				Field:      "zone",
				FromValues: []string{"neutral"},
				ToValues:   []string{"oversold"},
				Default:    "neutral",
			},
		},
	}
	// Previous row has a gap; the default makes it count as neutral.
	prev := snap(map[string]any{})
	cur := snap(map[string]any{"zone": "oversold"})
	if !Evaluate(rule, &prev, cur) {
		t.Fatalf("missing previous field should resolve to default and fire")
	}
}

func TestThresholdCross(t *testing.T) {
	up := models.Rule{
		Condition: models.Condition{
			Type:      models.CondThresholdCrossUp,
			Threshold: &models.ThresholdCond{Field: "z", Threshold: 2.0},
		},
	}
	below := snap(map[string]any{"z": 1.5})
	above := snap(map[string]any{"z": 2.5})
	at := snap(map[string]any{"z": 2.0})

	if !Evaluate(up, &below, above) {
		t.Fatalf("1.5 -> 2.5 should cross up")
	}
	if !Evaluate(up, &at, above) {
		t.Fatalf("2.0 -> 2.5 should cross up, boundary counts as below")
	}
	if Evaluate(up, &above, above) {
		t.Fatalf("already above, no cross")
	}
	if Evaluate(up, nil, above) {
		t.Fatalf("first sighting should not fire")
	}

	down := models.Rule{
		Condition: models.Condition{
			Type:      models.CondThresholdCrossDown,
			Threshold: &models.ThresholdCond{Field: "z", Threshold: 2.0},
		},
	}
	if !Evaluate(down, &above, below) {
		t.Fatalf("2.5 -> 1.5 should cross down")
	}
	if Evaluate(down, &below, below) {
		t.Fatalf("already below, no cross")
	}
}

func TestSeriesCross(t *testing.T) {
	up := models.Rule{
		Condition: models.Condition{
			Type:  models.CondCrossUp,
			Cross: &models.CrossCond{FieldA: "fast", FieldB: "slow"},
		},
	}
	aBelow := snap(map[string]any{"fast": 10.0, "slow": 20.0})
	aAbove := snap(map[string]any{"fast": 25.0, "slow": 20.0})

	if !Evaluate(up, &aBelow, aAbove) {
		t.Fatalf("fast crossing above slow should fire")
	}
	if Evaluate(up, &aAbove, aAbove) {
		t.Fatalf("fast staying above slow should not fire")
	}

	down := models.Rule{
		Condition: models.Condition{
			Type:  models.CondCrossDown,
			Cross: &models.CrossCond{FieldA: "fast", FieldB: "slow"},
		},
	}
	if !Evaluate(down, &aAbove, aBelow) {
		t.Fatalf("fast crossing below slow should fire")
	}
}

func TestCustomPredicate(t *testing.T) {
	rule := models.Rule{
		Condition: models.Condition{
			Type: models.CondCustom,
			Custom: func(prev *models.Snapshot, cur models.Snapshot) bool {
				if prev == nil {
					return false
				}
				return cur.Num("x", 0) > prev.Num("x", 0)
			},
		},
	}
	low := snap(map[string]any{"x": 1.0})
	high := snap(map[string]any{"x": 2.0})
	if !Evaluate(rule, &low, high) {
		t.Fatalf("rising x should fire")
	}
	if Evaluate(rule, &high, low) {
		t.Fatalf("falling x should not fire")
	}
	if Evaluate(rule, nil, high) {
		t.Fatalf("predicate guards nil prev")
	}
}

func TestEvaluateIsPure(t *testing.T) {
	rule := models.Rule{
		Condition: models.Condition{
			Type:      models.CondThresholdCrossUp,
			Threshold: &models.ThresholdCond{Field: "z", Threshold: 2.0},
		},
	}
	prev := snap(map[string]any{"z": 1.0})
	cur := snap(map[string]any{"z": 3.0})
	// Same inputs, same answer, any number of times.
	for i := 0; i < 5; i++ {
		if !Evaluate(rule, &prev, cur) {
			t.Fatalf("evaluation %d disagreed", i)
		}
	}
}
