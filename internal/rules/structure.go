package rules

import (
	"time"

	"SignalFlow/internal/domain/models"
)

// Market-structure rules over smc_structure. structure_event comes from the
// upstream pipeline as one of bos_up, bos_down, choch_up, choch_down, none.
func structureRules() []models.Rule {
	return []models.Rule{
		{
			Name:        "structure_break_up",
			SourceTable: TableStructure,
			Category:    "structure",
			Subcategory: "bos",
			Direction:   models.DirectionBuy,
			Strength:    70,
			Priority:    models.PriorityMedium,
			Cooldown:    30 * time.Minute,
			Timeframes:  []string{"1h", "4h", "1d"},
			Condition: models.Condition{
				Type: models.CondStateChange,
				StateChange: &models.StateChangeCond{
					Field:      "structure_event",
					FromValues: []string{"none", "bos_down", "choch_up", "choch_down"},
					ToValues:   []string{"bos_up"},
					Default:    "none",
				},
			},
			MessageTemplate: "{symbol} broke structure upward at {price:.4f}, score {score:.0f}",
			FieldMap:        map[string]string{"score": "score"},
		},
		{
			Name:        "structure_break_down",
			SourceTable: TableStructure,
			Category:    "structure",
			Subcategory: "bos",
			Direction:   models.DirectionSell,
			Strength:    70,
			Priority:    models.PriorityMedium,
			Cooldown:    30 * time.Minute,
			Timeframes:  []string{"1h", "4h", "1d"},
			Condition: models.Condition{
				Type: models.CondStateChange,
				StateChange: &models.StateChangeCond{
					Field:      "structure_event",
					FromValues: []string{"none", "bos_up", "choch_up", "choch_down"},
					ToValues:   []string{"bos_down"},
					Default:    "none",
				},
			},
			MessageTemplate: "{symbol} broke structure downward at {price:.4f}, score {score:.0f}",
			FieldMap:        map[string]string{"score": "score"},
		},
		{
			Name:        "character_change_up",
			SourceTable: TableStructure,
			Category:    "structure",
			Subcategory: "choch",
			Direction:   models.DirectionBuy,
			Strength:    75,
			Priority:    models.PriorityHigh,
			Cooldown:    time.Hour,
			Timeframes:  []string{"1h", "4h", "1d"},
			Condition: models.Condition{
				Type: models.CondStateChange,
				StateChange: &models.StateChangeCond{
					Field:      "structure_event",
					FromValues: []string{"none", "bos_up", "bos_down", "choch_down"},
					ToValues:   []string{"choch_up"},
					Default:    "none",
				},
			},
			MessageTemplate: "{symbol} bullish character change at {price:.4f}",
			FieldMap:        map[string]string{},
		},
		{
			Name:        "character_change_down",
			SourceTable: TableStructure,
			Category:    "structure",
			Subcategory: "choch",
			Direction:   models.DirectionSell,
			Strength:    75,
			Priority:    models.PriorityHigh,
			Cooldown:    time.Hour,
			Timeframes:  []string{"1h", "4h", "1d"},
			Condition: models.Condition{
				Type: models.CondStateChange,
				StateChange: &models.StateChangeCond{
					Field:      "structure_event",
					FromValues: []string{"none", "bos_up", "bos_down", "choch_up"},
					ToValues:   []string{"choch_down"},
					Default:    "none",
				},
			},
			MessageTemplate: "{symbol} bearish character change at {price:.4f}",
			FieldMap:        map[string]string{},
		},
		{
			Name:        "structure_score_confluence",
			SourceTable: TableStructure,
			Category:    "structure",
			Subcategory: "confluence",
			Direction:   models.DirectionAlert,
			Strength:    85,
			Priority:    models.PriorityHigh,
			Cooldown:    time.Hour,
			Condition: models.Condition{
				Type: models.CondCustom,
				Custom: func(prev *models.Snapshot, cur models.Snapshot) bool {
					if prev == nil {
						return false
					}
					crossed := prev.Num("score", 0) < 80 && cur.Num("score", 0) >= 80
					return crossed && cur.Str("structure_event", "none") != "none"
				},
			},
			MessageTemplate: "{symbol} structure confluence, score {score:.0f}",
			FieldMap:        map[string]string{"score": "score"},
		},
	}
}
