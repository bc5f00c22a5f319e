package rules

import (
	"time"

	"SignalFlow/internal/domain/models"
)

// Support and resistance proximity rules over support_resistance. Distances
// arrive as percent of price, positive while the level is unbroken.
func levelRules() []models.Rule {
	return []models.Rule{
		{
			Name:        "support_approach",
			SourceTable: TableLevels,
			Category:    "levels",
			Subcategory: "proximity",
			Direction:   models.DirectionAlert,
			Strength:    60,
			Priority:    models.PriorityMedium,
			Cooldown:    30 * time.Minute,
			Condition: models.Condition{
				Type: models.CondThresholdCrossDown,
				Threshold: &models.ThresholdCond{
					Field:     "support_dist_pct",
					Threshold: 1.0,
					Default:   100,
				},
			},
			MessageTemplate: "{symbol} approaching support, {dist:.2f}% away at {price:.4f}",
			FieldMap:        map[string]string{"dist": "support_dist_pct"},
		},
		{
			Name:        "resistance_approach",
			SourceTable: TableLevels,
			Category:    "levels",
			Subcategory: "proximity",
			Direction:   models.DirectionAlert,
			Strength:    60,
			Priority:    models.PriorityMedium,
			Cooldown:    30 * time.Minute,
			Condition: models.Condition{
				Type: models.CondThresholdCrossDown,
				Threshold: &models.ThresholdCond{
					Field:     "resistance_dist_pct",
					Threshold: 1.0,
					Default:   100,
				},
			},
			MessageTemplate: "{symbol} approaching resistance, {dist:.2f}% away at {price:.4f}",
			FieldMap:        map[string]string{"dist": "resistance_dist_pct"},
		},
		{
			Name:        "strong_support_bounce",
			SourceTable: TableLevels,
			Category:    "levels",
			Subcategory: "bounce",
			Direction:   models.DirectionBuy,
			Strength:    75,
			Priority:    models.PriorityHigh,
			Cooldown:    time.Hour,
			Condition: models.Condition{
				Type: models.CondCustom,
				Custom: func(prev *models.Snapshot, cur models.Snapshot) bool {
					if prev == nil {
						return false
					}
					// Was pressed against a strong level, now moving away from it.
					near := prev.Num("support_dist_pct", 100) < 0.5
					away := cur.Num("support_dist_pct", 100) > prev.Num("support_dist_pct", 100)
					return near && away && cur.Num("level_strength", 0) >= 3
				},
			},
			MessageTemplate: "{symbol} bouncing off strong support at {price:.4f}",
			FieldMap:        map[string]string{},
		},
	}
}
