package rules

import (
	"time"

	"SignalFlow/internal/domain/models"
)

// MACD rules over ta_macd: DIF/DEA crosses and histogram zero flips. The
// strong variants require the cross to happen away from the zero line, which
// the plain cross conditions cannot express, so they use custom predicates.
func macdRules() []models.Rule {
	return []models.Rule{
		{
			Name:        "macd_golden_cross",
			SourceTable: TableMACD,
			Category:    "trend",
			Subcategory: "macd_cross",
			Direction:   models.DirectionBuy,
			Strength:    65,
			Priority:    models.PriorityMedium,
			Cooldown:    15 * time.Minute,
			Condition: models.Condition{
				Type: models.CondCrossUp,
				Cross: &models.CrossCond{
					FieldA: "dif",
					FieldB: "dea",
				},
			},
			MessageTemplate: "{symbol} MACD golden cross, DIF {dif:.4f} DEA {dea:.4f}",
			FieldMap:        map[string]string{"dif": "dif", "dea": "dea"},
		},
		{
			Name:        "macd_death_cross",
			SourceTable: TableMACD,
			Category:    "trend",
			Subcategory: "macd_cross",
			Direction:   models.DirectionSell,
			Strength:    65,
			Priority:    models.PriorityMedium,
			Cooldown:    15 * time.Minute,
			Condition: models.Condition{
				Type: models.CondCrossDown,
				Cross: &models.CrossCond{
					FieldA: "dif",
					FieldB: "dea",
				},
			},
			MessageTemplate: "{symbol} MACD death cross, DIF {dif:.4f} DEA {dea:.4f}",
			FieldMap:        map[string]string{"dif": "dif", "dea": "dea"},
		},
		{
			Name:        "macd_strong_golden_cross",
			SourceTable: TableMACD,
			Category:    "trend",
			Subcategory: "macd_cross",
			Direction:   models.DirectionBuy,
			Strength:    85,
			Priority:    models.PriorityHigh,
			Cooldown:    30 * time.Minute,
			Condition: models.Condition{
				Type: models.CondCustom,
				Custom: func(prev *models.Snapshot, cur models.Snapshot) bool {
					if prev == nil {
						return false
					}
					crossed := prev.Num("dif", 0) <= prev.Num("dea", 0) &&
						cur.Num("dif", 0) > cur.Num("dea", 0)
					// A golden cross below the zero line marks a stronger reversal.
					return crossed && cur.Num("dif", 0) < 0 && cur.Num("dea", 0) < 0
				},
			},
			MessageTemplate: "{symbol} strong MACD golden cross below zero, DIF {dif:.4f}",
			FieldMap:        map[string]string{"dif": "dif"},
		},
		{
			Name:        "macd_strong_death_cross",
			SourceTable: TableMACD,
			Category:    "trend",
			Subcategory: "macd_cross",
			Direction:   models.DirectionSell,
			Strength:    85,
			Priority:    models.PriorityHigh,
			Cooldown:    30 * time.Minute,
			Condition: models.Condition{
				Type: models.CondCustom,
				Custom: func(prev *models.Snapshot, cur models.Snapshot) bool {
					if prev == nil {
						return false
					}
					crossed := prev.Num("dif", 0) >= prev.Num("dea", 0) &&
						cur.Num("dif", 0) < cur.Num("dea", 0)
					return crossed && cur.Num("dif", 0) > 0 && cur.Num("dea", 0) > 0
				},
			},
			MessageTemplate: "{symbol} strong MACD death cross above zero, DIF {dif:.4f}",
			FieldMap:        map[string]string{"dif": "dif"},
		},
		{
			Name:        "macd_hist_flip_up",
			SourceTable: TableMACD,
			Category:    "trend",
			Subcategory: "macd_hist",
			Direction:   models.DirectionBuy,
			Strength:    55,
			Priority:    models.PriorityLow,
			Cooldown:    DefaultCooldown,
			Condition: models.Condition{
				Type: models.CondThresholdCrossUp,
				Threshold: &models.ThresholdCond{
					Field:     "macd_hist",
					Threshold: 0,
				},
			},
			MessageTemplate: "{symbol} MACD histogram flipped positive ({hist:.4f})",
			FieldMap:        map[string]string{"hist": "macd_hist"},
		},
		{
			Name:        "macd_hist_flip_down",
			SourceTable: TableMACD,
			Category:    "trend",
			Subcategory: "macd_hist",
			Direction:   models.DirectionSell,
			Strength:    55,
			Priority:    models.PriorityLow,
			Cooldown:    DefaultCooldown,
			Condition: models.Condition{
				Type: models.CondThresholdCrossDown,
				Threshold: &models.ThresholdCond{
					Field:     "macd_hist",
					Threshold: 0,
				},
			},
			MessageTemplate: "{symbol} MACD histogram flipped negative ({hist:.4f})",
			FieldMap:        map[string]string{"hist": "macd_hist"},
		},
	}
}
