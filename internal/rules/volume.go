package rules

import (
	"time"

	"SignalFlow/internal/domain/models"
)

// Volume and flow anomaly rules over market_basics. These carry quote-volume
// floors so thin pairs do not spam the feed.
func volumeRules() []models.Rule {
	return []models.Rule{
		{
			Name:           "volume_surge",
			SourceTable:    TableBasics,
			Category:       "volume",
			Subcategory:    "surge",
			Direction:      models.DirectionAlert,
			Strength:       70,
			Priority:       models.PriorityMedium,
			Cooldown:       15 * time.Minute,
			MinQuoteVolume: 500_000,
			Condition: models.Condition{
				Type: models.CondThresholdCrossUp,
				Threshold: &models.ThresholdCond{
					Field:     "volume_zscore",
					Threshold: 3.0,
				},
			},
			MessageTemplate: "{symbol} volume surge, z-score {z:.1f}, change {chg:.2f}%",
			FieldMap:        map[string]string{"z": "volume_zscore", "chg": "change_pct"},
		},
		{
			Name:           "volume_surge_with_breakout",
			SourceTable:    TableBasics,
			Category:       "volume",
			Subcategory:    "surge",
			Direction:      models.DirectionBuy,
			Strength:       80,
			Priority:       models.PriorityHigh,
			Cooldown:       30 * time.Minute,
			MinQuoteVolume: 1_000_000,
			Condition: models.Condition{
				Type: models.CondCustom,
				Custom: func(prev *models.Snapshot, cur models.Snapshot) bool {
					if prev == nil {
						return false
					}
					surged := prev.Num("volume_zscore", 0) < 3.0 && cur.Num("volume_zscore", 0) >= 3.0
					return surged && cur.Num("change_pct", 0) > 2.0
				},
			},
			MessageTemplate: "{symbol} breakout on heavy volume, +{chg:.2f}% z {z:.1f}",
			FieldMap:        map[string]string{"chg": "change_pct", "z": "volume_zscore"},
		},
		{
			Name:           "large_money_inflow",
			SourceTable:    TableBasics,
			Category:       "volume",
			Subcategory:    "money_flow",
			Direction:      models.DirectionBuy,
			Strength:       65,
			Priority:       models.PriorityMedium,
			Cooldown:       30 * time.Minute,
			MinQuoteVolume: 500_000,
			Condition: models.Condition{
				Type: models.CondThresholdCrossUp,
				Threshold: &models.ThresholdCond{
					Field:     "money_flow",
					Threshold: 1_000_000,
				},
			},
			MessageTemplate: "{symbol} large net inflow {flow:.0f} USDT",
			FieldMap:        map[string]string{"flow": "money_flow"},
		},
		{
			Name:           "large_money_outflow",
			SourceTable:    TableBasics,
			Category:       "volume",
			Subcategory:    "money_flow",
			Direction:      models.DirectionSell,
			Strength:       65,
			Priority:       models.PriorityMedium,
			Cooldown:       30 * time.Minute,
			MinQuoteVolume: 500_000,
			Condition: models.Condition{
				Type: models.CondThresholdCrossDown,
				Threshold: &models.ThresholdCond{
					Field:     "money_flow",
					Threshold: -1_000_000,
				},
			},
			MessageTemplate: "{symbol} large net outflow {flow:.0f} USDT",
			FieldMap:        map[string]string{"flow": "money_flow"},
		},
		{
			Name:           "taker_buy_dominance",
			SourceTable:    TableBasics,
			Category:       "volume",
			Subcategory:    "taker_flow",
			Direction:      models.DirectionBuy,
			Strength:       55,
			Priority:       models.PriorityLow,
			Cooldown:       15 * time.Minute,
			MinQuoteVolume: 200_000,
			Condition: models.Condition{
				Type: models.CondThresholdCrossUp,
				Threshold: &models.ThresholdCond{
					Field:     "taker_ratio",
					Threshold: 1.5,
					Default:   1.0,
				},
			},
			MessageTemplate: "{symbol} aggressive buying, taker ratio {ratio:.2f}",
			FieldMap:        map[string]string{"ratio": "taker_ratio"},
		},
		{
			Name:           "taker_sell_dominance",
			SourceTable:    TableBasics,
			Category:       "volume",
			Subcategory:    "taker_flow",
			Direction:      models.DirectionSell,
			Strength:       55,
			Priority:       models.PriorityLow,
			Cooldown:       15 * time.Minute,
			MinQuoteVolume: 200_000,
			Condition: models.Condition{
				Type: models.CondThresholdCrossDown,
				Threshold: &models.ThresholdCond{
					Field:     "taker_ratio",
					Threshold: 0.67,
					Default:   1.0,
				},
			},
			MessageTemplate: "{symbol} aggressive selling, taker ratio {ratio:.2f}",
			FieldMap:        map[string]string{"ratio": "taker_ratio"},
		},
	}
}
