package rules

import (
	"time"

	"SignalFlow/internal/domain/models"
)

// Futures positioning rules over futures_sentiment: top-trader ratio extremes,
// open-interest z-score spikes, sentiment-gap flips and bias changes.
func futuresRules() []models.Rule {
	return []models.Rule{
		{
			Name:        "top_trader_ratio_extreme_high",
			SourceTable: TableFutures,
			Category:    "futures",
			Subcategory: "positioning",
			Direction:   models.DirectionAlert,
			Strength:    70,
			Priority:    models.PriorityMedium,
			Cooldown:    30 * time.Minute,
			Condition: models.Condition{
				Type: models.CondThresholdCrossUp,
				Threshold: &models.ThresholdCond{
					Field:     "top_trader_ratio",
					Threshold: 2.0,
					Default:   1.0,
				},
			},
			MessageTemplate: "{symbol} top trader long/short ratio spiked to {ratio:.2f}",
			FieldMap:        map[string]string{"ratio": "top_trader_ratio"},
		},
		{
			Name:        "top_trader_ratio_extreme_low",
			SourceTable: TableFutures,
			Category:    "futures",
			Subcategory: "positioning",
			Direction:   models.DirectionAlert,
			Strength:    70,
			Priority:    models.PriorityMedium,
			Cooldown:    30 * time.Minute,
			Condition: models.Condition{
				Type: models.CondThresholdCrossDown,
				Threshold: &models.ThresholdCond{
					Field:     "top_trader_ratio",
					Threshold: 0.5,
					Default:   1.0,
				},
			},
			MessageTemplate: "{symbol} top trader long/short ratio dropped to {ratio:.2f}",
			FieldMap:        map[string]string{"ratio": "top_trader_ratio"},
		},
		{
			Name:        "oi_zscore_spike",
			SourceTable: TableFutures,
			Category:    "futures",
			Subcategory: "open_interest",
			Direction:   models.DirectionAlert,
			Strength:    75,
			Priority:    models.PriorityHigh,
			Cooldown:    30 * time.Minute,
			Condition: models.Condition{
				Type: models.CondThresholdCrossUp,
				Threshold: &models.ThresholdCond{
					Field:     "oi_zscore",
					Threshold: 2.5,
				},
			},
			MessageTemplate: "{symbol} open interest z-score {z:.2f}, unusual build-up",
			FieldMap:        map[string]string{"z": "oi_zscore"},
		},
		{
			Name:        "oi_sustained_build",
			SourceTable: TableFutures,
			Category:    "futures",
			Subcategory: "open_interest",
			Direction:   models.DirectionAlert,
			Strength:    60,
			Priority:    models.PriorityMedium,
			Cooldown:    time.Hour,
			Condition: models.Condition{
				Type: models.CondCustom,
				Custom: func(prev *models.Snapshot, cur models.Snapshot) bool {
					if prev == nil {
						return false
					}
					streak := cur.Num("oi_streak", 0)
					return streak >= 5 && streak > prev.Num("oi_streak", 0)
				},
			},
			MessageTemplate: "{symbol} open interest rising {streak:.0f} periods in a row",
			FieldMap:        map[string]string{"streak": "oi_streak"},
		},
		{
			Name:        "sentiment_gap_flip_bull",
			SourceTable: TableFutures,
			Category:    "futures",
			Subcategory: "sentiment",
			Direction:   models.DirectionBuy,
			Strength:    60,
			Priority:    models.PriorityMedium,
			Cooldown:    30 * time.Minute,
			Condition: models.Condition{
				Type: models.CondThresholdCrossUp,
				Threshold: &models.ThresholdCond{
					Field:     "sentiment_gap",
					Threshold: 0,
				},
			},
			MessageTemplate: "{symbol} retail/top-trader sentiment gap turned positive ({gap:.3f})",
			FieldMap:        map[string]string{"gap": "sentiment_gap"},
		},
		{
			Name:        "sentiment_gap_flip_bear",
			SourceTable: TableFutures,
			Category:    "futures",
			Subcategory: "sentiment",
			Direction:   models.DirectionSell,
			Strength:    60,
			Priority:    models.PriorityMedium,
			Cooldown:    30 * time.Minute,
			Condition: models.Condition{
				Type: models.CondThresholdCrossDown,
				Threshold: &models.ThresholdCond{
					Field:     "sentiment_gap",
					Threshold: 0,
				},
			},
			MessageTemplate: "{symbol} retail/top-trader sentiment gap turned negative ({gap:.3f})",
			FieldMap:        map[string]string{"gap": "sentiment_gap"},
		},
		{
			Name:        "futures_bias_flip",
			SourceTable: TableFutures,
			Category:    "futures",
			Subcategory: "sentiment",
			Direction:   models.DirectionAlert,
			Strength:    65,
			Priority:    models.PriorityMedium,
			Cooldown:    time.Hour,
			Condition: models.Condition{
				Type: models.CondStateChange,
				StateChange: &models.StateChangeCond{
					Field:      "bias",
					FromValues: []string{"bullish", "bearish"},
					ToValues:   []string{"bearish", "bullish"},
					Default:    "neutral",
				},
			},
			MessageTemplate: "{symbol} futures bias flipped, risk score {risk:.1f}",
			FieldMap:        map[string]string{"risk": "risk_score"},
		},
	}
}
