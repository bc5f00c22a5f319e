package rules

import (
	"time"

	"SignalFlow/internal/domain/models"
)

// RSI zone and divergence rules over ta_rsi. Zone values are produced upstream
// as oversold / neutral / overbought; divergence as bullish / bearish / none.
func momentumRules() []models.Rule {
	return []models.Rule{
		{
			Name:        "rsi_oversold_entry",
			SourceTable: TableRSI,
			Category:    "momentum",
			Subcategory: "rsi_zone",
			Direction:   models.DirectionAlert,
			Strength:    55,
			Priority:    models.PriorityLow,
			Cooldown:    DefaultCooldown,
			Condition: models.Condition{
				Type: models.CondStateChange,
				StateChange: &models.StateChangeCond{
					Field:      "zone",
					FromValues: []string{"neutral", "overbought"},
					ToValues:   []string{"oversold"},
					Default:    "neutral",
				},
			},
			MessageTemplate: "{symbol} RSI entered oversold, RSI14 {rsi:.1f}",
			FieldMap:        map[string]string{"rsi": "rsi14"},
		},
		{
			Name:        "rsi_overbought_entry",
			SourceTable: TableRSI,
			Category:    "momentum",
			Subcategory: "rsi_zone",
			Direction:   models.DirectionAlert,
			Strength:    55,
			Priority:    models.PriorityLow,
			Cooldown:    DefaultCooldown,
			Condition: models.Condition{
				Type: models.CondStateChange,
				StateChange: &models.StateChangeCond{
					Field:      "zone",
					FromValues: []string{"neutral", "oversold"},
					ToValues:   []string{"overbought"},
					Default:    "neutral",
				},
			},
			MessageTemplate: "{symbol} RSI entered overbought, RSI14 {rsi:.1f}",
			FieldMap:        map[string]string{"rsi": "rsi14"},
		},
		{
			Name:        "rsi_oversold_exit",
			SourceTable: TableRSI,
			Category:    "momentum",
			Subcategory: "rsi_zone",
			Direction:   models.DirectionBuy,
			Strength:    65,
			Priority:    models.PriorityMedium,
			Cooldown:    10 * time.Minute,
			Condition: models.Condition{
				Type: models.CondStateChange,
				StateChange: &models.StateChangeCond{
					Field:      "zone",
					FromValues: []string{"oversold"},
					ToValues:   []string{"neutral"},
					Default:    "neutral",
				},
			},
			MessageTemplate: "{symbol} RSI recovering from oversold, RSI14 {rsi:.1f}",
			FieldMap:        map[string]string{"rsi": "rsi14"},
		},
		{
			Name:        "rsi_overbought_exit",
			SourceTable: TableRSI,
			Category:    "momentum",
			Subcategory: "rsi_zone",
			Direction:   models.DirectionSell,
			Strength:    65,
			Priority:    models.PriorityMedium,
			Cooldown:    10 * time.Minute,
			Condition: models.Condition{
				Type: models.CondStateChange,
				StateChange: &models.StateChangeCond{
					Field:      "zone",
					FromValues: []string{"overbought"},
					ToValues:   []string{"neutral"},
					Default:    "neutral",
				},
			},
			MessageTemplate: "{symbol} RSI cooling off from overbought, RSI14 {rsi:.1f}",
			FieldMap:        map[string]string{"rsi": "rsi14"},
		},
		{
			Name:        "rsi_bullish_divergence",
			SourceTable: TableRSI,
			Category:    "momentum",
			Subcategory: "rsi_divergence",
			Direction:   models.DirectionBuy,
			Strength:    80,
			Priority:    models.PriorityHigh,
			Cooldown:    30 * time.Minute,
			Condition: models.Condition{
				Type: models.CondStateChange,
				StateChange: &models.StateChangeCond{
					Field:      "divergence",
					FromValues: []string{"none", "bearish"},
					ToValues:   []string{"bullish"},
					Default:    "none",
				},
			},
			MessageTemplate: "{symbol} bullish RSI divergence at {price:.4f}",
			FieldMap:        map[string]string{},
		},
		{
			Name:        "rsi_bearish_divergence",
			SourceTable: TableRSI,
			Category:    "momentum",
			Subcategory: "rsi_divergence",
			Direction:   models.DirectionSell,
			Strength:    80,
			Priority:    models.PriorityHigh,
			Cooldown:    30 * time.Minute,
			Condition: models.Condition{
				Type: models.CondStateChange,
				StateChange: &models.StateChangeCond{
					Field:      "divergence",
					FromValues: []string{"none", "bullish"},
					ToValues:   []string{"bearish"},
					Default:    "none",
				},
			},
			MessageTemplate: "{symbol} bearish RSI divergence at {price:.4f}",
			FieldMap:        map[string]string{},
		},
		{
			Name:        "rsi_fast_cross_up",
			SourceTable: TableRSI,
			Category:    "momentum",
			Subcategory: "rsi_cross",
			Direction:   models.DirectionBuy,
			Strength:    60,
			Priority:    models.PriorityMedium,
			Cooldown:    15 * time.Minute,
			Timeframes:  []string{"15m", "1h", "4h"},
			Condition: models.Condition{
				Type: models.CondCrossUp,
				Cross: &models.CrossCond{
					FieldA: "rsi7",
					FieldB: "rsi21",
				},
			},
			MessageTemplate: "{symbol} RSI7 crossed above RSI21 ({fast:.1f} / {slow:.1f})",
			FieldMap:        map[string]string{"fast": "rsi7", "slow": "rsi21"},
		},
		{
			Name:        "rsi_fast_cross_down",
			SourceTable: TableRSI,
			Category:    "momentum",
			Subcategory: "rsi_cross",
			Direction:   models.DirectionSell,
			Strength:    60,
			Priority:    models.PriorityMedium,
			Cooldown:    15 * time.Minute,
			Timeframes:  []string{"15m", "1h", "4h"},
			Condition: models.Condition{
				Type: models.CondCrossDown,
				Cross: &models.CrossCond{
					FieldA: "rsi7",
					FieldB: "rsi21",
				},
			},
			MessageTemplate: "{symbol} RSI7 crossed below RSI21 ({fast:.1f} / {slow:.1f})",
			FieldMap:        map[string]string{"fast": "rsi7", "slow": "rsi21"},
		},
	}
}
