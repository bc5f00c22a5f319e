package rules

import "time"

// Source tables the built-in catalog watches.
const (
	TableRSI       = "ta_rsi"
	TableMACD      = "ta_macd"
	TableFutures   = "futures_sentiment"
	TableBasics    = "market_basics"
	TableStructure = "smc_structure"
	TableLevels    = "support_resistance"
)

// DefaultCooldown applies when a rule does not set its own window.
const DefaultCooldown = 5 * time.Minute
