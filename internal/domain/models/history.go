package models

// HistoryQuery narrows the recent-signals lookup. Zero-value fields match
// every row.
type HistoryQuery struct {
	Limit     int
	Symbol    string
	Direction Direction
}

// SymbolCount pairs a symbol with how many signals it produced in a window.
type SymbolCount struct {
	Symbol string `json:"symbol"`
	Count  int64  `json:"count"`
}

// HistoryStats is an aggregate view over stored signals for a trailing window.
type HistoryStats struct {
	Total       int64            `json:"total"`
	ByDirection map[string]int64 `json:"by_direction"`
	BySource    map[string]int64 `json:"by_source"`
	TopSymbols  []SymbolCount    `json:"top_symbols"`
}
