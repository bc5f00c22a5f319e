package models

import (
	"fmt"
	"time"
)

// Direction classifies what a fired signal suggests.
type Direction string

const (
	DirectionBuy   Direction = "BUY"
	DirectionSell  Direction = "SELL"
	DirectionAlert Direction = "ALERT"
)

// Priority is the delivery urgency attached to a rule.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// EntityKey identifies one independently tracked (symbol, timeframe) pair.
type EntityKey struct {
	Symbol    string
	Timeframe string
}

func (k EntityKey) String() string {
	return k.Symbol + "/" + k.Timeframe
}

// Snapshot is one point-in-time row of named metric values for an entity+table.
// The engine treats it as opaque and immutable; values are float64 or string.
type Snapshot struct {
	Table       string
	Symbol      string
	Timeframe   string
	At          time.Time
	Price       float64
	QuoteVolume float64
	Fields      map[string]any
}

// Entity returns the snapshot's entity key.
func (s Snapshot) Entity() EntityKey {
	return EntityKey{Symbol: s.Symbol, Timeframe: s.Timeframe}
}

// Num looks up a numeric field, falling back to def when the field is absent
// or not numeric. Source data is allowed to have gaps; lookups never panic.
func (s Snapshot) Num(field string, def float64) float64 {
	v, ok := s.Fields[field]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return def
	}
}

// Str looks up a string field, falling back to def when absent or non-string.
func (s Snapshot) Str(field string, def string) string {
	v, ok := s.Fields[field]
	if !ok {
		return def
	}
	if str, ok := v.(string); ok {
		return str
	}
	return def
}

// Signal is one emitted, fully formed alert. Value type; never mutated after
// the detector hands it to the history store and the bus.
type Signal struct {
	Symbol      string         `json:"symbol"`
	Direction   Direction      `json:"direction"`
	Strength    int            `json:"strength"`
	RuleName    string         `json:"rule_name"`
	Timeframe   string         `json:"timeframe"`
	Price       float64        `json:"price"`
	Message     string         `json:"message"`
	Category    string         `json:"category"`
	Subcategory string         `json:"subcategory"`
	SourceTable string         `json:"source_table"`
	Priority    Priority       `json:"priority"`
	Timestamp   time.Time      `json:"timestamp"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Entity returns the signal's entity key.
func (s Signal) Entity() EntityKey {
	return EntityKey{Symbol: s.Symbol, Timeframe: s.Timeframe}
}

func (s Signal) String() string {
	return fmt.Sprintf("%s %s %s @ %.6f (%s, strength=%d)",
		s.Symbol, s.Direction, s.RuleName, s.Price, s.Timeframe, s.Strength)
}

// Subscription is a consumer's filter over which source tables' signals it
// wants delivered. Mutable by the consumer side at any time.
type Subscription struct {
	ConsumerID string          `json:"consumer_id"`
	Enabled    bool            `json:"enabled"`
	Tables     map[string]bool `json:"tables"`
}

// Allows reports whether signals from table should reach this consumer.
func (s Subscription) Allows(table string) bool {
	return s.Enabled && s.Tables[table]
}
