package models

import (
	"fmt"
	"time"
)

// ConditionType tags the variant held by a Condition.
type ConditionType string

const (
	CondStateChange        ConditionType = "STATE_CHANGE"
	CondThresholdCrossUp   ConditionType = "THRESHOLD_CROSS_UP"
	CondThresholdCrossDown ConditionType = "THRESHOLD_CROSS_DOWN"
	CondCrossUp            ConditionType = "CROSS_UP"
	CondCrossDown          ConditionType = "CROSS_DOWN"
	CondCustom             ConditionType = "CUSTOM"
)

// Predicate is a pure two-argument condition over (previous, current).
// previous is nil on the first sighting of an entity.
type Predicate func(prev *Snapshot, cur Snapshot) bool

// StateChangeCond holds when the previous value of a string field is in
// FromValues and the current value is in ToValues. Membership is checked
// independently on each side, so overlapping sets can hold on an unchanged
// value.
type StateChangeCond struct {
	Field      string
	FromValues []string
	ToValues   []string
	// Default stands in for the field when a snapshot has a gap.
	Default string
}

// ThresholdCond fires when a numeric field crosses a fixed threshold.
type ThresholdCond struct {
	Field     string
	Threshold float64
	Default   float64
}

// CrossCond fires when series A crosses series B between consecutive snapshots.
type CrossCond struct {
	FieldA   string
	FieldB   string
	DefaultA float64
	DefaultB float64
}

// Condition is the tagged variant evaluated by the engine. Exactly one config
// matching Type must be set; Validate enforces this at registry load.
type Condition struct {
	Type        ConditionType
	StateChange *StateChangeCond
	Threshold   *ThresholdCond
	Cross       *CrossCond
	Custom      Predicate
}

// Validate reports a configuration error when the condition's config does not
// match its type. Called once at registry load, never during evaluation.
func (c Condition) Validate() error {
	switch c.Type {
	case CondStateChange:
		sc := c.StateChange
		if sc == nil {
			return fmt.Errorf("state_change config missing")
		}
		if sc.Field == "" {
			return fmt.Errorf("state_change field missing")
		}
		if len(sc.FromValues) == 0 || len(sc.ToValues) == 0 {
			return fmt.Errorf("state_change from/to values missing for field %q", sc.Field)
		}
	case CondThresholdCrossUp, CondThresholdCrossDown:
		if c.Threshold == nil {
			return fmt.Errorf("threshold config missing")
		}
		if c.Threshold.Field == "" {
			return fmt.Errorf("threshold field missing")
		}
	case CondCrossUp, CondCrossDown:
		if c.Cross == nil {
			return fmt.Errorf("cross config missing")
		}
		if c.Cross.FieldA == "" || c.Cross.FieldB == "" {
			return fmt.Errorf("cross fields missing")
		}
	case CondCustom:
		if c.Custom == nil {
			return fmt.Errorf("custom predicate missing")
		}
	default:
		return fmt.Errorf("unknown condition type %q", c.Type)
	}
	return nil
}

// Rule is an immutable description of one detectable condition plus metadata.
// Rules never change after the registry is loaded.
type Rule struct {
	Name        string
	SourceTable string
	Category    string
	Subcategory string
	Direction   Direction
	Strength    int
	Priority    Priority
	Cooldown    time.Duration
	// MinQuoteVolume skips entities whose current quote volume is below the
	// floor. Zero disables the filter.
	MinQuoteVolume float64
	// Timeframes restricts the rule to the listed timeframes. Empty allows all.
	Timeframes []string
	Condition  Condition
	// MessageTemplate uses {name} / {name:.2f} placeholders resolved through
	// FieldMap against the current snapshot.
	MessageTemplate string
	FieldMap        map[string]string
}

// AllowsTimeframe reports whether the rule applies to tf.
func (r Rule) AllowsTimeframe(tf string) bool {
	if len(r.Timeframes) == 0 {
		return true
	}
	for _, t := range r.Timeframes {
		if t == tf {
			return true
		}
	}
	return false
}

// Validate checks rule metadata and the condition config. Any error here is a
// fatal configuration error at startup.
func (r Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name missing")
	}
	if r.SourceTable == "" {
		return fmt.Errorf("rule %q: source table missing", r.Name)
	}
	switch r.Direction {
	case DirectionBuy, DirectionSell, DirectionAlert:
	default:
		return fmt.Errorf("rule %q: invalid direction %q", r.Name, r.Direction)
	}
	if r.Strength < 0 || r.Strength > 100 {
		return fmt.Errorf("rule %q: strength %d out of range [0,100]", r.Name, r.Strength)
	}
	switch r.Priority {
	case PriorityLow, PriorityMedium, PriorityHigh:
	default:
		return fmt.Errorf("rule %q: invalid priority %q", r.Name, r.Priority)
	}
	if r.Cooldown < 0 {
		return fmt.Errorf("rule %q: negative cooldown", r.Name)
	}
	if err := r.Condition.Validate(); err != nil {
		return fmt.Errorf("rule %q: %w", r.Name, err)
	}
	return nil
}
