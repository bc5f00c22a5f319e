package engine

import "SignalFlow/internal/domain/models"

// Evaluate reports whether the rule's condition holds on the transition from
// prev to cur. prev is nil on the first sighting of an entity; every
// transition condition treats that as no transition. Missing fields resolve
// through the condition's defaults, so evaluation never panics on sparse rows.
func Evaluate(rule models.Rule, prev *models.Snapshot, cur models.Snapshot) bool {
	c := rule.Condition
	switch c.Type {
	case models.CondStateChange:
		if prev == nil {
			return false
		}
		// Membership only; a value sitting in both sets holds even when
		// unchanged.
		sc := c.StateChange
		from := prev.Str(sc.Field, sc.Default)
		to := cur.Str(sc.Field, sc.Default)
		return containsString(sc.FromValues, from) && containsString(sc.ToValues, to)

	case models.CondThresholdCrossUp:
		if prev == nil {
			return false
		}
		t := c.Threshold
		return prev.Num(t.Field, t.Default) <= t.Threshold &&
			cur.Num(t.Field, t.Default) > t.Threshold

	case models.CondThresholdCrossDown:
		if prev == nil {
			return false
		}
		t := c.Threshold
		return prev.Num(t.Field, t.Default) >= t.Threshold &&
			cur.Num(t.Field, t.Default) < t.Threshold

	case models.CondCrossUp:
		if prev == nil {
			return false
		}
		cc := c.Cross
		return prev.Num(cc.FieldA, cc.DefaultA) <= prev.Num(cc.FieldB, cc.DefaultB) &&
			cur.Num(cc.FieldA, cc.DefaultA) > cur.Num(cc.FieldB, cc.DefaultB)

	case models.CondCrossDown:
		if prev == nil {
			return false
		}
		cc := c.Cross
		return prev.Num(cc.FieldA, cc.DefaultA) >= prev.Num(cc.FieldB, cc.DefaultB) &&
			cur.Num(cc.FieldA, cc.DefaultA) < cur.Num(cc.FieldB, cc.DefaultB)

	case models.CondCustom:
		// Predicates are pure over (prev, cur) and handle nil prev themselves.
		return c.Custom(prev, cur)
	}
	return false
}

func containsString(vals []string, v string) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}
