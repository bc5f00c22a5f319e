package engine

import (
	"strconv"
	"strings"

	"SignalFlow/internal/domain/models"
)

// RenderMessage fills the rule's message template from the current snapshot.
// Placeholders look like {name} or {name:.2f}. symbol, timeframe and price
// resolve from the snapshot header; everything else goes through the rule's
// field map (falling back to the placeholder name itself) into the snapshot
// fields. Unresolvable numeric placeholders render as 0 so a sparse row never
// breaks delivery.
func RenderMessage(rule models.Rule, cur models.Snapshot) string {
	tpl := rule.MessageTemplate
	if tpl == "" {
		return rule.Name + " " + cur.Symbol
	}

	var b strings.Builder
	b.Grow(len(tpl) + 32)
	for {
		open := strings.IndexByte(tpl, '{')
		if open < 0 {
			b.WriteString(tpl)
			break
		}
		close := strings.IndexByte(tpl[open:], '}')
		if close < 0 {
			b.WriteString(tpl)
			break
		}
		close += open
		b.WriteString(tpl[:open])
		b.WriteString(resolvePlaceholder(rule, cur, tpl[open+1:close]))
		tpl = tpl[close+1:]
	}
	return b.String()
}

func resolvePlaceholder(rule models.Rule, cur models.Snapshot, ph string) string {
	name, format := ph, ""
	if i := strings.IndexByte(ph, ':'); i >= 0 {
		name, format = ph[:i], ph[i+1:]
	}

	switch name {
	case "symbol":
		return cur.Symbol
	case "timeframe":
		return cur.Timeframe
	case "price":
		return formatNumber(cur.Price, format)
	}

	field := name
	if mapped, ok := rule.FieldMap[name]; ok && mapped != "" {
		field = mapped
	}
	if format != "" {
		return formatNumber(cur.Num(field, 0), format)
	}
	if s := cur.Str(field, ""); s != "" {
		return s
	}
	return formatNumber(cur.Num(field, 0), "")
}

// formatNumber understands the ".Nf" precision form; anything else falls back
// to a compact default.
func formatNumber(v float64, format string) string {
	if strings.HasPrefix(format, ".") && strings.HasSuffix(format, "f") {
		if prec, err := strconv.Atoi(format[1 : len(format)-1]); err == nil && prec >= 0 {
			return strconv.FormatFloat(v, 'f', prec, 64)
		}
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
