package engine

import (
	"testing"

	"SignalFlow/internal/domain/models"
)

func TestRenderMessage(t *testing.T) {
	rule := models.Rule{
		Name:            "test_rule",
		MessageTemplate: "{symbol} RSI {rsi:.1f} at {price:.2f} on {timeframe}",
		FieldMap:        map[string]string{"rsi": "rsi14"},
	}
	cur := snap(map[string]any{"rsi14": 27.456})
	got := RenderMessage(rule, cur)
	want := "BTCUSDT RSI 27.5 at 50000.00 on 1h"
	if got != want {
		t.Fatalf("RenderMessage = %q, want %q", got, want)
	}
}

func TestRenderMessageStringField(t *testing.T) {
	rule := models.Rule{
		MessageTemplate: "{symbol} zone is {zone}",
	}
	cur := snap(map[string]any{"zone": "oversold"})
	if got := RenderMessage(rule, cur); got != "BTCUSDT zone is oversold" {
		t.Fatalf("RenderMessage = %q", got)
	}
}

func TestRenderMessageMissingField(t *testing.T) {
	rule := models.Rule{
		MessageTemplate: "{symbol} value {missing:.2f}",
	}
	cur := snap(map[string]any{})
	if got := RenderMessage(rule, cur); got != "BTCUSDT value 0.00" {
		t.Fatalf("missing field should render as zero, got %q", got)
	}
}

func TestRenderMessageEmptyTemplate(t *testing.T) {
	rule := models.Rule{Name: "bare_rule"}
	cur := snap(nil)
	if got := RenderMessage(rule, cur); got != "bare_rule BTCUSDT" {
		t.Fatalf("empty template fallback = %q", got)
	}
}
