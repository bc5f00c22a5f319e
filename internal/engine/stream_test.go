package engine

import (
	"context"
	"testing"
	"time"

	"SignalFlow/internal/domain/models"
)

func TestParseSnapshotMergesFields(t *testing.T) {
	raw := []byte(`{
		"table": "ta_rsi",
		"symbol": "BTCUSDT",
		"timeframe": "1h",
		"ts": 1756700000000,
		"price": 50000,
		"quote_volume": 1500000,
		"num": {"rsi14": 28.5},
		"attrs": {"zone": "oversold"}
	}`)

	snap, err := ParseSnapshot(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if snap.Table != "ta_rsi" || snap.Symbol != "BTCUSDT" {
		t.Fatalf("unexpected identity %s/%s", snap.Table, snap.Symbol)
	}
	if got := snap.At; !got.Equal(time.UnixMilli(1756700000000)) {
		t.Fatalf("unexpected ts %v", got)
	}
	if got := snap.Num("rsi14", 0); got != 28.5 {
		t.Fatalf("numeric field not merged, got %v", got)
	}
	if got := snap.Str("zone", ""); got != "oversold" {
		t.Fatalf("string field not merged, got %q", got)
	}
}

func TestParseSnapshotNormalizesTimeframe(t *testing.T) {
	raw := []byte(`{"table": "ta_rsi", "symbol": "BTCUSDT", "timeframe": "13x", "ts": 1756700000000}`)
	snap, err := ParseSnapshot(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if snap.Timeframe != "1h" {
		t.Fatalf("unknown label should normalize to the default, got %q", snap.Timeframe)
	}
}

func TestParseSnapshotRejectsMissingIdentity(t *testing.T) {
	if _, err := ParseSnapshot([]byte(`{"symbol": "BTCUSDT"}`)); err == nil {
		t.Fatalf("expected error for missing table")
	}
	if _, err := ParseSnapshot([]byte(`{"table": "ta_rsi"}`)); err == nil {
		t.Fatalf("expected error for missing symbol")
	}
	if _, err := ParseSnapshot([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for malformed frame")
	}
}

func TestStreamEngineFeedsDetector(t *testing.T) {
	f := newFixture(t, testRule("cross_up"))
	in := make(chan models.Snapshot, 4)
	eng := NewStreamEngine(f.det, in, testLogger(t))

	eng.Start(context.Background())
	in <- f.snapshot(1.0)
	in <- f.snapshot(3.0)

	s := f.recv(t)
	if s.RuleName != "cross_up" {
		t.Fatalf("unexpected rule %q", s.RuleName)
	}
	eng.Stop()
}

func TestStreamEngineStopsOnClosedInput(t *testing.T) {
	f := newFixture(t, testRule("cross_up"))
	in := make(chan models.Snapshot)
	eng := NewStreamEngine(f.det, in, testLogger(t))

	eng.Start(context.Background())
	close(in)

	done := make(chan struct{})
	go func() {
		eng.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("stop did not return after input closed")
	}
}
