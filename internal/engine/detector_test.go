package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"SignalFlow/internal/domain/models"
	domrepo "SignalFlow/internal/domain/repository"
	"SignalFlow/internal/repository"
	"SignalFlow/internal/rules"
)

type memHistory struct {
	mu     sync.Mutex
	rows   []models.Signal
	failed bool
}

func (h *memHistory) Init(ctx context.Context) error { return nil }
func (h *memHistory) Insert(ctx context.Context, s models.Signal) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failed {
		return errors.New("insert failed")
	}
	h.rows = append(h.rows, s)
	return nil
}
func (h *memHistory) Recent(ctx context.Context, q models.HistoryQuery) ([]models.Signal, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.Signal, 0, len(h.rows))
	for _, s := range h.rows {
		if q.Symbol != "" && s.Symbol != q.Symbol {
			continue
		}
		if q.Direction != "" && s.Direction != q.Direction {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}
func (h *memHistory) Stats(ctx context.Context, since time.Time) (*models.HistoryStats, error) {
	return &models.HistoryStats{}, nil
}
func (h *memHistory) Purge(ctx context.Context, olderThan time.Time) error { return nil }
func (h *memHistory) Close() error                                         { return nil }

func (h *memHistory) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rows)
}

type nopMetrics struct{}

func (nopMetrics) RecordSignal(rule, table string, direction models.Direction) {}
func (nopMetrics) RecordCycle(table string, seconds float64)                   {}
func (nopMetrics) RecordFetchError(table string)                               {}
func (nopMetrics) RecordDelivery(consumer, status string)                      {}
func (nopMetrics) RecordCooldownSkip(rule string)                              {}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func testRule(name string) models.Rule {
	return models.Rule{
		Name:        name,
		SourceTable: "t",
		Category:    "test",
		Direction:   models.DirectionBuy,
		Strength:    50,
		Priority:    models.PriorityMedium,
		Cooldown:    time.Minute,
		Condition: models.Condition{
			Type:      models.CondThresholdCrossUp,
			Threshold: &models.ThresholdCond{Field: "z", Threshold: 2.0},
		},
		MessageTemplate: "{symbol} z crossed up to {z:.1f}",
		FieldMap:        map[string]string{"z": "z"},
	}
}

type detectorFixture struct {
	det     *Detector
	history *memHistory
	clock   *fakeClock
	bus     *Bus
	signals chan models.Signal
}

func newFixture(t *testing.T, rs ...models.Rule) *detectorFixture {
	t.Helper()
	reg, err := rules.NewRegistry(rs)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	history := &memHistory{}
	log := testLogger(t)
	bus := NewBus(log)
	signals := make(chan models.Signal, 64)
	bus.Subscribe("capture", func(s models.Signal) { signals <- s })

	cooldowns := repository.NewMemoryCooldownStore().WithClock(clock.now)
	det := NewDetector(reg, cooldowns, history, bus, nopMetrics{}, log, WithClock(clock.now))
	t.Cleanup(bus.Close)
	return &detectorFixture{det: det, history: history, clock: clock, bus: bus, signals: signals}
}

func (f *detectorFixture) snapshot(z float64) models.Snapshot {
	return models.Snapshot{
		Table:     "t",
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		At:        f.clock.now(),
		Price:     50000,
		Fields:    map[string]any{"z": z},
	}
}

func (f *detectorFixture) recv(t *testing.T) models.Signal {
	t.Helper()
	select {
	case s := <-f.signals:
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for signal")
		return models.Signal{}
	}
}

func TestDetectorEmitsOnCross(t *testing.T) {
	f := newFixture(t, testRule("cross_up"))
	ctx := context.Background()

	if n := f.det.OnSnapshot(ctx, f.snapshot(1.0)); n != 0 {
		t.Fatalf("first sighting fired %d signals", n)
	}
	if n := f.det.OnSnapshot(ctx, f.snapshot(3.0)); n != 1 {
		t.Fatalf("cross fired %d signals, want 1", n)
	}

	sig := f.recv(t)
	if sig.RuleName != "cross_up" || sig.Symbol != "BTCUSDT" {
		t.Fatalf("unexpected signal %+v", sig)
	}
	if sig.Message != "BTCUSDT z crossed up to 3.0" {
		t.Fatalf("message = %q", sig.Message)
	}
	if f.history.count() != 1 {
		t.Fatalf("history rows = %d, want 1", f.history.count())
	}
}

func TestDetectorCooldownSuppressesRefire(t *testing.T) {
	f := newFixture(t, testRule("cooldown_rule"))
	ctx := context.Background()

	f.det.OnSnapshot(ctx, f.snapshot(1.0))
	if n := f.det.OnSnapshot(ctx, f.snapshot(3.0)); n != 1 {
		t.Fatalf("initial cross fired %d", n)
	}

	// Oscillate across the threshold inside the window.
	f.clock.advance(10 * time.Second)
	f.det.OnSnapshot(ctx, f.snapshot(1.0))
	f.clock.advance(10 * time.Second)
	if n := f.det.OnSnapshot(ctx, f.snapshot(3.0)); n != 0 {
		t.Fatalf("re-cross inside cooldown fired %d signals", n)
	}

	// Past the window the same transition fires again.
	f.clock.advance(2 * time.Minute)
	f.det.OnSnapshot(ctx, f.snapshot(1.0))
	if n := f.det.OnSnapshot(ctx, f.snapshot(3.0)); n != 1 {
		t.Fatalf("cross after cooldown fired %d signals, want 1", n)
	}
	if f.history.count() != 2 {
		t.Fatalf("history rows = %d, want 2", f.history.count())
	}
}

func TestDetectorVolumeFloor(t *testing.T) {
	rule := testRule("vol_rule")
	rule.MinQuoteVolume = 1000
	f := newFixture(t, rule)
	ctx := context.Background()

	thin := f.snapshot(1.0)
	thin.QuoteVolume = 10
	f.det.OnSnapshot(ctx, thin)

	thinCross := f.snapshot(3.0)
	thinCross.QuoteVolume = 10
	if n := f.det.OnSnapshot(ctx, thinCross); n != 0 {
		t.Fatalf("thin entity fired %d signals", n)
	}

	// Volume floor sits before the condition, so the arena still advanced and
	// the next cross needs a fresh transition.
	liquid := f.snapshot(1.0)
	liquid.QuoteVolume = 5000
	f.det.OnSnapshot(ctx, liquid)
	liquidCross := f.snapshot(3.0)
	liquidCross.QuoteVolume = 5000
	if n := f.det.OnSnapshot(ctx, liquidCross); n != 1 {
		t.Fatalf("liquid cross fired %d signals, want 1", n)
	}
}

func TestDetectorTimeframeFilter(t *testing.T) {
	rule := testRule("tf_rule")
	rule.Timeframes = []string{"4h"}
	f := newFixture(t, rule)
	ctx := context.Background()

	f.det.OnSnapshot(ctx, f.snapshot(1.0))
	if n := f.det.OnSnapshot(ctx, f.snapshot(3.0)); n != 0 {
		t.Fatalf("1h snapshot fired a 4h-only rule")
	}
}

func TestDetectorFreshnessGate(t *testing.T) {
	reg, err := rules.NewRegistry([]models.Rule{testRule("fresh_rule")})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	history := &memHistory{}
	log := testLogger(t)
	bus := NewBus(log)
	defer bus.Close()
	cooldowns := repository.NewMemoryCooldownStore().WithClock(clock.now)
	det := NewDetector(reg, cooldowns, history, bus, nopMetrics{}, log,
		WithClock(clock.now), WithMaxAge(10*time.Minute))

	stale := models.Snapshot{
		Table: "t", Symbol: "BTCUSDT", Timeframe: "1h",
		At:     clock.now().Add(-time.Hour),
		Fields: map[string]any{"z": 1.0},
	}
	det.OnSnapshot(context.Background(), stale)

	fresh := stale
	fresh.At = clock.now()
	fresh.Fields = map[string]any{"z": 3.0}
	// The stale row was never swapped in, so this is still a first sighting.
	if n := det.OnSnapshot(context.Background(), fresh); n != 0 {
		t.Fatalf("stale row leaked into the arena, fired %d", n)
	}
}

func TestDetectorHistoryFailureDoesNotBlockEmission(t *testing.T) {
	f := newFixture(t, testRule("besteffort_rule"))
	f.history.failed = true
	ctx := context.Background()

	f.det.OnSnapshot(ctx, f.snapshot(1.0))
	if n := f.det.OnSnapshot(ctx, f.snapshot(3.0)); n != 1 {
		t.Fatalf("history failure suppressed emission, fired %d", n)
	}
	sig := f.recv(t)
	if sig.RuleName != "besteffort_rule" {
		t.Fatalf("unexpected signal %+v", sig)
	}
}

var _ domrepo.Metrics = nopMetrics{}
var _ domrepo.HistoryStore = (*memHistory)(nil)
