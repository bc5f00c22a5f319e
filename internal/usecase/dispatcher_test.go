package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"SignalFlow/internal/domain/models"
	"SignalFlow/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

type memSubs struct {
	mu   sync.Mutex
	subs map[string]models.Subscription
	err  error
}

func (s *memSubs) Get(ctx context.Context, consumerID string) (models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return models.Subscription{}, s.err
	}
	if sub, ok := s.subs[consumerID]; ok {
		return sub, nil
	}
	return models.Subscription{ConsumerID: consumerID, Enabled: true, Tables: map[string]bool{"ta_rsi": true}}, nil
}
func (s *memSubs) SetEnabled(ctx context.Context, consumerID string, enabled bool) error { return nil }
func (s *memSubs) SetTable(ctx context.Context, consumerID, table string, enabled bool) error {
	return nil
}
func (s *memSubs) SetAllTables(ctx context.Context, consumerID string, enabled bool) error {
	return nil
}
func (s *memSubs) ConsumersFor(ctx context.Context, table string) ([]string, error) { return nil, nil }
func (s *memSubs) Close() error                                                     { return nil }

type recordingMetrics struct {
	mu         sync.Mutex
	deliveries map[string][]string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{deliveries: make(map[string][]string)}
}

func (m *recordingMetrics) RecordSignal(rule, table string, direction models.Direction) {}
func (m *recordingMetrics) RecordCycle(table string, seconds float64)                   {}
func (m *recordingMetrics) RecordFetchError(table string)                               {}
func (m *recordingMetrics) RecordCooldownSkip(rule string)                              {}
func (m *recordingMetrics) RecordDelivery(consumer, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries[consumer] = append(m.deliveries[consumer], status)
}

func (m *recordingMetrics) statuses(consumer string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deliveries[consumer]...)
}

type fakeNotifier struct {
	mu    sync.Mutex
	id    string
	fails int
	got   []models.Signal
}

func (n *fakeNotifier) ConsumerID() string { return n.id }
func (n *fakeNotifier) Notify(ctx context.Context, s models.Signal) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fails > 0 {
		n.fails--
		return errors.New("endpoint down")
	}
	n.got = append(n.got, s)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.got)
}

type memSpool struct {
	mu   sync.Mutex
	msgs []interface{}
}

func (q *memSpool) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = append(q.msgs, payload)
	return nil
}

func (q *memSpool) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs)
}

func rsiSignal() models.Signal {
	return models.Signal{
		Symbol:      "BTCUSDT",
		Direction:   models.DirectionBuy,
		RuleName:    "rsi_oversold_entry",
		Timeframe:   "1h",
		SourceTable: "ta_rsi",
		Message:     "BTCUSDT oversold",
	}
}

func TestDispatchDeliversToAllowedConsumer(t *testing.T) {
	metrics := newRecordingMetrics()
	d := NewDispatcher(&memSubs{}, metrics, testLogger(t))
	n := &fakeNotifier{id: "alerts"}
	d.Register(n)

	d.Dispatch(rsiSignal())

	if n.count() != 1 {
		t.Fatalf("expected 1 delivery, got %d", n.count())
	}
	if got := metrics.statuses("alerts"); len(got) != 1 || got[0] != "ok" {
		t.Fatalf("unexpected statuses %v", got)
	}
}

func TestDispatchFiltersDisabledTable(t *testing.T) {
	subs := &memSubs{subs: map[string]models.Subscription{
		"alerts": {ConsumerID: "alerts", Enabled: true, Tables: map[string]bool{"ta_macd": true}},
	}}
	metrics := newRecordingMetrics()
	d := NewDispatcher(subs, metrics, testLogger(t))
	n := &fakeNotifier{id: "alerts"}
	d.Register(n)

	d.Dispatch(rsiSignal())

	if n.count() != 0 {
		t.Fatalf("expected no delivery, got %d", n.count())
	}
	if got := metrics.statuses("alerts"); len(got) != 1 || got[0] != "filtered" {
		t.Fatalf("unexpected statuses %v", got)
	}
}

func TestDispatchFiltersDisabledConsumer(t *testing.T) {
	subs := &memSubs{subs: map[string]models.Subscription{
		"alerts": {ConsumerID: "alerts", Enabled: false, Tables: map[string]bool{"ta_rsi": true}},
	}}
	metrics := newRecordingMetrics()
	d := NewDispatcher(subs, metrics, testLogger(t))
	n := &fakeNotifier{id: "alerts"}
	d.Register(n)

	d.Dispatch(rsiSignal())

	if n.count() != 0 {
		t.Fatalf("expected no delivery, got %d", n.count())
	}
}

func TestDispatchFailsOpenOnStoreError(t *testing.T) {
	subs := &memSubs{err: errors.New("redis down")}
	metrics := newRecordingMetrics()
	d := NewDispatcher(subs, metrics, testLogger(t))
	n := &fakeNotifier{id: "alerts"}
	d.Register(n)

	d.Dispatch(rsiSignal())

	if n.count() != 1 {
		t.Fatalf("expected delivery despite store error, got %d", n.count())
	}
}

func TestDispatchSpoolsFailedDelivery(t *testing.T) {
	metrics := newRecordingMetrics()
	spool := &memSpool{}
	d := NewDispatcher(&memSubs{}, metrics, testLogger(t), WithSpool(spool))
	n := &fakeNotifier{id: "alerts", fails: 1}
	d.Register(n)

	d.Dispatch(rsiSignal())

	if spool.count() != 1 {
		t.Fatalf("expected 1 spooled message, got %d", spool.count())
	}
	if got := metrics.statuses("alerts"); len(got) != 1 || got[0] != "spooled" {
		t.Fatalf("unexpected statuses %v", got)
	}
}

func TestDispatchThrottleLimitsBurst(t *testing.T) {
	metrics := newRecordingMetrics()
	d := NewDispatcher(&memSubs{}, metrics, testLogger(t), WithThrottle(2, 0.0001))
	n := &fakeNotifier{id: "alerts"}
	d.Register(n)

	for i := 0; i < 4; i++ {
		d.Dispatch(rsiSignal())
	}

	if n.count() != 2 {
		t.Fatalf("expected 2 deliveries under throttle, got %d", n.count())
	}
	throttled := 0
	for _, s := range metrics.statuses("alerts") {
		if s == "throttled" {
			throttled++
		}
	}
	if throttled != 2 {
		t.Fatalf("expected 2 throttled, got %d", throttled)
	}
}

func TestDeliveryJobRedelivers(t *testing.T) {
	metrics := newRecordingMetrics()
	d := NewDispatcher(&memSubs{}, metrics, testLogger(t))
	n := &fakeNotifier{id: "alerts"}
	d.Register(n)
	job := NewDeliveryJob(d)

	// payload as it arrives after a Redis round trip
	payload := map[string]interface{}{
		"consumer_id": "alerts",
		"signal":      map[string]interface{}{"symbol": "BTCUSDT", "rule_name": "rsi_oversold_entry"},
	}
	if err := job.Handle(context.Background(), payload); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if n.count() != 1 {
		t.Fatalf("expected redelivery, got %d", n.count())
	}
}

func TestDeliveryJobReturnsErrorForRetry(t *testing.T) {
	metrics := newRecordingMetrics()
	d := NewDispatcher(&memSubs{}, metrics, testLogger(t))
	n := &fakeNotifier{id: "alerts", fails: 1}
	d.Register(n)
	job := NewDeliveryJob(d)

	err := job.Handle(context.Background(), DeliveryPayload{ConsumerID: "alerts", Signal: rsiSignal()})
	if err == nil {
		t.Fatalf("expected error so the queue retries")
	}
}
