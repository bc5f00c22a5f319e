package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"SignalFlow/internal/domain/models"
	domrepo "SignalFlow/internal/domain/repository"
)

type fakeSource struct {
	mu    sync.Mutex
	snaps map[string]models.Snapshot
	fail  map[string]bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		snaps: make(map[string]models.Snapshot),
		fail:  make(map[string]bool),
	}
}

func (s *fakeSource) FetchLatest(ctx context.Context, table string) ([]models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[table] {
		return nil, errors.New("fetch failed")
	}
	snap, ok := s.snaps[table]
	if !ok {
		return nil, nil
	}
	return []models.Snapshot{snap}, nil
}

func (s *fakeSource) Health(ctx context.Context) error { return nil }
func (s *fakeSource) Close() error                     { return nil }

func (s *fakeSource) set(table string, snap models.Snapshot) {
	s.mu.Lock()
	s.snaps[table] = snap
	s.mu.Unlock()
}

func (s *fakeSource) setFail(table string, v bool) {
	s.mu.Lock()
	s.fail[table] = v
	s.mu.Unlock()
}

func TestPollCycleSurvivesFetchFailure(t *testing.T) {
	ruleT := testRule("t_cross")
	ruleU := testRule("u_cross")
	ruleU.SourceTable = "u"
	f := newFixture(t, ruleT, ruleU)

	src := newFakeSource()
	eng := NewPollEngine(f.det, src, nopMetrics{}, testLogger(t), time.Minute)
	ctx := context.Background()

	uSnap := func(z float64) models.Snapshot {
		s := f.snapshot(z)
		s.Table = "u"
		return s
	}

	// First cycle primes both tables below the threshold.
	src.set("t", f.snapshot(1.0))
	src.set("u", uSnap(1.0))
	eng.cycle(ctx)

	// Second cycle: t's fetch fails while u crosses. u must still fire.
	src.setFail("t", true)
	src.set("u", uSnap(3.0))
	eng.cycle(ctx)

	sig := f.recv(t)
	if sig.RuleName != "u_cross" {
		t.Fatalf("expected u_cross, got %q", sig.RuleName)
	}

	// Third cycle: t recovers; the transition against the last good fetch
	// still registers, so the failed cycle did not corrupt t's state.
	src.setFail("t", false)
	src.set("t", f.snapshot(3.0))
	eng.cycle(ctx)

	sig = f.recv(t)
	if sig.RuleName != "t_cross" {
		t.Fatalf("expected t_cross, got %q", sig.RuleName)
	}

	select {
	case extra := <-f.signals:
		t.Fatalf("unexpected extra signal %q", extra.RuleName)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPollEngineStopWaitsForCycle(t *testing.T) {
	f := newFixture(t, testRule("stop_rule"))
	src := newFakeSource()
	eng := NewPollEngine(f.det, src, nopMetrics{}, testLogger(t), time.Minute)

	eng.Start(context.Background())

	done := make(chan struct{})
	go func() {
		eng.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop did not return")
	}
}

var _ domrepo.SnapshotSource = (*fakeSource)(nil)
