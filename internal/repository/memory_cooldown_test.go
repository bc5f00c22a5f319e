package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"SignalFlow/internal/domain/models"
)

func TestCooldownFirstFireAllowed(t *testing.T) {
	s := NewMemoryCooldownStore()
	key := models.EntityKey{Symbol: "BTCUSDT", Timeframe: "1h"}

	ok, err := s.Allowed(context.Background(), "r", key, time.Minute)
	if err != nil || !ok {
		t.Fatalf("Allowed = %v, %v; want true, nil", ok, err)
	}
	got, err := s.TryAcquire(context.Background(), "r", key, time.Minute)
	if err != nil || !got {
		t.Fatalf("TryAcquire = %v, %v; want true, nil", got, err)
	}
	ok, _ = s.Allowed(context.Background(), "r", key, time.Minute)
	if ok {
		t.Fatalf("window should be closed right after acquire")
	}
}

func TestCooldownWindowElapses(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	s := NewMemoryCooldownStore().WithClock(clock)
	key := models.EntityKey{Symbol: "ETHUSDT", Timeframe: "5m"}

	if ok, _ := s.TryAcquire(context.Background(), "r", key, time.Minute); !ok {
		t.Fatalf("first acquire refused")
	}
	if ok, _ := s.TryAcquire(context.Background(), "r", key, time.Minute); ok {
		t.Fatalf("second acquire inside window succeeded")
	}

	mu.Lock()
	now = now.Add(61 * time.Second)
	mu.Unlock()

	if ok, _ := s.TryAcquire(context.Background(), "r", key, time.Minute); !ok {
		t.Fatalf("acquire after window refused")
	}
}

func TestCooldownKeysAreIndependent(t *testing.T) {
	s := NewMemoryCooldownStore()
	a := models.EntityKey{Symbol: "BTCUSDT", Timeframe: "1h"}
	b := models.EntityKey{Symbol: "BTCUSDT", Timeframe: "4h"}

	if ok, _ := s.TryAcquire(context.Background(), "r", a, time.Minute); !ok {
		t.Fatalf("acquire for a refused")
	}
	if ok, _ := s.TryAcquire(context.Background(), "r", b, time.Minute); !ok {
		t.Fatalf("different timeframe should have its own window")
	}
	if ok, _ := s.TryAcquire(context.Background(), "other", a, time.Minute); !ok {
		t.Fatalf("different rule should have its own window")
	}
}

func TestCooldownConcurrentAcquireHasOneWinner(t *testing.T) {
	s := NewMemoryCooldownStore()
	key := models.EntityKey{Symbol: "BTCUSDT", Timeframe: "1h"}

	const goroutines = 32
	var wins atomic.Int64
	var start, done sync.WaitGroup
	start.Add(1)
	done.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer done.Done()
			start.Wait()
			ok, err := s.TryAcquire(context.Background(), "r", key, time.Minute)
			if err != nil {
				t.Errorf("TryAcquire error: %v", err)
				return
			}
			if ok {
				wins.Add(1)
			}
		}()
	}
	start.Done()
	done.Wait()

	if wins.Load() != 1 {
		t.Fatalf("winners = %d, want exactly 1", wins.Load())
	}
}
