package engine

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"SignalFlow/internal/domain/models"
	"SignalFlow/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger.New failed: %v", err)
	}
	return log
}

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus(testLogger(t))
	defer bus.Close()

	var a, b atomic.Int64
	var wg sync.WaitGroup
	wg.Add(2)
	bus.Subscribe("a", func(models.Signal) { a.Add(1); wg.Done() })
	bus.Subscribe("b", func(models.Signal) { b.Add(1); wg.Done() })

	bus.Publish(models.Signal{RuleName: "r", Symbol: "BTCUSDT"})
	waitDone(t, &wg)

	if a.Load() != 1 || b.Load() != 1 {
		t.Fatalf("deliveries a=%d b=%d, want 1 each", a.Load(), b.Load())
	}
}

func TestBusSubscribeIdempotent(t *testing.T) {
	bus := NewBus(testLogger(t))
	defer bus.Close()

	var n atomic.Int64
	var wg sync.WaitGroup
	wg.Add(1)
	bus.Subscribe("dup", func(models.Signal) { n.Add(1); wg.Done() })
	bus.Subscribe("dup", func(models.Signal) { n.Add(100) })

	bus.Publish(models.Signal{RuleName: "r"})
	waitDone(t, &wg)

	if n.Load() != 1 {
		t.Fatalf("duplicate subscribe should be a no-op, got %d deliveries", n.Load())
	}
}

func TestBusPanicIsolation(t *testing.T) {
	bus := NewBus(testLogger(t))
	defer bus.Close()

	var healthy atomic.Int64
	var wg sync.WaitGroup
	wg.Add(2)
	bus.Subscribe("panicky", func(models.Signal) { panic("boom") })
	bus.Subscribe("healthy", func(models.Signal) { healthy.Add(1); wg.Done() })

	bus.Publish(models.Signal{RuleName: "r1"})
	bus.Publish(models.Signal{RuleName: "r2"})
	waitDone(t, &wg)

	if healthy.Load() != 2 {
		t.Fatalf("healthy subscriber got %d signals, want 2", healthy.Load())
	}
}

func TestBusDropsWhenBufferFull(t *testing.T) {
	var drops atomic.Int64
	release := make(chan struct{})
	started := make(chan struct{})

	bus := NewBus(testLogger(t),
		WithBusBuffer(1),
		WithDropCallback(func(string) { drops.Add(1) }))
	defer bus.Close()

	bus.Subscribe("slow", func(models.Signal) {
		select {
		case <-started:
		default:
			close(started)
		}
		<-release
	})

	bus.Publish(models.Signal{}) // consumed by the goroutine
	<-started
	bus.Publish(models.Signal{}) // fills the buffer
	bus.Publish(models.Signal{}) // dropped

	if drops.Load() == 0 {
		t.Fatalf("expected at least one drop with a full buffer")
	}
	close(release)
}

func waitDone(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for deliveries")
	}
}
