package engine

import (
	"sync"

	"SignalFlow/internal/domain/models"
	"SignalFlow/pkg/logger"
)

// SignalFunc consumes one emitted signal.
type SignalFunc func(models.Signal)

// Bus fans emitted signals out to named subscribers. Each subscriber gets its
// own buffered channel drained by its own goroutine, so one slow or panicking
// consumer never stalls the engines or its peers. Publish drops when a
// subscriber's buffer is full.
type Bus struct {
	mu      sync.RWMutex
	subs    map[string]chan models.Signal
	buffer  int
	log     *logger.Logger
	wg      sync.WaitGroup
	closed  bool
	dropped func(name string)
}

type BusOption func(*Bus)

// WithBusBuffer sets the per-subscriber channel capacity.
func WithBusBuffer(n int) BusOption {
	return func(b *Bus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithDropCallback observes drops, keyed by subscriber name.
func WithDropCallback(fn func(name string)) BusOption {
	return func(b *Bus) { b.dropped = fn }
}

func NewBus(log *logger.Logger, opts ...BusOption) *Bus {
	b := &Bus{
		subs:   make(map[string]chan models.Signal),
		buffer: 256,
		log:    log,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers fn under name. Subscribing an existing name again is a
// no-op, so wiring code can be re-run safely.
func (b *Bus) Subscribe(name string, fn SignalFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if _, exists := b.subs[name]; exists {
		b.log.Warn("bus: subscriber already registered", logger.String("subscriber", name))
		return
	}
	ch := make(chan models.Signal, b.buffer)
	b.subs[name] = ch
	b.wg.Add(1)
	go b.drain(name, ch, fn)
}

// Unsubscribe removes a subscriber; its goroutine exits after draining.
func (b *Bus) Unsubscribe(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[name]; ok {
		delete(b.subs, name)
		close(ch)
	}
}

// Publish hands s to every subscriber without blocking. A full subscriber
// buffer loses this signal for that subscriber only.
func (b *Bus) Publish(s models.Signal) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for name, ch := range b.subs {
		select {
		case ch <- s:
		default:
			b.log.Warn("bus: subscriber buffer full, dropping signal",
				logger.String("subscriber", name),
				logger.String("rule", s.RuleName),
				logger.String("symbol", s.Symbol))
			if b.dropped != nil {
				b.dropped(name)
			}
		}
	}
}

// Close shuts the bus down and waits for subscribers to drain.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for name, ch := range b.subs {
		delete(b.subs, name)
		close(ch)
	}
	b.mu.Unlock()
	b.wg.Wait()
}

func (b *Bus) drain(name string, ch <-chan models.Signal, fn SignalFunc) {
	defer b.wg.Done()
	for s := range ch {
		b.deliver(name, fn, s)
	}
}

// deliver isolates one callback invocation so a panic is contained to the
// signal that caused it.
func (b *Bus) deliver(name string, fn SignalFunc, s models.Signal) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("bus: subscriber panicked",
				logger.String("subscriber", name),
				logger.String("rule", s.RuleName),
				logger.Any("panic", r))
		}
	}()
	fn(s)
}
