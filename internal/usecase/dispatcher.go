package usecase

import (
	"context"
	"sync"
	"time"

	"SignalFlow/internal/domain/models"
	drepo "SignalFlow/internal/domain/repository"
	"SignalFlow/internal/engine"
	"SignalFlow/internal/service/ratelimit"
	"SignalFlow/pkg/logger"
	"SignalFlow/pkg/queue"
)

// DeliveryMsgType is the queue message type for spooled deliveries.
const DeliveryMsgType = "signal_delivery"

// DeliveryPayload is one spooled delivery attempt.
type DeliveryPayload struct {
	ConsumerID string        `json:"consumer_id"`
	Signal     models.Signal `json:"signal"`
}

// Dispatcher fans fired signals out to registered consumers. Per signal it
// applies the consumer's subscription filter, a per-consumer token bucket,
// then attempts delivery. Failed deliveries are spooled onto the job queue
// for retry; the firehose publisher receives every signal unfiltered.
type Dispatcher struct {
	subs     drepo.SubscriptionStore
	limiter  *ratelimit.Limiter
	firehose drepo.SignalPublisher
	spool    queue.QueueService
	metrics  drepo.Metrics
	log      *logger.Logger

	throttleCapacity float64
	throttleRefill   float64
	deliverTimeout   time.Duration

	mu        sync.RWMutex
	notifiers map[string]Notifier
}

// DispatcherOption configures Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithThrottle sets the per-consumer token bucket parameters.
func WithThrottle(capacity, refillPerSec float64) DispatcherOption {
	return func(d *Dispatcher) {
		if capacity > 0 {
			d.throttleCapacity = capacity
		}
		if refillPerSec > 0 {
			d.throttleRefill = refillPerSec
		}
	}
}

// WithFirehose attaches the unfiltered signal publisher.
func WithFirehose(pub drepo.SignalPublisher) DispatcherOption {
	return func(d *Dispatcher) { d.firehose = pub }
}

// WithSpool attaches the retry queue for failed deliveries.
func WithSpool(q queue.QueueService) DispatcherOption {
	return func(d *Dispatcher) { d.spool = q }
}

// WithDeliverTimeout bounds one notifier call.
func WithDeliverTimeout(t time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if t > 0 {
			d.deliverTimeout = t
		}
	}
}

func NewDispatcher(
	subs drepo.SubscriptionStore,
	metrics drepo.Metrics,
	log *logger.Logger,
	opts ...DispatcherOption,
) *Dispatcher {
	d := &Dispatcher{
		subs:             subs,
		limiter:          ratelimit.New(),
		metrics:          metrics,
		log:              log,
		throttleCapacity: 30,
		throttleRefill:   0.5,
		deliverTimeout:   10 * time.Second,
		notifiers:        make(map[string]Notifier),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds a consumer notifier. Registering the same consumer twice
// replaces the previous notifier.
func (d *Dispatcher) Register(n Notifier) {
	d.mu.Lock()
	d.notifiers[n.ConsumerID()] = n
	d.mu.Unlock()
}

// Attach subscribes the dispatcher to the signal bus.
func (d *Dispatcher) Attach(bus *engine.Bus) {
	bus.Subscribe("dispatcher", d.Dispatch)
}

// Dispatch handles one fired signal. It never blocks the bus beyond the
// delivery timeout per consumer.
func (d *Dispatcher) Dispatch(s models.Signal) {
	ctx, cancel := context.WithTimeout(context.Background(), d.deliverTimeout)
	defer cancel()

	if d.firehose != nil {
		if err := d.firehose.Publish(ctx, s); err != nil {
			d.log.Error("firehose publish failed",
				logger.String("rule", s.RuleName),
				logger.Error(err))
			d.metrics.RecordDelivery("firehose", "error")
		} else {
			d.metrics.RecordDelivery("firehose", "ok")
		}
	}

	for _, n := range d.snapshot() {
		d.dispatchOne(ctx, n, s)
	}
}

func (d *Dispatcher) dispatchOne(ctx context.Context, n Notifier, s models.Signal) {
	id := n.ConsumerID()

	sub, err := d.subs.Get(ctx, id)
	if err != nil {
		// Fail open: a broken subscription store must not silence alerts.
		d.log.Warn("subscription lookup failed, delivering anyway",
			logger.String("consumer", id),
			logger.Error(err))
	} else if !sub.Allows(s.SourceTable) {
		d.metrics.RecordDelivery(id, "filtered")
		return
	}

	if !d.limiter.Allow(id, d.throttleCapacity, d.throttleRefill) {
		d.metrics.RecordDelivery(id, "throttled")
		return
	}

	if err := n.Notify(ctx, s); err != nil {
		d.log.Warn("delivery failed",
			logger.String("consumer", id),
			logger.String("rule", s.RuleName),
			logger.Error(err))
		d.spoolRetry(ctx, id, s)
		return
	}
	d.metrics.RecordDelivery(id, "ok")
}

func (d *Dispatcher) spoolRetry(ctx context.Context, consumerID string, s models.Signal) {
	if d.spool == nil {
		d.metrics.RecordDelivery(consumerID, "dropped")
		return
	}
	err := d.spool.PublishMessage(ctx, DeliveryMsgType, DeliveryPayload{
		ConsumerID: consumerID,
		Signal:     s,
	})
	if err != nil {
		d.log.Error("spool delivery retry failed",
			logger.String("consumer", consumerID),
			logger.Error(err))
		d.metrics.RecordDelivery(consumerID, "dropped")
		return
	}
	d.metrics.RecordDelivery(consumerID, "spooled")
}

// Deliver sends directly to one registered consumer, bypassing filters and
// throttle. The retry job uses it; filters already passed on first attempt.
func (d *Dispatcher) Deliver(ctx context.Context, consumerID string, s models.Signal) error {
	d.mu.RLock()
	n, ok := d.notifiers[consumerID]
	d.mu.RUnlock()
	if !ok {
		d.metrics.RecordDelivery(consumerID, "unknown")
		return nil
	}
	if err := n.Notify(ctx, s); err != nil {
		d.metrics.RecordDelivery(consumerID, "retry_error")
		return err
	}
	d.metrics.RecordDelivery(consumerID, "retry_ok")
	return nil
}

func (d *Dispatcher) snapshot() []Notifier {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Notifier, 0, len(d.notifiers))
	for _, n := range d.notifiers {
		out = append(out, n)
	}
	return out
}
