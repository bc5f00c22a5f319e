package repository

import (
	"context"
	"time"

	"SignalFlow/internal/domain/models"
)

// SnapshotSource pulls the latest row per tracked entity from one metric table.
type SnapshotSource interface {
	// FetchLatest returns the newest snapshot per (symbol, timeframe) for the
	// given table, one batch per poll cycle.
	FetchLatest(ctx context.Context, table string) ([]models.Snapshot, error)
	Health(ctx context.Context) error
	Close() error
}

// CooldownStore tracks last-fired timestamps per (rule, entity). Durable;
// state survives process restarts.
type CooldownStore interface {
	// Allowed reports whether the window has elapsed since the last fire.
	// Read-only; does not reserve the slot.
	Allowed(ctx context.Context, rule string, key models.EntityKey, window time.Duration) (bool, error)
	// TryAcquire atomically checks the window and, when elapsed, records now
	// as the new last-fired timestamp. Exactly one concurrent caller wins.
	TryAcquire(ctx context.Context, rule string, key models.EntityKey, window time.Duration) (bool, error)
	Close() error
}

// HistoryStore persists emitted signals. Best-effort: a failed insert is
// logged and never blocks emission.
type HistoryStore interface {
	Init(ctx context.Context) error
	Insert(ctx context.Context, s models.Signal) error
	// Recent returns the newest rows, optionally narrowed by the query's
	// symbol and direction.
	Recent(ctx context.Context, q models.HistoryQuery) ([]models.Signal, error)
	Stats(ctx context.Context, since time.Time) (*models.HistoryStats, error)
	// Purge removes rows older than the retention horizon.
	Purge(ctx context.Context, olderThan time.Time) error
	Close() error
}

// SubscriptionStore holds per-consumer delivery filters. Consumers without a
// stored row get the opt-out default: enabled, all tables on.
type SubscriptionStore interface {
	Get(ctx context.Context, consumerID string) (models.Subscription, error)
	SetEnabled(ctx context.Context, consumerID string, enabled bool) error
	SetTable(ctx context.Context, consumerID, table string, enabled bool) error
	SetAllTables(ctx context.Context, consumerID string, enabled bool) error
	// ConsumersFor lists consumer IDs currently accepting signals from table.
	ConsumersFor(ctx context.Context, table string) ([]string, error)
	Close() error
}

// SignalPublisher pushes emitted signals to the external firehose.
type SignalPublisher interface {
	Publish(ctx context.Context, s models.Signal) error
	Close() error
}

// Metrics is implemented by the Prometheus recorder.
type Metrics interface {
	RecordSignal(rule, table string, direction models.Direction)
	RecordCycle(table string, seconds float64)
	RecordFetchError(table string)
	RecordDelivery(consumer, status string)
	RecordCooldownSkip(rule string)
}
