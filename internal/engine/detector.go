package engine

import (
	"context"
	"time"

	"SignalFlow/internal/domain/models"
	"SignalFlow/internal/domain/repository"
	"SignalFlow/internal/rules"
	"SignalFlow/pkg/logger"
)

// Detector is the shared evaluation core behind both engine variants. Given
// one snapshot it runs every rule bound to the snapshot's table through the
// filter chain, acquires the cooldown slot atomically, and emits.
type Detector struct {
	registry  *rules.Registry
	cooldowns repository.CooldownStore
	history   repository.HistoryStore
	bus       *Bus
	state     *StateArena
	metrics   repository.Metrics
	log       *logger.Logger
	maxAge    time.Duration
	now       func() time.Time
}

type DetectorOption func(*Detector)

// WithMaxAge drops snapshots older than d before evaluation. Zero disables
// the freshness gate.
func WithMaxAge(d time.Duration) DetectorOption {
	return func(det *Detector) { det.maxAge = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) DetectorOption {
	return func(det *Detector) { det.now = now }
}

func NewDetector(
	registry *rules.Registry,
	cooldowns repository.CooldownStore,
	history repository.HistoryStore,
	bus *Bus,
	metrics repository.Metrics,
	log *logger.Logger,
	opts ...DetectorOption,
) *Detector {
	det := &Detector{
		registry:  registry,
		cooldowns: cooldowns,
		history:   history,
		bus:       bus,
		state:     NewStateArena(),
		metrics:   metrics,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(det)
	}
	return det
}

// OnSnapshot evaluates all rules for cur's table and returns how many signals
// fired. Errors inside never propagate: a failed cooldown check suppresses the
// single rule, a failed history insert only loses the record.
func (d *Detector) OnSnapshot(ctx context.Context, cur models.Snapshot) int {
	now := d.now()
	if d.maxAge > 0 && now.Sub(cur.At) > d.maxAge {
		d.log.Debug("detector: stale snapshot skipped",
			logger.String("table", cur.Table),
			logger.String("entity", cur.Entity().String()))
		return 0
	}

	prev := d.state.Swap(cur)
	fired := 0

	for _, rule := range d.registry.RulesFor(cur.Table) {
		if rule.MinQuoteVolume > 0 && cur.QuoteVolume < rule.MinQuoteVolume {
			continue
		}
		if !rule.AllowsTimeframe(cur.Timeframe) {
			continue
		}
		if !Evaluate(rule, prev, cur) {
			continue
		}

		ok, err := d.cooldowns.TryAcquire(ctx, rule.Name, cur.Entity(), rule.Cooldown)
		if err != nil {
			// Can't prove the window elapsed, so stay quiet rather than spam.
			d.log.Error("detector: cooldown check failed, suppressing",
				logger.String("rule", rule.Name),
				logger.String("entity", cur.Entity().String()),
				logger.Error(err))
			d.metrics.RecordCooldownSkip(rule.Name)
			continue
		}
		if !ok {
			d.metrics.RecordCooldownSkip(rule.Name)
			continue
		}

		sig := d.buildSignal(rule, cur, now)
		if err := d.history.Insert(ctx, sig); err != nil {
			d.log.Error("detector: history insert failed",
				logger.String("rule", rule.Name),
				logger.String("symbol", sig.Symbol),
				logger.Error(err))
		}
		d.bus.Publish(sig)
		d.metrics.RecordSignal(rule.Name, rule.SourceTable, rule.Direction)
		fired++

		d.log.Info("signal fired",
			logger.String("rule", rule.Name),
			logger.String("symbol", sig.Symbol),
			logger.String("timeframe", sig.Timeframe),
			logger.String("direction", string(sig.Direction)))
	}
	return fired
}

func (d *Detector) buildSignal(rule models.Rule, cur models.Snapshot, at time.Time) models.Signal {
	return models.Signal{
		Symbol:      cur.Symbol,
		Direction:   rule.Direction,
		Strength:    rule.Strength,
		RuleName:    rule.Name,
		Timeframe:   cur.Timeframe,
		Price:       cur.Price,
		Message:     RenderMessage(rule, cur),
		Category:    rule.Category,
		Subcategory: rule.Subcategory,
		SourceTable: rule.SourceTable,
		Priority:    rule.Priority,
		Timestamp:   at,
	}
}

// Tables exposes the watched table set for the engines.
func (d *Detector) Tables() []string {
	return d.registry.Tables()
}
