package engine

import (
	"context"
	"sync"
	"time"

	"SignalFlow/internal/domain/models"
	"SignalFlow/internal/domain/repository"
	"SignalFlow/pkg/logger"
)

// PollEngine drives the detector from periodic store reads: every interval it
// fetches the latest row per entity for each watched table and feeds them
// through the detector. Tables are fetched concurrently; one failing table
// never blocks the others. Stop takes effect at the next cycle boundary.
type PollEngine struct {
	det      *Detector
	source   repository.SnapshotSource
	metrics  repository.Metrics
	log      *logger.Logger
	interval time.Duration

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewPollEngine(
	det *Detector,
	source repository.SnapshotSource,
	metrics repository.Metrics,
	log *logger.Logger,
	interval time.Duration,
) *PollEngine {
	if interval <= 0 {
		interval = time.Minute
	}
	return &PollEngine{
		det:      det,
		source:   source,
		metrics:  metrics,
		log:      log,
		interval: interval,
	}
}

// Start launches the poll loop. The first cycle runs immediately.
func (e *PollEngine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	e.mu.Unlock()

	go e.run(ctx)
	e.log.Info("poll engine started",
		logger.Duration("interval", e.interval),
		logger.Strings("tables", e.det.Tables()))
}

// Stop signals the loop and waits for the in-flight cycle to finish.
func (e *PollEngine) Stop() {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}
	e.started = false
	close(e.stopCh)
	done := e.doneCh
	e.mu.Unlock()

	<-done
	e.log.Info("poll engine stopped")
}

func (e *PollEngine) run(ctx context.Context) {
	defer close(e.doneCh)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.cycle(ctx)
	for {
		select {
		case <-e.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.cycle(ctx)
		}
	}
}

// cycle fetches every table in parallel, then evaluates sequentially so the
// arena sees each entity's snapshots in order.
func (e *PollEngine) cycle(ctx context.Context) {
	tables := e.det.Tables()
	results := make([][]models.Snapshot, len(tables))

	var wg sync.WaitGroup
	for i, table := range tables {
		wg.Add(1)
		go func(i int, table string) {
			defer wg.Done()
			start := time.Now()
			snaps, err := e.source.FetchLatest(ctx, table)
			if err != nil {
				e.log.Error("poll engine: fetch failed",
					logger.String("table", table),
					logger.Error(err))
				e.metrics.RecordFetchError(table)
				return
			}
			results[i] = snaps
			e.metrics.RecordCycle(table, time.Since(start).Seconds())
		}(i, table)
	}
	wg.Wait()

	// The cycle always runs to completion; Stop waits at the boundary.
	for _, snaps := range results {
		for _, s := range snaps {
			e.det.OnSnapshot(ctx, s)
		}
	}
}
