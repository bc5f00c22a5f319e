package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"SignalFlow/internal/domain/models"
	"SignalFlow/internal/domain/repository"
	"SignalFlow/pkg/logger"
)

// SnapshotEnvelope is the wire form of a snapshot on the push paths (Kafka
// topic and WebSocket feed). Numeric and string fields travel separately and
// are merged into one field map on decode.
type SnapshotEnvelope struct {
	Table       string             `json:"table"`
	Symbol      string             `json:"symbol"`
	Timeframe   string             `json:"timeframe"`
	TS          int64              `json:"ts"`
	Price       float64            `json:"price"`
	QuoteVolume float64            `json:"quote_volume"`
	Num         map[string]float64 `json:"num"`
	Attrs       map[string]string  `json:"attrs"`
}

// ParseSnapshot decodes one pushed snapshot. ts is unix milliseconds. The
// timeframe label is normalized to the supported set; unknown labels fall
// back to the default.
func ParseSnapshot(data []byte) (models.Snapshot, error) {
	var env SnapshotEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return models.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if env.Table == "" || env.Symbol == "" {
		return models.Snapshot{}, fmt.Errorf("decode snapshot: table/symbol missing")
	}
	fields := make(map[string]any, len(env.Num)+len(env.Attrs))
	for k, v := range env.Num {
		fields[k] = v
	}
	for k, v := range env.Attrs {
		fields[k] = v
	}
	return models.Snapshot{
		Table:       env.Table,
		Symbol:      env.Symbol,
		Timeframe:   string(repository.NormalizeTimeframe(env.Timeframe)),
		At:          time.UnixMilli(env.TS),
		Price:       env.Price,
		QuoteVolume: env.QuoteVolume,
		Fields:      fields,
	}, nil
}

// StreamEngine drives the detector from a push channel, the second engine
// variant. It shares the detector (and its state arena and cooldowns) with
// the poll engine, so a pushed snapshot and a polled one never double-fire.
type StreamEngine struct {
	det *Detector
	in  <-chan models.Snapshot
	log *logger.Logger

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewStreamEngine(det *Detector, in <-chan models.Snapshot, log *logger.Logger) *StreamEngine {
	return &StreamEngine{det: det, in: in, log: log}
}

func (e *StreamEngine) Start(ctx context.Context) {
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
	e.log.Info("stream engine started")
}

// Stop waits for the snapshot being evaluated to finish.
func (e *StreamEngine) Stop() {
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
	e.log.Info("stream engine stopped")
}

func (e *StreamEngine) run(ctx context.Context) {
	defer close(e.doneCh)
	for {
		select {
		case <-e.stopCh:
			return
		case <-ctx.Done():
			return
		case s, ok := <-e.in:
			if !ok {
				return
			}
			e.det.OnSnapshot(ctx, s)
		}
	}
}
