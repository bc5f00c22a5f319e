package usecase

import (
	"context"

	"SignalFlow/internal/engine"
	pkgkafka "SignalFlow/pkg/kafka"
)

// KafkaSnapshotsHandler feeds pushed snapshot envelopes from Kafka into the
// shared detector. It runs beside the poll engine; the shared state arena and
// cooldown store keep the two paths from double-firing.
type KafkaSnapshotsHandler struct {
	topic string
	det   *engine.Detector
}

func NewKafkaSnapshotsHandler(topic string, det *engine.Detector) *KafkaSnapshotsHandler {
	return &KafkaSnapshotsHandler{topic: topic, det: det}
}

func (h *KafkaSnapshotsHandler) Topic() string { return h.topic }

func (h *KafkaSnapshotsHandler) Handle(ctx context.Context, b []byte) error {
	snap, err := engine.ParseSnapshot(b)
	if err != nil {
		// Malformed frames are not retryable.
		return err
	}
	h.det.OnSnapshot(ctx, snap)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaSnapshotsHandler)(nil)
