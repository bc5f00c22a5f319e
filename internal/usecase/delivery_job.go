package usecase

import (
	"context"
	"fmt"

	"SignalFlow/pkg/queue"
)

// DeliveryJob retries spooled signal deliveries off the job queue. A returned
// error lets the queue apply its own retry schedule and dead letter.
type DeliveryJob struct {
	dispatcher *Dispatcher
}

func NewDeliveryJob(dispatcher *Dispatcher) *DeliveryJob {
	return &DeliveryJob{dispatcher: dispatcher}
}

func (j *DeliveryJob) Name() string { return "signal-delivery" }
func (j *DeliveryJob) Type() string { return DeliveryMsgType }

func (j *DeliveryJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[DeliveryPayload](payload)
	if err != nil {
		return fmt.Errorf("delivery payload: %w", err)
	}
	return j.dispatcher.Deliver(ctx, p.ConsumerID, p.Signal)
}

var _ queue.Job = (*DeliveryJob)(nil)
