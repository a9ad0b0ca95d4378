package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/ETAnderson/catalogsync/internal/queue"
)

// Dispatcher runs a delivered envelope through its kind's handler and
// decides how the message is settled.
type Dispatcher struct {
	Registry Registry

	// MaxAttempts > 0 dead-letters a task once it has failed that many
	// times. 0 requeues forever.
	MaxAttempts int

	Logger *zap.Logger
}

func (d Dispatcher) Dispatch(ctx context.Context, e queue.Envelope) queue.Outcome {
	log := d.logger().With(
		zap.String("task_id", e.ID),
		zap.String("type", string(e.Kind)),
		zap.String("merchant_id", e.MerchantID),
		zap.Int("attempt", e.Attempt),
	)
	if e.CategoryID != "" {
		log = log.With(zap.String("category_id", e.CategoryID))
	}

	h, ok := d.Registry.Get(e.Kind)
	if !ok {
		log.Error("no handler for task type, dead-lettering")
		return queue.DeadLetter
	}

	ctx = WithMerchantID(WithTaskID(ctx, e.ID), e.MerchantID)

	if err := h.Handle(ctx, e.Task); err != nil {
		if d.MaxAttempts > 0 && e.Attempt+1 >= d.MaxAttempts {
			log.Error("task failed, attempts exhausted", zap.Error(err))
			return queue.DeadLetter
		}
		log.Warn("task failed, requeueing", zap.Error(err))
		return queue.Requeue
	}

	log.Debug("task done")
	return queue.Ack
}

func (d Dispatcher) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

