package worker

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/ETAnderson/catalogsync/internal/metrics"
	"github.com/ETAnderson/catalogsync/internal/queue"
)

// Runner is one consumer on one topic. It holds at most one unsettled
// message at a time.
type Runner struct {
	Broker         queue.Broker
	Topic          queue.Topic
	Consumer       string
	PollEvery      time.Duration
	ReconnectDelay time.Duration
	Dispatch       func(ctx context.Context, e queue.Envelope) queue.Outcome

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

func (r Runner) Run(ctx context.Context) error {
	if r.Broker == nil {
		return errors.New("broker is nil")
	}
	if r.PollEvery <= 0 {
		r.PollEvery = time.Second
	}
	if r.ReconnectDelay <= 0 {
		r.ReconnectDelay = 5 * time.Second
	}
	if r.Dispatch == nil {
		r.Dispatch = func(context.Context, queue.Envelope) queue.Outcome { return queue.Ack }
	}
	if r.Logger == nil {
		r.Logger = zap.NewNop()
	}
	r.Logger = r.Logger.With(zap.String("topic", string(r.Topic)), zap.String("consumer", r.Consumer))

	ticker := time.NewTicker(r.PollEvery)
	defer ticker.Stop()

	for {
		// drain, then wait for the next poll
		if err := r.drain(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.Logger.Warn("broker error, reconnecting", zap.Error(err))
			if err := r.reconnect(ctx); err != nil {
				return err
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r Runner) drain(ctx context.Context) error {
	for ctx.Err() == nil {
		d, ok, err := r.Broker.Receive(ctx, r.Topic, r.Consumer)
		if !ok {
			return err
		}
		if err := r.process(ctx, d, err); err != nil {
			return err
		}
	}
	return nil
}

// process runs and settles one delivery. Both happen on a context that
// ignores shutdown so a started task is never cut short.
func (r Runner) process(ctx context.Context, d queue.Delivery, decodeErr error) error {
	work := context.WithoutCancel(ctx)

	if decodeErr != nil {
		r.Logger.Error("undecodable message, dead-lettering", zap.String("receipt", d.Receipt), zap.Error(decodeErr))
		r.Metrics.TaskHandled(string(r.Topic), queue.DeadLetter.String(), 0)
		return r.Broker.Settle(work, d, queue.DeadLetter)
	}

	start := time.Now()
	outcome := r.Dispatch(work, d.Envelope)
	r.Metrics.TaskHandled(string(r.Topic), outcome.String(), time.Since(start))

	return r.Broker.Settle(work, d, outcome)
}

// reconnect waits a fixed delay before each attempt to re-declare the
// queue until one succeeds or ctx ends.
func (r Runner) reconnect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.ReconnectDelay):
	}

	if err := declare(ctx, r.Broker, r.ReconnectDelay, r.Logger); err != nil {
		return err
	}
	r.Metrics.BrokerReconnect()
	r.Logger.Info("queue re-declared")
	return nil
}

func declare(ctx context.Context, b queue.Broker, delay time.Duration, log *zap.Logger) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, b.Declare(ctx)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(delay)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("queue declare failed", zap.Error(err), zap.Duration("retry_in", next))
		}),
	)
	return err
}
