package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ETAnderson/catalogsync/internal/metrics"
	"github.com/ETAnderson/catalogsync/internal/queue"
)

// Pool runs WorkersPerTopic runners on every topic. Run returns once every
// runner has settled its current message.
type Pool struct {
	Broker          queue.Broker
	Dispatcher      Dispatcher
	Topics          []queue.Topic
	WorkersPerTopic int
	InstanceID      string
	PollEvery       time.Duration
	ReconnectDelay  time.Duration

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

func (p Pool) Run(ctx context.Context) error {
	if p.Broker == nil {
		return errors.New("broker is nil")
	}
	if len(p.Topics) == 0 {
		p.Topics = queue.Topics
	}
	if p.WorkersPerTopic <= 0 {
		p.WorkersPerTopic = 5
	}
	if p.InstanceID == "" {
		p.InstanceID = "worker"
	}
	if p.ReconnectDelay <= 0 {
		p.ReconnectDelay = 5 * time.Second
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}

	if err := declare(ctx, p.Broker, p.ReconnectDelay, p.Logger); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("declare queues: %w", err)
	}

	p.Logger.Info("worker pool starting",
		zap.Int("workers_per_topic", p.WorkersPerTopic),
		zap.Int("topics", len(p.Topics)),
		zap.Int("max_attempts", p.Dispatcher.MaxAttempts),
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, topic := range p.Topics {
		for i := range p.WorkersPerTopic {
			r := Runner{
				Broker:         p.Broker,
				Topic:          topic,
				Consumer:       ConsumerName(p.InstanceID, topic, i),
				PollEvery:      p.PollEvery,
				ReconnectDelay: p.ReconnectDelay,
				Dispatch:       p.Dispatcher.Dispatch,
				Logger:         p.Logger,
				Metrics:        p.Metrics,
			}
			g.Go(func() error { return r.Run(gctx) })
		}
	}

	err := g.Wait()
	if ctx.Err() != nil {
		p.Logger.Info("worker pool stopped")
		return nil
	}
	return err
}

// ConsumerName is stable across restarts of the same instance, which lets
// the redis broker hand back what a previous process left unsettled.
func ConsumerName(instanceID string, topic queue.Topic, index int) string {
	return fmt.Sprintf("%s:%s:%d", instanceID, topic, index)
}
