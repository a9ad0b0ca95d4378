package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "catalogsync"

func redisQueueKey(t Topic) string { return fmt.Sprintf("%s:queue:%s", redisPrefix, t) }
func redisDeadKey(t Topic) string  { return fmt.Sprintf("%s:dead:%s", redisPrefix, t) }
func redisProcessingKey(t Topic, consumer string) string {
	return fmt.Sprintf("%s:processing:%s:%s", redisPrefix, t, consumer)
}

// RedisBroker implements the reliable-list pattern: LMOVE claims a message
// into a per-consumer processing list, settle removes it from there.
// Consumer names must be stable across restarts so a restarted consumer
// finds and returns what its predecessor left unsettled.
type RedisBroker struct {
	rdb *redis.Client

	mu        sync.Mutex
	recovered map[string]bool
}

func NewRedisBroker(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{rdb: rdb, recovered: make(map[string]bool)}
}

// Declare checks the connection. Redis lists exist implicitly.
func (b *RedisBroker) Declare(ctx context.Context) error {
	b.mu.Lock()
	b.recovered = make(map[string]bool)
	b.mu.Unlock()

	return b.rdb.Ping(ctx).Err()
}

func (b *RedisBroker) Publish(ctx context.Context, e Envelope) error {
	payload, err := Encode(e)
	if err != nil {
		return err
	}
	return b.rdb.LPush(ctx, redisQueueKey(e.Topic()), payload).Err()
}

func (b *RedisBroker) Receive(ctx context.Context, topic Topic, consumer string) (Delivery, bool, error) {
	processing := redisProcessingKey(topic, consumer)

	if err := b.recover(ctx, topic, processing); err != nil {
		return Delivery{}, false, err
	}

	raw, err := b.rdb.LMove(ctx, redisQueueKey(topic), processing, "RIGHT", "LEFT").Result()
	if errors.Is(err, redis.Nil) {
		return Delivery{}, false, nil
	}
	if err != nil {
		return Delivery{}, false, err
	}

	d := Delivery{Topic: topic, Consumer: consumer, Receipt: raw}
	e, err := Decode([]byte(raw))
	if err != nil {
		return d, true, err
	}
	d.Envelope = e
	return d, true, nil
}

// recover moves whatever a previous incarnation of this consumer left in
// its processing list back onto the queue. Runs once per consumer per Declare.
func (b *RedisBroker) recover(ctx context.Context, topic Topic, processing string) error {
	b.mu.Lock()
	done := b.recovered[processing]
	b.mu.Unlock()
	if done {
		return nil
	}

	for {
		err := b.rdb.LMove(ctx, processing, redisQueueKey(topic), "RIGHT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return err
		}
	}

	b.mu.Lock()
	b.recovered[processing] = true
	b.mu.Unlock()
	return nil
}

func (b *RedisBroker) Settle(ctx context.Context, d Delivery, outcome Outcome) error {
	processing := redisProcessingKey(d.Topic, d.Consumer)

	switch outcome {
	case Ack:
		return b.rdb.LRem(ctx, processing, 1, d.Receipt).Err()

	case Requeue:
		payload, err := Encode(d.Envelope.Retried())
		if err != nil {
			return err
		}
		_, err = b.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.LRem(ctx, processing, 1, d.Receipt)
			p.LPush(ctx, redisQueueKey(d.Topic), payload)
			return nil
		})
		return err

	case DeadLetter:
		_, err := b.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.LRem(ctx, processing, 1, d.Receipt)
			p.LPush(ctx, redisDeadKey(d.Topic), d.Receipt)
			return nil
		})
		return err

	default:
		return fmt.Errorf("unknown outcome %d", outcome)
	}
}

func (b *RedisBroker) Close() error {
	return b.rdb.Close()
}
