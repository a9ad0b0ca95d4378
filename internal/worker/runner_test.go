package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ETAnderson/catalogsync/internal/queue"
)

func TestRunner_DefaultsAndStopsOnContext(t *testing.T) {
	r := Runner{
		Broker: queue.NewMemoryBroker(),
		Topic:  queue.TopicCategories,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := r.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestRunner_RequiresBroker(t *testing.T) {
	if err := (Runner{}).Run(context.Background()); err == nil {
		t.Fatalf("expected error for nil broker")
	}
}

func TestRunner_DrainSettlesEveryOutcome(t *testing.T) {
	ctx := context.Background()
	b := queue.NewMemoryBroker()

	for _, m := range []string{"ok", "retry", "dead"} {
		if _, err := queue.PublishTask(ctx, b, queue.CategoriesTask(m)); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	r := Runner{
		Broker:   b,
		Topic:    queue.TopicCategories,
		Consumer: "test",
		Dispatch: func(ctx context.Context, e queue.Envelope) queue.Outcome {
			switch e.MerchantID {
			case "retry":
				if e.Attempt == 0 {
					return queue.Requeue
				}
				return queue.Ack
			case "dead":
				return queue.DeadLetter
			default:
				return queue.Ack
			}
		},
	}

	if err := r.drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	if n := len(b.Pending(queue.TopicCategories)); n != 0 {
		t.Fatalf("expected empty topic, got %d pending", n)
	}
	if n := b.InFlight(); n != 0 {
		t.Fatalf("expected nothing in flight, got %d", n)
	}
	dead := b.Dead(queue.TopicCategories)
	if len(dead) != 1 || dead[0].MerchantID != "dead" {
		t.Fatalf("expected one dead letter for merchant dead, got %+v", dead)
	}
}

func TestRunner_DispatchSurvivesShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := queue.NewMemoryBroker()
	if _, err := queue.PublishTask(ctx, b, queue.InitialTask("m1")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	started := make(chan struct{})
	var sawCancel atomic.Bool

	r := Runner{
		Broker:    b,
		Topic:     queue.TopicInitialSync,
		PollEvery: 10 * time.Millisecond,
		Dispatch: func(ctx context.Context, e queue.Envelope) queue.Outcome {
			close(started)
			time.Sleep(30 * time.Millisecond)
			sawCancel.Store(ctx.Err() != nil)
			return queue.Ack
		},
	}

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	<-started
	cancel()
	<-done

	if sawCancel.Load() {
		t.Fatalf("in-flight task saw the shutdown cancellation")
	}
	if n := b.InFlight(); n != 0 {
		t.Fatalf("expected the in-flight task to be settled, got %d", n)
	}
}

// flakyBroker fails the first receive so the runner has to reconnect.
type flakyBroker struct {
	*queue.MemoryBroker

	mu       sync.Mutex
	failures int
	declares int
}

func (f *flakyBroker) Receive(ctx context.Context, topic queue.Topic, consumer string) (queue.Delivery, bool, error) {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return queue.Delivery{}, false, errors.New("connection reset by peer")
	}
	f.mu.Unlock()
	return f.MemoryBroker.Receive(ctx, topic, consumer)
}

func (f *flakyBroker) Declare(ctx context.Context) error {
	f.mu.Lock()
	f.declares++
	f.mu.Unlock()
	return f.MemoryBroker.Declare(ctx)
}

func TestRunner_ReconnectsAfterBrokerError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	b := &flakyBroker{MemoryBroker: queue.NewMemoryBroker(), failures: 2}
	if _, err := queue.PublishTask(ctx, b, queue.CategoriesTask("m1")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	handled := make(chan struct{})
	r := Runner{
		Broker:         b,
		Topic:          queue.TopicCategories,
		PollEvery:      5 * time.Millisecond,
		ReconnectDelay: 5 * time.Millisecond,
		Dispatch: func(ctx context.Context, e queue.Envelope) queue.Outcome {
			close(handled)
			return queue.Ack
		},
	}

	go func() { _ = r.Run(ctx) }()

	select {
	case <-handled:
	case <-ctx.Done():
		t.Fatalf("task was never handled")
	}

	b.mu.Lock()
	declares := b.declares
	b.mu.Unlock()
	if declares < 2 {
		t.Fatalf("expected a declare per broker error, got %d", declares)
	}
}

// poisonBroker hands out one delivery that could not be decoded.
type poisonBroker struct {
	*queue.MemoryBroker
	served  bool
	settled []queue.Outcome
}

func (p *poisonBroker) Receive(ctx context.Context, topic queue.Topic, consumer string) (queue.Delivery, bool, error) {
	if p.served {
		return queue.Delivery{}, false, nil
	}
	p.served = true
	return queue.Delivery{Topic: topic, Consumer: consumer, Receipt: "1"}, true, queue.ErrInvalidTask
}

func (p *poisonBroker) Settle(ctx context.Context, d queue.Delivery, outcome queue.Outcome) error {
	p.settled = append(p.settled, outcome)
	return nil
}

func TestRunner_UndecodableMessageIsDeadLettered(t *testing.T) {
	b := &poisonBroker{MemoryBroker: queue.NewMemoryBroker()}
	called := false

	r := Runner{
		Broker: b,
		Topic:  queue.TopicProducts,
		Dispatch: func(context.Context, queue.Envelope) queue.Outcome {
			called = true
			return queue.Ack
		},
	}
	r.Logger = nopLogger()

	if err := r.drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if called {
		t.Fatalf("dispatch must not run for an undecodable message")
	}
	if len(b.settled) != 1 || b.settled[0] != queue.DeadLetter {
		t.Fatalf("expected one dead letter, got %v", b.settled)
	}
}
