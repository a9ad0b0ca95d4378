package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ETAnderson/catalogsync/internal/queue"
)

func nopLogger() *zap.Logger { return zap.NewNop() }

func TestPool_DrainsEveryTopic(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	b := queue.NewMemoryBroker()
	const perTopic = 20
	for i := range perTopic {
		m := fmt.Sprintf("m%d", i)
		for _, task := range []queue.Task{queue.CategoriesTask(m), queue.ProductsTask(m, "c1"), queue.InitialTask(m)} {
			if _, err := queue.PublishTask(ctx, b, task); err != nil {
				t.Fatalf("publish: %v", err)
			}
		}
	}

	var (
		mu   sync.Mutex
		seen = make(map[queue.Kind]int)
		all  = make(chan struct{})
	)
	count := func(ctx context.Context, task queue.Task) error {
		mu.Lock()
		defer mu.Unlock()
		seen[task.Kind]++
		if seen[queue.KindCategories]+seen[queue.KindProducts]+seen[queue.KindInitial] == 3*perTopic {
			close(all)
		}
		return nil
	}

	p := Pool{
		Broker: b,
		Dispatcher: Dispatcher{Registry: NewRegistry(
			HandlerFunc{K: queue.KindCategories, Fn: count},
			HandlerFunc{K: queue.KindProducts, Fn: count},
			HandlerFunc{K: queue.KindInitial, Fn: count},
		)},
		WorkersPerTopic: 3,
		InstanceID:      "test",
		PollEvery:       5 * time.Millisecond,
		Logger:          nopLogger(),
	}

	poolCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- p.Run(poolCtx) }()

	select {
	case <-all:
	case <-ctx.Done():
		t.Fatalf("pool did not drain the topics: %v", seen)
	}
	stop()

	if err := <-done; err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}
	for _, k := range []queue.Kind{queue.KindCategories, queue.KindProducts, queue.KindInitial} {
		if seen[k] != perTopic {
			t.Fatalf("kind %s: expected %d, got %d", k, perTopic, seen[k])
		}
	}
}

func TestConsumerName_IsStable(t *testing.T) {
	a := ConsumerName("host-1", queue.TopicProducts, 2)
	b := ConsumerName("host-1", queue.TopicProducts, 2)
	if a != b || a != "host-1:products:2" {
		t.Fatalf("unexpected consumer names %q %q", a, b)
	}
}
