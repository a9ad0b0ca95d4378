package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ETAnderson/catalogsync/internal/domain"
	"github.com/ETAnderson/catalogsync/internal/queue"
	"github.com/ETAnderson/catalogsync/internal/state"
)

func seedMerchants(t *testing.T, n int) *state.MemoryStore {
	t.Helper()
	s := state.NewMemoryStore()
	for i := range n {
		require.NoError(t, s.UpsertMerchant(context.Background(), domain.Merchant{ID: fmt.Sprintf("m%03d", i), UserID: "u"}))
	}
	return s
}

func TestBatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n, size int
		want    []int
	}{
		{n: 65, size: 30, want: []int{30, 30, 5}},
		{n: 60, size: 30, want: []int{30, 30}},
		{n: 3, size: 30, want: []int{3}},
		{n: 0, size: 30, want: nil},
		{n: 31, size: 0, want: []int{30, 1}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_by_%d", tt.n, tt.size), func(t *testing.T) {
			t.Parallel()

			var sizes []int
			for _, b := range Batches(make([]int, tt.n), tt.size) {
				sizes = append(sizes, len(b))
			}
			assert.Equal(t, tt.want, sizes)
		})
	}
}

func TestRunCategoriesSync_OneTaskPerMerchantAcrossBatches(t *testing.T) {
	store := seedMerchants(t, 65)
	b := queue.NewMemoryBroker()
	s := New(store, b, Config{BatchSize: 30}, zap.NewNop(), nil)

	rep, err := s.RunCategoriesSync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{30, 30, 5}, rep.Batches)
	assert.Equal(t, 65, rep.Published)
	assert.Zero(t, rep.Failed)

	pending := b.Pending(queue.TopicCategories)
	require.Len(t, pending, 65)
	seen := make(map[string]bool)
	for _, e := range pending {
		assert.Equal(t, queue.KindCategories, e.Kind)
		assert.NotEmpty(t, e.ID)
		assert.False(t, seen[e.MerchantID], "duplicate task for %s", e.MerchantID)
		seen[e.MerchantID] = true
	}
}

func TestRunProductsSync_UsesLocalCategoriesAndSkipsEmptyMerchants(t *testing.T) {
	ctx := context.Background()
	store := seedMerchants(t, 3)
	require.NoError(t, store.UpsertCategory(ctx, domain.Category{MerchantID: "m000", CategoryID: "a"}))
	require.NoError(t, store.UpsertCategory(ctx, domain.Category{MerchantID: "m000", CategoryID: "b"}))
	require.NoError(t, store.UpsertCategory(ctx, domain.Category{MerchantID: "m002", CategoryID: "c"}))

	b := queue.NewMemoryBroker()
	rep, err := New(store, b, Config{}, zap.NewNop(), nil).RunProductsSync(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Published)
	assert.Equal(t, 1, rep.Skipped, "m001 has no categories")

	got := make(map[string]bool)
	for _, e := range b.Pending(queue.TopicProducts) {
		got[e.MerchantID+"/"+e.CategoryID] = true
	}
	assert.Equal(t, map[string]bool{"m000/a": true, "m000/b": true, "m002/c": true}, got)
	assert.Empty(t, b.Pending(queue.TopicCategories))
}

// failingPublisher rejects tasks for one merchant.
type failingPublisher struct {
	*queue.MemoryBroker
	reject string
}

func (f failingPublisher) Publish(ctx context.Context, e queue.Envelope) error {
	if e.MerchantID == f.reject {
		return errors.New("broker unreachable")
	}
	return f.MemoryBroker.Publish(ctx, e)
}

func TestRunCategoriesSync_PublishFailuresAreCounted(t *testing.T) {
	store := seedMerchants(t, 4)
	p := failingPublisher{MemoryBroker: queue.NewMemoryBroker(), reject: "m001"}

	rep, err := New(store, p, Config{}, zap.NewNop(), nil).RunCategoriesSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Published)
	assert.Equal(t, 1, rep.Failed)
}

// countingEnumerator wraps a store and fails or counts listing calls.
type countingEnumerator struct {
	state.Enumerator
	fail       bool
	categories atomic.Int32
}

func (c *countingEnumerator) ListMerchants(ctx context.Context) ([]domain.Merchant, error) {
	if c.fail {
		return nil, errors.New("db down")
	}
	return c.Enumerator.ListMerchants(ctx)
}

func (c *countingEnumerator) ListCategories(ctx context.Context, merchantID string) ([]domain.Category, error) {
	c.categories.Add(1)
	return c.Enumerator.ListCategories(ctx, merchantID)
}

func TestPass_ListMerchantsFailureIsReturned(t *testing.T) {
	e := &countingEnumerator{Enumerator: state.NewMemoryStore(), fail: true}
	_, err := New(e, queue.NewMemoryBroker(), Config{}, zap.NewNop(), nil).RunProductsSync(context.Background())
	require.Error(t, err)
}

func TestRun_CategoriesNowProductsAfterDelay(t *testing.T) {
	ctx := context.Background()
	store := seedMerchants(t, 2)
	require.NoError(t, store.UpsertCategory(ctx, domain.Category{MerchantID: "m000", CategoryID: "a"}))
	e := &countingEnumerator{Enumerator: store}

	b := queue.NewMemoryBroker()
	s := New(e, b, Config{
		CategoriesEvery:      time.Hour,
		ProductsEvery:        time.Hour,
		ProductsInitialDelay: 150 * time.Millisecond,
	}, zap.NewNop(), nil)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- s.Run(runCtx) }()

	require.Eventually(t, func() bool { return len(b.Pending(queue.TopicCategories)) == 2 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, e.categories.Load(), "products pass waits for its delay")

	require.Eventually(t, func() bool { return len(b.Pending(queue.TopicProducts)) == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
