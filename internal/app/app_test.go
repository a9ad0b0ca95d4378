package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ETAnderson/catalogsync/internal/config"
	"github.com/ETAnderson/catalogsync/internal/credentials"
	"github.com/ETAnderson/catalogsync/internal/queue"
	"github.com/ETAnderson/catalogsync/internal/state"
)

func memoryConfig() config.Config {
	return config.Config{
		StateBackend:    "memory",
		Queue:           config.QueueConfig{Backend: "memory"},
		Upstream:        config.UpstreamConfig{BaseURL: "http://upstream.invalid", AccessToken: "tok"},
		WorkersPerQueue: 2,
		InstanceID:      "test",
	}
}

func TestNew_MemoryBackends(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &state.MemoryStore{}, a.Store)
	assert.IsType(t, &queue.MemoryBroker{}, a.Broker)
	assert.Nil(t, a.DB)
	assert.Equal(t, 2, a.Pool.WorkersPerTopic)
	assert.NotNil(t, a.Scheduler)

	for _, k := range []queue.Kind{queue.KindCategories, queue.KindProducts, queue.KindInitial} {
		_, ok := a.Pool.Dispatcher.Registry.Get(k)
		assert.True(t, ok, "handler for %s", k)
	}
}

func TestNew_RejectsBadBackends(t *testing.T) {
	cfg := memoryConfig()
	cfg.Queue.Backend = "mysql"
	_, err := New(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err, "mysql queue without DSN")

	cfg = memoryConfig()
	cfg.Upstream.CredentialSource = "vault"
	_, err = New(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestNewCredentialSource(t *testing.T) {
	store := state.NewMemoryStore()

	src, err := NewCredentialSource(config.UpstreamConfig{AccessToken: "x"}, store)
	require.NoError(t, err)
	assert.IsType(t, &credentials.Static{}, src)

	src, err = NewCredentialSource(config.UpstreamConfig{CredentialSource: "store"}, store)
	require.NoError(t, err)
	assert.IsType(t, &credentials.StoreSource{}, src)
}
