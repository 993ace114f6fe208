// Package helpers provides shared fixtures for manager tests: an in-memory
// Redis environment wired with the storage engine, event bus, and lifecycle
// manager, plus blueprint and archive builders
package helpers

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/orchestra-dev/orchestra/internal/config"
	"github.com/orchestra-dev/orchestra/internal/events"
	"github.com/orchestra-dev/orchestra/internal/lifecycle"
	"github.com/orchestra-dev/orchestra/internal/runner"
	"github.com/orchestra-dev/orchestra/internal/store"
)

// TestEnv holds the components needed for lifecycle and storage testing
type TestEnv struct {
	Config  *config.Config
	Redis   *miniredis.Miniredis
	Client  *redis.Client
	Storage *store.RedisStore
	Hub     *events.Hub
	Index   *events.Index
	Bus     *events.Bus
	Runner  *runner.Local
	Manager *lifecycle.Manager
}

const testPrefix = "test"

// NewTestConfig creates a default configuration with debug logging and a
// throwaway file server root
func NewTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.LogLevel = "debug"
	cfg.FileServerRoot = t.TempDir()
	cfg.FileServerBaseURL = "file://" + cfg.FileServerRoot
	return cfg
}

// NewTestEnv creates a fully wired test environment backed by an in-memory
// Redis. Everything is torn down when the test finishes
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := NewTestConfig(t)
	cfg.Store.Addr = server.Addr()
	cfg.Store.Prefix = testPrefix

	storage := store.NewRedisStoreWithClient(client, testPrefix)
	hub := events.NewHub(client, testPrefix)
	index := events.NewIndex(client, testPrefix)
	bus := events.NewBus(hub, index)
	local := runner.NewLocal(storage)

	return &TestEnv{
		Config:  cfg,
		Redis:   server,
		Client:  client,
		Storage: storage,
		Hub:     hub,
		Index:   index,
		Bus:     bus,
		Runner:  local,
		Manager: lifecycle.NewManager(cfg, storage, local, bus),
	}
}

// WithTestEnv creates a test environment and executes the provided function
// with it
func WithTestEnv(t *testing.T, fn func(*TestEnv)) {
	t.Helper()
	fn(NewTestEnv(t))
}
