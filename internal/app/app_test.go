package app

import (
	"context"
	"errors"
	"testing"

	"github.com/alexliesenfeld/health"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/internal/config"
	"github.com/luxfi/fhevm/internal/queue"
	"github.com/luxfi/fhevm/internal/ratelimit"
	"github.com/luxfi/fhevm/internal/storage"
)

func loadConfig(t *testing.T, args ...string) config.Config {
	t.Helper()
	fs := config.BuildFlagSet()
	require.NoError(t, fs.Parse(args))
	v, err := config.BuildViper(fs)
	require.NoError(t, err)
	cfg, err := config.NewConfig(v)
	require.NoError(t, err)
	return cfg
}

func TestBuildMemory(t *testing.T) {
	cfg := loadConfig(t, "--default-type=uint64")
	c, err := Build(cfg, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	require.IsType(t, &storage.MemoryStorage{}, c.Storage)
	require.IsType(t, &queue.MemoryQueue{}, c.Queue)
	require.IsType(t, &ratelimit.MemoryStore{}, c.Limits)
	require.True(t, c.Limiter.Enabled())
	require.Equal(t, fhevm.Uint64, c.Preparer.Validator().DefaultTag())
}

func TestBuildFileStorage(t *testing.T) {
	cfg := loadConfig(t, "--storage="+t.TempDir(), "--rate-limit=0")
	c, err := Build(cfg, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	require.IsType(t, &storage.FileStorage{}, c.Storage)
	require.False(t, c.Limiter.Enabled())
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger("test", loadConfig(t, "--log-level=warn"))
	require.NoError(t, err)
	require.False(t, log.Core().Enabled(zap.InfoLevel))
	require.True(t, log.Core().Enabled(zap.WarnLevel))
}

type downStorage struct{ storage.Storage }

func (downStorage) Exists(context.Context, storage.Handle) (bool, error) {
	return false, errors.New("disk gone")
}

type downQueue struct{ queue.Queue }

func (downQueue) Ping(context.Context) error { return errors.New("redis down") }

func TestHealthChecker(t *testing.T) {
	c, err := Build(loadConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	res := c.HealthChecker().Check(context.Background())
	require.Equal(t, health.StatusUp, res.Status)

	mem := c.Queue
	c.Queue = downQueue{mem}
	res = c.HealthChecker().Check(context.Background())
	require.Equal(t, health.StatusDown, res.Status)
	require.Equal(t, health.StatusDown, res.Details["queue"].Status)

	c.Queue = mem
	c.Storage = downStorage{c.Storage}
	res = c.HealthChecker().Check(context.Background())
	require.Equal(t, health.StatusDown, res.Status)
	require.Equal(t, health.StatusDown, res.Details["storage"].Status)
}
