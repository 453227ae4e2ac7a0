// Package app assembles gateway and worker components from a Config.
package app

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/internal/config"
	"github.com/luxfi/fhevm/internal/preparer"
	"github.com/luxfi/fhevm/internal/queue"
	"github.com/luxfi/fhevm/internal/ratelimit"
	"github.com/luxfi/fhevm/internal/storage"
)

// NewLogger builds a JSON logger at the configured level.
func NewLogger(name string, cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(cfg.ZapLevel())
	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	log, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log.Named(name), nil
}

// Components are the shared pieces both commands run on.
type Components struct {
	Storage  storage.Storage
	Queue    queue.Queue
	Limiter  *ratelimit.Limiter
	Limits   ratelimit.Store
	Preparer *preparer.Preparer
	Registry *prometheus.Registry
}

// Close releases everything Build opened.
func (c *Components) Close() error {
	var firstErr error
	for _, closer := range []interface{ Close() error }{c.Limits, c.Queue, c.Storage} {
		if closer == nil {
			continue
		}
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Build opens storage, queue and rate limit state per cfg.
func Build(cfg config.Config, log *zap.Logger) (*Components, error) {
	c := &Components{Registry: prometheus.NewRegistry()}
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var err error
	if c.Storage, err = newStorage(cfg); err != nil {
		return nil, err
	}

	if c.Queue, err = newQueue(cfg); err != nil {
		c.Close()
		return nil, err
	}

	if cfg.SharedRateLimit() {
		c.Limits, err = ratelimit.NewRedisStore(ratelimit.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.QueueName)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("create rate limit store: %w", err)
		}
	} else {
		c.Limits = ratelimit.NewMemoryStore()
	}

	if c.Limiter, err = ratelimit.New(c.Limits, cfg.RateLimit, cfg.RateWindow); err != nil {
		c.Close()
		return nil, fmt.Errorf("create rate limiter: %w", err)
	}

	validator, err := fhevm.NewValidator(fhevm.WithDefaultTag(cfg.DefaultTag()))
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Preparer = preparer.New(validator, c.Storage, log.Named("preparer"))

	log.Info("components ready",
		zap.String("storage", cfg.Storage),
		zap.String("queue", cfg.Queue),
		zap.Int("rate-limit", cfg.RateLimit),
		zap.Stringer("default-type", validator.DefaultTag()),
	)
	return c, nil
}

func newStorage(cfg config.Config) (storage.Storage, error) {
	if cfg.Storage == config.BackendMemory {
		return storage.NewMemoryStorage(cfg.StorageCapacityMB), nil
	}
	if err := os.MkdirAll(cfg.Storage, 0750); err != nil {
		return nil, fmt.Errorf("create storage: %w", err)
	}
	store, err := storage.NewFileStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("create storage: %w", err)
	}
	return store, nil
}

func newQueue(cfg config.Config) (queue.Queue, error) {
	if cfg.Queue == config.BackendMemory {
		return queue.NewMemoryQueue(cfg.QueueCapacity), nil
	}
	q, err := queue.NewRedisQueue(queue.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, cfg.QueueName)
	if err != nil {
		return nil, fmt.Errorf("create queue: %w", err)
	}
	return q, nil
}
