// Command fhevm-worker resolves decryption jobs from a shared Redis queue.
// It reads the same flags and config file as fhevm-gateway.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexliesenfeld/health"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/luxfi/fhevm/internal/app"
	"github.com/luxfi/fhevm/internal/config"
	"github.com/luxfi/fhevm/internal/preparer"
	"github.com/luxfi/fhevm/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := config.BuildFlagSet()
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}
	v, err := config.BuildViper(fs)
	if err != nil {
		return err
	}
	cfg, err := config.NewConfig(v)
	if err != nil {
		return err
	}
	if cfg.Queue != config.BackendRedis {
		return errors.New("fhevm-worker needs --queue=redis; the memory queue is only reachable in-process")
	}
	if cfg.Storage == config.BackendMemory {
		return errors.New("fhevm-worker needs --storage=<dir> shared with the gateway")
	}
	if cfg.Workers <= 0 {
		return errors.New("--workers must be positive")
	}

	logger, err := app.NewLogger("fhevm-worker", cfg)
	if err != nil {
		return fmt.Errorf("error building logger: %w", err)
	}
	defer logger.Sync()

	components, err := app.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := worker.NewPool(
		worker.Config{NumWorkers: cfg.Workers},
		components.Queue,
		components.Preparer,
		preparer.NewPlaceholderDecryptor(logger.Named("decryptor")),
		logger.Named("worker"),
		worker.NewMetrics(components.Registry),
	)
	if err := pool.Start(ctx); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /health", health.NewHandler(components.HealthChecker()))
	mux.Handle("GET /metrics", promhttp.HandlerFor(components.Registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("health and metrics server starting", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown error", zap.Error(err))
	}
	if err := pool.Stop(); err != nil {
		logger.Warn("worker pool shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}
