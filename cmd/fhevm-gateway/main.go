// Command fhevm-gateway serves the input validation and preparation API and,
// unless the redis queue is paired with --workers=0, resolves decryption
// jobs in-process.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/fhevm/internal/app"
	"github.com/luxfi/fhevm/internal/config"
	"github.com/luxfi/fhevm/internal/gateway"
	"github.com/luxfi/fhevm/internal/preparer"
	"github.com/luxfi/fhevm/internal/ratelimit"
	"github.com/luxfi/fhevm/internal/worker"
)

var version = "v0.0.0-dev"

func main() {
	cfg := buildConfig()

	logger, err := app.NewLogger("fhevm-gateway", cfg)
	if err != nil {
		log.Fatalf("error building logger: %s", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Exited with error", zap.Error(err))
	}
}

// buildConfig parses the flags and builds the config. Errors here call
// log.Fatalf since they happen before the logger exists.
func buildConfig() config.Config {
	fs := config.BuildFlagSet()
	if err := fs.Parse(os.Args[1:]); err != nil {
		config.DisplayUsageText(fs)
		log.Fatalf("Failed to parse flags: %s", err)
	}

	if help, _ := fs.GetBool(config.HelpKey); help {
		config.DisplayUsageText(fs)
		os.Exit(0)
	}
	if displayVersion, _ := fs.GetBool(config.VersionKey); displayVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	v, err := config.BuildViper(fs)
	if err != nil {
		log.Fatalf("couldn't configure flags: %s", err)
	}
	cfg, err := config.NewConfig(v)
	if err != nil {
		log.Fatalf("couldn't build config: %s", err)
	}
	return cfg
}

func run(cfg config.Config, logger *zap.Logger) error {
	logger.Info("Initializing fhevm-gateway", zap.String("version", version))

	components, err := app.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := gateway.New(gateway.Config{
		Preparer: components.Preparer,
		Storage:  components.Storage,
		Queue:    components.Queue,
		Limiter:  components.Limiter,
		Logger:   logger.Named("api"),
		Metrics:  gateway.NewMetrics(components.Registry),
		Gatherer: components.Registry,
	})
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Workers > 0 {
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
		defer func() {
			if err := pool.Stop(); err != nil {
				logger.Warn("worker pool shutdown error", zap.Error(err))
			}
		}()
	}

	if mem, ok := components.Limits.(*ratelimit.MemoryStore); ok && cfg.RateLimit > 0 {
		g.Go(func() error {
			sweepRateLimits(ctx, mem, cfg.RateWindow, logger)
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Shutdown complete")
	return nil
}

func sweepRateLimits(ctx context.Context, store *ratelimit.MemoryStore, window time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := store.Sweep(now, window); n > 0 {
				logger.Debug("swept idle rate limit keys", zap.Int("keys", n))
			}
		}
	}
}
