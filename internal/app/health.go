package app

import (
	"context"
	"time"

	"github.com/alexliesenfeld/health"

	"github.com/luxfi/fhevm/internal/storage"
)

// HealthChecker probes the storage and, when it can be pinged, the queue.
// Checks read the fields at call time.
func (c *Components) HealthChecker() health.Checker {
	return health.NewChecker(
		health.WithTimeout(5*time.Second),
		health.WithCheck(health.Check{
			Name: "storage",
			Check: func(ctx context.Context) error {
				_, err := c.Storage.Exists(ctx, storage.ComputeHandle(nil))
				return err
			},
		}),
		health.WithCheck(health.Check{
			Name: "queue",
			Check: func(ctx context.Context) error {
				if p, ok := c.Queue.(interface{ Ping(context.Context) error }); ok {
					return p.Ping(ctx)
				}
				return nil
			},
		}),
	)
}
