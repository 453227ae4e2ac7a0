// Package worker resolves queued decryption requests.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/luxfi/fhevm/internal/preparer"
	"github.com/luxfi/fhevm/internal/queue"
	"github.com/luxfi/fhevm/internal/storage"
)

// Config holds pool settings.
type Config struct {
	NumWorkers      int
	ShutdownTimeout time.Duration
	// RetryDelay is how long a worker backs off after a failed Pop.
	RetryDelay time.Duration
}

// Metrics counts job outcomes.
type Metrics struct {
	Jobs *prometheus.CounterVec
}

// NewMetrics registers the pool counters with reg. A nil reg skips registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fhevm",
			Subsystem: "worker",
			Name:      "decrypt_jobs_total",
			Help:      "Decryption jobs processed, by outcome.",
		}, []string{"status"}),
	}
	if reg != nil {
		reg.MustRegister(m.Jobs)
	}
	return m
}

// Pool manages a pool of decryption workers.
type Pool struct {
	cfg       Config
	queue     queue.Queue
	preparer  *preparer.Preparer
	decryptor preparer.Decryptor
	log       *zap.Logger
	metrics   *Metrics

	wg           sync.WaitGroup
	cancel       context.CancelFunc
	running      atomic.Bool
	successCount atomic.Int64
	failureCount atomic.Int64
}

// NewPool creates a pool. It does not start any goroutines.
func NewPool(
	cfg Config,
	q queue.Queue,
	p *preparer.Preparer,
	d preparer.Decryptor,
	log *zap.Logger,
	metrics *Metrics,
) *Pool {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 1
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Pool{
		cfg:       cfg,
		queue:     q,
		preparer:  p,
		decryptor: d,
		log:       log,
		metrics:   metrics,
	}
}

// Start starts the worker pool.
func (p *Pool) Start(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return errors.New("pool already running")
	}

	ctx, p.cancel = context.WithCancel(ctx)

	p.log.Info("starting workers", zap.Int("workers", p.cfg.NumWorkers))

	for i := 0; i < p.cfg.NumWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	return nil
}

// Stop gracefully stops the worker pool.
func (p *Pool) Stop() error {
	if !p.running.Load() {
		return nil
	}

	p.log.Info("stopping worker pool")
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info("worker pool stopped")
	case <-time.After(p.cfg.ShutdownTimeout):
		return errors.New("shutdown timeout")
	}

	p.running.Store(false)
	return nil
}

// Succeeded returns the number of completed jobs.
func (p *Pool) Succeeded() int64 {
	return p.successCount.Load()
}

// Failed returns the number of failed jobs.
func (p *Pool) Failed() int64 {
	return p.failureCount.Load()
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	log := p.log.With(zap.Int("worker", id))
	log.Debug("worker started")

	for {
		job, err := p.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrQueueClosed) {
				log.Debug("worker stopping")
				return
			}
			log.Warn("failed to pop job", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.cfg.RetryDelay):
			}
			continue
		}

		p.processJob(ctx, log, job)
	}
}

func (p *Pool) processJob(ctx context.Context, log *zap.Logger, job *queue.Job) {
	log = log.With(zap.String("job", job.ID), zap.String("handle", job.Handle))
	log.Debug("processing job")

	job.Status = queue.StatusProcessing
	if err := p.queue.Update(ctx, job); err != nil {
		log.Warn("failed to update job status", zap.Error(err))
	}

	result, err := p.resolve(ctx, job)
	if err != nil {
		job.Status = queue.StatusFailed
		job.Error = err.Error()
		if err := p.queue.Update(ctx, job); err != nil {
			log.Warn("failed to record job failure", zap.Error(err))
		}
		p.metrics.Jobs.WithLabelValues("failed").Inc()
		p.failureCount.Add(1)
		log.Info("job failed", zap.Error(err))
		return
	}

	job.Status = queue.StatusCompleted
	job.Result = result
	if err := p.queue.Update(ctx, job); err != nil {
		log.Warn("failed to update job result", zap.Error(err))
	}

	p.metrics.Jobs.WithLabelValues("completed").Inc()
	p.successCount.Add(1)
	log.Debug("job completed")
}

func (p *Pool) resolve(ctx context.Context, job *queue.Job) ([]byte, error) {
	handle, err := storage.ParseHandle(job.Handle)
	if err != nil {
		return nil, err
	}

	rec, err := p.preparer.Load(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("load input: %w", err)
	}

	if err := preparer.Authorize(rec, job.Contract, job.User); err != nil {
		return nil, err
	}

	result, err := p.decryptor.Decrypt(ctx, handle, rec)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return result, nil
}
