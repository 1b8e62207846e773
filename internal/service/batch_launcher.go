package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"polgen/internal/domain"
)

// ErrQueueFull is returned by Enqueue when no more runs can be accepted.
var ErrQueueFull = errors.New("batch queue is full")

// LauncherConfig holds settings for the background batch launcher.
type LauncherConfig struct {
	QueueSize         int
	MaxConcurrentRuns int
	RunTimeout        time.Duration
}

type launchJob struct {
	items []domain.BatchItem
	opts  RunOptions
}

// BatchLauncher runs batches submitted over the HTTP API in the background.
type BatchLauncher struct {
	svc  BatchService
	cfg  LauncherConfig
	jobs chan launchJob
	wg   sync.WaitGroup
}

// NewBatchLauncher creates a new BatchLauncher.
func NewBatchLauncher(svc BatchService, cfg LauncherConfig) *BatchLauncher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.MaxConcurrentRuns <= 0 {
		cfg.MaxConcurrentRuns = 1
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 2 * time.Hour
	}
	return &BatchLauncher{
		svc:  svc,
		cfg:  cfg,
		jobs: make(chan launchJob, cfg.QueueSize),
	}
}

// Enqueue accepts a batch and returns the run id it will be recorded under.
func (l *BatchLauncher) Enqueue(items []domain.BatchItem, opts RunOptions) (uuid.UUID, error) {
	if opts.RunID == uuid.Nil {
		opts.RunID = uuid.New()
	}
	select {
	case l.jobs <- launchJob{items: items, opts: opts}:
		return opts.RunID, nil
	default:
		return uuid.Nil, ErrQueueFull
	}
}

// Start dispatches queued runs until ctx is canceled. It blocks until all
// in-flight runs have finished.
func (l *BatchLauncher) Start(ctx context.Context) {
	sem := make(chan struct{}, l.cfg.MaxConcurrentRuns)

	slog.Info("service.BatchLauncher.Start: started",
		"queue_size", l.cfg.QueueSize, "max_concurrent_runs", l.cfg.MaxConcurrentRuns)

	shutdown := func() {
		slog.Info("service.BatchLauncher.Start: shutting down, waiting for in-flight runs")
		l.wg.Wait()
		slog.Info("service.BatchLauncher.Start: shutdown complete")
	}

	for {
		select {
		case <-ctx.Done():
			shutdown()
			return
		case job := <-l.jobs:
			select {
			case sem <- struct{}{}: // acquire
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				slog.Warn("service.BatchLauncher.Start: dropping run that never started", "run_id", job.opts.RunID)
				shutdown()
				return
			}
			l.wg.Add(1)
			go func() {
				defer l.wg.Done()
				defer func() { <-sem }() // release

				// Detached from ctx so in-flight runs complete during shutdown.
				runCtx, cancel := context.WithTimeout(context.Background(), l.cfg.RunTimeout)
				defer cancel()

				slog.Info("service.BatchLauncher.Start: dispatching run", "run_id", job.opts.RunID, "items", len(job.items))
				if _, err := l.svc.Run(runCtx, job.items, job.opts); err != nil {
					slog.Error("service.BatchLauncher.Start: run aborted", "run_id", job.opts.RunID, "error", err)
				}
			}()
		}
	}
}
