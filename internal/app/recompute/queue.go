// Package recompute runs reputation recomputes off the request path.
//
// The queue:
//  1. Accepts creator ids without blocking the caller
//  2. Coalesces an id that is already waiting
//  3. Drops when the buffer is full (the next vote or sweep heals it)
//  4. Runs a fixed number of workers, each with a per-job timeout
package recompute

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/domain"
	"github.com/reelrank/reelrank/internal/infra/observability"
)

// Updater recomputes one creator.
type Updater interface {
	Update(ctx context.Context, creatorID string) (domain.CreatorProfile, bool, error)
}

// Config controls queue behavior.
type Config struct {
	Workers    int           // concurrent recomputes (default: 2)
	Buffer     int           // pending ids before dropping (default: 1024)
	JobTimeout time.Duration // per-recompute deadline (default: 10s)
}

// DefaultConfig returns safe queue defaults.
func DefaultConfig() Config {
	return Config{
		Workers:    2,
		Buffer:     1024,
		JobTimeout: 10 * time.Second,
	}
}

// Queue is a bounded, deduplicating work queue of creator ids.
type Queue struct {
	mu      sync.Mutex
	config  Config
	updater Updater
	logger  *zap.Logger
	jobs    chan string
	pending map[string]struct{}

	active    int
	completed int64
	failed    int64
	dropped   int64
	coalesced int64
}

// New creates a queue. Call Run to start the workers.
func New(cfg Config, updater Updater, logger *zap.Logger) *Queue {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = def.Buffer
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		config:  cfg,
		updater: updater,
		logger:  logger.Named("recompute"),
		jobs:    make(chan string, cfg.Buffer),
		pending: make(map[string]struct{}),
	}
}

// Enqueue schedules a recompute for creatorID. Never blocks.
// Returns false only when the id was dropped.
func (q *Queue) Enqueue(creatorID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.pending[creatorID]; ok {
		q.coalesced++
		return true
	}

	select {
	case q.jobs <- creatorID:
		q.pending[creatorID] = struct{}{}
		observability.QueueDepth.Inc()
		return true
	default:
		q.dropped++
		observability.QueueDropped.Inc()
		q.logger.Warn("recompute queue full, dropping",
			zap.String("creator_id", creatorID),
			zap.Int("buffer", q.config.Buffer))
		return false
	}
}

// Run starts the workers and blocks until ctx is cancelled and every
// in-flight recompute has returned. Ids still buffered are abandoned.
func (q *Queue) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < q.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.worker(ctx)
		}()
	}
	q.logger.Info("recompute workers started", zap.Int("workers", q.config.Workers))
	wg.Wait()
	return nil
}

func (q *Queue) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-q.jobs:
			// Clear the mark first so a vote landing mid-recompute schedules another pass.
			q.mu.Lock()
			delete(q.pending, id)
			q.active++
			q.mu.Unlock()
			observability.QueueDepth.Dec()

			err := q.process(ctx, id)

			q.mu.Lock()
			q.active--
			if err != nil {
				q.failed++
			} else {
				q.completed++
			}
			q.mu.Unlock()
		}
	}
}

// process runs one recompute. Errors are logged and swallowed.
func (q *Queue) process(ctx context.Context, id string) error {
	jobCtx, cancel := context.WithTimeout(ctx, q.config.JobTimeout)
	defer cancel()

	var err error
	if r := panics.Try(func() {
		_, _, err = q.updater.Update(jobCtx, id)
	}); r != nil {
		err = fmt.Errorf("recompute panicked: %w", r.AsError())
	}
	if err != nil {
		q.logger.Error("recompute failed", zap.String("creator_id", id), zap.Error(err))
	}
	return err
}

// Stats returns queue statistics.
type Stats struct {
	Pending   int   `json:"pending"`
	Active    int   `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
	Coalesced int64 `json:"coalesced"`
	Workers   int   `json:"workers"`
}

// Stats returns current queue statistics.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	return Stats{
		Pending:   len(q.pending),
		Active:    q.active,
		Completed: q.completed,
		Failed:    q.failed,
		Dropped:   q.dropped,
		Coalesced: q.coalesced,
		Workers:   q.config.Workers,
	}
}
