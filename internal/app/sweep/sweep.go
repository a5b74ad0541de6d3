// Package sweep runs the daily reputation decay pass over every creator.
package sweep

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/domain"
	"github.com/reelrank/reelrank/internal/infra/observability"
)

// Updater recomputes one creator.
type Updater interface {
	Update(ctx context.Context, creatorID string) (domain.CreatorProfile, bool, error)
}

// Result summarises one sweep.
type Result struct {
	Trigger  string        `json:"trigger"`
	Total    int           `json:"total"`
	Updated  int           `json:"updated"`
	Missing  int           `json:"missing"`
	Failed   int           `json:"failed"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
}

// Sweeper recomputes every creator with bounded concurrency. One creator's
// failure or panic is counted and never stops the others.
type Sweeper struct {
	lister      domain.CreatorLister
	updater     Updater
	concurrency int
	logger      *zap.Logger

	running atomic.Bool
	mu      sync.Mutex
	last    Result
}

// New creates a sweeper running at most concurrency updates at once.
func New(lister domain.CreatorLister, updater Updater, concurrency int, logger *zap.Logger) *Sweeper {
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		lister:      lister,
		updater:     updater,
		concurrency: concurrency,
		logger:      logger.Named("sweep"),
	}
}

// Run sweeps synchronously. Returns domain.ErrSweepRunning if a sweep is
// already in progress.
func (s *Sweeper) Run(ctx context.Context, trigger string) (Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Result{}, domain.ErrSweepRunning
	}
	defer s.running.Store(false)
	return s.sweep(ctx, trigger)
}

// Start begins a sweep in the background and returns once it has claimed
// the run slot.
func (s *Sweeper) Start(ctx context.Context, trigger string) error {
	if !s.running.CompareAndSwap(false, true) {
		return domain.ErrSweepRunning
	}
	go func() {
		defer s.running.Store(false)
		if _, err := s.sweep(ctx, trigger); err != nil {
			s.logger.Error("background sweep failed", zap.String("trigger", trigger), zap.Error(err))
		}
	}()
	return nil
}

// Running reports whether a sweep is in progress.
func (s *Sweeper) Running() bool {
	return s.running.Load()
}

// Last returns the most recent completed sweep.
func (s *Sweeper) Last() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Sweeper) sweep(ctx context.Context, trigger string) (Result, error) {
	res := Result{Trigger: trigger, Started: time.Now()}

	ids, err := s.lister.ListCreatorIDs(ctx)
	if err != nil {
		observability.SweepRuns.WithLabelValues(trigger, "error").Inc()
		return res, fmt.Errorf("list creators: %w", err)
	}
	res.Total = len(ids)
	s.logger.Info("sweep started", zap.String("trigger", trigger), zap.Int("creators", res.Total))

	var updated, missing, failed atomic.Int64
	p := pool.New().WithMaxGoroutines(s.concurrency)
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		p.Go(func() {
			var ok bool
			var err error
			if r := panics.Try(func() {
				_, ok, err = s.updater.Update(ctx, id)
			}); r != nil {
				err = r.AsError()
			}
			switch {
			case err != nil:
				failed.Add(1)
				observability.SweepCreators.WithLabelValues("failed").Inc()
				s.logger.Warn("creator recompute failed", zap.String("creator_id", id), zap.Error(err))
			case !ok:
				missing.Add(1)
				observability.SweepCreators.WithLabelValues("missing").Inc()
			default:
				updated.Add(1)
				observability.SweepCreators.WithLabelValues("updated").Inc()
			}
		})
	}
	p.Wait()

	res.Updated = int(updated.Load())
	res.Missing = int(missing.Load())
	res.Failed = int(failed.Load())
	res.Duration = time.Since(res.Started)

	outcome := "ok"
	if ctx.Err() != nil {
		outcome = "cancelled"
	}
	observability.SweepRuns.WithLabelValues(trigger, outcome).Inc()
	observability.SweepDuration.Observe(res.Duration.Seconds())

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()

	s.logger.Info("sweep finished",
		zap.String("trigger", trigger),
		zap.Int("total", res.Total),
		zap.Int("updated", res.Updated),
		zap.Int("missing", res.Missing),
		zap.Int("failed", res.Failed),
		zap.Duration("duration", res.Duration))

	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}
