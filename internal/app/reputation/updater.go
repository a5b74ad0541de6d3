// Package reputation recomputes and persists a creator's reputation.
package reputation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/domain"
	"github.com/reelrank/reelrank/internal/infra/observability"
	scoring "github.com/reelrank/reelrank/internal/infra/reputation"
)

// Updater reads a creator's aggregates, scores them and writes the profile.
// Safe for concurrent use; running it twice for the same creator is harmless.
type Updater struct {
	reader domain.AggregateReader
	sink   domain.ProfileSink
	calc   *scoring.Calculator
	logger *zap.Logger
	now    func() time.Time
}

// NewUpdater creates an updater.
func NewUpdater(reader domain.AggregateReader, sink domain.ProfileSink, calc *scoring.Calculator, logger *zap.Logger) *Updater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Updater{
		reader: reader,
		sink:   sink,
		calc:   calc,
		logger: logger.Named("reputation"),
		now:    time.Now,
	}
}

// SetClock overrides the clock used for decay.
func (u *Updater) SetClock(now func() time.Time) {
	u.now = now
}

// Update recomputes one creator. A creator that no longer exists is not an
// error: ok is false and nothing is written.
func (u *Updater) Update(ctx context.Context, creatorID string) (domain.CreatorProfile, bool, error) {
	start := time.Now()
	defer func() {
		observability.RecomputeDuration.Observe(time.Since(start).Seconds())
	}()

	agg, err := u.reader.ReadAggregates(ctx, creatorID)
	if errors.Is(err, domain.ErrCreatorNotFound) {
		observability.RecomputeTotal.WithLabelValues("missing").Inc()
		u.logger.Debug("creator gone, skipping", zap.String("creator_id", creatorID))
		return domain.CreatorProfile{}, false, nil
	}
	if err != nil {
		observability.RecomputeTotal.WithLabelValues("error").Inc()
		return domain.CreatorProfile{}, false, fmt.Errorf("read aggregates for %s: %w", creatorID, err)
	}

	profile := u.calc.Profile(agg, u.now())

	err = u.sink.SaveReputation(ctx, profile)
	if errors.Is(err, domain.ErrCreatorNotFound) {
		// Deleted between read and write.
		observability.RecomputeTotal.WithLabelValues("missing").Inc()
		return domain.CreatorProfile{}, false, nil
	}
	if err != nil {
		observability.RecomputeTotal.WithLabelValues("error").Inc()
		return domain.CreatorProfile{}, false, fmt.Errorf("save reputation for %s: %w", creatorID, err)
	}

	observability.RecomputeTotal.WithLabelValues("updated").Inc()
	u.logger.Debug("reputation updated",
		zap.String("creator_id", creatorID),
		zap.Float64("reputation", profile.ReputationScore),
		zap.Int64("work_count", profile.WorkCount),
		zap.Int64("rating_count", profile.RatingCount))
	return profile, true, nil
}
