package sweep

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// TimeOfDay is a wall-clock time in a location.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (24h).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Scheduler fires the sweep once a day at a fixed local time.
type Scheduler struct {
	sweeper *Sweeper
	at      TimeOfDay
	loc     *time.Location
	logger  *zap.Logger
	now     func() time.Time
}

// NewScheduler creates a daily scheduler. A nil location means UTC.
func NewScheduler(sweeper *Sweeper, at TimeOfDay, loc *time.Location, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		sweeper: sweeper,
		at:      at,
		loc:     loc,
		logger:  logger.Named("scheduler"),
		now:     time.Now,
	}
}

// NextRun returns the first scheduled instant strictly after now.
func (s *Scheduler) NextRun(now time.Time) time.Time {
	local := now.In(s.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.at.Hour, s.at.Minute, 0, 0, s.loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, s.at.Hour, s.at.Minute, 0, 0, s.loc)
	}
	return next
}

// Run blocks until ctx is cancelled, sweeping at each scheduled time.
// A sweep still running from another trigger is skipped, not queued.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		next := s.NextRun(s.now())
		s.logger.Info("next sweep scheduled", zap.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if _, err := s.sweeper.Run(ctx, "schedule"); err != nil {
			s.logger.Warn("scheduled sweep did not complete", zap.Error(err))
		}
	}
}
