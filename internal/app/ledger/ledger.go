// Package ledger applies vote mutations and fans out their side effects.
package ledger

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/app/notify"
	"github.com/reelrank/reelrank/internal/domain"
	"github.com/reelrank/reelrank/internal/infra/observability"
)

// Notifier accepts a notification for background delivery. Enqueue must not
// block the caller.
type Notifier interface {
	Enqueue(n domain.Notification) bool
}

// Ledger casts and retracts votes. The counter transaction is synchronous;
// the recompute and the notification are handed off after commit and never
// fail or delay the call.
type Ledger struct {
	store    domain.VoteStore
	trigger  domain.RecomputeTrigger
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a ledger. notifier may be nil.
func New(store domain.VoteStore, trigger domain.RecomputeTrigger, notifier Notifier, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		store:    store,
		trigger:  trigger,
		notifier: notifier,
		logger:   logger.Named("ledger"),
		now:      time.Now,
	}
}

// Cast records voterID's vote of value on postID.
func (l *Ledger) Cast(ctx context.Context, voterID, postID string, value domain.VoteValue) (domain.VoteResult, error) {
	if strings.TrimSpace(voterID) == "" {
		return domain.VoteResult{}, domain.ErrUnauthenticated
	}
	if !value.Valid() {
		observability.VotesTotal.WithLabelValues("cast", "invalid").Inc()
		return domain.VoteResult{}, domain.ErrInvalidVote
	}

	res, err := l.store.CastVote(ctx, voterID, postID, value, l.now().UTC())
	if err != nil {
		observability.VotesTotal.WithLabelValues("cast", "error").Inc()
		return domain.VoteResult{}, err
	}
	observability.VotesTotal.WithLabelValues("cast", string(res.Outcome)).Inc()

	if !res.Mutated() {
		return res, nil
	}
	l.schedule(res.OwnerID)
	l.notify(notify.Rating(voterID, res.OwnerID, postID, value))
	return res, nil
}

// Retract removes voterID's vote on postID.
func (l *Ledger) Retract(ctx context.Context, voterID, postID string) (domain.VoteResult, error) {
	if strings.TrimSpace(voterID) == "" {
		return domain.VoteResult{}, domain.ErrUnauthenticated
	}

	res, err := l.store.RetractVote(ctx, voterID, postID)
	if err != nil {
		observability.VotesTotal.WithLabelValues("retract", "error").Inc()
		return domain.VoteResult{}, err
	}
	observability.VotesTotal.WithLabelValues("retract", string(res.Outcome)).Inc()

	l.schedule(res.OwnerID)
	return res, nil
}

// Get returns voterID's current vote on postID.
func (l *Ledger) Get(ctx context.Context, voterID, postID string) (domain.Vote, error) {
	if strings.TrimSpace(voterID) == "" {
		return domain.Vote{}, domain.ErrUnauthenticated
	}
	return l.store.GetVote(ctx, voterID, postID)
}

func (l *Ledger) schedule(ownerID string) {
	if l.trigger == nil {
		return
	}
	if !l.trigger.Enqueue(ownerID) {
		l.logger.Warn("recompute not scheduled", zap.String("creator_id", ownerID))
	}
}

func (l *Ledger) notify(n domain.Notification) {
	if l.notifier == nil {
		return
	}
	if !l.notifier.Enqueue(n) {
		l.logger.Warn("rating notification not scheduled",
			zap.String("recipient_id", n.RecipientID),
			zap.String("object_id", n.ObjectID))
	}
}
