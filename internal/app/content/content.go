// Package content manages the users and posts that votes target. Every
// change that moves a creator's aggregates schedules a recompute.
package content

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/domain"
)

// Service creates and retires users and posts.
type Service struct {
	store   domain.ContentStore
	trigger domain.RecomputeTrigger
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a content service. trigger may be nil.
func New(store domain.ContentStore, trigger domain.RecomputeTrigger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		trigger: trigger,
		logger:  logger.Named("content"),
		now:     time.Now,
	}
}

// CreateUser registers a user with an empty creator profile.
func (s *Service) CreateUser(ctx context.Context, username string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.User{}, domain.ErrInvalidUsername
	}
	u, err := s.store.CreateUser(ctx, username, s.now().UTC())
	if err != nil {
		return domain.User{}, err
	}
	s.logger.Info("user created", zap.String("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

// GetUser returns a user by id.
func (s *Service) GetUser(ctx context.Context, id string) (domain.User, error) {
	return s.store.GetUser(ctx, id)
}

// DeleteUser removes a user and everything they own. Creators whose posts the
// user voted on are recomputed. Returns those creators.
func (s *Service) DeleteUser(ctx context.Context, id string) ([]string, error) {
	owners, err := s.store.DeleteUser(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, owner := range owners {
		s.schedule(owner)
	}
	s.logger.Info("user deleted", zap.String("user_id", id), zap.Int("affected_creators", len(owners)))
	return owners, nil
}

// CreatePost adds a post for ownerID. An empty status means processing.
func (s *Service) CreatePost(ctx context.Context, ownerID, caption string, status domain.PostStatus) (domain.Post, error) {
	if status != "" && !status.Valid() {
		return domain.Post{}, domain.ErrInvalidStatus
	}
	p, err := s.store.CreatePost(ctx, ownerID, caption, status, s.now().UTC())
	if err != nil {
		return domain.Post{}, err
	}
	s.schedule(p.OwnerID)
	return p, nil
}

// GetPost returns a post with its counters.
func (s *Service) GetPost(ctx context.Context, id string) (domain.Post, error) {
	return s.store.GetPost(ctx, id)
}

// SetPostStatus moves a post to status and reschedules its owner. Removing a
// post drops it from the owner's aggregates.
func (s *Service) SetPostStatus(ctx context.Context, id string, status domain.PostStatus) (domain.Post, error) {
	if !status.Valid() {
		return domain.Post{}, domain.ErrInvalidStatus
	}
	owner, err := s.store.SetPostStatus(ctx, id, status)
	if err != nil {
		return domain.Post{}, err
	}
	s.schedule(owner)
	return s.store.GetPost(ctx, id)
}

func (s *Service) schedule(creatorID string) {
	if s.trigger == nil {
		return
	}
	if !s.trigger.Enqueue(creatorID) {
		s.logger.Warn("recompute not scheduled", zap.String("creator_id", creatorID))
	}
}
