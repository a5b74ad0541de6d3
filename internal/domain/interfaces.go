package domain

import (
	"context"
	"time"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// AggregateReader returns a consistent snapshot of a creator's posts.
type AggregateReader interface {
	// ReadAggregates returns ErrCreatorNotFound for an unknown creator.
	ReadAggregates(ctx context.Context, creatorID string) (Aggregates, error)
}

// ProfileSink persists recomputed creator scores.
type ProfileSink interface {
	// SaveReputation writes all four derived fields in one statement.
	// Returns ErrCreatorNotFound if the profile is gone.
	SaveReputation(ctx context.Context, p CreatorProfile) error
}

// CreatorLister enumerates creators for the decay sweep.
type CreatorLister interface {
	ListCreatorIDs(ctx context.Context) ([]string, error)
}

// VoteStore applies vote mutations transactionally.
type VoteStore interface {
	CastVote(ctx context.Context, voterID, postID string, value VoteValue, at time.Time) (VoteResult, error)
	RetractVote(ctx context.Context, voterID, postID string) (VoteResult, error)
	// GetVote returns ErrVoteNotFound when the voter has no vote on the post.
	GetVote(ctx context.Context, voterID, postID string) (Vote, error)
}

// LeaderboardReader returns creators ordered by reputation.
type LeaderboardReader interface {
	Leaderboard(ctx context.Context, limit int) ([]CreatorProfile, error)
}

// FeedSource returns candidate posts for ranking.
type FeedSource interface {
	RecentPosts(ctx context.Context, since time.Time, limit int) ([]Post, error)
}

// NotificationStore persists notifications.
type NotificationStore interface {
	InsertNotification(ctx context.Context, n Notification) error
	// GetNotificationPreferences returns defaults for a user with no saved row.
	GetNotificationPreferences(ctx context.Context, userID string) (NotificationPreferences, error)
}

// ContentStore creates and retires the users and posts that votes target.
type ContentStore interface {
	CreateUser(ctx context.Context, username string, joinedAt time.Time) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	// DeleteUser returns the owners of posts the user had voted on.
	DeleteUser(ctx context.Context, id string) ([]string, error)
	CreatePost(ctx context.Context, ownerID, caption string, status PostStatus, createdAt time.Time) (Post, error)
	GetPost(ctx context.Context, id string) (Post, error)
	// SetPostStatus returns the post's owner.
	SetPostStatus(ctx context.Context, id string, status PostStatus) (string, error)
}

// RecomputeTrigger schedules an asynchronous reputation recompute.
type RecomputeTrigger interface {
	// Enqueue must not block the caller.
	Enqueue(creatorID string) bool
}
