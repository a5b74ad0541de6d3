package domain

import (
	"fmt"
	"time"
)

// ─── Leaderboard Types ──────────────────────────────────────────────────────

// LeaderboardEntry is one row of the public creator ranking.
type LeaderboardEntry struct {
	Rank            int     `json:"rank"`
	Username        string  `json:"username"`
	AvgRating       float64 `json:"avg_rating"`
	RatingCount     int64   `json:"rating_count"`
	WorkCount       int64   `json:"work_count"`
	ReputationScore float64 `json:"reputation_score"`
}

// LeaderboardConfig controls leaderboard reads.
type LeaderboardConfig struct {
	DefaultN int `json:"default_n"`
	MaxN     int `json:"max_n"`
}

// DefaultLeaderboardConfig returns the public leaderboard policy.
func DefaultLeaderboardConfig() LeaderboardConfig {
	return LeaderboardConfig{
		DefaultN: 20,
		MaxN:     100,
	}
}

// Clamp normalises a requested page size.
func (c LeaderboardConfig) Clamp(n int) int {
	if n <= 0 {
		return c.DefaultN
	}
	if n > c.MaxN {
		return c.MaxN
	}
	return n
}

// RankProfiles converts ordered profiles to 1-based leaderboard entries.
func RankProfiles(profiles []CreatorProfile) []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(profiles))
	for i, p := range profiles {
		out = append(out, LeaderboardEntry{
			Rank:            i + 1,
			Username:        p.Username,
			AvgRating:       p.AvgRating,
			RatingCount:     p.RatingCount,
			WorkCount:       p.WorkCount,
			ReputationScore: p.ReputationScore,
		})
	}
	return out
}

// ─── Feed Types ─────────────────────────────────────────────────────────────

// FeedEntry is a post with its computed rank score.
type FeedEntry struct {
	Post      Post    `json:"post"`
	FeedScore float64 `json:"feed_score"`
}

// ─── Notification Types ─────────────────────────────────────────────────────

// NotificationType names the event that produced a notification.
type NotificationType string

const (
	NotifyFollow        NotificationType = "follow"
	NotifyComment       NotificationType = "comment"
	NotifyReply         NotificationType = "reply"
	NotifyRating        NotificationType = "rating"
	NotifyWorkPublished NotificationType = "work_published"
	NotifyMilestone     NotificationType = "milestone"
)

// Notification is a record that something happened to a recipient's content.
type Notification struct {
	ID          string            `json:"id"`
	RecipientID string            `json:"recipient_id"`
	ActorID     string            `json:"actor_id"`
	Type        NotificationType  `json:"type"`
	ObjectID    string            `json:"object_id"`
	Extra       map[string]string `json:"extra,omitempty"`
	IsRead      bool              `json:"is_read"`
	CreatedAt   time.Time         `json:"created_at"`
}

// DedupKey identifies notifications that collapse inside a debounce window.
func (n Notification) DedupKey() string {
	return fmt.Sprintf("%s:%s:%s:%s", n.RecipientID, n.ActorID, n.Type, n.ObjectID)
}

// SelfInflicted reports whether the actor would notify themself.
func (n Notification) SelfInflicted() bool {
	return n.ActorID != "" && n.ActorID == n.RecipientID
}

// NotificationPreferences are a user's per-type opt-outs. Every type is
// enabled until the user turns it off.
type NotificationPreferences struct {
	UserID               string `json:"user_id"`
	FollowEnabled        bool   `json:"follow_enabled"`
	CommentEnabled       bool   `json:"comment_enabled"`
	ReplyEnabled         bool   `json:"reply_enabled"`
	RatingEnabled        bool   `json:"rating_enabled"`
	WorkPublishedEnabled bool   `json:"work_published_enabled"`
	MilestoneEnabled     bool   `json:"milestone_enabled"`
	EmailNotifications   bool   `json:"email_notifications"`
}

// DefaultNotificationPreferences returns the preferences of a user who never
// changed them.
func DefaultNotificationPreferences(userID string) NotificationPreferences {
	return NotificationPreferences{
		UserID:               userID,
		FollowEnabled:        true,
		CommentEnabled:       true,
		ReplyEnabled:         true,
		RatingEnabled:        true,
		WorkPublishedEnabled: true,
		MilestoneEnabled:     true,
	}
}

// Enabled reports whether notifications of type t should be recorded.
// Unknown types are allowed.
func (p NotificationPreferences) Enabled(t NotificationType) bool {
	switch t {
	case NotifyFollow:
		return p.FollowEnabled
	case NotifyComment:
		return p.CommentEnabled
	case NotifyReply:
		return p.ReplyEnabled
	case NotifyRating:
		return p.RatingEnabled
	case NotifyWorkPublished:
		return p.WorkPublishedEnabled
	case NotifyMilestone:
		return p.MilestoneEnabled
	default:
		return true
	}
}

// NotificationPreferencesPatch is a partial update; nil fields are kept.
type NotificationPreferencesPatch struct {
	FollowEnabled        *bool `json:"follow_enabled,omitempty"`
	CommentEnabled       *bool `json:"comment_enabled,omitempty"`
	ReplyEnabled         *bool `json:"reply_enabled,omitempty"`
	RatingEnabled        *bool `json:"rating_enabled,omitempty"`
	WorkPublishedEnabled *bool `json:"work_published_enabled,omitempty"`
	MilestoneEnabled     *bool `json:"milestone_enabled,omitempty"`
	EmailNotifications   *bool `json:"email_notifications,omitempty"`
}

// Apply returns p with every non-nil field of patch written over it.
func (p NotificationPreferences) Apply(patch NotificationPreferencesPatch) NotificationPreferences {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.FollowEnabled, patch.FollowEnabled)
	set(&p.CommentEnabled, patch.CommentEnabled)
	set(&p.ReplyEnabled, patch.ReplyEnabled)
	set(&p.RatingEnabled, patch.RatingEnabled)
	set(&p.WorkPublishedEnabled, patch.WorkPublishedEnabled)
	set(&p.MilestoneEnabled, patch.MilestoneEnabled)
	set(&p.EmailNotifications, patch.EmailNotifications)
	return p
}
