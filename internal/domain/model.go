// Package domain contains the vote, post and creator types shared by every layer.
// It imports no infrastructure packages.
package domain

import (
	"fmt"
	"time"
)

// ─── Vote Types ─────────────────────────────────────────────────────────────

// VoteValue is the weight a user gives a post: +1 or +2.
type VoteValue int

const (
	VoteNone    VoteValue = 0 // no vote on record
	VotePlusOne VoteValue = 1
	VotePlusTwo VoteValue = 2
)

// Valid reports whether v is a castable vote value.
func (v VoteValue) Valid() bool {
	return v == VotePlusOne || v == VotePlusTwo
}

// String returns the state label for the (user, post) pair.
func (v VoteValue) String() string {
	switch v {
	case VoteNone:
		return "NO_VOTE"
	case VotePlusOne:
		return "PLUS_ONE"
	case VotePlusTwo:
		return "PLUS_TWO"
	default:
		return fmt.Sprintf("VoteValue(%d)", int(v))
	}
}

// Vote is a single user's vote on a single post. At most one per pair.
type Vote struct {
	UserID    string    `json:"user_id"`
	PostID    string    `json:"post_id"`
	Value     VoteValue `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VoteOutcome classifies what a ledger mutation did.
type VoteOutcome string

const (
	VoteCreated   VoteOutcome = "created"   // NoVote → Voted*
	VoteChanged   VoteOutcome = "changed"   // PlusOne ⇄ PlusTwo
	VoteUnchanged VoteOutcome = "unchanged" // same value re-cast
	VoteRetracted VoteOutcome = "retracted" // Voted* → NoVote
)

// VoteResult is returned by the ledger after a committed mutation.
type VoteResult struct {
	Outcome  VoteOutcome `json:"outcome"`
	Previous VoteValue   `json:"previous"`
	Current  VoteValue   `json:"current"`
	OwnerID  string      `json:"owner_id"`
	Post     PostCounts  `json:"post"`
}

// Mutated reports whether the post's counters changed.
func (r VoteResult) Mutated() bool {
	return r.Outcome != VoteUnchanged
}

// ─── Post Types ─────────────────────────────────────────────────────────────

// PostStatus is the processing state of an uploaded video.
type PostStatus string

const (
	PostProcessing PostStatus = "processing"
	PostReady      PostStatus = "ready"
	PostFailed     PostStatus = "failed"
	PostRemoved    PostStatus = "removed" // soft-deleted; excluded from scoring
)

// Valid reports whether s is a known post status.
func (s PostStatus) Valid() bool {
	switch s {
	case PostProcessing, PostReady, PostFailed, PostRemoved:
		return true
	}
	return false
}

// PostCounts holds a post's vote aggregates.
type PostCounts struct {
	PostID       string `json:"post_id"`
	PlusOneCount int64  `json:"plus_one_count"`
	PlusTwoCount int64  `json:"plus_two_count"`
	TotalScore   int64  `json:"total_score"`
}

// RatingCount returns the number of votes behind the counts.
func (c PostCounts) RatingCount() int64 {
	return c.PlusOneCount + c.PlusTwoCount
}

// Consistent reports whether total_score = plus_one + 2×plus_two holds.
func (c PostCounts) Consistent() bool {
	return c.TotalScore == c.PlusOneCount+2*c.PlusTwoCount
}

// Apply returns the counts after moving a voter from prev to next.
// VoteNone on either side models create or retract.
func (c PostCounts) Apply(prev, next VoteValue) PostCounts {
	out := c
	switch prev {
	case VotePlusOne:
		out.PlusOneCount--
	case VotePlusTwo:
		out.PlusTwoCount--
	}
	switch next {
	case VotePlusOne:
		out.PlusOneCount++
	case VotePlusTwo:
		out.PlusTwoCount++
	}
	out.TotalScore = out.PlusOneCount + 2*out.PlusTwoCount
	return out
}

// Post is a video post with its vote aggregates.
type Post struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Caption   string     `json:"caption,omitempty"`
	Status    PostStatus `json:"status"`
	Counts    PostCounts `json:"counts"`
	CreatedAt time.Time  `json:"created_at"`
}

// ─── Creator Types ──────────────────────────────────────────────────────────

// User is the minimal identity record the scoring core needs.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	TotalPoints int64     `json:"total_points"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreatorProfile holds a creator's derived reputation. Written only by the
// reputation updater.
type CreatorProfile struct {
	UserID          string    `json:"user_id"`
	Username        string    `json:"username"`
	AvgRating       float64   `json:"avg_rating"`
	RatingCount     int64     `json:"rating_count"`
	WorkCount       int64     `json:"work_count"`
	ReputationScore float64   `json:"reputation_score"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Aggregates is a consistent snapshot of a creator's live posts.
type Aggregates struct {
	CreatorID  string    `json:"creator_id"`
	TotalVotes int64     `json:"total_votes"` // Σ total_score
	TotalCount int64     `json:"total_count"` // Σ rating events
	WorkCount  int64     `json:"work_count"`  // number of posts
	LastActive time.Time `json:"last_active"` // newest post, or join time
}
