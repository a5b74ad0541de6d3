// Package reputation implements creator reputation and feed ranking scores.
//
// Creator reputation combines three factors:
//   - Quality: Bayesian-shrunk average vote, pulled toward a global prior
//   - Quantity: ln(work_count + 1), diminishing returns on volume
//   - Activity: a linear leak per whole day since the newest post
//
//	reputation = max(0, bayesian_avg × ln(work_count+1) − days × DecayRatePerDay)
//
// Feed ranking is a damped-gravity score:
//
//	feed = (total_score + 1) / (age_hours + 2)^FeedGravity
//
// All functions are pure; callers supply the clock.
package reputation

import (
	"fmt"
	"math"
	"time"

	"github.com/reelrank/reelrank/internal/domain"
)

// ─── Constants ──────────────────────────────────────────────────────────────

const (
	// DefaultGlobalAvg is the prior mean every creator is shrunk toward.
	DefaultGlobalAvg = 4.2

	// DefaultMinRatings is the prior weight: how many ratings a creator needs
	// before their own average counts as much as the prior.
	DefaultMinRatings = 25

	// DefaultDecayRatePerDay leaks 1.0 point per 50 idle days.
	DefaultDecayRatePerDay = 0.02

	// DefaultFeedGravity is the exponent on post age in the feed score.
	DefaultFeedGravity = 1.5

	// feedAgeOffsetHours keeps brand new posts from dividing by ~0.
	feedAgeOffsetHours = 2.0
)

// ─── Configuration ──────────────────────────────────────────────────────────

// Config holds scoring constants. One Config feeds both the per-vote and the
// sweep recompute so they converge to the same value.
type Config struct {
	GlobalAvg       float64 // Prior mean C
	MinRatings      float64 // Prior weight m
	DecayRatePerDay float64 // Points lost per idle day
	FeedGravity     float64 // Age exponent for feed ranking
}

// DefaultConfig returns production scoring constants.
func DefaultConfig() Config {
	return Config{
		GlobalAvg:       DefaultGlobalAvg,
		MinRatings:      DefaultMinRatings,
		DecayRatePerDay: DefaultDecayRatePerDay,
		FeedGravity:     DefaultFeedGravity,
	}
}

// Validate rejects constants that would make scores meaningless.
func (c Config) Validate() error {
	switch {
	case c.GlobalAvg < 0:
		return fmt.Errorf("global_avg must be >= 0, got %v", c.GlobalAvg)
	case c.MinRatings < 0:
		return fmt.Errorf("min_ratings must be >= 0, got %v", c.MinRatings)
	case c.DecayRatePerDay < 0:
		return fmt.Errorf("decay_rate_per_day must be >= 0, got %v", c.DecayRatePerDay)
	case c.FeedGravity <= 0:
		return fmt.Errorf("feed_gravity must be > 0, got %v", c.FeedGravity)
	}
	return nil
}

// ─── Types ──────────────────────────────────────────────────────────────────

// Score is the full breakdown behind a reputation value.
type Score struct {
	RawAvg      float64 `json:"raw_avg"`      // total_votes / max(total_count, 1)
	BayesianAvg float64 `json:"bayesian_avg"` // shrunk toward GlobalAvg
	Quantity    float64 `json:"quantity"`     // ln(work_count + 1)
	IdleDays    int64   `json:"idle_days"`    // whole days since last_active
	Decay       float64 `json:"decay"`        // IdleDays × DecayRatePerDay
	Reputation  float64 `json:"reputation"`   // never negative
}

// Calculator computes scores from a fixed Config.
type Calculator struct {
	config Config
}

// NewCalculator creates a calculator.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{config: cfg}
}

// Config returns the calculator's constants.
func (c *Calculator) Config() Config { return c.config }

// ─── Reputation ─────────────────────────────────────────────────────────────

// Reputation scores a creator's aggregates at time now.
// Panics on negative counts, which the store can never produce.
func (c *Calculator) Reputation(agg domain.Aggregates, now time.Time) Score {
	if agg.WorkCount < 0 || agg.TotalCount < 0 {
		panic(fmt.Sprintf("reputation: negative counts for creator %s (work=%d, ratings=%d)",
			agg.CreatorID, agg.WorkCount, agg.TotalCount))
	}

	raw := float64(agg.TotalVotes) / float64(max(agg.TotalCount, 1))
	bayes := bayesianAverage(raw, float64(agg.TotalCount), c.config.GlobalAvg, c.config.MinRatings)
	quantity := math.Log(float64(agg.WorkCount) + 1)

	days := idleDays(agg.LastActive, now)
	decay := float64(days) * c.config.DecayRatePerDay

	return Score{
		RawAvg:      raw,
		BayesianAvg: bayes,
		Quantity:    quantity,
		IdleDays:    days,
		Decay:       decay,
		Reputation:  math.Max(0, bayes*quantity-decay),
	}
}

// Profile folds a score into the profile fields the updater persists.
func (c *Calculator) Profile(agg domain.Aggregates, now time.Time) domain.CreatorProfile {
	s := c.Reputation(agg, now)
	return domain.CreatorProfile{
		UserID:          agg.CreatorID,
		AvgRating:       s.RawAvg,
		RatingCount:     agg.TotalCount,
		WorkCount:       agg.WorkCount,
		ReputationScore: s.Reputation,
		UpdatedAt:       now,
	}
}

// ─── Feed Ranking ───────────────────────────────────────────────────────────

// FeedScore scores a post by popularity and age.
// Posts dated in the future are treated as brand new.
func (c *Calculator) FeedScore(totalScore int64, createdAt, now time.Time) float64 {
	ageHours := math.Max(0, now.Sub(createdAt).Hours())
	return float64(totalScore+1) / math.Pow(ageHours+feedAgeOffsetHours, c.config.FeedGravity)
}

// RanksBefore is the feed ordering used everywhere posts are ranked.
func RanksBefore(a, b domain.FeedEntry) bool {
	if a.FeedScore != b.FeedScore {
		return a.FeedScore > b.FeedScore
	}
	if !a.Post.CreatedAt.Equal(b.Post.CreatedAt) {
		return a.Post.CreatedAt.After(b.Post.CreatedAt)
	}
	return a.Post.ID < b.Post.ID
}

// ─── Pure Helper Functions ──────────────────────────────────────────────────

// bayesianAverage shrinks a sample mean toward the prior:
//
//	(m×C + v×R) / (m + v)
func bayesianAverage(sampleMean, samples, priorMean, priorWeight float64) float64 {
	if priorWeight+samples == 0 {
		return priorMean
	}
	return (priorWeight*priorMean + samples*sampleMean) / (priorWeight + samples)
}

// idleDays counts whole days between last and now, never negative.
func idleDays(last, now time.Time) int64 {
	if last.IsZero() || !now.After(last) {
		return 0
	}
	return int64(now.Sub(last) / (24 * time.Hour))
}
