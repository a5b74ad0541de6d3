// Package feed ranks recent posts for the home feed.
package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/reelrank/reelrank/internal/domain"
	"github.com/reelrank/reelrank/internal/infra/dsa"
	scoring "github.com/reelrank/reelrank/internal/infra/reputation"
)

// Config bounds the candidate set.
type Config struct {
	Window     time.Duration // only posts newer than now-Window (default: 7 days)
	Candidates int           // rows loaded before ranking (default: 1000)
	DefaultN   int           // page size when none requested (default: 20)
	MaxN       int           // largest page served (default: 100)
}

// DefaultConfig returns feed defaults.
func DefaultConfig() Config {
	return Config{
		Window:     7 * 24 * time.Hour,
		Candidates: 1000,
		DefaultN:   20,
		MaxN:       100,
	}
}

// Ranker scores candidate posts and keeps the best limit.
type Ranker struct {
	source domain.FeedSource
	calc   *scoring.Calculator
	config Config
	now    func() time.Time
}

// NewRanker creates a ranker.
func NewRanker(source domain.FeedSource, calc *scoring.Calculator, cfg Config) *Ranker {
	def := DefaultConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.Candidates <= 0 {
		cfg.Candidates = def.Candidates
	}
	if cfg.DefaultN <= 0 {
		cfg.DefaultN = def.DefaultN
	}
	if cfg.MaxN <= 0 {
		cfg.MaxN = def.MaxN
	}
	return &Ranker{source: source, calc: calc, config: cfg, now: time.Now}
}

// SetClock overrides the ranking clock.
func (r *Ranker) SetClock(now func() time.Time) {
	r.now = now
}

// Clamp normalises a requested page size.
func (r *Ranker) Clamp(n int) int {
	return domain.LeaderboardConfig{DefaultN: r.config.DefaultN, MaxN: r.config.MaxN}.Clamp(n)
}

// Top returns up to limit posts ordered by feed score.
func (r *Ranker) Top(ctx context.Context, limit int) ([]domain.FeedEntry, error) {
	limit = r.Clamp(limit)
	now := r.now()

	posts, err := r.source.RecentPosts(ctx, now.Add(-r.config.Window), r.config.Candidates)
	if err != nil {
		return nil, fmt.Errorf("load feed candidates: %w", err)
	}

	top := dsa.NewTopK(limit, scoring.RanksBefore)
	for _, p := range posts {
		top.Push(domain.FeedEntry{
			Post:      p,
			FeedScore: r.calc.FeedScore(p.Counts.TotalScore, p.CreatedAt, now),
		})
	}
	return top.Sorted(), nil
}
