package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/reelrank/reelrank/internal/domain"
)

// ─── Creator Aggregates ─────────────────────────────────────────────────────

// ReadAggregates sums a creator's non-removed posts inside one transaction
// so the totals and counts come from the same snapshot.
// LastActive is the newest post, or the join time when there are none.
func (db *DB) ReadAggregates(ctx context.Context, creatorID string) (domain.Aggregates, error) {
	agg := domain.Aggregates{CreatorID: creatorID}
	err := db.withTx(ctx, nil, func(tx *sql.Tx) error {
		var joined int64
		err := tx.QueryRowContext(ctx, `
			SELECT created_at FROM users WHERE id = ?
		`, creatorID).Scan(&joined)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrCreatorNotFound
		}
		if err != nil {
			return fmt.Errorf("lookup creator: %w", err)
		}

		var newest sql.NullInt64
		err = tx.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(total_score), 0),
			       COALESCE(SUM(plus_one_count + plus_two_count), 0),
			       COUNT(*),
			       MAX(created_at)
			FROM posts
			WHERE user_id = ? AND status != ?
		`, creatorID, string(domain.PostRemoved)).Scan(&agg.TotalVotes, &agg.TotalCount, &agg.WorkCount, &newest)
		if err != nil {
			return fmt.Errorf("sum posts: %w", err)
		}

		agg.LastActive = fromMillis(joined)
		if newest.Valid {
			agg.LastActive = fromMillis(newest.Int64)
		}
		return nil
	})
	if err != nil {
		return domain.Aggregates{}, err
	}
	return agg, nil
}

// ─── Creator Profiles ───────────────────────────────────────────────────────

// SaveReputation writes the derived profile fields in a single statement.
func (db *DB) SaveReputation(ctx context.Context, p domain.CreatorProfile) error {
	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = db.now()
	}
	res, err := db.db.ExecContext(ctx, `
		UPDATE creator_profiles
		SET avg_rating = ?, rating_count = ?, work_count = ?, reputation_score = ?, updated_at = ?
		WHERE user_id = ?
	`, p.AvgRating, p.RatingCount, p.WorkCount, p.ReputationScore, toMillis(updated), p.UserID)
	if err != nil {
		return fmt.Errorf("save reputation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrCreatorNotFound
	}
	return nil
}

// GetProfile retrieves a creator profile joined with the username.
func (db *DB) GetProfile(ctx context.Context, userID string) (domain.CreatorProfile, error) {
	row := db.db.QueryRowContext(ctx, `
		SELECT p.user_id, u.username, p.avg_rating, p.rating_count, p.work_count,
		       p.reputation_score, p.updated_at
		FROM creator_profiles p JOIN users u ON u.id = p.user_id
		WHERE p.user_id = ?
	`, userID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CreatorProfile{}, domain.ErrCreatorNotFound
	}
	if err != nil {
		return domain.CreatorProfile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// ListCreatorIDs returns every creator with a profile.
func (db *DB) ListCreatorIDs(ctx context.Context) ([]string, error) {
	rows, err := db.db.QueryContext(ctx, `SELECT user_id FROM creator_profiles ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list creators: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Leaderboard returns the top creators by reputation. Ties break on
// work count, then username.
func (db *DB) Leaderboard(ctx context.Context, limit int) ([]domain.CreatorProfile, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT p.user_id, u.username, p.avg_rating, p.rating_count, p.work_count,
		       p.reputation_score, p.updated_at
		FROM creator_profiles p JOIN users u ON u.id = p.user_id
		ORDER BY p.reputation_score DESC, p.work_count DESC, u.username ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	var out []domain.CreatorProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProfile(r rowScanner) (domain.CreatorProfile, error) {
	var p domain.CreatorProfile
	var updated int64
	err := r.Scan(&p.UserID, &p.Username, &p.AvgRating, &p.RatingCount, &p.WorkCount,
		&p.ReputationScore, &updated)
	if err != nil {
		return domain.CreatorProfile{}, err
	}
	p.UpdatedAt = fromMillis(updated)
	return p, nil
}
