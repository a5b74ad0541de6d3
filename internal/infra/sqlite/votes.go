package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/reelrank/reelrank/internal/domain"
)

// ─── Vote Ledger ────────────────────────────────────────────────────────────

// CastVote upserts the voter's vote on postID. The vote row, the post's
// counters and the owner's total_points move in one transaction; a re-cast
// of the current value writes nothing.
func (db *DB) CastVote(ctx context.Context, voterID, postID string, value domain.VoteValue, at time.Time) (domain.VoteResult, error) {
	if !value.Valid() {
		return domain.VoteResult{}, domain.ErrInvalidVote
	}
	if at.IsZero() {
		at = db.now()
	}

	var res domain.VoteResult
	err := db.withTx(ctx, nil, func(tx *sql.Tx) error {
		res = domain.VoteResult{Current: value}

		if err := userExists(ctx, tx, voterID); err != nil {
			return err
		}
		owner, counts, err := livePost(ctx, tx, postID)
		if err != nil {
			return err
		}
		prev, err := currentVote(ctx, tx, voterID, postID)
		if err != nil {
			return err
		}
		res.OwnerID = owner
		res.Previous = prev

		switch prev {
		case value:
			res.Outcome = domain.VoteUnchanged
			res.Post = counts
			return nil
		case domain.VoteNone:
			res.Outcome = domain.VoteCreated
			_, err = tx.ExecContext(ctx, `
				INSERT INTO votes (user_id, post_id, value, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?)
			`, voterID, postID, int(value), toMillis(at), toMillis(at))
		default:
			res.Outcome = domain.VoteChanged
			_, err = tx.ExecContext(ctx, `
				UPDATE votes SET value = ?, updated_at = ? WHERE user_id = ? AND post_id = ?
			`, int(value), toMillis(at), voterID, postID)
		}
		if err != nil {
			return fmt.Errorf("write vote: %w", err)
		}

		res.Post, err = moveCounters(ctx, tx, postID, owner, prev, value)
		return err
	})
	if err != nil {
		return domain.VoteResult{}, err
	}
	return res, nil
}

// RetractVote deletes the voter's vote and decrements the matching counter.
// Retracting from a removed post is allowed so the vote can still be undone.
func (db *DB) RetractVote(ctx context.Context, voterID, postID string) (domain.VoteResult, error) {
	var res domain.VoteResult
	err := db.withTx(ctx, nil, func(tx *sql.Tx) error {
		var value int
		var owner string
		err := tx.QueryRowContext(ctx, `
			SELECT v.value, p.user_id
			FROM votes v JOIN posts p ON p.id = v.post_id
			WHERE v.user_id = ? AND v.post_id = ?
		`, voterID, postID).Scan(&value, &owner)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrVoteNotFound
		}
		if err != nil {
			return fmt.Errorf("lookup vote: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM votes WHERE user_id = ? AND post_id = ?
		`, voterID, postID); err != nil {
			return fmt.Errorf("delete vote: %w", err)
		}

		prev := domain.VoteValue(value)
		counts, err := moveCounters(ctx, tx, postID, owner, prev, domain.VoteNone)
		if err != nil {
			return err
		}
		res = domain.VoteResult{
			Outcome:  domain.VoteRetracted,
			Previous: prev,
			Current:  domain.VoteNone,
			OwnerID:  owner,
			Post:     counts,
		}
		return nil
	})
	if err != nil {
		return domain.VoteResult{}, err
	}
	return res, nil
}

// GetVote returns the voter's current vote on postID, or ErrVoteNotFound.
func (db *DB) GetVote(ctx context.Context, voterID, postID string) (domain.Vote, error) {
	var v domain.Vote
	var value int
	var created, updated int64
	err := db.db.QueryRowContext(ctx, `
		SELECT user_id, post_id, value, created_at, updated_at
		FROM votes WHERE user_id = ? AND post_id = ?
	`, voterID, postID).Scan(&v.UserID, &v.PostID, &value, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Vote{}, domain.ErrVoteNotFound
	}
	if err != nil {
		return domain.Vote{}, fmt.Errorf("get vote: %w", err)
	}
	v.Value = domain.VoteValue(value)
	v.CreatedAt = fromMillis(created)
	v.UpdatedAt = fromMillis(updated)
	return v, nil
}

// livePost returns the owner and counters of a post that is not removed.
func livePost(ctx context.Context, tx *sql.Tx, postID string) (string, domain.PostCounts, error) {
	var owner string
	c := domain.PostCounts{PostID: postID}
	err := tx.QueryRowContext(ctx, `
		SELECT user_id, plus_one_count, plus_two_count, total_score
		FROM posts WHERE id = ? AND status != ?
	`, postID, string(domain.PostRemoved)).Scan(&owner, &c.PlusOneCount, &c.PlusTwoCount, &c.TotalScore)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.PostCounts{}, domain.ErrPostNotFound
	}
	if err != nil {
		return "", domain.PostCounts{}, fmt.Errorf("lookup post: %w", err)
	}
	return owner, c, nil
}

func currentVote(ctx context.Context, tx *sql.Tx, voterID, postID string) (domain.VoteValue, error) {
	var value int
	err := tx.QueryRowContext(ctx, `
		SELECT value FROM votes WHERE user_id = ? AND post_id = ?
	`, voterID, postID).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.VoteNone, nil
	}
	if err != nil {
		return domain.VoteNone, fmt.Errorf("lookup vote: %w", err)
	}
	return domain.VoteValue(value), nil
}

// moveCounters shifts one voter from prev to next on the post counters and
// the owner's total_points. Increments are applied in place so concurrent
// writers never lose an update.
func moveCounters(ctx context.Context, tx *sql.Tx, postID, owner string, prev, next domain.VoteValue) (domain.PostCounts, error) {
	delta := domain.PostCounts{}.Apply(prev, next)

	c := domain.PostCounts{PostID: postID}
	err := tx.QueryRowContext(ctx, `
		UPDATE posts SET
			plus_one_count = plus_one_count + ?,
			plus_two_count = plus_two_count + ?,
			total_score    = total_score + ?
		WHERE id = ?
		RETURNING plus_one_count, plus_two_count, total_score
	`, delta.PlusOneCount, delta.PlusTwoCount, delta.TotalScore, postID).
		Scan(&c.PlusOneCount, &c.PlusTwoCount, &c.TotalScore)
	if err != nil {
		return domain.PostCounts{}, fmt.Errorf("update counters: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET total_points = total_points + ? WHERE id = ?
	`, delta.TotalScore, owner); err != nil {
		return domain.PostCounts{}, fmt.Errorf("update total points: %w", err)
	}
	return c, nil
}
