package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reelrank/reelrank/internal/domain"
)

// ─── Post Operations ────────────────────────────────────────────────────────

// CreatePost inserts a post with zeroed vote counters.
func (db *DB) CreatePost(ctx context.Context, ownerID, caption string, status domain.PostStatus, createdAt time.Time) (domain.Post, error) {
	if status == "" {
		status = domain.PostProcessing
	}
	if !status.Valid() {
		return domain.Post{}, domain.ErrInvalidStatus
	}
	if createdAt.IsZero() {
		createdAt = db.now()
	}

	p := domain.Post{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Caption:   caption,
		Status:    status,
		CreatedAt: fromMillis(toMillis(createdAt)),
	}
	p.Counts.PostID = p.ID

	err := db.withTx(ctx, nil, func(tx *sql.Tx) error {
		if err := userExists(ctx, tx, ownerID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO posts (id, user_id, caption, status, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, p.ID, p.OwnerID, p.Caption, string(p.Status), toMillis(p.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert post: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Post{}, err
	}
	return p, nil
}

// GetPost retrieves a post with its counters.
func (db *DB) GetPost(ctx context.Context, id string) (domain.Post, error) {
	row := db.db.QueryRowContext(ctx, `
		SELECT id, user_id, caption, status, plus_one_count, plus_two_count, total_score, created_at
		FROM posts WHERE id = ?
	`, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Post{}, domain.ErrPostNotFound
	}
	if err != nil {
		return domain.Post{}, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

// SetPostStatus moves a post through processing/ready/failed/removed.
// Returns the owner, whose aggregates may have changed.
func (db *DB) SetPostStatus(ctx context.Context, id string, status domain.PostStatus) (string, error) {
	if !status.Valid() {
		return "", domain.ErrInvalidStatus
	}
	var owner string
	err := db.db.QueryRowContext(ctx, `
		UPDATE posts SET status = ? WHERE id = ? RETURNING user_id
	`, string(status), id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrPostNotFound
	}
	if err != nil {
		return "", fmt.Errorf("set post status: %w", err)
	}
	return owner, nil
}

// RecentPosts returns ready posts created at or after since, newest first.
func (db *DB) RecentPosts(ctx context.Context, since time.Time, limit int) ([]domain.Post, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, user_id, caption, status, plus_one_count, plus_two_count, total_score, created_at
		FROM posts
		WHERE status = ? AND created_at >= ?
		ORDER BY created_at DESC, id ASC
		LIMIT ?
	`, string(domain.PostReady), toMillis(since), limit)
	if err != nil {
		return nil, fmt.Errorf("recent posts: %w", err)
	}
	defer rows.Close()

	var out []domain.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(r rowScanner) (domain.Post, error) {
	var p domain.Post
	var status string
	var created int64
	err := r.Scan(&p.ID, &p.OwnerID, &p.Caption, &status,
		&p.Counts.PlusOneCount, &p.Counts.PlusTwoCount, &p.Counts.TotalScore, &created)
	if err != nil {
		return domain.Post{}, err
	}
	p.Status = domain.PostStatus(status)
	p.Counts.PostID = p.ID
	p.CreatedAt = fromMillis(created)
	return p, nil
}
