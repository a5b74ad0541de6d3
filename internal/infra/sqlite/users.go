package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/reelrank/reelrank/internal/domain"
)

// ─── User Operations ────────────────────────────────────────────────────────

// CreateUser inserts a user and its empty creator profile in one transaction.
func (db *DB) CreateUser(ctx context.Context, username string, joinedAt time.Time) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.User{}, domain.ErrInvalidUsername
	}
	if joinedAt.IsZero() {
		joinedAt = db.now()
	}

	u := domain.User{
		ID:        uuid.NewString(),
		Username:  username,
		CreatedAt: fromMillis(toMillis(joinedAt)),
	}
	err := db.withTx(ctx, nil, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, username, created_at) VALUES (?, ?, ?)
		`, u.ID, u.Username, toMillis(u.CreatedAt)); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrUsernameTaken
			}
			return fmt.Errorf("insert user: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO creator_profiles (user_id, updated_at) VALUES (?, ?)
		`, u.ID, toMillis(u.CreatedAt)); err != nil {
			return fmt.Errorf("insert profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// GetUser retrieves a user by id.
func (db *DB) GetUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	var created int64
	err := db.db.QueryRowContext(ctx, `
		SELECT id, username, total_points, created_at FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.Username, &u.TotalPoints, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = fromMillis(created)
	return u, nil
}

// DeleteUser removes a user; posts, votes and the profile cascade. Votes the
// user cast on other creators' posts are backed out of those posts' counters
// first. Returns the owners of those posts, whose aggregates changed.
func (db *DB) DeleteUser(ctx context.Context, id string) ([]string, error) {
	type castVote struct {
		postID string
		owner  string
		value  domain.VoteValue
	}

	var owners []string
	err := db.withTx(ctx, nil, func(tx *sql.Tx) error {
		owners = nil
		if err := userExists(ctx, tx, id); err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT v.post_id, p.user_id, v.value
			FROM votes v JOIN posts p ON p.id = v.post_id
			WHERE v.user_id = ? AND p.user_id != ?
			ORDER BY p.user_id, v.post_id
		`, id, id)
		if err != nil {
			return fmt.Errorf("list votes: %w", err)
		}
		var cast []castVote
		for rows.Next() {
			var c castVote
			var value int
			if err := rows.Scan(&c.postID, &c.owner, &value); err != nil {
				rows.Close()
				return err
			}
			c.value = domain.VoteValue(value)
			cast = append(cast, c)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, c := range cast {
			if _, err := moveCounters(ctx, tx, c.postID, c.owner, c.value, domain.VoteNone); err != nil {
				return err
			}
			if len(owners) == 0 || owners[len(owners)-1] != c.owner {
				owners = append(owners, c.owner)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return owners, nil
}

// userExists fails with ErrUserNotFound when id is unknown.
func userExists(ctx context.Context, tx *sql.Tx, id string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) && serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
