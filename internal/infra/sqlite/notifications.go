package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/reelrank/reelrank/internal/domain"
)

// ─── Notifications ──────────────────────────────────────────────────────────

// InsertNotification persists n. Extra is stored as a JSON object.
func (db *DB) InsertNotification(ctx context.Context, n domain.Notification) error {
	extra := []byte("{}")
	if len(n.Extra) > 0 {
		b, err := json.Marshal(n.Extra)
		if err != nil {
			return fmt.Errorf("marshal extra: %w", err)
		}
		extra = b
	}
	created := n.CreatedAt
	if created.IsZero() {
		created = db.now()
	}

	var actor any
	if n.ActorID != "" {
		actor = n.ActorID
	}
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient_id, actor_id, type, object_id, extra_json, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.RecipientID, actor, string(n.Type), n.ObjectID, string(extra), n.IsRead, toMillis(created))
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns a recipient's notifications, newest first.
func (db *DB) ListNotifications(ctx context.Context, recipientID string, limit int) ([]domain.Notification, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, recipient_id, actor_id, type, object_id, extra_json, is_read, created_at
		FROM notifications
		WHERE recipient_id = ?
		ORDER BY created_at DESC, id ASC
		LIMIT ?
	`, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var actor sql.NullString
		var typ, extra string
		var created int64
		if err := rows.Scan(&n.ID, &n.RecipientID, &actor, &typ, &n.ObjectID, &extra, &n.IsRead, &created); err != nil {
			return nil, err
		}
		n.ActorID = actor.String
		n.Type = domain.NotificationType(typ)
		n.CreatedAt = fromMillis(created)
		if extra != "" && extra != "{}" {
			if err := json.Unmarshal([]byte(extra), &n.Extra); err != nil {
				return nil, fmt.Errorf("decode extra for %s: %w", n.ID, err)
			}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationsRead flags every unread notification of recipientID.
// Returns the number of rows changed.
func (db *DB) MarkNotificationsRead(ctx context.Context, recipientID string) (int64, error) {
	res, err := db.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = 1 WHERE recipient_id = ? AND is_read = 0
	`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return res.RowsAffected()
}

// CountUnread returns the number of unread notifications of recipientID.
func (db *DB) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	var n int64
	err := db.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND is_read = 0
	`, recipientID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// MarkNotificationRead flags one notification. A notification belonging to
// another recipient is reported as not found.
func (db *DB) MarkNotificationRead(ctx context.Context, recipientID, id string) error {
	res, err := db.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = 1 WHERE id = ? AND recipient_id = ?
	`, id, recipientID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

// ─── Notification Preferences ───────────────────────────────────────────────

// GetNotificationPreferences returns userID's saved preferences, or the
// defaults when none were saved.
func (db *DB) GetNotificationPreferences(ctx context.Context, userID string) (domain.NotificationPreferences, error) {
	p := domain.NotificationPreferences{UserID: userID}
	err := db.db.QueryRowContext(ctx, `
		SELECT follow_enabled, comment_enabled, reply_enabled, rating_enabled,
		       work_published_enabled, milestone_enabled, email_notifications
		FROM notification_preferences WHERE user_id = ?
	`, userID).Scan(&p.FollowEnabled, &p.CommentEnabled, &p.ReplyEnabled, &p.RatingEnabled,
		&p.WorkPublishedEnabled, &p.MilestoneEnabled, &p.EmailNotifications)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultNotificationPreferences(userID), nil
	}
	if err != nil {
		return domain.NotificationPreferences{}, fmt.Errorf("get preferences: %w", err)
	}
	return p, nil
}

// UpdateNotificationPreferences applies patch to userID's preferences and
// returns the result.
func (db *DB) UpdateNotificationPreferences(ctx context.Context, userID string, patch domain.NotificationPreferencesPatch) (domain.NotificationPreferences, error) {
	var out domain.NotificationPreferences
	err := db.withTx(ctx, nil, func(tx *sql.Tx) error {
		if err := userExists(ctx, tx, userID); err != nil {
			return err
		}

		cur := domain.NotificationPreferences{UserID: userID}
		err := tx.QueryRowContext(ctx, `
			SELECT follow_enabled, comment_enabled, reply_enabled, rating_enabled,
			       work_published_enabled, milestone_enabled, email_notifications
			FROM notification_preferences WHERE user_id = ?
		`, userID).Scan(&cur.FollowEnabled, &cur.CommentEnabled, &cur.ReplyEnabled, &cur.RatingEnabled,
			&cur.WorkPublishedEnabled, &cur.MilestoneEnabled, &cur.EmailNotifications)
		if errors.Is(err, sql.ErrNoRows) {
			cur = domain.DefaultNotificationPreferences(userID)
		} else if err != nil {
			return fmt.Errorf("get preferences: %w", err)
		}

		out = cur.Apply(patch)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO notification_preferences (user_id, follow_enabled, comment_enabled, reply_enabled,
				rating_enabled, work_published_enabled, milestone_enabled, email_notifications)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				follow_enabled         = excluded.follow_enabled,
				comment_enabled        = excluded.comment_enabled,
				reply_enabled          = excluded.reply_enabled,
				rating_enabled         = excluded.rating_enabled,
				work_published_enabled = excluded.work_published_enabled,
				milestone_enabled      = excluded.milestone_enabled,
				email_notifications    = excluded.email_notifications
		`, userID, out.FollowEnabled, out.CommentEnabled, out.ReplyEnabled, out.RatingEnabled,
			out.WorkPublishedEnabled, out.MilestoneEnabled, out.EmailNotifications)
		if err != nil {
			return fmt.Errorf("save preferences: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.NotificationPreferences{}, err
	}
	return out, nil
}
