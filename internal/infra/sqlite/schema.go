package sqlite

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema statements in apply order.
// Each string is a single SQL statement (SQLite executes one at a time).
// Timestamps are unix milliseconds.
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id           TEXT PRIMARY KEY,
			username     TEXT NOT NULL UNIQUE,
			total_points INTEGER NOT NULL DEFAULT 0,
			created_at   INTEGER NOT NULL
		)`,

		// One profile per user; derived fields written only by the updater
		`CREATE TABLE IF NOT EXISTS creator_profiles (
			user_id          TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			avg_rating       REAL NOT NULL DEFAULT 0,
			rating_count     INTEGER NOT NULL DEFAULT 0,
			work_count       INTEGER NOT NULL DEFAULT 0,
			reputation_score REAL NOT NULL DEFAULT 0 CHECK(reputation_score >= 0),
			updated_at       INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_reputation ON creator_profiles(reputation_score DESC)`,

		`CREATE TABLE IF NOT EXISTS posts (
			id             TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			caption        TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL DEFAULT 'processing',
			plus_one_count INTEGER NOT NULL DEFAULT 0 CHECK(plus_one_count >= 0),
			plus_two_count INTEGER NOT NULL DEFAULT 0 CHECK(plus_two_count >= 0),
			total_score    INTEGER NOT NULL DEFAULT 0,
			created_at     INTEGER NOT NULL,
			CHECK(total_score = plus_one_count + 2 * plus_two_count)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_user ON posts(user_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_score ON posts(total_score DESC, created_at DESC)`,

		// At most one vote per (user, post)
		`CREATE TABLE IF NOT EXISTS votes (
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			post_id    TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			value      INTEGER NOT NULL CHECK(value IN (1, 2)),
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, post_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_post ON votes(post_id)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id           TEXT PRIMARY KEY,
			recipient_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			actor_id     TEXT REFERENCES users(id) ON DELETE CASCADE,
			type         TEXT NOT NULL,
			object_id    TEXT NOT NULL,
			extra_json   TEXT NOT NULL DEFAULT '{}',
			is_read      INTEGER NOT NULL DEFAULT 0,
			created_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications(recipient_id, is_read, created_at DESC)`,

		// Absent row means every type is enabled
		`CREATE TABLE IF NOT EXISTS notification_preferences (
			user_id                TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			follow_enabled         INTEGER NOT NULL DEFAULT 1,
			comment_enabled        INTEGER NOT NULL DEFAULT 1,
			reply_enabled          INTEGER NOT NULL DEFAULT 1,
			rating_enabled         INTEGER NOT NULL DEFAULT 1,
			work_published_enabled INTEGER NOT NULL DEFAULT 1,
			milestone_enabled      INTEGER NOT NULL DEFAULT 1,
			email_notifications    INTEGER NOT NULL DEFAULT 0
		)`,
	}
}
