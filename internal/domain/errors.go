package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Wrapped with %w by the stores; mapped to HTTP status in internal/api.

var (
	// Vote errors
	ErrInvalidVote  = errors.New("vote value must be 1 or 2")
	ErrVoteNotFound = errors.New("vote not found")

	// Lookup errors
	ErrPostNotFound    = errors.New("post not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrCreatorNotFound = errors.New("creator profile not found")

	// Content errors
	ErrInvalidStatus   = errors.New("post status must be processing, ready, failed or removed")
	ErrInvalidUsername = errors.New("username must not be empty")
	ErrUsernameTaken   = errors.New("username already taken")

	// Notification errors
	ErrNotificationNotFound = errors.New("notification not found")

	// Identity errors
	ErrUnauthenticated = errors.New("missing authenticated identity")

	// Background work errors
	ErrSweepRunning = errors.New("decay sweep already running")
)
