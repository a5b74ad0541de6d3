// Package api provides the HTTP server for reelrank: voting, the creator
// leaderboard, the ranked feed and the sweep trigger.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/domain"
)

// IdentityHeader carries the authenticated user id set by the upstream gateway.
const IdentityHeader = "X-User-ID"

// VoteService casts, retracts and reads votes.
type VoteService interface {
	Cast(ctx context.Context, voterID, postID string, value domain.VoteValue) (domain.VoteResult, error)
	Retract(ctx context.Context, voterID, postID string) (domain.VoteResult, error)
	Get(ctx context.Context, voterID, postID string) (domain.Vote, error)
}

// CreatorBoard reads creator profiles.
type CreatorBoard interface {
	domain.LeaderboardReader
	GetProfile(ctx context.Context, userID string) (domain.CreatorProfile, error)
}

// ContentService manages users and posts.
type ContentService interface {
	CreateUser(ctx context.Context, username string) (domain.User, error)
	GetUser(ctx context.Context, id string) (domain.User, error)
	DeleteUser(ctx context.Context, id string) ([]string, error)
	CreatePost(ctx context.Context, ownerID, caption string, status domain.PostStatus) (domain.Post, error)
	GetPost(ctx context.Context, id string) (domain.Post, error)
	SetPostStatus(ctx context.Context, id string, status domain.PostStatus) (domain.Post, error)
}

// NotificationInbox reads and updates a user's notifications.
type NotificationInbox interface {
	ListNotifications(ctx context.Context, recipientID string, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
	MarkNotificationRead(ctx context.Context, recipientID, id string) error
	MarkNotificationsRead(ctx context.Context, recipientID string) (int64, error)
	GetNotificationPreferences(ctx context.Context, userID string) (domain.NotificationPreferences, error)
	UpdateNotificationPreferences(ctx context.Context, userID string, patch domain.NotificationPreferencesPatch) (domain.NotificationPreferences, error)
}

// StatusFunc reports background worker state.
type StatusFunc func() any

// FeedRanker returns the ranked home feed.
type FeedRanker interface {
	Top(ctx context.Context, limit int) ([]domain.FeedEntry, error)
}

// SweepStarter starts a background decay sweep.
type SweepStarter interface {
	Start(ctx context.Context, trigger string) error
}

// Config controls server middleware.
type Config struct {
	RequestTimeout time.Duration // per-request deadline (default: 30s)
	VoteRateLimit  int           // vote requests per identity per window; 0 disables
	VoteRateWindow time.Duration // default: 1m
	Leaderboard    domain.LeaderboardConfig
}

// DefaultConfig returns server defaults.
func DefaultConfig() Config {
	return Config{
		RequestTimeout: 30 * time.Second,
		VoteRateLimit:  60,
		VoteRateWindow: time.Minute,
		Leaderboard:    domain.DefaultLeaderboardConfig(),
	}
}

// Server is the reelrank HTTP API server.
type Server struct {
	config         Config
	votes          VoteService
	board          CreatorBoard
	feed           FeedRanker
	sweeper        SweepStarter
	content        ContentService
	inbox          NotificationInbox
	status         StatusFunc
	health         func(ctx context.Context) error
	metricsEnabled bool
	logger         *zap.Logger
	validate       *validator.Validate
	baseCtx        context.Context
}

// NewServer creates a new API server.
func NewServer(cfg Config, votes VoteService, board CreatorBoard, logger *zap.Logger) *Server {
	def := DefaultConfig()
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.VoteRateWindow <= 0 {
		cfg.VoteRateWindow = def.VoteRateWindow
	}
	if cfg.Leaderboard.DefaultN <= 0 || cfg.Leaderboard.MaxN <= 0 {
		cfg.Leaderboard = def.Leaderboard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		config:   cfg,
		votes:    votes,
		board:    board,
		logger:   logger.Named("api"),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		baseCtx:  context.Background(),
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetFeed mounts GET /posts/feed.
func (s *Server) SetFeed(f FeedRanker) { s.feed = f }

// SetSweeper mounts POST /internal/sweep. Background sweeps inherit ctx.
func (s *Server) SetSweeper(ctx context.Context, sw SweepStarter) {
	s.sweeper = sw
	s.baseCtx = ctx
}

// SetHealthCheck makes /health report the result of check.
func (s *Server) SetHealthCheck(check func(ctx context.Context) error) { s.health = check }

// SetContent mounts GET /posts/{post_id} and the /internal/users and
// /internal/posts management routes.
func (s *Server) SetContent(c ContentService) { s.content = c }

// SetNotifications mounts the /notifications inbox.
func (s *Server) SetNotifications(inbox NotificationInbox) { s.inbox = inbox }

// SetStatus mounts GET /internal/status.
func (s *Server) SetStatus(report StatusFunc) { s.status = report }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.config.RequestTimeout))
	r.Use(identity)

	r.Get("/health", s.handleHealth)

	r.Route("/votes", func(r chi.Router) {
		if s.config.VoteRateLimit > 0 {
			r.Use(httprate.Limit(
				s.config.VoteRateLimit,
				s.config.VoteRateWindow,
				httprate.WithKeyFuncs(identityOrIP),
			))
		}
		r.Get("/{post_id}", s.handleGetVote)
		r.Post("/{post_id}", s.handleCastVote)
		r.Delete("/{post_id}", s.handleRetractVote)
	})

	r.Get("/users/leaderboard", s.handleLeaderboard)
	r.Get("/users/{user_id}/profile", s.handleProfile)

	if s.feed != nil {
		r.Get("/posts/feed", s.handleFeed)
	}

	if s.content != nil {
		r.Get("/posts/{post_id}", s.handleGetPost)
		r.Route("/internal/users", func(r chi.Router) {
			r.Post("/", s.handleCreateUser)
			r.Get("/{user_id}", s.handleGetUser)
			r.Delete("/{user_id}", s.handleDeleteUser)
		})
		r.Route("/internal/posts", func(r chi.Router) {
			r.Post("/", s.handleCreatePost)
			r.Patch("/{post_id}", s.handleSetPostStatus)
		})
	}

	if s.inbox != nil {
		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.handleListNotifications)
			r.Get("/unread_count", s.handleUnreadCount)
			r.Post("/read-all", s.handleMarkAllRead)
			r.Post("/{notification_id}/read", s.handleMarkRead)
			r.Get("/preferences", s.handleGetPreferences)
			r.Patch("/preferences", s.handleUpdatePreferences)
		})
	}

	if s.sweeper != nil {
		r.Post("/internal/sweep", s.handleSweep)
	}

	if s.status != nil {
		r.Get("/internal/status", s.handleStatus)
	}

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "unhealthy: "+err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// ─── Identity ───────────────────────────────────────────────────────────────

type identityKey struct{}

// identity copies the gateway-supplied user id into the request context.
func identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(IdentityHeader); id != "" {
			r = r.WithContext(context.WithValue(r.Context(), identityKey{}, id))
		}
		next.ServeHTTP(w, r)
	})
}

// UserID returns the authenticated user id, or "" when anonymous.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(identityKey{}).(string)
	return id
}

func identityOrIP(r *http.Request) (string, error) {
	if id := UserID(r.Context()); id != "" {
		return "user:" + id, nil
	}
	return httprate.KeyByIP(r)
}

// ─── Requests ───────────────────────────────────────────────────────────────

const maxBody = 4 << 10

var errTrailingData = errors.New("request body must contain a single JSON object")

// decodeJSON reads exactly one JSON value from the body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errTrailingData
	}
	return nil
}

// ─── Responses ──────────────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidVote),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidUsername):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPostNotFound),
		errors.Is(err, domain.ErrVoteNotFound),
		errors.Is(err, domain.ErrCreatorNotFound),
		errors.Is(err, domain.ErrNotificationNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, domain.ErrUserNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrSweepRunning):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError logs unexpected failures and hides their detail.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
