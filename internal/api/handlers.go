package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/domain"
)

// ─── Votes ──────────────────────────────────────────────────────────────────
//
// GET    /votes/{post_id}                  the caller's current vote
// POST   /votes/{post_id}  {"value": 1|2}  cast or change a vote
// DELETE /votes/{post_id}                  retract a vote

type voteRequest struct {
	Value int `json:"value" validate:"required,oneof=1 2"`
}

type voteResponse struct {
	PostID       string             `json:"post_id"`
	Outcome      domain.VoteOutcome `json:"outcome"`
	Value        domain.VoteValue   `json:"value"`
	PlusOneCount int64              `json:"plus_one_count"`
	PlusTwoCount int64              `json:"plus_two_count"`
	TotalScore   int64              `json:"total_score"`
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	voter := UserID(r.Context())
	if voter == "" {
		writeError(w, http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
		return
	}
	postID, ok := postIDParam(w, r)
	if !ok {
		return
	}

	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidVote.Error())
		return
	}

	res, err := s.votes.Cast(r.Context(), voter, postID, domain.VoteValue(req.Value))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, voteResponse{
		PostID:       postID,
		Outcome:      res.Outcome,
		Value:        res.Current,
		PlusOneCount: res.Post.PlusOneCount,
		PlusTwoCount: res.Post.PlusTwoCount,
		TotalScore:   res.Post.TotalScore,
	})
}

func (s *Server) handleRetractVote(w http.ResponseWriter, r *http.Request) {
	voter := UserID(r.Context())
	if voter == "" {
		writeError(w, http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
		return
	}
	postID, ok := postIDParam(w, r)
	if !ok {
		return
	}

	if _, err := s.votes.Retract(r.Context(), voter, postID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetVote(w http.ResponseWriter, r *http.Request) {
	voter := UserID(r.Context())
	if voter == "" {
		writeError(w, http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
		return
	}
	postID, ok := postIDParam(w, r)
	if !ok {
		return
	}

	v, err := s.votes.Get(r.Context(), voter, postID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// postIDParam rejects ids that cannot name a post with 404.
func postIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "post_id")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusNotFound, domain.ErrPostNotFound.Error())
		return "", false
	}
	return id.String(), true
}

// ─── Leaderboard ────────────────────────────────────────────────────────────

// GET /users/leaderboard?limit=N
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit = s.config.Leaderboard.Clamp(limit)

	profiles, err := s.board.Leaderboard(r.Context(), limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.RankProfiles(profiles))
}

// GET /users/{user_id}/profile
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.board.GetProfile(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ─── Feed ───────────────────────────────────────────────────────────────────

type feedItem struct {
	ID           string  `json:"id"`
	OwnerID      string  `json:"owner_id"`
	Caption      string  `json:"caption,omitempty"`
	PlusOneCount int64   `json:"plus_one_count"`
	PlusTwoCount int64   `json:"plus_two_count"`
	TotalScore   int64   `json:"total_score"`
	CreatedAt    string  `json:"created_at"`
	FeedScore    float64 `json:"feed_score"`
}

// GET /posts/feed?limit=N
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := s.feed.Top(r.Context(), limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	out := make([]feedItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, feedItem{
			ID:           e.Post.ID,
			OwnerID:      e.Post.OwnerID,
			Caption:      e.Post.Caption,
			PlusOneCount: e.Post.Counts.PlusOneCount,
			PlusTwoCount: e.Post.Counts.PlusTwoCount,
			TotalScore:   e.Post.Counts.TotalScore,
			CreatedAt:    e.Post.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
			FeedScore:    e.FeedScore,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ─── Sweep Trigger ──────────────────────────────────────────────────────────

// POST /internal/sweep, for an external scheduler. The sweep runs in the
// background.
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	err := s.sweeper.Start(s.baseCtx, "http")
	if errors.Is(err, domain.ErrSweepRunning) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.logger.Info("sweep triggered over http", zap.String("remote", r.RemoteAddr))
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "started",
	})
}

// limitParam parses ?limit. Missing means 0 (use the default).
func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}
	return n, nil
}
