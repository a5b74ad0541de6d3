package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reelrank/reelrank/internal/domain"
)

// ─── Content Management ─────────────────────────────────────────────────────
//
// Called by the upload pipeline and account service, not by end users.
//
// POST   /internal/users              {"username": "..."}
// GET    /internal/users/{user_id}
// DELETE /internal/users/{user_id}
// POST   /internal/posts              {"owner_id": "...", "caption": "...", "status": "processing"}
// PATCH  /internal/posts/{post_id}    {"status": "ready"}
// GET    /posts/{post_id}

type createUserRequest struct {
	Username string `json:"username" validate:"required,max=150"`
}

type createPostRequest struct {
	OwnerID string            `json:"owner_id" validate:"required,uuid"`
	Caption string            `json:"caption" validate:"max=2200"`
	Status  domain.PostStatus `json:"status" validate:"omitempty,oneof=processing ready failed removed"`
}

type setStatusRequest struct {
	Status domain.PostStatus `json:"status" validate:"required,oneof=processing ready failed removed"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidUsername.Error())
		return
	}

	u, err := s.content.CreateUser(r.Context(), req.Username)
	if err != nil {
		s.writeContentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.content.GetUser(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		s.writeContentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if _, err := s.content.DeleteUser(r.Context(), chi.URLParam(r, "user_id")); err != nil {
		s.writeContentError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "owner_id must be a user id and status a known post status")
		return
	}

	p, err := s.content.CreatePost(r.Context(), req.OwnerID, req.Caption, req.Status)
	if err != nil {
		s.writeContentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleSetPostStatus(w http.ResponseWriter, r *http.Request) {
	postID, ok := postIDParam(w, r)
	if !ok {
		return
	}
	var req setStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidStatus.Error())
		return
	}

	p, err := s.content.SetPostStatus(r.Context(), postID, req.Status)
	if err != nil {
		s.writeContentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	postID, ok := postIDParam(w, r)
	if !ok {
		return
	}
	p, err := s.content.GetPost(r.Context(), postID)
	if err != nil {
		s.writeContentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// writeContentError reports an unknown user as 404; these routes name the
// user in the path or body rather than authenticating as them.
func (s *Server) writeContentError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeDomainError(w, r, err)
}

// ─── Status ─────────────────────────────────────────────────────────────────

// GET /internal/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}
