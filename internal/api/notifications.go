package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reelrank/reelrank/internal/domain"
)

// ─── Notifications ──────────────────────────────────────────────────────────
//
// Every route acts on the caller identified by X-User-ID.
//
// GET   /notifications?limit=N
// GET   /notifications/unread_count
// POST  /notifications/{notification_id}/read
// POST  /notifications/read-all
// GET   /notifications/preferences
// PATCH /notifications/preferences

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

// recipient returns the caller, writing 401 when anonymous.
func recipient(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := UserID(r.Context())
	if id == "" {
		writeError(w, http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
		return "", false
	}
	return id, true
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	me, ok := recipient(w, r)
	if !ok {
		return
	}
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	switch {
	case limit == 0:
		limit = defaultNotificationLimit
	case limit > maxNotificationLimit:
		limit = maxNotificationLimit
	}

	list, err := s.inbox.ListNotifications(r.Context(), me, limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if list == nil {
		list = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	me, ok := recipient(w, r)
	if !ok {
		return
	}
	n, err := s.inbox.CountUnread(r.Context(), me)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"unread_count": n})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	me, ok := recipient(w, r)
	if !ok {
		return
	}
	if err := s.inbox.MarkNotificationRead(r.Context(), me, chi.URLParam(r, "notification_id")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "marked as read"})
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	me, ok := recipient(w, r)
	if !ok {
		return
	}
	n, err := s.inbox.MarkNotificationsRead(r.Context(), me)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"marked_read": n})
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	me, ok := recipient(w, r)
	if !ok {
		return
	}
	p, err := s.inbox.GetNotificationPreferences(r.Context(), me)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	me, ok := recipient(w, r)
	if !ok {
		return
	}
	var patch domain.NotificationPreferencesPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, err := s.inbox.UpdateNotificationPreferences(r.Context(), me, patch)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
