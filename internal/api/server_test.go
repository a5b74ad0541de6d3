package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/reelrank/reelrank/internal/app/content"
	"github.com/reelrank/reelrank/internal/app/feed"
	"github.com/reelrank/reelrank/internal/app/ledger"
	"github.com/reelrank/reelrank/internal/domain"
	scoring "github.com/reelrank/reelrank/internal/infra/reputation"
	"github.com/reelrank/reelrank/internal/infra/sqlite"
)

// ─── Fixtures ───────────────────────────────────────────────────────────────

type fakeSweeper struct {
	mu      sync.Mutex
	started int
	err     error
}

func (f *fakeSweeper) Start(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.started++
	return nil
}

type testEnv struct {
	db      *sqlite.DB
	handler http.Handler
	sweeper *fakeSweeper
	owner   domain.User
	voter   domain.User
	post    domain.Post
}

func setupServer(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	owner, err := db.CreateUser(ctx, "owner", time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	voter, err := db.CreateUser(ctx, "voter", time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	post, err := db.CreatePost(ctx, owner.ID, "first clip", domain.PostReady, time.Time{})
	if err != nil {
		t.Fatal(err)
	}

	sw := &fakeSweeper{}
	srv := NewServer(cfg, ledger.New(db, nil, nil, nil), db, nil)
	srv.SetFeed(feed.NewRanker(db, scoring.NewCalculator(scoring.DefaultConfig()), feed.DefaultConfig()))
	srv.SetSweeper(ctx, sw)
	srv.SetHealthCheck(db.Ping)
	srv.SetContent(content.New(db, nil, nil))
	srv.SetNotifications(db)
	srv.SetStatus(func() any { return map[string]int{"pending": 3} })
	srv.EnableMetrics()

	return &testEnv{db: db, handler: srv.Handler(), sweeper: sw, owner: owner, voter: voter, post: post}
}

func (e *testEnv) do(method, path, user, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set(IdentityHeader, user)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

// ─── Votes ──────────────────────────────────────────────────────────────────

func TestCastVote_Created(t *testing.T) {
	env := setupServer(t, DefaultConfig())

	w := env.do(http.MethodPost, "/votes/"+env.post.ID, env.voter.ID, `{"value":2}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp voteResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Outcome != domain.VoteCreated || resp.TotalScore != 2 || resp.PlusTwoCount != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestCastVote_ChangeThenRetract(t *testing.T) {
	env := setupServer(t, DefaultConfig())
	path := "/votes/" + env.post.ID

	env.do(http.MethodPost, path, env.voter.ID, `{"value":1}`)
	w := env.do(http.MethodPost, path, env.voter.ID, `{"value":2}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("change: expected 201, got %d", w.Code)
	}
	var resp voteResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Outcome != domain.VoteChanged || resp.PlusOneCount != 0 || resp.TotalScore != 2 {
		t.Errorf("after change resp = %+v", resp)
	}

	w = env.do(http.MethodDelete, path, env.voter.ID, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("retract: expected 204, got %d", w.Code)
	}
	w = env.do(http.MethodDelete, path, env.voter.ID, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("second retract: expected 404, got %d", w.Code)
	}

	p, _ := env.db.GetPost(context.Background(), env.post.ID)
	if p.Counts.TotalScore != 0 {
		t.Errorf("TotalScore = %d, want 0", p.Counts.TotalScore)
	}
}

func TestCastVote_Errors(t *testing.T) {
	env := setupServer(t, DefaultConfig())
	valid := "/votes/" + env.post.ID

	tests := []struct {
		name   string
		path   string
		user   string
		body   string
		status int
	}{
		{"missing identity", valid, "", `{"value":1}`, http.StatusUnauthorized},
		{"unknown user", valid, uuid.NewString(), `{"value":1}`, http.StatusUnauthorized},
		{"value zero", valid, env.voter.ID, `{"value":0}`, http.StatusBadRequest},
		{"value three", valid, env.voter.ID, `{"value":3}`, http.StatusBadRequest},
		{"missing value", valid, env.voter.ID, `{}`, http.StatusBadRequest},
		{"value as string", valid, env.voter.ID, `{"value":"1"}`, http.StatusBadRequest},
		{"not json", valid, env.voter.ID, `value=1`, http.StatusBadRequest},
		{"trailing data", valid, env.voter.ID, `{"value":1}garbage`, http.StatusBadRequest},
		{"two objects", valid, env.voter.ID, `{"value":1}{"value":2}`, http.StatusBadRequest},
		{"malformed post id", "/votes/not-a-uuid", env.voter.ID, `{"value":1}`, http.StatusNotFound},
		{"unknown post", "/votes/" + uuid.NewString(), env.voter.ID, `{"value":1}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, tt.path, tt.user, tt.body)
			if w.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestCastVote_TrailingDataLeavesCountersAlone(t *testing.T) {
	env := setupServer(t, DefaultConfig())
	env.do(http.MethodPost, "/votes/"+env.post.ID, env.voter.ID, `{"value":1}garbage`)

	p, _ := env.db.GetPost(context.Background(), env.post.ID)
	if p.Counts.TotalScore != 0 {
		t.Errorf("TotalScore = %d, want 0", p.Counts.TotalScore)
	}
}

func TestGetVote(t *testing.T) {
	env := setupServer(t, DefaultConfig())
	path := "/votes/" + env.post.ID

	if w := env.do(http.MethodGet, path, env.voter.ID, ""); w.Code != http.StatusNotFound {
		t.Errorf("before cast: expected 404, got %d", w.Code)
	}
	env.do(http.MethodPost, path, env.voter.ID, `{"value":2}`)

	w := env.do(http.MethodGet, path, env.voter.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var v domain.Vote
	json.Unmarshal(w.Body.Bytes(), &v)
	if v.Value != domain.VotePlusTwo || v.UserID != env.voter.ID {
		t.Errorf("vote = %+v", v)
	}
	if w := env.do(http.MethodGet, path, "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: expected 401, got %d", w.Code)
	}
}

func TestRetractVote_MissingIdentity(t *testing.T) {
	env := setupServer(t, DefaultConfig())
	w := env.do(http.MethodDelete, "/votes/"+env.post.ID, "", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestCastVote_RateLimited(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VoteRateLimit = 2
	cfg.VoteRateWindow = time.Minute
	env := setupServer(t, cfg)
	path := "/votes/" + env.post.ID

	for i := 0; i < 2; i++ {
		if w := env.do(http.MethodPost, path, env.voter.ID, `{"value":1}`); w.Code != http.StatusCreated {
			t.Fatalf("request %d: expected 201, got %d", i, w.Code)
		}
	}
	if w := env.do(http.MethodPost, path, env.voter.ID, `{"value":1}`); w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", w.Code)
	}
	// Limits are per identity.
	if w := env.do(http.MethodPost, path, env.owner.ID, `{"value":1}`); w.Code != http.StatusCreated {
		t.Errorf("other identity: expected 201, got %d", w.Code)
	}
}

// ─── Leaderboard ────────────────────────────────────────────────────────────

func TestLeaderboard_OrderAndLimit(t *testing.T) {
	env := setupServer(t, DefaultConfig())
	ctx := context.Background()
	env.db.SaveReputation(ctx, domain.CreatorProfile{UserID: env.owner.ID, ReputationScore: 9, WorkCount: 1})
	env.db.SaveReputation(ctx, domain.CreatorProfile{UserID: env.voter.ID, ReputationScore: 3})

	w := env.do(http.MethodGet, "/users/leaderboard", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Username != "owner" || entries[0].Rank != 1 {
		t.Errorf("entries = %+v", entries)
	}

	w = env.do(http.MethodGet, "/users/leaderboard?limit=1", "", "")
	json.Unmarshal(w.Body.Bytes(), &entries)
	if len(entries) != 1 {
		t.Errorf("limit=1 returned %d entries", len(entries))
	}

	if w := env.do(http.MethodGet, "/users/leaderboard?limit=abc", "", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: expected 400, got %d", w.Code)
	}
}

func TestProfile(t *testing.T) {
	env := setupServer(t, DefaultConfig())

	w := env.do(http.MethodGet, "/users/"+env.owner.ID+"/profile", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var p domain.CreatorProfile
	json.Unmarshal(w.Body.Bytes(), &p)
	if p.Username != "owner" {
		t.Errorf("profile = %+v", p)
	}

	if w := env.do(http.MethodGet, "/users/"+uuid.NewString()+"/profile", "", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown: expected 404, got %d", w.Code)
	}
}

// ─── Content ────────────────────────────────────────────────────────────────

func TestContent_UserLifecycle(t *testing.T) {
	env := setupServer(t, DefaultConfig())

	w := env.do(http.MethodPost, "/internal/users", "", `{"username":"newbie"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var u domain.User
	json.Unmarshal(w.Body.Bytes(), &u)
	if u.ID == "" || u.Username != "newbie" {
		t.Fatalf("user = %+v", u)
	}

	if w := env.do(http.MethodPost, "/internal/users", "", `{"username":"newbie"}`); w.Code != http.StatusConflict {
		t.Errorf("duplicate: expected 409, got %d", w.Code)
	}
	if w := env.do(http.MethodPost, "/internal/users", "", `{"username":""}`); w.Code != http.StatusBadRequest {
		t.Errorf("empty: expected 400, got %d", w.Code)
	}
	if w := env.do(http.MethodGet, "/internal/users/"+u.ID, "", ""); w.Code != http.StatusOK {
		t.Errorf("get: expected 200, got %d", w.Code)
	}
	if w := env.do(http.MethodDelete, "/internal/users/"+u.ID, "", ""); w.Code != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", w.Code)
	}
	if w := env.do(http.MethodGet, "/internal/users/"+u.ID, "", ""); w.Code != http.StatusNotFound {
		t.Errorf("get deleted: expected 404, got %d", w.Code)
	}
}

func TestContent_PostLifecycle(t *testing.T) {
	env := setupServer(t, DefaultConfig())

	w := env.do(http.MethodPost, "/internal/posts", "", `{"owner_id":"`+env.owner.ID+`","caption":"second","status":"ready"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var p domain.Post
	json.Unmarshal(w.Body.Bytes(), &p)
	if p.Status != domain.PostReady || p.OwnerID != env.owner.ID {
		t.Fatalf("post = %+v", p)
	}

	if w := env.do(http.MethodGet, "/posts/"+p.ID, "", ""); w.Code != http.StatusOK {
		t.Errorf("get: expected 200, got %d", w.Code)
	}

	w = env.do(http.MethodPatch, "/internal/posts/"+p.ID, "", `{"status":"removed"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d", w.Code)
	}
	if w := env.do(http.MethodPost, "/votes/"+p.ID, env.voter.ID, `{"value":1}`); w.Code != http.StatusNotFound {
		t.Errorf("vote on removed: expected 404, got %d", w.Code)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown owner", http.MethodPost, "/internal/posts", `{"owner_id":"` + uuid.NewString() + `"}`, http.StatusNotFound},
		{"owner not uuid", http.MethodPost, "/internal/posts", `{"owner_id":"x"}`, http.StatusBadRequest},
		{"bad status", http.MethodPost, "/internal/posts", `{"owner_id":"` + env.owner.ID + `","status":"live"}`, http.StatusBadRequest},
		{"patch bad status", http.MethodPatch, "/internal/posts/" + p.ID, `{"status":"live"}`, http.StatusBadRequest},
		{"patch unknown post", http.MethodPatch, "/internal/posts/" + uuid.NewString(), `{"status":"ready"}`, http.StatusNotFound},
		{"get unknown post", http.MethodGet, "/posts/" + uuid.NewString(), "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.do(tt.method, tt.path, "", tt.body); w.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}
}

// ─── Notifications ──────────────────────────────────────────────────────────

func TestNotifications_Inbox(t *testing.T) {
	env := setupServer(t, DefaultConfig())
	ctx := context.Background()
	for _, id := range []string{"n1", "n2"} {
		err := env.db.InsertNotification(ctx, domain.Notification{
			ID:          id,
			RecipientID: env.owner.ID,
			ActorID:     env.voter.ID,
			Type:        domain.NotifyRating,
			ObjectID:    env.post.ID,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	w := env.do(http.MethodGet, "/notifications", env.owner.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	var list []domain.Notification
	json.Unmarshal(w.Body.Bytes(), &list)
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}

	var count map[string]int64
	w = env.do(http.MethodGet, "/notifications/unread_count", env.owner.ID, "")
	json.Unmarshal(w.Body.Bytes(), &count)
	if count["unread_count"] != 2 {
		t.Errorf("unread_count = %v, want 2", count)
	}

	if w := env.do(http.MethodPost, "/notifications/n1/read", env.voter.ID, ""); w.Code != http.StatusNotFound {
		t.Errorf("other user's notification: expected 404, got %d", w.Code)
	}
	if w := env.do(http.MethodPost, "/notifications/n1/read", env.owner.ID, ""); w.Code != http.StatusOK {
		t.Errorf("mark read: expected 200, got %d", w.Code)
	}

	var marked map[string]int64
	w = env.do(http.MethodPost, "/notifications/read-all", env.owner.ID, "")
	json.Unmarshal(w.Body.Bytes(), &marked)
	if marked["marked_read"] != 1 {
		t.Errorf("marked_read = %v, want 1", marked)
	}

	w = env.do(http.MethodGet, "/notifications", env.voter.ID, "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("empty inbox body = %q, want []", w.Body.String())
	}
	if w := env.do(http.MethodGet, "/notifications", "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: expected 401, got %d", w.Code)
	}
}

func TestNotifications_Preferences(t *testing.T) {
	env := setupServer(t, DefaultConfig())

	var p domain.NotificationPreferences
	w := env.do(http.MethodGet, "/notifications/preferences", env.owner.ID, "")
	json.Unmarshal(w.Body.Bytes(), &p)
	if !p.RatingEnabled {
		t.Errorf("default prefs = %+v", p)
	}

	w = env.do(http.MethodPatch, "/notifications/preferences", env.owner.ID, `{"rating_enabled":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	json.Unmarshal(w.Body.Bytes(), &p)
	if p.RatingEnabled || !p.FollowEnabled {
		t.Errorf("patched prefs = %+v", p)
	}

	if w := env.do(http.MethodPatch, "/notifications/preferences", uuid.NewString(), `{}`); w.Code != http.StatusUnauthorized {
		t.Errorf("unknown user: expected 401, got %d", w.Code)
	}
}

// ─── Feed ───────────────────────────────────────────────────────────────────

func TestFeed_ReturnsScoredPosts(t *testing.T) {
	env := setupServer(t, DefaultConfig())
	env.do(http.MethodPost, "/votes/"+env.post.ID, env.voter.ID, `{"value":2}`)

	w := env.do(http.MethodGet, "/posts/feed?limit=5", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var items []feedItem
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("len = %d, want 1", len(items))
	}
	if items[0].ID != env.post.ID || items[0].TotalScore != 2 || items[0].FeedScore <= 0 {
		t.Errorf("item = %+v", items[0])
	}
}

// ─── Sweep / Health / Metrics ───────────────────────────────────────────────

func TestSweep_Accepted(t *testing.T) {
	env := setupServer(t, DefaultConfig())
	w := env.do(http.MethodPost, "/internal/sweep", "", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	if env.sweeper.started != 1 {
		t.Errorf("started = %d, want 1", env.sweeper.started)
	}
}

func TestSweep_AlreadyRunning(t *testing.T) {
	env := setupServer(t, DefaultConfig())
	env.sweeper.err = domain.ErrSweepRunning
	w := env.do(http.MethodPost, "/internal/sweep", "", "")
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestStatus(t *testing.T) {
	env := setupServer(t, DefaultConfig())
	w := env.do(http.MethodGet, "/internal/status", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"pending":3`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	env := setupServer(t, DefaultConfig())
	w := env.do(http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	env.db.Close()
	w = env.do(http.MethodGet, "/health", "", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("closed db: expected 503, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupServer(t, DefaultConfig())
	env.do(http.MethodPost, "/votes/"+env.post.ID, env.voter.ID, `{"value":1}`)

	w := env.do(http.MethodGet, "/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "reelrank_votes_total") {
		t.Error("metrics output missing reelrank_votes_total")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidVote, http.StatusBadRequest},
		{domain.ErrPostNotFound, http.StatusNotFound},
		{domain.ErrVoteNotFound, http.StatusNotFound},
		{domain.ErrUnauthenticated, http.StatusUnauthorized},
		{domain.ErrUserNotFound, http.StatusUnauthorized},
		{domain.ErrSweepRunning, http.StatusConflict},
		{domain.ErrUsernameTaken, http.StatusConflict},
		{domain.ErrInvalidStatus, http.StatusBadRequest},
		{domain.ErrNotificationNotFound, http.StatusNotFound},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errContext("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

type errContext string

func (e errContext) Error() string { return string(e) }
