package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/app/notify"
	"github.com/reelrank/reelrank/internal/domain"
)

type memStore struct {
	mu       sync.Mutex
	rows     []domain.Notification
	disabled map[string]bool // recipient → rating notifications off
	err      error
	prefsErr error
}

func (m *memStore) GetNotificationPreferences(_ context.Context, userID string) (domain.NotificationPreferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prefsErr != nil {
		return domain.NotificationPreferences{}, m.prefsErr
	}
	p := domain.DefaultNotificationPreferences(userID)
	p.RatingEnabled = !m.disabled[userID]
	return p, nil
}

func (m *memStore) stored() []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Notification(nil), m.rows...)
}

func (m *memStore) InsertNotification(_ context.Context, n domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, n)
	return nil
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisDebouncer_Window(t *testing.T) {
	t.Parallel()
	mr, client := setupRedis(t)
	d := notify.NewRedisDebouncer(client)
	ctx := t.Context()

	ok, err := d.Allow(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.Allow(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, mr.Exists("notify:k"))
	mr.FastForward(2 * time.Minute)

	ok, err = d.Allow(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisDebouncer_ServerDown(t *testing.T) {
	t.Parallel()
	mr, client := setupRedis(t)
	mr.Close()

	_, err := notify.NewRedisDebouncer(client).Allow(t.Context(), "k", time.Minute)
	assert.Error(t, err)
}

func TestMemoryDebouncer_Window(t *testing.T) {
	t.Parallel()
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	d := notify.NewMemoryDebouncer()
	d.SetClock(func() time.Time { return clock })
	ctx := t.Context()

	ok, _ := d.Allow(ctx, "k", 5*time.Minute)
	assert.True(t, ok)
	ok, _ = d.Allow(ctx, "k", 5*time.Minute)
	assert.False(t, ok)
	ok, _ = d.Allow(ctx, "other", 5*time.Minute)
	assert.True(t, ok)

	clock = clock.Add(5 * time.Minute)
	ok, _ = d.Allow(ctx, "k", 5*time.Minute)
	assert.True(t, ok)
	ok, _ = d.Allow(ctx, "other", 5*time.Minute)
	assert.True(t, ok, "expired key admitted again")
}

func TestNotify_PersistsRating(t *testing.T) {
	t.Parallel()
	_, client := setupRedis(t)
	store := &memStore{}
	n := notify.New(notify.Config{}, store, notify.NewRedisDebouncer(client), zap.NewNop())

	sent, err := n.Notify(t.Context(), notify.Rating("voter", "owner", "post-1", domain.VotePlusTwo))
	require.NoError(t, err)
	assert.True(t, sent)

	require.Len(t, store.rows, 1)
	got := store.rows[0]
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Equal(t, "owner", got.RecipientID)
	assert.Equal(t, domain.NotifyRating, got.Type)
	assert.Equal(t, "2", got.Extra["value"])
}

func TestNotify_DebouncesRepeats(t *testing.T) {
	t.Parallel()
	store := &memStore{}
	n := notify.New(notify.Config{Window: time.Minute}, store, nil, zap.NewNop())
	ctx := t.Context()

	first, err := n.Notify(ctx, notify.Rating("voter", "owner", "post-1", domain.VotePlusOne))
	require.NoError(t, err)
	second, err := n.Notify(ctx, notify.Rating("voter", "owner", "post-1", domain.VotePlusTwo))
	require.NoError(t, err)
	other, err := n.Notify(ctx, notify.Rating("voter", "owner", "post-2", domain.VotePlusOne))
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	assert.True(t, other)
	assert.Len(t, store.rows, 2)
}

func TestNotify_SkipsSelf(t *testing.T) {
	t.Parallel()
	store := &memStore{}
	n := notify.New(notify.Config{}, store, nil, zap.NewNop())

	sent, err := n.Notify(t.Context(), notify.Rating("owner", "owner", "post-1", domain.VotePlusOne))
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, store.rows)
}

func TestNotify_StoreError(t *testing.T) {
	t.Parallel()
	boom := errors.New("disk full")
	n := notify.New(notify.Config{}, &memStore{err: boom}, nil, zap.NewNop())

	sent, err := n.Notify(t.Context(), notify.Rating("a", "b", "p", domain.VotePlusOne))
	require.ErrorIs(t, err, boom)
	assert.False(t, sent)
}

func TestNotify_RespectsDisabledType(t *testing.T) {
	t.Parallel()
	store := &memStore{disabled: map[string]bool{"owner": true}}
	n := notify.New(notify.Config{}, store, nil, zap.NewNop())

	sent, err := n.Notify(t.Context(), notify.Rating("voter", "owner", "post-1", domain.VotePlusOne))
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, store.rows)

	// A disabled recipient does not consume the debounce window of others.
	sent, err = n.Notify(t.Context(), notify.Rating("voter", "someone", "post-1", domain.VotePlusOne))
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestNotify_PreferencesError(t *testing.T) {
	t.Parallel()
	boom := errors.New("db closed")
	n := notify.New(notify.Config{}, &memStore{prefsErr: boom}, nil, zap.NewNop())

	_, err := n.Notify(t.Context(), notify.Rating("a", "b", "p", domain.VotePlusOne))
	require.ErrorIs(t, err, boom)
}

func TestEnqueue_DeliversInBackground(t *testing.T) {
	t.Parallel()
	store := &memStore{}
	n := notify.New(notify.Config{}, store, nil, zap.NewNop())

	require.True(t, n.Enqueue(notify.Rating("voter", "owner", "post-1", domain.VotePlusTwo)))
	assert.Empty(t, store.stored(), "nothing is written until Run")

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	require.Eventually(t, func() bool { return len(store.stored()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "owner", store.stored()[0].RecipientID)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestEnqueue_DropsWhenFull(t *testing.T) {
	t.Parallel()
	n := notify.New(notify.Config{Buffer: 1}, &memStore{}, nil, zap.NewNop())

	assert.Equal(t, 0, n.Pending())
	assert.True(t, n.Enqueue(notify.Rating("a", "b", "p1", domain.VotePlusOne)))
	assert.False(t, n.Enqueue(notify.Rating("a", "b", "p2", domain.VotePlusOne)))
	assert.Equal(t, 1, n.Pending())
}
