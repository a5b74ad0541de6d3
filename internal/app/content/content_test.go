package content_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/app/content"
	"github.com/reelrank/reelrank/internal/domain"
	"github.com/reelrank/reelrank/internal/infra/sqlite"
)

type fakeTrigger struct {
	mu  sync.Mutex
	ids []string
}

func (f *fakeTrigger) Enqueue(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, id)
	return true
}

func (f *fakeTrigger) scheduled() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ids...)
}

func setup(t *testing.T) (*content.Service, *sqlite.DB, *fakeTrigger) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	trigger := &fakeTrigger{}
	return content.New(db, trigger, zap.NewNop()), db, trigger
}

func TestCreateUser(t *testing.T) {
	t.Parallel()
	svc, db, _ := setup(t)
	ctx := t.Context()

	u, err := svc.CreateUser(ctx, "  maya ")
	require.NoError(t, err)
	assert.Equal(t, "maya", u.Username)

	prof, err := db.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, prof.ReputationScore)

	_, err = svc.CreateUser(ctx, "maya")
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)
	_, err = svc.CreateUser(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidUsername)
}

func TestCreatePost_SchedulesOwner(t *testing.T) {
	t.Parallel()
	svc, _, trigger := setup(t)
	ctx := t.Context()

	u, err := svc.CreateUser(ctx, "maya")
	require.NoError(t, err)
	p, err := svc.CreatePost(ctx, u.ID, "clip", "")
	require.NoError(t, err)

	assert.Equal(t, domain.PostProcessing, p.Status)
	assert.Equal(t, []string{u.ID}, trigger.scheduled())

	_, err = svc.CreatePost(ctx, u.ID, "clip", "archived")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	_, err = svc.CreatePost(ctx, "ghost", "clip", domain.PostReady)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestSetPostStatus_RemovalReschedulesOwner(t *testing.T) {
	t.Parallel()
	svc, db, trigger := setup(t)
	ctx := t.Context()

	u, err := svc.CreateUser(ctx, "maya")
	require.NoError(t, err)
	p, err := svc.CreatePost(ctx, u.ID, "clip", domain.PostReady)
	require.NoError(t, err)

	got, err := svc.SetPostStatus(ctx, p.ID, domain.PostRemoved)
	require.NoError(t, err)
	assert.Equal(t, domain.PostRemoved, got.Status)
	assert.Equal(t, []string{u.ID, u.ID}, trigger.scheduled())

	agg, err := db.ReadAggregates(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, agg.WorkCount)

	_, err = svc.SetPostStatus(ctx, p.ID, "bogus")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	_, err = svc.SetPostStatus(ctx, "missing", domain.PostReady)
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
	assert.Len(t, trigger.scheduled(), 2)
}

func TestDeleteUser_ReschedulesVotedCreators(t *testing.T) {
	t.Parallel()
	svc, db, trigger := setup(t)
	ctx := t.Context()

	owner, err := svc.CreateUser(ctx, "owner")
	require.NoError(t, err)
	voter, err := svc.CreateUser(ctx, "voter")
	require.NoError(t, err)
	p, err := svc.CreatePost(ctx, owner.ID, "clip", domain.PostReady)
	require.NoError(t, err)
	_, err = db.CastVote(ctx, voter.ID, p.ID, domain.VotePlusTwo, p.CreatedAt)
	require.NoError(t, err)

	owners, err := svc.DeleteUser(ctx, voter.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{owner.ID}, owners)
	assert.Equal(t, []string{owner.ID, owner.ID}, trigger.scheduled())

	got, err := svc.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Counts.TotalScore)

	_, err = svc.GetUser(ctx, voter.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestNilTrigger(t *testing.T) {
	t.Parallel()
	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	svc := content.New(db, nil, nil)

	u, err := svc.CreateUser(t.Context(), "maya")
	require.NoError(t, err)
	_, err = svc.CreatePost(t.Context(), u.ID, "", domain.PostReady)
	require.NoError(t, err)
}
