package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/model"
)

// countingRepo is an in-memory UserRepository that records GetByID calls.
// When afterRead is set, GetByID calls it after reading the row and before
// returning it.
type countingRepo struct {
	users     map[int64]*model.User
	getCalls  int
	afterRead func()
}

func (r *countingRepo) Create(_ context.Context, u *model.User) error {
	u.ID = int64(len(r.users) + 1)
	r.users[u.ID] = u
	return nil
}

func (r *countingRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	r.getCalls++
	u, ok := r.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	cp := *u
	if r.afterRead != nil {
		r.afterRead()
	}
	return &cp, nil
}

func (r *countingRepo) GetByUsername(context.Context, string) (*model.User, error) {
	return nil, apperror.NotFound("user", 0)
}

func (r *countingRepo) GetByEmail(context.Context, string) (*model.User, error) {
	return nil, apperror.NotFound("user", 0)
}

func (r *countingRepo) UpdateLastLogin(_ context.Context, id int64) error {
	u, ok := r.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	now := time.Now()
	u.LastLogin = &now
	return nil
}

func newRepo() *countingRepo {
	return &countingRepo{users: map[int64]*model.User{
		1: {ID: 1, Username: "alice", Email: "alice@example.com"},
	}}
}

func TestGetByID_CachesHits(t *testing.T) {
	inner := newRepo()
	repo := NewUserRepository(inner, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		u, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "alice", u.Username)
	}
	assert.Equal(t, 1, inner.getCalls)
}

func TestGetByID_ReturnsCopies(t *testing.T) {
	repo := NewUserRepository(newRepo(), time.Minute)
	ctx := context.Background()

	first, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	first.Username = "mutated"

	second, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", second.Username)
}

func TestGetByID_DoesNotCacheErrors(t *testing.T) {
	inner := newRepo()
	repo := NewUserRepository(inner, time.Minute)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, 2)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	inner.users[2] = &model.User{ID: 2, Username: "bob"}

	u, err := repo.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)
	assert.Equal(t, 2, inner.getCalls)
}

func TestUpdateLastLogin_Invalidates(t *testing.T) {
	inner := newRepo()
	repo := NewUserRepository(inner, time.Minute)
	ctx := context.Background()

	before, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, before.LastLogin)

	require.NoError(t, repo.UpdateLastLogin(ctx, 1))

	after, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, after.LastLogin)
	assert.Equal(t, 2, inner.getCalls)
}

func TestUpdateLastLogin_ConcurrentReadDoesNotRecacheStaleRow(t *testing.T) {
	inner := newRepo()
	repo := NewUserRepository(inner, time.Minute)
	ctx := context.Background()

	// The login's write lands after the reader fetched the old row but
	// before the reader stores it.
	inner.afterRead = func() {
		inner.afterRead = nil
		require.NoError(t, repo.UpdateLastLogin(ctx, 1))
	}

	stale, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, stale.LastLogin, "the overlapping read returns what it saw")

	fresh, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, fresh.LastLogin, "the stale row must not have been cached")
	assert.Equal(t, 2, inner.getCalls)
}
