// Package cache wraps repositories with in-process read-through caches.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/sakif/notes/internal/model"
	"github.com/sakif/notes/internal/repository"
)

var _ repository.UserRepository = (*UserRepository)(nil)

// UserRepository caches GetByID results for ttl. Lookups by username or
// email always go to the underlying store since they back login and
// registration, where stale data is not acceptable.
//
// Writes bump a generation counter before and after they run. A GetByID
// whose read overlapped a write sees a different generation and returns
// the row without caching it, so a row read before the write can never be
// put back into the cache afterwards.
type UserRepository struct {
	next  repository.UserRepository
	cache *gocache.Cache

	mu         sync.Mutex
	generation uint64
}

// NewUserRepository decorates next with a cache whose entries live for ttl.
func NewUserRepository(next repository.UserRepository, ttl time.Duration) *UserRepository {
	return &UserRepository{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func key(id int64) string {
	return "user:" + strconv.FormatInt(id, 10)
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.next.Create(ctx, user)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if v, ok := r.cache.Get(key(id)); ok {
		u := *v.(*model.User)
		return &u, nil
	}

	r.mu.Lock()
	gen := r.generation
	r.mu.Unlock()

	user, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	stored := *user
	r.mu.Lock()
	if r.generation == gen {
		r.cache.SetDefault(key(id), &stored)
	}
	r.mu.Unlock()
	return user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.next.GetByUsername(ctx, username)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.next.GetByEmail(ctx, email)
}

// UpdateLastLogin writes through and drops the cached entry so the next
// GetByID sees the new timestamp.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64) error {
	r.invalidate(id)
	err := r.next.UpdateLastLogin(ctx, id)
	r.invalidate(id)
	return err
}

func (r *UserRepository) invalidate(id int64) {
	r.mu.Lock()
	r.generation++
	r.cache.Delete(key(id))
	r.mu.Unlock()
}
