package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/model"
	"github.com/sakif/notes/internal/repository"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// ownerOf is the user_id the fakes store on rows the caller creates.
func ownerOf(caller model.Caller) *int64 {
	if u, ok := caller.(model.RegularUser); ok {
		id := u.ID
		return &id
	}
	return nil
}

// visible reports whether a row owned by owner is in the caller's scope.
// The admin sees every row.
func visible(owner *int64, caller model.Caller) bool {
	if _, ok := caller.(model.AdminUser); ok {
		return true
	}
	return sameOwner(owner, ownerOf(caller))
}

func sameOwner(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// fakeUserRepo is an in-memory repository.UserRepository.
type fakeUserRepo struct {
	users  map[int64]*model.User
	nextID int64

	// set to a non-nil error to simulate a database failure
	createErr     error
	lookupErr     error
	lastLoginErr  error
	lastLoginHits int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*model.User), nextID: 1}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	user.ID = f.nextID
	f.nextID++
	user.CreatedAt = time.Now().UTC()
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) find(match func(*model.User) bool) (*model.User, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for _, u := range f.users {
		if match(u) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, &apperror.AppError{Err: apperror.ErrNotFound, Message: "user not found"}
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Username == username })
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Email == email })
}

func (f *fakeUserRepo) UpdateLastLogin(_ context.Context, id int64) error {
	f.lastLoginHits++
	if f.lastLoginErr != nil {
		return f.lastLoginErr
	}
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	now := time.Now().UTC()
	u.LastLogin = &now
	return nil
}

// fakeCategoryRepo is an in-memory repository.CategoryRepository.
type fakeCategoryRepo struct {
	categories map[int64]*model.Category
	nextID     int64
	err        error
}

var _ repository.CategoryRepository = (*fakeCategoryRepo)(nil)

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{categories: make(map[int64]*model.Category), nextID: 1}
}

func (f *fakeCategoryRepo) List(_ context.Context, caller model.Caller) ([]model.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []model.Category{}
	for id := int64(1); id < f.nextID; id++ {
		if c, ok := f.categories[id]; ok && visible(c.UserID, caller) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCategoryRepo) Get(_ context.Context, caller model.Caller, id int64) (*model.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.categories[id]
	if !ok || !visible(c.UserID, caller) {
		return nil, apperror.NotFound("category", id)
	}
	copied := *c
	return &copied, nil
}

func (f *fakeCategoryRepo) Create(_ context.Context, caller model.Caller, c *model.Category) error {
	if f.err != nil {
		return f.err
	}
	c.ID = f.nextID
	f.nextID++
	c.UserID = ownerOf(caller)
	c.CreatedAt = time.Now().UTC()
	copied := *c
	f.categories[c.ID] = &copied
	return nil
}

func (f *fakeCategoryRepo) Update(ctx context.Context, caller model.Caller, c *model.Category) error {
	existing, err := f.Get(ctx, caller, c.ID)
	if err != nil {
		return err
	}
	existing.Name, existing.Icon = c.Name, c.Icon
	f.categories[c.ID] = existing
	*c = *existing
	return nil
}

func (f *fakeCategoryRepo) Delete(ctx context.Context, caller model.Caller, id int64) error {
	if _, err := f.Get(ctx, caller, id); err != nil {
		return err
	}
	delete(f.categories, id)
	return nil
}

func (f *fakeCategoryRepo) DeleteAll(_ context.Context, caller model.Caller) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	var n int64
	for id, c := range f.categories {
		if sameOwner(c.UserID, ownerOf(caller)) {
			delete(f.categories, id)
			n++
		}
	}
	return n, nil
}

// fakeNoteRepo is an in-memory repository.NoteRepository.
type fakeNoteRepo struct {
	notes    map[int64]*model.Note
	nextID   int64
	lastOpts repository.ListOptions
	err      error
}

var _ repository.NoteRepository = (*fakeNoteRepo)(nil)

func newFakeNoteRepo() *fakeNoteRepo {
	return &fakeNoteRepo{notes: make(map[int64]*model.Note), nextID: 1}
}

func matches(n *model.Note, caller model.Caller, filter model.CategoryFilter) bool {
	if !visible(n.UserID, caller) {
		return false
	}
	switch filter.Kind {
	case model.FilterUncategorized:
		return n.CategoryID == nil
	case model.FilterCategory:
		return n.CategoryID != nil && *n.CategoryID == filter.CategoryID
	default:
		return true
	}
}

func (f *fakeNoteRepo) List(_ context.Context, caller model.Caller, opts repository.ListOptions) ([]model.Note, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastOpts = opts
	out := []model.Note{}
	for id := int64(1); id < f.nextID; id++ {
		if n, ok := f.notes[id]; ok && matches(n, caller, opts.Filter) {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (f *fakeNoteRepo) Get(_ context.Context, caller model.Caller, id int64) (*model.Note, error) {
	if f.err != nil {
		return nil, f.err
	}
	n, ok := f.notes[id]
	if !ok || !visible(n.UserID, caller) {
		return nil, apperror.NotFound("note", id)
	}
	copied := *n
	return &copied, nil
}

func (f *fakeNoteRepo) Create(_ context.Context, caller model.Caller, n *model.Note) error {
	if f.err != nil {
		return f.err
	}
	now := time.Now().UTC()
	n.ID = f.nextID
	f.nextID++
	n.UserID = ownerOf(caller)
	n.CreatedAt, n.UpdatedAt = now, now
	copied := *n
	f.notes[n.ID] = &copied
	return nil
}

func (f *fakeNoteRepo) Update(ctx context.Context, caller model.Caller, n *model.Note) error {
	existing, err := f.Get(ctx, caller, n.ID)
	if err != nil {
		return err
	}
	existing.Content, existing.CategoryID = n.Content, n.CategoryID
	existing.UpdatedAt = time.Now().UTC()
	f.notes[n.ID] = existing
	*n = *existing
	return nil
}

func (f *fakeNoteRepo) Delete(ctx context.Context, caller model.Caller, id int64) error {
	if _, err := f.Get(ctx, caller, id); err != nil {
		return err
	}
	delete(f.notes, id)
	return nil
}

func (f *fakeNoteRepo) DeleteByFilter(_ context.Context, caller model.Caller, filter model.CategoryFilter) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	var n int64
	for id, note := range f.notes {
		if matches(note, caller, filter) {
			delete(f.notes, id)
			n++
		}
	}
	return n, nil
}

var errDatabase = errors.New("database is locked")
