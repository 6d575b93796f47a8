// Package repository defines the storage contracts the service layer depends on.
//
// Every category and note method takes a model.Caller. Implementations must
// confine reads and writes to that caller's rows: a regular user sees only
// rows carrying their user_id, the admin identity sees every row.
// CategoryRepository.DeleteAll is the exception: for the admin it removes
// only ownerless categories.
// A row outside the scope behaves exactly like a row that does not exist.
package repository

import (
	"context"

	"github.com/sakif/notes/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateLastLogin(ctx context.Context, id int64) error
}

type CategoryRepository interface {
	List(ctx context.Context, caller model.Caller) ([]model.Category, error)
	Get(ctx context.Context, caller model.Caller, id int64) (*model.Category, error)
	Create(ctx context.Context, caller model.Caller, category *model.Category) error
	Update(ctx context.Context, caller model.Caller, category *model.Category) error
	// Delete uncategorizes the category's notes and removes the category
	// in one transaction.
	Delete(ctx context.Context, caller model.Caller, id int64) error
	// DeleteAll removes every category in scope after uncategorizing
	// their notes, and reports how many categories went away.
	DeleteAll(ctx context.Context, caller model.Caller) (int64, error)
}

// ListOptions narrows and orders a note listing.
type ListOptions struct {
	Filter model.CategoryFilter
	Order  model.SortOrder
}

type NoteRepository interface {
	List(ctx context.Context, caller model.Caller, opts ListOptions) ([]model.Note, error)
	Get(ctx context.Context, caller model.Caller, id int64) (*model.Note, error)
	Create(ctx context.Context, caller model.Caller, note *model.Note) error
	Update(ctx context.Context, caller model.Caller, note *model.Note) error
	Delete(ctx context.Context, caller model.Caller, id int64) error
	// DeleteByFilter removes every note in scope matching the filter and
	// returns the number removed.
	DeleteByFilter(ctx context.Context, caller model.Caller, filter model.CategoryFilter) (int64, error)
}
