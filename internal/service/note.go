package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/model"
	"github.com/sakif/notes/internal/repository"
)

// NoteService applies the note rules on top of the repositories.
type NoteService struct {
	notes      repository.NoteRepository
	categories repository.CategoryRepository
	logger     *slog.Logger
}

func NewNoteService(notes repository.NoteRepository, categories repository.CategoryRepository, logger *slog.Logger) *NoteService {
	return &NoteService{notes: notes, categories: categories, logger: logger}
}

func (s *NoteService) List(ctx context.Context, caller model.Caller, filter model.CategoryFilter, order model.SortOrder) ([]model.Note, error) {
	notes, err := s.notes.List(ctx, caller, repository.ListOptions{Filter: filter, Order: order})
	if err != nil {
		return nil, fmt.Errorf("service/note: listing: %w", err)
	}
	return notes, nil
}

func (s *NoteService) Get(ctx context.Context, caller model.Caller, id int64) (*model.Note, error) {
	note, err := s.notes.Get(ctx, caller, id)
	if err != nil {
		return nil, fmt.Errorf("service/note: getting %d: %w", id, err)
	}
	return note, nil
}

// Create stores a note. Content is kept verbatim; categoryID may be nil.
func (s *NoteService) Create(ctx context.Context, caller model.Caller, content string, categoryID *int64) (*model.Note, error) {
	if err := s.checkCategory(ctx, caller, categoryID); err != nil {
		return nil, err
	}

	note := &model.Note{Content: content, CategoryID: categoryID}
	if err := s.notes.Create(ctx, caller, note); err != nil {
		return nil, fmt.Errorf("service/note: creating: %w", err)
	}

	s.logger.Info("note created",
		slog.Int64("noteID", note.ID),
		slog.String("caller", caller.Name()),
	)
	return note, nil
}

// Update replaces the note's content and category. Passing a nil
// categoryID moves the note to uncategorized.
func (s *NoteService) Update(ctx context.Context, caller model.Caller, id int64, content string, categoryID *int64) (*model.Note, error) {
	if err := s.checkCategory(ctx, caller, categoryID); err != nil {
		return nil, err
	}

	note := &model.Note{ID: id, Content: content, CategoryID: categoryID}
	if err := s.notes.Update(ctx, caller, note); err != nil {
		return nil, fmt.Errorf("service/note: updating %d: %w", id, err)
	}

	s.logger.Debug("note updated", slog.Int64("noteID", id))
	return note, nil
}

func (s *NoteService) Delete(ctx context.Context, caller model.Caller, id int64) error {
	if err := s.notes.Delete(ctx, caller, id); err != nil {
		return fmt.Errorf("service/note: deleting %d: %w", id, err)
	}
	s.logger.Info("note deleted", slog.Int64("noteID", id))
	return nil
}

// DeleteByFilter bulk-deletes the caller's notes matching filter.
func (s *NoteService) DeleteByFilter(ctx context.Context, caller model.Caller, filter model.CategoryFilter) (int64, error) {
	n, err := s.notes.DeleteByFilter(ctx, caller, filter)
	if err != nil {
		return 0, fmt.Errorf("service/note: bulk deleting: %w", err)
	}
	s.logger.Info("notes bulk deleted",
		slog.Int64("count", n),
		slog.String("filter", filter.String()),
		slog.String("caller", caller.Name()),
	)
	return n, nil
}

// checkCategory requires a non-nil categoryID to name one of the caller's
// own categories. Another user's category is treated as nonexistent.
func (s *NoteService) checkCategory(ctx context.Context, caller model.Caller, categoryID *int64) error {
	if categoryID == nil {
		return nil
	}
	if _, err := s.categories.Get(ctx, caller, *categoryID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.ValidationFailed("category_id", "Category does not exist")
		}
		return fmt.Errorf("service/note: checking category %d: %w", *categoryID, err)
	}
	return nil
}
