package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/model"
	"github.com/sakif/notes/internal/repository"
)

// CategoryService applies the category rules on top of the repository.
// Ownership scoping itself happens in the repository.
type CategoryService struct {
	repo   repository.CategoryRepository
	logger *slog.Logger
}

func NewCategoryService(repo repository.CategoryRepository, logger *slog.Logger) *CategoryService {
	return &CategoryService{repo: repo, logger: logger}
}

func (s *CategoryService) List(ctx context.Context, caller model.Caller) ([]model.Category, error) {
	categories, err := s.repo.List(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("service/category: listing: %w", err)
	}
	return categories, nil
}

// Create adds a category for the caller. Name is required after trimming;
// a blank icon becomes model.DefaultCategoryIcon.
func (s *CategoryService) Create(ctx context.Context, caller model.Caller, name, icon string) (*model.Category, error) {
	category, err := newCategory(name, icon)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, caller, category); err != nil {
		return nil, fmt.Errorf("service/category: creating: %w", err)
	}

	s.logger.Info("category created",
		slog.Int64("categoryID", category.ID),
		slog.String("caller", caller.Name()),
	)
	return category, nil
}

// Update renames the category and replaces its icon.
func (s *CategoryService) Update(ctx context.Context, caller model.Caller, id int64, name, icon string) (*model.Category, error) {
	category, err := newCategory(name, icon)
	if err != nil {
		return nil, err
	}
	category.ID = id

	if err := s.repo.Update(ctx, caller, category); err != nil {
		return nil, fmt.Errorf("service/category: updating %d: %w", id, err)
	}

	s.logger.Info("category updated", slog.Int64("categoryID", id))
	return category, nil
}

// Delete removes the category; its notes become uncategorized.
func (s *CategoryService) Delete(ctx context.Context, caller model.Caller, id int64) error {
	if err := s.repo.Delete(ctx, caller, id); err != nil {
		return fmt.Errorf("service/category: deleting %d: %w", id, err)
	}
	s.logger.Info("category deleted", slog.Int64("categoryID", id))
	return nil
}

// DeleteAll removes all of the caller's categories and returns the count.
func (s *CategoryService) DeleteAll(ctx context.Context, caller model.Caller) (int64, error) {
	n, err := s.repo.DeleteAll(ctx, caller)
	if err != nil {
		return 0, fmt.Errorf("service/category: deleting all: %w", err)
	}
	s.logger.Info("all categories deleted",
		slog.Int64("count", n),
		slog.String("caller", caller.Name()),
	)
	return n, nil
}

func newCategory(name, icon string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "Category name is required")
	}

	icon = strings.TrimSpace(icon)
	if icon == "" {
		icon = model.DefaultCategoryIcon
	}
	return &model.Category{Name: name, Icon: icon}, nil
}
