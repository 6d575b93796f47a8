package service

import (
	"strconv"
	"strings"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/model"
)

// ParseCategoryFilter reads the {all | uncategorized | <id>} path segment.
func ParseCategoryFilter(raw string) (model.CategoryFilter, error) {
	switch raw {
	case "all":
		return model.AllNotes, nil
	case "uncategorized":
		return model.CategoryFilter{Kind: model.FilterUncategorized}, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return model.CategoryFilter{}, apperror.ValidationFailed("id",
			`Category must be "all", "uncategorized" or a numeric id`)
	}
	return model.CategoryFilter{Kind: model.FilterCategory, CategoryID: id}, nil
}

// ParseSortOrder reads the ?sort= query value. Anything other than "asc"
// or "oldest" means newest first.
func ParseSortOrder(raw string) model.SortOrder {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "asc", "oldest":
		return model.OldestFirst
	default:
		return model.NewestFirst
	}
}
