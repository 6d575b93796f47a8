package model

import (
	"strconv"
	"time"
)

// Note is a single rich-text note. Content is stored as an opaque string;
// the server never parses the editor markup inside it.
type Note struct {
	ID         int64     `json:"id"`
	Content    string    `json:"content"`
	CategoryID *int64    `json:"category_id"` // nil means uncategorized
	UserID     *int64    `json:"user_id"`     // nil for legacy ownerless notes
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FilterKind selects which notes a category filter matches.
type FilterKind int

const (
	FilterAll           FilterKind = iota // every note in scope
	FilterUncategorized                   // notes with no category
	FilterCategory                        // notes in one category
)

// CategoryFilter is the parsed form of the {all | uncategorized | <id>} path segment.
type CategoryFilter struct {
	Kind       FilterKind
	CategoryID int64 // only meaningful for FilterCategory
}

// String renders the filter the way it appears in request paths.
func (f CategoryFilter) String() string {
	switch f.Kind {
	case FilterUncategorized:
		return "uncategorized"
	case FilterCategory:
		return strconv.FormatInt(f.CategoryID, 10)
	default:
		return "all"
	}
}

// AllNotes is the filter matching every note in the caller's scope.
var AllNotes = CategoryFilter{Kind: FilterAll}

// SortOrder is the direction notes are listed in, keyed on updated_at.
type SortOrder int

const (
	NewestFirst SortOrder = iota
	OldestFirst
)
