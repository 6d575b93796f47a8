package model

import "time"

// DefaultCategoryIcon is used when a category is saved without an icon.
const DefaultCategoryIcon = "📁"

// Category groups notes. UserID is nil for legacy rows owned by nobody.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	UserID    *int64    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
