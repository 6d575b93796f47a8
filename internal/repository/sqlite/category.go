package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/model"
	"github.com/sakif/notes/internal/repository"
)

var _ repository.CategoryRepository = (*CategoryStore)(nil)

// CategoryStore reads and writes the categories table, always within the
// caller's ownership scope.
type CategoryStore struct {
	conn *sql.DB
}

func (s *CategoryStore) List(ctx context.Context, caller model.Caller) ([]model.Category, error) {
	scope, args := ownerScope(caller)

	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, name, icon, user_id, created_at
		 FROM categories
		 WHERE `+scope+`
		 ORDER BY id ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning category: %w", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating categories: %w", err)
	}
	return categories, nil
}

func (s *CategoryStore) Get(ctx context.Context, caller model.Caller, id int64) (*model.Category, error) {
	scope, args := ownerScope(caller)

	row := s.conn.QueryRowContext(ctx,
		`SELECT id, name, icon, user_id, created_at
		 FROM categories
		 WHERE id = ? AND `+scope,
		append([]any{id}, args...)...,
	)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("category", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting category %d: %w", id, err)
	}
	return c, nil
}

// Create inserts the category owned by the caller. The admin identity
// inserts ownerless rows.
func (s *CategoryStore) Create(ctx context.Context, caller model.Caller, category *model.Category) error {
	category.UserID = ownerValue(caller)
	category.CreatedAt = time.Now().UTC()

	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO categories (name, icon, user_id, created_at) VALUES (?, ?, ?, ?)`,
		category.Name,
		category.Icon,
		category.UserID,
		category.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating category: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new category id: %w", err)
	}
	category.ID = id
	return nil
}

// Update changes name and icon in place and reloads the stored row into
// category. Zero rows affected means the category is absent or not the
// caller's.
func (s *CategoryStore) Update(ctx context.Context, caller model.Caller, category *model.Category) error {
	scope, args := ownerScope(caller)

	res, err := s.conn.ExecContext(ctx,
		`UPDATE categories SET name = ?, icon = ? WHERE id = ? AND `+scope,
		append([]any{category.Name, category.Icon, category.ID}, args...)...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating category %d: %w", category.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("category", category.ID)
	}

	stored, err := s.Get(ctx, caller, category.ID)
	if err != nil {
		return err
	}
	*category = *stored
	return nil
}

// Delete removes one category. Its notes are moved to uncategorized first,
// in the same transaction, so no note is left pointing at a missing row.
func (s *CategoryStore) Delete(ctx context.Context, caller model.Caller, id int64) error {
	scope, args := ownerScope(caller)

	return withTx(ctx, s.conn, func(tx *sql.Tx) error {
		var found int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM categories WHERE id = ? AND `+scope,
			append([]any{id}, args...)...,
		).Scan(&found)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("category", id)
		}
		if err != nil {
			return fmt.Errorf("sqlite: checking category %d: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE notes SET category_id = NULL WHERE category_id = ? AND `+scope,
			append([]any{id}, args...)...,
		); err != nil {
			return fmt.Errorf("sqlite: uncategorizing notes of category %d: %w", id, err)
		}

		// Notes outside the caller's scope can still reference the row
		// (e.g. legacy data); they lose the reference too.
		if _, err := tx.ExecContext(ctx,
			`UPDATE notes SET category_id = NULL WHERE category_id = ?`, id,
		); err != nil {
			return fmt.Errorf("sqlite: uncategorizing foreign notes of category %d: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM categories WHERE id = ? AND `+scope,
			append([]any{id}, args...)...,
		); err != nil {
			return fmt.Errorf("sqlite: deleting category %d: %w", id, err)
		}
		return nil
	})
}

// DeleteAll removes every category in scope and returns how many went away.
// All notes in scope become uncategorized. For the admin the scope is the
// ownerless pool.
func (s *CategoryStore) DeleteAll(ctx context.Context, caller model.Caller) (int64, error) {
	scope, args := poolScope(caller)

	var deleted int64
	err := withTx(ctx, s.conn, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE notes SET category_id = NULL WHERE `+scope,
			args...,
		); err != nil {
			return fmt.Errorf("sqlite: uncategorizing notes: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE notes SET category_id = NULL
			 WHERE category_id IN (SELECT id FROM categories WHERE `+scope+`)`,
			args...,
		); err != nil {
			return fmt.Errorf("sqlite: uncategorizing foreign notes: %w", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE `+scope, args...)
		if err != nil {
			return fmt.Errorf("sqlite: deleting categories: %w", err)
		}
		deleted, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(r rowScanner) (*model.Category, error) {
	var (
		c      model.Category
		userID sql.NullInt64
	)
	if err := r.Scan(&c.ID, &c.Name, &c.Icon, &userID, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.UserID = nullableInt64(userID)
	return &c, nil
}
