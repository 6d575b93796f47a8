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

var _ repository.NoteRepository = (*NoteStore)(nil)

// NoteStore reads and writes the notes table, always within the caller's
// ownership scope.
type NoteStore struct {
	conn *sql.DB
}

const noteColumns = `id, content, category_id, user_id, created_at, updated_at`

// List returns the caller's notes matching the filter, ordered on
// updated_at. Ties are broken on id in the same direction so the order is
// stable.
func (s *NoteStore) List(ctx context.Context, caller model.Caller, opts repository.ListOptions) ([]model.Note, error) {
	where, args := noteWhere(caller, opts.Filter)

	order := "DESC"
	if opts.Order == model.OldestFirst {
		order = "ASC"
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+noteColumns+`
		 FROM notes
		 WHERE `+where+`
		 ORDER BY updated_at `+order+`, id `+order,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing notes: %w", err)
	}
	defer rows.Close()

	notes := []model.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning note: %w", err)
		}
		notes = append(notes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating notes: %w", err)
	}
	return notes, nil
}

func (s *NoteStore) Get(ctx context.Context, caller model.Caller, id int64) (*model.Note, error) {
	scope, args := ownerScope(caller)

	n, err := scanNote(s.conn.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = ? AND `+scope,
		append([]any{id}, args...)...,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("note", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting note %d: %w", id, err)
	}
	return n, nil
}

func (s *NoteStore) Create(ctx context.Context, caller model.Caller, note *model.Note) error {
	now := time.Now().UTC()
	note.UserID = ownerValue(caller)
	note.CreatedAt = now
	note.UpdatedAt = now

	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO notes (content, category_id, user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		note.Content,
		note.CategoryID,
		note.UserID,
		note.CreatedAt,
		note.UpdatedAt,
	)
	if err != nil {
		if err := mapForeignKey(err); errors.Is(err, apperror.ErrValidation) {
			return err
		}
		return fmt.Errorf("sqlite: creating note: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new note id: %w", err)
	}
	note.ID = id
	return nil
}

// Update replaces content and category and refreshes updated_at. The stored
// row is reloaded into note on success.
func (s *NoteStore) Update(ctx context.Context, caller model.Caller, note *model.Note) error {
	scope, args := ownerScope(caller)

	res, err := s.conn.ExecContext(ctx,
		`UPDATE notes SET content = ?, category_id = ?, updated_at = ?
		 WHERE id = ? AND `+scope,
		append([]any{note.Content, note.CategoryID, time.Now().UTC(), note.ID}, args...)...,
	)
	if err != nil {
		if err := mapForeignKey(err); errors.Is(err, apperror.ErrValidation) {
			return err
		}
		return fmt.Errorf("sqlite: updating note %d: %w", note.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("note", note.ID)
	}

	stored, err := s.Get(ctx, caller, note.ID)
	if err != nil {
		return err
	}
	*note = *stored
	return nil
}

func (s *NoteStore) Delete(ctx context.Context, caller model.Caller, id int64) error {
	scope, args := ownerScope(caller)

	res, err := s.conn.ExecContext(ctx,
		`DELETE FROM notes WHERE id = ? AND `+scope,
		append([]any{id}, args...)...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting note %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("note", id)
	}
	return nil
}

// DeleteByFilter removes every note in scope matching the filter. It is a
// single statement, so it needs no explicit transaction.
func (s *NoteStore) DeleteByFilter(ctx context.Context, caller model.Caller, filter model.CategoryFilter) (int64, error) {
	where, args := noteWhere(caller, filter)

	res, err := s.conn.ExecContext(ctx, `DELETE FROM notes WHERE `+where, args...)
	if err != nil {
		return 0, fmt.Errorf("sqlite: bulk deleting notes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}

// noteWhere combines the ownership scope with the category filter.
func noteWhere(caller model.Caller, filter model.CategoryFilter) (string, []any) {
	where, args := ownerScope(caller)

	switch filter.Kind {
	case model.FilterUncategorized:
		where += " AND category_id IS NULL"
	case model.FilterCategory:
		where += " AND category_id = ?"
		args = append(args, filter.CategoryID)
	}
	return where, args
}

func scanNote(r rowScanner) (*model.Note, error) {
	var (
		n          model.Note
		categoryID sql.NullInt64
		userID     sql.NullInt64
	)
	if err := r.Scan(&n.ID, &n.Content, &categoryID, &userID, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	n.CategoryID = nullableInt64(categoryID)
	n.UserID = nullableInt64(userID)
	return &n, nil
}
