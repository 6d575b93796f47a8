package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/model"
	"github.com/sakif/notes/internal/repository"
)

// compile-time check that *UserStore implements repository.UserRepository
var _ repository.UserRepository = (*UserStore)(nil)

// UserStore reads and writes the users table.
type UserStore struct {
	conn *sql.DB
}

const userColumns = `id, username, email, password_hash, created_at, last_login`

// Create inserts a new user and fills in the generated ID and CreatedAt.
//
// A duplicate username or email surfaces as apperror.ErrConflict. The service
// checks for both up front; this catches the race between two registrations.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	user.CreatedAt = time.Now().UTC()

	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, created_at)
		 VALUES (?, ?, ?, ?)`,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return uniqueUserConflict(err)
		}
		return fmt.Errorf("sqlite: creating user %q: %w", user.Username, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}
	user.ID = id
	return nil
}

// uniqueUserConflict works out which column the UNIQUE failure was on.
// SQLite names it in the message: "UNIQUE constraint failed: users.email".
func uniqueUserConflict(err error) error {
	if strings.Contains(err.Error(), "users.email") {
		return apperror.Conflict("email", "Email already registered")
	}
	return apperror.Conflict("username", "Username already taken")
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.getOne(ctx, `WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}
	return u, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := s.getOne(ctx, `WHERE username = ?`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &apperror.AppError{Err: apperror.ErrNotFound, Message: "user not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user %q: %w", username, err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := s.getOne(ctx, `WHERE email = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &apperror.AppError{Err: apperror.ErrNotFound, Message: "user not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// UpdateLastLogin stamps the current time on the user's last_login.
func (s *UserStore) UpdateLastLogin(ctx context.Context, id int64) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE users SET last_login = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating last login for user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

func (s *UserStore) getOne(ctx context.Context, where string, arg any) (*model.User, error) {
	var (
		u         model.User
		lastLogin sql.NullTime
	)
	err := s.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users `+where, arg,
	).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.CreatedAt,
		&lastLogin,
	)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}
