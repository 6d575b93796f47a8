// Package sqlite implements the repository interfaces on top of SQLite.
//
// The driver is modernc.org/sqlite, a pure Go translation of SQLite, so the
// binary builds without a C toolchain. The schema lives in embedded goose
// migrations under migrations/ and is applied on every New.
//
// OWNERSHIP:
// Every category and note query is filtered through ownerScope. A regular
// user matches `user_id = ?`; the admin identity is not filtered by owner.
// Only CategoryStore.DeleteAll narrows the admin to ownerless rows (poolScope).
// A row outside the caller's scope is reported as not found, never as forbidden.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pressly/goose/v3"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

const memoryPath = ":memory:"

// DB wraps the sql.DB connection pool and hands out the per-table stores.
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

// New opens (or creates) the database at dbPath and migrates it to the latest
// schema. Use ":memory:" for a throwaway database in tests.
func New(dbPath string, logger *slog.Logger) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Each connection to ":memory:" gets its own empty database, so the
	// pool must never open a second one.
	if dbPath == memoryPath {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn, logger: logger}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// dsn appends the connection pragmas. They are set through the DSN rather
// than with PRAGMA statements so every pooled connection gets them.
func dsn(dbPath string) string {
	params := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_time_format=sqlite",
	}
	if dbPath != memoryPath {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	return dbPath + "?" + strings.Join(params, "&")
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Users returns the users table store.
func (db *DB) Users() *UserStore { return &UserStore{conn: db.conn} }

// Categories returns the categories table store.
func (db *DB) Categories() *CategoryStore { return &CategoryStore{conn: db.conn} }

// Notes returns the notes table store.
func (db *DB) Notes() *NoteStore { return &NoteStore{conn: db.conn} }

func (db *DB) migrate() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{logger: db.logger})
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	return goose.Up(db.conn, "migrations")
}

// gooseLogger routes goose's printf-style output into slog at debug level.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	if l.logger != nil {
		l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "goose"))
	}
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	if l.logger != nil {
		l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "goose"))
	}
}

// ownerScope returns the WHERE fragment and arguments restricting a query on
// categories or notes to the caller's rows.
func ownerScope(caller model.Caller) (string, []any) {
	switch c := caller.(type) {
	case model.RegularUser:
		return "user_id = ?", []any{c.ID}
	case model.AdminUser:
		return "1 = 1", nil
	default:
		// Unknown callers match nothing.
		return "0 = 1", nil
	}
}

// poolScope is ownerScope for bulk category removal: the admin only clears
// the ownerless pool, never registered users' categories.
func poolScope(caller model.Caller) (string, []any) {
	if _, ok := caller.(model.AdminUser); ok {
		return "user_id IS NULL", nil
	}
	return ownerScope(caller)
}

// ownerValue is the user_id stored on rows the caller inserts.
func ownerValue(caller model.Caller) *int64 {
	if u, ok := caller.(model.RegularUser); ok {
		id := u.ID
		return &id
	}
	return nil
}

// withTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise, including on panic.
func withTx(ctx context.Context, conn *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func isConstraint(err error, code int) bool {
	var se *sqlitedrv.Error
	return errors.As(err, &se) && se.Code() == code
}

func isUniqueViolation(err error) bool {
	return isConstraint(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE)
}

// mapForeignKey turns a foreign key failure on notes.category_id into a
// validation error. Other errors pass through unchanged.
func mapForeignKey(err error) error {
	if isConstraint(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY) {
		return apperror.ValidationFailed("category_id", "category does not exist")
	}
	return err
}

// nullableInt64 converts a nullable column into the pointer form used by the model.
func nullableInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
