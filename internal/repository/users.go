// Package repository provides persistence implementations for the user
// directory and the per-tenant task stores.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/TodoKeeper/internal/common"
	"github.com/atinyakov/TodoKeeper/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Queries are written with '?' placeholders and rebound for the driver.
const (
	insertUserQuery       = `INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?) RETURNING id`
	selectUserByNameQuery = `SELECT id, username, password_hash, created_at FROM users WHERE username = ?`
)

// UserRepository stores accounts in the global user directory, backed by
// SQLite or PostgreSQL.
type UserRepository struct {
	// DB is the database handle for executing queries.
	DB *sqlx.DB
}

// NewUserRepository creates a new UserRepository with the given database connection.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// Create inserts a user and returns the stored record. A taken username
// yields common.ErrConflict.
func (r *UserRepository) Create(ctx context.Context, username, passwordHash string) (*models.User, error) {
	// PostgreSQL keeps microseconds; truncating keeps the returned value
	// equal to the stored one on both backends.
	u := models.User{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
	err := r.DB.GetContext(ctx, &u.ID, r.DB.Rebind(insertUserQuery), username, passwordHash, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user %q: %w", username, common.ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

// FindByUsername looks a user up by exact, case-sensitive username.
// An unknown username yields common.ErrNotFound.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := r.DB.GetContext(ctx, &u, r.DB.Rebind(selectUserByNameQuery), username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", username, common.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
