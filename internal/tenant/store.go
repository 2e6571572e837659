package tenant

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atinyakov/TodoKeeper/internal/common"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// Store is an open handle to exactly one tenant's SQLite file. It is safe
// for concurrent use: the pool holds a single connection, so statements
// against one tenant are executed one at a time by the engine.
type Store struct {
	// TenantID is the owner of the store.
	TenantID int64
	// Path is the location of the database file.
	Path string

	db *sqlx.DB
}

// DB returns the database handle of the store.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PathFor returns the store file of a tenant inside dir. Distinct ids map
// to distinct file names.
func PathFor(dir string, tenantID int64) string {
	return filepath.Join(dir, fmt.Sprintf("user_%d.db", tenantID))
}

// opener creates and prepares the store of one tenant.
type opener func(ctx context.Context, tenantID int64, path string) (*Store, error)

// openSQLite creates the parent directory, opens (or creates) the file and
// applies the schema. Every failure wraps common.ErrStorageUnavailable.
func openSQLite(ctx context.Context, tenantID int64, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create store directory: %w", common.ErrStorageUnavailable, err)
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite3: %w", common.ErrStorageUnavailable, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping sqlite3: %w", common.ErrStorageUnavailable, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: apply schema: %w", common.ErrStorageUnavailable, err)
	}

	return &Store{TenantID: tenantID, Path: path, db: db}, nil
}
