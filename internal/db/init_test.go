package db_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/atinyakov/TodoKeeper/internal/db"
)

func TestInitPostgres_ErrorPaths(t *testing.T) {
	cases := []struct {
		name       string
		dsn        string
		wantSubstr string
	}{
		{"unreachable host", "postgres://u:p@127.0.0.1:1/x?sslmode=disable&connect_timeout=1", "ping postgres"},
		{"malformed DSN", "postgres://%zz", "postgres"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := db.InitPostgres(tc.dsn)
			if err == nil {
				t.Fatalf("InitPostgres(%q) did not return error", tc.dsn)
			}
			if !strings.Contains(err.Error(), tc.wantSubstr) {
				t.Errorf("InitPostgres(%q) error = %q; want substring %q", tc.dsn, err.Error(), tc.wantSubstr)
			}
		})
	}
}

func TestInitSQLite_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "users.db")

	conn, err := db.InitSQLite(path)
	if err != nil {
		t.Fatalf("InitSQLite: %v", err)
	}
	defer conn.Close()

	var n int
	if err := conn.Get(&n, `SELECT COUNT(*) FROM users`); err != nil {
		t.Fatalf("users table missing: %v", err)
	}
	if n != 0 {
		t.Errorf("fresh directory has %d users; want 0", n)
	}

	// Applying the schema twice is harmless.
	again, err := db.InitSQLite(path)
	if err != nil {
		t.Fatalf("second InitSQLite: %v", err)
	}
	_ = again.Close()
}

func TestInitSQLite_Unwritable(t *testing.T) {
	// A path below a regular file cannot be created.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	_, err := db.InitSQLite(filepath.Join(blocker, "users.db"))
	if err == nil {
		t.Fatal("InitSQLite below a regular file did not fail")
	}
	if !strings.Contains(err.Error(), "create data directory") {
		t.Errorf("error = %q; want substring %q", err.Error(), "create data directory")
	}
}
