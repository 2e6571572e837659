package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestParse_Defaults(t *testing.T) {
	opts, err := parse([]string{"-c", ""}, env(nil))
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", opts.Address)
	assert.Equal(t, "data", opts.DataDir)
	assert.Equal(t, 7*24*time.Hour, time.Duration(opts.TokenTTL))
	assert.Equal(t, filepath.Join("data", "users.db"), opts.UsersDBPath())
	assert.Equal(t, filepath.Join("data", "todos"), opts.TodosDir())
	assert.Empty(t, opts.JWTSecret)
}

func TestParse_FileThenFlagsThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{"address":":9000","data_dir":"/srv/todos","log_level":"debug","token_ttl":"1h","jwt_secret":"file"}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	opts, err := parse(
		[]string{"-c", path, "--log-level", "warn"},
		env(map[string]string{"JWT_SECRET": "env", "COOKIE_SECURE": "true"}),
	)
	require.NoError(t, err)

	assert.Equal(t, ":9000", opts.Address)
	assert.Equal(t, "/srv/todos", opts.DataDir)
	assert.Equal(t, "warn", opts.LogLevel)
	assert.Equal(t, time.Hour, time.Duration(opts.TokenTTL))
	assert.Equal(t, "env", opts.JWTSecret)
	assert.True(t, opts.SecureCookie)
}

func TestParse_ConfigFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alt.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"database_dsn":"postgres://x"}`), 0o600))

	opts, err := parse(nil, env(map[string]string{"CONFIG": path, "SERVER_ADDRESS": ":7000"}))
	require.NoError(t, err)
	assert.Equal(t, "postgres://x", opts.DatabaseDSN)
	assert.Equal(t, ":7000", opts.Address)
}

func TestParse_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"token_ttl": 5}`), 0o600))

	cases := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{"unknown flag", []string{"--nope"}, nil},
		{"bad duration in file", []string{"-c", bad}, nil},
		{"bad bool env", []string{"-c", ""}, map[string]string{"COOKIE_SECURE": "maybe"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parse(tc.args, env(tc.env))
			require.Error(t, err)
		})
	}
}
