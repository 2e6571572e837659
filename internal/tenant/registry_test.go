package tenant

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/atinyakov/TodoKeeper/internal/common"
	"github.com/atinyakov/TodoKeeper/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newTestRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	r := NewRegistry(filepath.Join(t.TempDir(), "todos"), opts...)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func countRows(t *testing.T, s *Store) int {
	t.Helper()
	var n int
	require.NoError(t, s.DB().Get(&n, `SELECT COUNT(*) FROM todos`))
	return n
}

func TestPathFor(t *testing.T) {
	assert.Equal(t, filepath.Join("d", "user_1.db"), PathFor("d", 1))
	assert.Equal(t, filepath.Join("d", "user_11.db"), PathFor("d", 11))
	assert.NotEqual(t, PathFor("d", 1), PathFor("d", 11))
}

func TestResolve_CreatesStoreWithSchema(t *testing.T) {
	r := newTestRegistry(t)

	s, err := r.Resolve(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), s.TenantID)
	assert.Equal(t, PathFor(r.Dir(), 7), s.Path)

	_, err = os.Stat(s.Path)
	require.NoError(t, err)

	var name string
	require.NoError(t, s.DB().Get(&name, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'todos'`))
	assert.Equal(t, "todos", name)
	assert.Equal(t, 0, countRows(t, s))
}

func TestResolve_ReturnsCachedHandle(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	first, err := r.Resolve(ctx, 1)
	require.NoError(t, err)
	second, err := r.Resolve(ctx, 1)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, r.Len())
}

func TestResolve_TenantsArePhysicallySeparate(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	a, err := r.Resolve(ctx, 1)
	require.NoError(t, err)
	b, err := r.Resolve(ctx, 2)
	require.NoError(t, err)
	require.NotEqual(t, a.Path, b.Path)

	_, err = a.DB().Exec(`INSERT INTO todos (title, created_at, updated_at) VALUES ('a', 'x', 'x')`)
	require.NoError(t, err)

	assert.Equal(t, 1, countRows(t, a))
	assert.Equal(t, 0, countRows(t, b))
}

func TestResolve_ReopensExistingFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "todos")
	ctx := context.Background()

	r1 := NewRegistry(dir)
	s, err := r1.Resolve(ctx, 3)
	require.NoError(t, err)
	_, err = s.DB().Exec(`INSERT INTO todos (title, created_at, updated_at) VALUES ('kept', 'x', 'x')`)
	require.NoError(t, err)
	require.NoError(t, r1.Close())

	r2 := NewRegistry(dir)
	defer r2.Close()
	s, err = r2.Resolve(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, countRows(t, s))
}

func TestResolve_ConcurrentFirstAccessOpensOnce(t *testing.T) {
	var opens atomic.Int32
	r := newTestRegistry(t)
	r.open = func(ctx context.Context, id int64, path string) (*Store, error) {
		opens.Add(1)
		// Widen the race window.
		time.Sleep(20 * time.Millisecond)
		return openSQLite(ctx, id, path)
	}

	const callers = 64
	got := make([]*Store, callers)
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			s, err := r.Resolve(context.Background(), 42)
			got[i] = s
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), opens.Load())
	for _, s := range got {
		assert.Same(t, got[0], s)
	}

	// All callers write through the same handle; nothing is lost.
	g = errgroup.Group{}
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			_, err := got[i].DB().Exec(`INSERT INTO todos (title, created_at, updated_at) VALUES ('t', 'x', 'x')`)
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, callers, countRows(t, got[0]))

	files, err := filepath.Glob(filepath.Join(r.Dir(), "user_42.db"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestResolve_SlowTenantDoesNotBlockOthers(t *testing.T) {
	release := make(chan struct{})
	r := newTestRegistry(t)
	r.open = func(ctx context.Context, id int64, path string) (*Store, error) {
		if id == 1 {
			<-release
		}
		return openSQLite(ctx, id, path)
	}

	slow := make(chan error, 1)
	go func() {
		_, err := r.Resolve(context.Background(), 1)
		slow <- err
	}()

	done := make(chan error, 1)
	go func() {
		_, err := r.Resolve(context.Background(), 2)
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("tenant 2 blocked behind tenant 1")
	}

	close(release)
	require.NoError(t, <-slow)
	assert.Equal(t, 2, r.Len())
}

func TestResolve_FailureIsNotCached(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "todos")
	// A regular file where the directory should be makes MkdirAll fail.
	require.NoError(t, os.WriteFile(dir, []byte("x"), 0o600))

	reg := prometheus.NewRegistry()
	m := metrics.NewRegistryMetrics(reg)
	r := NewRegistry(dir, WithMetrics(m))
	defer r.Close()

	_, err := r.Resolve(context.Background(), 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrStorageUnavailable))
	assert.Equal(t, 0, r.Len())

	require.NoError(t, os.Remove(dir))

	s, err := r.Resolve(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, s)

	_, err = r.Resolve(context.Background(), 5)
	require.NoError(t, err)

	want := `
# HELP todokeeper_tenant_resolutions_total Tenant store resolutions by result.
# TYPE todokeeper_tenant_resolutions_total counter
todokeeper_tenant_resolutions_total{result="error"} 1
todokeeper_tenant_resolutions_total{result="hit"} 1
todokeeper_tenant_resolutions_total{result="opened"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(want), "todokeeper_tenant_resolutions_total"))
}

func TestResolve_InvalidTenant(t *testing.T) {
	r := newTestRegistry(t)
	for _, id := range []int64{0, -1} {
		_, err := r.Resolve(context.Background(), id)
		assert.ErrorIs(t, err, ErrInvalidTenant)
	}
}

func TestResolve_CanceledCallerDoesNotPoisonOpen(t *testing.T) {
	r := newTestRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := r.Resolve(ctx, 9)
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestRangeAndClose(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "todos"))
	ctx := context.Background()
	for id := int64(1); id <= 3; id++ {
		_, err := r.Resolve(ctx, id)
		require.NoError(t, err)
	}

	var mu sync.Mutex
	seen := map[int64]bool{}
	r.Range(func(s *Store) bool {
		mu.Lock()
		seen[s.TenantID] = true
		mu.Unlock()
		return true
	})
	assert.Len(t, seen, 3)

	calls := 0
	r.Range(func(*Store) bool {
		calls++
		return false
	})
	assert.Equal(t, 1, calls)

	require.NoError(t, r.Close())
	assert.Equal(t, 0, r.Len())

	_, err := r.Resolve(ctx, 1)
	assert.ErrorIs(t, err, ErrClosed)
}
