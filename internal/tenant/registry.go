// Package tenant keeps one physically separate task store per user and
// hands out shared handles to them.
//
// Isolation comes from the files themselves: the todos table carries no
// tenant column, and a Store is only ever bound to the file named after its
// tenant id. The Registry guarantees that at most one Store is opened per
// tenant for the lifetime of the process, even when the first requests for a
// new tenant arrive concurrently.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/atinyakov/TodoKeeper/internal/metrics"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrInvalidTenant is returned for non-positive tenant ids.
	ErrInvalidTenant = errors.New("invalid tenant id")
	// ErrClosed is returned by Resolve after Close.
	ErrClosed = errors.New("tenant registry closed")
)

// Registry maps tenant ids to open stores, creating a store on first use.
// Stores are never evicted; the number of open files grows with the number
// of active tenants.
type Registry struct {
	dir     string
	log     *zap.Logger
	metrics *metrics.RegistryMetrics
	open    opener

	mu     sync.RWMutex
	stores map[int64]*Store
	closed bool

	// creating serializes the miss path per tenant id.
	creating singleflight.Group
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for provisioning events.
func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// WithMetrics sets the resolution collectors.
func WithMetrics(m *metrics.RegistryMetrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry returns a Registry that keeps tenant stores under dir.
func NewRegistry(dir string, opts ...Option) *Registry {
	r := &Registry{
		dir:    dir,
		log:    zap.NewNop(),
		open:   openSQLite,
		stores: make(map[int64]*Store),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the directory holding the tenant stores.
func (r *Registry) Dir() string {
	return r.dir
}

// Resolve returns the store of tenantID, opening and preparing it on the
// first call. Concurrent callers for the same new tenant share a single
// open; callers for other tenants are not blocked by it. Failed opens are
// not cached, so a later call retries.
func (r *Registry) Resolve(ctx context.Context, tenantID int64) (*Store, error) {
	if tenantID <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTenant, tenantID)
	}

	if s, ok, err := r.lookup(tenantID); err != nil || ok {
		if ok {
			r.metrics.Observe(metrics.ResultHit)
		}
		return s, err
	}

	v, err, _ := r.creating.Do(strconv.FormatInt(tenantID, 10), func() (any, error) {
		// Another flight may have finished between lookup and Do.
		if s, ok, err := r.lookup(tenantID); err != nil || ok {
			return s, err
		}
		return r.provision(ctx, tenantID)
	})
	if err != nil {
		r.metrics.Observe(metrics.ResultError)
		return nil, err
	}
	return v.(*Store), nil
}

func (r *Registry) lookup(tenantID int64) (*Store, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, false, ErrClosed
	}
	s, ok := r.stores[tenantID]
	return s, ok, nil
}

func (r *Registry) provision(ctx context.Context, tenantID int64) (*Store, error) {
	path := PathFor(r.dir, tenantID)

	// The result is shared by every waiter of the flight, so one caller
	// giving up must not abort the open for the others.
	s, err := r.open(context.WithoutCancel(ctx), tenantID, path)
	if err != nil {
		r.log.Error("failed to open tenant store",
			zap.Int64("tenant", tenantID), zap.String("path", path), zap.Error(err))
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = s.Close()
		return nil, ErrClosed
	}
	r.stores[tenantID] = s
	n := len(r.stores)
	r.mu.Unlock()

	r.metrics.Observe(metrics.ResultOpened)
	r.metrics.SetOpen(n)
	r.log.Info("opened tenant store", zap.Int64("tenant", tenantID), zap.String("path", path))
	return s, nil
}

// Len returns the number of open stores.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stores)
}

// Range calls fn for a snapshot of the open stores until fn returns false.
// fn runs without the registry lock held.
func (r *Registry) Range(fn func(*Store) bool) {
	r.mu.RLock()
	snapshot := make([]*Store, 0, len(r.stores))
	for _, s := range r.stores {
		snapshot = append(snapshot, s)
	}
	r.mu.RUnlock()

	for _, s := range snapshot {
		if !fn(s) {
			return
		}
	}
}

// Close closes every open store and makes further Resolve calls fail.
func (r *Registry) Close() error {
	r.mu.Lock()
	stores := r.stores
	r.stores = make(map[int64]*Store)
	r.closed = true
	r.mu.Unlock()

	var err error
	for id, s := range stores {
		if cerr := s.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close tenant %d: %w", id, cerr))
		}
	}
	r.metrics.SetOpen(0)
	return err
}
