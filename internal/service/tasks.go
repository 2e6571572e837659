package service

import (
	"context"

	"github.com/atinyakov/TodoKeeper/internal/models"
	"github.com/atinyakov/TodoKeeper/internal/repository"
	"github.com/benbjohnson/clock"
)

// TaskService runs task operations against the store of the calling
// identity. The tenant is always the identity id, never client input.
type TaskService struct {
	stores StoreResolver
	clock  clock.Clock
}

// NewTaskService constructs a TaskService. A nil clk means the wall clock.
func NewTaskService(stores StoreResolver, clk clock.Clock) *TaskService {
	if clk == nil {
		clk = clock.New()
	}
	return &TaskService{stores: stores, clock: clk}
}

func (s *TaskService) repo(ctx context.Context, id models.Identity) (*repository.SQLiteTaskRepository, error) {
	store, err := s.stores.Resolve(ctx, id.ID)
	if err != nil {
		return nil, err
	}
	return repository.NewSQLiteTaskRepository(store.DB(), s.clock), nil
}

// List returns the caller's tasks in the given order.
func (s *TaskService) List(ctx context.Context, id models.Identity, order models.SortOrder) ([]models.Task, error) {
	r, err := s.repo(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.List(ctx, order)
}

// Create adds a task to the caller's list.
func (s *TaskService) Create(ctx context.Context, id models.Identity, nt models.NewTask) (*models.Task, error) {
	r, err := s.repo(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.Create(ctx, nt)
}

// Update changes the supplied fields of one of the caller's tasks.
func (s *TaskService) Update(ctx context.Context, id models.Identity, taskID int64, patch models.TaskPatch) (*models.Task, error) {
	r, err := s.repo(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.Update(ctx, taskID, patch)
}

// Delete removes one of the caller's tasks.
func (s *TaskService) Delete(ctx context.Context, id models.Identity, taskID int64) error {
	r, err := s.repo(ctx, id)
	if err != nil {
		return err
	}
	return r.Delete(ctx, taskID)
}
