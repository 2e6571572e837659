package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/TodoKeeper/internal/common"
	"github.com/atinyakov/TodoKeeper/internal/models"
	"github.com/benbjohnson/clock"
	"github.com/jmoiron/sqlx"
)

// TimeLayout is the storage format of task timestamps. It is fixed-width
// UTC, so text order equals time order.
const TimeLayout = "2006-01-02 15:04:05.000000000"

const taskColumns = `id, title, description, due_at, created_at, updated_at, completed`

const (
	listTasksByDateQuery  = `SELECT ` + taskColumns + ` FROM todos ORDER BY created_at DESC, id ASC`
	listTasksByTitleQuery = `SELECT ` + taskColumns + ` FROM todos ORDER BY title ASC, id ASC`

	insertTaskQuery = `INSERT INTO todos (title, description, due_at, created_at, updated_at, completed)
VALUES (?, ?, ?, ?, ?, 0)
RETURNING ` + taskColumns

	// Each column takes its new value only when the preceding flag is true.
	updateTaskQuery = `UPDATE todos SET
    title       = CASE WHEN ? THEN ? ELSE title END,
    description = CASE WHEN ? THEN ? ELSE description END,
    due_at      = CASE WHEN ? THEN ? ELSE due_at END,
    completed   = CASE WHEN ? THEN ? ELSE completed END,
    updated_at  = ?
WHERE id = ?
RETURNING ` + taskColumns

	deleteTaskQuery = `DELETE FROM todos WHERE id = ?`
)

type taskRow struct {
	ID          int64   `db:"id"`
	Title       string  `db:"title"`
	Description *string `db:"description"`
	DueAt       *string `db:"due_at"`
	CreatedAt   string  `db:"created_at"`
	UpdatedAt   string  `db:"updated_at"`
	Completed   bool    `db:"completed"`
}

func (r taskRow) task() (models.Task, error) {
	created, err := time.ParseInLocation(TimeLayout, r.CreatedAt, time.UTC)
	if err != nil {
		return models.Task{}, fmt.Errorf("task %d: parse created_at: %w", r.ID, err)
	}
	updated, err := time.ParseInLocation(TimeLayout, r.UpdatedAt, time.UTC)
	if err != nil {
		return models.Task{}, fmt.Errorf("task %d: parse updated_at: %w", r.ID, err)
	}
	return models.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		DueAt:       r.DueAt,
		CreatedAt:   created,
		UpdatedAt:   updated,
		Completed:   r.Completed,
	}, nil
}

// SQLiteTaskRepository runs task operations against one tenant store.
// Every operation is a single statement, so it is atomic on its own.
type SQLiteTaskRepository struct {
	// DB is the tenant store handle.
	DB    sqlx.ExtContext
	clock clock.Clock
}

// NewSQLiteTaskRepository binds a repository to a resolved tenant store.
func NewSQLiteTaskRepository(db sqlx.ExtContext, clk clock.Clock) *SQLiteTaskRepository {
	return &SQLiteTaskRepository{DB: db, clock: clk}
}

func (r *SQLiteTaskRepository) now() string {
	return r.clock.Now().UTC().Format(TimeLayout)
}

// List returns every task of the store in the requested order. Ties are
// broken by ascending id.
func (r *SQLiteTaskRepository) List(ctx context.Context, order models.SortOrder) ([]models.Task, error) {
	query := listTasksByDateQuery
	if order == models.SortByTitle {
		query = listTasksByTitleQuery
	}

	var rows []taskRow
	if err := sqlx.SelectContext(ctx, r.DB, &rows, query); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	tasks := make([]models.Task, 0, len(rows))
	for _, row := range rows {
		t, err := row.task()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Create inserts a task and returns the stored record.
func (r *SQLiteTaskRepository) Create(ctx context.Context, nt models.NewTask) (*models.Task, error) {
	now := r.now()

	var row taskRow
	err := sqlx.GetContext(ctx, r.DB, &row, insertTaskQuery, nt.Title, nt.Description, nt.DueAt, now, now)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	t, err := row.task()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Update applies the supplied fields of patch to task id and refreshes its
// update time. An absent id yields common.ErrNotFound.
func (r *SQLiteTaskRepository) Update(ctx context.Context, id int64, patch models.TaskPatch) (*models.Task, error) {
	var row taskRow
	err := sqlx.GetContext(ctx, r.DB, &row, updateTaskQuery,
		patch.Title.Set, patch.Title.Value,
		patch.Description.Set, patch.Description.Value,
		patch.DueAt.Set, patch.DueAt.Value,
		patch.Completed.Set, patch.Completed.Value,
		r.now(),
		id,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %d: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	t, err := row.task()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Delete removes task id. Deleting an absent id is not an error.
func (r *SQLiteTaskRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.DB.ExecContext(ctx, deleteTaskQuery, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
