package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/atinyakov/TodoKeeper/internal/middleware"
	"github.com/atinyakov/TodoKeeper/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// TaskService defines the task operations required by the HTTP handlers.
// Every call is scoped to the given identity.
type TaskService interface {
	List(ctx context.Context, id models.Identity, order models.SortOrder) ([]models.Task, error)
	Create(ctx context.Context, id models.Identity, nt models.NewTask) (*models.Task, error)
	Update(ctx context.Context, id models.Identity, taskID int64, patch models.TaskPatch) (*models.Task, error)
	Delete(ctx context.Context, id models.Identity, taskID int64) error
}

// TodoHandler serves the task endpoints. It must be mounted behind
// middleware.SessionAuth.
type TodoHandler struct {
	Tasks TaskService
	Log   *zap.Logger
}

type listResponse struct {
	Todos []models.Task `json:"todos"`
}

type todoResponse struct {
	Todo *models.Task `json:"todo"`
}

// CreateTodoRequest is the JSON payload of POST /todos.
type CreateTodoRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	DueAt       *string `json:"dueAt"`
}

// UpdateTodoRequest is the JSON payload of PUT /todos/{id}. Absent keys
// leave the stored value untouched.
type UpdateTodoRequest struct {
	Title       models.Optional[string]        `json:"title"`
	Description models.Optional[*string]       `json:"description"`
	DueAt       models.Optional[*string]       `json:"dueAt"`
	Completed   models.Optional[completedFlag] `json:"completed"`
}

// completedFlag accepts true, false, 1 and 0.
type completedFlag bool

// UnmarshalJSON implements json.Unmarshaler.
func (c *completedFlag) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "true", "1":
		*c = true
	case "false", "0":
		*c = false
	default:
		return errors.New("completed must be a boolean, 0 or 1")
	}
	return nil
}

func (req UpdateTodoRequest) patch() (models.TaskPatch, error) {
	p := models.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		DueAt:       req.DueAt,
	}
	if req.Completed.Set {
		p.Completed = models.Some(bool(req.Completed.Value))
	}

	if p.Title.Set {
		if err := validateTitle(p.Title.Value); err != nil {
			return p, err
		}
	}
	if err := validateDescription(p.Description.Value); err != nil {
		return p, err
	}
	if err := validateDueAt(p.DueAt.Value); err != nil {
		return p, err
	}
	if p.Empty() {
		return p, errors.New("No fields to update")
	}
	return p, nil
}

func (h *TodoHandler) identity(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	}
	return id, ok
}

func taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}

// List responds with the caller's tasks, ordered by ?sort=date|alpha.
func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	tasks, err := h.Tasks.List(r.Context(), id, models.ParseSortOrder(r.URL.Query().Get("sort")))
	if err != nil {
		respondError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Todos: tasks})
}

// Create adds a task and responds 201 with it.
func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req CreateTodoRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	for _, err := range []error{
		validateTitle(req.Title),
		validateDescription(req.Description),
		validateDueAt(req.DueAt),
	} {
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	task, err := h.Tasks.Create(r.Context(), id, models.NewTask{
		Title:       req.Title,
		Description: nonEmpty(req.Description),
		DueAt:       nonEmpty(req.DueAt),
	})
	if err != nil {
		respondError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, todoResponse{Todo: task})
}

// Update changes the supplied fields of a task.
func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	tid, ok := taskID(w, r)
	if !ok {
		return
	}

	var req UpdateTodoRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.Tasks.Update(r.Context(), id, tid, patch)
	if err != nil {
		respondError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, todoResponse{Todo: task})
}

// Delete removes a task. Deleting an absent task still succeeds.
func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	tid, ok := taskID(w, r)
	if !ok {
		return
	}

	if err := h.Tasks.Delete(r.Context(), id, tid); err != nil {
		respondError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

var _ json.Unmarshaler = (*completedFlag)(nil)
