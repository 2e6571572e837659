package models

import (
	"encoding/json"
	"time"
)

// Task is a single record in a tenant's task store. IDs are only unique
// within one tenant store.
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	DueAt       *string   `json:"dueAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Completed   bool      `json:"completed"`
}

// NewTask holds the fields accepted when creating a task.
type NewTask struct {
	Title       string
	Description *string
	DueAt       *string
}

// Optional marks whether a field was supplied at all, independently of its
// value. A supplied JSON null sets Set with the zero Value.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns a supplied Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// UnmarshalJSON implements json.Unmarshaler. It is only invoked for keys
// present in the document.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	return json.Unmarshal(data, &o.Value)
}

// TaskPatch is a partial update. Only fields with Set are applied; a set
// nil Description or DueAt clears the column.
type TaskPatch struct {
	Title       Optional[string]
	Description Optional[*string]
	DueAt       Optional[*string]
	Completed   Optional[bool]
}

// Empty reports whether no field is supplied.
func (p TaskPatch) Empty() bool {
	return !p.Title.Set && !p.Description.Set && !p.DueAt.Set && !p.Completed.Set
}

// SortOrder selects the ordering of a task listing.
type SortOrder string

const (
	// SortByDate lists newest tasks first.
	SortByDate SortOrder = "date"
	// SortByTitle lists tasks alphabetically by title.
	SortByTitle SortOrder = "alpha"
)

// ParseSortOrder maps a query value to a SortOrder, defaulting to SortByDate.
func ParseSortOrder(s string) SortOrder {
	if SortOrder(s) == SortByTitle {
		return SortByTitle
	}
	return SortByDate
}
