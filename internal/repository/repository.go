// Package repository owns persistence for tasks and users. Every task
// operation that takes a userID is scoped to that owner; touching a record
// owned by somebody else behaves exactly like touching a missing one.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/avdeyev/go-task-tracker/internal/models"
	"github.com/avdeyev/go-task-tracker/internal/query"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrEmailTaken = errors.New("email already registered")
)

// TaskPatch is a sparse set of task field updates. Present fields are
// written, absent fields are left untouched; a null Optional clears a
// nullable column. UpdatedAt is always written.
type TaskPatch struct {
	Title           models.Optional[string]
	Description     models.Optional[string]
	Priority        models.Optional[int]
	EstimateMinutes models.Optional[int]
	DueDate         models.Optional[string]
	ParentID        models.Optional[string]
	Completed       models.Optional[bool]
	CompletedAt     models.Optional[time.Time]
	UpdatedAt       time.Time
}

type TaskRepository interface {
	Insert(ctx context.Context, task *models.Task) error

	// Get returns the task with the given id owned by userID,
	// or ErrNotFound.
	Get(ctx context.Context, userID, id string) (*models.Task, error)

	// Find returns the tasks matching the filter, sorted and windowed
	// server-side. Ties on the sort key break by id so paging is
	// deterministic.
	Find(ctx context.Context, userID string, f query.Filter, sort query.Sort, skip, limit int) ([]*models.Task, error)

	Count(ctx context.Context, userID string, f query.Filter) (int, error)

	// FindChildren returns the direct children of parentID ordered by
	// creation time.
	FindChildren(ctx context.Context, userID, parentID string) ([]*models.Task, error)

	// FindChildIDs is FindChildren without the row fetch, for traversals
	// that only need the ids.
	FindChildIDs(ctx context.Context, userID, parentID string) ([]string, error)

	// HasChildren is an existence check, not a fetch.
	HasChildren(ctx context.Context, userID, id string) (bool, error)

	// Update applies the patch to a single owned task, or ErrNotFound.
	Update(ctx context.Context, userID, id string, patch TaskPatch) error

	// UpdateMany applies the patch to every owned task in ids and returns
	// how many rows changed. Ids that no longer exist are skipped.
	UpdateMany(ctx context.Context, userID string, ids []string, patch TaskPatch) (int64, error)

	// DeleteOne deletes a single owned task, or ErrNotFound.
	DeleteOne(ctx context.Context, userID, id string) error

	// DeleteMany deletes every owned task in ids and returns how many
	// rows went away. Already-deleted ids are not an error.
	DeleteMany(ctx context.Context, userID string, ids []string) (int64, error)
}

type UserRepository interface {
	// Insert stores a new user, or ErrEmailTaken if the email is in use.
	Insert(ctx context.Context, user *models.User) error

	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
