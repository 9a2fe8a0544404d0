package services

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avdeyev/go-task-tracker/internal/models"
	"github.com/avdeyev/go-task-tracker/internal/query"
)

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrParentNotFound  = errors.New("parent task not found")
	ErrCircularParent  = errors.New("parent cannot be the task itself or one of its descendants")
	ErrTaskHasChildren = errors.New("task has subtasks")
	ErrEmptyUpdate     = errors.New("at least one field must be provided to update")

	// ErrValidation is the base of every malformed-input failure; the
	// concrete reason is wrapped around it.
	ErrValidation = errors.New("validation failed")

	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type TaskService interface {
	// CreateTask persists a new task for params.UserID. A given parent
	// must exist and be owned by the same user, or ErrParentNotFound.
	CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error)

	// ListTasks returns one page of the user's tasks matching the query,
	// with pagination metadata. Without an explicit parent filter only
	// root tasks are listed.
	ListTasks(ctx context.Context, userID string, q query.ListQuery) (*TaskList, error)

	// GetTask returns a single owned task, with the whole subtree
	// attached when includeSubtasks is set.
	GetTask(ctx context.Context, userID, id string, includeSubtasks bool) (*models.TaskTree, error)

	// UpdateTask applies a sparse patch. Fields absent from params stay
	// untouched; a patch with no recognized field is ErrEmptyUpdate.
	// Changing the parent runs the circular-reference check against the
	// pre-update tree.
	UpdateTask(ctx context.Context, userID, id string, params UpdateTaskParams) (*models.Task, error)

	// DeleteTask removes a task. Without cascade it refuses with
	// ErrTaskHasChildren when subtasks exist; with cascade it removes
	// the whole subtree.
	DeleteTask(ctx context.Context, userID, id string, cascade bool) error

	// CompleteTask marks the task and all its descendants completed
	// with a single timestamp and returns the re-fetched root.
	CompleteTask(ctx context.Context, userID, id string) (*models.Task, error)
}

type AuthService interface {
	// Register creates a user with a hashed password, or
	// ErrUserAlreadyExists when the email is taken.
	Register(ctx context.Context, params RegisterParams) (*models.User, error)

	// Login verifies the credentials and issues a signed token. Unknown
	// email and wrong password are indistinguishable to the caller.
	Login(ctx context.Context, params LoginParams) (*LoginResult, error)

	// GetUser returns the user record behind an authenticated id.
	GetUser(ctx context.Context, userID string) (*models.User, error)

	// ParseJWTToken parses and verifies a bearer token and returns its
	// registered claims.
	ParseJWTToken(token string) (*jwt.RegisteredClaims, error)
}

type CreateTaskParams struct {
	UserID          string
	Title           string
	Description     *string
	Priority        *int
	EstimateMinutes *int
	DueDate         *string
	ParentID        *string
	Completed       bool
}

// UpdateTaskParams is a sparse patch: every field distinguishes absent from
// explicitly set (possibly to null), so the service can handle each
// recognized attribute exhaustively.
type UpdateTaskParams struct {
	Title           models.Optional[string]
	Description     models.Optional[string]
	Priority        models.Optional[int]
	EstimateMinutes models.Optional[int]
	DueDate         models.Optional[string]
	ParentID        models.Optional[string]
	Completed       models.Optional[bool]
}

// Empty reports whether no recognized field is present in the patch.
func (p UpdateTaskParams) Empty() bool {
	return !p.Title.Present &&
		!p.Description.Present &&
		!p.Priority.Present &&
		!p.EstimateMinutes.Present &&
		!p.DueDate.Present &&
		!p.ParentID.Present &&
		!p.Completed.Present
}

type TaskList struct {
	Items []*models.Task
	Meta  query.Pagination
}

type RegisterParams struct {
	Email    string
	Password string
	Name     *string
}

type LoginParams struct {
	Email    string
	Password string
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}
