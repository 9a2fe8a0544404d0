package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avdeyev/go-task-tracker/internal/models"
	"github.com/avdeyev/go-task-tracker/internal/query"
	"github.com/avdeyev/go-task-tracker/internal/repository"
	"github.com/avdeyev/go-task-tracker/internal/tasktree"
)

type taskServiceImpl struct {
	logger zerolog.Logger
	tasks  repository.TaskRepository
	tree   *tasktree.Engine
}

func NewTaskService(
	logger zerolog.Logger,
	tasks repository.TaskRepository,
	tree *tasktree.Engine,
) TaskService {
	return &taskServiceImpl{
		logger: logger,
		tasks:  tasks,
		tree:   tree,
	}
}

func validateTaskID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: invalid task id %q", ErrValidation, id)
	}
	return nil
}

func validatePriority(p int) error {
	if p < 1 || p > 5 {
		return fmt.Errorf("%w: priority must be between 1 and 5", ErrValidation)
	}
	return nil
}

func validateEstimate(m int) error {
	if m < 0 {
		return fmt.Errorf("%w: estimate_minutes must not be negative", ErrValidation)
	}
	return nil
}

func normalizeDueDate(s string) (string, error) {
	normalized, err := query.NormalizeTime(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return normalized, nil
}

func (s *taskServiceImpl) CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title must not be empty", ErrValidation)
	}
	if params.Priority != nil {
		if err := validatePriority(*params.Priority); err != nil {
			return nil, err
		}
	}
	if params.EstimateMinutes != nil {
		if err := validateEstimate(*params.EstimateMinutes); err != nil {
			return nil, err
		}
	}

	var dueDate *string
	if params.DueDate != nil && *params.DueDate != "" {
		normalized, err := normalizeDueDate(*params.DueDate)
		if err != nil {
			return nil, err
		}
		dueDate = &normalized
	}

	var parentID *string
	if params.ParentID != nil && !isNullID(*params.ParentID) {
		if err := validateTaskID(*params.ParentID); err != nil {
			return nil, err
		}

		_, err := s.tasks.Get(ctx, params.UserID, *params.ParentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.logger.Warn().
					Str("parent_id", *params.ParentID).
					Str("user_id", params.UserID).
					Msg("parent task not found")
				return nil, ErrParentNotFound
			}
			return nil, err
		}
		parentID = params.ParentID
	}

	now := time.Now().UTC()
	task := &models.Task{
		ID:              uuid.NewString(),
		UserID:          params.UserID,
		Title:           title,
		Description:     params.Description,
		Priority:        params.Priority,
		EstimateMinutes: params.EstimateMinutes,
		DueDate:         dueDate,
		ParentID:        parentID,
		Completed:       params.Completed,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if params.Completed {
		task.CompletedAt = &now
	}

	if err := s.tasks.Insert(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("task_id", task.ID).
		Str("user_id", task.UserID).
		Msg("created task")
	return task, nil
}

func (s *taskServiceImpl) ListTasks(ctx context.Context, userID string, q query.ListQuery) (*TaskList, error) {
	q.ApplyDefaults()
	if !query.ValidSortBy(q.Sort.By) {
		return nil, fmt.Errorf("%w: unknown sort field %q", ErrValidation, q.Sort.By)
	}
	if q.Filter.Priority != nil {
		if err := validatePriority(*q.Filter.Priority); err != nil {
			return nil, err
		}
	}

	if q.Filter.DueBefore != "" {
		normalized, err := normalizeDueDate(q.Filter.DueBefore)
		if err != nil {
			return nil, err
		}
		q.Filter.DueBefore = normalized
	}
	if q.Filter.DueAfter != "" {
		normalized, err := normalizeDueDate(q.Filter.DueAfter)
		if err != nil {
			return nil, err
		}
		q.Filter.DueAfter = normalized
	}
	if q.Filter.ParentID != nil {
		if err := validateTaskID(*q.Filter.ParentID); err != nil {
			return nil, err
		}
	}

	total, err := s.tasks.Count(ctx, userID, q.Filter)
	if err != nil {
		return nil, err
	}

	meta := query.NewPagination(total, q.Page, q.PageSize)
	items, err := s.tasks.Find(ctx, userID, q.Filter, q.Sort, meta.Offset(q.PageSize), q.PageSize)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("user_id", userID).
		Int("total", total).
		Int("page", meta.Page).
		Msg("listed tasks")
	return &TaskList{Items: items, Meta: meta}, nil
}

func (s *taskServiceImpl) GetTask(ctx context.Context, userID, id string, includeSubtasks bool) (*models.TaskTree, error) {
	if err := validateTaskID(id); err != nil {
		return nil, err
	}

	if includeSubtasks {
		tree, err := s.tree.BuildSubtree(ctx, userID, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrTaskNotFound
			}
			return nil, err
		}
		return tree, nil
	}

	task, err := s.tasks.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &models.TaskTree{Task: *task}, nil
}

// isNullID reports whether a string-typed id should be read as "no parent".
// Clients send "" or "null" interchangeably with a JSON null.
func isNullID(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "null"
}

func (s *taskServiceImpl) UpdateTask(ctx context.Context, userID, id string, params UpdateTaskParams) (*models.Task, error) {
	if err := validateTaskID(id); err != nil {
		return nil, err
	}
	if params.Empty() {
		return nil, ErrEmptyUpdate
	}

	if _, err := s.tasks.Get(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	now := time.Now().UTC()
	patch := repository.TaskPatch{UpdatedAt: now}

	if params.Title.Present {
		title := strings.TrimSpace(params.Title.Value)
		if params.Title.Null || title == "" {
			return nil, fmt.Errorf("%w: title must not be empty", ErrValidation)
		}
		patch.Title = models.NewOptional(title)
	}
	if params.Description.Present {
		patch.Description = params.Description
	}
	if params.Priority.Present {
		if !params.Priority.Null {
			if err := validatePriority(params.Priority.Value); err != nil {
				return nil, err
			}
		}
		patch.Priority = params.Priority
	}
	if params.EstimateMinutes.Present {
		if !params.EstimateMinutes.Null {
			if err := validateEstimate(params.EstimateMinutes.Value); err != nil {
				return nil, err
			}
		}
		patch.EstimateMinutes = params.EstimateMinutes
	}
	if params.DueDate.Present {
		if params.DueDate.Null || strings.TrimSpace(params.DueDate.Value) == "" {
			patch.DueDate = models.NullOptional[string]()
		} else {
			normalized, err := normalizeDueDate(params.DueDate.Value)
			if err != nil {
				return nil, err
			}
			patch.DueDate = models.NewOptional(normalized)
		}
	}
	if params.Completed.Present {
		if params.Completed.Null {
			return nil, fmt.Errorf("%w: completed must be a boolean", ErrValidation)
		}
		patch.Completed = params.Completed
		if params.Completed.Value {
			patch.CompletedAt = models.NewOptional(now)
		} else {
			patch.CompletedAt = models.NullOptional[time.Time]()
		}
	}
	if params.ParentID.Present {
		if params.ParentID.Null || isNullID(params.ParentID.Value) {
			patch.ParentID = models.NullOptional[string]()
		} else {
			newParentID := params.ParentID.Value
			if err := validateTaskID(newParentID); err != nil {
				return nil, err
			}

			_, err := s.tasks.Get(ctx, userID, newParentID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil, ErrParentNotFound
				}
				return nil, err
			}

			err = s.tree.CheckParent(ctx, userID, id, newParentID)
			if err != nil {
				if errors.Is(err, tasktree.ErrCircularParent) {
					s.logger.Warn().
						Str("task_id", id).
						Str("parent_id", newParentID).
						Msg("rejected circular parent")
					return nil, ErrCircularParent
				}
				return nil, err
			}
			patch.ParentID = models.NewOptional(newParentID)
		}
	}

	if err := s.tasks.Update(ctx, userID, id, patch); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	task, err := s.tasks.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("task_id", id).
		Str("user_id", userID).
		Msg("updated task")
	return task, nil
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, userID, id string, cascade bool) error {
	if err := validateTaskID(id); err != nil {
		return err
	}

	if _, err := s.tasks.Get(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskNotFound
		}
		return err
	}

	if cascade {
		_, err := s.tree.CascadeDelete(ctx, userID, id)
		return err
	}

	hasChildren, err := s.tree.HasChildren(ctx, userID, id)
	if err != nil {
		return err
	}
	if hasChildren {
		s.logger.Warn().
			Str("task_id", id).
			Msg("refused to delete task with subtasks")
		return ErrTaskHasChildren
	}

	err = s.tasks.DeleteOne(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskNotFound
		}
		return err
	}

	s.logger.Info().
		Str("task_id", id).
		Str("user_id", userID).
		Msg("deleted task")
	return nil
}

func (s *taskServiceImpl) CompleteTask(ctx context.Context, userID, id string) (*models.Task, error) {
	if err := validateTaskID(id); err != nil {
		return nil, err
	}

	if _, err := s.tasks.Get(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	when := time.Now().UTC()
	if err := s.tree.CascadeComplete(ctx, userID, id, when); err != nil {
		return nil, err
	}

	task, err := s.tasks.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	s.logger.Info().
		Str("task_id", id).
		Str("user_id", userID).
		Msg("completed task")
	return task, nil
}
