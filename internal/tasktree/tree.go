// Package tasktree implements the tree algorithms over the parent_id edge:
// descendant collection, cycle prevention, subtree materialization, and the
// completion/deletion cascades. Traversals use an explicit frontier and a
// visited set, so stack depth does not grow with tree depth and a corrupted
// cyclic graph still terminates.
package tasktree

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/avdeyev/go-task-tracker/internal/models"
	"github.com/avdeyev/go-task-tracker/internal/repository"
)

// ErrCircularParent means a re-parent would make a task its own ancestor.
var ErrCircularParent = errors.New("parent cannot be the task itself or one of its descendants")

type Engine struct {
	logger zerolog.Logger
	tasks  repository.TaskRepository
}

func NewEngine(
	logger zerolog.Logger,
	tasks repository.TaskRepository,
) *Engine {
	return &Engine{
		logger: logger,
		tasks:  tasks,
	}
}

// CollectDescendants returns the ids of rootID and every task reachable from
// it through child edges, scoped to userID. The root does not have to exist;
// an unknown id just collects itself, which keeps cascade retries a no-op.
func (e *Engine) CollectDescendants(ctx context.Context, userID, rootID string) ([]string, error) {
	collected := []string{rootID}
	visited := map[string]struct{}{rootID: {}}
	frontier := []string{rootID}

	for len(frontier) > 0 {
		cur := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]

		childIDs, err := e.tasks.FindChildIDs(ctx, userID, cur)
		if err != nil {
			e.logger.Error().
				Err(err).
				Str("task_id", cur).
				Msg("failed to fetch child ids")
			return nil, err
		}
		for _, id := range childIDs {
			// The visited set guards against a stored cycle; the
			// mutation path never creates one, but a traversal
			// must not hang on corrupted data.
			if _, ok := visited[id]; ok {
				continue
			}
			visited[id] = struct{}{}
			collected = append(collected, id)
			frontier = append(frontier, id)
		}
	}
	return collected, nil
}

// HasChildren reports whether the task has at least one direct child.
func (e *Engine) HasChildren(ctx context.Context, userID, id string) (bool, error) {
	return e.tasks.HasChildren(ctx, userID, id)
}

// CheckParent rejects a new parent that is the task itself or any of its
// descendants, evaluated against the current stored tree.
func (e *Engine) CheckParent(ctx context.Context, userID, taskID, newParentID string) error {
	if newParentID == taskID {
		return ErrCircularParent
	}

	descendants, err := e.CollectDescendants(ctx, userID, taskID)
	if err != nil {
		return err
	}
	for _, id := range descendants {
		if id == newParentID {
			return ErrCircularParent
		}
	}
	return nil
}

// BuildSubtree materializes the tree rooted at rootID, level by level. It
// returns repository.ErrNotFound when the root is absent or owned by
// somebody else.
func (e *Engine) BuildSubtree(ctx context.Context, userID, rootID string) (*models.TaskTree, error) {
	rootTask, err := e.tasks.Get(ctx, userID, rootID)
	if err != nil {
		return nil, err
	}

	root := &models.TaskTree{Task: *rootTask, Subtasks: []*models.TaskTree{}}
	visited := map[string]struct{}{root.ID: {}}
	frontier := []*models.TaskTree{root}

	for len(frontier) > 0 {
		node := frontier[0]
		frontier = frontier[1:]

		children, err := e.tasks.FindChildren(ctx, userID, node.ID)
		if err != nil {
			e.logger.Error().
				Err(err).
				Str("task_id", node.ID).
				Msg("failed to fetch children")
			return nil, err
		}
		for _, ch := range children {
			if _, ok := visited[ch.ID]; ok {
				continue
			}
			visited[ch.ID] = struct{}{}

			child := &models.TaskTree{Task: *ch, Subtasks: []*models.TaskTree{}}
			node.Subtasks = append(node.Subtasks, child)
			frontier = append(frontier, child)
		}
	}
	return root, nil
}

// CascadeComplete marks rootID and all its descendants completed with the
// single timestamp when. Re-running it with the same arguments is harmless.
func (e *Engine) CascadeComplete(ctx context.Context, userID, rootID string, when time.Time) error {
	ids, err := e.CollectDescendants(ctx, userID, rootID)
	if err != nil {
		return err
	}

	patch := repository.TaskPatch{
		Completed:   models.NewOptional(true),
		CompletedAt: models.NewOptional(when),
		UpdatedAt:   when,
	}
	updated, err := e.tasks.UpdateMany(ctx, userID, ids, patch)
	if err != nil {
		return err
	}
	e.logger.Info().
		Str("task_id", rootID).
		Int64("completed", updated).
		Msg("cascade completed tasks")
	return nil
}

// CascadeDelete deletes rootID and all its descendants and returns the ids
// it targeted. Deleting an already-deleted subtree removes nothing and is
// not an error.
func (e *Engine) CascadeDelete(ctx context.Context, userID, rootID string) ([]string, error) {
	ids, err := e.CollectDescendants(ctx, userID, rootID)
	if err != nil {
		return nil, err
	}

	deleted, err := e.tasks.DeleteMany(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	e.logger.Info().
		Str("task_id", rootID).
		Int64("deleted", deleted).
		Msg("cascade deleted tasks")
	return ids, nil
}
