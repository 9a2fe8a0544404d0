package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/avdeyev/go-task-tracker/internal/models"
	"github.com/avdeyev/go-task-tracker/internal/query"
)

const taskColumns = `id, user_id, title, description, priority,
       estimate_minutes, due_date, parent_id, completed,
       completed_at, created_at, updated_at`

type PostgresTaskRepository struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewPostgresTaskRepository(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
) *PostgresTaskRepository {
	return &PostgresTaskRepository{
		logger: logger,
		pgPool: pgPool,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := new(models.Task)
	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&task.Priority,
		&task.EstimateMinutes,
		&task.DueDate,
		&task.ParentID,
		&task.Completed,
		&task.CompletedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *PostgresTaskRepository) Insert(ctx context.Context, task *models.Task) error {
	const insertTaskQuery = `
INSERT INTO tasks (id,
                   user_id,
                   title,
                   description,
                   priority,
                   estimate_minutes,
                   due_date,
                   parent_id,
                   completed,
                   completed_at,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`
	_, err := r.pgPool.Exec(
		ctx,
		insertTaskQuery,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		task.Priority,
		task.EstimateMinutes,
		task.DueDate,
		task.ParentID,
		task.Completed,
		task.CompletedAt,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("task_id", task.ID).
			Msg("failed to insert task")
		return err
	}
	r.logger.Debug().
		Str("task_id", task.ID).
		Msg("inserted task")
	return nil
}

func (r *PostgresTaskRepository) Get(ctx context.Context, userID, id string) (*models.Task, error) {
	selectTaskQuery := fmt.Sprintf(`
SELECT %s
FROM tasks
WHERE id = $1 AND user_id = $2
`, taskColumns)

	task, err := scanTask(r.pgPool.QueryRow(ctx, selectTaskQuery, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}

		r.logger.Error().
			Err(err).
			Str("task_id", id).
			Msg("failed to select task")
		return nil, err
	}
	return task, nil
}

func (r *PostgresTaskRepository) Find(
	ctx context.Context,
	userID string,
	f query.Filter,
	sort query.Sort,
	skip, limit int,
) ([]*models.Task, error) {
	where, args := buildTaskFilter(userID, f)
	findQuery := fmt.Sprintf(`
SELECT %s
FROM tasks
WHERE %s
%s
LIMIT $%d OFFSET $%d
`, taskColumns, where, buildOrderBy(sort), len(args)+1, len(args)+2)
	args = append(args, limit, skip)

	rows, err := r.pgPool.Query(ctx, findQuery, args...)
	if err != nil {
		r.logger.Error().
			Err(err).
			Msg("failed to select tasks")
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0, limit)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			r.logger.Error().
				Err(err).
				Msg("failed to scan task")
			return nil, err
		}
		tasks = append(tasks, task)
	}

	err = rows.Err()
	if err != nil {
		r.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}
	return tasks, nil
}

func (r *PostgresTaskRepository) Count(ctx context.Context, userID string, f query.Filter) (int, error) {
	where, args := buildTaskFilter(userID, f)
	countQuery := fmt.Sprintf(`
SELECT COUNT(*)
FROM tasks
WHERE %s
`, where)

	var total int
	err := r.pgPool.QueryRow(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		r.logger.Error().
			Err(err).
			Msg("failed to count tasks")
		return 0, err
	}
	return total, nil
}

func (r *PostgresTaskRepository) FindChildren(ctx context.Context, userID, parentID string) ([]*models.Task, error) {
	selectChildrenQuery := fmt.Sprintf(`
SELECT %s
FROM tasks
WHERE parent_id = $1 AND user_id = $2
ORDER BY created_at ASC, id ASC
`, taskColumns)

	rows, err := r.pgPool.Query(ctx, selectChildrenQuery, parentID, userID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("parent_id", parentID).
			Msg("failed to select children")
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			r.logger.Error().
				Err(err).
				Msg("failed to scan child task")
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (r *PostgresTaskRepository) FindChildIDs(ctx context.Context, userID, parentID string) ([]string, error) {
	const selectChildIDsQuery = `
SELECT id
FROM tasks
WHERE parent_id = $1 AND user_id = $2
ORDER BY created_at ASC, id ASC
`
	rows, err := r.pgPool.Query(ctx, selectChildIDsQuery, parentID, userID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("parent_id", parentID).
			Msg("failed to select child ids")
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			r.logger.Error().
				Err(err).
				Msg("failed to scan child id")
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PostgresTaskRepository) HasChildren(ctx context.Context, userID, id string) (bool, error) {
	const existsChildQuery = `
SELECT EXISTS (
	SELECT 1
	FROM tasks
	WHERE parent_id = $1 AND user_id = $2
)
`
	var exists bool
	err := r.pgPool.QueryRow(ctx, existsChildQuery, id, userID).Scan(&exists)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("task_id", id).
			Msg("failed to check for children")
		return false, err
	}
	return exists, nil
}

func (r *PostgresTaskRepository) Update(ctx context.Context, userID, id string, patch TaskPatch) error {
	setClause, args := buildTaskPatch(patch)
	updateQuery := fmt.Sprintf(`
UPDATE tasks
SET %s
WHERE id = $%d AND user_id = $%d
`, setClause, len(args)+1, len(args)+2)
	args = append(args, id, userID)

	tag, err := r.pgPool.Exec(ctx, updateQuery, args...)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("task_id", id).
			Msg("failed to update task")
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.logger.Debug().
		Str("task_id", id).
		Msg("updated task")
	return nil
}

func (r *PostgresTaskRepository) UpdateMany(
	ctx context.Context,
	userID string,
	ids []string,
	patch TaskPatch,
) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	setClause, args := buildTaskPatch(patch)
	updateManyQuery := fmt.Sprintf(`
UPDATE tasks
SET %s
WHERE id = ANY($%d) AND user_id = $%d
`, setClause, len(args)+1, len(args)+2)
	args = append(args, ids, userID)

	tag, err := r.pgPool.Exec(ctx, updateManyQuery, args...)
	if err != nil {
		r.logger.Error().
			Err(err).
			Int("count", len(ids)).
			Msg("failed to update tasks")
		return 0, err
	}
	r.logger.Debug().
		Int64("updated", tag.RowsAffected()).
		Msg("updated tasks")
	return tag.RowsAffected(), nil
}

func (r *PostgresTaskRepository) DeleteOne(ctx context.Context, userID, id string) error {
	const deleteTaskQuery = `
DELETE FROM tasks
WHERE id = $1 AND user_id = $2
`
	tag, err := r.pgPool.Exec(ctx, deleteTaskQuery, id, userID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("task_id", id).
			Msg("failed to delete task")
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.logger.Debug().
		Str("task_id", id).
		Msg("deleted task")
	return nil
}

func (r *PostgresTaskRepository) DeleteMany(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	const deleteManyQuery = `
DELETE FROM tasks
WHERE id = ANY($1) AND user_id = $2
`
	tag, err := r.pgPool.Exec(ctx, deleteManyQuery, ids, userID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Int("count", len(ids)).
			Msg("failed to delete tasks")
		return 0, err
	}
	r.logger.Debug().
		Int64("deleted", tag.RowsAffected()).
		Msg("deleted tasks")
	return tag.RowsAffected(), nil
}
