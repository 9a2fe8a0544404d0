package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avdeyev/go-task-tracker/internal/models"
	"github.com/avdeyev/go-task-tracker/internal/query"
	"github.com/avdeyev/go-task-tracker/internal/repository"
	"github.com/avdeyev/go-task-tracker/internal/tasktree"
)

func newTestTaskService() (TaskService, *repository.MemoryTaskRepository) {
	repo := repository.NewMemoryTaskRepository()
	tree := tasktree.NewEngine(zerolog.Nop(), repo)
	return NewTaskService(zerolog.Nop(), repo, tree), repo
}

func mustCreate(t *testing.T, svc TaskService, params CreateTaskParams) *models.Task {
	t.Helper()

	task, err := svc.CreateTask(context.Background(), params)
	require.NoError(t, err)
	return task
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestCreateTaskRoundTrip(t *testing.T) {
	svc, _ := newTestTaskService()

	created := mustCreate(t, svc, CreateTaskParams{
		UserID:          "alice",
		Title:           "  write report  ",
		Description:     strPtr("quarterly numbers"),
		Priority:        intPtr(2),
		EstimateMinutes: intPtr(90),
		DueDate:         strPtr("2024-09-01"),
	})

	assert.Equal(t, "write report", created.Title)
	require.NotNil(t, created.DueDate)
	assert.Equal(t, "2024-09-01T00:00:00Z", *created.DueDate)
	assert.False(t, created.Completed)
	assert.Nil(t, created.CompletedAt)
	assert.NotEmpty(t, created.ID)
	_, err := uuid.Parse(created.ID)
	assert.NoError(t, err)

	got, err := svc.GetTask(context.Background(), "alice", created.ID, false)
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)
	assert.Equal(t, created.DueDate, got.DueDate)
}

func TestCreateTaskValidation(t *testing.T) {
	svc, _ := newTestTaskService()

	_, err := svc.CreateTask(context.Background(), CreateTaskParams{UserID: "alice", Title: "   "})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateTask(context.Background(), CreateTaskParams{UserID: "alice", Title: "x", Priority: intPtr(6)})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateTask(context.Background(), CreateTaskParams{UserID: "alice", Title: "x", EstimateMinutes: intPtr(-1)})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateTask(context.Background(), CreateTaskParams{UserID: "alice", Title: "x", DueDate: strPtr("someday")})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateTaskCompletedGetsTimestamp(t *testing.T) {
	svc, _ := newTestTaskService()

	created := mustCreate(t, svc, CreateTaskParams{UserID: "alice", Title: "done already", Completed: true})

	assert.True(t, created.Completed)
	require.NotNil(t, created.CompletedAt)
	assert.Equal(t, created.UpdatedAt, *created.CompletedAt)
}

func TestCreateTaskParentMustBeOwned(t *testing.T) {
	svc, _ := newTestTaskService()
	theirs := mustCreate(t, svc, CreateTaskParams{UserID: "bob", Title: "bob's"})

	_, err := svc.CreateTask(context.Background(), CreateTaskParams{
		UserID:   "alice",
		Title:    "child",
		ParentID: &theirs.ID,
	})
	assert.ErrorIs(t, err, ErrParentNotFound)

	missing := uuid.NewString()
	_, err = svc.CreateTask(context.Background(), CreateTaskParams{
		UserID:   "alice",
		Title:    "child",
		ParentID: &missing,
	})
	assert.ErrorIs(t, err, ErrParentNotFound)
}

func TestListTasksDefaultsToRoots(t *testing.T) {
	svc, _ := newTestTaskService()
	root := mustCreate(t, svc, CreateTaskParams{UserID: "alice", Title: "root"})
	mustCreate(t, svc, CreateTaskParams{UserID: "alice", Title: "child", ParentID: &root.ID})
	mustCreate(t, svc, CreateTaskParams{UserID: "bob", Title: "other owner"})

	list, err := svc.ListTasks(context.Background(), "alice", query.ListQuery{})
	require.NoError(t, err)

	require.Len(t, list.Items, 1)
	assert.Equal(t, root.ID, list.Items[0].ID)
	assert.Equal(t, 1, list.Meta.Total)
	assert.Equal(t, 1, list.Meta.TotalPages)
}

func TestListTasksByParent(t *testing.T) {
	svc, _ := newTestTaskService()
	root := mustCreate(t, svc, CreateTaskParams{UserID: "alice", Title: "root"})
	child := mustCreate(t, svc, CreateTaskParams{UserID: "alice", Title: "child", ParentID: &root.ID})

	list, err := svc.ListTasks(context.Background(), "alice", query.ListQuery{
		Filter: query.Filter{ParentID: &root.ID},
	})
	require.NoError(t, err)

	require.Len(t, list.Items, 1)
	assert.Equal(t, child.ID, list.Items[0].ID)
}

func TestListTasksRejectsBadQuery(t *testing.T) {
	svc, _ := newTestTaskService()

	_, err := svc.ListTasks(context.Background(), "alice", query.ListQuery{
		Sort: query.Sort{By: "color"},
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.ListTasks(context.Background(), "alice", query.ListQuery{
		Filter: query.Filter{DueBefore: "not-a-date"},
	})
	assert.ErrorIs(t, err, ErrValidation)

	badParent := "not-a-uuid"
	_, err = svc.ListTasks(context.Background(), "alice", query.ListQuery{
		Filter: query.Filter{ParentID: &badParent},
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetTaskWithSubtree(t *testing.T) {
	svc, _ := newTestTaskService()
	root := mustCreate(t, svc, CreateTaskParams{UserID: "alice", Title: "root"})
	child := mustCreate(t, svc, CreateTaskParams{UserID: "alice", Title: "child", ParentID: &root.ID})
	mustCreate(t, svc, CreateTaskParams{UserID: "alice", Title: "grandchild", ParentID: &child.ID})

	flat, err := svc.GetTask(context.Background(), "alice", root.ID, false)
	require.NoError(t, err)
	assert.Empty(t, flat.Subtasks)

	tree, err := svc.GetTask(context.Background(), "alice", root.ID, true)
	require.NoError(t, err)
	require.Len(t, tree.Subtasks, 1)
	require.Len(t, tree.Subtasks[0].Subtasks, 1)
	assert.Equal(t, "grandchild", tree.Subtasks[0].Subtasks[0].Title)

	_, err = svc.GetTask(context.Background(), "bob", root.ID, true)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestUpdateTaskSparsePatch(t *testing.T) {
	svc, _ := newTestTaskService()
	created := mustCreate(t, svc, CreateTaskParams{
		UserID:      "alice",
		Title:       "draft",
		Description: strPtr("keep me"),
		Priority:    intPtr(3),
	})

	updated, err := svc.UpdateTask(context.Background(), "alice", created.ID, UpdateTaskParams{
		Title:    models.NewOptional("final"),
		Priority: models.NullOptional[int](),
	})
	require.NoError(t, err)

	assert.Equal(t, "final", updated.Title)
	assert.Nil(t, updated.Priority)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "keep me", *updated.Description)
}

func TestUpdateTaskEmptyPatch(t *testing.T) {
	svc, _ := newTestTaskService()
	created := mustCreate(t, svc, CreateTaskParams{UserID: "alice", Title: "draft"})

	_, err := svc.UpdateTask(context.Background(), "alice", created.ID, UpdateTaskParams{})
	assert.ErrorIs(t, err, ErrEmptyUpdate)
}

func TestUpdateTaskCompletedToggle(t *testing.T) {
	svc, _ := newTestTaskService()
	created := mustCreate(t, svc, CreateTaskParams{UserID: "alice", Title: "draft"})

	updated, err := svc.UpdateTask(context.Background(), "alice", created.ID, UpdateTaskParams{
		Completed: models.NewOptional(true),
	})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	require.NotNil(t, updated.CompletedAt)

	updated, err = svc.UpdateTask(context.Background(), "alice", created.ID, UpdateTaskParams{
		Completed: models.NewOptional(false),
	})
	require.NoError(t, err)
	assert.False(t, updated.Completed)
	assert.Nil(t, updated.CompletedAt)

	_, err = svc.UpdateTask(context.Background(), "alice", created.ID, UpdateTaskParams{
		Completed: models.NullOptional[bool](),
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateTaskReparent(t *testing.T) {
	svc, _ := newTestTaskService()
	a := mustCreate(t, svc, CreateTaskParams{UserID: "alice", Title: "a"})
	b := mustCreate(t, svc, CreateTaskParams{UserID: "alice", Title: "b", ParentID: &a.ID})
	c := mustCreate(t, svc, CreateTaskParams{UserID: "alice", Title: "c"})

	// Moving a under its own descendant is rejected.
	_, err := svc.UpdateTask(context.Background(), "alice", a.ID, UpdateTaskParams{
		ParentID: models.NewOptional(b.ID),
	})
	assert.ErrorIs(t, err, ErrCircularParent)

	_, err = svc.UpdateTask(context.Background(), "alice", a.ID, UpdateTaskParams{
		ParentID: models.NewOptional(a.ID),
	})
	assert.ErrorIs(t, err, ErrCircularParent)

	updated, err := svc.UpdateTask(context.Background(), "alice", b.ID, UpdateTaskParams{
		ParentID: models.NewOptional(c.ID),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.ParentID)
	assert.Equal(t, c.ID, *updated.ParentID)

	updated, err = svc.UpdateTask(context.Background(), "alice", b.ID, UpdateTaskParams{
		ParentID: models.NullOptional[string](),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.ParentID)
}

func TestUpdateTaskParentNotFound(t *testing.T) {
	svc, _ := newTestTaskService()
	created := mustCreate(t, svc, CreateTaskParams{UserID: "alice", Title: "a"})
	theirs := mustCreate(t, svc, CreateTaskParams{UserID: "bob", Title: "bob's"})

	_, err := svc.UpdateTask(context.Background(), "alice", created.ID, UpdateTaskParams{
		ParentID: models.NewOptional(theirs.ID),
	})
	assert.ErrorIs(t, err, ErrParentNotFound)
}

func TestDeleteTask(t *testing.T) {
	svc, _ := newTestTaskService()
	root := mustCreate(t, svc, CreateTaskParams{UserID: "alice", Title: "root"})
	child := mustCreate(t, svc, CreateTaskParams{UserID: "alice", Title: "child", ParentID: &root.ID})

	err := svc.DeleteTask(context.Background(), "alice", root.ID, false)
	assert.ErrorIs(t, err, ErrTaskHasChildren)

	require.NoError(t, svc.DeleteTask(context.Background(), "alice", child.ID, false))
	require.NoError(t, svc.DeleteTask(context.Background(), "alice", root.ID, false))

	err = svc.DeleteTask(context.Background(), "alice", root.ID, false)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestDeleteTaskCascade(t *testing.T) {
	svc, repo := newTestTaskService()
	root := mustCreate(t, svc, CreateTaskParams{UserID: "alice", Title: "root"})
	child := mustCreate(t, svc, CreateTaskParams{UserID: "alice", Title: "child", ParentID: &root.ID})
	grandchild := mustCreate(t, svc, CreateTaskParams{UserID: "alice", Title: "grandchild", ParentID: &child.ID})
	bystander := mustCreate(t, svc, CreateTaskParams{UserID: "alice", Title: "bystander"})

	require.NoError(t, svc.DeleteTask(context.Background(), "alice", root.ID, true))

	for _, id := range []string{root.ID, child.ID, grandchild.ID} {
		_, err := repo.Get(context.Background(), "alice", id)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	}
	_, err := repo.Get(context.Background(), "alice", bystander.ID)
	assert.NoError(t, err)
}

func TestCompleteTaskCascades(t *testing.T) {
	svc, repo := newTestTaskService()
	root := mustCreate(t, svc, CreateTaskParams{UserID: "alice", Title: "root"})
	child := mustCreate(t, svc, CreateTaskParams{UserID: "alice", Title: "child", ParentID: &root.ID})
	grandchild := mustCreate(t, svc, CreateTaskParams{UserID: "alice", Title: "grandchild", ParentID: &child.ID})

	completed, err := svc.CompleteTask(context.Background(), "alice", root.ID)
	require.NoError(t, err)
	assert.True(t, completed.Completed)
	require.NotNil(t, completed.CompletedAt)

	// Every task in the subtree shares the root's timestamp.
	for _, id := range []string{child.ID, grandchild.ID} {
		got, err := repo.Get(context.Background(), "alice", id)
		require.NoError(t, err)
		assert.True(t, got.Completed)
		require.NotNil(t, got.CompletedAt)
		assert.Equal(t, *completed.CompletedAt, *got.CompletedAt)
	}
}

func TestTaskOperationsRejectMalformedID(t *testing.T) {
	svc, _ := newTestTaskService()

	_, err := svc.GetTask(context.Background(), "alice", "nope", false)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateTask(context.Background(), "alice", "nope", UpdateTaskParams{Title: models.NewOptional("x")})
	assert.ErrorIs(t, err, ErrValidation)

	err = svc.DeleteTask(context.Background(), "alice", "nope", false)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CompleteTask(context.Background(), "alice", "nope")
	assert.ErrorIs(t, err, ErrValidation)
}
