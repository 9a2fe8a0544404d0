package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/avdeyev/go-task-tracker/internal/models"
	"github.com/avdeyev/go-task-tracker/internal/query"
)

// MemoryTaskRepository is a mutex-guarded in-memory TaskRepository with the
// same scoping, filter, and ordering semantics as the Postgres one. Tests
// build on it; it has no durability.
type MemoryTaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]*models.Task
}

func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{
		tasks: make(map[string]*models.Task),
	}
}

func copyTask(t *models.Task) *models.Task {
	clone := *t
	return &clone
}

func (r *MemoryTaskRepository) Insert(_ context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks[task.ID] = copyTask(task)
	return nil
}

func (r *MemoryTaskRepository) Get(_ context.Context, userID, id string) (*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok || task.UserID != userID {
		return nil, ErrNotFound
	}
	return copyTask(task), nil
}

func matchesFilter(t *models.Task, f query.Filter) bool {
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		inTitle := strings.Contains(strings.ToLower(t.Title), needle)
		inDescription := t.Description != nil &&
			strings.Contains(strings.ToLower(*t.Description), needle)
		if !inTitle && !inDescription {
			return false
		}
	}
	if f.Completed != nil && t.Completed != *f.Completed {
		return false
	}
	if f.Priority != nil && (t.Priority == nil || *t.Priority != *f.Priority) {
		return false
	}
	if f.DueBefore != "" && (t.DueDate == nil || *t.DueDate > f.DueBefore) {
		return false
	}
	if f.DueAfter != "" && (t.DueDate == nil || *t.DueDate < f.DueAfter) {
		return false
	}
	if f.ParentID == nil {
		if t.ParentID != nil {
			return false
		}
	} else if t.ParentID == nil || *t.ParentID != *f.ParentID {
		return false
	}
	return true
}

func compareStrings(a, b string) int {
	return strings.Compare(a, b)
}

// compareNullable orders nil after every value, matching Postgres's
// ASC NULLS LAST / DESC NULLS FIRST defaults once the direction flip below
// is applied.
func compareNullableInt(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}

func compareNullableString(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return strings.Compare(*a, *b)
}

func compareTasks(a, b *models.Task, s query.Sort) bool {
	var cmp int
	switch s.By {
	case query.SortByUpdatedAt:
		cmp = a.UpdatedAt.Compare(b.UpdatedAt)
	case query.SortByDueDate:
		cmp = compareNullableString(a.DueDate, b.DueDate)
	case query.SortByPriority:
		cmp = compareNullableInt(a.Priority, b.Priority)
	case query.SortByEstimateMinutes:
		cmp = compareNullableInt(a.EstimateMinutes, b.EstimateMinutes)
	case query.SortByTitle:
		cmp = compareStrings(a.Title, b.Title)
	default:
		cmp = a.CreatedAt.Compare(b.CreatedAt)
	}
	if cmp == 0 {
		cmp = compareStrings(a.ID, b.ID)
	}
	if s.Order == query.OrderDesc {
		return cmp > 0
	}
	return cmp < 0
}

func (r *MemoryTaskRepository) collect(userID string, f query.Filter) []*models.Task {
	var matched []*models.Task
	for _, t := range r.tasks {
		if t.UserID != userID {
			continue
		}
		if matchesFilter(t, f) {
			matched = append(matched, t)
		}
	}
	return matched
}

func (r *MemoryTaskRepository) Find(
	_ context.Context,
	userID string,
	f query.Filter,
	s query.Sort,
	skip, limit int,
) ([]*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.collect(userID, f)
	sort.Slice(matched, func(i, j int) bool {
		return compareTasks(matched[i], matched[j], s)
	})

	if skip > len(matched) {
		skip = len(matched)
	}
	end := skip + limit
	if end > len(matched) {
		end = len(matched)
	}

	page := make([]*models.Task, 0, end-skip)
	for _, t := range matched[skip:end] {
		page = append(page, copyTask(t))
	}
	return page, nil
}

func (r *MemoryTaskRepository) Count(_ context.Context, userID string, f query.Filter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.collect(userID, f)), nil
}

func (r *MemoryTaskRepository) children(userID, parentID string) []*models.Task {
	var children []*models.Task
	for _, t := range r.tasks {
		if t.UserID != userID || t.ParentID == nil || *t.ParentID != parentID {
			continue
		}
		children = append(children, t)
	}
	sort.Slice(children, func(i, j int) bool {
		cmp := children[i].CreatedAt.Compare(children[j].CreatedAt)
		if cmp == 0 {
			return children[i].ID < children[j].ID
		}
		return cmp < 0
	})
	return children
}

func (r *MemoryTaskRepository) FindChildren(_ context.Context, userID, parentID string) ([]*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	children := r.children(userID, parentID)
	out := make([]*models.Task, 0, len(children))
	for _, t := range children {
		out = append(out, copyTask(t))
	}
	return out, nil
}

func (r *MemoryTaskRepository) FindChildIDs(_ context.Context, userID, parentID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	children := r.children(userID, parentID)
	ids := make([]string, 0, len(children))
	for _, t := range children {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

func (r *MemoryTaskRepository) HasChildren(_ context.Context, userID, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.tasks {
		if t.UserID == userID && t.ParentID != nil && *t.ParentID == id {
			return true, nil
		}
	}
	return false, nil
}

func applyPatch(t *models.Task, patch TaskPatch) {
	if patch.Title.Present {
		t.Title = patch.Title.Value
	}
	if patch.Description.Present {
		t.Description = patch.Description.Ptr()
	}
	if patch.Priority.Present {
		t.Priority = patch.Priority.Ptr()
	}
	if patch.EstimateMinutes.Present {
		t.EstimateMinutes = patch.EstimateMinutes.Ptr()
	}
	if patch.DueDate.Present {
		t.DueDate = patch.DueDate.Ptr()
	}
	if patch.ParentID.Present {
		t.ParentID = patch.ParentID.Ptr()
	}
	if patch.Completed.Present {
		t.Completed = patch.Completed.Value
	}
	if patch.CompletedAt.Present {
		t.CompletedAt = patch.CompletedAt.Ptr()
	}
	t.UpdatedAt = patch.UpdatedAt
}

func (r *MemoryTaskRepository) Update(_ context.Context, userID, id string, patch TaskPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok || task.UserID != userID {
		return ErrNotFound
	}
	applyPatch(task, patch)
	return nil
}

func (r *MemoryTaskRepository) UpdateMany(
	_ context.Context,
	userID string,
	ids []string,
	patch TaskPatch,
) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated int64
	for _, id := range ids {
		task, ok := r.tasks[id]
		if !ok || task.UserID != userID {
			continue
		}
		applyPatch(task, patch)
		updated++
	}
	return updated, nil
}

func (r *MemoryTaskRepository) DeleteOne(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok || task.UserID != userID {
		return ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *MemoryTaskRepository) DeleteMany(_ context.Context, userID string, ids []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for _, id := range ids {
		task, ok := r.tasks[id]
		if !ok || task.UserID != userID {
			continue
		}
		delete(r.tasks, id)
		deleted++
	}
	return deleted, nil
}

// MemoryUserRepository is the in-memory counterpart of the Postgres user
// repository, with the same unique-email behavior.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[string]*models.User),
	}
}

func (r *MemoryUserRepository) Insert(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return ErrEmailTaken
		}
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}
