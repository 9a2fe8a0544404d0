package repository

import (
	"fmt"
	"strings"

	"github.com/avdeyev/go-task-tracker/internal/query"
)

// likeEscaper neutralizes the characters LIKE treats specially so a search
// term always matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// buildTaskFilter turns a declarative filter into a WHERE clause and its
// positional arguments. The clause always scopes by user_id first so the
// planner can lean on the (user_id, parent_id) index.
func buildTaskFilter(userID string, f query.Filter) (string, []any) {
	conds := []string{"user_id = $1"}
	args := []any{userID}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Search != "" {
		p := arg("%" + escapeLike(f.Search) + "%")
		conds = append(conds, fmt.Sprintf(
			`(title ILIKE %s ESCAPE '\' OR description ILIKE %s ESCAPE '\')`, p, p))
	}
	if f.Completed != nil {
		conds = append(conds, "completed = "+arg(*f.Completed))
	}
	if f.Priority != nil {
		conds = append(conds, "priority = "+arg(*f.Priority))
	}
	if f.DueBefore != "" {
		conds = append(conds, "due_date <= "+arg(f.DueBefore))
	}
	if f.DueAfter != "" {
		conds = append(conds, "due_date >= "+arg(f.DueAfter))
	}
	if f.ParentID != nil {
		conds = append(conds, "parent_id = "+arg(*f.ParentID))
	} else {
		conds = append(conds, "parent_id IS NULL")
	}

	return strings.Join(conds, " AND "), args
}

var sortColumns = map[string]string{
	query.SortByCreatedAt:       "created_at",
	query.SortByUpdatedAt:       "updated_at",
	query.SortByDueDate:         "due_date",
	query.SortByPriority:        "priority",
	query.SortByEstimateMinutes: "estimate_minutes",
	query.SortByTitle:           "title",
}

// buildOrderBy maps a sort choice onto an ORDER BY clause with an id
// tie-break in the same direction. Unknown sort keys fall back to
// created_at rather than reaching the SQL text.
func buildOrderBy(sort query.Sort) string {
	col, ok := sortColumns[sort.By]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if sort.Order == query.OrderAsc {
		dir = "ASC"
	}
	return fmt.Sprintf("ORDER BY %s %s, id %s", col, dir, dir)
}

// buildTaskPatch assembles the SET clause for a sparse update. Arguments
// are numbered from 1; callers append their own WHERE arguments after.
func buildTaskPatch(p TaskPatch) (string, []any) {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if p.Title.Present {
		set("title", p.Title.Value)
	}
	if p.Description.Present {
		set("description", p.Description.Ptr())
	}
	if p.Priority.Present {
		set("priority", p.Priority.Ptr())
	}
	if p.EstimateMinutes.Present {
		set("estimate_minutes", p.EstimateMinutes.Ptr())
	}
	if p.DueDate.Present {
		set("due_date", p.DueDate.Ptr())
	}
	if p.ParentID.Present {
		set("parent_id", p.ParentID.Ptr())
	}
	if p.Completed.Present {
		set("completed", p.Completed.Value)
	}
	if p.CompletedAt.Present {
		set("completed_at", p.CompletedAt.Ptr())
	}
	set("updated_at", p.UpdatedAt)

	return strings.Join(sets, ", "), args
}
