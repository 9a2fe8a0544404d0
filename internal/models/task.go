package models

import "time"

// Task is a single task record. Optional attributes are pointers so that
// "not set" is representable; ParentID is nil for root tasks.
type Task struct {
	ID              string
	UserID          string
	Title           string
	Description     *string
	Priority        *int
	EstimateMinutes *int
	DueDate         *string
	ParentID        *string
	Completed       bool
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TaskTree is a task with its subtasks attached. Subtasks is nil when the
// tree was not materialized and an empty slice for a leaf.
type TaskTree struct {
	Task
	Subtasks []*TaskTree
}
