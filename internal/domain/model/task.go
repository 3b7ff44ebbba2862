package model

import (
	"time"
)

type TaskStatus string
type TaskPriority string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"

	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

const (
	MaxTaskTitleLength       = 200
	MaxTaskDescriptionLength = 5000
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Task struct {
	ID          int64        `json:"id" db:"id"`
	Title       string       `json:"title" db:"title"`
	Description *string      `json:"description,omitempty" db:"description"`
	Status      TaskStatus   `json:"status" db:"status"`
	Priority    TaskPriority `json:"priority" db:"priority"`
	DueDate     *time.Time   `json:"due_date,omitempty" db:"due_date"`
	OwnerID     int64        `json:"user_id" db:"user_id"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// TaskUpdate lists the mutable task fields. Ownership is not among them.
type TaskUpdate struct {
	Title       Optional[string]       `json:"title"`
	Description Optional[string]       `json:"description"`
	Status      Optional[TaskStatus]   `json:"status"`
	Priority    Optional[TaskPriority] `json:"priority"`
	DueDate     Optional[time.Time]    `json:"due_date"`
}

func (u TaskUpdate) Empty() bool {
	return !u.Title.Set && !u.Description.Set && !u.Status.Set && !u.Priority.Set && !u.DueDate.Set
}

type TaskSortField string

const (
	SortByCreatedAt TaskSortField = "created_at"
	SortByUpdatedAt TaskSortField = "updated_at"
	SortByDueDate   TaskSortField = "due_date"
	SortByPriority  TaskSortField = "priority"
	SortByTitle     TaskSortField = "title"
)

func (f TaskSortField) Valid() bool {
	switch f {
	case SortByCreatedAt, SortByUpdatedAt, SortByDueDate, SortByPriority, SortByTitle:
		return true
	}
	return false
}

type TaskFilter struct {
	OwnerID    *int64 // nil means every owner
	Status     TaskStatus
	Priority   TaskPriority
	Search     string
	SortBy     TaskSortField
	Descending bool
	Limit      int
	Offset     int
}

type TaskStats struct {
	Total      int `json:"total" db:"total"`
	Pending    int `json:"pending" db:"pending"`
	InProgress int `json:"in_progress" db:"in_progress"`
	Completed  int `json:"completed" db:"completed"`
	Cancelled  int `json:"cancelled" db:"cancelled"`
	Overdue    int `json:"overdue" db:"overdue"`
}
