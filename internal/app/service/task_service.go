package service

import (
	"context"
	"strings"
	"time"

	"taskhub/internal/common"
	"taskhub/internal/domain/model"
	"taskhub/internal/domain/policy"
	"taskhub/internal/domain/repository"
)

type TaskService struct {
	tasks repository.TaskRepository
	now   func() time.Time
}

func NewTaskService(tasks repository.TaskRepository) *TaskService {
	return &TaskService{tasks: tasks, now: time.Now}
}

type CreateTaskRequest struct {
	Title       string             `json:"title"`
	Description *string            `json:"description,omitempty"`
	Status      model.TaskStatus   `json:"status,omitempty"`
	Priority    model.TaskPriority `json:"priority,omitempty"`
	DueDate     *time.Time         `json:"due_date,omitempty"`
}

type TaskListQuery struct {
	Status   model.TaskStatus
	Priority model.TaskPriority
	Search   string
	SortBy   model.TaskSortField
	Order    string // "asc" or "desc"
	Page     int
	PageSize int
}

type TaskPage struct {
	Tasks    []model.Task `json:"tasks"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

// CreateTask always assigns the task to the caller.
func (s *TaskService) CreateTask(ctx context.Context, p model.Principal, req CreateTaskRequest) (*model.Task, error) {
	title := strings.TrimSpace(req.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	description := req.Description
	if description != nil {
		if err := validateDescription(*description); err != nil {
			return nil, err
		}
		if strings.TrimSpace(*description) == "" {
			description = nil
		}
	}

	status := req.Status
	if status == "" {
		status = model.TaskStatusPending
	}
	if !status.Valid() {
		return nil, common.Validationf("status must be one of pending, in_progress, completed, cancelled")
	}
	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !priority.Valid() {
		return nil, common.Validationf("priority must be one of low, medium, high, urgent")
	}

	return s.tasks.Create(ctx, repository.NewTask{
		OwnerID:     p.ID,
		Title:       title,
		Description: description,
		Status:      status,
		Priority:    priority,
		DueDate:     req.DueDate,
	})
}

func (s *TaskService) GetTask(ctx context.Context, p model.Principal, id int64) (*model.Task, error) {
	return s.authorizedTask(ctx, p, id, policy.OpRead)
}

func (s *TaskService) ListTasks(ctx context.Context, p model.Principal, q TaskListQuery) (*TaskPage, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, common.Validationf("status must be one of pending, in_progress, completed, cancelled")
	}
	if q.Priority != "" && !q.Priority.Valid() {
		return nil, common.Validationf("priority must be one of low, medium, high, urgent")
	}
	if q.SortBy != "" && !q.SortBy.Valid() {
		return nil, common.Validationf("sort_by must be one of created_at, updated_at, due_date, priority, title")
	}
	order := strings.ToLower(q.Order)
	if order != "" && order != "asc" && order != "desc" {
		return nil, common.Validationf("order must be asc or desc")
	}
	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = model.SortByCreatedAt
	}
	// Newest first unless the caller asks otherwise.
	descending := order == "desc" || (order == "" && q.SortBy == "")

	page, pageSize, limit, offset, err := pageBounds(q.Page, q.PageSize)
	if err != nil {
		return nil, err
	}
	tasks, total, err := s.tasks.List(ctx, model.TaskFilter{
		OwnerID:    policy.TaskListScope(p),
		Status:     q.Status,
		Priority:   q.Priority,
		Search:     q.Search,
		SortBy:     sortBy,
		Descending: descending,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, err
	}
	return &TaskPage{Tasks: tasks, Total: total, Page: page, PageSize: pageSize}, nil
}

// UpdateTask validates the whole update before loading anything, so a bad
// payload never results in a partial write.
func (s *TaskService) UpdateTask(ctx context.Context, p model.Principal, id int64, update model.TaskUpdate) (*model.Task, error) {
	update, err := normalizeTaskUpdate(update)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizedTask(ctx, p, id, policy.OpUpdate); err != nil {
		return nil, err
	}
	return s.tasks.Update(ctx, id, update)
}

func (s *TaskService) DeleteTask(ctx context.Context, p model.Principal, id int64) error {
	if _, err := s.authorizedTask(ctx, p, id, policy.OpDelete); err != nil {
		return err
	}
	deleted, err := s.tasks.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return common.ErrNotFound
	}
	return nil
}

// Stats only ever counts the caller's own tasks, admins included.
func (s *TaskService) Stats(ctx context.Context, p model.Principal) (*model.TaskStats, error) {
	return s.tasks.StatsByOwner(ctx, p.ID, s.now())
}

func (s *TaskService) authorizedTask(ctx context.Context, p model.Principal, id int64, op policy.Operation) (*model.Task, error) {
	if id <= 0 {
		return nil, common.ErrNotFound
	}
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := policy.CanAccessTask(p, task, op); !d.Allowed() {
		return nil, &common.AccessDeniedError{Resource: "task", ID: id, Reason: d.String()}
	}
	return task, nil
}
