package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskhub/internal/common"
	"taskhub/internal/domain/model"

	"github.com/jmoiron/sqlx"
)

type NewTask struct {
	OwnerID     int64
	Title       string
	Description *string
	Status      model.TaskStatus
	Priority    model.TaskPriority
	DueDate     *time.Time
}

type TaskRepository interface {
	Create(ctx context.Context, task NewTask) (*model.Task, error)
	FindByID(ctx context.Context, id int64) (*model.Task, error)
	List(ctx context.Context, filter model.TaskFilter) ([]model.Task, int, error)
	Update(ctx context.Context, id int64, update model.TaskUpdate) (*model.Task, error)
	Delete(ctx context.Context, id int64) (bool, error)
	StatsByOwner(ctx context.Context, ownerID int64, now time.Time) (*model.TaskStats, error)
}

type pgTaskRepository struct {
	db *sqlx.DB
}

func NewPgTaskRepository(db *sqlx.DB) TaskRepository {
	return &pgTaskRepository{db: db}
}

const taskColumns = `id, title, description, status, priority, due_date, user_id, created_at, updated_at`

func (r *pgTaskRepository) Create(ctx context.Context, nt NewTask) (*model.Task, error) {
	query := `INSERT INTO tasks (title, description, status, priority, due_date, user_id)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING ` + taskColumns
	task := &model.Task{}
	err := r.db.GetContext(ctx, task, query, nt.Title, nt.Description, nt.Status, nt.Priority, nt.DueDate, nt.OwnerID)
	if err != nil {
		if common.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("task owner %d no longer exists: %w", nt.OwnerID, common.ErrNotFound)
		}
		return nil, fmt.Errorf("pgTaskRepository.Create: %w", err)
	}
	return task, nil
}

func (r *pgTaskRepository) FindByID(ctx context.Context, id int64) (*model.Task, error) {
	task := &model.Task{}
	err := r.db.GetContext(ctx, task, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgTaskRepository.FindByID: %w", err)
	}
	return task, nil
}

// sortColumns maps accepted sort fields to SQL; anything else falls back to created_at.
var sortColumns = map[model.TaskSortField]string{
	model.SortByCreatedAt: "created_at",
	model.SortByUpdatedAt: "updated_at",
	model.SortByDueDate:   "due_date",
	model.SortByTitle:     "lower(title)",
	model.SortByPriority:  "CASE priority WHEN 'urgent' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END",
}

// List applies the owner scope in the WHERE clause, so rows of other owners
// never leave the database for a scoped caller.
func (r *pgTaskRepository) List(ctx context.Context, f model.TaskFilter) ([]model.Task, int, error) {
	var (
		conds []string
		args  []interface{}
	)
	if f.OwnerID != nil {
		args = append(args, *f.OwnerID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Priority != "" {
		args = append(args, f.Priority)
		conds = append(conds, fmt.Sprintf("priority = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, containsPattern(s))
		conds = append(conds, fmt.Sprintf(`(title ILIKE $%d ESCAPE '\' OR description ILIKE $%d ESCAPE '\')`, len(args), len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM tasks`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("pgTaskRepository.List count: %w", err)
	}

	orderBy, ok := sortColumns[f.SortBy]
	if !ok {
		orderBy = sortColumns[model.SortByCreatedAt]
	}
	direction := "ASC"
	if f.Descending {
		direction = "DESC"
	}

	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM tasks%s ORDER BY %s %s NULLS LAST, id %s LIMIT $%d OFFSET $%d`,
		taskColumns, where, orderBy, direction, direction, len(args)-1, len(args))

	tasks := []model.Task{}
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, 0, fmt.Errorf("pgTaskRepository.List: %w", err)
	}
	return tasks, total, nil
}

func (r *pgTaskRepository) Update(ctx context.Context, id int64, u model.TaskUpdate) (*model.Task, error) {
	if u.Empty() {
		return nil, common.ErrNoFieldsToUpdate
	}
	var (
		sets []string
		args []interface{}
	)
	set := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if u.Title.Set {
		set("title", u.Title.Value)
	}
	if u.Description.Set {
		set("description", u.Description.Ptr())
	}
	if u.Status.Set {
		set("status", u.Status.Value)
	}
	if u.Priority.Set {
		set("priority", u.Priority.Value)
	}
	if u.DueDate.Set {
		set("due_date", u.DueDate.Ptr())
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE tasks SET %s, updated_at = CURRENT_TIMESTAMP WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), taskColumns)

	task := &model.Task{}
	if err := r.db.GetContext(ctx, task, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgTaskRepository.Update: %w", err)
	}
	return task, nil
}

func (r *pgTaskRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("pgTaskRepository.Delete: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgTaskRepository.Delete: %w", err)
	}
	return affected > 0, nil
}

func (r *pgTaskRepository) StatsByOwner(ctx context.Context, ownerID int64, now time.Time) (*model.TaskStats, error) {
	query := `
        SELECT COUNT(*) AS total,
               COUNT(*) FILTER (WHERE status = 'pending') AS pending,
               COUNT(*) FILTER (WHERE status = 'in_progress') AS in_progress,
               COUNT(*) FILTER (WHERE status = 'completed') AS completed,
               COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled,
               COUNT(*) FILTER (WHERE due_date < $2 AND status NOT IN ('completed', 'cancelled')) AS overdue
        FROM tasks
        WHERE user_id = $1`

	stats := &model.TaskStats{}
	if err := r.db.GetContext(ctx, stats, query, ownerID, now); err != nil {
		return nil, fmt.Errorf("pgTaskRepository.StatsByOwner: %w", err)
	}
	return stats, nil
}
