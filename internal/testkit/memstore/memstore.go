// Package memstore keeps users and tasks in memory behind the repository
// interfaces. Deleting a user removes their tasks, like the ON DELETE CASCADE
// in the Postgres schema.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"taskhub/internal/common"
	"taskhub/internal/domain/model"
	"taskhub/internal/domain/repository"
)

type Store struct {
	mu         sync.Mutex
	now        func() time.Time
	nextUserID int64
	nextTaskID int64
	users      map[int64]*repository.UserCredentials
	tasks      map[int64]*model.Task
}

func New() *Store {
	return &Store{
		now:   func() time.Time { return time.Now().UTC() },
		users: make(map[int64]*repository.UserCredentials),
		tasks: make(map[int64]*model.Task),
	}
}

func (s *Store) Users() repository.UserRepository { return userRepo{s} }

func (s *Store) Tasks() repository.TaskRepository { return taskRepo{s} }

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, nu repository.NewUser) (*model.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identityTaken(0, nu.Username, nu.Email) {
		return nil, common.ErrDuplicateIdentity
	}
	s.nextUserID++
	now := s.now()
	creds := &repository.UserCredentials{
		User: model.User{
			ID:        s.nextUserID,
			Username:  nu.Username,
			Email:     nu.Email,
			Role:      nu.Role,
			CreatedAt: now,
			UpdatedAt: now,
		},
		PasswordHash: nu.PasswordHash,
	}
	s.users[creds.ID] = creds
	user := creds.User
	return &user, nil
}

// identityTaken reports whether another user already holds username or email.
func (s *Store) identityTaken(exceptID int64, username, email string) bool {
	for id, u := range s.users {
		if id == exceptID {
			continue
		}
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return true
		}
	}
	return false
}

func (r userRepo) FindByEmail(_ context.Context, email string) (*repository.UserCredentials, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r userRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == username {
			user := u.User
			return &user, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r userRepo) FindByID(_ context.Context, id int64) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	user := u.User
	return &user, nil
}

func (r userRepo) List(_ context.Context, f model.UserFilter) ([]model.User, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	matched := []model.User{}
	for _, u := range r.s.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(u.Username), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		matched = append(matched, u.User)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, f.Limit, f.Offset), len(matched), nil
}

func (r userRepo) Update(_ context.Context, id int64, upd model.UserUpdate) (*model.User, error) {
	if upd.Empty() {
		return nil, common.ErrNoFieldsToUpdate
	}
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	var username, email string
	if upd.Username.Set {
		username = upd.Username.Value
	}
	if upd.Email.Set {
		email = upd.Email.Value
	}
	if s.identityTaken(id, username, email) {
		return nil, common.ErrDuplicateIdentity
	}
	if upd.Username.Set {
		u.Username = upd.Username.Value
	}
	if upd.Email.Set {
		u.Email = upd.Email.Value
	}
	if upd.Role.Set {
		u.Role = upd.Role.Value
	}
	u.UpdatedAt = s.now()
	user := u.User
	return &user, nil
}

func (r userRepo) Delete(_ context.Context, id int64) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return false, nil
	}
	delete(s.users, id)
	for tid, t := range s.tasks {
		if t.OwnerID == id {
			delete(s.tasks, tid)
		}
	}
	return true, nil
}

type taskRepo struct{ s *Store }

func (r taskRepo) Create(_ context.Context, nt repository.NewTask) (*model.Task, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	// Mirrors the users foreign key: an owner deleted after authenticating is absent.
	if _, ok := s.users[nt.OwnerID]; !ok {
		return nil, common.ErrNotFound
	}
	s.nextTaskID++
	now := s.now()
	t := &model.Task{
		ID:          s.nextTaskID,
		Title:       nt.Title,
		Description: nt.Description,
		Status:      nt.Status,
		Priority:    nt.Priority,
		DueDate:     nt.DueDate,
		OwnerID:     nt.OwnerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.tasks[t.ID] = t
	c := *t
	return &c, nil
}

func (r taskRepo) FindByID(_ context.Context, id int64) (*model.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tasks[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *t
	return &c, nil
}

var priorityRank = map[model.TaskPriority]int{
	model.PriorityLow:    1,
	model.PriorityMedium: 2,
	model.PriorityHigh:   3,
	model.PriorityUrgent: 4,
}

func (r taskRepo) List(_ context.Context, f model.TaskFilter) ([]model.Task, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	matched := []model.Task{}
	for _, t := range r.s.tasks {
		if f.OwnerID != nil && t.OwnerID != *f.OwnerID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Title), search) &&
			(t.Description == nil || !strings.Contains(strings.ToLower(*t.Description), search)) {
			continue
		}
		matched = append(matched, *t)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		// Missing due dates sort last in both directions.
		if f.SortBy == model.SortByDueDate && (a.DueDate == nil) != (b.DueDate == nil) {
			return b.DueDate == nil
		}
		c := compareTasks(a, b, f.SortBy)
		if c == 0 {
			c = compareInt64(a.ID, b.ID)
		}
		if f.Descending {
			return c > 0
		}
		return c < 0
	})
	return paginate(matched, f.Limit, f.Offset), len(matched), nil
}

func compareTasks(a, b model.Task, field model.TaskSortField) int {
	switch field {
	case model.SortByUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case model.SortByDueDate:
		if a.DueDate == nil || b.DueDate == nil {
			return 0
		}
		return a.DueDate.Compare(*b.DueDate)
	case model.SortByPriority:
		return priorityRank[a.Priority] - priorityRank[b.Priority]
	case model.SortByTitle:
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (r taskRepo) Update(_ context.Context, id int64, u model.TaskUpdate) (*model.Task, error) {
	if u.Empty() {
		return nil, common.ErrNoFieldsToUpdate
	}
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	if u.Title.Set {
		t.Title = u.Title.Value
	}
	if u.Description.Set {
		t.Description = u.Description.Ptr()
	}
	if u.Status.Set {
		t.Status = u.Status.Value
	}
	if u.Priority.Set {
		t.Priority = u.Priority.Value
	}
	if u.DueDate.Set {
		t.DueDate = u.DueDate.Ptr()
	}
	t.UpdatedAt = s.now()
	c := *t
	return &c, nil
}

func (r taskRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tasks[id]; !ok {
		return false, nil
	}
	delete(r.s.tasks, id)
	return true, nil
}

func (r taskRepo) StatsByOwner(_ context.Context, ownerID int64, now time.Time) (*model.TaskStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stats := &model.TaskStats{}
	for _, t := range r.s.tasks {
		if t.OwnerID != ownerID {
			continue
		}
		stats.Total++
		switch t.Status {
		case model.TaskStatusPending:
			stats.Pending++
		case model.TaskStatusInProgress:
			stats.InProgress++
		case model.TaskStatusCompleted:
			stats.Completed++
		case model.TaskStatusCancelled:
			stats.Cancelled++
		}
		if t.DueDate != nil && t.DueDate.Before(now) &&
			t.Status != model.TaskStatusCompleted && t.Status != model.TaskStatusCancelled {
			stats.Overdue++
		}
	}
	return stats, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 || offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
