package service

import (
	"context"
	"taskhub/internal/common"
	"taskhub/internal/domain/model"
	"taskhub/internal/domain/policy"
)

type UserService struct {
	creds *CredentialStore
}

func NewUserService(creds *CredentialStore) *UserService {
	return &UserService{creds: creds}
}

type UserListQuery struct {
	Role     model.Role
	Search   string
	Page     int
	PageSize int
}

type UserPage struct {
	Users    []model.User `json:"users"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

// ListUsers backs an admin-only route; a non-admin gets ErrForbidden, not a 404.
func (s *UserService) ListUsers(ctx context.Context, p model.Principal, q UserListQuery) (*UserPage, error) {
	if !p.IsAdmin() {
		return nil, common.ErrForbidden
	}
	if q.Role != "" && !q.Role.Valid() {
		return nil, common.Validationf("role must be one of user, admin")
	}
	page, pageSize, limit, offset, err := pageBounds(q.Page, q.PageSize)
	if err != nil {
		return nil, err
	}
	users, total, err := s.creds.List(ctx, model.UserFilter{
		Role:   q.Role,
		Search: q.Search,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}
	return &UserPage{Users: users, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *UserService) GetUser(ctx context.Context, p model.Principal, id int64) (*model.User, error) {
	if err := authorizeUser(p, id, policy.OpRead); err != nil {
		return nil, err
	}
	return s.creds.FindByID(ctx, id)
}

func (s *UserService) UpdateUser(ctx context.Context, p model.Principal, id int64, update model.UserUpdate) (*model.User, error) {
	if err := authorizeUser(p, id, policy.OpUpdate); err != nil {
		return nil, err
	}
	if update.Role.Set {
		// The target is already known to be visible, so a plain 403 leaks nothing.
		if d := policy.CanAssignRole(p); !d.Allowed() {
			return nil, common.ErrForbidden
		}
	}
	return s.creds.Update(ctx, id, update)
}

// DeleteUser removes a user and, through the store, all of their tasks.
// Admins cannot delete themselves.
func (s *UserService) DeleteUser(ctx context.Context, p model.Principal, id int64) error {
	if err := authorizeUser(p, id, policy.OpDelete); err != nil {
		return err
	}
	if d := policy.CanSelfDelete(p, id); !d.Allowed() {
		return common.ErrSelfDeletion
	}
	deleted, err := s.creds.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return common.ErrNotFound
	}
	return nil
}

func authorizeUser(p model.Principal, id int64, op policy.Operation) error {
	if id <= 0 {
		return common.ErrNotFound
	}
	if d := policy.CanAccessUser(p, id, op); !d.Allowed() {
		return &common.AccessDeniedError{Resource: "user", ID: id, Reason: d.String()}
	}
	return nil
}
