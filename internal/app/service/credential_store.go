package service

import (
	"context"
	"fmt"
	"strings"

	"taskhub/internal/common"
	"taskhub/internal/common/security"
	"taskhub/internal/domain/model"
	"taskhub/internal/domain/repository"
)

// CredentialStore owns user identities and their password hashes. The hash
// never leaves this type except through FindByEmail, for verification.
type CredentialStore struct {
	users  repository.UserRepository
	hasher *security.PasswordHasher
}

func NewCredentialStore(users repository.UserRepository, hasher *security.PasswordHasher) *CredentialStore {
	return &CredentialStore{users: users, hasher: hasher}
}

func (s *CredentialStore) Create(ctx context.Context, username, email, password string, role model.Role) (*model.User, error) {
	if role == "" {
		role = model.RoleUser
	}
	if !role.Valid() {
		return nil, common.Validationf("role must be one of user, admin")
	}

	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, repository.NewUser{
		Username:     strings.TrimSpace(username),
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*model.User, string, error) {
	creds, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, "", err
	}
	user := creds.User
	return &user, creds.PasswordHash, nil
}

func (s *CredentialStore) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.users.FindByUsername(ctx, strings.TrimSpace(username))
}

func (s *CredentialStore) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *CredentialStore) VerifyPassword(plaintext, hash string) bool {
	return s.hasher.CheckPasswordHash(plaintext, hash)
}

// RejectUnknown spends one hash comparison for a login whose email does not exist.
func (s *CredentialStore) RejectUnknown(plaintext string) {
	s.hasher.BurnComparison(plaintext)
}

func (s *CredentialStore) List(ctx context.Context, filter model.UserFilter) ([]model.User, int, error) {
	return s.users.List(ctx, filter)
}

func (s *CredentialStore) Update(ctx context.Context, id int64, update model.UserUpdate) (*model.User, error) {
	update, err := normalizeUserUpdate(update)
	if err != nil {
		return nil, err
	}
	return s.users.Update(ctx, id, update)
}

func (s *CredentialStore) Delete(ctx context.Context, id int64) (bool, error) {
	return s.users.Delete(ctx, id)
}
