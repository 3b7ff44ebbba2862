package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"taskhub/internal/common"
	"taskhub/internal/common/security"
	"taskhub/internal/domain/model"
	"taskhub/internal/domain/policy"
)

// LoginLimiter tracks failed login attempts per identifier.
type LoginLimiter interface {
	Allow(ctx context.Context, identifier string) (bool, error)
	RecordFailure(ctx context.Context, identifier string) error
	Reset(ctx context.Context, identifier string) error
}

type AuthService struct {
	creds            *CredentialStore
	tokens           *security.TokenService
	limiter          LoginLimiter
	allowAdminSignup bool
	log              *slog.Logger
}

func NewAuthService(creds *CredentialStore, tokens *security.TokenService, limiter LoginLimiter, allowAdminSignup bool, log *slog.Logger) *AuthService {
	return &AuthService{
		creds:            creds,
		tokens:           tokens,
		limiter:          limiter,
		allowAdminSignup: allowAdminSignup,
		log:              log,
	}
}

type RegisterRequest struct {
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     model.Role `json:"role,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type AuthResponse struct {
	User         *model.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	username := strings.TrimSpace(req.Username)
	email := normalizeEmail(req.Email)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = model.RoleUser
	}
	if !role.Valid() {
		return nil, common.Validationf("role must be one of user, admin")
	}
	if role == model.RoleAdmin && !s.allowAdminSignup {
		s.log.Warn("admin role requested at signup while disabled, registering as user", "username", username)
		role = model.RoleUser
	}

	user, err := s.creds.Create(ctx, username, email, req.Password, role)
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered", "user_id", user.ID, "role", user.Role)
	return s.issuePair(user)
}

// Login answers unknown email and wrong password with the same error.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, common.Validationf("email and password are required")
	}

	allowed, err := s.limiter.Allow(ctx, email)
	if err != nil {
		s.log.Warn("login limiter unavailable, allowing attempt", "error", err)
	} else if !allowed {
		return nil, common.ErrTooManyAttempts
	}

	user, hash, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.creds.RejectUnknown(req.Password)
			s.recordFailure(ctx, email)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.creds.VerifyPassword(req.Password, hash) {
		s.recordFailure(ctx, email)
		return nil, common.ErrInvalidCredentials
	}

	if err := s.limiter.Reset(ctx, email); err != nil {
		s.log.Warn("failed to reset login failures", "error", err)
	}
	return s.issuePair(user)
}

// Refresh issues a new access token carrying the role currently in storage,
// never a role remembered by the refresh token.
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error) {
	claims, err := s.tokens.VerifyRefresh(strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return nil, err
	}

	user, err := s.creds.FindByID(ctx, claims.SubjectID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: refresh subject %d no longer exists", common.ErrUnauthenticated, claims.SubjectID)
		}
		return nil, fmt.Errorf("failed to load refresh subject: %w", err)
	}

	access, err := s.tokens.IssueAccess(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &RefreshResponse{AccessToken: access}, nil
}

func (s *AuthService) Me(ctx context.Context, p model.Principal) (*model.User, error) {
	return s.creds.FindByID(ctx, p.ID)
}

// UpdateMe changes the caller's own username or email. ProfileUpdate cannot carry a role.
func (s *AuthService) UpdateMe(ctx context.Context, p model.Principal, update model.ProfileUpdate) (*model.User, error) {
	if d := policy.CanAccessUser(p, p.ID, policy.OpUpdate); !d.Allowed() {
		return nil, &common.AccessDeniedError{Resource: "user", ID: p.ID, Reason: d.String()}
	}
	return s.creds.Update(ctx, p.ID, update.UserUpdate())
}

func (s *AuthService) issuePair(user *model.User) (*AuthResponse, error) {
	access, err := s.tokens.IssueAccess(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) recordFailure(ctx context.Context, email string) {
	if err := s.limiter.RecordFailure(ctx, email); err != nil {
		s.log.Warn("failed to record login failure", "error", err)
	}
}
