package security

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"taskhub/internal/common"
	"taskhub/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	claimRole      = "role"
	claimTokenType = "typ"

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type AccessClaims struct {
	SubjectID int64
	Role      model.Role
}

type RefreshClaims struct {
	SubjectID int64
}

// TokenService signs access and refresh tokens with independent HMAC secrets.
type TokenService struct {
	access     *jwtauth.JWTAuth
	refresh    *jwtauth.JWTAuth
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("access and refresh secrets are required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	return &TokenService{
		access:     jwtauth.New("HS256", cfg.AccessSecret, nil),
		refresh:    jwtauth.New("HS256", cfg.RefreshSecret, nil),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

func (s *TokenService) IssueAccess(subjectID int64, role model.Role) (string, error) {
	claims := s.baseClaims(subjectID, tokenTypeAccess, s.accessTTL)
	claims[claimRole] = string(role)
	_, tokenString, err := s.access.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return tokenString, nil
}

// IssueRefresh deliberately leaves the role out; refresh re-reads it from storage.
func (s *TokenService) IssueRefresh(subjectID int64) (string, error) {
	claims := s.baseClaims(subjectID, tokenTypeRefresh, s.refreshTTL)
	_, tokenString, err := s.refresh.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return tokenString, nil
}

func (s *TokenService) VerifyAccess(tokenString string) (AccessClaims, error) {
	claims, err := s.verify(s.access, tokenString, tokenTypeAccess)
	if err != nil {
		return AccessClaims{}, err
	}
	subjectID, err := GetUserIDFromClaims(claims)
	if err != nil {
		return AccessClaims{}, fmt.Errorf("%w: %v", common.ErrInvalidOrExpiredToken, err)
	}
	role, err := GetUserRoleFromClaims(claims)
	if err != nil {
		return AccessClaims{}, fmt.Errorf("%w: %v", common.ErrInvalidOrExpiredToken, err)
	}
	return AccessClaims{SubjectID: subjectID, Role: role}, nil
}

func (s *TokenService) VerifyRefresh(tokenString string) (RefreshClaims, error) {
	claims, err := s.verify(s.refresh, tokenString, tokenTypeRefresh)
	if err != nil {
		return RefreshClaims{}, err
	}
	subjectID, err := GetUserIDFromClaims(claims)
	if err != nil {
		return RefreshClaims{}, fmt.Errorf("%w: %v", common.ErrInvalidOrExpiredToken, err)
	}
	return RefreshClaims{SubjectID: subjectID}, nil
}

func (s *TokenService) baseClaims(subjectID int64, tokenType string, ttl time.Duration) jwt.MapClaims {
	now := s.now()
	return jwt.MapClaims{
		"sub":          strconv.FormatInt(subjectID, 10),
		"jti":          uuid.NewString(),
		"iat":          now.Unix(),
		"exp":          now.Add(ttl).Unix(),
		claimTokenType: tokenType,
	}
}

// verify checks signature and expiry against one secret, then the token type.
func (s *TokenService) verify(ja *jwtauth.JWTAuth, tokenString, wantType string) (jwt.MapClaims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty token", common.ErrInvalidOrExpiredToken)
	}
	token, err := jwtauth.VerifyToken(ja, tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidOrExpiredToken, err)
	}
	raw, err := token.AsMap(context.Background())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidOrExpiredToken, err)
	}
	claims := jwt.MapClaims(raw)
	if typ, _ := claims[claimTokenType].(string); typ != wantType {
		return nil, fmt.Errorf("%w: unexpected token type %q", common.ErrInvalidOrExpiredToken, typ)
	}
	return claims, nil
}

// Helper functions to extract claims
func GetUserIDFromClaims(claims jwt.MapClaims) (int64, error) {
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return 0, errors.New("sub claim is missing or not a string")
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("sub claim %q is not a user id", sub)
	}
	return id, nil
}

func GetUserRoleFromClaims(claims jwt.MapClaims) (model.Role, error) {
	role, ok := claims[claimRole].(string)
	if !ok {
		return "", errors.New("role claim is missing or not a string")
	}
	if !model.Role(role).Valid() {
		return "", fmt.Errorf("role claim %q is not a known role", role)
	}
	return model.Role(role), nil
}
