package security

import (
	"errors"
	"testing"
	"time"

	"taskhub/internal/common"
	"taskhub/internal/domain/model"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()

	svc, err := NewTokenService(TokenConfig{
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to create token service: %v", err)
	}
	return svc
}

func TestTokenService_AccessRoundTrip(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)

	token, err := svc.IssueAccess(42, model.RoleAdmin)
	if err != nil {
		t.Fatalf("IssueAccess returned error: %v", err)
	}

	claims, err := svc.VerifyAccess(token)
	if err != nil {
		t.Fatalf("VerifyAccess returned error: %v", err)
	}
	if claims.SubjectID != 42 {
		t.Fatalf("expected subject 42, got %d", claims.SubjectID)
	}
	if claims.Role != model.RoleAdmin {
		t.Fatalf("expected role admin, got %q", claims.Role)
	}
}

func TestTokenService_RefreshRoundTrip(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)

	token, err := svc.IssueRefresh(7)
	if err != nil {
		t.Fatalf("IssueRefresh returned error: %v", err)
	}

	claims, err := svc.VerifyRefresh(token)
	if err != nil {
		t.Fatalf("VerifyRefresh returned error: %v", err)
	}
	if claims.SubjectID != 7 {
		t.Fatalf("expected subject 7, got %d", claims.SubjectID)
	}
}

func TestTokenService_TokensAreDistinct(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)

	first, _ := svc.IssueAccess(1, model.RoleUser)
	second, _ := svc.IssueAccess(1, model.RoleUser)
	refresh, _ := svc.IssueRefresh(1)

	if first == second {
		t.Fatal("expected two access tokens issued in the same second to differ")
	}
	if first == refresh {
		t.Fatal("expected access and refresh tokens to differ")
	}
}

func TestTokenService_CrossSecretRejection(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)

	access, err := svc.IssueAccess(1, model.RoleUser)
	if err != nil {
		t.Fatalf("IssueAccess returned error: %v", err)
	}
	refresh, err := svc.IssueRefresh(1)
	if err != nil {
		t.Fatalf("IssueRefresh returned error: %v", err)
	}

	if _, err := svc.VerifyAccess(refresh); !errors.Is(err, common.ErrInvalidOrExpiredToken) {
		t.Fatalf("expected refresh token to be rejected as access token, got %v", err)
	}
	if _, err := svc.VerifyRefresh(access); !errors.Is(err, common.ErrInvalidOrExpiredToken) {
		t.Fatalf("expected access token to be rejected as refresh token, got %v", err)
	}
}

func TestTokenService_RejectsForeignSignature(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)
	other, err := NewTokenService(TokenConfig{
		AccessSecret:  []byte("attacker-access"),
		RefreshSecret: []byte("attacker-refresh"),
		AccessTTL:     time.Hour,
		RefreshTTL:    time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to create token service: %v", err)
	}

	forged, err := other.IssueAccess(1, model.RoleAdmin)
	if err != nil {
		t.Fatalf("IssueAccess returned error: %v", err)
	}
	if _, err := svc.VerifyAccess(forged); !errors.Is(err, common.ErrInvalidOrExpiredToken) {
		t.Fatalf("expected forged token to be rejected, got %v", err)
	}
}

func TestTokenService_RejectsExpired(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)
	svc.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }

	access, err := svc.IssueAccess(1, model.RoleUser)
	if err != nil {
		t.Fatalf("IssueAccess returned error: %v", err)
	}
	refresh, err := svc.IssueRefresh(1)
	if err != nil {
		t.Fatalf("IssueRefresh returned error: %v", err)
	}

	if _, err := svc.VerifyAccess(access); !errors.Is(err, common.ErrInvalidOrExpiredToken) {
		t.Fatalf("expected expired access token to be rejected, got %v", err)
	}
	if _, err := svc.VerifyRefresh(refresh); !errors.Is(err, common.ErrInvalidOrExpiredToken) {
		t.Fatalf("expected expired refresh token to be rejected, got %v", err)
	}
}

func TestTokenService_RejectsMalformed(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := svc.VerifyAccess(token); !errors.Is(err, common.ErrInvalidOrExpiredToken) {
			t.Fatalf("expected %q to be rejected, got %v", token, err)
		}
	}
}

func TestTokenService_RefreshIgnoresRoleClaim(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)

	claims := svc.baseClaims(3, tokenTypeRefresh, time.Hour)
	claims[claimRole] = string(model.RoleAdmin)
	_, token, err := svc.refresh.Encode(claims)
	if err != nil {
		t.Fatalf("failed to encode token: %v", err)
	}

	got, err := svc.VerifyRefresh(token)
	if err != nil {
		t.Fatalf("VerifyRefresh returned error: %v", err)
	}
	if got != (RefreshClaims{SubjectID: 3}) {
		t.Fatalf("unexpected claims %+v", got)
	}
}

func TestTokenService_RejectsAccessTokenWithoutRole(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)

	claims := svc.baseClaims(3, tokenTypeAccess, time.Hour)
	_, token, err := svc.access.Encode(claims)
	if err != nil {
		t.Fatalf("failed to encode token: %v", err)
	}
	if _, err := svc.VerifyAccess(token); !errors.Is(err, common.ErrInvalidOrExpiredToken) {
		t.Fatalf("expected token without role to be rejected, got %v", err)
	}
}

func TestNewTokenService_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  TokenConfig
	}{
		{name: "missing secret", cfg: TokenConfig{AccessSecret: []byte("a"), AccessTTL: time.Hour, RefreshTTL: time.Hour}},
		{name: "shared secret", cfg: TokenConfig{AccessSecret: []byte("same"), RefreshSecret: []byte("same"), AccessTTL: time.Hour, RefreshTTL: time.Hour}},
		{name: "zero ttl", cfg: TokenConfig{AccessSecret: []byte("a"), RefreshSecret: []byte("b"), RefreshTTL: time.Hour}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewTokenService(tc.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
