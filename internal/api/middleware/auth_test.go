package middleware

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskhub/internal/common"
	"taskhub/internal/common/security"
	"taskhub/internal/domain/model"
)

func newTestGate(t *testing.T) (*Gate, *security.TokenService) {
	t.Helper()

	tokens, err := security.NewTokenService(security.TokenConfig{
		AccessSecret:  []byte("gate-access"),
		RefreshSecret: []byte("gate-refresh"),
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return NewGate(tokens, slog.New(slog.NewTextHandler(io.Discard, nil))), tokens
}

func TestGate_Authenticate(t *testing.T) {
	gate, tokens := newTestGate(t)

	access, err := tokens.IssueAccess(7, model.RoleAdmin)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	refresh, err := tokens.IssueRefresh(7)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	p, err := gate.Authenticate("Bearer " + access)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if p.ID != 7 || p.Role != model.RoleAdmin {
		t.Fatalf("principal = %+v, want {7 admin}", p)
	}

	if _, err := gate.Authenticate("bearer " + access); err != nil {
		t.Fatalf("lowercase scheme: %v", err)
	}

	for name, header := range map[string]string{
		"missing":       "",
		"no scheme":     access,
		"wrong scheme":  "Basic " + access,
		"empty token":   "Bearer ",
		"garbage":       "Bearer not.a.jwt",
		"refresh token": "Bearer " + refresh,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := gate.Authenticate(header)
			if !errors.Is(err, common.ErrUnauthenticated) || err != common.ErrUnauthenticated {
				t.Fatalf("error = %v, want bare ErrUnauthenticated", err)
			}
		})
	}
}

func TestAuthenticatorAndAdminOnly(t *testing.T) {
	gate, tokens := newTestGate(t)
	userToken, _ := tokens.IssueAccess(1, model.RoleUser)
	adminToken, _ := tokens.IssueAccess(2, model.RoleAdmin)

	var seen model.Principal
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	protected := gate.Authenticator(AdminOnly(final))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"user", "Bearer " + userToken, http.StatusForbidden},
		{"admin", "Bearer " + adminToken, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
	if seen.ID != 2 {
		t.Errorf("principal in context = %+v, want id 2", seen)
	}
}
