package service

import (
	"context"
	"errors"
	"testing"

	"taskhub/internal/common"
	"taskhub/internal/domain/model"
)

func TestAuthService_RegisterIssuesUsableTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.auth.Register(ctx, RegisterRequest{
		Username: "alice",
		Email:    "  Alice@Example.com ",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if resp.User.Email != "alice@example.com" {
		t.Errorf("email = %q, want it normalized", resp.User.Email)
	}
	if resp.User.Role != model.RoleUser {
		t.Errorf("role = %q, want user by default", resp.User.Role)
	}

	access, err := env.tokens.VerifyAccess(resp.AccessToken)
	if err != nil {
		t.Fatalf("access token does not verify: %v", err)
	}
	if access.SubjectID != resp.User.ID {
		t.Errorf("access subject = %d, want %d", access.SubjectID, resp.User.ID)
	}
	if _, err := env.tokens.VerifyRefresh(resp.RefreshToken); err != nil {
		t.Fatalf("refresh token does not verify: %v", err)
	}
	if _, err := env.tokens.VerifyAccess(resp.RefreshToken); err == nil {
		t.Error("refresh token accepted as access token")
	}
}

func TestAuthService_RegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "taken", model.RoleUser)

	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr error
	}{
		{"short username", RegisterRequest{Username: "ab", Email: "ab@example.com", Password: "password123"}, common.ErrValidation},
		{"bad username chars", RegisterRequest{Username: "bad name", Email: "bn@example.com", Password: "password123"}, common.ErrValidation},
		{"bad email", RegisterRequest{Username: "bob", Email: "not-an-email", Password: "password123"}, common.ErrValidation},
		{"short password", RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "pw1"}, common.ErrValidation},
		{"password without digit", RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "passwordonly"}, common.ErrValidation},
		{"unknown role", RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "password123", Role: "root"}, common.ErrValidation},
		{"duplicate username", RegisterRequest{Username: "taken", Email: "other@example.com", Password: "password123"}, common.ErrDuplicateIdentity},
		{"duplicate email", RegisterRequest{Username: "other", Email: "TAKEN@example.com", Password: "password123"}, common.ErrDuplicateIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.Register(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Register error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthService_AdminSignupDisabledDowngradesRole(t *testing.T) {
	env := newTestEnv(t)
	env.auth.allowAdminSignup = false

	resp, err := env.auth.Register(context.Background(), RegisterRequest{
		Username: "mallory",
		Email:    "mallory@example.com",
		Password: "password123",
		Role:     model.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if resp.User.Role != model.RoleUser {
		t.Fatalf("role = %q, want user", resp.User.Role)
	}
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", model.RoleUser)
	ctx := context.Background()

	_, errUnknown := env.auth.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "password123"})
	_, errWrong := env.auth.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "wrongpass1"})

	if !errors.Is(errUnknown, common.ErrInvalidCredentials) || !errors.Is(errWrong, common.ErrInvalidCredentials) {
		t.Fatalf("errors = %v / %v, want ErrInvalidCredentials for both", errUnknown, errWrong)
	}
	if errUnknown.Error() != errWrong.Error() {
		t.Errorf("messages differ: %q vs %q", errUnknown, errWrong)
	}

	resp, err := env.auth.Login(ctx, LoginRequest{Email: "ALICE@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login with correct password: %v", err)
	}
	if resp.User.Username != "alice" {
		t.Errorf("username = %q, want alice", resp.User.Username)
	}
}

func TestAuthService_LoginThrottling(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", model.RoleUser)
	env.limiter.max = 3
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.auth.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "wrongpass1"})
		if !errors.Is(err, common.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: error = %v, want ErrInvalidCredentials", i+1, err)
		}
	}

	_, err := env.auth.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "password123"})
	if !errors.Is(err, common.ErrTooManyAttempts) {
		t.Fatalf("error = %v, want ErrTooManyAttempts even with the right password", err)
	}
}

func TestAuthService_LoginSuccessResetsFailures(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", model.RoleUser)
	env.limiter.max = 2
	ctx := context.Background()

	if _, err := env.auth.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "wrongpass1"}); err == nil {
		t.Fatal("expected wrong password to fail")
	}
	if _, err := env.auth.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "password123"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if n := env.limiter.failures["alice@example.com"]; n != 0 {
		t.Fatalf("failures after success = %d, want 0", n)
	}
}

func TestAuthService_LoginLimiterErrorFailsOpen(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", model.RoleUser)
	env.limiter.err = errors.New("redis down")

	if _, err := env.auth.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "password123"}); err != nil {
		t.Fatalf("Login with broken limiter: %v", err)
	}
}

func TestAuthService_RefreshUsesCurrentRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.register(t, "root", model.RoleAdmin)
	resp, err := env.auth.Register(ctx, RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := env.users.UpdateUser(ctx, admin, resp.User.ID, model.UserUpdate{Role: model.Some(model.RoleAdmin)}); err != nil {
		t.Fatalf("promote alice: %v", err)
	}

	old, err := env.tokens.VerifyAccess(resp.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess on existing token: %v", err)
	}
	if old.Role != model.RoleUser {
		t.Fatalf("existing access token role = %q, want user until refresh", old.Role)
	}

	refreshed, err := env.auth.Refresh(ctx, RefreshRequest{RefreshToken: resp.RefreshToken})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	claims, err := env.tokens.VerifyAccess(refreshed.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.Role != model.RoleAdmin {
		t.Fatalf("refreshed role = %q, want admin from storage", claims.Role)
	}
}

func TestAuthService_RefreshRejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.register(t, "root", model.RoleAdmin)
	resp, err := env.auth.Register(ctx, RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := env.auth.Refresh(ctx, RefreshRequest{RefreshToken: resp.AccessToken}); !errors.Is(err, common.ErrInvalidOrExpiredToken) {
		t.Errorf("access token as refresh: error = %v, want ErrInvalidOrExpiredToken", err)
	}
	if _, err := env.auth.Refresh(ctx, RefreshRequest{RefreshToken: "garbage"}); !errors.Is(err, common.ErrInvalidOrExpiredToken) {
		t.Errorf("garbage token: error = %v, want ErrInvalidOrExpiredToken", err)
	}

	if err := env.users.DeleteUser(ctx, admin, resp.User.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := env.auth.Refresh(ctx, RefreshRequest{RefreshToken: resp.RefreshToken}); !errors.Is(err, common.ErrUnauthenticated) {
		t.Errorf("deleted subject: error = %v, want ErrUnauthenticated", err)
	}
}

func TestAuthService_UpdateMe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", model.RoleUser)
	env.register(t, "bob", model.RoleUser)

	user, err := env.auth.UpdateMe(ctx, alice, model.ProfileUpdate{Username: model.Some(" alice2 ")})
	if err != nil {
		t.Fatalf("UpdateMe: %v", err)
	}
	if user.Username != "alice2" || user.Role != model.RoleUser {
		t.Errorf("user = %+v, want username alice2 and unchanged role", user)
	}

	if _, err := env.auth.UpdateMe(ctx, alice, model.ProfileUpdate{Email: model.Some("bob@example.com")}); !errors.Is(err, common.ErrDuplicateIdentity) {
		t.Errorf("taking bob's email: error = %v, want ErrDuplicateIdentity", err)
	}
	if _, err := env.auth.UpdateMe(ctx, alice, model.ProfileUpdate{}); !errors.Is(err, common.ErrNoFieldsToUpdate) {
		t.Errorf("empty update: error = %v, want ErrNoFieldsToUpdate", err)
	}
}
