package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"taskhub/internal/common/security"
	"taskhub/internal/domain/model"
	"taskhub/internal/testkit/memstore"
)

type fakeLimiter struct {
	mu       sync.Mutex
	max      int
	failures map[string]int
	err      error
}

func newFakeLimiter(max int) *fakeLimiter {
	return &fakeLimiter{max: max, failures: make(map[string]int)}
}

func (l *fakeLimiter) Allow(_ context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	return l.failures[id] < l.max, nil
}

func (l *fakeLimiter) RecordFailure(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[id]++
	return l.err
}

func (l *fakeLimiter) Reset(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, id)
	return l.err
}

type testEnv struct {
	store   *memstore.Store
	tokens  *security.TokenService
	limiter *fakeLimiter
	creds   *CredentialStore
	auth    *AuthService
	tasks   *TaskService
	users   *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	hasher, err := security.NewPasswordHasher(security.MinBcryptCost)
	if err != nil {
		t.Fatalf("NewPasswordHasher: %v", err)
	}
	tokens, err := security.NewTokenService(security.TokenConfig{
		AccessSecret:  []byte("service-test-access"),
		RefreshSecret: []byte("service-test-refresh"),
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	store := memstore.New()
	limiter := newFakeLimiter(5)
	creds := NewCredentialStore(store.Users(), hasher)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testEnv{
		store:   store,
		tokens:  tokens,
		limiter: limiter,
		creds:   creds,
		auth:    NewAuthService(creds, tokens, limiter, true, log),
		tasks:   NewTaskService(store.Tasks()),
		users:   NewUserService(creds),
	}
}

// register creates a user through the auth service and returns its principal.
func (e *testEnv) register(t *testing.T, username string, role model.Role) model.Principal {
	t.Helper()

	resp, err := e.auth.Register(context.Background(), RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", username, err)
	}
	return model.Principal{ID: resp.User.ID, Role: resp.User.Role}
}

func (e *testEnv) createTask(t *testing.T, p model.Principal, title string) *model.Task {
	t.Helper()

	task, err := e.tasks.CreateTask(context.Background(), p, CreateTaskRequest{Title: title})
	if err != nil {
		t.Fatalf("CreateTask(%s): %v", title, err)
	}
	return task
}
