package api

import (
	"log/slog"
	"net/http"
	"time"

	"taskhub/internal/api/handler"
	"taskhub/internal/api/middleware"
	"taskhub/internal/app/service"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

type RouterDeps struct {
	AuthService    *service.AuthService
	TaskService    *service.TaskService
	UserService    *service.UserService
	Tokens         middleware.AccessVerifier
	DB             handler.Pinger
	Logger         *slog.Logger
	RequestTimeout time.Duration
}

func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger) // Chi's logger
	r.Use(chiMiddleware.Recoverer)
	if deps.RequestTimeout > 0 {
		r.Use(chiMiddleware.Timeout(deps.RequestTimeout))
	}

	gate := middleware.NewGate(deps.Tokens, deps.Logger)

	// API v1 Routes
	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Method(http.MethodGet, "/health", handler.NewHealthHandler(deps.DB, deps.Logger))

		authHandler := handler.NewAuthHandler(deps.AuthService, deps.Logger)
		v1.Route("/auth", func(auth chi.Router) {
			authHandler.RegisterRoutes(auth, gate.Authenticator)
		})

		taskHandler := handler.NewTaskHandler(deps.TaskService, deps.Logger)
		v1.Route("/tasks", func(tasks chi.Router) {
			tasks.Use(gate.Authenticator)
			taskHandler.RegisterRoutes(tasks)
		})

		userHandler := handler.NewUserHandler(deps.UserService, deps.Logger)
		v1.Route("/users", func(users chi.Router) {
			users.Use(gate.Authenticator)
			users.Use(middleware.AdminOnly)
			userHandler.RegisterRoutes(users)
		})
	})

	return r
}
