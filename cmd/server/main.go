package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskhub/internal/api"
	"taskhub/internal/app/service"
	"taskhub/internal/common/security"
	"taskhub/internal/domain/repository"
	"taskhub/internal/platform/config"
	"taskhub/internal/platform/database"
	"taskhub/internal/platform/logging"
	"taskhub/internal/platform/throttle"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel)
	logger.Info("configuration loaded")

	ctx := context.Background()

	// 2. Initialize Database
	db, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, logger); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	// 3. Initialize Redis (optional)
	var limiter service.LoginLimiter = throttle.Noop{}
	rdb, err := throttle.ConnectRedis(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
		limiter = throttle.NewRedisLimiter(rdb, cfg.LoginMaxAttempts, cfg.LoginWindow)
	} else {
		logger.Warn("REDIS_ADDR not set, login throttling disabled")
	}

	// 4. Initialize security primitives
	hasher, err := security.NewPasswordHasher(cfg.BcryptCost)
	if err != nil {
		log.Fatalf("Failed to initialize password hasher: %v", err)
	}
	tokens, err := security.NewTokenService(security.TokenConfig{
		AccessSecret:  []byte(cfg.JWTAccessSecret),
		RefreshSecret: []byte(cfg.JWTRefreshSecret),
		AccessTTL:     cfg.JWTAccessTTL,
		RefreshTTL:    cfg.JWTRefreshTTL,
	})
	if err != nil {
		log.Fatalf("Failed to initialize token service: %v", err)
	}

	// 5. Initialize Repositories
	userRepo := repository.NewPgUserRepository(db)
	taskRepo := repository.NewPgTaskRepository(db)

	// 6. Initialize Services
	creds := service.NewCredentialStore(userRepo, hasher)
	authService := service.NewAuthService(creds, tokens, limiter, cfg.AllowAdminSignup, logger)
	taskService := service.NewTaskService(taskRepo)
	userService := service.NewUserService(creds)

	// 7. Initialize Router & HTTP Server
	router := api.NewRouter(api.RouterDeps{
		AuthService:    authService,
		TaskService:    taskService,
		UserService:    userService,
		Tokens:         tokens,
		DB:             db,
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
	})

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
		}
	}()

	<-stop // Wait for interrupt signal

	logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
		return
	}
	logger.Info("server stopped gracefully")
}
