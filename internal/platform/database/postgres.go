package database

import (
	"context"
	"fmt"
	"log/slog"
	"taskhub/internal/platform/config"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/jmoiron/sqlx"
)

// Connect opens the pooled Postgres handle. The caller owns it and must Close it.
func Connect(ctx context.Context, cfg *config.Config, log *slog.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Open("pgx", cfg.DBConnStr())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("connected to postgres", "host", cfg.DBHost, "db", cfg.DBName, "max_open_conns", cfg.DBMaxOpenConns)
	return db, nil
}
