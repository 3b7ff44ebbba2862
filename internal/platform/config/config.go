package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const minBcryptCost = 10

type Config struct {
	APIPort  string `env:"API_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`

	JWTAccessSecret  string        `env:"JWT_ACCESS_SECRET,notEmpty"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET,notEmpty"`
	JWTAccessTTL     time.Duration `env:"JWT_ACCESS_TTL" envDefault:"168h"`
	JWTRefreshTTL    time.Duration `env:"JWT_REFRESH_TTL" envDefault:"720h"`
	BcryptCost       int           `env:"BCRYPT_COST" envDefault:"12"`

	AllowAdminSignup bool          `env:"AUTH_ALLOW_ADMIN_SIGNUP" envDefault:"true"`
	LoginMaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS" envDefault:"5"`
	LoginWindow      time.Duration `env:"LOGIN_WINDOW" envDefault:"15m"`

	DBHost            string        `env:"DB_HOST" envDefault:"localhost"`
	DBPort            string        `env:"DB_PORT" envDefault:"5432"`
	DBUser            string        `env:"DB_USER" envDefault:"user"`
	DBPassword        string        `env:"DB_PASSWORD" envDefault:"password"`
	DBName            string        `env:"DB_NAME" envDefault:"taskhub"`
	DBSslMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"25"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`

	// Empty disables login throttling.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.JWTAccessSecret == c.JWTRefreshSecret {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ"))
	}
	if c.JWTAccessTTL <= 0 || c.JWTRefreshTTL <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_TTL and JWT_REFRESH_TTL must be positive"))
	}
	if c.BcryptCost < minBcryptCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be at least %d", minBcryptCost))
	}
	if c.DBMaxOpenConns <= 0 {
		errs = append(errs, errors.New("DB_MAX_OPEN_CONNS must be positive"))
	}
	if c.LoginMaxAttempts <= 0 || c.LoginWindow <= 0 {
		errs = append(errs, errors.New("LOGIN_MAX_ATTEMPTS and LOGIN_WINDOW must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) DBConnStr() string {
	return "host=" + c.DBHost +
		" port=" + c.DBPort +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" sslmode=" + c.DBSslMode
}
