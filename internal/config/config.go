// Package config loads application settings from the environment.
package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// Config is the core process configuration. Feature specific settings
// (mail, payment, currency, cache, rate limits, Redis) have their own
// loaders in this package.
type Config struct {
	Env  string
	Port string

	DBUser string
	DBPass string
	DBHost string
	DBPort string
	DBName string

	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
	ResetTTLMin    int // password reset link lifetime

	FrontendURL string // base for password reset links
	AMQPURL     string // empty disables order events
}

// Load applies a .env file from the working directory when one exists
// (real environment variables win) and reads Config. A missing
// DB_USER, DB_NAME or JWT_SECRET stops the process.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not parse .env file", "error", err)
	}
	return Config{
		Env:            envStr("APP_ENV", "dev"),
		Port:           envStr("APP_PORT", "8080"),
		DBUser:         required("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         envStr("DB_HOST", "127.0.0.1"),
		DBPort:         envStr("DB_PORT", "3306"),
		DBName:         required("DB_NAME"),
		JWTSecret:      required("JWT_SECRET"),
		AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 60),
		RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 30),
		BcryptCost:     envInt("BCRYPT_COST", 12),
		ResetTTLMin:    envInt("PASSWORD_RESET_TTL_MIN", 60),
		FrontendURL:    envStr("FRONTEND_URL", "http://localhost:3000"),
		AMQPURL:        envStr("RABBITMQ_URL", envStr("AMQP_URL", "")),
	}
}

func (c Config) IsProd() bool { return c.Env == "prod" || c.Env == "production" }

func required(key string) string {
	v := envStr(key, "")
	if v == "" {
		slog.Error("missing required env var", "key", key)
		os.Exit(1)
	}
	return v
}
