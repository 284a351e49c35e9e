// Package config loads runtime settings from the environment, optionally
// seeded from a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers accepted in DB_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// SigningKey is one entry of the token keyring.
type SigningKey struct {
	ID     string
	Secret string
}

// Config holds every setting the server reads at startup.
type Config struct {
	AppPort     string
	DBDriver    string
	DatabaseDSN string

	JWTSecret   string
	JWTKeyID    string
	RetiredKeys []SigningKey
	JWTTTL      time.Duration

	RabbitMQURL string

	LogLevel  string
	LogPretty bool
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()
	v.SetDefault("APP_PORT", ":3001")
	v.SetDefault("DB_DRIVER", DriverSQLite)
	v.SetDefault("DATABASE_DSN", "file:socialhub.db?cache=shared")
	v.SetDefault("JWT_KEY_ID", "primary")
	v.SetDefault("JWT_TTL", "0s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppPort:     v.GetString("APP_PORT"),
		DBDriver:    strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseDSN: v.GetString("DATABASE_DSN"),
		JWTSecret:   v.GetString("JWT_SECRET"),
		JWTKeyID:    v.GetString("JWT_KEY_ID"),
		RabbitMQURL: v.GetString("RABBITMQ_URL"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		LogPretty:   v.GetBool("LOG_PRETTY"),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set")
	}

	switch cfg.DBDriver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	ttl, err := time.ParseDuration(v.GetString("JWT_TTL"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	if ttl < 0 {
		return nil, errors.New("JWT_TTL must not be negative")
	}
	cfg.JWTTTL = ttl

	cfg.RetiredKeys, err = parseKeys(v.GetString("JWT_RETIRED_KEYS"))
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseKeys reads a comma separated list of id:secret pairs.
func parseKeys(raw string) ([]SigningKey, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var keys []SigningKey
	for _, entry := range strings.Split(raw, ",") {
		id, secret, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok || id == "" || secret == "" {
			return nil, fmt.Errorf("invalid JWT_RETIRED_KEYS entry %q: want id:secret", entry)
		}
		keys = append(keys, SigningKey{ID: id, Secret: secret})
	}
	return keys, nil
}
