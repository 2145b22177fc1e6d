// Package config содержит логику чтения конфигурации сервиса франчайзинга.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса франчайзинга.
type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	DatabaseURI   string `env:"DATABASE_URI"`
	RedisAddress  string `env:"REDIS_ADDRESS"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
	AdminName     string `env:"ADMIN_NAME"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envRedisAddress := cfg.RedisAddress
	envAdminEmail := cfg.AdminEmail
	envAdminPassword := cfg.AdminPassword
	envAdminName := cfg.AdminName

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.RedisAddress, "r", "localhost:6379", "redis address for session storage")
	flag.StringVar(&cfg.AdminEmail, "admin-email", "", "bootstrap admin email")
	flag.StringVar(&cfg.AdminPassword, "admin-password", "", "bootstrap admin password")
	flag.StringVar(&cfg.AdminName, "admin-name", "", "bootstrap admin name")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envRedisAddress != "" {
		cfg.RedisAddress = envRedisAddress
	}
	if envAdminEmail != "" {
		cfg.AdminEmail = envAdminEmail
	}
	if envAdminPassword != "" {
		cfg.AdminPassword = envAdminPassword
	}
	if envAdminName != "" {
		cfg.AdminName = envAdminName
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.RedisAddress == "" {
		cfg.RedisAddress = "localhost:6379"
	}

	return cfg, nil
}
