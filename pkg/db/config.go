package db

import (
	"fmt"
	"strconv"
)

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func LoadPostgresConfig(getenv func(string) string) (PostgresConfig, error) {
	port := 5432
	if v := getenv("DB_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return PostgresConfig{}, fmt.Errorf("DB_PORT: %w", err)
		}
		port = p
	}

	cfg := PostgresConfig{
		Host:     getenv("DB_HOST"),
		Port:     port,
		User:     getenv("DB_USER"),
		Password: getenv("DB_PASSWORD"),
		DBName:   getenv("DB_NAME"),
		SSLMode:  getenv("DB_SSLMODE"),
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	return cfg, nil
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}
