// Package config содержит логику чтения конфигурации сервиса кафе.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// BackendPostgres хранит данные в собственной базе PostgreSQL.
	BackendPostgres = "postgres"
	// BackendSupabase использует размещённый сервис Supabase.
	BackendSupabase = "supabase"
)

// Config содержит параметры конфигурации сервиса кафе.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	Backend     string `env:"BACKEND"`

	SupabaseURL string `env:"SUPABASE_URL"`
	// SupabaseKey должен быть ключом service_role: сервис читает профили и заказы
	// от своего имени, а не от имени пользователя, поэтому политики RLS его не должны ограничивать.
	SupabaseKey string `env:"SUPABASE_KEY"`

	RedisAddr string        `env:"REDIS_ADDR"`
	CacheTTL  time.Duration `env:"CACHE_TTL"`

	SecretKey     string `env:"SECRET_KEY"`
	SecureCookies bool   `env:"SECURE_COOKIES"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	StaticDir          string        `env:"STATIC_DIR"`
	PublicURL          string        `env:"PUBLIC_URL"`
	SessionIdleTTL     time.Duration `env:"SESSION_IDLE_TTL"`
	LoginRatePerMinute int           `env:"LOGIN_RATE_PER_MINUTE"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.Backend, "b", BackendPostgres, "data backend: postgres or supabase")
	flag.StringVar(&cfg.SupabaseURL, "supabase-url", "", "Supabase project URL")
	flag.StringVar(&cfg.SupabaseKey, "supabase-key", "", "Supabase service_role key (anon and publishable keys are rejected)")
	flag.StringVar(&cfg.RedisAddr, "redis", "", "Redis address for the shared cache; empty keeps the cache in memory")
	flag.DurationVar(&cfg.CacheTTL, "cache-ttl", 5*time.Minute, "cache entry lifetime")
	flag.StringVar(&cfg.SecretKey, "k", "", "key for signing identity cookies")
	flag.BoolVar(&cfg.SecureCookies, "secure-cookies", false, "mark cookies as HTTPS only")
	flag.StringVar(&cfg.AdminEmail, "admin-email", "", "built-in administrator email")
	flag.StringVar(&cfg.StaticDir, "static", "", "directory with the built client application")
	flag.StringVar(&cfg.PublicURL, "public-url", "", "external base URL of the service")
	flag.DurationVar(&cfg.SessionIdleTTL, "session-ttl", 24*time.Hour, "idle browsing session lifetime")
	flag.IntVar(&cfg.LoginRatePerMinute, "login-rate", 10, "login and register attempts per minute per client; 0 disables the limit")

	flag.Parse()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = "http://" + cfg.RunAddress
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendPostgres:
		if c.DatabaseURI == "" {
			return errors.New("database URI is required for the postgres backend")
		}
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return errors.New("supabase URL and key are required for the supabase backend")
		}
		if err := checkSupabaseKey(c.SupabaseKey); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return errors.New("admin email and password must be set together")
	}
	return nil
}

// checkSupabaseKey отклоняет публичные ключи проекта. Непрозрачные ключи не проверяются.
func checkSupabaseKey(key string) error {
	if strings.HasPrefix(key, "sb_publishable_") {
		return errors.New("supabase key must be a secret key, got a publishable key")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(key, claims); err != nil {
		return nil
	}
	if role, _ := claims["role"].(string); role != "" && role != "service_role" {
		return fmt.Errorf("supabase key must have the service_role role, got %q", role)
	}
	return nil
}
