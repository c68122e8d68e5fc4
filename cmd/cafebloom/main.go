// Package main запускает HTTP-сервер сервиса кафе.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/cafebloom/internal/backend"
	"github.com/mmeshcher/cafebloom/internal/cache"
	"github.com/mmeshcher/cafebloom/internal/config"
	"github.com/mmeshcher/cafebloom/internal/handler"
	"github.com/mmeshcher/cafebloom/internal/metrics"
	"github.com/mmeshcher/cafebloom/internal/middleware"
	"github.com/mmeshcher/cafebloom/internal/repository"
	"github.com/mmeshcher/cafebloom/internal/service"
	"github.com/mmeshcher/cafebloom/internal/session"
	"github.com/mmeshcher/cafebloom/internal/supabase"
)

const (
	sessionSweepInterval = time.Minute
	limiterCleanup       = 5 * time.Minute
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		sugar.Warnw(".env file error", "error", err.Error())
	}

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	var (
		repo    backend.Backend
		objects handler.ObjectReader
	)
	switch cfg.Backend {
	case config.BackendSupabase:
		client, err := supabase.New(supabase.Config{URL: cfg.SupabaseURL, APIKey: cfg.SupabaseKey})
		if err != nil {
			sugar.Fatalw("supabase client error", "error", err.Error())
		}
		repo = client
	default:
		pg, err := repository.NewPostgresRepository(cfg.DatabaseURI, cfg.PublicURL)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		repo = pg
		objects = pg
	}

	var requestCache cache.Cache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()

		rc := cache.NewRedis(client, cfg.CacheTTL)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rc.Ping(pingCtx)
		cancel()
		if err != nil {
			sugar.Warnw("redis unavailable, cache will recover when it comes back", "addr", cfg.RedisAddr, "error", err.Error())
		}
		requestCache = rc
	} else {
		requestCache = cache.NewMemory(cfg.CacheTTL)
	}

	m := metrics.New()

	svc := service.NewService(repo, requestCache, logger, m)
	defer svc.Close()

	secret := cfg.SecretKey
	if secret == "" {
		secret = uuid.NewString()
		sugar.Warn("SECRET_KEY is not set, identity cookies will not survive a restart")
	}

	registry := session.NewRegistry(cfg.SessionIdleTTL, logger, m)
	manager := session.NewManager(repo, repo, session.Credentials{
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	}, logger, m)
	authMiddleware := middleware.NewAuthMiddleware(secret, cfg.SecureCookies)
	limiter := middleware.NewRateLimiter(cfg.LoginRatePerMinute, logger)

	h := handler.NewHandler(svc, logger, handler.Deps{
		Sessions:          manager,
		SessionMiddleware: middleware.NewSessionMiddleware(registry, manager, authMiddleware),
		Auth:              authMiddleware,
		Limiter:           limiter,
		Metrics:           m,
		Objects:           objects,
		StaticDir:         cfg.StaticDir,
	})

	r := h.SetupRouter()

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Очистка простаивающих сеансов и счётчиков ограничения частоты
	registry.StartSweeper(ctx, sessionSweepInterval)
	limiter.StartCleanup(ctx, limiterCleanup)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting cafebloom server", "addr", cfg.RunAddress, "backend", cfg.Backend)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
