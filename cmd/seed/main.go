// Package main заполняет меню демонстрационными позициями.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mmeshcher/cafebloom/internal/backend"
	"github.com/mmeshcher/cafebloom/internal/config"
	"github.com/mmeshcher/cafebloom/internal/model"
	"github.com/mmeshcher/cafebloom/internal/repository"
	"github.com/mmeshcher/cafebloom/internal/seed"
	"github.com/mmeshcher/cafebloom/internal/supabase"
)

type menuStore interface {
	backend.MenuStore
	Close() error
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		sugar.Warnw(".env file error", "error", err.Error())
	}

	menuFile := flag.String("f", "", "YAML menu file; the built-in demo menu is used when empty")

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	var items []model.MenuItem
	if *menuFile != "" {
		f, openErr := os.Open(*menuFile)
		if openErr != nil {
			sugar.Fatalw("open menu file", "error", openErr.Error())
		}
		items, err = seed.Load(f)
		f.Close()
	} else {
		items, err = seed.DefaultMenu()
	}
	if err != nil {
		sugar.Fatalw("menu file error", "error", err.Error())
	}

	var store menuStore
	switch cfg.Backend {
	case config.BackendSupabase:
		store, err = supabase.New(supabase.Config{URL: cfg.SupabaseURL, APIKey: cfg.SupabaseKey})
	default:
		store, err = repository.NewPostgresRepository(cfg.DatabaseURI, cfg.PublicURL)
	}
	if err != nil {
		sugar.Fatalw("backend initialization error", "error", err.Error())
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := seed.Run(ctx, store, items, logger)
	if err != nil {
		sugar.Fatalw("seed error", "error", err.Error(), "created", res.Created)
	}
	sugar.Infow("menu seeded", "created", res.Created, "skipped", res.Skipped)
}
