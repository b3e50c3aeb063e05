package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-query-cache/internal/config"
	"github.com/goliatone/go-query-cache/internal/logging"
	"github.com/goliatone/go-query-cache/pkg/di"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// app holds the connections shared by every command.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *bun.DB
	container *di.Container
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if redisAddr != "" {
		cfg.Cache.Redis.Addr = redisAddr
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}).
		With("run_id", uuid.New().String())

	sqldb, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db := bun.NewDB(sqldb, pgdialect.New())

	container, err := di.NewContainer(cfg.Cache, di.WithLogger(logger), di.WithDB(db))
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}

	logger.DebugContext(ctx, "qcache ready",
		"strategy", container.Cache().Strategy(),
		"backend", cfg.Cache.Backend,
	)
	return &app{cfg: cfg, logger: logger, db: db, container: container}, nil
}

func (a *app) Close() error {
	return errors.Join(a.container.Close(), a.db.Close())
}

// withApp runs fn with a connected app and closes it afterwards.
func withApp(ctx context.Context, fn func(*app) error) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}()
	return fn(a)
}
