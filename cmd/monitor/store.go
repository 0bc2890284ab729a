package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/tm-monitor/internal/config"
	"github.com/iliyamo/tm-monitor/internal/database"
	"github.com/iliyamo/tm-monitor/internal/repository"
)

// openStore opens the durable store selected by STATE_DRIVER. The
// returned func releases it.
func openStore(ctx context.Context, cfg config.Config) (repository.Store, func(), error) {
	switch cfg.StateDriver {
	case "memory":
		return repository.NewMemoryStore(), func() {}, nil
	case "redis":
		rdb, err := config.NewRedisClient(ctx)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedisStore(rdb, "tm-monitor"), func() { _ = rdb.Close() }, nil
	case "mysql":
		db, err := database.OpenMySQL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}
		return sqlStore(ctx, db, repository.DialectMySQL)
	default:
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		return sqlStore(ctx, db, repository.DialectSQLite)
	}
}

func sqlStore(ctx context.Context, db *sql.DB, dialect repository.Dialect) (repository.Store, func(), error) {
	store, err := repository.NewSQLStore(ctx, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, func() { _ = db.Close() }, nil
}
