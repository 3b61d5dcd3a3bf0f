package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shrimpsizemoose/gradebook/internal/store"
	"github.com/shrimpsizemoose/gradebook/internal/store/mongo"
	"github.com/shrimpsizemoose/gradebook/internal/store/postgres"
	"github.com/shrimpsizemoose/gradebook/internal/store/sqlite"
)

// Store is a record store that also serves the reference data.
type Store interface {
	store.RecordStore
	store.ReferenceStore
}

func DetectDBType(dsn string) store.DatabaseType {
	switch {
	case strings.HasPrefix(dsn, "postgres"):
		return store.DBTypePostgres
	case strings.HasPrefix(dsn, "mongodb"):
		return store.DBTypeMongo
	default:
		return store.DBTypeSQLite
	}
}

func NewStore(cfg store.DBConfig) (Store, error) {
	if cfg.Type == "" {
		cfg.Type = DetectDBType(cfg.DSN)
	}

	switch cfg.Type {
	case store.DBTypePostgres:
		return postgres.NewPostgresStore(cfg.DSN, cfg.MigrationsDir)
	case store.DBTypeSQLite:
		return sqlite.NewSQLiteStore(cfg.DSN, cfg.MigrationsDir)
	case store.DBTypeMongo:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s, err := mongo.NewMongoStore(ctx, cfg.DSN, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := s.ApplyMigrations(cfg.MigrationsDir); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unable to determine database type from DSN: %s", cfg.DSN)
	}
}
