package database

import (
	"fmt"
	"log/slog"
)

const (
	TypeJSON     = "json"
	TypeSQLite   = "sqlite"
	TypeRedis    = "redis"
	TypePostgres = "postgres"
)

func NewDatabase(databaseType, connectionString string) (database DatabaseService, err error) {
	switch databaseType {
	case TypeJSON:
		database = NewJSONDatabase(connectionString)
	case TypeSQLite:
		database, err = NewSQLiteDatabase(connectionString)
		if err != nil {
			return nil, err
		}
	case TypeRedis:
		database, err = NewRedisDatabase(connectionString)
		if err != nil {
			return nil, err
		}
	case TypePostgres:
		database, err = NewPostgresDatabase(connectionString)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", databaseType)
	}

	// Ensure the backend is ready (idempotent), important for in-memory SQLite
	slog.Info("initializing database (ensuring schema exists)", "type", databaseType)
	if err = database.CreateDatabase(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	return database, nil
}
