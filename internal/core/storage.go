package core

import (
	"context"
	"fmt"
	"strings"

	"churchledger/internal/infra/persistence/memory"
	"churchledger/internal/infra/persistence/postgres"
	redisstore "churchledger/internal/infra/persistence/redis"
	"churchledger/internal/infra/persistence/sqlite"
)

// StorageDriver selects a snapshot backend.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"
	StorageSQLite   StorageDriver = "sqlite"
	StoragePostgres StorageDriver = "postgres"
	StorageRedis    StorageDriver = "redis"
)

// StorageConfig configures OpenPersistentStore.
type StorageConfig struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
	Redis       redisstore.Options
}

// ParseStorageDriver accepts a driver name in any letter case.
func ParseStorageDriver(raw string) (StorageDriver, error) {
	switch d := StorageDriver(strings.ToLower(strings.TrimSpace(raw))); d {
	case StorageMemory, StorageSQLite, StoragePostgres, StorageRedis:
		return d, nil
	case "":
		return StorageSQLite, nil
	}
	return "", fmt.Errorf("unknown storage driver %q", raw)
}

// OpenPersistentStore opens the configured backend. A nil engine selects the
// built-in rules.
func OpenPersistentStore(ctx context.Context, cfg StorageConfig, engine *RulesEngine) (PersistentStore, error) {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	driver, err := ParseStorageDriver(string(cfg.Driver))
	if err != nil {
		return nil, err
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = sqlite.DefaultPath
		}
		store, err := sqlite.NewStore(path, engine)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case StoragePostgres:
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN, engine)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	default:
		store, err := redisstore.NewStore(ctx, cfg.Redis, engine)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return store, nil
	}
}
