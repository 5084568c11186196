package repo

import (
	"context"
	"fmt"
	"log/slog"

	"call-intake/internal/config"
)

// Open connects to the store selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (Repository, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return New(ctx, cfg.DatabaseURL, cfg.DatabaseSchema, logger)
	case config.DriverSQLite:
		return NewSQLite(ctx, cfg.SQLitePath, logger)
	case config.DriverMongo:
		return NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}
