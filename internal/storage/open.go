package storage

import (
	"context"
	"fmt"
	"log/slog"

	"stockpulse/internal/config"
)

// Open returns the store selected by cfg.Driver
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case "", config.StorageDriverMemory:
		return NewMemoryStore(), nil
	case config.StorageDriverPostgres:
		connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
		return NewPostgresStore(connectCtx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
