package queue

import (
	"context"
	"fmt"

	"vidsub/internal/config"
)

// Open returns the store selected by cfg.Store.Backend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Backend {
	case config.StoreSQLite:
		return OpenSQLite(ctx, cfg.Store.SQLitePath)
	case config.StoreMemory, "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}
