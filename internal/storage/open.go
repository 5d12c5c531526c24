package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/baharkarakas/hodl-ledger/internal/config"
	"github.com/baharkarakas/hodl-ledger/internal/db"
	repo "github.com/baharkarakas/hodl-ledger/internal/repository"
	"github.com/baharkarakas/hodl-ledger/internal/repository/memory"
	"github.com/baharkarakas/hodl-ledger/internal/repository/postgres"
)

// Open builds the store selected by STORE_DRIVER. The returned func releases
// its resources.
func Open(ctx context.Context, cfg config.Config, log *slog.Logger) (repo.Store, func(), error) {
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("using in-memory store; state is lost on exit")
		return memory.NewStore(), func() {}, nil
	case "postgres":
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, int32(cfg.DBMaxConns))
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		if cfg.Migrate {
			if err := db.RunMigrations(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("migrations: %w", err)
			}
		}
		return postgres.NewStore(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
