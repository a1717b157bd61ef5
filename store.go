package gamehost

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/Ashenafi-pixel/gamecrafter-game-host/config"
	"github.com/Ashenafi-pixel/gamecrafter-game-host/game"
	"github.com/Ashenafi-pixel/gamecrafter-game-host/game/filestore"
	"github.com/Ashenafi-pixel/gamecrafter-game-host/game/postgres"
	"github.com/Ashenafi-pixel/gamecrafter-game-host/game/sqlite"
)

// OpenStore opens the game store named by cfg.StoreDriver. The returned
// close func releases it.
func OpenStore(ctx context.Context, cfg *config.Config) (game.Gateway, func() error, error) {
	noop := func() error { return nil }
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := postgres.NewStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		log.Printf("store: postgres ready")
		return store, db.Close, nil
	case config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("store: sqlite ready at %s", cfg.SQLitePath)
		return store, store.Close, nil
	case config.DriverFile, "":
		log.Printf("store: file store at %s", cfg.DataDir)
		return filestore.NewStore(cfg.DataDir), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
