package gamehost

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Ashenafi-pixel/gamecrafter-game-host/config"
	"github.com/Ashenafi-pixel/gamecrafter-game-host/game"
	"github.com/Ashenafi-pixel/gamecrafter-game-host/game/filestore"
	"github.com/Ashenafi-pixel/gamecrafter-game-host/game/sqlite"
)

func TestOpenStoreDrivers(t *testing.T) {
	ctx := context.Background()

	gw, closeFn, err := OpenStore(ctx, &config.Config{StoreDriver: config.DriverFile, DataDir: t.TempDir()})
	require.NoError(t, err)
	require.IsType(t, &filestore.Store{}, gw)
	require.NoError(t, closeFn())

	gw, closeFn, err = OpenStore(ctx, &config.Config{
		StoreDriver: config.DriverSQLite,
		SQLitePath:  filepath.Join(t.TempDir(), "nested", "games.db"),
	})
	require.NoError(t, err)
	require.IsType(t, &sqlite.Store{}, gw)
	_, err = gw.CreateGame(ctx, game.NewRecord{Title: "Snake", Content: "<html></html>"})
	require.NoError(t, err)
	require.NoError(t, closeFn())

	_, _, err = OpenStore(ctx, &config.Config{StoreDriver: config.DriverPostgres})
	require.ErrorIs(t, err, ErrNoDSN)

	_, _, err = OpenStore(ctx, &config.Config{StoreDriver: "mongo"})
	require.Error(t, err)
}
