package main

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Ashenafi-pixel/gamecrafter-game-host/config"
	"github.com/Ashenafi-pixel/gamecrafter-game-host/game/filestore"
)

func TestRunImportsIntoFileStore(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("index.html")
	require.NoError(t, err)
	_, err = w.Write([]byte("<html><title>Snake</title></html>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	zipPath := filepath.Join(dir, "snake.zip")
	require.NoError(t, os.WriteFile(zipPath, buf.Bytes(), 0o644))

	cfg := &config.Config{
		StoreDriver:   config.DriverFile,
		DataDir:       filepath.Join(dir, "data"),
		MediaDir:      filepath.Join(dir, "media"),
		PublicBaseURL: "http://localhost:8081",
	}
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, zipPath, &out))
	require.Contains(t, out.String(), `Imported game "Snake"`)

	list, err := filestore.NewStore(cfg.DataDir).ListGames(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Snake", list[0].Title)

	require.Error(t, run(context.Background(), cfg, filepath.Join(dir, "missing.zip"), &out))
}
