package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	gamehost "github.com/Ashenafi-pixel/gamecrafter-game-host"
	"github.com/Ashenafi-pixel/gamecrafter-game-host/config"
	"github.com/Ashenafi-pixel/gamecrafter-game-host/media"
	"github.com/Ashenafi-pixel/gamecrafter-game-host/publish"
)

// game_importer publishes a builder ZIP (index.html, optional game.json or
// game.yaml, optional cover) straight into the configured store.
//
//	go run ./cmd/game_importer -zip snake.zip
//	go run ./cmd/game_importer -zip snake.zip -store-driver sqlite -sqlite-path data/games.db
func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	zipPath := flag.String("zip", "", "Path to the game ZIP bundle")
	driver := flag.String("store-driver", "", "Override STORE_DRIVER (file, postgres or sqlite)")
	sqlitePath := flag.String("sqlite-path", "", "Override SQLITE_PATH")
	mediaDir := flag.String("media-dir", "", "Override MEDIA_DIR")
	flag.Parse()

	if *zipPath == "" {
		fmt.Fprintln(os.Stderr, "missing required -zip argument")
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *driver != "" {
		cfg.StoreDriver = *driver
	}
	if *sqlitePath != "" {
		cfg.SQLitePath = *sqlitePath
	}
	if *mediaDir != "" {
		cfg.MediaDir = *mediaDir
	}

	if err := run(context.Background(), cfg, *zipPath, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, zipPath string, out io.Writer) error {
	data, err := os.ReadFile(zipPath)
	if err != nil {
		return fmt.Errorf("read zip: %w", err)
	}
	games, closeStore, err := gamehost.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := publish.NewService(games, media.NewStore(cfg.MediaDir, cfg.PublicBaseURL), publish.Limits{
		MaxHTMLBytes:  cfg.MaxHTMLBytes,
		MaxImageBytes: cfg.MaxImageBytes,
	})
	rec, err := svc.Import(ctx, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Imported game %q (game_id=%s)\n", rec.Title, rec.ID)
	if rec.ImageRef != "" {
		fmt.Fprintf(out, "Cover: %s\n", rec.ImageRef)
	}
	return nil
}
