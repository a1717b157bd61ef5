package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	gamehost "github.com/Ashenafi-pixel/gamecrafter-game-host"
	"github.com/Ashenafi-pixel/gamecrafter-game-host/config"
	"github.com/Ashenafi-pixel/gamecrafter-game-host/server"

	"github.com/joho/godotenv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env from cwd or the project root; real environment wins.
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")
	_ = godotenv.Load("../.env.local")

	if err := run(ctx); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	games, closeStore, err := gamehost.OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open game store: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()
	return server.New(cfg, games).Run(ctx)
}
