package main

import (
	"context"

	"github.com/joho/godotenv"

	"storefront-backend/internal/config"
	"storefront-backend/pkg/container"
	"storefront-backend/pkg/logger"
)

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger.Init(cfg.App.Environment)

	ctx := context.Background()
	c, err := container.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to build container", err)
		panic(err)
	}
	defer c.Close()

	srv := NewServer(c)
	if err := srv.Run(); err != nil {
		logger.Error("server exited with error", err)
		panic(err)
	}
}
