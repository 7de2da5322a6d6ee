package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/zeroeau/washpro-technician/internal/client/cli"
	"github.com/zeroeau/washpro-technician/internal/client/config"
	"github.com/zeroeau/washpro-technician/internal/logging"
)

func main() {
	cfg := config.LoadConfig()

	logger := logging.NewSlogLogger(slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}),
	))

	ctx := context.Background()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
