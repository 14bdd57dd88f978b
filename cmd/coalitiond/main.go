package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	coalition "github.com/ghogue02/living-economy-arena-sub000"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("ARENA_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	app, err := coalition.New(
		coalition.WithVersion(version),
		coalition.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
