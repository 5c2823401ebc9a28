package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"planguard/internal/infrastructure"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := infrastructure.Bootstrap(ctx)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	slog.Info("planguard engine started")
	if err := app.Run(ctx); err != nil {
		slog.Error("engine stopped with error", "error", err)
		cleanup()
		os.Exit(1)
	}
	slog.Info("planguard engine stopped")
}

func logLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv("PLANGUARD_LOG_LEVEL"))); err != nil {
		return slog.LevelInfo
	}
	return level
}
