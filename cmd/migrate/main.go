package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"planguard/internal/config"
	"planguard/internal/repository"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	flag.Parse()
	args := flag.Args()

	if len(args) < 1 || !slices.Contains(repository.MigrationCommands, args[0]) {
		fmt.Println("Error: migration command is required")
		fmt.Println("Usage: go run cmd/migrate/main.go [command] [args]")
		fmt.Printf("Commands: %s\n", strings.Join(repository.MigrationCommands, ", "))
		os.Exit(1)
	}

	command := args[0]

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	slog.Info("starting migration", "command", command)

	if err := repository.RunMigrations(ctx, cfg.DSN(), command, args[1:]...); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	fmt.Println("Migration finished successfully")
}
