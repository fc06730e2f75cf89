package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/config"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Flags
	action := flag.String("action", "up", "Migration action: up, down, version, force")
	steps := flag.Int("steps", 0, "Steps to roll back (down) or version to force (force)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLogger(cfg.Environment)

	poolCfg := database.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = 2
	pool, err := database.NewPool(context.Background(), poolCfg)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer pool.Close()

	logger.Info("connected to database", slog.String("database", pool.Config().ConnConfig.Database))

	migrator, err := database.NewMigratorFromPool(pool)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	migrator.WithLogger(logger)
	defer func() { _ = migrator.Close() }()

	// Execute action
	switch *action {
	case "up":
		logger.Info("running migrations")
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("migration up failed: %w", err)
		}
		logger.Info("migrations completed")

	case "down":
		logger.Warn("rolling back migrations", slog.Int("steps", max(*steps, 1)))
		if err := migrator.Down(*steps); err != nil {
			return fmt.Errorf("migration down failed: %w", err)
		}
		logger.Info("rollback completed")

	case "version":
		version, dirty, err := migrator.Version()
		if err != nil {
			return fmt.Errorf("failed to get version: %w", err)
		}
		logger.Info("current version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))

	case "force":
		if *steps == 0 {
			return fmt.Errorf("steps flag is required for force action")
		}
		logger.Warn("forcing migration version", slog.Int("version", *steps))
		if err := migrator.Force(*steps); err != nil {
			return fmt.Errorf("force migration failed: %w", err)
		}

	default:
		return fmt.Errorf("invalid action: %s (use: up, down, version, force)", *action)
	}

	return nil
}
