package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"storefront/internal/config"
	"storefront/internal/database"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|version")
	flag.Parse()

	cfg, err := config.LoadTooling()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger, "migrate").With().Str("cmd", *cmd).Logger()

	ctx := context.Background()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	switch *cmd {
	case "up":
		if err := database.Migrate(ctx, pool, logger); err != nil {
			return err
		}
	case "down":
		if err := database.Rollback(ctx, pool, logger); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown -cmd value: %s", *cmd)
	}

	version, err := database.Version(ctx, pool)
	if err != nil {
		return err
	}
	logger.Info().Int64("version", version).Msg("schema version")
	fmt.Println("schema version:", version)

	return nil
}
