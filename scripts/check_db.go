//go:build ignore

package main

import (
	"context"
	"fmt"
	"os"

	"storefront/internal/config"
	"storefront/internal/database"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// check_db connects with the configured database settings and prints the
// schema version and row counts of the main tables.
func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadTooling()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := database.NewPool(ctx, cfg.Database, zerolog.Nop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	var dbName string
	if err := pool.QueryRow(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		fmt.Fprintf(os.Stderr, "QueryRow failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully connected to database: %s\n", dbName)

	version, err := database.Version(ctx, pool)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to read schema version: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Schema version: %d\n", version)

	fmt.Println("\nRow counts:")
	for _, table := range []string{"products", "product_variants", "promotions", "orders", "audit_logs"} {
		var count int64
		if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			fmt.Printf("  - %s: %v\n", table, err)
			continue
		}
		fmt.Printf("  - %s: %d\n", table, count)
	}
}
