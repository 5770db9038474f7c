package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/audit"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/promoimport"
	"storefront/internal/repository"

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

	dryRun := flag.Bool("dry-run", false, "parse and report without writing")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: promo-import [-dry-run] FILE.csv.gz...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		flag.Usage()
		return fmt.Errorf("no import files given")
	}

	cfg, err := config.LoadTooling()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger, "promo-import")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize promotion loader with S3 and local fallback
	fileLoader := promoimport.NewFileLoader(logger)
	var s3Loader promoimport.Loader
	if cfg.S3.Enabled {
		s3Loader, err = promoimport.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
			s3Loader = nil
		}
	} else {
		logger.Info().Msg("using local file system for promotion files (S3 disabled)")
	}
	loader := promoimport.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, cfg.S3.Enabled, logger)

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	importer := promoimport.NewImporter(
		loader,
		repository.NewPromotionRepository(pool, logger),
		audit.NewPostgresLogger(pool, logger),
		logger,
	)

	summary, err := importer.Import(ctx, paths, *dryRun)
	if summary != nil {
		fmt.Printf("files=%d parsed=%d inserted=%d updated=%d rejected=%d failed=%d\n",
			summary.Files, summary.Parsed, summary.Inserted, summary.Updated, summary.Rejected, summary.Failed)
	}
	if err != nil {
		return fmt.Errorf("promotion import finished with errors: %w", err)
	}

	return nil
}
