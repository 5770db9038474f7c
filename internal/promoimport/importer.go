package promoimport

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/audit"
	"storefront/internal/model"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Upserter stores imported promotions keyed by code. It reports whether the
// promotion was newly inserted.
type Upserter interface {
	Upsert(ctx context.Context, p *model.Promotion) (bool, error)
}

// Summary reports what an import run did.
type Summary struct {
	Files    int
	Parsed   int
	Inserted int
	Updated  int
	Rejected int
	Failed   int
}

// Importer loads promotion files and writes them to the store.
type Importer struct {
	loader  Loader
	store   Upserter
	auditor audit.Logger
	logger  zerolog.Logger
}

// NewImporter creates an importer. auditor may be nil.
func NewImporter(loader Loader, store Upserter, auditor audit.Logger, logger zerolog.Logger) *Importer {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &Importer{
		loader:  loader,
		store:   store,
		auditor: auditor,
		logger:  logger.With().Str("component", "promo-importer").Logger(),
	}
}

// Import loads every path concurrently, then upserts the parsed promotions in
// path order so a later file wins when two files carry the same code. A file
// that cannot be loaded aborts the run before anything is written. Rejected
// rows and failed upserts do not stop the run; they are combined into the
// returned error alongside the summary. With dryRun set nothing is written.
func (i *Importer) Import(ctx context.Context, paths []string, dryRun bool) (*Summary, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no import files given")
	}

	batches := make([]*Batch, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for idx, path := range paths {
		g.Go(func() error {
			batch, err := i.loader.Load(gctx, path)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", path, err)
			}
			batches[idx] = batch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		i.logger.Error().Err(err).Msg("promotion import aborted")
		return nil, err
	}

	summary := &Summary{Files: len(batches)}
	var problems error

	for _, batch := range batches {
		summary.Parsed += len(batch.Promotions)
		summary.Rejected += batch.Rejected
		if batch.RowErrors != nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: %w", batch.Source, batch.RowErrors))
		}

		if dryRun {
			continue
		}

		for idx := range batch.Promotions {
			if err := ctx.Err(); err != nil {
				return summary, multierr.Append(problems, err)
			}

			promotion := &batch.Promotions[idx]
			inserted, err := i.store.Upsert(ctx, promotion)
			if err != nil {
				summary.Failed++
				problems = multierr.Append(problems, fmt.Errorf("%s: %s: %w", batch.Source, promotion.CodeValue(), err))
				continue
			}
			if inserted {
				summary.Inserted++
			} else {
				summary.Updated++
			}
		}
	}

	if !dryRun && summary.Inserted+summary.Updated > 0 {
		i.auditor.Log(ctx, audit.Entry{
			Action:   audit.ActionPromotionImported,
			Entity:   "promotion_import",
			EntityID: strings.Join(paths, ","),
			Details: map[string]any{
				"files":    summary.Files,
				"inserted": summary.Inserted,
				"updated":  summary.Updated,
				"rejected": summary.Rejected,
				"failed":   summary.Failed,
			},
		})
	}

	i.logger.Info().
		Int("files", summary.Files).
		Int("parsed", summary.Parsed).
		Int("inserted", summary.Inserted).
		Int("updated", summary.Updated).
		Int("rejected", summary.Rejected).
		Int("failed", summary.Failed).
		Bool("dry_run", dryRun).
		Msg("promotion import finished")

	return summary, problems
}
