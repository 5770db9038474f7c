package repository

import (
	"context"
	"fmt"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// catalogRepository implements the CatalogRepository interface using PostgreSQL.
type catalogRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCatalogRepository creates a new PostgreSQL-backed catalog repository.
func NewCatalogRepository(pool *pgxpool.Pool, logger zerolog.Logger) CatalogRepository {
	return &catalogRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "catalog").Logger(),
	}
}

// GetEntries reads product-level and variant-level keys with two concurrent
// queries straight from the database.
func (r *catalogRepository) GetEntries(ctx context.Context, keys []model.CatalogKey) (map[model.CatalogKey]model.CatalogEntry, error) {
	entries := make(map[model.CatalogKey]model.CatalogEntry, len(keys))
	if len(keys) == 0 {
		return entries, nil
	}

	var productIDs, variantIDs []int64
	for _, k := range keys {
		if k.HasVariant() {
			variantIDs = append(variantIDs, k.VariantID)
		} else {
			productIDs = append(productIDs, k.ProductID)
		}
	}

	var products, variants map[int64]model.CatalogEntry

	g, gctx := errgroup.WithContext(ctx)
	if len(productIDs) > 0 {
		g.Go(func() error {
			var err error
			products, err = r.loadProducts(gctx, productIDs)
			return err
		})
	}
	if len(variantIDs) > 0 {
		g.Go(func() error {
			var err error
			variants, err = r.loadVariants(gctx, variantIDs)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, k := range keys {
		var (
			entry model.CatalogEntry
			ok    bool
		)
		if k.HasVariant() {
			entry, ok = variants[k.VariantID]
		} else {
			entry, ok = products[k.ProductID]
		}

		if !ok || entry.Key != k {
			r.logger.Warn().Stringer("key", k).Msg("catalog entry not found")
			return nil, model.NewProductNotFoundError(k)
		}
		if !entry.Active {
			r.logger.Warn().Stringer("key", k).Msg("catalog entry inactive")
			return nil, model.NewProductInactiveError(k)
		}

		entries[k] = entry
	}

	return entries, nil
}

func (r *catalogRepository) loadProducts(ctx context.Context, ids []int64) (map[int64]model.CatalogEntry, error) {
	query := `
		SELECT id, name, price, stock, active
		FROM products
		WHERE id = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]model.CatalogEntry, len(ids))
	for rows.Next() {
		var e model.CatalogEntry
		if err := rows.Scan(&e.Key.ProductID, &e.Name, &e.UnitPrice, &e.AvailableStock, &e.Active); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out[e.Key.ProductID] = e
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return out, nil
}

func (r *catalogRepository) loadVariants(ctx context.Context, ids []int64) (map[int64]model.CatalogEntry, error) {
	query := `
		SELECT v.id, v.product_id, p.name || ' - ' || v.name, v.price, v.stock, v.active AND p.active
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.id = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query variants")
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]model.CatalogEntry, len(ids))
	for rows.Next() {
		var e model.CatalogEntry
		if err := rows.Scan(&e.Key.VariantID, &e.Key.ProductID, &e.Name, &e.UnitPrice, &e.AvailableStock, &e.Active); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan variant row")
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		out[e.Key.VariantID] = e
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating variant rows")
		return nil, fmt.Errorf("error iterating variants: %w", err)
	}

	return out, nil
}

// DecrementStock removes quantity units with a single guarded update so that
// stock can never go negative under concurrent checkouts.
func (r *catalogRepository) DecrementStock(ctx context.Context, tx pgx.Tx, key model.CatalogKey, quantity int) (bool, error) {
	var (
		query string
		args  []any
	)
	if key.HasVariant() {
		query = `
			UPDATE product_variants
			SET stock = stock - $3, updated_at = NOW()
			WHERE id = $1 AND product_id = $2 AND stock >= $3
		`
		args = []any{key.VariantID, key.ProductID, quantity}
	} else {
		query = `
			UPDATE products
			SET stock = stock - $2, updated_at = NOW()
			WHERE id = $1 AND stock >= $2
		`
		args = []any{key.ProductID, quantity}
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Stringer("key", key).Int("quantity", quantity).Msg("failed to decrement stock")
		return false, fmt.Errorf("failed to decrement stock for %s: %w", key, err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Debug().Stringer("key", key).Int("quantity", quantity).Msg("stock guard rejected decrement")
		return false, nil
	}

	return true, nil
}

// RestoreStock returns quantity units to the product or variant.
func (r *catalogRepository) RestoreStock(ctx context.Context, tx pgx.Tx, key model.CatalogKey, quantity int) error {
	var (
		query string
		args  []any
	)
	if key.HasVariant() {
		query = `UPDATE product_variants SET stock = stock + $2, updated_at = NOW() WHERE id = $1`
		args = []any{key.VariantID, quantity}
	} else {
		query = `UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`
		args = []any{key.ProductID, quantity}
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		r.logger.Error().Err(err).Stringer("key", key).Int("quantity", quantity).Msg("failed to restore stock")
		return fmt.Errorf("failed to restore stock for %s: %w", key, err)
	}

	return nil
}
