package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const promotionColumns = `
	id, code, description, auto_apply, active, discount_type, discount_value,
	max_discount, min_order_amount, starts_at, ends_at, usage_limit, usage_count,
	stackable, created_at, updated_at
`

// promotionRepository implements the PromotionRepository interface using PostgreSQL.
type promotionRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPromotionRepository creates a new PostgreSQL-backed promotion repository.
func NewPromotionRepository(pool *pgxpool.Pool, logger zerolog.Logger) PromotionRepository {
	return &promotionRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "promotion").Logger(),
	}
}

func scanPromotion(row pgx.Row, p *model.Promotion) error {
	return row.Scan(
		&p.ID,
		&p.Code,
		&p.Description,
		&p.AutoApply,
		&p.Active,
		&p.DiscountType,
		&p.DiscountValue,
		&p.MaxDiscount,
		&p.MinOrderAmount,
		&p.StartsAt,
		&p.EndsAt,
		&p.UsageLimit,
		&p.UsageCount,
		&p.Stackable,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

// GetByID retrieves a promotion by id, or nil when it does not exist.
func (r *promotionRepository) GetByID(ctx context.Context, id int64) (*model.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1`

	var p model.Promotion
	if err := scanPromotion(r.pool.QueryRow(ctx, query, id), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("promotion_id", id).Msg("promotion not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("promotion_id", id).Msg("failed to query promotion")
		return nil, fmt.Errorf("failed to query promotion: %w", err)
	}

	return &p, nil
}

// FindByCode retrieves a promotion by its normalised code.
func (r *promotionRepository) FindByCode(ctx context.Context, code string) (*model.Promotion, error) {
	code = model.NormalizeCode(code)
	if code == "" {
		return nil, nil
	}

	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE code = $1`

	var p model.Promotion
	if err := scanPromotion(r.pool.QueryRow(ctx, query, code), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("code", code).Msg("promotion code not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("code", code).Msg("failed to query promotion by code")
		return nil, fmt.Errorf("failed to query promotion by code: %w", err)
	}

	return &p, nil
}

// FindActiveAutoApply lists the auto-apply promotions usable at now.
func (r *promotionRepository) FindActiveAutoApply(ctx context.Context, now time.Time) ([]model.Promotion, error) {
	query := `SELECT ` + promotionColumns + `
		FROM promotions
		WHERE auto_apply
		  AND active
		  AND (starts_at IS NULL OR starts_at <= $1)
		  AND (ends_at IS NULL OR ends_at >= $1)
		  AND (usage_limit IS NULL OR usage_count < usage_limit)
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query auto-apply promotions")
		return nil, fmt.Errorf("failed to query auto-apply promotions: %w", err)
	}
	defer rows.Close()

	var promotions []model.Promotion
	for rows.Next() {
		var p model.Promotion
		if err := scanPromotion(rows, &p); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan promotion row")
			return nil, fmt.Errorf("failed to scan promotion: %w", err)
		}
		promotions = append(promotions, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating promotion rows")
		return nil, fmt.Errorf("error iterating promotions: %w", err)
	}

	return promotions, nil
}

// IncrementUsage re-checks every eligibility condition that can change
// between resolution and commit inside the same statement that consumes the
// slot, so two concurrent checkouts can never both take the last one.
func (r *promotionRepository) IncrementUsage(ctx context.Context, tx pgx.Tx, id int64, now time.Time) (bool, error) {
	query := `
		UPDATE promotions
		SET usage_count = usage_count + 1, updated_at = NOW()
		WHERE id = $1
		  AND active
		  AND (starts_at IS NULL OR starts_at <= $2)
		  AND (ends_at IS NULL OR ends_at >= $2)
		  AND (usage_limit IS NULL OR usage_count < usage_limit)
	`

	tag, err := tx.Exec(ctx, query, id, now)
	if err != nil {
		r.logger.Error().Err(err).Int64("promotion_id", id).Msg("failed to increment promotion usage")
		return false, fmt.Errorf("failed to increment promotion usage: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Info().Int64("promotion_id", id).Msg("promotion no longer usable")
		return false, nil
	}

	return true, nil
}

// DecrementUsage releases a previously consumed usage slot.
func (r *promotionRepository) DecrementUsage(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	query := `
		UPDATE promotions
		SET usage_count = usage_count - 1, updated_at = NOW()
		WHERE id = $1 AND usage_count > 0
	`

	tag, err := tx.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error().Err(err).Int64("promotion_id", id).Msg("failed to release promotion usage")
		return false, fmt.Errorf("failed to release promotion usage: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Upsert writes an imported promotion keyed by its code.
func (r *promotionRepository) Upsert(ctx context.Context, p *model.Promotion) (bool, error) {
	if p.Code == nil || model.NormalizeCode(*p.Code) == "" {
		return false, model.NewValidationError("promotion code is required for upsert")
	}
	code := model.NormalizeCode(*p.Code)
	p.Code = &code

	query := `
		INSERT INTO promotions (
			code, description, auto_apply, active, discount_type, discount_value,
			max_discount, min_order_amount, starts_at, ends_at, usage_limit, stackable
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (code) DO UPDATE SET
			description      = EXCLUDED.description,
			auto_apply       = EXCLUDED.auto_apply,
			active           = EXCLUDED.active,
			discount_type    = EXCLUDED.discount_type,
			discount_value   = EXCLUDED.discount_value,
			max_discount     = EXCLUDED.max_discount,
			min_order_amount = EXCLUDED.min_order_amount,
			starts_at        = EXCLUDED.starts_at,
			ends_at          = EXCLUDED.ends_at,
			usage_limit      = EXCLUDED.usage_limit,
			stackable        = EXCLUDED.stackable,
			updated_at       = NOW()
		RETURNING id, usage_count, created_at, updated_at, (xmax = 0) AS inserted
	`

	var inserted bool
	err := r.pool.QueryRow(ctx, query,
		code,
		p.Description,
		p.AutoApply,
		p.Active,
		p.DiscountType,
		p.DiscountValue,
		p.MaxDiscount,
		p.MinOrderAmount,
		p.StartsAt,
		p.EndsAt,
		p.UsageLimit,
		p.Stackable,
	).Scan(&p.ID, &p.UsageCount, &p.CreatedAt, &p.UpdatedAt, &inserted)
	if err != nil {
		r.logger.Error().Err(err).Str("code", code).Msg("failed to upsert promotion")
		return false, fmt.Errorf("failed to upsert promotion %s: %w", code, err)
	}

	r.logger.Debug().
		Str("code", code).
		Int64("promotion_id", p.ID).
		Bool("inserted", inserted).
		Msg("promotion upserted")

	return inserted, nil
}
