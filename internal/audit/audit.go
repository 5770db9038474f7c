// Package audit records who changed what. Audit writes are best effort and
// never fail the operation being audited.
package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Actions recorded by the application.
const (
	ActionOrderCreated       = "order.created"
	ActionOrderStatusChanged = "order.status_changed"
	ActionPromotionImported  = "promotion.imported"
)

// Entry is a single audit record. UserID is nil for system actions.
type Entry struct {
	UserID   *int64
	Action   string
	Entity   string
	EntityID string
	Details  map[string]any
}

// Logger records audit entries.
type Logger interface {
	Log(ctx context.Context, entry Entry)
}

// PostgresLogger writes audit entries to the audit_logs table.
type PostgresLogger struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresLogger creates an audit logger backed by pool.
func NewPostgresLogger(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresLogger {
	return &PostgresLogger{
		pool:   pool,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Log inserts entry. Failures are logged and dropped.
func (l *PostgresLogger) Log(ctx context.Context, entry Entry) {
	details := []byte("{}")
	if len(entry.Details) > 0 {
		encoded, err := json.Marshal(entry.Details)
		if err != nil {
			l.logger.Warn().Err(err).Str("action", entry.Action).Msg("failed to encode audit details")
		} else {
			details = encoded
		}
	}

	query := `
		INSERT INTO audit_logs (id, user_id, action, entity, entity_id, details)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := l.pool.Exec(ctx, query, uuid.New(), entry.UserID, entry.Action, entry.Entity, entry.EntityID, details)
	if err != nil {
		l.logger.Warn().
			Err(err).
			Str("action", entry.Action).
			Str("entity", entry.Entity).
			Str("entity_id", entry.EntityID).
			Msg("failed to write audit log")
	}
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Log(context.Context, Entry) {}
