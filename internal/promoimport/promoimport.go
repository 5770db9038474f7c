// Package promoimport loads promotion definitions from gzipped CSV files and
// upserts them into the promotion store.
package promoimport

import (
	"context"

	"storefront/internal/model"

	"go.uber.org/multierr"
)

// Columns is the header every import file must carry. Column order is free
// and unknown columns are ignored.
var Columns = []string{
	"code",
	"description",
	"discount_type",
	"discount_value",
	"max_discount",
	"min_order_amount",
	"starts_at",
	"ends_at",
	"usage_limit",
	"auto_apply",
	"stackable",
	"active",
}

// Batch is the parsed content of one import file.
type Batch struct {
	// Source is where the batch was read from, a local path or an s3:// URL.
	Source string

	Promotions []model.Promotion

	// Rejected counts rows that failed to parse. RowErrors combines their errors.
	Rejected  int
	RowErrors error
}

func (b *Batch) reject(err error) {
	b.Rejected++
	b.RowErrors = multierr.Append(b.RowErrors, err)
}

// Loader defines the interface for reading import files.
type Loader interface {
	// Load reads a gzipped promotion CSV and returns its parsed rows.
	Load(ctx context.Context, path string) (*Batch, error)
}
