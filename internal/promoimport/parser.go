package promoimport

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

const maxCodeLength = 64

// Parse decompresses r and parses it as a promotion CSV.
func Parse(ctx context.Context, r io.Reader) (*Batch, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	return ParseCSV(ctx, gzipReader)
}

// ParseCSV parses an uncompressed promotion CSV. Rows that fail validation
// are counted on the batch and do not stop the parse; a malformed header or
// unreadable input does.
func ParseCSV(ctx context.Context, r io.Reader) (*Batch, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("import file is empty")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	batch := &Batch{}
	seen := make(map[string]int)

	for row := 0; ; row++ {
		// Check context cancellation periodically
		if row%10_000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) && errors.Is(parseErr.Err, csv.ErrFieldCount) {
				batch.reject(err)
				continue
			}
			return nil, fmt.Errorf("failed to read import file: %w", err)
		}

		line, _ := reader.FieldPos(0)

		promotion, err := parseRow(record, index)
		if err != nil {
			batch.reject(fmt.Errorf("line %d: %w", line, err))
			continue
		}

		code := promotion.CodeValue()
		if first, dup := seen[code]; dup {
			batch.reject(fmt.Errorf("line %d: duplicate code %s, first seen on line %d", line, code, first))
			continue
		}
		seen[code] = line

		batch.Promotions = append(batch.Promotions, *promotion)
	}

	return batch, nil
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate column %q in header", name)
		}
		index[name] = i
	}

	var missing []string
	for _, column := range Columns {
		if _, ok := index[column]; !ok {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("header is missing columns: %s", strings.Join(missing, ", "))
	}

	return index, nil
}

func parseRow(record []string, index map[string]int) (*model.Promotion, error) {
	field := func(name string) string {
		return strings.TrimSpace(record[index[name]])
	}

	code := model.NormalizeCode(field("code"))
	if code == "" {
		return nil, errors.New("code is required")
	}
	if len(code) > maxCodeLength {
		return nil, fmt.Errorf("code must be at most %d characters", maxCodeLength)
	}

	p := &model.Promotion{
		Code:         &code,
		Description:  field("description"),
		DiscountType: model.DiscountType(strings.ToLower(field("discount_type"))),
	}
	if !p.DiscountType.IsValid() {
		return nil, fmt.Errorf("unknown discount_type %q", field("discount_type"))
	}

	value, err := decimal.NewFromString(field("discount_value"))
	if err != nil {
		return nil, fmt.Errorf("invalid discount_value: %w", err)
	}
	if !value.IsPositive() {
		return nil, errors.New("discount_value must be positive")
	}
	if p.DiscountType == model.DiscountPercentage && value.GreaterThan(decimal.NewFromInt(100)) {
		return nil, errors.New("percentage discount_value must not exceed 100")
	}
	p.DiscountValue = value

	if p.MaxDiscount, err = optionalAmount(field("max_discount")); err != nil {
		return nil, fmt.Errorf("invalid max_discount: %w", err)
	}
	if p.MinOrderAmount, err = optionalAmount(field("min_order_amount")); err != nil {
		return nil, fmt.Errorf("invalid min_order_amount: %w", err)
	}

	if p.StartsAt, err = optionalTime(field("starts_at")); err != nil {
		return nil, fmt.Errorf("invalid starts_at: %w", err)
	}
	if p.EndsAt, err = optionalTime(field("ends_at")); err != nil {
		return nil, fmt.Errorf("invalid ends_at: %w", err)
	}
	if p.StartsAt != nil && p.EndsAt != nil && !p.EndsAt.After(*p.StartsAt) {
		return nil, errors.New("ends_at must be after starts_at")
	}

	if raw := field("usage_limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid usage_limit: %w", err)
		}
		if limit < 0 {
			return nil, errors.New("usage_limit must not be negative")
		}
		p.UsageLimit = &limit
	}

	if p.AutoApply, err = optionalFlag(field("auto_apply"), false); err != nil {
		return nil, fmt.Errorf("invalid auto_apply: %w", err)
	}
	if p.Stackable, err = optionalFlag(field("stackable"), false); err != nil {
		return nil, fmt.Errorf("invalid stackable: %w", err)
	}
	if p.Active, err = optionalFlag(field("active"), true); err != nil {
		return nil, fmt.Errorf("invalid active: %w", err)
	}

	return p, nil
}

func optionalAmount(raw string) (decimal.NullDecimal, error) {
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	if amount.IsNegative() {
		return decimal.NullDecimal{}, errors.New("must not be negative")
	}
	return decimal.NewNullDecimal(amount), nil
}

func optionalTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

func optionalFlag(raw string, fallback bool) (bool, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseBool(raw)
}
