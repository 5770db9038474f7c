package promoimport

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for gzipped CSV files on the local file system.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based promotion loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "promo-file-loader").Logger(),
	}
}

// Load reads a gzipped promotion CSV from filePath.
func (l *fileLoader) Load(ctx context.Context, filePath string) (*Batch, error) {
	l.logger.Info().Str("file", filePath).Msg("loading promotion file")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open promotion file")
		return nil, fmt.Errorf("failed to open promotion file %s: %w", filePath, err)
	}
	defer file.Close()

	batch, err := Parse(ctx, file)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to parse promotion file")
		return nil, fmt.Errorf("failed to parse promotion file %s: %w", filePath, err)
	}
	batch.Source = filePath

	l.logger.Info().
		Str("file", filePath).
		Int("promotions", len(batch.Promotions)).
		Int("rejected", batch.Rejected).
		Msg("promotion file loaded")

	return batch, nil
}
