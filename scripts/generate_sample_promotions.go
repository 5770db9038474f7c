//go:build ignore

package main

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"storefront/internal/promoimport"
)

// generateSamplePromotions writes a gzipped promotion CSV for
// cmd/promo-import. The last two rows are rejected by the importer.
func main() {
	dataDir := "data/promotions"

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	rows := [][]string{
		{"SPRING20", "20% off spring collection", "percentage", "20", "25.00", "50.00", "2026-03-01T00:00:00Z", "2026-06-01T00:00:00Z", "500", "false", "false", "true"},
		{"WELCOME5", "5 off your first order", "fixed", "5.00", "", "20.00", "", "", "", "false", "false", "true"},
		{"FREESHIP", "Free shipping over 100", "fixed", "7.50", "", "100.00", "", "", "", "true", "false", "true"},
		{"VIP15", "VIP 15% capped at 40", "percentage", "15", "40.00", "", "", "", "100", "false", "true", "true"},
		{"RETIRED10", "Retired campaign", "percentage", "10", "", "", "", "", "", "false", "false", "false"},
		{"", "Missing code", "fixed", "5.00", "", "", "", "", "", "", "", ""},
		{"TOOMUCH", "Over 100 percent", "percentage", "120", "", "", "", "", "", "", "", ""},
	}

	filePath := filepath.Join(dataDir, "promotions.csv.gz")
	if err := createPromotionFile(filePath, rows); err != nil {
		log.Fatalf("Failed to create %s: %v", filePath, err)
	}

	fmt.Printf("Created %s with %d rows\n", filePath, len(rows))
	fmt.Println("\nImport it with:")
	fmt.Printf("  go run ./cmd/promo-import %s\n", filePath)
}

func createPromotionFile(filePath string, rows [][]string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	writer := csv.NewWriter(gzipWriter)
	if err := writer.Write(promoimport.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}

	return nil
}
