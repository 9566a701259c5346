package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file found for %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestCatalogMigrationEnforcesSingleOpenPriceVersion(t *testing.T) {
	content := readMigration(t, "*_create_catalog_tables.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS categories",
		"CREATE TABLE IF NOT EXISTS products",
		"CREATE TABLE IF NOT EXISTS price_versions",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_products_barcode_active ON products (barcode) WHERE deleted = false",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_price_versions_open ON price_versions (product_id) WHERE end_time IS NULL",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestLedgerMigrationContainsHistoryTables(t *testing.T) {
	content := readMigration(t, "*_create_ledger_and_history_tables.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS ledger_entries",
		"CREATE TABLE IF NOT EXISTS item_history",
		"CREATE TABLE IF NOT EXISTS user_history",
		"ledger_entry_id BIGINT REFERENCES ledger_entries (id)",
		"previous_price_id BIGINT REFERENCES price_versions (id)",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestSeedMigrationInsertsDefaults(t *testing.T) {
	content := readMigration(t, "*_seed_store_defaults.sql")

	for _, sub := range []string{"'globalDefaultMargin', '0.05'", "'defaultProductCategory', '1'", "'Uncategorized'"} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected seed %q", sub)
		}
	}
}
