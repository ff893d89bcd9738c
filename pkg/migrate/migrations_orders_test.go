package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_retailer_orders.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no retailer orders migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TYPE order_status AS ENUM",
		"CREATE TYPE placement_method AS ENUM",
		"CREATE TABLE IF NOT EXISTS retailer_orders",
		"CREATE TABLE IF NOT EXISTS order_items",
		"FOREIGN KEY (session_id) REFERENCES checkout_sessions(id) ON DELETE CASCADE",
		"FOREIGN KEY (order_id) REFERENCES retailer_orders(id) ON DELETE CASCADE",
		"CHECK (quantity > 0)",
		"CHECK (placement_attempts >= 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_retailer_orders_order_number",
		"CREATE INDEX IF NOT EXISTS idx_retailer_orders_manual_queue",
		"WHERE status = 'pending' AND placement_method = 'manual'",
		"DROP TABLE IF EXISTS retailer_orders",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOutboxMigrationContainsTables(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_outbox_tables.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no outbox migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS outbox_events",
		"CREATE TABLE IF NOT EXISTS outbox_dlqs",
		"CREATE INDEX IF NOT EXISTS idx_outbox_events_unpublished",
		"WHERE published_at IS NULL",
		"DROP TABLE IF EXISTS outbox_dlqs",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
