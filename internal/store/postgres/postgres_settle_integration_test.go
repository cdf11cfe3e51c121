package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"titipjual/backend/internal/domain"
)

func TestSettleAndUndoSaleRoundTrip(t *testing.T) {
	databaseURL := os.Getenv("TITIPJUAL_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set TITIPJUAL_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	locationID := fmt.Sprintf("loc-it-%d", stamp)
	componentID := fmt.Sprintf("ITM-IT-%d", stamp)
	comboID := fmt.Sprintf("CMB-IT-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM commissions WHERE sale_id IN (SELECT id FROM sales WHERE location_id = $1)`, locationID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_lines WHERE sale_id IN (SELECT id FROM sales WHERE location_id = $1)`, locationID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE location_id = $1`, locationID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM stock_entries WHERE location_id = $1`, locationID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM item_components WHERE combo_id = $1`, comboID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM items WHERE id IN ($1, $2)`, componentID, comboID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM locations WHERE id = $1`, locationID)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO locations (id, name, created_at)
		VALUES ($1, 'Toko Integrasi', now())
	`, locationID); err != nil {
		t.Fatalf("insert location: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, name, category_id, is_combo, price_usd_cents, price_local_cents, active, created_at, updated_at)
		VALUES
			($1, 'Komponen IT', 'accessory', false, 200, 3100000, true, now(), now()),
			($2, 'Paket IT', 'bundle', true, 500, 7500000, true, now(), now())
	`, componentID, comboID); err != nil {
		t.Fatalf("insert items: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO item_components (combo_id, item_id, quantity)
		VALUES ($1, $2, 2)
	`, comboID, componentID); err != nil {
		t.Fatalf("insert combo component: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO stock_entries (item_id, location_id, quantity, updated_at)
		VALUES ($1, $2, 10, now())
	`, componentID, locationID); err != nil {
		t.Fatalf("seed stock: %v", err)
	}

	sale, err := s.CreateSale(ctx, domain.Sale{
		LocationID:    locationID,
		Currency:      "IDR",
		PaymentMethod: "cash",
		Lines: []domain.SaleLine{
			{ItemID: comboID, Quantity: 3, UnitPriceCents: 7500000},
		},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if sale.TotalCents != 3*7500000 {
		t.Fatalf("unexpected total %d", sale.TotalCents)
	}

	var quantity int
	if err := s.db.QueryRowContext(ctx, `
		SELECT quantity
		FROM stock_entries
		WHERE item_id = $1 AND location_id = $2
	`, componentID, locationID).Scan(&quantity); err != nil {
		t.Fatalf("query stock: %v", err)
	}
	if quantity != 4 {
		t.Fatalf("expected stock 4 after combo settlement (10 - 3*2), got %d", quantity)
	}

	undone, retainedPaid, err := s.UndoSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("undo sale: %v", err)
	}
	if undone.ID != sale.ID || retainedPaid != 0 {
		t.Fatalf("unexpected undo result: id=%s retained=%d", undone.ID, retainedPaid)
	}

	if err := s.db.QueryRowContext(ctx, `
		SELECT quantity
		FROM stock_entries
		WHERE item_id = $1 AND location_id = $2
	`, componentID, locationID).Scan(&quantity); err != nil {
		t.Fatalf("query stock after undo: %v", err)
	}
	if quantity != 10 {
		t.Fatalf("expected stock restored to 10, got %d", quantity)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `
		SELECT count(*)
		FROM sales
		WHERE id = $1
	`, sale.ID).Scan(&count); err != nil {
		t.Fatalf("query sale count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected sale deleted after undo, got %d rows", count)
	}
}
