package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"titipjual/backend/internal/availability"
	"titipjual/backend/internal/cache"
	"titipjual/backend/internal/commission"
	"titipjual/backend/internal/domain"
	"titipjual/backend/internal/store"
	"titipjual/backend/internal/store/memory"
)

func newTestService() *Service {
	repo := memory.NewSeeded()
	resolver := availability.NewResolver(3)
	calc := commission.NewCalculator()
	return New(repo, resolver, calc, cache.NoopAvailabilityCache{}, time.Second, "loc-main", "IDR")
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func staffCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "staff", Role: "staff"})
}

func TestReservationLowersAvailabilityNotStock(t *testing.T) {
	svc := newTestService()
	ctx := staffCtx()

	before, err := svc.AvailableToReserve(ctx, "ITM-KAOS-01", "loc-main")
	if err != nil {
		t.Fatalf("available: %v", err)
	}

	_, err = svc.CreateReservation(ctx, domain.ReservationCreateRequest{
		ClientID: "client-1",
		ItemID:   "ITM-KAOS-01",
		Quantity: 5,
	})
	if err != nil {
		t.Fatalf("create reservation failed: %v", err)
	}

	after, err := svc.AvailableToReserve(ctx, "ITM-KAOS-01", "loc-main")
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if after != before-5 {
		t.Fatalf("expected availability %d, got %d", before-5, after)
	}

	stock, err := svc.GetStock(ctx, "ITM-KAOS-01", "loc-main")
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if stock.Quantity != before {
		t.Fatalf("pending reservation must not touch the ledger: stock %d, want %d", stock.Quantity, before)
	}
}

func TestCancelReservationRestoresAvailability(t *testing.T) {
	svc := newTestService()
	ctx := staffCtx()

	reservation, err := svc.CreateReservation(ctx, domain.ReservationCreateRequest{
		ClientID: "client-1",
		ItemID:   "ITM-TOTE-01",
		Quantity: 3,
	})
	if err != nil {
		t.Fatalf("create reservation failed: %v", err)
	}

	cancelled, err := svc.CancelReservation(ctx, reservation.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != domain.ReservationStatusCancelled {
		t.Fatalf("expected status cancelled, got %s", cancelled.Status)
	}
	if cancelled.CancelledAt == nil {
		t.Fatalf("expected cancelled_at to be set")
	}

	available, err := svc.AvailableToReserve(ctx, "ITM-TOTE-01", "loc-main")
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if available != 40 {
		t.Fatalf("expected full availability 40 after cancel, got %d", available)
	}

	// Terminal states are final.
	if _, err := svc.CancelReservation(ctx, reservation.ID); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition on second cancel, got %v", err)
	}
}

func TestCompleteReservationSettlesSale(t *testing.T) {
	svc := newTestService()
	ctx := staffCtx()

	reservation, err := svc.CreateReservation(ctx, domain.ReservationCreateRequest{
		ClientID: "client-1",
		ItemID:   "ITM-KAOS-01",
		Quantity: 2,
	})
	if err != nil {
		t.Fatalf("create reservation failed: %v", err)
	}

	completed, sale, err := svc.CompleteReservation(ctx, reservation.ID, domain.ReservationCompleteRequest{
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if completed.Status != domain.ReservationStatusCompleted {
		t.Fatalf("expected status completed, got %s", completed.Status)
	}
	if completed.SaleID != sale.ID {
		t.Fatalf("reservation should reference sale %s, got %s", sale.ID, completed.SaleID)
	}
	if sale.Currency != "IDR" {
		t.Fatalf("expected default currency IDR, got %s", sale.Currency)
	}
	if sale.TotalCents != 2*14000000 {
		t.Fatalf("expected total %d, got %d", 2*14000000, sale.TotalCents)
	}

	stock, err := svc.GetStock(ctx, "ITM-KAOS-01", "loc-main")
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if stock.Quantity != 38 {
		t.Fatalf("expected stock 38 after settlement, got %d", stock.Quantity)
	}

	// A completed reservation can be neither completed again nor cancelled.
	if _, _, err := svc.CompleteReservation(ctx, reservation.ID, domain.ReservationCompleteRequest{}); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition on second complete, got %v", err)
	}
	if _, err := svc.CancelReservation(ctx, reservation.ID); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition cancelling completed reservation, got %v", err)
	}
}

func TestCompleteReservationUSDPricing(t *testing.T) {
	svc := newTestService()
	ctx := staffCtx()

	reservation, err := svc.CreateReservation(ctx, domain.ReservationCreateRequest{
		ClientID: "client-usd",
		ItemID:   "ITM-MUG-01",
		Quantity: 3,
	})
	if err != nil {
		t.Fatalf("create reservation failed: %v", err)
	}

	_, sale, err := svc.CompleteReservation(ctx, reservation.ID, domain.ReservationCompleteRequest{
		Currency: "usd",
	})
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if sale.Currency != domain.CurrencyUSD {
		t.Fatalf("expected USD, got %s", sale.Currency)
	}
	if sale.TotalCents != 3*500 {
		t.Fatalf("expected USD total 1500, got %d", sale.TotalCents)
	}
}

func TestReservationRejectsCombo(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateReservation(staffCtx(), domain.ReservationCreateRequest{
		ClientID: "client-1",
		ItemID:   "CMB-MERCH-01",
		Quantity: 1,
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for combo reservation, got %v", err)
	}
}

func TestReservationInsufficientAvailability(t *testing.T) {
	svc := newTestService()
	ctx := staffCtx()

	if _, err := svc.SetStock(adminCtx(), domain.StockSetRequest{ItemID: "ITM-GANCI-01", Quantity: 4}); err != nil {
		t.Fatalf("set stock: %v", err)
	}

	if _, err := svc.CreateReservation(ctx, domain.ReservationCreateRequest{
		ClientID: "client-1", ItemID: "ITM-GANCI-01", Quantity: 4,
	}); err != nil {
		t.Fatalf("first reservation failed: %v", err)
	}

	_, err := svc.CreateReservation(ctx, domain.ReservationCreateRequest{
		ClientID: "client-2", ItemID: "ITM-GANCI-01", Quantity: 1,
	})
	if !errors.Is(err, store.ErrInsufficientAvailability) {
		t.Fatalf("expected insufficient availability, got %v", err)
	}
}

func TestSettleComboExpandsComponents(t *testing.T) {
	svc := newTestService()
	ctx := staffCtx()

	// CMB-MERCH-01 = 1x ITM-KAOS-01 + 2x ITM-STIKER-01.
	sale, err := svc.Settle(ctx, domain.SettleRequest{
		Lines: []domain.SettleLine{{ItemID: "CMB-MERCH-01", Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if sale.TotalCents != 2*15500000 {
		t.Fatalf("combo should price as the combo: got %d", sale.TotalCents)
	}

	kaos, _ := svc.GetStock(ctx, "ITM-KAOS-01", "loc-main")
	stiker, _ := svc.GetStock(ctx, "ITM-STIKER-01", "loc-main")
	if kaos.Quantity != 38 {
		t.Fatalf("expected kaos stock 38, got %d", kaos.Quantity)
	}
	if stiker.Quantity != 36 {
		t.Fatalf("expected stiker stock 36, got %d", stiker.Quantity)
	}
}

func TestSettleIsAtomicOnInsufficientStock(t *testing.T) {
	svc := newTestService()
	ctx := staffCtx()

	if _, err := svc.SetStock(adminCtx(), domain.StockSetRequest{ItemID: "ITM-STIKER-01", Quantity: 1}); err != nil {
		t.Fatalf("set stock: %v", err)
	}

	// Second line needs 2 stiker, only 1 on hand. Nothing may settle.
	_, err := svc.Settle(ctx, domain.SettleRequest{
		Lines: []domain.SettleLine{
			{ItemID: "ITM-KAOS-01", Quantity: 1},
			{ItemID: "CMB-MERCH-01", Quantity: 1},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	kaos, _ := svc.GetStock(ctx, "ITM-KAOS-01", "loc-main")
	stiker, _ := svc.GetStock(ctx, "ITM-STIKER-01", "loc-main")
	if kaos.Quantity != 40 || stiker.Quantity != 1 {
		t.Fatalf("failed settlement must leave the ledger untouched: kaos=%d stiker=%d", kaos.Quantity, stiker.Quantity)
	}

	sales, err := svc.ListSales(ctx, "loc-main", 10)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("expected no sale recorded, got %d", len(sales))
	}
}

func TestSettleComputesCommissions(t *testing.T) {
	svc := newTestService()
	ctx := staffCtx()

	// Seeded: SEL-RINA default 5% with apparel override 10%, SEL-BAYU 7.5%.
	sale, err := svc.Settle(ctx, domain.SettleRequest{
		Lines: []domain.SettleLine{{ItemID: "ITM-KAOS-01", Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	commissions, err := svc.ListCommissionsBySale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("list commissions: %v", err)
	}
	if len(commissions) != 2 {
		t.Fatalf("expected a commission row per seller, got %d", len(commissions))
	}

	// Sorted by seller id: SEL-BAYU then SEL-RINA.
	subtotal := int64(2 * 14000000)
	if commissions[0].SellerID != "SEL-BAYU" || commissions[0].AmountCents != subtotal*75/1000 {
		t.Fatalf("bayu commission wrong: %+v", commissions[0])
	}
	if commissions[1].SellerID != "SEL-RINA" || commissions[1].AmountCents != subtotal/10 {
		t.Fatalf("rina commission should use the apparel override: %+v", commissions[1])
	}
	for _, c := range commissions {
		if c.Paid {
			t.Fatalf("commissions must be created unpaid: %+v", c)
		}
	}
}

func TestUndoSaleRestoresLedgerAndDeletesUnpaidCommissions(t *testing.T) {
	svc := newTestService()
	ctx := staffCtx()

	sale, err := svc.Settle(ctx, domain.SettleRequest{
		Lines: []domain.SettleLine{{ItemID: "CMB-OLEH-01", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	mug, _ := svc.GetStock(ctx, "ITM-MUG-01", "loc-main")
	if mug.Quantity != 39 {
		t.Fatalf("expected mug stock 39, got %d", mug.Quantity)
	}

	resp, err := svc.UndoSale(ctx, domain.UndoSaleRequest{SaleID: sale.ID, Reason: "mis-ring"})
	if err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	if resp.RetainedPaidCommissions != 0 {
		t.Fatalf("expected no retained paid commissions, got %d", resp.RetainedPaidCommissions)
	}

	mug, _ = svc.GetStock(ctx, "ITM-MUG-01", "loc-main")
	ganci, _ := svc.GetStock(ctx, "ITM-GANCI-01", "loc-main")
	if mug.Quantity != 40 || ganci.Quantity != 40 {
		t.Fatalf("undo must restore component stock: mug=%d ganci=%d", mug.Quantity, ganci.Quantity)
	}

	if _, err := svc.GetSale(ctx, sale.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected sale gone after undo, got %v", err)
	}
	commissions, err := svc.ListCommissionsBySale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("list commissions: %v", err)
	}
	if len(commissions) != 0 {
		t.Fatalf("expected unpaid commissions deleted, got %d", len(commissions))
	}

	if _, err := svc.UndoSale(ctx, domain.UndoSaleRequest{SaleID: sale.ID, Reason: "again"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found on double undo, got %v", err)
	}
}

func TestUndoSaleRetainsPaidCommissions(t *testing.T) {
	svc := newTestService()
	ctx := staffCtx()

	sale, err := svc.Settle(ctx, domain.SettleRequest{
		Lines: []domain.SettleLine{{ItemID: "ITM-KAOS-01", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	commissions, err := svc.ListCommissionsBySale(ctx, sale.ID)
	if err != nil || len(commissions) == 0 {
		t.Fatalf("expected commissions, got %d err=%v", len(commissions), err)
	}
	if _, err := svc.MarkCommissionPaid(adminCtx(), commissions[0].ID); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}

	resp, err := svc.UndoSale(ctx, domain.UndoSaleRequest{SaleID: sale.ID, Reason: "refund"})
	if err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	if resp.RetainedPaidCommissions != 1 {
		t.Fatalf("expected 1 retained paid commission, got %d", resp.RetainedPaidCommissions)
	}
}

func TestComboAvailabilityLimitedByScarcestComponent(t *testing.T) {
	svc := newTestService()
	admin := adminCtx()

	// CMB-MERCH-01 needs 1 kaos and 2 stiker per unit.
	if _, err := svc.SetStock(admin, domain.StockSetRequest{ItemID: "ITM-KAOS-01", Quantity: 10}); err != nil {
		t.Fatalf("set stock: %v", err)
	}
	if _, err := svc.SetStock(admin, domain.StockSetRequest{ItemID: "ITM-STIKER-01", Quantity: 7}); err != nil {
		t.Fatalf("set stock: %v", err)
	}

	entry, err := svc.ItemAvailability(staffCtx(), "CMB-MERCH-01", "loc-main")
	if err != nil {
		t.Fatalf("availability failed: %v", err)
	}
	if entry.Quantity != 3 {
		t.Fatalf("expected 3 sellable units (7/2), got %d", entry.Quantity)
	}
	if entry.LimitingItemID != "ITM-STIKER-01" {
		t.Fatalf("expected stiker to be limiting, got %s", entry.LimitingItemID)
	}
	if entry.Status != domain.StockStatusLow {
		t.Fatalf("expected low-stock, got %s", entry.Status)
	}
}

func TestBulkAvailabilityAccountsForHolds(t *testing.T) {
	svc := newTestService()
	ctx := staffCtx()

	if _, err := svc.CreateReservation(ctx, domain.ReservationCreateRequest{
		ClientID: "client-1", ItemID: "ITM-KAOS-01", Quantity: 39,
	}); err != nil {
		t.Fatalf("create reservation failed: %v", err)
	}

	resp, err := svc.BulkAvailability(ctx, domain.AvailabilityRequest{
		ItemIDs: []string{"ITM-KAOS-01", "CMB-MERCH-01", "ITM-MUG-01"},
	})
	if err != nil {
		t.Fatalf("bulk availability failed: %v", err)
	}
	if len(resp.Items) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(resp.Items))
	}

	byID := map[string]domain.ItemAvailability{}
	for _, entry := range resp.Items {
		byID[entry.ItemID] = entry
	}
	if byID["ITM-KAOS-01"].Quantity != 1 {
		t.Fatalf("expected 1 kaos available, got %d", byID["ITM-KAOS-01"].Quantity)
	}
	// The combo sees through to component holds: 1 kaos left limits it to 1.
	if byID["CMB-MERCH-01"].Quantity != 1 || byID["CMB-MERCH-01"].LimitingItemID != "ITM-KAOS-01" {
		t.Fatalf("combo availability should reflect component holds: %+v", byID["CMB-MERCH-01"])
	}
	if byID["ITM-MUG-01"].Quantity != 40 {
		t.Fatalf("expected 40 mugs, got %d", byID["ITM-MUG-01"].Quantity)
	}
}

func TestConcurrentAdjustNeverDrivesStockNegative(t *testing.T) {
	svc := newTestService()
	admin := adminCtx()

	if _, err := svc.SetStock(admin, domain.StockSetRequest{ItemID: "ITM-MUG-01", Quantity: 10}); err != nil {
		t.Fatalf("set stock: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AdjustStock(staffCtx(), domain.StockAdjustRequest{ItemID: "ITM-MUG-01", Delta: -1})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 {
		t.Fatalf("expected exactly 10 decrements to succeed, got %d", succeeded)
	}
	stock, _ := svc.GetStock(staffCtx(), "ITM-MUG-01", "loc-main")
	if stock.Quantity != 0 {
		t.Fatalf("expected stock 0, got %d", stock.Quantity)
	}
}

func TestConcurrentReservationsNeverOvercommit(t *testing.T) {
	svc := newTestService()
	admin := adminCtx()

	if _, err := svc.SetStock(admin, domain.StockSetRequest{ItemID: "ITM-TOTE-01", Quantity: 5}); err != nil {
		t.Fatalf("set stock: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateReservation(staffCtx(), domain.ReservationCreateRequest{
				ClientID: "client-race", ItemID: "ITM-TOTE-01", Quantity: 1,
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 {
		t.Fatalf("expected exactly 5 reservations to win, got %d", succeeded)
	}
	available, _ := svc.AvailableToReserve(staffCtx(), "ITM-TOTE-01", "loc-main")
	if available != 0 {
		t.Fatalf("expected availability 0, got %d", available)
	}
}

func TestCatalogMutationsRequireAdmin(t *testing.T) {
	svc := newTestService()

	if _, err := svc.CreateItem(staffCtx(), domain.ItemCreateRequest{ID: "ITM-X", Name: "X"}); err == nil {
		t.Fatalf("expected staff item create to fail")
	}
	if _, err := svc.SetStock(staffCtx(), domain.StockSetRequest{ItemID: "ITM-KAOS-01", Quantity: 1}); err == nil {
		t.Fatalf("expected staff stock set to fail")
	}
	if _, err := svc.MarkCommissionPaid(staffCtx(), "com-x"); err == nil {
		t.Fatalf("expected staff commission payout to fail")
	}

	item, err := svc.CreateItem(adminCtx(), domain.ItemCreateRequest{
		ID: "itm-baru-01", Name: "Topi Bordir", CategoryID: "apparel",
		PriceUSDCents: 700, PriceLocalCents: 10900000, InitialStock: 12,
	})
	if err != nil {
		t.Fatalf("admin item create failed: %v", err)
	}
	if item.ID != "ITM-BARU-01" {
		t.Fatalf("expected uppercased id, got %s", item.ID)
	}
	stock, _ := svc.GetStock(staffCtx(), "ITM-BARU-01", "loc-main")
	if stock.Quantity != 12 {
		t.Fatalf("expected initial stock 12, got %d", stock.Quantity)
	}
}

func TestSettleHonorsCallerUnitPrice(t *testing.T) {
	svc := newTestService()
	ctx := staffCtx()

	sale, err := svc.Settle(ctx, domain.SettleRequest{
		Currency: "USD",
		Lines:    []domain.SettleLine{{ItemID: "ITM-MUG-01", Quantity: 2, UnitPriceCents: 10}},
	})
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if sale.TotalCents != 20 {
		t.Fatalf("expected total 20 from the caller's unit price, got %d", sale.TotalCents)
	}
	if sale.Lines[0].UnitPriceCents != 10 || sale.Lines[0].SubtotalCents != 20 {
		t.Fatalf("line must settle at the caller's price: %+v", sale.Lines[0])
	}
}

func TestSettleFallsBackToCatalogPrice(t *testing.T) {
	svc := newTestService()
	ctx := staffCtx()

	// One line priced by the caller, one left at zero for the catalog.
	sale, err := svc.Settle(ctx, domain.SettleRequest{
		Currency: "USD",
		Lines: []domain.SettleLine{
			{ItemID: "ITM-MUG-01", Quantity: 1, UnitPriceCents: 450},
			{ItemID: "ITM-KAOS-01", Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if sale.Lines[0].UnitPriceCents != 450 {
		t.Fatalf("expected caller price 450, got %d", sale.Lines[0].UnitPriceCents)
	}
	if sale.Lines[1].UnitPriceCents != 900 {
		t.Fatalf("expected catalog USD price 900, got %d", sale.Lines[1].UnitPriceCents)
	}
	if sale.TotalCents != 450+900 {
		t.Fatalf("expected total 1350, got %d", sale.TotalCents)
	}
}

func TestSettleRejectsNegativeUnitPrice(t *testing.T) {
	svc := newTestService()

	_, err := svc.Settle(staffCtx(), domain.SettleRequest{
		Lines: []domain.SettleLine{{ItemID: "ITM-MUG-01", Quantity: 1, UnitPriceCents: -5}},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for negative unit price, got %v", err)
	}
}

func TestSettleUnknownItemIsNotFound(t *testing.T) {
	svc := newTestService()

	_, err := svc.Settle(staffCtx(), domain.SettleRequest{
		Lines: []domain.SettleLine{{ItemID: "ITM-GHOST-01", Quantity: 1}},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for unknown item, got %v", err)
	}
}

func TestSettleRejectsUnknownCurrency(t *testing.T) {
	svc := newTestService()

	_, err := svc.Settle(staffCtx(), domain.SettleRequest{
		Currency: "EUR",
		Lines:    []domain.SettleLine{{ItemID: "ITM-KAOS-01", Quantity: 1}},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for unsupported currency, got %v", err)
	}
}

func TestAuditTrailRecordsEngineActions(t *testing.T) {
	svc := newTestService()
	ctx := staffCtx()

	reservation, err := svc.CreateReservation(ctx, domain.ReservationCreateRequest{
		ClientID: "client-1", ItemID: "ITM-KAOS-01", Quantity: 1,
	})
	if err != nil {
		t.Fatalf("create reservation failed: %v", err)
	}
	if _, _, err := svc.CompleteReservation(ctx, reservation.ID, domain.ReservationCompleteRequest{}); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	logs, err := svc.ListAuditLogs(adminCtx(), "loc-main", time.Time{}, time.Time{}, 50)
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	actions := map[string]bool{}
	for _, entry := range logs {
		actions[entry.Action] = true
	}
	if !actions["reservation_create"] || !actions["reservation_complete"] {
		t.Fatalf("expected reservation actions in audit trail, got %v", actions)
	}
}
