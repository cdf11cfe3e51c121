package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"titipjual/backend/internal/availability"
	"titipjual/backend/internal/cache"
	"titipjual/backend/internal/commission"
	"titipjual/backend/internal/domain"
	"titipjual/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo              store.Repository
	resolver          *availability.Resolver
	calc              *commission.Calculator
	cache             cache.AvailabilityCache
	cacheTTL          time.Duration
	defaultLocationID string
	localCurrency     string
}

func New(repo store.Repository, resolver *availability.Resolver, calc *commission.Calculator, availabilityCache cache.AvailabilityCache, cacheTTL time.Duration, defaultLocationID string, localCurrency string) *Service {
	if defaultLocationID == "" {
		defaultLocationID = "loc-main"
	}
	if localCurrency == "" {
		localCurrency = "IDR"
	}
	if availabilityCache == nil {
		availabilityCache = cache.NoopAvailabilityCache{}
	}
	if cacheTTL < time.Second {
		cacheTTL = 30 * time.Second
	}

	return &Service{
		repo:              repo,
		resolver:          resolver,
		calc:              calc,
		cache:             availabilityCache,
		cacheTTL:          cacheTTL,
		defaultLocationID: defaultLocationID,
		localCurrency:     localCurrency,
	}
}

func (s *Service) ListItems(ctx context.Context) ([]domain.Item, error) {
	return s.repo.ListItems(ctx)
}

func (s *Service) GetItem(ctx context.Context, itemID string) (domain.Item, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return domain.Item{}, store.ErrInvalidInput
	}
	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return domain.Item{}, err
	}
	return *item, nil
}

func (s *Service) CreateItem(ctx context.Context, req domain.ItemCreateRequest) (domain.Item, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Item{}, fmt.Errorf("admin role required")
	}

	req.ID = strings.ToUpper(strings.TrimSpace(req.ID))
	req.Name = strings.TrimSpace(req.Name)
	req.CategoryID = strings.TrimSpace(req.CategoryID)
	if req.LocationID == "" {
		req.LocationID = s.defaultLocationID
	}

	if req.ID == "" || req.Name == "" {
		return domain.Item{}, store.ErrInvalidInput
	}
	if req.PriceUSDCents < 0 || req.PriceLocalCents < 0 || req.InitialStock < 0 {
		return domain.Item{}, store.ErrInvalidInput
	}
	if req.IsCombo && req.InitialStock > 0 {
		return domain.Item{}, store.ErrInvalidInput
	}

	item := domain.Item{
		ID:              req.ID,
		Name:            req.Name,
		CategoryID:      req.CategoryID,
		IsCombo:         req.IsCombo,
		PriceUSDCents:   req.PriceUSDCents,
		PriceLocalCents: req.PriceLocalCents,
		Components:      req.Components,
		Active:          true,
	}

	created, err := s.repo.CreateItem(ctx, item)
	if err != nil {
		return domain.Item{}, err
	}

	if req.InitialStock > 0 {
		if _, err := s.repo.AdjustStock(ctx, created.ID, req.LocationID, req.InitialStock); err != nil {
			return domain.Item{}, err
		}
	}

	s.logAudit(ctx, req.LocationID, "item_create", "item", created.ID, fmt.Sprintf("name=%s,combo=%t,stock=%d", created.Name, created.IsCombo, req.InitialStock))
	return *created, nil
}

func (s *Service) CreateLocation(ctx context.Context, req domain.LocationCreateRequest) (domain.Location, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Location{}, fmt.Errorf("admin role required")
	}

	req.ID = strings.TrimSpace(req.ID)
	req.Name = strings.TrimSpace(req.Name)
	if req.ID == "" || req.Name == "" {
		return domain.Location{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateLocation(ctx, domain.Location{ID: req.ID, Name: req.Name})
	if err != nil {
		return domain.Location{}, err
	}
	s.logAudit(ctx, created.ID, "location_create", "location", created.ID, "name="+created.Name)
	return *created, nil
}

func (s *Service) ListLocations(ctx context.Context) ([]domain.Location, error) {
	return s.repo.ListLocations(ctx)
}

func (s *Service) CreateSeller(ctx context.Context, req domain.SellerCreateRequest) (domain.Seller, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Seller{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.LocationID == "" {
		req.LocationID = s.defaultLocationID
	}
	if req.Name == "" || req.DefaultRate < 0 || req.DefaultRate > 100 {
		return domain.Seller{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateSeller(ctx, domain.Seller{
		Name:        req.Name,
		LocationID:  req.LocationID,
		DefaultRate: req.DefaultRate,
	})
	if err != nil {
		return domain.Seller{}, err
	}
	s.logAudit(ctx, created.LocationID, "seller_create", "seller", created.ID, fmt.Sprintf("name=%s,rate=%.2f", created.Name, created.DefaultRate))
	return *created, nil
}

func (s *Service) ListSellers(ctx context.Context, locationID string) ([]domain.Seller, error) {
	if locationID == "" {
		locationID = s.defaultLocationID
	}
	return s.repo.ListSellersByLocation(ctx, locationID)
}

func (s *Service) SetSellerCategoryRate(ctx context.Context, sellerID string, req domain.SellerCategoryRateRequest) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}

	sellerID = strings.TrimSpace(sellerID)
	req.CategoryID = strings.TrimSpace(req.CategoryID)
	if sellerID == "" || req.CategoryID == "" || req.Rate < 0 || req.Rate > 100 {
		return store.ErrInvalidInput
	}

	err := s.repo.UpsertSellerCategoryRate(ctx, domain.SellerCategoryRate{
		SellerID:   sellerID,
		CategoryID: req.CategoryID,
		Rate:       req.Rate,
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, s.defaultLocationID, "seller_rate_set", "seller", sellerID, fmt.Sprintf("category=%s,rate=%.2f", req.CategoryID, req.Rate))
	return nil
}

func (s *Service) GetStock(ctx context.Context, itemID string, locationID string) (domain.StockResponse, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return domain.StockResponse{}, store.ErrInvalidInput
	}
	if locationID == "" {
		locationID = s.defaultLocationID
	}

	quantity, err := s.repo.GetStock(ctx, itemID, locationID)
	if err != nil {
		return domain.StockResponse{}, err
	}
	return domain.StockResponse{ItemID: itemID, LocationID: locationID, Quantity: quantity}, nil
}

func (s *Service) SetStock(ctx context.Context, req domain.StockSetRequest) (domain.StockResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.StockResponse{}, fmt.Errorf("admin role required")
	}

	req.ItemID = strings.TrimSpace(req.ItemID)
	if req.LocationID == "" {
		req.LocationID = s.defaultLocationID
	}
	if req.ItemID == "" || req.Quantity < 0 {
		return domain.StockResponse{}, store.ErrInvalidInput
	}

	if err := s.repo.SetStock(ctx, req.ItemID, req.LocationID, req.Quantity); err != nil {
		return domain.StockResponse{}, err
	}

	s.logAudit(ctx, req.LocationID, "stock_set", "stock", req.ItemID, fmt.Sprintf("quantity=%d", req.Quantity))
	return domain.StockResponse{ItemID: req.ItemID, LocationID: req.LocationID, Quantity: req.Quantity}, nil
}

func (s *Service) AdjustStock(ctx context.Context, req domain.StockAdjustRequest) (domain.StockResponse, error) {
	req.ItemID = strings.TrimSpace(req.ItemID)
	if req.LocationID == "" {
		req.LocationID = s.defaultLocationID
	}
	if req.ItemID == "" || req.Delta == 0 {
		return domain.StockResponse{}, store.ErrInvalidInput
	}

	quantity, err := s.repo.AdjustStock(ctx, req.ItemID, req.LocationID, req.Delta)
	if err != nil {
		return domain.StockResponse{}, err
	}

	s.logAudit(ctx, req.LocationID, "stock_adjust", "stock", req.ItemID, fmt.Sprintf("delta=%d,quantity=%d", req.Delta, quantity))
	return domain.StockResponse{ItemID: req.ItemID, LocationID: req.LocationID, Quantity: quantity}, nil
}

// ItemAvailability answers the storefront read for one item, via the TTL
// cache. Cached values may lag the ledger; reservation and settlement gating
// never go through here.
func (s *Service) ItemAvailability(ctx context.Context, itemID string, locationID string) (domain.ItemAvailability, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return domain.ItemAvailability{}, store.ErrInvalidInput
	}
	if locationID == "" {
		locationID = s.defaultLocationID
	}

	key := availabilityCacheKey(locationID, itemID)
	if cached, ok, err := s.cache.Get(ctx, key); err != nil {
		log.Printf("[service] WARN: availability cache read failed item=%s: %v", itemID, err)
	} else if ok {
		return *cached, nil
	}

	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return domain.ItemAvailability{}, err
	}
	if !item.Active {
		return domain.ItemAvailability{}, store.ErrNotFound
	}

	resolved, err := s.resolveAvailability(ctx, *item, locationID)
	if err != nil {
		return domain.ItemAvailability{}, err
	}

	if err := s.cache.Set(ctx, key, &resolved, s.cacheTTL); err != nil {
		log.Printf("[service] WARN: availability cache write failed item=%s: %v", itemID, err)
	}
	return resolved, nil
}

func (s *Service) resolveAvailability(ctx context.Context, item domain.Item, locationID string) (domain.ItemAvailability, error) {
	ids := availability.ComponentIDs(item)

	var stockMap, reservedMap map[string]int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := s.repo.GetStockMap(gctx, locationID, ids)
		stockMap = m
		return err
	})
	g.Go(func() error {
		m, err := s.repo.OpenReservedQtyMap(gctx, locationID, ids)
		reservedMap = m
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.ItemAvailability{}, err
	}

	return s.resolver.Resolve(item, locationID, stockMap, reservedMap), nil
}

// BulkAvailability resolves a whole catalog page in one pass: item lookups,
// then stock and open-hold maps fetched concurrently for the union of all
// ledger keys the page touches.
func (s *Service) BulkAvailability(ctx context.Context, req domain.AvailabilityRequest) (domain.AvailabilityListResponse, error) {
	if req.LocationID == "" {
		req.LocationID = s.defaultLocationID
	}
	if len(req.ItemIDs) == 0 {
		return domain.AvailabilityListResponse{}, store.ErrInvalidInput
	}

	items, err := s.repo.GetItemsByIDs(ctx, req.ItemIDs)
	if err != nil {
		return domain.AvailabilityListResponse{}, err
	}

	keySet := make(map[string]struct{}, len(req.ItemIDs))
	for _, item := range items {
		for _, id := range availability.ComponentIDs(item) {
			keySet[id] = struct{}{}
		}
	}
	keys := make([]string, 0, len(keySet))
	for id := range keySet {
		keys = append(keys, id)
	}

	var stockMap, reservedMap map[string]int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := s.repo.GetStockMap(gctx, req.LocationID, keys)
		stockMap = m
		return err
	})
	g.Go(func() error {
		m, err := s.repo.OpenReservedQtyMap(gctx, req.LocationID, keys)
		reservedMap = m
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.AvailabilityListResponse{}, err
	}

	resp := domain.AvailabilityListResponse{
		LocationID: req.LocationID,
		Items:      make([]domain.ItemAvailability, 0, len(req.ItemIDs)),
	}
	for _, itemID := range req.ItemIDs {
		item, ok := items[itemID]
		if !ok {
			continue
		}
		resp.Items = append(resp.Items, s.resolver.Resolve(item, req.LocationID, stockMap, reservedMap))
	}
	return resp, nil
}

// AvailableToReserve is the gating read: on-hand minus open pending holds,
// straight from the repository with no cache in the path.
func (s *Service) AvailableToReserve(ctx context.Context, itemID string, locationID string) (int, error) {
	if locationID == "" {
		locationID = s.defaultLocationID
	}

	onHand, err := s.repo.GetStock(ctx, itemID, locationID)
	if err != nil {
		return 0, err
	}
	reserved, err := s.repo.OpenReservedQty(ctx, itemID, locationID)
	if err != nil {
		return 0, err
	}

	available := onHand - reserved
	if available < 0 {
		available = 0
	}
	return available, nil
}

func (s *Service) CreateReservation(ctx context.Context, req domain.ReservationCreateRequest) (domain.Reservation, error) {
	req.ClientID = strings.TrimSpace(req.ClientID)
	req.ItemID = strings.TrimSpace(req.ItemID)
	if req.LocationID == "" {
		req.LocationID = s.defaultLocationID
	}
	if req.ClientID == "" || req.ItemID == "" || req.Quantity < 1 {
		return domain.Reservation{}, store.ErrInvalidInput
	}

	item, err := s.repo.GetItemByID(ctx, req.ItemID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if !item.Active {
		return domain.Reservation{}, fmt.Errorf("%w: item %s unavailable", store.ErrNotFound, req.ItemID)
	}
	if item.IsCombo {
		return domain.Reservation{}, fmt.Errorf("%w: combo items cannot be reserved", store.ErrInvalidInput)
	}

	created, err := s.repo.CreateReservation(ctx, domain.Reservation{
		ClientID:   req.ClientID,
		ItemID:     req.ItemID,
		LocationID: req.LocationID,
		Quantity:   req.Quantity,
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	s.logAudit(ctx, created.LocationID, "reservation_create", "reservation", created.ID, fmt.Sprintf("item=%s,qty=%d,client=%s", created.ItemID, created.Quantity, created.ClientID))
	return *created, nil
}

func (s *Service) GetReservation(ctx context.Context, reservationID string) (domain.Reservation, error) {
	reservation, err := s.repo.GetReservationByID(ctx, reservationID)
	if err != nil {
		return domain.Reservation{}, err
	}
	return *reservation, nil
}

func (s *Service) ListReservations(ctx context.Context, locationID string, status string, limit int) ([]domain.Reservation, error) {
	if locationID == "" {
		locationID = s.defaultLocationID
	}
	if status != "" && status != domain.ReservationStatusPending && status != domain.ReservationStatusCompleted && status != domain.ReservationStatusCancelled {
		return nil, store.ErrInvalidInput
	}
	return s.repo.ListReservations(ctx, locationID, status, limit)
}

func (s *Service) CancelReservation(ctx context.Context, reservationID string) (domain.Reservation, error) {
	reservationID = strings.TrimSpace(reservationID)
	if reservationID == "" {
		return domain.Reservation{}, store.ErrInvalidInput
	}

	cancelled, err := s.repo.CancelReservation(ctx, reservationID, time.Now().UTC())
	if err != nil {
		return domain.Reservation{}, err
	}

	s.logAudit(ctx, cancelled.LocationID, "reservation_cancel", "reservation", cancelled.ID, fmt.Sprintf("item=%s,qty=%d", cancelled.ItemID, cancelled.Quantity))
	return *cancelled, nil
}

// CompleteReservation converts a pending hold into a settled one-line sale.
// The status check, ledger decrement and sale insert run as one repository
// transaction; commission rows are computed after it commits and never fail
// the settlement.
func (s *Service) CompleteReservation(ctx context.Context, reservationID string, req domain.ReservationCompleteRequest) (domain.Reservation, domain.Sale, error) {
	reservationID = strings.TrimSpace(reservationID)
	if reservationID == "" {
		return domain.Reservation{}, domain.Sale{}, store.ErrInvalidInput
	}

	currency, err := s.normalizeCurrency(req.Currency)
	if err != nil {
		return domain.Reservation{}, domain.Sale{}, err
	}
	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "cash"
	}

	reservation, err := s.repo.GetReservationByID(ctx, reservationID)
	if err != nil {
		return domain.Reservation{}, domain.Sale{}, err
	}
	item, err := s.repo.GetItemByID(ctx, reservation.ItemID)
	if err != nil {
		return domain.Reservation{}, domain.Sale{}, err
	}

	sale := domain.Sale{
		LocationID:    reservation.LocationID,
		Currency:      currency,
		PaymentMethod: paymentMethod,
		Lines: []domain.SaleLine{{
			ItemID:         reservation.ItemID,
			Quantity:       reservation.Quantity,
			UnitPriceCents: unitPriceFor(*item, currency),
		}},
	}

	completed, created, err := s.repo.CompleteReservation(ctx, reservationID, sale, time.Now().UTC())
	if err != nil {
		return domain.Reservation{}, domain.Sale{}, err
	}

	s.computeCommissions(ctx, *created)
	s.logAudit(ctx, created.LocationID, "reservation_complete", "reservation", completed.ID, fmt.Sprintf("sale=%s,total=%d,currency=%s", created.ID, created.TotalCents, created.Currency))
	return *completed, *created, nil
}

// Settle applies a multi-line walk-in sale. Each line settles at its
// caller-supplied unit price; a zero unit price falls back to the catalog
// price for the requested currency. Combo lines price as the combo and
// decrement as their components inside the repository transaction.
func (s *Service) Settle(ctx context.Context, req domain.SettleRequest) (domain.Sale, error) {
	if req.LocationID == "" {
		req.LocationID = s.defaultLocationID
	}
	if len(req.Lines) == 0 {
		return domain.Sale{}, store.ErrInvalidInput
	}

	currency, err := s.normalizeCurrency(req.Currency)
	if err != nil {
		return domain.Sale{}, err
	}
	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "cash"
	}

	itemIDs := make([]string, 0, len(req.Lines))
	for _, line := range req.Lines {
		line.ItemID = strings.TrimSpace(line.ItemID)
		if line.ItemID == "" || line.Quantity < 1 || line.UnitPriceCents < 0 {
			return domain.Sale{}, store.ErrInvalidInput
		}
		itemIDs = append(itemIDs, line.ItemID)
	}

	items, err := s.repo.GetItemsByIDs(ctx, itemIDs)
	if err != nil {
		return domain.Sale{}, err
	}

	lines := make([]domain.SaleLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		item, ok := items[strings.TrimSpace(line.ItemID)]
		if !ok {
			return domain.Sale{}, fmt.Errorf("%w: item %s unavailable", store.ErrNotFound, line.ItemID)
		}
		unitPrice := line.UnitPriceCents
		if unitPrice == 0 {
			unitPrice = unitPriceFor(item, currency)
		}
		lines = append(lines, domain.SaleLine{
			ItemID:         item.ID,
			Quantity:       line.Quantity,
			UnitPriceCents: unitPrice,
		})
	}

	created, err := s.repo.CreateSale(ctx, domain.Sale{
		LocationID:    req.LocationID,
		Currency:      currency,
		PaymentMethod: paymentMethod,
		Lines:         lines,
	})
	if err != nil {
		return domain.Sale{}, err
	}

	s.computeCommissions(ctx, *created)
	s.logAudit(ctx, created.LocationID, "sale_settle", "sale", created.ID, fmt.Sprintf("lines=%d,total=%d,currency=%s", len(created.Lines), created.TotalCents, created.Currency))
	return *created, nil
}

func (s *Service) GetSale(ctx context.Context, saleID string) (domain.Sale, error) {
	sale, err := s.repo.GetSaleByID(ctx, saleID)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) ListSales(ctx context.Context, locationID string, limit int) ([]domain.Sale, error) {
	if locationID == "" {
		locationID = s.defaultLocationID
	}
	return s.repo.ListSales(ctx, locationID, limit)
}

// UndoSale reverses a settled sale: ledger increments mirror the original
// decrements and the sale's unpaid commissions are deleted in the same
// repository transaction. Paid commissions are retained and flagged for
// operator follow-up.
func (s *Service) UndoSale(ctx context.Context, req domain.UndoSaleRequest) (domain.UndoSaleResponse, error) {
	req.SaleID = strings.TrimSpace(req.SaleID)
	req.Reason = strings.TrimSpace(req.Reason)
	if req.SaleID == "" || req.Reason == "" {
		return domain.UndoSaleResponse{}, store.ErrInvalidInput
	}

	undone, retainedPaid, err := s.repo.UndoSale(ctx, req.SaleID)
	if err != nil {
		return domain.UndoSaleResponse{}, err
	}

	if retainedPaid > 0 {
		log.Printf("[service] WARN: sale %s undone with %d paid commission(s) retained, manual clawback needed", undone.ID, retainedPaid)
	}

	at := time.Now().UTC()
	s.logAudit(ctx, undone.LocationID, "sale_undo", "sale", undone.ID, fmt.Sprintf("reason=%s,total=%d,retained_paid=%d", req.Reason, undone.TotalCents, retainedPaid))
	return domain.UndoSaleResponse{
		SaleID:                  undone.ID,
		RetainedPaidCommissions: retainedPaid,
		UndoneAt:                at.Format(time.RFC3339),
	}, nil
}

func (s *Service) ListCommissionsBySale(ctx context.Context, saleID string) ([]domain.Commission, error) {
	saleID = strings.TrimSpace(saleID)
	if saleID == "" {
		return nil, store.ErrInvalidInput
	}
	return s.repo.ListCommissionsBySale(ctx, saleID)
}

func (s *Service) ListCommissionsBySeller(ctx context.Context, sellerID string, limit int) ([]domain.Commission, error) {
	sellerID = strings.TrimSpace(sellerID)
	if sellerID == "" {
		return nil, store.ErrInvalidInput
	}
	return s.repo.ListCommissionsBySeller(ctx, sellerID, limit)
}

func (s *Service) MarkCommissionPaid(ctx context.Context, commissionID string) (domain.Commission, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Commission{}, fmt.Errorf("admin role required")
	}

	commissionID = strings.TrimSpace(commissionID)
	if commissionID == "" {
		return domain.Commission{}, store.ErrInvalidInput
	}

	paid, err := s.repo.MarkCommissionPaid(ctx, commissionID)
	if err != nil {
		return domain.Commission{}, err
	}

	s.logAudit(ctx, s.defaultLocationID, "commission_paid", "commission", paid.ID, fmt.Sprintf("seller=%s,amount=%d", paid.SellerID, paid.AmountCents))
	return *paid, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, locationID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return nil, fmt.Errorf("admin role required")
	}
	if locationID == "" {
		locationID = s.defaultLocationID
	}
	if to.IsZero() {
		to = time.Now().UTC().Add(time.Minute)
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -7)
	}
	return s.repo.ListAuditLogs(ctx, locationID, from, to, limit)
}

// computeCommissions runs after a settlement commits. Failures are logged and
// swallowed: the sale stands even when commission rows cannot be written.
func (s *Service) computeCommissions(ctx context.Context, sale domain.Sale) {
	sellers, err := s.repo.ListSellersByLocation(ctx, sale.LocationID)
	if err != nil {
		log.Printf("[service] WARN: commission computation failed for sale %s: %v", sale.ID, err)
		return
	}
	if len(sellers) == 0 {
		return
	}

	itemIDs := make([]string, 0, len(sale.Lines))
	for _, line := range sale.Lines {
		itemIDs = append(itemIDs, line.ItemID)
	}
	items, err := s.repo.GetItemsByIDs(ctx, itemIDs)
	if err != nil {
		log.Printf("[service] WARN: commission computation failed for sale %s: %v", sale.ID, err)
		return
	}

	sellerIDs := make([]string, 0, len(sellers))
	for _, seller := range sellers {
		sellerIDs = append(sellerIDs, seller.ID)
	}
	overrides, err := s.repo.GetSellerCategoryRates(ctx, sellerIDs)
	if err != nil {
		log.Printf("[service] WARN: commission computation failed for sale %s: %v", sale.ID, err)
		return
	}

	commissions := s.calc.Compute(sale, items, sellers, overrides)
	if len(commissions) == 0 {
		return
	}
	if err := s.repo.CreateCommissions(ctx, commissions); err != nil {
		log.Printf("[service] WARN: failed to persist %d commission(s) for sale %s: %v", len(commissions), sale.ID, err)
	}
}

func (s *Service) normalizeCurrency(currency string) (string, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return s.localCurrency, nil
	}
	if currency != domain.CurrencyUSD && currency != s.localCurrency {
		return "", fmt.Errorf("%w: unsupported currency %s", store.ErrInvalidInput, currency)
	}
	return currency, nil
}

func unitPriceFor(item domain.Item, currency string) int64 {
	if currency == domain.CurrencyUSD {
		return item.PriceUSDCents
	}
	return item.PriceLocalCents
}

func availabilityCacheKey(locationID string, itemID string) string {
	return "availability:" + locationID + ":" + itemID
}

func (s *Service) logAudit(ctx context.Context, locationID string, action string, entityType string, entityID string, detail string) {
	actor, _ := ActorFromContext(ctx)
	err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		LocationID:    locationID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		log.Printf("[service] WARN: failed to write audit log action=%s entity=%s: %v", action, entityID, err)
	}
}
