package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"titipjual/backend/internal/domain"
	"titipjual/backend/internal/store"
	"titipjual/backend/internal/xid"
)

// Store keeps the whole engine state behind one RWMutex: every mutating call
// (Adjust, CreateReservation, CreateSale, ...) runs as a single atomic
// section, which is what the ledger invariants require under concurrency.
type Store struct {
	mu                  sync.RWMutex
	items               map[string]domain.Item
	locations           map[string]domain.Location
	sellers             map[string]domain.Seller
	sellerCategoryRates map[string]map[string]float64
	stock               map[string]map[string]int
	reservationsByID    map[string]*domain.Reservation
	salesByID           map[string]*domain.Sale
	commissionsByID     map[string]domain.Commission
	auditLogs           []domain.AuditLog
	usersByUsername     map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD; if
// unset, hardcoded dev defaults are used with a warning. These are never
// used in production (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"staff", staffPwd, "staff"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New() *Store {
	return &Store{
		items:               make(map[string]domain.Item),
		locations:           make(map[string]domain.Location),
		sellers:             make(map[string]domain.Seller),
		sellerCategoryRates: make(map[string]map[string]float64),
		stock:               make(map[string]map[string]int),
		reservationsByID:    make(map[string]*domain.Reservation),
		salesByID:           make(map[string]*domain.Sale),
		commissionsByID:     make(map[string]domain.Commission),
		auditLogs:           make([]domain.AuditLog, 0, 128),
		usersByUsername:     seedUsers(),
	}
}

func NewSeeded() *Store {
	now := time.Now().UTC()

	items := []domain.Item{
		{ID: "ITM-KAOS-01", Name: "Kaos Sablon Lokal", CategoryID: "apparel", PriceUSDCents: 900, PriceLocalCents: 14000000, Active: true},
		{ID: "ITM-TOTE-01", Name: "Tote Bag Kanvas", CategoryID: "accessory", PriceUSDCents: 650, PriceLocalCents: 10000000, Active: true},
		{ID: "ITM-MUG-01", Name: "Mug Keramik", CategoryID: "homeware", PriceUSDCents: 500, PriceLocalCents: 7800000, Active: true},
		{ID: "ITM-STIKER-01", Name: "Paket Stiker", CategoryID: "stationery", PriceUSDCents: 150, PriceLocalCents: 2300000, Active: true},
		{ID: "ITM-GANCI-01", Name: "Gantungan Kunci Akrilik", CategoryID: "accessory", PriceUSDCents: 200, PriceLocalCents: 3100000, Active: true},
		{
			ID: "CMB-MERCH-01", Name: "Paket Merch", CategoryID: "bundle", IsCombo: true,
			PriceUSDCents: 1000, PriceLocalCents: 15500000, Active: true,
			Components: []domain.ComboComponent{
				{ItemID: "ITM-KAOS-01", Quantity: 1},
				{ItemID: "ITM-STIKER-01", Quantity: 2},
			},
		},
		{
			ID: "CMB-OLEH-01", Name: "Paket Oleh-Oleh", CategoryID: "bundle", IsCombo: true,
			PriceUSDCents: 850, PriceLocalCents: 13200000, Active: true,
			Components: []domain.ComboComponent{
				{ItemID: "ITM-MUG-01", Quantity: 1},
				{ItemID: "ITM-GANCI-01", Quantity: 2},
			},
		},
	}

	itemMap := make(map[string]domain.Item, len(items))
	stock := map[string]map[string]int{"loc-main": {}}
	for _, item := range items {
		itemMap[item.ID] = item
		if !item.IsCombo {
			stock["loc-main"][item.ID] = 40
		}
	}

	sellers := map[string]domain.Seller{
		"SEL-RINA": {ID: "SEL-RINA", Name: "Rina Craft", LocationID: "loc-main", DefaultRate: 5, Active: true, CreatedAt: now},
		"SEL-BAYU": {ID: "SEL-BAYU", Name: "Bayu Studio", LocationID: "loc-main", DefaultRate: 7.5, Active: true, CreatedAt: now},
	}

	s := New()
	s.items = itemMap
	s.locations = map[string]domain.Location{
		"loc-main": {ID: "loc-main", Name: "Toko Pusat", CreatedAt: now},
	}
	s.sellers = sellers
	s.sellerCategoryRates = map[string]map[string]float64{
		"SEL-RINA": {"apparel": 10},
	}
	s.stock = stock
	return s
}

func (s *Store) ListItems(_ context.Context) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.Item, 0, len(s.items))
	for _, item := range s.items {
		if !item.Active {
			continue
		}
		items = append(items, cloneItem(item))
	}

	slices.SortFunc(items, func(a, b domain.Item) int {
		if a.CategoryID == b.CategoryID {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.CategoryID, b.CategoryID)
	})

	return items, nil
}

func (s *Store) CreateItem(_ context.Context, item domain.Item) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" || item.Name == "" || item.PriceUSDCents < 0 || item.PriceLocalCents < 0 {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.items[item.ID]; exists {
		return nil, store.ErrInvalidInput
	}
	if !item.IsCombo && len(item.Components) > 0 {
		return nil, store.ErrInvalidInput
	}
	for _, component := range item.Components {
		if component.Quantity < 1 {
			return nil, store.ErrInvalidInput
		}
		ref, exists := s.items[component.ItemID]
		if !exists || ref.IsCombo {
			return nil, fmt.Errorf("%w: component %s unavailable", store.ErrInvalidInput, component.ItemID)
		}
	}

	item.Active = true
	s.items[item.ID] = cloneItem(item)
	created := cloneItem(item)
	return &created, nil
}

func (s *Store) GetItemByID(_ context.Context, itemID string) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[itemID]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := cloneItem(item)
	return &copied, nil
}

func (s *Store) GetItemsByIDs(_ context.Context, itemIDs []string) (map[string]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Item, len(itemIDs))
	for _, id := range itemIDs {
		if item, ok := s.items[id]; ok && item.Active {
			result[id] = cloneItem(item)
		}
	}
	return result, nil
}

func (s *Store) CreateLocation(_ context.Context, location domain.Location) (*domain.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if location.ID == "" || location.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.locations[location.ID]; exists {
		return nil, store.ErrInvalidInput
	}
	if location.CreatedAt.IsZero() {
		location.CreatedAt = time.Now().UTC()
	}
	s.locations[location.ID] = location
	created := location
	return &created, nil
}

func (s *Store) ListLocations(_ context.Context) ([]domain.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	locations := make([]domain.Location, 0, len(s.locations))
	for _, location := range s.locations {
		locations = append(locations, location)
	}
	slices.SortFunc(locations, func(a, b domain.Location) int {
		return strings.Compare(a.ID, b.ID)
	})
	return locations, nil
}

func (s *Store) CreateSeller(_ context.Context, seller domain.Seller) (*domain.Seller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seller.Name == "" || seller.LocationID == "" {
		return nil, store.ErrInvalidInput
	}
	if seller.DefaultRate < 0 || seller.DefaultRate > 100 {
		return nil, store.ErrInvalidInput
	}
	if seller.ID == "" {
		seller.ID = xid.New("sel")
	}
	if _, exists := s.sellers[seller.ID]; exists {
		return nil, store.ErrInvalidInput
	}
	if seller.CreatedAt.IsZero() {
		seller.CreatedAt = time.Now().UTC()
	}
	seller.Active = true
	s.sellers[seller.ID] = seller
	created := seller
	return &created, nil
}

func (s *Store) ListSellersByLocation(_ context.Context, locationID string) ([]domain.Seller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sellers := make([]domain.Seller, 0, len(s.sellers))
	for _, seller := range s.sellers {
		if seller.LocationID != locationID {
			continue
		}
		sellers = append(sellers, seller)
	}
	slices.SortFunc(sellers, func(a, b domain.Seller) int {
		return strings.Compare(a.ID, b.ID)
	})
	return sellers, nil
}

func (s *Store) UpsertSellerCategoryRate(_ context.Context, rate domain.SellerCategoryRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rate.SellerID == "" || rate.CategoryID == "" || rate.Rate < 0 || rate.Rate > 100 {
		return store.ErrInvalidInput
	}
	if _, exists := s.sellers[rate.SellerID]; !exists {
		return store.ErrNotFound
	}
	byCategory, ok := s.sellerCategoryRates[rate.SellerID]
	if !ok {
		byCategory = make(map[string]float64)
		s.sellerCategoryRates[rate.SellerID] = byCategory
	}
	byCategory[rate.CategoryID] = rate.Rate
	return nil
}

func (s *Store) GetSellerCategoryRates(_ context.Context, sellerIDs []string) (map[string]map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]map[string]float64, len(sellerIDs))
	for _, sellerID := range sellerIDs {
		byCategory, ok := s.sellerCategoryRates[sellerID]
		if !ok {
			continue
		}
		copied := make(map[string]float64, len(byCategory))
		for categoryID, rate := range byCategory {
			copied[categoryID] = rate
		}
		result[sellerID] = copied
	}
	return result, nil
}

func (s *Store) GetStock(_ context.Context, itemID string, locationID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	locationStock, ok := s.stock[locationID]
	if !ok {
		return 0, nil
	}
	return locationStock[itemID], nil
}

func (s *Store) GetStockMap(_ context.Context, locationID string, itemIDs []string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stockMap := make(map[string]int, len(itemIDs))
	locationStock := s.stock[locationID]
	for _, itemID := range itemIDs {
		if locationStock == nil {
			stockMap[itemID] = 0
			continue
		}
		stockMap[itemID] = locationStock[itemID]
	}
	return stockMap, nil
}

func (s *Store) SetStock(_ context.Context, itemID string, locationID string, quantity int) error {
	if itemID == "" || quantity < 0 {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[itemID]
	if !exists {
		return fmt.Errorf("%w: item %s unavailable", store.ErrNotFound, itemID)
	}
	if item.IsCombo {
		return fmt.Errorf("%w: combo %s owns no ledger entry", store.ErrInvalidInput, itemID)
	}
	locationStock, ok := s.stock[locationID]
	if !ok {
		locationStock = make(map[string]int)
		s.stock[locationID] = locationStock
	}
	locationStock[itemID] = quantity
	return nil
}

// AdjustStock applies quantity += delta as one atomic read-modify-write and
// rejects any adjustment that would drive the entry negative.
func (s *Store) AdjustStock(_ context.Context, itemID string, locationID string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[itemID]
	if !exists {
		return 0, fmt.Errorf("%w: item %s unavailable", store.ErrNotFound, itemID)
	}
	if item.IsCombo {
		return 0, fmt.Errorf("%w: combo %s owns no ledger entry", store.ErrInvalidInput, itemID)
	}

	locationStock, ok := s.stock[locationID]
	if !ok {
		locationStock = make(map[string]int)
		s.stock[locationID] = locationStock
	}

	next := locationStock[itemID] + delta
	if next < 0 {
		return locationStock[itemID], store.ErrInsufficientStock
	}
	locationStock[itemID] = next
	return next, nil
}

// CreateReservation recomputes availableToReserve and inserts the hold in
// the same locked section, so two concurrent creates cannot both observe
// stale availability and jointly overcommit.
func (s *Store) CreateReservation(_ context.Context, reservation domain.Reservation) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if reservation.ClientID == "" || reservation.ItemID == "" || reservation.LocationID == "" || reservation.Quantity < 1 {
		return nil, store.ErrInvalidInput
	}
	item, exists := s.items[reservation.ItemID]
	if !exists || !item.Active {
		return nil, fmt.Errorf("%w: item %s unavailable", store.ErrNotFound, reservation.ItemID)
	}
	if item.IsCombo {
		return nil, fmt.Errorf("%w: combo items cannot be reserved", store.ErrInvalidInput)
	}

	onHand := 0
	if locationStock, ok := s.stock[reservation.LocationID]; ok {
		onHand = locationStock[reservation.ItemID]
	}
	available := onHand - s.openReservedQtyLocked(reservation.ItemID, reservation.LocationID)
	if reservation.Quantity > available {
		return nil, store.ErrInsufficientAvailability
	}

	if reservation.ID == "" {
		reservation.ID = xid.New("rsv")
	}
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = time.Now().UTC()
	}
	reservation.Status = domain.ReservationStatusPending

	stored := reservation
	s.reservationsByID[stored.ID] = &stored
	created := stored
	return &created, nil
}

func (s *Store) GetReservationByID(_ context.Context, reservationID string) (*domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reservation, ok := s.reservationsByID[reservationID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *reservation
	return &copied, nil
}

func (s *Store) ListReservations(_ context.Context, locationID string, status string, limit int) ([]domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reservations := make([]domain.Reservation, 0, len(s.reservationsByID))
	for _, reservation := range s.reservationsByID {
		if locationID != "" && reservation.LocationID != locationID {
			continue
		}
		if status != "" && reservation.Status != status {
			continue
		}
		reservations = append(reservations, *reservation)
	}
	slices.SortFunc(reservations, func(a, b domain.Reservation) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(reservations) > limit {
		reservations = reservations[:limit]
	}
	return reservations, nil
}

func (s *Store) CancelReservation(_ context.Context, reservationID string, at time.Time) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reservation, ok := s.reservationsByID[reservationID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if reservation.Status != domain.ReservationStatusPending {
		return nil, store.ErrInvalidTransition
	}

	reservation.Status = domain.ReservationStatusCancelled
	reservation.CancelledAt = &at

	copied := *reservation
	return &copied, nil
}

// CompleteReservation settles the hold in one atomic section: pending-status
// check, ledger decrement, sale insert and status flip either all happen or
// none do. On insufficient stock the reservation stays pending.
func (s *Store) CompleteReservation(_ context.Context, reservationID string, sale domain.Sale, at time.Time) (*domain.Reservation, *domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reservation, ok := s.reservationsByID[reservationID]
	if !ok {
		return nil, nil, store.ErrNotFound
	}
	if reservation.Status != domain.ReservationStatusPending {
		return nil, nil, store.ErrInvalidTransition
	}

	sale.ReservationID = reservationID
	created, err := s.createSaleLocked(sale)
	if err != nil {
		return nil, nil, err
	}

	reservation.Status = domain.ReservationStatusCompleted
	reservation.CompletedAt = &at
	reservation.SaleID = created.ID

	copied := *reservation
	return &copied, created, nil
}

func (s *Store) OpenReservedQty(_ context.Context, itemID string, locationID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.openReservedQtyLocked(itemID, locationID), nil
}

func (s *Store) OpenReservedQtyMap(_ context.Context, locationID string, itemIDs []string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]int, len(itemIDs))
	for _, itemID := range itemIDs {
		result[itemID] = s.openReservedQtyLocked(itemID, locationID)
	}
	return result, nil
}

func (s *Store) openReservedQtyLocked(itemID string, locationID string) int {
	total := 0
	for _, reservation := range s.reservationsByID {
		if reservation.Status != domain.ReservationStatusPending {
			continue
		}
		if reservation.ItemID != itemID || reservation.LocationID != locationID {
			continue
		}
		total += reservation.Quantity
	}
	return total
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createSaleLocked(sale)
}

// createSaleLocked validates every line, then applies every ledger decrement,
// under the already-held write lock: the whole cart settles or none of it
// does. Combo lines decrement their components (combos own no ledger entry).
func (s *Store) createSaleLocked(sale domain.Sale) (*domain.Sale, error) {
	if sale.LocationID == "" || len(sale.Lines) == 0 {
		return nil, store.ErrInvalidInput
	}
	if _, ok := s.locations[sale.LocationID]; !ok {
		return nil, fmt.Errorf("%w: location %s unavailable", store.ErrNotFound, sale.LocationID)
	}

	effects, err := s.ledgerEffectsLocked(sale.Lines)
	if err != nil {
		return nil, err
	}

	locationStock, ok := s.stock[sale.LocationID]
	if !ok {
		locationStock = make(map[string]int)
		s.stock[sale.LocationID] = locationStock
	}
	for itemID, needed := range effects {
		if locationStock[itemID] < needed {
			return nil, store.ErrInsufficientStock
		}
	}
	for itemID, needed := range effects {
		locationStock[itemID] -= needed
	}

	total := int64(0)
	lines := make([]domain.SaleLine, 0, len(sale.Lines))
	for _, line := range sale.Lines {
		subtotal := line.UnitPriceCents * int64(line.Quantity)
		lines = append(lines, domain.SaleLine{
			ItemID:         line.ItemID,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
			SubtotalCents:  subtotal,
		})
		total += subtotal
	}

	sale.Lines = lines
	sale.TotalCents = total
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	stored := cloneSale(sale)
	s.salesByID[stored.ID] = stored
	return cloneSale(sale), nil
}

// ledgerEffectsLocked expands sale lines into per-item ledger decrements,
// multiplying combo lines out to their components.
func (s *Store) ledgerEffectsLocked(lines []domain.SaleLine) (map[string]int, error) {
	effects := make(map[string]int, len(lines))
	for _, line := range lines {
		if line.ItemID == "" || line.Quantity < 1 || line.UnitPriceCents < 0 {
			return nil, store.ErrInvalidInput
		}
		item, exists := s.items[line.ItemID]
		if !exists || !item.Active {
			return nil, fmt.Errorf("%w: item %s unavailable", store.ErrNotFound, line.ItemID)
		}
		if item.IsCombo {
			for _, component := range item.Components {
				effects[component.ItemID] += component.Quantity * line.Quantity
			}
			continue
		}
		effects[line.ItemID] += line.Quantity
	}
	return effects, nil
}

func (s *Store) GetSaleByID(_ context.Context, saleID string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.salesByID[saleID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneSale(*sale), nil
}

func (s *Store) ListSales(_ context.Context, locationID string, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.salesByID))
	for _, sale := range s.salesByID {
		if locationID != "" && sale.LocationID != locationID {
			continue
		}
		sales = append(sales, *cloneSale(*sale))
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(sales) > limit {
		sales = sales[:limit]
	}
	return sales, nil
}

// UndoSale reverses the settlement symmetrically: every ledger decrement is
// re-applied as an increment, the sale and its lines are deleted, and the
// sale's unpaid commissions go with it. Paid commissions are retained; the
// count is returned so callers can flag them for operator follow-up.
func (s *Store) UndoSale(_ context.Context, saleID string) (*domain.Sale, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.salesByID[saleID]
	if !ok {
		return nil, 0, store.ErrNotFound
	}

	effects, err := s.ledgerEffectsLocked(sale.Lines)
	if err != nil {
		return nil, 0, err
	}

	locationStock, ok := s.stock[sale.LocationID]
	if !ok {
		locationStock = make(map[string]int)
		s.stock[sale.LocationID] = locationStock
	}
	for itemID, quantity := range effects {
		locationStock[itemID] += quantity
	}

	retainedPaid := 0
	for id, commission := range s.commissionsByID {
		if commission.SaleID != saleID {
			continue
		}
		if commission.Paid {
			retainedPaid++
			continue
		}
		delete(s.commissionsByID, id)
	}

	undone := cloneSale(*sale)
	delete(s.salesByID, saleID)
	return undone, retainedPaid, nil
}

func (s *Store) CreateCommissions(_ context.Context, commissions []domain.Commission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, commission := range commissions {
		if commission.SellerID == "" || commission.SaleID == "" || commission.AmountCents < 0 {
			return store.ErrInvalidInput
		}
		if _, ok := s.salesByID[commission.SaleID]; !ok {
			return fmt.Errorf("%w: sale %s", store.ErrNotFound, commission.SaleID)
		}
	}
	for _, commission := range commissions {
		if commission.ID == "" {
			commission.ID = xid.New("com")
		}
		if commission.CreatedAt.IsZero() {
			commission.CreatedAt = time.Now().UTC()
		}
		s.commissionsByID[commission.ID] = commission
	}
	return nil
}

func (s *Store) ListCommissionsBySale(_ context.Context, saleID string) ([]domain.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	commissions := make([]domain.Commission, 0, 4)
	for _, commission := range s.commissionsByID {
		if commission.SaleID == saleID {
			commissions = append(commissions, commission)
		}
	}
	slices.SortFunc(commissions, func(a, b domain.Commission) int {
		return strings.Compare(a.SellerID, b.SellerID)
	})
	return commissions, nil
}

func (s *Store) ListCommissionsBySeller(_ context.Context, sellerID string, limit int) ([]domain.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	commissions := make([]domain.Commission, 0, 16)
	for _, commission := range s.commissionsByID {
		if commission.SellerID == sellerID {
			commissions = append(commissions, commission)
		}
	}
	slices.SortFunc(commissions, func(a, b domain.Commission) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(commissions) > limit {
		commissions = commissions[:limit]
	}
	return commissions, nil
}

func (s *Store) MarkCommissionPaid(_ context.Context, commissionID string) (*domain.Commission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	commission, ok := s.commissionsByID[commissionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if commission.Paid {
		return nil, store.ErrInvalidInput
	}
	commission.Paid = true
	s.commissionsByID[commissionID] = commission
	copied := commission
	return &copied, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, locationID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.AuditLog, 0, len(s.auditLogs))
	for _, entry := range s.auditLogs {
		if locationID != "" && entry.LocationID != locationID {
			continue
		}
		if !from.IsZero() && entry.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && entry.CreatedAt.After(to) {
			continue
		}
		logs = append(logs, entry)
	}
	slices.SortFunc(logs, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrInvalidInput
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cloneItem(item domain.Item) domain.Item {
	copied := item
	if len(item.Components) > 0 {
		copied.Components = make([]domain.ComboComponent, len(item.Components))
		copy(copied.Components, item.Components)
	}
	return copied
}

func cloneSale(sale domain.Sale) *domain.Sale {
	copied := sale
	if len(sale.Lines) > 0 {
		copied.Lines = make([]domain.SaleLine, len(sale.Lines))
		copy(copied.Lines, sale.Lines)
	}
	return &copied
}
