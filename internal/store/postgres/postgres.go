package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"titipjual/backend/internal/domain"
	"titipjual/backend/internal/store"
	"titipjual/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListItems(ctx context.Context) ([]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category_id, is_combo, price_usd_cents, price_local_cents, active
		FROM items
		WHERE active = true
		ORDER BY category_id, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Item, 0, 128)
	ids := make([]string, 0, 128)
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.CategoryID, &item.IsCombo, &item.PriceUSDCents, &item.PriceLocalCents, &item.Active); err != nil {
			return nil, err
		}
		items = append(items, item)
		if item.IsCombo {
			ids = append(ids, item.ID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	components, err := s.componentsByCombo(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].IsCombo {
			items[i].Components = components[items[i].ID]
		}
	}

	return items, nil
}

func (s *Store) componentsByCombo(ctx context.Context, comboIDs []string) (map[string][]domain.ComboComponent, error) {
	result := make(map[string][]domain.ComboComponent, len(comboIDs))
	if len(comboIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT combo_id, item_id, quantity
		FROM item_components
		WHERE combo_id = ANY($1)
		ORDER BY combo_id, item_id
	`, comboIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var comboID string
		var component domain.ComboComponent
		if err := rows.Scan(&comboID, &component.ItemID, &component.Quantity); err != nil {
			return nil, err
		}
		result[comboID] = append(result[comboID], component)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CreateItem(ctx context.Context, item domain.Item) (*domain.Item, error) {
	if item.ID == "" || item.Name == "" || item.PriceUSDCents < 0 || item.PriceLocalCents < 0 {
		return nil, store.ErrInvalidInput
	}
	if !item.IsCombo && len(item.Components) > 0 {
		return nil, store.ErrInvalidInput
	}

	item.Active = true

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO items (id, name, category_id, is_combo, price_usd_cents, price_local_cents, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now(),now())
	`, item.ID, item.Name, item.CategoryID, item.IsCombo, item.PriceUSDCents, item.PriceLocalCents, item.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	for _, component := range item.Components {
		if component.Quantity < 1 {
			return nil, store.ErrInvalidInput
		}
		var isCombo bool
		err := tx.QueryRowContext(ctx, `
			SELECT is_combo FROM items WHERE id = $1 AND active = true
		`, component.ItemID).Scan(&isCombo)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: component %s unavailable", store.ErrInvalidInput, component.ItemID)
			}
			return nil, err
		}
		if isCombo {
			return nil, fmt.Errorf("%w: component %s is a combo", store.ErrInvalidInput, component.ItemID)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO item_components (combo_id, item_id, quantity)
			VALUES ($1,$2,$3)
		`, item.ID, component.ItemID, component.Quantity)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := item
	return &created, nil
}

func (s *Store) GetItemByID(ctx context.Context, itemID string) (*domain.Item, error) {
	var item domain.Item
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, category_id, is_combo, price_usd_cents, price_local_cents, active
		FROM items
		WHERE id = $1
	`, itemID).Scan(&item.ID, &item.Name, &item.CategoryID, &item.IsCombo, &item.PriceUSDCents, &item.PriceLocalCents, &item.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	if item.IsCombo {
		components, err := s.componentsByCombo(ctx, []string{item.ID})
		if err != nil {
			return nil, err
		}
		item.Components = components[item.ID]
	}
	return &item, nil
}

func (s *Store) GetItemsByIDs(ctx context.Context, itemIDs []string) (map[string]domain.Item, error) {
	result := make(map[string]domain.Item, len(itemIDs))
	if len(itemIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category_id, is_combo, price_usd_cents, price_local_cents, active
		FROM items
		WHERE active = true AND id = ANY($1)
	`, itemIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comboIDs := make([]string, 0, 4)
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.CategoryID, &item.IsCombo, &item.PriceUSDCents, &item.PriceLocalCents, &item.Active); err != nil {
			return nil, err
		}
		result[item.ID] = item
		if item.IsCombo {
			comboIDs = append(comboIDs, item.ID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	components, err := s.componentsByCombo(ctx, comboIDs)
	if err != nil {
		return nil, err
	}
	for _, comboID := range comboIDs {
		item := result[comboID]
		item.Components = components[comboID]
		result[comboID] = item
	}

	return result, nil
}

func (s *Store) CreateLocation(ctx context.Context, location domain.Location) (*domain.Location, error) {
	if location.ID == "" || location.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if location.CreatedAt.IsZero() {
		location.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO locations (id, name, created_at)
		VALUES ($1,$2,$3)
	`, location.ID, location.Name, location.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	created := location
	return &created, nil
}

func (s *Store) ListLocations(ctx context.Context) ([]domain.Location, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at
		FROM locations
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locations := make([]domain.Location, 0, 8)
	for rows.Next() {
		var location domain.Location
		if err := rows.Scan(&location.ID, &location.Name, &location.CreatedAt); err != nil {
			return nil, err
		}
		location.CreatedAt = location.CreatedAt.UTC()
		locations = append(locations, location)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return locations, nil
}

func (s *Store) CreateSeller(ctx context.Context, seller domain.Seller) (*domain.Seller, error) {
	if seller.Name == "" || seller.LocationID == "" || seller.DefaultRate < 0 || seller.DefaultRate > 100 {
		return nil, store.ErrInvalidInput
	}
	if seller.ID == "" {
		seller.ID = xid.New("sel")
	}
	if seller.CreatedAt.IsZero() {
		seller.CreatedAt = time.Now().UTC()
	}
	seller.Active = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sellers (id, name, location_id, default_rate, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, seller.ID, seller.Name, seller.LocationID, seller.DefaultRate, seller.Active, seller.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	created := seller
	return &created, nil
}

func (s *Store) ListSellersByLocation(ctx context.Context, locationID string) ([]domain.Seller, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, location_id, default_rate, active, created_at
		FROM sellers
		WHERE location_id = $1
		ORDER BY id
	`, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sellers := make([]domain.Seller, 0, 16)
	for rows.Next() {
		var seller domain.Seller
		if err := rows.Scan(&seller.ID, &seller.Name, &seller.LocationID, &seller.DefaultRate, &seller.Active, &seller.CreatedAt); err != nil {
			return nil, err
		}
		seller.CreatedAt = seller.CreatedAt.UTC()
		sellers = append(sellers, seller)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sellers, nil
}

func (s *Store) UpsertSellerCategoryRate(ctx context.Context, rate domain.SellerCategoryRate) error {
	if rate.SellerID == "" || rate.CategoryID == "" || rate.Rate < 0 || rate.Rate > 100 {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO seller_category_rates (seller_id, category_id, rate, updated_at)
		SELECT $1, $2, $3, now()
		WHERE EXISTS (SELECT 1 FROM sellers WHERE id = $1)
		ON CONFLICT (seller_id, category_id)
		DO UPDATE SET rate = EXCLUDED.rate, updated_at = now()
	`, rate.SellerID, rate.CategoryID, rate.Rate)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetSellerCategoryRates(ctx context.Context, sellerIDs []string) (map[string]map[string]float64, error) {
	result := make(map[string]map[string]float64, len(sellerIDs))
	if len(sellerIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seller_id, category_id, rate
		FROM seller_category_rates
		WHERE seller_id = ANY($1)
	`, sellerIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sellerID, categoryID string
		var rate float64
		if err := rows.Scan(&sellerID, &categoryID, &rate); err != nil {
			return nil, err
		}
		byCategory := result[sellerID]
		if byCategory == nil {
			byCategory = make(map[string]float64)
			result[sellerID] = byCategory
		}
		byCategory[categoryID] = rate
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) GetStock(ctx context.Context, itemID string, locationID string) (int, error) {
	var quantity int
	err := s.db.QueryRowContext(ctx, `
		SELECT quantity
		FROM stock_entries
		WHERE item_id = $1 AND location_id = $2
	`, itemID, locationID).Scan(&quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return quantity, nil
}

func (s *Store) GetStockMap(ctx context.Context, locationID string, itemIDs []string) (map[string]int, error) {
	stockMap := make(map[string]int, len(itemIDs))
	if len(itemIDs) == 0 {
		return stockMap, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, quantity
		FROM stock_entries
		WHERE location_id = $1 AND item_id = ANY($2)
	`, locationID, itemIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var itemID string
		var quantity int
		if err := rows.Scan(&itemID, &quantity); err != nil {
			return nil, err
		}
		stockMap[itemID] = quantity
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, itemID := range itemIDs {
		if _, ok := stockMap[itemID]; !ok {
			stockMap[itemID] = 0
		}
	}

	return stockMap, nil
}

func (s *Store) SetStock(ctx context.Context, itemID string, locationID string, quantity int) error {
	if itemID == "" || quantity < 0 {
		return store.ErrInvalidInput
	}
	if err := s.requireLedgerItem(ctx, itemID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stock_entries (item_id, location_id, quantity, updated_at)
		VALUES ($1,$2,$3,now())
		ON CONFLICT (item_id, location_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()
	`, itemID, locationID, quantity)
	return err
}

// AdjustStock is a single conditional statement: the WHERE clause refuses any
// update that would leave the entry negative, so concurrent decrements cannot
// jointly underflow regardless of interleaving.
func (s *Store) AdjustStock(ctx context.Context, itemID string, locationID string, delta int) (int, error) {
	if err := s.requireLedgerItem(ctx, itemID); err != nil {
		return 0, err
	}

	if delta >= 0 {
		var quantity int
		err := s.db.QueryRowContext(ctx, `
			INSERT INTO stock_entries (item_id, location_id, quantity, updated_at)
			VALUES ($1,$2,$3,now())
			ON CONFLICT (item_id, location_id)
			DO UPDATE SET quantity = stock_entries.quantity + EXCLUDED.quantity, updated_at = now()
			RETURNING quantity
		`, itemID, locationID, delta).Scan(&quantity)
		return quantity, err
	}

	var quantity int
	err := s.db.QueryRowContext(ctx, `
		UPDATE stock_entries
		SET quantity = quantity + $3, updated_at = now()
		WHERE item_id = $1 AND location_id = $2 AND quantity + $3 >= 0
		RETURNING quantity
	`, itemID, locationID, delta).Scan(&quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, store.ErrInsufficientStock
		}
		return 0, err
	}
	return quantity, nil
}

func (s *Store) requireLedgerItem(ctx context.Context, itemID string) error {
	var isCombo bool
	err := s.db.QueryRowContext(ctx, `
		SELECT is_combo FROM items WHERE id = $1
	`, itemID).Scan(&isCombo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: item %s unavailable", store.ErrNotFound, itemID)
		}
		return err
	}
	if isCombo {
		return fmt.Errorf("%w: combo %s owns no ledger entry", store.ErrInvalidInput, itemID)
	}
	return nil
}

// CreateReservation runs the availability check and the insert in one
// serializable transaction, with the stock row locked so a concurrent
// settlement cannot shrink on-hand between the read and the insert.
func (s *Store) CreateReservation(ctx context.Context, reservation domain.Reservation) (*domain.Reservation, error) {
	if reservation.ClientID == "" || reservation.ItemID == "" || reservation.LocationID == "" || reservation.Quantity < 1 {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var isCombo, active bool
	err = tx.QueryRowContext(ctx, `
		SELECT is_combo, active FROM items WHERE id = $1
	`, reservation.ItemID).Scan(&isCombo, &active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: item %s unavailable", store.ErrNotFound, reservation.ItemID)
		}
		return nil, err
	}
	if !active {
		return nil, fmt.Errorf("%w: item %s unavailable", store.ErrNotFound, reservation.ItemID)
	}
	if isCombo {
		return nil, fmt.Errorf("%w: combo items cannot be reserved", store.ErrInvalidInput)
	}

	onHand := 0
	err = tx.QueryRowContext(ctx, `
		SELECT quantity
		FROM stock_entries
		WHERE item_id = $1 AND location_id = $2
		FOR UPDATE
	`, reservation.ItemID, reservation.LocationID).Scan(&onHand)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	var reserved int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity),0)::int
		FROM reservations
		WHERE item_id = $1 AND location_id = $2 AND status = $3
	`, reservation.ItemID, reservation.LocationID, domain.ReservationStatusPending).Scan(&reserved)
	if err != nil {
		return nil, err
	}

	if reservation.Quantity > onHand-reserved {
		return nil, store.ErrInsufficientAvailability
	}

	if reservation.ID == "" {
		reservation.ID = xid.New("rsv")
	}
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = time.Now().UTC()
	}
	reservation.Status = domain.ReservationStatusPending

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reservations (id, client_id, item_id, location_id, quantity, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, reservation.ID, reservation.ClientID, reservation.ItemID, reservation.LocationID, reservation.Quantity, reservation.Status, reservation.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := reservation
	return &created, nil
}

func (s *Store) GetReservationByID(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	var reservation domain.Reservation
	var saleID sql.NullString
	var cancelledAt, completedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, client_id, item_id, location_id, quantity, status, sale_id, created_at, cancelled_at, completed_at
		FROM reservations
		WHERE id = $1
	`, reservationID).Scan(
		&reservation.ID,
		&reservation.ClientID,
		&reservation.ItemID,
		&reservation.LocationID,
		&reservation.Quantity,
		&reservation.Status,
		&saleID,
		&reservation.CreatedAt,
		&cancelledAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	reservation.CreatedAt = reservation.CreatedAt.UTC()
	if saleID.Valid {
		reservation.SaleID = saleID.String
	}
	if cancelledAt.Valid {
		at := cancelledAt.Time.UTC()
		reservation.CancelledAt = &at
	}
	if completedAt.Valid {
		at := completedAt.Time.UTC()
		reservation.CompletedAt = &at
	}
	return &reservation, nil
}

func (s *Store) ListReservations(ctx context.Context, locationID string, status string, limit int) ([]domain.Reservation, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, client_id, item_id, location_id, quantity, status, sale_id, created_at, cancelled_at, completed_at
		FROM reservations
		WHERE ($1 = '' OR location_id = $1)
			AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, locationID, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reservations := make([]domain.Reservation, 0, limit)
	for rows.Next() {
		var reservation domain.Reservation
		var saleID sql.NullString
		var cancelledAt, completedAt sql.NullTime
		if err := rows.Scan(
			&reservation.ID,
			&reservation.ClientID,
			&reservation.ItemID,
			&reservation.LocationID,
			&reservation.Quantity,
			&reservation.Status,
			&saleID,
			&reservation.CreatedAt,
			&cancelledAt,
			&completedAt,
		); err != nil {
			return nil, err
		}
		reservation.CreatedAt = reservation.CreatedAt.UTC()
		if saleID.Valid {
			reservation.SaleID = saleID.String
		}
		if cancelledAt.Valid {
			at := cancelledAt.Time.UTC()
			reservation.CancelledAt = &at
		}
		if completedAt.Valid {
			at := completedAt.Time.UTC()
			reservation.CompletedAt = &at
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reservations, nil
}

func (s *Store) CancelReservation(ctx context.Context, reservationID string, at time.Time) (*domain.Reservation, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reservations
		SET status = $2, cancelled_at = $3
		WHERE id = $1 AND status = $4
	`, reservationID, domain.ReservationStatusCancelled, at, domain.ReservationStatusPending)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		if _, lookupErr := s.GetReservationByID(ctx, reservationID); lookupErr != nil {
			return nil, lookupErr
		}
		return nil, store.ErrInvalidTransition
	}

	return s.GetReservationByID(ctx, reservationID)
}

// CompleteReservation settles the hold in one serializable transaction: the
// reservation row is locked, its status checked, the sale settled against the
// ledger and the status flipped. Any failure rolls the whole thing back and
// the reservation stays pending.
func (s *Store) CompleteReservation(ctx context.Context, reservationID string, sale domain.Sale, at time.Time) (*domain.Reservation, *domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT status
		FROM reservations
		WHERE id = $1
		FOR UPDATE
	`, reservationID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, store.ErrNotFound
		}
		return nil, nil, err
	}
	if status != domain.ReservationStatusPending {
		return nil, nil, store.ErrInvalidTransition
	}

	sale.ReservationID = reservationID
	created, err := s.settleSaleTx(ctx, tx, sale)
	if err != nil {
		return nil, nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE reservations
		SET status = $2, completed_at = $3, sale_id = $4
		WHERE id = $1
	`, reservationID, domain.ReservationStatusCompleted, at, created.ID)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	reservation, err := s.GetReservationByID(ctx, reservationID)
	if err != nil {
		return nil, nil, err
	}
	return reservation, created, nil
}

func (s *Store) OpenReservedQty(ctx context.Context, itemID string, locationID string) (int, error) {
	var reserved int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity),0)::int
		FROM reservations
		WHERE item_id = $1 AND location_id = $2 AND status = $3
	`, itemID, locationID, domain.ReservationStatusPending).Scan(&reserved)
	return reserved, err
}

func (s *Store) OpenReservedQtyMap(ctx context.Context, locationID string, itemIDs []string) (map[string]int, error) {
	result := make(map[string]int, len(itemIDs))
	if len(itemIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, COALESCE(SUM(quantity),0)::int
		FROM reservations
		WHERE location_id = $1 AND item_id = ANY($2) AND status = $3
		GROUP BY item_id
	`, locationID, itemIDs, domain.ReservationStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var itemID string
		var reserved int
		if err := rows.Scan(&itemID, &reserved); err != nil {
			return nil, err
		}
		result[itemID] = reserved
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, itemID := range itemIDs {
		if _, ok := result[itemID]; !ok {
			result[itemID] = 0
		}
	}
	return result, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	created, err := s.settleSaleTx(ctx, tx, sale)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

// settleSaleTx applies a multi-line settlement inside the caller's
// transaction. Combo lines are expanded to component decrements, all affected
// stock rows are locked FOR UPDATE, every decrement is checked against
// on-hand, and only then are the sale and its lines inserted.
func (s *Store) settleSaleTx(ctx context.Context, tx *sql.Tx, sale domain.Sale) (*domain.Sale, error) {
	if sale.LocationID == "" || len(sale.Lines) == 0 {
		return nil, store.ErrInvalidInput
	}

	var exists bool
	err := tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM locations WHERE id = $1)
	`, sale.LocationID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: location %s unavailable", store.ErrNotFound, sale.LocationID)
	}

	lineItemIDs := make([]string, 0, len(sale.Lines))
	for _, line := range sale.Lines {
		if line.ItemID == "" || line.Quantity < 1 || line.UnitPriceCents < 0 {
			return nil, store.ErrInvalidInput
		}
		lineItemIDs = append(lineItemIDs, line.ItemID)
	}

	type itemState struct {
		isCombo    bool
		components []domain.ComboComponent
	}
	itemMap := make(map[string]itemState, len(lineItemIDs))

	itemRows, err := tx.QueryContext(ctx, `
		SELECT id, is_combo
		FROM items
		WHERE active = true AND id = ANY($1)
	`, lineItemIDs)
	if err != nil {
		return nil, err
	}
	comboIDs := make([]string, 0, 4)
	for itemRows.Next() {
		var id string
		var isCombo bool
		if err := itemRows.Scan(&id, &isCombo); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		itemMap[id] = itemState{isCombo: isCombo}
		if isCombo {
			comboIDs = append(comboIDs, id)
		}
	}
	if err := itemRows.Err(); err != nil {
		_ = itemRows.Close()
		return nil, err
	}
	_ = itemRows.Close()

	if len(comboIDs) > 0 {
		componentRows, err := tx.QueryContext(ctx, `
			SELECT combo_id, item_id, quantity
			FROM item_components
			WHERE combo_id = ANY($1)
		`, comboIDs)
		if err != nil {
			return nil, err
		}
		for componentRows.Next() {
			var comboID string
			var component domain.ComboComponent
			if err := componentRows.Scan(&comboID, &component.ItemID, &component.Quantity); err != nil {
				_ = componentRows.Close()
				return nil, err
			}
			state := itemMap[comboID]
			state.components = append(state.components, component)
			itemMap[comboID] = state
		}
		if err := componentRows.Err(); err != nil {
			_ = componentRows.Close()
			return nil, err
		}
		_ = componentRows.Close()
	}

	effects := make(map[string]int, len(sale.Lines))
	for _, line := range sale.Lines {
		state, ok := itemMap[line.ItemID]
		if !ok {
			return nil, fmt.Errorf("%w: item %s unavailable", store.ErrNotFound, line.ItemID)
		}
		if state.isCombo {
			for _, component := range state.components {
				effects[component.ItemID] += component.Quantity * line.Quantity
			}
			continue
		}
		effects[line.ItemID] += line.Quantity
	}

	effectIDs := make([]string, 0, len(effects))
	for itemID := range effects {
		effectIDs = append(effectIDs, itemID)
	}

	stockRows, err := tx.QueryContext(ctx, `
		SELECT item_id, quantity
		FROM stock_entries
		WHERE location_id = $1 AND item_id = ANY($2)
		FOR UPDATE
	`, sale.LocationID, effectIDs)
	if err != nil {
		return nil, err
	}
	stockMap := make(map[string]int, len(effectIDs))
	for stockRows.Next() {
		var itemID string
		var quantity int
		if err := stockRows.Scan(&itemID, &quantity); err != nil {
			_ = stockRows.Close()
			return nil, err
		}
		stockMap[itemID] = quantity
	}
	if err := stockRows.Err(); err != nil {
		_ = stockRows.Close()
		return nil, err
	}
	_ = stockRows.Close()

	for itemID, needed := range effects {
		if stockMap[itemID] < needed {
			return nil, store.ErrInsufficientStock
		}
	}
	for itemID, needed := range effects {
		_, err = tx.ExecContext(ctx, `
			UPDATE stock_entries
			SET quantity = quantity - $1, updated_at = now()
			WHERE item_id = $2 AND location_id = $3
		`, needed, itemID, sale.LocationID)
		if err != nil {
			return nil, err
		}
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

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, location_id, reservation_id, currency, total_cents, payment_method, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, sale.ID, sale.LocationID, nullIfEmpty(sale.ReservationID), sale.Currency, sale.TotalCents, sale.PaymentMethod, sale.CreatedAt)
	if err != nil {
		return nil, err
	}

	for _, line := range sale.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_lines (sale_id, item_id, quantity, unit_price_cents, subtotal_cents)
			VALUES ($1,$2,$3,$4,$5)
		`, sale.ID, line.ItemID, line.Quantity, line.UnitPriceCents, line.SubtotalCents)
		if err != nil {
			return nil, err
		}
	}

	created := sale
	return &created, nil
}

func (s *Store) GetSaleByID(ctx context.Context, saleID string) (*domain.Sale, error) {
	var sale domain.Sale
	var reservationID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, location_id, reservation_id, currency, total_cents, payment_method, created_at
		FROM sales
		WHERE id = $1
	`, saleID).Scan(&sale.ID, &sale.LocationID, &reservationID, &sale.Currency, &sale.TotalCents, &sale.PaymentMethod, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	sale.CreatedAt = sale.CreatedAt.UTC()
	if reservationID.Valid {
		sale.ReservationID = reservationID.String
	}

	lines, err := s.saleLines(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	sale.Lines = lines
	return &sale, nil
}

func (s *Store) saleLines(ctx context.Context, saleID string) ([]domain.SaleLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, quantity, unit_price_cents, subtotal_cents
		FROM sale_lines
		WHERE sale_id = $1
		ORDER BY id ASC
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.SaleLine, 0, 8)
	for rows.Next() {
		var line domain.SaleLine
		if err := rows.Scan(&line.ItemID, &line.Quantity, &line.UnitPriceCents, &line.SubtotalCents); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Store) ListSales(ctx context.Context, locationID string, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, location_id, reservation_id, currency, total_cents, payment_method, created_at
		FROM sales
		WHERE ($1 = '' OR location_id = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, locationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, limit)
	for rows.Next() {
		var sale domain.Sale
		var reservationID sql.NullString
		if err := rows.Scan(&sale.ID, &sale.LocationID, &reservationID, &sale.Currency, &sale.TotalCents, &sale.PaymentMethod, &sale.CreatedAt); err != nil {
			return nil, err
		}
		sale.CreatedAt = sale.CreatedAt.UTC()
		if reservationID.Valid {
			sale.ReservationID = reservationID.String
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sales {
		lines, err := s.saleLines(ctx, sales[i].ID)
		if err != nil {
			return nil, err
		}
		sales[i].Lines = lines
	}
	return sales, nil
}

// UndoSale reverses a settlement in one serializable transaction: ledger
// increments mirror the original decrements (combo lines re-expanded against
// current item definitions), unpaid commissions for the sale are deleted, and
// the sale row goes away. Paid commissions survive; the count comes back to
// the caller.
func (s *Store) UndoSale(ctx context.Context, saleID string) (*domain.Sale, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var sale domain.Sale
	var reservationID sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT id, location_id, reservation_id, currency, total_cents, payment_method, created_at
		FROM sales
		WHERE id = $1
		FOR UPDATE
	`, saleID).Scan(&sale.ID, &sale.LocationID, &reservationID, &sale.Currency, &sale.TotalCents, &sale.PaymentMethod, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, store.ErrNotFound
		}
		return nil, 0, err
	}
	sale.CreatedAt = sale.CreatedAt.UTC()
	if reservationID.Valid {
		sale.ReservationID = reservationID.String
	}

	lineRows, err := tx.QueryContext(ctx, `
		SELECT item_id, quantity, unit_price_cents, subtotal_cents
		FROM sale_lines
		WHERE sale_id = $1
		ORDER BY id ASC
	`, saleID)
	if err != nil {
		return nil, 0, err
	}
	lines := make([]domain.SaleLine, 0, 8)
	lineItemIDs := make([]string, 0, 8)
	for lineRows.Next() {
		var line domain.SaleLine
		if err := lineRows.Scan(&line.ItemID, &line.Quantity, &line.UnitPriceCents, &line.SubtotalCents); err != nil {
			_ = lineRows.Close()
			return nil, 0, err
		}
		lines = append(lines, line)
		lineItemIDs = append(lineItemIDs, line.ItemID)
	}
	if err := lineRows.Err(); err != nil {
		_ = lineRows.Close()
		return nil, 0, err
	}
	_ = lineRows.Close()
	sale.Lines = lines

	comboRows, err := tx.QueryContext(ctx, `
		SELECT c.combo_id, c.item_id, c.quantity
		FROM item_components c
		WHERE c.combo_id = ANY($1)
	`, lineItemIDs)
	if err != nil {
		return nil, 0, err
	}
	components := make(map[string][]domain.ComboComponent, 4)
	for comboRows.Next() {
		var comboID string
		var component domain.ComboComponent
		if err := comboRows.Scan(&comboID, &component.ItemID, &component.Quantity); err != nil {
			_ = comboRows.Close()
			return nil, 0, err
		}
		components[comboID] = append(components[comboID], component)
	}
	if err := comboRows.Err(); err != nil {
		_ = comboRows.Close()
		return nil, 0, err
	}
	_ = comboRows.Close()

	effects := make(map[string]int, len(lines))
	for _, line := range lines {
		if expansion, ok := components[line.ItemID]; ok {
			for _, component := range expansion {
				effects[component.ItemID] += component.Quantity * line.Quantity
			}
			continue
		}
		effects[line.ItemID] += line.Quantity
	}

	for itemID, quantity := range effects {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO stock_entries (item_id, location_id, quantity, updated_at)
			VALUES ($1,$2,$3,now())
			ON CONFLICT (item_id, location_id)
			DO UPDATE SET quantity = stock_entries.quantity + EXCLUDED.quantity, updated_at = now()
		`, itemID, sale.LocationID, quantity)
		if err != nil {
			return nil, 0, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM commissions
		WHERE sale_id = $1 AND paid = false
	`, saleID)
	if err != nil {
		return nil, 0, err
	}

	var retainedPaid int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*)::int
		FROM commissions
		WHERE sale_id = $1 AND paid = true
	`, saleID).Scan(&retainedPaid)
	if err != nil {
		return nil, 0, err
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM sale_lines WHERE sale_id = $1`, saleID)
	if err != nil {
		return nil, 0, err
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, saleID)
	if err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, err
	}
	return &sale, retainedPaid, nil
}

func (s *Store) CreateCommissions(ctx context.Context, commissions []domain.Commission) error {
	if len(commissions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, commission := range commissions {
		if commission.SellerID == "" || commission.SaleID == "" || commission.AmountCents < 0 {
			return store.ErrInvalidInput
		}
		if commission.ID == "" {
			commission.ID = xid.New("com")
		}
		if commission.CreatedAt.IsZero() {
			commission.CreatedAt = time.Now().UTC()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO commissions (id, seller_id, sale_id, amount_cents, paid, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, commission.ID, commission.SellerID, commission.SaleID, commission.AmountCents, commission.Paid, commission.CreatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) ListCommissionsBySale(ctx context.Context, saleID string) ([]domain.Commission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seller_id, COALESCE(sale_id,''), amount_cents, paid, created_at
		FROM commissions
		WHERE sale_id = $1
		ORDER BY seller_id
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCommissions(rows)
}

func (s *Store) ListCommissionsBySeller(ctx context.Context, sellerID string, limit int) ([]domain.Commission, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seller_id, COALESCE(sale_id,''), amount_cents, paid, created_at
		FROM commissions
		WHERE seller_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, sellerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCommissions(rows)
}

func scanCommissions(rows *sql.Rows) ([]domain.Commission, error) {
	commissions := make([]domain.Commission, 0, 16)
	for rows.Next() {
		var commission domain.Commission
		if err := rows.Scan(&commission.ID, &commission.SellerID, &commission.SaleID, &commission.AmountCents, &commission.Paid, &commission.CreatedAt); err != nil {
			return nil, err
		}
		commission.CreatedAt = commission.CreatedAt.UTC()
		commissions = append(commissions, commission)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return commissions, nil
}

func (s *Store) MarkCommissionPaid(ctx context.Context, commissionID string) (*domain.Commission, error) {
	var commission domain.Commission
	var saleID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		UPDATE commissions
		SET paid = true
		WHERE id = $1 AND paid = false
		RETURNING id, seller_id, sale_id, amount_cents, paid, created_at
	`, commissionID).Scan(&commission.ID, &commission.SellerID, &saleID, &commission.AmountCents, &commission.Paid, &commission.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, lookupErr := s.getCommissionByID(ctx, commissionID); lookupErr == nil {
				return nil, store.ErrInvalidInput
			}
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	commission.CreatedAt = commission.CreatedAt.UTC()
	if saleID.Valid {
		commission.SaleID = saleID.String
	}
	return &commission, nil
}

func (s *Store) getCommissionByID(ctx context.Context, commissionID string) (*domain.Commission, error) {
	var commission domain.Commission
	var saleID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, seller_id, sale_id, amount_cents, paid, created_at
		FROM commissions
		WHERE id = $1
	`, commissionID).Scan(&commission.ID, &commission.SellerID, &saleID, &commission.AmountCents, &commission.Paid, &commission.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if saleID.Valid {
		commission.SaleID = saleID.String
	}
	return &commission, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, location_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.LocationID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, locationID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, location_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE location_id = $1
			AND created_at >= $2
			AND created_at < $3
		ORDER BY created_at DESC
		LIMIT $4
	`, locationID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.LocationID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password_hash, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $2
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
