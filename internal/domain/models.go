package domain

import "time"

// ComboComponent ties a combo item to one of its constituent items.
type ComboComponent struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// Item is catalog data consumed read-only by the engine. Combos own no
// ledger entry of their own; their availability is derived from Components.
type Item struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	CategoryID      string           `json:"category_id,omitempty"`
	IsCombo         bool             `json:"is_combo"`
	PriceUSDCents   int64            `json:"price_usd_cents"`
	PriceLocalCents int64            `json:"price_local_cents"`
	Components      []ComboComponent `json:"components,omitempty"`
	Active          bool             `json:"active"`
}

type ItemCreateRequest struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	CategoryID      string           `json:"category_id"`
	IsCombo         bool             `json:"is_combo"`
	PriceUSDCents   int64            `json:"price_usd_cents"`
	PriceLocalCents int64            `json:"price_local_cents"`
	Components      []ComboComponent `json:"components,omitempty"`
	InitialStock    int              `json:"initial_stock"`
	LocationID      string           `json:"location_id,omitempty"`
}

type Location struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type LocationCreateRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Seller is a read-only commission input: a consignment seller assigned to
// one location, with a default commission rate in percent.
type Seller struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	LocationID  string    `json:"location_id"`
	DefaultRate float64   `json:"default_rate"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type SellerCreateRequest struct {
	Name        string  `json:"name"`
	LocationID  string  `json:"location_id"`
	DefaultRate float64 `json:"default_rate"`
}

// SellerCategoryRate overrides the seller's default rate for one category.
type SellerCategoryRate struct {
	SellerID   string  `json:"seller_id"`
	CategoryID string  `json:"category_id"`
	Rate       float64 `json:"rate"`
}

type SellerCategoryRateRequest struct {
	CategoryID string  `json:"category_id"`
	Rate       float64 `json:"rate"`
}

// Reservation is a soft hold: it never touches the ledger while pending.
// Availability is computed on demand as stock minus open pending quantity.
type Reservation struct {
	ID          string     `json:"id"`
	ClientID    string     `json:"client_id"`
	ItemID      string     `json:"item_id"`
	LocationID  string     `json:"location_id"`
	Quantity    int        `json:"quantity"`
	Status      string     `json:"status"`
	SaleID      string     `json:"sale_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type ReservationCreateRequest struct {
	ClientID   string `json:"client_id"`
	ItemID     string `json:"item_id"`
	LocationID string `json:"location_id"`
	Quantity   int    `json:"quantity"`
}

type ReservationCompleteRequest struct {
	Currency      string `json:"currency"`
	PaymentMethod string `json:"payment_method"`
}

type ReservationResponse struct {
	Reservation Reservation `json:"reservation"`
}

type ReservationListResponse struct {
	Reservations []Reservation `json:"reservations"`
}

type SaleLine struct {
	ItemID         string `json:"item_id"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	SubtotalCents  int64  `json:"subtotal_cents"`
}

type Sale struct {
	ID            string     `json:"id"`
	LocationID    string     `json:"location_id"`
	ReservationID string     `json:"reservation_id,omitempty"`
	Currency      string     `json:"currency"`
	TotalCents    int64      `json:"total_cents"`
	PaymentMethod string     `json:"payment_method"`
	CreatedAt     time.Time  `json:"created_at"`
	Lines         []SaleLine `json:"lines"`
}

type SettleLine struct {
	ItemID         string `json:"item_id"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type SettleRequest struct {
	LocationID    string       `json:"location_id"`
	Currency      string       `json:"currency"`
	PaymentMethod string       `json:"payment_method"`
	Lines         []SettleLine `json:"lines"`
}

type SaleResponse struct {
	Sale Sale `json:"sale"`
}

type SaleListResponse struct {
	Sales []Sale `json:"sales"`
}

type UndoSaleRequest struct {
	SaleID     string `json:"sale_id"`
	Reason     string `json:"reason"`
	ManagerPIN string `json:"manager_pin"`
}

type UndoSaleResponse struct {
	SaleID                  string `json:"sale_id"`
	RetainedPaidCommissions int    `json:"retained_paid_commissions"`
	UndoneAt                string `json:"undone_at"`
}

type Commission struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"seller_id"`
	SaleID      string    `json:"sale_id"`
	AmountCents int64     `json:"amount_cents"`
	Paid        bool      `json:"paid"`
	CreatedAt   time.Time `json:"created_at"`
}

type CommissionListResponse struct {
	Commissions []Commission `json:"commissions"`
}

type CommissionResponse struct {
	Commission Commission `json:"commission"`
}

// ItemAvailability is the storefront-facing read: a point-in-time sellable
// quantity plus stock badge. For combos, Quantity is units sellable and
// Unconstrained marks the zero-component edge case callers must branch on.
type ItemAvailability struct {
	ItemID         string `json:"item_id"`
	LocationID     string `json:"location_id"`
	Quantity       int    `json:"quantity"`
	Status         string `json:"status"`
	IsCombo        bool   `json:"is_combo"`
	LimitingItemID string `json:"limiting_item_id,omitempty"`
	Unconstrained  bool   `json:"unconstrained,omitempty"`
}

type AvailabilityRequest struct {
	LocationID string   `json:"location_id"`
	ItemIDs    []string `json:"item_ids"`
}

type AvailabilityListResponse struct {
	LocationID string             `json:"location_id"`
	Items      []ItemAvailability `json:"items"`
}

type StockSetRequest struct {
	ItemID     string `json:"item_id"`
	LocationID string `json:"location_id"`
	Quantity   int    `json:"quantity"`
}

type StockAdjustRequest struct {
	ItemID     string `json:"item_id"`
	LocationID string `json:"location_id"`
	Delta      int    `json:"delta"`
}

type StockResponse struct {
	ItemID     string `json:"item_id"`
	LocationID string `json:"location_id"`
	Quantity   int    `json:"quantity"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type StaffCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	LocationID    string    `json:"location_id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	ReservationStatusPending   = "pending"
	ReservationStatusCompleted = "completed"
	ReservationStatusCancelled = "cancelled"
)

const (
	StockStatusIn  = "in-stock"
	StockStatusLow = "low-stock"
	StockStatusOut = "out-of-stock"
)

const CurrencyUSD = "USD"
