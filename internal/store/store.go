package store

import (
	"context"
	"errors"
	"time"

	"titipjual/backend/internal/domain"
)

var (
	ErrNotFound                 = errors.New("not found")
	ErrInvalidInput             = errors.New("invalid input")
	ErrInsufficientStock        = errors.New("insufficient stock")
	ErrInsufficientAvailability = errors.New("insufficient availability")
	ErrInvalidTransition        = errors.New("invalid reservation transition")
)

// Repository is the single source of truth for the engine. Every method that
// mutates the ledger is an atomic section: AdjustStock is a conditional
// read-modify-write, CreateReservation recomputes availability and inserts
// under the same lock/transaction, and CreateSale/CompleteReservation/UndoSale
// apply all line effects or none.
type Repository interface {
	ListItems(ctx context.Context) ([]domain.Item, error)
	CreateItem(ctx context.Context, item domain.Item) (*domain.Item, error)
	GetItemByID(ctx context.Context, itemID string) (*domain.Item, error)
	GetItemsByIDs(ctx context.Context, itemIDs []string) (map[string]domain.Item, error)

	CreateLocation(ctx context.Context, location domain.Location) (*domain.Location, error)
	ListLocations(ctx context.Context) ([]domain.Location, error)

	CreateSeller(ctx context.Context, seller domain.Seller) (*domain.Seller, error)
	ListSellersByLocation(ctx context.Context, locationID string) ([]domain.Seller, error)
	UpsertSellerCategoryRate(ctx context.Context, rate domain.SellerCategoryRate) error
	GetSellerCategoryRates(ctx context.Context, sellerIDs []string) (map[string]map[string]float64, error)

	GetStock(ctx context.Context, itemID string, locationID string) (int, error)
	GetStockMap(ctx context.Context, locationID string, itemIDs []string) (map[string]int, error)
	SetStock(ctx context.Context, itemID string, locationID string, quantity int) error
	AdjustStock(ctx context.Context, itemID string, locationID string, delta int) (int, error)

	CreateReservation(ctx context.Context, reservation domain.Reservation) (*domain.Reservation, error)
	GetReservationByID(ctx context.Context, reservationID string) (*domain.Reservation, error)
	ListReservations(ctx context.Context, locationID string, status string, limit int) ([]domain.Reservation, error)
	CancelReservation(ctx context.Context, reservationID string, at time.Time) (*domain.Reservation, error)
	CompleteReservation(ctx context.Context, reservationID string, sale domain.Sale, at time.Time) (*domain.Reservation, *domain.Sale, error)
	OpenReservedQty(ctx context.Context, itemID string, locationID string) (int, error)
	OpenReservedQtyMap(ctx context.Context, locationID string, itemIDs []string) (map[string]int, error)

	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	GetSaleByID(ctx context.Context, saleID string) (*domain.Sale, error)
	ListSales(ctx context.Context, locationID string, limit int) ([]domain.Sale, error)
	UndoSale(ctx context.Context, saleID string) (*domain.Sale, int, error)

	CreateCommissions(ctx context.Context, commissions []domain.Commission) error
	ListCommissionsBySale(ctx context.Context, saleID string) ([]domain.Commission, error)
	ListCommissionsBySeller(ctx context.Context, sellerID string, limit int) ([]domain.Commission, error)
	MarkCommissionPaid(ctx context.Context, commissionID string) (*domain.Commission, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, locationID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
