package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"tillpoint/backend/internal/domain"
)

var (
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateOrderNumber is returned when an insert trips the unique
	// constraint on orders.order_number. The service redraws and retries.
	ErrDuplicateOrderNumber = errors.New("order number already exists")
)

// ReportDataSource tags daily reports with what they were built from, and
// records that legacy synthetic-sale orders were filtered out.
const ReportDataSource = "orders+sales (synthetic SALE-% orders excluded)"

// Repository is the persistence boundary for the lifecycle engine. Every
// mutating method runs as one transaction scoped to the call: status
// re-checks happen inside that transaction, never across two round trips.
type Repository interface {
	// Catalog (read-only to this core).
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id string) (domain.Category, error)

	// Orders.
	CreateOrder(ctx context.Context, order domain.Order, items []domain.OrderItem) (domain.Order, error)
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	ListOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error)
	ListOrders(ctx context.Context, status string, limit int) ([]domain.Order, error)
	// AddOrderItems merges items into an ACTIVE order and recomputes its
	// totals from the merged lines, all under the order's row lock.
	AddOrderItems(ctx context.Context, orderID string, add []domain.OrderItem, at time.Time) (domain.Order, error)
	// CompleteOrder moves ACTIVE to COMPLETED. Completing an already
	// COMPLETED order is a no-op success.
	CompleteOrder(ctx context.Context, id string, at time.Time) (domain.Order, error)
	// CompleteOrderWithItems replaces the order's items, recomputes totals
	// and completes it in a single transaction (the loaded-order checkout).
	CompleteOrderWithItems(ctx context.Context, id string, items []domain.OrderItem, discountAmount decimal.Decimal, at time.Time) (domain.Order, error)
	CancelOrder(ctx context.Context, id, cancelledBy, reason string, at time.Time) (domain.Order, error)
	ListStaleActiveOrders(ctx context.Context, olderThan time.Time, limit int) ([]domain.Order, error)

	// Sales.
	CreateSale(ctx context.Context, sale domain.Sale, items []domain.SaleItem) (domain.Sale, error)

	// Shifts.
	// OpenShift closes the user's existing OPEN shift (closing amount = the
	// new opening amount) and inserts the new one atomically; the superseded
	// shift, if any, is returned for the audit trail.
	OpenShift(ctx context.Context, shift domain.Shift) (domain.Shift, *domain.Shift, error)
	CloseShift(ctx context.Context, userID string, closingAmount decimal.Decimal, at time.Time) (domain.Shift, error)
	GetOpenShift(ctx context.Context, userID string) (domain.Shift, error)
	ForceCloseOpenShifts(ctx context.Context, at time.Time) ([]domain.Shift, error)

	// Reporting. Pure read over [dayStart, dayEnd).
	GetDailyReport(ctx context.Context, dayStart, dayEnd time.Time) (domain.DailyReport, error)

	// Users.
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	GetUserByUsername(ctx context.Context, username string) (domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error

	// Audit trail.
	AppendAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error)
}
