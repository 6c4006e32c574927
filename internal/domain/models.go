package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. ACTIVE and PENDING are mutable, COMPLETED and CANCELLED
// are terminal; transitions never run backwards.
const (
	OrderStatusActive    = "ACTIVE"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
	OrderStatusPending   = "PENDING"
)

const (
	ShiftStatusOpen   = "OPEN"
	ShiftStatusClosed = "CLOSED"
)

// Checkout result kinds. A checkout either completes the loaded order or
// creates an ad-hoc sale, never both.
const (
	CheckoutOrderCompleted = "ORDER_COMPLETED"
	CheckoutSaleCreated    = "SALE_CREATED"
)

type Category struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	TaxRate decimal.Decimal `json:"tax_rate"` // percent
}

type Product struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	CategoryID string          `json:"category_id"`
	Price      decimal.Decimal `json:"price"`
	Active     bool            `json:"active"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Order is a persisted, named transaction. Its totals are always derivable
// by re-summing the line items with the order-level discount applied.
type Order struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"order_number"`
	CustomerName    string          `json:"customer_name,omitempty"`
	Status          string          `json:"status"`
	UserID          string          `json:"user_id"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	CancelledBy     string          `json:"cancelled_by,omitempty"`
	CancelledReason string          `json:"cancelled_reason,omitempty"`
}

type OrderItem struct {
	OrderID      string          `json:"order_id"`
	ProductID    string          `json:"product_id"`
	Quantity     int             `json:"quantity"`
	PriceAtOrder decimal.Decimal `json:"price_at_order"`
	Notes        string          `json:"notes,omitempty"`
}

// OrderTotals carries the persisted arithmetic of an order:
// total_amount = subtotal - discount_amount + tax_amount.
type OrderTotals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

// Sale records an ad-hoc, order-less checkout. Append-only, never mutated.
type Sale struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	UserID      string          `json:"user_id"`
}

type SaleItem struct {
	SaleID      string          `json:"sale_id"`
	ProductID   string          `json:"product_id"`
	Quantity    int             `json:"quantity"`
	PriceAtSale decimal.Decimal `json:"price_at_sale"`
}

// Shift brackets one cashier's working period. For any user at most one
// shift is OPEN at a time; rows are never deleted.
type Shift struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	OpenTime      time.Time        `json:"open_time"`
	CloseTime     *time.Time       `json:"close_time,omitempty"`
	OpeningAmount decimal.Decimal  `json:"opening_amount"`
	ClosingAmount *decimal.Decimal `json:"closing_amount,omitempty"`
	Status        string           `json:"status"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type Actor struct {
	Username string
	Role     string
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

// CartTotals mirrors the fixed seven-step cart arithmetic. Published money
// fields are rounded to two decimal places.
type CartTotals struct {
	Subtotal           decimal.Decimal `json:"subtotal"`
	LineDiscountTotal  decimal.Decimal `json:"line_discount_total"`
	PostLineSubtotal   decimal.Decimal `json:"post_line_subtotal"`
	CartDiscountTotal  decimal.Decimal `json:"cart_discount_total"`
	DiscountedSubtotal decimal.Decimal `json:"discounted_subtotal"`
	TaxTotal           decimal.Decimal `json:"tax_total"`
	GrandTotal         decimal.Decimal `json:"grand_total"`
}

type CartLineView struct {
	ProductID       string          `json:"product_id"`
	ProductName     string          `json:"product_name"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	TaxRatePercent  decimal.Decimal `json:"tax_rate_percent"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	Notes           string          `json:"notes,omitempty"`
	LineTotal       decimal.Decimal `json:"line_total"`
}

type CartView struct {
	Lines           []CartLineView  `json:"lines"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	LoadedOrderID   string          `json:"loaded_order_id,omitempty"`
	Totals          CartTotals      `json:"totals"`
}

type OrderDetail struct {
	Order Order       `json:"order"`
	Items []OrderItem `json:"items"`
}

type SaleDetail struct {
	Sale  Sale       `json:"sale"`
	Items []SaleItem `json:"items"`
}

type CheckoutResult struct {
	Kind   string       `json:"kind"`
	Order  *OrderDetail `json:"order,omitempty"`
	Sale   *SaleDetail  `json:"sale,omitempty"`
	Totals CartTotals   `json:"totals"`
	At     time.Time    `json:"at"`
}

// ShiftOpenResult reports the freshly opened shift and, when a stale OPEN
// shift was auto-closed to make room for it, the superseded one.
type ShiftOpenResult struct {
	Shift      Shift  `json:"shift"`
	Superseded *Shift `json:"superseded,omitempty"`
}

// DailyReport is the typed read-side aggregation handed to report
// renderers. Building it never mutates order, sale or shift state.
type DailyReport struct {
	Date               string          `json:"date"`
	TotalTransactions  int             `json:"total_transactions"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	AverageTransaction decimal.Decimal `json:"average_transaction"`
	ProductBreakdown   []ProductSales  `json:"product_breakdown"`
	ShiftBreakdown     []ShiftSummary  `json:"shift_breakdown"`
	DataSource         string          `json:"data_source"`
}

type ProductSales struct {
	ProductName  string          `json:"product_name"`
	QuantitySold int             `json:"quantity_sold"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}

type ShiftSummary struct {
	UserID               string           `json:"user"`
	OpeningAmount        decimal.Decimal  `json:"opening_amount"`
	ClosingAmount        *decimal.Decimal `json:"closing_amount,omitempty"`
	OpenTime             time.Time        `json:"open_time"`
	CloseTime            *time.Time       `json:"close_time,omitempty"`
	DurationMinutes      int64            `json:"duration_minutes"`
	Status               string           `json:"status"`
	AttributedSalesTotal decimal.Decimal  `json:"attributed_sales_total"`
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

type CartAddRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes,omitempty"`
}

type CartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type CartLineDiscountRequest struct {
	ProductID string          `json:"product_id"`
	Percent   decimal.Decimal `json:"percent"`
	Amount    decimal.Decimal `json:"amount"`
}

type CartDiscountRequest struct {
	Percent decimal.Decimal `json:"percent"`
	Amount  decimal.Decimal `json:"amount"`
}

type OrderItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes,omitempty"`
}

// OrderCreateRequest creates an order. When Items is empty the caller's
// session cart is snapshotted as the order's items and then cleared.
type OrderCreateRequest struct {
	CustomerName string           `json:"customer_name,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	Pending      bool             `json:"pending,omitempty"`
	Items        []OrderItemInput `json:"items,omitempty"`
}

type OrderItemsRequest struct {
	Items []OrderItemInput `json:"items"`
}

type OrderCancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

type ShiftOpenRequest struct {
	OpeningAmount decimal.Decimal `json:"opening_amount"`
}

type ShiftCloseRequest struct {
	ClosingAmount decimal.Decimal `json:"closing_amount"`
	Password      string          `json:"password"`
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
