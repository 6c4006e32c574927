package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"tillpoint/backend/internal/cart"
	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/store"
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

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(category_id,''), price, active, created_at, updated_at
		FROM products
		ORDER BY category_id, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.CategoryID, &p.Price, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		p.UpdatedAt = p.UpdatedAt.UTC()
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(category_id,''), price, active, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.CategoryID, &p.Price, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, store.ErrNotFound
		}
		return domain.Product{}, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, tax_rate
		FROM categories
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 16)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.TaxRate); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	var c domain.Category
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, tax_rate
		FROM categories
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.TaxRate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Category{}, store.ErrNotFound
		}
		return domain.Category{}, err
	}
	return c, nil
}

const orderColumns = `id, order_number, COALESCE(customer_name,''), status, user_id,
	subtotal, discount_amount, tax_amount, total_amount, COALESCE(notes,''),
	created_at, updated_at, completed_at, cancelled_at,
	COALESCE(cancelled_by,''), COALESCE(cancelled_reason,'')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var o domain.Order
	var completedAt, cancelledAt sql.NullTime
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.CustomerName,
		&o.Status,
		&o.UserID,
		&o.Subtotal,
		&o.DiscountAmount,
		&o.TaxAmount,
		&o.TotalAmount,
		&o.Notes,
		&o.CreatedAt,
		&o.UpdatedAt,
		&completedAt,
		&cancelledAt,
		&o.CancelledBy,
		&o.CancelledReason,
	)
	if err != nil {
		return domain.Order{}, err
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	if completedAt.Valid {
		at := completedAt.Time.UTC()
		o.CompletedAt = &at
	}
	if cancelledAt.Valid {
		at := cancelledAt.Time.UTC()
		o.CancelledAt = &at
	}
	return o, nil
}

func validateOrderItems(items []domain.OrderItem) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.ProductID == "" {
			return fmt.Errorf("%w: order item product id required", domain.ErrValidation)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: order item quantity must be at least 1", domain.ErrValidation)
		}
		if item.PriceAtOrder.IsNegative() {
			return fmt.Errorf("%w: order item price must not be negative", domain.ErrValidation)
		}
		if _, dup := seen[item.ProductID]; dup {
			return fmt.Errorf("%w: product %s appears twice in items", domain.ErrValidation, item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
	}
	return nil
}

// txRateMap loads tax-rate percents for the given products inside tx so the
// totals recompute sees the same catalog state the transaction commits
// against.
func txRateMap(ctx context.Context, tx *sql.Tx, productIDs []string) (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal, len(productIDs))
	if len(productIDs) == 0 {
		return rates, nil
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT p.id, COALESCE(c.tax_rate, 0)
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = ANY($1)
	`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var rate decimal.Decimal
		if err := rows.Scan(&id, &rate); err != nil {
			return nil, err
		}
		rates[id] = rate
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rates, nil
}

func uniqueProductIDs(items []domain.OrderItem) []string {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.ProductID == "" {
			continue
		}
		set[item.ProductID] = struct{}{}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) CreateOrder(ctx context.Context, order domain.Order, items []domain.OrderItem) (domain.Order, error) {
	if strings.TrimSpace(order.OrderNumber) == "" {
		return domain.Order{}, fmt.Errorf("%w: order number required", domain.ErrValidation)
	}
	if strings.TrimSpace(order.UserID) == "" {
		return domain.Order{}, fmt.Errorf("%w: order user required", domain.ErrValidation)
	}
	if err := validateOrderItems(items); err != nil {
		return domain.Order{}, err
	}

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.UpdatedAt = order.CreatedAt
	if order.Status == "" {
		order.Status = domain.OrderStatusActive
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return domain.Order{}, err
	}
	defer func() { _ = tx.Rollback() }()

	rates, err := txRateMap(ctx, tx, uniqueProductIDs(items))
	if err != nil {
		return domain.Order{}, err
	}
	totals := cart.OrderTotals(items, order.DiscountAmount, func(id string) decimal.Decimal { return rates[id] })
	order.Subtotal = totals.Subtotal
	order.DiscountAmount = totals.DiscountAmount
	order.TaxAmount = totals.TaxAmount
	order.TotalAmount = totals.TotalAmount

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, order_number, customer_name, status, user_id,
			subtotal, discount_amount, tax_amount, total_amount, notes,
			created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, order.ID, order.OrderNumber, nullIfEmpty(order.CustomerName), order.Status, order.UserID,
		order.Subtotal, order.DiscountAmount, order.TaxAmount, order.TotalAmount, nullIfEmpty(order.Notes),
		order.CreatedAt, order.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Order{}, store.ErrDuplicateOrderNumber
		}
		return domain.Order{}, err
	}

	for _, item := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, price_at_order, notes)
			VALUES ($1,$2,$3,$4,$5)
		`, order.ID, item.ProductID, item.Quantity, item.PriceAtOrder, nullIfEmpty(item.Notes))
		if err != nil {
			if isForeignKeyViolation(err) {
				return domain.Order{}, fmt.Errorf("product %s: %w", item.ProductID, store.ErrNotFound)
			}
			return domain.Order{}, err
		}
	}

	if err := commit(tx); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	order, err := scanOrder(s.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, store.ErrNotFound
		}
		return domain.Order{}, err
	}
	return order, nil
}

func (s *Store) ListOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, product_id, quantity, price_at_order, COALESCE(notes,'')
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0, 8)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.OrderID, &item.ProductID, &item.Quantity, &item.PriceAtOrder, &item.Notes); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListOrders(ctx context.Context, status string, limit int) ([]domain.Order, error) {
	if limit < 1 {
		limit = 100
	}
	status = strings.ToUpper(strings.TrimSpace(status))

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, limit)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) AddOrderItems(ctx context.Context, orderID string, add []domain.OrderItem, at time.Time) (domain.Order, error) {
	if len(add) == 0 {
		return domain.Order{}, fmt.Errorf("%w: no items to add", domain.ErrValidation)
	}
	if err := validateOrderItems(add); err != nil {
		return domain.Order{}, err
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return domain.Order{}, err
	}
	defer func() { _ = tx.Rollback() }()

	order, err := scanOrder(tx.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, store.ErrNotFound
		}
		return domain.Order{}, err
	}
	if order.Status != domain.OrderStatusActive {
		return domain.Order{}, fmt.Errorf("%w: items can only be added to an active order (order %s is %s)", domain.ErrInvalidState, order.OrderNumber, order.Status)
	}

	// Existing lines keep their price snapshot; only the quantity grows.
	for _, item := range add {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, price_at_order, notes)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (order_id, product_id)
			DO UPDATE SET quantity = order_items.quantity + EXCLUDED.quantity,
				notes = COALESCE(NULLIF(EXCLUDED.notes, ''), order_items.notes)
		`, orderID, item.ProductID, item.Quantity, item.PriceAtOrder, nullIfEmpty(item.Notes))
		if err != nil {
			if isForeignKeyViolation(err) {
				return domain.Order{}, fmt.Errorf("product %s: %w", item.ProductID, store.ErrNotFound)
			}
			return domain.Order{}, err
		}
	}

	items, err := txListOrderItems(ctx, tx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	rates, err := txRateMap(ctx, tx, uniqueProductIDs(items))
	if err != nil {
		return domain.Order{}, err
	}
	totals := cart.OrderTotals(items, order.DiscountAmount, func(id string) decimal.Decimal { return rates[id] })

	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET subtotal = $2, discount_amount = $3, tax_amount = $4, total_amount = $5, updated_at = $6
		WHERE id = $1
	`, orderID, totals.Subtotal, totals.DiscountAmount, totals.TaxAmount, totals.TotalAmount, at)
	if err != nil {
		return domain.Order{}, err
	}

	if err := commit(tx); err != nil {
		return domain.Order{}, err
	}

	order.Subtotal = totals.Subtotal
	order.DiscountAmount = totals.DiscountAmount
	order.TaxAmount = totals.TaxAmount
	order.TotalAmount = totals.TotalAmount
	order.UpdatedAt = at
	return order, nil
}

func txListOrderItems(ctx context.Context, tx *sql.Tx, orderID string) ([]domain.OrderItem, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT order_id, product_id, quantity, price_at_order, COALESCE(notes,'')
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_id
	`, orderID)
	if err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, 0, 8)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.OrderID, &item.ProductID, &item.Quantity, &item.PriceAtOrder, &item.Notes); err != nil {
			_ = rows.Close()
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()
	return items, nil
}

func (s *Store) CompleteOrder(ctx context.Context, id string, at time.Time) (domain.Order, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	// The guarded UPDATE is the atomic check-then-act: only an ACTIVE row
	// transitions. No row means the order is missing or already terminal.
	order, err := scanOrder(s.db.QueryRowContext(ctx, `
		UPDATE orders
		SET status = $2, completed_at = $3, updated_at = $3
		WHERE id = $1 AND status = $4
		RETURNING `+orderColumns+`
	`, id, domain.OrderStatusCompleted, at, domain.OrderStatusActive))
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, err
	}

	current, getErr := s.GetOrder(ctx, id)
	if getErr != nil {
		return domain.Order{}, getErr
	}
	// Completing a completed order is a no-op, not an error.
	if current.Status == domain.OrderStatusCompleted {
		return current, nil
	}
	return domain.Order{}, fmt.Errorf("%w: only active orders can be completed (order %s is %s)", domain.ErrInvalidState, current.OrderNumber, current.Status)
}

func (s *Store) CompleteOrderWithItems(ctx context.Context, id string, items []domain.OrderItem, discountAmount decimal.Decimal, at time.Time) (domain.Order, error) {
	if len(items) == 0 {
		return domain.Order{}, fmt.Errorf("%w: cannot complete an order with no items", domain.ErrValidation)
	}
	if err := validateOrderItems(items); err != nil {
		return domain.Order{}, err
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return domain.Order{}, err
	}
	defer func() { _ = tx.Rollback() }()

	order, err := scanOrder(tx.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, store.ErrNotFound
		}
		return domain.Order{}, err
	}
	if order.Status == domain.OrderStatusCompleted {
		return domain.Order{}, fmt.Errorf("%w: order %s was already completed", domain.ErrConcurrency, order.OrderNumber)
	}
	if order.Status != domain.OrderStatusActive {
		return domain.Order{}, fmt.Errorf("%w: only active orders can be checked out (order %s is %s)", domain.ErrInvalidState, order.OrderNumber, order.Status)
	}

	// The cart contents win: replace the item set wholesale.
	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return domain.Order{}, err
	}
	for _, item := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, price_at_order, notes)
			VALUES ($1,$2,$3,$4,$5)
		`, id, item.ProductID, item.Quantity, item.PriceAtOrder, nullIfEmpty(item.Notes))
		if err != nil {
			if isForeignKeyViolation(err) {
				return domain.Order{}, fmt.Errorf("product %s: %w", item.ProductID, store.ErrNotFound)
			}
			return domain.Order{}, err
		}
	}

	rates, err := txRateMap(ctx, tx, uniqueProductIDs(items))
	if err != nil {
		return domain.Order{}, err
	}
	totals := cart.OrderTotals(items, discountAmount, func(pid string) decimal.Decimal { return rates[pid] })

	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, subtotal = $3, discount_amount = $4, tax_amount = $5, total_amount = $6,
			completed_at = $7, updated_at = $7
		WHERE id = $1
	`, id, domain.OrderStatusCompleted, totals.Subtotal, totals.DiscountAmount, totals.TaxAmount, totals.TotalAmount, at)
	if err != nil {
		return domain.Order{}, err
	}

	if err := commit(tx); err != nil {
		return domain.Order{}, err
	}

	order.Status = domain.OrderStatusCompleted
	order.Subtotal = totals.Subtotal
	order.DiscountAmount = totals.DiscountAmount
	order.TaxAmount = totals.TaxAmount
	order.TotalAmount = totals.TotalAmount
	order.CompletedAt = &at
	order.UpdatedAt = at
	return order, nil
}

func (s *Store) CancelOrder(ctx context.Context, id, cancelledBy, reason string, at time.Time) (domain.Order, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	order, err := scanOrder(s.db.QueryRowContext(ctx, `
		UPDATE orders
		SET status = $2, cancelled_at = $3, cancelled_by = $4, cancelled_reason = $5, updated_at = $3
		WHERE id = $1 AND status IN ($6, $7)
		RETURNING `+orderColumns+`
	`, id, domain.OrderStatusCancelled, at, nullIfEmpty(cancelledBy), nullIfEmpty(reason),
		domain.OrderStatusActive, domain.OrderStatusPending))
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, err
	}

	current, getErr := s.GetOrder(ctx, id)
	if getErr != nil {
		return domain.Order{}, getErr
	}
	if current.Status == domain.OrderStatusCompleted {
		return domain.Order{}, fmt.Errorf("%w: completed order %s cannot be cancelled", domain.ErrInvalidState, current.OrderNumber)
	}
	return domain.Order{}, fmt.Errorf("%w: order %s is already cancelled", domain.ErrInvalidState, current.OrderNumber)
}

func (s *Store) ListStaleActiveOrders(ctx context.Context, olderThan time.Time, limit int) ([]domain.Order, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC, id ASC
		LIMIT $3
	`, domain.OrderStatusActive, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, limit)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale, items []domain.SaleItem) (domain.Sale, error) {
	if len(items) == 0 {
		return domain.Sale{}, fmt.Errorf("%w: sale requires at least one item", domain.ErrValidation)
	}
	if sale.TotalAmount.IsNegative() {
		return domain.Sale{}, fmt.Errorf("%w: sale total must not be negative", domain.ErrValidation)
	}
	for _, item := range items {
		if item.Quantity < 1 {
			return domain.Sale{}, fmt.Errorf("%w: sale item quantity must be at least 1", domain.ErrValidation)
		}
		if item.PriceAtSale.IsNegative() {
			return domain.Sale{}, fmt.Errorf("%w: sale item price must not be negative", domain.ErrValidation)
		}
	}

	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	if sale.Timestamp.IsZero() {
		sale.Timestamp = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return domain.Sale{}, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, "timestamp", total_amount, user_id)
		VALUES ($1,$2,$3,$4)
	`, sale.ID, sale.Timestamp, sale.TotalAmount, sale.UserID)
	if err != nil {
		return domain.Sale{}, err
	}

	for _, item := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, product_id, quantity, price_at_sale)
			VALUES ($1,$2,$3,$4)
		`, sale.ID, item.ProductID, item.Quantity, item.PriceAtSale)
		if err != nil {
			if isForeignKeyViolation(err) {
				return domain.Sale{}, fmt.Errorf("product %s: %w", item.ProductID, store.ErrNotFound)
			}
			return domain.Sale{}, err
		}
	}

	if err := commit(tx); err != nil {
		return domain.Sale{}, err
	}
	return sale, nil
}

const shiftColumns = `id, user_id, open_time, close_time, opening_amount, closing_amount, status`

func scanShift(row rowScanner) (domain.Shift, error) {
	var sh domain.Shift
	var closeTime sql.NullTime
	var closingAmount decimal.NullDecimal
	err := row.Scan(&sh.ID, &sh.UserID, &sh.OpenTime, &closeTime, &sh.OpeningAmount, &closingAmount, &sh.Status)
	if err != nil {
		return domain.Shift{}, err
	}
	sh.OpenTime = sh.OpenTime.UTC()
	if closeTime.Valid {
		at := closeTime.Time.UTC()
		sh.CloseTime = &at
	}
	if closingAmount.Valid {
		amount := closingAmount.Decimal
		sh.ClosingAmount = &amount
	}
	return sh, nil
}

func (s *Store) OpenShift(ctx context.Context, shift domain.Shift) (domain.Shift, *domain.Shift, error) {
	if strings.TrimSpace(shift.UserID) == "" {
		return domain.Shift{}, nil, fmt.Errorf("%w: shift user required", domain.ErrValidation)
	}
	if shift.OpeningAmount.IsNegative() {
		return domain.Shift{}, nil, fmt.Errorf("%w: opening amount must not be negative", domain.ErrValidation)
	}

	if shift.ID == "" {
		shift.ID = uuid.NewString()
	}
	if shift.OpenTime.IsZero() {
		shift.OpenTime = time.Now().UTC()
	}
	shift.Status = domain.ShiftStatusOpen
	shift.CloseTime = nil
	shift.ClosingAmount = nil

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return domain.Shift{}, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// An already-open shift for the same user is closed first, its closing
	// amount approximated by the new shift's opening float.
	var superseded *domain.Shift
	prev, err := scanShift(tx.QueryRowContext(ctx, `
		UPDATE shifts
		SET status = $2, closing_amount = $3, close_time = $4
		WHERE user_id = $1 AND status = $5
		RETURNING `+shiftColumns+`
	`, shift.UserID, domain.ShiftStatusClosed, shift.OpeningAmount, shift.OpenTime, domain.ShiftStatusOpen))
	if err == nil {
		superseded = &prev
	} else if !errors.Is(err, sql.ErrNoRows) {
		return domain.Shift{}, nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO shifts (id, user_id, open_time, close_time, opening_amount, closing_amount, status)
		VALUES ($1,$2,$3,NULL,$4,NULL,$5)
	`, shift.ID, shift.UserID, shift.OpenTime, shift.OpeningAmount, shift.Status)
	if err != nil {
		// uq_shifts_user_open: another request opened a shift for this user
		// between our supersede pass and the insert.
		if isUniqueViolation(err) {
			return domain.Shift{}, nil, fmt.Errorf("%w: a shift was opened concurrently for user %s", domain.ErrConcurrency, shift.UserID)
		}
		return domain.Shift{}, nil, err
	}

	if err := commit(tx); err != nil {
		return domain.Shift{}, nil, err
	}
	return shift, superseded, nil
}

func (s *Store) CloseShift(ctx context.Context, userID string, closingAmount decimal.Decimal, at time.Time) (domain.Shift, error) {
	if closingAmount.IsNegative() {
		return domain.Shift{}, fmt.Errorf("%w: closing amount must not be negative", domain.ErrValidation)
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	shift, err := scanShift(s.db.QueryRowContext(ctx, `
		UPDATE shifts
		SET status = $2, closing_amount = $3, close_time = $4
		WHERE user_id = $1 AND status = $5
		RETURNING `+shiftColumns+`
	`, userID, domain.ShiftStatusClosed, closingAmount, at, domain.ShiftStatusOpen))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Shift{}, fmt.Errorf("%w: no open shift for user %s", domain.ErrInvalidState, userID)
		}
		return domain.Shift{}, err
	}
	return shift, nil
}

func (s *Store) GetOpenShift(ctx context.Context, userID string) (domain.Shift, error) {
	shift, err := scanShift(s.db.QueryRowContext(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE user_id = $1 AND status = $2
		ORDER BY open_time DESC
		LIMIT 1
	`, userID, domain.ShiftStatusOpen))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Shift{}, store.ErrNotFound
		}
		return domain.Shift{}, err
	}
	return shift, nil
}

func (s *Store) ForceCloseOpenShifts(ctx context.Context, at time.Time) ([]domain.Shift, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	rows, err := s.db.QueryContext(ctx, `
		UPDATE shifts
		SET status = $1, closing_amount = opening_amount, close_time = $2
		WHERE status = $3
		RETURNING `+shiftColumns+`
	`, domain.ShiftStatusClosed, at, domain.ShiftStatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	closed := make([]domain.Shift, 0, 4)
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		closed = append(closed, shift)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return closed, nil
}

func (s *Store) GetDailyReport(ctx context.Context, dayStart, dayEnd time.Time) (domain.DailyReport, error) {
	report := domain.DailyReport{
		TotalAmount:        decimal.Zero,
		AverageTransaction: decimal.Zero,
		ProductBreakdown:   make([]domain.ProductSales, 0, 16),
		ShiftBreakdown:     make([]domain.ShiftSummary, 0, 4),
		DataSource:         store.ReportDataSource,
	}

	var orderCount int64
	var orderTotal decimal.Decimal
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM orders
		WHERE status = $1 AND completed_at >= $2 AND completed_at < $3
			AND order_number NOT LIKE 'SALE-%'
	`, domain.OrderStatusCompleted, dayStart, dayEnd).Scan(&orderCount, &orderTotal)
	if err != nil {
		return domain.DailyReport{}, err
	}

	var saleCount int64
	var saleTotal decimal.Decimal
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM sales
		WHERE "timestamp" >= $1 AND "timestamp" < $2
	`, dayStart, dayEnd).Scan(&saleCount, &saleTotal)
	if err != nil {
		return domain.DailyReport{}, err
	}

	report.TotalTransactions = int(orderCount + saleCount)
	report.TotalAmount = orderTotal.Add(saleTotal)
	if report.TotalTransactions > 0 {
		report.AverageTransaction = report.TotalAmount.DivRound(decimal.NewFromInt(int64(report.TotalTransactions)), 2)
	}

	productRows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(p.name, t.product_id), t.unit_price,
			SUM(t.quantity), SUM(t.quantity * t.unit_price)
		FROM (
			SELECT oi.product_id, oi.price_at_order AS unit_price, oi.quantity
			FROM order_items oi
			JOIN orders o ON o.id = oi.order_id
			WHERE o.status = $1 AND o.completed_at >= $2 AND o.completed_at < $3
				AND o.order_number NOT LIKE 'SALE-%'
			UNION ALL
			SELECT si.product_id, si.price_at_sale, si.quantity
			FROM sale_items si
			JOIN sales sa ON sa.id = si.sale_id
			WHERE sa."timestamp" >= $2 AND sa."timestamp" < $3
		) t
		LEFT JOIN products p ON p.id = t.product_id
		GROUP BY COALESCE(p.name, t.product_id), t.unit_price
		ORDER BY SUM(t.quantity * t.unit_price) DESC, COALESCE(p.name, t.product_id) ASC, t.unit_price ASC
	`, domain.OrderStatusCompleted, dayStart, dayEnd)
	if err != nil {
		return domain.DailyReport{}, err
	}
	defer productRows.Close()

	for productRows.Next() {
		var entry domain.ProductSales
		var qty int64
		if err := productRows.Scan(&entry.ProductName, &entry.UnitPrice, &qty, &entry.TotalAmount); err != nil {
			return domain.DailyReport{}, err
		}
		entry.QuantitySold = int(qty)
		report.ProductBreakdown = append(report.ProductBreakdown, entry)
	}
	if err := productRows.Err(); err != nil {
		return domain.DailyReport{}, err
	}

	shiftRows, err := s.db.QueryContext(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE open_time < $1 AND (close_time IS NULL OR close_time > $2)
		ORDER BY open_time ASC, id ASC
	`, dayEnd, dayStart)
	if err != nil {
		return domain.DailyReport{}, err
	}
	shifts := make([]domain.Shift, 0, 8)
	for shiftRows.Next() {
		shift, err := scanShift(shiftRows)
		if err != nil {
			_ = shiftRows.Close()
			return domain.DailyReport{}, err
		}
		shifts = append(shifts, shift)
	}
	if err := shiftRows.Err(); err != nil {
		_ = shiftRows.Close()
		return domain.DailyReport{}, err
	}
	_ = shiftRows.Close()

	now := time.Now().UTC()
	for _, shift := range shifts {
		durationEnd := now
		attributionEnd := dayEnd
		if shift.CloseTime != nil {
			durationEnd = *shift.CloseTime
			attributionEnd = *shift.CloseTime
		}
		duration := int64(durationEnd.Sub(shift.OpenTime).Minutes())
		if duration < 0 {
			duration = 0
		}

		attrStart := shift.OpenTime
		if attrStart.Before(dayStart) {
			attrStart = dayStart
		}
		if attributionEnd.After(dayEnd) {
			attributionEnd = dayEnd
		}

		var orderAttr decimal.Decimal
		err := s.db.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(total_amount), 0)
			FROM orders
			WHERE user_id = $1 AND status = $2 AND completed_at >= $3 AND completed_at < $4
				AND order_number NOT LIKE 'SALE-%'
		`, shift.UserID, domain.OrderStatusCompleted, attrStart, attributionEnd).Scan(&orderAttr)
		if err != nil {
			return domain.DailyReport{}, err
		}
		var saleAttr decimal.Decimal
		err = s.db.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(total_amount), 0)
			FROM sales
			WHERE user_id = $1 AND "timestamp" >= $2 AND "timestamp" < $3
		`, shift.UserID, attrStart, attributionEnd).Scan(&saleAttr)
		if err != nil {
			return domain.DailyReport{}, err
		}

		report.ShiftBreakdown = append(report.ShiftBreakdown, domain.ShiftSummary{
			UserID:               shift.UserID,
			OpeningAmount:        shift.OpeningAmount,
			ClosingAmount:        shift.ClosingAmount,
			OpenTime:             shift.OpenTime,
			CloseTime:            shift.CloseTime,
			DurationMinutes:      duration,
			Status:               shift.Status,
			AttributedSalesTotal: orderAttr.Add(saleAttr),
		})
	}

	return report, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return fmt.Errorf("%w: username and password required", domain.ErrValidation)
	}
	if user.Role == "" {
		user.Role = "cashier"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username %s already exists", domain.ErrValidation, user.Username)
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username ASC
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

func (s *Store) GetUserByUsername(ctx context.Context, username string) (domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(username))).Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.UserAccount{}, store.ErrNotFound
		}
		return domain.UserAccount{}, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: username and password required", domain.ErrValidation)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET password = $2
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

func (s *Store) AppendAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, nullIfEmpty(entry.EntityID), entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 200
	}

	query := `
		SELECT id, actor_username, actor_role, action, entity_type, COALESCE(entity_id,''), detail, created_at
		FROM audit_logs
	`
	args := []any{limit}
	if date != "" {
		query += ` WHERE DATE(created_at AT TIME ZONE 'UTC') = $2::date`
		args = append(args, date)
	}
	query += `
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
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

// commit wraps tx.Commit so serialization failures surface as concurrency
// errors the service retries, not opaque driver errors.
func commit(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		if isSerializationFailure(err) {
			return fmt.Errorf("%w: transaction serialization failure", domain.ErrConcurrency)
		}
		return err
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

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
