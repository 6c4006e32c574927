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

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"tillpoint/backend/internal/cart"
	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/ordnum"
	"tillpoint/backend/internal/store"
)

type Store struct {
	mu                sync.RWMutex
	categoriesByID    map[string]domain.Category
	productsByID      map[string]domain.Product
	ordersByID        map[string]domain.Order
	orderIDByNumber   map[string]string
	itemsByOrderID    map[string][]domain.OrderItem
	salesByID         map[string]domain.Sale
	saleItemsBySaleID map[string][]domain.SaleItem
	shiftsByID        map[string]domain.Shift
	openShiftByUser   map[string]string
	usersByUsername   map[string]domain.UserAccount
	auditLogs         []domain.AuditLog
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
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

func NewSeeded() *Store {
	now := time.Now().UTC()

	categories := []domain.Category{
		{ID: "cat-meals", Name: "Prepared Meals", TaxRate: decimal.RequireFromString("14")},
		{ID: "cat-drinks", Name: "Drinks", TaxRate: decimal.RequireFromString("10")},
		{ID: "cat-retail", Name: "Packaged Retail", TaxRate: decimal.Zero},
	}

	products := []domain.Product{
		{ID: "prod-espresso", Name: "Espresso", CategoryID: "cat-drinks", Price: decimal.RequireFromString("2.60"), Active: true},
		{ID: "prod-latte", Name: "Latte", CategoryID: "cat-drinks", Price: decimal.RequireFromString("3.90"), Active: true},
		{ID: "prod-orange-juice", Name: "Orange Juice", CategoryID: "cat-drinks", Price: decimal.RequireFromString("3.50"), Active: true},
		{ID: "prod-breakfast-roll", Name: "Breakfast Roll", CategoryID: "cat-meals", Price: decimal.RequireFromString("4.80"), Active: true},
		{ID: "prod-chicken-wrap", Name: "Chicken Wrap", CategoryID: "cat-meals", Price: decimal.RequireFromString("7.40"), Active: true},
		{ID: "prod-soup-of-day", Name: "Soup of the Day", CategoryID: "cat-meals", Price: decimal.RequireFromString("5.20"), Active: true},
		{ID: "prod-house-blend", Name: "House Blend Beans 250g", CategoryID: "cat-retail", Price: decimal.RequireFromString("12.80"), Active: true},
		{ID: "prod-travel-mug", Name: "Travel Mug", CategoryID: "cat-retail", Price: decimal.RequireFromString("9.60"), Active: true},
		{ID: "prod-chocolate-bar", Name: "Chocolate Bar", CategoryID: "cat-retail", Price: decimal.RequireFromString("2.40"), Active: true},
		{ID: "prod-day-old-pastry", Name: "Day-Old Pastry", CategoryID: "cat-meals", Price: decimal.RequireFromString("1.00"), Active: false},
	}

	categoryMap := make(map[string]domain.Category, len(categories))
	for _, c := range categories {
		categoryMap[c.ID] = c
	}
	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		p.CreatedAt = now
		p.UpdatedAt = now
		productMap[p.ID] = p
	}

	return &Store{
		categoriesByID:    categoryMap,
		productsByID:      productMap,
		ordersByID:        make(map[string]domain.Order),
		orderIDByNumber:   make(map[string]string),
		itemsByOrderID:    make(map[string][]domain.OrderItem),
		salesByID:         make(map[string]domain.Sale),
		saleItemsBySaleID: make(map[string][]domain.SaleItem),
		shiftsByID:        make(map[string]domain.Shift),
		openShiftByUser:   make(map[string]string),
		usersByUsername:   seedUsers(),
		auditLogs:         make([]domain.AuditLog, 0, 128),
	}
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.productsByID))
	for _, p := range s.productsByID {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.CategoryID == b.CategoryID {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.CategoryID, b.CategoryID)
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.productsByID[id]
	if !exists {
		return domain.Product{}, store.ErrNotFound
	}
	return product, nil
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categoriesByID))
	for _, c := range s.categoriesByID {
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int {
		return cmpString(a.Name, b.Name)
	})
	return categories, nil
}

func (s *Store) GetCategory(_ context.Context, id string) (domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, exists := s.categoriesByID[id]
	if !exists {
		return domain.Category{}, store.ErrNotFound
	}
	return category, nil
}

// rateFor resolves a product's tax-rate percent. Callers hold s.mu.
func (s *Store) rateFor(productID string) decimal.Decimal {
	product, ok := s.productsByID[productID]
	if !ok || product.CategoryID == "" {
		return decimal.Zero
	}
	category, ok := s.categoriesByID[product.CategoryID]
	if !ok {
		return decimal.Zero
	}
	return category.TaxRate
}

// applyTotals recomputes an order's stored money columns from its current
// items. Callers hold s.mu.
func (s *Store) applyTotals(order *domain.Order, items []domain.OrderItem) {
	totals := cart.OrderTotals(items, order.DiscountAmount, s.rateFor)
	order.Subtotal = totals.Subtotal
	order.DiscountAmount = totals.DiscountAmount
	order.TaxAmount = totals.TaxAmount
	order.TotalAmount = totals.TotalAmount
}

func (s *Store) validateOrderItems(items []domain.OrderItem) error {
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
		if _, exists := s.productsByID[item.ProductID]; !exists {
			return fmt.Errorf("product %s: %w", item.ProductID, store.ErrNotFound)
		}
	}
	return nil
}

func (s *Store) CreateOrder(_ context.Context, order domain.Order, items []domain.OrderItem) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(order.OrderNumber) == "" {
		return domain.Order{}, fmt.Errorf("%w: order number required", domain.ErrValidation)
	}
	if strings.TrimSpace(order.UserID) == "" {
		return domain.Order{}, fmt.Errorf("%w: order user required", domain.ErrValidation)
	}
	if _, taken := s.orderIDByNumber[order.OrderNumber]; taken {
		return domain.Order{}, store.ErrDuplicateOrderNumber
	}
	if err := s.validateOrderItems(items); err != nil {
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

	stored := make([]domain.OrderItem, len(items))
	copy(stored, items)
	for i := range stored {
		stored[i].OrderID = order.ID
	}
	s.applyTotals(&order, stored)

	s.ordersByID[order.ID] = order
	s.orderIDByNumber[order.OrderNumber] = order.ID
	s.itemsByOrderID[order.ID] = stored
	return cloneOrder(order), nil
}

func (s *Store) GetOrder(_ context.Context, id string) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, exists := s.ordersByID[id]
	if !exists {
		return domain.Order{}, store.ErrNotFound
	}
	return cloneOrder(order), nil
}

func (s *Store) ListOrderItems(_ context.Context, orderID string) ([]domain.OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.ordersByID[orderID]; !exists {
		return nil, store.ErrNotFound
	}
	items := s.itemsByOrderID[orderID]
	result := make([]domain.OrderItem, len(items))
	copy(result, items)
	slices.SortFunc(result, func(a, b domain.OrderItem) int {
		return cmpString(a.ProductID, b.ProductID)
	})
	return result, nil
}

func (s *Store) ListOrders(_ context.Context, status string, limit int) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status = strings.ToUpper(strings.TrimSpace(status))
	result := make([]domain.Order, 0, len(s.ordersByID))
	for _, order := range s.ordersByID {
		if status != "" && order.Status != status {
			continue
		}
		result = append(result, cloneOrder(order))
	}
	slices.SortFunc(result, func(a, b domain.Order) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) AddOrderItems(_ context.Context, orderID string, add []domain.OrderItem, at time.Time) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, exists := s.ordersByID[orderID]
	if !exists {
		return domain.Order{}, store.ErrNotFound
	}
	if order.Status != domain.OrderStatusActive {
		return domain.Order{}, fmt.Errorf("%w: items can only be added to an active order (order %s is %s)", domain.ErrInvalidState, order.OrderNumber, order.Status)
	}
	if len(add) == 0 {
		return domain.Order{}, fmt.Errorf("%w: no items to add", domain.ErrValidation)
	}
	if err := s.validateOrderItems(add); err != nil {
		return domain.Order{}, err
	}

	items := s.itemsByOrderID[orderID]
	for _, item := range add {
		item.OrderID = orderID
		merged := false
		for i := range items {
			if items[i].ProductID == item.ProductID {
				items[i].Quantity += item.Quantity
				if item.Notes != "" {
					items[i].Notes = item.Notes
				}
				merged = true
				break
			}
		}
		if !merged {
			items = append(items, item)
		}
	}

	if at.IsZero() {
		at = time.Now().UTC()
	}
	order.UpdatedAt = at
	s.applyTotals(&order, items)
	s.ordersByID[orderID] = order
	s.itemsByOrderID[orderID] = items
	return cloneOrder(order), nil
}

func (s *Store) CompleteOrder(_ context.Context, id string, at time.Time) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, exists := s.ordersByID[id]
	if !exists {
		return domain.Order{}, store.ErrNotFound
	}
	// Completing a completed order is a no-op, not an error.
	if order.Status == domain.OrderStatusCompleted {
		return cloneOrder(order), nil
	}
	if order.Status != domain.OrderStatusActive {
		return domain.Order{}, fmt.Errorf("%w: only active orders can be completed (order %s is %s)", domain.ErrInvalidState, order.OrderNumber, order.Status)
	}

	if at.IsZero() {
		at = time.Now().UTC()
	}
	order.Status = domain.OrderStatusCompleted
	order.CompletedAt = &at
	order.UpdatedAt = at
	s.ordersByID[id] = order
	return cloneOrder(order), nil
}

func (s *Store) CompleteOrderWithItems(_ context.Context, id string, items []domain.OrderItem, discountAmount decimal.Decimal, at time.Time) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, exists := s.ordersByID[id]
	if !exists {
		return domain.Order{}, store.ErrNotFound
	}
	if order.Status == domain.OrderStatusCompleted {
		return domain.Order{}, fmt.Errorf("%w: order %s was already completed", domain.ErrConcurrency, order.OrderNumber)
	}
	if order.Status != domain.OrderStatusActive {
		return domain.Order{}, fmt.Errorf("%w: only active orders can be checked out (order %s is %s)", domain.ErrInvalidState, order.OrderNumber, order.Status)
	}
	if len(items) == 0 {
		return domain.Order{}, fmt.Errorf("%w: cannot complete an order with no items", domain.ErrValidation)
	}
	if err := s.validateOrderItems(items); err != nil {
		return domain.Order{}, err
	}

	stored := make([]domain.OrderItem, len(items))
	copy(stored, items)
	for i := range stored {
		stored[i].OrderID = id
	}

	if at.IsZero() {
		at = time.Now().UTC()
	}
	order.DiscountAmount = discountAmount
	s.applyTotals(&order, stored)
	order.Status = domain.OrderStatusCompleted
	order.CompletedAt = &at
	order.UpdatedAt = at
	s.ordersByID[id] = order
	s.itemsByOrderID[id] = stored
	return cloneOrder(order), nil
}

func (s *Store) CancelOrder(_ context.Context, id, cancelledBy, reason string, at time.Time) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, exists := s.ordersByID[id]
	if !exists {
		return domain.Order{}, store.ErrNotFound
	}
	if order.Status == domain.OrderStatusCompleted {
		return domain.Order{}, fmt.Errorf("%w: completed order %s cannot be cancelled", domain.ErrInvalidState, order.OrderNumber)
	}
	if order.Status == domain.OrderStatusCancelled {
		return domain.Order{}, fmt.Errorf("%w: order %s is already cancelled", domain.ErrInvalidState, order.OrderNumber)
	}

	if at.IsZero() {
		at = time.Now().UTC()
	}
	order.Status = domain.OrderStatusCancelled
	order.CancelledAt = &at
	order.CancelledBy = cancelledBy
	order.CancelledReason = reason
	order.UpdatedAt = at
	s.ordersByID[id] = order
	return cloneOrder(order), nil
}

func (s *Store) ListStaleActiveOrders(_ context.Context, olderThan time.Time, limit int) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Order, 0, 16)
	for _, order := range s.ordersByID {
		if order.Status != domain.OrderStatusActive {
			continue
		}
		if !order.CreatedAt.Before(olderThan) {
			continue
		}
		result = append(result, cloneOrder(order))
	}
	slices.SortFunc(result, func(a, b domain.Order) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale, items []domain.SaleItem) (domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

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
		if _, exists := s.productsByID[item.ProductID]; !exists {
			return domain.Sale{}, fmt.Errorf("product %s: %w", item.ProductID, store.ErrNotFound)
		}
	}

	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	if sale.Timestamp.IsZero() {
		sale.Timestamp = time.Now().UTC()
	}

	stored := make([]domain.SaleItem, len(items))
	copy(stored, items)
	for i := range stored {
		stored[i].SaleID = sale.ID
	}
	s.salesByID[sale.ID] = sale
	s.saleItemsBySaleID[sale.ID] = stored
	return sale, nil
}

func (s *Store) OpenShift(_ context.Context, shift domain.Shift) (domain.Shift, *domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

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

	// An already-open shift for the same user is closed first, its closing
	// amount approximated by the new shift's opening float.
	var superseded *domain.Shift
	if prevID, exists := s.openShiftByUser[shift.UserID]; exists {
		prev := s.shiftsByID[prevID]
		closing := shift.OpeningAmount
		closeAt := shift.OpenTime
		prev.Status = domain.ShiftStatusClosed
		prev.ClosingAmount = &closing
		prev.CloseTime = &closeAt
		s.shiftsByID[prevID] = prev
		closed := cloneShift(prev)
		superseded = &closed
	}

	s.shiftsByID[shift.ID] = shift
	s.openShiftByUser[shift.UserID] = shift.ID
	opened := cloneShift(shift)
	return opened, superseded, nil
}

func (s *Store) CloseShift(_ context.Context, userID string, closingAmount decimal.Decimal, at time.Time) (domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if closingAmount.IsNegative() {
		return domain.Shift{}, fmt.Errorf("%w: closing amount must not be negative", domain.ErrValidation)
	}
	shiftID, exists := s.openShiftByUser[userID]
	if !exists {
		return domain.Shift{}, fmt.Errorf("%w: no open shift for user %s", domain.ErrInvalidState, userID)
	}

	if at.IsZero() {
		at = time.Now().UTC()
	}
	shift := s.shiftsByID[shiftID]
	shift.Status = domain.ShiftStatusClosed
	shift.ClosingAmount = &closingAmount
	shift.CloseTime = &at
	s.shiftsByID[shiftID] = shift
	delete(s.openShiftByUser, userID)
	return cloneShift(shift), nil
}

func (s *Store) GetOpenShift(_ context.Context, userID string) (domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shiftID, exists := s.openShiftByUser[userID]
	if !exists {
		return domain.Shift{}, store.ErrNotFound
	}
	return cloneShift(s.shiftsByID[shiftID]), nil
}

func (s *Store) ForceCloseOpenShifts(_ context.Context, at time.Time) ([]domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if at.IsZero() {
		at = time.Now().UTC()
	}

	users := make([]string, 0, len(s.openShiftByUser))
	for user := range s.openShiftByUser {
		users = append(users, user)
	}
	slices.Sort(users)

	closed := make([]domain.Shift, 0, len(users))
	for _, user := range users {
		shiftID := s.openShiftByUser[user]
		shift := s.shiftsByID[shiftID]
		closing := shift.OpeningAmount
		closeAt := at
		shift.Status = domain.ShiftStatusClosed
		shift.ClosingAmount = &closing
		shift.CloseTime = &closeAt
		s.shiftsByID[shiftID] = shift
		delete(s.openShiftByUser, user)
		closed = append(closed, cloneShift(shift))
	}
	return closed, nil
}

func (s *Store) GetDailyReport(_ context.Context, dayStart, dayEnd time.Time) (domain.DailyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := domain.DailyReport{
		TotalAmount:        decimal.Zero,
		AverageTransaction: decimal.Zero,
		ProductBreakdown:   make([]domain.ProductSales, 0, 16),
		ShiftBreakdown:     make([]domain.ShiftSummary, 0, 4),
		DataSource:         store.ReportDataSource,
	}

	inWindow := func(at time.Time) bool {
		return !at.Before(dayStart) && at.Before(dayEnd)
	}

	type productKey struct {
		productID string
		unitPrice string
	}
	breakdown := map[productKey]*domain.ProductSales{}
	accumulate := func(productID string, qty int, unitPrice decimal.Decimal) {
		key := productKey{productID: productID, unitPrice: unitPrice.StringFixed(2)}
		entry := breakdown[key]
		if entry == nil {
			name := productID
			if product, ok := s.productsByID[productID]; ok {
				name = product.Name
			}
			entry = &domain.ProductSales{
				ProductName: name,
				UnitPrice:   unitPrice,
				TotalAmount: decimal.Zero,
			}
			breakdown[key] = entry
		}
		entry.QuantitySold += qty
		entry.TotalAmount = entry.TotalAmount.Add(unitPrice.Mul(decimal.NewFromInt(int64(qty))))
	}

	var dayOrders []domain.Order
	for _, order := range s.ordersByID {
		if order.Status != domain.OrderStatusCompleted || order.CompletedAt == nil {
			continue
		}
		if !inWindow(*order.CompletedAt) {
			continue
		}
		if ordnum.IsSynthetic(order.OrderNumber) {
			continue
		}
		dayOrders = append(dayOrders, order)
		report.TotalTransactions++
		report.TotalAmount = report.TotalAmount.Add(order.TotalAmount)
		for _, item := range s.itemsByOrderID[order.ID] {
			accumulate(item.ProductID, item.Quantity, item.PriceAtOrder)
		}
	}

	var daySales []domain.Sale
	for _, sale := range s.salesByID {
		if !inWindow(sale.Timestamp) {
			continue
		}
		daySales = append(daySales, sale)
		report.TotalTransactions++
		report.TotalAmount = report.TotalAmount.Add(sale.TotalAmount)
		for _, item := range s.saleItemsBySaleID[sale.ID] {
			accumulate(item.ProductID, item.Quantity, item.PriceAtSale)
		}
	}

	if report.TotalTransactions > 0 {
		report.AverageTransaction = report.TotalAmount.DivRound(decimal.NewFromInt(int64(report.TotalTransactions)), 2)
	}

	for _, entry := range breakdown {
		report.ProductBreakdown = append(report.ProductBreakdown, *entry)
	}
	slices.SortFunc(report.ProductBreakdown, func(a, b domain.ProductSales) int {
		if !a.TotalAmount.Equal(b.TotalAmount) {
			return b.TotalAmount.Cmp(a.TotalAmount)
		}
		if a.ProductName != b.ProductName {
			return cmpString(a.ProductName, b.ProductName)
		}
		return a.UnitPrice.Cmp(b.UnitPrice)
	})

	now := time.Now().UTC()
	for _, shift := range s.shiftsByID {
		if !shift.OpenTime.Before(dayEnd) {
			continue
		}
		if shift.CloseTime != nil && !shift.CloseTime.After(dayStart) {
			continue
		}

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

		attributed := decimal.Zero
		for _, order := range dayOrders {
			if order.UserID != shift.UserID || order.CompletedAt == nil {
				continue
			}
			if order.CompletedAt.Before(attrStart) || !order.CompletedAt.Before(attributionEnd) {
				continue
			}
			attributed = attributed.Add(order.TotalAmount)
		}
		for _, sale := range daySales {
			if sale.UserID != shift.UserID {
				continue
			}
			if sale.Timestamp.Before(attrStart) || !sale.Timestamp.Before(attributionEnd) {
				continue
			}
			attributed = attributed.Add(sale.TotalAmount)
		}

		report.ShiftBreakdown = append(report.ShiftBreakdown, domain.ShiftSummary{
			UserID:               shift.UserID,
			OpeningAmount:        shift.OpeningAmount,
			ClosingAmount:        cloneDecimalPtr(shift.ClosingAmount),
			OpenTime:             shift.OpenTime,
			CloseTime:            cloneTimePtr(shift.CloseTime),
			DurationMinutes:      duration,
			Status:               shift.Status,
			AttributedSalesTotal: attributed,
		})
	}
	slices.SortFunc(report.ShiftBreakdown, func(a, b domain.ShiftSummary) int {
		if a.OpenTime.Equal(b.OpenTime) {
			return cmpString(a.UserID, b.UserID)
		}
		if a.OpenTime.Before(b.OpenTime) {
			return -1
		}
		return 1
	})

	return report, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return fmt.Errorf("%w: username and password required", domain.ErrValidation)
	}
	if _, exists := s.usersByUsername[username]; exists {
		return fmt.Errorf("%w: username %s already exists", domain.ErrValidation, username)
	}
	user.Username = username
	if user.Role == "" {
		user.Role = "cashier"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
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
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByUsername[strings.ToLower(strings.TrimSpace(username))]
	if !exists {
		return domain.UserAccount{}, store.ErrNotFound
	}
	return user, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: username and password required", domain.ErrValidation)
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) AppendAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, date string, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if date != "" && entry.CreatedAt.UTC().Format("2006-01-02") != date {
			continue
		}
		result = append(result, entry)
	}
	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneOrder(src domain.Order) domain.Order {
	dup := src
	dup.CompletedAt = cloneTimePtr(src.CompletedAt)
	dup.CancelledAt = cloneTimePtr(src.CancelledAt)
	return dup
}

func cloneShift(src domain.Shift) domain.Shift {
	dup := src
	dup.CloseTime = cloneTimePtr(src.CloseTime)
	dup.ClosingAmount = cloneDecimalPtr(src.ClosingAmount)
	return dup
}

func cloneTimePtr(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	t := *src
	return &t
}

func cloneDecimalPtr(src *decimal.Decimal) *decimal.Decimal {
	if src == nil {
		return nil
	}
	d := *src
	return &d
}
