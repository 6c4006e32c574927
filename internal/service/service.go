package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tillpoint/backend/internal/cart"
	"tillpoint/backend/internal/catalog"
	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/ordnum"
	"tillpoint/backend/internal/report"
	"tillpoint/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// PasswordVerifier checks a login password against the stored credential.
// Shift close re-verifies the cashier's password even though the request
// already carries a valid token.
type PasswordVerifier interface {
	Verify(stored string, candidate string) bool
}

type Service struct {
	repo       store.Repository
	catalog    *catalog.Provider
	reports    *report.Aggregator
	verifier   PasswordVerifier
	carts      *cart.Registry
	staleAfter time.Duration

	// newOrderNumber is swapped out in tests to force number collisions.
	newOrderNumber func(at time.Time) string
}

func New(repo store.Repository, reports *report.Aggregator, verifier PasswordVerifier, staleAfter time.Duration) *Service {
	if staleAfter <= 0 {
		staleAfter = 24 * time.Hour
	}

	return &Service{
		repo:           repo,
		catalog:        catalog.NewProvider(repo),
		reports:        reports,
		verifier:       verifier,
		carts:          cart.NewRegistry(),
		staleAfter:     staleAfter,
		newOrderNumber: ordnum.New,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	return products, fail(err)
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	return categories, fail(err)
}

func (s *Service) CartView(ctx context.Context) (domain.CartView, error) {
	actor, err := s.sessionActor(ctx)
	if err != nil {
		return domain.CartView{}, err
	}
	return s.carts.View(actor.Username), nil
}

func (s *Service) AddToCart(ctx context.Context, req domain.CartAddRequest) (domain.CartView, error) {
	actor, err := s.sessionActor(ctx)
	if err != nil {
		return domain.CartView{}, err
	}

	snap, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return domain.CartView{}, fail(err)
	}
	item, err := snap.Item(strings.TrimSpace(req.ProductID))
	if err != nil {
		return domain.CartView{}, err
	}

	var view domain.CartView
	err = s.carts.WithCart(actor.Username, func(c *cart.Cart) error {
		if err := c.Add(cart.Line{
			ProductID:      item.Product.ID,
			ProductName:    item.Product.Name,
			Quantity:       req.Quantity,
			UnitPrice:      item.Product.Price,
			TaxRatePercent: item.TaxRatePercent,
			Notes:          strings.TrimSpace(req.Notes),
		}); err != nil {
			return err
		}
		view = c.View()
		return nil
	})
	return view, err
}

func (s *Service) UpdateCartQuantity(ctx context.Context, productID string, quantity int) (domain.CartView, error) {
	return s.mutateCart(ctx, func(c *cart.Cart) error {
		return c.UpdateQuantity(strings.TrimSpace(productID), quantity)
	})
}

func (s *Service) RemoveFromCart(ctx context.Context, productID string) (domain.CartView, error) {
	return s.mutateCart(ctx, func(c *cart.Cart) error {
		return c.Remove(strings.TrimSpace(productID))
	})
}

func (s *Service) ApplyLineDiscount(ctx context.Context, req domain.CartLineDiscountRequest) (domain.CartView, error) {
	return s.mutateCart(ctx, func(c *cart.Cart) error {
		return c.ApplyLineDiscount(strings.TrimSpace(req.ProductID), req.Percent, req.Amount)
	})
}

func (s *Service) ApplyCartDiscount(ctx context.Context, req domain.CartDiscountRequest) (domain.CartView, error) {
	return s.mutateCart(ctx, func(c *cart.Cart) error {
		return c.ApplyCartDiscount(req.Percent, req.Amount)
	})
}

func (s *Service) ClearCart(ctx context.Context) (domain.CartView, error) {
	return s.mutateCart(ctx, func(c *cart.Cart) error {
		c.Clear()
		return nil
	})
}

func (s *Service) mutateCart(ctx context.Context, fn func(*cart.Cart) error) (domain.CartView, error) {
	actor, err := s.sessionActor(ctx)
	if err != nil {
		return domain.CartView{}, err
	}

	var view domain.CartView
	err = s.carts.WithCart(actor.Username, func(c *cart.Cart) error {
		if err := fn(c); err != nil {
			return err
		}
		view = c.View()
		return nil
	})
	return view, err
}

func (s *Service) CreateOrder(ctx context.Context, req domain.OrderCreateRequest) (domain.OrderDetail, error) {
	actor, err := s.sessionActor(ctx)
	if err != nil {
		return domain.OrderDetail{}, err
	}

	status := domain.OrderStatusActive
	if req.Pending {
		status = domain.OrderStatusPending
	}

	if len(req.Items) > 0 {
		snap, err := s.catalog.Snapshot(ctx)
		if err != nil {
			return domain.OrderDetail{}, fail(err)
		}
		items, err := resolveOrderItems(snap, req.Items)
		if err != nil {
			return domain.OrderDetail{}, err
		}
		return s.persistNewOrder(ctx, actor, req, status, items, decimal.Zero)
	}

	// No explicit items: snapshot the session cart and clear it once the
	// order is stored.
	var detail domain.OrderDetail
	err = s.carts.WithCart(actor.Username, func(c *cart.Cart) error {
		if c.IsEmpty() {
			return fmt.Errorf("%w: cart is empty", domain.ErrValidation)
		}
		totals := c.Totals()
		discount := totals.LineDiscountTotal.Add(totals.CartDiscountTotal)
		created, err := s.persistNewOrder(ctx, actor, req, status, orderItemsFromLines(c.Lines()), discount)
		if err != nil {
			return err
		}
		c.Clear()
		detail = created
		return nil
	})
	if err != nil {
		return domain.OrderDetail{}, err
	}
	return detail, nil
}

// persistNewOrder draws an order number and retries on a duplicate. The
// window for a collision is the random suffix repeating within one second,
// so two redraws are plenty before giving up.
func (s *Service) persistNewOrder(ctx context.Context, actor domain.Actor, req domain.OrderCreateRequest, status string, items []domain.OrderItem, discountAmount decimal.Decimal) (domain.OrderDetail, error) {
	var created domain.Order
	for attempt := 0; ; attempt++ {
		now := time.Now().UTC()
		order := domain.Order{
			OrderNumber:    s.newOrderNumber(now),
			CustomerName:   strings.TrimSpace(req.CustomerName),
			Status:         status,
			UserID:         actor.Username,
			DiscountAmount: discountAmount,
			Notes:          strings.TrimSpace(req.Notes),
			CreatedAt:      now,
		}

		saved, err := s.repo.CreateOrder(ctx, order, items)
		if err == nil {
			created = saved
			break
		}
		if errors.Is(err, store.ErrDuplicateOrderNumber) {
			if attempt < 2 {
				continue
			}
			return domain.OrderDetail{}, fmt.Errorf("%w: could not allocate a unique order number", domain.ErrConcurrency)
		}
		return domain.OrderDetail{}, fail(err)
	}

	for i := range items {
		items[i].OrderID = created.ID
	}
	s.logAudit(ctx, "order_create", "order", created.ID,
		fmt.Sprintf("number=%s,status=%s,items=%d,total=%s", created.OrderNumber, created.Status, len(items), created.TotalAmount.StringFixed(2)))
	return domain.OrderDetail{Order: created, Items: items}, nil
}

func (s *Service) ListOrders(ctx context.Context, status string, limit int) ([]domain.Order, error) {
	orders, err := s.repo.ListOrders(ctx, status, limit)
	return orders, fail(err)
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (domain.OrderDetail, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return domain.OrderDetail{}, fail(err)
	}
	items, err := s.repo.ListOrderItems(ctx, orderID)
	if err != nil {
		return domain.OrderDetail{}, fail(err)
	}
	return domain.OrderDetail{Order: order, Items: items}, nil
}

func (s *Service) AddOrderItems(ctx context.Context, orderID string, req domain.OrderItemsRequest) (domain.OrderDetail, error) {
	if len(req.Items) == 0 {
		return domain.OrderDetail{}, fmt.Errorf("%w: no items to add", domain.ErrValidation)
	}

	snap, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return domain.OrderDetail{}, fail(err)
	}
	add, err := resolveOrderItems(snap, req.Items)
	if err != nil {
		return domain.OrderDetail{}, err
	}

	order, err := s.repo.AddOrderItems(ctx, orderID, add, time.Now().UTC())
	if err != nil {
		return domain.OrderDetail{}, fail(err)
	}
	items, err := s.repo.ListOrderItems(ctx, orderID)
	if err != nil {
		return domain.OrderDetail{}, fail(err)
	}

	s.logAudit(ctx, "order_items_add", "order", order.ID,
		fmt.Sprintf("number=%s,added=%d,total=%s", order.OrderNumber, len(add), order.TotalAmount.StringFixed(2)))
	return domain.OrderDetail{Order: order, Items: items}, nil
}

func (s *Service) CompleteOrder(ctx context.Context, orderID string) (domain.Order, error) {
	order, err := s.repo.CompleteOrder(ctx, orderID, time.Now().UTC())
	if err != nil {
		return domain.Order{}, fail(err)
	}

	s.logAudit(ctx, "order_complete", "order", order.ID,
		fmt.Sprintf("number=%s,total=%s", order.OrderNumber, order.TotalAmount.StringFixed(2)))
	return order, nil
}

func (s *Service) CancelOrder(ctx context.Context, orderID string, req domain.OrderCancelRequest) (domain.Order, error) {
	actor, err := s.sessionActor(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "unspecified"
	}

	order, err := s.repo.CancelOrder(ctx, orderID, actor.Username, reason, time.Now().UTC())
	if err != nil {
		return domain.Order{}, fail(err)
	}

	s.logAudit(ctx, "order_cancel", "order", order.ID,
		fmt.Sprintf("number=%s,reason=%s", order.OrderNumber, reason))
	return order, nil
}

// LoadOrderIntoCart replaces the session cart with an active order's items
// so the cashier can amend and finish it through checkout. Stored price
// snapshots are kept; tax rates are re-read from the current catalog.
func (s *Service) LoadOrderIntoCart(ctx context.Context, orderID string) (domain.CartView, error) {
	actor, err := s.sessionActor(ctx)
	if err != nil {
		return domain.CartView{}, err
	}

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return domain.CartView{}, fail(err)
	}
	switch order.Status {
	case domain.OrderStatusActive:
	case domain.OrderStatusCompleted:
		return domain.CartView{}, fmt.Errorf("%w: order %s was already completed", domain.ErrInvalidState, order.OrderNumber)
	case domain.OrderStatusCancelled:
		return domain.CartView{}, fmt.Errorf("%w: order %s was cancelled", domain.ErrInvalidState, order.OrderNumber)
	default:
		return domain.CartView{}, fmt.Errorf("%w: only active orders can be loaded into the cart (order %s is %s)", domain.ErrInvalidState, order.OrderNumber, order.Status)
	}

	items, err := s.repo.ListOrderItems(ctx, orderID)
	if err != nil {
		return domain.CartView{}, fail(err)
	}
	snap, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return domain.CartView{}, fail(err)
	}

	lines := make([]cart.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, cart.Line{
			ProductID:      item.ProductID,
			ProductName:    snap.ProductName(item.ProductID),
			Quantity:       item.Quantity,
			UnitPrice:      item.PriceAtOrder,
			TaxRatePercent: snap.RateForProduct(item.ProductID),
			Notes:          item.Notes,
		})
	}

	var view domain.CartView
	err = s.carts.WithCart(actor.Username, func(c *cart.Cart) error {
		c.LoadOrder(order.ID, lines, order.DiscountAmount)
		view = c.View()
		return nil
	})
	if err != nil {
		return domain.CartView{}, err
	}

	s.logAudit(ctx, "order_load", "order", order.ID,
		fmt.Sprintf("number=%s,items=%d", order.OrderNumber, len(lines)))
	return view, nil
}

// Checkout finalizes the session cart. A cart that was loaded from an order
// resyncs and completes that order without writing a sale row; any other
// cart becomes a new sale. The cart is cleared only after the write
// succeeds, so a failed checkout leaves it intact.
func (s *Service) Checkout(ctx context.Context) (domain.CheckoutResult, error) {
	actor, err := s.sessionActor(ctx)
	if err != nil {
		return domain.CheckoutResult{}, err
	}

	var result domain.CheckoutResult
	err = s.carts.WithCart(actor.Username, func(c *cart.Cart) error {
		if c.IsEmpty() {
			return fmt.Errorf("%w: cart is empty", domain.ErrValidation)
		}

		now := time.Now().UTC()
		totals := c.Totals()
		lines := c.Lines()

		if loadedID := c.LoadedOrderID(); loadedID != "" {
			items := orderItemsFromLines(lines)
			discount := totals.LineDiscountTotal.Add(totals.CartDiscountTotal)
			order, err := s.repo.CompleteOrderWithItems(ctx, loadedID, items, discount, now)
			if err != nil {
				return fmt.Errorf("checkout failed: %w", fail(err))
			}
			for i := range items {
				items[i].OrderID = order.ID
			}
			result = domain.CheckoutResult{
				Kind:   "order",
				Order:  &domain.OrderDetail{Order: order, Items: items},
				Totals: totals,
				At:     now,
			}
			s.logAudit(ctx, "checkout", "order", order.ID,
				fmt.Sprintf("number=%s,total=%s,resumed=true", order.OrderNumber, order.TotalAmount.StringFixed(2)))
		} else {
			items := saleItemsFromLines(lines)
			sale, err := s.repo.CreateSale(ctx, domain.Sale{
				Timestamp:   now,
				TotalAmount: totals.GrandTotal,
				UserID:      actor.Username,
			}, items)
			if err != nil {
				return fmt.Errorf("checkout failed: %w", fail(err))
			}
			for i := range items {
				items[i].SaleID = sale.ID
			}
			result = domain.CheckoutResult{
				Kind:   "sale",
				Sale:   &domain.SaleDetail{Sale: sale, Items: items},
				Totals: totals,
				At:     now,
			}
			s.logAudit(ctx, "checkout", "sale", sale.ID,
				fmt.Sprintf("total=%s,items=%d", sale.TotalAmount.StringFixed(2), len(items)))
		}

		c.Clear()
		return nil
	})
	if err != nil {
		return domain.CheckoutResult{}, err
	}
	return result, nil
}

func (s *Service) OpenShift(ctx context.Context, req domain.ShiftOpenRequest) (domain.ShiftOpenResult, error) {
	actor, err := s.sessionActor(ctx)
	if err != nil {
		return domain.ShiftOpenResult{}, err
	}
	if req.OpeningAmount.IsNegative() {
		return domain.ShiftOpenResult{}, fmt.Errorf("%w: opening amount must not be negative", domain.ErrValidation)
	}

	opened, superseded, err := s.repo.OpenShift(ctx, domain.Shift{
		UserID:        actor.Username,
		OpeningAmount: req.OpeningAmount,
	})
	if err != nil {
		return domain.ShiftOpenResult{}, fail(err)
	}

	if superseded != nil {
		closing := "0.00"
		if superseded.ClosingAmount != nil {
			closing = superseded.ClosingAmount.StringFixed(2)
		}
		s.logAudit(ctx, "shift_superseded", "shift", superseded.ID,
			fmt.Sprintf("user=%s,closing=%s,replaced_by=%s", superseded.UserID, closing, opened.ID))
	}
	s.logAudit(ctx, "shift_open", "shift", opened.ID,
		fmt.Sprintf("user=%s,opening=%s", opened.UserID, opened.OpeningAmount.StringFixed(2)))

	return domain.ShiftOpenResult{Shift: opened, Superseded: superseded}, nil
}

func (s *Service) CloseShift(ctx context.Context, req domain.ShiftCloseRequest) (domain.Shift, error) {
	actor, err := s.sessionActor(ctx)
	if err != nil {
		return domain.Shift{}, err
	}

	user, err := s.repo.GetUserByUsername(ctx, actor.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Shift{}, fmt.Errorf("%w: invalid password", domain.ErrValidation)
		}
		return domain.Shift{}, fail(err)
	}
	if s.verifier == nil || !s.verifier.Verify(user.Password, req.Password) {
		return domain.Shift{}, fmt.Errorf("%w: invalid password", domain.ErrValidation)
	}

	shift, err := s.repo.CloseShift(ctx, actor.Username, req.ClosingAmount, time.Now().UTC())
	if err != nil {
		return domain.Shift{}, fail(err)
	}

	closing := "0.00"
	if shift.ClosingAmount != nil {
		closing = shift.ClosingAmount.StringFixed(2)
	}
	s.logAudit(ctx, "shift_close", "shift", shift.ID,
		fmt.Sprintf("user=%s,closing=%s", shift.UserID, closing))
	return shift, nil
}

// CurrentShift returns nil without error when the cashier has no open shift.
func (s *Service) CurrentShift(ctx context.Context) (*domain.Shift, error) {
	actor, err := s.sessionActor(ctx)
	if err != nil {
		return nil, err
	}

	shift, err := s.repo.GetOpenShift(ctx, actor.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fail(err)
	}
	return &shift, nil
}

func (s *Service) ReportForDay(ctx context.Context, date string) (domain.DailyReport, error) {
	result, err := s.reports.ForDay(ctx, date)
	return result, fail(err)
}

func (s *Service) ResetReportDay(ctx context.Context, now time.Time) error {
	return fail(s.reports.ResetDay(ctx, now))
}

func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	date = strings.TrimSpace(date)
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return nil, fmt.Errorf("%w: date must look like 2006-01-02", domain.ErrValidation)
		}
	}
	if limit < 1 {
		limit = 100
	}

	logs, err := s.repo.ListAuditLogs(ctx, date, limit)
	return logs, fail(err)
}

// SweepStaleOrders completes ACTIVE orders whose creation time fell outside
// the staleness window. Each order is handled on its own: one failure is
// logged and the sweep moves on.
func (s *Service) SweepStaleOrders(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.staleAfter)
	stale, err := s.repo.ListStaleActiveOrders(ctx, cutoff, 200)
	if err != nil {
		return 0, fail(err)
	}

	completed := 0
	for _, order := range stale {
		if _, err := s.repo.CompleteOrder(ctx, order.ID, time.Now().UTC()); err != nil {
			log.Printf("[service] WARN: failed to auto-complete stale order %s (%s): %v", order.OrderNumber, order.ID, err)
			continue
		}
		completed++
		s.logAudit(ctx, "order_auto_complete", "order", order.ID,
			fmt.Sprintf("number=%s,created_at=%s", order.OrderNumber, order.CreatedAt.Format(time.RFC3339)))
	}
	return completed, nil
}

// ForceCloseOpenShifts closes every OPEN shift with its closing amount set
// to its opening amount. The scheduler runs this at local midnight.
func (s *Service) ForceCloseOpenShifts(ctx context.Context) (int, error) {
	closed, err := s.repo.ForceCloseOpenShifts(ctx, time.Now().UTC())
	if err != nil {
		return 0, fail(err)
	}

	for _, shift := range closed {
		s.logAudit(ctx, "shift_force_close", "shift", shift.ID,
			fmt.Sprintf("user=%s,closing=%s", shift.UserID, shift.OpeningAmount.StringFixed(2)))
	}
	return len(closed), nil
}

func (s *Service) sessionActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Username == "" {
		return domain.Actor{}, fmt.Errorf("%w: no authenticated session", domain.ErrValidation)
	}
	return actor, nil
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.AppendAuditLog(ctx, domain.AuditLog{
		ID:            uuid.NewString(),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

// resolveOrderItems prices request items against the catalog snapshot,
// merging duplicate product lines. First appearance fixes a line's position;
// a later non-empty note replaces the earlier one.
func resolveOrderItems(snap *catalog.Snapshot, inputs []domain.OrderItemInput) ([]domain.OrderItem, error) {
	type pending struct {
		quantity int
		notes    string
	}
	agg := make(map[string]*pending, len(inputs))
	ids := make([]string, 0, len(inputs))

	for _, input := range inputs {
		id := strings.TrimSpace(input.ProductID)
		if id == "" {
			return nil, fmt.Errorf("%w: order item product id required", domain.ErrValidation)
		}
		if input.Quantity < 1 {
			return nil, fmt.Errorf("%w: order item quantity must be at least 1", domain.ErrValidation)
		}
		entry, ok := agg[id]
		if !ok {
			entry = &pending{}
			agg[id] = entry
			ids = append(ids, id)
		}
		entry.quantity += input.Quantity
		if notes := strings.TrimSpace(input.Notes); notes != "" {
			entry.notes = notes
		}
	}

	items := make([]domain.OrderItem, 0, len(ids))
	for _, id := range ids {
		item, err := snap.Item(id)
		if err != nil {
			return nil, err
		}
		entry := agg[id]
		items = append(items, domain.OrderItem{
			ProductID:    id,
			Quantity:     entry.quantity,
			PriceAtOrder: item.Product.Price,
			Notes:        entry.notes,
		})
	}
	return items, nil
}

func orderItemsFromLines(lines []cart.Line) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, domain.OrderItem{
			ProductID:    line.ProductID,
			Quantity:     line.Quantity,
			PriceAtOrder: line.UnitPrice,
			Notes:        line.Notes,
		})
	}
	return items
}

func saleItemsFromLines(lines []cart.Line) []domain.SaleItem {
	items := make([]domain.SaleItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, domain.SaleItem{
			ProductID:   line.ProductID,
			Quantity:    line.Quantity,
			PriceAtSale: line.UnitPrice,
		})
	}
	return items
}

// fail wraps unexpected repository errors as persistence failures while
// letting typed domain and store errors pass through untouched.
func fail(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrConcurrency),
		errors.Is(err, domain.ErrPersistence),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrDuplicateOrderNumber),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
}
