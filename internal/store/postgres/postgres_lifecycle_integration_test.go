package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/store"
)

func TestOrderLifecycleRecomputesTotals(t *testing.T) {
	databaseURL := os.Getenv("TILLPOINT_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set TILLPOINT_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	categoryID := fmt.Sprintf("cat-it-%d", stamp)
	productID := fmt.Sprintf("prod-it-%d", stamp)
	orderNumber := fmt.Sprintf("ORD-IT-%d", stamp)
	username := fmt.Sprintf("it-cashier-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM order_items WHERE order_id IN (SELECT id FROM orders WHERE order_number = $1)`, orderNumber)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM orders WHERE order_number = $1`, orderNumber)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, categoryID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM users WHERE username = $1`, username)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, tax_rate)
		VALUES ($1, 'Integration Meals', 14)
	`, categoryID); err != nil {
		t.Fatalf("insert category: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, category_id, price, active, created_at, updated_at)
		VALUES ($1, 'Integration Plate', $2, 10.00, true, now(), now())
	`, productID, categoryID); err != nil {
		t.Fatalf("insert product: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1, 'integration-hash', 'cashier', true, now())
	`, username); err != nil {
		t.Fatalf("insert user: %v", err)
	}

	created, err := s.CreateOrder(ctx, domain.Order{
		OrderNumber: orderNumber,
		UserID:      username,
	}, []domain.OrderItem{
		{ProductID: productID, Quantity: 2, PriceAtOrder: decimal.RequireFromString("10.00")},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if got := created.TotalAmount.StringFixed(2); got != "22.80" {
		t.Fatalf("expected created total 22.80, got %s", got)
	}

	at := time.Now().UTC()
	updated, err := s.AddOrderItems(ctx, created.ID, []domain.OrderItem{
		{ProductID: productID, Quantity: 1, PriceAtOrder: decimal.RequireFromString("10.00")},
	}, at)
	if err != nil {
		t.Fatalf("add order items: %v", err)
	}
	if got := updated.TotalAmount.StringFixed(2); got != "34.20" {
		t.Fatalf("expected updated total 34.20, got %s", got)
	}

	completed, err := s.CompleteOrder(ctx, created.ID, at)
	if err != nil {
		t.Fatalf("complete order: %v", err)
	}
	if completed.Status != domain.OrderStatusCompleted || completed.CompletedAt == nil {
		t.Fatalf("expected completed order with timestamp, got %+v", completed)
	}

	again, err := s.CompleteOrder(ctx, created.ID, at.Add(time.Minute))
	if err != nil {
		t.Fatalf("re-complete order: %v", err)
	}
	if !again.CompletedAt.Equal(*completed.CompletedAt) {
		t.Fatalf("re-complete must not move completed_at: %v vs %v", again.CompletedAt, completed.CompletedAt)
	}

	if _, err := s.CancelOrder(ctx, created.ID, username, "too late", at); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state cancelling completed order, got %v", err)
	}

	var status string
	var total decimal.Decimal
	if err := s.db.QueryRowContext(ctx, `
		SELECT status, total_amount
		FROM orders
		WHERE id = $1
	`, created.ID).Scan(&status, &total); err != nil {
		t.Fatalf("query order: %v", err)
	}
	if status != domain.OrderStatusCompleted {
		t.Fatalf("expected stored status COMPLETED, got %s", status)
	}
	if got := total.StringFixed(2); got != "34.20" {
		t.Fatalf("expected stored total 34.20, got %s", got)
	}
}

func TestOpenShiftSupersedesExistingOpenShift(t *testing.T) {
	databaseURL := os.Getenv("TILLPOINT_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set TILLPOINT_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	username := fmt.Sprintf("it-shift-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM shifts WHERE user_id = $1`, username)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM users WHERE username = $1`, username)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1, 'integration-hash', 'cashier', true, now())
	`, username); err != nil {
		t.Fatalf("insert user: %v", err)
	}

	first, superseded, err := s.OpenShift(ctx, domain.Shift{
		UserID:        username,
		OpeningAmount: decimal.RequireFromString("100.00"),
	})
	if err != nil {
		t.Fatalf("open first shift: %v", err)
	}
	if superseded != nil {
		t.Fatalf("first open must not supersede anything, got %+v", superseded)
	}

	second, superseded, err := s.OpenShift(ctx, domain.Shift{
		UserID:        username,
		OpeningAmount: decimal.RequireFromString("50.00"),
	})
	if err != nil {
		t.Fatalf("open second shift: %v", err)
	}
	if superseded == nil || superseded.ID != first.ID {
		t.Fatalf("expected first shift superseded, got %+v", superseded)
	}
	if superseded.Status != domain.ShiftStatusClosed || superseded.ClosingAmount == nil {
		t.Fatalf("superseded shift must be closed with a closing amount, got %+v", superseded)
	}
	if got := superseded.ClosingAmount.StringFixed(2); got != "50.00" {
		t.Fatalf("expected superseded closing 50.00 (new opening float), got %s", got)
	}

	var open int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM shifts
		WHERE user_id = $1 AND status = 'OPEN'
	`, username).Scan(&open); err != nil {
		t.Fatalf("count open shifts: %v", err)
	}
	if open != 1 {
		t.Fatalf("expected exactly one open shift, got %d", open)
	}

	closed, err := s.CloseShift(ctx, username, decimal.RequireFromString("75.00"), time.Now().UTC())
	if err != nil {
		t.Fatalf("close shift: %v", err)
	}
	if closed.ID != second.ID || closed.Status != domain.ShiftStatusClosed {
		t.Fatalf("expected second shift closed, got %+v", closed)
	}

	if _, err := s.GetOpenShift(ctx, username); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no open shift after close, got %v", err)
	}
}
