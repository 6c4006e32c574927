package cart

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"tillpoint/backend/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func mustAdd(t *testing.T, c *Cart, line Line) {
	t.Helper()
	if err := c.Add(line); err != nil {
		t.Fatalf("add line: %v", err)
	}
}

func assertTotal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if got.StringFixed(2) != want {
		t.Fatalf("%s = %s, want %s", name, got.StringFixed(2), want)
	}
}

func TestTotalsSingleLineWithTax(t *testing.T) {
	c := New()
	mustAdd(t, c, Line{ProductID: "p1", Quantity: 2, UnitPrice: dec("10.00"), TaxRatePercent: dec("14")})

	got := c.Totals()
	assertTotal(t, "subtotal", got.Subtotal, "20.00")
	assertTotal(t, "line discount", got.LineDiscountTotal, "0.00")
	assertTotal(t, "discounted subtotal", got.DiscountedSubtotal, "20.00")
	assertTotal(t, "tax", got.TaxTotal, "2.80")
	assertTotal(t, "grand total", got.GrandTotal, "22.80")
}

func TestTotalsCartPercentDiscountShrinksTaxBase(t *testing.T) {
	c := New()
	mustAdd(t, c, Line{ProductID: "p1", Quantity: 2, UnitPrice: dec("10.00"), TaxRatePercent: dec("14")})
	if err := c.ApplyCartDiscount(dec("10"), decimal.Zero); err != nil {
		t.Fatalf("apply cart discount: %v", err)
	}

	got := c.Totals()
	assertTotal(t, "subtotal", got.Subtotal, "20.00")
	assertTotal(t, "cart discount", got.CartDiscountTotal, "2.00")
	assertTotal(t, "discounted subtotal", got.DiscountedSubtotal, "18.00")
	assertTotal(t, "tax", got.TaxTotal, "2.52")
	assertTotal(t, "grand total", got.GrandTotal, "20.52")
}

func TestTotalsAllocatesCartDiscountProportionally(t *testing.T) {
	// Two lines with different tax rates: 30.00 at 10% and 10.00 at 20%.
	// A 4.00 cart discount splits 3.00/1.00 by value, so the tax bases are
	// 27.00 and 9.00.
	c := New()
	mustAdd(t, c, Line{ProductID: "food", Quantity: 3, UnitPrice: dec("10.00"), TaxRatePercent: dec("10")})
	mustAdd(t, c, Line{ProductID: "drink", Quantity: 1, UnitPrice: dec("10.00"), TaxRatePercent: dec("20")})
	if err := c.ApplyCartDiscount(decimal.Zero, dec("4.00")); err != nil {
		t.Fatalf("apply cart discount: %v", err)
	}

	got := c.Totals()
	assertTotal(t, "discounted subtotal", got.DiscountedSubtotal, "36.00")
	assertTotal(t, "tax", got.TaxTotal, "4.50")
	assertTotal(t, "grand total", got.GrandTotal, "40.50")
}

func TestTotalsLineDiscountClampsToLineValue(t *testing.T) {
	c := New()
	mustAdd(t, c, Line{ProductID: "p1", Quantity: 1, UnitPrice: dec("5.00")})
	mustAdd(t, c, Line{ProductID: "p2", Quantity: 1, UnitPrice: dec("8.00")})
	if err := c.ApplyLineDiscount("p1", decimal.Zero, dec("9.00")); err != nil {
		t.Fatalf("apply line discount: %v", err)
	}

	got := c.Totals()
	assertTotal(t, "line discount", got.LineDiscountTotal, "5.00")
	assertTotal(t, "post line subtotal", got.PostLineSubtotal, "8.00")
	assertTotal(t, "grand total", got.GrandTotal, "8.00")
}

func TestTotalsCartDiscountClampsAndGrandTotalStaysNonNegative(t *testing.T) {
	c := New()
	mustAdd(t, c, Line{ProductID: "p1", Quantity: 1, UnitPrice: dec("5.00")})
	if err := c.ApplyCartDiscount(decimal.Zero, dec("50.00")); err != nil {
		t.Fatalf("apply cart discount: %v", err)
	}

	got := c.Totals()
	assertTotal(t, "cart discount", got.CartDiscountTotal, "5.00")
	assertTotal(t, "discounted subtotal", got.DiscountedSubtotal, "0.00")
	assertTotal(t, "tax", got.TaxTotal, "0.00")
	assertTotal(t, "grand total", got.GrandTotal, "0.00")
}

func TestTotalsEmptyCartIsAllZero(t *testing.T) {
	got := New().Totals()
	assertTotal(t, "subtotal", got.Subtotal, "0.00")
	assertTotal(t, "grand total", got.GrandTotal, "0.00")
}

func TestAddMergesSameProductAndKeepsFirstPrice(t *testing.T) {
	c := New()
	mustAdd(t, c, Line{ProductID: "p1", Quantity: 1, UnitPrice: dec("10.00")})
	mustAdd(t, c, Line{ProductID: "p1", Quantity: 2, UnitPrice: dec("99.00")})

	lines := c.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected one merged line, got %d", len(lines))
	}
	if lines[0].Quantity != 3 {
		t.Fatalf("quantity = %d, want 3", lines[0].Quantity)
	}
	assertTotal(t, "unit price", lines[0].UnitPrice, "10.00")
}

func TestAddRejectsInvalidLines(t *testing.T) {
	c := New()
	if err := c.Add(Line{ProductID: "", Quantity: 1}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for empty product id, got %v", err)
	}
	if err := c.Add(Line{ProductID: "p1", Quantity: 0}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for zero quantity, got %v", err)
	}
	if err := c.Add(Line{ProductID: "p1", Quantity: 1, UnitPrice: dec("-1")}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for negative price, got %v", err)
	}
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	c := New()
	mustAdd(t, c, Line{ProductID: "p1", Quantity: 2, UnitPrice: dec("10.00")})
	if err := c.UpdateQuantity("p1", 0); err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	if !c.IsEmpty() {
		t.Fatal("expected cart to be empty after quantity dropped to zero")
	}
	if err := c.UpdateQuantity("p1", 1); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for missing line, got %v", err)
	}
}

func TestRemoveUnknownProductFails(t *testing.T) {
	c := New()
	if err := c.Remove("ghost"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNegativeDiscountsAreRejected(t *testing.T) {
	c := New()
	mustAdd(t, c, Line{ProductID: "p1", Quantity: 1, UnitPrice: dec("10.00")})
	if err := c.ApplyLineDiscount("p1", dec("-1"), decimal.Zero); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for negative percent, got %v", err)
	}
	if err := c.ApplyCartDiscount(decimal.Zero, dec("-1")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for negative amount, got %v", err)
	}
}

func TestClearResetsLoadedOrder(t *testing.T) {
	c := New()
	c.LoadOrder("ord-1", []Line{{ProductID: "p1", Quantity: 1, UnitPrice: dec("10.00")}}, dec("1.00"))
	if c.LoadedOrderID() != "ord-1" {
		t.Fatalf("loaded order id = %q, want ord-1", c.LoadedOrderID())
	}

	c.Clear()
	if c.LoadedOrderID() != "" {
		t.Fatalf("loaded order id survived clear: %q", c.LoadedOrderID())
	}
	if !c.IsEmpty() {
		t.Fatal("expected empty cart after clear")
	}
	assertTotal(t, "discount amount", c.View().DiscountAmount, "0.00")
}

func TestOrderTotalsMatchesCartFormula(t *testing.T) {
	items := []domain.OrderItem{
		{ProductID: "p1", Quantity: 2, PriceAtOrder: dec("10.00")},
	}
	rates := map[string]decimal.Decimal{"p1": dec("14")}

	got := OrderTotals(items, dec("2.00"), func(id string) decimal.Decimal { return rates[id] })
	assertTotal(t, "subtotal", got.Subtotal, "20.00")
	assertTotal(t, "discount", got.DiscountAmount, "2.00")
	assertTotal(t, "tax", got.TaxAmount, "2.52")
	assertTotal(t, "total", got.TotalAmount, "20.52")

	// total = subtotal - discount + tax
	recomputed := got.Subtotal.Sub(got.DiscountAmount).Add(got.TaxAmount)
	if !recomputed.Equal(got.TotalAmount) {
		t.Fatalf("total %s does not recompute from parts (%s)", got.TotalAmount, recomputed)
	}
}

func TestRegistryIsolatesSessions(t *testing.T) {
	r := NewRegistry()
	err := r.WithCart("alice", func(c *Cart) error {
		return c.Add(Line{ProductID: "p1", Quantity: 1, UnitPrice: dec("10.00")})
	})
	if err != nil {
		t.Fatalf("with cart: %v", err)
	}

	if got := len(r.View("alice").Lines); got != 1 {
		t.Fatalf("alice cart lines = %d, want 1", got)
	}
	if got := len(r.View("bob").Lines); got != 0 {
		t.Fatalf("bob cart lines = %d, want 0", got)
	}
}
