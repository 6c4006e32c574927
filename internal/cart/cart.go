// Package cart implements the session-local cart and the fixed-order
// totals arithmetic shared with persisted orders. Everything here is pure
// in-memory state: no method touches storage or returns persistence errors.
package cart

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tillpoint/backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Line is one priced cart entry. Unit price and tax rate are snapshotted
// from the catalog when the line is added; later catalog changes do not
// reprice an open cart.
type Line struct {
	ProductID       string
	ProductName     string
	Quantity        int
	UnitPrice       decimal.Decimal
	TaxRatePercent  decimal.Decimal
	DiscountPercent decimal.Decimal
	DiscountAmount  decimal.Decimal
	Notes           string
}

func (l Line) total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// discount is the line's own discount, clamped so it never exceeds the
// line's total.
func (l Line) discount() decimal.Decimal {
	total := l.total()
	d := total.Mul(l.DiscountPercent).Div(hundred).Add(l.DiscountAmount)
	return clampAmount(d, total)
}

func clampAmount(v, max decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	if v.GreaterThan(max) {
		return max
	}
	return v
}

// Cart is one cashier session's line collection. Insertion order is kept
// for display; totals do not depend on it. A cart optionally mirrors a
// persisted order via the loaded-order reference set by LoadOrder.
type Cart struct {
	lines           []Line
	discountPercent decimal.Decimal
	discountAmount  decimal.Decimal
	loadedOrderID   string
}

func New() *Cart {
	return &Cart{}
}

// Add appends a line. Adding a product already in the cart merges the
// quantities and keeps the original price snapshot.
func (c *Cart) Add(line Line) error {
	if line.ProductID == "" {
		return fmt.Errorf("%w: product id required", domain.ErrValidation)
	}
	if line.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", domain.ErrValidation)
	}
	if line.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unit price must not be negative", domain.ErrValidation)
	}
	for i := range c.lines {
		if c.lines[i].ProductID == line.ProductID {
			c.lines[i].Quantity += line.Quantity
			if line.Notes != "" {
				c.lines[i].Notes = line.Notes
			}
			return nil
		}
	}
	c.lines = append(c.lines, line)
	return nil
}

// UpdateQuantity sets a line's quantity; zero or negative removes the line.
func (c *Cart) UpdateQuantity(productID string, qty int) error {
	idx := c.index(productID)
	if idx < 0 {
		return fmt.Errorf("%w: product %s is not in the cart", domain.ErrValidation, productID)
	}
	if qty <= 0 {
		c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
		return nil
	}
	c.lines[idx].Quantity = qty
	return nil
}

func (c *Cart) Remove(productID string) error {
	idx := c.index(productID)
	if idx < 0 {
		return fmt.Errorf("%w: product %s is not in the cart", domain.ErrValidation, productID)
	}
	c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
	return nil
}

func (c *Cart) ApplyLineDiscount(productID string, percent, amount decimal.Decimal) error {
	if percent.IsNegative() || amount.IsNegative() {
		return fmt.Errorf("%w: discount must not be negative", domain.ErrValidation)
	}
	idx := c.index(productID)
	if idx < 0 {
		return fmt.Errorf("%w: product %s is not in the cart", domain.ErrValidation, productID)
	}
	c.lines[idx].DiscountPercent = percent
	c.lines[idx].DiscountAmount = amount
	return nil
}

func (c *Cart) ApplyCartDiscount(percent, amount decimal.Decimal) error {
	if percent.IsNegative() || amount.IsNegative() {
		return fmt.Errorf("%w: discount must not be negative", domain.ErrValidation)
	}
	c.discountPercent = percent
	c.discountAmount = amount
	return nil
}

// Clear empties the cart and drops the loaded-order reference.
func (c *Cart) Clear() {
	c.lines = nil
	c.discountPercent = decimal.Zero
	c.discountAmount = decimal.Zero
	c.loadedOrderID = ""
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) LoadedOrderID() string {
	return c.loadedOrderID
}

// LoadOrder replaces the cart contents with an order's lines and marks the
// cart as mirroring that order until checkout or clear. The order's
// discount_amount arrives as a cart-level amount discount.
func (c *Cart) LoadOrder(orderID string, lines []Line, discountAmount decimal.Decimal) {
	c.lines = make([]Line, len(lines))
	copy(c.lines, lines)
	c.discountPercent = decimal.Zero
	c.discountAmount = discountAmount
	c.loadedOrderID = orderID
}

func (c *Cart) index(productID string) int {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Totals computes the cart arithmetic in its fixed order:
//
//	1. subtotal            = sum of unit_price * quantity
//	2. line_discount_total = per-line percent + amount, clamped per line
//	3. post_line_subtotal  = subtotal - line_discount_total
//	4. cart_discount_total = cart percent of post_line_subtotal + cart
//	                         amount, clamped to post_line_subtotal
//	5. discounted_subtotal = post_line_subtotal - cart_discount_total
//	6. tax_total           = per-line tax on the post-discount share, the
//	                         cart discount allocated proportionally by value
//	7. grand_total         = discounted_subtotal + tax_total
//
// Allocation keeps full decimal precision; each published figure is rounded
// to two places and later steps are derived from the published earlier ones
// so the printed numbers stay mutually consistent. Nothing goes negative.
func (c *Cart) Totals() domain.CartTotals {
	subtotal := decimal.Zero
	lineDiscounts := decimal.Zero
	postLineValues := make([]decimal.Decimal, len(c.lines))
	for i, line := range c.lines {
		total := line.total()
		d := line.discount()
		subtotal = subtotal.Add(total)
		lineDiscounts = lineDiscounts.Add(d)
		postLineValues[i] = total.Sub(d)
	}

	exactPostLine := subtotal.Sub(lineDiscounts)
	exactCartDiscount := clampAmount(
		exactPostLine.Mul(c.discountPercent).Div(hundred).Add(c.discountAmount),
		exactPostLine,
	)
	exactDiscounted := exactPostLine.Sub(exactCartDiscount)

	tax := decimal.Zero
	if exactPostLine.IsPositive() {
		ratio := exactDiscounted.Div(exactPostLine)
		for i, line := range c.lines {
			base := postLineValues[i].Mul(ratio)
			tax = tax.Add(base.Mul(line.TaxRatePercent).Div(hundred))
		}
	}

	published := domain.CartTotals{
		Subtotal:          subtotal.Round(2),
		LineDiscountTotal: lineDiscounts.Round(2),
		CartDiscountTotal: exactCartDiscount.Round(2),
		TaxTotal:          tax.Round(2),
	}
	published.PostLineSubtotal = floorZero(published.Subtotal.Sub(published.LineDiscountTotal))
	published.DiscountedSubtotal = floorZero(published.PostLineSubtotal.Sub(published.CartDiscountTotal))
	if published.TaxTotal.IsNegative() {
		published.TaxTotal = decimal.Zero
	}
	published.GrandTotal = floorZero(published.DiscountedSubtotal.Add(published.TaxTotal))
	return published
}

func floorZero(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

// View renders the cart for API responses.
func (c *Cart) View() domain.CartView {
	lines := make([]domain.CartLineView, 0, len(c.lines))
	for _, line := range c.lines {
		lines = append(lines, domain.CartLineView{
			ProductID:       line.ProductID,
			ProductName:     line.ProductName,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			TaxRatePercent:  line.TaxRatePercent,
			DiscountPercent: line.DiscountPercent,
			DiscountAmount:  line.DiscountAmount,
			Notes:           line.Notes,
			LineTotal:       line.total().Round(2),
		})
	}
	return domain.CartView{
		Lines:           lines,
		DiscountPercent: c.discountPercent,
		DiscountAmount:  c.discountAmount,
		LoadedOrderID:   c.loadedOrderID,
		Totals:          c.Totals(),
	}
}
