package cart

import (
	"github.com/shopspring/decimal"

	"tillpoint/backend/internal/domain"
)

// RateResolver returns the tax-rate percent for a product. Stores supply
// one backed by their own transaction so repricing sees a consistent view.
type RateResolver func(productID string) decimal.Decimal

// OrderTotals reprices persisted order lines with the cart formula. Order
// items carry no per-line discounts; the order's discount_amount behaves as
// a cart-level amount discount, allocated across lines proportionally by
// value for the tax base. Both stores call this whenever an order's items
// change so the stored totals always satisfy
// total = subtotal - discount + tax.
func OrderTotals(items []domain.OrderItem, discountAmount decimal.Decimal, rateOf RateResolver) domain.OrderTotals {
	c := Cart{discountAmount: discountAmount}
	for _, item := range items {
		c.lines = append(c.lines, Line{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPrice:      item.PriceAtOrder,
			TaxRatePercent: rateOf(item.ProductID),
			Notes:          item.Notes,
		})
	}
	t := c.Totals()
	return domain.OrderTotals{
		Subtotal:       t.Subtotal,
		DiscountAmount: t.CartDiscountTotal,
		TaxAmount:      t.TaxTotal,
		TotalAmount:    t.GrandTotal,
	}
}
