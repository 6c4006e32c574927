// Package catalog resolves prices and tax rates from product reference
// data. Tax rates live on categories; a product inherits the rate of the
// category it belongs to.
package catalog

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/store"
)

// Source is the slice of the repository the catalog reads from.
type Source interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

// Provider builds point-in-time snapshots of the catalog.
type Provider struct {
	src Source
}

func NewProvider(src Source) *Provider {
	return &Provider{src: src}
}

// Snapshot loads the catalog once. Lookups against the snapshot are pure;
// a cart that captured its prices from one snapshot keeps them even if the
// catalog changes afterwards.
func (p *Provider) Snapshot(ctx context.Context) (*Snapshot, error) {
	products, err := p.src.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	categories, err := p.src.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	snap := &Snapshot{
		products:   make(map[string]domain.Product, len(products)),
		categories: make(map[string]domain.Category, len(categories)),
	}
	for _, product := range products {
		snap.products[product.ID] = product
	}
	for _, category := range categories {
		snap.categories[category.ID] = category
	}
	return snap, nil
}

// Item is a product joined with the tax rate of its category.
type Item struct {
	Product        domain.Product
	TaxRatePercent decimal.Decimal
}

// Snapshot is an immutable view of the catalog at one point in time.
type Snapshot struct {
	products   map[string]domain.Product
	categories map[string]domain.Category
}

// Item resolves a sellable product. Unknown products and dangling category
// references are not found; inactive products fail validation. Products
// without a category carry a zero tax rate.
func (s *Snapshot) Item(productID string) (Item, error) {
	product, ok := s.products[productID]
	if !ok {
		return Item{}, fmt.Errorf("product %s: %w", productID, store.ErrNotFound)
	}
	if !product.Active {
		return Item{}, fmt.Errorf("%w: product %s is inactive", domain.ErrValidation, product.Name)
	}
	rate := decimal.Zero
	if product.CategoryID != "" {
		category, ok := s.categories[product.CategoryID]
		if !ok {
			return Item{}, fmt.Errorf("category %s: %w", product.CategoryID, store.ErrNotFound)
		}
		rate = category.TaxRate
	}
	return Item{Product: product, TaxRatePercent: rate}, nil
}

// Price returns the current unit price of a sellable product.
func (s *Snapshot) Price(productID string) (decimal.Decimal, error) {
	item, err := s.Item(productID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return item.Product.Price, nil
}

// TaxRate returns a category's tax-rate percent.
func (s *Snapshot) TaxRate(categoryID string) (decimal.Decimal, error) {
	category, ok := s.categories[categoryID]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("category %s: %w", categoryID, store.ErrNotFound)
	}
	return category.TaxRate, nil
}

// RateForProduct reports the tax-rate percent applied to a product's lines
// even when the product is no longer sellable. Unknown products and dangling
// category references fall back to zero, matching how persisted orders are
// re-totalled.
func (s *Snapshot) RateForProduct(productID string) decimal.Decimal {
	product, ok := s.products[productID]
	if !ok || product.CategoryID == "" {
		return decimal.Zero
	}
	category, ok := s.categories[product.CategoryID]
	if !ok {
		return decimal.Zero
	}
	return category.TaxRate
}

// ProductName reports a display name for a product id, falling back to the
// id itself for products that have left the catalog.
func (s *Snapshot) ProductName(productID string) string {
	if product, ok := s.products[productID]; ok {
		return product.Name
	}
	return productID
}
