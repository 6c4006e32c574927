package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/store"
)

type staticSource struct {
	products   []domain.Product
	categories []domain.Category
}

func (s staticSource) ListProducts(context.Context) ([]domain.Product, error) {
	return s.products, nil
}

func (s staticSource) ListCategories(context.Context) ([]domain.Category, error) {
	return s.categories, nil
}

func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	src := staticSource{
		products: []domain.Product{
			{ID: "p-coffee", Name: "Coffee", CategoryID: "c-drinks", Price: decimal.RequireFromString("10.00"), Active: true},
			{ID: "p-mug", Name: "Mug", Price: decimal.RequireFromString("4.50"), Active: true},
			{ID: "p-retired", Name: "Retired", CategoryID: "c-drinks", Price: decimal.RequireFromString("1.00"), Active: false},
		},
		categories: []domain.Category{
			{ID: "c-drinks", Name: "Drinks", TaxRate: decimal.RequireFromString("14")},
		},
	}
	snap, err := NewProvider(src).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return snap
}

func TestSnapshotResolvesPriceAndTaxRate(t *testing.T) {
	snap := testSnapshot(t)

	price, err := snap.Price("p-coffee")
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if price.StringFixed(2) != "10.00" {
		t.Fatalf("price = %s, want 10.00", price.StringFixed(2))
	}

	rate, err := snap.TaxRate("c-drinks")
	if err != nil {
		t.Fatalf("tax rate: %v", err)
	}
	if !rate.Equal(decimal.RequireFromString("14")) {
		t.Fatalf("tax rate = %s, want 14", rate)
	}

	item, err := snap.Item("p-coffee")
	if err != nil {
		t.Fatalf("item: %v", err)
	}
	if !item.TaxRatePercent.Equal(rate) {
		t.Fatalf("item rate = %s, want %s", item.TaxRatePercent, rate)
	}
}

func TestSnapshotUncategorizedProductHasZeroRate(t *testing.T) {
	snap := testSnapshot(t)
	item, err := snap.Item("p-mug")
	if err != nil {
		t.Fatalf("item: %v", err)
	}
	if !item.TaxRatePercent.IsZero() {
		t.Fatalf("expected zero tax rate, got %s", item.TaxRatePercent)
	}
}

func TestSnapshotUnknownLookupsFail(t *testing.T) {
	snap := testSnapshot(t)
	if _, err := snap.Price("ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for unknown product, got %v", err)
	}
	if _, err := snap.TaxRate("ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for unknown category, got %v", err)
	}
}

func TestSnapshotInactiveProductFailsValidation(t *testing.T) {
	snap := testSnapshot(t)
	if _, err := snap.Item("p-retired"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for inactive product, got %v", err)
	}
}
