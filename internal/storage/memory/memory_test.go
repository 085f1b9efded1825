package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"kobo/internal/core"
)

func mustProduct(t *testing.T, s *Store, name, sku string, stock int) int64 {
	t.Helper()
	id, err := s.InsertProduct(context.Background(), core.ProductInput{
		Name: name, SKU: sku, UnitPrice: decimal.RequireFromString("2500"), QuantityInStock: stock,
	})
	if err != nil {
		t.Fatalf("insert product: %v", err)
	}
	return id
}

func TestSnapshotOrdering(t *testing.T) {
	ctx := context.Background()
	s := New()
	mustProduct(t, s, "Spice Mix Original", "SMO", 50)
	mustProduct(t, s, "Chili Oil", "CO", 5)

	for _, d := range []core.Date{core.NewDate(2025, 5, 3), core.NewDate(2025, 6, 10), core.NewDate(2025, 5, 20)} {
		if _, err := s.InsertExpense(ctx, core.ExpenseInput{Date: d, Category: "Packaging", Description: "Bottles", Amount: decimal.NewFromInt(100)}); err != nil {
			t.Fatal(err)
		}
	}

	raw, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if raw.Products[0].Name != "Chili Oil" {
		t.Fatalf("products not ordered by name: %+v", raw.Products)
	}
	if raw.Expenses[0].Date != "2025-06-10" || raw.Expenses[2].Date != "2025-05-03" {
		t.Fatalf("expenses not ordered by date desc: %+v", raw.Expenses)
	}
	if raw.Sales == nil || raw.Categories == nil {
		t.Fatalf("empty collections must be non-nil")
	}
}

func TestSnapshotOrdersSameDayByNewestID(t *testing.T) {
	ctx := context.Background()
	s := New()
	pid := mustProduct(t, s, "Spice Mix Original", "SMO", 50)
	day := core.NewDate(2025, 5, 3)

	for _, desc := range []string{"first", "second", "third"} {
		if _, err := s.InsertExpense(ctx, core.ExpenseInput{Date: day, Category: "Packaging", Description: desc, Amount: decimal.NewFromInt(1)}); err != nil {
			t.Fatal(err)
		}
		if _, err := s.RecordSale(ctx, core.SaleInput{Date: day, ProductID: core.FormatID(pid), ProductName: desc, Quantity: 1, UnitPrice: decimal.NewFromInt(1)}); err != nil {
			t.Fatal(err)
		}
	}

	raw, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []string{"third", "second", "first"} {
		if raw.Expenses[i].Description != want {
			t.Fatalf("expense %d = %s, want %s", i, raw.Expenses[i].Description, want)
		}
		if *raw.Sales[i].ProductName != want {
			t.Fatalf("sale %d = %s, want %s", i, *raw.Sales[i].ProductName, want)
		}
	}
}

func TestRecordSaleStoresRoundedPrice(t *testing.T) {
	ctx := context.Background()
	s := New()
	pid := mustProduct(t, s, "Chili Oil", "CO", 5)

	if _, err := s.RecordSale(ctx, core.SaleInput{
		Date: core.NewDate(2025, 5, 3), ProductID: core.FormatID(pid), ProductName: "Chili Oil",
		Quantity: 2, UnitPrice: decimal.RequireFromString("1.005"),
	}); err != nil {
		t.Fatal(err)
	}

	raw, _ := s.Snapshot(ctx)
	if *raw.Sales[0].UnitPrice != "1.01" || *raw.Sales[0].TotalAmount != "2.02" {
		t.Fatalf("stored %s x 2 = %s", *raw.Sales[0].UnitPrice, *raw.Sales[0].TotalAmount)
	}
}

func TestRecordSaleDecrementsStock(t *testing.T) {
	ctx := context.Background()
	s := New()
	pid := mustProduct(t, s, "Spice Mix Original", "SMO", 50)

	_, err := s.RecordSale(ctx, core.SaleInput{
		Date:        core.NewDate(2025, 5, 3),
		ProductID:   core.FormatID(pid),
		ProductName: "Spice Mix Original",
		Quantity:    10,
		UnitPrice:   decimal.RequireFromString("2500.00"),
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}

	raw, _ := s.Snapshot(ctx)
	if raw.Products[0].QuantityInStock != 40 {
		t.Fatalf("stock = %d, want 40", raw.Products[0].QuantityInStock)
	}
	if got := *raw.Sales[0].TotalAmount; got != "25000.00" {
		t.Fatalf("total = %s", got)
	}
	if n, _ := s.CountSalesForProduct(ctx, pid); n != 1 {
		t.Fatalf("sales count = %d", n)
	}

	if _, err := s.RecordSale(ctx, core.SaleInput{Date: core.NewDate(2025, 5, 3), ProductID: "99", Quantity: 1}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown product, got %v", err)
	}
	raw, _ = s.Snapshot(ctx)
	if len(raw.Sales) != 1 {
		t.Fatalf("failed sale must not be stored")
	}
}

func TestCategoryLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	id, err := s.InsertCategory(ctx, core.CategoryInput{Name: "Marketing", MonthlyBudget: decimal.NewFromInt(10000)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.InsertCategory(ctx, core.CategoryInput{Name: "Marketing"}); !errors.Is(err, core.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := s.UpdateCategory(ctx, id, core.CategoryInput{Name: "Ads", MonthlyBudget: decimal.NewFromInt(5000)}); err != nil {
		t.Fatal(err)
	}
	raw, _ := s.Snapshot(ctx)
	if raw.Categories[0].Name != "Ads" || raw.Categories[0].MonthlyBudget != "5000.00" {
		t.Fatalf("update not applied: %+v", raw.Categories[0])
	}
	if err := s.UpdateCategory(ctx, 42, core.CategoryInput{Name: "x"}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteCategory(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteCategory(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestReplaceExpenses(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, _ = s.InsertExpense(ctx, core.ExpenseInput{Date: core.NewDate(2024, 1, 1), Category: "Old", Description: "gone", Amount: decimal.NewFromInt(1)})

	n, err := s.ReplaceExpenses(ctx, []core.ExpenseInput{
		{Date: core.NewDate(2025, 5, 3), Category: "Packaging", Description: "Ziplock bag", Amount: decimal.NewFromInt(2500)},
		{Date: core.NewDate(2025, 5, 3), Category: "Logistics", Description: "Delivery", Amount: decimal.NewFromInt(15000)},
	})
	if err != nil || n != 2 {
		t.Fatalf("ReplaceExpenses = %d, %v", n, err)
	}
	raw, _ := s.Snapshot(ctx)
	if len(raw.Expenses) != 2 {
		t.Fatalf("expected only replacement rows, got %d", len(raw.Expenses))
	}
	for _, e := range raw.Expenses {
		if e.Category == "Old" {
			t.Fatalf("old expense survived replace")
		}
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	mustProduct(t, s, "A", "A1", 5)
	raw, _ := s.Snapshot(ctx)
	raw.Products[0].QuantityInStock = 999

	again, _ := s.Snapshot(ctx)
	if again.Products[0].QuantityInStock != 5 {
		t.Fatalf("snapshot aliases store state")
	}
}
