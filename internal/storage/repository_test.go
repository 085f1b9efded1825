package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"kobo/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "kobo.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kobo.db")
	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		repo.Close()
	}
}

func TestSQLiteSnapshotEmpty(t *testing.T) {
	repo := newTestRepo(t)
	raw, err := repo.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if raw.Products == nil || raw.Sales == nil || raw.Expenses == nil || raw.Categories == nil {
		t.Fatalf("empty tables must yield empty, non-nil slices: %+v", raw)
	}
}

func TestSQLiteRecordSaleTransaction(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	pid, err := repo.InsertProduct(ctx, core.ProductInput{
		Name: "Spice Mix Original", SKU: "SMO-1", Category: "Spices", Supplier: "Ibadan",
		UnitPrice: decimal.RequireFromString("2500.00"), QuantityInStock: 50,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := repo.RecordSale(ctx, core.SaleInput{
		Date: core.NewDate(2025, 5, 3), ProductID: core.FormatID(pid), ProductName: "Spice Mix Original",
		Quantity: 10, UnitPrice: decimal.RequireFromString("2500.00"),
	}); err != nil {
		t.Fatalf("record sale: %v", err)
	}

	raw, err := repo.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if raw.Products[0].QuantityInStock != 40 {
		t.Fatalf("stock = %d, want 40", raw.Products[0].QuantityInStock)
	}
	if len(raw.Sales) != 1 || *raw.Sales[0].TotalAmount != "25000.00" || raw.Sales[0].Date != "2025-05-03" {
		t.Fatalf("unexpected sale rows: %+v", raw.Sales)
	}
	if raw.Sales[0].CreatedAt.IsZero() {
		t.Fatalf("created_at not populated")
	}

	// Unknown product rolls back the inserted sale.
	if _, err := repo.RecordSale(ctx, core.SaleInput{
		Date: core.NewDate(2025, 5, 4), ProductID: "999", Quantity: 1, UnitPrice: decimal.NewFromInt(1),
	}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if n, _ := repo.CountSalesForProduct(ctx, 999); n != 0 {
		t.Fatalf("rolled back sale is visible")
	}
}

func TestSQLiteRecordSaleRoundsPrice(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	pid, err := repo.InsertProduct(ctx, core.ProductInput{
		Name: "Chili Oil", SKU: "CO-1", UnitPrice: decimal.RequireFromString("1.01"), QuantityInStock: 5,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.RecordSale(ctx, core.SaleInput{
		Date: core.NewDate(2025, 5, 3), ProductID: core.FormatID(pid), ProductName: "Chili Oil",
		Quantity: 2, UnitPrice: decimal.RequireFromString("1.005"),
	}); err != nil {
		t.Fatalf("record sale: %v", err)
	}

	raw, err := repo.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	price := core.AmountOrZero(*raw.Sales[0].UnitPrice)
	total := core.AmountOrZero(*raw.Sales[0].TotalAmount)
	if !price.Equal(decimal.RequireFromString("1.01")) || !total.Equal(decimal.RequireFromString("2.02")) {
		t.Fatalf("stored %s x 2 = %s", price, total)
	}
}

func TestSQLiteCategoryAndProductMutations(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	cid, err := repo.InsertCategory(ctx, core.CategoryInput{Name: "Packaging", MonthlyBudget: decimal.NewFromInt(30000)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.InsertCategory(ctx, core.CategoryInput{Name: "Packaging"}); !errors.Is(err, core.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := repo.UpdateCategory(ctx, cid, core.CategoryInput{Name: "Boxes", MonthlyBudget: decimal.NewFromInt(100)}); err != nil {
		t.Fatal(err)
	}
	if err := repo.UpdateCategory(ctx, cid+100, core.CategoryInput{Name: "Nope"}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	pid, err := repo.InsertProduct(ctx, core.ProductInput{Name: "Chili Oil", SKU: "CO-1", UnitPrice: decimal.NewFromInt(1500), QuantityInStock: 3})
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.SetProductStock(ctx, pid, 12); err != nil {
		t.Fatal(err)
	}

	raw, _ := repo.Snapshot(ctx)
	if raw.Categories[0].Name != "Boxes" || raw.Categories[0].MonthlyBudget != "100.00" {
		t.Fatalf("category not updated: %+v", raw.Categories)
	}
	if raw.Products[0].QuantityInStock != 12 {
		t.Fatalf("stock not set: %+v", raw.Products)
	}

	if err := repo.DeleteProduct(ctx, pid); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteCategory(ctx, cid); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteCategory(ctx, cid); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteReplaceExpenses(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.InsertExpense(ctx, core.ExpenseInput{Date: core.NewDate(2024, 1, 2), Category: "Old", Description: "x", Amount: decimal.NewFromInt(1)}); err != nil {
		t.Fatal(err)
	}
	n, err := repo.ReplaceExpenses(ctx, []core.ExpenseInput{
		{Date: core.NewDate(2025, 5, 3), Category: "Packaging", Description: "Bottles", Amount: decimal.RequireFromString("4000.00")},
		{Date: core.NewDate(2025, 6, 10), Category: "Marketing", Description: "Data", Amount: decimal.RequireFromString("5000.00")},
	})
	if err != nil || n != 2 {
		t.Fatalf("ReplaceExpenses = %d, %v", n, err)
	}

	raw, _ := repo.Snapshot(ctx)
	if len(raw.Expenses) != 2 || raw.Expenses[0].Date != "2025-06-10" {
		t.Fatalf("unexpected expenses: %+v", raw.Expenses)
	}
	if raw.Expenses[1].Amount != "4000.00" {
		t.Fatalf("amount = %s", raw.Expenses[1].Amount)
	}
}
