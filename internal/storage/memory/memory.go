// Package memory is a process-local record store used for development,
// demos and tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"kobo/internal/core"
)

type Store struct {
	mu         sync.Mutex
	now        func() time.Time
	nextID     map[string]int64
	products   []core.ProductRow
	sales      []core.SaleRow
	expenses   []core.ExpenseRow
	categories []core.CategoryRow
}

func New() *Store {
	return &Store{
		now:    time.Now,
		nextID: map[string]int64{},
	}
}

func (s *Store) Close() error { return nil }

// Snapshot returns copies of all four tables in the same order the SQL
// stores use.
func (s *Store) Snapshot(_ context.Context) (core.RawSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := core.RawSnapshot{
		Products:   slices.Clone(s.products),
		Sales:      make([]core.SaleRow, len(s.sales)),
		Expenses:   slices.Clone(s.expenses),
		Categories: slices.Clone(s.categories),
	}
	for i, row := range s.sales {
		raw.Sales[i] = cloneSale(row)
	}
	if raw.Products == nil {
		raw.Products = []core.ProductRow{}
	}
	if raw.Expenses == nil {
		raw.Expenses = []core.ExpenseRow{}
	}
	if raw.Categories == nil {
		raw.Categories = []core.CategoryRow{}
	}

	slices.SortStableFunc(raw.Products, func(a, b core.ProductRow) int { return cmp.Compare(a.Name, b.Name) })
	slices.SortStableFunc(raw.Categories, func(a, b core.CategoryRow) int { return cmp.Compare(a.Name, b.Name) })
	slices.SortFunc(raw.Sales, func(a, b core.SaleRow) int {
		return cmp.Or(cmp.Compare(b.Date, a.Date), cmp.Compare(b.ID, a.ID))
	})
	slices.SortFunc(raw.Expenses, func(a, b core.ExpenseRow) int {
		return cmp.Or(cmp.Compare(b.Date, a.Date), cmp.Compare(b.ID, a.ID))
	})
	return raw, nil
}

func (s *Store) InsertExpense(_ context.Context, in core.ExpenseInput) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.expenseRow(in)
	s.expenses = append(s.expenses, row)
	return row.ID, nil
}

func (s *Store) ReplaceExpenses(_ context.Context, in []core.ExpenseInput) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]core.ExpenseRow, 0, len(in))
	for _, e := range in {
		rows = append(rows, s.expenseRow(e))
	}
	s.expenses = rows
	return len(rows), nil
}

func (s *Store) InsertCategory(_ context.Context, in core.CategoryInput) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := strings.TrimSpace(in.Name)
	if s.categoryIndexByName(name) >= 0 {
		return 0, fmt.Errorf("category %q: %w", name, core.ErrDuplicate)
	}
	now := s.now().UTC()
	row := core.CategoryRow{
		ID:            s.next("categories"),
		Name:          name,
		MonthlyBudget: core.StoreString(in.MonthlyBudget),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.categories = append(s.categories, row)
	return row.ID, nil
}

func (s *Store) UpdateCategory(_ context.Context, id int64, in core.CategoryInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.categories, func(c core.CategoryRow) bool { return c.ID == id })
	if i < 0 {
		return core.ErrNotFound
	}
	name := strings.TrimSpace(in.Name)
	if j := s.categoryIndexByName(name); j >= 0 && j != i {
		return fmt.Errorf("category %q: %w", name, core.ErrDuplicate)
	}
	s.categories[i].Name = name
	s.categories[i].MonthlyBudget = core.StoreString(in.MonthlyBudget)
	s.categories[i].UpdatedAt = s.now().UTC()
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.categories, func(c core.CategoryRow) bool { return c.ID == id })
	if i < 0 {
		return core.ErrNotFound
	}
	s.categories = slices.Delete(s.categories, i, i+1)
	return nil
}

func (s *Store) InsertProduct(_ context.Context, in core.ProductInput) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sku := strings.TrimSpace(in.SKU)
	if slices.ContainsFunc(s.products, func(p core.ProductRow) bool { return p.SKU == sku }) {
		return 0, fmt.Errorf("product sku %q: %w", sku, core.ErrDuplicate)
	}
	now := s.now().UTC()
	row := core.ProductRow{
		ID:              s.next("products"),
		Name:            strings.TrimSpace(in.Name),
		SKU:             sku,
		Category:        strings.TrimSpace(in.Category),
		Supplier:        strings.TrimSpace(in.Supplier),
		UnitPrice:       core.StoreString(in.UnitPrice),
		QuantityInStock: in.QuantityInStock,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.products = append(s.products, row)
	return row.ID, nil
}

func (s *Store) SetProductStock(_ context.Context, id int64, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.productIndex(id)
	if i < 0 {
		return core.ErrNotFound
	}
	s.products[i].QuantityInStock = quantity
	s.products[i].UpdatedAt = s.now().UTC()
	return nil
}

func (s *Store) CountSalesForProduct(_ context.Context, id int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sale := range s.sales {
		if sale.ProductID != nil && *sale.ProductID == id {
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.productIndex(id)
	if i < 0 {
		return core.ErrNotFound
	}
	s.products = slices.Delete(s.products, i, i+1)
	return nil
}

// RecordSale performs the insert and the stock decrement under one lock.
func (s *Store) RecordSale(_ context.Context, in core.SaleInput) (int64, error) {
	productID, err := core.ParseID(in.ProductID)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.productIndex(productID)
	if i < 0 {
		return 0, fmt.Errorf("product %d: %w", productID, core.ErrNotFound)
	}

	now := s.now().UTC()
	name := in.ProductName
	quantity := in.Quantity
	unitPrice, total := in.StoredAmounts()
	row := core.SaleRow{
		ID:          s.next("sales"),
		Date:        in.Date.String(),
		ProductID:   &productID,
		ProductName: &name,
		Quantity:    &quantity,
		UnitPrice:   &unitPrice,
		TotalAmount: &total,
		CreatedAt:   now,
	}
	s.sales = append(s.sales, row)
	s.products[i].QuantityInStock -= in.Quantity
	s.products[i].UpdatedAt = now
	return row.ID, nil
}

func (s *Store) expenseRow(in core.ExpenseInput) core.ExpenseRow {
	return core.ExpenseRow{
		ID:          s.next("expenses"),
		Date:        in.Date.String(),
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		Amount:      core.StoreString(in.Amount),
		CreatedAt:   s.now().UTC(),
	}
}

func (s *Store) next(table string) int64 {
	s.nextID[table]++
	return s.nextID[table]
}

func (s *Store) productIndex(id int64) int {
	return slices.IndexFunc(s.products, func(p core.ProductRow) bool { return p.ID == id })
}

func (s *Store) categoryIndexByName(name string) int {
	return slices.IndexFunc(s.categories, func(c core.CategoryRow) bool { return c.Name == name })
}

func cloneSale(row core.SaleRow) core.SaleRow {
	out := row
	if row.ProductID != nil {
		v := *row.ProductID
		out.ProductID = &v
	}
	if row.ProductName != nil {
		v := *row.ProductName
		out.ProductName = &v
	}
	if row.Quantity != nil {
		v := *row.Quantity
		out.Quantity = &v
	}
	if row.UnitPrice != nil {
		v := *row.UnitPrice
		out.UnitPrice = &v
	}
	if row.TotalAmount != nil {
		v := *row.TotalAmount
		out.TotalAmount = &v
	}
	return out
}
