package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"kobo/internal/core"

	_ "modernc.org/sqlite"
)

const (
	selectProducts   = `SELECT id, name, sku, category, supplier, unit_price, quantity_in_stock, created_at, updated_at FROM products ORDER BY name`
	selectSales      = `SELECT id, date, product_id, product_name, quantity, unit_price, total_amount, created_at FROM sales ORDER BY date DESC, id DESC`
	selectExpenses   = `SELECT id, date, category, description, amount, created_at FROM expenses ORDER BY date DESC, id DESC`
	selectCategories = `SELECT id, name, monthly_budget, created_at, updated_at FROM categories ORDER BY name`

	insertExpense  = `INSERT INTO expenses (date, category, description, amount) VALUES (:date, :category, :description, :amount)`
	insertCategory = `INSERT INTO categories (name, monthly_budget) VALUES (:name, :monthly_budget)`
	insertProduct  = `INSERT INTO products (name, sku, category, supplier, unit_price, quantity_in_stock)
		VALUES (:name, :sku, :category, :supplier, :unit_price, :quantity_in_stock)`
	insertSale = `INSERT INTO sales (date, product_id, product_name, quantity, unit_price, total_amount)
		VALUES (:date, :product_id, :product_name, :quantity, :unit_price, :total_amount)`
)

type SQLiteRepository struct {
	db *sqlx.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations before the main connection is opened
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Snapshot reads the four tables concurrently.
func (r *SQLiteRepository) Snapshot(ctx context.Context) (core.RawSnapshot, error) {
	raw := core.EmptyRawSnapshot()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.db.SelectContext(gctx, &raw.Products, selectProducts); err != nil {
			return fmt.Errorf("select products: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := r.db.SelectContext(gctx, &raw.Sales, selectSales); err != nil {
			return fmt.Errorf("select sales: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := r.db.SelectContext(gctx, &raw.Expenses, selectExpenses); err != nil {
			return fmt.Errorf("select expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := r.db.SelectContext(gctx, &raw.Categories, selectCategories); err != nil {
			return fmt.Errorf("select categories: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.EmptyRawSnapshot(), err
	}
	return raw, nil
}

func (r *SQLiteRepository) InsertExpense(ctx context.Context, in core.ExpenseInput) (int64, error) {
	res, err := r.db.NamedExecContext(ctx, insertExpense, expenseRow(in))
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite", "id", id, "category", in.Category)
	return id, nil
}

// ReplaceExpenses clears the table and inserts the list in one transaction.
func (r *SQLiteRepository) ReplaceExpenses(ctx context.Context, in []core.ExpenseInput) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses`); err != nil {
		return 0, fmt.Errorf("delete expenses: %w", err)
	}
	for _, e := range in {
		if _, err := tx.NamedExecContext(ctx, insertExpense, expenseRow(e)); err != nil {
			return 0, fmt.Errorf("insert expense: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return len(in), nil
}

func (r *SQLiteRepository) InsertCategory(ctx context.Context, in core.CategoryInput) (int64, error) {
	res, err := r.db.NamedExecContext(ctx, insertCategory, core.CategoryRow{
		Name:          strings.TrimSpace(in.Name),
		MonthlyBudget: core.StoreString(in.MonthlyBudget),
	})
	if err != nil {
		return 0, fmt.Errorf("insert category: %w", translate(err))
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, id int64, in core.CategoryInput) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, monthly_budget = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		strings.TrimSpace(in.Name), core.StoreString(in.MonthlyBudget), id)
	if err != nil {
		return fmt.Errorf("update category: %w", translate(err))
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) InsertProduct(ctx context.Context, in core.ProductInput) (int64, error) {
	res, err := r.db.NamedExecContext(ctx, insertProduct, core.ProductRow{
		Name:            strings.TrimSpace(in.Name),
		SKU:             strings.TrimSpace(in.SKU),
		Category:        strings.TrimSpace(in.Category),
		Supplier:        strings.TrimSpace(in.Supplier),
		UnitPrice:       core.StoreString(in.UnitPrice),
		QuantityInStock: in.QuantityInStock,
	})
	if err != nil {
		return 0, fmt.Errorf("insert product: %w", translate(err))
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) SetProductStock(ctx context.Context, id int64, quantity int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET quantity_in_stock = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, quantity, id)
	if err != nil {
		return fmt.Errorf("update product stock: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) CountSalesForProduct(ctx context.Context, id int64) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM sales WHERE product_id = ?`, id); err != nil {
		return 0, fmt.Errorf("count sales: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) DeleteProduct(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return requireAffected(res)
}

// RecordSale inserts the sale and decrements stock in one transaction.
func (r *SQLiteRepository) RecordSale(ctx context.Context, in core.SaleInput) (int64, error) {
	row, err := saleRow(in)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.NamedExecContext(ctx, insertSale, row)
	if err != nil {
		return 0, fmt.Errorf("insert sale: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert sale: %w", err)
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE products SET quantity_in_stock = quantity_in_stock - ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		in.Quantity, *row.ProductID)
	if err != nil {
		return 0, fmt.Errorf("decrement stock: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return 0, fmt.Errorf("product %d: %w", *row.ProductID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return id, nil
}

func expenseRow(in core.ExpenseInput) core.ExpenseRow {
	return core.ExpenseRow{
		Date:        in.Date.String(),
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		Amount:      core.StoreString(in.Amount),
	}
}

func saleRow(in core.SaleInput) (core.SaleRow, error) {
	productID, err := core.ParseID(in.ProductID)
	if err != nil {
		return core.SaleRow{}, err
	}
	name := in.ProductName
	quantity := in.Quantity
	unitPrice, total := in.StoredAmounts()
	return core.SaleRow{
		Date:        in.Date.String(),
		ProductID:   &productID,
		ProductName: &name,
		Quantity:    &quantity,
		UnitPrice:   &unitPrice,
		TotalAmount: &total,
	}, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func translate(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return errors.Join(core.ErrDuplicate, err)
	}
	return err
}
