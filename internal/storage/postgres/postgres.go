// Package postgres implements the record store on PostgreSQL through gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"kobo/internal/core"
)

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type Repository struct {
	db *gorm.DB
}

// NewRepository connects, tunes the pool and migrates the four tables.
func NewRepository(ctx context.Context, dsn string, pool PoolConfig) (*Repository, error) {
	gormLogger := logger.New(
		slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&core.ProductRow{}, &core.SaleRow{}, &core.ExpenseRow{}, &core.CategoryRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *Repository) Snapshot(ctx context.Context) (core.RawSnapshot, error) {
	raw := core.EmptyRawSnapshot()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.db.WithContext(gctx).Order("name").Find(&raw.Products).Error
	})
	g.Go(func() error {
		return r.db.WithContext(gctx).Order("date DESC").Order("id DESC").Find(&raw.Sales).Error
	})
	g.Go(func() error {
		return r.db.WithContext(gctx).Order("date DESC").Order("id DESC").Find(&raw.Expenses).Error
	})
	g.Go(func() error {
		return r.db.WithContext(gctx).Order("name").Find(&raw.Categories).Error
	})
	if err := g.Wait(); err != nil {
		return core.EmptyRawSnapshot(), fmt.Errorf("load snapshot: %w", err)
	}

	// DATE columns come back as timestamps.
	for i := range raw.Sales {
		raw.Sales[i].Date = dayOnly(raw.Sales[i].Date)
	}
	for i := range raw.Expenses {
		raw.Expenses[i].Date = dayOnly(raw.Expenses[i].Date)
	}
	return raw, nil
}

func (r *Repository) InsertExpense(ctx context.Context, in core.ExpenseInput) (int64, error) {
	row := expenseRow(in)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	return row.ID, nil
}

func (r *Repository) ReplaceExpenses(ctx context.Context, in []core.ExpenseInput) (int, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&core.ExpenseRow{}).Error; err != nil {
			return fmt.Errorf("delete expenses: %w", err)
		}
		if len(in) == 0 {
			return nil
		}
		rows := make([]core.ExpenseRow, 0, len(in))
		for _, e := range in {
			rows = append(rows, expenseRow(e))
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert expenses: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(in), nil
}

func (r *Repository) InsertCategory(ctx context.Context, in core.CategoryInput) (int64, error) {
	row := core.CategoryRow{
		Name:          strings.TrimSpace(in.Name),
		MonthlyBudget: core.StoreString(in.MonthlyBudget),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("insert category: %w", translate(err))
	}
	return row.ID, nil
}

func (r *Repository) UpdateCategory(ctx context.Context, id int64, in core.CategoryInput) error {
	res := r.db.WithContext(ctx).Model(&core.CategoryRow{}).Where("id = ?", id).Updates(map[string]any{
		"name":           strings.TrimSpace(in.Name),
		"monthly_budget": core.StoreString(in.MonthlyBudget),
		"updated_at":     time.Now().UTC(),
	})
	if res.Error != nil {
		return fmt.Errorf("update category: %w", translate(res.Error))
	}
	return requireAffected(res.RowsAffected)
}

func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&core.CategoryRow{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete category: %w", res.Error)
	}
	return requireAffected(res.RowsAffected)
}

func (r *Repository) InsertProduct(ctx context.Context, in core.ProductInput) (int64, error) {
	row := core.ProductRow{
		Name:            strings.TrimSpace(in.Name),
		SKU:             strings.TrimSpace(in.SKU),
		Category:        strings.TrimSpace(in.Category),
		Supplier:        strings.TrimSpace(in.Supplier),
		UnitPrice:       core.StoreString(in.UnitPrice),
		QuantityInStock: in.QuantityInStock,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("insert product: %w", translate(err))
	}
	return row.ID, nil
}

func (r *Repository) SetProductStock(ctx context.Context, id int64, quantity int) error {
	res := r.db.WithContext(ctx).Model(&core.ProductRow{}).Where("id = ?", id).Updates(map[string]any{
		"quantity_in_stock": quantity,
		"updated_at":        time.Now().UTC(),
	})
	if res.Error != nil {
		return fmt.Errorf("update product stock: %w", res.Error)
	}
	return requireAffected(res.RowsAffected)
}

func (r *Repository) CountSalesForProduct(ctx context.Context, id int64) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&core.SaleRow{}).Where("product_id = ?", id).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count sales: %w", err)
	}
	return int(n), nil
}

func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&core.ProductRow{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete product: %w", res.Error)
	}
	return requireAffected(res.RowsAffected)
}

// RecordSale inserts the sale and decrements stock inside one transaction.
func (r *Repository) RecordSale(ctx context.Context, in core.SaleInput) (int64, error) {
	productID, err := core.ParseID(in.ProductID)
	if err != nil {
		return 0, err
	}
	name := in.ProductName
	quantity := in.Quantity
	unitPrice, total := in.StoredAmounts()
	row := core.SaleRow{
		Date:        in.Date.String(),
		ProductID:   &productID,
		ProductName: &name,
		Quantity:    &quantity,
		UnitPrice:   &unitPrice,
		TotalAmount: &total,
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
		res := tx.Model(&core.ProductRow{}).Where("id = ?", productID).Updates(map[string]any{
			"quantity_in_stock": gorm.Expr("quantity_in_stock - ?", in.Quantity),
			"updated_at":        time.Now().UTC(),
		})
		if res.Error != nil {
			return fmt.Errorf("decrement stock: %w", res.Error)
		}
		if err := requireAffected(res.RowsAffected); err != nil {
			return fmt.Errorf("product %d: %w", productID, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return row.ID, nil
}

func expenseRow(in core.ExpenseInput) core.ExpenseRow {
	return core.ExpenseRow{
		Date:        in.Date.String(),
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		Amount:      core.StoreString(in.Amount),
	}
}

func requireAffected(n int64) error {
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Join(core.ErrDuplicate, err)
	}
	return err
}

func dayOnly(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}
