package backend

import (
	"context"

	"kobo/internal/core"
)

// Store is the record store behind the data access façade. Every method is
// a single logical write or read; update and delete return core.ErrNotFound
// when the id does not exist.
type Store interface {
	// Snapshot loads all four tables: products and categories by name,
	// sales and expenses by date descending.
	Snapshot(ctx context.Context) (core.RawSnapshot, error)

	InsertExpense(ctx context.Context, in core.ExpenseInput) (int64, error)
	// ReplaceExpenses deletes every expense and inserts the given list.
	ReplaceExpenses(ctx context.Context, in []core.ExpenseInput) (int, error)

	InsertCategory(ctx context.Context, in core.CategoryInput) (int64, error)
	UpdateCategory(ctx context.Context, id int64, in core.CategoryInput) error
	DeleteCategory(ctx context.Context, id int64) error

	InsertProduct(ctx context.Context, in core.ProductInput) (int64, error)
	SetProductStock(ctx context.Context, id int64, quantity int) error
	CountSalesForProduct(ctx context.Context, id int64) (int, error)
	DeleteProduct(ctx context.Context, id int64) error

	// RecordSale inserts the sale row and decrements the product's stock by
	// the sale quantity as one unit of work.
	RecordSale(ctx context.Context, in core.SaleInput) (int64, error)

	Close() error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store instance and its cleanup function
type BackendResult struct {
	Store   Store
	Cleanup CleanupFunc
}

// Factory creates stores based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	DatabaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // minutes
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MemoryBackend   BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
