// Package export holds the outbound ports the export worker writes through.
package export

import (
	"context"

	"kobo/internal/core"
)

// Ports for outbound adapters.
type (
	SaleWriter interface {
		AppendSale(ctx context.Context, s core.Sale) (rowRef string, err error)
	}

	ExpenseWriter interface {
		AppendExpense(ctx context.Context, e core.Expense) (rowRef string, err error)
	}

	// RowWriter appends both record kinds, one row per record.
	RowWriter interface {
		SaleWriter
		ExpenseWriter
	}
)
