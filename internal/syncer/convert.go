package syncer

import (
	"github.com/shopspring/decimal"

	"kobo/internal/core"
)

// ToSnapshot converts raw store rows into core records. Ids become decimal
// strings, unparseable amounts become zero and missing sale fields take
// their zero values.
func ToSnapshot(raw core.RawSnapshot) *core.Snapshot {
	s := &core.Snapshot{
		Products:   make([]core.Product, 0, len(raw.Products)),
		Sales:      make([]core.Sale, 0, len(raw.Sales)),
		Expenses:   make([]core.Expense, 0, len(raw.Expenses)),
		Categories: make([]core.Category, 0, len(raw.Categories)),
	}
	for _, p := range raw.Products {
		s.Products = append(s.Products, core.Product{
			ID:              core.FormatID(p.ID),
			Name:            p.Name,
			SKU:             p.SKU,
			Category:        p.Category,
			Supplier:        p.Supplier,
			UnitPrice:       core.AmountOrZero(p.UnitPrice),
			QuantityInStock: p.QuantityInStock,
		})
	}
	for _, r := range raw.Sales {
		s.Sales = append(s.Sales, toSale(r))
	}
	for _, e := range raw.Expenses {
		date, _ := core.ParseDate(e.Date)
		s.Expenses = append(s.Expenses, core.Expense{
			ID:          core.FormatID(e.ID),
			Date:        date,
			Category:    e.Category,
			Description: e.Description,
			Amount:      core.AmountOrZero(e.Amount),
		})
	}
	for _, c := range raw.Categories {
		s.Categories = append(s.Categories, core.Category{
			ID:            core.FormatID(c.ID),
			Name:          c.Name,
			MonthlyBudget: core.AmountOrZero(c.MonthlyBudget),
		})
	}
	return s
}

func toSale(r core.SaleRow) core.Sale {
	date, _ := core.ParseDate(r.Date)
	sale := core.Sale{
		ID:          core.FormatID(r.ID),
		Date:        date,
		UnitPrice:   decimal.Zero,
		TotalAmount: decimal.Zero,
	}
	if r.ProductID != nil {
		sale.ProductID = core.FormatID(*r.ProductID)
	}
	if r.ProductName != nil {
		sale.ProductName = *r.ProductName
	}
	if r.Quantity != nil {
		sale.Quantity = *r.Quantity
	}
	if r.UnitPrice != nil {
		sale.UnitPrice = core.AmountOrZero(*r.UnitPrice)
	}
	if r.TotalAmount != nil {
		sale.TotalAmount = core.AmountOrZero(*r.TotalAmount)
	}
	return sale
}
