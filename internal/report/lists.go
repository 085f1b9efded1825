package report

import (
	"github.com/shopspring/decimal"

	"kobo/internal/core"
)

type ExpenseLine struct {
	ID          string          `json:"id"`
	Date        core.Date       `json:"date"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type SaleLine struct {
	ID          string          `json:"id"`
	Date        core.Date       `json:"date"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// ProductLine is a product with the stock status derived from its quantity.
type ProductLine struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	SKU             string          `json:"sku"`
	Category        string          `json:"category"`
	Supplier        string          `json:"supplier"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	QuantityInStock int             `json:"quantityInStock"`
	Status          StockStatus     `json:"status"`
}

// ExpenseList filters expenses the way FilterExpenses does. The result is
// never nil.
func ExpenseList(expenses []core.Expense, term, category string) []ExpenseLine {
	out := []ExpenseLine{}
	for _, e := range FilterExpenses(expenses, term, category) {
		out = append(out, ExpenseLine{
			ID: e.ID, Date: e.Date, Category: e.Category, Description: e.Description, Amount: e.Amount,
		})
	}
	return out
}

func SaleList(sales []core.Sale, term string) []SaleLine {
	out := []SaleLine{}
	for _, s := range FilterSales(sales, term) {
		out = append(out, SaleLine{
			ID: s.ID, Date: s.Date, ProductID: s.ProductID, ProductName: s.ProductName,
			Quantity: s.Quantity, UnitPrice: s.UnitPrice, TotalAmount: s.TotalAmount,
		})
	}
	return out
}

// ProductList filters products by term and, when status is set, keeps only
// the products in that stock status.
func ProductList(products []core.Product, term string, status StockStatus) []ProductLine {
	out := []ProductLine{}
	for _, p := range FilterProducts(products, term) {
		st := StockStatusOf(p.QuantityInStock)
		if status != "" && st != status {
			continue
		}
		out = append(out, ProductLine{
			ID: p.ID, Name: p.Name, SKU: p.SKU, Category: p.Category, Supplier: p.Supplier,
			UnitPrice: p.UnitPrice, QuantityInStock: p.QuantityInStock, Status: st,
		})
	}
	return out
}
