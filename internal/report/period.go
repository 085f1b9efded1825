package report

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kobo/internal/core"
)

// cogsRate approximates cost of goods sold as a fixed share of revenue.
var cogsRate = decimal.RequireFromString("0.6")

type ProductQuantity struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Summary is the monthly report for one calendar month.
type Summary struct {
	Year             int               `json:"year"`
	Month            time.Month        `json:"month"`
	Revenue          decimal.Decimal   `json:"revenue"`
	Expenses         decimal.Decimal   `json:"expenses"`
	CostOfGoodsSold  decimal.Decimal   `json:"costOfGoodsSold"`
	GrossProfit      decimal.Decimal   `json:"grossProfit"`
	NetProfit        decimal.Decimal   `json:"netProfit"`
	TopSelling       []ProductQuantity `json:"topSelling"`
	ExpenseBreakdown []CategoryShare   `json:"expenseBreakdown"`
	SalesCount       int               `json:"salesCount"`
	ExpenseCount     int               `json:"expenseCount"`
}

// PeriodSummary reports on the sales and expenses dated in the given month.
func PeriodSummary(s *core.Snapshot, year int, month time.Month) Summary {
	if s == nil {
		s = core.EmptySnapshot()
	}
	var sales []core.Sale
	for _, sale := range s.Sales {
		if sale.Date.InMonth(year, month) {
			sales = append(sales, sale)
		}
	}
	var expenses []core.Expense
	for _, e := range s.Expenses {
		if e.Date.InMonth(year, month) {
			expenses = append(expenses, e)
		}
	}

	revenue := SumSales(sales)
	spent := SumExpenses(expenses)
	cogs := revenue.Mul(cogsRate)
	return Summary{
		Year:             year,
		Month:            month,
		Revenue:          revenue,
		Expenses:         spent,
		CostOfGoodsSold:  cogs,
		GrossProfit:      revenue.Sub(cogs),
		NetProfit:        revenue.Sub(spent),
		TopSelling:       topByQuantity(sales, DefaultTopN),
		ExpenseBreakdown: CategoryBreakdown(expenses),
		SalesCount:       len(sales),
		ExpenseCount:     len(expenses),
	}
}

func topByQuantity(sales []core.Sale, n int) []ProductQuantity {
	var ranked []ProductQuantity
	index := map[string]int{}
	for _, s := range sales {
		i, ok := index[s.ProductName]
		if !ok {
			i = len(ranked)
			index[s.ProductName] = i
			ranked = append(ranked, ProductQuantity{Name: s.ProductName})
		}
		ranked[i].Quantity += s.Quantity
	}
	slices.SortStableFunc(ranked, func(a, b ProductQuantity) int {
		return b.Quantity - a.Quantity
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

type StockStatus string

const (
	OutOfStock     StockStatus = "Out of Stock"
	LowStockStatus StockStatus = "Low Stock"
	InStock        StockStatus = "In Stock"
)

// LowStockThreshold is the stock level below which a product is flagged.
const LowStockThreshold = 10

func StockStatusOf(quantity int) StockStatus {
	switch {
	case quantity == 0:
		return OutOfStock
	case quantity < LowStockThreshold:
		return LowStockStatus
	default:
		return InStock
	}
}

// LowStock returns the products below LowStockThreshold, including those
// driven negative.
func LowStock(products []core.Product) []core.Product {
	var out []core.Product
	for _, p := range products {
		if p.QuantityInStock < LowStockThreshold {
			out = append(out, p)
		}
	}
	return out
}

// FilterExpenses matches term against description and category, case
// insensitively. category "" or "all" matches every category exactly.
func FilterExpenses(expenses []core.Expense, term, category string) []core.Expense {
	term = strings.ToLower(term)
	var out []core.Expense
	for _, e := range expenses {
		if category != "" && category != "all" && e.Category != category {
			continue
		}
		if contains(e.Description, term) || contains(e.Category, term) {
			out = append(out, e)
		}
	}
	return out
}

// FilterSales matches term against the product name or the date text.
func FilterSales(sales []core.Sale, term string) []core.Sale {
	lower := strings.ToLower(term)
	var out []core.Sale
	for _, s := range sales {
		if contains(s.ProductName, lower) || strings.Contains(s.Date.String(), term) {
			out = append(out, s)
		}
	}
	return out
}

func FilterProducts(products []core.Product, term string) []core.Product {
	term = strings.ToLower(term)
	var out []core.Product
	for _, p := range products {
		if contains(p.Name, term) || contains(p.SKU, term) || contains(p.Category, term) || contains(p.Supplier, term) {
			out = append(out, p)
		}
	}
	return out
}

func contains(field, lowerTerm string) bool {
	return strings.Contains(strings.ToLower(field), lowerTerm)
}

type BudgetTotal struct {
	Total   decimal.Decimal `json:"total"`
	Average decimal.Decimal `json:"average"`
}

// BudgetTotals sums monthly budgets and averages them over the categories.
func BudgetTotals(categories []core.Category) BudgetTotal {
	t := BudgetTotal{Total: decimal.Zero, Average: decimal.Zero}
	for _, c := range categories {
		t.Total = t.Total.Add(c.MonthlyBudget)
	}
	if len(categories) > 0 {
		t.Average = t.Total.Div(decimal.NewFromInt(int64(len(categories))))
	}
	return t
}

// StockCounts tallies products per stock status. Every status is present.
func StockCounts(products []core.Product) map[StockStatus]int {
	counts := map[StockStatus]int{OutOfStock: 0, LowStockStatus: 0, InStock: 0}
	for _, p := range products {
		counts[StockStatusOf(p.QuantityInStock)]++
	}
	return counts
}

// DashboardView bundles everything the dashboard renders.
type DashboardView struct {
	Totals       TotalsSummary       `json:"totals"`
	Monthly      []MonthPoint        `json:"monthly"`
	Categories   []CategoryShare     `json:"categories"`
	TopProducts  []ProductRevenue    `json:"topProducts"`
	Budgets      []BudgetLine        `json:"budgets"`
	BudgetTotals BudgetTotal         `json:"budgetTotals"`
	LowStock     int                 `json:"lowStock"`
	StockStatus  map[StockStatus]int `json:"stockStatus"`
}

func Dashboard(s *core.Snapshot, now time.Time) DashboardView {
	if s == nil {
		s = core.EmptySnapshot()
	}
	return DashboardView{
		Totals:       Totals(s),
		Monthly:      MonthlySeries(s.Sales, s.Expenses, now),
		Categories:   CategoryBreakdown(s.Expenses),
		TopProducts:  TopProducts(s.Sales, DefaultTopN),
		Budgets:      BudgetUtilization(s.Categories, s.Expenses, now),
		BudgetTotals: BudgetTotals(s.Categories),
		LowStock:     len(LowStock(s.Products)),
		StockStatus:  StockCounts(s.Products),
	}
}
