// Package report derives view models from a snapshot. Every function is pure
// and keeps amounts as exact decimals; rounding happens only where a value is
// meant for display (percentage shares) or in the format package.
package report

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"kobo/internal/core"
)

// DefaultTopN is the number of products shown in rankings.
const DefaultTopN = 5

var hundred = decimal.NewFromInt(100)

// placeholderMonths keeps the chart axis populated when there is no data.
var placeholderMonths = []string{"Jul", "Aug", "Sep", "Oct", "Nov", "Dec", "Jan"}

type TotalsSummary struct {
	Revenue        decimal.Decimal `json:"revenue"`
	Expenses       decimal.Decimal `json:"expenses"`
	Net            decimal.Decimal `json:"net"`
	InventoryValue decimal.Decimal `json:"inventoryValue"`
}

// Totals sums sale totals, expense amounts and inventory value.
func Totals(s *core.Snapshot) TotalsSummary {
	if s == nil {
		s = core.EmptySnapshot()
	}
	t := TotalsSummary{
		Revenue:        SumSales(s.Sales),
		Expenses:       SumExpenses(s.Expenses),
		InventoryValue: decimal.Zero,
	}
	for _, p := range s.Products {
		t.InventoryValue = t.InventoryValue.Add(p.InventoryValue())
	}
	t.Net = t.Revenue.Sub(t.Expenses)
	return t
}

func SumSales(sales []core.Sale) decimal.Decimal {
	total := decimal.Zero
	for _, s := range sales {
		total = total.Add(s.TotalAmount)
	}
	return total
}

func SumExpenses(expenses []core.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

type MonthPoint struct {
	Month    string          `json:"month"`
	Revenue  decimal.Decimal `json:"revenue"`
	Expenses decimal.Decimal `json:"expenses"`
}

// MonthlySeries groups sales and expenses by calendar month, in chronological
// order. Months of the current year are labelled "Jan"; other years "Jan 24".
func MonthlySeries(sales []core.Sale, expenses []core.Expense, now time.Time) []MonthPoint {
	revenue := map[string]decimal.Decimal{}
	spent := map[string]decimal.Decimal{}
	keys := map[string]time.Time{}

	for _, s := range sales {
		if s.Date.IsZero() {
			continue
		}
		k := s.Date.MonthKey()
		revenue[k] = revenue[k].Add(s.TotalAmount)
		keys[k] = s.Date.Time
	}
	for _, e := range expenses {
		if e.Date.IsZero() {
			continue
		}
		k := e.Date.MonthKey()
		spent[k] = spent[k].Add(e.Amount)
		keys[k] = e.Date.Time
	}

	if len(keys) == 0 {
		out := make([]MonthPoint, 0, len(placeholderMonths))
		for _, m := range placeholderMonths {
			out = append(out, MonthPoint{Month: m, Revenue: decimal.Zero, Expenses: decimal.Zero})
		}
		return out
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	slices.Sort(sorted)

	out := make([]MonthPoint, 0, len(sorted))
	for _, k := range sorted {
		out = append(out, MonthPoint{
			Month:    monthLabel(keys[k], now),
			Revenue:  revenue[k],
			Expenses: spent[k],
		})
	}
	return out
}

func monthLabel(t, now time.Time) string {
	if t.Year() == now.Year() {
		return t.Format("Jan")
	}
	return t.Format("Jan 06")
}

type CategoryShare struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	// Share is the percentage of all expenses, rounded to one decimal.
	Share decimal.Decimal `json:"share"`
}

// CategoryBreakdown sums expenses per category label in order of first
// appearance.
func CategoryBreakdown(expenses []core.Expense) []CategoryShare {
	var out []CategoryShare
	index := map[string]int{}
	total := decimal.Zero
	for _, e := range expenses {
		i, ok := index[e.Category]
		if !ok {
			i = len(out)
			index[e.Category] = i
			out = append(out, CategoryShare{Category: e.Category, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(e.Amount)
		total = total.Add(e.Amount)
	}
	for i := range out {
		out[i].Share = percent(out[i].Amount, total).Round(1)
	}
	return out
}

type ProductRevenue struct {
	Name    string          `json:"name"`
	Revenue decimal.Decimal `json:"revenue"`
}

// TopProducts ranks product names by summed sale revenue. Ties keep the
// order in which the names first appear. n <= 0 means DefaultTopN.
func TopProducts(sales []core.Sale, n int) []ProductRevenue {
	if n <= 0 {
		n = DefaultTopN
	}
	var ranked []ProductRevenue
	index := map[string]int{}
	for _, s := range sales {
		i, ok := index[s.ProductName]
		if !ok {
			i = len(ranked)
			index[s.ProductName] = i
			ranked = append(ranked, ProductRevenue{Name: s.ProductName, Revenue: decimal.Zero})
		}
		ranked[i].Revenue = ranked[i].Revenue.Add(s.TotalAmount)
	}
	slices.SortStableFunc(ranked, func(a, b ProductRevenue) int {
		return b.Revenue.Cmp(a.Revenue)
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

type BudgetLine struct {
	CategoryID string          `json:"categoryId"`
	Category   string          `json:"category"`
	Budget     decimal.Decimal `json:"budget"`
	Spent      decimal.Decimal `json:"spent"`
	// Percent is spent/budget·100, uncapped.
	Percent decimal.Decimal `json:"percent"`
	// Progress is Percent capped at 100 for progress bars.
	Progress   decimal.Decimal `json:"progress"`
	OverBudget bool            `json:"overBudget"`
}

// BudgetUtilization compares each category's spending in the month of now
// with its monthly budget. A zero budget with any spending counts as 100%.
func BudgetUtilization(categories []core.Category, expenses []core.Expense, now time.Time) []BudgetLine {
	spent := map[string]decimal.Decimal{}
	for _, e := range expenses {
		if e.Date.InMonth(now.Year(), now.Month()) {
			spent[e.Category] = spent[e.Category].Add(e.Amount)
		}
	}

	out := make([]BudgetLine, 0, len(categories))
	for _, c := range categories {
		s := spent[c.Name]
		line := BudgetLine{
			CategoryID: c.ID,
			Category:   c.Name,
			Budget:     c.MonthlyBudget,
			Spent:      s,
			OverBudget: s.GreaterThan(c.MonthlyBudget),
		}
		switch {
		case c.MonthlyBudget.IsPositive():
			line.Percent = s.Div(c.MonthlyBudget).Mul(hundred)
		case s.IsPositive():
			line.Percent = hundred
		default:
			line.Percent = decimal.Zero
		}
		line.Progress = decimal.Min(line.Percent, hundred)
		out = append(out, line)
	}
	return out
}

func percent(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(total)
}
