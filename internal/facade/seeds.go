package facade

import (
	"github.com/shopspring/decimal"

	"kobo/internal/core"
)

type seedExpense struct {
	date, category, description, amount string
}

// SeedExpenses is the fixed expense list written by BulkAddExpenses.
func SeedExpenses() []core.ExpenseInput {
	seeds := []seedExpense{
		{"2025-05-03", "Packaging", "Ziplock bag", "2500"},
		{"2025-05-03", "Packaging", "Ziplock bag", "2500"},
		{"2025-05-03", "Packaging", "Ziplock bag", "2000"},
		{"2025-05-03", "Packaging", "Ziplock bag", "20000"},
		{"2025-05-03", "Packaging", "Bottles", "4000"},
		{"2025-05-03", "Logistics", "Delivery ibadan", "15000"},
		{"2025-05-03", "Raw Materials", "chili pepper", "7000"},
		{"2025-05-03", "Raw Materials", "Kilishi", "60000"},
		{"2025-05-03", "Asset", "scale", "22000"},
		{"2025-05-03", "Asset", "Seal Gun", "25000"},
		{"2025-05-03", "Raw Materials", "Bag", "1000"},
		{"2025-05-03", "Packaging", "Bottles", "4000"},
		{"2025-05-03", "Packaging", "Seal nylon", "1000"},
		{"2025-05-03", "Raw Materials", "chili pepper", "2000"},
		{"2025-05-03", "Raw Materials", "Ginger", "13000"},
		{"2025-05-03", "Raw Materials", "Garlic", "5000"},
		{"2025-05-03", "Raw Materials", "Oninin Flakes", "5000"},
		{"2025-05-03", "Raw Materials", "All Spice", "9000"},
		{"2025-05-03", "Raw Materials", "Kulikuli", "10000"},
		{"2025-05-03", "Raw Materials", "Coriander", "7000"},
		{"2025-05-03", "Raw Materials", "Negro Pepper", "2000"},
		{"2025-05-03", "Raw Materials", "Grinding", "2000"},
		{"2025-05-03", "Raw Materials", "Clove", "10000"},
		{"2025-05-03", "Raw Materials", "Dried Iru", "6000"},
		{"2025-05-03", "Raw Materials", "African Nutmeg", "9000"},
		{"2025-05-03", "Logistics", "Delivery from Ibadan", "5000"},
		{"2025-05-03", "Packaging", "Seal Nylon", "3500"},
		{"2025-05-03", "Packaging", "Carton", "25000"},
		{"2025-05-03", "Raw Materials", "Catfish", "54500"},
		{"2025-05-03", "Raw Materials", "Yam", "36000"},
		{"2025-05-03", "Raw Materials", "10kg Rice", "48000"},
		{"2025-05-03", "Raw Materials", "2 congo of Rice", "11000"},
		{"2025-05-03", "Raw Materials", "Spagg", "38000"},
		{"2025-05-03", "Raw Materials", "Beans", "42000"},
		{"2025-05-03", "Raw Materials", "Veg.oil", "52000"},
		{"2025-05-03", "Raw Materials", "Semo", "15600"},
		{"2025-05-03", "Raw Materials", "Garri", "19200"},
		{"2025-05-03", "Raw Materials", "Milo s", "10500"},
		{"2025-05-03", "Raw Materials", "Milo b", "13400"},
		{"2025-05-03", "Raw Materials", "Milk s", "12600"},
		{"2025-05-03", "Raw Materials", "Milk b", "18600"},
		{"2025-05-03", "Raw Materials", "3-in-1 Custard", "23200"},
		{"2025-05-03", "Raw Materials", "Knorr", "14000"},
		{"2025-05-03", "Raw Materials", "Salt", "4200"},
		{"2025-05-03", "Raw Materials", "Panla", "10000"},
		{"2025-05-03", "Raw Materials", "Garri", "4800"},
		{"2025-05-03", "Raw Materials", "Spagg", "10000"},
		{"2025-06-03", "Raw Materials", "Paid myself", "6000"},
		{"2025-06-10", "Marketing", "Data", "5000"},
		{"2025-06-11", "Marketing", "Airtime", "500"},
		{"2025-06-24", "Marketing", "Paid Ad", "2200"},
		{"2025-06-28", "Raw Materials", "mummy's salary", "5000"},
	}
	out := make([]core.ExpenseInput, 0, len(seeds))
	for _, s := range seeds {
		date, _ := core.ParseDate(s.date)
		out = append(out, core.ExpenseInput{
			Date:        date,
			Category:    s.category,
			Description: s.description,
			Amount:      decimal.RequireFromString(s.amount),
		})
	}
	return out
}

// SeedSales is the fixed sale list written by BulkAddSales. It assumes
// products 1 and 2 exist.
func SeedSales() []core.SaleInput {
	price := decimal.RequireFromString("2500.00")
	return []core.SaleInput{
		{Date: core.NewDate(2025, 5, 3), ProductID: "1", ProductName: "Spice Mix Original", Quantity: 10, UnitPrice: price},
		{Date: core.NewDate(2025, 5, 4), ProductID: "2", ProductName: "Spice Mix Hot", Quantity: 5, UnitPrice: price},
		{Date: core.NewDate(2025, 5, 5), ProductID: "1", ProductName: "Spice Mix Original", Quantity: 8, UnitPrice: price},
	}
}
