package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"kobo/internal/core"
)

// WriteCSV writes the period summary followed by the expenses it covers.
// Amounts are written unrounded.
func WriteCSV(w io.Writer, summary Summary, expenses []core.Expense) error {
	cw := csv.NewWriter(w)
	period := fmt.Sprintf("%04d-%02d", summary.Year, int(summary.Month))

	records := [][]string{
		{"Period", period},
		{"Revenue", summary.Revenue.String()},
		{"Expenses", summary.Expenses.String()},
		{"Cost of Goods Sold", summary.CostOfGoodsSold.String()},
		{"Gross Profit", summary.GrossProfit.String()},
		{"Net Profit", summary.NetProfit.String()},
		{},
		{"Product", "Units Sold"},
	}
	for _, p := range summary.TopSelling {
		records = append(records, []string{p.Name, strconv.Itoa(p.Quantity)})
	}
	records = append(records, []string{}, []string{"Date", "Category", "Description", "Amount"})
	for _, e := range expenses {
		if !e.Date.InMonth(summary.Year, summary.Month) {
			continue
		}
		records = append(records, []string{e.Date.String(), e.Category, e.Description, e.Amount.String()})
	}

	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("writing report csv: %w", err)
	}
	return nil
}
