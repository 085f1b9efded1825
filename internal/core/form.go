package core

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Flat field-value payloads exchanged with the data access façade. Field
// names are the form names the façade accepts.

func (in ExpenseInput) Form() url.Values {
	return url.Values{
		"date":        {in.Date.String()},
		"category":    {in.Category},
		"description": {in.Description},
		"amount":      {in.Amount.String()},
	}
}

func ExpenseFromForm(form url.Values) (ExpenseInput, error) {
	date, err := ParseDate(form.Get("date"))
	if err != nil {
		return ExpenseInput{}, fmt.Errorf("date: %w", err)
	}
	amount, err := ParseAmount(form.Get("amount"))
	if err != nil {
		return ExpenseInput{}, fmt.Errorf("amount: %w", err)
	}
	return ExpenseInput{
		Date:        date,
		Category:    strings.TrimSpace(form.Get("category")),
		Description: strings.TrimSpace(form.Get("description")),
		Amount:      amount,
	}, nil
}

func (in CategoryInput) Form() url.Values {
	return url.Values{
		"name":          {in.Name},
		"monthlyBudget": {in.MonthlyBudget.String()},
	}
}

func CategoryFromForm(form url.Values) (CategoryInput, error) {
	budget, err := ParseAmount(form.Get("monthlyBudget"))
	if err != nil {
		return CategoryInput{}, fmt.Errorf("monthlyBudget: %w", err)
	}
	return CategoryInput{
		Name:          strings.TrimSpace(form.Get("name")),
		MonthlyBudget: budget,
	}, nil
}

func (in ProductInput) Form() url.Values {
	return url.Values{
		"name":            {in.Name},
		"sku":             {in.SKU},
		"category":        {in.Category},
		"supplier":        {in.Supplier},
		"unitPrice":       {in.UnitPrice.String()},
		"quantityInStock": {strconv.Itoa(in.QuantityInStock)},
	}
}

func ProductFromForm(form url.Values) (ProductInput, error) {
	price, err := ParseAmount(form.Get("unitPrice"))
	if err != nil {
		return ProductInput{}, fmt.Errorf("unitPrice: %w", err)
	}
	qty, err := parseInt(form.Get("quantityInStock"), 0)
	if err != nil {
		return ProductInput{}, fmt.Errorf("quantityInStock: %w", err)
	}
	return ProductInput{
		Name:            strings.TrimSpace(form.Get("name")),
		SKU:             strings.TrimSpace(form.Get("sku")),
		Category:        strings.TrimSpace(form.Get("category")),
		Supplier:        strings.TrimSpace(form.Get("supplier")),
		UnitPrice:       price,
		QuantityInStock: qty,
	}, nil
}

// Form includes the total computed here so the receiver can check it.
func (in SaleInput) Form() url.Values {
	return url.Values{
		"date":        {in.Date.String()},
		"productId":   {in.ProductID},
		"productName": {in.ProductName},
		"quantity":    {strconv.Itoa(in.Quantity)},
		"unitPrice":   {in.UnitPrice.String()},
		"totalAmount": {in.Total().String()},
	}
}

// SaleFromForm parses a sale payload. A supplied totalAmount must equal
// quantity × unit price.
func SaleFromForm(form url.Values) (SaleInput, error) {
	date, err := ParseDate(form.Get("date"))
	if err != nil {
		return SaleInput{}, fmt.Errorf("date: %w", err)
	}
	qty, err := parseInt(form.Get("quantity"), -1)
	if err != nil {
		return SaleInput{}, fmt.Errorf("quantity: %w", err)
	}
	price, err := ParseAmount(form.Get("unitPrice"))
	if err != nil {
		return SaleInput{}, fmt.Errorf("unitPrice: %w", err)
	}
	in := SaleInput{
		Date:        date,
		ProductID:   strings.TrimSpace(form.Get("productId")),
		ProductName: strings.TrimSpace(form.Get("productName")),
		Quantity:    qty,
		UnitPrice:   price,
	}
	if raw := strings.TrimSpace(form.Get("totalAmount")); raw != "" {
		total, err := ParseAmount(raw)
		if err != nil {
			return SaleInput{}, fmt.Errorf("totalAmount: %w", err)
		}
		if !total.Equal(in.Total()) {
			return SaleInput{}, fmt.Errorf("totalAmount: %w", ErrTotalMismatch)
		}
	}
	return in, nil
}

func parseInt(s string, def int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		if def < 0 {
			return 0, ErrInvalidQuantity
		}
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrInvalidQuantity
	}
	return n, nil
}
