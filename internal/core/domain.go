package core

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type (
	// Date is a calendar day without time of day, kept at UTC midnight.
	Date struct {
		time.Time
	}

	Product struct {
		ID              string
		Name            string
		SKU             string
		Category        string
		Supplier        string
		UnitPrice       decimal.Decimal
		QuantityInStock int
	}

	// Sale carries a denormalized product name and its own unit price so later
	// product edits do not rewrite history.
	Sale struct {
		ID          string
		Date        Date
		ProductID   string
		ProductName string
		Quantity    int
		UnitPrice   decimal.Decimal
		TotalAmount decimal.Decimal
	}

	Expense struct {
		ID          string
		Date        Date
		Category    string // matches a Category name by label only
		Description string
		Amount      decimal.Decimal
	}

	Category struct {
		ID            string
		Name          string
		MonthlyBudget decimal.Decimal
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrNotFound      = errors.New("record not found")
	ErrInvalidID     = errors.New("invalid id")
	ErrDuplicate     = errors.New("duplicate record")

	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrTotalMismatch   = errors.New("total does not equal quantity × unit price")
)

// ParseID converts a string identifier to the stores' numeric key.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

// FormatID renders a numeric store key as the core's string identifier.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD and anything that starts with it, such as the
// RFC3339 timestamps some drivers return for DATE columns.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String renders the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// MonthKey returns the sortable "YYYY-MM" bucket of the date.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// InMonth reports whether the date falls in the given year and month.
func (d Date) InMonth(year int, month time.Month) bool {
	return !d.IsZero() && d.Year() == year && d.Month() == month
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// SaleTotal is quantity × unit price, computed exactly.
func SaleTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// InventoryValue is unit price × quantity in stock.
func (p Product) InventoryValue() decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(int64(p.QuantityInStock)))
}
