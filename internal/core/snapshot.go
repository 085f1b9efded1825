package core

import "time"

// Snapshot is the complete in-memory copy of the four collections. It is
// replaced wholesale on every successful refresh and never mutated in place.
type Snapshot struct {
	Products   []Product
	Sales      []Sale
	Expenses   []Expense
	Categories []Category
}

// EmptySnapshot returns a snapshot whose collections are empty but non-nil.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		Products:   []Product{},
		Sales:      []Sale{},
		Expenses:   []Expense{},
		Categories: []Category{},
	}
}

// IsEmpty reports whether all four collections are empty.
func (s *Snapshot) IsEmpty() bool {
	if s == nil {
		return true
	}
	return len(s.Products) == 0 && len(s.Sales) == 0 && len(s.Expenses) == 0 && len(s.Categories) == 0
}

// Product looks up a product by id.
func (s *Snapshot) Product(id string) (Product, bool) {
	if s == nil {
		return Product{}, false
	}
	for _, p := range s.Products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// Raw store rows, as served by the snapshot endpoint. Field names and the
// decimal-as-string encoding follow the database columns.
type (
	ProductRow struct {
		ID              int64     `json:"id" db:"id" gorm:"primaryKey"`
		Name            string    `json:"name" db:"name" gorm:"index"`
		SKU             string    `json:"sku" db:"sku" gorm:"uniqueIndex"`
		Category        string    `json:"category" db:"category"`
		Supplier        string    `json:"supplier" db:"supplier"`
		UnitPrice       string    `json:"unit_price" db:"unit_price" gorm:"type:numeric(12,2)"`
		QuantityInStock int       `json:"quantity_in_stock" db:"quantity_in_stock"`
		CreatedAt       time.Time `json:"created_at" db:"created_at"`
		UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
	}

	SaleRow struct {
		ID          int64     `json:"id" db:"id" gorm:"primaryKey"`
		Date        string    `json:"date" db:"date" gorm:"type:date"`
		ProductID   *int64    `json:"product_id" db:"product_id" gorm:"index"`
		ProductName *string   `json:"product_name" db:"product_name"`
		Quantity    *int      `json:"quantity" db:"quantity"`
		UnitPrice   *string   `json:"unit_price" db:"unit_price" gorm:"type:numeric(12,2)"`
		TotalAmount *string   `json:"total_amount" db:"total_amount" gorm:"type:numeric(12,2)"`
		CreatedAt   time.Time `json:"created_at" db:"created_at"`
	}

	ExpenseRow struct {
		ID          int64     `json:"id" db:"id" gorm:"primaryKey"`
		Date        string    `json:"date" db:"date" gorm:"type:date"`
		Category    string    `json:"category" db:"category"`
		Description string    `json:"description" db:"description"`
		Amount      string    `json:"amount" db:"amount" gorm:"type:numeric(12,2)"`
		CreatedAt   time.Time `json:"created_at" db:"created_at"`
	}

	CategoryRow struct {
		ID            int64     `json:"id" db:"id" gorm:"primaryKey"`
		Name          string    `json:"name" db:"name" gorm:"uniqueIndex"`
		MonthlyBudget string    `json:"monthly_budget" db:"monthly_budget" gorm:"type:numeric(12,2)"`
		CreatedAt     time.Time `json:"created_at" db:"created_at"`
		UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
	}

	// RawSnapshot is the body of one snapshot fetch.
	RawSnapshot struct {
		Products   []ProductRow  `json:"products"`
		Sales      []SaleRow     `json:"sales"`
		Expenses   []ExpenseRow  `json:"expenses"`
		Categories []CategoryRow `json:"categories"`
	}
)

func (ProductRow) TableName() string  { return "products" }
func (SaleRow) TableName() string     { return "sales" }
func (ExpenseRow) TableName() string  { return "expenses" }
func (CategoryRow) TableName() string { return "categories" }

// EmptyRawSnapshot returns a body with four empty arrays (never JSON null).
func EmptyRawSnapshot() RawSnapshot {
	return RawSnapshot{
		Products:   []ProductRow{},
		Sales:      []SaleRow{},
		Expenses:   []ExpenseRow{},
		Categories: []CategoryRow{},
	}
}
