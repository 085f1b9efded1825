package core

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Creatable and updatable payloads. Identifiers are never part of a create.
type (
	ExpenseInput struct {
		Date        Date            `validate:"required"`
		Category    string          `validate:"required,max=100"`
		Description string          `validate:"required,max=200"`
		Amount      decimal.Decimal `validate:"gte=0"`
	}

	CategoryInput struct {
		Name          string          `validate:"required,max=100"`
		MonthlyBudget decimal.Decimal `validate:"gte=0"`
	}

	ProductInput struct {
		Name            string          `validate:"required,max=255"`
		SKU             string          `validate:"required,max=50"`
		Category        string          `validate:"max=100"`
		Supplier        string          `validate:"max=100"`
		UnitPrice       decimal.Decimal `validate:"gte=0"`
		QuantityInStock int
	}

	SaleInput struct {
		Date        Date   `validate:"required"`
		ProductID   string `validate:"required"`
		ProductName string
		Quantity    int             `validate:"gt=0"`
		UnitPrice   decimal.Decimal `validate:"gte=0"`
	}
)

// Reason classifies a failed Result. It is not part of the wire shape.
type Reason string

const (
	ReasonInvalid     Reason = "invalid"
	ReasonConflict    Reason = "conflict"
	ReasonNotFound    Reason = "not_found"
	ReasonInternal    Reason = "internal"
	// ReasonUnavailable marks a result the server never produced, such as a
	// transport failure or a rate-limited request.
	ReasonUnavailable Reason = "unavailable"
)

// Result is the uniform outcome of a façade operation.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Count   int    `json:"count,omitempty"`
	Reason  Reason `json:"-"`
}

// OK returns a successful Result.
func OK() Result { return Result{Success: true} }

// Failed returns a failed Result carrying a human-readable message.
func Failed(reason Reason, msg string) Result {
	return Result{Success: false, Error: msg, Reason: reason}
}

// ValidationError describes the first field that failed validation.
type ValidationError struct {
	Field string
	Tag   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: field '%s' failed on tag '%s'", e.Field, e.Tag)
}

var validate = validator.New()

func init() {
	// Money and dates validate as their underlying values.
	validate.RegisterCustomTypeFunc(func(v reflect.Value) any {
		if d, ok := v.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	validate.RegisterCustomTypeFunc(func(v reflect.Value) any {
		if d, ok := v.Interface().(Date); ok {
			return d.Time
		}
		return nil
	}, Date{})
}

// ValidateStruct runs the struct-tag rules and returns the first failure.
func ValidateStruct(data any) error {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err
	}
	return &ValidationError{Field: verrs[0].Field(), Tag: verrs[0].Tag()}
}

func (in ExpenseInput) Validate() error {
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	return ValidateStruct(in)
}

func (in CategoryInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	return ValidateStruct(in)
}

func (in ProductInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.SKU = strings.TrimSpace(in.SKU)
	return ValidateStruct(in)
}

func (in SaleInput) Validate() error {
	return ValidateStruct(in)
}

// Total is quantity × unit price for the sale being created.
func (in SaleInput) Total() decimal.Decimal {
	return SaleTotal(in.Quantity, in.UnitPrice)
}

// StoredAmounts renders the unit price and total as stores persist them. The
// price is rounded to cents first so the stored total always equals the
// stored price times the quantity.
func (in SaleInput) StoredAmounts() (unitPrice, total string) {
	price := in.UnitPrice.Round(2)
	return StoreString(price), StoreString(SaleTotal(in.Quantity, price))
}
