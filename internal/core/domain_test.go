package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2025-05-03", "2025-05-03", true},
		{"2025-05-03T00:00:00.000Z", "2025-05-03", true},
		{" 2024-12-31 ", "2024-12-31", true},
		{"2025-13-01", "", false},
		{"", "", false},
		{"May 3", "", false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("ParseDate(%q) unexpected error: %v", tc.in, err)
			}
			if got.String() != tc.want {
				t.Fatalf("ParseDate(%q) = %s, want %s", tc.in, got, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("ParseDate(%q) expected ErrInvalidDate, got %v", tc.in, err)
		}
	}
}

func TestDateHelpers(t *testing.T) {
	d := NewDate(2025, 6, 10)
	if d.MonthKey() != "2025-06" {
		t.Fatalf("MonthKey = %s", d.MonthKey())
	}
	if !d.InMonth(2025, time.June) || d.InMonth(2024, time.June) || d.InMonth(2025, time.May) {
		t.Fatalf("InMonth mismatch for %s", d)
	}
	if (Date{}).String() != "" || (Date{}).InMonth(1, time.January) {
		t.Fatalf("zero date should render empty and match no month")
	}
}

func TestDateJSON(t *testing.T) {
	type wrap struct {
		D Date `json:"d"`
	}
	b, err := json.Marshal(wrap{D: NewDate(2025, 5, 3)})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"d":"2025-05-03"}` {
		t.Fatalf("marshal = %s", b)
	}
	var w wrap
	if err := json.Unmarshal([]byte(`{"d":"2025-05-04T10:00:00Z"}`), &w); err != nil {
		t.Fatal(err)
	}
	if w.D.String() != "2025-05-04" {
		t.Fatalf("unmarshal = %s", w.D)
	}
}

func TestSaleTotalExact(t *testing.T) {
	got := SaleTotal(10, decimal.RequireFromString("2500.00"))
	if !got.Equal(decimal.RequireFromString("25000.00")) {
		t.Fatalf("SaleTotal = %s", got)
	}

	// Repeated accumulation of inexact binary fractions must not drift.
	sum := decimal.Zero
	for i := 0; i < 1000; i++ {
		sum = sum.Add(SaleTotal(3, decimal.RequireFromString("0.10")))
	}
	if !sum.Equal(decimal.RequireFromString("300")) {
		t.Fatalf("accumulated total drifted: %s", sum)
	}
}

func TestStoredAmountsRoundPriceFirst(t *testing.T) {
	cases := []struct {
		qty       int
		price     string
		wantPrice string
		wantTotal string
	}{
		{2, "1.005", "1.01", "2.02"},
		{3, "0.333", "0.33", "0.99"},
		{10, "2500", "2500.00", "25000.00"},
	}
	for _, tc := range cases {
		in := SaleInput{Quantity: tc.qty, UnitPrice: decimal.RequireFromString(tc.price)}
		price, total := in.StoredAmounts()
		if price != tc.wantPrice || total != tc.wantTotal {
			t.Fatalf("%d x %s stored as %s/%s, want %s/%s", tc.qty, tc.price, price, total, tc.wantPrice, tc.wantTotal)
		}
	}
}

func TestInventoryValue(t *testing.T) {
	p := Product{UnitPrice: decimal.RequireFromString("2500.50"), QuantityInStock: 4}
	if !p.InventoryValue().Equal(decimal.RequireFromString("10002")) {
		t.Fatalf("InventoryValue = %s", p.InventoryValue())
	}
}

func TestInputValidate(t *testing.T) {
	good := ExpenseInput{
		Date:        NewDate(2025, 5, 3),
		Category:    "Packaging",
		Description: "Boxes",
		Amount:      decimal.RequireFromString("1500"),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []ExpenseInput{
		{Category: "c", Description: "d", Amount: decimal.NewFromInt(1)},
		{Date: NewDate(2025, 1, 1), Category: "  ", Description: "d", Amount: decimal.NewFromInt(1)},
		{Date: NewDate(2025, 1, 1), Category: "c", Description: "", Amount: decimal.NewFromInt(1)},
		{Date: NewDate(2025, 1, 1), Category: "c", Description: "d", Amount: decimal.NewFromInt(-1)},
	}
	for i, in := range bads {
		err := in.Validate()
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("case %d expected ValidationError, got %v", i, err)
		}
	}

	if err := (SaleInput{Date: NewDate(2025, 5, 3), ProductID: "1", Quantity: 0}).Validate(); err == nil {
		t.Fatalf("expected zero quantity to be rejected")
	}
	if err := (CategoryInput{Name: "Marketing"}).Validate(); err != nil {
		t.Fatalf("zero budget should be allowed, got %v", err)
	}
	if err := (ProductInput{Name: "Spice Mix", SKU: ""}).Validate(); err == nil {
		t.Fatalf("expected missing sku to be rejected")
	}
}

func TestSnapshotIsEmpty(t *testing.T) {
	var nilSnap *Snapshot
	if !nilSnap.IsEmpty() || !EmptySnapshot().IsEmpty() {
		t.Fatalf("nil and empty snapshots should be empty")
	}
	s := &Snapshot{Categories: []Category{{ID: "1", Name: "Marketing"}}}
	if s.IsEmpty() {
		t.Fatalf("snapshot with a category is not empty")
	}
	if _, ok := s.Product("1"); ok {
		t.Fatalf("unexpected product")
	}
}

func TestParseID(t *testing.T) {
	if id, err := ParseID(" 42 "); err != nil || id != 42 {
		t.Fatalf("ParseID = %d, %v", id, err)
	}
	for _, bad := range []string{"", "0", "-3", "abc", "1.5"} {
		if _, err := ParseID(bad); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("ParseID(%q) expected ErrInvalidID, got %v", bad, err)
		}
	}
	if FormatID(7) != "7" {
		t.Fatalf("FormatID(7) = %s", FormatID(7))
	}
}
