// Package sheets appends sales and expenses to a Google spreadsheet, one tab
// per record kind and year ("2025 Ledger Sales", "2025 Ledger Expenses").
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"kobo/internal/core"
	"kobo/internal/export"
)

var _ export.RowWriter = (*Client)(nil)

// Config selects the spreadsheet and credentials. CredentialsJSON wins over
// CredentialsFile.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if len(opts) == 0 {
		creds, err := credentials(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Ledger"
	}
	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheetBase: base}, nil
}

func credentials(ctx context.Context, cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Read service account credentials", "path", cfg.CredentialsFile, "size", len(data))
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// AppendSale writes Date, ID, Product ID, Product, Quantity, Unit Price, Total.
func (c *Client) AppendSale(ctx context.Context, s core.Sale) (string, error) {
	tab := yearPrefixedName(c.sheetBase+" Sales", s.Date.Year())
	row := []any{
		s.Date.String(), s.ID, s.ProductID, s.ProductName, s.Quantity,
		core.StoreString(s.UnitPrice), core.StoreString(s.TotalAmount),
	}
	return c.append(ctx, tab, "A:G", row)
}

// AppendExpense writes Date, ID, Category, Description, Amount.
func (c *Client) AppendExpense(ctx context.Context, e core.Expense) (string, error) {
	tab := yearPrefixedName(c.sheetBase+" Expenses", e.Date.Year())
	row := []any{e.Date.String(), e.ID, e.Category, e.Description, core.StoreString(e.Amount)}
	return c.append(ctx, tab, "A:E", row)
}

func (c *Client) append(ctx context.Context, tab, cols string, row []any) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!%s", tab, cols)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{row}}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", tab, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
