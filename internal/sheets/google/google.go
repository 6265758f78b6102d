package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"conti/internal/core"
	ports "conti/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config carries the settings needed to reach the target spreadsheet.
type Config struct {
	SpreadsheetID   string
	CredentialsFile string
	CredentialsJSON string
}

// Client exports month summaries to a Google spreadsheet, one tab per month.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// Ensure interface conformance
var _ ports.SummaryWriter = (*Client)(nil)

func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID}, nil
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials. Inline JSON wins over a credentials file, and the standard
// GOOGLE_APPLICATION_CREDENTIALS variable is the final fallback.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsJSON := strings.TrimSpace(cfg.CredentialsJSON)
	credentialsFile := strings.TrimSpace(cfg.CredentialsFile)
	if credentialsJSON == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentials []byte
	switch {
	case credentialsJSON != "":
		credentials = []byte(credentialsJSON)
	case credentialsFile != "":
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentials = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON, GOOGLE_CREDENTIALS_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentials),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// WriteMonthSummary writes the summary onto a tab named after the month
// (for example "2025-03"), creating the tab on first export and replacing
// its contents on re-export.
func (c *Client) WriteMonthSummary(ctx context.Context, s core.MonthSummary) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if s.Month < 1 || s.Month > 12 {
		return fmt.Errorf("invalid month: %d", s.Month)
	}

	title := sheetTitle(s.Year, s.Month)
	if err := c.ensureSheet(ctx, title); err != nil {
		return err
	}

	// Clear first so a shrinking breakdown does not leave stale rows behind.
	clearRange := fmt.Sprintf("%s!A:C", title)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", clearRange, err)
	}

	writeRange := fmt.Sprintf("%s!A1", title)
	vr := &gsheet.ValueRange{Values: summaryRows(s)}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, writeRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", writeRange, err)
	}

	slog.InfoContext(ctx, "Month summary exported to sheet",
		"sheet", title,
		"categories", len(s.ExpensesByCategory))
	return nil
}

// ensureSheet creates the tab when it does not exist yet.
func (c *Client) ensureSheet(ctx context.Context, title string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	return nil
}

func sheetTitle(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// summaryRows lays the summary out as spreadsheet rows. Amounts are
// written as decimal euros so the sheet can apply currency formatting.
func summaryRows(s core.MonthSummary) [][]any {
	rows := [][]any{
		{"Month", sheetTitle(s.Year, s.Month)},
		{"Income", euros(s.TotalIncome)},
		{"Expenses", euros(s.TotalExpenses)},
		{"Balance", euros(s.Balance)},
		{},
		{"Category", "Amount"},
	}
	for _, cat := range s.ExpensesByCategory {
		name := cat.Name
		if name == "" {
			name = "Uncategorized"
		}
		rows = append(rows, []any{name, euros(cat.Amount)})
	}
	return rows
}

func euros(m core.Money) float64 {
	return float64(m.Cents) / 100.0
}
