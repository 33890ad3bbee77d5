package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendwise/internal/core"
	"spendwise/internal/sheets"
)

// Client appends monthly summaries to one sheet of a spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	now           func() time.Time
}

var _ sheets.SummaryExporter = (*Client)(nil)

// Config selects the spreadsheet and the service account credentials.
// CredentialsJSON wins over CredentialsFile.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
}

// New creates a client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	var cred goption.ClientOption
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		cred = goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON))
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", cfg.CredentialsFile)
		cred = goption.WithCredentialsFile(cfg.CredentialsFile)
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE)")
	}
	return NewWithOptions(ctx, cfg.SpreadsheetID, cfg.SheetName, cred, goption.WithScopes(gsheet.SpreadsheetsScope))
}

// NewWithOptions creates a client with explicit API options.
func NewWithOptions(ctx context.Context, spreadsheetID, sheetName string, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Summary"
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created successfully", "sheet", sheetName)

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		now:           time.Now,
	}, nil
}

// ExportSummary writes the header when the sheet is empty, then appends the
// summary rows below the existing data.
func (c *Client) ExportSummary(ctx context.Context, ownerID string, s core.SummaryResult) (int, error) {
	if c.svc == nil {
		return 0, errors.New("sheets service not initialized")
	}
	if ownerID == "" {
		return 0, core.NewValidationError("owner", core.ErrEmptyOwner)
	}
	if _, err := core.ParseMonth(s.Month); err != nil {
		return 0, err
	}

	if err := c.ensureHeader(ctx); err != nil {
		return 0, err
	}

	rows := sheets.SummaryRows(ownerID, s, c.now())
	vr := &gsheet.ValueRange{Values: toValues(rows)}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.columns(), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("append summary rows: %w", err)
	}

	written := len(rows)
	if resp.Updates != nil && resp.Updates.UpdatedRows > 0 {
		written = int(resp.Updates.UpdatedRows)
	}
	slog.InfoContext(ctx, "Summary exported",
		"owner_id", ownerID,
		"month", s.Month,
		"rows", written,
		"sheet", c.sheetName)
	return written, nil
}

func (c *Client) ensureHeader(ctx context.Context) error {
	headerRange := fmt.Sprintf("%s!A1:G1", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	vr := &gsheet.ValueRange{Values: toValues([][]string{sheets.Header})}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, headerRange, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	slog.InfoContext(ctx, "Header written", "sheet", c.sheetName)
	return nil
}

func (c *Client) columns() string {
	return fmt.Sprintf("%s!A:G", c.sheetName)
}

func toValues(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}
