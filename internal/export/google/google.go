package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"seikyu/internal/storage"

	ports "seikyu/internal/export"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client exports invoice summary rows to one sheet of a Google
// spreadsheet. Column layout:
// A number, B invoice date, C client, D subtotal, E tax, F expenses,
// G total, H due date.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var _ ports.Ledger = (*Client)(nil)

// New creates a ledger client for the given spreadsheet and sheet.
// Credentials come from the environment (see newSheetsService).
func New(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		return nil, errors.New("missing sheet name")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	// Also check the standard Google Cloud environment variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "sheet", serviceAccountFile != "")
	return service, nil
}

// AppendInvoice writes the invoice's summary row. If a row with the
// same number already exists it is overwritten in place, so repeated
// exports of one invoice stay idempotent.
func (c *Client) AppendInvoice(ctx context.Context, rec *storage.InvoiceRecord) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	_, numbers, err := c.readNumbers(ctx)
	if err != nil {
		return "", err
	}

	targetRow := len(numbers) + 1
	for i, number := range numbers {
		if number == rec.Number {
			targetRow = i + 1
			break
		}
	}

	dataRange := fmt.Sprintf("%s!A%d:H%d", c.sheetName, targetRow, targetRow)
	vr := &gsheet.ValueRange{Values: [][]any{{
		rec.Number,
		rec.Meta.InvoiceDate.String(),
		rec.Meta.Client.Name,
		rec.Computed.Subtotal.Yen,
		rec.Computed.Tax.Yen,
		rec.Computed.ExpenseTotal.Yen,
		rec.Computed.Total.Yen,
		rec.Computed.DueDate.String(),
	}}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update ledger row %s: %w", dataRange, err)
	}

	return dataRange, nil
}

// DeleteInvoice removes the ledger row carrying the given number.
// A number that is not in the sheet is not an error: the invoice may
// have been deleted before its first export.
func (c *Client) DeleteInvoice(ctx context.Context, number string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	sheetID, numbers, err := c.readNumbers(ctx)
	if err != nil {
		return err
	}

	rowIndex := -1
	for i, n := range numbers {
		if n == number {
			rowIndex = i
			break
		}
	}
	if rowIndex < 0 {
		slog.InfoContext(ctx, "Ledger row not found, nothing to delete", "number", number)
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(rowIndex),
					EndIndex:   int64(rowIndex + 1),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete ledger row for %s: %w", number, err)
	}

	return nil
}

// readNumbers returns the sheet's numeric ID and the invoice numbers
// currently in column A, in row order.
func (c *Client) readNumbers(ctx context.Context) (int64, []string, error) {
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, nil, fmt.Errorf("get spreadsheet metadata: %w", err)
	}
	var sheetID int64 = -1
	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == c.sheetName {
			sheetID = sheet.Properties.SheetId
			break
		}
	}
	if sheetID < 0 {
		return 0, nil, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
	}

	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, nil, fmt.Errorf("read %s: %w", rng, err)
	}

	numbers := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 {
			numbers[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return sheetID, numbers, nil
}
