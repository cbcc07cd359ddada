// Package sheets appends extraction results to the user's Google
// Spreadsheet. Each service run writes into a tab named after the run
// timestamp; the tab name is returned as the destination identifier.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/invoicetosheet/ocr-service/internal/models"
)

var headerRow = []interface{}{"Shop Name", "Date", "Total HT", "Total TTC", "VAT", "Items"}

// Writer appends invoice rows on behalf of one user, authorized by
// their OAuth refresh token.
type Writer struct {
	cfg          models.SheetsConfig
	refreshToken string

	service *sheets.Service
}

// NewWriter builds a Writer for a single user's refresh token. The API
// client is created lazily on first use.
func NewWriter(cfg models.SheetsConfig, refreshToken string) *Writer {
	return &Writer{cfg: cfg, refreshToken: refreshToken}
}

func (w *Writer) getService(ctx context.Context) (*sheets.Service, error) {
	if w.service != nil {
		return w.service, nil
	}

	oauthCfg := &oauth2.Config{
		ClientID:     w.cfg.ClientID,
		ClientSecret: w.cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{sheets.SpreadsheetsScope},
	}
	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: w.refreshToken})

	service, err := sheets.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	w.service = service
	return service, nil
}

// runTabName names the destination tab for the current run, minute
// granularity so retries within the same minute share a tab.
func runTabName(now time.Time) string {
	return fmt.Sprintf("Run_%s", now.Format("2006-01-02_1504"))
}

// ensureRunTab returns the current run tab, creating it with a header
// row when it does not exist yet.
func (w *Writer) ensureRunTab(ctx context.Context, spreadsheetID string) (string, error) {
	tabName := runTabName(time.Now())

	service, err := w.getService(ctx)
	if err != nil {
		return "", err
	}

	spreadsheet, err := service.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to read spreadsheet: %w", err)
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == tabName {
			return tabName, nil
		}
	}

	_, err = service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: tabName,
					GridProperties: &sheets.GridProperties{
						RowCount:    1000,
						ColumnCount: 20,
					},
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create tab: %w", err)
	}

	if err := w.appendRow(ctx, spreadsheetID, tabName, headerRow); err != nil {
		return "", err
	}
	return tabName, nil
}

func (w *Writer) appendRow(ctx context.Context, spreadsheetID, tabName string, row []interface{}) error {
	service, err := w.getService(ctx)
	if err != nil {
		return err
	}

	rangeName := fmt.Sprintf("%s!A:F", tabName)
	_, err = service.Spreadsheets.Values.Append(spreadsheetID, rangeName, &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	return nil
}

// AppendInvoice writes one extracted record into the run tab and
// returns the tab name.
func (w *Writer) AppendInvoice(ctx context.Context, spreadsheetID string, record *models.InvoiceRecord) (string, error) {
	tabName, err := w.ensureRunTab(ctx, spreadsheetID)
	if err != nil {
		return "", err
	}

	if err := w.appendRow(ctx, spreadsheetID, tabName, InvoiceRow(record)); err != nil {
		return "", err
	}
	return tabName, nil
}

// InvoiceRow flattens a record into the tab's column layout. Items are
// serialized as JSON so nothing is lost to the fixed column count.
func InvoiceRow(record *models.InvoiceRecord) []interface{} {
	itemsJSON := "[]"
	if len(record.Items) > 0 {
		if b, err := json.Marshal(record.Items); err == nil {
			itemsJSON = string(b)
		}
	}

	return []interface{}{
		record.ShopName,
		record.Date,
		record.TotalHT.StringFixed(2),
		record.TotalTTC.StringFixed(2),
		record.VATAmount.StringFixed(2),
		itemsJSON,
	}
}
