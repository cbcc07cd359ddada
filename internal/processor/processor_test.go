package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoicetosheet/ocr-service/internal/models"
)

type stubExtractor struct {
	record *models.InvoiceRecord
	stats  *models.ProcessingStats
	err    error
}

func (s *stubExtractor) Extract(_ context.Context, _ []byte, _, _ string) (*models.InvoiceRecord, *models.ProcessingStats, error) {
	return s.record, s.stats, s.err
}

type stubSheets struct {
	tabName string
	err     error
	calls   int
}

func (s *stubSheets) AppendInvoice(_ context.Context, _ string, _ *models.InvoiceRecord) (string, error) {
	s.calls++
	return s.tabName, s.err
}

type stubUsage struct {
	succeeded bool
	failed    bool
	message   string
	tokens    int
}

func (s *stubUsage) MarkSuccess(_ context.Context, _ string, _ int64, tokens int) error {
	s.succeeded = true
	s.tokens = tokens
	return nil
}

func (s *stubUsage) MarkFailed(_ context.Context, message string, _ int64) error {
	s.failed = true
	s.message = message
	return nil
}

func sampleRecord() *models.InvoiceRecord {
	return &models.InvoiceRecord{
		DocumentType: models.DocumentInvoice,
		ShopName:     "Electra SAS",
		TotalTTC:     decimal.RequireFromString("12.50"),
	}
}

func TestProcessSuccess(t *testing.T) {
	extractor := &stubExtractor{
		record: sampleRecord(),
		stats:  &models.ProcessingStats{TotalTokens: 950, Engine: "stub"},
	}
	sheets := &stubSheets{tabName: "Run_2024-01-15_1030"}
	usage := &stubUsage{}

	proc := New(extractor, "ocr")
	result, err := proc.Process(context.Background(), Job{
		Data:     []byte("data"),
		Filename: "invoice.pdf",
		SheetID:  "sheet-1",
		Sheets:   sheets,
		Usage:    usage,
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "Run_2024-01-15_1030", result.TabName)
	assert.Equal(t, "ocr", result.Backend)
	assert.Equal(t, "Electra SAS", result.Record.ShopName)
	assert.Equal(t, 1, sheets.calls)
	assert.True(t, usage.succeeded)
	assert.Equal(t, 950, usage.tokens)
	assert.False(t, usage.failed)
}

func TestProcessExtractionFailureMarksUsageFailed(t *testing.T) {
	cause := errors.New("image too blurry for reliable text recognition")
	usage := &stubUsage{}
	sheets := &stubSheets{}

	proc := New(&stubExtractor{err: cause}, "ocr")
	_, err := proc.Process(context.Background(), Job{Sheets: sheets, SheetID: "s", Usage: usage})

	assert.ErrorIs(t, err, cause)
	assert.True(t, usage.failed)
	assert.Contains(t, usage.message, "blurry")
	assert.Zero(t, sheets.calls, "sheet delivery must not run after an extraction failure")
}

func TestProcessSheetFailureMarksUsageFailed(t *testing.T) {
	usage := &stubUsage{}
	sheets := &stubSheets{err: errors.New("spreadsheet not found")}

	proc := New(&stubExtractor{record: sampleRecord(), stats: &models.ProcessingStats{}}, "ocr")
	_, err := proc.Process(context.Background(), Job{Sheets: sheets, SheetID: "s", Usage: usage})

	assert.Error(t, err)
	assert.True(t, usage.failed)
	assert.False(t, usage.succeeded)
}

func TestProcessWithoutSheetsOrUsage(t *testing.T) {
	proc := New(&stubExtractor{record: sampleRecord(), stats: &models.ProcessingStats{}}, "ocr")

	result, err := proc.Process(context.Background(), Job{Data: []byte("data"), Filename: "a.png"})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Empty(t, result.TabName)
}
