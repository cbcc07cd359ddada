package ai

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoicetosheet/ocr-service/internal/models"
	"github.com/invoicetosheet/ocr-service/internal/ocr"
)

const sampleResponse = "```json\n" + `{
  "document_type": "invoice",
  "shop_name": "Electra SAS",
  "shop_address": "104 Rue de Richelieu, 75002 Paris",
  "shop_phone": "01 86 65 99 99",
  "customer_name": "Oumar",
  "date": "2024-01-15",
  "invoice_number": "2024-001",
  "vat_number": "FR45891624884",
  "total_ht": 10.42,
  "total_ttc": "12,50",
  "vat_amount": 2.08,
  "items": [
    {"description": "Énergie", "quantity": 43.101, "unit_price_ht": 0.24, "total_ht": 10.42, "vat_rate": 20}
  ]
}` + "\n```"

func TestParseResponseStripsMarkdownFences(t *testing.T) {
	record, err := parseResponse(sampleResponse)
	require.NoError(t, err)

	assert.Equal(t, models.DocumentInvoice, record.DocumentType)
	assert.Equal(t, "Electra SAS", record.ShopName)
	assert.Equal(t, "Oumar", record.CustomerName)
	assert.Equal(t, "FR45891624884", record.VATNumber)
	assert.Equal(t, "10.42", record.TotalHT.StringFixed(2))
	assert.Equal(t, "12.50", record.TotalTTC.StringFixed(2), "comma-decimal strings are accepted")
	assert.Equal(t, "2.08", record.VATAmount.StringFixed(2))

	require.Len(t, record.Items, 1)
	assert.Equal(t, "Énergie", record.Items[0].Description)
	assert.Equal(t, "43.101", record.Items[0].Quantity.String())
}

func TestParseResponseUnknownDocumentType(t *testing.T) {
	record, err := parseResponse(`{"document_type": "bank_statement"}`)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentUnknown, record.DocumentType)
}

func TestParseResponseSkipsEmptyItems(t *testing.T) {
	record, err := parseResponse(`{
		"document_type": "receipt",
		"items": [
			{"description": "", "total_ht": 5},
			{"description": "Café", "total_ht": 2.5}
		]
	}`)
	require.NoError(t, err)

	require.Len(t, record.Items, 1)
	assert.Equal(t, "Café", record.Items[0].Description)
	assert.Equal(t, "1", record.Items[0].Quantity.String(), "missing quantity defaults to 1")
}

func TestParseResponseRejectsGarbage(t *testing.T) {
	_, err := parseResponse("I could not read the invoice, sorry.")
	assert.Error(t, err)
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{12.5, "12.5"},
		{"12,50", "12.5"},
		{"1,234.56", "1234.56"},
		{"1 234,56", "1234.56"},
		{"", "0"},
		{nil, "0"},
		{"n/a", "0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseDecimal(tt.in).String(), "input %v", tt.in)
	}
}

type stubProvider struct {
	response string
	usage    Usage
	pages    int
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) ExtractData(_ context.Context, _ string, pngPages [][]byte) (string, Usage, error) {
	s.pages = len(pngPages)
	return s.response, s.usage, nil
}

func TestExtractEndToEnd(t *testing.T) {
	png, err := ocr.EncodePNG(image.NewGray(image.Rect(0, 0, 20, 20)))
	require.NoError(t, err)

	provider := &stubProvider{
		response: sampleResponse,
		usage:    Usage{PromptTokens: 800, CompletionTokens: 150, TotalTokens: 950},
	}
	extractor := NewExtractor(provider, 3)

	record, stats, err := extractor.Extract(context.Background(), png, "scan.png", "image/png")
	require.NoError(t, err)

	assert.Equal(t, 1, provider.pages)
	assert.Equal(t, "stub", stats.Engine)
	assert.Equal(t, 950, stats.TotalTokens)
	assert.Equal(t, 1, stats.PagesProcessed)

	// The record passes through the same validator as the local path:
	// 10.42 + 2.08 = 12.50, so no consistency flag.
	assert.False(t, record.ValidationError)
	assert.Equal(t, "Oumar", record.CustomerName)
}

func TestExtractUnsupportedInput(t *testing.T) {
	extractor := NewExtractor(&stubProvider{response: "{}"}, 3)

	_, _, err := extractor.Extract(context.Background(), []byte("plain text"), "notes.txt", "text/plain")
	assert.ErrorIs(t, err, ocr.ErrUnsupportedInput)
}
