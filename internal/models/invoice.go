package models

import (
	"github.com/shopspring/decimal"
)

// DocumentType classifies the kind of document the text was extracted from.
type DocumentType string

const (
	DocumentInvoice    DocumentType = "invoice"
	DocumentReceipt    DocumentType = "receipt"
	DocumentGasStation DocumentType = "gas_station_ticket"
	DocumentParking    DocumentType = "parking_ticket"
	DocumentEstimate   DocumentType = "estimate"
	DocumentUnknown    DocumentType = "unknown"
)

// InvoiceRecord is the structured result of an extraction run.
//
// Currency fields are non-negative decimals rounded to 2 places. A zero
// total means "not found" unless the source text explicitly contained a
// zero; callers must not read confidence into zeros.
type InvoiceRecord struct {
	DocumentType DocumentType `json:"document_type"`

	ShopName    string `json:"shop_name"`
	ShopAddress string `json:"shop_address"`
	ShopPhone   string `json:"shop_phone"`
	ShopEmail   string `json:"shop_email"`

	CustomerName string `json:"customer_name"`

	// Date is ISO 8601 (YYYY-MM-DD) or empty when no plausible date was found.
	Date          string `json:"date"`
	InvoiceNumber string `json:"invoice_number"`
	TicketNumber  string `json:"ticket_number"`

	TotalHT   decimal.Decimal `json:"total_ht"`
	TotalTTC  decimal.Decimal `json:"total_ttc"`
	VATAmount decimal.Decimal `json:"vat_amount"`

	VATNumber string `json:"vat_number"`
	SIRET     string `json:"siret"`
	IBAN      string `json:"iban"`

	ValidationError   bool    `json:"validation_error"`
	ValidationMessage *string `json:"validation_message"`

	// Corrections lists post-extraction repairs that were applied
	// heuristically (e.g. the HT/TTC swap). They are reported rather than
	// silent because a repair can mask a genuinely wrong recognition.
	Corrections []string `json:"corrections,omitempty"`

	Items []LineItem `json:"items"`
}

// LineItem is a single purchased line on the document.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// ProcessingStats carries per-run engine usage counters. The token fields
// stay zero on the local OCR path; the AI backend fills them from the
// provider response.
type ProcessingStats struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	PagesProcessed int     `json:"pages_processed"`
	OCRDuration    float64 `json:"ocr_duration,omitempty"` // seconds
	Engine         string  `json:"engine,omitempty"`
}

// ProcessResult is what the processor returns to the HTTP boundary.
type ProcessResult struct {
	Success          bool             `json:"success"`
	Record           *InvoiceRecord   `json:"data,omitempty"`
	Stats            *ProcessingStats `json:"stats,omitempty"`
	TabName          string           `json:"tab_name,omitempty"`
	ProcessingTimeMS int64            `json:"processing_time_ms"`
	Backend          string           `json:"extraction_backend"`
	Error            string           `json:"error,omitempty"`
}
