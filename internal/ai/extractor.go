package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/invoicetosheet/ocr-service/internal/models"
	"github.com/invoicetosheet/ocr-service/internal/ocr"
	"github.com/invoicetosheet/ocr-service/internal/services"
)

// visionRenderDPI is lower than the local-recognition DPI; vision
// models handle moderate resolution well and the payload stays small.
const visionRenderDPI = 144

// Extractor is the AI-vision extraction backend.
type Extractor struct {
	provider Provider
	maxPages int
}

// NewExtractor builds an AI extractor over the given provider.
func NewExtractor(provider Provider, maxPages int) *Extractor {
	if maxPages <= 0 {
		maxPages = 3
	}
	return &Extractor{provider: provider, maxPages: maxPages}
}

const extractionPrompt = `You are an expert invoice parser for French invoices and receipts. Analyze the document image(s) and return ONLY a valid JSON object, no markdown, no commentary.

Rules:
- document_type: one of "invoice", "receipt", "gas_station_ticket", "parking_ticket", "estimate", "unknown". If the document contains "Fourni par" or "Provided by" it is ALWAYS "invoice", never "gas_station_ticket".
- shop_name: the seller's company name, first line after "Fourni par"/"Fournisseur" or the header brand. Never the label itself.
- shop_address, shop_phone, shop_email: from the seller block.
- customer_name: the FIRST line after "Facturé à"/"Billed to". Never a country name (France, Belgium...), never an address line.
- date: issue date as YYYY-MM-DD. French dates are day-first (15/01/2024 means January 15).
- invoice_number, ticket_number: document references if present.
- vat_number: intracommunity VAT number, country code + digits (e.g. FR45891624884), no spaces. Extract the actual number, not surrounding labels.
- siret: SIRET (14 digits) or SIREN (9 digits).
- iban: full IBAN without spaces (French IBANs are 27 characters).
- total_ht, total_ttc, vat_amount: amounts as numbers with dot decimals (convert "12,50" to 12.5). vat_amount is the VAT in currency, not the percentage. Use 0 when not shown.
- items: one object per product/service row in the items table, never header or total rows. Fields: description, quantity (number only, strip units like kWh), unit_price_ht, total_ht, vat_rate. Return [] when there is no table.
- Never invent values; use null for fields you cannot read.

Respond with exactly this JSON shape:
{"document_type": "...", "shop_name": "...", "shop_address": "...", "shop_phone": "...", "shop_email": "...", "customer_name": "...", "date": "YYYY-MM-DD", "invoice_number": "...", "ticket_number": "...", "vat_number": "...", "siret": "...", "iban": "...", "total_ht": 0, "total_ttc": 0, "vat_amount": 0, "items": [{"description": "...", "quantity": 1, "unit_price_ht": 0, "total_ht": 0, "vat_rate": 20}]}`

// Extract renders the upload to page images, sends them to the vision
// provider and parses the JSON response into a validated record.
func (e *Extractor) Extract(ctx context.Context, data []byte, filename, contentType string) (*models.InvoiceRecord, *models.ProcessingStats, error) {
	stats := &models.ProcessingStats{Engine: e.provider.Name()}

	pages, err := e.renderPages(data, filename, contentType)
	if err != nil {
		return nil, stats, err
	}
	stats.PagesProcessed = len(pages)

	response, usage, err := e.provider.ExtractData(ctx, extractionPrompt, pages)
	if err != nil {
		return nil, stats, err
	}
	stats.PromptTokens = usage.PromptTokens
	stats.CompletionTokens = usage.CompletionTokens
	stats.TotalTokens = usage.TotalTokens

	record, err := parseResponse(response)
	if err != nil {
		return nil, stats, err
	}
	services.ValidateAndNormalize(record)

	log.Info().
		Str("file", filename).
		Str("provider", e.provider.Name()).
		Int("tokens", usage.TotalTokens).
		Str("document_type", string(record.DocumentType)).
		Msg("ai extraction complete")

	return record, stats, nil
}

// renderPages normalizes the upload into PNG page images: PDFs are
// rasterized page by page, single images re-encoded (which also
// converts HEIC).
func (e *Extractor) renderPages(data []byte, filename, contentType string) ([][]byte, error) {
	fileType, err := ocr.ClassifyFile(filename, contentType, data)
	if err != nil {
		return nil, err
	}

	if fileType == ocr.FileTypePDF {
		images, err := ocr.RasterizePages(data, e.maxPages, visionRenderDPI)
		if err != nil {
			return nil, ocr.ErrUnsupportedInput
		}
		pages := make([][]byte, 0, len(images))
		for _, img := range images {
			png, err := ocr.EncodePNG(img)
			if err != nil {
				return nil, err
			}
			pages = append(pages, png)
		}
		return pages, nil
	}

	img, err := ocr.DecodeImage(data, filename)
	if err != nil {
		return nil, ocr.ErrUnsupportedInput
	}
	png, err := ocr.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	return [][]byte{png}, nil
}

type rawItem struct {
	Description string      `json:"description"`
	Quantity    interface{} `json:"quantity"`
	UnitPriceHT interface{} `json:"unit_price_ht"`
	TotalHT     interface{} `json:"total_ht"`
}

type rawRecord struct {
	DocumentType  string      `json:"document_type"`
	ShopName      string      `json:"shop_name"`
	ShopAddress   string      `json:"shop_address"`
	ShopPhone     string      `json:"shop_phone"`
	ShopEmail     string      `json:"shop_email"`
	CustomerName  string      `json:"customer_name"`
	Date          string      `json:"date"`
	InvoiceNumber string      `json:"invoice_number"`
	TicketNumber  string      `json:"ticket_number"`
	VATNumber     string      `json:"vat_number"`
	SIRET         string      `json:"siret"`
	IBAN          string      `json:"iban"`
	TotalHT       interface{} `json:"total_ht"`
	TotalTTC      interface{} `json:"total_ttc"`
	VATAmount     interface{} `json:"vat_amount"`
	Items         []rawItem   `json:"items"`
}

// parseResponse converts the model's JSON into an InvoiceRecord.
// Amounts are parsed leniently since models occasionally answer with
// strings or comma decimals despite the prompt.
func parseResponse(response string) (*models.InvoiceRecord, error) {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var raw rawRecord
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("unparsable model response: %w", err)
	}

	record := &models.InvoiceRecord{
		DocumentType:  documentType(raw.DocumentType),
		ShopName:      strings.TrimSpace(raw.ShopName),
		ShopAddress:   strings.TrimSpace(raw.ShopAddress),
		ShopPhone:     strings.TrimSpace(raw.ShopPhone),
		ShopEmail:     strings.TrimSpace(raw.ShopEmail),
		CustomerName:  strings.TrimSpace(raw.CustomerName),
		Date:          strings.TrimSpace(raw.Date),
		InvoiceNumber: strings.TrimSpace(raw.InvoiceNumber),
		TicketNumber:  strings.TrimSpace(raw.TicketNumber),
		VATNumber:     strings.TrimSpace(raw.VATNumber),
		SIRET:         strings.TrimSpace(raw.SIRET),
		IBAN:          strings.TrimSpace(raw.IBAN),
		TotalHT:       parseDecimal(raw.TotalHT),
		TotalTTC:      parseDecimal(raw.TotalTTC),
		VATAmount:     parseDecimal(raw.VATAmount),
		Items:         []models.LineItem{},
	}

	for _, item := range raw.Items {
		desc := strings.TrimSpace(item.Description)
		if desc == "" {
			continue
		}
		quantity := parseDecimal(item.Quantity)
		if quantity.IsZero() {
			quantity = decimal.NewFromInt(1)
		}
		record.Items = append(record.Items, models.LineItem{
			Description: desc,
			Quantity:    quantity,
			UnitPrice:   parseDecimal(item.UnitPriceHT),
			Total:       parseDecimal(item.TotalHT),
		})
	}

	return record, nil
}

func documentType(s string) models.DocumentType {
	switch models.DocumentType(strings.TrimSpace(s)) {
	case models.DocumentInvoice, models.DocumentReceipt, models.DocumentGasStation,
		models.DocumentParking, models.DocumentEstimate:
		return models.DocumentType(strings.TrimSpace(s))
	default:
		return models.DocumentUnknown
	}
}

// parseDecimal handles numbers, strings with comma decimals, and nulls.
func parseDecimal(v interface{}) decimal.Decimal {
	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val)
	case string:
		cleaned := strings.TrimSpace(strings.ReplaceAll(val, " ", ""))
		if strings.Contains(cleaned, ".") {
			// "1,234.56" style: comma is a thousands separator
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		}
		if cleaned == "" {
			return decimal.Zero
		}
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			return decimal.Zero
		}
		return d
	case json.Number:
		d, err := decimal.NewFromString(string(val))
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}
