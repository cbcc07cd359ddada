package extract

import "github.com/invoicetosheet/ocr-service/internal/models"

// detectDocumentType classifies the document by keyword sets, most
// specific category first: fuel and parking tickets routinely contain
// generic words like "total", so they must win over plain receipts and
// invoices. One exception: a structured invoice for a fuel purchase
// (supplier label present alongside fuel vocabulary) is an invoice, not
// a pump ticket.
func (e *Extractor) detectDocumentType(doc *document) models.DocumentType {
	up := doc.upper

	if containsAny(up, e.rules.FuelKeywords) {
		if containsAny(up, e.rules.SupplierLabels) {
			return models.DocumentInvoice
		}
		return models.DocumentGasStation
	}
	if containsAny(up, e.rules.ParkingKeywords) {
		return models.DocumentParking
	}
	if containsAny(up, e.rules.ReceiptKeywords) {
		return models.DocumentReceipt
	}
	if containsAny(up, e.rules.InvoiceKeywords) {
		return models.DocumentInvoice
	}
	if containsAny(up, e.rules.EstimateKeywords) {
		return models.DocumentEstimate
	}
	return models.DocumentUnknown
}
