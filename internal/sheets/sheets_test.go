package sheets

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/invoicetosheet/ocr-service/internal/models"
)

func TestRunTabName(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC)
	assert.Equal(t, "Run_2024-01-15_1030", runTabName(now))
}

func TestInvoiceRow(t *testing.T) {
	record := &models.InvoiceRecord{
		ShopName:  "Electra SAS",
		Date:      "2024-01-15",
		TotalHT:   decimal.RequireFromString("10.42"),
		TotalTTC:  decimal.RequireFromString("12.5"),
		VATAmount: decimal.RequireFromString("2.08"),
		Items: []models.LineItem{
			{
				Description: "Énergie",
				Quantity:    decimal.RequireFromString("43.101"),
				UnitPrice:   decimal.RequireFromString("0.2418"),
				Total:       decimal.RequireFromString("10.42"),
			},
		},
	}

	row := InvoiceRow(record)
	assert.Equal(t, "Electra SAS", row[0])
	assert.Equal(t, "2024-01-15", row[1])
	assert.Equal(t, "10.42", row[2])
	assert.Equal(t, "12.50", row[3])
	assert.Equal(t, "2.08", row[4])
	assert.Contains(t, row[5], "Énergie")
}

func TestInvoiceRowEmptyItems(t *testing.T) {
	row := InvoiceRow(&models.InvoiceRecord{ShopName: "Shop"})
	assert.Equal(t, "[]", row[5])
	assert.Len(t, row, len(headerRow))
}
