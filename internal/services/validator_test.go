package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoicetosheet/ocr-service/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestValidateConsistentTotals(t *testing.T) {
	rec := &models.InvoiceRecord{
		TotalHT:   d("10.42"),
		VATAmount: d("2.08"),
		TotalTTC:  d("12.50"),
	}
	ValidateAndNormalize(rec)

	assert.False(t, rec.ValidationError)
	assert.Nil(t, rec.ValidationMessage)
}

func TestValidateMismatchedTotals(t *testing.T) {
	rec := &models.InvoiceRecord{
		TotalHT:   d("10.42"),
		VATAmount: d("2.08"),
		TotalTTC:  d("99.99"),
	}
	ValidateAndNormalize(rec)

	assert.True(t, rec.ValidationError)
	require.NotNil(t, rec.ValidationMessage)
	assert.Contains(t, *rec.ValidationMessage, "12.5")
	assert.Contains(t, *rec.ValidationMessage, "99.99")
}

func TestValidateToleratesRounding(t *testing.T) {
	rec := &models.InvoiceRecord{
		TotalHT:   d("10.42"),
		VATAmount: d("2.09"),
		TotalTTC:  d("12.50"),
	}
	ValidateAndNormalize(rec)
	assert.False(t, rec.ValidationError)
}

func TestValidateSkipsCheckWhenTotalMissing(t *testing.T) {
	rec := &models.InvoiceRecord{TotalTTC: d("12.50")}
	ValidateAndNormalize(rec)
	assert.False(t, rec.ValidationError)
}

func TestDeriveVATFromTotals(t *testing.T) {
	rec := &models.InvoiceRecord{
		TotalHT:  d("10.00"),
		TotalTTC: d("12.00"),
	}
	ValidateAndNormalize(rec)

	assert.Equal(t, "2.00", rec.VATAmount.StringFixed(2))
	require.Len(t, rec.Corrections, 1)
	assert.Contains(t, rec.Corrections[0], "vat_amount derived")
	assert.False(t, rec.ValidationError)
}

func TestSwappedTotalsRepairedAndReported(t *testing.T) {
	rec := &models.InvoiceRecord{
		TotalHT:   d("12.50"),
		TotalTTC:  d("10.42"),
		VATAmount: d("2.08"),
	}
	ValidateAndNormalize(rec)

	assert.Equal(t, "10.42", rec.TotalHT.StringFixed(2))
	assert.Equal(t, "12.50", rec.TotalTTC.StringFixed(2))
	require.Len(t, rec.Corrections, 1)
	assert.Contains(t, rec.Corrections[0], "swapped")
	assert.False(t, rec.ValidationError)
}

func TestSwapNotAppliedWhenItDoesNotHelp(t *testing.T) {
	// swapping only reshuffles the same inconsistency: leave the fields
	// alone and let the validation flag report it
	rec := &models.InvoiceRecord{
		TotalHT:   d("12.00"),
		TotalTTC:  d("10.00"),
		VATAmount: d("0.00"),
	}
	ValidateAndNormalize(rec)

	assert.Equal(t, "12.00", rec.TotalHT.StringFixed(2))
	assert.Equal(t, "10.00", rec.TotalTTC.StringFixed(2))
	assert.True(t, rec.ValidationError)
}

func TestCountryNameRejectedAsCustomer(t *testing.T) {
	rec := &models.InvoiceRecord{CustomerName: "France"}
	ValidateAndNormalize(rec)
	assert.Empty(t, rec.CustomerName)

	rec = &models.InvoiceRecord{CustomerName: "Belgique "}
	ValidateAndNormalize(rec)
	assert.Empty(t, rec.CustomerName)
}

func TestDuplicateVendorCustomerCleared(t *testing.T) {
	rec := &models.InvoiceRecord{
		ShopName:     "Electra SAS",
		CustomerName: "electra sas",
	}
	ValidateAndNormalize(rec)

	assert.Equal(t, "Electra SAS", rec.ShopName)
	assert.Empty(t, rec.CustomerName)
}

func TestInvalidIdentifiersNulled(t *testing.T) {
	rec := &models.InvoiceRecord{
		IBAN:      "FR45891624884",    // VAT number misread as IBAN
		VATNumber: "FR458916",         // too short for a French VAT
		SIRET:     "1234",             // neither SIREN nor SIRET length
	}
	ValidateAndNormalize(rec)

	assert.Empty(t, rec.IBAN)
	assert.Empty(t, rec.VATNumber)
	assert.Empty(t, rec.SIRET)
}

func TestValidIdentifiersKeptAndNormalized(t *testing.T) {
	rec := &models.InvoiceRecord{
		IBAN:      "FR1420041010050500013M02606",
		VATNumber: "fr 45891624884",
		SIRET:     "891 624 884",
	}
	ValidateAndNormalize(rec)

	assert.Equal(t, "FR1420041010050500013M02606", rec.IBAN)
	assert.Equal(t, "FR45891624884", rec.VATNumber)
	assert.Equal(t, "891624884", rec.SIRET)
}

func TestAmountsRoundedAndNonNegative(t *testing.T) {
	rec := &models.InvoiceRecord{
		TotalHT:   d("10.005"),
		TotalTTC:  d("12.004"),
		VATAmount: d("-1"),
		Items: []models.LineItem{
			{Description: "x", Total: d("3.333"), UnitPrice: d("-2")},
		},
	}
	ValidateAndNormalize(rec)

	assert.Equal(t, "10.01", rec.TotalHT.StringFixed(2))
	assert.Equal(t, "12.00", rec.TotalTTC.StringFixed(2))
	assert.True(t, rec.VATAmount.IsZero())
	assert.Equal(t, "3.33", rec.Items[0].Total.StringFixed(2))
	assert.True(t, rec.Items[0].UnitPrice.IsZero())
}
