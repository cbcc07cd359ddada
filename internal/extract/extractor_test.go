package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoicetosheet/ocr-service/internal/models"
)

const sampleInvoiceText = `FACTURE N° 2024-001
Date: 15/01/2024
Facturé à
Oumar
12 rue de la Paix
75002 Paris
France
Fourni par
Electra SAS
22 avenue des Ternes
75008 Paris
TVA intracommunautaire : FR45891624884
Description Quantité Prix HT Prix TTC
Recharge électrique 43,101 kWh 10,42 € 12,50 €
TOTAL HT 10,42 €
TVA 20% 2,08 €
TOTAL TTC 12,50 €`

func TestExtractFullInvoice(t *testing.T) {
	e := New(DefaultRules())
	rec := e.Extract(sampleInvoiceText)
	require.NotNil(t, rec)

	assert.Equal(t, models.DocumentInvoice, rec.DocumentType)
	assert.Equal(t, "Electra SAS", rec.ShopName)
	assert.Equal(t, "Oumar", rec.CustomerName)
	assert.Equal(t, "FR45891624884", rec.VATNumber)
	assert.Equal(t, "2024-01-15", rec.Date)
	assert.Equal(t, "2024-001", rec.InvoiceNumber)

	assert.Equal(t, "10.42", rec.TotalHT.StringFixed(2))
	assert.Equal(t, "12.50", rec.TotalTTC.StringFixed(2))
	assert.Equal(t, "2.08", rec.VATAmount.StringFixed(2))

	require.Len(t, rec.Items, 1)
	assert.Contains(t, rec.Items[0].Description, "Recharge électrique")
	assert.Equal(t, "43.101", rec.Items[0].Quantity.String())
	assert.Equal(t, "12.50", rec.Items[0].Total.StringFixed(2))
}

func TestExtractEmptyText(t *testing.T) {
	e := New(nil)
	rec := e.Extract("")
	require.NotNil(t, rec)

	assert.Equal(t, models.DocumentUnknown, rec.DocumentType)
	assert.Empty(t, rec.ShopName)
	assert.Empty(t, rec.CustomerName)
	assert.True(t, rec.TotalTTC.IsZero())
	assert.Empty(t, rec.Items)
}

func TestCustomerNamePrefersCompanyOverPerson(t *testing.T) {
	e := New(DefaultRules())
	text := `Facturé à
Jean Dupont
Acme Solutions SARL
Merci`
	rec := e.Extract(text)
	assert.Equal(t, "Acme Solutions SARL", rec.CustomerName)
}

func TestCustomerNameSkipsCountryLine(t *testing.T) {
	e := New(DefaultRules())
	text := `Facturé à
France
Oumar`
	rec := e.Extract(text)
	assert.Equal(t, "Oumar", rec.CustomerName)
}

func TestShopNameFromKnownBrand(t *testing.T) {
	e := New(DefaultRules())
	text := "CARREFOUR MARKET\n12 avenue Foch\nTicket de caisse"
	rec := e.Extract(text)
	assert.Equal(t, "CARREFOUR MARKET", rec.ShopName)
}

// Recognition must hand the extractor text with its punctuation intact:
// the VAT rate's percent sign keeps the rate digits out of the amount,
// and the email pattern needs the at sign.
func TestExtractPunctuationDependentFields(t *testing.T) {
	e := New(DefaultRules())
	text := `Fourni par
Electra SAS
contact@electra.fr
Tél: 01 42 33 44 55
TVA 20% 1,29 €
TOTAL TTC 7,74 €`
	rec := e.Extract(text)
	assert.Equal(t, "1.29", rec.VATAmount.StringFixed(2))
	assert.Equal(t, "contact@electra.fr", rec.ShopEmail)
	assert.Equal(t, "01 42 33 44 55", rec.ShopPhone)
}

func TestContainsWordBoundaries(t *testing.T) {
	assert.True(t, containsWord("TOTAL TTC 12,50", "TTC"))
	assert.False(t, containsWord("LITTERATURE", "LITRE"))
	assert.False(t, containsWord("PARKINGS", "PARKING"))
	assert.True(t, containsWord("PARKING GRATUIT", "PARKING"))
}
