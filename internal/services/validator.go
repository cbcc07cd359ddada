package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/invoicetosheet/ocr-service/internal/extract"
	"github.com/invoicetosheet/ocr-service/internal/models"
)

// InvoiceValidator applies post-extraction corrections and consistency
// checks to an invoice record. Repairs it is confident about are applied
// and reported in the record's Corrections list; a genuine mismatch sets
// the validation_error flag instead of guessing.
type InvoiceValidator struct {
	// tolerance is the absolute currency-unit slack allowed on
	// HT + VAT = TTC, covering per-line rounding.
	tolerance decimal.Decimal

	countryNames map[string]bool
	extractor    *extract.Extractor
}

// NewInvoiceValidator creates a validator with the default 0.01 currency
// unit tolerance and the stock country-name table.
func NewInvoiceValidator() *InvoiceValidator {
	rules := extract.DefaultRules()
	countries := make(map[string]bool, len(rules.CountryNames))
	for _, c := range rules.CountryNames {
		countries[c] = true
	}
	return &InvoiceValidator{
		tolerance:    decimal.NewFromFloat(0.01),
		countryNames: countries,
		extractor:    extract.New(rules),
	}
}

// Validate runs every correction and check in order: identifier
// re-validation, name cleanup, VAT derivation, totals-swap repair, and
// finally the arithmetic consistency check that drives the
// validation_error flag.
func (v *InvoiceValidator) Validate(rec *models.InvoiceRecord) {
	v.revalidateIdentifiers(rec)
	v.cleanNames(rec)
	v.deriveVAT(rec)
	v.repairSwappedTotals(rec)
	v.roundAmounts(rec)
	v.checkConsistency(rec)
}

// ValidateAndNormalize is the package-level entry point used by the
// extraction pipeline.
func ValidateAndNormalize(rec *models.InvoiceRecord) {
	NewInvoiceValidator().Validate(rec)
}

// revalidateIdentifiers nulls identifier values that fail the same rules
// extraction uses; a wrong identifier is worse than an absent one.
func (v *InvoiceValidator) revalidateIdentifiers(rec *models.InvoiceRecord) {
	if rec.IBAN != "" && !extract.ValidIBAN(rec.IBAN) {
		rec.IBAN = ""
	}

	if rec.VATNumber != "" {
		vat := strings.ToUpper(strings.ReplaceAll(rec.VATNumber, " ", ""))
		valid := len(vat) >= 4 && len(vat) <= 20 &&
			isASCIILetters(vat[:2]) &&
			v.extractor.ValidVATNumber(vat)
		// French VAT is exactly FR + 11 characters
		if valid && strings.HasPrefix(vat, "FR") && len(vat) != 13 {
			valid = false
		}
		if valid {
			rec.VATNumber = vat
		} else {
			rec.VATNumber = ""
		}
	}

	if rec.SIRET != "" {
		siret := strings.NewReplacer(" ", "", "-", "").Replace(rec.SIRET)
		if isAllDigits(siret) && (len(siret) == 9 || len(siret) == 14) {
			rec.SIRET = siret
		} else {
			rec.SIRET = ""
		}
	}
}

// cleanNames rejects country names posing as the customer and clears a
// customer identical to the vendor, both common extraction artifacts on
// address blocks.
func (v *InvoiceValidator) cleanNames(rec *models.InvoiceRecord) {
	if rec.CustomerName != "" {
		lower := strings.ToLower(strings.TrimSpace(rec.CustomerName))
		first := strings.Fields(lower)
		if v.countryNames[lower] || (len(first) > 0 && v.countryNames[first[0]]) {
			rec.CustomerName = ""
		}
	}

	if rec.ShopName != "" && rec.CustomerName != "" {
		if strings.EqualFold(strings.TrimSpace(rec.ShopName), strings.TrimSpace(rec.CustomerName)) {
			rec.CustomerName = ""
		}
	}
}

// deriveVAT fills in a missing VAT amount from the two totals.
func (v *InvoiceValidator) deriveVAT(rec *models.InvoiceRecord) {
	if !rec.VATAmount.IsZero() {
		return
	}
	if rec.TotalTTC.IsZero() || rec.TotalHT.IsZero() {
		return
	}
	vat := rec.TotalTTC.Sub(rec.TotalHT)
	if !vat.IsPositive() {
		return
	}
	rec.VATAmount = vat
	rec.Corrections = append(rec.Corrections, "vat_amount derived from total_ttc - total_ht")
}

// repairSwappedTotals handles TTC < HT, usually a field-position swap
// from noisy recognition. The swap is applied only when it makes the
// arithmetic more consistent, and it is reported as a correction rather
// than silently absorbed, since it could equally mask a misread amount.
func (v *InvoiceValidator) repairSwappedTotals(rec *models.InvoiceRecord) {
	if rec.TotalTTC.IsZero() || rec.TotalHT.IsZero() {
		return
	}
	if !rec.TotalTTC.LessThan(rec.TotalHT) {
		return
	}

	diffAsIs := rec.TotalTTC.Sub(rec.TotalHT).Sub(rec.VATAmount).Abs()
	diffSwapped := rec.TotalHT.Sub(rec.TotalTTC).Sub(rec.VATAmount).Abs()
	if diffSwapped.LessThan(diffAsIs) {
		rec.TotalHT, rec.TotalTTC = rec.TotalTTC, rec.TotalHT
		rec.Corrections = append(rec.Corrections, "total_ht and total_ttc swapped to restore ht + vat = ttc")
	}
}

func (v *InvoiceValidator) roundAmounts(rec *models.InvoiceRecord) {
	rec.TotalHT = clampRound(rec.TotalHT)
	rec.TotalTTC = clampRound(rec.TotalTTC)
	rec.VATAmount = clampRound(rec.VATAmount)
	for i := range rec.Items {
		rec.Items[i].Total = clampRound(rec.Items[i].Total)
		if rec.Items[i].UnitPrice.IsNegative() {
			rec.Items[i].UnitPrice = decimal.Zero
		}
	}
}

// checkConsistency sets the validation flag when the three amounts are
// all known and do not add up within tolerance. Records with a missing
// total are left unflagged: absence is a confidence signal of its own,
// not an arithmetic error.
func (v *InvoiceValidator) checkConsistency(rec *models.InvoiceRecord) {
	rec.ValidationError = false
	rec.ValidationMessage = nil

	if rec.TotalHT.IsZero() || rec.TotalTTC.IsZero() {
		return
	}

	diff := rec.TotalHT.Add(rec.VATAmount).Sub(rec.TotalTTC).Abs()
	if diff.GreaterThan(v.tolerance) {
		rec.ValidationError = true
		msg := fmt.Sprintf("total mismatch: HT %s + VAT %s = %s, expected TTC %s (diff %s)",
			rec.TotalHT, rec.VATAmount, rec.TotalHT.Add(rec.VATAmount), rec.TotalTTC, diff)
		rec.ValidationMessage = &msg
	}
}

func clampRound(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(2)
}

func isAllDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

func isASCIILetters(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return len(s) > 0
}
