package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// amountPattern matches a currency amount: optional sign, digits with
// space/nbsp thousand grouping, optional comma or dot decimals.
const amountPattern = `(-?\d[\d \x{00a0}]*[.,]?\d{0,2})`

var (
	amountCleanRe  = regexp.MustCompile(`[^\d,.\-]`)
	vatAmountRegex = []*regexp.Regexp{
		// "TVA 20% 1,29 €": the rate then the amount
		regexp.MustCompile(`(?i)TVA\s+\d+\s*%\s+` + amountPattern + `\s*(€|eur)?`),
		regexp.MustCompile(`(?i)TVA\s+\d+\s*%\s*[:;]?\s*` + amountPattern + `\s*(€|eur)?`),
		// Bare "TVA" with an amount, percent excluded
		regexp.MustCompile(`(?i)TVA\s*[:;]?\s*` + amountPattern + `\s*(€|eur)?`),
		regexp.MustCompile(`(?i)TVA[^\d%\-]{0,30}` + amountPattern + `\s*(€|eur)?`),
	}
)

// normAmount parses a raw amount string: currency symbols stripped,
// French decimal comma normalized.
func normAmount(s string) (decimal.Decimal, bool) {
	v := strings.TrimSpace(s)
	if v == "" {
		return decimal.Zero, false
	}
	v = strings.ReplaceAll(v, "€", "")
	v = strings.ReplaceAll(v, "EUR", "")
	v = strings.ReplaceAll(v, " ", " ")
	v = amountCleanRe.ReplaceAllString(v, "")
	if strings.Count(v, ",") == 1 && !strings.Contains(v, ".") {
		v = strings.Replace(v, ",", ".", 1)
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Label boundaries are spelled out instead of \b: RE2's \b is
// ASCII-only, so it never fires between a space and an accented
// letter ("NET À PAYER" would be unreachable).
const (
	labelStart = `(?:^|[^\p{L}\p{N}])`
	labelEnd   = `(?:$|[^\p{L}\p{N}])`
)

// findTotal hunts for an amount anchored to one of the labels, trying
// three layouts per label: amount right after the label, amount within
// 50 characters after it, amount just before it. Within a layout the
// LAST match in the document wins, since the final total sits at the
// bottom below any per-section subtotals.
func (e *Extractor) findTotal(doc *document, labels []string) (decimal.Decimal, bool) {
	for _, label := range labels {
		quoted := regexp.QuoteMeta(label)
		patterns := []string{
			fmt.Sprintf(`(?i)%s%s\s*[:;]?\s*%s\s*(€|eur)?`, labelStart, quoted, amountPattern),
			fmt.Sprintf(`(?i)%s%s%s[^\d\-]{0,50}%s\s*(€|eur)?`, labelStart, quoted, labelEnd, amountPattern),
			fmt.Sprintf(`(?i)%s\s*(€|eur)?\s*%s%s%s`, amountPattern, labelStart, quoted, labelEnd),
		}
		for _, p := range patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				continue
			}
			matches := re.FindAllStringSubmatch(doc.text, -1)
			for i := len(matches) - 1; i >= 0; i-- {
				if amt, ok := normAmount(matches[i][1]); ok && amt.IsPositive() {
					return amt, true
				}
			}
		}
	}
	return decimal.Zero, false
}

// vatAmountCeiling bounds plausible VAT amounts; anything above is
// almost certainly a misparsed total or identifier, anything that is a
// bare rate (20, 10, 5.5) is filtered by the rate-aware patterns first.
var vatAmountCeiling = decimal.NewFromInt(1000)

// findVATAmount looks for the VAT amount, not the rate: the rate-aware
// patterns ("TVA 20% <amount>") run first so a trailing percentage is
// never mistaken for the amount. Last match wins, same as findTotal.
func (e *Extractor) findVATAmount(doc *document) (decimal.Decimal, bool) {
	for _, re := range vatAmountRegex {
		matches := re.FindAllStringSubmatch(doc.text, -1)
		for i := len(matches) - 1; i >= 0; i-- {
			amt, ok := normAmount(matches[i][1])
			if ok && amt.IsPositive() && amt.LessThan(vatAmountCeiling) {
				return amt, true
			}
		}
	}
	return decimal.Zero, false
}
