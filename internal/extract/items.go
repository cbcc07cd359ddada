package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/invoicetosheet/ocr-service/internal/models"
)

const maxItemDescriptionLen = 200

var (
	// quantity with a unit suffix, e.g. "43,101 kWh" or "2 pcs"
	qtyUnitRe   = regexp.MustCompile(`(?i)(\d+[.,]\d+|\d+)\s*(kwh|kg|g|ml|l|m|cm|mm|unité|unit|pcs|pièces|pièce)`)
	bareNumRe   = regexp.MustCompile(`\b(\d+[.,]\d+|\d+)\b`)
	euroPriceRe = regexp.MustCompile(`(?i)(\d+[.,]\d+|\d+)\s*(?:€|eur)`)
	descSplitRe = regexp.MustCompile(`(?i)\d+[.,]?\d*\s*(?:€|eur)`)

	// "2 x 15,50 € = 31,00 €"
	qtyTimesPriceRe = regexp.MustCompile(`(?i)(\d+)\s*x\s*(\d[\d \x{00a0}]*[.,]?\d{0,2})\s*(?:€|eur)?\s*[=:]\s*(\d[\d \x{00a0}]*[.,]?\d{0,2})\s*(?:€|eur)?`)
	// "Description ... 12,34 €" with the amount closing the line
	trailingAmountRe = regexp.MustCompile(`(?i)^(.+?)\s+(-?\d[\d \x{00a0}]*[.,]?\d{0,2})\s*(€|eur)?\s*$`)
	// "2 Description ... 12,34"
	leadingQtyRe = regexp.MustCompile(`(?i)^(\d+)\s+(.+?)\s+(-?\d[\d \x{00a0}]*[.,]?\d{0,2})\s*(€|eur)?\s*$`)
)

var itemLabelKeywords = []string{
	"DESCRIPTION", "TVA", "QUANTITÉ", "QUANTITE", "PRIX", "TOTAL",
}

// parseItems extracts line items from the zone between the table header
// and the totals section. Structured table parsing runs first; the
// free-form patterns only run when the table parser found nothing, so a
// clean table is never double-counted.
func (e *Extractor) parseItems(doc *document) []models.LineItem {
	lines := doc.lines

	startIdx := 0
	headerIdx := -1
	for i, ln := range lines {
		if containsAnySubstring(strings.ToUpper(ln), e.rules.ItemHeaderKeywords) {
			startIdx = i + 1
			headerIdx = i
			break
		}
	}

	isTable := false
	if headerIdx >= 0 {
		up := strings.ToUpper(lines[headerIdx])
		isTable = containsAnySubstring(up, []string{"DESCRIPTION", "QUANTITÉ", "QUANTITE", "PRIX HT", "PRIX TTC", "TVA"})
	}

	// the items zone ends where the totals block starts
	var section []string
	for _, ln := range lines[startIdx:] {
		up := strings.ToUpper(ln)
		if containsAnySubstring(up, e.rules.ItemStopTokens) && strings.IndexFunc(ln, isDigitRune) >= 0 {
			break
		}
		section = append(section, ln)
	}

	var items []models.LineItem
	if isTable && len(section) > 0 {
		items = e.parseTableItems(section)
	}
	if len(items) == 0 {
		items = e.parseFreeformItems(section)
	}

	if len(items) > e.rules.MaxItems {
		items = items[:e.rules.MaxItems]
	}
	return items
}

func isDigitRune(r rune) bool { return r >= '0' && r <= '9' }

// parseTableItems handles structured rows: a textual description, a
// quantity (often with a unit like kWh), then one or two euro amounts
// read as net price and gross total.
func (e *Extractor) parseTableItems(lines []string) []models.LineItem {
	var items []models.LineItem

	for _, ln := range lines {
		if len(ln) < 3 {
			continue
		}
		if containsAnySubstring(strings.ToUpper(ln), itemLabelKeywords) {
			continue
		}

		qty := decimal.NewFromInt(1)
		if m := qtyUnitRe.FindStringSubmatch(ln); m != nil {
			if q, ok := normAmount(m[1]); ok && q.IsPositive() {
				qty = q
			}
		} else if m := bareNumRe.FindStringSubmatch(ln); m != nil {
			if q, ok := normAmount(m[1]); ok && q.IsPositive() {
				qty = q
			}
		}

		prices := euroPriceRe.FindAllStringSubmatch(ln, -1)
		desc := strings.TrimSpace(descSplitRe.Split(ln, 2)[0])
		if !e.validItemDescription(desc) {
			continue
		}

		switch {
		case len(prices) >= 2:
			priceHT, ok1 := normAmount(prices[0][1])
			priceTTC, ok2 := normAmount(prices[1][1])
			if !ok1 || !ok2 {
				continue
			}
			unit := priceHT
			if qty.IsPositive() {
				unit = priceHT.Div(qty).Round(4)
			}
			items = append(items, models.LineItem{
				Description: truncate(desc, maxItemDescriptionLen),
				Quantity:    qty,
				UnitPrice:   unit,
				Total:       priceTTC,
			})
		case len(prices) == 1:
			priceTTC, ok := normAmount(prices[0][1])
			if !ok {
				continue
			}
			unit := priceTTC
			if qty.IsPositive() {
				unit = priceTTC.Div(qty).Round(4)
			}
			items = append(items, models.LineItem{
				Description: truncate(desc, maxItemDescriptionLen),
				Quantity:    qty,
				UnitPrice:   unit,
				Total:       priceTTC,
			})
		}
	}
	return items
}

// parseFreeformItems is the fallback for receipts without a recognizable
// table: "qty x price = total", a trailing amount after a description,
// or a leading quantity with a trailing amount.
func (e *Extractor) parseFreeformItems(lines []string) []models.LineItem {
	var items []models.LineItem

	for _, ln := range lines {
		if len(ln) < 3 {
			continue
		}
		up := strings.ToUpper(ln)
		if containsAnySubstring(up, []string{"TOTAL", "SOUS-TOTAL", "TVA", "VAT", "NET"}) {
			continue
		}

		if m := qtyTimesPriceRe.FindStringSubmatch(ln); m != nil {
			qty, _ := strconv.Atoi(m[1])
			unitPrice, unitOK := normAmount(m[2])
			total, totalOK := normAmount(m[3])
			desc := strings.TrimSpace(qtyTimesPriceRe.ReplaceAllString(ln, ""))
			if e.validItemDescription(desc) && totalOK && qty > 0 {
				if !unitOK {
					unitPrice = total.Div(decimal.NewFromInt(int64(qty))).Round(4)
				}
				items = append(items, models.LineItem{
					Description: truncate(desc, maxItemDescriptionLen),
					Quantity:    decimal.NewFromInt(int64(qty)),
					UnitPrice:   unitPrice,
					Total:       total,
				})
				continue
			}
		}

		if m := trailingAmountRe.FindStringSubmatch(ln); m != nil {
			desc := strings.TrimSpace(m[1])
			total, ok := normAmount(m[2])
			if e.validItemDescription(desc) && len(desc) >= 3 && ok && total.IsPositive() {
				items = append(items, models.LineItem{
					Description: truncate(desc, maxItemDescriptionLen),
					Quantity:    decimal.NewFromInt(1),
					UnitPrice:   total,
					Total:       total,
				})
				continue
			}
		}

		if m := leadingQtyRe.FindStringSubmatch(ln); m != nil {
			qty, _ := strconv.Atoi(m[1])
			desc := strings.TrimSpace(m[2])
			total, ok := normAmount(m[3])
			if e.validItemDescription(desc) && ok && total.IsPositive() && qty > 0 {
				items = append(items, models.LineItem{
					Description: truncate(desc, maxItemDescriptionLen),
					Quantity:    decimal.NewFromInt(int64(qty)),
					UnitPrice:   total.Div(decimal.NewFromInt(int64(qty))).Round(4),
					Total:       total,
				})
			}
		}
	}
	return items
}

// validItemDescription is the shared rejection filter: no header/total
// labels, at least 2 characters with a letter, not digit-dominated.
func (e *Extractor) validItemDescription(desc string) bool {
	if len(desc) < 2 || !hasLetter(desc) {
		return false
	}
	if digitRatio(desc) >= 0.5 {
		return false
	}
	return !containsAnySubstring(strings.ToUpper(desc), itemLabelKeywords)
}
