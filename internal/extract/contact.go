package extract

import (
	"regexp"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	// French phone: +33 or leading 0, then 9 digits in pairs
	phoneRe      = regexp.MustCompile(`(?:\+33\s?|0)[1-9](?:[ .\-]?\d{2}){4}`)
	postalCityRe = regexp.MustCompile(`\b\d{5}\b\s+[A-Za-zÀ-ÿ]`)
)

var streetKeywords = []string{
	"RUE", "AVENUE", "AV.", "BOULEVARD", "BD", "CHEMIN", "ROUTE",
	"PLACE", "ALLÉE", "ALLEE", "IMPASSE", "QUAI", "COURS",
}

func (e *Extractor) extractEmail(doc *document) string {
	return emailRe.FindString(doc.text)
}

func (e *Extractor) extractPhone(doc *document) string {
	return strings.TrimSpace(phoneRe.FindString(doc.text))
}

// extractShopAddress looks for a street-shaped line, preferring the
// lines right after a supplier label since the first address block on an
// invoice is usually the customer's. The following line is appended when
// it carries a postal code and city.
func (e *Extractor) extractShopAddress(doc *document) string {
	limit := len(doc.lines)
	if limit > 20 {
		limit = 20
	}

	for i := 0; i < limit; i++ {
		if !containsAnySubstring(strings.ToUpper(doc.lines[i]), e.rules.SupplierLabels) {
			continue
		}
		for j := i + 1; j < i+6 && j < len(doc.lines); j++ {
			if addr := e.addressAt(doc, j); addr != "" {
				return addr
			}
		}
		break
	}

	for i := 0; i < limit; i++ {
		if addr := e.addressAt(doc, i); addr != "" {
			return addr
		}
	}
	return ""
}

func (e *Extractor) addressAt(doc *document, i int) string {
	ln := doc.lines[i]
	street := containsAny(strings.ToUpper(ln), streetKeywords)
	if !street && !postalCityRe.MatchString(ln) {
		return ""
	}
	if strings.Contains(ln, "@") {
		return ""
	}
	addr := ln
	if street && i+1 < len(doc.lines) && postalCityRe.MatchString(doc.lines[i+1]) {
		addr = addr + ", " + doc.lines[i+1]
	}
	return truncate(addr, 200)
}
