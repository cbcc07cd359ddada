package extract

import (
	"regexp"
	"strings"
)

var ibanCountryLengths = map[string]int{
	"FR": 27,
	"BE": 16,
	"DE": 22,
	"IT": 27,
	"ES": 24,
	"NL": 18,
	"GB": 22,
}

var (
	ibanLabeledRe = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:IBAN|RIB|COMPTE|ACCOUNT)\s*[:;]?\s*([A-Z]{2}\d{2}[A-Z0-9 ]{10,30})`),
		regexp.MustCompile(`(?i)(?:IBAN|RIB)\s*[:;]?\s*([A-Z]{2} ?\d{2} ?[A-Z0-9 ]{10,30})`),
	}
	ibanBareRe = regexp.MustCompile(`([A-Z]{2}\d{2}[A-Z0-9]{10,30})`)

	spaceRe = regexp.MustCompile(`\s+`)

	siretRe = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:SIRET|SIREN)\s*[:;]?\s*([0-9 ]{9,17})`),
		regexp.MustCompile(`\b([0-9]{3} ?[0-9]{3} ?[0-9]{3} ?[0-9]{5})\b`),
		regexp.MustCompile(`\b([0-9]{9,14})\b`),
	}

	vatNumberRe = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:TVA|VAT)\s*(?:INTRA(?:[-\s]?COMMUNAUTAIRE)?)?\s*[:;]?\s*([A-Z]{2}[A-Z0-9 ]{2,15})`),
		regexp.MustCompile(`\b([A-Z]{2}\d{11})\b`),
		regexp.MustCompile(`\b([A-Z]{2}\d{2}[A-Z0-9 ]{7,11})\b`),
	}

	invoiceNumberRe = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:N[°º]|NUM[ÉE]RO|NO|NUMBER|REF|R[ÉE]F[ÉE]RENCE)\s*[:;]?\s*([A-Z0-9\-/]+)`),
		regexp.MustCompile(`(?i)(?:FACTURE|INVOICE|TICKET)\s*(?:N[°º]|#)?\s*([A-Z0-9\-/]+)`),
	}

	ticketNumberRe = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:TICKET|BON|RE[ÇC]U)\s*(?:N[°º]|#)?\s*([0-9\-/]+)`),
		regexp.MustCompile(`(?i)(?:N[°º]|NUM[ÉE]RO)\s*[:;]?\s*([0-9\-/]+)`),
	}
)

// ValidIBAN checks structure and checksum: 2-letter country code,
// 2-digit check, country-specific length, mod-97 remainder of 1. French
// IBANs additionally require at least one letter in the account part,
// which rejects all-digit look-alikes such as misread VAT numbers.
func ValidIBAN(iban string) bool {
	s := strings.ToUpper(spaceRe.ReplaceAllString(strings.TrimSpace(iban), ""))
	if len(s) < 15 || len(s) > 34 {
		return false
	}
	if !isAlpha(s[:2]) || !isDigits(s[2:4]) {
		return false
	}
	if !isAlnum(s) {
		return false
	}

	country := s[:2]
	if want, known := ibanCountryLengths[country]; known && len(s) != want {
		return false
	}

	if country == "FR" {
		if isDigits(s[4:]) {
			return false
		}
	}

	return ibanMod97(s) == 1
}

// ibanMod97 rearranges the first 4 characters to the end, maps letters
// to base-36 values and reduces mod 97 incrementally so no big-integer
// arithmetic is needed.
func ibanMod97(iban string) int {
	rearranged := iban[4:] + iban[:4]
	rem := 0
	for i := 0; i < len(rearranged); i++ {
		c := rearranged[i]
		switch {
		case c >= '0' && c <= '9':
			rem = (rem*10 + int(c-'0')) % 97
		case c >= 'A' && c <= 'Z':
			v := int(c-'A') + 10
			rem = (rem*100 + v) % 97
		default:
			return 0
		}
	}
	return rem
}

// extractIBAN prefers explicitly labeled candidates, then falls back to
// bare IBAN-shaped tokens, requiring clean word boundaries so fragments
// of longer alphanumeric runs are not picked up.
func (e *Extractor) extractIBAN(doc *document) string {
	for _, re := range ibanLabeledRe {
		for _, m := range re.FindAllStringSubmatch(doc.text, -1) {
			candidate := strings.ToUpper(spaceRe.ReplaceAllString(m[1], ""))
			if ValidIBAN(candidate) {
				return truncate(candidate, 34)
			}
		}
	}

	for _, m := range ibanBareRe.FindAllStringSubmatchIndex(doc.text, -1) {
		start, end := m[2], m[3]
		if start > 0 && isAlnumByte(doc.text[start-1]) {
			continue
		}
		if end < len(doc.text) && isAlnumByte(doc.text[end]) {
			continue
		}
		candidate := strings.ToUpper(doc.text[start:end])
		if ValidIBAN(candidate) {
			return truncate(candidate, 34)
		}
	}
	return ""
}

// ValidVATNumber rejects short strings and candidates polluted by table
// header fragments, a frequent artifact when the VAT column label
// bleeds into the number.
func (e *Extractor) ValidVATNumber(vat string) bool {
	if len(vat) < 4 {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(vat))
	return !containsAnySubstring(lower, e.rules.InvalidVATTokens)
}

func (e *Extractor) extractVATNumber(doc *document) string {
	for _, re := range vatNumberRe {
		for _, m := range re.FindAllStringSubmatch(doc.text, -1) {
			candidate := strings.ToUpper(spaceRe.ReplaceAllString(m[1], ""))
			if len(candidate) >= 4 && len(candidate) <= 20 && e.ValidVATNumber(candidate) {
				return truncate(candidate, 20)
			}
		}
	}
	return ""
}

// extractSIRET returns the 14-digit SIRET when present, otherwise the
// 9-digit SIREN. A full SIRET always wins over a SIREN found earlier in
// the text.
func (e *Extractor) extractSIRET(doc *document) string {
	var siren string
	for _, re := range siretRe {
		for _, m := range re.FindAllStringSubmatch(doc.text, -1) {
			candidate := spaceRe.ReplaceAllString(m[1], "")
			if !isDigits(candidate) {
				continue
			}
			switch len(candidate) {
			case 14:
				return candidate
			case 9:
				if siren == "" {
					siren = candidate
				}
			}
		}
	}
	return siren
}

func (e *Extractor) extractInvoiceNumber(doc *document) string {
	for _, re := range invoiceNumberRe {
		for _, m := range re.FindAllStringSubmatch(doc.text, -1) {
			candidate := strings.TrimSpace(m[1])
			if len(candidate) >= 2 && len(candidate) <= 50 {
				return candidate
			}
		}
	}
	return ""
}

func (e *Extractor) extractTicketNumber(doc *document) string {
	for _, re := range ticketNumberRe {
		for _, m := range re.FindAllStringSubmatch(doc.text, -1) {
			candidate := strings.TrimSpace(m[1])
			if len(candidate) >= 1 && len(candidate) <= 30 {
				return candidate
			}
		}
	}
	return ""
}

func isAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return len(s) > 0
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

func isAlnum(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isAlnumByte(s[i]) {
			return false
		}
	}
	return len(s) > 0
}

func isAlnumByte(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}
