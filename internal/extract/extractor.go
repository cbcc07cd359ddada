package extract

import (
	"strings"
	"unicode"

	"github.com/invoicetosheet/ocr-service/internal/models"
)

// Extractor parses recognized document text into a structured invoice
// record. Every field extractor is a pure function over the text: it
// returns its best candidate or the zero value, never an error, since
// "not found" is ordinary on real documents.
type Extractor struct {
	rules *Rules
}

// New builds an Extractor around a rule set. Pass DefaultRules() for the
// stock French/English tables.
func New(rules *Rules) *Extractor {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Extractor{rules: rules}
}

// document is the shared read-only view the field extractors work on.
type document struct {
	text  string
	upper string
	lines []string
}

func newDocument(text string) *document {
	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	return &document{text: text, upper: strings.ToUpper(text), lines: lines}
}

// Extract runs every field extractor and assembles the record. Totals
// arrive raw; cross-field corrections are the validator's job.
func (e *Extractor) Extract(text string) *models.InvoiceRecord {
	doc := newDocument(text)

	rec := &models.InvoiceRecord{
		DocumentType:  e.detectDocumentType(doc),
		ShopName:      e.extractShopName(doc),
		CustomerName:  e.extractCustomerName(doc),
		Date:          e.extractDate(doc),
		InvoiceNumber: e.extractInvoiceNumber(doc),
		TicketNumber:  e.extractTicketNumber(doc),
		IBAN:          e.extractIBAN(doc),
		SIRET:         e.extractSIRET(doc),
		VATNumber:     e.extractVATNumber(doc),
		Items:         e.parseItems(doc),
	}
	rec.ShopAddress = e.extractShopAddress(doc)
	rec.ShopPhone = e.extractPhone(doc)
	rec.ShopEmail = e.extractEmail(doc)

	if ttc, ok := e.findTotal(doc, e.rules.GrossTotalLabels); ok {
		rec.TotalTTC = ttc
	}
	if ht, ok := e.findTotal(doc, e.rules.NetTotalLabels); ok {
		rec.TotalHT = ht
	}
	if vat, ok := e.findVATAmount(doc); ok {
		rec.VATAmount = vat
	}
	return rec
}

// containsAny reports whether s contains any keyword as a whole word.
// Substring matching misfires badly here ("PARIS" contains "RIS"...), so
// matches must be delimited by non-letter-digit runes.
func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if containsWord(s, kw) {
			return true
		}
	}
	return false
}

func containsWord(s, word string) bool {
	if word == "" {
		return false
	}
	for start := 0; ; {
		idx := strings.Index(s[start:], word)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(word)
		beforeOK := idx == 0 || !isWordRune(lastRune(s[:idx]))
		afterOK := end == len(s) || !isWordRune(firstRune(s[end:]))
		if beforeOK && afterOK {
			return true
		}
		start = idx + 1
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func lastRune(s string) rune {
	var last rune
	for _, r := range s {
		last = r
	}
	return last
}

// digitRatio is the share of digit runes in s.
func digitRatio(s string) float64 {
	if s == "" {
		return 0
	}
	digits, total := 0, 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits++
		}
		total++
	}
	return float64(digits) / float64(total)
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func inSet(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
