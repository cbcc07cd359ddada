package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

const (
	maxShopNameLen     = 120
	maxCustomerNameLen = 150
)

var (
	leadingDateRe = regexp.MustCompile(`^\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`)
	labelValueRe  = regexp.MustCompile(`[:;]`)
	entitySplitRe = regexp.MustCompile(`\s+(?:SARL|SAS|SA|SRL|LTD|LLC|INC|CORP|GMBH)\b`)
	partSplitRe   = regexp.MustCompile(`[,\s]+`)
)

// isValidShopName rejects labels, pure-digit strings, date-shaped lines
// and anything too short to be a real business name.
func (e *Extractor) isValidShopName(name string) bool {
	if len(name) < 2 {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(name))
	if inSet(lower, e.rules.InvalidShopNames) {
		return false
	}
	if strings.HasSuffix(lower, ":") || strings.HasSuffix(lower, ";") {
		return false
	}
	if !hasLetter(name) {
		return false
	}
	if digitRatio(name) > 0.4 {
		return false
	}
	if leadingDateRe.MatchString(name) {
		return false
	}
	return len(strings.TrimSpace(name)) >= 3
}

func (e *Extractor) isValidCustomerName(name string) bool {
	if len(name) < 2 {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(name))
	if inSet(lower, e.rules.InvalidCustomerNames) {
		return false
	}
	if strings.HasSuffix(lower, ":") || strings.HasSuffix(lower, ";") {
		return false
	}
	if !hasLetter(name) {
		return false
	}
	if digitRatio(name) > 0.3 {
		return false
	}
	if strings.Contains(name, "@") {
		return false
	}
	return !leadingDateRe.MatchString(name)
}

// looksLikeCompanyName: legal-entity suffix, business vocabulary, or
// simply long and multi-word.
func (e *Extractor) looksLikeCompanyName(name string) bool {
	if len(name) < 3 {
		return false
	}
	up := strings.ToUpper(name)
	if containsAny(up, e.rules.CompanyIndicators) {
		return true
	}
	if len(strings.Fields(name)) >= 3 && len(name) > 15 {
		return true
	}
	return containsAny(up, e.rules.BusinessWords)
}

// looksLikePersonName: one or two short words, mostly letters, no
// legal-entity suffix.
func (e *Extractor) looksLikePersonName(name string) bool {
	if name == "" {
		return false
	}
	words := strings.Fields(name)
	if len(words) > 2 || len(name) >= 20 {
		return false
	}
	if containsAny(strings.ToUpper(name), e.rules.CompanyIndicators) {
		return false
	}
	letters := 0
	for _, r := range name {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return float64(letters)/float64(len(name)) > 0.7
}

// extractShopName tries five strategies in order: a known-brand lookup
// in the logo zone, the line after a supplier label, the first
// substantial top line, an explicit name label, and finally any line
// carrying a legal-entity suffix.
func (e *Extractor) extractShopName(doc *document) string {
	lines := doc.lines

	// known brands in the top lines, where logos render as text
	top := lines
	if len(top) > 10 {
		top = top[:10]
	}
	for _, brand := range e.rules.KnownVendors {
		for _, ln := range top {
			up := strings.ToUpper(ln)
			if !strings.Contains(up, brand) || !e.isValidShopName(ln) {
				continue
			}
			if len(ln) < 50 {
				return truncate(ln, maxShopNameLen)
			}
			for _, part := range partSplitRe.Split(ln, -1) {
				if strings.Contains(strings.ToUpper(part), brand) && e.isValidShopName(part) {
					return truncate(part, maxShopNameLen)
				}
			}
		}
	}

	// line following a supplier label
	scan := lines
	if len(scan) > 25 {
		scan = scan[:25]
	}
	for i, ln := range scan {
		if !containsAnySubstring(strings.ToUpper(ln), e.rules.SupplierLabels) {
			continue
		}
		for j := i + 1; j < i+5 && j < len(lines); j++ {
			candidate := lines[j]
			if containsAnySubstring(strings.ToUpper(candidate), e.rules.VendorSkipKeywords) {
				continue
			}
			if digitRatio(candidate) > 0.3 {
				continue
			}
			if e.isValidShopName(candidate) {
				return truncate(candidate, maxShopNameLen)
			}
		}
	}

	// first substantial line in the logo zone
	zone := lines
	if len(zone) > 8 {
		zone = zone[:8]
	}
	for _, ln := range zone {
		up := strings.ToUpper(ln)
		if containsAnySubstring(up, e.rules.VendorSkipKeywords) {
			continue
		}
		if digitRatio(ln) > 0.3 || len(ln) < 3 {
			continue
		}
		if leadingDateRe.MatchString(ln) || strings.Contains(ln, "@") {
			continue
		}
		if e.isValidShopName(ln) && len(ln) >= 5 {
			return truncate(ln, maxShopNameLen)
		}
	}

	// explicit name labels
	scan = lines
	if len(scan) > 30 {
		scan = scan[:30]
	}
	for _, ln := range scan {
		up := strings.ToUpper(ln)
		if containsAnySubstring(up, []string{"RAISON SOCIALE", "ENTREPRISE", "SOCIÉTÉ", "SOCIETE", "COMPANY"}) {
			parts := labelValueRe.Split(ln, 2)
			if len(parts) > 1 {
				candidate := strings.TrimSpace(parts[1])
				if e.isValidShopName(candidate) {
					return truncate(candidate, maxShopNameLen)
				}
			}
		}
	}

	// legal-entity suffixes
	scan = lines
	if len(scan) > 15 {
		scan = scan[:15]
	}
	for _, ln := range scan {
		up := strings.ToUpper(ln)
		if !containsAny(up, []string{"SARL", "SAS", "SA", "SRL", "LTD", "LLC", "INC", "CORP", "GMBH"}) {
			continue
		}
		if parts := entitySplitRe.Split(up, 2); len(parts) > 1 && parts[0] != "" {
			candidate := strings.TrimSpace(parts[0])
			if e.isValidShopName(candidate) && len(candidate) >= 3 {
				return truncate(candidate, maxShopNameLen)
			}
		}
		if e.isValidShopName(ln) {
			return truncate(ln, maxShopNameLen)
		}
	}

	return ""
}

type scoredCandidate struct {
	score int
	name  string
}

// extractCustomerName locates the "billed to" block and scores each
// following line: companies beat persons, longer and multi-word names
// beat fragments. When the winner still looks like a bare person name,
// the runner-ups are searched for a company before settling.
func (e *Extractor) extractCustomerName(doc *document) string {
	lines := doc.lines
	scan := lines
	if len(scan) > 30 {
		scan = scan[:30]
	}

	for i, ln := range scan {
		up := strings.ToUpper(ln)
		if !containsAnySubstring(up, e.rules.CustomerLabels) {
			continue
		}

		var candidates []string
		for j := i + 1; j < i+8 && j < len(lines); j++ {
			candidate := lines[j]
			cup := strings.ToUpper(candidate)
			// a supplier label ends the billed-to block
			if containsAnySubstring(cup, e.rules.SupplierLabels) {
				break
			}
			if containsAnySubstring(cup, []string{"ADRESSE", "ADDRESS", "EMAIL", "TEL", "TÉL", "DATE"}) {
				continue
			}
			if digitRatio(candidate) > 0.3 || strings.Contains(candidate, "@") {
				continue
			}
			if leadingDateRe.MatchString(candidate) {
				continue
			}
			// address and country lines belong to the billing block but
			// are never the customer
			if containsAny(cup, streetKeywords) || postalCityRe.MatchString(candidate) {
				continue
			}
			if inSet(strings.ToLower(candidate), e.rules.CountryNames) {
				continue
			}
			if e.isValidCustomerName(candidate) {
				candidates = append(candidates, candidate)
			}
		}

		if len(candidates) > 0 {
			if name := e.pickCustomer(candidates); name != "" {
				return name
			}
		}

		// label and value on the same line
		if parts := labelValueRe.Split(ln, 2); len(parts) > 1 {
			candidate := strings.TrimSpace(parts[1])
			if e.isValidCustomerName(candidate) {
				if !e.looksLikePersonName(candidate) || e.looksLikeCompanyName(candidate) {
					return truncate(candidate, maxCustomerNameLen)
				}
			}
		}
	}

	// explicit company / name labels as fallback
	for _, keywords := range [][]string{
		{"RAISON SOCIALE", "ENTREPRISE", "SOCIÉTÉ", "SOCIETE", "COMPANY", "SOCIETY"},
		{"NOM", "NAME", "ACHETEUR", "BUYER"},
	} {
		for _, ln := range scan {
			if !containsAnySubstring(strings.ToUpper(ln), keywords) {
				continue
			}
			if parts := labelValueRe.Split(ln, 2); len(parts) > 1 {
				candidate := strings.TrimSpace(parts[1])
				if e.isValidCustomerName(candidate) {
					return truncate(candidate, maxCustomerNameLen)
				}
			}
		}
	}

	return ""
}

func (e *Extractor) pickCustomer(candidates []string) string {
	scored := make([]scoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		score := 0
		if e.looksLikeCompanyName(c) {
			score += 100
		}
		if e.looksLikePersonName(c) {
			score -= 50
		}
		if len(c) < 50 {
			score += len(c)
		} else {
			score += 50
		}
		score += len(strings.Fields(c)) * 5
		scored = append(scored, scoredCandidate{score, c})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	best := scored[0].name
	if e.looksLikeCompanyName(best) {
		return truncate(best, maxCustomerNameLen)
	}
	if e.looksLikePersonName(best) {
		for _, sc := range scored[1:] {
			if e.looksLikeCompanyName(sc.name) {
				return truncate(sc.name, maxCustomerNameLen)
			}
		}
		for _, sc := range scored[1:] {
			if len(sc.name) > len(best)+10 {
				return truncate(sc.name, maxCustomerNameLen)
			}
		}
		if len(best) < 10 {
			for _, sc := range scored[1:] {
				if len(sc.name) >= 10 && !e.looksLikePersonName(sc.name) {
					return truncate(sc.name, maxCustomerNameLen)
				}
			}
		}
	}
	return truncate(best, maxCustomerNameLen)
}

// containsAnySubstring is the loose variant used for multi-word labels
// like "FACTURÉ À", where whole-word boundaries are unreliable after
// noisy recognition.
func containsAnySubstring(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
