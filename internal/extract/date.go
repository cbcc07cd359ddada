package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoDateRe     = regexp.MustCompile(`\b(\d{4})[-/](\d{2})[-/](\d{2})\b`)
	numericDateRe = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`), // DD/MM/YYYY
		regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{2})\b`), // DD/MM/YY
	}
	ymdDateRe     = regexp.MustCompile(`\b(\d{4})[/-](\d{1,2})[/-](\d{1,2})\b`)
	writtenDateRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:er)?\s+([a-zéûà.]+),?\s+(\d{4})\b`)
)

var monthNames = map[string]time.Month{
	"janvier": 1, "january": 1, "jan": 1,
	"février": 2, "fevrier": 2, "february": 2, "feb": 2, "fév": 2, "fev": 2,
	"mars": 3, "march": 3, "mar": 3,
	"avril": 4, "april": 4, "avr": 4, "apr": 4,
	"mai": 5, "may": 5,
	"juin": 6, "june": 6, "jun": 6,
	"juillet": 7, "july": 7, "juil": 7, "jul": 7,
	"août": 8, "aout": 8, "august": 8, "aug": 8,
	"septembre": 9, "september": 9, "sept": 9, "sep": 9,
	"octobre": 10, "october": 10, "oct": 10,
	"novembre": 11, "november": 11, "nov": 11,
	"décembre": 12, "decembre": 12, "december": 12, "déc": 12, "dec": 12,
}

// extractDate finds the document date and returns it in ISO 8601 form,
// or "" when nothing parses. Pattern order: ISO, day-first numeric
// (the French convention), year-first numeric, written month names.
// Only years in [2000, 2100] are accepted, which filters out phone
// number and identifier fragments.
func (e *Extractor) extractDate(doc *document) string {
	text := doc.text

	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		if d, ok := buildDate(m[1], m[2], m[3]); ok {
			return d
		}
	}

	for _, re := range numericDateRe {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			year := m[3]
			if len(year) == 2 {
				year = "20" + year
			}
			// day first
			if d, ok := buildDate(year, m[2], m[1]); ok {
				return d
			}
		}
	}

	for _, m := range ymdDateRe.FindAllStringSubmatch(text, -1) {
		if d, ok := buildDate(m[1], m[2], m[3]); ok {
			return d
		}
	}

	for _, m := range writtenDateRe.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSuffix(strings.ToLower(m[2]), ".")
		month, known := monthNames[name]
		if !known {
			continue
		}
		if d, ok := buildDate(m[3], strconv.Itoa(int(month)), m[1]); ok {
			return d
		}
	}

	return ""
}

// buildDate validates the components against the calendar and the
// accepted year range, returning the canonical YYYY-MM-DD form.
func buildDate(year, month, day string) (string, bool) {
	y, err := strconv.Atoi(year)
	if err != nil || y < 2000 || y > 2100 {
		return "", false
	}
	mo, err := strconv.Atoi(month)
	if err != nil || mo < 1 || mo > 12 {
		return "", false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return "", false
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (Feb 30 -> Mar 2); round-trips that
	// moved are invalid calendar dates
	if t.Year() != y || t.Month() != time.Month(mo) || t.Day() != d {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, mo, d), true
}
