package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDateFormats(t *testing.T) {
	e := New(nil)

	tests := []struct {
		name string
		text string
		want string
	}{
		{"iso", "Date: 2024-01-15", "2024-01-15"},
		{"iso slashes", "2024/01/15", "2024-01-15"},
		{"french day first", "Le 15/01/2024", "2024-01-15"},
		{"dashes", "15-01-2024", "2024-01-15"},
		{"two digit year", "15/01/24", "2024-01-15"},
		{"written french", "Paris, le 15 janvier 2024", "2024-01-15"},
		{"written english", "Issued 3 March 2025", "2025-03-03"},
		{"premier", "1er février 2024", "2024-02-01"},
		{"no date", "TOTAL TTC 12,50", ""},
		{"year too old", "15/01/1999", ""},
		{"year too far", "15/01/2150", ""},
		{"bad calendar day", "31/02/2024", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.extractDate(newDocument(tt.text)))
		})
	}
}

func TestExtractDateIdempotent(t *testing.T) {
	e := New(nil)
	first := e.extractDate(newDocument("Facture du 07/03/2024"))
	assert.Equal(t, "2024-03-07", first)
	assert.Equal(t, first, e.extractDate(newDocument(first)))
}

func TestExtractDatePrefersISO(t *testing.T) {
	e := New(nil)
	got := e.extractDate(newDocument("Echéance 20/02/2024, émise le 2024-01-15"))
	assert.Equal(t, "2024-01-15", got)
}
