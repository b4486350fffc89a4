package extract

import (
	"strings"
	"testing"
)

func TestInvoiceExtractor_FindsKeywordIntroducedNumbers(t *testing.T) {
	e := NewInvoiceExtractor(testRules(t), nil)

	cases := []struct {
		name string
		text string
		want string
	}{
		{"facture n°", "Facture n° FAC-2024-001 du 15/03/2024", "FAC-2024-001"},
		{"facture no", "facture no 2024-889", "2024-889"},
		{"reference", "Référence: REF/2024/42", "REF/2024/42"},
		{"order", "Commande n° CMD-77", "CMD-77"},
		{"invoice english", "Invoice INV-555", "INV-555"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := e.Extract(tc.text, nil)
			if !ok {
				t.Fatal("expected an invoice number")
			}
			if got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestInvoiceExtractor_UnicodePrefixKeepsKeywordAlignment(t *testing.T) {
	e := NewInvoiceExtractor(testRules(t), nil)

	// The Kelvin sign lowercases to a plain k and loses two UTF-8 bytes,
	// so byte offsets in a lowercased copy drift from the original text.
	kelvin := strings.Repeat("K", 8)
	text := kelvin + " 300\nFacture n° FAC-2024-001"

	got, ok := e.Extract(text, nil)
	if !ok {
		t.Fatal("expected an invoice number")
	}
	if got != "FAC-2024-001" {
		t.Errorf("expected FAC-2024-001, got %s", got)
	}
}

func TestInvoiceExtractor_ValidityFilter(t *testing.T) {
	e := NewInvoiceExtractor(testRules(t), nil)

	cases := []struct {
		name string
		text string
	}{
		{"phone number rejected", "Facture n° 0612345678"},
		{"plain date rejected", "Facture n° 15/03/2024"},
		{"no digits rejected", "Facture n° ABC"},
		{"nothing after keyword", "Facture n°"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got, ok := e.Extract(tc.text, nil); ok {
				t.Errorf("expected rejection, got %q", got)
			}
		})
	}
}

func TestInvoiceExtractor_StandardBeatsQuote(t *testing.T) {
	e := NewInvoiceExtractor(testRules(t), nil)

	text := "Devis n° DEV-111\nFacture n° FAC-222"
	got, ok := e.Extract(text, nil)
	if !ok {
		t.Fatal("expected an invoice number")
	}
	if got != "FAC-222" {
		t.Errorf("standard family should outrank quote, got %s", got)
	}
}

func TestCleanInvoiceNumber(t *testing.T) {
	cases := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"trailing punctuation", "FAC-123;: ", 30, "FAC-123"},
		{"internal whitespace collapsed", "FAC 2024  001", 30, "FAC_2024_001"},
		{"length capped", strings.Repeat("A1", 30), 10, "A1A1A1A1A1"},
		{"already clean", "REF-42", 30, "REF-42"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanInvoiceNumber(tc.in, tc.max); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
