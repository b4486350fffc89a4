package rules

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultInvoiceMaxLength caps invoice numbers when a family sets no maximum.
const DefaultInvoiceMaxLength = 30

// Default returns the documented default rule tables. They cover French
// administrative documents: numeric and textual dates, invoice/reference/
// order/quote numbers, and legal-form supplier indicators.
func Default() Rules {
	return Rules{
		DatePatterns: map[string]DatePatternSet{
			"french_numeric": {
				Patterns: []string{`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`},
				Keywords: []string{"date", "le", "émise", "facture du", "document du", "établi", "échéance"},
				Priority: 8,
			},
			"dotted": {
				Patterns: []string{`\b(\d{1,2})\.(\d{1,2})\.(\d{4})\b`},
				Keywords: []string{"date", "le", "émise", "échéance"},
				Priority: 7,
			},
			"french_text": {
				Patterns: []string{`\b(\d{1,2})\s+(janvier|février|mars|avril|mai|juin|juillet|août|septembre|octobre|novembre|décembre|jan|fév|avr|juil|aoû|sep|oct|nov|déc)\s+(\d{4})\b`},
				Keywords: []string{"date", "le", "émise", "établi"},
				Priority: 9,
			},
			"iso": {
				Patterns: []string{`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`},
				Keywords: []string{"date"},
				Priority: 6,
			},
		},
		InvoicePatterns: map[string]InvoicePatternSet{
			"standard": {
				Keywords:  []string{"facture n°", "facture no", "facture num", "n° facture", "numéro de facture", "invoice"},
				Patterns:  []string{`[\s:]*([A-Z0-9][A-Z0-9\-/]*)`},
				MaxLength: 30,
			},
			"reference": {
				Keywords:  []string{"référence", "réf.", "ref."},
				Patterns:  []string{`[\s:]*([A-Z0-9][A-Z0-9\-/]*)`},
				MaxLength: 30,
			},
			"order": {
				Keywords:  []string{"commande n°", "bon de commande", "cmd"},
				Patterns:  []string{`[\s:]*([A-Z0-9][A-Z0-9\-/]*)`},
				MaxLength: 30,
			},
			"quote": {
				Keywords:  []string{"devis n°", "devis no"},
				Patterns:  []string{`[\s:]*([A-Z0-9][A-Z0-9\-/]*)`},
				MaxLength: 30,
			},
		},
		SupplierRules: SupplierRules{
			CompanyIndicators: []string{
				"sarl", "sas", "sa", "eurl", "sasu", "eirl", "sàrl",
				"siren", "siret", "tva", "rcs", "ste", "société",
			},
		},
	}
}

// WriteDefault writes the default rule tables to the specified path.
func WriteDefault(path string) error {
	data, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal default rules: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
