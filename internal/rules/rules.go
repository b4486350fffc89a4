// Package rules loads the declarative extraction rule tables.
//
// The rule file is read-only at run time: extractors consume compiled
// patterns but never mutate the tables.
package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
)

// ErrInvalidRules is returned when the rule file fails schema validation
// or contains a pattern that does not compile.
var ErrInvalidRules = errors.New("invalid extraction rules")

// DatePatternSet describes one family of date surface forms.
type DatePatternSet struct {
	Patterns []string `json:"patterns"`
	Keywords []string `json:"keywords"`
	Priority int      `json:"priority"`
}

// InvoicePatternSet describes one family of invoice/reference numbers.
type InvoicePatternSet struct {
	Keywords  []string `json:"keywords"`
	Patterns  []string `json:"patterns"`
	MaxLength int      `json:"max_length"`
}

// SupplierRules holds the supplier indicator keywords.
type SupplierRules struct {
	CompanyIndicators []string `json:"company_indicators"`
}

// Rules is the on-disk shape of the rule file.
type Rules struct {
	DatePatterns    map[string]DatePatternSet    `json:"date_patterns"`
	InvoicePatterns map[string]InvoicePatternSet `json:"invoice_patterns"`
	SupplierRules   SupplierRules                `json:"supplier_rules"`
}

// CompiledDateSet pairs a pattern family with its compiled regexps.
type CompiledDateSet struct {
	Type     string
	Keywords []string
	Priority int
	Patterns []*regexp.Regexp
}

// CompiledInvoiceSet pairs an invoice family with its compiled regexps.
type CompiledInvoiceSet struct {
	Type      string
	Keywords  []string
	MaxLength int
	Patterns  []*regexp.Regexp
}

// Store holds the loaded rule tables with patterns precompiled.
type Store struct {
	raw      Rules
	dates    []CompiledDateSet
	invoices []CompiledInvoiceSet
}

// Load reads, validates and compiles the rule file at path.
// A missing file is repaired by writing the documented defaults first.
func Load(path string) (*Store, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := WriteDefault(path); err != nil {
			return nil, fmt.Errorf("failed to write default rules: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return Parse(data)
}

// Parse validates and compiles a rule document.
func Parse(data []byte) (*Store, error) {
	if err := validateSchema(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}

	var r Rules
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}

	s := &Store{raw: r}
	for typ, set := range r.DatePatterns {
		compiled := CompiledDateSet{Type: typ, Keywords: set.Keywords, Priority: set.Priority}
		for _, p := range set.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("%w: date pattern %q: %v", ErrInvalidRules, p, err)
			}
			compiled.Patterns = append(compiled.Patterns, re)
		}
		s.dates = append(s.dates, compiled)
	}

	for typ, set := range r.InvoicePatterns {
		maxLen := set.MaxLength
		if maxLen <= 0 {
			maxLen = DefaultInvoiceMaxLength
		}
		compiled := CompiledInvoiceSet{Type: typ, Keywords: set.Keywords, MaxLength: maxLen}
		for _, p := range set.Patterns {
			// Invoice patterns match against mixed-case context.
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("%w: invoice pattern %q: %v", ErrInvalidRules, p, err)
			}
			compiled.Patterns = append(compiled.Patterns, re)
		}
		s.invoices = append(s.invoices, compiled)
	}

	return s, nil
}

// DateSets returns the compiled date pattern families.
func (s *Store) DateSets() []CompiledDateSet {
	return s.dates
}

// InvoiceSets returns the compiled invoice pattern families.
func (s *Store) InvoiceSets() []CompiledInvoiceSet {
	return s.invoices
}

// CompanyIndicators returns the supplier indicator keywords.
func (s *Store) CompanyIndicators() []string {
	return s.raw.SupplierRules.CompanyIndicators
}
