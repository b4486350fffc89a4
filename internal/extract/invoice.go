package extract

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/Huser-Networks/admin-assistant-ocr/internal/profile"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/rules"
)

// invoiceContextWindow is how many characters after a keyword are searched
// for the number itself.
const invoiceContextWindow = 100

// invoiceTypeScores ranks pattern families: a number introduced by
// "facture n°" outranks one introduced by "devis n°".
var invoiceTypeScores = map[string]float64{
	"standard":  30,
	"reference": 25,
	"order":     20,
	"quote":     15,
}

var (
	trailingPunct    = regexp.MustCompile(`[\s.,;:]+$`)
	innerWhitespace  = regexp.MustCompile(`\s+`)
	containsDigit    = regexp.MustCompile(`\d`)
	localPhoneNumber = regexp.MustCompile(`^0\d{9}$`)
	plainDate        = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	invoicePrefix    = regexp.MustCompile(`(?i)^(FAC|INV|REF|CMD|BC|DEV)`)
	structuredNumber = regexp.MustCompile(`(?i)^[A-Z]+[-/]?\d+`)
)

// InvoiceExtractor finds invoice and reference numbers.
type InvoiceExtractor struct {
	rules    *rules.Store
	keywords map[string]*regexp.Regexp
	logger   *slog.Logger
}

// NewInvoiceExtractor creates an invoice extractor over the given rule store.
func NewInvoiceExtractor(rs *rules.Store, logger *slog.Logger) *InvoiceExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	keywords := make(map[string]*regexp.Regexp)
	for _, set := range rs.InvoiceSets() {
		for _, kw := range set.Keywords {
			if _, ok := keywords[kw]; !ok {
				keywords[kw] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(kw))
			}
		}
	}
	return &InvoiceExtractor{rules: rs, keywords: keywords, logger: logger.With("extractor", "invoice")}
}

// Kind returns KindInvoice.
func (e *InvoiceExtractor) Kind() Kind { return KindInvoice }

// Extract returns the best invoice/reference number, cleaned.
func (e *InvoiceExtractor) Extract(text string, _ *profile.Effective) (string, bool) {
	var candidates []Candidate

	for _, set := range e.rules.InvoiceSets() {
		for _, kw := range set.Keywords {
			loc := e.keywords[kw].FindStringIndex(text)
			if loc == nil {
				continue
			}
			pos, start := loc[0], loc[1]
			end := start + invoiceContextWindow
			if end > len(text) {
				end = len(text)
			}
			if start >= end {
				continue
			}
			context := text[start:end]

			for _, re := range set.Patterns {
				m := re.FindStringSubmatch(context)
				if m == nil || len(m) < 2 {
					continue
				}
				value := CleanInvoiceNumber(m[1], set.MaxLength)
				if value == "" || !validInvoiceNumber(value) {
					continue
				}
				candidates = append(candidates, Candidate{
					Value:  value,
					Score:  invoiceScore(value, set.Type, pos),
					Kind:   KindInvoice,
					Pos:    pos,
					Source: kw,
				})
			}
		}
	}

	win, ok := best(candidates)
	if !ok {
		e.logger.Debug("no invoice number found")
		return "", false
	}
	e.logger.Debug("invoice number extracted", "number", win.Value, "score", win.Score, "keyword", win.Source)
	return win.Value, true
}

// CleanInvoiceNumber trims trailing punctuation, collapses internal
// whitespace to a single underscore and caps the length.
func CleanInvoiceNumber(value string, maxLength int) string {
	value = strings.TrimSpace(value)
	value = trailingPunct.ReplaceAllString(value, "")
	if maxLength > 0 && len(value) > maxLength {
		value = value[:maxLength]
	}
	return innerWhitespace.ReplaceAllString(value, "_")
}

// validInvoiceNumber rejects values that cannot be document references:
// digit-free strings, bare local phone numbers, plain dates, and strings
// shorter than two characters.
func validInvoiceNumber(value string) bool {
	if len(value) < 2 {
		return false
	}
	if !containsDigit.MatchString(value) {
		return false
	}
	if localPhoneNumber.MatchString(value) {
		return false
	}
	if plainDate.MatchString(value) {
		return false
	}
	return true
}

// invoiceScore starts at a base of 50 and adds bonuses for the pattern
// family, a recognizable prefix, early position and structured format.
func invoiceScore(value, patternType string, pos int) float64 {
	score := 50.0

	if bonus, ok := invoiceTypeScores[patternType]; ok {
		score += bonus
	} else {
		score += 10
	}

	if invoicePrefix.MatchString(value) {
		score += 20
	}
	if pos < 300 {
		score += 15
	}
	if structuredNumber.MatchString(value) {
		score += 15
	}

	return score
}
