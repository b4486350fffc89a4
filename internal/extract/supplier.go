package extract

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Huser-Networks/admin-assistant-ocr/internal/profile"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/rules"
)

// supplierScanLines limits the candidate search to the document header,
// where issuers almost always identify themselves.
const supplierScanLines = 30

// supplierLookahead is how many following lines are searched for invoice
// keywords when awarding the "precedes invoice keyword" bonus.
const supplierLookahead = 10

var (
	registryTail  = regexp.MustCompile(`(?i)\b(siren|siret|tva|n°tva|rcs|ape|naf|capital).*`)
	legalSuffix   = regexp.MustCompile(`(?i)\s+(sarl|sas|sa|eurl|sasu|eirl|sàrl)(\s|$)`)
	bulletGlyphs  = regexp.MustCompile(`[•▪►]`)
	leadingNumber = regexp.MustCompile(`^\d+\s+`)
)

// SupplierExtractor identifies the document issuer while actively
// excluding the addressee. Two independent suppression checks apply:
// recipient zones (line intervals) and identity strings from the
// effective profile. Both are required.
type SupplierExtractor struct {
	rules  *rules.Store
	logger *slog.Logger
}

// NewSupplierExtractor creates a supplier extractor over the given rule store.
func NewSupplierExtractor(rs *rules.Store, logger *slog.Logger) *SupplierExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SupplierExtractor{rules: rs, logger: logger.With("extractor", "supplier")}
}

// Kind returns KindSupplier.
func (e *SupplierExtractor) Kind() Kind { return KindSupplier }

// Extract returns the best supplier line, cleaned of legal suffixes and
// registry mentions.
func (e *SupplierExtractor) Extract(text string, cfg *profile.Effective) (string, bool) {
	lines := strings.Split(text, "\n")
	zones := FindRecipientZones(lines, cfg.ExtractionZones.RecipientZone.Keywords)

	var candidates []Candidate
	limit := len(lines)
	if limit > supplierScanLines {
		limit = supplierScanLines
	}

	for i := 0; i < limit; i++ {
		line := strings.TrimSpace(lines[i])
		if utf8.RuneCountInString(line) < 3 {
			continue
		}

		if InZone(i, zones) {
			e.logger.Debug("line skipped: recipient zone", "line", i)
			continue
		}
		if cfg.ContainsUserInfo(line) {
			e.logger.Debug("line skipped: self identity", "line", i)
			continue
		}

		score := e.supplierScore(line, i, lines, cfg)
		if score <= 0 {
			continue
		}

		cleaned := CleanSupplierName(line)
		if cleaned == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			Value: cleaned,
			Score: score,
			Kind:  KindSupplier,
			Pos:   i,
		})
	}

	win, ok := best(candidates)
	if !ok {
		e.logger.Debug("no supplier identified")
		return "", false
	}
	e.logger.Debug("supplier extracted", "name", win.Value, "score", win.Score, "line", win.Pos)
	return win.Value, true
}

// supplierScore combines a positional bonus, company indicator bonus,
// "precedes invoice keyword" bonus, recipient keyword penalty, a shape
// bonus, and an address-like penalty. Never negative.
func (e *SupplierExtractor) supplierScore(line string, lineNum int, lines []string, cfg *profile.Effective) float64 {
	var score float64
	lower := strings.ToLower(line)

	if lineNum < 10 {
		score += float64(20 - lineNum*2)
	}

	for _, ind := range e.rules.CompanyIndicators() {
		if strings.Contains(lower, ind) {
			score += 30
			break
		}
	}

	for _, kw := range cfg.ExtractionZones.SupplierZone.PreferBeforeKeywords {
		kwLower := strings.ToLower(kw)
		end := lineNum + 1 + supplierLookahead
		if end > len(lines) {
			end = len(lines)
		}
		for j := lineNum + 1; j < end; j++ {
			if strings.Contains(strings.ToLower(lines[j]), kwLower) {
				score += 15
				break
			}
		}
	}

	for _, kw := range cfg.ExtractionZones.SupplierZone.AvoidAfterKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			score -= 50
		}
	}

	n := utf8.RuneCountInString(line)
	if n > 5 && n < 60 {
		score += 10
	}

	if leadingNumber.MatchString(line) {
		score -= 20
	}

	if score < 0 {
		return 0
	}
	return score
}

// CleanSupplierName strips registry-number tails, legal-entity suffixes
// and decorative bullets, then caps the length at 50 characters.
func CleanSupplierName(line string) string {
	line = registryTail.ReplaceAllString(line, "")
	line = legalSuffix.ReplaceAllString(line, " ")
	line = bulletGlyphs.ReplaceAllString(line, "")
	line = strings.TrimSpace(line)

	if utf8.RuneCountInString(line) > 50 {
		runes := []rune(line)
		line = strings.TrimSpace(string(runes[:50]))
	}
	return line
}
