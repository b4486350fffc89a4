package extract

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Huser-Networks/admin-assistant-ocr/internal/profile"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/rules"
)

// months maps French month names and common abbreviations to two-digit
// numbers. OCR text is lowercased before lookup.
var months = map[string]string{
	"janvier": "01", "février": "02", "mars": "03", "avril": "04",
	"mai": "05", "juin": "06", "juillet": "07", "août": "08",
	"septembre": "09", "octobre": "10", "novembre": "11", "décembre": "12",
	"jan": "01", "fév": "02", "avr": "04", "juil": "07", "aoû": "08",
	"sep": "09", "oct": "10", "nov": "11", "déc": "12",
}

// DateExtractor finds the most probable document date.
type DateExtractor struct {
	rules  *rules.Store
	logger *slog.Logger
}

// NewDateExtractor creates a date extractor over the given rule store.
func NewDateExtractor(rs *rules.Store, logger *slog.Logger) *DateExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &DateExtractor{rules: rs, logger: logger.With("extractor", "date")}
}

// Kind returns KindDate.
func (e *DateExtractor) Kind() Kind { return KindDate }

// Extract returns the best date as an 8-digit YYYYMMDD string.
func (e *DateExtractor) Extract(text string, _ *profile.Effective) (string, bool) {
	lower := strings.ToLower(text)
	var candidates []Candidate

	for _, set := range e.rules.DateSets() {
		for _, re := range set.Patterns {
			for _, m := range re.FindAllStringSubmatchIndex(lower, -1) {
				pos := m[0]
				groups := submatches(lower, m)
				parsed, ok := parseDate(groups, set.Type)
				if !ok {
					continue
				}
				candidates = append(candidates, Candidate{
					Value:  parsed,
					Score:  dateScore(lower, pos, set.Keywords, set.Priority),
					Kind:   KindDate,
					Pos:    pos,
					Source: set.Type,
				})
			}
		}
	}

	win, ok := best(candidates)
	if !ok {
		e.logger.Debug("no date found")
		return "", false
	}
	e.logger.Debug("date extracted", "date", win.Value, "score", win.Score, "type", win.Source)
	return win.Value, true
}

// dateScore is basePriority*10, plus a proximity bonus for each keyword
// found in the 50 characters before the match, minus a slow penalty for
// matches far from the document start.
func dateScore(lower string, pos int, keywords []string, priority int) float64 {
	score := float64(priority * 10)

	for _, kw := range keywords {
		start := pos - 50
		if start < 0 {
			start = 0
		}
		window := lower[start:pos]
		if idx := strings.LastIndex(window, kw); idx != -1 {
			distance := len(window) - idx
			score += float64(50-distance) * 2
		}
	}

	if pos > 500 {
		score -= float64(pos-500) / 100
	}

	return score
}

// parseDate normalizes the capture groups to YYYYMMDD according to the
// pattern family: french_text (textual month), iso (year first), and the
// default day-first numeric forms.
func parseDate(groups []string, patternType string) (string, bool) {
	if len(groups) < 3 {
		return "", false
	}

	var day, month, year string
	switch patternType {
	case "french_text":
		m, ok := months[groups[1]]
		if !ok {
			return "", false
		}
		day, month, year = groups[0], m, groups[2]
	case "iso":
		year, month, day = groups[0], groups[1], groups[2]
	default:
		day, month, year = groups[0], groups[1], groups[2]
	}

	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return "", false
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return "", false
	}
	if len(year) != 4 {
		return "", false
	}

	return fmt.Sprintf("%s%02d%02d", year, m, d), true
}

// submatches extracts capture group texts from a FindAllStringSubmatchIndex
// entry, skipping the whole-match pair.
func submatches(s string, m []int) []string {
	groups := make([]string, 0, len(m)/2-1)
	for i := 2; i < len(m); i += 2 {
		if m[i] < 0 {
			groups = append(groups, "")
			continue
		}
		groups = append(groups, s[m[i]:m[i+1]])
	}
	return groups
}
