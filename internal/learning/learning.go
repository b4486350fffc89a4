// Package learning persists extraction outcomes and human corrections,
// and suggests corrections for new documents that resemble previously
// corrected ones.
package learning

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Huser-Networks/admin-assistant-ocr/internal/extract"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/home"
)

const (
	// FingerprintWords is the number of leading tokens used as the
	// approximate key for correction lookup.
	FingerprintWords = 20

	// SimilarityThreshold is the minimum Jaccard similarity between two
	// fingerprints for a stored correction to apply to a new document.
	SimilarityThreshold = 0.7
)

// Correction is one stored human correction.
type Correction struct {
	CorrectedValue     string `json:"corrected_value"`
	OriginalExtraction string `json:"original_extraction"`
	Timestamp          string `json:"timestamp"`
	Confidence         string `json:"confidence"`
}

// Corrections maps fingerprints to corrections, one table per
// extraction kind. Entries are appended or overwritten, never deleted.
type Corrections struct {
	Date     map[string]Correction `json:"date_corrections"`
	Supplier map[string]Correction `json:"supplier_corrections"`
	Invoice  map[string]Correction `json:"invoice_corrections"`
	Filename map[string]Correction `json:"filename_corrections"`
}

func emptyCorrections() Corrections {
	return Corrections{
		Date:     map[string]Correction{},
		Supplier: map[string]Correction{},
		Invoice:  map[string]Correction{},
		Filename: map[string]Correction{},
	}
}

// SuccessCounts tracks per-kind extraction hits.
type SuccessCounts struct {
	Date     int `json:"date"`
	Supplier int `json:"supplier"`
	Invoice  int `json:"invoice"`
}

// Stats holds aggregate counters across all runs.
type Stats struct {
	TotalProcessed        int            `json:"total_processed"`
	SuccessfulExtractions SuccessCounts  `json:"successful_extractions"`
	CommonSuppliers       map[string]int `json:"common_suppliers"`
}

func emptyStats() Stats {
	return Stats{CommonSuppliers: map[string]int{}}
}

// Store is the learning store. Extraction runs in parallel but every
// read-modify-write of the backing files goes through one mutex, so
// concurrent workers cannot persist overlapping snapshots.
type Store struct {
	mu sync.Mutex

	correctionsPath string
	statsPath       string

	corrections Corrections
	stats       Stats

	logger *slog.Logger
	now    func() time.Time
}

// Open loads the corrections and stats stores from the home directory.
// An unreadable or corrupt store file falls back to an empty store with
// a warning; it never fails the run.
func Open(dir *home.Dir, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		correctionsPath: dir.CorrectionsPath(),
		statsPath:       dir.StatsPath(),
		corrections:     emptyCorrections(),
		stats:           emptyStats(),
		logger:          logger.With("component", "learning"),
		now:             time.Now,
	}

	if err := loadJSON(s.correctionsPath, &s.corrections); err != nil {
		s.logger.Warn("corrections store unreadable, starting empty", "path", s.correctionsPath, "error", err)
		s.corrections = emptyCorrections()
	}
	if s.corrections.Date == nil {
		s.corrections.Date = map[string]Correction{}
	}
	if s.corrections.Supplier == nil {
		s.corrections.Supplier = map[string]Correction{}
	}
	if s.corrections.Invoice == nil {
		s.corrections.Invoice = map[string]Correction{}
	}
	if s.corrections.Filename == nil {
		s.corrections.Filename = map[string]Correction{}
	}

	if err := loadJSON(s.statsPath, &s.stats); err != nil {
		s.logger.Warn("stats store unreadable, starting empty", "path", s.statsPath, "error", err)
		s.stats = emptyStats()
	}
	if s.stats.CommonSuppliers == nil {
		s.stats.CommonSuppliers = map[string]int{}
	}

	return s
}

func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// RecordExtraction updates the aggregate counters for one processed
// document and persists them. The fallback supplier does not count as
// a successful extraction.
func (s *Store) RecordExtraction(res extract.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.TotalProcessed++
	if res.Date != "" {
		s.stats.SuccessfulExtractions.Date++
	}
	if res.Supplier != "" && res.Supplier != extract.UnknownSupplier {
		s.stats.SuccessfulExtractions.Supplier++
		s.stats.CommonSuppliers[res.Supplier]++
	}
	if res.Invoice != "" {
		s.stats.SuccessfulExtractions.Invoice++
	}

	return s.saveStatsLocked()
}

// AddCorrection stores a human correction keyed by the fingerprint of
// the document's OCR text and persists the corrections table.
func (s *Store) AddCorrection(kind extract.Kind, originalText, correctedValue, previousValue string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table := s.tableFor(kind)
	if table == nil {
		return fmt.Errorf("unknown correction kind %q", kind)
	}

	table[Fingerprint(originalText)] = Correction{
		CorrectedValue:     correctedValue,
		OriginalExtraction: previousValue,
		Timestamp:          s.now().Format(time.RFC3339),
		Confidence:         "manual_correction",
	}

	s.logger.Info("correction recorded", "kind", kind, "value", correctedValue)
	return s.saveCorrectionsLocked()
}

func (s *Store) tableFor(kind extract.Kind) map[string]Correction {
	switch kind {
	case extract.KindDate:
		return s.corrections.Date
	case extract.KindSupplier:
		return s.corrections.Supplier
	case extract.KindInvoice:
		return s.corrections.Invoice
	case "filename":
		return s.corrections.Filename
	default:
		return nil
	}
}

// Suggest returns, per extraction kind, the stored correction whose
// fingerprint is similar enough to the given OCR text. Order-insensitive
// and case-insensitive bag-of-words matching.
func (s *Store) Suggest(text string) map[extract.Kind]Correction {
	s.mu.Lock()
	defer s.mu.Unlock()

	suggestions := map[extract.Kind]Correction{}
	tables := map[extract.Kind]map[string]Correction{
		extract.KindDate:     s.corrections.Date,
		extract.KindSupplier: s.corrections.Supplier,
		extract.KindInvoice:  s.corrections.Invoice,
	}
	for kind, table := range tables {
		for fingerprint, correction := range table {
			if Similarity(text, fingerprint) >= SimilarityThreshold {
				suggestions[kind] = correction
				break
			}
		}
	}
	return suggestions
}

// Fingerprint returns the first FingerprintWords whitespace-separated
// tokens of text, joined by single spaces.
func Fingerprint(text string) string {
	words := strings.Fields(text)
	if len(words) > FingerprintWords {
		words = words[:FingerprintWords]
	}
	return strings.Join(words, " ")
}

// Similarity computes the Jaccard similarity of the lowercased
// fingerprint token sets of two texts. Empty texts never match.
func Similarity(a, b string) float64 {
	setA := fingerprintSet(a)
	setB := fingerprintSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func fingerprintSet(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	if len(words) > FingerprintWords {
		words = words[:FingerprintWords]
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Report renders aggregate success rates, the five most frequent
// suppliers, and threshold-based recommendations.
func (s *Store) Report() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.stats.TotalProcessed
	if total == 0 {
		return "No documents processed yet.\n"
	}

	rate := func(n int) float64 { return float64(n) / float64(total) * 100 }
	ok := s.stats.SuccessfulExtractions

	var b strings.Builder
	b.WriteString("=== OCR Improvement Report ===\n\n")
	fmt.Fprintf(&b, "Documents processed: %d\n", total)
	fmt.Fprintf(&b, "Date success rate: %.1f%%\n", rate(ok.Date))
	fmt.Fprintf(&b, "Supplier success rate: %.1f%%\n", rate(ok.Supplier))
	fmt.Fprintf(&b, "Invoice success rate: %.1f%%\n", rate(ok.Invoice))

	b.WriteString("\nTop suppliers:\n")
	for _, sup := range topSuppliers(s.stats.CommonSuppliers, 5) {
		fmt.Fprintf(&b, "- %s: %d documents\n", sup.name, sup.count)
	}

	learned := len(s.corrections.Date) + len(s.corrections.Supplier) +
		len(s.corrections.Invoice) + len(s.corrections.Filename)
	fmt.Fprintf(&b, "\nLearned corrections: %d\n", learned)

	b.WriteString("\nRecommendations:\n")
	recommended := false
	if rate(ok.Date) < 80 {
		b.WriteString("- Improve date detection (add date patterns)\n")
		recommended = true
	}
	if rate(ok.Supplier) < 70 {
		b.WriteString("- Refine supplier extraction (review user info and keywords)\n")
		recommended = true
	}
	if rate(ok.Invoice) < 60 {
		b.WriteString("- Improve reference number detection\n")
		recommended = true
	}
	if !recommended {
		b.WriteString("- Extraction quality within target thresholds\n")
	}

	return b.String()
}

type supplierCount struct {
	name  string
	count int
}

func topSuppliers(counts map[string]int, n int) []supplierCount {
	out := make([]supplierCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, supplierCount{name, count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Stats returns a copy of the current counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.stats
	out.CommonSuppliers = make(map[string]int, len(s.stats.CommonSuppliers))
	for k, v := range s.stats.CommonSuppliers {
		out.CommonSuppliers[k] = v
	}
	return out
}

func (s *Store) saveStatsLocked() error {
	return writeJSON(s.statsPath, s.stats)
}

func (s *Store) saveCorrectionsLocked() error {
	return writeJSON(s.correctionsPath, s.corrections)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
