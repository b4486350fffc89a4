// Package extract pulls a date, supplier name and invoice number out of
// noisy OCR text using scored candidates from declarative rule tables.
package extract

import (
	"sort"

	"github.com/Huser-Networks/admin-assistant-ocr/internal/profile"
)

// Kind identifies what an extractor looks for.
type Kind string

const (
	KindDate     Kind = "date"
	KindSupplier Kind = "supplier"
	KindInvoice  Kind = "invoice"
)

// UnknownSupplier is the fallback value when no supplier candidate survives.
const UnknownSupplier = "UnknownSupplier"

// Candidate is a provisional extracted value competing with others of the
// same kind. Candidates are transient: produced and consumed within one
// extraction call.
type Candidate struct {
	Value  string
	Score  float64
	Kind   Kind
	Pos    int    // character or line offset of the match
	Source string // pattern family or keyword that produced the match
}

// Extractor is implemented by the date, supplier and invoice extractors.
// Extract returns the winning cleaned value, or ok=false when no valid
// candidate exists; the caller applies fallback policy.
type Extractor interface {
	Kind() Kind
	Extract(text string, cfg *profile.Effective) (value string, ok bool)
}

// Result is the winning candidate per kind. Empty strings mean the
// extractor found nothing and the fallback policy applies.
type Result struct {
	Date     string `json:"date"`
	Supplier string `json:"supplier"`
	Invoice  string `json:"invoice"`
}

// best orders candidates by score descending; equal scores resolve to the
// earliest position so extraction is deterministic.
func best(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Pos < candidates[j].Pos
	})
	return candidates[0], true
}
