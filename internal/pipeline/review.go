package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Huser-Networks/admin-assistant-ocr/internal/extract"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/learning"
)

const (
	// reviewQueueCap bounds the review queue to the most recent entries.
	reviewQueueCap = 50

	// previewRunes bounds the OCR text preview stored per entry.
	previewRunes = 500
)

// ReviewEntry is one processed document awaiting human review.
// Suggestions carry corrected values learned from similar documents.
type ReviewEntry struct {
	Timestamp      string                               `json:"timestamp"`
	OriginalFile   string                               `json:"original_file"`
	FinalFilename  string                               `json:"final_filename"`
	ExtractedData  extract.Result                       `json:"extracted_data"`
	Suggestions    map[extract.Kind]learning.Correction `json:"suggestions,omitempty"`
	OCRTextPreview string                               `json:"ocr_text_preview"`
}

func newReviewEntry(now time.Time, sourcePath, finalName string, res extract.Result, suggestions map[extract.Kind]learning.Correction, text string) ReviewEntry {
	return ReviewEntry{
		Timestamp:      now.Format(time.RFC3339),
		OriginalFile:   sourcePath,
		FinalFilename:  finalName,
		ExtractedData:  res,
		Suggestions:    suggestions,
		OCRTextPreview: preview(text),
	}
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + "..."
}

// LoadReviewQueue reads the review queue. A missing or corrupt file
// yields an empty queue.
func LoadReviewQueue(path string) []ReviewEntry {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var entries []ReviewEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}
	return entries
}

// appendReviewEntries appends to the queue on disk, keeping only the
// most recent reviewQueueCap entries.
func appendReviewEntries(path string, entries []ReviewEntry) error {
	all := append(LoadReviewQueue(path), entries...)
	if len(all) > reviewQueueCap {
		all = all[len(all)-reviewQueueCap:]
	}

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode review queue: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write review queue: %w", err)
	}
	return nil
}
