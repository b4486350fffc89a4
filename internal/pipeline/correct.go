package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Huser-Networks/admin-assistant-ocr/internal/extract"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/home"
)

// RenameOutput renames an already-produced output file in two phases:
// snapshot-copy the original, attempt the rename, delete the snapshot
// only after success. On failure the original is restored from the
// snapshot. Atomic with respect to this one file only.
func RenameOutput(oldPath, newName string) (string, error) {
	backup := oldPath + ".backup"
	if err := copyFile(oldPath, backup); err != nil {
		return "", fmt.Errorf("failed to snapshot %s: %w", oldPath, err)
	}

	newPath := filepath.Join(filepath.Dir(oldPath), newName)
	if err := os.Rename(oldPath, newPath); err != nil {
		if _, statErr := os.Stat(oldPath); os.IsNotExist(statErr) {
			if restoreErr := copyFile(backup, oldPath); restoreErr != nil {
				return "", fmt.Errorf("rename failed and restore failed: %v (restore: %w)", err, restoreErr)
			}
		}
		os.Remove(backup)
		return "", fmt.Errorf("failed to rename to %s: %w", newName, err)
	}

	os.Remove(backup)
	return newPath, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// ValidatedMarker records a human-accepted output file.
type ValidatedMarker struct {
	Filename    string `json:"filename"`
	Folder      string `json:"folder"`
	ValidatedAt string `json:"validated_at"`
	Date        string `json:"date"`
	Supplier    string `json:"supplier"`
	Invoice     string `json:"invoice"`
	Status      string `json:"status"`
}

// WriteValidatedMarker persists a validation marker for an output file
// so later reviews and reports can tell accepted results apart.
func WriteValidatedMarker(dir *home.Dir, folder, name string, res extract.Result, now time.Time) error {
	marker := ValidatedMarker{
		Filename:    name,
		Folder:      folder,
		ValidatedAt: now.Format(time.RFC3339),
		Date:        res.Date,
		Supplier:    res.Supplier,
		Invoice:     res.Invoice,
		Status:      "validated",
	}

	data, err := json.MarshalIndent(marker, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode marker: %w", err)
	}
	path := dir.ValidatedMarkerPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create marker dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write marker: %w", err)
	}
	return nil
}

// LoadValidatedMarkers reads all validation markers.
func LoadValidatedMarkers(dir *home.Dir) ([]ValidatedMarker, error) {
	paths, err := filepath.Glob(filepath.Join(dir.ValidatedPath(), "*.validated.json"))
	if err != nil {
		return nil, err
	}

	markers := make([]ValidatedMarker, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read marker %s: %w", p, err)
		}
		var m ValidatedMarker
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to decode marker %s: %w", p, err)
		}
		markers = append(markers, m)
	}
	return markers, nil
}
