// Package home manages the adminocr home directory layout.
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the adminocr home directory.
	DefaultDirName = ".adminocr"

	// ScanDirName is the subdirectory holding incoming scanned documents,
	// one subfolder per document category.
	ScanDirName = "scan"

	// OutputDirName is the subdirectory where renamed copies are placed,
	// mirroring the scan subtree.
	OutputDirName = "output"

	// ValidatedDirName holds one marker file per human-accepted output.
	ValidatedDirName = ".validated"

	// LogsDirName holds run logs and the review queue.
	LogsDirName = "logs"

	// ConfigFileName is the primary config file name.
	ConfigFileName = "config.json"

	// HierarchicalConfigFileName holds the global profile plus folder deltas.
	HierarchicalConfigFileName = "hierarchical_config.json"

	// RulesFileName holds the extraction rule tables.
	RulesFileName = "extraction_rules.json"

	// CorrectionsFileName holds human corrections keyed by text fingerprint.
	CorrectionsFileName = "corrections.json"

	// StatsFileName holds aggregate extraction counters.
	StatsFileName = "extraction_stats.json"

	// ReviewQueueFileName holds the most recent extraction results awaiting review.
	ReviewQueueFileName = "last_extraction_results.json"
)

// Dir represents the adminocr home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.adminocr).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ScanPath returns the path to the scan directory.
func (d *Dir) ScanPath() string {
	return filepath.Join(d.path, ScanDirName)
}

// ScanFolderPath returns the path to one category subfolder under scan/.
func (d *Dir) ScanFolderPath(folder string) string {
	return filepath.Join(d.ScanPath(), folder)
}

// OutputPath returns the path to the output directory.
func (d *Dir) OutputPath() string {
	return filepath.Join(d.path, OutputDirName)
}

// OutputFolderPath returns the mirrored output subfolder for a category.
func (d *Dir) OutputFolderPath(folder string) string {
	return filepath.Join(d.OutputPath(), folder)
}

// ValidatedPath returns the directory holding validation markers.
func (d *Dir) ValidatedPath() string {
	return filepath.Join(d.OutputPath(), ValidatedDirName)
}

// ValidatedMarkerPath returns the marker file path for an output filename.
func (d *Dir) ValidatedMarkerPath(filename string) string {
	return filepath.Join(d.ValidatedPath(), filename+".validated.json")
}

// LogsPath returns the logs directory.
func (d *Dir) LogsPath() string {
	return filepath.Join(d.path, LogsDirName)
}

// ReviewQueuePath returns the path to the review queue file.
func (d *Dir) ReviewQueuePath() string {
	return filepath.Join(d.LogsPath(), ReviewQueueFileName)
}

// ConfigPath returns the path to the primary config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// HierarchicalConfigPath returns the path to the hierarchical config file.
func (d *Dir) HierarchicalConfigPath() string {
	return filepath.Join(d.path, HierarchicalConfigFileName)
}

// RulesPath returns the path to the extraction rules file.
func (d *Dir) RulesPath() string {
	return filepath.Join(d.path, RulesFileName)
}

// CorrectionsPath returns the path to the corrections store.
func (d *Dir) CorrectionsPath() string {
	return filepath.Join(d.path, CorrectionsFileName)
}

// StatsPath returns the path to the stats store.
func (d *Dir) StatsPath() string {
	return filepath.Join(d.path, StatsFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, p := range []string{d.ScanPath(), d.OutputPath(), d.ValidatedPath(), d.LogsPath()} {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", p, err)
		}
	}
	return nil
}

// EnsureFolder creates the scan and mirrored output subfolders for a category.
func (d *Dir) EnsureFolder(folder string) error {
	for _, p := range []string{d.ScanFolderPath(folder), d.OutputFolderPath(folder)} {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", p, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the primary config file exists.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
