package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-adminocr")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-adminocr" {
			t.Errorf("expected path /tmp/test-adminocr, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-adminocr")

	cases := []struct {
		name     string
		got      string
		expected string
	}{
		{"ScanPath", dir.ScanPath(), "/tmp/test-adminocr/scan"},
		{"OutputPath", dir.OutputPath(), "/tmp/test-adminocr/output"},
		{"ValidatedPath", dir.ValidatedPath(), "/tmp/test-adminocr/output/.validated"},
		{"ConfigPath", dir.ConfigPath(), "/tmp/test-adminocr/config.json"},
		{"RulesPath", dir.RulesPath(), "/tmp/test-adminocr/extraction_rules.json"},
		{"CorrectionsPath", dir.CorrectionsPath(), "/tmp/test-adminocr/corrections.json"},
		{"StatsPath", dir.StatsPath(), "/tmp/test-adminocr/extraction_stats.json"},
		{"ReviewQueuePath", dir.ReviewQueuePath(), "/tmp/test-adminocr/logs/last_extraction_results.json"},
		{"ScanFolderPath", dir.ScanFolderPath("Factures"), "/tmp/test-adminocr/scan/Factures"},
		{"OutputFolderPath", dir.OutputFolderPath("Factures"), "/tmp/test-adminocr/output/Factures"},
		{"ValidatedMarkerPath", dir.ValidatedMarkerPath("20240315_Edf.pdf"), "/tmp/test-adminocr/output/.validated/20240315_Edf.pdf.validated.json"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.expected {
				t.Errorf("expected %s, got %s", tc.expected, tc.got)
			}
		})
	}
}

func TestDir_EnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	homeDir := filepath.Join(tmpDir, "adminocr-test")

	dir, err := New(homeDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dir.Exists() {
		t.Error("directory should not exist before EnsureExists")
	}

	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}

	if !dir.Exists() {
		t.Error("directory should exist after EnsureExists")
	}

	for _, p := range []string{dir.ScanPath(), dir.OutputPath(), dir.ValidatedPath(), dir.LogsPath()} {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			t.Errorf("%s should exist after EnsureExists", p)
		}
	}
}

func TestDir_EnsureFolder(t *testing.T) {
	dir, _ := New(t.TempDir())
	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}

	if err := dir.EnsureFolder("Impots"); err != nil {
		t.Fatalf("EnsureFolder failed: %v", err)
	}

	if _, err := os.Stat(dir.ScanFolderPath("Impots")); err != nil {
		t.Errorf("scan subfolder missing: %v", err)
	}
	if _, err := os.Stat(dir.OutputFolderPath("Impots")); err != nil {
		t.Errorf("output subfolder missing: %v", err)
	}
}
