package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Huser-Networks/admin-assistant-ocr/internal/config"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/extract"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/home"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/learning"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/ocr"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/profile"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/rules"
)

// invoiceText is a typical French invoice header: issuer on top, the
// recipient block introduced by a zone keyword further down.
const invoiceText = `EDF
Service Clients
Facture n° FAC-2024-001
Date: 15/03/2024
Destinataire:
M. Jean DUPONT
12 rue des Lilas`

type fixture struct {
	home     *home.Dir
	cfg      *config.Config
	rules    *rules.Store
	profiles *profile.Store
	learning *learning.Store
	logger   *slog.Logger
}

func newFixture(t *testing.T, folders ...string) *fixture {
	t.Helper()
	root := t.TempDir()

	dir, err := home.New(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := dir.EnsureExists(); err != nil {
		t.Fatal(err)
	}
	for _, f := range folders {
		if err := dir.EnsureFolder(f); err != nil {
			t.Fatal(err)
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	rs, err := rules.Load(dir.RulesPath())
	if err != nil {
		t.Fatal(err)
	}
	ps, err := profile.Open(dir.HierarchicalConfigPath(), logger)
	if err != nil {
		t.Fatal(err)
	}
	if err := ps.UpdateGlobal(map[string]any{
		"user_info": map[string]any{
			"names":     []any{"Jean DUPONT"},
			"addresses": []any{"12 rue des Lilas"},
		},
	}); err != nil {
		t.Fatal(err)
	}

	return &fixture{
		home:     dir,
		cfg:      &config.Config{SubFolders: folders, FileExtensions: []string{".pdf"}, Workers: 2},
		rules:    rs,
		profiles: ps,
		learning: learning.Open(dir, logger),
		logger:   logger,
	}
}

func (f *fixture) runner(t *testing.T, engine ocr.Engine, clock func() time.Time) *Runner {
	t.Helper()
	return New(Options{
		Home:     f.home,
		Config:   f.cfg,
		Rules:    f.rules,
		Profiles: f.profiles,
		Learning: f.learning,
		Engine:   engine,
		Logger:   f.logger,
		Clock:    clock,
	})
}

func (f *fixture) addScan(t *testing.T, folder, name string) string {
	t.Helper()
	path := filepath.Join(f.home.ScanFolderPath(folder), name)
	if err := os.WriteFile(path, []byte("%PDF-stub"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func fixedClock(year int, month time.Month, day int) func() time.Time {
	return func() time.Time { return time.Date(year, month, day, 12, 0, 0, 0, time.UTC) }
}

func TestRunRenamesInvoice(t *testing.T) {
	f := newFixture(t, "Factures")
	src := f.addScan(t, "Factures", "scan001.pdf")

	engine := &ocr.StaticEngine{Pages: map[string][]string{src: {invoiceText}}}
	tally, err := f.runner(t, engine, fixedClock(2024, 6, 1)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if tally.Renamed != 1 || tally.Failed != 0 || tally.Skipped != 0 {
		t.Fatalf("unexpected tally: %+v", tally)
	}
	want := filepath.Join(f.home.OutputFolderPath("Factures"), "20240315_Edf_FAC2024001.pdf")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected output %s: %v", want, err)
	}

	res := tally.Results[0]
	if res.Extraction.Date != "20240315" {
		t.Errorf("date = %q", res.Extraction.Date)
	}
	if res.Extraction.Supplier != "EDF" {
		t.Errorf("supplier = %q", res.Extraction.Supplier)
	}
	if res.Extraction.Invoice != "FAC-2024-001" {
		t.Errorf("invoice = %q", res.Extraction.Invoice)
	}

	stats := f.learning.Stats()
	if stats.TotalProcessed != 1 || stats.SuccessfulExtractions.Date != 1 {
		t.Errorf("stats not recorded: %+v", stats)
	}

	queue := LoadReviewQueue(f.home.ReviewQueuePath())
	if len(queue) != 1 {
		t.Fatalf("expected 1 review entry, got %d", len(queue))
	}
	if queue[0].FinalFilename != "20240315_Edf_FAC2024001.pdf" {
		t.Errorf("review entry = %+v", queue[0])
	}
}

func TestRunDateFallbackUsesInjectedClock(t *testing.T) {
	f := newFixture(t, "Factures")
	src := f.addScan(t, "Factures", "scan.pdf")

	// no recognizable date anywhere
	engine := &ocr.StaticEngine{Pages: map[string][]string{src: {"Boulangerie Martin\nFacture n° 77"}}}
	tally, err := f.runner(t, engine, fixedClock(2025, 1, 2)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if tally.Renamed != 1 {
		t.Fatalf("tally: %+v", tally)
	}
	name := filepath.Base(tally.Results[0].OutputPath)
	if !strings.HasPrefix(name, "20250102_") {
		t.Errorf("expected run-date prefix, got %q", name)
	}
	if tally.Results[0].Extraction.Date != "" {
		t.Errorf("fallback date must not count as extraction: %+v", tally.Results[0].Extraction)
	}
}

func TestRunSupplierFallback(t *testing.T) {
	f := newFixture(t, "Factures")
	src := f.addScan(t, "Factures", "scan.pdf")

	// only the user's own identity
	engine := &ocr.StaticEngine{Pages: map[string][]string{src: {"M. Jean DUPONT\n12 rue des Lilas"}}}
	tally, err := f.runner(t, engine, fixedClock(2024, 6, 1)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tally.Renamed != 1 {
		t.Fatalf("tally: %+v", tally)
	}
	name := filepath.Base(tally.Results[0].OutputPath)
	if !strings.Contains(name, "UnknownSupplier") {
		t.Errorf("expected fallback supplier in %q", name)
	}
}

func TestRunFolderDeltaLiftsIdentitySuppression(t *testing.T) {
	f := newFixture(t, "Factures", "Impots")
	if err := f.profiles.SetFolderDelta("Impots", profile.FolderDelta{
		Remove: map[string]any{"user_info": map[string]any{"names": []any{"Jean DUPONT"}}},
	}); err != nil {
		t.Fatal(err)
	}

	text := "Jean DUPONT Traiteur SARL\nFacture n° 99\nDate : 01/02/2024"
	srcA := f.addScan(t, "Factures", "a.pdf")
	srcB := f.addScan(t, "Impots", "b.pdf")
	engine := &ocr.StaticEngine{Pages: map[string][]string{srcA: {text}, srcB: {text}}}

	tally, err := f.runner(t, engine, fixedClock(2024, 6, 1)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tally.Renamed != 2 {
		t.Fatalf("tally: %+v", tally)
	}

	byFolder := map[string]FileResult{}
	for _, r := range tally.Results {
		byFolder[r.Folder] = r
	}
	if got := byFolder["Impots"].Extraction.Supplier; got != "Jean DUPONT Traiteur" {
		t.Errorf("delta folder should see the name as supplier, got %q", got)
	}
	if got := byFolder["Factures"].Extraction.Supplier; strings.Contains(got, "DUPONT") {
		t.Errorf("other folders must still suppress the name, got %q", got)
	}
}

func TestRunSkipsEmptyAndFailedFiles(t *testing.T) {
	f := newFixture(t, "Factures")
	empty := f.addScan(t, "Factures", "empty.pdf")
	broken := f.addScan(t, "Factures", "broken.pdf")
	good := f.addScan(t, "Factures", "good.pdf")

	engine := &ocr.StaticEngine{
		Pages: map[string][]string{
			empty: {"   \n  "},
			good:  {invoiceText},
		},
		Errs: map[string]error{broken: errors.New("scanner unplugged")},
	}

	tally, err := f.runner(t, engine, fixedClock(2024, 6, 1)).Run(context.Background())
	if err != nil {
		t.Fatalf("a per-file failure must not abort the batch: %v", err)
	}
	if tally.Renamed != 1 || tally.Skipped != 1 || tally.Failed != 1 {
		t.Fatalf("tally: %+v", tally)
	}
}

func TestRunDiscoversRecursivelyCaseInsensitive(t *testing.T) {
	f := newFixture(t, "Factures")
	nested := filepath.Join(f.home.ScanFolderPath("Factures"), "2024", "mars")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(nested, "scan.PDF")
	if err := os.WriteFile(src, []byte("%PDF-stub"), 0o644); err != nil {
		t.Fatal(err)
	}
	ignored := filepath.Join(nested, "notes.txt")
	if err := os.WriteFile(ignored, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	engine := &ocr.StaticEngine{Pages: map[string][]string{src: {invoiceText}}}
	tally, err := f.runner(t, engine, fixedClock(2024, 6, 1)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tally.Renamed != 1 || len(tally.Results) != 1 {
		t.Fatalf("tally: %+v", tally)
	}
	// output mirrors the scan subtree
	want := filepath.Join(f.home.OutputFolderPath("Factures"), "2024", "mars", "20240315_Edf_FAC2024001.pdf")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected mirrored output %s: %v", want, err)
	}
}

func TestRunNameCollisionsGetSuffixes(t *testing.T) {
	f := newFixture(t, "Factures")
	srcA := f.addScan(t, "Factures", "first.pdf")
	srcB := f.addScan(t, "Factures", "second.pdf")

	engine := &ocr.StaticEngine{Pages: map[string][]string{srcA: {invoiceText}, srcB: {invoiceText}}}
	tally, err := f.runner(t, engine, fixedClock(2024, 6, 1)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tally.Renamed != 2 {
		t.Fatalf("tally: %+v", tally)
	}

	outDir := f.home.OutputFolderPath("Factures")
	for _, name := range []string{"20240315_Edf_FAC2024001.pdf", "20240315_Edf_FAC2024001_2.pdf"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestRunConcurrency(t *testing.T) {
	for _, workers := range []int{1, 4, 16} {
		t.Run(fmt.Sprintf("%d_workers", workers), func(t *testing.T) {
			f := newFixture(t, "Factures")
			f.cfg.Workers = workers

			pages := map[string][]string{}
			for i := 0; i < 50; i++ {
				src := f.addScan(t, "Factures", fmt.Sprintf("scan%03d.pdf", i))
				pages[src] = []string{fmt.Sprintf("Boulangerie Martin\nFacture n° FAC-%03d\nDate: 15/03/2024", i)}
			}

			engine := &ocr.StaticEngine{Pages: pages}
			tally, err := f.runner(t, engine, fixedClock(2024, 6, 1)).Run(context.Background())
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if tally.Renamed != 50 {
				t.Fatalf("renamed = %d, tally %+v", tally.Renamed, tally)
			}

			outputs, err := filepath.Glob(filepath.Join(f.home.OutputFolderPath("Factures"), "*.pdf"))
			if err != nil {
				t.Fatal(err)
			}
			if len(outputs) != 50 {
				t.Fatalf("expected 50 output artifacts, found %d", len(outputs))
			}
			if got := f.learning.Stats().TotalProcessed; got != 50 {
				t.Fatalf("stats counter = %d", got)
			}
		})
	}
}

func TestRunSurfacesLearnedSuggestions(t *testing.T) {
	f := newFixture(t, "Factures")
	src := f.addScan(t, "Factures", "rescan.pdf")

	// a correction stored for a near-identical document
	if err := f.learning.AddCorrection(extract.KindSupplier, invoiceText, "Electricite De France", "EDF"); err != nil {
		t.Fatal(err)
	}

	engine := &ocr.StaticEngine{Pages: map[string][]string{src: {invoiceText + "\npage 2"}}}
	tally, err := f.runner(t, engine, fixedClock(2024, 6, 1)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tally.Renamed != 1 {
		t.Fatalf("tally: %+v", tally)
	}

	queue := LoadReviewQueue(f.home.ReviewQueuePath())
	if len(queue) != 1 {
		t.Fatalf("expected 1 review entry, got %d", len(queue))
	}
	got, ok := queue[0].Suggestions[extract.KindSupplier]
	if !ok {
		t.Fatalf("expected supplier suggestion, got %+v", queue[0].Suggestions)
	}
	if got.CorrectedValue != "Electricite De France" {
		t.Fatalf("suggestion = %+v", got)
	}
}

func TestRunUnreadableSubdirIsSkipped(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	f := newFixture(t, "Factures")
	src := f.addScan(t, "Factures", "scan.pdf")

	locked := filepath.Join(f.home.ScanFolderPath("Factures"), "locked")
	if err := os.Mkdir(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	engine := &ocr.StaticEngine{Pages: map[string][]string{src: {invoiceText}}}
	tally, err := f.runner(t, engine, fixedClock(2024, 6, 1)).Run(context.Background())
	if err != nil {
		t.Fatalf("an unreadable subdirectory must not abort the run: %v", err)
	}
	if tally.Renamed != 1 {
		t.Fatalf("tally: %+v", tally)
	}
}

func TestRunMissingScanFolderIsSkipped(t *testing.T) {
	f := newFixture(t, "Factures")
	f.cfg.SubFolders = []string{"Factures", "Inexistant"}
	src := f.addScan(t, "Factures", "scan.pdf")

	engine := &ocr.StaticEngine{Pages: map[string][]string{src: {invoiceText}}}
	tally, err := f.runner(t, engine, fixedClock(2024, 6, 1)).Run(context.Background())
	if err != nil {
		t.Fatalf("a missing folder must not abort the run: %v", err)
	}
	if tally.Renamed != 1 {
		t.Fatalf("tally: %+v", tally)
	}
}
