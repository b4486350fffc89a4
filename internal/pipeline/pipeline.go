// Package pipeline runs the batch document flow: discover scanned files,
// OCR them, extract fields against the folder's effective profile, place
// renamed copies into the mirrored output subtree and feed the learning
// store.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Huser-Networks/admin-assistant-ocr/internal/config"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/extract"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/filename"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/home"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/learning"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/ocr"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/profile"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/rules"
)

// FileStatus classifies the outcome of one file's processing.
type FileStatus string

const (
	StatusRenamed FileStatus = "renamed"
	StatusSkipped FileStatus = "skipped"
	StatusFailed  FileStatus = "failed"
)

// FileResult is the outcome of one file.
type FileResult struct {
	Folder     string         `json:"folder"`
	SourcePath string         `json:"source_path"`
	OutputPath string         `json:"output_path,omitempty"`
	Extraction extract.Result `json:"extraction"`
	Status     FileStatus     `json:"status"`
	Reason     string         `json:"reason,omitempty"`
}

// Tally summarizes a run. A run always completes with a tally; per-file
// failures never abort sibling files.
type Tally struct {
	RunID    string       `json:"run_id"`
	Started  time.Time    `json:"started"`
	Duration string       `json:"duration"`
	Renamed  int          `json:"renamed"`
	Skipped  int          `json:"skipped"`
	Failed   int          `json:"failed"`
	Results  []FileResult `json:"results"`
}

// Options configures a Runner. Every field except Clock and Workers is
// required.
type Options struct {
	Home     *home.Dir
	Config   *config.Config
	Rules    *rules.Store
	Profiles *profile.Store
	Learning *learning.Store
	Engine   ocr.Engine
	Logger   *slog.Logger
	Clock    func() time.Time // defaults to time.Now
	Workers  int              // defaults to Config.Workers, then NumCPU
}

// Runner processes one batch. Construct one per run.
type Runner struct {
	home     *home.Dir
	cfg      *config.Config
	profiles *profile.Store
	learning *learning.Store
	engine   ocr.Engine
	logger   *slog.Logger
	clock    func() time.Time
	workers  int

	extractors []extract.Extractor
}

// New creates a batch runner.
func New(opts Options) *Runner {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = opts.Config.Workers
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger := opts.Logger.With("component", "pipeline")

	return &Runner{
		home:     opts.Home,
		cfg:      opts.Config,
		profiles: opts.Profiles,
		learning: opts.Learning,
		engine:   opts.Engine,
		logger:   logger,
		clock:    clock,
		workers:  workers,
		extractors: []extract.Extractor{
			extract.NewDateExtractor(opts.Rules, logger),
			extract.NewSupplierExtractor(opts.Rules, logger),
			extract.NewInvoiceExtractor(opts.Rules, logger),
		},
	}
}

// workItem is one file queued for processing, carrying its folder's
// resolved profile so workers never touch the profile store.
type workItem struct {
	folder    string
	path      string
	effective *profile.Effective
}

// Run processes every configured folder and returns the per-file tally.
// The context cancels the run between files; files already in flight
// finish.
func (r *Runner) Run(ctx context.Context) (*Tally, error) {
	started := r.clock()
	tally := &Tally{RunID: uuid.NewString(), Started: started}
	logger := r.logger.With("run_id", tally.RunID)

	items := r.discover(logger)
	logger.Info("batch starting", "files", len(items), "workers", r.workers)

	queue := make(chan workItem)
	resultCh := make(chan fileOutcome)

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range queue {
				resultCh <- r.processFile(ctx, logger, item)
			}
		}()
	}

	go func() {
		defer close(queue)
		for _, item := range items {
			select {
			case <-ctx.Done():
				return
			case queue <- item:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var reviews []ReviewEntry
	for outcome := range resultCh {
		tally.Results = append(tally.Results, outcome.result)
		switch outcome.result.Status {
		case StatusRenamed:
			tally.Renamed++
			reviews = append(reviews, outcome.review)
		case StatusSkipped:
			tally.Skipped++
		case StatusFailed:
			tally.Failed++
		}
	}

	if len(reviews) > 0 {
		if err := appendReviewEntries(r.home.ReviewQueuePath(), reviews); err != nil {
			logger.Error("failed to persist review queue", "error", err)
		}
	}

	tally.Duration = r.clock().Sub(started).String()
	logger.Info("batch finished",
		"renamed", tally.Renamed, "skipped", tally.Skipped, "failed", tally.Failed,
		"duration", tally.Duration)
	return tally, nil
}

// discover enumerates matching files for every configured folder,
// resolving each folder's effective profile once. A folder whose
// profile fails to resolve is logged and skipped, as is any path the
// walk cannot read.
func (r *Runner) discover(logger *slog.Logger) []workItem {
	var items []workItem
	for _, folder := range r.cfg.SubFolders {
		eff, err := r.profiles.Effective(folder)
		if err != nil {
			logger.Error("profile resolution failed, skipping folder", "folder", folder, "error", err)
			continue
		}

		root := r.home.ScanFolderPath(folder)
		if _, err := os.Stat(root); os.IsNotExist(err) {
			logger.Warn("scan folder missing", "folder", folder)
			continue
		}
		filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				logger.Warn("unreadable path skipped", "path", path, "error", err)
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if r.matchesExtension(path) {
				items = append(items, workItem{folder: folder, path: path, effective: eff})
			}
			return nil
		})
	}
	return items
}

func (r *Runner) matchesExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range r.cfg.FileExtensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

type fileOutcome struct {
	result FileResult
	review ReviewEntry
}

// processFile handles one file end to end. Every failure mode resolves
// to a skipped or failed result, never an error return.
func (r *Runner) processFile(ctx context.Context, logger *slog.Logger, item workItem) fileOutcome {
	result := FileResult{Folder: item.folder, SourcePath: item.path}
	log := logger.With("folder", item.folder, "file", filepath.Base(item.path))

	pages, err := r.engine.TextForDocument(ctx, item.path)
	if err != nil {
		log.Error("ocr failed", "error", err)
		result.Status = StatusFailed
		result.Reason = fmt.Sprintf("ocr: %v", err)
		return fileOutcome{result: result}
	}

	text := strings.Join(pages, "\n")
	if strings.TrimSpace(text) == "" {
		log.Warn("document yielded no text, skipping")
		result.Status = StatusSkipped
		result.Reason = "no text"
		return fileOutcome{result: result}
	}

	extracted := r.extract(text, item.effective)
	result.Extraction = extracted

	if err := r.learning.RecordExtraction(extracted); err != nil {
		log.Error("failed to persist stats", "error", err)
	}

	newName := r.synthesize(extracted)
	outPath, err := r.placeCopy(item, newName)
	if err != nil {
		log.Error("failed to place output copy", "error", err)
		result.Status = StatusFailed
		result.Reason = fmt.Sprintf("copy: %v", err)
		return fileOutcome{result: result}
	}
	result.OutputPath = outPath
	result.Status = StatusRenamed
	log.Info("renamed", "output", filepath.Base(outPath))

	suggestions := r.learning.Suggest(text)
	if len(suggestions) > 0 {
		log.Info("corrections suggested from similar documents", "count", len(suggestions))
	}

	return fileOutcome{
		result: result,
		review: newReviewEntry(r.clock(), item.path, filepath.Base(outPath), extracted, suggestions, text),
	}
}

// extract runs the three extractors and applies the supplier mapping.
// Missing values stay empty; fallback policy is applied at synthesis
// time so the stats only count real extractions.
func (r *Runner) extract(text string, eff *profile.Effective) extract.Result {
	var res extract.Result
	for _, e := range r.extractors {
		value, ok := e.Extract(text, eff)
		if !ok {
			continue
		}
		switch e.Kind() {
		case extract.KindDate:
			res.Date = value
		case extract.KindSupplier:
			res.Supplier = eff.MapSupplier(value)
		case extract.KindInvoice:
			res.Invoice = value
		}
	}
	return res
}

func (r *Runner) synthesize(res extract.Result) string {
	date := res.Date
	if date == "" {
		date = r.clock().Format("20060102")
	}
	supplier := res.Supplier
	if supplier == "" {
		supplier = extract.UnknownSupplier
	}
	return filename.Synthesize(date, supplier, res.Invoice)
}

// placeCopy copies the source file into the mirrored output subtree
// under its new name. Name collisions get a numeric suffix; the
// destination is reserved with an exclusive create so concurrent
// workers cannot claim the same name.
func (r *Runner) placeCopy(item workItem, newName string) (string, error) {
	rel, err := filepath.Rel(r.home.ScanFolderPath(item.folder), filepath.Dir(item.path))
	if err != nil {
		return "", fmt.Errorf("failed to mirror path: %w", err)
	}
	outDir := filepath.Join(r.home.OutputFolderPath(item.folder), rel)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	dest, out, err := reserveName(outDir, newName)
	if err != nil {
		return "", err
	}
	defer out.Close()

	in, err := os.Open(item.path)
	if err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	if _, err := io.Copy(out, in); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("failed to copy: %w", err)
	}
	return dest, nil
}

// reserveName creates the first free variant of name in dir using
// O_EXCL, trying name.pdf, name_2.pdf, name_3.pdf and so on.
func reserveName(dir, name string) (string, *os.File, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 1; i <= 1000; i++ {
		candidate := name
		if i > 1 {
			candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
		}
		path := filepath.Join(dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return path, f, nil
		}
		if !os.IsExist(err) {
			return "", nil, fmt.Errorf("failed to create %s: %w", path, err)
		}
	}
	return "", nil, fmt.Errorf("no free name for %s in %s", name, dir)
}
