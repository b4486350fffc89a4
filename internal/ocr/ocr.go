// Package ocr defines the external OCR collaborator interface and its
// default implementation on top of the poppler/tesseract command line
// tools. PDF-to-image and image-to-text conversion happen outside this
// repository; callers consume page texts only.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Engine produces the OCR text for one document as an ordered list of
// per-page texts. An empty list is a valid result that callers must
// tolerate; it means the document yielded no text.
type Engine interface {
	TextForDocument(ctx context.Context, path string) ([]string, error)
}

// Runner executes an external command. Extracted so tests can stub the
// poppler/tesseract tools.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout []byte, err error)
}

type execRunner struct {
	logger *slog.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	if err != nil {
		r.logger.Error("exec failed",
			"cmd", name,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
			"stderr", strings.TrimSpace(errb.String()))
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	r.logger.Debug("exec ok",
		"cmd", name,
		"duration_ms", time.Since(start).Milliseconds(),
		"stdout_bytes", out.Len())
	return out.Bytes(), nil
}

// ExecEngineConfig configures the command line OCR engine.
type ExecEngineConfig struct {
	Pdftoppm  string // default "pdftoppm"
	Tesseract string // default "tesseract"
	Languages string // tesseract -l value, default "fra+eng"
	DPI       int    // render resolution, default 300
	Attempts  int    // retry attempts per document, default 2
	Logger    *slog.Logger
	Runner    Runner // defaults to real command execution
}

// ExecEngine renders PDF pages with pdftoppm and recognizes them with
// tesseract. Documents are validated with pdfcpu before any rendering.
type ExecEngine struct {
	cfg    ExecEngineConfig
	logger *slog.Logger
	runner Runner
}

// NewExecEngine creates the default command line OCR engine.
func NewExecEngine(cfg ExecEngineConfig) *ExecEngine {
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Languages == "" {
		cfg.Languages = "fra+eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 2
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "ocr")

	runner := cfg.Runner
	if runner == nil {
		runner = execRunner{logger: logger}
	}

	return &ExecEngine{cfg: cfg, logger: logger, runner: runner}
}

// TextForDocument returns per-page OCR text for one PDF, page order
// preserved. The external tools are retried once on failure since
// transient renderer crashes are common with damaged scans.
func (e *ExecEngine) TextForDocument(ctx context.Context, path string) ([]string, error) {
	pageCount, err := e.preflight(path)
	if err != nil {
		return nil, err
	}
	if pageCount == 0 {
		return nil, nil
	}

	return retry.DoWithData(
		func() ([]string, error) { return e.ocrDocument(ctx, path) },
		retry.Context(ctx),
		retry.Attempts(uint(e.cfg.Attempts)),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}

// preflight validates the PDF and returns its page count.
func (e *ExecEngine) preflight(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	count, err := api.PageCount(f, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF structure: %w", err)
	}
	return count, nil
}

func (e *ExecEngine) ocrDocument(ctx context.Context, path string) ([]string, error) {
	tmpDir, err := os.MkdirTemp("", "adminocr-pages-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	_, err = e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return nil, fmt.Errorf("page rendering failed: %w", err)
	}

	images, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(images)

	pages := make([]string, 0, len(images))
	for _, img := range images {
		// tesseract <img> stdout -l fra+eng
		out, err := e.runner.Run(ctx, e.cfg.Tesseract, img, "stdout", "-l", e.cfg.Languages)
		if err != nil {
			return nil, fmt.Errorf("recognition failed for %s: %w", filepath.Base(img), err)
		}
		pages = append(pages, string(out))
	}

	return pages, nil
}

// StaticEngine serves canned page texts by path. Test double.
type StaticEngine struct {
	Pages map[string][]string
	Errs  map[string]error
}

// TextForDocument returns the canned pages for path.
func (s *StaticEngine) TextForDocument(_ context.Context, path string) ([]string, error) {
	if err, ok := s.Errs[path]; ok {
		return nil, err
	}
	return s.Pages[path], nil
}
