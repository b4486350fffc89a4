package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeRunner struct {
	calls []string
	fail  map[string]error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, name+" "+strings.Join(args, " "))
	if err, ok := f.fail[name]; ok {
		return nil, err
	}
	switch name {
	case "pdftoppm":
		// prefix is the last argument
		prefix := args[len(args)-1]
		for i := 1; i <= 2; i++ {
			path := fmt.Sprintf("%s-%d.png", prefix, i)
			if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
				return nil, err
			}
		}
		return nil, nil
	case "tesseract":
		img := filepath.Base(args[0])
		return []byte("text from " + img), nil
	}
	return nil, fmt.Errorf("unexpected command %s", name)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestExecEngineDefaults(t *testing.T) {
	e := NewExecEngine(ExecEngineConfig{Logger: quietLogger()})
	if e.cfg.Pdftoppm != "pdftoppm" || e.cfg.Tesseract != "tesseract" {
		t.Fatalf("unexpected tool defaults: %+v", e.cfg)
	}
	if e.cfg.DPI != 300 || e.cfg.Languages != "fra+eng" || e.cfg.Attempts != 2 {
		t.Fatalf("unexpected option defaults: %+v", e.cfg)
	}
}

func TestOCRDocumentPagesInOrder(t *testing.T) {
	runner := &fakeRunner{}
	e := NewExecEngine(ExecEngineConfig{Logger: quietLogger(), Runner: runner})

	pages, err := e.ocrDocument(context.Background(), "/tmp/doc.pdf")
	if err != nil {
		t.Fatalf("ocrDocument: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if !strings.Contains(pages[0], "page-1.png") || !strings.Contains(pages[1], "page-2.png") {
		t.Fatalf("pages out of order: %v", pages)
	}
	if !strings.HasPrefix(runner.calls[0], "pdftoppm ") {
		t.Fatalf("expected pdftoppm first, got %v", runner.calls)
	}
}

func TestOCRDocumentRenderFailure(t *testing.T) {
	boom := errors.New("renderer crashed")
	runner := &fakeRunner{fail: map[string]error{"pdftoppm": boom}}
	e := NewExecEngine(ExecEngineConfig{Logger: quietLogger(), Runner: runner})

	_, err := e.ocrDocument(context.Background(), "/tmp/doc.pdf")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped render error, got %v", err)
	}
}

func TestPreflightRejectsNonPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}

	e := NewExecEngine(ExecEngineConfig{Logger: quietLogger()})
	if _, err := e.preflight(path); err == nil {
		t.Fatal("expected structure error for non-PDF content")
	}
}

func TestStaticEngine(t *testing.T) {
	eng := &StaticEngine{
		Pages: map[string][]string{"a.pdf": {"page one", "page two"}},
		Errs:  map[string]error{"b.pdf": errors.New("unreadable")},
	}

	pages, err := eng.TextForDocument(context.Background(), "a.pdf")
	if err != nil || len(pages) != 2 {
		t.Fatalf("unexpected result: %v %v", pages, err)
	}
	if _, err := eng.TextForDocument(context.Background(), "b.pdf"); err == nil {
		t.Fatal("expected canned error")
	}
	if pages, err := eng.TextForDocument(context.Background(), "missing.pdf"); err != nil || pages != nil {
		t.Fatalf("expected empty result for unknown path, got %v %v", pages, err)
	}
}
